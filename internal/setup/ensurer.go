// Package setup makes sure the image bucket and its policies exist before anything is uploaded.
package setup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/and161185/pinboard/internal/errs"
	"github.com/and161185/pinboard/internal/model"
	"github.com/and161185/pinboard/internal/repository"
	"github.com/and161185/pinboard/internal/storage"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Status is the outcome of the most recent Ensure run.
type Status struct {
	Ready     bool      `json:"ready"`
	Message   string    `json:"message"`
	CheckedAt time.Time `json:"checked_at"`
}

// Ensurer runs the idempotent storage setup sequence and remembers whether it succeeded.
type Ensurer struct {
	rpc   repository.SetupRPC
	store storage.ObjectStore
	log   *zap.Logger
	now   func() time.Time

	run sync.Mutex // one sequence at a time

	mu        sync.RWMutex
	status    Status
	listeners []func(bool)
}

// NewEnsurer constructs an Ensurer. It starts not ready.
func NewEnsurer(rpc repository.SetupRPC, store storage.ObjectStore, log *zap.Logger) *Ensurer {
	return &Ensurer{rpc: rpc, store: store, log: log, now: time.Now}
}

// OnChange registers fn to be called with the readiness after every run that changes it.
func (e *Ensurer) OnChange(fn func(ready bool)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// Status returns the last recorded outcome.
func (e *Ensurer) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

// Ready returns nil when storage is set up, running the sequence again if it is not.
func (e *Ensurer) Ready(ctx context.Context) error {
	if e.Status().Ready {
		return nil
	}
	return e.Ensure(ctx)
}

// Ensure runs: RLS RPC, publicity RPC, bucket create or publish, images table probe.
// Every failure is wrapped in errs.ErrStorageSetup and recorded.
func (e *Ensurer) Ensure(ctx context.Context) error {
	e.run.Lock()
	defer e.run.Unlock()

	err := e.sequence(ctx)
	e.record(err)
	if err != nil {
		e.log.Warn("storage setup failed", zap.Error(err))
		return err
	}
	e.log.Debug("storage ready", zap.String("bucket", e.store.Bucket()))
	return nil
}

func (e *Ensurer) sequence(ctx context.Context) error {
	if err := checkRPC(ctx, "rlsBuckets", e.rpc.EnsureRLSOnStorageBuckets); err != nil {
		return err
	}
	if err := checkRPC(ctx, "publicity", e.rpc.ManageImagesBucketPublicity); err != nil {
		return err
	}

	info, err := e.store.BucketInfo(ctx)
	if err != nil {
		return fmt.Errorf("%w: could not verify bucket: %w", errs.ErrStorageSetup, err)
	}
	switch {
	case !info.Exists:
		e.log.Info("creating bucket", zap.String("bucket", info.Name))
		if err := e.store.CreateBucket(ctx, true); err != nil {
			return fmt.Errorf("%w: could not create bucket: %w", errs.ErrStorageSetup, err)
		}
	case !info.Public:
		e.log.Info("making bucket public", zap.String("bucket", info.Name))
		if err := e.store.SetPublic(ctx); err != nil {
			return fmt.Errorf("%w: could not update bucket to public: %w", errs.ErrStorageSetup, err)
		}
	}

	if err := e.rpc.ProbeImages(ctx); err != nil {
		return fmt.Errorf("%w: database table \"images\" may not be correctly configured: %w", errs.ErrStorageSetup, err)
	}
	return nil
}

func checkRPC(ctx context.Context, name string, call func(context.Context) (model.SetupResult, error)) error {
	res, err := call(ctx)
	if err != nil {
		return fmt.Errorf("%w: RPC %s: %w", errs.ErrStorageSetup, name, err)
	}
	if !res.Success {
		msg := res.Message
		if msg == "" {
			msg = "Unknown RPC error"
		}
		return fmt.Errorf("%w: RPC %s: %s", errs.ErrStorageSetup, name, msg)
	}
	return nil
}

func (e *Ensurer) record(err error) {
	e.mu.Lock()
	prev := e.status.Ready
	first := e.status.CheckedAt.IsZero()
	e.status = Status{Ready: err == nil, CheckedAt: e.now()}
	if err != nil {
		e.status.Message = err.Error()
	}
	ready := e.status.Ready
	listeners := append(([]func(bool))(nil), e.listeners...)
	e.mu.Unlock()

	if prev != ready || first {
		for _, fn := range listeners {
			fn(ready)
		}
	}
}

// Schedule re-runs Ensure on spec (for example "@every 30m") until c is stopped.
func (e *Ensurer) Schedule(c *cron.Cron, spec string, timeout time.Duration) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_ = e.Ensure(ctx)
	})
}

// CronLogger adapts zap to cron's logger.
type CronLogger struct{ L *zap.SugaredLogger }

func (l CronLogger) Info(msg string, keysAndValues ...any) { l.L.Debugw(msg, keysAndValues...) }

func (l CronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.L.Errorw(msg, append(keysAndValues, "error", err)...)
}
