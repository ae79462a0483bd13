package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/and161185/pinboard/internal/model"
)

// SetupRPC calls the storage setup functions installed by the migrations.
type SetupRPC struct{ db *DB }

// NewSetupRPC constructs the setup RPC client.
func NewSetupRPC(db *DB) *SetupRPC { return &SetupRPC{db: db} }

// EnsureRLSOnStorageBuckets calls ensure_rls_on_storage_buckets().
func (s *SetupRPC) EnsureRLSOnStorageBuckets(ctx context.Context) (model.SetupResult, error) {
	return s.call(ctx, `SELECT ensure_rls_on_storage_buckets()`)
}

// ManageImagesBucketPublicity calls manage_images_bucket_publicity().
func (s *SetupRPC) ManageImagesBucketPublicity(ctx context.Context) (model.SetupResult, error) {
	return s.call(ctx, `SELECT manage_images_bucket_publicity()`)
}

// ProbeImages runs a one-row select against images.
func (s *SetupRPC) ProbeImages(ctx context.Context) error {
	rows, err := s.db.Pool.Query(ctx, `SELECT id FROM images LIMIT 1`)
	if err != nil {
		return mapErr(err)
	}
	rows.Close()
	return mapErr(rows.Err())
}

func (s *SetupRPC) call(ctx context.Context, q string) (model.SetupResult, error) {
	var raw []byte
	if err := s.db.Pool.QueryRow(ctx, q).Scan(&raw); err != nil {
		return model.SetupResult{}, mapErr(err)
	}
	var res model.SetupResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return model.SetupResult{}, fmt.Errorf("decode setup result: %w", err)
	}
	return res, nil
}
