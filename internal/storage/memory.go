package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/and161185/pinboard/internal/errs"
	"github.com/and161185/pinboard/internal/model"
)

// Object is a stored blob with its headers.
type Object struct {
	Data         []byte
	ContentType  string
	CacheControl string
}

// MemoryStore keeps objects in process memory. Used for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	bucket  string
	base    string
	exists  bool
	public  bool
	objects map[string]Object
}

// NewMemoryStore creates an empty store. base prefixes public URLs (for example "/media").
func NewMemoryStore(bucket, base string) *MemoryStore {
	return &MemoryStore{bucket: bucket, base: strings.TrimSuffix(base, "/"), objects: make(map[string]Object)}
}

func (m *MemoryStore) Bucket() string { return m.bucket }

func (m *MemoryStore) BucketInfo(context.Context) (model.BucketInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return model.BucketInfo{Name: m.bucket, Exists: m.exists, Public: m.public}, nil
}

func (m *MemoryStore) CreateBucket(_ context.Context, public bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exists = true
	m.public = m.public || public
	return nil
}

func (m *MemoryStore) SetPublic(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.exists {
		return fmt.Errorf("bucket %q: %w", m.bucket, errs.ErrNotFound)
	}
	m.public = true
	return nil
}

func (m *MemoryStore) Upload(ctx context.Context, path string, r io.Reader, size int64, opts UploadOptions) error {
	var buf bytes.Buffer
	if size > 0 {
		buf.Grow(int(size))
	}
	if _, err := io.Copy(&buf, r); err != nil {
		return fmt.Errorf("read upload: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.exists {
		return fmt.Errorf("bucket %q: %w", m.bucket, errs.ErrNotFound)
	}
	if _, ok := m.objects[path]; ok && !opts.Upsert {
		return fmt.Errorf("object %q: %w", path, errs.ErrAlreadyExists)
	}
	m.objects[path] = Object{Data: buf.Bytes(), ContentType: opts.ContentType, CacheControl: opts.CacheControl}
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, paths ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range paths {
		delete(m.objects, p)
	}
	return nil
}

func (m *MemoryStore) PublicURL(path string) string {
	if m.base == "" {
		return ""
	}
	return m.base + "/" + m.bucket + "/" + strings.TrimPrefix(path, "/")
}

// Get returns a stored object. The second result is false when the key is absent.
func (m *MemoryStore) Get(path string) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objects[path]
	return o, ok
}

// Len returns the number of stored objects.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
