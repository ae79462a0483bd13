package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/and161185/pinboard/internal/errs"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockClient struct{ mock.Mock }

func (m *mockClient) BucketExists(ctx context.Context, bucket string) (bool, error) {
	args := m.Called(ctx, bucket)
	return args.Bool(0), args.Error(1)
}

func (m *mockClient) MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error {
	return m.Called(ctx, bucket, opts).Error(0)
}

func (m *mockClient) GetBucketPolicy(ctx context.Context, bucket string) (string, error) {
	args := m.Called(ctx, bucket)
	return args.String(0), args.Error(1)
}

func (m *mockClient) SetBucketPolicy(ctx context.Context, bucket, policy string) error {
	return m.Called(ctx, bucket, policy).Error(0)
}

func (m *mockClient) StatObject(ctx context.Context, bucket, object string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	args := m.Called(ctx, bucket, object, opts)
	return args.Get(0).(minio.ObjectInfo), args.Error(1)
}

func (m *mockClient) PutObject(ctx context.Context, bucket, object string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	args := m.Called(ctx, bucket, object, r, size, opts)
	return args.Get(0).(minio.UploadInfo), args.Error(1)
}

func (m *mockClient) RemoveObject(ctx context.Context, bucket, object string, opts minio.RemoveObjectOptions) error {
	return m.Called(ctx, bucket, object, opts).Error(0)
}

var notFound = minio.ErrorResponse{StatusCode: http.StatusNotFound, Code: "NoSuchKey"}

func newMinio(t *testing.T) (*MinioStore, *mockClient) {
	t.Helper()
	c := &mockClient{}
	t.Cleanup(func() { c.AssertExpectations(t) })
	base, _ := url.Parse("http://localhost:9000")
	return NewMinioStoreWithClient(c, "images", "", base), c
}

func TestMinioStore_BucketInfo(t *testing.T) {
	ctx := context.Background()
	s, c := newMinio(t)
	c.On("BucketExists", ctx, "images").Return(true, nil)
	c.On("GetBucketPolicy", ctx, "images").Return(readOnlyPolicy("images"), nil)

	info, err := s.BucketInfo(ctx)
	require.NoError(t, err)
	require.True(t, info.Exists)
	require.True(t, info.Public)
}

func TestMinioStore_BucketInfo_Missing(t *testing.T) {
	ctx := context.Background()
	s, c := newMinio(t)
	c.On("BucketExists", ctx, "images").Return(false, nil)

	info, err := s.BucketInfo(ctx)
	require.NoError(t, err)
	require.False(t, info.Exists)
	require.False(t, info.Public)
}

func TestMinioStore_CreateBucketPublic(t *testing.T) {
	ctx := context.Background()
	s, c := newMinio(t)
	c.On("MakeBucket", ctx, "images", minio.MakeBucketOptions{}).Return(nil)
	c.On("SetBucketPolicy", ctx, "images", readOnlyPolicy("images")).Return(nil)

	require.NoError(t, s.CreateBucket(ctx, true))
}

func TestMinioStore_Upload_NoUpsert(t *testing.T) {
	ctx := context.Background()
	s, c := newMinio(t)
	body := strings.NewReader("img")
	c.On("StatObject", ctx, "images", "1.png", minio.StatObjectOptions{}).Return(minio.ObjectInfo{}, notFound)
	c.On("PutObject", ctx, "images", "1.png", body, int64(3),
		minio.PutObjectOptions{ContentType: "image/png", CacheControl: "max-age=3600"}).
		Return(minio.UploadInfo{}, nil)

	require.NoError(t, s.Upload(ctx, "1.png", body, 3, UploadOptions{ContentType: "image/png", CacheControl: CacheControlSeconds}))
}

func TestMinioStore_Upload_ExistingKeyRejected(t *testing.T) {
	ctx := context.Background()
	s, c := newMinio(t)
	c.On("StatObject", ctx, "images", "1.png", minio.StatObjectOptions{}).Return(minio.ObjectInfo{Key: "1.png"}, nil)

	err := s.Upload(ctx, "1.png", strings.NewReader("x"), 1, UploadOptions{})
	require.ErrorIs(t, err, errs.ErrAlreadyExists)
}

func TestMinioStore_Remove_JoinsErrors(t *testing.T) {
	ctx := context.Background()
	s, c := newMinio(t)
	c.On("RemoveObject", ctx, "images", "a", minio.RemoveObjectOptions{}).Return(nil)
	c.On("RemoveObject", ctx, "images", "b", minio.RemoveObjectOptions{}).Return(notFound)
	c.On("RemoveObject", ctx, "images", "c", minio.RemoveObjectOptions{}).Return(errors.New("boom"))

	err := s.Remove(ctx, "a", "b", "c")
	require.Error(t, err)
	require.Contains(t, err.Error(), `remove "c"`)
}

func TestMinioStore_PublicURL(t *testing.T) {
	s, _ := newMinio(t)
	require.Equal(t, "http://localhost:9000/images/avatars/u-1.png", s.PublicURL("avatars/u-1.png"))

	bare := NewMinioStoreWithClient(&mockClient{}, "images", "", nil)
	require.Empty(t, bare.PublicURL("x"))
}

func TestAllowsAnonymousRead(t *testing.T) {
	require.True(t, allowsAnonymousRead(readOnlyPolicy("images"), "images"))
	require.False(t, allowsAnonymousRead(readOnlyPolicy("other"), "images"))
	require.False(t, allowsAnonymousRead("", "images"))
	require.False(t, allowsAnonymousRead("{not json", "images"))
}
