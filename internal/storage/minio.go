package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/and161185/pinboard/internal/errs"
	"github.com/and161185/pinboard/internal/model"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioClient is the subset of *minio.Client used by MinioStore.
type MinioClient interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	GetBucketPolicy(ctx context.Context, bucketName string) (string, error)
	SetBucketPolicy(ctx context.Context, bucketName, policy string) error
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// MinioConfig holds the S3 connection settings.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// MinioStore implements ObjectStore on an S3-compatible server.
type MinioStore struct {
	client MinioClient
	bucket string
	region string
	base   *url.URL
}

// NewMinioStore dials nothing; minio-go connects lazily on first request.
func NewMinioStore(cfg MinioConfig) (*MinioStore, error) {
	c, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return NewMinioStoreWithClient(c, cfg.Bucket, cfg.Region, c.EndpointURL()), nil
}

// NewMinioStoreWithClient wraps an existing client. base is the server address used for public URLs and may be nil.
func NewMinioStoreWithClient(c MinioClient, bucket, region string, base *url.URL) *MinioStore {
	return &MinioStore{client: c, bucket: bucket, region: region, base: base}
}

func (s *MinioStore) Bucket() string { return s.bucket }

func (s *MinioStore) BucketInfo(ctx context.Context) (model.BucketInfo, error) {
	info := model.BucketInfo{Name: s.bucket}
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return info, fmt.Errorf("bucket exists: %w", err)
	}
	if !ok {
		return info, nil
	}
	info.Exists = true
	policy, err := s.client.GetBucketPolicy(ctx, s.bucket)
	if err != nil {
		if isNoPolicy(err) {
			return info, nil
		}
		return info, fmt.Errorf("bucket policy: %w", err)
	}
	info.Public = allowsAnonymousRead(policy, s.bucket)
	return info, nil
}

func (s *MinioStore) CreateBucket(ctx context.Context, public bool) error {
	err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region})
	if err != nil {
		code := minio.ToErrorResponse(err).Code
		if code != "BucketAlreadyOwnedByYou" && code != "BucketAlreadyExists" {
			return fmt.Errorf("make bucket: %w", err)
		}
	}
	if public {
		return s.SetPublic(ctx)
	}
	return nil
}

func (s *MinioStore) SetPublic(ctx context.Context) error {
	if err := s.client.SetBucketPolicy(ctx, s.bucket, readOnlyPolicy(s.bucket)); err != nil {
		return fmt.Errorf("set bucket policy: %w", err)
	}
	return nil
}

func (s *MinioStore) Upload(ctx context.Context, path string, r io.Reader, size int64, opts UploadOptions) error {
	if !opts.Upsert {
		_, err := s.client.StatObject(ctx, s.bucket, path, minio.StatObjectOptions{})
		switch {
		case err == nil:
			return fmt.Errorf("object %q: %w", path, errs.ErrAlreadyExists)
		case !isNotFound(err):
			return fmt.Errorf("stat object: %w", err)
		}
	}
	put := minio.PutObjectOptions{ContentType: opts.ContentType}
	if opts.CacheControl != "" {
		put.CacheControl = "max-age=" + opts.CacheControl
	}
	if _, err := s.client.PutObject(ctx, s.bucket, path, r, size, put); err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

func (s *MinioStore) Remove(ctx context.Context, paths ...string) error {
	var errList []error
	for _, p := range paths {
		if err := s.client.RemoveObject(ctx, s.bucket, p, minio.RemoveObjectOptions{}); err != nil && !isNotFound(err) {
			errList = append(errList, fmt.Errorf("remove %q: %w", p, err))
		}
	}
	return errors.Join(errList...)
}

func (s *MinioStore) PublicURL(path string) string {
	if s.base == nil || s.base.Host == "" {
		return ""
	}
	u := *s.base
	u.Path = "/" + s.bucket + "/" + strings.TrimPrefix(path, "/")
	return u.String()
}

type policyDoc struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

type policyStatement struct {
	Effect    string              `json:"Effect"`
	Principal map[string][]string `json:"Principal"`
	Action    []string            `json:"Action"`
	Resource  []string            `json:"Resource"`
}

func readOnlyPolicy(bucket string) string {
	doc := policyDoc{
		Version: "2012-10-17",
		Statement: []policyStatement{{
			Effect:    "Allow",
			Principal: map[string][]string{"AWS": {"*"}},
			Action:    []string{"s3:GetObject"},
			Resource:  []string{"arn:aws:s3:::" + bucket + "/*"},
		}},
	}
	b, _ := json.Marshal(doc)
	return string(b)
}

func allowsAnonymousRead(policy, bucket string) bool {
	if policy == "" {
		return false
	}
	var doc struct {
		Statement []struct {
			Effect    string          `json:"Effect"`
			Principal json.RawMessage `json:"Principal"`
			Action    json.RawMessage `json:"Action"`
			Resource  json.RawMessage `json:"Resource"`
		} `json:"Statement"`
	}
	if err := json.Unmarshal([]byte(policy), &doc); err != nil {
		return false
	}
	for _, st := range doc.Statement {
		if st.Effect == "Allow" &&
			strings.Contains(string(st.Principal), `"*"`) &&
			strings.Contains(string(st.Action), "s3:GetObject") &&
			strings.Contains(string(st.Resource), "arn:aws:s3:::"+bucket+"/*") {
			return true
		}
	}
	return false
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.StatusCode == http.StatusNotFound || resp.Code == "NoSuchKey"
}

func isNoPolicy(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchBucketPolicy"
}
