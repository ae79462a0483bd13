package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	t.Parallel()
	cfg, err := parse(env.Options{Environment: map[string]string{"AUTH_JWT_KEY": "k"}})
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.HTTP.Addr)
	require.Equal(t, ":8443", cfg.GRPC.Addr)
	require.Equal(t, DriverMemory, cfg.StorageDriver)
	require.Equal(t, "images", cfg.S3.Bucket)
	require.Equal(t, 2*time.Second, cfg.Feed.ResolveTimeout)
	require.Equal(t, "@every 30m", cfg.Setup.Schedule)
	require.Equal(t, 5, cfg.Auth.MaxFails)
	require.Equal(t, []string{"http://localhost:8080"}, cfg.HTTP.AllowOrigins)
}

func TestParse_Overrides(t *testing.T) {
	t.Parallel()
	cfg, err := parse(env.Options{Environment: map[string]string{
		"AUTH_JWT_KEY":          "k",
		"STORAGE_DRIVER":        "minio",
		"S3_ENDPOINT":           "s3:9000",
		"FEED_RESOLVE_TIMEOUT":  "500ms",
		"HTTP_ALLOW_ORIGINS":    "http://a,http://b",
		"SETUP_SCHEDULE":        "@hourly",
		"AUTH_ACCESS_TTL":       "5m",
		"HTTP_MAX_UPLOAD_BYTES": "1024",
	}})
	require.NoError(t, err)
	require.Equal(t, DriverMinio, cfg.StorageDriver)
	require.Equal(t, "s3:9000", cfg.S3.Endpoint)
	require.Equal(t, 500*time.Millisecond, cfg.Feed.ResolveTimeout)
	require.Equal(t, []string{"http://a", "http://b"}, cfg.HTTP.AllowOrigins)
	require.Equal(t, "@hourly", cfg.Setup.Schedule)
	require.Equal(t, 5*time.Minute, cfg.Auth.AccessTTL)
	require.EqualValues(t, 1024, cfg.HTTP.MaxUploadBytes)
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()
	_, err := parse(env.Options{Environment: map[string]string{}})
	require.ErrorContains(t, err, "AUTH_JWT_KEY is required")

	_, err = parse(env.Options{Environment: map[string]string{"AUTH_JWT_KEY": "k", "STORAGE_DRIVER": "ftp"}})
	require.ErrorContains(t, err, `STORAGE_DRIVER "ftp"`)

	_, err = parse(env.Options{Environment: map[string]string{"AUTH_JWT_KEY": "k", "FEED_RESOLVE_TIMEOUT": "soon"}})
	require.ErrorContains(t, err, "read config")
}
