package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, ":8443", cfg.GRPCAddr)
	require.Equal(t, ":8080", cfg.HTTPAddr)
	require.True(t, cfg.MemoryStore())
	require.False(t, cfg.TLSEnabled())
	require.Equal(t, 15000, cfg.MaxContentChars)
	require.Equal(t, int64(10<<20), cfg.MaxAttachmentBytes)
	require.Equal(t, 5, cfg.CodeLength)
	require.Equal(t, 64, cfg.SubscriberBuffer)
	require.Equal(t, BlobLocal, cfg.BlobBackend)
	require.Equal(t, "http://localhost:8080/files/", cfg.BlobPublicURL)
	require.Equal(t, 15*time.Minute, cfg.JoinWindow)
	require.Equal(t, 20, cfg.JoinMaxFails)
	require.True(t, cfg.JoinLimitEnabled())
	require.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CLIPSYNC_GRPC_ADDR", ":9090")
	t.Setenv("CLIPSYNC_MAX_CONTENT_CHARS", "100")
	t.Setenv("CLIPSYNC_JOIN_BLOCK_FOR", "1h")
	t.Setenv("CLIPSYNC_BLOB_BACKEND", "s3")
	t.Setenv("CLIPSYNC_S3_BUCKET", "clips")
	t.Setenv("CLIPSYNC_DEV", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.GRPCAddr)
	require.Equal(t, 100, cfg.MaxContentChars)
	require.Equal(t, time.Hour, cfg.JoinBlockFor)
	require.Equal(t, BlobS3, cfg.BlobBackend)
	require.Equal(t, "clips", cfg.S3Bucket)
	require.Empty(t, cfg.BlobPublicURL)
	require.True(t, cfg.Dev)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("HTTP_ADDR=127.0.0.1:7070\nCODE_LENGTH=6\n"), 0o600))
	t.Setenv("CLIPSYNC_CODE_LENGTH", "7")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:7070", cfg.HTTPAddr)
	require.Equal(t, "http://127.0.0.1:7070/files/", cfg.BlobPublicURL)
	require.Equal(t, 7, cfg.CodeLength, "environment wins over the file")
}

func TestLoad_NoDotEnvIsFine(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := Load("")
	require.NoError(t, err)
}

func TestLoad_UnreadableDotEnvFails(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".env"), 0o700))

	_, err := Load("")
	require.Error(t, err)
	require.Contains(t, err.Error(), ".env")
}

func TestLoad_ExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte("GRPC_ADDR: \":7443\"\nBLOB_BACKEND: none\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":7443", cfg.GRPCAddr)
	require.Equal(t, BlobNone, cfg.BlobBackend)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	base, err := Load("")
	require.NoError(t, err)

	cases := map[string]func(c *Config){
		"empty grpc addr":   func(c *Config) { c.GRPCAddr = "" },
		"half tls":          func(c *Config) { c.TLSCert = "cert.pem" },
		"zero chars":        func(c *Config) { c.MaxContentChars = 0 },
		"zero attachment":   func(c *Config) { c.MaxAttachmentBytes = 0 },
		"short code":        func(c *Config) { c.CodeLength = 3 },
		"no attempts":       func(c *Config) { c.CodeAttempts = 0 },
		"long hash key":     func(c *Config) { c.IPHashKey = string(make([]byte, 65)) },
		"negative fails":    func(c *Config) { c.JoinMaxFails = -1 },
		"local without dir": func(c *Config) { c.BlobDir = "" },
		"s3 without bucket": func(c *Config) { c.BlobBackend = BlobS3 },
		"unknown backend":   func(c *Config) { c.BlobBackend = "ftp" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := *base
			mutate(&c)
			require.Error(t, c.Validate())
		})
	}
	require.NoError(t, base.Validate())
}
