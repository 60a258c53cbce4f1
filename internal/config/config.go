// Package config loads and validates server config from the environment and an
// optional config file using Viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment key, e.g. CLIPSYNC_GRPC_ADDR.
const EnvPrefix = "CLIPSYNC"

// Blob backends.
const (
	BlobLocal = "local"
	BlobS3    = "s3"
	BlobNone  = "none"
)

// Config holds server configuration.
type Config struct {
	// GRPCAddr is the address the gRPC server listens on.
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// HTTPAddr is the address of the REST/websocket gateway; empty disables it.
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN; empty selects the in-memory store.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// TLSCert and TLSKey enable TLS on both listeners when both are set.
	TLSCert string `mapstructure:"TLS_CERT"`
	TLSKey  string `mapstructure:"TLS_KEY"`

	MaxContentChars    int   `mapstructure:"MAX_CONTENT_CHARS"`
	MaxAttachmentBytes int64 `mapstructure:"MAX_ATTACHMENT_BYTES"`
	CodeLength         int   `mapstructure:"CODE_LENGTH"`
	CodeAttempts       int   `mapstructure:"CODE_ATTEMPTS"`
	SubscriberBuffer   int   `mapstructure:"SUBSCRIBER_BUFFER"`

	// BlobBackend is one of local, s3 or none.
	BlobBackend   string `mapstructure:"BLOB_BACKEND"`
	BlobDir       string `mapstructure:"BLOB_DIR"`
	BlobPublicURL string `mapstructure:"BLOB_PUBLIC_URL"`
	S3Bucket      string `mapstructure:"S3_BUCKET"`
	S3Region      string `mapstructure:"S3_REGION"`
	S3Endpoint    string `mapstructure:"S3_ENDPOINT"`
	S3AccessKey   string `mapstructure:"S3_ACCESS_KEY"`
	S3SecretKey   string `mapstructure:"S3_SECRET_KEY"`

	// Failed joins per client address within JoinWindow before a JoinBlockFor lockout.
	JoinWindow   time.Duration `mapstructure:"JOIN_WINDOW"`
	JoinMaxFails int           `mapstructure:"JOIN_MAX_FAILS"`
	JoinBlockFor time.Duration `mapstructure:"JOIN_BLOCK_FOR"`
	// IPHashKey keys the client address hash; at most 64 bytes.
	IPHashKey string `mapstructure:"IP_HASH_KEY"`

	// WSAnyOrigin accepts websocket upgrades from any origin.
	WSAnyOrigin     bool          `mapstructure:"WS_ANY_ORIGIN"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
	// Dev enables development logging and gRPC reflection.
	Dev bool `mapstructure:"DEV"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("GRPC_ADDR", ":8443")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("TLS_CERT", "")
	v.SetDefault("TLS_KEY", "")
	v.SetDefault("MAX_CONTENT_CHARS", 15000)
	v.SetDefault("MAX_ATTACHMENT_BYTES", 10<<20)
	v.SetDefault("CODE_LENGTH", 5)
	v.SetDefault("CODE_ATTEMPTS", 5)
	v.SetDefault("SUBSCRIBER_BUFFER", 64)
	v.SetDefault("BLOB_BACKEND", BlobLocal)
	v.SetDefault("BLOB_DIR", "./data/blobs")
	v.SetDefault("BLOB_PUBLIC_URL", "")
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_ACCESS_KEY", "")
	v.SetDefault("S3_SECRET_KEY", "")
	v.SetDefault("JOIN_WINDOW", "15m")
	v.SetDefault("JOIN_MAX_FAILS", 20)
	v.SetDefault("JOIN_BLOCK_FOR", "15m")
	v.SetDefault("IP_HASH_KEY", "")
	v.SetDefault("WS_ANY_ORIGIN", false)
	v.SetDefault("SHUTDOWN_TIMEOUT", "5s")
	v.SetDefault("DEV", false)
}

// Load builds Config from defaults, then the config file (path, or ./.env when
// path is empty and the file exists), then CLIPSYNC_* environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	defaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else {
		v.SetConfigFile(".env")
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil && !missingFile(err) {
			return nil, fmt.Errorf("config: read .env: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.fill()
	return &cfg, nil
}

func missingFile(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return errors.As(err, &nf) || errors.Is(err, fs.ErrNotExist)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.GRPCAddr == "" {
		return errors.New("config: GRPC_ADDR must be set")
	}
	if (c.TLSCert == "") != (c.TLSKey == "") {
		return errors.New("config: TLS_CERT and TLS_KEY must be set together")
	}
	if c.MaxContentChars <= 0 {
		return errors.New("config: MAX_CONTENT_CHARS must be positive")
	}
	if c.MaxAttachmentBytes <= 0 {
		return errors.New("config: MAX_ATTACHMENT_BYTES must be positive")
	}
	if c.CodeLength < 4 || c.CodeLength > 16 {
		return errors.New("config: CODE_LENGTH must be between 4 and 16")
	}
	if c.CodeAttempts <= 0 {
		return errors.New("config: CODE_ATTEMPTS must be positive")
	}
	if len(c.IPHashKey) > 64 {
		return errors.New("config: IP_HASH_KEY must be at most 64 bytes")
	}
	if c.JoinMaxFails < 0 {
		return errors.New("config: JOIN_MAX_FAILS must not be negative")
	}
	switch c.BlobBackend {
	case BlobLocal:
		if c.BlobDir == "" {
			return errors.New("config: BLOB_DIR must be set for the local blob backend")
		}
	case BlobS3:
		if c.S3Bucket == "" {
			return errors.New("config: S3_BUCKET must be set for the s3 blob backend")
		}
	case BlobNone:
	default:
		return fmt.Errorf("config: unknown BLOB_BACKEND %q", c.BlobBackend)
	}
	return nil
}

// fill derives settings that default from others.
func (c *Config) fill() {
	if c.BlobBackend == BlobLocal && c.BlobPublicURL == "" {
		scheme := "http"
		if c.TLSEnabled() {
			scheme = "https"
		}
		host := "localhost"
		port := "8080"
		if h, p, err := net.SplitHostPort(c.HTTPAddr); err == nil {
			if h != "" && h != "0.0.0.0" && h != "::" {
				host = h
			}
			port = p
		}
		c.BlobPublicURL = fmt.Sprintf("%s://%s/files/", scheme, net.JoinHostPort(host, port))
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
}

// TLSEnabled reports whether both listeners should serve TLS.
func (c *Config) TLSEnabled() bool { return c.TLSCert != "" && c.TLSKey != "" }

// MemoryStore reports whether no database is configured.
func (c *Config) MemoryStore() bool { return strings.TrimSpace(c.DatabaseURL) == "" }

// JoinLimitEnabled reports whether join throttling is on.
func (c *Config) JoinLimitEnabled() bool { return c.JoinMaxFails > 0 }
