// Package config reads the process configuration from the environment
// (optionally seeded from a .env file) and validates it before anything
// else starts.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	AuditDetached = "detached"
	AuditSync     = "sync"

	StorageMinio  = "minio"
	StorageMemory = "memory"
)

var (
	validLogLevels    = []string{"debug", "info", "warn", "error", "fatal"}
	validAuditModes   = []string{AuditDetached, AuditSync}
	validStorageTypes = []string{StorageMinio, StorageMemory}

	requiredKeys = []string{
		"DATABASE_CONNECTION_STRING",
		"ACCESS_JWT_SECRET_KEY",
		"ACCESS_JWT_EXPIRATION_TIME",
		"REFRESH_JWT_SECRET_KEY",
		"REFRESH_JWT_EXPIRATION_TIME",
	}
)

type Config struct {
	Port         int
	DatabaseURI  string
	DatabaseName string
	LogLevel     string
	DefaultPlan  string
	JWT          JWT
	Audit        Audit
	Storage      Storage
	TLS          TLS
}

// JWT carries the signing parameters of both session tokens.
type JWT struct {
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
}

type Audit struct {
	Mode    string
	Workers int
}

type Storage struct {
	Type      string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type TLS struct {
	CertFile string
	KeyFile  string
}

// Enabled reports whether the server should listen with TLS.
func (t TLS) Enabled() bool {
	return t.CertFile != "" && t.KeyFile != ""
}

// Load reads .env (when present) and the environment.
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		zap.L().Debug("No .env file loaded, using environment variables", zap.Error(err))
	}

	v := viper.New()
	v.AutomaticEnv()

	return FromViper(v)
}

// FromViper builds the configuration from v, applying defaults and failing
// on anything missing or malformed.
func FromViper(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	for _, key := range requiredKeys {
		if strings.TrimSpace(v.GetString(key)) == "" {
			return nil, fmt.Errorf("please provide %q in the environment", key)
		}
	}

	accessTTL, err := ParseExpiry(v.GetString("ACCESS_JWT_EXPIRATION_TIME"))
	if err != nil {
		return nil, fmt.Errorf("ACCESS_JWT_EXPIRATION_TIME: %w", err)
	}
	refreshTTL, err := ParseExpiry(v.GetString("REFRESH_JWT_EXPIRATION_TIME"))
	if err != nil {
		return nil, fmt.Errorf("REFRESH_JWT_EXPIRATION_TIME: %w", err)
	}

	cfg := &Config{
		Port:         v.GetInt("PORT"),
		DatabaseURI:  v.GetString("DATABASE_CONNECTION_STRING"),
		DatabaseName: v.GetString("DATABASE_NAME"),
		LogLevel:     strings.ToLower(v.GetString("LOG_LEVEL")),
		DefaultPlan:  v.GetString("DEFAULT_PLAN"),
		JWT: JWT{
			AccessSecret:  v.GetString("ACCESS_JWT_SECRET_KEY"),
			AccessTTL:     accessTTL,
			RefreshSecret: v.GetString("REFRESH_JWT_SECRET_KEY"),
			RefreshTTL:    refreshTTL,
		},
		Audit: Audit{
			Mode:    strings.ToLower(v.GetString("AUDIT_MODE")),
			Workers: v.GetInt("AUDIT_WORKERS"),
		},
		Storage: Storage{
			Type:      strings.ToLower(v.GetString("STORAGE_TYPE")),
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: v.GetString("MINIO_SECRET_KEY"),
			Bucket:    v.GetString("MINIO_BUCKET"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
		},
		TLS: TLS{
			CertFile: v.GetString("TLS_CERT_FILE"),
			KeyFile:  v.GetString("TLS_KEY_FILE"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", 8080)
	v.SetDefault("DATABASE_NAME", "open_drive")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DEFAULT_PLAN", "free")
	v.SetDefault("AUDIT_MODE", AuditDetached)
	v.SetDefault("AUDIT_WORKERS", 4)
	v.SetDefault("STORAGE_TYPE", StorageMinio)
	v.SetDefault("MINIO_ENDPOINT", "localhost:9000")
	v.SetDefault("MINIO_ACCESS_KEY", "minioadmin")
	v.SetDefault("MINIO_SECRET_KEY", "minioadmin")
	v.SetDefault("MINIO_BUCKET", "open-drive")
	v.SetDefault("MINIO_USE_SSL", false)
}

func (c *Config) validate() error {
	if c.Port <= 0 {
		return errors.New("invalid port provided")
	}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return errors.New("invalid log level provided")
	}
	if !slices.Contains(validAuditModes, c.Audit.Mode) {
		return fmt.Errorf("AUDIT_MODE must be one of %v", validAuditModes)
	}
	if c.Audit.Workers <= 0 {
		return errors.New("AUDIT_WORKERS must be bigger than 0")
	}
	if !slices.Contains(validStorageTypes, c.Storage.Type) {
		return errors.New("invalid storage type provided")
	}
	if c.Storage.Bucket == "" {
		return errors.New("bucket can't be empty")
	}
	if (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
		return errors.New("TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}
	return nil
}

// ParseExpiry accepts Go durations ("15m", "1h30m"), whole days ("7d") and
// bare numbers, which are read as seconds.
func ParseExpiry(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty expiration time")
	}

	var d time.Duration
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		d = time.Duration(n) * time.Second
	} else if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.ParseInt(days, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid expiration time %q", s)
		}
		d = time.Duration(n) * 24 * time.Hour
	} else {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("invalid expiration time %q", s)
		}
		d = parsed
	}

	if d <= 0 {
		return 0, fmt.Errorf("expiration time %q must be positive", s)
	}
	return d, nil
}
