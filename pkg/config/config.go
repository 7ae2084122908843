package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSecret is the hard-coded fallback used when no operator secret
// is configured. Deployments are expected to override it; the startup
// banner warns loudly when they do not.
const DefaultSecret = "return-portal-dev-secret"

const (
	defaultCookieName = "rp_session"
	defaultBlobName   = "portal-log"
	defaultMaxMessage = 2000
	defaultCookieAge  = 12 * time.Hour
	defaultNotifyTime = 5 * time.Second
)

// ParseCommandFlags parses the server command-line flags and returns the
// raw values plus a set of flags the user explicitly provided. Explicit
// flags win over file and environment values.
func ParseCommandFlags() (addr, dbPath, cfgPath string, set map[string]bool) {
	addrFlag := flag.String("addr", "", "listen address (host:port)")
	dbFlag := flag.String("db", "", "pebble database path")
	cfgFlag := flag.String("config", "", "path to YAML config file")
	flag.Parse()
	set = map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return *addrFlag, *dbFlag, *cfgFlag, set
}

// ResolveConfigPath picks the config file path: an explicit flag wins,
// then QUIETPOST_CONFIG, then ./quietpost.yaml when it exists.
func ResolveConfigPath(flagVal string, flagSet bool) string {
	if flagSet && flagVal != "" {
		return flagVal
	}
	if p := strings.TrimSpace(os.Getenv("QUIETPOST_CONFIG")); p != "" {
		return p
	}
	if _, err := os.Stat("quietpost.yaml"); err == nil {
		return "quietpost.yaml"
	}
	return ""
}

// Load reads the YAML config at path, applies environment overrides and
// fills defaults. An empty path yields a config built from environment
// and defaults alone.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

// applyEnv overlays QUIETPOST_* environment variables on the config.
// Precedence is flags > env > file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("QUIETPOST_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("QUIETPOST_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("QUIETPOST_SECRET"); v != "" {
		cfg.Security.Secret = v
	}
	if v := os.Getenv("QUIETPOST_DB_PATH"); v != "" {
		cfg.Storage.DBPath = v
	}
	if v := os.Getenv("QUIETPOST_STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("QUIETPOST_BLOB_NAME"); v != "" {
		cfg.Storage.BlobName = v
	}
	if v := os.Getenv("QUIETPOST_WEBHOOK_URL"); v != "" {
		cfg.Notify.WebhookURL = v
	}
	if v := os.Getenv("QUIETPOST_S3_BUCKET"); v != "" {
		cfg.Storage.S3.Bucket = v
	}
	if v := os.Getenv("QUIETPOST_S3_REGION"); v != "" {
		cfg.Storage.S3.Region = v
	}
	if v := os.Getenv("QUIETPOST_S3_ENDPOINT"); v != "" {
		cfg.Storage.S3.Endpoint = v
	}
	if v := os.Getenv("QUIETPOST_S3_ACCESS_KEY"); v != "" {
		cfg.Storage.S3.AccessKey = v
	}
	if v := os.Getenv("QUIETPOST_S3_SECRET_KEY"); v != "" {
		cfg.Storage.S3.SecretKey = v
	}
	if v := os.Getenv("QUIETPOST_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "pebble"
	}
	if cfg.Storage.DBPath == "" {
		cfg.Storage.DBPath = "./data"
	}
	if cfg.Storage.BlobName == "" {
		cfg.Storage.BlobName = defaultBlobName
	}
	if cfg.Security.Secret == "" {
		cfg.Security.Secret = DefaultSecret
	}
	if cfg.Security.Cookie.Name == "" {
		cfg.Security.Cookie.Name = defaultCookieName
	}
	if cfg.Security.Cookie.MaxAge == 0 {
		cfg.Security.Cookie.MaxAge = Duration(defaultCookieAge)
	}
	if cfg.Security.MaxMessageBytes == 0 {
		cfg.Security.MaxMessageBytes = defaultMaxMessage
	}
	if cfg.Security.RateLimit.RPS == 0 {
		cfg.Security.RateLimit.RPS = 5
	}
	if cfg.Security.RateLimit.Burst == 0 {
		cfg.Security.RateLimit.Burst = 10
	}
	if cfg.Notify.Timeout == 0 {
		cfg.Notify.Timeout = Duration(defaultNotifyTime)
	}
}
