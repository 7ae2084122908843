package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Config is the main configuration struct.
type Config struct {
	Server     ServerConfig   `yaml:"server"`
	Storage    StorageConfig  `yaml:"storage"`
	Security   SecurityConfig `yaml:"security"`
	Principals []Principal    `yaml:"principals"`
	Notify     NotifyConfig   `yaml:"notify"`
	Logging    LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds http and tls settings.
type ServerConfig struct {
	Address string    `yaml:"address"`
	Port    int       `yaml:"port"`
	TLS     TLSConfig `yaml:"tls"`
}

// Addr returns the listen address in host:port form.
func (c *Config) Addr() string {
	host := c.Server.Address
	port := c.Server.Port
	if port == 0 {
		port = 8080
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// TLSConfig holds TLS certificate configuration.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// StorageConfig selects and configures the blob backend holding the
// shared message log.
type StorageConfig struct {
	Backend  string   `yaml:"backend"` // pebble | s3 | memory
	DBPath   string   `yaml:"db_path"`
	BlobName string   `yaml:"blob_name"`
	S3       S3Config `yaml:"s3"`
}

// S3Config holds object-store credentials and addressing. Endpoint is
// optional and enables MinIO-style deployments.
type S3Config struct {
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// SecurityConfig holds the operator secret, cookie contract and message
// validation bounds.
type SecurityConfig struct {
	Secret          string       `yaml:"secret"`
	Cookie          CookieConfig `yaml:"cookie"`
	MaxMessageBytes SizeBytes    `yaml:"max_message_bytes"`
	RateLimit       struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`
}

// CookieConfig describes the session cookie issued on login. MaxAge is
// advisory only; token validity is not checked server-side.
type CookieConfig struct {
	Name   string   `yaml:"name"`
	MaxAge Duration `yaml:"max_age"`
}

// Principal is one entry of the static credential table: two knowledge
// factors mapped to an identity and a single capability.
type Principal struct {
	OrderRef  string `yaml:"order_ref"`
	ZipRef    string `yaml:"zip_ref"`
	SubjectID string `yaml:"subject_id"`
	CanClear  bool   `yaml:"can_clear"`
}

// NotifyConfig configures the best-effort outbound webhook.
type NotifyConfig struct {
	WebhookURL string   `yaml:"webhook_url"`
	Timeout    Duration `yaml:"timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// SizeBytes represents a number of bytes, unmarshaled from human-friendly
// strings like "2KB" or plain integers.
type SizeBytes int64

func (s *SizeBytes) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*s = 0
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*s = 0
		return nil
	}
	if v, err := humanize.ParseBytes(raw); err == nil {
		*s = SizeBytes(v)
		return nil
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*s = SizeBytes(i)
		return nil
	}
	return fmt.Errorf("invalid size value: %q", node.Value)
}

func (s SizeBytes) Int64() int64 { return int64(s) }

// Duration is a wrapper around time.Duration that supports YAML parsing
// from strings like "12h" or plain numbers (interpreted as seconds).
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*d = Duration(0)
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*d = Duration(0)
		return nil
	}
	if td, err := time.ParseDuration(raw); err == nil {
		*d = Duration(td)
		return nil
	}
	// allow numeric seconds
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		*d = Duration(time.Duration(f * float64(time.Second)))
		return nil
	}
	return fmt.Errorf("invalid duration value: %q", node.Value)
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }
