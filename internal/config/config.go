package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all service configuration.
type Config struct {
	Environment string
	HTTP        HTTPConfig
	Database    DatabaseConfig
	Logger      LoggerConfig
	Catalog     CatalogConfig
	Security    SecurityConfig
	Media       MediaConfig
	Admin       AdminConfig
}

type HTTPConfig struct {
	Addr            string
	BaseURL         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	SecureCookies   bool
	TrustProxy      bool // read client addresses from X-Forwarded-For / X-Real-IP
}

type DatabaseConfig struct {
	Path string
}

type LoggerConfig struct {
	Level string
	Mode  string // console or json
	File  string // optional rotated log file
}

type CatalogConfig struct {
	Public         bool
	DefaultPerPage int
	FieldStore     bool // false disables custom field projection
}

type SecurityConfig struct {
	AutocompleteNonce      bool
	AutocompleteRatePerMin int
	NonceTTL               time.Duration
	SessionTTL             time.Duration
}

type MediaConfig struct {
	Driver    string // local or s3
	Dir       string
	URLPrefix string
	S3        S3Config
}

type S3Config struct {
	Bucket           string
	Region           string
	AccessKeyID      string
	SecretAccessKey  string
	CloudFrontDomain string
}

type AdminConfig struct {
	Username string
}

// Load reads configuration from an optional config.yaml (./config, ., /etc/assetlend,
// or the explicit file when path is non-empty) and ASSETLEND_* environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/assetlend/")
	}

	v.SetEnvPrefix("ASSETLEND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg := &Config{
		Environment: v.GetString("environment"),
		HTTP: HTTPConfig{
			Addr:            v.GetString("http.addr"),
			BaseURL:         strings.TrimSuffix(v.GetString("http.base_url"), "/"),
			ReadTimeout:     v.GetDuration("http.read_timeout"),
			WriteTimeout:    v.GetDuration("http.write_timeout"),
			IdleTimeout:     v.GetDuration("http.idle_timeout"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
			SecureCookies:   v.GetBool("http.secure_cookies"),
			TrustProxy:      v.GetBool("http.trust_proxy"),
		},
		Database: DatabaseConfig{
			Path: v.GetString("database.path"),
		},
		Logger: LoggerConfig{
			Level: v.GetString("logger.level"),
			Mode:  v.GetString("logger.mode"),
			File:  v.GetString("logger.file"),
		},
		Catalog: CatalogConfig{
			Public:         v.GetBool("catalog.public"),
			DefaultPerPage: v.GetInt("catalog.default_per_page"),
			FieldStore:     v.GetBool("catalog.field_store"),
		},
		Security: SecurityConfig{
			AutocompleteNonce:      v.GetBool("security.autocomplete_nonce"),
			AutocompleteRatePerMin: v.GetInt("security.autocomplete_rate_per_min"),
			NonceTTL:               v.GetDuration("security.nonce_ttl"),
			SessionTTL:             v.GetDuration("security.session_ttl"),
		},
		Media: MediaConfig{
			Driver:    v.GetString("media.driver"),
			Dir:       v.GetString("media.dir"),
			URLPrefix: strings.TrimSuffix(v.GetString("media.url_prefix"), "/"),
			S3: S3Config{
				Bucket:           v.GetString("media.s3.bucket"),
				Region:           v.GetString("media.s3.region"),
				AccessKeyID:      v.GetString("media.s3.access_key_id"),
				SecretAccessKey:  v.GetString("media.s3.secret_access_key"),
				CloudFrontDomain: v.GetString("media.s3.cloudfront_domain"),
			},
		},
		Admin: AdminConfig{
			Username: v.GetString("admin.username"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Environment {
	case "prod", "dev", "local":
	default:
		return fmt.Errorf("unknown environment %q", c.Environment)
	}
	switch c.Media.Driver {
	case "local":
	case "s3":
		if c.Media.S3.Bucket == "" || c.Media.S3.Region == "" {
			return errors.New("media.s3.bucket and media.s3.region are required for the s3 driver")
		}
	default:
		return fmt.Errorf("unknown media driver %q", c.Media.Driver)
	}
	if c.Catalog.DefaultPerPage <= 0 {
		return errors.New("catalog.default_per_page must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "dev")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.base_url", "")
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("http.secure_cookies", false)
	v.SetDefault("http.trust_proxy", false)

	v.SetDefault("database.path", "assetlend.db")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.mode", "console")
	v.SetDefault("logger.file", "")

	v.SetDefault("catalog.public", true)
	v.SetDefault("catalog.default_per_page", 20)
	v.SetDefault("catalog.field_store", true)

	v.SetDefault("security.autocomplete_nonce", true)
	v.SetDefault("security.autocomplete_rate_per_min", 60)
	v.SetDefault("security.nonce_ttl", 12*time.Hour)
	v.SetDefault("security.session_ttl", 7*24*time.Hour)

	v.SetDefault("media.driver", "local")
	v.SetDefault("media.dir", "media")
	v.SetDefault("media.url_prefix", "/media")
	v.SetDefault("media.s3.bucket", "")
	v.SetDefault("media.s3.region", "")
	v.SetDefault("media.s3.access_key_id", "")
	v.SetDefault("media.s3.secret_access_key", "")
	v.SetDefault("media.s3.cloudfront_domain", "")

	v.SetDefault("admin.username", "admin")
}
