// Package config loads server settings from an optional YAML file and
// DEVDIARY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type AuthConfig struct {
	Password     string        `mapstructure:"password"`
	PasswordHash string        `mapstructure:"password_hash"`
	TokenSecret  string        `mapstructure:"token_secret"`
	TokenTTL     time.Duration `mapstructure:"token_ttl"`
	EnforceAPI   bool          `mapstructure:"enforce_api"`
}

type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	PublicURL string `mapstructure:"public_url"`
}

// Enabled reports whether a bucket and credentials are configured.
func (c S3Config) Enabled() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

type UploadConfig struct {
	Dir       string   `mapstructure:"dir"`
	URLPrefix string   `mapstructure:"url_prefix"`
	S3        S3Config `mapstructure:"s3"`
}

type BackupConfig struct {
	S3            S3Config      `mapstructure:"s3"`
	Passphrase    string        `mapstructure:"passphrase"`
	Interval      time.Duration `mapstructure:"interval"`
	RetentionDays int           `mapstructure:"retention_days"`
}

// Enabled reports whether scheduled backups can run.
func (c BackupConfig) Enabled() bool {
	return c.S3.Enabled() && c.Passphrase != ""
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Backup   BackupConfig   `mapstructure:"backup"`
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Server.Port
}

var defaults = map[string]any{
	"server.port":           "8080",
	"database.path":         "devdiary.db",
	"log.level":             "info",
	"log.format":            "text",
	"auth.password":         "",
	"auth.password_hash":    "",
	"auth.token_secret":     "",
	"auth.token_ttl":        "720h",
	"auth.enforce_api":      false,
	"upload.dir":            "public/uploads",
	"upload.url_prefix":     "/uploads",
	"upload.s3.endpoint":    "",
	"upload.s3.bucket":      "",
	"upload.s3.region":      "us-east-1",
	"upload.s3.access_key":  "",
	"upload.s3.secret_key":  "",
	"upload.s3.public_url":  "",
	"backup.s3.endpoint":    "",
	"backup.s3.bucket":      "",
	"backup.s3.region":      "us-east-1",
	"backup.s3.access_key":  "",
	"backup.s3.secret_key":  "",
	"backup.s3.public_url":  "",
	"backup.passphrase":     "",
	"backup.interval":       "24h",
	"backup.retention_days": 30,
}

// Load reads configuration. An empty path looks for devdiary.yaml in the
// working directory and tolerates its absence; an explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	if path == "" {
		v.SetConfigName("devdiary")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("DEVDIARY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) validate() error {
	if c.Server.Port == "" {
		return errors.New("server.port must not be empty")
	}
	if c.Database.Path == "" {
		return errors.New("database.path must not be empty")
	}
	if c.Backup.Interval < 0 {
		return errors.New("backup.interval must not be negative")
	}
	if c.Backup.RetentionDays < 0 {
		return errors.New("backup.retention_days must not be negative")
	}
	return nil
}
