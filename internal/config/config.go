package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// envPrefix is prepended to every environment variable name.
const envPrefix = "WEDPLAN_"

// S3Config is the object storage used for backups.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// BackupConfig controls scheduled backups.
type BackupConfig struct {
	S3            S3Config `yaml:"s3"`
	Passphrase    string   `yaml:"passphrase"`
	Cron          string   `yaml:"cron"`
	RetentionDays int      `yaml:"retention_days"`
}

// PushConfig holds the VAPID key pair.
type PushConfig struct {
	VAPIDPublicKey  string `yaml:"vapid_public_key"`
	VAPIDPrivateKey string `yaml:"vapid_private_key"`
	Subject         string `yaml:"vapid_subject"`
}

// Config is the application configuration.
type Config struct {
	Port      string `yaml:"port"`
	DBPath    string `yaml:"db_path"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Timezone is the IANA zone reminders are scheduled in.
	Timezone   string `yaml:"timezone"`
	NotifyHour int    `yaml:"notify_hour"`

	// CatalogPath replaces the built-in milestone catalog when set.
	CatalogPath string `yaml:"catalog_path"`

	KakaoAPIKey string `yaml:"kakao_api_key"`
	// SearchRPS caps outbound vendor search calls per second.
	SearchRPS int `yaml:"search_rps"`
	// SearchPerMinute is the per-client limit on the search routes.
	SearchPerMinute int `yaml:"search_per_minute"`

	// WSOrigins are host patterns allowed to open /ws. Empty allows any origin.
	WSOrigins []string `yaml:"ws_origins"`

	Push   PushConfig   `yaml:"push"`
	Backup BackupConfig `yaml:"backup"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:            "8080",
		DBPath:          "wedplan.db",
		LogLevel:        "info",
		LogFormat:       "text",
		Timezone:        "Asia/Seoul",
		NotifyHour:      9,
		SearchRPS:       5,
		SearchPerMinute: 30,
		Push: PushConfig{
			Subject: "mailto:admin@wedplan.local",
		},
		Backup: BackupConfig{
			Cron:          "0 3 * * *",
			RetentionDays: 30,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// WEDPLAN_CONFIG if set, then WEDPLAN_* environment variables.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv(envPrefix + "CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"PORT":              &c.Port,
		"DB_PATH":           &c.DBPath,
		"LOG_LEVEL":         &c.LogLevel,
		"LOG_FORMAT":        &c.LogFormat,
		"TIMEZONE":          &c.Timezone,
		"CATALOG_PATH":      &c.CatalogPath,
		"KAKAO_API_KEY":     &c.KakaoAPIKey,
		"VAPID_PUBLIC_KEY":  &c.Push.VAPIDPublicKey,
		"VAPID_PRIVATE_KEY": &c.Push.VAPIDPrivateKey,
		"VAPID_SUBJECT":     &c.Push.Subject,
		"S3_ENDPOINT":       &c.Backup.S3.Endpoint,
		"S3_BUCKET":         &c.Backup.S3.Bucket,
		"S3_REGION":         &c.Backup.S3.Region,
		"S3_ACCESS_KEY":     &c.Backup.S3.AccessKey,
		"S3_SECRET_KEY":     &c.Backup.S3.SecretKey,
		"BACKUP_PASSPHRASE": &c.Backup.Passphrase,
		"BACKUP_CRON":       &c.Backup.Cron,
	}
	for name, dst := range strs {
		if v, ok := lookup(envPrefix + name); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"NOTIFY_HOUR":           &c.NotifyHour,
		"SEARCH_RPS":            &c.SearchRPS,
		"SEARCH_PER_MINUTE":     &c.SearchPerMinute,
		"BACKUP_RETENTION_DAYS": &c.Backup.RetentionDays,
	}
	for name, dst := range ints {
		v, ok := lookup(envPrefix + name)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("parse %s%s: %w", envPrefix, name, err)
		}
		*dst = n
	}

	if v, ok := lookup(envPrefix + "WS_ORIGINS"); ok {
		c.WSOrigins = splitList(v)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks values that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if c.NotifyHour < 0 || c.NotifyHour > 23 {
		errs = append(errs, fmt.Errorf("notify_hour %d not in 0..23", c.NotifyHour))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone %q: %w", c.Timezone, err))
	}
	if c.SearchRPS < 0 || c.SearchPerMinute < 0 {
		errs = append(errs, errors.New("search limits must not be negative"))
	}
	if c.Backup.Cron != "" {
		if _, err := cron.ParseStandard(c.Backup.Cron); err != nil {
			errs = append(errs, fmt.Errorf("backup cron %q: %w", c.Backup.Cron, err))
		}
	}
	if c.Backup.RetentionDays < 0 {
		errs = append(errs, errors.New("backup retention_days must not be negative"))
	}
	if (c.Push.VAPIDPublicKey == "") != (c.Push.VAPIDPrivateKey == "") {
		errs = append(errs, errors.New("vapid keys must be set together"))
	}
	return errors.Join(errs...)
}

// Location returns the configured time zone. Call Validate first.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
