package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	DefaultAPIURL     = "http://127.0.0.1:7380"
	DefaultListenAddr = "127.0.0.1:7380"
	DefaultDBFileName = ".weblogd.db"
	DefaultLogLevel   = "info"
	DefaultSiteName   = "weblogd"
	DefaultTimeZone   = "UTC"

	DefaultMaxTitleLength = 100
	DefaultSummaryLength  = 300

	DefaultAttachmentMaxUploadBytes int64 = 32 * 1024 * 1024
	DefaultAttachmentTempTTL              = 24 * time.Hour
	DefaultUploadSessionTTL               = 2 * time.Hour

	DefaultMaintenanceSchedule = "@every 1h"

	DefaultAuthMaxFailures   = 5
	DefaultAuthFailureWindow = 5 * time.Minute
	DefaultAuthBlockDuration = 5 * time.Minute

	BlobBackendLocal = "local"
	BlobBackendMinIO = "minio"

	UploadBackendMemory = "memory"
	UploadBackendRedis  = "redis"

	configFileName           = ".weblogd.toml"
	configDirEnvKey          = "WEBLOGD_CONFIG_DIR"
	trustProjectConfigEnvKey = "WEBLOGD_TRUST_PROJECT_CONFIG"
)

// PostConfig controls how incoming posts are translated.
type PostConfig struct {
	MaxTitleLength  int  `toml:"max_title_length"`
	GenerateSummary bool `toml:"generate_summary"`
	SummaryLength   int  `toml:"summary_length"`
}

// AttachmentConfig defines runtime configuration for media objects.
type AttachmentConfig struct {
	DeleteUnused   bool     `toml:"delete_unused"`
	MaxUploadBytes int64    `toml:"max_upload_bytes"`
	BlobBackend    string   `toml:"blob_backend"`
	BlobDir        string   `toml:"blob_dir"`
	TempTTL        Duration `toml:"temp_ttl"`
}

// MinIOConfig configures the S3-compatible blob backend.
type MinIOConfig struct {
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Bucket    string `toml:"bucket"`
	UseSSL    bool   `toml:"use_ssl"`
}

// UploadConfig selects where per-blog upload sessions live.
type UploadConfig struct {
	Backend    string   `toml:"backend"`
	SessionTTL Duration `toml:"session_ttl"`
}

// RedisConfig configures the shared upload session registry.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// MaintenanceConfig configures background cleanup.
type MaintenanceConfig struct {
	Schedule string `toml:"schedule"`
}

// AuthConfig configures failed-login throttling.
type AuthConfig struct {
	MaxFailures   int      `toml:"max_failures"`
	FailureWindow Duration `toml:"failure_window"`
	BlockDuration Duration `toml:"block_duration"`
}

// Config defines runtime configuration for weblogd.
type Config struct {
	APIURL                   string            `toml:"api_url"`
	ListenAddr               string            `toml:"listen_addr"`
	PublicURL                string            `toml:"public_url"`
	DBPath                   string            `toml:"db_path"`
	LogLevel                 string            `toml:"log_level"`
	SiteName                 string            `toml:"site_name"`
	ServerTimeZone           string            `toml:"server_time_zone"`
	Posts                    PostConfig        `toml:"posts"`
	Attachments              AttachmentConfig  `toml:"attachments"`
	MinIO                    MinIOConfig       `toml:"minio"`
	Uploads                  UploadConfig      `toml:"uploads"`
	Redis                    RedisConfig       `toml:"redis"`
	Maintenance              MaintenanceConfig `toml:"maintenance"`
	Auth                     AuthConfig        `toml:"auth"`
	TrustedProjectConfigPath string            `toml:"-"`
}

// Duration is a time.Duration that reads TOML strings like "90m".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		APIURL:         DefaultAPIURL,
		ListenAddr:     DefaultListenAddr,
		DBPath:         "",
		LogLevel:       DefaultLogLevel,
		SiteName:       DefaultSiteName,
		ServerTimeZone: DefaultTimeZone,
		Posts: PostConfig{
			MaxTitleLength:  DefaultMaxTitleLength,
			GenerateSummary: false,
			SummaryLength:   DefaultSummaryLength,
		},
		Attachments: AttachmentConfig{
			DeleteUnused:   true,
			MaxUploadBytes: DefaultAttachmentMaxUploadBytes,
			BlobBackend:    BlobBackendLocal,
			TempTTL:        Duration{DefaultAttachmentTempTTL},
		},
		MinIO: MinIOConfig{
			Bucket: "weblogd",
		},
		Uploads: UploadConfig{
			Backend:    UploadBackendMemory,
			SessionTTL: Duration{DefaultUploadSessionTTL},
		},
		Redis: RedisConfig{
			Addr: "127.0.0.1:6379",
		},
		Maintenance: MaintenanceConfig{
			Schedule: DefaultMaintenanceSchedule,
		},
		Auth: AuthConfig{
			MaxFailures:   DefaultAuthMaxFailures,
			FailureWindow: Duration{DefaultAuthFailureWindow},
			BlockDuration: Duration{DefaultAuthBlockDuration},
		},
	}
}

// Validate checks the loaded configuration for values the server cannot run with.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.ListenAddr, validation.Required),
		validation.Field(&c.DBPath, validation.Required),
		validation.Field(&c.PublicURL, validation.By(rootURL)),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "warning", "error")),
	); err != nil {
		return err
	}
	if _, err := time.LoadLocation(c.ServerTimeZone); err != nil {
		return fmt.Errorf("server_time_zone: %w", err)
	}
	if err := validation.ValidateStruct(&c.Posts,
		validation.Field(&c.Posts.MaxTitleLength, validation.Required, validation.Min(4)),
		validation.Field(&c.Posts.SummaryLength, validation.Min(0)),
	); err != nil {
		return fmt.Errorf("posts: %w", err)
	}
	if err := validation.ValidateStruct(&c.Attachments,
		validation.Field(&c.Attachments.BlobBackend, validation.In(BlobBackendLocal, BlobBackendMinIO)),
		validation.Field(&c.Attachments.MaxUploadBytes, validation.Min(int64(1))),
	); err != nil {
		return fmt.Errorf("attachments: %w", err)
	}
	if c.Attachments.BlobBackend == BlobBackendMinIO {
		if err := validation.ValidateStruct(&c.MinIO,
			validation.Field(&c.MinIO.Endpoint, validation.Required),
			validation.Field(&c.MinIO.Bucket, validation.Required, validation.Length(3, 63)),
		); err != nil {
			return fmt.Errorf("minio: %w", err)
		}
	}
	if err := validation.ValidateStruct(&c.Uploads,
		validation.Field(&c.Uploads.Backend, validation.In(UploadBackendMemory, UploadBackendRedis)),
	); err != nil {
		return fmt.Errorf("uploads: %w", err)
	}
	if c.Uploads.Backend == UploadBackendRedis {
		if err := validation.ValidateStruct(&c.Redis,
			validation.Field(&c.Redis.Addr, validation.Required),
		); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// rootURL accepts an absolute http(s) URL without a path. Handlers are mounted
// at the root; a proxy serving under a prefix must strip it.
func rootURL(value any) error {
	raw, _ := value.(string)
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("must be an absolute http or https URL")
	}
	if strings.Trim(u.Path, "/") != "" || u.RawQuery != "" || u.Fragment != "" {
		return errors.New("must not have a path, query or fragment")
	}
	return nil
}

// Location returns the server time zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ServerTimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// BaseURL returns the externally visible site URL without a trailing slash.
func (c *Config) BaseURL() string {
	if base := strings.TrimRight(strings.TrimSpace(c.PublicURL), "/"); base != "" {
		return base
	}
	return strings.TrimRight(c.APIURL, "/")
}

func loadFile(path string, cfg *Config) error {
	_, err := loadFileIfExists(path, cfg)
	return err
}

func loadFileIfExists(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return true, nil
}

func overrideConfigPath() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, configFileName), true
}

func trustProjectConfig() bool {
	raw := strings.TrimSpace(os.Getenv(trustProjectConfigEnvKey))
	if raw == "" {
		return false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return value
}

var allowedKeys = []string{
	"api_url",
	"listen_addr",
	"public_url",
	"db_path",
	"log_level",
	"site_name",
	"server_time_zone",
	"posts.max_title_length",
	"posts.generate_summary",
	"posts.summary_length",
	"attachments.delete_unused",
	"attachments.max_upload_bytes",
	"attachments.blob_backend",
	"attachments.blob_dir",
	"attachments.temp_ttl",
	"minio.endpoint",
	"minio.access_key",
	"minio.secret_key",
	"minio.bucket",
	"minio.use_ssl",
	"uploads.backend",
	"uploads.session_ttl",
	"redis.addr",
	"redis.password",
	"redis.db",
	"maintenance.schedule",
	"auth.max_failures",
	"auth.failure_window",
	"auth.block_duration",
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "api_url":
		return c.APIURL, nil
	case "listen_addr":
		return c.ListenAddr, nil
	case "public_url":
		return c.PublicURL, nil
	case "db_path":
		return c.DBPath, nil
	case "log_level":
		return c.LogLevel, nil
	case "site_name":
		return c.SiteName, nil
	case "server_time_zone":
		return c.ServerTimeZone, nil
	case "posts.max_title_length":
		return strconv.Itoa(c.Posts.MaxTitleLength), nil
	case "posts.generate_summary":
		return strconv.FormatBool(c.Posts.GenerateSummary), nil
	case "posts.summary_length":
		return strconv.Itoa(c.Posts.SummaryLength), nil
	case "attachments.delete_unused":
		return strconv.FormatBool(c.Attachments.DeleteUnused), nil
	case "attachments.max_upload_bytes":
		return strconv.FormatInt(c.Attachments.MaxUploadBytes, 10), nil
	case "attachments.blob_backend":
		return c.Attachments.BlobBackend, nil
	case "attachments.blob_dir":
		return c.Attachments.BlobDir, nil
	case "attachments.temp_ttl":
		return c.Attachments.TempTTL.String(), nil
	case "minio.endpoint":
		return c.MinIO.Endpoint, nil
	case "minio.access_key":
		return c.MinIO.AccessKey, nil
	case "minio.secret_key":
		if c.MinIO.SecretKey == "" {
			return "", nil
		}
		return "********", nil
	case "minio.bucket":
		return c.MinIO.Bucket, nil
	case "minio.use_ssl":
		return strconv.FormatBool(c.MinIO.UseSSL), nil
	case "uploads.backend":
		return c.Uploads.Backend, nil
	case "uploads.session_ttl":
		return c.Uploads.SessionTTL.String(), nil
	case "redis.addr":
		return c.Redis.Addr, nil
	case "redis.password":
		if c.Redis.Password == "" {
			return "", nil
		}
		return "********", nil
	case "redis.db":
		return strconv.Itoa(c.Redis.DB), nil
	case "maintenance.schedule":
		return c.Maintenance.Schedule, nil
	case "auth.max_failures":
		return strconv.Itoa(c.Auth.MaxFailures), nil
	case "auth.failure_window":
		return c.Auth.FailureWindow.String(), nil
	case "auth.block_duration":
		return c.Auth.BlockDuration.String(), nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFileName), nil
}

// ProjectPath returns the path to the project config file.
func ProjectPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, configFileName), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

// Load reads config from trusted files and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	if overridePath, ok := overrideConfigPath(); ok {
		if err := loadFile(overridePath, &cfg); err != nil {
			return nil, err
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			if err := loadFile(filepath.Join(home, configFileName), &cfg); err != nil {
				return nil, err
			}
		}

		if trustProjectConfig() {
			if cwd, err := os.Getwd(); err == nil {
				projectPath := filepath.Join(cwd, configFileName)
				info, statErr := os.Stat(projectPath)
				switch {
				case statErr == nil && !info.IsDir():
					if err := loadFile(projectPath, &cfg); err != nil {
						return nil, err
					}
					cfg.TrustedProjectConfigPath = projectPath
				case statErr != nil && !os.IsNotExist(statErr):
					return nil, statErr
				}
			}
		}
	}

	if cfg.DBPath == "" {
		if cwd, err := os.Getwd(); err == nil {
			cfg.DBPath = filepath.Join(cwd, DefaultDBFileName)
		}
	}

	applyEnv(&cfg)
	cfg.normalizeDefaults()

	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("WEBLOGD_API_URL"); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv("WEBLOGD_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("WEBLOGD_PUBLIC_URL"); v != "" {
		cfg.PublicURL = v
	}
	if v := os.Getenv("WEBLOGD_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := strings.TrimSpace(os.Getenv("WEBLOGD_LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("WEBLOGD_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("WEBLOGD_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("WEBLOGD_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("WEBLOGD_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "attachments.max_upload_bytes":
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "posts.max_title_length", "posts.summary_length", "auth.max_failures":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "redis.db":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 0 {
			return nil, fmt.Errorf("%s must be a non-negative integer", key)
		}
		return parsed, nil
	case "posts.generate_summary", "attachments.delete_unused", "minio.use_ssl":
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%s must be true or false", key)
		}
		return parsed, nil
	case "attachments.temp_ttl", "uploads.session_ttl", "auth.failure_window", "auth.block_duration":
		parsed, err := time.ParseDuration(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive duration", key)
		}
		return parsed.String(), nil
	case "server_time_zone":
		if _, err := time.LoadLocation(value); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		return value, nil
	case "attachments.blob_backend":
		if value != BlobBackendLocal && value != BlobBackendMinIO {
			return nil, fmt.Errorf("%s must be %q or %q", key, BlobBackendLocal, BlobBackendMinIO)
		}
		return value, nil
	case "uploads.backend":
		if value != UploadBackendMemory && value != UploadBackendRedis {
			return nil, fmt.Errorf("%s must be %q or %q", key, UploadBackendMemory, UploadBackendRedis)
		}
		return value, nil
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}

func (c *Config) normalizeDefaults() {
	def := Default()
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = def.LogLevel
	}
	if strings.TrimSpace(c.ServerTimeZone) == "" {
		c.ServerTimeZone = def.ServerTimeZone
	}
	if c.Posts.MaxTitleLength <= 0 {
		c.Posts.MaxTitleLength = def.Posts.MaxTitleLength
	}
	if c.Posts.SummaryLength <= 0 {
		c.Posts.SummaryLength = def.Posts.SummaryLength
	}
	if c.Attachments.MaxUploadBytes <= 0 {
		c.Attachments.MaxUploadBytes = def.Attachments.MaxUploadBytes
	}
	if c.Attachments.BlobBackend == "" {
		c.Attachments.BlobBackend = def.Attachments.BlobBackend
	}
	if c.Attachments.TempTTL.Duration <= 0 {
		c.Attachments.TempTTL = def.Attachments.TempTTL
	}
	if c.Uploads.Backend == "" {
		c.Uploads.Backend = def.Uploads.Backend
	}
	if c.Uploads.SessionTTL.Duration <= 0 {
		c.Uploads.SessionTTL = def.Uploads.SessionTTL
	}
	if strings.TrimSpace(c.Maintenance.Schedule) == "" {
		c.Maintenance.Schedule = def.Maintenance.Schedule
	}
	if c.Auth.MaxFailures <= 0 {
		c.Auth.MaxFailures = def.Auth.MaxFailures
	}
	if c.Auth.FailureWindow.Duration <= 0 {
		c.Auth.FailureWindow = def.Auth.FailureWindow
	}
	if c.Auth.BlockDuration.Duration <= 0 {
		c.Auth.BlockDuration = def.Auth.BlockDuration
	}
}
