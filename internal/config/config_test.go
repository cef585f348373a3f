package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.APIURL != DefaultAPIURL {
		t.Fatalf("expected default API URL, got %q", cfg.APIURL)
	}
	if cfg.DBPath != "" {
		t.Fatalf("expected empty db path, got %q", cfg.DBPath)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Fatalf("expected default log level %q, got %q", DefaultLogLevel, cfg.LogLevel)
	}
	if cfg.Posts.MaxTitleLength != 100 {
		t.Fatalf("expected title limit 100, got %d", cfg.Posts.MaxTitleLength)
	}
	if cfg.Posts.GenerateSummary {
		t.Fatal("expected summary generation off by default")
	}
	if !cfg.Attachments.DeleteUnused {
		t.Fatal("expected unused attachment cleanup on by default")
	}
	if cfg.Attachments.BlobBackend != BlobBackendLocal {
		t.Fatalf("expected local blob backend, got %q", cfg.Attachments.BlobBackend)
	}
	if cfg.Uploads.Backend != UploadBackendMemory {
		t.Fatalf("expected memory upload backend, got %q", cfg.Uploads.Backend)
	}
	if cfg.Uploads.SessionTTL.Duration != DefaultUploadSessionTTL {
		t.Fatalf("expected session ttl %s, got %s", DefaultUploadSessionTTL, cfg.Uploads.SessionTTL)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".weblogd.toml")
	if err := os.WriteFile(path, []byte(`api_url = "http://localhost:9999"
log_level = "warn"
server_time_zone = "Europe/Vienna"

[posts]
generate_summary = true
summary_length = 120

[uploads]
session_ttl = "45m"
`), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://localhost:9999" {
		t.Fatalf("expected api_url 'http://localhost:9999', got %q", cfg.APIURL)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("expected log_level 'warn', got %q", cfg.LogLevel)
	}
	if !cfg.Posts.GenerateSummary || cfg.Posts.SummaryLength != 120 {
		t.Fatalf("unexpected posts config: %+v", cfg.Posts)
	}
	if cfg.Posts.MaxTitleLength != DefaultMaxTitleLength {
		t.Fatalf("expected untouched title limit, got %d", cfg.Posts.MaxTitleLength)
	}
	if cfg.Uploads.SessionTTL.Duration != 45*time.Minute {
		t.Fatalf("expected 45m session ttl, got %s", cfg.Uploads.SessionTTL)
	}
	if cfg.Location().String() != "Europe/Vienna" {
		t.Fatalf("expected Europe/Vienna location, got %s", cfg.Location())
	}
}

func TestLoadFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFile("/nonexistent/path/.weblogd.toml", &cfg); err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.APIURL != DefaultAPIURL {
		t.Fatalf("defaults should be preserved")
	}
}

func TestIsAllowedKey(t *testing.T) {
	for _, key := range []string{
		"api_url",
		"db_path",
		"log_level",
		"posts.max_title_length",
		"attachments.delete_unused",
		"minio.bucket",
		"uploads.backend",
		"redis.addr",
		"maintenance.schedule",
	} {
		if !IsAllowedKey(key) {
			t.Fatalf("expected %q to be allowed", key)
		}
	}
	if IsAllowedKey("invalid") {
		t.Fatal("expected 'invalid' to not be allowed")
	}
}

func TestGetKey(t *testing.T) {
	cfg := Default()
	cfg.APIURL = "http://test:1234"
	cfg.DBPath = "/tmp/test.db"
	cfg.Posts.SummaryLength = 80
	cfg.MinIO.SecretKey = "hunter22"
	cfg.Attachments.TempTTL = Duration{90 * time.Minute}

	tests := []struct {
		key  string
		want string
	}{
		{"api_url", "http://test:1234"},
		{"db_path", "/tmp/test.db"},
		{"posts.summary_length", "80"},
		{"posts.max_title_length", "100"},
		{"attachments.delete_unused", "true"},
		{"attachments.temp_ttl", "1h30m0s"},
		{"minio.secret_key", "********"},
		{"redis.password", ""},
	}
	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			got, err := cfg.Get(tc.key)
			if err != nil {
				t.Fatalf("get %s: %v", tc.key, err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}

	if _, err := cfg.Get("invalid"); err == nil {
		t.Fatal("expected error for invalid key")
	}
}

func TestSetKeyCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.toml")
	if err := SetKey(path, "site_name", "Field Notes"); err != nil {
		t.Fatalf("set: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SiteName != "Field Notes" {
		t.Fatalf("expected 'Field Notes', got %q", cfg.SiteName)
	}
}

func TestSetKeyUpdatesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "existing.toml")
	if err := os.WriteFile(path, []byte("site_name = \"old\"\napi_url = \"http://keep\"\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := SetKey(path, "site_name", "new"); err != nil {
		t.Fatalf("set: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SiteName != "new" {
		t.Fatalf("expected 'new', got %q", cfg.SiteName)
	}
	if cfg.APIURL != "http://keep" {
		t.Fatalf("expected preserved api_url 'http://keep', got %q", cfg.APIURL)
	}
}

func TestSetNestedKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested.toml")
	if err := SetKey(path, "posts.generate_summary", "true"); err != nil {
		t.Fatalf("set bool: %v", err)
	}
	if err := SetKey(path, "uploads.session_ttl", "30m"); err != nil {
		t.Fatalf("set duration: %v", err)
	}
	if err := SetKey(path, "posts.summary_length", "42"); err != nil {
		t.Fatalf("set int: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Posts.GenerateSummary {
		t.Fatal("expected generate_summary true")
	}
	if cfg.Posts.SummaryLength != 42 {
		t.Fatalf("expected summary_length 42, got %d", cfg.Posts.SummaryLength)
	}
	if cfg.Uploads.SessionTTL.Duration != 30*time.Minute {
		t.Fatalf("expected 30m, got %s", cfg.Uploads.SessionTTL)
	}
}

func TestSetKeyRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.toml")
	tests := []struct {
		key   string
		value string
	}{
		{"invalid_key", "value"},
		{"posts.max_title_length", "zero"},
		{"posts.generate_summary", "maybe"},
		{"uploads.session_ttl", "-1m"},
		{"uploads.backend", "memcached"},
		{"attachments.blob_backend", "ftp"},
		{"server_time_zone", "Mars/Olympus"},
	}
	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			if err := SetKey(path, tc.key, tc.value); err == nil {
				t.Fatalf("expected error for %s=%s", tc.key, tc.value)
			}
		})
	}
}

func TestConfigDirOverridePaths(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("WEBLOGD_CONFIG_DIR", dir)

	globalPath, err := GlobalPath()
	if err != nil {
		t.Fatalf("global path: %v", err)
	}
	if globalPath != filepath.Join(dir, ".weblogd.toml") {
		t.Fatalf("unexpected global path: %s", globalPath)
	}

	projectPath, err := ProjectPath()
	if err != nil {
		t.Fatalf("project path: %v", err)
	}
	if projectPath != filepath.Join(dir, ".weblogd.toml") {
		t.Fatalf("unexpected project path: %s", projectPath)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("WEBLOGD_CONFIG_DIR", t.TempDir())
	t.Setenv("WEBLOGD_API_URL", "http://example.com:8080")
	t.Setenv("WEBLOGD_DB", "/tmp/override.db")
	t.Setenv("WEBLOGD_REDIS_ADDR", "redis:6380")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://example.com:8080" {
		t.Fatalf("expected env override for API URL, got %q", cfg.APIURL)
	}
	if cfg.DBPath != "/tmp/override.db" {
		t.Fatalf("expected env override for DB path, got %q", cfg.DBPath)
	}
	if cfg.Redis.Addr != "redis:6380" {
		t.Fatalf("expected env override for redis addr, got %q", cfg.Redis.Addr)
	}
}

func TestLoadIgnoresProjectConfigByDefault(t *testing.T) {
	homeDir := t.TempDir()
	workspace := t.TempDir()

	if err := os.WriteFile(filepath.Join(homeDir, ".weblogd.toml"), []byte("site_name = \"home\"\n"), 0o644); err != nil {
		t.Fatalf("write home config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(workspace, ".weblogd.toml"), []byte("site_name = \"project\"\n"), 0o644); err != nil {
		t.Fatalf("write project config: %v", err)
	}

	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(oldWD)
	})
	if err := os.Chdir(workspace); err != nil {
		t.Fatalf("chdir workspace: %v", err)
	}

	t.Setenv("HOME", homeDir)
	t.Setenv("WEBLOGD_CONFIG_DIR", "")
	t.Setenv("WEBLOGD_TRUST_PROJECT_CONFIG", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SiteName != "home" {
		t.Fatalf("expected global site name, got %q", cfg.SiteName)
	}
	if cfg.TrustedProjectConfigPath != "" {
		t.Fatalf("expected no trusted project config path, got %q", cfg.TrustedProjectConfigPath)
	}

	t.Setenv("WEBLOGD_TRUST_PROJECT_CONFIG", "true")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("load trusted: %v", err)
	}
	if cfg.SiteName != "project" {
		t.Fatalf("expected project site name, got %q", cfg.SiteName)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		cfg := Default()
		cfg.DBPath = "/tmp/weblogd.db"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, true},
		{"bad time zone", func(c *Config) { c.ServerTimeZone = "Nowhere/Land" }, true},
		{"minio without endpoint", func(c *Config) { c.Attachments.BlobBackend = BlobBackendMinIO }, true},
		{"minio with endpoint", func(c *Config) {
			c.Attachments.BlobBackend = BlobBackendMinIO
			c.MinIO.Endpoint = "localhost:9000"
		}, false},
		{"redis without addr", func(c *Config) {
			c.Uploads.Backend = UploadBackendRedis
			c.Redis.Addr = ""
		}, true},
		{"tiny title", func(c *Config) { c.Posts.MaxTitleLength = 2 }, true},
		{"public url at root", func(c *Config) { c.PublicURL = "https://blog.example.org/" }, false},
		{"public url with path", func(c *Config) { c.PublicURL = "https://example.org/blog" }, true},
		{"public url without scheme", func(c *Config) { c.PublicURL = "blog.example.org" }, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}
