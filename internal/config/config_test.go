package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValid(t *testing.T) {
	path := writeConfig(t, `
scanning:
  enabled: true
  interval_seconds: 60
  cache_dir: cache
  resources:
    - url: https://example.com/news
      compare_lines: true
      ignore_list: ["Updated:"]
    - url: https://example.com/prices
      interval_seconds: 30
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(cfg.Scanning.Resources) != 2 {
		t.Fatalf("got %d resources, want 2", len(cfg.Scanning.Resources))
	}
	news := cfg.Scanning.Resources[0]
	if !news.CompareLines || len(news.IgnoreList) != 1 {
		t.Errorf("resource settings not parsed: %+v", news)
	}
	if got := cfg.Interval(news); got != 60*time.Second {
		t.Errorf("global interval fallback = %v, want 60s", got)
	}
	if got := cfg.Interval(cfg.Scanning.Resources[1]); got != 30*time.Second {
		t.Errorf("per-resource interval = %v, want 30s", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidateRejects(t *testing.T) {
	enabled := true
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero interval", func(c *Config) { c.Scanning.IntervalSeconds = 0 }},
		{"empty cache dir", func(c *Config) { c.Scanning.CacheDir = "" }},
		{"empty url", func(c *Config) { c.Scanning.Resources[0].URL = "  " }},
		{"negative resource interval", func(c *Config) { c.Scanning.Resources[0].IntervalSeconds = -1 }},
		{"colliding ids", func(c *Config) {
			c.Scanning.Resources = append(c.Scanning.Resources, Resource{URL: "https://example.com/news/"})
		}},
		{"notification without host", func(c *Config) {
			c.Notification.Enabled = true
			c.Notification.Recipients = []string{"ops@example.com"}
			c.Notification.From = "x@example.com"
			c.Notification.SMTP.Host = ""
		}},
		{"notification without recipients", func(c *Config) {
			c.Notification.Enabled = true
			c.Notification.SMTP.Host = "smtp.example.com"
			c.Notification.From = "x@example.com"
		}},
		{"notification without from", func(c *Config) {
			c.Notification.Enabled = true
			c.Notification.SMTP.Host = "smtp.example.com"
			c.Notification.Recipients = []string{"ops@example.com"}
			c.Notification.UseSMTPFrom = false
			c.Notification.From = ""
		}},
		{"ai without key", func(c *Config) { c.AI.Enabled = true; c.AI.APIKey = "" }},
		{"dashboard bad port", func(c *Config) { c.Dashboard.Enabled = true; c.Dashboard.Port = 0 }},
	}

	for _, c := range cases {
		cfg := defaultConfig()
		cfg.Scanning.Resources = []Resource{{URL: "https://example.com/news", Enabled: &enabled}}
		c.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: Validate accepted an invalid config", c.name)
		}
	}
}

func TestResourceID(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://example.com/news", "httpsexamplecomnews"},
		{"http://Example.COM:8080/a?b=1", "httpExampleCOM8080ab1"},
		{"!!!", ""},
	}
	for _, c := range cases {
		if got := (Resource{URL: c.url}).ID(); got != c.want {
			t.Errorf("ID(%q) = %q, want %q", c.url, got, c.want)
		}
	}
}

func TestEnabledResources(t *testing.T) {
	off := false
	cfg := defaultConfig()
	cfg.Scanning.Resources = []Resource{
		{URL: "https://a.example"},
		{URL: "https://b.example", Enabled: &off},
	}

	got := cfg.EnabledResources()
	if len(got) != 1 || got[0].URL != "https://a.example" {
		t.Errorf("EnabledResources = %+v, want only a.example", got)
	}
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteDefault(dir)
	if err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("default config does not load: %v", err)
	}
	if !cfg.Scanning.Enabled || len(cfg.Scanning.Resources) != 1 {
		t.Errorf("unexpected default config: %+v", cfg.Scanning)
	}

	if _, err := WriteDefault(dir); err == nil {
		t.Error("WriteDefault overwrote an existing config")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SITEPULSE_SMTP_PASS", "fromenv")
	path := writeConfig(t, `
scanning:
  interval_seconds: 60
  cache_dir: cache
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Notification.SMTP.Password != "fromenv" {
		t.Errorf("SMTP password = %q, want env override", cfg.Notification.SMTP.Password)
	}
}
