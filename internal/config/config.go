package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the config file sitepulse looks for in its working directory.
const DefaultFileName = "sitepulse.yaml"

// Config holds all sitepulse configuration.
type Config struct {
	Scanning     ScanningConfig     `yaml:"scanning"`
	Notification NotificationConfig `yaml:"notification"`
	AI           AIConfig           `yaml:"ai"`
	Dashboard    DashboardConfig    `yaml:"dashboard"`
}

// ScanningConfig controls what is monitored and how often.
type ScanningConfig struct {
	Enabled         bool       `yaml:"enabled"`
	IntervalSeconds int        `yaml:"interval_seconds"`
	CacheDir        string     `yaml:"cache_dir"`
	Resources       []Resource `yaml:"resources"`
}

// Resource is one monitored URL with its own comparison settings.
type Resource struct {
	URL             string   `yaml:"url"`
	CompareLines    bool     `yaml:"compare_lines"` // line-level diff instead of character-level
	IgnoreList      []string `yaml:"ignore_list"`
	IntervalSeconds int      `yaml:"interval_seconds"` // 0 = use global scanning interval
	Enabled         *bool    `yaml:"enabled"`          // nil = enabled
}

// NotificationConfig holds outbound email settings.
type NotificationConfig struct {
	Enabled     bool       `yaml:"enabled"`
	From        string     `yaml:"from"`
	UseSMTPFrom bool       `yaml:"use_smtp_from"` // send from the SMTP username instead of From
	Subject     string     `yaml:"subject"`       // {url} is replaced with the resource URL
	Recipients  []string   `yaml:"recipients"`
	SMTP        SMTPConfig `yaml:"smtp"`
}

// SMTPConfig holds SMTP server settings.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Secure   bool   `yaml:"secure"`
	Username string `yaml:"username"` // can also use SITEPULSE_SMTP_USER env var
	Password string `yaml:"password"` // can also use SITEPULSE_SMTP_PASS env var
}

// AIConfig holds settings for the optional AI change summary.
type AIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"` // can also use ANTHROPIC_API_KEY env var
}

// DashboardConfig holds settings for the status dashboard.
type DashboardConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// IsEnabled reports whether the resource should be scanned. Resources are
// enabled unless explicitly disabled.
func (r Resource) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// ID derives the stable snapshot key for the resource by stripping every
// non-alphanumeric character from its URL. Validate rejects configs where two
// distinct URLs collapse to the same id.
func (r Resource) ID() string {
	var b strings.Builder
	for _, c := range r.URL {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// Interval returns the polling interval for the resource, falling back to the
// global scanning interval when the resource does not set its own.
func (c *Config) Interval(r Resource) time.Duration {
	secs := r.IntervalSeconds
	if secs <= 0 {
		secs = c.Scanning.IntervalSeconds
	}
	return time.Duration(secs) * time.Second
}

// EnabledResources returns the resources that will actually be scanned.
func (c *Config) EnabledResources() []Resource {
	var out []Resource
	for _, r := range c.Scanning.Resources {
		if r.IsEnabled() {
			out = append(out, r)
		}
	}
	return out
}

// Load reads and parses the YAML config file, applies env var overrides and
// validates the result. A missing file is an error: the monitor must not start
// without an explicit resource list.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	// Secrets can come from the environment instead of the file
	if v := os.Getenv("SITEPULSE_SMTP_USER"); v != "" {
		cfg.Notification.SMTP.Username = v
	}
	if v := os.Getenv("SITEPULSE_SMTP_PASS"); v != "" {
		cfg.Notification.SMTP.Password = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.AI.APIKey = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for mistakes that would otherwise only
// surface mid-run. It is called at startup; an error here is fatal.
func (c *Config) Validate() error {
	if c.Scanning.IntervalSeconds <= 0 {
		return fmt.Errorf("scanning.interval_seconds must be positive, got %d", c.Scanning.IntervalSeconds)
	}
	if c.Scanning.CacheDir == "" {
		return fmt.Errorf("scanning.cache_dir must not be empty")
	}

	seen := make(map[string]string)
	for i, r := range c.Scanning.Resources {
		if strings.TrimSpace(r.URL) == "" {
			return fmt.Errorf("resource %d: url must not be empty", i)
		}
		if r.IntervalSeconds < 0 {
			return fmt.Errorf("resource %s: interval_seconds must not be negative", r.URL)
		}
		id := r.ID()
		if id == "" {
			return fmt.Errorf("resource %s: url yields an empty snapshot id", r.URL)
		}
		if prev, ok := seen[id]; ok {
			return fmt.Errorf("resources %s and %s map to the same snapshot id %q", prev, r.URL, id)
		}
		seen[id] = r.URL
	}

	if c.Notification.Enabled {
		if c.Notification.SMTP.Host == "" {
			return fmt.Errorf("notification.smtp.host must not be empty when notifications are enabled")
		}
		if c.Notification.SMTP.Port <= 0 || c.Notification.SMTP.Port > 65535 {
			return fmt.Errorf("notification.smtp.port %d is out of range", c.Notification.SMTP.Port)
		}
		if len(c.Notification.Recipients) == 0 {
			return fmt.Errorf("notification.recipients must not be empty when notifications are enabled")
		}
		if !c.Notification.UseSMTPFrom && c.Notification.From == "" {
			return fmt.Errorf("notification.from must be set unless use_smtp_from is true")
		}
	}

	if c.AI.Enabled && c.AI.APIKey == "" {
		return fmt.Errorf("ai.api_key (or ANTHROPIC_API_KEY) must be set when ai is enabled")
	}

	if c.Dashboard.Enabled && (c.Dashboard.Port <= 0 || c.Dashboard.Port > 65535) {
		return fmt.Errorf("dashboard.port %d is out of range", c.Dashboard.Port)
	}

	return nil
}

func defaultConfig() *Config {
	return &Config{
		Scanning: ScanningConfig{
			Enabled:         true,
			IntervalSeconds: 300,
			CacheDir:        "cache",
		},
		Notification: NotificationConfig{
			Subject: "Change detected on {url}",
			SMTP: SMTPConfig{
				Port:   587,
				Secure: true,
			},
		},
		AI: AIConfig{
			Model: "claude-sonnet-4-20250514",
		},
		Dashboard: DashboardConfig{
			Port: 8080,
		},
	}
}

// WriteDefault creates a commented starter config in dir. Returns the path of
// the created file; refuses to overwrite an existing one.
func WriteDefault(dir string) (string, error) {
	path := filepath.Join(dir, DefaultFileName)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("%s already exists", path)
	}

	content := `# sitepulse configuration
scanning:
  enabled: true
  interval_seconds: 300
  cache_dir: cache
  resources:
    - url: https://example.com
      compare_lines: true
      ignore_list: []
      # interval_seconds: 60   # per-resource override

notification:
  enabled: false
  from: sitepulse@example.com
  use_smtp_from: false
  subject: "Change detected on {url}"
  recipients: []
  smtp:
    host: smtp.example.com
    port: 587
    secure: true
    username: ""   # or SITEPULSE_SMTP_USER
    password: ""   # or SITEPULSE_SMTP_PASS

ai:
  enabled: false
  model: claude-sonnet-4-20250514
  api_key: ""      # or ANTHROPIC_API_KEY

dashboard:
  enabled: false
  port: 8080
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", err
	}
	return path, nil
}
