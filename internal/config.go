package internal

import (
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/graphlint/internal/lint"
	"github.com/starford/graphlint/internal/report"
	"github.com/starford/graphlint/internal/storage"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// MaxWorkers caps the per-document worker pool.
const MaxWorkers = 256

// Config represents the application configuration.
type Config struct {
	App   ApplicationConfig `yaml:"app"`
	Lint  LintConfig        `yaml:"lint"`
	Index IndexConfig       `yaml:"index"`
	Auth  AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Lint.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// LintConfig holds the scan and check settings.
type LintConfig struct {
	Root         string   `yaml:"root"`
	Exclude      []string `yaml:"exclude"`
	Required     []string `yaml:"required"`
	CheckLinks   bool     `yaml:"check_links"`
	CheckOrphans bool     `yaml:"check_orphans"`
	RootIndex    string   `yaml:"root_index"`
	Gitignore    bool     `yaml:"gitignore"`
	Workers      int      `yaml:"workers"`
	Format       string   `yaml:"format"`
	Watch        bool     `yaml:"watch"`
}

// Validate validates the lint configuration.
func (c *LintConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.RootIndex, validation.Required),
		validation.Field(&c.Format, validation.Required, validation.In(report.FormatText, report.FormatJSON)),
		validation.Field(&c.Workers, validation.Min(0), validation.Max(MaxWorkers)),
	)
}

// Options converts the lint section into engine options.
func (c *LintConfig) Options(logger *slog.Logger) lint.Options {
	return lint.Options{
		Required:     c.Required,
		CheckLinks:   c.CheckLinks,
		CheckOrphans: c.CheckOrphans,
		RootIndex:    c.RootIndex,
		Workers:      c.Workers,
		Logger:       logger,
	}
}

// StorageOptions returns the discovery settings.
func (c *LintConfig) StorageOptions() storage.Options {
	return storage.Options{Exclude: c.Exclude, Gitignore: c.Gitignore}
}

// IndexConfig holds the optional SQLite index location.
// An empty Path disables the index.
type IndexConfig struct {
	Path string `yaml:"path"`
}

// Enabled reports whether an index database is configured.
func (c *IndexConfig) Enabled() bool {
	return c.Path != ""
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// ParseRequired splits a comma-separated key list, trimming blanks and
// dropping empty and repeated entries.
func ParseRequired(s string) []string {
	keys := []string{}
	seen := map[string]bool{}
	for _, k := range strings.Split(s, ",") {
		k = strings.TrimSpace(k)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	return keys
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelWarn,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Lint: LintConfig{
			Root:         "docs/graph",
			Required:     []string{"id", "type", "title", "status"},
			CheckLinks:   true,
			CheckOrphans: true,
			RootIndex:    "index.md",
			Format:       report.FormatText,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
