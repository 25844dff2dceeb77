package internal

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/quire/internal/markdown"
	"github.com/starford/quire/internal/site"
	"github.com/starford/quire/internal/styles"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Log formats.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig       `yaml:"app"`
	Site     SiteConfig              `yaml:"site"`
	Markdown markdown.Options        `yaml:"markdown"`
	Styles   styles.Options          `yaml:"styles"`
	Runner   RunnerConfig            `yaml:"runner"`
	Cache    CacheConfig             `yaml:"cache"`
	Servers  map[string]ServerConfig `yaml:"servers"`
	Auth     AuthConfig              `yaml:"auth"`
	Content  site.CategoryNode       `yaml:"content"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Site.Validate(); err != nil {
		return err
	}
	if err := validation.ValidateStruct(&c.Styles,
		validation.Field(&c.Styles.Compiler, validation.In(styles.CompilerNative, styles.CompilerDartSass)),
	); err != nil {
		return fmt.Errorf("styles: %w", err)
	}
	if err := c.Runner.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Content.ValidateRoot(); err != nil {
		return fmt.Errorf("content: %w", err)
	}
	return nil
}

// Server returns the server settings for env. An unknown environment yields
// the zero value.
func (c *Config) Server(env string) ServerConfig {
	return c.Servers[env]
}

// Environments lists the configured server environments.
func (c *Config) Environments() []string {
	envs := make([]string, 0, len(c.Servers))
	for name := range c.Servers {
		envs = append(envs, name)
	}
	sort.Strings(envs)
	return envs
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	LogFormat string     `yaml:"log_format"`
	HTTP      HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(LogFormatJSON, LogFormatText)),
	); err != nil {
		return err
	}
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

// SiteConfig holds the global build locations and switches.
type SiteConfig struct {
	Title  string `yaml:"title"`
	Source string `yaml:"source"`
	Output string `yaml:"output"`
	// WorkDir receives compiled Markdown fragments before injection.
	WorkDir    string `yaml:"work_dir"`
	Standalone bool   `yaml:"standalone"`
	Template   string `yaml:"template"`
	Partials   string `yaml:"partials"`
	// Logo is looked up relative to each category's source directory.
	Logo         string   `yaml:"logo"`
	Images       []string `yaml:"images"`
	Styles       []string `yaml:"styles"`
	IncludePaths []string `yaml:"include_paths"`
	// Watch lists the globs (relative to the source root) that trigger a
	// rebuild in watch and serve modes.
	Watch []string `yaml:"watch"`
}

// Validate validates the site configuration.
func (c *SiteConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Source, validation.Required),
		validation.Field(&c.Output, validation.Required),
		validation.Field(&c.WorkDir, validation.Required),
		validation.Field(&c.Template, validation.Required),
	); err != nil {
		return fmt.Errorf("site: %w", err)
	}
	if clean(c.Output) == clean(c.Source) {
		return fmt.Errorf("site: output must differ from source (%s)", c.Source)
	}
	return nil
}

func clean(p string) string {
	return strings.TrimSuffix(strings.TrimPrefix(p, "./"), "/")
}

// RunnerConfig selects the failure policy of parallel task groups.
type RunnerConfig struct {
	// FailFast cancels sibling tasks on the first failure. The default lets
	// every started task finish and reports all failures.
	FailFast bool `yaml:"fail_fast"`
	// MaxParallel bounds each parallel group; 0 means unbounded.
	MaxParallel int `yaml:"max_parallel"`
}

// Validate validates the runner configuration.
func (c *RunnerConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxParallel, validation.Min(0)),
	)
}

// CacheConfig holds the incremental build cache settings.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Validate validates the cache configuration.
func (c *CacheConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.When(c.Enabled, validation.Required)),
	)
}

// ServerConfig is per-environment deployment metadata.
type ServerConfig struct {
	BaseURL    string `yaml:"base_url"`
	InstallDir string `yaml:"install_dir"`
}

// AuthConfig holds authentication configuration for the serve API.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
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

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatJSON,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Site: SiteConfig{
			Source:   "./src",
			Output:   "./public",
			WorkDir:  "./.quire/raw",
			Template: "./templates/page.html",
			Partials: "./templates/partials/*.html",
			Logo:     "images/logo.png",
			Images:   []string{"images/**"},
			Styles:   []string{"styles/*.scss", "styles/*.css"},
			Watch:    []string{"**.md", "**.scss", "**.css", "**.html", "**.png", "**.jpg", "**.svg"},
		},
		Markdown: markdown.DefaultOptions(),
		Styles: styles.Options{
			Compiler: styles.CompilerNative,
			Minify:   true,
		},
		Cache: CacheConfig{
			Enabled: true,
			Path:    "./.quire/cache.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
