// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Rendering engines accepted by render.engine.
const (
	EngineChromedp = "chromedp"
	EngineRod      = "rod"
)

// Store drivers accepted by store.driver.
const (
	DriverLocal  = "local"
	DriverSQLite = "sqlite"
)

// DefaultBrowserUserAgent is the identity presented by the headless browser.
const DefaultBrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36"

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Robots  RobotsConfig  `mapstructure:"robots"`
	Render  RenderConfig  `mapstructure:"render"`
	Direct  DirectConfig  `mapstructure:"direct"`
	Store   StoreConfig   `mapstructure:"store"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                  int `mapstructure:"port"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
}

// RobotsConfig configures the robots.txt permission check.
type RobotsConfig struct {
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// RenderConfig configures the headless rendering path.
type RenderConfig struct {
	Engine            string `mapstructure:"engine"`
	NavTimeoutSeconds int    `mapstructure:"nav_timeout_seconds"`
	UserAgent         string `mapstructure:"user_agent"`
	Headless          bool   `mapstructure:"headless"`
}

// DirectConfig configures the plain HTTP fetch path.
type DirectConfig struct {
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// StoreConfig selects where the last scrape is persisted.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

// LLMConfig points at the local language-model runtime.
type LLMConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PAGEQUERY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.request_timeout_seconds", 0)
	v.SetDefault("robots.user_agent", "Mozilla/5.0")
	v.SetDefault("robots.timeout_seconds", 0)
	v.SetDefault("render.engine", EngineChromedp)
	v.SetDefault("render.nav_timeout_seconds", 60)
	v.SetDefault("render.user_agent", DefaultBrowserUserAgent)
	v.SetDefault("render.headless", true)
	v.SetDefault("direct.user_agent", "Mozilla/5.0")
	v.SetDefault("direct.timeout_seconds", 0)
	v.SetDefault("store.driver", DriverLocal)
	v.SetDefault("store.path", "scraped_data.json")
	v.SetDefault("llm.base_url", "http://localhost:11434")
	v.SetDefault("llm.model", "deepseek-r1:1.5b")
	v.SetDefault("llm.timeout_seconds", 0)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("server.request_timeout_seconds must be >= 0")
	}
	switch c.Render.Engine {
	case EngineChromedp, EngineRod:
	default:
		return fmt.Errorf("render.engine must be %q or %q, got %q", EngineChromedp, EngineRod, c.Render.Engine)
	}
	if c.Render.NavTimeoutSeconds <= 0 {
		return fmt.Errorf("render.nav_timeout_seconds must be > 0")
	}
	switch c.Store.Driver {
	case DriverLocal, DriverSQLite:
	default:
		return fmt.Errorf("store.driver must be %q or %q, got %q", DriverLocal, DriverSQLite, c.Store.Driver)
	}
	if strings.TrimSpace(c.Store.Path) == "" {
		return fmt.Errorf("store.path is required")
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.Robots.TimeoutSeconds < 0 || c.Direct.TimeoutSeconds < 0 || c.LLM.TimeoutSeconds < 0 {
		return fmt.Errorf("timeouts must be >= 0")
	}
	return nil
}

// NavTimeout returns the page-load bound for rendered extraction.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Render.NavTimeoutSeconds) * time.Second
}

// RequestTimeout returns the bound applied to scrape and asset requests.
// Zero, the default, disables it.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// RobotsTimeout returns the robots.txt client timeout; zero means none.
func (c Config) RobotsTimeout() time.Duration { return seconds(c.Robots.TimeoutSeconds) }

// DirectTimeout returns the direct-fetch request timeout; zero means none.
func (c Config) DirectTimeout() time.Duration { return seconds(c.Direct.TimeoutSeconds) }

// LLMTimeout returns the model call timeout; zero means none.
func (c Config) LLMTimeout() time.Duration { return seconds(c.LLM.TimeoutSeconds) }
