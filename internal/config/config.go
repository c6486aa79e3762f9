// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/xkilldash9x/cartpilot/api/schemas"
)

// Config holds the entire application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	AI      AIConfig      `mapstructure:"ai" yaml:"ai"`
	Shop    ShopConfig    `mapstructure:"shop" yaml:"shop"`
}

// LoggerConfig controls the global zap logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"` // "console" or "json"
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSizeMB   int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays  int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
}

// BrowserConfig describes how the local browser process is launched. The
// profile directory is persisted across runs so storefront logins survive.
type BrowserConfig struct {
	ExecutablePath string        `mapstructure:"executable_path" yaml:"executable_path"`
	UserDataDir    string        `mapstructure:"user_data_dir" yaml:"user_data_dir"`
	DebugPort      int           `mapstructure:"debug_port" yaml:"debug_port"`
	Headless       bool          `mapstructure:"headless" yaml:"headless"`
	LaunchTimeout  time.Duration `mapstructure:"launch_timeout" yaml:"launch_timeout"`
}

// AIConfig configures the observation/extraction backend.
type AIConfig struct {
	Model     string `mapstructure:"model" yaml:"model"`
	APIKey    string `mapstructure:"api_key" yaml:"api_key"`
	Verbosity int    `mapstructure:"verbosity" yaml:"verbosity"`
	TraceFile string `mapstructure:"trace_file" yaml:"trace_file"`
}

// ShopConfig holds the workflow timing knobs and bounds.
type ShopConfig struct {
	SettleDelay     time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
	CartSettleDelay time.Duration `mapstructure:"cart_settle_delay" yaml:"cart_settle_delay"`
	KeyDelay        time.Duration `mapstructure:"key_delay" yaml:"key_delay"`
	InputTimeout    time.Duration `mapstructure:"input_timeout" yaml:"input_timeout"`
	EmptyCartBound  int           `mapstructure:"empty_cart_bound" yaml:"empty_cart_bound"`
	MaxItems        int           `mapstructure:"max_items" yaml:"max_items"`
	ArtifactDir     string        `mapstructure:"artifact_dir" yaml:"artifact_dir"`
}

// SetDefaults registers every configuration default on the given viper
// instance. Called once before reading the config file and environment.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "cartpilot")
	v.SetDefault("logger.max_size_mb", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age_days", 14)

	v.SetDefault("browser.user_data_dir", defaultUserDataDir())
	v.SetDefault("browser.debug_port", 9222)
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.launch_timeout", 10*time.Second)

	v.SetDefault("ai.model", "gemini-2.0-flash")
	v.SetDefault("ai.verbosity", 1)

	v.SetDefault("shop.settle_delay", 2*time.Second)
	v.SetDefault("shop.cart_settle_delay", 1500*time.Millisecond)
	v.SetDefault("shop.key_delay", 75*time.Millisecond)
	v.SetDefault("shop.input_timeout", 5*time.Second)
	v.SetDefault("shop.empty_cart_bound", 10)
	v.SetDefault("shop.max_items", 15)
	v.SetDefault("shop.artifact_dir", "artifacts")
}

// Load unmarshals the already-initialized global viper state into a Config
// and applies environment fallbacks that viper cannot express.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom is the injectable variant used by tests.
func LoadFrom(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// The Gemini SDK convention is honored as a fallback so an already
	// configured machine works without a cartpilot-specific variable.
	if cfg.AI.APIKey == "" {
		cfg.AI.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	return &cfg, nil
}

// Validate checks the invariants that must hold before any component is
// constructed. Credential absence is a hard configuration failure, never a
// silent default.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.AI.Model) == "" {
		return schemas.NewConfigurationError("ai.model is required (set CARTPILOT_AI_MODEL)", nil)
	}
	if strings.TrimSpace(c.AI.APIKey) == "" {
		return schemas.NewConfigurationError("ai.api_key is required (set CARTPILOT_AI_API_KEY or GEMINI_API_KEY)", nil)
	}
	if c.Browser.DebugPort <= 0 || c.Browser.DebugPort > 65535 {
		return schemas.NewConfigurationError(fmt.Sprintf("browser.debug_port %d is out of range", c.Browser.DebugPort), nil)
	}
	if c.Shop.EmptyCartBound <= 0 {
		return schemas.NewConfigurationError("shop.empty_cart_bound must be positive", nil)
	}
	if c.Shop.MaxItems <= 0 {
		return schemas.NewConfigurationError("shop.max_items must be positive", nil)
	}
	return nil
}

// defaultUserDataDir places the persisted browser profile under the user's
// home directory, falling back to the working directory in constrained
// environments.
func defaultUserDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".cartpilot", "profile")
	}
	return filepath.Join(home, ".cartpilot", "profile")
}
