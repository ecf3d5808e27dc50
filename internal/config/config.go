// Package config loads the broker's runtime configuration: the pool's
// tunables, per-language recipe overrides, log level, and the
// workspace root, merging defaults, an optional config file, and
// environment variables via Viper.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mcp-broker/lsp-broker/internal/langdetect"
	"github.com/mcp-broker/lsp-broker/internal/pool"
)

// RecipeOverride lets a config file adjust or add a language recipe
// without recompiling: e.g. pointing "go" at a gopls built from source,
// or adding a recipe for a language DefaultRecipes doesn't cover.
type RecipeOverride struct {
	ID             string                 `mapstructure:"id"`
	DisplayName    string                 `mapstructure:"displayName"`
	Extensions     []string               `mapstructure:"extensions"`
	Command        string                 `mapstructure:"command"`
	Args           []string               `mapstructure:"args"`
	ContainerArgs  []string               `mapstructure:"containerArgs"`
	InitOptions    map[string]interface{} `mapstructure:"initOptions"`
	PackageManager string                 `mapstructure:"packageManager"`
}

// Config is the broker's fully resolved runtime configuration.
type Config struct {
	Workspace string `mapstructure:"workspace"`
	LogLevel  string `mapstructure:"logLevel"`

	Pool struct {
		HealthCheckInterval time.Duration `mapstructure:"healthCheckInterval"`
		MaxRetries          int           `mapstructure:"maxRetries"`
		RetryDelay          time.Duration `mapstructure:"retryDelay"`
		IdleTimeout         time.Duration `mapstructure:"idleTimeout"`
		ReclaimIdle         bool          `mapstructure:"reclaimIdle"`
	} `mapstructure:"pool"`

	RecipeOverrides []RecipeOverride `mapstructure:"recipes"`
}

// SetDefaults installs the broker's defaults onto v, mirroring
// pool.DefaultConfig so a config file only needs to name what it
// wants to change.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("workspace", ".")
	v.SetDefault("logLevel", "info")

	defaults := pool.DefaultConfig()
	v.SetDefault("pool.healthCheckInterval", defaults.HealthCheckInterval)
	v.SetDefault("pool.maxRetries", defaults.MaxRetries)
	v.SetDefault("pool.retryDelay", defaults.RetryDelay)
	v.SetDefault("pool.idleTimeout", defaults.IdleTimeout)
	v.SetDefault("pool.reclaimIdle", true)
}

// Load builds a Viper instance from defaults, an optional config file
// (configPath, or ".mcp-broker.yaml" discovered by walking up from the
// workspace if configPath is empty), and MCPBROKER_-prefixed
// environment variables, then unmarshals it into a Config.
func Load(configPath, workspace string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix("MCPBROKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath == "" {
		configPath = findConfigFile(workspace)
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if cfg.Workspace == "." || cfg.Workspace == "" {
		cfg.Workspace = workspace
	}
	return &cfg, nil
}

// findConfigFile walks up from dir looking for .mcp-broker.yaml or
// .mcp-broker.yml, returning the first one found.
func findConfigFile(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	for {
		for _, name := range []string{".mcp-broker.yaml", ".mcp-broker.yml"} {
			candidate := filepath.Join(abs, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return ""
		}
		abs = parent
	}
}

// PoolConfig converts the loaded pool tunables into pool.Config.
func (c *Config) PoolConfig() pool.Config {
	return pool.Config{
		HealthCheckInterval: c.Pool.HealthCheckInterval,
		MaxRetries:          c.Pool.MaxRetries,
		RetryDelay:          c.Pool.RetryDelay,
		IdleTimeout:         c.Pool.IdleTimeout,
	}
}

// Recipes merges langdetect.DefaultRecipes with the config file's
// overrides: an override whose ID matches a default replaces it
// entirely, and a new ID is appended.
func (c *Config) Recipes() []langdetect.Recipe {
	byID := make(map[string]langdetect.Recipe, len(langdetect.DefaultRecipes))
	order := make([]string, 0, len(langdetect.DefaultRecipes))
	for _, r := range langdetect.DefaultRecipes {
		byID[r.ID] = r
		order = append(order, r.ID)
	}
	for _, o := range c.RecipeOverrides {
		rec := langdetect.Recipe{
			ID:             o.ID,
			DisplayName:    o.DisplayName,
			Extensions:     o.Extensions,
			Command:        o.Command,
			Args:           o.Args,
			ContainerArgs:  o.ContainerArgs,
			InitOptions:    o.InitOptions,
			PackageManager: o.PackageManager,
		}
		if _, exists := byID[o.ID]; !exists {
			order = append(order, o.ID)
		}
		byID[o.ID] = rec
	}
	out := make([]langdetect.Recipe, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out
}
