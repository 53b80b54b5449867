package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// LocalConfigFile is the project-local developer config filename.
const LocalConfigFile = "cabal.local.toml"

// DevConfig holds developer-specific configuration that is NOT committed to
// version control. It is resolved with Viper precedence:
// CLI flags > cabal.local.toml (project-local) > ~/.cabal/config.toml (global).
type DevConfig struct {
	// CacheRoot overrides the manifest's cache root.
	CacheRoot string `toml:"cache-root" mapstructure:"cache-root"`
	// AllowInsecure permits downloads over plain http. Off by default;
	// without it, an http repository URL is a hard error at fetch time.
	AllowInsecure bool `toml:"allow-insecure" mapstructure:"allow-insecure"`
}

// LoadDevConfig resolves developer configuration using Viper's merge
// semantics. flagCacheRoot and flagAllowInsecure take highest precedence when
// set via their CLI flags.
func LoadDevConfig(flagCacheRoot string, flagAllowInsecure bool) (*DevConfig, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("determining home directory: %w", err)
	}
	globalPath := filepath.Join(home, ".cabal", "config.toml")
	return loadDevConfig(flagCacheRoot, flagAllowInsecure, globalPath, LocalConfigFile)
}

// loadDevConfig is the internal implementation that accepts explicit paths,
// making it testable without touching the real home directory.
func loadDevConfig(flagCacheRoot string, flagAllowInsecure bool, globalPath, localPath string) (*DevConfig, error) {
	v := viper.New()
	v.SetConfigType("toml")

	// Lowest priority: global config
	v.SetConfigFile(globalPath)
	// Read global config; ignore if missing.
	_ = v.ReadInConfig()

	// Higher priority: project-local config
	if _, err := os.Stat(localPath); err == nil {
		v.SetConfigFile(localPath)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", localPath, err)
		}
	}

	// Highest priority: CLI flags
	if flagCacheRoot != "" {
		v.Set("cache-root", flagCacheRoot)
	}
	if flagAllowInsecure {
		v.Set("allow-insecure", true)
	}

	cfg := &DevConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling dev config: %w", err)
	}

	return cfg, nil
}
