// Package config wraps the viper configuration singleton for trackd.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var v *viper.Viper

// Initialize sets up the viper configuration singleton.
// Should be called once at application startup.
//
// Precedence: flags (handled by the caller) > environment > config file > defaults.
func Initialize() error {
	v = viper.New()

	v.SetConfigName("trackd")
	v.SetConfigType("yaml")

	// Config search paths: CWD, then user config dir (~/.config/trackd/)
	if cwd, err := os.Getwd(); err == nil {
		v.AddConfigPath(cwd)
	}
	if configDir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(configDir, "trackd"))
	}

	// Automatic environment variable binding: TRACKD_LISTEN, TRACKD_DB,
	// TRACKD_JWT_SECRET, TRACKD_LOG_FILE, ...
	v.SetEnvPrefix("TRACKD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen", ":7000")
	v.SetDefault("db", "")
	v.SetDefault("jwt-secret", "")
	v.SetDefault("jwt-ttl", 7*24*time.Hour)
	v.SetDefault("log-file", "")
	v.SetDefault("log-level", "info")
	v.SetDefault("cors-origin", "*")

	// Read config file if it exists (don't error if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// GetString retrieves a string configuration value
func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// GetBool retrieves a boolean configuration value
func GetBool(key string) bool {
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

// GetDuration retrieves a duration configuration value
func GetDuration(key string) time.Duration {
	if v == nil {
		return 0
	}
	return v.GetDuration(key)
}

// Set sets a configuration value
func Set(key string, value interface{}) {
	if v != nil {
		v.Set(key, value)
	}
}

// AllSettings returns all configuration settings as a map
func AllSettings() map[string]interface{} {
	if v == nil {
		return map[string]interface{}{}
	}
	return v.AllSettings()
}
