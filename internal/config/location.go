package config

import (
	"os"
	"path/filepath"
)

// ConfigEnvVar overrides the config file location.
const ConfigEnvVar = "PLANPOOL_CONFIG"

// GetConfigPath returns the configuration file path: $PLANPOOL_CONFIG if
// set, otherwise ~/.planpool/config.
func GetConfigPath() (string, error) {
	if configPath := os.Getenv(ConfigEnvVar); configPath != "" {
		return configPath, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, ".planpool", "config"), nil
}
