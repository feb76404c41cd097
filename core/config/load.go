package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

// DefaultDir returns the per-user configuration directory.
func DefaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "pipesh")
}

// Load loads the configuration from the directory.
func Load(path string) (*Configuration, error) {
	// If given the path to a config.yaml file, move back up a level.
	if filepath.Base(path) == ConfigurationName {
		path = filepath.Dir(path)
	}

	configFs := afero.NewBasePathFs(afero.NewOsFs(), path)
	configContents, err := afero.ReadFile(configFs, ConfigurationName)
	if err != nil {
		return nil, err
	}
	var out Configuration
	if err := yaml.UnmarshalStrict(configContents, &out); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ConfigurationName, err)
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", ConfigurationName, err)
	}
	out.configFs = configFs
	out.configDir = path
	return &out, nil
}

// Initialize writes the default configuration to dir and loads it.
func Initialize(dir string, logger *log.Logger) (*Configuration, error) {
	dirFs := afero.NewOsFs()
	if err := dirFs.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	configFs := afero.NewBasePathFs(dirFs, dir)
	if ok, _ := afero.Exists(configFs, ConfigurationName); ok {
		logger.Printf("Using existing %s in %s\n", ConfigurationName, dir)
	} else {
		logger.Printf("Writing %s to %s\n", ConfigurationName, dir)
		if err := afero.WriteFile(configFs, ConfigurationName, defaultConfigData, 0600); err != nil {
			return nil, err
		}
	}

	cfg, err := Load(dir)
	if err != nil {
		return nil, err
	}

	if cfg.RCFile != "" {
		if ok, _ := afero.Exists(configFs, cfg.RCFile); !ok {
			logger.Printf("Writing empty %s\n", cfg.RCFile)
			rc := []byte("# Variables set when pipesh starts, one NAME=value per line.\n")
			if err := afero.WriteFile(configFs, cfg.RCFile, rc, 0600); err != nil {
				return nil, err
			}
		}
	}

	return cfg, nil
}
