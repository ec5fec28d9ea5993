/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// EnvDatabaseURL names the required connection string variable.
	EnvDatabaseURL = "DATABASE_URL"
	// EnvConfigFile names the optional YAML tuning file variable.
	EnvConfigFile = "DATABASE_CONFIG"
)

type LoadOption func(*loadOptions)

type loadOptions struct {
	envFiles   []string
	configFile string
}

// WithEnvFiles loads the given dotenv files before reading the environment.
// Variables already present in the process environment win.
func WithEnvFiles(paths ...string) LoadOption {
	return func(o *loadOptions) {
		o.envFiles = paths
	}
}

// WithConfigFile overlays a YAML tuning file on top of the defaults.
func WithConfigFile(path string) LoadOption {
	return func(o *loadOptions) {
		o.configFile = path
	}
}

// LoadConfig builds a Config from defaults, an optional YAML file and the
// environment, in that order of precedence (lowest first). It fails with
// ErrMissingConfig when DATABASE_URL is absent or blank.
func LoadConfig(opts ...LoadOption) (*Config, error) {
	options := &loadOptions{envFiles: []string{".env"}}
	for _, opt := range opts {
		opt(options)
	}

	if err := loadEnvFiles(options.envFiles); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()

	configFile := options.configFile
	if configFile == "" {
		configFile = os.Getenv(EnvConfigFile)
	}
	if configFile != "" {
		if err := loadConfigFile(configFile, cfg); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	cfg.ConnectionConfig.URL = strings.TrimSpace(cfg.ConnectionConfig.URL)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEnvFiles(paths []string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load env file %s: %w", path, err)
		}
	}
	return nil
}

func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// Validate checks that the URL is present and that tuning values are sane.
func (c *Config) Validate() error {
	if c == nil || strings.TrimSpace(c.ConnectionConfig.URL) == "" {
		return missingConfig(EnvDatabaseURL)
	}
	if err := validator.New().Struct(c); err != nil {
		return &ConfigError{Key: "database config", Err: err}
	}
	return nil
}
