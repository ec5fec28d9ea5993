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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigMissingURL(t *testing.T) {
	unsetEnv(t, EnvConfigFile)

	for name, value := range map[string]string{"empty": "", "blank": "   "} {
		t.Run(name, func(t *testing.T) {
			t.Setenv(EnvDatabaseURL, value)

			cfg, err := LoadConfig(WithEnvFiles())
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.True(t, errors.Is(err, ErrMissingConfig))
			assert.EqualError(t, err, "DATABASE_URL is not defined")

			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, EnvDatabaseURL, cfgErr.Key)
		})
	}

	t.Run("unset", func(t *testing.T) {
		unsetEnv(t, EnvDatabaseURL)

		_, err := LoadConfig(WithEnvFiles())
		assert.ErrorIs(t, err, ErrMissingConfig)
	})
}

func TestLoadConfigEnvOnly(t *testing.T) {
	unsetEnv(t, EnvConfigFile)
	t.Setenv(EnvDatabaseURL, "mysql://app:secret@db:3306/app")
	t.Setenv("DB_MAX_OPEN_CONNS", "7")
	t.Setenv("DB_CONN_MAX_LIFETIME", "90s")
	t.Setenv("DB_ENABLE_QUERY_LOG", "true")
	t.Setenv("DB_CREATE_SCHEMA", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig(WithEnvFiles())
	require.NoError(t, err)

	assert.Equal(t, "mysql://app:secret@db:3306/app", cfg.ConnectionConfig.URL)
	assert.Equal(t, 7, cfg.ConnectionConfig.MaxOpenConns)
	assert.Equal(t, 90*time.Second, cfg.ConnectionConfig.ConnMaxLifetime)
	assert.True(t, cfg.ConnectionConfig.EnableQueryLog)
	assert.True(t, cfg.SchemaConfig.CreateOnStartup)
	assert.Equal(t, "debug", cfg.LogLevel)
	// untouched values keep their defaults
	assert.Equal(t, 10, cfg.ConnectionConfig.MaxIdleConns)
	assert.Equal(t, 10*time.Second, cfg.ConnectionConfig.ConnectTimeout)
}

func TestLoadConfigTrimsURL(t *testing.T) {
	unsetEnv(t, EnvConfigFile)
	t.Setenv(EnvDatabaseURL, "  sqlite://app.db \n")

	cfg, err := LoadConfig(WithEnvFiles())
	require.NoError(t, err)
	assert.Equal(t, "sqlite://app.db", cfg.ConnectionConfig.URL)
}

func TestLoadConfigFromEnvFile(t *testing.T) {
	unsetEnv(t, EnvConfigFile)
	unsetEnv(t, EnvDatabaseURL)
	unsetEnv(t, "DB_MAX_IDLE_CONNS")

	path := writeTempFile(t, ".env", "DATABASE_URL=postgres://app:secret@pg:5432/app\nDB_MAX_IDLE_CONNS=3\n")

	cfg, err := LoadConfig(WithEnvFiles(path))
	require.NoError(t, err)
	assert.Equal(t, "postgres://app:secret@pg:5432/app", cfg.ConnectionConfig.URL)
	assert.Equal(t, 3, cfg.ConnectionConfig.MaxIdleConns)
}

func TestLoadConfigEnvFileDoesNotOverrideProcessEnv(t *testing.T) {
	unsetEnv(t, EnvConfigFile)
	t.Setenv(EnvDatabaseURL, "sqlite://process.db")

	path := writeTempFile(t, ".env", "DATABASE_URL=sqlite://dotenv.db\n")

	cfg, err := LoadConfig(WithEnvFiles(path))
	require.NoError(t, err)
	assert.Equal(t, "sqlite://process.db", cfg.ConnectionConfig.URL)
}

func TestLoadConfigMissingEnvFileIsIgnored(t *testing.T) {
	unsetEnv(t, EnvConfigFile)
	t.Setenv(EnvDatabaseURL, "sqlite://app.db")

	_, err := LoadConfig(WithEnvFiles(filepath.Join(t.TempDir(), "missing.env")))
	require.NoError(t, err)
}

const testYAML = `
connection:
  max_open_conns: 5
  max_idle_conns: 2
  conn_max_lifetime: 10m
  slow_query_time: 500ms
schema:
  create_on_startup: true
log_level: warn
`

func TestLoadConfigYAMLThenEnv(t *testing.T) {
	unsetEnv(t, EnvConfigFile)
	unsetEnv(t, "DB_MAX_IDLE_CONNS")
	unsetEnv(t, "DB_CONN_MAX_LIFETIME")
	unsetEnv(t, "DB_SLOW_QUERY_TIME")
	unsetEnv(t, "DB_CREATE_SCHEMA")
	unsetEnv(t, "LOG_LEVEL")
	t.Setenv(EnvDatabaseURL, "sqlite://app.db")
	t.Setenv("DB_MAX_OPEN_CONNS", "9")

	path := writeTempFile(t, "db.yaml", testYAML)

	cfg, err := LoadConfig(WithEnvFiles(), WithConfigFile(path))
	require.NoError(t, err)

	assert.Equal(t, 9, cfg.ConnectionConfig.MaxOpenConns) // env overrides yaml
	assert.Equal(t, 2, cfg.ConnectionConfig.MaxIdleConns)
	assert.Equal(t, 10*time.Minute, cfg.ConnectionConfig.ConnMaxLifetime)
	assert.Equal(t, 500*time.Millisecond, cfg.ConnectionConfig.SlowQueryTime)
	assert.True(t, cfg.SchemaConfig.CreateOnStartup)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.ConnectionConfig.ReadTimeout)
}

func TestLoadConfigFileFromEnv(t *testing.T) {
	unsetEnv(t, "DB_MAX_OPEN_CONNS")
	t.Setenv(EnvDatabaseURL, "sqlite://app.db")
	t.Setenv(EnvConfigFile, writeTempFile(t, "db.yaml", "connection:\n  max_open_conns: 4\n"))

	cfg, err := LoadConfig(WithEnvFiles())
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.ConnectionConfig.MaxOpenConns)
}

func TestLoadConfigYAMLCannotSetURL(t *testing.T) {
	unsetEnv(t, EnvConfigFile)
	unsetEnv(t, EnvDatabaseURL)

	path := writeTempFile(t, "db.yaml", "connection:\n  url: sqlite://app.db\n")

	_, err := LoadConfig(WithEnvFiles(), WithConfigFile(path))
	assert.ErrorIs(t, err, ErrMissingConfig)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "negative pool size", key: "DB_MAX_OPEN_CONNS", value: "-1"},
		{name: "not a number", key: "DB_MAX_IDLE_CONNS", value: "many"},
		{name: "bad duration", key: "DB_CONNECT_TIMEOUT", value: "soon"},
		{name: "unknown log level", key: "LOG_LEVEL", value: "loud"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unsetEnv(t, EnvConfigFile)
			t.Setenv(EnvDatabaseURL, "sqlite://app.db")
			t.Setenv(tt.key, tt.value)

			cfg, err := LoadConfig(WithEnvFiles())
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.False(t, errors.Is(err, ErrMissingConfig))
		})
	}

	t.Run("unreadable yaml", func(t *testing.T) {
		unsetEnv(t, EnvConfigFile)
		t.Setenv(EnvDatabaseURL, "sqlite://app.db")
		path := writeTempFile(t, "db.yaml", "connection: [")

		_, err := LoadConfig(WithEnvFiles(), WithConfigFile(path))
		assert.ErrorContains(t, err, "failed to parse config file")
	})
}

func TestConfigValidate(t *testing.T) {
	var nilCfg *Config
	assert.ErrorIs(t, nilCfg.Validate(), ErrMissingConfig)
	assert.ErrorIs(t, DefaultConfig().Validate(), ErrMissingConfig)

	cfg := DefaultConfig()
	cfg.ConnectionConfig.URL = "sqlite://app.db"
	assert.NoError(t, cfg.Validate())
}
