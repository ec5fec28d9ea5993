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
	"context"
	"database/sql"
	"time"

	"github.com/uptrace/bun"
)

// AbstractDatabaseManager defines the operations for managing a single
// database connection and reporting its health.
type AbstractDatabaseManager interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Ping(ctx context.Context) error
	HealthCheck(ctx context.Context) *HealthStatus
	GetDB() *bun.DB
	GetSQLDB() *sql.DB
	GetStats() *DBStats
	SetLogger(logger Logger)
}

// HealthStatus holds the result of a health check against the database.
type HealthStatus struct {
	Healthy       bool          `json:"healthy"`
	Connected     bool          `json:"connected"`
	ResponseTime  time.Duration `json:"response_time"`
	ActiveConns   int           `json:"active_conns"`
	IdleConns     int           `json:"idle_conns"`
	MaxOpenConns  int           `json:"max_open_conns"`
	LastError     string        `json:"last_error,omitempty"`
	LastCheckTime time.Time     `json:"last_check_time"`
}

// DBStats mirrors database/sql stats returned by the manager.
type DBStats struct {
	MaxOpenConns      int           `json:"max_open_conns"`
	OpenConns         int           `json:"open_conns"`
	InUse             int           `json:"in_use"`
	Idle              int           `json:"idle"`
	WaitCount         int64         `json:"wait_count"`
	WaitDuration      time.Duration `json:"wait_duration"`
	MaxIdleClosed     int64         `json:"max_idle_closed"`
	MaxIdleTimeClosed int64         `json:"max_idle_time_closed"`
	MaxLifetimeClosed int64         `json:"max_lifetime_closed"`
}

// ConnectionConfig describes where the database lives and how to tune its pool.
// URL is only ever read from the environment.
type ConnectionConfig struct {
	URL             string        `env:"DATABASE_URL" yaml:"-" json:"-"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" yaml:"max_idle_conns" json:"max_idle_conns" validate:"gte=0"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" yaml:"max_open_conns" json:"max_open_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" yaml:"conn_max_lifetime" json:"conn_max_lifetime" validate:"gte=0"`
	ConnMaxIdleTime time.Duration `env:"DB_CONN_MAX_IDLE_TIME" yaml:"conn_max_idle_time" json:"conn_max_idle_time" validate:"gte=0"`
	ConnectTimeout  time.Duration `env:"DB_CONNECT_TIMEOUT" yaml:"connect_timeout" json:"connect_timeout" validate:"gte=0"`
	ReadTimeout     time.Duration `env:"DB_READ_TIMEOUT" yaml:"read_timeout" json:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `env:"DB_WRITE_TIMEOUT" yaml:"write_timeout" json:"write_timeout" validate:"gte=0"`
	EnableQueryLog  bool          `env:"DB_ENABLE_QUERY_LOG" yaml:"enable_query_log" json:"enable_query_log"`
	SlowQueryTime   time.Duration `env:"DB_SLOW_QUERY_TIME" yaml:"slow_query_time" json:"slow_query_time" validate:"gte=0"`
}

// SchemaConfig controls what happens to the declared tables on startup.
type SchemaConfig struct {
	CreateOnStartup bool `env:"DB_CREATE_SCHEMA" yaml:"create_on_startup" json:"create_on_startup"`
}

// Config aggregates connection, schema, and logging settings.
type Config struct {
	ConnectionConfig ConnectionConfig `yaml:"connection" json:"connection_config"`
	SchemaConfig     SchemaConfig     `yaml:"schema" json:"schema_config"`
	LogLevel         string           `env:"LOG_LEVEL" yaml:"log_level" json:"log_level" validate:"omitempty,oneof=trace debug info warn warning error"`
}

// DefaultConnectionConfig returns a connection config with sensible defaults
// and no URL.
func DefaultConnectionConfig() *ConnectionConfig {
	return &ConnectionConfig{
		MaxIdleConns:    10,
		MaxOpenConns:    100,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: time.Minute * 30,
		ConnectTimeout:  time.Second * 10,
		ReadTimeout:     time.Second * 30,
		WriteTimeout:    time.Second * 30,
		EnableQueryLog:  false,
		SlowQueryTime:   time.Second * 2,
	}
}

// DefaultConfig returns a Config populated with DefaultConnectionConfig.
func DefaultConfig() *Config {
	return &Config{
		ConnectionConfig: *DefaultConnectionConfig(),
		LogLevel:         "info",
	}
}
