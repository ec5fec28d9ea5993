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
	"fmt"

	"github.com/uptrace/bun"
)

// Client owns the process-wide database handle. It is created once at
// startup by Open or Bootstrap and handed to whatever needs the database.
type Client struct {
	config     *Config
	dataSource *DataSource
	manager    AbstractDatabaseManager
	registry   ModelRegistry
	logger     Logger
}

type ClientOption func(*Client)

// WithLogger replaces the default logrus-backed logger.
func WithLogger(logger Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRegistry makes the client use r instead of the default model registry.
func WithRegistry(r ModelRegistry) ClientOption {
	return func(c *Client) {
		if r != nil {
			c.registry = r
		}
	}
}

// Bootstrap loads the configuration and opens the client. It is the whole
// startup sequence: any error here is meant to stop the process.
func Bootstrap(ctx context.Context, loadOpts []LoadOption, opts ...ClientOption) (*Client, error) {
	cfg, err := LoadConfig(loadOpts...)
	if err != nil {
		return nil, err
	}
	return Open(ctx, cfg, opts...)
}

// Open connects to the database described by cfg and returns its Client.
// Nothing is constructed when the URL is missing.
func Open(ctx context.Context, cfg *Config, opts ...ClientOption) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ds, err := parseDatabaseURL(cfg.ConnectionConfig.URL, &cfg.ConnectionConfig)
	if err != nil {
		return nil, err
	}

	c := &Client{
		config:     cfg,
		dataSource: ds,
		registry:   defaultRegistry,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		l := NewDefaultLogger()
		if cfg.LogLevel != "" {
			l.SetLevel(parseLogLevel(cfg.LogLevel))
		}
		c.logger = l
	}

	c.manager = NewDatabaseManager(ds, &cfg.ConnectionConfig)
	c.manager.SetLogger(c.logger)
	if err := c.manager.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	c.DB().RegisterModel(modelInstances(c.registry)...)

	if cfg.SchemaConfig.CreateOnStartup {
		if err := c.EnsureSchema(ctx); err != nil {
			_ = c.Close()
			return nil, err
		}
	}
	c.logger.Info("Database client ready", "type", ds.Type, "models", len(c.registry.Models()))
	return c, nil
}

// DB returns the bun handle. The same handle is returned for the life of the
// client; it is nil after Close.
func (c *Client) DB() *bun.DB {
	return c.manager.GetDB()
}

// SQLDB returns the underlying database/sql pool.
func (c *Client) SQLDB() *sql.DB {
	return c.manager.GetSQLDB()
}

func (c *Client) Config() *Config {
	return c.config
}

// DataSource returns the resolved DATABASE_URL.
func (c *Client) DataSource() *DataSource {
	return c.dataSource
}

func (c *Client) Ping(ctx context.Context) error {
	return c.manager.Ping(ctx)
}

func (c *Client) Health(ctx context.Context) *HealthStatus {
	return c.manager.HealthCheck(ctx)
}

func (c *Client) Stats() *DBStats {
	return c.manager.GetStats()
}

// EnsureSchema creates the registered tables that do not exist yet.
func (c *Client) EnsureSchema(ctx context.Context) error {
	db := c.DB()
	if db == nil {
		return ErrNotConnected
	}
	if err := EnsureSchema(ctx, db, modelInstances(c.registry)...); err != nil {
		return err
	}
	c.logger.Info("Database schema ensured", "tables", len(c.registry.Models()))
	return nil
}

// SchemaDDL renders the CREATE TABLE statements for the registered models in
// the connected dialect.
func (c *Client) SchemaDDL() ([]string, error) {
	db := c.DB()
	if db == nil {
		return nil, ErrNotConnected
	}
	return SchemaDDL(db, modelInstances(c.registry)...)
}

// Close releases the handle. It is safe to call more than once.
func (c *Client) Close() error {
	return c.manager.Disconnect()
}

func parseLogLevel(s string) LogLevel {
	switch s {
	case "trace", "debug":
		return LogLevelDebug
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}
