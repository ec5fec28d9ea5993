// Package database bootstraps the bun client from DATABASE_URL and holds the
// supporting pieces: configuration loading, URL resolution, the connection
// manager, the model registry, DDL generation, SQL error classification,
// and logging.
package database
