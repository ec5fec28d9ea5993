// Package models declares the persisted tables as bun models.
package models
