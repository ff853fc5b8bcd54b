// Package postgres provides a PostgreSQL implementation of store.PalaceStore
// together with the embedded goose migrations for its schema.
package postgres
