// Package testdb provides helpers for tests that need a real PostgreSQL
// database. Tests using it skip themselves when no database URL is
// configured, so the default unit test run never needs a database.
package testdb
