package testdb

import (
	"os"

	"github.com/phrazzld/mindpalace/internal/redact"
)

// Environment variables checked for a test database URL, in order.
const (
	EnvDatabaseURL        = "DATABASE_URL"
	EnvTestDatabaseURL    = "MINDPALACE_TEST_DB_URL"
	EnvStorageDatabaseURL = "MINDPALACE_STORAGE_DATABASE_URL"
)

var databaseURLVars = []string{EnvDatabaseURL, EnvTestDatabaseURL, EnvStorageDatabaseURL}

// GetTestDatabaseURL returns the first non-empty database URL from the
// environment, or "" when none is set.
func GetTestDatabaseURL() string {
	for _, name := range databaseURLVars {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// ShouldSkipDatabaseTest reports whether no test database is configured.
func ShouldSkipDatabaseTest() bool {
	return GetTestDatabaseURL() == ""
}

// MaskDatabaseURL hides credentials in dbURL so it can be logged.
func MaskDatabaseURL(dbURL string) string {
	if dbURL == "" {
		return ""
	}
	return redact.String(dbURL)
}
