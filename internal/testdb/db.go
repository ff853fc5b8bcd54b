package testdb

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/phrazzld/mindpalace/internal/platform/postgres"
	"github.com/stretchr/testify/require"
)

// TestTimeout bounds connection checks and migrations.
const TestTimeout = 10 * time.Second

// GetTestDBWithT opens the test database, applies migrations and closes the
// connection when the test ends. The test is skipped when no database URL is
// configured.
func GetTestDBWithT(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := GetTestDatabaseURL()
	if dbURL == "" {
		t.Skipf("%s or %s not set, skipping integration test", EnvDatabaseURL, EnvTestDatabaseURL)
	}

	db, err := sql.Open("pgx", dbURL)
	require.NoError(t, err, "failed to open database connection")

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("warning: failed to close database connection: %v", err)
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	require.NoError(t, db.PingContext(ctx), "database ping failed for %s", MaskDatabaseURL(dbURL))
	require.NoError(t, postgres.Migrate(ctx, db, nil), "failed to apply migrations")

	return db
}

// UniquePalaceID returns a palace ID that does not collide with other test
// runs. The palace and its cards are deleted when the test ends.
func UniquePalaceID(t *testing.T, db *sql.DB) string {
	t.Helper()

	id := fmt.Sprintf("test-%s-%d", t.Name(), time.Now().UnixNano())
	t.Cleanup(func() {
		if _, err := db.Exec(`DELETE FROM palaces WHERE id = $1`, id); err != nil {
			t.Logf("warning: failed to delete test palace %s: %v", id, err)
		}
	})
	return id
}
