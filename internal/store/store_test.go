// store_test.go provides shared test helpers for the store tests: a fake
// blog API for the remote stores and a test database for the activity log.
// Database tests are skipped if PostgreSQL is not available.
package store

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"

	"blogdash/internal/api"
	"blogdash/internal/apitest"
	"blogdash/internal/database"
	"blogdash/internal/models"
)

// testDSN returns the PostgreSQL connection string for testing.
// Uses environment variables with defaults matching docker-compose.yml.
func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "blogdash")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "blogdash")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test database and runs migrations.
// If the database is unavailable, the test is skipped.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("pgx", testDSN())
	if err != nil {
		t.Skipf("skipping integration test: cannot open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}

	if err := database.Migrate(context.Background(), db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// fixture is a fake API with one signed-in session per role.
type fixture struct {
	srv    *apitest.Server
	creds  *apitest.MemStore
	client *api.Client
	admin  models.User
	author models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{srv: apitest.New(t), creds: apitest.NewMemStore()}
	f.client = f.srv.Client(f.creds)
	f.admin = f.srv.AddUser("Ada Admin", "ada@example.com", "Secret123", models.RoleAdministrator)
	f.author = f.srv.AddUser("Art Author", "art@example.com", "Secret123", models.RoleAuthor)
	return f
}

// as returns a context authenticated as u.
func (f *fixture) as(t *testing.T, u models.User) context.Context {
	t.Helper()
	sessionID := "sess-" + u.ID
	if err := f.creds.SaveCredentials(context.Background(), sessionID, f.srv.Issue(u.ID)); err != nil {
		t.Fatal(err)
	}
	return api.WithSession(context.Background(), sessionID)
}
