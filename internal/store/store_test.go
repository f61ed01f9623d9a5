// store_test.go provides a shared test database helper for all store
// integration tests. Tests are skipped if PostgreSQL is not available.
package store

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"promptui/internal/database"
	"promptui/internal/models"
)

// testDSN returns the PostgreSQL connection string for testing.
// Uses environment variables with defaults matching docker-compose.yml.
func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "promptui")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "promptui")
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

// cleanUsers removes test users by email. Prompts authored by them cascade.
func cleanUsers(t *testing.T, db *sql.DB, emails ...string) {
	t.Helper()
	for _, email := range emails {
		db.Exec("DELETE FROM users WHERE email = $1", email)
	}
}

// cleanCategories removes test categories by key.
func cleanCategories(t *testing.T, db *sql.DB, keys ...string) {
	t.Helper()
	for _, key := range keys {
		db.Exec("DELETE FROM categories WHERE key = $1", key)
	}
}

// fixture creates a user and an active category for prompt tests and
// registers their cleanup.
func fixture(t *testing.T, db *sql.DB, name string) (*models.User, *models.Category) {
	t.Helper()
	ctx := context.Background()

	email := name + "@store-test.local"
	key := "store-test-" + name
	t.Cleanup(func() {
		cleanUsers(t, db, email)
		cleanCategories(t, db, key)
	})

	user, err := NewUserStore(db).Create(ctx, email, name, "pass", models.RoleUser)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	var cat *models.Category
	err = New(db).WithTx(ctx, func(tx *Tx) error {
		var err error
		cat, err = tx.InsertCategory(ctx, &models.Category{Key: key, Name: "Store Test " + name, IsActive: true})
		return err
	})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	return user, cat
}

// newPrompt returns an unsaved draft prompt owned by author.
func newPrompt(author uuid.UUID, category uuid.UUID, slug string) *models.Prompt {
	return &models.Prompt{
		Slug: slug,
		PromptContent: models.PromptContent{
			Title:      "Store Test " + slug,
			PromptText: "Build a hero banner",
			Tags:       []string{"hero", "banner"},
			CodeAssets: map[string]any{"html": "<section></section>"},
		},
		Status:         models.StatusDraft,
		CurrentVersion: 1,
		CategoryID:     category,
		AuthorID:       author,
	}
}
