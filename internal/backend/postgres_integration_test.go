package backend_test

import (
	"context"
	"os"
	"testing"

	"livestock-purchasing/internal/backend"
	"livestock-purchasing/internal/core"
	"livestock-purchasing/internal/db"
	"livestock-purchasing/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	_ = godotenv.Load("../../.env")

	// Never point this at the live database; the tables are truncated.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if _, err := db.Migrate(ctx, pool, migrations.FS); err != nil {
		t.Fatalf("Failed to apply migrations: %v", err)
	}

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE purchase_details, purchase_headers, master_options CASCADE;

		INSERT INTO master_options (kind, value, label, sort_order) VALUES
		('bank', 'B2', 'Bank Dua', 2),
		('bank', 'B1', 'Bank Satu', 1),
		('office', 'OFF-1', 'Kantor Pusat', 0);
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}
	return pool
}

func TestPostgresStore_Contract(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	runStoreContract(t, backend.NewPostgresStore(pool))
}

func TestPostgresStore_ListOptions(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	store := backend.NewPostgresStore(pool)
	opts, err := store.ListOptions(context.Background(), core.OptionBank)
	if err != nil {
		t.Fatal(err)
	}
	if len(opts) != 2 || opts[0].Value != "B1" || opts[1].Label != "Bank Dua" {
		t.Errorf("bank options = %+v", opts)
	}
}
