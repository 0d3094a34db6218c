package main

import (
	"context"
	"log"
	"os"
	"time"

	"livestock-purchasing/internal/db"
	"livestock-purchasing/migrations"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := db.NewPool(ctx, os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatalf("[CONNECT] %v", err)
	}
	defer pool.Close()

	applied, err := db.Migrate(ctx, pool, migrations.FS)
	if err != nil {
		log.Fatalf("[ERROR] %v", err)
	}
	log.Printf("[DONE] %d migration(s) applied.", len(applied))
}
