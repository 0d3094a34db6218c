package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	webAdapter "livestock-purchasing/internal/adapters/web"
	"livestock-purchasing/internal/backend"
	"livestock-purchasing/internal/db"
	"livestock-purchasing/migrations"

	"github.com/joho/godotenv"
)

func main() {
	tokenFor := flag.String("token-for", "", "print a bearer token for this subject and exit")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of the token printed by -token-for")
	migrate := flag.Bool("migrate", false, "apply database migrations before serving")
	flag.Parse()

	_ = godotenv.Load()
	jwtSecret := os.Getenv("JWT_SECRET")

	if *tokenFor != "" {
		token, err := webAdapter.IssueToken(jwtSecret, *tokenFor, "clerk", *tokenTTL)
		if err != nil {
			log.Fatalf("token: %v", err)
		}
		fmt.Println(token)
		return
	}

	ctx := context.Background()
	var store backend.Store
	if url := os.Getenv("DATABASE_URL"); url == "" {
		log.Println("Warning: DATABASE_URL is not set, purchases are kept in memory")
		store = backend.NewMemoryStore()
	} else {
		pool, err := db.NewPool(ctx, url)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer pool.Close()
		if *migrate {
			if _, err := db.Migrate(ctx, pool, migrations.FS); err != nil {
				log.Fatalf("migrate: %v", err)
			}
		}
		store = backend.NewPostgresStore(pool)
	}

	svc := backend.NewService(store, nil)

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	handler := webAdapter.NewHandler(svc, allowedOrigins, jwtSecret)

	log.Printf("server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("server: %v", err)
	}
}
