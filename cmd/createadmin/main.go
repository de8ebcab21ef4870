package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/certigo/certigo/internal/adapter/persistence"
	"github.com/certigo/certigo/internal/domain"
	"github.com/certigo/certigo/internal/service/password"
)

// Bootstraps the first admin account so the internal panel can be used.
func main() {
	username := flag.String("username", "", "admin username")
	pass := flag.String("password", "", "admin password (min 8 characters)")
	flag.Parse()

	if *username == "" || len(*pass) < 8 {
		log.Fatal("usage: createadmin -username <name> -password <min 8 chars>")
	}

	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	hash, err := password.NewBcryptService(0).HashPassword(*pass)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	op := &domain.Operator{
		Username:     *username,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		Active:       true,
		CreatedAt:    time.Now(),
	}
	if err := persistence.NewOperatorRepository(db).Create(ctx, op); err != nil {
		log.Fatalf("failed to create admin: %v", err)
	}

	log.Printf("admin %q created with id %d", op.Username, op.ID)
}
