package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/cheluen/new-api-workers/internal/auth"
	"github.com/cheluen/new-api-workers/internal/config"
	"github.com/cheluen/new-api-workers/internal/domain"
	"github.com/cheluen/new-api-workers/internal/storage"
)

// keygen mints a relay API key, stores its hash in the tokens table, and
// prints the key once. The plaintext is never persisted.
func main() {
	name := flag.String("name", "default", "token display name")
	account := flag.Int64("account", 0, "account id the token debits against")
	quota := flag.Int64("quota", 0, "prepaid quota, 0 means unlimited")
	models := flag.String("models", "", "comma-delimited model allow-list, empty admits every model")
	expires := flag.Duration("expires", 0, "lifetime from now, 0 means never")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("NAW_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := storage.Open(storage.Config{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.DSN,
	})
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	apiKey, err := auth.GenerateKey()
	if err != nil {
		log.Fatalf("Failed to generate key: %v", err)
	}

	token := &domain.Token{
		AccountID: *account,
		Name:      *name,
		KeyHash:   auth.HashKey(apiKey),
		Status:    domain.TokenStatusEnabled,
		Quota:     *quota,
		Models:    *models,
	}
	if *expires > 0 {
		t := time.Now().UTC().Add(*expires)
		token.ExpiresAt = &t
	}

	id, err := auth.NewSQL(db).CreateToken(context.Background(), token)
	if err != nil {
		log.Fatalf("Failed to create token: %v", err)
	}

	fmt.Printf("Token ID: %d\n", id)
	fmt.Printf("API Key:  %s\n", apiKey)
	fmt.Println("\nStore the key now; only its hash is kept in the database.")
}
