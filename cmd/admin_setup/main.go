package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/greenfield-academy/website/internal/auth"
	"github.com/greenfield-academy/website/internal/config"
	"github.com/greenfield-academy/website/internal/db"
	"github.com/greenfield-academy/website/pkg"
)

// creates or resets the admin login
func main() {
	fmt.Println("starting admin setup ...")

	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	envFile := flag.String("env-file", ".env", "optional file with secrets, loaded into the process env")
	username := flag.String("username", "admin", "admin username")
	password := flag.String("password", "", "admin password (or ACADEMY_ADMIN_PASSWORD env var)")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		fmt.Printf("load env file [%s]: %s\n", *envFile, err)
	}

	if *password == "" {
		*password = os.Getenv("ACADEMY_ADMIN_PASSWORD")
	}
	if *username == "" || *password == "" {
		fmt.Println("username and password must be set")
		os.Exit(1)
	}

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		panic(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	id, err := setupAdmin(ctx, cfg, *username, *password)
	if err != nil {
		fmt.Printf("admin setup failed: %s\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nadmin setup completed, credential id: %s\n", id)
}

func setupAdmin(ctx context.Context, cfg *config.Config, username, password string) (string, error) {
	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:     cfg.PostgresHost,
		DBPort:     cfg.PostgresPort,
		DBName:     cfg.PostgresDBName,
		DBUser:     cfg.PostgresUser,
		DBPassword: os.Getenv("ACADEMY_DB_PASS"),
	})
	if err != nil {
		return "", fmt.Errorf("new db pool: %w", err)
	}
	defer dbPool.Close()

	if err := db.Migrate(ctx, dbPool); err != nil {
		return "", fmt.Errorf("migrate: %w", err)
	}

	hash, err := pkg.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	cred, err := auth.NewCredentialsRepo(dbPool).Upsert(ctx, username, hash)
	if err != nil {
		return "", fmt.Errorf("upsert credential: %w", err)
	}
	return cred.ID, nil
}
