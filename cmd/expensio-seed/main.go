// Command expensio-seed bootstraps the first admin account so a fresh
// deployment has someone who can approve expenses.
package main

import (
	"context"
	"errors"
	"os"

	"github.com/joho/godotenv"

	"expensio/internal/config"
	"expensio/internal/core"
	applog "expensio/internal/log"
	"expensio/internal/service"
	"expensio/internal/storage"
)

func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	email := os.Getenv("ADMIN_EMAIL")
	name := os.Getenv("ADMIN_NAME")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		logger.Error("ADMIN_EMAIL and ADMIN_PASSWORD are required")
		os.Exit(1)
	}
	if name == "" {
		name = "Administrator"
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	users := service.NewUserService(repo)

	ctx := context.Background()
	u, err := users.Register(ctx, service.RegisterInput{
		Email:    email,
		Name:     name,
		Password: password,
		Role:     core.RoleAdmin,
	})
	if err != nil {
		var ve *core.ValidationError
		if errors.As(err, &ve) && len(ve.Fields) == 1 && ve.Fields[0].Field == "email" &&
			ve.Fields[0].Message == "email is already registered" {
			logger.Info("Admin account already exists", "email", email)
			return
		}
		logger.Error("Failed to create admin account", "error", err)
		os.Exit(1)
	}

	logger.Info("Admin account created", "user_id", u.ID, "email", u.Email)
}
