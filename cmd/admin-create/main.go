package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/tapcards-backend/internal/auth"
	"github.com/angelmondragon/tapcards-backend/pkg/config"
	"github.com/angelmondragon/tapcards-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/tapcards-backend/pkg/errors"
	"github.com/angelmondragon/tapcards-backend/pkg/logger"
	"github.com/angelmondragon/tapcards-backend/pkg/validation"
)

// The password is read from TAPCARDS_ADMIN_PASSWORD so it stays out of shell history.
const passwordEnv = "TAPCARDS_ADMIN_PASSWORD"

func main() {
	name := flag.String("name", "", "administrator display name")
	email := flag.String("email", "", "administrator login email")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "admin-create"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	req := auth.AdminRegisterRequest{
		Name:     *name,
		Email:    *email,
		Password: os.Getenv(passwordEnv),
	}
	if err := validation.Check(&req); err != nil {
		logCtx := logg.WithField(context.Background(), "fields", pkgerrors.As(err).FieldErrors())
		logg.Error(logCtx, "invalid administrator details; pass -name, -email and set "+passwordEnv, err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	dbClient, err := db.New(ctx, cfg.DB, db.Options{UseSQLite: cfg.FeatureFlags.UseSQLite}, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	svc, err := auth.NewAdminRegisterService(auth.AdminRegisterServiceParams{
		DB:             dbClient,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(ctx, "failed to create admin register service", err)
		os.Exit(1)
	}

	user, err := svc.Register(ctx, req)
	if err != nil {
		logg.Error(ctx, "failed to create administrator", err)
		os.Exit(1)
	}

	logCtx := logg.WithFields(ctx, map[string]any{"user_id": user.ID, "email": user.Email})
	logg.Info(logCtx, "administrator created")
}
