package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/tapcards-backend/pkg/config"
	"github.com/angelmondragon/tapcards-backend/pkg/db"
	"github.com/angelmondragon/tapcards-backend/pkg/db/models"
	"github.com/angelmondragon/tapcards-backend/pkg/logger"
	"github.com/angelmondragon/tapcards-backend/pkg/migrate"
)

type dbCommand func(ctx context.Context, client *db.Client, sqlDB *sql.DB) error

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: up|down|status|version|create|validate")
	dir := flag.String("dir", migrate.DefaultDir, "goose migrations directory")
	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	// create and validate only touch the migrations directory.
	switch *cmd {
	case "create":
		if *name == "" {
			exit("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(*dir, *name)
		if err != nil {
			exit("failed to create migration: %v", err)
		}
		fmt.Println("created migration:", path)
		return
	case "validate":
		if err := migrate.ValidateDir(*dir); err != nil {
			exit("migration validation failed: %v", err)
		}
		fmt.Println("migration validation passed")
		return
	}

	commands := map[string]dbCommand{
		"up": func(ctx context.Context, client *db.Client, sqlDB *sql.DB) error {
			if client.Dialect() != migrate.DialectPostgres {
				return client.DB().WithContext(ctx).AutoMigrate(models.All()...)
			}
			return migrate.Run(ctx, sqlDB, *dir, "up")
		},
		"down": postgresOnly(func(ctx context.Context, sqlDB *sql.DB) error {
			return migrate.Run(ctx, sqlDB, *dir, "down")
		}),
		"status": postgresOnly(func(ctx context.Context, sqlDB *sql.DB) error {
			return migrate.Run(ctx, sqlDB, *dir, "status")
		}),
		"version": postgresOnly(func(ctx context.Context, sqlDB *sql.DB) error {
			if *version == "" {
				return fmt.Errorf("missing -version for version command")
			}
			return migrate.MigrateToVersion(ctx, sqlDB, *dir, *version)
		}),
	}
	run, ok := commands[*cmd]
	if !ok {
		exit("unknown -cmd value %q (want one of %s, create, validate)", *cmd, strings.Join(commandNames(commands), ", "))
	}

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmd,
		"dir": *dir,
	})

	dbClient, err := db.New(ctx, cfg.DB, db.Options{UseSQLite: cfg.FeatureFlags.UseSQLite}, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	requireResource(ctx, logg, "sql database", err)

	logg.Info(ctx, "migrate ready")
	if err := run(ctx, dbClient, sqlDB); err != nil {
		logg.Error(ctx, "migration command failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "migration command completed")
}

func postgresOnly(fn func(ctx context.Context, sqlDB *sql.DB) error) dbCommand {
	return func(ctx context.Context, client *db.Client, sqlDB *sql.DB) error {
		if client.Dialect() != migrate.DialectPostgres {
			return fmt.Errorf("command requires postgres, connected to %s", client.Dialect())
		}
		return fn(ctx, sqlDB)
	}
}

func commandNames(commands map[string]dbCommand) []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func exit(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
