// Command migrate manages the catalog schema.
//
//	migrate -command up|down|status
//	migrate -command create -name add_card_index [-dialect sqlite]
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"

	"github.com/JonMunkholm/collector/internal/config"
	"github.com/JonMunkholm/collector/internal/store/connect"
	"github.com/JonMunkholm/collector/internal/store/migrations"
)

const migrationsDir = "internal/store/migrations"

func main() {
	var (
		command = flag.String("command", "up", "Migration command: up, down, status, create")
		name    = flag.String("name", "", "Name for 'create' command")
		dialect = flag.String("dialect", migrations.Postgres, "Dialect directory for 'create': postgres or sqlite")
	)
	flag.Parse()

	_ = godotenv.Load()

	if *command == "create" {
		if *name == "" {
			log.Fatal("Name is required for 'create' command")
		}
		if *dialect != migrations.Postgres && *dialect != migrations.SQLite {
			log.Fatalf("Unknown dialect: %s. Use: postgres, sqlite", *dialect)
		}
		if err := goose.Create(nil, filepath.Join(migrationsDir, *dialect), *name, "sql"); err != nil {
			log.Fatalf("Failed to create migration: %v", err)
		}
		fmt.Printf("Migration created: %s\n", *name)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	db, dbDialect, closeDB, err := connect.OpenSQL(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB()

	provider, err := migrations.NewProvider(dbDialect, db)
	if err != nil {
		log.Fatalf("Failed to load migrations: %v", err)
	}

	switch *command {
	case "up":
		results, err := provider.Up(ctx)
		if err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		fmt.Printf("Migrations applied successfully (%d)\n", len(results))
	case "down":
		if _, err := provider.Down(ctx); err != nil {
			log.Fatalf("Failed to rollback migration: %v", err)
		}
		fmt.Println("Migration rolled back successfully")
	case "status":
		statuses, err := provider.Status(ctx)
		if err != nil {
			log.Fatalf("Failed to check migration status: %v", err)
		}
		for _, s := range statuses {
			applied := "pending"
			if s.State == goose.StateApplied {
				applied = "applied " + s.AppliedAt.Format("2006-01-02 15:04:05")
			}
			fmt.Printf("%5d  %-40s  %s\n", s.Source.Version, filepath.Base(s.Source.Path), applied)
		}
	default:
		log.Fatalf("Unknown command: %s. Use: up, down, status, create", *command)
	}
}
