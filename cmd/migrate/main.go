package main

import (
	"fmt"
	"os"

	"github.com/usagesentry/usagesentry/internal/config"
	"github.com/usagesentry/usagesentry/internal/repository/postgres"
	"github.com/usagesentry/usagesentry/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	db, err := postgres.New(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	fmt.Println("Connected to database successfully")

	if err := postgres.RunMigrations(db, migrations.GetFS()); err != nil {
		fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("All migrations completed successfully")
}
