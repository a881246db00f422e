// Package main runs goose SQL migrations against the configured database.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"stocklot/internal/config"
)

const defaultDir = "migrations"

func main() {
	cmd := flag.String("cmd", "up", "migration command: up|down|status|version")
	dir := flag.String("dir", defaultDir, "goose migrations directory")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to set goose dialect: %v\n", err)
		os.Exit(1)
	}

	if err := goose.RunContext(context.Background(), *cmd, db, *dir, flag.Args()...); err != nil {
		fmt.Fprintf(os.Stderr, "goose %s: %v\n", *cmd, err)
		os.Exit(1)
	}
}
