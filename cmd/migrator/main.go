package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/linemk/clothing-shop/internal/config"
	"github.com/linemk/clothing-shop/internal/lib/logger"
	"github.com/linemk/clothing-shop/internal/lib/logger/sl"
)

// postgresDSN собирает строку подключения; extra добавляется к параметрам запроса
func postgresDSN(dbCfg config.DatabaseConfig, extra string) string {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		dbCfg.User, dbCfg.Password, dbCfg.Host, dbCfg.Port, dbCfg.Name)
	if extra != "" {
		dsn += "&" + extra
	}
	return dsn
}

func main() {
	var configPath, migrationsPath, table string
	var down bool
	flag.StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"), "path to config file")
	flag.StringVar(&migrationsPath, "migrations-path", "", "path to migration files (overrides config)")
	flag.StringVar(&table, "migrations-table", "migrations", "name of migrations table")
	flag.BoolVar(&down, "down", false, "roll back all migrations instead of applying them")
	flag.Parse()

	if configPath == "" {
		fmt.Fprintln(os.Stderr, "config path is required: -config or CONFIG_PATH")
		os.Exit(1)
	}
	cfg := config.MustLoadByPath(configPath)
	log := logger.SetupLogger(cfg.Env, os.Stdout)

	if migrationsPath == "" {
		migrationsPath = cfg.Migrations.Path
	}
	// пароль приходит из DB_PASSWORD через cleanenv
	if cfg.Database.Password == "" {
		log.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	log = log.With(
		slog.String("source", migrationsPath),
		slog.String("database", fmt.Sprintf("%s:%d/%s", cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)),
	)

	m, err := migrate.New("file://"+migrationsPath, postgresDSN(cfg.Database, "x-migrations-table="+table))
	if err != nil {
		log.Error("failed to create migrate instance", sl.Err(err))
		os.Exit(1)
	}
	defer m.Close()

	apply, direction := m.Up, "up"
	if down {
		apply, direction = m.Down, "down"
	}
	switch err := apply(); {
	case errors.Is(err, migrate.ErrNoChange):
		log.Info("no migrations to apply", slog.String("direction", direction))
	case err != nil:
		log.Error("migration failed", slog.String("direction", direction), sl.Err(err))
		os.Exit(1)
	default:
		version, dirty, _ := m.Version()
		log.Info("migrations applied",
			slog.String("direction", direction),
			slog.Uint64("version", uint64(version)),
			slog.Bool("dirty", dirty),
		)
	}

	if err := listTables(log, postgresDSN(cfg.Database, "")); err != nil {
		log.Error("failed to list tables", sl.Err(err))
		os.Exit(1)
	}
}

// listTables печатает таблицы схемы public
func listTables(log *slog.Logger, dsn string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(`SELECT table_name FROM information_schema.tables
		WHERE table_schema = 'public' ORDER BY table_name`)
	if err != nil {
		return fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error reading rows: %w", err)
	}

	log.Info("current tables", slog.Any("tables", tables))
	return nil
}
