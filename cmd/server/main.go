package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/matthewbaird/landbank/internal/eventbus"
	"github.com/matthewbaird/landbank/internal/handler"
	"github.com/matthewbaird/landbank/internal/schedule"
	"github.com/matthewbaird/landbank/internal/seed"
	"github.com/matthewbaird/landbank/internal/server"
	"github.com/matthewbaird/landbank/internal/store"
	"github.com/matthewbaird/landbank/internal/worker"
)

// openDatabase selects the driver from the DSN: postgres URLs go to lib/pq,
// everything else to SQLite.
func openDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return sql.Open("postgres", dsn)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	// SQLite needs foreign keys enabled explicitly.
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalog := schedule.Default()
	if err := catalog.Validate(); err != nil {
		log.Fatalf("invalid schedule catalog: %v", err)
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = "file:landbank.db?_pragma=foreign_keys(1)"
	}
	db, err := openDatabase(ctx, dsn)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	st := store.NewSQLStore(db)
	if err := st.Migrate(ctx); err != nil {
		log.Fatalf("running schema migration: %v", err)
	}
	log.Println("database migrated successfully")

	if os.Getenv("SEED") == "true" {
		if err := seed.Seed(ctx, st); err != nil {
			log.Fatalf("seeding demo data: %v", err)
		}
	}

	live := handler.NewLiveFeed(st, catalog)

	bus := eventbus.New(256)
	bus.Subscribe("log", eventbus.NewLogConsumer())
	bus.Subscribe("mirror", eventbus.NewMirrorConsumer(st, catalog))
	bus.Subscribe("live", live)
	bus.Start(ctx)
	defer bus.Stop()

	sweepInterval := time.Hour
	if v := os.Getenv("SWEEP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			sweepInterval = d
		}
	}
	go worker.NewSweep(st, bus, catalog, sweepInterval).Run(ctx)

	port := 8080
	if p := os.Getenv("PORT"); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	if err := server.Run(ctx, server.Config{
		Port:     port,
		Store:    st,
		Bus:      bus,
		Catalog:  catalog,
		LiveFeed: live,
	}); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
