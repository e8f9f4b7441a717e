package main

import (
	"log"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"gothresh/adapters/postgres"
	"gothresh/internal/config"
	"gothresh/internal/logx"
	"gothresh/ports"
	"gothresh/ui"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}
	logger := logx.NewDefaultLogger()

	var repo ports.RunRepository
	if cfg.Database.URL != "" {
		db, err := sqlx.Connect("postgres", cfg.Database.URL)
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		defer db.Close()
		if err := postgres.EnsureSchema(db); err != nil {
			log.Fatalf("failed to prepare schema: %v", err)
		}
		repo = postgres.NewRunRepository(db)
	} else {
		logger.Warn("DATABASE_URL not set, runs will not be persisted")
	}

	apiApp := ui.NewApp(repo, logger)
	addr := ":" + cfg.Server.Port
	logger.Info("API listening on %s", addr)
	if err := http.ListenAndServe(addr, apiApp.Router()); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
