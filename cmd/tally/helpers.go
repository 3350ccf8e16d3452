package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Veraticus/tally/internal/config"
	"github.com/Veraticus/tally/internal/engine"
	"github.com/Veraticus/tally/internal/llm"
	"github.com/Veraticus/tally/internal/rules"
	"github.com/Veraticus/tally/internal/service"
	"github.com/Veraticus/tally/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// app bundles the store and the services built on it for one command run.
type app struct {
	store     service.Storage
	rules     *rules.Service
	predictor *engine.HybridPredictor
	cfg       config.Engine
}

// initStorage opens the configured database and brings its schema up to
// date.
func initStorage(ctx context.Context) (service.Storage, error) {
	dbPath := config.ExpandPath(viper.GetString("database.path"))

	store, err := storage.NewSQLiteStorage(dbPath, slog.Default())
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// openApp wires storage, the rule service and the predictor. The default
// keyword rules are seeded into an empty store.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadEngine(viper.GetViper())
	if err != nil {
		return nil, err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return nil, err
	}

	svc := rules.NewService(store, cfg.RuleCacheTTL, slog.Default())
	if n, err := svc.Seed(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to seed keyword rules: %w", err)
	} else if n > 0 {
		slog.Info("seeded default keyword rules", "count", n)
	}

	advisor, err := createAdvisor()
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &app{
		store:     store,
		rules:     svc,
		predictor: engine.NewHybridPredictor(cfg, svc, advisor, slog.Default()),
		cfg:       cfg,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// createAdvisor builds the language model fallback. Without an API key the
// fallback is disabled and a nil Advisor is returned.
func createAdvisor() (engine.Advisor, error) {
	cfg, err := config.LoadLLM(viper.GetViper())
	if err != nil {
		return nil, err
	}

	if cfg.APIKey == "" {
		switch strings.ToLower(cfg.Provider) {
		case "openai":
			cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic":
			cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	if cfg.APIKey == "" {
		slog.Debug("no llm api key configured, model fallback disabled", "provider", cfg.Provider)
		return nil, nil
	}

	advisor, err := llm.New(cfg, slog.Default())
	if err != nil {
		return nil, err
	}
	return advisor, nil
}

func parseAmountFlag(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return amount, nil
}

// parseDateFlag parses an optional YYYY-MM-DD flag value.
func parseDateFlag(name, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s date %q (want YYYY-MM-DD): %w", name, s, err)
	}
	return &t, nil
}
