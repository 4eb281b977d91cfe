package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"care-connect/internal/adapters/auth/jwtverifier"
	"care-connect/internal/adapters/notify/webhook"
	"care-connect/internal/adapters/storage/badgerkv"
	pg "care-connect/internal/adapters/storage/postgres"
	"care-connect/internal/config"
	"care-connect/internal/domain/adherence"
	"care-connect/internal/platform/clock"
	"care-connect/internal/platform/logger"
	"care-connect/internal/platform/metrics"
	"care-connect/internal/router"
)

// runtime agrupa lo que abre bootstrap y hay que cerrar al salir.
type runtime struct {
	cfg *config.Config
	log logger.Logger
	app *router.App

	db     *sql.DB
	badger *badgerkv.DB
}

func (rt *runtime) Close() error {
	var errs []error
	if rt.badger != nil {
		errs = append(errs, rt.badger.Close())
	}
	if rt.db != nil {
		errs = append(errs, rt.db.Close())
	}
	return errors.Join(errs...)
}

func newLogger(cfg *config.Config) logger.Logger {
	return logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: logger.ParseFormat(cfg.Log.Format),
		App:    cfg.Log.App,
	})
}

func openDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	if cfg.Database.DSN == "" {
		return nil, errors.New("database dsn is not configured (DB_DSN)")
	}
	return pg.Open(ctx, cfg.Database.DSN)
}

func bootstrap(ctx context.Context, m *metrics.Metrics) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg, log: newLogger(cfg)}

	opts := router.Options{
		Clock:             clock.New(cfg.Clock.Location()),
		Log:               rt.log,
		Metrics:           m,
		GenerateAheadDays: cfg.Doses.GenerateAheadDays,
		AdherenceDays:     cfg.Adherence.DefaultDays,
		Thresholds: adherence.Thresholds{
			Alert:   cfg.Adherence.AlertThreshold,
			Success: cfg.Adherence.SuccessThreshold,
		},
		PushoverToken: cfg.Notify.PushoverToken,
		Webhook: webhook.Config{
			URL:     cfg.Notify.WebhookURL,
			Secret:  cfg.Notify.WebhookSecret,
			Timeout: cfg.Notify.WebhookTimeout,
		},
		Swagger: cfg.Server.Swagger,
	}

	if !cfg.Auth.DevMode() {
		v, err := jwtverifier.New(jwtverifier.Config{
			Secret: cfg.Auth.JWTSecret,
			Issuer: cfg.Auth.JWTIssuer,
			Leeway: cfg.Auth.Leeway,
		})
		if err != nil {
			return nil, err
		}
		opts.AuthVerifier = v
	} else {
		rt.log.Warn("auth running in dev mode", map[string]any{"header": "X-Debug-User-ID"})
	}

	if cfg.Database.DSN != "" {
		db, err := pg.Open(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		rt.db = db
		opts.DB = db

		if cfg.Database.AutoMigrate {
			n, err := pg.Migrate(ctx, db)
			if err != nil {
				_ = rt.Close()
				return nil, err
			}
			rt.log.Info("migrations applied", map[string]any{"count": n})
		}
	} else {
		rt.log.Warn("no database configured, using in-memory storage", nil)
	}

	if cfg.Badger.Path != "" {
		kv, err := badgerkv.Open(cfg.Badger.Path)
		if err != nil {
			_ = rt.Close()
			return nil, fmt.Errorf("open badger: %w", err)
		}
		rt.badger = kv
		opts.Notifications = badgerkv.NewNotificationsRepo(kv)
	}

	app, err := router.New(opts)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.app = app
	return rt, nil
}
