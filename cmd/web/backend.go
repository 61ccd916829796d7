// cmd/web/backend.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/yanizio/neurion/internal/config"
	"github.com/yanizio/neurion/internal/database"
	"github.com/yanizio/neurion/internal/store"
	"github.com/yanizio/neurion/internal/submission"
)

// errProbeFailed is returned by `web probe` when the store is unreachable.
var errProbeFailed = errors.New("store unreachable")

// openStore builds the configured backend.  The returned closer releases the
// SQL pool and is a no-op for PostgREST.
func openStore(ctx context.Context, cfg config.Store) (store.Store, func() error, error) {
	switch cfg.Backend {
	case config.BackendPostgREST:
		st, err := store.NewPostgREST(store.PostgRESTConfig{
			URL:    cfg.URL,
			APIKey: cfg.APIKey,
			Table:  cfg.Table,
			HTTP:   &http.Client{},
		})
		if err != nil {
			return nil, nil, err
		}
		return st, func() error { return nil }, nil

	case config.BackendSQL:
		db, err := database.Open(ctx, cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
		}
		st, err := store.NewSQL(db, cfg.Table)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		if cfg.Migrate {
			if err := st.Migrate(ctx); err != nil {
				_ = db.Close()
				return nil, nil, err
			}
		}
		return st, db.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}

func (a *app) probe(ctx context.Context) error {
	st, closeStore, err := openStore(ctx, a.cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	client := submission.New(st, submission.WithLogger(a.log))
	if !client.CheckConnectivity(ctx) {
		return errProbeFailed
	}
	a.log.Infow("store reachable", "backend", a.cfg.Store.Backend, "table", a.cfg.Store.Table)
	fmt.Println("ok")
	return nil
}

func (a *app) migrate(ctx context.Context) error {
	if a.cfg.Store.Backend != config.BackendSQL {
		return fmt.Errorf("migrate needs store.backend=%s, have %q", config.BackendSQL, a.cfg.Store.Backend)
	}
	cfg := a.cfg.Store
	cfg.Migrate = true
	_, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	a.log.Infow("migration complete", "driver", cfg.Driver, "table", cfg.Table)
	return nil
}
