// Package store records consultations handled by the gateway.
package store

import (
	"context"
	"fmt"

	"strategist/internal/config"
	"strategist/internal/model"
)

// Ledger is an append-only audit log of consultations. Nothing the gateway
// answers depends on what it holds.
type Ledger interface {
	Record(ctx context.Context, c *model.Consultation) error
	Recent(ctx context.Context, limit int) ([]model.Consultation, error)
	Close() error
}

// Open builds the ledger selected by cfg. An empty driver yields a ledger
// that drops everything.
func Open(cfg *config.Config) (Ledger, error) {
	switch cfg.Ledger.Driver {
	case "":
		return Nop{}, nil
	case "sqlite":
		return NewSQLite(cfg.Ledger.Path)
	case "mysql":
		db, err := cfg.OpenGormDB()
		if err != nil {
			return nil, fmt.Errorf("open mysql ledger: %w", err)
		}
		return NewGorm(db)
	default:
		return nil, fmt.Errorf("unknown ledger driver %q", cfg.Ledger.Driver)
	}
}

type Nop struct{}

func (Nop) Record(context.Context, *model.Consultation) error { return nil }

func (Nop) Recent(context.Context, int) ([]model.Consultation, error) { return nil, nil }

func (Nop) Close() error { return nil }
