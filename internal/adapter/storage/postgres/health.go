package postgres

import (
	"context"
	"errors"
	"fmt"
)

var errSchemaMissing = errors.New("governance schema not installed")

// HealthCheck reports the database reachable once the ledger tables exist.
type HealthCheck struct {
	pool Pool
}

func NewHealthCheck(pool Pool) *HealthCheck {
	return &HealthCheck{pool: pool}
}

func (h *HealthCheck) Ping(ctx context.Context) error {
	var installed bool
	if err := h.pool.QueryRow(ctx,
		`SELECT to_regclass('governance_accounts') IS NOT NULL`,
	).Scan(&installed); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	if !installed {
		return errSchemaMissing
	}
	return nil
}

func (h *HealthCheck) Name() string { return "postgresql" }
