package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"governance-ledger/internal/core/domain"
	"governance-ledger/internal/core/ports"

	"github.com/rs/zerolog"
)

// ReconcileReport summarizes one reconciliation pass.
type ReconcileReport struct {
	Scanned    int
	Applied    int
	Reconciled int
	Aborted    int
	Deferred   int
	Stuck      int
}

// Reconciler settles journaled transfers left PENDING by a crash or a store fault.
type Reconciler struct {
	accounts   ports.AccountStore
	journal    ports.TransferJournal
	interval   time.Duration
	staleAfter time.Duration
	batch      int
	now        func() time.Time
	log        zerolog.Logger
}

// NewReconciler creates a reconciler. Transfers younger than staleAfter are left alone.
func NewReconciler(
	accounts ports.AccountStore,
	journal ports.TransferJournal,
	interval time.Duration,
	staleAfter time.Duration,
	batch int,
	log zerolog.Logger,
) *Reconciler {
	return &Reconciler{
		accounts:   accounts,
		journal:    journal,
		interval:   interval,
		staleAfter: staleAfter,
		batch:      batch,
		now:        func() time.Time { return time.Now().UTC() },
		log:        log,
	}
}

// Run reconciles on every interval tick until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info().Dur("interval", r.interval).Dur("stale_after", r.staleAfter).Msg("reconciler started")

	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("reconciler stopped")
			return
		case <-ticker.C:
			report, err := r.ReconcileOnce(ctx)
			if err != nil {
				r.log.Warn().Err(err).Msg("reconciliation pass failed")
				continue
			}
			if report.Scanned > 0 {
				r.log.Info().
					Int("scanned", report.Scanned).
					Int("applied", report.Applied).
					Int("reconciled", report.Reconciled).
					Int("aborted", report.Aborted).
					Int("deferred", report.Deferred).
					Int("stuck", report.Stuck).
					Msg("reconciliation pass complete")
			}
		}
	}
}

// ReconcileOnce inspects both legs of each stale PENDING transfer:
// both applied -> APPLIED; debit only -> credit re-applied -> RECONCILED;
// neither -> debit leg voided -> ABORTED; credit only -> left PENDING and
// reported. Status changes are compare-and-set from PENDING, so a transfer
// finished concurrently by the ledger keeps its outcome.
func (r *Reconciler) ReconcileOnce(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport

	pending, err := r.journal.ListPending(ctx, r.now().Add(-r.staleAfter), r.batch)
	if err != nil {
		return report, fmt.Errorf("list pending transfers: %w", err)
	}

	for i := range pending {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		t := &pending[i]
		report.Scanned++

		status, err := r.settle(ctx, t)
		if err != nil {
			r.log.Warn().Err(err).Str("transfer_id", t.ID.String()).Msg("could not settle transfer")
			continue
		}

		switch status {
		case domain.TransferStatusApplied:
			report.Applied++
		case domain.TransferStatusReconciled:
			report.Reconciled++
		case domain.TransferStatusAborted:
			report.Aborted++
		case statusDeferred:
			report.Deferred++
			continue
		default:
			report.Stuck++
			continue
		}

		err = r.journal.UpdateStatus(ctx, t.ID, domain.TransferStatusPending, status)
		switch {
		case errors.Is(err, domain.ErrTransferSettled):
			r.log.Debug().Str("transfer_id", t.ID.String()).Msg("transfer settled concurrently")
		case err != nil:
			r.log.Warn().Err(err).Str("transfer_id", t.ID.String()).Msg("failed to record settled status")
		}
	}

	return report, nil
}

// statusDeferred marks a transfer whose debit landed during this pass.
const statusDeferred domain.TransferStatus = "DEFERRED"

func (r *Reconciler) settle(ctx context.Context, t *domain.Transfer) (domain.TransferStatus, error) {
	debit, err := r.accounts.GetEntry(ctx, t.FromAccount, t.DebitID())
	if err != nil {
		return "", fmt.Errorf("check debit: %w", err)
	}
	credit, err := r.accounts.GetEntry(ctx, t.ToAccount, t.CreditID())
	if err != nil {
		return "", fmt.Errorf("check credit: %w", err)
	}

	switch {
	case debit != nil && debit.IsVoid():
		return domain.TransferStatusAborted, nil

	case debit != nil && credit != nil:
		return domain.TransferStatusApplied, nil

	case debit != nil:
		_, entry := domain.NewTransferEntries(t, r.now())
		if _, err := r.accounts.AtomicUpdate(ctx, t.ToAccount, entry); err != nil && !errors.Is(err, domain.ErrDuplicateEntry) {
			return "", fmt.Errorf("re-apply credit: %w", err)
		}
		r.log.Info().
			Str("transfer_id", t.ID.String()).
			Str("to", t.ToAccount).
			Int64("amount", t.Amount).
			Msg("half-applied transfer repaired")
		return domain.TransferStatusReconciled, nil

	case credit == nil:
		return r.void(ctx, t)

	default:
		r.log.Error().
			Bool("critical", true).
			Str("transfer_id", t.ID.String()).
			Msg("transfer credited without debit, manual review required")
		return domain.TransferStatusPending, nil
	}
}

// void takes the debit leg id with a zero-amount entry. A debit still in
// flight then fails as a duplicate and cannot land after the abort.
func (r *Reconciler) void(ctx context.Context, t *domain.Transfer) (domain.TransferStatus, error) {
	_, err := r.accounts.AtomicUpdate(ctx, t.FromAccount, domain.NewVoidEntry(t, r.now()))
	switch {
	case err == nil, errors.Is(err, domain.ErrAccountNotFound):
		return domain.TransferStatusAborted, nil
	case errors.Is(err, domain.ErrDuplicateEntry):
		// The debit won the race; the next pass sees it.
		return statusDeferred, nil
	default:
		return "", fmt.Errorf("void debit leg: %w", err)
	}
}
