package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"governance-ledger/internal/core/domain"
	"governance-ledger/internal/core/ports"
	"governance-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultIdempotencyTTL = 24 * time.Hour

// LedgerServiceImpl implements ports.LedgerService.
type LedgerServiceImpl struct {
	accounts   ports.AccountStore
	journal    ports.TransferJournal
	idempCache ports.IdempotencyCache // optional
	events     ports.EventPublisher
	table      domain.AllocationTable
	idempTTL   time.Duration
	now        func() time.Time
	log        zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl.
// idempCache may be nil, in which case only the journal deduplicates transfers.
func NewLedgerService(
	accounts ports.AccountStore,
	journal ports.TransferJournal,
	idempCache ports.IdempotencyCache,
	events ports.EventPublisher,
	table domain.AllocationTable,
	idempTTL time.Duration,
	log zerolog.Logger,
) *LedgerServiceImpl {
	if idempTTL <= 0 {
		idempTTL = defaultIdempotencyTTL
	}
	return &LedgerServiceImpl{
		accounts:   accounts,
		journal:    journal,
		idempCache: idempCache,
		events:     events,
		table:      table,
		idempTTL:   idempTTL,
		now:        func() time.Time { return time.Now().UTC() },
		log:        log,
	}
}

// OpenAccount creates an empty account.
func (s *LedgerServiceImpl) OpenAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, apperror.Validation("account_id is required")
	}

	account := domain.NewAccount(accountID, s.now())
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, domain.ErrAccountExists) {
			return nil, apperror.ErrAccountExists()
		}
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("create account: %w", err))
	}

	return account, nil
}

// Allocate credits the table amount for kind. Unknown kinds are a no-op.
func (s *LedgerServiceImpl) Allocate(ctx context.Context, accountID string, kind domain.AllocationKind) (*ports.AllocationResult, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, apperror.Validation("account_id is required")
	}

	amount := s.table.Amount(kind)
	if amount == 0 {
		account, err := s.getAccount(ctx, accountID, "account")
		if err != nil {
			return nil, err
		}
		s.log.Debug().Str("account_id", accountID).Str("kind", string(kind)).Msg("allocation kind has no amount, skipping")
		return &ports.AllocationResult{AccountID: accountID, Kind: kind, NewBalance: account.Balance}, nil
	}

	entry := domain.NewAllocationEntry(kind, amount, s.now())
	newBalance, err := s.accounts.AtomicUpdate(ctx, accountID, entry)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, apperror.ErrNotFound("account")
		}
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("allocate: %w", err))
	}

	s.publish(ctx, domain.LedgerEvent{
		Type:       domain.EventTokenAllocated,
		ID:         entry.ID.String(),
		AccountID:  accountID,
		Amount:     amount,
		Reason:     string(kind),
		OccurredAt: entry.Timestamp,
	})

	s.log.Info().
		Str("account_id", accountID).
		Str("kind", string(kind)).
		Int64("amount", amount).
		Int64("balance", newBalance).
		Msg("tokens allocated")

	return &ports.AllocationResult{
		AccountID:  accountID,
		Kind:       kind,
		Amount:     amount,
		NewBalance: newBalance,
		OK:         true,
	}, nil
}

// Transfer moves tokens between two accounts through the transfer journal.
// The debit is a conditional atomic update, so a concurrent drain of the
// sender cannot push its balance below zero.
func (s *LedgerServiceImpl) Transfer(ctx context.Context, req ports.TransferRequest) (*ports.TransferResult, error) {
	if err := validateTransfer(req); err != nil {
		return nil, err
	}

	var idempKey string
	if req.IdempotencyKey != "" {
		idempKey = domain.BuildTransferIdempotencyKey(req.FromAccount, req.IdempotencyKey)

		// Layer 1: cache
		if cached := s.cachedTransfer(ctx, idempKey); cached != nil {
			if !sameIntent(cached.FromAccount, cached.ToAccount, cached.MovedAmount, req) {
				return nil, apperror.ErrDuplicateTransfer()
			}
			return cached, nil
		}

		// Layer 2: journal
		existing, err := s.journal.GetByIdempotencyKey(ctx, idempKey)
		if err != nil {
			return nil, apperror.ErrStoreUnavailable(fmt.Errorf("journal idempotency check: %w", err))
		}
		if existing != nil {
			return s.replayTransfer(existing, req)
		}
	}

	sender, err := s.getAccount(ctx, req.FromAccount, "sender account")
	if err != nil {
		return nil, err
	}
	if !sender.CanCover(req.Amount) {
		return nil, apperror.ErrInsufficientFunds()
	}
	if _, err := s.getAccount(ctx, req.ToAccount, "receiver account"); err != nil {
		return nil, err
	}

	now := s.now()
	transfer := &domain.Transfer{
		ID:          uuid.New(),
		FromAccount: req.FromAccount,
		ToAccount:   req.ToAccount,
		Amount:      req.Amount,
		Status:      domain.TransferStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if idempKey != "" {
		transfer.IdempotencyKey = &idempKey
	}

	if err := s.journal.Create(ctx, transfer); err != nil {
		if errors.Is(err, domain.ErrDuplicateTransfer) {
			// A concurrent request with the same key journaled first.
			return nil, apperror.ErrTransferInProgress()
		}
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("journal transfer: %w", err))
	}

	debit, credit := domain.NewTransferEntries(transfer, now)

	if _, err := s.accounts.AtomicUpdate(ctx, req.FromAccount, debit); err != nil {
		switch {
		case errors.Is(err, domain.ErrInsufficientBalance):
			s.setStatus(ctx, transfer, domain.TransferStatusAborted)
			return nil, apperror.ErrInsufficientFunds()
		case errors.Is(err, domain.ErrAccountNotFound):
			s.setStatus(ctx, transfer, domain.TransferStatusAborted)
			return nil, apperror.ErrNotFound("sender account")
		case errors.Is(err, domain.ErrDuplicateEntry):
			// The reconciler voided the debit leg; the journal is ABORTED.
			s.log.Warn().Str("transfer_id", transfer.ID.String()).Msg("debit rejected: transfer aborted by reconciliation")
			return nil, apperror.ErrTransferAborted()
		default:
			// Outcome unknown; the journal record stays PENDING for the reconciler.
			return nil, apperror.ErrStoreUnavailable(fmt.Errorf("debit sender: %w", err))
		}
	}

	if _, err := s.accounts.AtomicUpdate(ctx, req.ToAccount, credit); err != nil && !errors.Is(err, domain.ErrDuplicateEntry) {
		s.log.Error().
			Err(err).
			Bool("critical", true).
			Str("transfer_id", transfer.ID.String()).
			Str("from", req.FromAccount).
			Str("to", req.ToAccount).
			Int64("amount", req.Amount).
			Msg("transfer partially applied: sender debited, receiver credit failed")
		return nil, apperror.ErrPartialTransfer(fmt.Errorf("credit receiver: %w", err))
	}

	s.setStatus(ctx, transfer, domain.TransferStatusApplied)
	result := newTransferResult(transfer)

	if idempKey != "" && s.idempCache != nil {
		if data, err := json.Marshal(result); err == nil {
			if err := s.idempCache.Set(ctx, idempKey, data, s.idempTTL); err != nil {
				s.log.Warn().Err(err).Str("key", idempKey).Msg("failed to cache transfer result in redis")
			}
		}
	}

	s.publish(ctx, domain.LedgerEvent{
		Type:         domain.EventTokenTransferred,
		ID:           transfer.ID.String(),
		AccountID:    req.FromAccount,
		Counterparty: req.ToAccount,
		Amount:       req.Amount,
		OccurredAt:   now,
	})

	s.log.Info().
		Str("transfer_id", transfer.ID.String()).
		Str("from", req.FromAccount).
		Str("to", req.ToAccount).
		Int64("amount", req.Amount).
		Msg("transfer applied")

	return result, nil
}

// History returns the balance and chronological history of an account.
func (s *LedgerServiceImpl) History(ctx context.Context, accountID string) (*ports.AccountHistory, error) {
	account, err := s.getAccount(ctx, accountID, "account")
	if err != nil {
		return nil, err
	}

	txs := account.History
	if txs == nil {
		txs = []domain.TokenTransaction{}
	}

	return &ports.AccountHistory{
		AccountID:    account.ID,
		Balance:      account.Balance,
		Transactions: txs,
	}, nil
}

func (s *LedgerServiceImpl) getAccount(ctx context.Context, accountID string, entity string) (*domain.Account, error) {
	account, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("get %s: %w", entity, err))
	}
	if account == nil {
		return nil, apperror.ErrNotFound(entity)
	}
	return account, nil
}

func (s *LedgerServiceImpl) cachedTransfer(ctx context.Context, key string) *ports.TransferResult {
	if s.idempCache == nil {
		return nil
	}

	data, err := s.idempCache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("redis idempotency check failed, falling through to journal")
		return nil
	}
	if data == nil {
		return nil
	}

	var result ports.TransferResult
	if err := json.Unmarshal(data, &result); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("discarding unreadable cached transfer result")
		return nil
	}
	result.Replayed = true
	return &result
}

func (s *LedgerServiceImpl) replayTransfer(existing *domain.Transfer, req ports.TransferRequest) (*ports.TransferResult, error) {
	if !sameIntent(existing.FromAccount, existing.ToAccount, existing.Amount, req) {
		return nil, apperror.ErrDuplicateTransfer()
	}

	switch existing.Status {
	case domain.TransferStatusApplied, domain.TransferStatusReconciled:
		result := newTransferResult(existing)
		result.Replayed = true
		return result, nil
	case domain.TransferStatusPending:
		return nil, apperror.ErrTransferInProgress()
	default:
		return nil, apperror.ErrDuplicateTransfer()
	}
}

// setStatus moves a PENDING transfer to status. If reconciliation settled it
// first, transfer takes the stored status instead.
func (s *LedgerServiceImpl) setStatus(ctx context.Context, transfer *domain.Transfer, status domain.TransferStatus) {
	err := s.journal.UpdateStatus(ctx, transfer.ID, domain.TransferStatusPending, status)
	switch {
	case err == nil:
		transfer.Status = status
		transfer.UpdatedAt = s.now()
	case errors.Is(err, domain.ErrTransferSettled):
		stored, gerr := s.journal.Get(ctx, transfer.ID)
		if gerr != nil || stored == nil {
			s.log.Warn().Err(gerr).Str("transfer_id", transfer.ID.String()).Msg("transfer settled elsewhere; status unknown")
			transfer.Status = status
			return
		}
		transfer.Status = stored.Status
		transfer.UpdatedAt = stored.UpdatedAt
	default:
		transfer.Status = status
		transfer.UpdatedAt = s.now()
		s.log.Warn().
			Err(err).
			Str("transfer_id", transfer.ID.String()).
			Str("status", string(status)).
			Msg("failed to update transfer journal, reconciler will settle it")
	}
}

func (s *LedgerServiceImpl) publish(ctx context.Context, event domain.LedgerEvent) {
	if err := s.events.Publish(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("event", string(event.Type)).Str("id", event.ID).Msg("failed to publish ledger event")
	}
}

func validateTransfer(req ports.TransferRequest) error {
	if strings.TrimSpace(req.FromAccount) == "" || strings.TrimSpace(req.ToAccount) == "" {
		return apperror.Validation("from_account and to_account are required")
	}
	if req.Amount <= 0 {
		return apperror.ErrInvalidAmount()
	}
	if req.FromAccount == req.ToAccount {
		return apperror.ErrSelfTransfer()
	}
	return nil
}

func sameIntent(from, to string, amount int64, req ports.TransferRequest) bool {
	return from == req.FromAccount && to == req.ToAccount && amount == req.Amount
}

func newTransferResult(t *domain.Transfer) *ports.TransferResult {
	return &ports.TransferResult{
		TransferID:  t.ID,
		FromAccount: t.FromAccount,
		ToAccount:   t.ToAccount,
		MovedAmount: t.Amount,
		Status:      t.Status,
		OK:          t.IsCompleted(),
	}
}
