package postgres

import (
	"context"
	"fmt"

	"governance-ledger/internal/core/domain"
)

// ReceiptRepo implements ports.VoteReceiptStore. The primary key
// (proposal_id, voter_address) makes Claim a single atomic insert.
type ReceiptRepo struct {
	pool Pool
}

// NewReceiptRepo creates a new ReceiptRepo.
func NewReceiptRepo(pool Pool) *ReceiptRepo {
	return &ReceiptRepo{pool: pool}
}

func (r *ReceiptRepo) Claim(ctx context.Context, rc *domain.VoteReceipt) (bool, error) {
	query := `INSERT INTO vote_receipts (proposal_id, voter_address, direction, cast_at)
		VALUES ($1, $2, $3, $4) ON CONFLICT (proposal_id, voter_address) DO NOTHING`

	tag, err := r.pool.Exec(ctx, query, rc.ProposalID, rc.VoterAddress, string(rc.Direction), rc.CastAt)
	if err != nil {
		return false, fmt.Errorf("insert vote receipt: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *ReceiptRepo) Release(ctx context.Context, proposalID string, voterAddress string) error {
	query := `DELETE FROM vote_receipts WHERE proposal_id = $1 AND voter_address = $2`

	if _, err := r.pool.Exec(ctx, query, proposalID, voterAddress); err != nil {
		return fmt.Errorf("delete vote receipt: %w", err)
	}
	return nil
}
