package service

import (
	"context"
	"fmt"

	"governance-ledger/internal/core/ports"
	"governance-ledger/pkg/apperror"

	"github.com/google/uuid"
)

// MemberServiceImpl implements ports.MemberService.
type MemberServiceImpl struct {
	members  ports.MemberRepository
	accounts ports.AccountStore
}

// NewMemberService creates a new MemberServiceImpl.
func NewMemberService(members ports.MemberRepository, accounts ports.AccountStore) *MemberServiceImpl {
	return &MemberServiceImpl{members: members, accounts: accounts}
}

// GetProfile returns the member and the current token balance.
func (s *MemberServiceImpl) GetProfile(ctx context.Context, memberID uuid.UUID) (*ports.MemberProfile, error) {
	member, err := s.members.GetByID(ctx, memberID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get member: %w", err))
	}
	if member == nil {
		return nil, apperror.ErrNotFound("member")
	}

	account, err := s.accounts.Get(ctx, member.AccountID())
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("get account: %w", err))
	}

	profile := &ports.MemberProfile{Member: member}
	if account != nil {
		profile.Balance = account.Balance
	}
	return profile, nil
}
