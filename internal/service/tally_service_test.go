package service

import (
	"context"
	"errors"
	"testing"

	"governance-ledger/internal/core/domain"
	"governance-ledger/internal/core/ports/mocks"
	"governance-ledger/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestTallyService_RecordVote(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockProposalStore(ctrl)
	svc := NewTallyService(store, zerolog.Nop())

	want := &domain.Tally{
		ProposalID:        "p1",
		Counts:            map[domain.VoteDirection]int64{"yes": 1, "no": 0, "abstain": 0},
		TotalParticipants: 1,
	}
	store.EXPECT().IncrementVote(gomock.Any(), "p1", domain.VoteDirectionYes).Return(want, nil)

	got, err := svc.RecordVote(context.Background(), "p1", domain.VoteDirectionYes)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestTallyService_RecordVote_Errors(t *testing.T) {
	tests := []struct {
		name      string
		proposal  string
		direction domain.VoteDirection
		storeErr  error
		callStore bool
		want      *apperror.AppError
	}{
		{"empty proposal", "", domain.VoteDirectionYes, nil, false, apperror.Validation("")},
		{"reserved direction", "p1", domain.VoteDirection(domain.TotalParticipantsKey), nil, false, apperror.ErrInvalidDirection()},
		{"operator injection", "p1", domain.VoteDirection("$set"), nil, false, apperror.ErrInvalidDirection()},
		{"dotted path", "p1", domain.VoteDirection("yes.no"), nil, false, apperror.ErrInvalidDirection()},
		{"unknown proposal", "p1", domain.VoteDirectionYes, domain.ErrProposalNotFound, true, apperror.ErrNotFound("proposal")},
		{"direction not configured", "p1", domain.VoteDirection("maybe"), domain.ErrDirectionNotAllowed, true, apperror.ErrInvalidDirection()},
		{"store down", "p1", domain.VoteDirectionNo, errors.New("timeout"), true, apperror.ErrStoreUnavailable(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			store := mocks.NewMockProposalStore(ctrl)
			svc := NewTallyService(store, zerolog.Nop())
			if tt.callStore {
				store.EXPECT().IncrementVote(gomock.Any(), tt.proposal, tt.direction).Return(nil, tt.storeErr)
			}

			_, err := svc.RecordVote(context.Background(), tt.proposal, tt.direction)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
