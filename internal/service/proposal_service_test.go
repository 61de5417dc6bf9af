package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"governance-ledger/internal/core/domain"
	"governance-ledger/internal/core/ports"
	"governance-ledger/internal/core/ports/mocks"
	"governance-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func setupProposalService(t *testing.T) (*ProposalServiceImpl, *mocks.MockProposalStore) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockProposalStore(ctrl)
	svc, err := NewProposalService(store, []string{"yes", "no", "abstain"}, zerolog.Nop())
	require.NoError(t, err)
	return svc, store
}

func TestNewProposalService_InvalidDefaults(t *testing.T) {
	_, err := NewProposalService(nil, []string{"yes", "Yes!"}, zerolog.Nop())
	assert.Error(t, err)

	_, err = NewProposalService(nil, []string{"yes", "yes"}, zerolog.Nop())
	assert.Error(t, err)
}

func TestNewProposalService_EmptyDefaultsFallBack(t *testing.T) {
	svc, err := NewProposalService(nil, nil, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultVoteDirections(), svc.defaultDirections)
}

func TestProposalService_Create_DefaultDirections(t *testing.T) {
	svc, store := setupProposalService(t)
	creator := uuid.New()

	store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

	p, err := svc.Create(context.Background(), ports.CreateProposalRequest{
		Title:     "  Fund the treasury  ",
		CreatedBy: creator,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Fund the treasury", p.Title)
	assert.Equal(t, domain.DefaultVoteDirections(), p.Directions)
	assert.Equal(t, map[domain.VoteDirection]int64{"yes": 0, "no": 0, "abstain": 0}, p.Votes)
	assert.Equal(t, int64(0), p.TotalParticipants)
	assert.Equal(t, creator.String(), p.CreatedBy)
}

func TestProposalService_Create_CustomDirections(t *testing.T) {
	svc, store := setupProposalService(t)

	store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

	p, err := svc.Create(context.Background(), ports.CreateProposalRequest{
		Title:      "Pick a logo",
		Directions: []string{"option_a", "option_b"},
	})
	require.NoError(t, err)
	assert.Equal(t, []domain.VoteDirection{"option_a", "option_b"}, p.Directions)
	assert.True(t, p.AllowsDirection("option_a"))
	assert.False(t, p.AllowsDirection("yes"))
}

func TestProposalService_Create_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  ports.CreateProposalRequest
	}{
		{"empty title", ports.CreateProposalRequest{Title: "   "}},
		{"long title", ports.CreateProposalRequest{Title: strings.Repeat("x", maxTitleLen+1)}},
		{"reserved direction", ports.CreateProposalRequest{Title: "t", Directions: []string{"yes", domain.TotalParticipantsKey}}},
		{"operator direction", ports.CreateProposalRequest{Title: "t", Directions: []string{"$inc"}}},
		{"duplicate direction", ports.CreateProposalRequest{Title: "t", Directions: []string{"yes", "yes"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := setupProposalService(t)
			_, err := svc.Create(context.Background(), tt.req)
			assert.ErrorIs(t, err, apperror.Validation(""))
		})
	}
}

func TestProposalService_Get(t *testing.T) {
	svc, store := setupProposalService(t)

	store.EXPECT().Get(gomock.Any(), "p1").Return(&domain.Proposal{ID: "p1"}, nil)
	store.EXPECT().Get(gomock.Any(), "missing").Return(nil, nil)
	store.EXPECT().Get(gomock.Any(), "broken").Return(nil, errors.New("down"))

	p, err := svc.Get(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)

	_, err = svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound("proposal"))

	_, err = svc.Get(context.Background(), "broken")
	assert.ErrorIs(t, err, apperror.ErrStoreUnavailable(nil))
}

func TestProposalService_List_ClampsPaging(t *testing.T) {
	svc, store := setupProposalService(t)

	store.EXPECT().List(gomock.Any(), ports.ProposalListParams{Page: 1, PageSize: defaultPageSize}).Return(nil, int64(0), nil)
	store.EXPECT().List(gomock.Any(), ports.ProposalListParams{Page: 3, PageSize: maxPageSize}).
		Return([]domain.Proposal{{ID: "p1"}}, int64(201), nil)

	_, _, err := svc.List(context.Background(), ports.ProposalListParams{Page: 0, PageSize: 0})
	require.NoError(t, err)

	items, total, err := svc.List(context.Background(), ports.ProposalListParams{Page: 3, PageSize: 1000})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, int64(201), total)
}
