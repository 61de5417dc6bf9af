package service

import (
	"context"
	"errors"
	"testing"

	"governance-ledger/internal/core/domain"
	"governance-ledger/internal/core/ports"
	"governance-ledger/internal/core/ports/mocks"
	"governance-ledger/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestReportingService_GetAnalytics(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockProposalStore(ctrl)
	svc := NewReportingService(store)

	store.EXPECT().Stats(gomock.Any()).Return(&ports.GovernanceStats{
		TotalProposals: 3,
		TotalVotes:     9,
		ByDirection:    map[domain.VoteDirection]int64{"yes": 6, "no": 3},
	}, nil)

	stats, err := svc.GetAnalytics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalProposals)
	assert.Equal(t, int64(6), stats.ByDirection["yes"])
}

func TestReportingService_EmptyStore(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockProposalStore(ctrl)
	svc := NewReportingService(store)

	store.EXPECT().Stats(gomock.Any()).Return(&ports.GovernanceStats{}, nil)

	stats, err := svc.GetAnalytics(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, stats.ByDirection)
	assert.Empty(t, stats.ByDirection)
}

func TestReportingService_StoreDown(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockProposalStore(ctrl)
	svc := NewReportingService(store)

	store.EXPECT().Stats(gomock.Any()).Return(nil, errors.New("connection reset"))

	_, err := svc.GetAnalytics(context.Background())
	assert.True(t, errors.Is(err, apperror.ErrStoreUnavailable(nil)))
}
