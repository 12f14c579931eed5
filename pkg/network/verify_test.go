package network

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockChainIDSource struct {
	mock.Mock
}

func (m *MockChainIDSource) EthChainID(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func TestName(t *testing.T) {
	assert.Equal(t, "Archivas Betanet", Name(BetanetChainID))
	assert.Equal(t, "Archivas Devnet", Name(DevnetChainID))
	assert.Equal(t, "Unknown Network (Chain ID: 7)", Name(7))
}

func TestVerifyNetwork(t *testing.T) {
	src := new(MockChainIDSource)
	src.On("EthChainID", mock.Anything).Return(uint64(BetanetChainID), nil)

	require.NoError(t, VerifyNetwork(context.Background(), src, BetanetChainID))

	err := VerifyNetwork(context.Background(), src, DevnetChainID)
	assert.EqualError(t, err, "network mismatch: expected 1616, got 1644")

	src.AssertNumberOfCalls(t, "EthChainID", 2)
}

func TestVerifyNetwork_LookupFails(t *testing.T) {
	boom := errors.New("all hosts down")
	src := new(MockChainIDSource)
	src.On("EthChainID", mock.Anything).Return(uint64(0), boom)

	err := VerifyNetwork(context.Background(), src, BetanetChainID)
	assert.ErrorIs(t, err, boom)
}
