package helpers

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/prysmaticlabs/epochengine/beacon-chain/state"
	"github.com/prysmaticlabs/epochengine/config/params"
	types "github.com/prysmaticlabs/epochengine/consensus-types/primitives"
	"github.com/prysmaticlabs/epochengine/testing/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotalActiveBalance(t *testing.T) {
	tests := []struct {
		vCount int
	}{
		{1},
		{10},
		{10000},
	}
	for _, test := range tests {
		st := util.DeterministicGenesisState(t, uint64(test.vCount))
		bal, err := TotalActiveBalance(st)
		require.NoError(t, err)
		assert.Equal(t, uint64(test.vCount)*params.BeaconConfig().MaxEffectiveBalance, bal)
	}
}

func TestIncreaseBalanceWithVal(t *testing.T) {
	got, err := IncreaseBalanceWithVal(27*1e9, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(27*1e9+1), got)

	_, err = IncreaseBalanceWithVal(math.MaxUint64-1, 2)
	var corrupt *state.StateCorruptError
	require.True(t, errors.As(err, &corrupt), "expected a StateCorruptError, got %v", err)
}

func TestDecreaseBalanceWithVal(t *testing.T) {
	tests := []struct {
		b, delta, want uint64
	}{
		{b: 2, delta: 1, want: 1},
		{b: 28 * 1e9, delta: 0, want: 28 * 1e9},
		{b: 1, delta: 2, want: 0},
		{b: 28 * 1e9, delta: 28 * 1e9, want: 0},
	}
	for _, test := range tests {
		assert.Equal(t, test.want, DecreaseBalanceWithVal(test.b, test.delta), "DecreaseBalanceWithVal(%d, %d)", test.b, test.delta)
	}
}

func TestFinalityDelay(t *testing.T) {
	assert.Equal(t, types.Epoch(3), FinalityDelay(5, 2))
	assert.Equal(t, types.Epoch(0), FinalityDelay(1, 2))
	assert.False(t, IsInInactivityLeak(4, 0))
	assert.True(t, IsInInactivityLeak(5, 0))
}
