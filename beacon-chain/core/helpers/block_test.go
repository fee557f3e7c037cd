package helpers

import (
	"encoding/binary"
	"testing"

	"github.com/pkg/errors"
	"github.com/prysmaticlabs/epochengine/beacon-chain/state"
	"github.com/prysmaticlabs/epochengine/config/params"
	types "github.com/prysmaticlabs/epochengine/consensus-types/primitives"
	"github.com/prysmaticlabs/epochengine/testing/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func naturalRoot(i uint64) [32]byte {
	var r [32]byte
	binary.BigEndian.PutUint64(r[24:], i+1)
	return r
}

func TestBlockRootAtSlot_CorrectBlockRoot(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.OverrideBeaconConfig(params.MinimalSpecConfig())
	sphr := params.BeaconConfig().SlotsPerHistoricalRoot

	tests := []struct {
		slot        types.Slot
		stateSlot   types.Slot
		expectedIdx uint64
	}{
		{slot: 0, stateSlot: 1, expectedIdx: 0},
		{slot: 2, stateSlot: 5, expectedIdx: 2},
		{slot: 63, stateSlot: 64, expectedIdx: 63},
		{slot: 64, stateSlot: 100, expectedIdx: 0},
		{slot: sphr + 3, stateSlot: 2*sphr + 3, expectedIdx: 3},
	}
	for _, tt := range tests {
		st, err := util.NewBeaconState(util.FillRootsNaturalOpt)
		require.NoError(t, err)
		st.SetSlot(tt.stateSlot)
		root, err := BlockRootAtSlot(st, tt.slot)
		require.NoError(t, err, "slot %d", tt.slot)
		assert.Equal(t, naturalRoot(tt.expectedIdx), root, "BlockRootAtSlot(%d)", tt.slot)
	}
}

func TestBlockRootAtSlot_OutOfBounds(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.OverrideBeaconConfig(params.MinimalSpecConfig())
	sphr := params.BeaconConfig().SlotsPerHistoricalRoot

	tests := []struct {
		slot      types.Slot
		stateSlot types.Slot
	}{
		{slot: 10, stateSlot: 10},
		{slot: 11, stateSlot: 10},
		{slot: 1, stateSlot: sphr + 2},
		{slot: types.Slot(^uint64(0) - 5), stateSlot: 0},
	}
	for _, tt := range tests {
		st, err := util.NewBeaconState(util.FillRootsNaturalOpt)
		require.NoError(t, err)
		st.SetSlot(tt.stateSlot)
		_, err = BlockRootAtSlot(st, tt.slot)
		var corrupt *state.StateCorruptError
		assert.True(t, errors.As(err, &corrupt), "BlockRootAtSlot(%d) at state slot %d: %v", tt.slot, tt.stateSlot, err)
	}
}

func TestBlockRoot_EpochStart(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.OverrideBeaconConfig(params.MinimalSpecConfig())
	st, err := util.NewBeaconState(util.FillRootsNaturalOpt)
	require.NoError(t, err)
	st.SetSlot(3*params.BeaconConfig().SlotsPerEpoch - 1)
	root, err := BlockRoot(st, 1)
	require.NoError(t, err)
	assert.Equal(t, naturalRoot(uint64(params.BeaconConfig().SlotsPerEpoch)), root)
}
