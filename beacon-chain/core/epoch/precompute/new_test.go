package precompute

import (
	"context"
	"testing"

	"github.com/prysmaticlabs/epochengine/beacon-chain/core/helpers"
	"github.com/prysmaticlabs/epochengine/beacon-chain/state"
	"github.com/prysmaticlabs/epochengine/config/features"
	"github.com/prysmaticlabs/epochengine/config/params"
	types "github.com/prysmaticlabs/epochengine/consensus-types/primitives"
	"github.com/prysmaticlabs/epochengine/testing/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadedContext(t *testing.T, st *state.BeaconState) *helpers.EpochContext {
	ec := helpers.NewEpochContext()
	require.NoError(t, ec.Load(context.Background(), st))
	return ec
}

func TestNew(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.OverrideBeaconConfig(params.MinimalSpecConfig())
	ffe := params.BeaconConfig().FarFutureEpoch
	st := util.StateAtEpoch(t, 4, 2)

	// Validator 0 is slashed and withdrawable.
	v, err := st.ValidatorAtIndex(0)
	require.NoError(t, err)
	v.Slashed = true
	v.WithdrawableEpoch = 0
	v.ExitEpoch = ffe
	require.NoError(t, st.UpdateValidatorAtIndex(0, v))
	// Validator 1 exits at the current epoch, so it is only active the previous epoch.
	v, err = st.ValidatorAtIndex(1)
	require.NoError(t, err)
	v.ExitEpoch = 2
	v.WithdrawableEpoch = ffe
	require.NoError(t, st.UpdateValidatorAtIndex(1, v))
	// Validator 2 activates at the current epoch.
	v, err = st.ValidatorAtIndex(2)
	require.NoError(t, err)
	v.ActivationEpoch = 2
	require.NoError(t, st.UpdateValidatorAtIndex(2, v))

	vp, bp, err := New(context.Background(), st, loadedContext(t, st))
	require.NoError(t, err)
	require.Equal(t, 4, len(vp))

	e := params.BeaconConfig().MaxEffectiveBalance
	farFutureSlot := types.Slot(ffe)
	assert.Equal(t, &Validator{
		IsSlashed:                    true,
		IsWithdrawableCurrentEpoch:   true,
		IsActiveCurrentEpoch:         true,
		IsActivePrevEpoch:            true,
		CurrentEpochEffectiveBalance: e,
		InclusionSlot:                farFutureSlot,
		InclusionDistance:            farFutureSlot,
	}, vp[0])
	assert.Equal(t, &Validator{
		IsActivePrevEpoch:            true,
		CurrentEpochEffectiveBalance: e,
		InclusionSlot:                farFutureSlot,
		InclusionDistance:            farFutureSlot,
	}, vp[1])
	assert.Equal(t, &Validator{
		IsActiveCurrentEpoch:         true,
		CurrentEpochEffectiveBalance: e,
		InclusionSlot:                farFutureSlot,
		InclusionDistance:            farFutureSlot,
	}, vp[2])
	assert.Equal(t, &Validator{
		IsActiveCurrentEpoch:         true,
		IsActivePrevEpoch:            true,
		CurrentEpochEffectiveBalance: e,
		InclusionSlot:                farFutureSlot,
		InclusionDistance:            farFutureSlot,
	}, vp[3])
	// Validator 0, 2, 3 was active current epoch and 0, 1, 3 previous epoch.
	assert.Equal(t, &Balance{ActiveCurrentEpoch: 3 * e, ActivePrevEpoch: 3 * e}, bp)
}

func TestNew_ParallelMatchesSequential(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.OverrideBeaconConfig(params.MinimalSpecConfig())
	st := util.StateAtEpoch(t, 97, 3)
	v, err := st.ValidatorAtIndex(50)
	require.NoError(t, err)
	v.ActivationEpoch = 3
	require.NoError(t, st.UpdateValidatorAtIndex(50, v))
	ec := loadedContext(t, st)

	seqVals, seqBal, err := New(context.Background(), st, ec)
	require.NoError(t, err)

	resetCfg := features.InitWithReset(&features.Flags{ParallelEpochProcessing: true})
	defer resetCfg()
	parVals, parBal, err := New(context.Background(), st, ec)
	require.NoError(t, err)

	assert.Equal(t, seqVals, parVals)
	assert.Equal(t, seqBal, parBal)
}

func TestNew_EpochContextMismatch(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.OverrideBeaconConfig(params.MinimalSpecConfig())
	st := util.StateAtEpoch(t, 8, 2)
	ec := loadedContext(t, st)

	st.SetSlot(st.Slot() + params.BeaconConfig().SlotsPerEpoch)
	_, _, err := New(context.Background(), st, ec)
	assert.ErrorContains(t, err, "epoch context loaded for epoch 2")
}
