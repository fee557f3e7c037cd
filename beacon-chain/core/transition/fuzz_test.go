package transition

import (
	"context"
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/prysmaticlabs/epochengine/beacon-chain/state"
	"github.com/prysmaticlabs/epochengine/config/features"
	"github.com/prysmaticlabs/epochengine/config/params"
	types "github.com/prysmaticlabs/epochengine/consensus-types/primitives"
	ethpb "github.com/prysmaticlabs/epochengine/proto/prysm/v1alpha1"
	"github.com/prysmaticlabs/epochengine/testing/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fuzzValidators = 32

type registryMutation struct {
	Balances       [fuzzValidators]uint32
	Slashed        [fuzzValidators]bool
	PrevAttesters  [fuzzValidators]bool
	CurrAttesters  [fuzzValidators]bool
	SlashedBalance uint32
}

func mutatedState(t *testing.T, m *registryMutation) *state.BeaconState {
	cfg := params.BeaconConfig()
	st := util.StateAtEpoch(t, fuzzValidators, 5)
	current := types.Epoch(5)
	bals := make([]uint64, fuzzValidators)
	for i := 0; i < fuzzValidators; i++ {
		// Scale to balances up to about twice the maximum effective balance.
		bals[i] = uint64(m.Balances[i]) * 16
		if !m.Slashed[i] {
			continue
		}
		v, err := st.ValidatorAtIndex(types.ValidatorIndex(i))
		require.NoError(t, err)
		v.Slashed = true
		v.ExitEpoch = current
		v.WithdrawableEpoch = current + cfg.EpochsPerSlashingsVector/2
		require.NoError(t, st.UpdateValidatorAtIndex(types.ValidatorIndex(i), v))
	}
	require.NoError(t, st.SetBalances(bals))
	require.NoError(t, st.UpdateSlashingsAtIndex(0, uint64(m.SlashedBalance)*1e3))

	ec := loadedContext(t, st)
	appendAttestations(t, st, ec, current-1, func(idx types.ValidatorIndex) bool { return m.PrevAttesters[idx] })
	appendAttestations(t, st, ec, current, func(idx types.ValidatorIndex) bool { return m.CurrAttesters[idx] })
	return st
}

func TestProcessEpoch_Fuzz(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.OverrideBeaconConfig(params.MinimalSpecConfig())
	fuzzer := fuzz.NewWithSeed(0)
	engine := NewEngine()

	for i := 0; i < 20; i++ {
		m := &registryMutation{}
		fuzzer.Fuzz(m)
		st := mutatedState(t, m)
		cp := st.Copy()
		before := st.Validators()

		want, wantErr := engine.ProcessEpoch(context.Background(), st, loadedContext(t, st))
		resetCfg := features.InitWithReset(&features.Flags{ParallelEpochProcessing: true})
		got, gotErr := engine.ProcessEpoch(context.Background(), cp, loadedContext(t, cp))
		resetCfg()

		require.Equal(t, wantErr == nil, gotErr == nil, "run %d: %v / %v", i, wantErr, gotErr)
		if wantErr != nil {
			continue
		}
		require.Equal(t, want, got, "run %d", i)
		require.Equal(t, st.CloneInnerState(), cp.CloneInnerState(), "run %d", i)

		assert.GreaterOrEqual(t, want.Finalized.Epoch, want.PreviousFinalized.Epoch)
		churn := params.BeaconConfig().MinPerEpochChurnLimit
		assert.LessOrEqual(t, uint64(len(want.Activated)), churn)
		for idx, v := range st.Validators() {
			assert.LessOrEqual(t, v.EffectiveBalance, params.BeaconConfig().MaxEffectiveBalance)
			assert.Equal(t, uint64(0), v.EffectiveBalance%params.BeaconConfig().EffectiveBalanceIncrement)
			assert.Equal(t, before[idx].Slashed, v.Slashed)
		}
	}
}

func TestProcessEpoch_FuzzedPendingAttestations(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.OverrideBeaconConfig(params.MinimalSpecConfig())
	fuzzer := fuzz.NewWithSeed(1).NilChance(0.1)

	for i := 0; i < 50; i++ {
		st := util.StateAtEpoch(t, 16, 3)
		var atts []*ethpb.PendingAttestation
		fuzzer.NumElements(1, 4).Fuzz(&atts)
		for _, a := range atts {
			st.AppendCurrentEpochAttestations(a)
		}
		// Arbitrary attestations must be rejected with an error, never a panic.
		assert.NotPanics(t, func() {
			_, _ = NewEngine().ProcessEpoch(context.Background(), st, loadedContext(t, st))
		})
	}
}
