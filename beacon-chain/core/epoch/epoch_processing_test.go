package epoch

import (
	"context"
	"sort"
	"testing"

	"github.com/prysmaticlabs/epochengine/beacon-chain/core/helpers"
	"github.com/prysmaticlabs/epochengine/beacon-chain/state"
	"github.com/prysmaticlabs/epochengine/config/params"
	types "github.com/prysmaticlabs/epochengine/consensus-types/primitives"
	ethpb "github.com/prysmaticlabs/epochengine/proto/prysm/v1alpha1"
	"github.com/prysmaticlabs/epochengine/testing/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadedContext(t *testing.T, st *state.BeaconState) *helpers.EpochContext {
	ec := helpers.NewEpochContext()
	require.NoError(t, ec.Load(context.Background(), st))
	return ec
}

func updateValidator(t *testing.T, st *state.BeaconState, idx types.ValidatorIndex, f func(v *ethpb.Validator)) {
	v, err := st.ValidatorAtIndex(idx)
	require.NoError(t, err)
	f(v)
	require.NoError(t, st.UpdateValidatorAtIndex(idx, v))
}

func TestSortableIndices(t *testing.T) {
	vals := []*ethpb.Validator{
		{ActivationEligibilityEpoch: 2},
		{ActivationEligibilityEpoch: 1},
		{ActivationEligibilityEpoch: 2},
		{ActivationEligibilityEpoch: 0},
	}
	indices := []types.ValidatorIndex{2, 0, 1, 3}
	sort.Sort(sortableIndices{indices: indices, validators: vals})
	assert.Equal(t, []types.ValidatorIndex{3, 1, 0, 2}, indices)
}

func TestProcessRegistryUpdates_ActivationQueueChurn(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.OverrideBeaconConfig(params.MinimalSpecConfig())
	cfg := params.BeaconConfig()
	st := util.StateAtEpoch(t, 26, 5)
	st.SetFinalizedCheckpoint(&ethpb.Checkpoint{Epoch: 3})

	// Ten pending validators, two of which became eligible earlier than the rest.
	for i := types.ValidatorIndex(16); i < 26; i++ {
		eligibility := types.Epoch(2)
		if i >= 24 {
			eligibility = 1
		}
		updateValidator(t, st, i, func(v *ethpb.Validator) {
			v.ActivationEligibilityEpoch = eligibility
			v.ActivationEpoch = cfg.FarFutureEpoch
		})
	}
	ec := loadedContext(t, st)

	changes, err := ProcessRegistryUpdates(context.Background(), st, ec)
	require.NoError(t, err)
	require.Equal(t, []types.ValidatorIndex{24, 25, 16, 17}, changes.Activated)
	assert.Empty(t, changes.Ejected)

	activationEpoch := helpers.ActivationExitEpoch(5)
	vals := st.Validators()
	for _, idx := range changes.Activated {
		assert.Equal(t, activationEpoch, vals[idx].ActivationEpoch, "validator %d", idx)
	}
	pending := 0
	for i := 16; i < 26; i++ {
		if vals[i].ActivationEpoch == cfg.FarFutureEpoch {
			pending++
		}
	}
	assert.Equal(t, 6, pending)
}

func TestProcessRegistryUpdates_EligibilityAndEjection(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.OverrideBeaconConfig(params.MinimalSpecConfig())
	cfg := params.BeaconConfig()
	st := util.StateAtEpoch(t, 8, 5)

	// A new deposit at the maximum balance joins the activation queue next epoch.
	updateValidator(t, st, 6, func(v *ethpb.Validator) {
		v.ActivationEligibilityEpoch = cfg.FarFutureEpoch
		v.ActivationEpoch = cfg.FarFutureEpoch
	})
	// An underfunded deposit does not.
	updateValidator(t, st, 7, func(v *ethpb.Validator) {
		v.ActivationEligibilityEpoch = cfg.FarFutureEpoch
		v.ActivationEpoch = cfg.FarFutureEpoch
		v.EffectiveBalance = cfg.MaxEffectiveBalance - cfg.EffectiveBalanceIncrement
	})
	// Validator 0 sits at the ejection balance and validator 1 already exits.
	updateValidator(t, st, 0, func(v *ethpb.Validator) {
		v.EffectiveBalance = cfg.EjectionBalance
	})
	updateValidator(t, st, 1, func(v *ethpb.Validator) {
		v.EffectiveBalance = cfg.EjectionBalance
		v.ExitEpoch = 20
		v.WithdrawableEpoch = 20 + cfg.MinValidatorWithdrawabilityDelay
	})
	ec := loadedContext(t, st)

	changes, err := ProcessRegistryUpdates(context.Background(), st, ec)
	require.NoError(t, err)
	assert.Equal(t, []types.ValidatorIndex{0}, changes.Ejected)
	assert.Empty(t, changes.Activated)

	vals := st.Validators()
	assert.Equal(t, types.Epoch(6), vals[6].ActivationEligibilityEpoch)
	assert.Equal(t, cfg.FarFutureEpoch, vals[7].ActivationEligibilityEpoch)
	// The ejection queues behind the latest scheduled exit.
	assert.Equal(t, types.Epoch(20), vals[0].ExitEpoch)
	assert.Equal(t, 20+cfg.MinValidatorWithdrawabilityDelay, vals[0].WithdrawableEpoch)
	assert.Equal(t, types.Epoch(20), vals[1].ExitEpoch)
}

func TestProcessEth1DataReset(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.OverrideBeaconConfig(params.MinimalSpecConfig())

	votes := []*ethpb.Eth1Data{{DepositCount: 1}, {DepositCount: 2}}
	st := util.StateAtEpoch(t, 4, 4)
	st.SetEth1DataVotes(votes)
	ProcessEth1DataReset(st)
	assert.Len(t, st.Eth1DataVotes(), 2, "votes are kept mid voting period")

	st = util.StateAtEpoch(t, 4, 3)
	st.SetEth1DataVotes(votes)
	ProcessEth1DataReset(st)
	assert.Empty(t, st.Eth1DataVotes())
}

func TestProcessEffectiveBalanceUpdates_Hysteresis(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.OverrideBeaconConfig(params.MinimalSpecConfig())
	st := util.StateAtEpoch(t, 5, 3)

	tests := []struct {
		effective uint64
		balance   uint64
		want      uint64
	}{
		{effective: 32e9, balance: 31_800_000_000, want: 32e9},
		{effective: 32e9, balance: 31_700_000_000, want: 31e9},
		{effective: 31e9, balance: 32_300_000_000, want: 32e9},
		{effective: 31e9, balance: 40e9, want: 32e9},
		{effective: 30e9, balance: 31_200_000_000, want: 30e9},
	}
	bals := make([]uint64, len(tests))
	for i, tt := range tests {
		tt := tt
		updateValidator(t, st, types.ValidatorIndex(i), func(v *ethpb.Validator) {
			v.EffectiveBalance = tt.effective
		})
		bals[i] = tt.balance
	}
	require.NoError(t, st.SetBalances(bals))

	require.NoError(t, ProcessEffectiveBalanceUpdates(st))
	vals := st.Validators()
	for i, tt := range tests {
		assert.Equal(t, tt.want, vals[i].EffectiveBalance, "validator %d", i)
	}
	assert.Equal(t, bals, st.Balances(), "balances are untouched")
}

func TestProcessSlashingsReset(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.OverrideBeaconConfig(params.MinimalSpecConfig())
	st := util.StateAtEpoch(t, 4, 3)
	require.NoError(t, st.UpdateSlashingsAtIndex(3, 5))
	require.NoError(t, st.UpdateSlashingsAtIndex(4, 7))

	require.NoError(t, ProcessSlashingsReset(st))
	slashings := st.Slashings()
	assert.Equal(t, uint64(5), slashings[3])
	assert.Equal(t, uint64(0), slashings[4])
}

func TestProcessRandaoMixesReset(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.OverrideBeaconConfig(params.MinimalSpecConfig())
	st := util.StateAtEpoch(t, 4, 3)
	current, err := st.RandaoMixAtIndex(3)
	require.NoError(t, err)

	require.NoError(t, ProcessRandaoMixesReset(st))
	next, err := st.RandaoMixAtIndex(4)
	require.NoError(t, err)
	assert.Equal(t, current, next)
}

func TestProcessHistoricalDataUpdate(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.OverrideBeaconConfig(params.MinimalSpecConfig())

	st := util.StateAtEpoch(t, 4, 6)
	require.NoError(t, ProcessHistoricalDataUpdate(st))
	assert.Empty(t, st.HistoricalRoots())

	// Epoch 8 starts a new historical root period.
	st = util.StateAtEpoch(t, 4, 7)
	require.NoError(t, ProcessHistoricalDataUpdate(st))
	batch := &ethpb.HistoricalBatch{BlockRoots: st.BlockRoots(), StateRoots: st.StateRoots()}
	want, err := batch.HashTreeRoot()
	require.NoError(t, err)
	require.Len(t, st.HistoricalRoots(), 1)
	assert.Equal(t, want, st.HistoricalRoots()[0])
}

func TestProcessFinalUpdates_RotatesAttestations(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.OverrideBeaconConfig(params.MinimalSpecConfig())
	st := util.StateAtEpoch(t, 4, 3)
	att := &ethpb.PendingAttestation{Data: &ethpb.AttestationData{Slot: 25}, InclusionDelay: 1}
	st.AppendCurrentEpochAttestations(att)
	st.AppendPreviousEpochAttestations(&ethpb.PendingAttestation{Data: &ethpb.AttestationData{Slot: 17}, InclusionDelay: 1})

	_, err := ProcessFinalUpdates(st)
	require.NoError(t, err)
	assert.Empty(t, st.CurrentEpochAttestations())
	prev := st.PreviousEpochAttestations()
	require.Len(t, prev, 1)
	assert.Equal(t, types.Slot(25), prev[0].Data.Slot)
}
