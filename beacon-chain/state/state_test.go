package state_test

import (
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/prysmaticlabs/epochengine/beacon-chain/state"
	"github.com/prysmaticlabs/epochengine/config/params"
	"github.com/prysmaticlabs/epochengine/consensus-types/primitives"
	ethpb "github.com/prysmaticlabs/epochengine/proto/prysm/v1alpha1"
	"github.com/prysmaticlabs/epochengine/testing/util"
	"github.com/prysmaticlabs/go-bitfield"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeaconState_SlotDataRace(t *testing.T) {
	headState, err := state.InitializeFromProto(&ethpb.BeaconState{Slot: 1})
	require.NoError(t, err)

	wg := sync.WaitGroup{}
	wg.Add(2)
	go func() {
		headState.SetSlot(0)
		wg.Done()
	}()
	go func() {
		headState.Slot()
		wg.Done()
	}()

	wg.Wait()
}

func TestInitializeFromProto_Nil(t *testing.T) {
	_, err := state.InitializeFromProto(nil)
	require.ErrorIs(t, err, state.ErrNilInnerState)
}

func TestBeaconState_CopyIsIndependent(t *testing.T) {
	st := util.DeterministicGenesisState(t, 8)
	cp := st.Copy()
	require.Equal(t, st.CloneInnerState(), cp.CloneInnerState())

	require.NoError(t, cp.UpdateBalancesAtIndex(0, 1))
	v, err := cp.ValidatorAtIndex(1)
	require.NoError(t, err)
	v.Slashed = true
	require.NoError(t, cp.UpdateValidatorAtIndex(1, v))
	cp.SetJustificationBits(bitfield.Bitvector4{0x0f})

	bal, err := st.BalanceAtIndex(0)
	require.NoError(t, err)
	assert.Equal(t, params.BeaconConfig().MaxEffectiveBalance, bal)
	orig, err := st.ValidatorAtIndex(1)
	require.NoError(t, err)
	assert.False(t, orig.Slashed)
	assert.Equal(t, bitfield.Bitvector4{0x00}, st.JustificationBits())
}

func TestBeaconState_GettersReturnCopies(t *testing.T) {
	st := util.DeterministicGenesisState(t, 4)
	vals := st.Validators()
	vals[0].EffectiveBalance = 0
	v, err := st.ValidatorAtIndex(0)
	require.NoError(t, err)
	assert.Equal(t, params.BeaconConfig().MaxEffectiveBalance, v.EffectiveBalance)

	cp := st.FinalizedCheckpoint()
	cp.Epoch = 10
	assert.Equal(t, primitives.Epoch(0), st.FinalizedCheckpointEpoch())
}

func TestBeaconState_OutOfRange(t *testing.T) {
	st := util.DeterministicGenesisState(t, 4)
	var corrupt *state.StateCorruptError

	_, err := st.ValidatorAtIndex(4)
	require.True(t, errors.As(err, &corrupt))
	_, err = st.BalanceAtIndex(100)
	require.True(t, errors.As(err, &corrupt))
	err = st.UpdateRandaoMixesAtIndex(uint64(st.RandaoMixesLength()), [32]byte{})
	require.True(t, errors.As(err, &corrupt))
	err = st.SetBalances([]uint64{1})
	require.True(t, errors.As(err, &corrupt))
	assert.Contains(t, err.Error(), "state corrupt")
}

func TestBeaconState_Validate(t *testing.T) {
	st := util.DeterministicGenesisState(t, 4)
	require.NoError(t, st.Validate())

	tests := []struct {
		name   string
		mutate func(s *ethpb.BeaconState)
	}{
		{name: "balances", mutate: func(s *ethpb.BeaconState) { s.Balances = s.Balances[:3] }},
		{name: "block roots", mutate: func(s *ethpb.BeaconState) { s.BlockRoots = s.BlockRoots[:1] }},
		{name: "randao mixes", mutate: func(s *ethpb.BeaconState) { s.RandaoMixes = s.RandaoMixes[:1] }},
		{name: "slashings", mutate: func(s *ethpb.BeaconState) { s.Slashings = nil }},
		{name: "checkpoint", mutate: func(s *ethpb.BeaconState) { s.FinalizedCheckpoint = nil }},
		{name: "nil validator", mutate: func(s *ethpb.BeaconState) { s.Validators[2] = nil }},
		{name: "attestation", mutate: func(s *ethpb.BeaconState) {
			s.CurrentEpochAttestations = []*ethpb.PendingAttestation{{AggregationBits: bitfield.NewBitlist(1)}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := st.CloneInnerState()
			tt.mutate(inner)
			bad, err := state.InitializeFromProtoUnsafe(inner)
			require.NoError(t, err)
			var corrupt *state.StateCorruptError
			require.True(t, errors.As(bad.Validate(), &corrupt))
		})
	}
}

func TestBeaconState_RotateAttestations(t *testing.T) {
	st := util.DeterministicGenesisState(t, 4)
	att := &ethpb.PendingAttestation{
		AggregationBits: bitfield.NewBitlist(2),
		Data:            &ethpb.AttestationData{Slot: 3, Source: &ethpb.Checkpoint{}, Target: &ethpb.Checkpoint{}},
		InclusionDelay:  1,
	}
	st.AppendCurrentEpochAttestations(att)
	st.RotateAttestations()
	assert.Equal(t, 0, len(st.CurrentEpochAttestations()))
	require.Equal(t, 1, len(st.PreviousEpochAttestations()))
	assert.Equal(t, att, st.PreviousEpochAttestations()[0])
}

func TestBeaconState_TransitionGuard(t *testing.T) {
	st := util.DeterministicGenesisState(t, 1)
	require.True(t, st.BeginTransition())
	require.False(t, st.BeginTransition())
	st.EndTransition()
	require.True(t, st.BeginTransition())
}

func TestBeaconState_ApplyToEveryValidator(t *testing.T) {
	st := util.DeterministicGenesisState(t, 4)
	require.NoError(t, st.ApplyToEveryValidator(func(idx int, val *ethpb.Validator) (bool, error) {
		if idx%2 == 0 {
			val.Slashed = true
			return true, nil
		}
		val.Slashed = true
		return false, nil
	}))
	for i, v := range st.Validators() {
		assert.Equal(t, i%2 == 0, v.Slashed, "validator %d", i)
	}
}
