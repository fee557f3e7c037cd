package helpers

import (
	"context"
	"sort"
	"testing"

	"github.com/pkg/errors"
	"github.com/prysmaticlabs/epochengine/beacon-chain/state"
	"github.com/prysmaticlabs/epochengine/config/params"
	types "github.com/prysmaticlabs/epochengine/consensus-types/primitives"
	"github.com/prysmaticlabs/epochengine/crypto/hash"
	"github.com/prysmaticlabs/epochengine/encoding/bytesutil"
	"github.com/prysmaticlabs/epochengine/testing/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadedContext(t *testing.T, st *state.BeaconState) *EpochContext {
	ec := NewEpochContext()
	require.NoError(t, ec.Load(context.Background(), st))
	return ec
}

func TestEpochContext_PubkeyTable(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.OverrideBeaconConfig(params.MinimalSpecConfig())
	st := util.StateAtEpoch(t, 16, 2)
	ec := loadedContext(t, st)

	assert.Equal(t, 16, ec.PubkeyCount())
	for i := uint64(0); i < 16; i++ {
		idx, err := ec.ValidatorIndex(util.DeterministicPubkey(i))
		require.NoError(t, err)
		assert.Equal(t, types.ValidatorIndex(i), idx)
		pk, ok := ec.Pubkey(types.ValidatorIndex(i))
		require.True(t, ok)
		assert.Equal(t, util.DeterministicPubkey(i), pk)
	}
	_, ok := ec.Pubkey(16)
	assert.False(t, ok)
}

func TestEpochContext_UnknownPubkey(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.OverrideBeaconConfig(params.MinimalSpecConfig())
	ec := loadedContext(t, util.StateAtEpoch(t, 4, 1))

	unknown := util.DeterministicPubkey(100)
	_, err := ec.ValidatorIndex(unknown)
	var lookupErr *IndexLookupError
	require.True(t, errors.As(err, &lookupErr))
	assert.Equal(t, unknown, lookupErr.Pubkey())
}

func TestEpochContext_LoadSupersetAppends(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.OverrideBeaconConfig(params.MinimalSpecConfig())
	ec := loadedContext(t, util.StateAtEpoch(t, 8, 1))
	require.Equal(t, 8, ec.PubkeyCount())

	// Loading the same registry again changes nothing.
	require.NoError(t, ec.Load(context.Background(), util.StateAtEpoch(t, 8, 1)))
	require.Equal(t, 8, ec.PubkeyCount())

	bigger := util.StateAtEpoch(t, 12, 2)
	require.NoError(t, ec.Load(context.Background(), bigger))
	assert.Equal(t, 12, ec.PubkeyCount())
	idx, err := ec.ValidatorIndex(util.DeterministicPubkey(11))
	require.NoError(t, err)
	assert.Equal(t, types.ValidatorIndex(11), idx)
	idx, err = ec.ValidatorIndex(util.DeterministicPubkey(3))
	require.NoError(t, err)
	assert.Equal(t, types.ValidatorIndex(3), idx)
}

func TestEpochContext_RemapIsCorruption(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.OverrideBeaconConfig(params.MinimalSpecConfig())
	ec := loadedContext(t, util.StateAtEpoch(t, 8, 1))

	st := util.StateAtEpoch(t, 8, 1)
	v, err := st.ValidatorAtIndex(2)
	require.NoError(t, err)
	v.PublicKey = util.DeterministicPubkey(200)
	require.NoError(t, st.UpdateValidatorAtIndex(2, v))
	err = ec.Load(context.Background(), st)
	var corrupt *state.StateCorruptError
	assert.True(t, errors.As(err, &corrupt), "rebinding index 2 must fail: %v", err)

	dup := util.StateAtEpoch(t, 10, 1)
	v, err = dup.ValidatorAtIndex(9)
	require.NoError(t, err)
	v.PublicKey = util.DeterministicPubkey(1)
	require.NoError(t, dup.UpdateValidatorAtIndex(9, v))
	err = ec.Load(context.Background(), dup)
	assert.True(t, errors.As(err, &corrupt), "duplicate public key must fail: %v", err)
}

func TestEpochContext_TotalActiveBalance(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.OverrideBeaconConfig(params.MinimalSpecConfig())
	st := util.StateAtEpoch(t, 10, 3)
	v, err := st.ValidatorAtIndex(0)
	require.NoError(t, err)
	v.ExitEpoch = 3
	require.NoError(t, st.UpdateValidatorAtIndex(0, v))

	ec := loadedContext(t, st)
	want, err := TotalActiveBalance(st)
	require.NoError(t, err)
	assert.Equal(t, want, ec.TotalActiveBalance())
	assert.Equal(t, 9*params.BeaconConfig().MaxEffectiveBalance, ec.TotalActiveBalance())

	active, err := ec.ActiveIndices(2)
	require.NoError(t, err)
	assert.Equal(t, 10, len(active), "validator 0 was still active in the previous epoch")
	active, err = ec.ActiveIndices(3)
	require.NoError(t, err)
	assert.Equal(t, 9, len(active))
}

func TestEpochContext_NoActiveValidators(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.OverrideBeaconConfig(params.MinimalSpecConfig())
	st, err := util.NewBeaconState(util.FillRootsNaturalOpt)
	require.NoError(t, err)
	ec := loadedContext(t, st)
	assert.Equal(t, params.BeaconConfig().EffectiveBalanceIncrement, ec.TotalActiveBalance())
	_, err = ec.ProposerIndex(0)
	assert.ErrorContains(t, err, "no active validators")
}

func TestEpochContext_CommitteesPartitionActiveSet(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.OverrideBeaconConfig(params.MinimalSpecConfig())
	ClearShuffledValidatorCache()
	cfg := params.BeaconConfig()
	st := util.StateAtEpoch(t, 100, 2)
	ec := loadedContext(t, st)

	for _, epoch := range []types.Epoch{1, 2} {
		cps, err := ec.CommitteeCountPerSlot(epoch)
		require.NoError(t, err)
		assert.Equal(t, SlotCommitteeCount(100), cps)

		var seen []types.ValidatorIndex
		start := StartSlot(epoch)
		for slot := start; slot < start+cfg.SlotsPerEpoch; slot++ {
			for c := uint64(0); c < cps; c++ {
				committee, err := ec.BeaconCommittee(slot, types.CommitteeIndex(c))
				require.NoError(t, err)
				seen = append(seen, committee...)
			}
		}
		sort.Slice(seen, func(i, j int) bool { return seen[i] < seen[j] })
		active, err := ec.ActiveIndices(epoch)
		require.NoError(t, err)
		assert.Equal(t, active, seen, "committees of epoch %d must cover every active validator once", epoch)
	}
}

func TestEpochContext_BeaconCommitteeMatchesState(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.OverrideBeaconConfig(params.MinimalSpecConfig())
	ClearShuffledValidatorCache()
	st := util.StateAtEpoch(t, 64, 3)
	ec := loadedContext(t, st)

	slot := StartSlot(3) + 5
	for c := types.CommitteeIndex(0); c < 2; c++ {
		fromCtx, err := ec.BeaconCommittee(slot, c)
		require.NoError(t, err)
		fromState, err := BeaconCommitteeFromState(context.Background(), st, slot, c)
		require.NoError(t, err)
		assert.Equal(t, fromState, fromCtx)

		// compute_committee reference: indices[compute_shuffled_index(i)].
		active, err := ActiveValidatorIndices(st, 3)
		require.NoError(t, err)
		seed, err := Seed(st, 3, params.BeaconConfig().DomainBeaconAttester)
		require.NoError(t, err)
		count := SlotCommitteeCount(64) * uint64(params.BeaconConfig().SlotsPerEpoch)
		index := uint64(slot%params.BeaconConfig().SlotsPerEpoch)*SlotCommitteeCount(64) + uint64(c)
		start := uint64(len(active)) * index / count
		end := uint64(len(active)) * (index + 1) / count
		var want []types.ValidatorIndex
		for i := start; i < end; i++ {
			pos, err := ComputeShuffledIndex(i, uint64(len(active)), seed, true)
			require.NoError(t, err)
			want = append(want, active[pos])
		}
		assert.Equal(t, want, fromCtx)
	}
}

func TestEpochContext_BeaconCommitteeOutOfRange(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.OverrideBeaconConfig(params.MinimalSpecConfig())
	st := util.StateAtEpoch(t, 16, 3)
	ec := loadedContext(t, st)

	var corrupt *state.StateCorruptError
	_, err := ec.BeaconCommittee(StartSlot(3), 1)
	assert.True(t, errors.As(err, &corrupt), "committee index beyond committees per slot: %v", err)
	_, err = ec.BeaconCommittee(StartSlot(1), 0)
	assert.True(t, errors.As(err, &corrupt), "epoch outside of the context: %v", err)
}

func TestEpochContext_Proposers(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.OverrideBeaconConfig(params.MinimalSpecConfig())
	cfg := params.BeaconConfig()
	st := util.StateAtEpoch(t, 32, 2)
	ec := loadedContext(t, st)

	seed, err := Seed(st, 2, cfg.DomainBeaconProposer)
	require.NoError(t, err)
	active, err := ActiveValidatorIndices(st, 2)
	require.NoError(t, err)
	for slot := StartSlot(2); slot < StartSlot(3); slot++ {
		got, err := ec.ProposerIndex(slot)
		require.NoError(t, err)
		// With every validator at the maximum effective balance the first candidate wins.
		slotSeed := hash.Hash(append(seed[:], bytesutil.Bytes8(uint64(slot))...))
		pos, err := ComputeShuffledIndex(0, uint64(len(active)), slotSeed, true)
		require.NoError(t, err)
		assert.Equal(t, active[pos], got, "slot %d", slot)
	}
	_, err = ec.ProposerIndex(StartSlot(3))
	assert.Error(t, err)
}

func TestEpochContext_GenesisSharesShuffling(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.OverrideBeaconConfig(params.MinimalSpecConfig())
	st := util.DeterministicGenesisState(t, 16)
	ec := loadedContext(t, st)
	assert.Equal(t, types.Epoch(0), ec.PreviousEpoch())
	assert.Equal(t, types.Epoch(0), ec.CurrentEpoch())
	prev, err := ec.Shuffling(0)
	require.NoError(t, err)
	assert.Equal(t, types.Epoch(0), prev.Epoch)
}

func TestEpochContext_NotLoaded(t *testing.T) {
	ec := NewEpochContext()
	_, err := ec.BeaconCommittee(0, 0)
	assert.ErrorContains(t, err, "not loaded")
	_, err = ec.ProposerIndex(0)
	assert.ErrorContains(t, err, "not loaded")
}

func TestEpochContext_NilState(t *testing.T) {
	ec := NewEpochContext()
	err := ec.Load(context.Background(), &state.BeaconState{})
	assert.ErrorIs(t, err, state.ErrNilInnerState)
}
