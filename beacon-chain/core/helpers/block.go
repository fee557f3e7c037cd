package helpers

import (
	"math"

	"github.com/prysmaticlabs/epochengine/beacon-chain/state"
	"github.com/prysmaticlabs/epochengine/config/params"
	types "github.com/prysmaticlabs/epochengine/consensus-types/primitives"
)

// BlockRootAtSlot returns the block root stored in the BeaconState for a recent slot.
// It returns a StateCorruptError if the requested block root is not within the slot range.
//
// Spec pseudocode definition:
//
//	def get_block_root_at_slot(state: BeaconState, slot: Slot) -> Root:
//	  """
//	  Return the block root at a recent ``slot``.
//	  """
//	  assert slot < state.slot <= slot + SLOTS_PER_HISTORICAL_ROOT
//	  return state.block_roots[slot % SLOTS_PER_HISTORICAL_ROOT]
func BlockRootAtSlot(st *state.BeaconState, slot types.Slot) ([32]byte, error) {
	sphr := params.BeaconConfig().SlotsPerHistoricalRoot
	if math.MaxUint64-slot < sphr {
		return [32]byte{}, state.NewStateCorruptError("slot %d overflows uint64", slot)
	}
	if slot >= st.Slot() || st.Slot() > slot+sphr {
		return [32]byte{}, state.NewStateCorruptError("slot %d out of bounds of state slot %d", slot, st.Slot())
	}
	return st.BlockRootAtIndex(uint64(slot % sphr))
}

// BlockRoot returns the block root stored in the BeaconState for epoch start slot.
//
// Spec pseudocode definition:
//
//	def get_block_root(state: BeaconState, epoch: Epoch) -> Root:
//	  """
//	  Return the block root at the start of a recent ``epoch``.
//	  """
//	  return get_block_root_at_slot(state, compute_start_slot_at_epoch(epoch))
func BlockRoot(st *state.BeaconState, epoch types.Epoch) ([32]byte, error) {
	return BlockRootAtSlot(st, StartSlot(epoch))
}
