package helpers

import (
	"context"

	"github.com/pkg/errors"
	"github.com/prysmaticlabs/epochengine/beacon-chain/state"
	"github.com/prysmaticlabs/epochengine/config/params"
	types "github.com/prysmaticlabs/epochengine/consensus-types/primitives"
	"github.com/prysmaticlabs/epochengine/math"
	"go.opencensus.io/trace"
)

// SlotCommitteeCount returns the number of beacon committees of a slot.
//
// Spec pseudocode definition:
//
//	def get_committee_count_per_slot(state: BeaconState, epoch: Epoch) -> uint64:
//	  """
//	  Return the number of committees in each slot for the given ``epoch``.
//	  """
//	  return max(uint64(1), min(
//	      MAX_COMMITTEES_PER_SLOT,
//	      uint64(len(get_active_validator_indices(state, epoch))) // SLOTS_PER_EPOCH // TARGET_COMMITTEE_SIZE,
//	  ))
func SlotCommitteeCount(activeValidatorCount uint64) uint64 {
	cfg := params.BeaconConfig()
	committeesPerSlot := activeValidatorCount / uint64(cfg.SlotsPerEpoch) / cfg.TargetCommitteeSize
	return math.Max(1, math.Min(cfg.MaxCommitteesPerSlot, committeesPerSlot))
}

// ComputeCommittee returns the requested shuffled committee out of the total committees using
// validator indices and seed.
//
// Spec pseudocode definition:
//
//	def compute_committee(indices: Sequence[ValidatorIndex],
//	                    seed: Bytes32,
//	                    index: uint64,
//	                    count: uint64) -> Sequence[ValidatorIndex]:
//	  """
//	  Return the committee corresponding to ``indices``, ``seed``, ``index``, and committee ``count``.
//	  """
//	  start = (len(indices) * index) // count
//	  end = (len(indices) * uint64(index + 1)) // count
//	  return [indices[compute_shuffled_index(uint64(i), uint64(len(indices)), seed)] for i in range(start, end)]
//
// The shuffled argument is the output of UnshuffleList over the active indices, so
// the committee is a contiguous window of it.
func ComputeCommittee(shuffled []types.ValidatorIndex, index, count uint64) ([]types.ValidatorIndex, error) {
	if count == 0 || index >= count {
		return nil, errors.Errorf("committee index %d out of range of %d committees", index, count)
	}
	validatorCount := uint64(len(shuffled))
	start, err := splitOffset(validatorCount, count, index)
	if err != nil {
		return nil, err
	}
	end, err := splitOffset(validatorCount, count, index+1)
	if err != nil {
		return nil, err
	}
	committee := make([]types.ValidatorIndex, end-start)
	copy(committee, shuffled[start:end])
	return committee, nil
}

// splitOffset returns (listsize * index) / chunks
//
// Spec pseudocode definition:
// def get_split_offset(list_size: int, chunks: int, index: int) -> int:
//
//	"""
//	Returns a value such that for a list L, chunk count k and index i,
//	split(L, k)[i] == L[get_split_offset(len(L), k, i): get_split_offset(len(L), k, i+1)]
//	"""
//	return (list_size * index) // chunks
func splitOffset(listSize, chunks, index uint64) (uint64, error) {
	product, err := math.Mul64(listSize, index)
	if err != nil {
		return 0, errors.Wrap(err, "committee offset overflows")
	}
	return product / chunks, nil
}

// BeaconCommitteeFromState returns the beacon committee for a slot and committee index,
// deriving the shuffling straight from the state instead of an EpochContext.
//
// Spec pseudocode definition:
//
//	def get_beacon_committee(state: BeaconState, slot: Slot, index: CommitteeIndex) -> Sequence[ValidatorIndex]:
//	  """
//	  Return the beacon committee at ``slot`` for ``index``.
//	  """
//	  epoch = compute_epoch_at_slot(slot)
//	  committees_per_slot = get_committee_count_per_slot(state, epoch)
//	  return compute_committee(
//	      indices=get_active_validator_indices(state, epoch),
//	      seed=get_seed(state, epoch, DOMAIN_BEACON_ATTESTER),
//	      index=(slot % SLOTS_PER_EPOCH) * committees_per_slot + index,
//	      count=committees_per_slot * SLOTS_PER_EPOCH,
//	  )
func BeaconCommitteeFromState(ctx context.Context, st *state.BeaconState, slot types.Slot, committeeIndex types.CommitteeIndex) ([]types.ValidatorIndex, error) {
	_, span := trace.StartSpan(ctx, "helpers.BeaconCommitteeFromState")
	defer span.End()

	epoch := SlotToEpoch(slot)
	seed, err := Seed(st, epoch, params.BeaconConfig().DomainBeaconAttester)
	if err != nil {
		return nil, errors.Wrap(err, "could not get seed")
	}
	indices, err := ActiveValidatorIndices(st, epoch)
	if err != nil {
		return nil, errors.Wrap(err, "could not get active indices")
	}
	shuffled, err := shuffledIndices(indices, seed)
	if err != nil {
		return nil, errors.Wrap(err, "could not shuffle active indices")
	}
	return committeeAtSlot(shuffled, SlotCommitteeCount(uint64(len(indices))), slot, committeeIndex)
}

func committeeAtSlot(shuffled []types.ValidatorIndex, committeesPerSlot uint64, slot types.Slot, committeeIndex types.CommitteeIndex) ([]types.ValidatorIndex, error) {
	if uint64(committeeIndex) >= committeesPerSlot {
		return nil, state.NewStateCorruptError("committee index %d out of range of %d committees per slot", committeeIndex, committeesPerSlot)
	}
	spe := uint64(params.BeaconConfig().SlotsPerEpoch)
	indexOffset := uint64(slot)%spe*committeesPerSlot + uint64(committeeIndex)
	return ComputeCommittee(shuffled, indexOffset, committeesPerSlot*spe)
}
