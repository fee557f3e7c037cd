package helpers

import (
	"github.com/prysmaticlabs/epochengine/beacon-chain/state"
	"github.com/prysmaticlabs/epochengine/config/params"
	types "github.com/prysmaticlabs/epochengine/consensus-types/primitives"
	"github.com/prysmaticlabs/epochengine/crypto/hash"
	"github.com/prysmaticlabs/epochengine/encoding/bytesutil"
)

// Seed returns the randao seed used for shuffling of a given epoch.
//
// Spec pseudocode definition:
//
//	def get_seed(state: BeaconState, epoch: Epoch, domain_type: DomainType) -> Bytes32:
//	  """
//	  Return the seed at ``epoch``.
//	  """
//	  mix = get_randao_mix(state, Epoch(epoch + EPOCHS_PER_HISTORICAL_VECTOR - MIN_SEED_LOOKAHEAD - 1))  # Avoid underflow
//	  return hash(domain_type + uint_to_bytes(epoch) + mix)
func Seed(st *state.BeaconState, epoch types.Epoch, domain [4]byte) ([32]byte, error) {
	cfg := params.BeaconConfig()
	// See https://github.com/ethereum/consensus-specs/pull/1296 for
	// rationale on why offset has to look down by 1.
	lookAheadEpoch := epoch + cfg.EpochsPerHistoricalVector - cfg.MinSeedLookahead - 1

	randaoMix, err := RandaoMix(st, lookAheadEpoch)
	if err != nil {
		return [32]byte{}, err
	}
	seed := append(domain[:], bytesutil.Bytes8(uint64(epoch))...)
	seed = append(seed, randaoMix[:]...)
	return hash.Hash(seed), nil
}

// RandaoMix returns the randao mix (xor'ed seed)
// of a given slot. It is used to shuffle validators.
//
// Spec pseudocode definition:
//
//	def get_randao_mix(state: BeaconState, epoch: Epoch) -> Bytes32:
//	  """
//	  Return the randao mix at a recent ``epoch``.
//	  """
//	  return state.randao_mixes[epoch % EPOCHS_PER_HISTORICAL_VECTOR]
func RandaoMix(st *state.BeaconState, epoch types.Epoch) ([32]byte, error) {
	return st.RandaoMixAtIndex(uint64(epoch % params.BeaconConfig().EpochsPerHistoricalVector))
}
