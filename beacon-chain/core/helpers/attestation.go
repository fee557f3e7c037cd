package helpers

import (
	"github.com/prysmaticlabs/epochengine/beacon-chain/state"
	types "github.com/prysmaticlabs/epochengine/consensus-types/primitives"
	"github.com/prysmaticlabs/go-bitfield"
)

// AttestingIndices returns the attesting participants indices from the attestation data. The
// aggregation bits must cover exactly the committee.
//
// Spec pseudocode definition:
//
//	def get_attesting_indices(state: BeaconState,
//	                        data: AttestationData,
//	                        bits: Bitlist[MAX_VALIDATORS_PER_COMMITTEE]) -> Set[ValidatorIndex]:
//	  """
//	  Return the set of attesting indices corresponding to ``data`` and ``bits``.
//	  """
//	  committee = get_beacon_committee(state, data.slot, data.index)
//	  return set(index for i, index in enumerate(committee) if bits[i])
func AttestingIndices(bf bitfield.Bitlist, committee []types.ValidatorIndex) ([]types.ValidatorIndex, error) {
	if len(bf) == 0 || bf.Len() != uint64(len(committee)) {
		return nil, state.NewStateCorruptError("bitfield length %d is not equal to committee length %d", bf.Len(), len(committee))
	}
	indices := make([]types.ValidatorIndex, 0, bf.Count())
	for _, idx := range bf.BitIndices() {
		if idx < len(committee) {
			indices = append(indices, committee[idx])
		}
	}
	return indices, nil
}
