package util

import (
	"github.com/prysmaticlabs/epochengine/beacon-chain/state"
	"github.com/prysmaticlabs/epochengine/config/params"
	"github.com/prysmaticlabs/epochengine/consensus-types/primitives"
	ethpb "github.com/prysmaticlabs/epochengine/proto/prysm/v1alpha1"
	"github.com/prysmaticlabs/go-bitfield"
)

// CommitteeFunc returns the beacon committee at the given slot and committee index.
type CommitteeFunc func(slot primitives.Slot, idx primitives.CommitteeIndex) ([]primitives.ValidatorIndex, error)

// PendingAttestationsForEpoch builds one pending attestation per committee of the epoch.
// Committee members accepted by participate set their aggregation bit and vote for the
// state's justified checkpoint, the epoch boundary root as target and the canonical head.
// A nil participate includes every member.
func PendingAttestationsForEpoch(
	st *state.BeaconState,
	epoch primitives.Epoch,
	committeesPerSlot uint64,
	committee CommitteeFunc,
	participate func(primitives.ValidatorIndex) bool,
) ([]*ethpb.PendingAttestation, error) {
	cfg := params.BeaconConfig()
	spe := uint64(cfg.SlotsPerEpoch)
	sphr := uint64(cfg.SlotsPerHistoricalRoot)
	startSlot := primitives.Slot(uint64(epoch) * spe)
	targetRoot, err := st.BlockRootAtIndex(uint64(startSlot) % sphr)
	if err != nil {
		return nil, err
	}
	currentEpoch := primitives.Epoch(uint64(st.Slot()) / spe)
	source := st.PreviousJustifiedCheckpoint()
	if epoch == currentEpoch {
		source = st.CurrentJustifiedCheckpoint()
	}

	var atts []*ethpb.PendingAttestation
	for s := startSlot; s < startSlot+primitives.Slot(spe); s++ {
		var headRoot [32]byte
		if s < st.Slot() {
			headRoot, err = st.BlockRootAtIndex(uint64(s) % sphr)
			if err != nil {
				return nil, err
			}
		}
		for c := uint64(0); c < committeesPerSlot; c++ {
			members, err := committee(s, primitives.CommitteeIndex(c))
			if err != nil {
				return nil, err
			}
			bits := bitfield.NewBitlist(uint64(len(members)))
			for i, m := range members {
				if participate == nil || participate(m) {
					bits.SetBitAt(uint64(i), true)
				}
			}
			atts = append(atts, &ethpb.PendingAttestation{
				AggregationBits: bits,
				Data: &ethpb.AttestationData{
					Slot:            s,
					CommitteeIndex:  primitives.CommitteeIndex(c),
					BeaconBlockRoot: headRoot,
					Source:          source,
					Target:          &ethpb.Checkpoint{Epoch: epoch, Root: targetRoot},
				},
				InclusionDelay: 1,
				ProposerIndex:  0,
			})
		}
	}
	return atts, nil
}

// AppendEpochAttestations appends pending attestations to the previous or current
// epoch list of the state.
func AppendEpochAttestations(st *state.BeaconState, previous bool, atts []*ethpb.PendingAttestation) {
	for _, a := range atts {
		if previous {
			st.AppendPreviousEpochAttestations(a)
		} else {
			st.AppendCurrentEpochAttestations(a)
		}
	}
}
