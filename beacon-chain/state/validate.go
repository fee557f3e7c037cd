package state

import (
	"github.com/prysmaticlabs/epochengine/config/params"
	ethpb "github.com/prysmaticlabs/epochengine/proto/prysm/v1alpha1"
)

// Validate checks the length invariants of the beacon state against the
// active chain config.
func (b *BeaconState) Validate() error {
	if b.IsNil() {
		return ErrNilInnerState
	}
	b.lock.RLock()
	defer b.lock.RUnlock()

	cfg := params.BeaconConfig()
	st := b.state
	if len(st.Validators) != len(st.Balances) {
		return NewStateCorruptError("%d validators but %d balances", len(st.Validators), len(st.Balances))
	}
	if uint64(len(st.BlockRoots)) != uint64(cfg.SlotsPerHistoricalRoot) {
		return NewStateCorruptError("block roots length %d, wanted %d", len(st.BlockRoots), cfg.SlotsPerHistoricalRoot)
	}
	if uint64(len(st.StateRoots)) != uint64(cfg.SlotsPerHistoricalRoot) {
		return NewStateCorruptError("state roots length %d, wanted %d", len(st.StateRoots), cfg.SlotsPerHistoricalRoot)
	}
	if uint64(len(st.RandaoMixes)) != uint64(cfg.EpochsPerHistoricalVector) {
		return NewStateCorruptError("randao mixes length %d, wanted %d", len(st.RandaoMixes), cfg.EpochsPerHistoricalVector)
	}
	if uint64(len(st.Slashings)) != uint64(cfg.EpochsPerSlashingsVector) {
		return NewStateCorruptError("slashings length %d, wanted %d", len(st.Slashings), cfg.EpochsPerSlashingsVector)
	}
	if uint64(len(st.HistoricalRoots)) > cfg.HistoricalRootsLimit {
		return NewStateCorruptError("historical roots length %d exceeds limit %d", len(st.HistoricalRoots), cfg.HistoricalRootsLimit)
	}
	if st.Fork == nil || st.Eth1Data == nil {
		return NewStateCorruptError("missing fork or eth1 data")
	}
	if st.PreviousJustifiedCheckpoint == nil || st.CurrentJustifiedCheckpoint == nil || st.FinalizedCheckpoint == nil {
		return NewStateCorruptError("missing checkpoint")
	}
	if len(st.JustificationBits) != 1 {
		return NewStateCorruptError("justification bits of %d bytes, wanted 1", len(st.JustificationBits))
	}
	for i, v := range st.Validators {
		if v == nil {
			return NewStateCorruptError("nil validator at index %d", i)
		}
	}
	for _, atts := range [][]*ethpb.PendingAttestation{st.PreviousEpochAttestations, st.CurrentEpochAttestations} {
		for i, a := range atts {
			if a == nil || a.Data == nil || a.Data.Source == nil || a.Data.Target == nil {
				return NewStateCorruptError("malformed pending attestation at index %d", i)
			}
		}
	}
	return nil
}
