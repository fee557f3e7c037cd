package state

import (
	"github.com/prysmaticlabs/epochengine/consensus-types/primitives"
	ethpb "github.com/prysmaticlabs/epochengine/proto/prysm/v1alpha1"
	"github.com/prysmaticlabs/go-bitfield"
)

// SetSlot for the beacon state.
func (b *BeaconState) SetSlot(val primitives.Slot) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.state.Slot = val
}

// SetFork version for the beacon chain.
func (b *BeaconState) SetFork(val *ethpb.Fork) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.state.Fork = val.Copy()
}

// UpdateBlockRootAtIndex for the beacon state. Updates the block root
// at a specific index to a new value.
func (b *BeaconState) UpdateBlockRootAtIndex(idx uint64, blockRoot [32]byte) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if uint64(len(b.state.BlockRoots)) <= idx {
		return NewStateCorruptError("block root index %d out of range of %d roots", idx, len(b.state.BlockRoots))
	}
	b.state.BlockRoots[idx] = blockRoot
	return nil
}

// AppendHistoricalRoots for the beacon state. Appends the new value
// to the end of list.
func (b *BeaconState) AppendHistoricalRoots(root [32]byte) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.state.HistoricalRoots = append(b.state.HistoricalRoots, root)
}

// SetEth1DataVotes for the beacon state. Updates the entire
// list to a new value by overwriting the previous one.
func (b *BeaconState) SetEth1DataVotes(val []*ethpb.Eth1Data) {
	b.lock.Lock()
	defer b.lock.Unlock()
	votes := make([]*ethpb.Eth1Data, len(val))
	for i, v := range val {
		votes[i] = v.Copy()
	}
	b.state.Eth1DataVotes = votes
}

// UpdateValidatorAtIndex for the beacon state. Updates the validator
// at a specific index to a new value.
func (b *BeaconState) UpdateValidatorAtIndex(idx primitives.ValidatorIndex, val *ethpb.Validator) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if uint64(len(b.state.Validators)) <= uint64(idx) {
		return NewStateCorruptError("validator index %d out of range of %d validators", idx, len(b.state.Validators))
	}
	b.state.Validators[idx] = val.Copy()
	return nil
}

// ApplyToEveryValidator applies the provided callback function to each validator in the
// validator registry. The callback reports whether it changed the validator.
func (b *BeaconState) ApplyToEveryValidator(f func(idx int, val *ethpb.Validator) (bool, error)) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	for i, v := range b.state.Validators {
		if v == nil {
			return NewStateCorruptError("nil validator at index %d", i)
		}
		cp := v.Copy()
		changed, err := f(i, cp)
		if err != nil {
			return err
		}
		if changed {
			b.state.Validators[i] = cp
		}
	}
	return nil
}

// SetBalances for the beacon state. Updates the entire
// list to a new value by overwriting the previous one.
func (b *BeaconState) SetBalances(val []uint64) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if len(val) != len(b.state.Validators) {
		return NewStateCorruptError("balances length %d does not match %d validators", len(val), len(b.state.Validators))
	}
	bals := make([]uint64, len(val))
	copy(bals, val)
	b.state.Balances = bals
	return nil
}

// UpdateBalancesAtIndex for the beacon state. This method updates the balance
// at a specific index to a new value.
func (b *BeaconState) UpdateBalancesAtIndex(idx primitives.ValidatorIndex, val uint64) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if uint64(len(b.state.Balances)) <= uint64(idx) {
		return NewStateCorruptError("balance index %d out of range of %d balances", idx, len(b.state.Balances))
	}
	b.state.Balances[idx] = val
	return nil
}

// UpdateRandaoMixesAtIndex for the beacon state. Updates the randao mixes
// at a specific index to a new value.
func (b *BeaconState) UpdateRandaoMixesAtIndex(idx uint64, val [32]byte) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if uint64(len(b.state.RandaoMixes)) <= idx {
		return NewStateCorruptError("randao mix index %d out of range of %d mixes", idx, len(b.state.RandaoMixes))
	}
	b.state.RandaoMixes[idx] = val
	return nil
}

// UpdateSlashingsAtIndex for the beacon state. Updates the slashings
// at a specific index to a new value.
func (b *BeaconState) UpdateSlashingsAtIndex(idx, val uint64) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if uint64(len(b.state.Slashings)) <= idx {
		return NewStateCorruptError("slashings index %d out of range of %d entries", idx, len(b.state.Slashings))
	}
	b.state.Slashings[idx] = val
	return nil
}

// AppendCurrentEpochAttestations for the beacon state. Appends the new value
// to the end of list.
func (b *BeaconState) AppendCurrentEpochAttestations(val *ethpb.PendingAttestation) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.state.CurrentEpochAttestations = append(b.state.CurrentEpochAttestations, val.Copy())
}

// AppendPreviousEpochAttestations for the beacon state. Appends the new value
// to the end of list.
func (b *BeaconState) AppendPreviousEpochAttestations(val *ethpb.PendingAttestation) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.state.PreviousEpochAttestations = append(b.state.PreviousEpochAttestations, val.Copy())
}

// RotateAttestations sets the previous epoch attestations to the current epoch attestations and
// then clears the current epoch attestations.
func (b *BeaconState) RotateAttestations() {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.state.PreviousEpochAttestations = b.state.CurrentEpochAttestations
	b.state.CurrentEpochAttestations = []*ethpb.PendingAttestation{}
}

// SetJustificationBits for the beacon state.
func (b *BeaconState) SetJustificationBits(val bitfield.Bitvector4) {
	b.lock.Lock()
	defer b.lock.Unlock()
	bits := bitfield.NewBitvector4()
	copy(bits, val)
	b.state.JustificationBits = bits
}

// SetPreviousJustifiedCheckpoint for the beacon state.
func (b *BeaconState) SetPreviousJustifiedCheckpoint(val *ethpb.Checkpoint) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.state.PreviousJustifiedCheckpoint = val.Copy()
}

// SetCurrentJustifiedCheckpoint for the beacon state.
func (b *BeaconState) SetCurrentJustifiedCheckpoint(val *ethpb.Checkpoint) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.state.CurrentJustifiedCheckpoint = val.Copy()
}

// SetFinalizedCheckpoint for the beacon state.
func (b *BeaconState) SetFinalizedCheckpoint(val *ethpb.Checkpoint) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.state.FinalizedCheckpoint = val.Copy()
}
