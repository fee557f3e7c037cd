package eth

import (
	"github.com/prysmaticlabs/epochengine/consensus-types/primitives"
	"github.com/prysmaticlabs/go-bitfield"
)

// IMPORTANT
// The types in this file are hand-written containers mirroring the phase0
// beacon state schema. Only the fields read or written by epoch processing
// are carried.

// Fork records the fork versions of the chain and the epoch of the last change.
type Fork struct {
	PreviousVersion [4]byte
	CurrentVersion  [4]byte
	Epoch           primitives.Epoch
}

// Copy --
func (f *Fork) Copy() *Fork {
	if f == nil {
		return nil
	}
	cp := *f
	return &cp
}

// Eth1Data is a vote on the deposit contract state.
type Eth1Data struct {
	DepositRoot  [32]byte
	DepositCount uint64
	BlockHash    [32]byte
}

// Copy --
func (e *Eth1Data) Copy() *Eth1Data {
	if e == nil {
		return nil
	}
	cp := *e
	return &cp
}

// BeaconState is the phase0 beacon state.
type BeaconState struct {
	GenesisTime                 uint64
	GenesisValidatorsRoot       [32]byte
	Slot                        primitives.Slot
	Fork                        *Fork
	BlockRoots                  [][32]byte
	StateRoots                  [][32]byte
	HistoricalRoots             [][32]byte
	Eth1Data                    *Eth1Data
	Eth1DataVotes               []*Eth1Data
	Eth1DepositIndex            uint64
	Validators                  []*Validator
	Balances                    []uint64
	RandaoMixes                 [][32]byte
	Slashings                   []uint64
	PreviousEpochAttestations   []*PendingAttestation
	CurrentEpochAttestations    []*PendingAttestation
	JustificationBits           bitfield.Bitvector4
	PreviousJustifiedCheckpoint *Checkpoint
	CurrentJustifiedCheckpoint  *Checkpoint
	FinalizedCheckpoint         *Checkpoint
}

// Copy returns a deep copy of the state.
func (b *BeaconState) Copy() *BeaconState {
	if b == nil {
		return nil
	}
	cp := &BeaconState{
		GenesisTime:                 b.GenesisTime,
		GenesisValidatorsRoot:       b.GenesisValidatorsRoot,
		Slot:                        b.Slot,
		Fork:                        b.Fork.Copy(),
		BlockRoots:                  copyRoots(b.BlockRoots),
		StateRoots:                  copyRoots(b.StateRoots),
		HistoricalRoots:             copyRoots(b.HistoricalRoots),
		Eth1Data:                    b.Eth1Data.Copy(),
		Eth1DepositIndex:            b.Eth1DepositIndex,
		RandaoMixes:                 copyRoots(b.RandaoMixes),
		PreviousEpochAttestations:   CopyPendingAttestationSlice(b.PreviousEpochAttestations),
		CurrentEpochAttestations:    CopyPendingAttestationSlice(b.CurrentEpochAttestations),
		PreviousJustifiedCheckpoint: b.PreviousJustifiedCheckpoint.Copy(),
		CurrentJustifiedCheckpoint:  b.CurrentJustifiedCheckpoint.Copy(),
		FinalizedCheckpoint:         b.FinalizedCheckpoint.Copy(),
	}
	if b.Eth1DataVotes != nil {
		cp.Eth1DataVotes = make([]*Eth1Data, len(b.Eth1DataVotes))
		for i, v := range b.Eth1DataVotes {
			cp.Eth1DataVotes[i] = v.Copy()
		}
	}
	if b.Validators != nil {
		cp.Validators = make([]*Validator, len(b.Validators))
		for i, v := range b.Validators {
			cp.Validators[i] = v.Copy()
		}
	}
	if b.Balances != nil {
		cp.Balances = make([]uint64, len(b.Balances))
		copy(cp.Balances, b.Balances)
	}
	if b.Slashings != nil {
		cp.Slashings = make([]uint64, len(b.Slashings))
		copy(cp.Slashings, b.Slashings)
	}
	if b.JustificationBits != nil {
		cp.JustificationBits = make(bitfield.Bitvector4, len(b.JustificationBits))
		copy(cp.JustificationBits, b.JustificationBits)
	}
	return cp
}

func copyRoots(roots [][32]byte) [][32]byte {
	if roots == nil {
		return nil
	}
	res := make([][32]byte, len(roots))
	copy(res, roots)
	return res
}
