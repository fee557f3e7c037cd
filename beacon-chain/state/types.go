// Package state defines the beacon state wrapper epoch processing mutates.
// All access to the underlying container goes through the getters and setters
// of BeaconState so reads never alias mutable state.
package state

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/prysmaticlabs/epochengine/consensus-types/primitives"
	ethpb "github.com/prysmaticlabs/epochengine/proto/prysm/v1alpha1"
	"github.com/prysmaticlabs/go-bitfield"
)

// ErrNilInnerState returns when the inner state is nil and no copy set or get
// operations can be performed on state.
var ErrNilInnerState = errors.New("nil inner state")

// BeaconState defines a struct containing utilities for the eth2 chain state, defining
// getters and setters for its respective values and helpful functions such as HashTreeRoot().
type BeaconState struct {
	state        *ethpb.BeaconState
	lock         sync.RWMutex
	inTransition atomic.Bool
}

// InitializeFromProto the beacon state from a protobuf representation.
func InitializeFromProto(st *ethpb.BeaconState) (*BeaconState, error) {
	if st == nil {
		return nil, ErrNilInnerState
	}
	return InitializeFromProtoUnsafe(st.Copy())
}

// InitializeFromProtoUnsafe directly uses the beacon state protobuf pointer
// and sets it as the inner state of the BeaconState type.
func InitializeFromProtoUnsafe(st *ethpb.BeaconState) (*BeaconState, error) {
	if st == nil {
		return nil, ErrNilInnerState
	}
	return &BeaconState{state: st}, nil
}

// CloneInnerState the beacon state into a protobuf for usage.
func (b *BeaconState) CloneInnerState() *ethpb.BeaconState {
	if b == nil || b.state == nil {
		return nil
	}
	b.lock.RLock()
	defer b.lock.RUnlock()
	return b.state.Copy()
}

// Copy returns a deep copy of the beacon state.
func (b *BeaconState) Copy() *BeaconState {
	if b == nil || b.state == nil {
		return nil
	}
	b.lock.RLock()
	defer b.lock.RUnlock()
	return &BeaconState{state: b.state.Copy()}
}

// IsNil checks if the state and the underlying proto
// object are nil.
func (b *BeaconState) IsNil() bool {
	return b == nil || b.state == nil
}

// BeginTransition marks the state as being processed by an epoch transition.
// It returns false when a transition is already running on this state.
func (b *BeaconState) BeginTransition() bool {
	return b.inTransition.CompareAndSwap(false, true)
}

// EndTransition clears the mark set by BeginTransition.
func (b *BeaconState) EndTransition() {
	b.inTransition.Store(false)
}

// GenesisTime of the beacon state as a uint64.
func (b *BeaconState) GenesisTime() uint64 {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return b.state.GenesisTime
}

// Slot of the current beacon chain state.
func (b *BeaconState) Slot() primitives.Slot {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return b.state.Slot
}

// Fork version of the beacon chain.
func (b *BeaconState) Fork() *ethpb.Fork {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return b.state.Fork.Copy()
}

// BlockRoots kept track of in the beacon state.
func (b *BeaconState) BlockRoots() [][32]byte {
	b.lock.RLock()
	defer b.lock.RUnlock()
	res := make([][32]byte, len(b.state.BlockRoots))
	copy(res, b.state.BlockRoots)
	return res
}

// BlockRootAtIndex retrieves a specific block root based on an
// input index value.
func (b *BeaconState) BlockRootAtIndex(idx uint64) ([32]byte, error) {
	b.lock.RLock()
	defer b.lock.RUnlock()
	if uint64(len(b.state.BlockRoots)) <= idx {
		return [32]byte{}, NewStateCorruptError("block root index %d out of range of %d roots", idx, len(b.state.BlockRoots))
	}
	return b.state.BlockRoots[idx], nil
}

// StateRoots kept track of in the beacon state.
func (b *BeaconState) StateRoots() [][32]byte {
	b.lock.RLock()
	defer b.lock.RUnlock()
	res := make([][32]byte, len(b.state.StateRoots))
	copy(res, b.state.StateRoots)
	return res
}

// HistoricalRoots based on epochs stored in the beacon state.
func (b *BeaconState) HistoricalRoots() [][32]byte {
	b.lock.RLock()
	defer b.lock.RUnlock()
	res := make([][32]byte, len(b.state.HistoricalRoots))
	copy(res, b.state.HistoricalRoots)
	return res
}

// Eth1Data corresponding to the proof-of-work chain information stored in the beacon state.
func (b *BeaconState) Eth1Data() *ethpb.Eth1Data {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return b.state.Eth1Data.Copy()
}

// Eth1DataVotes corresponds to votes from eth2 on the canonical proof-of-work chain
// data retrieved from eth1.
func (b *BeaconState) Eth1DataVotes() []*ethpb.Eth1Data {
	b.lock.RLock()
	defer b.lock.RUnlock()
	res := make([]*ethpb.Eth1Data, len(b.state.Eth1DataVotes))
	for i := 0; i < len(res); i++ {
		res[i] = b.state.Eth1DataVotes[i].Copy()
	}
	return res
}

// Eth1DepositIndex corresponds to the index of the deposit made to the
// validator deposit contract at the time of this state's eth1 data.
func (b *BeaconState) Eth1DepositIndex() uint64 {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return b.state.Eth1DepositIndex
}

// Validators participating in consensus on the beacon chain.
func (b *BeaconState) Validators() []*ethpb.Validator {
	b.lock.RLock()
	defer b.lock.RUnlock()
	res := make([]*ethpb.Validator, len(b.state.Validators))
	for i := 0; i < len(res); i++ {
		res[i] = b.state.Validators[i].Copy()
	}
	return res
}

// ValidatorAtIndex is the validator at the provided index.
func (b *BeaconState) ValidatorAtIndex(idx primitives.ValidatorIndex) (*ethpb.Validator, error) {
	b.lock.RLock()
	defer b.lock.RUnlock()
	if uint64(len(b.state.Validators)) <= uint64(idx) {
		return nil, NewStateCorruptError("validator index %d out of range of %d validators", idx, len(b.state.Validators))
	}
	return b.state.Validators[idx].Copy(), nil
}

// NumValidators returns the size of the validator registry.
func (b *BeaconState) NumValidators() int {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return len(b.state.Validators)
}

// ReadFromEveryValidator reads values from every validator and applies it to the provided function.
// The validator is passed by value so the callback cannot mutate the registry.
func (b *BeaconState) ReadFromEveryValidator(f func(idx int, val ethpb.Validator) error) error {
	b.lock.RLock()
	validators := b.state.Validators
	b.lock.RUnlock()

	for i, v := range validators {
		if v == nil {
			return NewStateCorruptError("nil validator at index %d", i)
		}
		if err := f(i, *v); err != nil {
			return err
		}
	}
	return nil
}

// Balances of validators participating in consensus on the beacon chain.
func (b *BeaconState) Balances() []uint64 {
	b.lock.RLock()
	defer b.lock.RUnlock()
	res := make([]uint64, len(b.state.Balances))
	copy(res, b.state.Balances)
	return res
}

// BalanceAtIndex of validator with the provided index.
func (b *BeaconState) BalanceAtIndex(idx primitives.ValidatorIndex) (uint64, error) {
	b.lock.RLock()
	defer b.lock.RUnlock()
	if uint64(len(b.state.Balances)) <= uint64(idx) {
		return 0, NewStateCorruptError("balance index %d out of range of %d balances", idx, len(b.state.Balances))
	}
	return b.state.Balances[idx], nil
}

// RandaoMixes of block proposers on the beacon chain.
func (b *BeaconState) RandaoMixes() [][32]byte {
	b.lock.RLock()
	defer b.lock.RUnlock()
	res := make([][32]byte, len(b.state.RandaoMixes))
	copy(res, b.state.RandaoMixes)
	return res
}

// RandaoMixAtIndex retrieves a specific block root based on an
// input index value.
func (b *BeaconState) RandaoMixAtIndex(idx uint64) ([32]byte, error) {
	b.lock.RLock()
	defer b.lock.RUnlock()
	if uint64(len(b.state.RandaoMixes)) <= idx {
		return [32]byte{}, NewStateCorruptError("randao mix index %d out of range of %d mixes", idx, len(b.state.RandaoMixes))
	}
	return b.state.RandaoMixes[idx], nil
}

// RandaoMixesLength returns the length of the randao mixes slice.
func (b *BeaconState) RandaoMixesLength() int {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return len(b.state.RandaoMixes)
}

// Slashings of validators on the beacon chain.
func (b *BeaconState) Slashings() []uint64 {
	b.lock.RLock()
	defer b.lock.RUnlock()
	res := make([]uint64, len(b.state.Slashings))
	copy(res, b.state.Slashings)
	return res
}

// PreviousEpochAttestations corresponding to blocks on the beacon chain.
func (b *BeaconState) PreviousEpochAttestations() []*ethpb.PendingAttestation {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return ethpb.CopyPendingAttestationSlice(b.state.PreviousEpochAttestations)
}

// CurrentEpochAttestations corresponding to blocks on the beacon chain.
func (b *BeaconState) CurrentEpochAttestations() []*ethpb.PendingAttestation {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return ethpb.CopyPendingAttestationSlice(b.state.CurrentEpochAttestations)
}

// JustificationBits marking which epochs have been justified in the beacon chain.
func (b *BeaconState) JustificationBits() bitfield.Bitvector4 {
	b.lock.RLock()
	defer b.lock.RUnlock()
	res := bitfield.NewBitvector4()
	copy(res, b.state.JustificationBits)
	return res
}

// PreviousJustifiedCheckpoint denoting an epoch and block root.
func (b *BeaconState) PreviousJustifiedCheckpoint() *ethpb.Checkpoint {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return b.state.PreviousJustifiedCheckpoint.Copy()
}

// CurrentJustifiedCheckpoint denoting an epoch and block root.
func (b *BeaconState) CurrentJustifiedCheckpoint() *ethpb.Checkpoint {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return b.state.CurrentJustifiedCheckpoint.Copy()
}

// FinalizedCheckpoint denoting an epoch and block root.
func (b *BeaconState) FinalizedCheckpoint() *ethpb.Checkpoint {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return b.state.FinalizedCheckpoint.Copy()
}

// FinalizedCheckpointEpoch returns the epoch value of the finalized checkpoint.
func (b *BeaconState) FinalizedCheckpointEpoch() primitives.Epoch {
	b.lock.RLock()
	defer b.lock.RUnlock()
	if b.state.FinalizedCheckpoint == nil {
		return 0
	}
	return b.state.FinalizedCheckpoint.Epoch
}
