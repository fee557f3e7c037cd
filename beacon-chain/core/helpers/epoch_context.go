package helpers

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/prysmaticlabs/epochengine/beacon-chain/state"
	fieldparams "github.com/prysmaticlabs/epochengine/config/fieldparams"
	"github.com/prysmaticlabs/epochengine/config/params"
	types "github.com/prysmaticlabs/epochengine/consensus-types/primitives"
	"github.com/prysmaticlabs/epochengine/crypto/hash"
	"github.com/prysmaticlabs/epochengine/encoding/bytesutil"
	"github.com/prysmaticlabs/epochengine/math"
	ethpb "github.com/prysmaticlabs/epochengine/proto/prysm/v1alpha1"
	"go.opencensus.io/trace"
)

// EpochShuffling is the committee assignment of one epoch.
type EpochShuffling struct {
	Epoch             types.Epoch
	Seed              [32]byte
	ActiveIndices     []types.ValidatorIndex
	Shuffled          []types.ValidatorIndex
	CommitteesPerSlot uint64
}

// EpochContext holds the data every epoch processing stage derives from the validator
// registry: the public key table, the shufflings of the previous and current epoch,
// the proposers of the current epoch and the total active balance.
//
// The public key table outlives a single epoch. Each Load appends the keys of
// validators it has not seen and never rebinds a known key, so an index handed out
// once stays valid for the lifetime of the context. The epoch scoped data is rebuilt
// on every Load.
type EpochContext struct {
	lock         sync.RWMutex
	pubkey2index map[[fieldparams.BLSPubkeyLength]byte]types.ValidatorIndex
	index2pubkey [][fieldparams.BLSPubkeyLength]byte

	loaded             bool
	currentEpoch       types.Epoch
	previousShuffling  *EpochShuffling
	currentShuffling   *EpochShuffling
	proposers          []types.ValidatorIndex
	totalActiveBalance uint64
}

// NewEpochContext returns an empty context. Load must be called before any epoch
// scoped accessor is used.
func NewEpochContext() *EpochContext {
	return &EpochContext{
		pubkey2index: make(map[[fieldparams.BLSPubkeyLength]byte]types.ValidatorIndex),
	}
}

// Load scans the validator registry of the state once, extends the public key table
// and recomputes the shufflings, proposers and total active balance for the state's
// current epoch.
func (e *EpochContext) Load(ctx context.Context, st *state.BeaconState) error {
	ctx, span := trace.StartSpan(ctx, "helpers.EpochContext.Load")
	defer span.End()

	if st.IsNil() {
		return state.ErrNilInnerState
	}
	currentEpoch := CurrentEpoch(st)
	prevEpoch := PrevEpoch(st)

	numVals := st.NumValidators()
	effectiveBalances := make([]uint64, 0, numVals)
	pubkeys := make([][fieldparams.BLSPubkeyLength]byte, 0, numVals)
	var prevActive, currentActive []types.ValidatorIndex
	totalActive := uint64(0)
	if err := st.ReadFromEveryValidator(func(idx int, val ethpb.Validator) error {
		pubkeys = append(pubkeys, val.PublicKey)
		effectiveBalances = append(effectiveBalances, val.EffectiveBalance)
		if checkValidatorActiveStatus(val.ActivationEpoch, val.ExitEpoch, prevEpoch) {
			prevActive = append(prevActive, types.ValidatorIndex(idx))
		}
		if checkValidatorActiveStatus(val.ActivationEpoch, val.ExitEpoch, currentEpoch) {
			currentActive = append(currentActive, types.ValidatorIndex(idx))
			totalActive += val.EffectiveBalance
		}
		return nil
	}); err != nil {
		return err
	}
	if err := e.syncPubkeys(pubkeys); err != nil {
		return err
	}

	current, err := computeShuffling(st, currentEpoch, currentActive)
	if err != nil {
		return errors.Wrapf(err, "could not compute shuffling for epoch %d", currentEpoch)
	}
	previous := current
	if prevEpoch != currentEpoch {
		previous, err = computeShuffling(st, prevEpoch, prevActive)
		if err != nil {
			return errors.Wrapf(err, "could not compute shuffling for epoch %d", prevEpoch)
		}
	}
	proposers, err := computeProposers(ctx, st, currentEpoch, currentActive, effectiveBalances)
	if err != nil {
		return errors.Wrapf(err, "could not compute proposers for epoch %d", currentEpoch)
	}

	e.lock.Lock()
	defer e.lock.Unlock()
	e.loaded = true
	e.currentEpoch = currentEpoch
	e.currentShuffling = current
	e.previousShuffling = previous
	e.proposers = proposers
	e.totalActiveBalance = math.Max(params.BeaconConfig().EffectiveBalanceIncrement, totalActive)
	return nil
}

// syncPubkeys appends unseen keys to the table. A key that is already bound to a
// different index, or an index whose key changed, means the registry was rewritten.
func (e *EpochContext) syncPubkeys(pubkeys [][fieldparams.BLSPubkeyLength]byte) error {
	e.lock.Lock()
	defer e.lock.Unlock()
	for i, pk := range pubkeys {
		idx := types.ValidatorIndex(i)
		if i < len(e.index2pubkey) {
			if e.index2pubkey[i] != pk {
				return state.NewStateCorruptError("validator %d public key changed from %#x to %#x", idx, e.index2pubkey[i], pk)
			}
			continue
		}
		if known, ok := e.pubkey2index[pk]; ok {
			return state.NewStateCorruptError("public key %#x of validator %d already bound to index %d", pk, idx, known)
		}
		e.pubkey2index[pk] = idx
		e.index2pubkey = append(e.index2pubkey, pk)
	}
	pubkeyTableSize.Set(float64(len(e.index2pubkey)))
	return nil
}

func computeShuffling(st *state.BeaconState, epoch types.Epoch, active []types.ValidatorIndex) (*EpochShuffling, error) {
	seed, err := Seed(st, epoch, params.BeaconConfig().DomainBeaconAttester)
	if err != nil {
		return nil, errors.Wrap(err, "could not get seed")
	}
	shuffled, err := shuffledIndices(active, seed)
	if err != nil {
		return nil, err
	}
	return &EpochShuffling{
		Epoch:             epoch,
		Seed:              seed,
		ActiveIndices:     active,
		Shuffled:          shuffled,
		CommitteesPerSlot: SlotCommitteeCount(uint64(len(active))),
	}, nil
}

// computeProposers samples the proposer of every slot of the epoch.
//
// Spec pseudocode definition:
//
//	def get_beacon_proposer_index(state: BeaconState) -> ValidatorIndex:
//	  """
//	  Return the beacon proposer index at the current slot.
//	  """
//	  epoch = get_current_epoch(state)
//	  seed = hash(get_seed(state, epoch, DOMAIN_BEACON_PROPOSER) + uint_to_bytes(state.slot))
//	  indices = get_active_validator_indices(state, epoch)
//	  return compute_proposer_index(state, indices, seed)
func computeProposers(
	ctx context.Context,
	st *state.BeaconState,
	epoch types.Epoch,
	active []types.ValidatorIndex,
	effectiveBalances []uint64,
) ([]types.ValidatorIndex, error) {
	_, span := trace.StartSpan(ctx, "helpers.computeProposers")
	defer span.End()

	if len(active) == 0 {
		return nil, nil
	}
	seed, err := Seed(st, epoch, params.BeaconConfig().DomainBeaconProposer)
	if err != nil {
		return nil, errors.Wrap(err, "could not get seed")
	}
	effectiveBalance := func(idx types.ValidatorIndex) (uint64, error) {
		if uint64(idx) >= uint64(len(effectiveBalances)) {
			return 0, state.NewStateCorruptError("validator index %d out of range of %d validators", idx, len(effectiveBalances))
		}
		return effectiveBalances[idx], nil
	}
	startSlot := StartSlot(epoch)
	spe := params.BeaconConfig().SlotsPerEpoch
	proposers := make([]types.ValidatorIndex, 0, spe)
	for slot := startSlot; slot < startSlot+spe; slot++ {
		seedWithSlot := append(seed[:], bytesutil.Bytes8(uint64(slot))...)
		proposer, err := ComputeProposerIndex(effectiveBalance, active, hash.Hash(seedWithSlot))
		if err != nil {
			return nil, err
		}
		proposers = append(proposers, proposer)
	}
	return proposers, nil
}

// ValidatorIndex returns the index bound to the public key. Unknown keys return an
// IndexLookupError.
func (e *EpochContext) ValidatorIndex(pubkey [fieldparams.BLSPubkeyLength]byte) (types.ValidatorIndex, error) {
	e.lock.RLock()
	defer e.lock.RUnlock()
	idx, ok := e.pubkey2index[pubkey]
	if !ok {
		return 0, NewIndexLookupError(pubkey)
	}
	return idx, nil
}

// Pubkey returns the public key bound to the validator index.
func (e *EpochContext) Pubkey(idx types.ValidatorIndex) ([fieldparams.BLSPubkeyLength]byte, bool) {
	e.lock.RLock()
	defer e.lock.RUnlock()
	if uint64(idx) >= uint64(len(e.index2pubkey)) {
		return [fieldparams.BLSPubkeyLength]byte{}, false
	}
	return e.index2pubkey[idx], true
}

// PubkeyCount returns the number of public keys in the table.
func (e *EpochContext) PubkeyCount() int {
	e.lock.RLock()
	defer e.lock.RUnlock()
	return len(e.index2pubkey)
}

// CurrentEpoch the context was last loaded for.
func (e *EpochContext) CurrentEpoch() types.Epoch {
	e.lock.RLock()
	defer e.lock.RUnlock()
	return e.currentEpoch
}

// PreviousEpoch of the context, equal to the current epoch at genesis.
func (e *EpochContext) PreviousEpoch() types.Epoch {
	e.lock.RLock()
	defer e.lock.RUnlock()
	if e.previousShuffling == nil {
		return e.currentEpoch
	}
	return e.previousShuffling.Epoch
}

// TotalActiveBalance of the current epoch, floored at one effective balance increment.
func (e *EpochContext) TotalActiveBalance() uint64 {
	e.lock.RLock()
	defer e.lock.RUnlock()
	return e.totalActiveBalance
}

// Shuffling returns the shuffling of the previous or current epoch.
func (e *EpochContext) Shuffling(epoch types.Epoch) (*EpochShuffling, error) {
	e.lock.RLock()
	defer e.lock.RUnlock()
	return e.shufflingLocked(epoch)
}

func (e *EpochContext) shufflingLocked(epoch types.Epoch) (*EpochShuffling, error) {
	if !e.loaded {
		return nil, errors.New("epoch context not loaded")
	}
	switch {
	case e.currentShuffling.Epoch == epoch:
		return e.currentShuffling, nil
	case e.previousShuffling.Epoch == epoch:
		return e.previousShuffling, nil
	default:
		return nil, state.NewStateCorruptError("epoch %d is neither the current epoch %d nor the previous one", epoch, e.currentEpoch)
	}
}

// ActiveIndices returns the active validator indices of the previous or current epoch.
func (e *EpochContext) ActiveIndices(epoch types.Epoch) ([]types.ValidatorIndex, error) {
	s, err := e.Shuffling(epoch)
	if err != nil {
		return nil, err
	}
	indices := make([]types.ValidatorIndex, len(s.ActiveIndices))
	copy(indices, s.ActiveIndices)
	return indices, nil
}

// CommitteeCountPerSlot returns the number of beacon committees per slot of the epoch.
func (e *EpochContext) CommitteeCountPerSlot(epoch types.Epoch) (uint64, error) {
	s, err := e.Shuffling(epoch)
	if err != nil {
		return 0, err
	}
	return s.CommitteesPerSlot, nil
}

// BeaconCommittee returns the committee assigned to the slot and committee index. The slot
// must fall in the previous or current epoch of the context.
func (e *EpochContext) BeaconCommittee(slot types.Slot, committeeIndex types.CommitteeIndex) ([]types.ValidatorIndex, error) {
	e.lock.RLock()
	defer e.lock.RUnlock()
	s, err := e.shufflingLocked(SlotToEpoch(slot))
	if err != nil {
		return nil, err
	}
	return committeeAtSlot(s.Shuffled, s.CommitteesPerSlot, slot, committeeIndex)
}

// ProposerIndex returns the proposer of a slot of the current epoch.
func (e *EpochContext) ProposerIndex(slot types.Slot) (types.ValidatorIndex, error) {
	e.lock.RLock()
	defer e.lock.RUnlock()
	if !e.loaded {
		return 0, errors.New("epoch context not loaded")
	}
	if SlotToEpoch(slot) != e.currentEpoch {
		return 0, errors.Errorf("slot %d is not in the current epoch %d", slot, e.currentEpoch)
	}
	if len(e.proposers) == 0 {
		return 0, errors.New("no active validators to propose")
	}
	return e.proposers[slot%params.BeaconConfig().SlotsPerEpoch], nil
}
