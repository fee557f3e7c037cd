package precompute

import (
	"context"

	"github.com/pkg/errors"
	"github.com/prysmaticlabs/epochengine/beacon-chain/core/helpers"
	"github.com/prysmaticlabs/epochengine/beacon-chain/state"
	"github.com/prysmaticlabs/epochengine/config/params"
	types "github.com/prysmaticlabs/epochengine/consensus-types/primitives"
	"github.com/prysmaticlabs/epochengine/monitoring/tracing"
	ethpb "github.com/prysmaticlabs/epochengine/proto/prysm/v1alpha1"
	"go.opencensus.io/trace"
)

// ProcessAttestations process the attestations in state and update individual validator's pre computes,
// it also tracks and updates epoch attesting balances.
func ProcessAttestations(
	ctx context.Context,
	st *state.BeaconState,
	ec *helpers.EpochContext,
	vp []*Validator,
	pBal *Balance,
) ([]*Validator, *Balance, error) {
	ctx, span := trace.StartSpan(ctx, "precomputeEpoch.ProcessAttestations")
	defer span.End()

	roots := newTargetRoots(st)
	for _, a := range append(st.PreviousEpochAttestations(), st.CurrentEpochAttestations()...) {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		if a == nil || a.Data == nil || a.Data.Target == nil {
			return nil, nil, state.NewStateCorruptError("pending attestation without data")
		}
		if a.InclusionDelay == 0 {
			return nil, nil, state.NewStateCorruptError("attestation at slot %d with inclusion delay of 0", a.Data.Slot)
		}
		if helpers.SlotToEpoch(a.Data.Slot) != a.Data.Target.Epoch {
			return nil, nil, state.NewStateCorruptError("attestation slot %d outside of target epoch %d", a.Data.Slot, a.Data.Target.Epoch)
		}

		v := &Validator{}
		var err error
		v.IsCurrentEpochAttester, v.IsCurrentEpochTargetAttester, err = AttestedCurrentEpoch(st, roots, a)
		if err != nil {
			tracing.AnnotateError(span, err)
			return nil, nil, errors.Wrap(err, "could not check validator attested current epoch")
		}
		v.IsPrevEpochAttester, v.IsPrevEpochTargetAttester, v.IsPrevEpochHeadAttester, err = AttestedPrevEpoch(st, roots, a)
		if err != nil {
			tracing.AnnotateError(span, err)
			return nil, nil, errors.Wrap(err, "could not check validator attested previous epoch")
		}

		committee, err := ec.BeaconCommittee(a.Data.Slot, a.Data.CommitteeIndex)
		if err != nil {
			return nil, nil, err
		}
		indices, err := helpers.AttestingIndices(a.AggregationBits, committee)
		if err != nil {
			return nil, nil, err
		}
		if err := UpdateValidator(vp, v, indices, a, a.Data.Slot); err != nil {
			return nil, nil, err
		}
	}

	pBal = UpdateBalance(vp, pBal)

	return vp, pBal, nil
}

// targetRoots memoizes the epoch boundary block roots of the state.
type targetRoots struct {
	st    *state.BeaconState
	roots map[types.Epoch][32]byte
}

func newTargetRoots(st *state.BeaconState) *targetRoots {
	return &targetRoots{st: st, roots: make(map[types.Epoch][32]byte, 2)}
}

func (t *targetRoots) get(epoch types.Epoch) ([32]byte, error) {
	if r, ok := t.roots[epoch]; ok {
		return r, nil
	}
	r, err := helpers.BlockRoot(t.st, epoch)
	if err != nil {
		return [32]byte{}, err
	}
	t.roots[epoch] = r
	return r, nil
}

// AttestedCurrentEpoch returns true if attestation `a` attested once in current epoch and/or epoch boundary block.
func AttestedCurrentEpoch(s *state.BeaconState, roots *targetRoots, a *ethpb.PendingAttestation) (bool, bool, error) {
	currentEpoch := helpers.CurrentEpoch(s)
	var votedCurrentEpoch, votedTarget bool
	// Did validator vote current epoch.
	if a.Data.Target.Epoch == currentEpoch {
		votedCurrentEpoch = true
		same, err := SameTarget(roots, a, currentEpoch)
		if err != nil {
			return false, false, err
		}
		if same {
			votedTarget = true
		}
	}
	return votedCurrentEpoch, votedTarget, nil
}

// AttestedPrevEpoch returns true if attestation `a` attested once in previous epoch and epoch boundary block and/or the same head.
func AttestedPrevEpoch(s *state.BeaconState, roots *targetRoots, a *ethpb.PendingAttestation) (bool, bool, bool, error) {
	prevEpoch := helpers.PrevEpoch(s)
	var votedPrevEpoch, votedTarget, votedHead bool
	// Did validator vote previous epoch.
	if a.Data.Target.Epoch == prevEpoch {
		votedPrevEpoch = true
		same, err := SameTarget(roots, a, prevEpoch)
		if err != nil {
			return false, false, false, errors.Wrap(err, "could not check same target")
		}
		if same {
			votedTarget = true
		}

		if votedTarget {
			same, err = SameHead(s, a)
			if err != nil {
				return false, false, false, errors.Wrap(err, "could not check same head")
			}
			if same {
				votedHead = true
			}
		}
	}
	return votedPrevEpoch, votedTarget, votedHead, nil
}

// SameTarget returns true if attestation `a` attested to the same target block in state.
func SameTarget(roots *targetRoots, a *ethpb.PendingAttestation, e types.Epoch) (bool, error) {
	r, err := roots.get(e)
	if err != nil {
		return false, err
	}
	return a.Data.Target.Root == r, nil
}

// SameHead returns true if attestation `a` attested to the same block by attestation slot in state.
func SameHead(s *state.BeaconState, a *ethpb.PendingAttestation) (bool, error) {
	r, err := helpers.BlockRootAtSlot(s, a.Data.Slot)
	if err != nil {
		return false, err
	}
	return a.Data.BeaconBlockRoot == r, nil
}

// UpdateValidator updates pre computed validator store.
func UpdateValidator(vp []*Validator, record *Validator, indices []types.ValidatorIndex, a *ethpb.PendingAttestation, aSlot types.Slot) error {
	inclusionSlot := aSlot + a.InclusionDelay

	for _, i := range indices {
		if uint64(i) >= uint64(len(vp)) {
			return state.NewStateCorruptError("attesting index %d out of range of %d validators", i, len(vp))
		}
		if record.IsCurrentEpochAttester {
			vp[i].IsCurrentEpochAttester = true
		}
		if record.IsCurrentEpochTargetAttester {
			vp[i].IsCurrentEpochTargetAttester = true
		}
		if record.IsPrevEpochAttester {
			vp[i].IsPrevEpochAttester = true
			// Update attestation inclusion info if inclusion slot is lower than before
			if inclusionSlot < vp[i].InclusionSlot {
				vp[i].InclusionSlot = inclusionSlot
				vp[i].InclusionDistance = a.InclusionDelay
				vp[i].ProposerIndex = a.ProposerIndex
			}
		}
		if record.IsPrevEpochTargetAttester {
			vp[i].IsPrevEpochTargetAttester = true
		}
		if record.IsPrevEpochHeadAttester {
			vp[i].IsPrevEpochHeadAttester = true
		}
	}
	return nil
}

// UpdateBalance updates pre computed balance store. Slashed validators count
// towards the active totals but never towards the attested ones.
func UpdateBalance(vp []*Validator, bBal *Balance) *Balance {
	for _, v := range vp {
		if !v.IsSlashed {
			if v.IsCurrentEpochAttester {
				bBal.CurrentEpochAttested += v.CurrentEpochEffectiveBalance
			}
			if v.IsCurrentEpochTargetAttester {
				bBal.CurrentEpochTargetAttested += v.CurrentEpochEffectiveBalance
			}
			if v.IsPrevEpochAttester {
				bBal.PrevEpochAttested += v.CurrentEpochEffectiveBalance
			}
			if v.IsPrevEpochTargetAttester {
				bBal.PrevEpochTargetAttested += v.CurrentEpochEffectiveBalance
			}
			if v.IsPrevEpochHeadAttester {
				bBal.PrevEpochHeadAttested += v.CurrentEpochEffectiveBalance
			}
		}
	}

	return EnsureBalancesLowerBound(bBal)
}

// EnsureBalancesLowerBound ensures all the balances such as active current epoch, active previous epoch and more
// have EffectiveBalanceIncrement(1 eth) as a lower bound.
func EnsureBalancesLowerBound(bBal *Balance) *Balance {
	ebi := params.BeaconConfig().EffectiveBalanceIncrement
	if ebi > bBal.ActiveCurrentEpoch {
		bBal.ActiveCurrentEpoch = ebi
	}
	if ebi > bBal.ActivePrevEpoch {
		bBal.ActivePrevEpoch = ebi
	}
	if ebi > bBal.CurrentEpochAttested {
		bBal.CurrentEpochAttested = ebi
	}
	if ebi > bBal.CurrentEpochTargetAttested {
		bBal.CurrentEpochTargetAttested = ebi
	}
	if ebi > bBal.PrevEpochAttested {
		bBal.PrevEpochAttested = ebi
	}
	if ebi > bBal.PrevEpochTargetAttested {
		bBal.PrevEpochTargetAttested = ebi
	}
	if ebi > bBal.PrevEpochHeadAttested {
		bBal.PrevEpochHeadAttested = ebi
	}
	return bBal
}
