// Package precompute provides gathering of nicely-structured
// data important to feed into epoch processing, such as attesting
// records and balances, for faster computation.
package precompute

import (
	"context"
	"runtime"

	"github.com/pkg/errors"
	"github.com/prysmaticlabs/epochengine/beacon-chain/core/helpers"
	"github.com/prysmaticlabs/epochengine/beacon-chain/state"
	"github.com/prysmaticlabs/epochengine/config/features"
	"github.com/prysmaticlabs/epochengine/config/params"
	types "github.com/prysmaticlabs/epochengine/consensus-types/primitives"
	ethpb "github.com/prysmaticlabs/epochengine/proto/prysm/v1alpha1"
	"go.opencensus.io/trace"
	"golang.org/x/sync/errgroup"
)

// New gets called at the beginning of process epoch cycle to return
// pre computed instances of validators attesting records and total
// balances attested in an epoch.
func New(ctx context.Context, s *state.BeaconState, ec *helpers.EpochContext) ([]*Validator, *Balance, error) {
	ctx, span := trace.StartSpan(ctx, "precomputeEpoch.New")
	defer span.End()

	currentEpoch := helpers.CurrentEpoch(s)
	prevEpoch := helpers.PrevEpoch(s)
	if ec.CurrentEpoch() != currentEpoch {
		return nil, nil, errors.Errorf("epoch context loaded for epoch %d, state is at epoch %d", ec.CurrentEpoch(), currentEpoch)
	}

	vals := s.Validators()
	pValidators := make([]*Validator, len(vals))
	pBal := &Balance{}

	if !features.Get().ParallelEpochProcessing || len(vals) < 2 {
		if err := newRange(vals, pValidators, 0, len(vals), currentEpoch, prevEpoch, pBal); err != nil {
			return nil, nil, errors.Wrap(err, "failed to initialize precompute")
		}
		return pValidators, pBal, nil
	}

	// Every worker owns a disjoint range of the registry and its own partial sums.
	workers := runtime.GOMAXPROCS(0)
	if workers > len(vals) {
		workers = len(vals)
	}
	partials := make([]Balance, workers)
	chunk := (len(vals) + workers - 1) / workers
	g, _ := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		w := w
		start := w * chunk
		end := start + chunk
		if end > len(vals) {
			end = len(vals)
		}
		g.Go(func() error {
			return newRange(vals, pValidators, start, end, currentEpoch, prevEpoch, &partials[w])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, errors.Wrap(err, "failed to initialize precompute")
	}
	for i := range partials {
		pBal.add(&partials[i])
	}
	return pValidators, pBal, nil
}

func newRange(
	vals []*ethpb.Validator,
	pValidators []*Validator,
	start, end int,
	currentEpoch, prevEpoch types.Epoch,
	pBal *Balance,
) error {
	farFutureSlot := types.Slot(params.BeaconConfig().FarFutureEpoch)
	for idx := start; idx < end; idx++ {
		val := vals[idx]
		if val == nil {
			return state.NewStateCorruptError("nil validator at index %d", idx)
		}
		// Was validator withdrawable or slashed
		withdrawable := prevEpoch+1 >= val.WithdrawableEpoch
		pVal := &Validator{
			IsSlashed:                    val.Slashed,
			IsWithdrawableCurrentEpoch:   withdrawable,
			CurrentEpochEffectiveBalance: val.EffectiveBalance,
		}
		// Was validator active current epoch
		if helpers.IsActiveValidator(val, currentEpoch) {
			pVal.IsActiveCurrentEpoch = true
			pBal.ActiveCurrentEpoch += val.EffectiveBalance
		}
		// Was validator active previous epoch
		if helpers.IsActiveValidator(val, prevEpoch) {
			pVal.IsActivePrevEpoch = true
			pBal.ActivePrevEpoch += val.EffectiveBalance
		}
		// Set inclusion slot and inclusion distance to be max, they will be compared and replaced
		// with the lower values
		pVal.InclusionSlot = farFutureSlot
		pVal.InclusionDistance = farFutureSlot

		pValidators[idx] = pVal
	}
	return nil
}
