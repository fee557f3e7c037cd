package precompute

import (
	"context"
	"runtime"

	"github.com/pkg/errors"
	"github.com/prysmaticlabs/epochengine/beacon-chain/core/helpers"
	"github.com/prysmaticlabs/epochengine/beacon-chain/state"
	"github.com/prysmaticlabs/epochengine/config/features"
	"github.com/prysmaticlabs/epochengine/config/params"
	"github.com/prysmaticlabs/epochengine/math"
	"go.opencensus.io/trace"
	"golang.org/x/sync/errgroup"
)

// rewardParams are the epoch wide inputs of the attestation deltas.
type rewardParams struct {
	inactivityLeak bool
	finalityDelay  uint64
	balanceSqrt    uint64
}

func newRewardParams(st *state.BeaconState, pBal *Balance) rewardParams {
	prevEpoch := helpers.PrevEpoch(st)
	finalizedEpoch := st.FinalizedCheckpointEpoch()
	balanceSqrt := math.IntegerSquareRoot(pBal.ActiveCurrentEpoch)
	// Balance square root cannot be 0, this prevents division by 0.
	if balanceSqrt == 0 {
		balanceSqrt = 1
	}
	return rewardParams{
		inactivityLeak: helpers.IsInInactivityLeak(prevEpoch, finalizedEpoch),
		finalityDelay:  uint64(helpers.FinalityDelay(prevEpoch, finalizedEpoch)),
		balanceSqrt:    balanceSqrt,
	}
}

// ProcessRewardsAndPenaltiesPrecompute processes the rewards and penalties of individual validator.
// This is an optimized version by passing in precomputed validator attesting records and and total epoch balances.
func ProcessRewardsAndPenaltiesPrecompute(
	ctx context.Context,
	st *state.BeaconState,
	pBal *Balance,
	vp []*Validator,
) (*state.BeaconState, error) {
	ctx, span := trace.StartSpan(ctx, "precomputeEpoch.ProcessRewardsAndPenaltiesPrecompute")
	defer span.End()

	// Can't process rewards and penalties in genesis epoch.
	if helpers.CurrentEpoch(st) == params.BeaconConfig().GenesisEpoch {
		return st, nil
	}

	numOfVals := st.NumValidators()
	balances := st.Balances()
	// Guard against an out-of-bounds using validator balance precompute.
	if len(vp) != numOfVals || len(vp) != len(balances) {
		return st, state.NewStateCorruptError("precomputed registries not the same length as state registries")
	}

	attsRewards, attsPenalties, err := AttestationsDelta(ctx, st, pBal, vp)
	if err != nil {
		return nil, errors.Wrap(err, "could not get attestation delta")
	}
	proposerRewards, err := ProposersDelta(st, pBal, vp)
	if err != nil {
		return nil, errors.Wrap(err, "could not get proposer delta")
	}
	for i := 0; i < numOfVals; i++ {
		reward, err := math.Add64(attsRewards[i], proposerRewards[i])
		if err != nil {
			return nil, state.NewStateCorruptError("reward of validator %d overflows", i)
		}
		balances[i], err = helpers.IncreaseBalanceWithVal(balances[i], reward)
		if err != nil {
			return nil, err
		}
		balances[i] = helpers.DecreaseBalanceWithVal(balances[i], attsPenalties[i])
	}
	if err := st.SetBalances(balances); err != nil {
		return nil, err
	}
	return st, nil
}

// AttestationsDelta computes and returns the rewards and penalties differences for individual validators based on the
// voting records.
func AttestationsDelta(ctx context.Context, st *state.BeaconState, pBal *Balance, vp []*Validator) ([]uint64, []uint64, error) {
	numOfVals := len(vp)
	rewards := make([]uint64, numOfVals)
	penalties := make([]uint64, numOfVals)
	rp := newRewardParams(st, pBal)

	if !features.Get().ParallelEpochProcessing || numOfVals < 2 {
		for i, v := range vp {
			rewards[i], penalties[i] = attestationDelta(pBal, v, rp)
		}
		return rewards, penalties, nil
	}

	// Each worker writes only to its own range of the output slices.
	workers := runtime.GOMAXPROCS(0)
	chunk := (numOfVals + workers - 1) / workers
	g, ctx := errgroup.WithContext(ctx)
	for start := 0; start < numOfVals; start += chunk {
		start := start
		end := start + chunk
		if end > numOfVals {
			end = numOfVals
		}
		g.Go(func() error {
			for i := start; i < end; i++ {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				rewards[i], penalties[i] = attestationDelta(pBal, vp[i], rp)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return rewards, penalties, nil
}

func attestationDelta(pBal *Balance, v *Validator, rp rewardParams) (uint64, uint64) {
	eligible := v.IsActivePrevEpoch || (v.IsSlashed && !v.IsWithdrawableCurrentEpoch)
	if !eligible || pBal.ActiveCurrentEpoch == 0 {
		return 0, 0
	}

	cfg := params.BeaconConfig()
	baseRewardsPerEpoch := cfg.BaseRewardsPerEpoch
	effectiveBalanceIncrement := cfg.EffectiveBalanceIncrement
	vb := v.CurrentEpochEffectiveBalance
	br := vb * cfg.BaseRewardFactor / rp.balanceSqrt / baseRewardsPerEpoch
	r, p := uint64(0), uint64(0)
	currentEpochBalance := pBal.ActiveCurrentEpoch / effectiveBalanceIncrement
	if currentEpochBalance == 0 {
		currentEpochBalance = 1
	}

	// Process source reward / penalty
	if v.IsPrevEpochAttester && !v.IsSlashed {
		proposerReward := br / cfg.ProposerRewardQuotient
		maxAttesterReward := br - proposerReward
		r += maxAttesterReward / uint64(v.InclusionDistance)

		if rp.inactivityLeak {
			// Since full base reward will be canceled out by inactivity penalty deltas,
			// optimal participation receives full base reward compensation here.
			r += br
		} else {
			rewardNumerator := br * (pBal.PrevEpochAttested / effectiveBalanceIncrement)
			r += rewardNumerator / currentEpochBalance
		}
	} else {
		p += br
	}

	// Process target reward / penalty
	if v.IsPrevEpochTargetAttester && !v.IsSlashed {
		if rp.inactivityLeak {
			r += br
		} else {
			rewardNumerator := br * (pBal.PrevEpochTargetAttested / effectiveBalanceIncrement)
			r += rewardNumerator / currentEpochBalance
		}
	} else {
		p += br
	}

	// Process head reward / penalty
	if v.IsPrevEpochHeadAttester && !v.IsSlashed {
		if rp.inactivityLeak {
			r += br
		} else {
			rewardNumerator := br * (pBal.PrevEpochHeadAttested / effectiveBalanceIncrement)
			r += rewardNumerator / currentEpochBalance
		}
	} else {
		p += br
	}

	// Process finality delay penalty
	if rp.inactivityLeak {
		// If validator is performing optimally, this cancels all rewards for a neutral balance.
		proposerReward := br / cfg.ProposerRewardQuotient
		p += baseRewardsPerEpoch*br - proposerReward
		// Apply an additional penalty to validators that did not vote on the correct target or has been slashed.
		// Equivalent to the following condition from the spec:
		// `index not in get_unslashed_attesting_indices(state, matching_target_attestations)`
		if !v.IsPrevEpochTargetAttester || v.IsSlashed {
			p += vb * rp.finalityDelay / cfg.InactivityPenaltyQuotient
		}
	}
	return r, p
}

// ProposersDelta computes and returns the rewards and penalties differences for individual validators based on the
// proposer inclusion records.
func ProposersDelta(st *state.BeaconState, pBal *Balance, vp []*Validator) ([]uint64, error) {
	numofVals := len(vp)
	rewards := make([]uint64, numofVals)

	rp := newRewardParams(st, pBal)
	cfg := params.BeaconConfig()
	for _, v := range vp {
		// Only apply inclusion rewards to proposer only if the attested hasn't been slashed.
		if v.IsPrevEpochAttester && !v.IsSlashed {
			if uint64(v.ProposerIndex) >= uint64(numofVals) {
				return nil, state.NewStateCorruptError("proposer index %d out of range of %d validators", v.ProposerIndex, numofVals)
			}
			baseReward := v.CurrentEpochEffectiveBalance * cfg.BaseRewardFactor / rp.balanceSqrt / cfg.BaseRewardsPerEpoch
			proposerReward := baseReward / cfg.ProposerRewardQuotient
			rewards[v.ProposerIndex] += proposerReward
		}
	}
	return rewards, nil
}
