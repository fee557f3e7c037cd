package precompute

import (
	"github.com/prysmaticlabs/epochengine/beacon-chain/core/helpers"
	"github.com/prysmaticlabs/epochengine/beacon-chain/state"
	"github.com/prysmaticlabs/epochengine/config/params"
	types "github.com/prysmaticlabs/epochengine/consensus-types/primitives"
	"github.com/prysmaticlabs/epochengine/math"
	ethpb "github.com/prysmaticlabs/epochengine/proto/prysm/v1alpha1"
)

// ProcessSlashingsPrecompute processes the slashed validators during epoch processing.
// This is an optimized version by passing in precomputed total epoch balances.
func ProcessSlashingsPrecompute(st *state.BeaconState, pBal *Balance) error {
	cfg := params.BeaconConfig()
	currentEpoch := helpers.CurrentEpoch(st)
	exitLength := cfg.EpochsPerSlashingsVector

	// Compute the sum of state slashings
	totalSlashing := uint64(0)
	for _, slashing := range st.Slashings() {
		var err error
		totalSlashing, err = math.Add64(totalSlashing, slashing)
		if err != nil {
			return state.NewStateCorruptError("sum of slashings overflows")
		}
	}

	adjusted, err := math.Mul64(totalSlashing, cfg.ProportionalSlashingMultiplier)
	if err != nil {
		return state.NewStateCorruptError("adjusted slashing balance overflows")
	}
	totalBalance := pBal.ActiveCurrentEpoch
	if totalBalance == 0 {
		totalBalance = cfg.EffectiveBalanceIncrement
	}
	minSlashing := math.Min(adjusted, totalBalance)
	epochToWithdraw := currentEpoch + exitLength/2

	increment := cfg.EffectiveBalanceIncrement
	penalties := make(map[types.ValidatorIndex]uint64)
	if err := st.ReadFromEveryValidator(func(idx int, val ethpb.Validator) error {
		correctEpoch := epochToWithdraw == val.WithdrawableEpoch
		if !val.Slashed || !correctEpoch {
			return nil
		}
		penaltyNumerator, err := math.Mul64(val.EffectiveBalance/increment, minSlashing)
		if err != nil {
			return state.NewStateCorruptError("slashing penalty of validator %d overflows", idx)
		}
		penalties[types.ValidatorIndex(idx)] = penaltyNumerator / totalBalance * increment
		return nil
	}); err != nil {
		return err
	}
	// Exit early if there's no meaningful slashing to process.
	if len(penalties) == 0 {
		return nil
	}

	balances := st.Balances()
	for idx, penalty := range penalties {
		if uint64(idx) >= uint64(len(balances)) {
			return state.NewStateCorruptError("balance index %d out of range of %d balances", idx, len(balances))
		}
		balances[idx] = helpers.DecreaseBalanceWithVal(balances[idx], penalty)
	}
	return st.SetBalances(balances)
}
