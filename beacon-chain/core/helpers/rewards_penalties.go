package helpers

import (
	"github.com/prysmaticlabs/epochengine/beacon-chain/state"
	"github.com/prysmaticlabs/epochengine/config/params"
	types "github.com/prysmaticlabs/epochengine/consensus-types/primitives"
	"github.com/prysmaticlabs/epochengine/math"
	ethpb "github.com/prysmaticlabs/epochengine/proto/prysm/v1alpha1"
)

// TotalActiveBalance returns the total amount at stake in Gwei
// of active validators.
//
// Spec pseudocode definition:
//
//	def get_total_active_balance(state: BeaconState) -> Gwei:
//	 """
//	 Return the combined effective balance of the active validators.
//	 Note: ``get_total_balance`` returns ``EFFECTIVE_BALANCE_INCREMENT`` Gwei minimum to avoid divisions by zero.
//	 """
//	 return get_total_balance(state, set(get_active_validator_indices(state, get_current_epoch(state))))
func TotalActiveBalance(st *state.BeaconState) (uint64, error) {
	total := uint64(0)
	epoch := CurrentEpoch(st)
	if err := st.ReadFromEveryValidator(func(idx int, val ethpb.Validator) error {
		if checkValidatorActiveStatus(val.ActivationEpoch, val.ExitEpoch, epoch) {
			total += val.EffectiveBalance
		}
		return nil
	}); err != nil {
		return 0, err
	}
	return math.Max(params.BeaconConfig().EffectiveBalanceIncrement, total), nil
}

// IncreaseBalanceWithVal increases validator with the given 'index' balance by 'delta' in Gwei.
// This method is flattened version of the spec method, taking in the raw balance and returning
// the post balance.
func IncreaseBalanceWithVal(currBalance, delta uint64) (uint64, error) {
	newBal, err := math.Add64(currBalance, delta)
	if err != nil {
		return 0, state.NewStateCorruptError("balance %d + reward %d overflows uint64", currBalance, delta)
	}
	return newBal, nil
}

// DecreaseBalanceWithVal decreases validator with the given 'index' balance by 'delta' in Gwei.
// This method is flattened version of the spec method, taking in the raw balance and returning
// the post balance.
func DecreaseBalanceWithVal(currBalance, delta uint64) uint64 {
	return math.SaturatingSub(currBalance, delta)
}

// IsInInactivityLeak returns true if the state is experiencing inactivity leak.
//
// Spec code:
//
//	def is_in_inactivity_leak(state: BeaconState) -> bool:
//	  return get_finality_delay(state) > MIN_EPOCHS_TO_INACTIVITY_PENALTY
func IsInInactivityLeak(prevEpoch, finalizedEpoch types.Epoch) bool {
	return FinalityDelay(prevEpoch, finalizedEpoch) > params.BeaconConfig().MinEpochsToInactivityPenalty
}

// FinalityDelay returns the finality delay using the beacon state.
//
// Spec code:
//
//	def get_finality_delay(state: BeaconState) -> uint64:
//	  return get_previous_epoch(state) - state.finalized_checkpoint.epoch
func FinalityDelay(prevEpoch, finalizedEpoch types.Epoch) types.Epoch {
	return prevEpoch.Sub(uint64(finalizedEpoch))
}
