// Package validators contains libraries to change the exit status of
// validators in the registry during epoch processing.
package validators

import (
	"github.com/pkg/errors"
	"github.com/prysmaticlabs/epochengine/beacon-chain/core/helpers"
	"github.com/prysmaticlabs/epochengine/beacon-chain/state"
	"github.com/prysmaticlabs/epochengine/config/params"
	types "github.com/prysmaticlabs/epochengine/consensus-types/primitives"
	ethpb "github.com/prysmaticlabs/epochengine/proto/prysm/v1alpha1"
)

// ExitQueue tracks the latest scheduled exit epoch of the registry and how many
// validators already exit in it, so several exits in one epoch transition only
// scan the registry once.
type ExitQueue struct {
	epoch      types.Epoch
	churn      uint64
	churnLimit uint64
}

// NewExitQueue builds the exit queue of the state's current epoch.
//
// Spec pseudocode definition:
//
//	exit_epochs = [v.exit_epoch for v in state.validators if v.exit_epoch != FAR_FUTURE_EPOCH]
//	exit_queue_epoch = max(exit_epochs + [compute_activation_exit_epoch(get_current_epoch(state))])
//	exit_queue_churn = len([v for v in state.validators if v.exit_epoch == exit_queue_epoch])
func NewExitQueue(st *state.BeaconState) (*ExitQueue, error) {
	currentEpoch := helpers.CurrentEpoch(st)
	farFutureEpoch := params.BeaconConfig().FarFutureEpoch
	exitQueueEpoch := helpers.ActivationExitEpoch(currentEpoch)
	activeCount := uint64(0)
	exitEpochs := make(map[types.Epoch]uint64)
	if err := st.ReadFromEveryValidator(func(_ int, val ethpb.Validator) error {
		if val.ExitEpoch != farFutureEpoch {
			exitEpochs[val.ExitEpoch]++
			if val.ExitEpoch > exitQueueEpoch {
				exitQueueEpoch = val.ExitEpoch
			}
		}
		if helpers.IsActiveValidator(&val, currentEpoch) {
			activeCount++
		}
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "could not read validator exit epochs")
	}
	return &ExitQueue{
		epoch:      exitQueueEpoch,
		churn:      exitEpochs[exitQueueEpoch],
		churnLimit: helpers.ValidatorChurnLimit(activeCount),
	}, nil
}

// Epoch is the latest exit epoch the queue has handed out.
func (q *ExitQueue) Epoch() types.Epoch {
	return q.epoch
}

// Churn is the number of validators exiting at Epoch.
func (q *ExitQueue) Churn() uint64 {
	return q.churn
}

// next reserves a slot in the queue and returns its exit epoch.
func (q *ExitQueue) next() types.Epoch {
	if q.churn >= q.churnLimit {
		q.epoch = q.epoch.Add(1)
		q.churn = 0
	}
	q.churn++
	return q.epoch
}

// InitiateValidatorExit takes in validator index and updates
// validator with correct voluntary exit parameters. A validator whose exit
// was already initiated is left untouched.
//
// Spec pseudocode definition:
//
//	def initiate_validator_exit(state: BeaconState, index: ValidatorIndex) -> None:
//	  """
//	  Initiate the exit of the validator with index ``index``.
//	  """
//	  # Return if validator already initiated exit
//	  validator = state.validators[index]
//	  if validator.exit_epoch != FAR_FUTURE_EPOCH:
//	      return
//
//	  # Compute exit queue epoch
//	  exit_epochs = [v.exit_epoch for v in state.validators if v.exit_epoch != FAR_FUTURE_EPOCH]
//	  exit_queue_epoch = max(exit_epochs + [compute_activation_exit_epoch(get_current_epoch(state))])
//	  exit_queue_churn = len([v for v in state.validators if v.exit_epoch == exit_queue_epoch])
//	  if exit_queue_churn >= get_validator_churn_limit(state):
//	      exit_queue_epoch += Epoch(1)
//
//	  # Set validator exit epoch and withdrawable epoch
//	  validator.exit_epoch = exit_queue_epoch
//	  validator.withdrawable_epoch = Epoch(validator.exit_epoch + MIN_VALIDATOR_WITHDRAWABILITY_DELAY)
func InitiateValidatorExit(st *state.BeaconState, idx types.ValidatorIndex, q *ExitQueue) (types.Epoch, error) {
	validator, err := st.ValidatorAtIndex(idx)
	if err != nil {
		return 0, err
	}
	if validator.ExitEpoch != params.BeaconConfig().FarFutureEpoch {
		return validator.ExitEpoch, nil
	}
	exitEpoch := q.next()
	validator.ExitEpoch = exitEpoch
	validator.WithdrawableEpoch = exitEpoch.Add(uint64(params.BeaconConfig().MinValidatorWithdrawabilityDelay))
	if err := st.UpdateValidatorAtIndex(idx, validator); err != nil {
		return 0, err
	}
	return exitEpoch, nil
}
