// Package epoch contains epoch processing libraries according to spec, able to
// process new balance for validators, justify and finalize new
// check points, and shuffle validators to different slots and
// shards.
package epoch

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"github.com/prysmaticlabs/epochengine/beacon-chain/core/helpers"
	"github.com/prysmaticlabs/epochengine/beacon-chain/core/validators"
	"github.com/prysmaticlabs/epochengine/beacon-chain/state"
	"github.com/prysmaticlabs/epochengine/config/params"
	types "github.com/prysmaticlabs/epochengine/consensus-types/primitives"
	ethpb "github.com/prysmaticlabs/epochengine/proto/prysm/v1alpha1"
	"go.opencensus.io/trace"
)

// RegistryChanges lists the validators whose status a registry update changed.
type RegistryChanges struct {
	// Activated validators, in activation queue order.
	Activated []types.ValidatorIndex
	// Ejected validators whose exit was initiated for a low effective balance.
	Ejected []types.ValidatorIndex
}

// ProcessRegistryUpdates rotates validators in and out of active pool.
// the amount to rotate is determined churn limit.
//
// Spec pseudocode definition:
//
//	def process_registry_updates(state: BeaconState) -> None:
//	  # Process activation eligibility and ejections
//	  for index, validator in enumerate(state.validators):
//	      if is_eligible_for_activation_queue(validator):
//	          validator.activation_eligibility_epoch = get_current_epoch(state) + 1
//
//	      if is_active_validator(validator, get_current_epoch(state)) and validator.effective_balance <= EJECTION_BALANCE:
//	          initiate_validator_exit(state, ValidatorIndex(index))
//
//	  # Queue validators eligible for activation and not yet dequeued for activation
//	  activation_queue = sorted([
//	      index for index, validator in enumerate(state.validators)
//	      if is_eligible_for_activation(state, validator)
//	      # Order by the sequence of activation_eligibility_epoch setting and then index
//	  ], key=lambda index: (state.validators[index].activation_eligibility_epoch, index))
//	  # Dequeued validators for activation up to churn limit
//	  for index in activation_queue[:get_validator_churn_limit(state)]:
//	      validator = state.validators[index]
//	      validator.activation_epoch = compute_activation_exit_epoch(get_current_epoch(state))
func ProcessRegistryUpdates(ctx context.Context, st *state.BeaconState, ec *helpers.EpochContext) (*RegistryChanges, error) {
	_, span := trace.StartSpan(ctx, "epoch.ProcessRegistryUpdates")
	defer span.End()

	cfg := params.BeaconConfig()
	currentEpoch := helpers.CurrentEpoch(st)
	activationExitEpoch := helpers.ActivationExitEpoch(currentEpoch)
	changes := &RegistryChanges{}

	// Process activation eligibility and collect ejections.
	var ejections []types.ValidatorIndex
	if err := st.ApplyToEveryValidator(func(idx int, val *ethpb.Validator) (bool, error) {
		if helpers.IsActiveValidator(val, currentEpoch) && val.EffectiveBalance <= cfg.EjectionBalance {
			ejections = append(ejections, types.ValidatorIndex(idx))
		}
		if helpers.IsEligibleForActivationQueue(val) {
			val.ActivationEligibilityEpoch = currentEpoch + 1
			return true, nil
		}
		return false, nil
	}); err != nil {
		return nil, errors.Wrap(err, "could not process activation eligibility")
	}

	if len(ejections) > 0 {
		queue, err := validators.NewExitQueue(st)
		if err != nil {
			return nil, err
		}
		for _, idx := range ejections {
			val, err := st.ValidatorAtIndex(idx)
			if err != nil {
				return nil, err
			}
			if val.ExitEpoch != cfg.FarFutureEpoch {
				continue
			}
			if _, err := validators.InitiateValidatorExit(st, idx, queue); err != nil {
				return nil, errors.Wrapf(err, "could not initiate exit for validator %d", idx)
			}
			changes.Ejected = append(changes.Ejected, idx)
		}
	}

	// Queue validators eligible for activation and not yet dequeued for activation.
	vals := st.Validators()
	finalizedEpoch := st.FinalizedCheckpointEpoch()
	var activationQ []types.ValidatorIndex
	for idx, val := range vals {
		if helpers.IsEligibleForActivation(finalizedEpoch, val) {
			activationQ = append(activationQ, types.ValidatorIndex(idx))
		}
	}
	sort.Sort(sortableIndices{indices: activationQ, validators: vals})

	// Only activate just enough validators according to the activation churn limit.
	active, err := ec.ActiveIndices(currentEpoch)
	if err != nil {
		return nil, errors.Wrap(err, "could not get active validator indices")
	}
	limit := helpers.ValidatorChurnLimit(uint64(len(active)))
	if uint64(len(activationQ)) > limit {
		activationQ = activationQ[:limit]
	}
	for _, idx := range activationQ {
		val := vals[idx]
		val.ActivationEpoch = activationExitEpoch
		if err := st.UpdateValidatorAtIndex(idx, val); err != nil {
			return nil, err
		}
	}
	changes.Activated = activationQ
	return changes, nil
}

// ProcessEth1DataReset resets the eth1 data votes at the end of a voting period.
//
// Spec pseudocode definition:
//
//	def process_eth1_data_reset(state: BeaconState) -> None:
//	  next_epoch = Epoch(get_current_epoch(state) + 1)
//	  # Reset eth1 data votes
//	  if next_epoch % EPOCHS_PER_ETH1_VOTING_PERIOD == 0:
//	      state.eth1_data_votes = []
func ProcessEth1DataReset(st *state.BeaconState) {
	nextEpoch := helpers.NextEpoch(st)
	if nextEpoch.Mod(uint64(params.BeaconConfig().EpochsPerEth1VotingPeriod)) == 0 {
		st.SetEth1DataVotes([]*ethpb.Eth1Data{})
	}
}

// ProcessEffectiveBalanceUpdates processes effective balance updates during epoch processing.
//
// Spec pseudocode definition:
//
//	def process_effective_balance_updates(state: BeaconState) -> None:
//	  # Update effective balances with hysteresis
//	  for index, validator in enumerate(state.validators):
//	      balance = state.balances[index]
//	      HYSTERESIS_INCREMENT = uint64(EFFECTIVE_BALANCE_INCREMENT // HYSTERESIS_QUOTIENT)
//	      DOWNWARD_THRESHOLD = HYSTERESIS_INCREMENT * HYSTERESIS_DOWNWARD_MULTIPLIER
//	      UPWARD_THRESHOLD = HYSTERESIS_INCREMENT * HYSTERESIS_UPWARD_MULTIPLIER
//	      if (
//	          balance + DOWNWARD_THRESHOLD < validator.effective_balance
//	          or validator.effective_balance + UPWARD_THRESHOLD < balance
//	      ):
//	          validator.effective_balance = min(balance - balance % EFFECTIVE_BALANCE_INCREMENT, MAX_EFFECTIVE_BALANCE)
func ProcessEffectiveBalanceUpdates(st *state.BeaconState) error {
	cfg := params.BeaconConfig()
	effBalanceInc := cfg.EffectiveBalanceIncrement
	maxEffBalance := cfg.MaxEffectiveBalance
	hysteresisInc := effBalanceInc / cfg.HysteresisQuotient
	downwardThreshold := hysteresisInc * cfg.HysteresisDownwardMultiplier
	upwardThreshold := hysteresisInc * cfg.HysteresisUpwardMultiplier

	bals := st.Balances()
	if len(bals) != st.NumValidators() {
		return state.NewStateCorruptError("%d balances for %d validators", len(bals), st.NumValidators())
	}

	// Update effective balances with hysteresis.
	validatorFunc := func(idx int, val *ethpb.Validator) (bool, error) {
		balance := bals[idx]
		if balance+downwardThreshold < val.EffectiveBalance || val.EffectiveBalance+upwardThreshold < balance {
			effectiveBal := maxEffBalance
			if effectiveBal > balance-balance%effBalanceInc {
				effectiveBal = balance - balance%effBalanceInc
			}
			if effectiveBal != val.EffectiveBalance {
				val.EffectiveBalance = effectiveBal
				return true, nil
			}
		}
		return false, nil
	}

	return st.ApplyToEveryValidator(validatorFunc)
}

// ProcessSlashingsReset processes the total slashing balances updates during epoch processing.
//
// Spec pseudocode definition:
//
//	def process_slashings_reset(state: BeaconState) -> None:
//	  next_epoch = Epoch(get_current_epoch(state) + 1)
//	  # Reset slashings
//	  state.slashings[next_epoch % EPOCHS_PER_SLASHINGS_VECTOR] = Gwei(0)
func ProcessSlashingsReset(st *state.BeaconState) error {
	nextEpoch := helpers.NextEpoch(st)
	slashedExitLength := params.BeaconConfig().EpochsPerSlashingsVector
	if err := st.UpdateSlashingsAtIndex(uint64(nextEpoch%slashedExitLength), 0); err != nil {
		return errors.Wrap(err, "could not reset slashings")
	}
	return nil
}

// ProcessRandaoMixesReset processes the final updates during epoch processing.
//
// Spec pseudocode definition:
//
//	def process_randao_mixes_reset(state: BeaconState) -> None:
//	  current_epoch = get_current_epoch(state)
//	  next_epoch = Epoch(current_epoch + 1)
//	  # Set randao mix
//	  state.randao_mixes[next_epoch % EPOCHS_PER_HISTORICAL_VECTOR] = get_randao_mix(state, current_epoch)
func ProcessRandaoMixesReset(st *state.BeaconState) error {
	currentEpoch := helpers.CurrentEpoch(st)
	nextEpoch := currentEpoch + 1
	randaoMixLength := params.BeaconConfig().EpochsPerHistoricalVector

	mix, err := helpers.RandaoMix(st, currentEpoch)
	if err != nil {
		return err
	}
	if err := st.UpdateRandaoMixesAtIndex(uint64(nextEpoch%randaoMixLength), mix); err != nil {
		return errors.Wrap(err, "could not set randao mix")
	}
	return nil
}

// ProcessHistoricalDataUpdate processes the updates to historical data during epoch processing.
//
// Spec pseudocode definition:
//
//	def process_historical_roots_update(state: BeaconState) -> None:
//	  # Set historical root accumulator
//	  next_epoch = Epoch(get_current_epoch(state) + 1)
//	  if next_epoch % (SLOTS_PER_HISTORICAL_ROOT // SLOTS_PER_EPOCH) == 0:
//	      historical_batch = HistoricalBatch(block_roots=state.block_roots, state_roots=state.state_roots)
//	      state.historical_roots.append(hash_tree_root(historical_batch))
func ProcessHistoricalDataUpdate(st *state.BeaconState) error {
	cfg := params.BeaconConfig()
	nextEpoch := helpers.NextEpoch(st)
	epochsPerHistoricalRoot := uint64(cfg.SlotsPerHistoricalRoot / cfg.SlotsPerEpoch)
	if epochsPerHistoricalRoot == 0 || nextEpoch.Mod(epochsPerHistoricalRoot) != 0 {
		return nil
	}
	historicalBatch := &ethpb.HistoricalBatch{
		BlockRoots: st.BlockRoots(),
		StateRoots: st.StateRoots(),
	}
	batchRoot, err := historicalBatch.HashTreeRoot()
	if err != nil {
		return state.NewStateCorruptError("could not hash historical batch: %v", err)
	}
	st.AppendHistoricalRoots(batchRoot)
	return nil
}

// ProcessParticipationRecordUpdates rotates current/previous epoch attestations during epoch processing.
//
// Spec pseudocode definition:
//
//	def process_participation_record_updates(state: BeaconState) -> None:
//	  # Rotate current/previous epoch attestations
//	  state.previous_epoch_attestations = state.current_epoch_attestations
//	  state.current_epoch_attestations = []
func ProcessParticipationRecordUpdates(st *state.BeaconState) {
	st.RotateAttestations()
}

// ProcessFinalUpdates processes the final updates during epoch processing.
func ProcessFinalUpdates(st *state.BeaconState) (*state.BeaconState, error) {
	// Reset ETH1 data votes.
	ProcessEth1DataReset(st)

	// Update effective balances with hysteresis.
	if err := ProcessEffectiveBalanceUpdates(st); err != nil {
		return nil, err
	}

	// Reset slashings.
	if err := ProcessSlashingsReset(st); err != nil {
		return nil, err
	}

	// Set RANDAO mix.
	if err := ProcessRandaoMixesReset(st); err != nil {
		return nil, err
	}

	// Set historical root accumulator.
	if err := ProcessHistoricalDataUpdate(st); err != nil {
		return nil, err
	}

	// Rotate current and previous epoch attestations.
	ProcessParticipationRecordUpdates(st)

	return st, nil
}
