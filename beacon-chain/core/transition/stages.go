package transition

import (
	"context"

	"github.com/prysmaticlabs/epochengine/beacon-chain/core/epoch"
	"github.com/prysmaticlabs/epochengine/beacon-chain/core/epoch/precompute"
	"github.com/prysmaticlabs/epochengine/beacon-chain/core/helpers"
	"github.com/prysmaticlabs/epochengine/beacon-chain/state"
)

// epochProcess is the data the stages of one epoch transition hand to each other.
// The precomputed records are built once and never re-read from the live state.
type epochProcess struct {
	state      *state.BeaconState
	ec         *helpers.EpochContext
	validators []*precompute.Validator
	balance    *precompute.Balance
	summary    *Summary
}

type stage struct {
	name    string
	process func(ctx context.Context, p *epochProcess) error
}

// defaultStages lists the phase0 epoch processing steps in the order they must run.
//
// Spec pseudocode definition:
//
//	def process_epoch(state: BeaconState) -> None:
//	  process_justification_and_finalization(state)
//	  process_rewards_and_penalties(state)
//	  process_registry_updates(state)
//	  process_slashings(state)
//	  process_final_updates(state)
func defaultStages() []stage {
	return []stage{
		{name: "precompute", process: processPrecompute},
		{name: "justification_and_finalization", process: processJustificationAndFinalization},
		{name: "rewards_and_penalties", process: processRewardsAndPenalties},
		{name: "registry_updates", process: processRegistryUpdates},
		{name: "slashings", process: processSlashings},
		{name: "final_updates", process: processFinalUpdates},
		{name: "fork_transition", process: processForkTransition},
	}
}

func processPrecompute(ctx context.Context, p *epochProcess) error {
	vp, bp, err := precompute.New(ctx, p.state, p.ec)
	if err != nil {
		return err
	}
	vp, bp, err = precompute.ProcessAttestations(ctx, p.state, p.ec, vp, bp)
	if err != nil {
		return err
	}
	p.validators = vp
	p.balance = bp
	return nil
}

func processJustificationAndFinalization(_ context.Context, p *epochProcess) error {
	_, err := precompute.ProcessJustificationAndFinalizationPreCompute(p.state, p.balance)
	return err
}

func processRewardsAndPenalties(ctx context.Context, p *epochProcess) error {
	_, err := precompute.ProcessRewardsAndPenaltiesPrecompute(ctx, p.state, p.balance, p.validators)
	return err
}

func processRegistryUpdates(ctx context.Context, p *epochProcess) error {
	changes, err := epoch.ProcessRegistryUpdates(ctx, p.state, p.ec)
	if err != nil {
		return err
	}
	p.summary.Activated = changes.Activated
	p.summary.Ejected = changes.Ejected
	return nil
}

func processSlashings(_ context.Context, p *epochProcess) error {
	return precompute.ProcessSlashingsPrecompute(p.state, p.balance)
}

func processFinalUpdates(_ context.Context, p *epochProcess) error {
	_, err := epoch.ProcessFinalUpdates(p.state)
	return err
}

func processForkTransition(_ context.Context, p *epochProcess) error {
	fork, err := epoch.ProcessForkTransition(p.state)
	if err != nil {
		return err
	}
	p.summary.ForkActivated = fork != nil
	return nil
}
