package epoch

import (
	"github.com/prysmaticlabs/epochengine/beacon-chain/core/helpers"
	"github.com/prysmaticlabs/epochengine/beacon-chain/state"
	"github.com/prysmaticlabs/epochengine/config/params"
	ethpb "github.com/prysmaticlabs/epochengine/proto/prysm/v1alpha1"
)

// ProcessForkTransition switches the fork of the state when the chain config schedules a
// new fork version at the epoch the state is about to enter. It returns the new fork when
// one was activated and nil otherwise.
func ProcessForkTransition(st *state.BeaconState) (*ethpb.Fork, error) {
	fork := st.Fork()
	if fork == nil {
		return nil, state.NewStateCorruptError("nil fork in state")
	}
	nextEpoch := helpers.NextEpoch(st)
	var scheduled *params.ForkScheduleEntry
	for _, entry := range params.BeaconConfig().ForkSchedule() {
		entry := entry
		if entry.Epoch == nextEpoch {
			scheduled = &entry
		}
	}
	if scheduled == nil || scheduled.Version == fork.CurrentVersion {
		return nil, nil
	}
	if fork.Epoch > nextEpoch {
		return nil, state.NewStateCorruptError("fork epoch %d is ahead of epoch %d", fork.Epoch, nextEpoch)
	}
	newFork := &ethpb.Fork{
		PreviousVersion: fork.CurrentVersion,
		CurrentVersion:  scheduled.Version,
		Epoch:           nextEpoch,
	}
	st.SetFork(newFork)
	return newFork, nil
}
