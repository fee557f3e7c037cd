// Package state contains types for state operation-specific events fired
// during an epoch transition, such as a fork activating at the epoch boundary.
package state

import (
	types "github.com/prysmaticlabs/epochengine/consensus-types/primitives"
)

// How to add a new event to the feed:
//   1. Add a constant describing the event to the list below.
//   2. Add a structure with the name `<event>Data` containing any data fields that should be supplied with the event.
//
// Note that the same event is supplied to all subscribers, so the event received by subscribers should be considered read-only.

// EventType is the type that defines the type of event.
type EventType int

const (
	// EpochProcessed is sent after an epoch transition completed successfully.
	EpochProcessed = iota + 1
	// ForkActivated is sent when the epoch transition switched the state to a new fork version.
	ForkActivated
)

// Event is the event that is sent with state feed updates.
type Event struct {
	// Type is the type of event.
	Type EventType
	// Data is event-specific data.
	Data interface{}
}

// EpochProcessedData is the data sent with EpochProcessed events.
type EpochProcessedData struct {
	// Epoch is the epoch the state entered.
	Epoch types.Epoch
	// FinalizedEpoch after the transition.
	FinalizedEpoch types.Epoch
	// JustifiedEpoch is the current justified epoch after the transition.
	JustifiedEpoch types.Epoch
}

// ForkActivatedData is the data sent with ForkActivated events.
type ForkActivatedData struct {
	// Epoch at which the new fork version took effect.
	Epoch types.Epoch
	// PreviousVersion of the fork.
	PreviousVersion [4]byte
	// CurrentVersion of the fork.
	CurrentVersion [4]byte
}
