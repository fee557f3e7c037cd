package eth

import (
	"github.com/prysmaticlabs/epochengine/consensus-types/primitives"
	"github.com/prysmaticlabs/go-bitfield"
)

// Copier represents a type which can be deep copied.
type Copier[T any] interface {
	Copy() T
}

// Checkpoint is an (epoch, block root) pair used by justification and finality.
type Checkpoint struct {
	Epoch primitives.Epoch
	Root  [32]byte
}

// Copy --
func (c *Checkpoint) Copy() *Checkpoint {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

// AttestationData is the vote carried by an attestation.
type AttestationData struct {
	Slot            primitives.Slot
	CommitteeIndex  primitives.CommitteeIndex
	BeaconBlockRoot [32]byte
	Source          *Checkpoint
	Target          *Checkpoint
}

// Copy --
func (a *AttestationData) Copy() *AttestationData {
	if a == nil {
		return nil
	}
	return &AttestationData{
		Slot:            a.Slot,
		CommitteeIndex:  a.CommitteeIndex,
		BeaconBlockRoot: a.BeaconBlockRoot,
		Source:          a.Source.Copy(),
		Target:          a.Target.Copy(),
	}
}

// PendingAttestation is an attestation that was included on chain and is
// awaiting epoch processing.
type PendingAttestation struct {
	AggregationBits bitfield.Bitlist
	Data            *AttestationData
	InclusionDelay  primitives.Slot
	ProposerIndex   primitives.ValidatorIndex
}

// Copy --
func (a *PendingAttestation) Copy() *PendingAttestation {
	if a == nil {
		return nil
	}
	var bits bitfield.Bitlist
	if a.AggregationBits != nil {
		bits = make(bitfield.Bitlist, len(a.AggregationBits))
		copy(bits, a.AggregationBits)
	}
	return &PendingAttestation{
		AggregationBits: bits,
		Data:            a.Data.Copy(),
		InclusionDelay:  a.InclusionDelay,
		ProposerIndex:   a.ProposerIndex,
	}
}

// CopyPendingAttestationSlice copies the provided slice of pending attestations.
func CopyPendingAttestationSlice(input []*PendingAttestation) []*PendingAttestation {
	if input == nil {
		return nil
	}
	res := make([]*PendingAttestation, len(input))
	for i := 0; i < len(res); i++ {
		res[i] = input[i].Copy()
	}
	return res
}
