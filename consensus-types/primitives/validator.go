package primitives

// ValidatorIndex in eth2.
type ValidatorIndex uint64

// CommitteeIndex in eth2.
type CommitteeIndex uint64
