package eth

import (
	"github.com/prysmaticlabs/epochengine/consensus-types/primitives"
)

// Validator is a registry entry of the beacon state.
type Validator struct {
	PublicKey                  [48]byte
	WithdrawalCredentials      [32]byte
	EffectiveBalance           uint64
	Slashed                    bool
	ActivationEligibilityEpoch primitives.Epoch
	ActivationEpoch            primitives.Epoch
	ExitEpoch                  primitives.Epoch
	WithdrawableEpoch          primitives.Epoch
}

// Copy --
func (v *Validator) Copy() *Validator {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}
