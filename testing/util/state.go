package util

import (
	"encoding/binary"
	"testing"

	"github.com/prysmaticlabs/epochengine/beacon-chain/state"
	"github.com/prysmaticlabs/epochengine/config/params"
	"github.com/prysmaticlabs/epochengine/consensus-types/primitives"
	"github.com/prysmaticlabs/epochengine/crypto/hash"
	"github.com/prysmaticlabs/epochengine/encoding/bytesutil"
	ethpb "github.com/prysmaticlabs/epochengine/proto/prysm/v1alpha1"
	"github.com/prysmaticlabs/go-bitfield"
	"github.com/stretchr/testify/require"
)

// FillRootsNaturalOpt is meant to be used as an option when calling NewBeaconState.
// It fills state and block roots with representations of natural numbers starting with 1,
// so that no root in the state is the zero root.
func FillRootsNaturalOpt(st *ethpb.BeaconState) error {
	roots := prepareRoots(len(st.BlockRoots))
	st.StateRoots = roots
	st.BlockRoots = prepareRoots(len(st.BlockRoots))
	return nil
}

// NewBeaconState creates a beacon state with minimum marshalable fields, sized for the
// active chain config.
func NewBeaconState(options ...func(state *ethpb.BeaconState) error) (*state.BeaconState, error) {
	cfg := params.BeaconConfig()
	seed := &ethpb.BeaconState{
		GenesisTime: 0,
		Slot:        0,
		Fork: &ethpb.Fork{
			PreviousVersion: bytesutil.ToBytes4(cfg.GenesisForkVersion),
			CurrentVersion:  bytesutil.ToBytes4(cfg.GenesisForkVersion),
			Epoch:           cfg.GenesisEpoch,
		},
		BlockRoots:                  make([][32]byte, cfg.SlotsPerHistoricalRoot),
		StateRoots:                  make([][32]byte, cfg.SlotsPerHistoricalRoot),
		HistoricalRoots:             make([][32]byte, 0),
		Eth1Data:                    &ethpb.Eth1Data{},
		Eth1DataVotes:               make([]*ethpb.Eth1Data, 0),
		Eth1DepositIndex:            0,
		Validators:                  make([]*ethpb.Validator, 0),
		Balances:                    make([]uint64, 0),
		RandaoMixes:                 make([][32]byte, cfg.EpochsPerHistoricalVector),
		Slashings:                   make([]uint64, cfg.EpochsPerSlashingsVector),
		PreviousEpochAttestations:   make([]*ethpb.PendingAttestation, 0),
		CurrentEpochAttestations:    make([]*ethpb.PendingAttestation, 0),
		JustificationBits:           bitfield.Bitvector4{0x0},
		PreviousJustifiedCheckpoint: &ethpb.Checkpoint{},
		CurrentJustifiedCheckpoint:  &ethpb.Checkpoint{},
		FinalizedCheckpoint:         &ethpb.Checkpoint{},
	}

	for _, opt := range options {
		err := opt(seed)
		if err != nil {
			return nil, err
		}
	}

	st, err := state.InitializeFromProtoUnsafe(seed)
	if err != nil {
		return nil, err
	}
	return st.Copy(), nil
}

// DeterministicValidator returns an active validator at genesis with the maximum
// effective balance. Its public key is derived from the index.
func DeterministicValidator(idx uint64) *ethpb.Validator {
	cfg := params.BeaconConfig()
	return &ethpb.Validator{
		PublicKey:                  DeterministicPubkey(idx),
		WithdrawalCredentials:      hash.Hash(binary.LittleEndian.AppendUint64(nil, idx)),
		EffectiveBalance:           cfg.MaxEffectiveBalance,
		Slashed:                    false,
		ActivationEligibilityEpoch: cfg.GenesisEpoch,
		ActivationEpoch:            cfg.GenesisEpoch,
		ExitEpoch:                  cfg.FarFutureEpoch,
		WithdrawableEpoch:          cfg.FarFutureEpoch,
	}
}

// DeterministicPubkey derives a unique 48 byte public key from a validator index.
func DeterministicPubkey(idx uint64) [48]byte {
	var pk [48]byte
	h := hash.Hash(binary.LittleEndian.AppendUint64([]byte("pubkey"), idx))
	copy(pk[:], h[:])
	binary.LittleEndian.PutUint64(pk[32:], idx)
	return pk
}

// DeterministicGenesisState returns a genesis state with numValidators active
// validators at the maximum effective balance, natural block roots and randao
// mixes derived from their index.
func DeterministicGenesisState(t testing.TB, numValidators uint64) *state.BeaconState {
	st, err := NewBeaconState(FillRootsNaturalOpt, func(st *ethpb.BeaconState) error {
		cfg := params.BeaconConfig()
		st.Validators = make([]*ethpb.Validator, numValidators)
		st.Balances = make([]uint64, numValidators)
		for i := uint64(0); i < numValidators; i++ {
			st.Validators[i] = DeterministicValidator(i)
			st.Balances[i] = cfg.MaxEffectiveBalance
		}
		for i := range st.RandaoMixes {
			st.RandaoMixes[i] = hash.Hash(binary.LittleEndian.AppendUint64([]byte("randao"), uint64(i)))
		}
		return nil
	})
	require.NoError(t, err)
	return st
}

// StateAtEpoch returns a deterministic state whose slot is the last slot of the given
// epoch, which is the slot an epoch transition runs at.
func StateAtEpoch(t testing.TB, numValidators uint64, epoch primitives.Epoch) *state.BeaconState {
	st := DeterministicGenesisState(t, numValidators)
	spe := uint64(params.BeaconConfig().SlotsPerEpoch)
	st.SetSlot(primitives.Slot((uint64(epoch)+1)*spe - 1))
	return st
}

func prepareRoots(n int) [][32]byte {
	roots := make([][32]byte, n)
	for i := 0; i < n; i++ {
		binary.BigEndian.PutUint64(roots[i][24:], uint64(i)+1)
	}
	return roots
}
