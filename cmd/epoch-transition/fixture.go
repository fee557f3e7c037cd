package main

import (
	"os"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/prysmaticlabs/epochengine/beacon-chain/state"
	fieldparams "github.com/prysmaticlabs/epochengine/config/fieldparams"
	types "github.com/prysmaticlabs/epochengine/consensus-types/primitives"
	"github.com/prysmaticlabs/epochengine/encoding/bytesutil"
	ethpb "github.com/prysmaticlabs/epochengine/proto/prysm/v1alpha1"
	"gopkg.in/yaml.v2"
)

// The fixture types mirror the beacon state with snake case keys and 0x prefixed
// hex for byte fields, the layout consensus test vectors use.

type checkpointFixture struct {
	Epoch uint64        `yaml:"epoch"`
	Root  hexutil.Bytes `yaml:"root"`
}

type forkFixture struct {
	PreviousVersion hexutil.Bytes `yaml:"previous_version"`
	CurrentVersion  hexutil.Bytes `yaml:"current_version"`
	Epoch           uint64        `yaml:"epoch"`
}

type eth1DataFixture struct {
	DepositRoot  hexutil.Bytes `yaml:"deposit_root"`
	DepositCount uint64        `yaml:"deposit_count"`
	BlockHash    hexutil.Bytes `yaml:"block_hash"`
}

type validatorFixture struct {
	Pubkey                     hexutil.Bytes `yaml:"pubkey"`
	WithdrawalCredentials      hexutil.Bytes `yaml:"withdrawal_credentials"`
	EffectiveBalance           uint64        `yaml:"effective_balance"`
	Slashed                    bool          `yaml:"slashed"`
	ActivationEligibilityEpoch uint64        `yaml:"activation_eligibility_epoch"`
	ActivationEpoch            uint64        `yaml:"activation_epoch"`
	ExitEpoch                  uint64        `yaml:"exit_epoch"`
	WithdrawableEpoch          uint64        `yaml:"withdrawable_epoch"`
}

type attestationDataFixture struct {
	Slot            uint64            `yaml:"slot"`
	Index           uint64            `yaml:"index"`
	BeaconBlockRoot hexutil.Bytes     `yaml:"beacon_block_root"`
	Source          checkpointFixture `yaml:"source"`
	Target          checkpointFixture `yaml:"target"`
}

type pendingAttestationFixture struct {
	AggregationBits hexutil.Bytes          `yaml:"aggregation_bits"`
	Data            attestationDataFixture `yaml:"data"`
	InclusionDelay  uint64                 `yaml:"inclusion_delay"`
	ProposerIndex   uint64                 `yaml:"proposer_index"`
}

type stateFixture struct {
	GenesisTime                 uint64                      `yaml:"genesis_time"`
	GenesisValidatorsRoot       hexutil.Bytes               `yaml:"genesis_validators_root"`
	Slot                        uint64                      `yaml:"slot"`
	Fork                        forkFixture                 `yaml:"fork"`
	BlockRoots                  []hexutil.Bytes             `yaml:"block_roots"`
	StateRoots                  []hexutil.Bytes             `yaml:"state_roots"`
	HistoricalRoots             []hexutil.Bytes             `yaml:"historical_roots"`
	Eth1Data                    eth1DataFixture             `yaml:"eth1_data"`
	Eth1DataVotes               []eth1DataFixture           `yaml:"eth1_data_votes"`
	Eth1DepositIndex            uint64                      `yaml:"eth1_deposit_index"`
	Validators                  []validatorFixture          `yaml:"validators"`
	Balances                    []uint64                    `yaml:"balances"`
	RandaoMixes                 []hexutil.Bytes             `yaml:"randao_mixes"`
	Slashings                   []uint64                    `yaml:"slashings"`
	PreviousEpochAttestations   []pendingAttestationFixture `yaml:"previous_epoch_attestations"`
	CurrentEpochAttestations    []pendingAttestationFixture `yaml:"current_epoch_attestations"`
	JustificationBits           hexutil.Bytes               `yaml:"justification_bits"`
	PreviousJustifiedCheckpoint checkpointFixture           `yaml:"previous_justified_checkpoint"`
	CurrentJustifiedCheckpoint  checkpointFixture           `yaml:"current_justified_checkpoint"`
	FinalizedCheckpoint         checkpointFixture           `yaml:"finalized_checkpoint"`
}

// readState decodes a yaml state fixture from disk.
func readState(path string) (*state.BeaconState, error) {
	enc, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return nil, errors.Wrap(err, "could not read state file")
	}
	f := &stateFixture{}
	if err := yaml.UnmarshalStrict(enc, f); err != nil {
		return nil, errors.Wrap(err, "could not unmarshal state yaml")
	}
	pb, err := f.toProto()
	if err != nil {
		return nil, err
	}
	return state.InitializeFromProtoUnsafe(pb)
}

// writeState encodes the state as a yaml fixture.
func writeState(path string, st *state.BeaconState) error {
	enc, err := yaml.Marshal(stateToFixture(st.CloneInnerState()))
	if err != nil {
		return errors.Wrap(err, "could not marshal state yaml")
	}
	return os.WriteFile(path, enc, 0o600)
}

func checkLength(field string, b hexutil.Bytes, want int) error {
	if len(b) != want {
		return errors.Errorf("%s is %d bytes, wanted %d", field, len(b), want)
	}
	return nil
}

func toBytes4(field string, b hexutil.Bytes) ([4]byte, error) {
	if err := checkLength(field, b, 4); err != nil {
		return [4]byte{}, err
	}
	return bytesutil.ToBytes4(b), nil
}

func toBytes32(field string, b hexutil.Bytes) ([32]byte, error) {
	if err := checkLength(field, b, 32); err != nil {
		return [32]byte{}, err
	}
	return bytesutil.ToBytes32(b), nil
}

func toPubkey(b hexutil.Bytes) ([fieldparams.BLSPubkeyLength]byte, error) {
	var pk [fieldparams.BLSPubkeyLength]byte
	if err := checkLength("pubkey", b, fieldparams.BLSPubkeyLength); err != nil {
		return pk, err
	}
	copy(pk[:], b)
	return pk, nil
}

func toRoots(field string, in []hexutil.Bytes) ([][32]byte, error) {
	roots := make([][32]byte, len(in))
	for i, r := range in {
		root, err := toBytes32(field, r)
		if err != nil {
			return nil, errors.Wrapf(err, "index %d", i)
		}
		roots[i] = root
	}
	return roots, nil
}

func fromRoots(in [][32]byte) []hexutil.Bytes {
	out := make([]hexutil.Bytes, len(in))
	for i := range in {
		out[i] = in[i][:]
	}
	return out
}

func (c checkpointFixture) toProto() (*ethpb.Checkpoint, error) {
	root, err := toBytes32("checkpoint root", c.Root)
	if err != nil {
		return nil, err
	}
	return &ethpb.Checkpoint{Epoch: types.Epoch(c.Epoch), Root: root}, nil
}

func checkpointToFixture(c *ethpb.Checkpoint) checkpointFixture {
	if c == nil {
		c = &ethpb.Checkpoint{}
	}
	return checkpointFixture{Epoch: uint64(c.Epoch), Root: c.Root[:]}
}

func (e eth1DataFixture) toProto() (*ethpb.Eth1Data, error) {
	depositRoot, err := toBytes32("deposit root", e.DepositRoot)
	if err != nil {
		return nil, err
	}
	blockHash, err := toBytes32("block hash", e.BlockHash)
	if err != nil {
		return nil, err
	}
	return &ethpb.Eth1Data{DepositRoot: depositRoot, DepositCount: e.DepositCount, BlockHash: blockHash}, nil
}

func eth1DataToFixture(e *ethpb.Eth1Data) eth1DataFixture {
	if e == nil {
		e = &ethpb.Eth1Data{}
	}
	return eth1DataFixture{DepositRoot: e.DepositRoot[:], DepositCount: e.DepositCount, BlockHash: e.BlockHash[:]}
}

func (a pendingAttestationFixture) toProto() (*ethpb.PendingAttestation, error) {
	headRoot, err := toBytes32("beacon block root", a.Data.BeaconBlockRoot)
	if err != nil {
		return nil, err
	}
	source, err := a.Data.Source.toProto()
	if err != nil {
		return nil, errors.Wrap(err, "source")
	}
	target, err := a.Data.Target.toProto()
	if err != nil {
		return nil, errors.Wrap(err, "target")
	}
	bits := make([]byte, len(a.AggregationBits))
	copy(bits, a.AggregationBits)
	return &ethpb.PendingAttestation{
		AggregationBits: bits,
		Data: &ethpb.AttestationData{
			Slot:            types.Slot(a.Data.Slot),
			CommitteeIndex:  types.CommitteeIndex(a.Data.Index),
			BeaconBlockRoot: headRoot,
			Source:          source,
			Target:          target,
		},
		InclusionDelay: types.Slot(a.InclusionDelay),
		ProposerIndex:  types.ValidatorIndex(a.ProposerIndex),
	}, nil
}

func pendingAttestationToFixture(a *ethpb.PendingAttestation) pendingAttestationFixture {
	data := a.Data
	if data == nil {
		data = &ethpb.AttestationData{}
	}
	return pendingAttestationFixture{
		AggregationBits: hexutil.Bytes(a.AggregationBits),
		Data: attestationDataFixture{
			Slot:            uint64(data.Slot),
			Index:           uint64(data.CommitteeIndex),
			BeaconBlockRoot: data.BeaconBlockRoot[:],
			Source:          checkpointToFixture(data.Source),
			Target:          checkpointToFixture(data.Target),
		},
		InclusionDelay: uint64(a.InclusionDelay),
		ProposerIndex:  uint64(a.ProposerIndex),
	}
}

func attestationsToProto(field string, in []pendingAttestationFixture) ([]*ethpb.PendingAttestation, error) {
	atts := make([]*ethpb.PendingAttestation, len(in))
	for i, a := range in {
		att, err := a.toProto()
		if err != nil {
			return nil, errors.Wrapf(err, "%s index %d", field, i)
		}
		atts[i] = att
	}
	return atts, nil
}

func (v validatorFixture) toProto() (*ethpb.Validator, error) {
	pubkey, err := toPubkey(v.Pubkey)
	if err != nil {
		return nil, err
	}
	creds, err := toBytes32("withdrawal credentials", v.WithdrawalCredentials)
	if err != nil {
		return nil, err
	}
	return &ethpb.Validator{
		PublicKey:                  pubkey,
		WithdrawalCredentials:      creds,
		EffectiveBalance:           v.EffectiveBalance,
		Slashed:                    v.Slashed,
		ActivationEligibilityEpoch: types.Epoch(v.ActivationEligibilityEpoch),
		ActivationEpoch:            types.Epoch(v.ActivationEpoch),
		ExitEpoch:                  types.Epoch(v.ExitEpoch),
		WithdrawableEpoch:          types.Epoch(v.WithdrawableEpoch),
	}, nil
}

func (f *stateFixture) toProto() (*ethpb.BeaconState, error) {
	var err error
	pb := &ethpb.BeaconState{
		GenesisTime:      f.GenesisTime,
		Slot:             types.Slot(f.Slot),
		Eth1DepositIndex: f.Eth1DepositIndex,
		Balances:         f.Balances,
		Slashings:        f.Slashings,
	}
	if len(f.GenesisValidatorsRoot) > 0 {
		if pb.GenesisValidatorsRoot, err = toBytes32("genesis validators root", f.GenesisValidatorsRoot); err != nil {
			return nil, err
		}
	}
	prev, err := toBytes4("previous fork version", f.Fork.PreviousVersion)
	if err != nil {
		return nil, err
	}
	curr, err := toBytes4("current fork version", f.Fork.CurrentVersion)
	if err != nil {
		return nil, err
	}
	pb.Fork = &ethpb.Fork{PreviousVersion: prev, CurrentVersion: curr, Epoch: types.Epoch(f.Fork.Epoch)}

	if pb.BlockRoots, err = toRoots("block root", f.BlockRoots); err != nil {
		return nil, err
	}
	if pb.StateRoots, err = toRoots("state root", f.StateRoots); err != nil {
		return nil, err
	}
	if pb.HistoricalRoots, err = toRoots("historical root", f.HistoricalRoots); err != nil {
		return nil, err
	}
	if pb.RandaoMixes, err = toRoots("randao mix", f.RandaoMixes); err != nil {
		return nil, err
	}
	if pb.Eth1Data, err = f.Eth1Data.toProto(); err != nil {
		return nil, errors.Wrap(err, "eth1 data")
	}
	pb.Eth1DataVotes = make([]*ethpb.Eth1Data, len(f.Eth1DataVotes))
	for i, vote := range f.Eth1DataVotes {
		if pb.Eth1DataVotes[i], err = vote.toProto(); err != nil {
			return nil, errors.Wrapf(err, "eth1 data vote %d", i)
		}
	}
	pb.Validators = make([]*ethpb.Validator, len(f.Validators))
	for i, v := range f.Validators {
		if pb.Validators[i], err = v.toProto(); err != nil {
			return nil, errors.Wrapf(err, "validator %d", i)
		}
	}
	if pb.PreviousEpochAttestations, err = attestationsToProto("previous epoch attestation", f.PreviousEpochAttestations); err != nil {
		return nil, err
	}
	if pb.CurrentEpochAttestations, err = attestationsToProto("current epoch attestation", f.CurrentEpochAttestations); err != nil {
		return nil, err
	}
	if len(f.JustificationBits) != 1 {
		return nil, errors.Errorf("justification bits are %d bytes, wanted 1", len(f.JustificationBits))
	}
	pb.JustificationBits = []byte{f.JustificationBits[0]}
	if pb.PreviousJustifiedCheckpoint, err = f.PreviousJustifiedCheckpoint.toProto(); err != nil {
		return nil, errors.Wrap(err, "previous justified checkpoint")
	}
	if pb.CurrentJustifiedCheckpoint, err = f.CurrentJustifiedCheckpoint.toProto(); err != nil {
		return nil, errors.Wrap(err, "current justified checkpoint")
	}
	if pb.FinalizedCheckpoint, err = f.FinalizedCheckpoint.toProto(); err != nil {
		return nil, errors.Wrap(err, "finalized checkpoint")
	}
	return pb, nil
}

func stateToFixture(pb *ethpb.BeaconState) *stateFixture {
	f := &stateFixture{
		GenesisTime:                 pb.GenesisTime,
		GenesisValidatorsRoot:       pb.GenesisValidatorsRoot[:],
		Slot:                        uint64(pb.Slot),
		BlockRoots:                  fromRoots(pb.BlockRoots),
		StateRoots:                  fromRoots(pb.StateRoots),
		HistoricalRoots:             fromRoots(pb.HistoricalRoots),
		Eth1Data:                    eth1DataToFixture(pb.Eth1Data),
		Eth1DepositIndex:            pb.Eth1DepositIndex,
		Balances:                    pb.Balances,
		RandaoMixes:                 fromRoots(pb.RandaoMixes),
		Slashings:                   pb.Slashings,
		JustificationBits:           hexutil.Bytes(pb.JustificationBits),
		PreviousJustifiedCheckpoint: checkpointToFixture(pb.PreviousJustifiedCheckpoint),
		CurrentJustifiedCheckpoint:  checkpointToFixture(pb.CurrentJustifiedCheckpoint),
		FinalizedCheckpoint:         checkpointToFixture(pb.FinalizedCheckpoint),
	}
	if pb.Fork != nil {
		f.Fork = forkFixture{
			PreviousVersion: pb.Fork.PreviousVersion[:],
			CurrentVersion:  pb.Fork.CurrentVersion[:],
			Epoch:           uint64(pb.Fork.Epoch),
		}
	}
	for _, vote := range pb.Eth1DataVotes {
		f.Eth1DataVotes = append(f.Eth1DataVotes, eth1DataToFixture(vote))
	}
	for _, v := range pb.Validators {
		f.Validators = append(f.Validators, validatorFixture{
			Pubkey:                     v.PublicKey[:],
			WithdrawalCredentials:      v.WithdrawalCredentials[:],
			EffectiveBalance:           v.EffectiveBalance,
			Slashed:                    v.Slashed,
			ActivationEligibilityEpoch: uint64(v.ActivationEligibilityEpoch),
			ActivationEpoch:            uint64(v.ActivationEpoch),
			ExitEpoch:                  uint64(v.ExitEpoch),
			WithdrawableEpoch:          uint64(v.WithdrawableEpoch),
		})
	}
	for _, a := range pb.PreviousEpochAttestations {
		f.PreviousEpochAttestations = append(f.PreviousEpochAttestations, pendingAttestationToFixture(a))
	}
	for _, a := range pb.CurrentEpochAttestations {
		f.CurrentEpochAttestations = append(f.CurrentEpochAttestations, pendingAttestationToFixture(a))
	}
	return f
}
