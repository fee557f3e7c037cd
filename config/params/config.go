// Package params defines the chain constants the epoch transition engine is
// parameterised with.
package params

import (
	"sort"

	fieldparams "github.com/prysmaticlabs/epochengine/config/fieldparams"
	types "github.com/prysmaticlabs/epochengine/consensus-types/primitives"
	"github.com/prysmaticlabs/epochengine/encoding/bytesutil"
)

// BeaconChainConfig contains constant configs for node to participate in beacon chain.
type BeaconChainConfig struct {
	ForkVersionNames    map[[fieldparams.VersionLength]byte]string
	ForkVersionSchedule map[[fieldparams.VersionLength]byte]types.Epoch
	PresetBase          string `yaml:"PRESET_BASE" spec:"true"`
	ConfigName          string `yaml:"CONFIG_NAME" spec:"true"`

	// Fork versions and epochs.
	GenesisForkVersion   []byte      `yaml:"GENESIS_FORK_VERSION" spec:"true"`
	AltairForkVersion    []byte      `yaml:"ALTAIR_FORK_VERSION" spec:"true"`
	AltairForkEpoch      types.Epoch `yaml:"ALTAIR_FORK_EPOCH" spec:"true"`
	BellatrixForkVersion []byte      `yaml:"BELLATRIX_FORK_VERSION" spec:"true"`
	BellatrixForkEpoch   types.Epoch `yaml:"BELLATRIX_FORK_EPOCH" spec:"true"`
	CapellaForkVersion   []byte      `yaml:"CAPELLA_FORK_VERSION" spec:"true"`
	CapellaForkEpoch     types.Epoch `yaml:"CAPELLA_FORK_EPOCH" spec:"true"`

	// Misc constants.
	TargetCommitteeSize          uint64 `yaml:"TARGET_COMMITTEE_SIZE" spec:"true"`
	MaxValidatorsPerCommittee    uint64 `yaml:"MAX_VALIDATORS_PER_COMMITTEE" spec:"true"`
	MaxCommitteesPerSlot         uint64 `yaml:"MAX_COMMITTEES_PER_SLOT" spec:"true"`
	MinPerEpochChurnLimit        uint64 `yaml:"MIN_PER_EPOCH_CHURN_LIMIT" spec:"true"`
	ChurnLimitQuotient           uint64 `yaml:"CHURN_LIMIT_QUOTIENT" spec:"true"`
	ShuffleRoundCount            uint64 `yaml:"SHUFFLE_ROUND_COUNT" spec:"true"`
	HysteresisQuotient           uint64 `yaml:"HYSTERESIS_QUOTIENT" spec:"true"`
	HysteresisDownwardMultiplier uint64 `yaml:"HYSTERESIS_DOWNWARD_MULTIPLIER" spec:"true"`
	HysteresisUpwardMultiplier   uint64 `yaml:"HYSTERESIS_UPWARD_MULTIPLIER" spec:"true"`

	// Gwei value constants.
	MaxEffectiveBalance       uint64 `yaml:"MAX_EFFECTIVE_BALANCE" spec:"true"`
	EjectionBalance           uint64 `yaml:"EJECTION_BALANCE" spec:"true"`
	EffectiveBalanceIncrement uint64 `yaml:"EFFECTIVE_BALANCE_INCREMENT" spec:"true"`

	// Time parameters.
	SlotsPerEpoch                    types.Slot  `yaml:"SLOTS_PER_EPOCH" spec:"true"`
	MinSeedLookahead                 types.Epoch `yaml:"MIN_SEED_LOOKAHEAD" spec:"true"`
	MaxSeedLookahead                 types.Epoch `yaml:"MAX_SEED_LOOKAHEAD" spec:"true"`
	EpochsPerEth1VotingPeriod        types.Epoch `yaml:"EPOCHS_PER_ETH1_VOTING_PERIOD" spec:"true"`
	SlotsPerHistoricalRoot           types.Slot  `yaml:"SLOTS_PER_HISTORICAL_ROOT" spec:"true"`
	MinValidatorWithdrawabilityDelay types.Epoch `yaml:"MIN_VALIDATOR_WITHDRAWABILITY_DELAY" spec:"true"`
	MinEpochsToInactivityPenalty     types.Epoch `yaml:"MIN_EPOCHS_TO_INACTIVITY_PENALTY" spec:"true"`

	// State list lengths.
	EpochsPerHistoricalVector types.Epoch `yaml:"EPOCHS_PER_HISTORICAL_VECTOR" spec:"true"`
	EpochsPerSlashingsVector  types.Epoch `yaml:"EPOCHS_PER_SLASHINGS_VECTOR" spec:"true"`
	HistoricalRootsLimit      uint64      `yaml:"HISTORICAL_ROOTS_LIMIT" spec:"true"`
	ValidatorRegistryLimit    uint64      `yaml:"VALIDATOR_REGISTRY_LIMIT" spec:"true"`

	// Rewards and penalties.
	BaseRewardFactor               uint64 `yaml:"BASE_REWARD_FACTOR" spec:"true"`
	BaseRewardsPerEpoch            uint64 `yaml:"BASE_REWARDS_PER_EPOCH"`
	ProposerRewardQuotient         uint64 `yaml:"PROPOSER_REWARD_QUOTIENT" spec:"true"`
	InactivityPenaltyQuotient      uint64 `yaml:"INACTIVITY_PENALTY_QUOTIENT" spec:"true"`
	ProportionalSlashingMultiplier uint64 `yaml:"PROPORTIONAL_SLASHING_MULTIPLIER" spec:"true"`

	// Constants (non-configurable).
	GenesisEpoch   types.Epoch `yaml:"GENESIS_EPOCH"`
	GenesisSlot    types.Slot  `yaml:"GENESIS_SLOT"`
	FarFutureEpoch types.Epoch `yaml:"FAR_FUTURE_EPOCH"`
	ZeroHash       [32]byte

	// Domains.
	DomainBeaconProposer [4]byte `yaml:"DOMAIN_BEACON_PROPOSER" spec:"true"`
	DomainBeaconAttester [4]byte `yaml:"DOMAIN_BEACON_ATTESTER" spec:"true"`
}

// ForkScheduleEntry pairs a fork version with the epoch it activates at.
type ForkScheduleEntry struct {
	Version [fieldparams.VersionLength]byte
	Epoch   types.Epoch
}

// InitializeForkSchedule initializes the schedules forks baked into the config.
func (b *BeaconChainConfig) InitializeForkSchedule() {
	// Reset Fork Version Schedule.
	b.ForkVersionSchedule = configForkSchedule(b)
	b.ForkVersionNames = configForkNames(b)
}

// ForkSchedule returns the configured forks ordered by activation epoch.
// Forks scheduled at the far future epoch are left out.
func (b *BeaconChainConfig) ForkSchedule() []ForkScheduleEntry {
	schedule := b.ForkVersionSchedule
	if schedule == nil {
		schedule = configForkSchedule(b)
	}
	entries := make([]ForkScheduleEntry, 0, len(schedule))
	for v, e := range schedule {
		if e == b.FarFutureEpoch {
			continue
		}
		entries = append(entries, ForkScheduleEntry{Version: v, Epoch: e})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Epoch == entries[j].Epoch {
			return bytesutil.Uint32FromBytes4(entries[i].Version) < bytesutil.Uint32FromBytes4(entries[j].Version)
		}
		return entries[i].Epoch < entries[j].Epoch
	})
	return entries
}

func configForkSchedule(b *BeaconChainConfig) map[[fieldparams.VersionLength]byte]types.Epoch {
	fvs := map[[fieldparams.VersionLength]byte]types.Epoch{}
	// Set Genesis fork data.
	fvs[bytesutil.ToBytes4(b.GenesisForkVersion)] = b.GenesisEpoch
	// Set Altair fork data.
	fvs[bytesutil.ToBytes4(b.AltairForkVersion)] = b.AltairForkEpoch
	// Set Bellatrix fork data.
	fvs[bytesutil.ToBytes4(b.BellatrixForkVersion)] = b.BellatrixForkEpoch
	// Set Capella fork data.
	fvs[bytesutil.ToBytes4(b.CapellaForkVersion)] = b.CapellaForkEpoch
	return fvs
}

func configForkNames(b *BeaconChainConfig) map[[fieldparams.VersionLength]byte]string {
	fvn := map[[fieldparams.VersionLength]byte]string{}
	fvn[bytesutil.ToBytes4(b.GenesisForkVersion)] = "phase0"
	fvn[bytesutil.ToBytes4(b.AltairForkVersion)] = "altair"
	fvn[bytesutil.ToBytes4(b.BellatrixForkVersion)] = "bellatrix"
	fvn[bytesutil.ToBytes4(b.CapellaForkVersion)] = "capella"
	return fvn
}
