package params

import (
	"math"

	"github.com/prysmaticlabs/epochengine/encoding/bytesutil"
)

// MainnetConfig returns the configuration to be used in the main network.
func MainnetConfig() *BeaconChainConfig {
	if mainnetBeaconConfig.ForkVersionSchedule == nil {
		mainnetBeaconConfig.InitializeForkSchedule()
	}
	return mainnetBeaconConfig
}

var mainnetBeaconConfig = &BeaconChainConfig{
	// Constants (Non-configurable)
	FarFutureEpoch:      math.MaxUint64,
	BaseRewardsPerEpoch: 4,
	GenesisEpoch:        0,
	GenesisSlot:         0,
	ZeroHash:            [32]byte{},

	// Misc constant.
	TargetCommitteeSize:          128,
	MaxValidatorsPerCommittee:    2048,
	MaxCommitteesPerSlot:         64,
	MinPerEpochChurnLimit:        4,
	ChurnLimitQuotient:           1 << 16,
	ShuffleRoundCount:            90,
	HysteresisQuotient:           4,
	HysteresisDownwardMultiplier: 1,
	HysteresisUpwardMultiplier:   5,

	// Gwei value constants.
	MaxEffectiveBalance:       32 * 1e9,
	EjectionBalance:           16 * 1e9,
	EffectiveBalanceIncrement: 1 * 1e9,

	// Time parameter constants.
	SlotsPerEpoch:                    32,
	MinSeedLookahead:                 1,
	MaxSeedLookahead:                 4,
	EpochsPerEth1VotingPeriod:        64,
	SlotsPerHistoricalRoot:           8192,
	MinValidatorWithdrawabilityDelay: 256,
	MinEpochsToInactivityPenalty:     4,

	// State list length constants.
	EpochsPerHistoricalVector: 65536,
	EpochsPerSlashingsVector:  8192,
	HistoricalRootsLimit:      16777216,
	ValidatorRegistryLimit:    1099511627776,

	// Reward and penalty quotients constants.
	BaseRewardFactor:               64,
	ProposerRewardQuotient:         8,
	InactivityPenaltyQuotient:      67108864,
	ProportionalSlashingMultiplier: 1,

	// BLS domain values.
	DomainBeaconProposer: bytesutil.ToBytes4(bytesutil.Bytes4(0)),
	DomainBeaconAttester: bytesutil.ToBytes4(bytesutil.Bytes4(1)),

	// Fork related values.
	GenesisForkVersion:   []byte{0, 0, 0, 0},
	AltairForkVersion:    []byte{1, 0, 0, 0},
	AltairForkEpoch:      74240,
	BellatrixForkVersion: []byte{2, 0, 0, 0},
	BellatrixForkEpoch:   144896,
	CapellaForkVersion:   []byte{3, 0, 0, 0},
	CapellaForkEpoch:     194048,

	PresetBase: "mainnet",
	ConfigName: ConfigNames[Mainnet],
}
