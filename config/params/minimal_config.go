package params

import (
	"math"
)

// MinimalSpecConfig retrieves the minimal config used in spec tests.
func MinimalSpecConfig() *BeaconChainConfig {
	minimalConfig := mainnetBeaconConfig.Copy()
	// Misc
	minimalConfig.MaxCommitteesPerSlot = 4
	minimalConfig.TargetCommitteeSize = 4
	minimalConfig.MaxValidatorsPerCommittee = 2048
	minimalConfig.MinPerEpochChurnLimit = 4
	minimalConfig.ChurnLimitQuotient = 32
	minimalConfig.ShuffleRoundCount = 10
	minimalConfig.HysteresisQuotient = 4
	minimalConfig.HysteresisDownwardMultiplier = 1
	minimalConfig.HysteresisUpwardMultiplier = 5

	// Gwei values
	minimalConfig.MaxEffectiveBalance = 32 * 1e9
	minimalConfig.EjectionBalance = 16 * 1e9
	minimalConfig.EffectiveBalanceIncrement = 1 * 1e9

	// Time parameters
	minimalConfig.SlotsPerEpoch = 8
	minimalConfig.MinSeedLookahead = 1
	minimalConfig.MaxSeedLookahead = 4
	minimalConfig.EpochsPerEth1VotingPeriod = 4
	minimalConfig.SlotsPerHistoricalRoot = 64
	minimalConfig.MinValidatorWithdrawabilityDelay = 256
	minimalConfig.MinEpochsToInactivityPenalty = 4

	// State vector lengths
	minimalConfig.EpochsPerHistoricalVector = 64
	minimalConfig.EpochsPerSlashingsVector = 64
	minimalConfig.HistoricalRootsLimit = 16777216
	minimalConfig.ValidatorRegistryLimit = 1099511627776

	// Reward and penalty quotients
	minimalConfig.BaseRewardFactor = 64
	minimalConfig.ProposerRewardQuotient = 8
	minimalConfig.InactivityPenaltyQuotient = 1 << 25
	minimalConfig.ProportionalSlashingMultiplier = 2

	// Fork
	minimalConfig.GenesisForkVersion = []byte{0, 0, 0, 1}
	minimalConfig.AltairForkVersion = []byte{1, 0, 0, 1}
	minimalConfig.AltairForkEpoch = math.MaxUint64
	minimalConfig.BellatrixForkVersion = []byte{2, 0, 0, 1}
	minimalConfig.BellatrixForkEpoch = math.MaxUint64
	minimalConfig.CapellaForkVersion = []byte{3, 0, 0, 1}
	minimalConfig.CapellaForkEpoch = math.MaxUint64

	minimalConfig.PresetBase = "minimal"
	minimalConfig.ConfigName = ConfigNames[Minimal]
	minimalConfig.InitializeForkSchedule()
	return minimalConfig
}
