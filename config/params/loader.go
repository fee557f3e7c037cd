package params

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// UnmarshalConfig converts the hex values of a chain config yaml document into
// valid param yaml format and unmarshals it on top of the preset it names.
func UnmarshalConfig(yamlFile []byte) (*BeaconChainConfig, error) {
	// Default to using mainnet.
	conf := MainnetConfig().Copy()
	// To track if config name is defined inside config file.
	hasConfigName := false
	// Convert 0x hex inputs to fixed bytes arrays
	lines := strings.Split(string(yamlFile), "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "CONFIG_NAME") {
			hasConfigName = true
		}
		if strings.HasPrefix(line, "PRESET_BASE: 'minimal'") ||
			strings.HasPrefix(line, `PRESET_BASE: "minimal"`) ||
			strings.HasPrefix(line, "PRESET_BASE: minimal") ||
			strings.HasPrefix(line, "# Minimal preset") {
			conf = MinimalSpecConfig().Copy()
		}
		if !strings.HasPrefix(line, "#") && strings.Contains(line, "0x") {
			parts, err := ReplaceHexStringWithYAMLFormat(line)
			if err != nil {
				return nil, errors.Wrapf(err, "could not convert hex value on line %d", i+1)
			}
			lines[i] = strings.Join(parts, "\n")
		}
	}
	yamlFile = []byte(strings.Join(lines, "\n"))
	if err := yaml.UnmarshalStrict(yamlFile, conf); err != nil {
		if _, ok := err.(*yaml.TypeError); !ok {
			return nil, errors.Wrap(err, "failed to parse chain config yaml file")
		}
		log.WithError(err).Error("There were some issues parsing the config from a yaml file")
	}
	if !hasConfigName {
		conf.ConfigName = "devnet"
	}
	conf.InitializeForkSchedule()
	return conf, nil
}

// LoadChainConfigFile load, convert hex values into valid param yaml format,
// unmarshal, and apply beacon chain config file.
func LoadChainConfigFile(chainConfigFileName string) error {
	yamlFile, err := os.ReadFile(chainConfigFileName) // #nosec G304
	if err != nil {
		return errors.Wrap(err, "failed to read chain config file")
	}
	conf, err := UnmarshalConfig(yamlFile)
	if err != nil {
		return err
	}
	log.Debugf("Config file values: %+v", conf)
	OverrideBeaconConfig(conf)
	return nil
}

// ReplaceHexStringWithYAMLFormat will replace hex strings that the yaml parser will understand.
func ReplaceHexStringWithYAMLFormat(line string) ([]string, error) {
	parts := strings.Split(line, "0x")
	decoded, err := hex.DecodeString(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode hex string")
	}
	var fixed interface{}
	switch l := len(decoded); {
	case l == 1:
		fixed = decoded[0]
	case l > 1 && l <= 4:
		var arr [4]byte
		copy(arr[:], decoded)
		fixed = arr
	case l > 4 && l <= 8:
		var arr [8]byte
		copy(arr[:], decoded)
		fixed = arr
	case l > 8 && l <= 32:
		var arr [32]byte
		copy(arr[:], decoded)
		fixed = arr
	default:
		return nil, fmt.Errorf("unsupported hex value length %d", l)
	}
	fixedByte, err := yaml.Marshal(fixed)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal config file")
	}
	if len(decoded) == 1 {
		parts[0] += string(fixedByte)
		return parts[:1], nil
	}
	parts[1] = string(fixedByte)
	return parts, nil
}

// ConfigToYaml takes a provided config and outputs the values the epoch
// transition depends on in yaml.
func ConfigToYaml(cfg *BeaconChainConfig) []byte {
	lines := []string{}
	lines = append(lines, fmt.Sprintf("PRESET_BASE: '%s'", cfg.PresetBase))
	lines = append(lines, fmt.Sprintf("CONFIG_NAME: '%s'", cfg.ConfigName))
	lines = append(lines, fmt.Sprintf("GENESIS_FORK_VERSION: %#x", cfg.GenesisForkVersion))
	lines = append(lines, fmt.Sprintf("ALTAIR_FORK_VERSION: %#x", cfg.AltairForkVersion))
	lines = append(lines, fmt.Sprintf("ALTAIR_FORK_EPOCH: %d", cfg.AltairForkEpoch))
	lines = append(lines, fmt.Sprintf("BELLATRIX_FORK_VERSION: %#x", cfg.BellatrixForkVersion))
	lines = append(lines, fmt.Sprintf("BELLATRIX_FORK_EPOCH: %d", cfg.BellatrixForkEpoch))
	lines = append(lines, fmt.Sprintf("CAPELLA_FORK_VERSION: %#x", cfg.CapellaForkVersion))
	lines = append(lines, fmt.Sprintf("CAPELLA_FORK_EPOCH: %d", cfg.CapellaForkEpoch))
	lines = append(lines, fmt.Sprintf("CHURN_LIMIT_QUOTIENT: %d", cfg.ChurnLimitQuotient))
	lines = append(lines, fmt.Sprintf("MIN_PER_EPOCH_CHURN_LIMIT: %d", cfg.MinPerEpochChurnLimit))
	lines = append(lines, fmt.Sprintf("SLOTS_PER_EPOCH: %d", cfg.SlotsPerEpoch))
	lines = append(lines, fmt.Sprintf("EPOCHS_PER_ETH1_VOTING_PERIOD: %d", cfg.EpochsPerEth1VotingPeriod))
	lines = append(lines, fmt.Sprintf("MIN_VALIDATOR_WITHDRAWABILITY_DELAY: %d", cfg.MinValidatorWithdrawabilityDelay))
	lines = append(lines, fmt.Sprintf("MAX_SEED_LOOKAHEAD: %d", cfg.MaxSeedLookahead))
	lines = append(lines, fmt.Sprintf("EJECTION_BALANCE: %d", cfg.EjectionBalance))
	lines = append(lines, fmt.Sprintf("INACTIVITY_PENALTY_QUOTIENT: %d", cfg.InactivityPenaltyQuotient))
	lines = append(lines, fmt.Sprintf("PROPORTIONAL_SLASHING_MULTIPLIER: %d", cfg.ProportionalSlashingMultiplier))
	return []byte(strings.Join(lines, "\n"))
}
