package helpers

import (
	"testing"

	"github.com/prysmaticlabs/epochengine/config/params"
	"github.com/prysmaticlabs/epochengine/crypto/hash"
	"github.com/prysmaticlabs/epochengine/encoding/bytesutil"
	"github.com/prysmaticlabs/epochengine/testing/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandaoMix_OK(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.OverrideBeaconConfig(params.MinimalSpecConfig())
	st := util.DeterministicGenesisState(t, 4)
	ephv := params.BeaconConfig().EpochsPerHistoricalVector

	mixes := st.RandaoMixes()
	mix, err := RandaoMix(st, ephv+5)
	require.NoError(t, err)
	assert.Equal(t, mixes[5], mix)
}

func TestSeed_OK(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.OverrideBeaconConfig(params.MinimalSpecConfig())
	cfg := params.BeaconConfig()
	st := util.DeterministicGenesisState(t, 4)

	epoch := cfg.MinSeedLookahead + 10
	seed, err := Seed(st, epoch, cfg.DomainBeaconAttester)
	require.NoError(t, err)

	mixes := st.RandaoMixes()
	mix := mixes[(epoch+cfg.EpochsPerHistoricalVector-cfg.MinSeedLookahead-1)%cfg.EpochsPerHistoricalVector]
	var input []byte
	input = append(input, cfg.DomainBeaconAttester[:]...)
	input = append(input, bytesutil.Bytes8(uint64(epoch))...)
	input = append(input, mix[:]...)
	assert.Equal(t, hash.Hash(input), seed)

	proposerSeed, err := Seed(st, epoch, cfg.DomainBeaconProposer)
	require.NoError(t, err)
	assert.NotEqual(t, seed, proposerSeed, "domains must separate seeds")
}
