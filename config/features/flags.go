package features

import (
	"github.com/urfave/cli/v2"
)

var (
	parallelEpochProcessingFlag = &cli.BoolFlag{
		Name:  "parallel-epoch-processing",
		Usage: "Splits the per-validator status pass and reward computation of the epoch transition across goroutines",
	}
	disableCommitteeCacheFlag = &cli.BoolFlag{
		Name:  "disable-committee-cache",
		Usage: "Disables the beacon committee cache of the epoch context and recomputes committees on every lookup",
	}
)

// EngineFlags contains a list of all the feature flags that apply to the epoch transition engine.
var EngineFlags = append(deprecatedFlags, []cli.Flag{
	parallelEpochProcessingFlag,
	disableCommitteeCacheFlag,
}...)
