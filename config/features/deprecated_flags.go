package features

import "github.com/urfave/cli/v2"

// Deprecated flags list.
const deprecatedUsage = "DEPRECATED. DO NOT USE."

var (
	// To deprecate a feature flag, first copy the example below, then insert deprecated flag in `deprecatedFlags`.
	exampleDeprecatedFeatureFlag = &cli.StringFlag{
		Name:   "name",
		Usage:  deprecatedUsage,
		Hidden: true,
	}
	deprecatedDisablePrecomputeEpoch = &cli.BoolFlag{
		Name:   "disable-precompute-epoch",
		Usage:  deprecatedUsage,
		Hidden: true,
	}
)

// Deprecated flags for the epoch transition tool.
var deprecatedFlags = []cli.Flag{
	exampleDeprecatedFeatureFlag,
	deprecatedDisablePrecomputeEpoch,
}
