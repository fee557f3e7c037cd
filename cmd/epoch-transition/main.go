// Package main defines a command line tool that runs one epoch transition on a
// beacon state fixture and writes the resulting state.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/prysmaticlabs/epochengine/beacon-chain/core/helpers"
	"github.com/prysmaticlabs/epochengine/beacon-chain/core/transition"
	"github.com/prysmaticlabs/epochengine/config/features"
	"github.com/prysmaticlabs/epochengine/config/params"
	"github.com/prysmaticlabs/epochengine/monitoring/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
	"gopkg.in/yaml.v2"
)

var log = logrus.WithField("prefix", "main")

var (
	stateFlag = &cli.StringFlag{
		Name:     "state",
		Usage:    "Path to the yaml encoded pre-state",
		Required: true,
	}
	chainConfigFileFlag = &cli.StringFlag{
		Name:  "chain-config-file",
		Usage: "Path to a yaml chain config overriding the preset values",
	}
	minimalConfigFlag = &cli.BoolFlag{
		Name:  "minimal-config",
		Usage: "Uses the minimal preset instead of mainnet",
	}
	outFlag = &cli.StringFlag{
		Name:  "out",
		Usage: "Path the yaml encoded post-state is written to",
	}
	verbosityFlag = &cli.StringFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity (trace, debug, info=default, warn, error, fatal, panic)",
		Value: "info",
	}
)

var appFlags = append([]cli.Flag{
	stateFlag,
	chainConfigFileFlag,
	minimalConfigFlag,
	outFlag,
	verbosityFlag,
}, features.EngineFlags...)

// summaryOutput is the yaml printed after a transition.
type summaryOutput struct {
	Epoch             uint64   `yaml:"epoch"`
	PreviousFinalized uint64   `yaml:"previous_finalized_epoch"`
	Finalized         uint64   `yaml:"finalized_epoch"`
	CurrentJustified  uint64   `yaml:"current_justified_epoch"`
	Activated         []uint64 `yaml:"activated"`
	Ejected           []uint64 `yaml:"ejected"`
	ForkActivated     bool     `yaml:"fork_activated"`
	ForkVersion       string   `yaml:"fork_version"`
}

func main() {
	customFormatter := new(prefixed.TextFormatter)
	customFormatter.TimestampFormat = "2006-01-02 15:04:05"
	customFormatter.FullTimestamp = true
	logrus.SetFormatter(customFormatter)
	logrus.AddHook(prometheus.NewLogrusCollector())

	app := newApp()
	if err := app.Run(os.Args); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "epoch-transition"
	app.Usage = "Runs one phase0 epoch transition on a beacon state fixture"
	app.Flags = appFlags
	app.Before = configure
	app.Action = run
	return app
}

func configure(ctx *cli.Context) error {
	level, err := logrus.ParseLevel(ctx.String(verbosityFlag.Name))
	if err != nil {
		return err
	}
	logrus.SetLevel(level)

	if ctx.Bool(minimalConfigFlag.Name) {
		params.OverrideBeaconConfig(params.MinimalSpecConfig())
	}
	if ctx.IsSet(chainConfigFileFlag.Name) {
		if err := params.LoadChainConfigFile(ctx.String(chainConfigFileFlag.Name)); err != nil {
			return errors.Wrap(err, "could not load chain config")
		}
	}
	features.ConfigureEngine(ctx)
	return nil
}

func run(ctx *cli.Context) error {
	st, err := readState(ctx.String(stateFlag.Name))
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"slot":       st.Slot(),
		"validators": st.NumValidators(),
		"config":     params.BeaconConfig().ConfigName,
	}).Info("Loaded pre-state")

	c := context.Background()
	ec := helpers.NewEpochContext()
	if err := ec.Load(c, st); err != nil {
		return errors.Wrap(err, "could not load epoch context")
	}
	summary, err := transition.NewEngine().ProcessEpoch(c, st, ec)
	if err != nil {
		return errors.Wrap(err, "could not process epoch")
	}

	out, err := yaml.Marshal(newSummaryOutput(summary))
	if err != nil {
		return err
	}
	if _, err := fmt.Fprint(ctx.App.Writer, string(out)); err != nil {
		return err
	}

	if ctx.IsSet(outFlag.Name) {
		if err := writeState(ctx.String(outFlag.Name), st); err != nil {
			return err
		}
		log.WithField("path", ctx.String(outFlag.Name)).Info("Wrote post-state")
	}
	return nil
}

func newSummaryOutput(s *transition.Summary) *summaryOutput {
	out := &summaryOutput{
		Epoch:             uint64(s.Epoch),
		PreviousFinalized: uint64(s.PreviousFinalized.Epoch),
		Finalized:         uint64(s.Finalized.Epoch),
		CurrentJustified:  uint64(s.CurrentJustified.Epoch),
		Activated:         make([]uint64, 0, len(s.Activated)),
		Ejected:           make([]uint64, 0, len(s.Ejected)),
		ForkActivated:     s.ForkActivated,
		ForkVersion:       fmt.Sprintf("%#x", s.Fork.CurrentVersion),
	}
	for _, idx := range s.Activated {
		out.Activated = append(out.Activated, uint64(idx))
	}
	for _, idx := range s.Ejected {
		out.Ejected = append(out.Ejected, uint64(idx))
	}
	return out
}
