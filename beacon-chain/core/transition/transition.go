// Package transition implements the phase0 epoch transition of the beacon state.
// An Engine runs the epoch processing stages in their fixed order against a
// state and the epoch context loaded for it.
package transition

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/pkg/errors"
	statefeed "github.com/prysmaticlabs/epochengine/beacon-chain/core/feed/state"
	"github.com/prysmaticlabs/epochengine/beacon-chain/core/helpers"
	"github.com/prysmaticlabs/epochengine/beacon-chain/state"
	types "github.com/prysmaticlabs/epochengine/consensus-types/primitives"
	"github.com/prysmaticlabs/epochengine/monitoring/tracing"
	ethpb "github.com/prysmaticlabs/epochengine/proto/prysm/v1alpha1"
	"github.com/sirupsen/logrus"
	"go.opencensus.io/trace"
)

// ErrTransitionInProgress is returned when an epoch transition is started on a state
// that another transition is still mutating.
var ErrTransitionInProgress = errors.New("epoch transition already in progress for state")

// notificationQueueSize bounds the events waiting for slow state feed subscribers.
const notificationQueueSize = 16

// Summary describes what an epoch transition changed.
type Summary struct {
	// Epoch the state was in when the transition ran.
	Epoch types.Epoch
	// PreviousFinalized is the finalized checkpoint before the transition.
	PreviousFinalized *ethpb.Checkpoint
	// Finalized is the finalized checkpoint after the transition.
	Finalized *ethpb.Checkpoint
	// CurrentJustified is the current justified checkpoint after the transition.
	CurrentJustified *ethpb.Checkpoint
	// Activated validators, in activation queue order.
	Activated []types.ValidatorIndex
	// Ejected validators whose exit was initiated for a low effective balance.
	Ejected []types.ValidatorIndex
	// ForkActivated is set when the state switched to a new fork version.
	ForkActivated bool
	// Fork of the state after the transition.
	Fork *ethpb.Fork
}

// FinalityAdvanced reports whether the transition moved the finalized checkpoint.
func (s *Summary) FinalityAdvanced() bool {
	return s.Finalized.Epoch > s.PreviousFinalized.Epoch
}

// Engine runs epoch transitions.
type Engine struct {
	stages      []stage
	notifier    statefeed.Notifier
	events      chan *statefeed.Event
	startSender sync.Once
}

// Option configures an Engine.
type Option func(*Engine)

// WithStateNotifier makes the engine publish an event on the state feed after every
// successful transition, and another one when a fork was activated. Events are sent
// in order from a single goroutine. A feed send only returns once every subscriber
// has received the event, so subscribers must drain their channels: while they do not,
// at most notificationQueueSize events wait and later ones are dropped.
func WithStateNotifier(n statefeed.Notifier) Option {
	return func(e *Engine) {
		e.notifier = n
	}
}

// NewEngine returns an engine running the phase0 epoch processing stages.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{stages: defaultStages()}
	for _, opt := range opts {
		opt(e)
	}
	if e.notifier != nil {
		e.events = make(chan *statefeed.Event, notificationQueueSize)
	}
	return e
}

// ProcessEpoch runs every epoch processing stage against the state, mutating it in
// place. The epoch context must have been loaded for the state's current epoch.
// On error the state is left partially processed and must be discarded.
//
// Spec pseudocode definition:
//
//	def process_epoch(state: BeaconState) -> None:
//	  process_justification_and_finalization(state)
//	  process_rewards_and_penalties(state)
//	  process_registry_updates(state)
//	  process_slashings(state)
//	  process_eth1_data_reset(state)
//	  process_effective_balance_updates(state)
//	  process_slashings_reset(state)
//	  process_randao_mixes_reset(state)
//	  process_historical_roots_update(state)
//	  process_participation_record_updates(state)
func (e *Engine) ProcessEpoch(ctx context.Context, st *state.BeaconState, ec *helpers.EpochContext) (*Summary, error) {
	ctx, span := trace.StartSpan(ctx, "transition.ProcessEpoch")
	defer span.End()

	if st.IsNil() {
		return nil, state.ErrNilInnerState
	}
	if ec == nil {
		return nil, errors.New("nil epoch context")
	}
	if !st.BeginTransition() {
		return nil, ErrTransitionInProgress
	}
	defer st.EndTransition()

	summary, err := e.processEpoch(ctx, st, ec)
	if err != nil {
		transitionFailures.Inc()
		tracing.AnnotateError(span, err)
		log.WithError(err).WithField("slot", st.Slot()).Error("Could not process epoch")
		return nil, err
	}

	epochsProcessed.Inc()
	finalizedEpochGauge.Set(float64(summary.Finalized.Epoch))
	justifiedEpochGauge.Set(float64(summary.CurrentJustified.Epoch))
	activatedValidators.Add(float64(len(summary.Activated)))
	ejectedValidators.Add(float64(len(summary.Ejected)))
	logSummary(summary)
	e.notify(summary)
	return summary, nil
}

func (e *Engine) processEpoch(ctx context.Context, st *state.BeaconState, ec *helpers.EpochContext) (*Summary, error) {
	if err := st.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid pre-state")
	}
	p := &epochProcess{
		state: st,
		ec:    ec,
		summary: &Summary{
			Epoch:             helpers.CurrentEpoch(st),
			PreviousFinalized: st.FinalizedCheckpoint(),
		},
	}
	for _, s := range e.stages {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrapf(err, "epoch transition aborted before %s", s.name)
		}
		start := time.Now()
		if err := s.process(ctx, p); err != nil {
			return nil, errors.Wrapf(err, "could not process %s", s.name)
		}
		stageDuration.WithLabelValues(s.name).Observe(time.Since(start).Seconds())
		log.WithFields(logrus.Fields{
			"stage": s.name,
			"epoch": p.summary.Epoch,
		}).Debug("Processed epoch stage")
	}

	p.summary.Finalized = st.FinalizedCheckpoint()
	p.summary.CurrentJustified = st.CurrentJustifiedCheckpoint()
	p.summary.Fork = st.Fork()
	if p.summary.Finalized.Epoch < p.summary.PreviousFinalized.Epoch {
		return nil, state.NewStateCorruptError("finalized epoch regressed from %d to %d",
			p.summary.PreviousFinalized.Epoch, p.summary.Finalized.Epoch)
	}
	return p.summary, nil
}

func logSummary(s *Summary) {
	if s.FinalityAdvanced() {
		log.WithFields(logrus.Fields{
			"epoch":          s.Epoch,
			"finalizedEpoch": s.Finalized.Epoch,
			"justifiedEpoch": s.CurrentJustified.Epoch,
		}).Info("Finalized checkpoint advanced")
	}
	if s.ForkActivated {
		log.WithFields(logrus.Fields{
			"epoch":           s.Fork.Epoch,
			"previousVersion": s.Fork.PreviousVersion,
			"currentVersion":  s.Fork.CurrentVersion,
		}).Info("Activated fork")
	}
	if len(s.Activated) > 0 || len(s.Ejected) > 0 {
		log.WithFields(logrus.Fields{
			"epoch":     s.Epoch,
			"activated": len(s.Activated),
			"ejected":   len(s.Ejected),
		}).Debug("Updated validator registry")
	}
}

// notify queues the transition outcome for the state feed without waiting for
// subscribers to receive it.
func (e *Engine) notify(s *Summary) {
	if e.notifier == nil {
		return
	}
	e.startSender.Do(func() {
		go e.sendEvents(e.notifier.StateFeed())
	})
	events := make([]*statefeed.Event, 0, 2)
	if s.ForkActivated {
		events = append(events, &statefeed.Event{
			Type: statefeed.ForkActivated,
			Data: &statefeed.ForkActivatedData{
				Epoch:           s.Fork.Epoch,
				PreviousVersion: s.Fork.PreviousVersion,
				CurrentVersion:  s.Fork.CurrentVersion,
			},
		})
	}
	events = append(events, &statefeed.Event{
		Type: statefeed.EpochProcessed,
		Data: &statefeed.EpochProcessedData{
			Epoch:          s.Epoch + 1,
			FinalizedEpoch: s.Finalized.Epoch,
			JustifiedEpoch: s.CurrentJustified.Epoch,
		},
	})
	for _, ev := range events {
		select {
		case e.events <- ev:
		default:
			droppedNotifications.Inc()
			log.WithField("type", ev.Type).Warn("State feed subscribers are not draining, dropping event")
		}
	}
}

func (e *Engine) sendEvents(feed *event.Feed) {
	for ev := range e.events {
		feed.Send(ev)
	}
}
