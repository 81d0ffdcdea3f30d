package autorun

import (
	"context"
	"time"

	"github.com/hugo-lorenzo-mato/autorun/internal/core"
	"github.com/hugo-lorenzo-mato/autorun/internal/events"
	"github.com/hugo-lorenzo-mato/autorun/internal/logging"
)

// recordTimeout bounds one ledger write.
const recordTimeout = 5 * time.Second

// Recorder copies topic lifecycle events into the run ledger.
type Recorder struct {
	bus    *events.EventBus
	ledger core.RunLedger
	logger *logging.Logger
	ch     <-chan events.Event
}

// NewRecorder subscribes to lifecycle events immediately, so nothing
// published after it returns is missed.
func NewRecorder(bus *events.EventBus, ledger core.RunLedger, logger *logging.Logger) *Recorder {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Recorder{
		bus:    bus,
		ledger: ledger,
		logger: logger.WithComponent("recorder"),
		ch:     bus.SubscribePriority(events.LifecycleTypes...),
	}
}

// Run drains the subscription until the bus is closed. The subscription is
// blocking, so Run must not stop early while publishers are alive.
func (r *Recorder) Run() {
	for ev := range r.ch {
		entry, ok := runEventOf(ev)
		if !ok {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		if err := r.ledger.Record(ctx, entry); err != nil {
			r.logger.Warn("recorder: cannot write ledger entry",
				"topic_id", entry.TopicID,
				"kind", entry.Kind,
				"error", err)
		}
		cancel()
	}
}

func runEventOf(ev events.Event) (core.RunEvent, bool) {
	out := core.RunEvent{
		TopicID:   ev.TopicID(),
		CreatedAt: ev.Timestamp(),
	}
	switch e := ev.(type) {
	case events.TopicDispatchedEvent:
		out.Kind = core.RunEventDispatched
		out.Status = core.TopicStatusRunning
		out.RunID = e.RunID
		out.PID = e.PID
		out.Detail = e.LogPath
	case events.TopicFinishedEvent:
		code := e.ExitCode
		out.Kind = core.RunEventFinished
		out.Status = e.Status
		out.RunID = e.RunID
		out.ExitCode = &code
	case events.TopicStoppedEvent:
		out.Kind = core.RunEventStopped
		out.Status = core.TopicStatusStopped
		out.RunID = e.RunID
		out.Detail = e.Error
	case events.TopicLaunchFailedEvent:
		out.Kind = core.RunEventLaunchFailed
		out.Status = core.TopicStatusError
		out.RunID = e.RunID
		out.Detail = e.Error
	default:
		return core.RunEvent{}, false
	}
	return out, true
}
