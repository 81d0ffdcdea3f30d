package control

import (
	"sync"
	"time"
)

// Source names for command producers.
const (
	SourceREPL    = "repl"
	SourceHTTP    = "http"
	SourceWatcher = "watcher"
	SourceSignal  = "signal"
)

// Envelope is one queued command line with its provenance.
type Envelope struct {
	Line       string
	Source     string
	ReceivedAt time.Time
}

// CommandBus is an unbounded multi-producer, single-consumer FIFO of raw
// command lines. Every pushed line is delivered exactly once, in push order.
type CommandBus struct {
	mu      sync.Mutex
	pending []Envelope
	pushed  uint64
}

// NewCommandBus creates an empty bus.
func NewCommandBus() *CommandBus {
	return &CommandBus{}
}

// Push enqueues a line. It never blocks on the consumer.
func (b *CommandBus) Push(source, line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, Envelope{
		Line:       line,
		Source:     source,
		ReceivedAt: time.Now(),
	})
	b.pushed++
}

// Drain removes and returns everything queued so far.
func (b *CommandBus) Drain() []Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pending) == 0 {
		return nil
	}
	out := b.pending
	b.pending = nil
	return out
}

// Len returns the number of queued lines.
func (b *CommandBus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Pushed returns the total number of lines ever accepted.
func (b *CommandBus) Pushed() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pushed
}
