package filter

import (
	"time"

	"github.com/hugo-lorenzo-mato/autorun/internal/adapters/state"
	"github.com/hugo-lorenzo-mato/autorun/internal/core"
)

// Snapshot is the persisted record of the latest successful filter pass.
type Snapshot struct {
	GeneratedAt  string                `json:"generated_at"`
	Params       core.FilterParams     `json:"params"`
	TotalMarkets int                   `json:"total_markets"`
	Candidates   int                   `json:"candidates"`
	Chosen       int                   `json:"chosen"`
	Rejected     int                   `json:"rejected"`
	Highlights   int                   `json:"highlights"`
	Topics       []core.TopicCandidate `json:"topics"`
}

// NewSnapshot summarizes a filter result.
func NewSnapshot(params core.FilterParams, result *core.FilterResult, now time.Time) Snapshot {
	topics := result.Chosen
	if topics == nil {
		topics = []core.TopicCandidate{}
	}
	return Snapshot{
		GeneratedAt:  now.UTC().Format("2006-01-02T15:04:05Z"),
		Params:       params,
		TotalMarkets: result.TotalMarkets,
		Candidates:   len(result.Candidates),
		Chosen:       len(result.Chosen),
		Rejected:     len(result.Rejected),
		Highlights:   len(result.Highlights),
		Topics:       topics,
	}
}

// WriteSnapshot persists the snapshot atomically.
func WriteSnapshot(path string, snap Snapshot) error {
	return state.WriteJSON(path, snap)
}

// ReadSnapshot loads a snapshot written by WriteSnapshot.
func ReadSnapshot(path string) (*Snapshot, error) {
	var snap Snapshot
	if err := state.ReadJSON(path, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
