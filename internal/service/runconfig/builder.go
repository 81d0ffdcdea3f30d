// Package runconfig materializes the per-topic configuration handed to each
// worker at launch.
package runconfig

import (
	"fmt"

	"github.com/hugo-lorenzo-mato/autorun/internal/adapters/state"
	"github.com/hugo-lorenzo-mato/autorun/internal/config"
	"github.com/hugo-lorenzo-mato/autorun/internal/core"
	"github.com/hugo-lorenzo-mato/autorun/internal/fsutil"
)

// FilePrefix is the file name prefix of run-config files under the data dir.
const FilePrefix = "run_params_"

// Builder merges strategy defaults, per-topic overrides and the latest
// filter metadata into a flat record per topic. It is owned by the control
// loop goroutine.
type Builder struct {
	dataDir   string
	urlPrefix string
	strategy  *config.StrategyDefaults
	metadata  map[string]core.TopicCandidate
}

// NewBuilder creates a builder writing under dataDir.
func NewBuilder(dataDir, marketURLPrefix string, strategy *config.StrategyDefaults) *Builder {
	if marketURLPrefix == "" {
		marketURLPrefix = config.DefaultMarketURLPrefix
	}
	if strategy == nil {
		strategy = &config.StrategyDefaults{}
	}
	return &Builder{
		dataDir:   dataDir,
		urlPrefix: marketURLPrefix,
		strategy:  strategy,
		metadata:  make(map[string]core.TopicCandidate),
	}
}

// SetMetadata replaces the filter metadata with the latest chosen list.
// Entries without an id are ignored.
func (b *Builder) SetMetadata(candidates []core.TopicCandidate) {
	meta := make(map[string]core.TopicCandidate, len(candidates))
	for _, c := range candidates {
		if id := c.ID(); id != "" {
			meta[id] = c
		}
	}
	b.metadata = meta
}

// Reload swaps the strategy template. Only later dispatches see it.
func (b *Builder) Reload(strategy *config.StrategyDefaults) {
	if strategy == nil {
		strategy = &config.StrategyDefaults{}
	}
	b.strategy = strategy
}

// Build returns the merged run configuration for topicID.
// Precedence: per-topic override, then default record, then the derived
// market_url/topic_id, then filter metadata. Later sources only fill gaps.
func (b *Builder) Build(topicID string) map[string]interface{} {
	merged := make(map[string]interface{})
	for k, v := range b.strategy.Base() {
		merged[k] = v
	}
	for k, v := range b.strategy.Override(topicID) {
		merged[k] = v
	}

	setDefault(merged, "market_url", b.urlPrefix+topicID)
	setDefault(merged, "topic_id", topicID)

	if info, ok := b.metadata[topicID]; ok {
		setDefaultString(merged, "topic_name", info.Title)
		setDefaultString(merged, "yes_token", info.YesToken)
		setDefaultString(merged, "no_token", info.NoToken)
		setDefaultString(merged, "end_time", info.EndTimeString())
	}
	return merged
}

// Path returns the run-config file path for topicID.
func (b *Builder) Path(topicID string) string {
	return fsutil.TopicFile(b.dataDir, FilePrefix, topicID, ".json")
}

// Write builds and persists the run configuration, returning its path.
func (b *Builder) Write(topicID string) (string, error) {
	path := b.Path(topicID)
	if err := state.WriteJSON(path, b.Build(topicID)); err != nil {
		return "", fmt.Errorf("writing run config for %s: %w", topicID, err)
	}
	return path, nil
}

func setDefault(m map[string]interface{}, key string, value interface{}) {
	if _, ok := m[key]; !ok {
		m[key] = value
	}
}

func setDefaultString(m map[string]interface{}, key, value string) {
	if value == "" {
		return
	}
	setDefault(m, key, value)
}

var _ core.RunConfigWriter = (*Builder)(nil)
