package config

// StrategyDefaults is the strategy template handed to workers: a shared
// default record plus per-topic overrides.
type StrategyDefaults struct {
	Default map[string]interface{}            `json:"default" yaml:"default"`
	Topics  map[string]map[string]interface{} `json:"topics" yaml:"topics"`
}

// Override returns the per-topic record, or nil.
func (s *StrategyDefaults) Override(topicID string) map[string]interface{} {
	if s == nil || s.Topics == nil {
		return nil
	}
	return s.Topics[topicID]
}

// Base returns the default record, or nil.
func (s *StrategyDefaults) Base() map[string]interface{} {
	if s == nil {
		return nil
	}
	return s.Default
}

// LoadStrategyDefaults reads the strategy file. A missing file yields an
// empty template.
func LoadStrategyDefaults(path string) (*StrategyDefaults, error) {
	var s StrategyDefaults
	if _, err := decodeDocument(path, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
