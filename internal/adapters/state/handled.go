package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/hugo-lorenzo-mato/autorun/internal/core"
	"github.com/hugo-lorenzo-mato/autorun/internal/fsutil"
	"github.com/hugo-lorenzo-mato/autorun/internal/logging"
)

// handledFile is the on-disk layout of the handled-topics set.
type handledFile struct {
	UpdatedAt string   `json:"updated_at"`
	Total     int      `json:"total"`
	Topics    []string `json:"topics"`
}

// HandledTopicsStore is the persisted, grow-only set of topic ids that have
// already been dispatched. It is owned by the control loop goroutine and is
// not safe for concurrent use.
type HandledTopicsStore struct {
	path   string
	topics map[string]struct{}
	logger *logging.Logger
	now    func() time.Time
}

// HandledStoreOption configures the store.
type HandledStoreOption func(*HandledTopicsStore)

// WithHandledClock overrides the clock used for updated_at.
func WithHandledClock(now func() time.Time) HandledStoreOption {
	return func(s *HandledTopicsStore) {
		s.now = now
	}
}

// NewHandledTopicsStore creates an empty store backed by path.
func NewHandledTopicsStore(path string, logger *logging.Logger, opts ...HandledStoreOption) *HandledTopicsStore {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &HandledTopicsStore{
		path:   path,
		topics: make(map[string]struct{}),
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory set with the file contents.
// A missing file, or one without a topics list, yields an empty set. A
// topics value that is not a list is logged and ignored. Malformed JSON is
// a ConfigParseError.
func (s *HandledTopicsStore) Load() error {
	s.topics = make(map[string]struct{})

	data, err := fsutil.ReadFileScoped(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading handled topics: %w", err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return core.ErrConfigParse(s.path, err)
	}

	list := raw["topics"]
	if isEmptyValue(list) {
		// legacy layout
		list = raw["handled_topics"]
	}
	if list == nil {
		return nil
	}

	entries, ok := list.([]interface{})
	if !ok {
		s.logger.Warn("state: handled topics file has a non-list topics value, ignoring",
			"path", s.path)
		return nil
	}
	for _, entry := range entries {
		if id := core.TopicIDFromEntry(entry); id != "" {
			s.topics[id] = struct{}{}
		}
	}
	return nil
}

func isEmptyValue(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case []interface{}:
		return len(val) == 0
	case string:
		return val == ""
	default:
		return false
	}
}

// Contains reports whether id has been dispatched before.
func (s *HandledTopicsStore) Contains(id string) bool {
	_, ok := s.topics[id]
	return ok
}

// Set returns the underlying membership map for read-only use.
func (s *HandledTopicsStore) Set() map[string]struct{} {
	return s.topics
}

// Len returns the set cardinality.
func (s *HandledTopicsStore) Len() int {
	return len(s.topics)
}

// Topics returns the ids sorted ascending.
func (s *HandledTopicsStore) Topics() []string {
	out := make([]string, 0, len(s.topics))
	for id := range s.topics {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// AddAndSave unions ids into the set and persists it. Nothing is written
// when ids is empty.
func (s *HandledTopicsStore) AddAndSave(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	for _, id := range ids {
		s.topics[id] = struct{}{}
	}
	return s.Save()
}

// Save writes {updated_at, total, topics} atomically.
func (s *HandledTopicsStore) Save() error {
	topics := s.Topics()
	return WriteJSON(s.path, handledFile{
		UpdatedAt: s.now().UTC().Format("2006-01-02T15:04:05Z"),
		Total:     len(topics),
		Topics:    topics,
	})
}

// Path returns the backing file path.
func (s *HandledTopicsStore) Path() string {
	return s.path
}

// ReadHandledTopics loads the file without a long-lived store.
func ReadHandledTopics(path string) ([]string, error) {
	s := NewHandledTopicsStore(path, nil)
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s.Topics(), nil
}
