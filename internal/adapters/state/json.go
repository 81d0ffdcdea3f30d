package state

import (
	"encoding/json"
	"fmt"

	"github.com/hugo-lorenzo-mato/autorun/internal/core"
	"github.com/hugo-lorenzo-mato/autorun/internal/fsutil"
)

// WriteJSON marshals v with two-space indentation and writes it atomically.
func WriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", path, err)
	}
	data = append(data, '\n')
	if err := AtomicWriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ReadJSON decodes the file at path into v.
func ReadJSON(path string, v interface{}) error {
	data, err := fsutil.ReadFileScoped(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return core.ErrConfigParse(path, err)
	}
	return nil
}
