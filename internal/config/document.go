package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hugo-lorenzo-mato/autorun/internal/core"
	"github.com/hugo-lorenzo-mato/autorun/internal/fsutil"
)

// decodeDocument decodes a JSON or YAML file (by extension) into out.
// It reports false, with no error, when the file does not exist or is empty.
// Keys are matched as written; viper is not used here because it folds
// map keys to lower case, and topic slugs are case sensitive.
func decodeDocument(path string, out interface{}) (bool, error) {
	data, err := fsutil.ReadFileScoped(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return false, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, out)
	default:
		err = json.Unmarshal(data, out)
	}
	if err != nil {
		return false, core.ErrConfigParse(path, err)
	}
	return true, nil
}
