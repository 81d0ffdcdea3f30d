package config

import (
	"github.com/hugo-lorenzo-mato/autorun/internal/core"
)

// LoadFilterParams reads the filter parameter file. Missing keys keep their
// defaults, including individual highlight keys. A missing file yields the
// defaults.
func LoadFilterParams(path string) (core.FilterParams, error) {
	params := core.DefaultFilterParams()
	if _, err := decodeDocument(path, &params); err != nil {
		return core.FilterParams{}, err
	}
	return params, nil
}
