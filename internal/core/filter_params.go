package core

// HighlightParams tunes which chosen markets the filter flags as highlights.
// A nil field leaves the filter's own default in place.
type HighlightParams struct {
	MaxHours       *float64 `json:"max_hours" yaml:"max_hours"`
	AskMin         *float64 `json:"ask_min" yaml:"ask_min"`
	AskMax         *float64 `json:"ask_max" yaml:"ask_max"`
	MinTotalVolume *float64 `json:"min_total_volume" yaml:"min_total_volume"`
	MaxAskDiff     *float64 `json:"max_ask_diff" yaml:"max_ask_diff"`
}

// FilterParams is the immutable parameter set passed to every filter call.
type FilterParams struct {
	MinEndHours         float64         `json:"min_end_hours" yaml:"min_end_hours"`
	MaxEndDays          int             `json:"max_end_days" yaml:"max_end_days"`
	GammaWindowDays     int             `json:"gamma_window_days" yaml:"gamma_window_days"`
	GammaMinWindowHours int             `json:"gamma_min_window_hours" yaml:"gamma_min_window_hours"`
	LegacyEndDays       int             `json:"legacy_end_days" yaml:"legacy_end_days"`
	AllowIlliquid       bool            `json:"allow_illiquid" yaml:"allow_illiquid"`
	SkipOrderbook       bool            `json:"skip_orderbook" yaml:"skip_orderbook"`
	NoRestBackfill      bool            `json:"no_rest_backfill" yaml:"no_rest_backfill"`
	BooksBatchSize      int             `json:"books_batch_size" yaml:"books_batch_size"`
	Only                string          `json:"only" yaml:"only"`
	Highlight           HighlightParams `json:"highlight" yaml:"highlight"`
}

func floatPtr(v float64) *float64 { return &v }

// DefaultFilterParams returns the parameters used when no filter file exists.
func DefaultFilterParams() FilterParams {
	return FilterParams{
		MinEndHours:         1.0,
		MaxEndDays:          5,
		GammaWindowDays:     2,
		GammaMinWindowHours: 1,
		LegacyEndDays:       730,
		BooksBatchSize:      200,
		Highlight: HighlightParams{
			MaxHours:       floatPtr(72.0),
			AskMin:         floatPtr(0.80),
			AskMax:         floatPtr(0.99),
			MinTotalVolume: floatPtr(20000.0),
			MaxAskDiff:     floatPtr(0.2),
		},
	}
}
