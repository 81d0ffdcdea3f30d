package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// Validate validates the entire configuration.
// max_concurrent_tasks below 1 is accepted; the scheduler clamps it.
func (v *Validator) Validate(cfg *Config) error {
	v.validateIntervals(cfg)
	v.validatePaths(cfg)
	v.validateWorker(&cfg.Worker)
	v.validateFilter(&cfg.Filter)
	v.validateLog(&cfg.Log)
	v.validateHTTP(&cfg.HTTP)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

// Errors returns the collected validation errors.
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

func (v *Validator) addError(field string, value interface{}, msg string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Value:   value,
		Message: msg,
	})
}

func (v *Validator) validateIntervals(cfg *Config) {
	if cfg.TopicsPollSec <= 0 {
		v.addError("topics_poll_sec", cfg.TopicsPollSec, "must be positive")
	}
	if cfg.CommandPollSec <= 0 {
		v.addError("command_poll_sec", cfg.CommandPollSec, "must be positive")
	}
}

func (v *Validator) validatePaths(cfg *Config) {
	required := map[string]string{
		"log_dir":             cfg.LogDir,
		"data_dir":            cfg.DataDir,
		"handled_topics_path": cfg.HandledTopicsPath,
		"filter_output_path":  cfg.FilterOutputPath,
	}
	for field, val := range required {
		if strings.TrimSpace(val) == "" {
			v.addError(field, val, "required")
		}
	}
}

func (v *Validator) validateWorker(w *WorkerConfig) {
	if len(w.Command) == 0 || strings.TrimSpace(w.Command[0]) == "" {
		v.addError("worker.command", w.Command, "must name an executable")
	}
}

func (v *Validator) validateFilter(f *FilterConfig) {
	if len(f.Command) == 0 || strings.TrimSpace(f.Command[0]) == "" {
		v.addError("filter.command", f.Command, "must name an executable")
	}
	if f.TimeoutSec <= 0 {
		v.addError("filter.timeout_sec", f.TimeoutSec, "must be positive")
	}
}

func (v *Validator) validateLog(l *LogConfig) {
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		v.addError("log.level", l.Level, "must be one of debug, info, warn, error")
	}
	switch strings.ToLower(l.Format) {
	case "auto", "text", "json":
	default:
		v.addError("log.format", l.Format, "must be one of auto, text, json")
	}
}

func (v *Validator) validateHTTP(h *HTTPConfig) {
	if h.CommandRate < 0 {
		v.addError("http.command_rate", h.CommandRate, "must not be negative")
	}
	if h.CommandRate > 0 && h.CommandBurst < 1 {
		v.addError("http.command_burst", h.CommandBurst, "must be at least 1 when command_rate is set")
	}
}

// ValidateConfig is a convenience wrapper around Validator.
func ValidateConfig(cfg *Config) error {
	return NewValidator().Validate(cfg)
}
