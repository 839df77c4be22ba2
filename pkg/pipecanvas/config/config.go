// Package config loads caller-facing settings for the workflow editor
// core: collaborator endpoints, request timeouts, and observability
// toggles. Files may be YAML or JSON, detected by extension.
package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Settings configures the editor core's collaborators.
type Settings struct {
	// ExecutionURL is the base URL of the execution backend
	// (e.g. "http://localhost:8000").
	ExecutionURL string `yaml:"execution_url" json:"execution_url"`

	// WorkflowsURL is the base URL of the workflow persistence service.
	// Defaults to ExecutionURL when empty.
	WorkflowsURL string `yaml:"workflows_url" json:"workflows_url"`

	// RequestTimeout bounds each collaborator HTTP request.
	RequestTimeout Duration `yaml:"request_timeout" json:"request_timeout"`

	// DefaultModel is the model preselected for new module nodes.
	DefaultModel string `yaml:"default_model" json:"default_model"`

	// StorePath is the SQLite file for the local workflow store.
	// ":memory:" keeps workflows in process memory.
	StorePath string `yaml:"store_path" json:"store_path"`

	// Tracing enables OpenTelemetry spans around compiles and
	// execution-client calls.
	Tracing bool `yaml:"tracing" json:"tracing"`

	// Metrics enables OpenTelemetry metrics.
	Metrics bool `yaml:"metrics" json:"metrics"`
}

// Default returns the settings used when no file is provided.
func Default() Settings {
	return Settings{
		ExecutionURL:   "http://localhost:8000",
		RequestTimeout: Duration(60 * time.Second),
		DefaultModel:   "databricks-meta-llama-3-3-70b-instruct",
		StorePath:      ":memory:",
	}
}

// Validate checks the settings for internal consistency.
func (s Settings) Validate() error {
	if s.ExecutionURL == "" {
		return fmt.Errorf("execution_url is required")
	}
	if time.Duration(s.RequestTimeout) <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	return nil
}

// Duration wraps time.Duration with YAML/JSON decoding from strings like
// "30s" or "2m", or bare numbers interpreted as seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var raw any
	if err := unmarshal(&raw); err != nil {
		return err
	}
	return d.set(raw)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return d.set(raw)
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) set(raw any) error {
	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse duration %q: %w", v, err)
		}
		*d = Duration(parsed)
		return nil
	case int:
		*d = Duration(time.Duration(v) * time.Second)
		return nil
	case float64:
		*d = Duration(time.Duration(v * float64(time.Second)))
		return nil
	default:
		return fmt.Errorf("duration must be a string or number, got %T", raw)
	}
}
