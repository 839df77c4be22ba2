package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefault tests the zero-file settings.
func TestDefault(t *testing.T) {
	s := Default()

	assert.Equal(t, "http://localhost:8000", s.ExecutionURL)
	assert.Equal(t, 60*time.Second, time.Duration(s.RequestTimeout))
	assert.Equal(t, ":memory:", s.StorePath)
	assert.False(t, s.Tracing)
	assert.NoError(t, s.Validate())
}

// TestFromYAML tests YAML loading over the defaults.
func TestFromYAML(t *testing.T) {
	s, err := FromYAML([]byte(`
execution_url: http://backend:9000
request_timeout: 30s
tracing: true
`))
	require.NoError(t, err)

	assert.Equal(t, "http://backend:9000", s.ExecutionURL)
	// workflows_url falls back to the execution backend.
	assert.Equal(t, "http://backend:9000", s.WorkflowsURL)
	assert.Equal(t, 30*time.Second, time.Duration(s.RequestTimeout))
	assert.True(t, s.Tracing)
	// Untouched fields keep their defaults.
	assert.Equal(t, ":memory:", s.StorePath)
}

// TestFromYAML_NumericTimeout tests bare numbers interpreted as seconds.
func TestFromYAML_NumericTimeout(t *testing.T) {
	s, err := FromYAML([]byte("request_timeout: 45\n"))
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, time.Duration(s.RequestTimeout))
}

// TestFromJSON tests JSON loading over the defaults.
func TestFromJSON(t *testing.T) {
	s, err := FromJSON([]byte(`{
		"execution_url": "http://backend:9000",
		"workflows_url": "http://store:7000",
		"request_timeout": "2m",
		"metrics": true
	}`))
	require.NoError(t, err)

	assert.Equal(t, "http://store:7000", s.WorkflowsURL)
	assert.Equal(t, 2*time.Minute, time.Duration(s.RequestTimeout))
	assert.True(t, s.Metrics)
}

// TestFromFile tests extension dispatch.
func TestFromFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("execution_url: http://y:1\n"), 0o644))
	s, err := FromFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "http://y:1", s.ExecutionURL)

	jsonPath := filepath.Join(dir, "settings.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"execution_url": "http://j:1"}`), 0o644))
	s, err = FromFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "http://j:1", s.ExecutionURL)

	tomlPath := filepath.Join(dir, "settings.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte(""), 0o644))
	_, err = FromFile(tomlPath)
	assert.Error(t, err)

	_, err = FromFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

// TestValidate tests the consistency checks.
func TestValidate(t *testing.T) {
	s := Default()
	s.ExecutionURL = ""
	assert.Error(t, s.Validate())

	s = Default()
	s.RequestTimeout = 0
	assert.Error(t, s.Validate())

	_, err := FromYAML([]byte(`execution_url: ""`))
	assert.Error(t, err)
}

// TestDuration_JSONRoundTrip tests Duration marshal/unmarshal symmetry.
func TestDuration_JSONRoundTrip(t *testing.T) {
	d := Duration(90 * time.Second)

	raw, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"1m30s"`, string(raw))

	var back Duration
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, d, back)

	assert.Error(t, json.Unmarshal([]byte(`"fortnight"`), &back))
	assert.Error(t, json.Unmarshal([]byte(`true`), &back))
}
