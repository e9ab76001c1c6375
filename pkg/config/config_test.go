package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotNil(t, cfg)
	assert.Equal(t, "COM3", cfg.Serial.Port)
	assert.Equal(t, float64(250), cfg.Sampling.RateHz)
	assert.Equal(t, float64(3.3), cfg.Sampling.VRef)
	assert.Equal(t, 50, cfg.Sampling.DCWindow)
	assert.Len(t, cfg.Filters, 3)
	assert.Equal(t, FilterNotch, cfg.Filters[0].Type)
	assert.Equal(t, FilterHighpass, cfg.Filters[1].Type)
	assert.Equal(t, FilterLowpass, cfg.Filters[2].Type)
	assert.Equal(t, float64(3), cfg.HeartRate.WindowSeconds)
	assert.Equal(t, 300*time.Millisecond, cfg.HeartRate.Refractory)
	assert.Equal(t, 2*time.Second, cfg.HeartRate.ReportInterval)
	assert.False(t, cfg.Stream.Enabled)
}

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoad_FileNotExists(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, "COM3", cfg.Serial.Port)
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
serial:
  port: "/dev/ttyACM0"

sampling:
  rate_hz: 100
  vref: 3.3
  dc_window: 20
  gain: 1.5

filters:
  - type: highpass
    frequency: 0.5
    q: 0.707
  - type: lowpass
    frequency: 35
    q: 0.707

heart_rate:
  window_seconds: 5
  refractory: 500ms
  threshold_ratio: 0.7
`
	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, float64(100), cfg.Sampling.RateHz)
	assert.Equal(t, 20, cfg.Sampling.DCWindow)
	assert.Len(t, cfg.Filters, 2)
	assert.Equal(t, float64(5), cfg.HeartRate.WindowSeconds)
	assert.Equal(t, 500*time.Millisecond, cfg.HeartRate.Refractory)
	assert.Equal(t, 0.7, cfg.HeartRate.ThresholdRatio)

	// Fields absent from the file keep their defaults.
	assert.Equal(t, 300*time.Millisecond, cfg.HeartRate.MinRR)
	assert.Equal(t, 2*time.Second, cfg.HeartRate.ReportInterval)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.Stream.URL)
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	_, err = tmpfile.WriteString("filters: [not: valid: yaml")
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	_, err = Load(tmpfile.Name())
	assert.Error(t, err)
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := Default()
	cfg.Serial.Port = "/dev/ttyUSB1"
	cfg.Sampling.RateHz = 500
	cfg.HeartRate.Refractory = 450 * time.Millisecond
	cfg.Stream.Enabled = true
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB1", loaded.Serial.Port)
	assert.Equal(t, float64(500), loaded.Sampling.RateHz)
	assert.Equal(t, 450*time.Millisecond, loaded.HeartRate.Refractory)
	assert.True(t, loaded.Stream.Enabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "default config is valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "zero sampling rate",
			mutate:  func(c *Config) { c.Sampling.RateHz = 0 },
			wantErr: "sampling rate",
		},
		{
			name:    "negative dc window",
			mutate:  func(c *Config) { c.Sampling.DCWindow = -1 },
			wantErr: "dc_window",
		},
		{
			name:    "unknown filter type",
			mutate:  func(c *Config) { c.Filters[0].Type = "bandstop" },
			wantErr: "unknown type",
		},
		{
			name:    "filter at Nyquist",
			mutate:  func(c *Config) { c.Filters[0].Frequency = 125 },
			wantErr: "Nyquist",
		},
		{
			name:    "filter above Nyquist",
			mutate:  func(c *Config) { c.Filters[2].Frequency = 200 },
			wantErr: "Nyquist",
		},
		{
			name:    "non-positive Q",
			mutate:  func(c *Config) { c.Filters[1].Q = 0 },
			wantErr: "Q must be positive",
		},
		{
			name:    "zero heart rate window",
			mutate:  func(c *Config) { c.HeartRate.WindowSeconds = 0 },
			wantErr: "window must be positive",
		},
		{
			name:    "threshold ratio above one",
			mutate:  func(c *Config) { c.HeartRate.ThresholdRatio = 1.5 },
			wantErr: "threshold_ratio",
		},
		{
			name: "rr bounds inverted",
			mutate: func(c *Config) {
				c.HeartRate.MinRR = 3 * time.Second
			},
			wantErr: "min_rr",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
