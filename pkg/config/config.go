package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Filter type names accepted in the filters list.
const (
	FilterNotch    = "notch"
	FilterHighpass = "highpass"
	FilterLowpass  = "lowpass"
)

// Config represents the application configuration.
type Config struct {
	Serial    SerialConfig    `yaml:"serial"`
	Sampling  SamplingConfig  `yaml:"sampling"`
	Filters   []FilterConfig  `yaml:"filters"`
	HeartRate HeartRateConfig `yaml:"heart_rate"`
	Mock      MockConfig      `yaml:"mock"`
	Stream    StreamConfig    `yaml:"stream"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port string `yaml:"port"`
}

// SamplingConfig contains acquisition and conditioning parameters.
type SamplingConfig struct {
	RateHz       float64 `yaml:"rate_hz"`        // Sampling rate of the front end (Hz)
	VRef         float64 `yaml:"vref"`           // ADC reference voltage (V)
	DCWindow     int     `yaml:"dc_window"`      // DC-removal window length (ticks)
	MaxHoldTicks int     `yaml:"max_hold_ticks"` // Consecutive faulty ticks bridged by hold-last
	Gain         float64 `yaml:"gain"`           // Amplitude calibration applied after the filter chain
}

// FilterConfig describes one second-order section of the conditioning chain.
// Frequency is the center frequency for a notch and the cutoff otherwise.
type FilterConfig struct {
	Type      string  `yaml:"type"`
	Frequency float64 `yaml:"frequency"`
	Q         float64 `yaml:"q"`
}

// HeartRateConfig contains R-peak detection and rate computation parameters.
type HeartRateConfig struct {
	WindowSeconds  float64       `yaml:"window_seconds"`  // Sliding window for rate computation
	Refractory     time.Duration `yaml:"refractory"`      // Minimum time between accepted peaks
	ThresholdRatio float64       `yaml:"threshold_ratio"` // Peak threshold as fraction of window max
	MinAmplitude   float64       `yaml:"min_amplitude"`   // Minimum peak amplitude (V), filters noise
	SlopeThreshold float64       `yaml:"slope_threshold"` // Minimum rising-edge slope (V per sample)
	MinRR          time.Duration `yaml:"min_rr"`          // Shortest physiologically valid R-R interval
	MaxRR          time.Duration `yaml:"max_rr"`          // Longest physiologically valid R-R interval
	ReportInterval time.Duration `yaml:"report_interval"` // Cadence of heart_rate= report lines
}

// MockConfig contains synthetic ECG generator configuration.
type MockConfig struct {
	HeartRate      float64 `yaml:"heart_rate"`      // Simulated heart rate (BPM)
	Amplitude      float64 `yaml:"amplitude"`       // R-wave amplitude (V)
	Baseline       float64 `yaml:"baseline"`        // DC bias of the simulated signal (V)
	NoiseLevel     float64 `yaml:"noise_level"`     // Additive noise amplitude (V)
	MainsAmplitude float64 `yaml:"mains_amplitude"` // Simulated mains interference amplitude (V)
	MainsFrequency float64 `yaml:"mains_frequency"` // Simulated mains interference frequency (Hz)
}

// StreamConfig contains NATS publishing configuration.
type StreamConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"` // Subject prefix; ".waveform" and ".heart_rate" are appended
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port: "COM3", // Default for Windows, should be "/dev/ttyACM0" on Linux/Mac
		},
		Sampling: SamplingConfig{
			RateHz:       250,
			VRef:         3.3,
			DCWindow:     50, // 200 ms at 250 Hz
			MaxHoldTicks: 5,
			Gain:         1.5,
		},
		Filters: []FilterConfig{
			{Type: FilterNotch, Frequency: 50, Q: 2},
			{Type: FilterHighpass, Frequency: 0.5, Q: 0.707},
			{Type: FilterLowpass, Frequency: 35, Q: 0.707},
		},
		HeartRate: HeartRateConfig{
			WindowSeconds:  3,
			Refractory:     300 * time.Millisecond,
			ThresholdRatio: 0.6,
			MinAmplitude:   0.1,
			SlopeThreshold: 0.02,
			MinRR:          300 * time.Millisecond,
			MaxRR:          2 * time.Second,
			ReportInterval: 2 * time.Second,
		},
		Mock: MockConfig{
			HeartRate:      75,
			Amplitude:      1.0,
			Baseline:       1.65,
			NoiseLevel:     0.01,
			MainsAmplitude: 0.0,
			MainsFrequency: 50,
		},
		Stream: StreamConfig{
			Enabled: false,
			URL:     "nats://127.0.0.1:4222",
			Subject: "goecg",
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Ensure minimum required fields are set (use defaults if missing)
	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks parameters the pipeline cannot run with. The pipeline
// refuses to start on any error returned here.
func (c *Config) Validate() error {
	if c.Sampling.RateHz <= 0 {
		return fmt.Errorf("sampling rate must be positive, got %g Hz", c.Sampling.RateHz)
	}
	if c.Sampling.VRef <= 0 {
		return fmt.Errorf("vref must be positive, got %g V", c.Sampling.VRef)
	}
	if c.Sampling.DCWindow <= 0 {
		return fmt.Errorf("dc_window must be positive, got %d ticks", c.Sampling.DCWindow)
	}
	if c.Sampling.MaxHoldTicks < 0 {
		return fmt.Errorf("max_hold_ticks must not be negative, got %d", c.Sampling.MaxHoldTicks)
	}

	nyquist := c.Sampling.RateHz / 2
	for i, f := range c.Filters {
		switch f.Type {
		case FilterNotch, FilterHighpass, FilterLowpass:
		default:
			return fmt.Errorf("filter %d: unknown type %q", i, f.Type)
		}
		if f.Frequency <= 0 {
			return fmt.Errorf("filter %d (%s): frequency must be positive, got %g Hz", i, f.Type, f.Frequency)
		}
		if f.Frequency >= nyquist {
			return fmt.Errorf("filter %d (%s): frequency %g Hz must be below Nyquist (%g Hz)", i, f.Type, f.Frequency, nyquist)
		}
		if f.Q <= 0 {
			return fmt.Errorf("filter %d (%s): Q must be positive, got %g", i, f.Type, f.Q)
		}
	}

	if c.HeartRate.WindowSeconds <= 0 {
		return fmt.Errorf("heart_rate window must be positive, got %g s", c.HeartRate.WindowSeconds)
	}
	if c.HeartRate.Refractory <= 0 {
		return fmt.Errorf("heart_rate refractory must be positive, got %v", c.HeartRate.Refractory)
	}
	if c.HeartRate.ThresholdRatio <= 0 || c.HeartRate.ThresholdRatio > 1 {
		return fmt.Errorf("heart_rate threshold_ratio must be in (0, 1], got %g", c.HeartRate.ThresholdRatio)
	}
	if c.HeartRate.MinRR >= c.HeartRate.MaxRR {
		return fmt.Errorf("heart_rate min_rr %v must be below max_rr %v", c.HeartRate.MinRR, c.HeartRate.MaxRR)
	}

	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}

	if c.Sampling.RateHz == 0 {
		c.Sampling.RateHz = def.Sampling.RateHz
	}
	if c.Sampling.VRef == 0 {
		c.Sampling.VRef = def.Sampling.VRef
	}
	if c.Sampling.DCWindow == 0 {
		c.Sampling.DCWindow = def.Sampling.DCWindow
	}
	if c.Sampling.Gain == 0 {
		c.Sampling.Gain = def.Sampling.Gain
	}

	if len(c.Filters) == 0 {
		c.Filters = def.Filters
	}

	if c.HeartRate.WindowSeconds == 0 {
		c.HeartRate.WindowSeconds = def.HeartRate.WindowSeconds
	}
	if c.HeartRate.Refractory == 0 {
		c.HeartRate.Refractory = def.HeartRate.Refractory
	}
	if c.HeartRate.ThresholdRatio == 0 {
		c.HeartRate.ThresholdRatio = def.HeartRate.ThresholdRatio
	}
	if c.HeartRate.MinRR == 0 {
		c.HeartRate.MinRR = def.HeartRate.MinRR
	}
	if c.HeartRate.MaxRR == 0 {
		c.HeartRate.MaxRR = def.HeartRate.MaxRR
	}
	if c.HeartRate.ReportInterval == 0 {
		c.HeartRate.ReportInterval = def.HeartRate.ReportInterval
	}

	if c.Mock.HeartRate == 0 {
		c.Mock.HeartRate = def.Mock.HeartRate
	}
	if c.Mock.Amplitude == 0 {
		c.Mock.Amplitude = def.Mock.Amplitude
	}
	if c.Mock.MainsFrequency == 0 {
		c.Mock.MainsFrequency = def.Mock.MainsFrequency
	}

	if c.Stream.URL == "" {
		c.Stream.URL = def.Stream.URL
	}
	if c.Stream.Subject == "" {
		c.Stream.Subject = def.Stream.Subject
	}
}
