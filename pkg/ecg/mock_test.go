package ecg

import (
	"math"
	"testing"
	"time"

	"github.com/itohio/goecg/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockConfig() *config.Config {
	cfg := config.Default()
	cfg.Sampling.RateHz = 250
	cfg.Mock.HeartRate = 75
	cfg.Mock.Amplitude = 1.0
	cfg.Mock.Baseline = 1.65
	cfg.Mock.NoiseLevel = 0
	cfg.Mock.MainsAmplitude = 0
	return cfg
}

func TestMock_WaveformPeriod(t *testing.T) {
	cfg := mockConfig()
	m := NewMock(cfg)

	// At 75 BPM and 250 Hz, one heart cycle is exactly 200 ticks.
	// Find R-peak positions by locating the per-cycle maximum.
	const ticks = 1000
	voltages := make([]float64, ticks)
	for i := range voltages {
		voltages[i] = m.Voltage()
	}

	var peaks []int
	for i := 1; i < ticks-1; i++ {
		v := voltages[i]
		if v > voltages[i-1] && v >= voltages[i+1] && v > cfg.Mock.Baseline+0.5*cfg.Mock.Amplitude {
			peaks = append(peaks, i)
		}
	}

	require.GreaterOrEqual(t, len(peaks), 4, "expected several R peaks")
	for i := 1; i < len(peaks); i++ {
		assert.InDelta(t, 200, peaks[i]-peaks[i-1], 2, "R-R spacing in ticks")
	}
}

func TestMock_BaselineAndAmplitude(t *testing.T) {
	cfg := mockConfig()
	m := NewMock(cfg)

	minV, maxV := math.Inf(1), math.Inf(-1)
	for i := 0; i < 500; i++ {
		v := m.Voltage()
		minV = math.Min(minV, v)
		maxV = math.Max(maxV, v)
	}

	// R peak reaches roughly baseline + amplitude; troughs stay shallow.
	assert.InDelta(t, cfg.Mock.Baseline+cfg.Mock.Amplitude, maxV, 0.1)
	assert.Greater(t, minV, cfg.Mock.Baseline-0.5*cfg.Mock.Amplitude)
}

func TestMock_MainsInterference(t *testing.T) {
	cfg := mockConfig()
	cfg.Mock.MainsAmplitude = 0.5
	cfg.Mock.MainsFrequency = 50
	m := NewMock(cfg)

	clean := NewMock(mockConfig())

	// Interference raises the observed amplitude between QRS complexes.
	var maxDiff float64
	for i := 0; i < 500; i++ {
		maxDiff = math.Max(maxDiff, math.Abs(m.Voltage()-clean.Voltage()))
	}
	assert.InDelta(t, 0.5, maxDiff, 0.05)
}

func TestMock_SampleClampsToADCRange(t *testing.T) {
	cfg := mockConfig()
	cfg.Mock.Baseline = 3.3
	cfg.Mock.Amplitude = 2.0
	m := NewMock(cfg)

	for i := 0; i < 500; i++ {
		s := m.generateSample(time.Now())
		assert.LessOrEqual(t, s.Reading, uint16(4095))
	}
}

func TestMock_ConnectClose(t *testing.T) {
	m := NewMock(mockConfig())

	require.NoError(t, m.Connect())
	assert.True(t, m.IsConnected())
	assert.Error(t, m.Connect(), "double connect must fail")

	require.NoError(t, m.Close())
	assert.False(t, m.IsConnected())
	assert.NoError(t, m.Close(), "double close is a no-op")
}

func TestMock_SetRunning(t *testing.T) {
	m := NewMock(mockConfig())

	assert.Error(t, m.SetRunning(true), "requires connection")

	require.NoError(t, m.Connect())
	defer m.Close()

	assert.NoError(t, m.SetRunning(false))
	assert.NoError(t, m.SetRunning(true))
}
