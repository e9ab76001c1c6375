package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDesign_ParameterValidation(t *testing.T) {
	type designFn func(freq, q, fs float64) (Coefficients, error)
	designs := map[string]designFn{
		"notch":    DesignNotch,
		"highpass": DesignHighpass,
		"lowpass":  DesignLowpass,
	}

	tests := []struct {
		name    string
		freq    float64
		q       float64
		fs      float64
		wantErr string
	}{
		{name: "valid", freq: 35, q: 0.707, fs: 250},
		{name: "zero frequency", freq: 0, q: 1, fs: 250, wantErr: "frequency must be positive"},
		{name: "negative frequency", freq: -5, q: 1, fs: 250, wantErr: "frequency must be positive"},
		{name: "at Nyquist", freq: 125, q: 1, fs: 250, wantErr: "Nyquist"},
		{name: "above Nyquist", freq: 200, q: 1, fs: 250, wantErr: "Nyquist"},
		{name: "zero Q", freq: 35, q: 0, fs: 250, wantErr: "Q must be positive"},
		{name: "zero sample rate", freq: 35, q: 1, fs: 0, wantErr: "sample rate must be positive"},
	}

	for name, design := range designs {
		for _, tt := range tests {
			t.Run(name+"/"+tt.name, func(t *testing.T) {
				_, err := design(tt.freq, tt.q, tt.fs)
				if tt.wantErr == "" {
					assert.NoError(t, err)
				} else {
					require.Error(t, err)
					assert.Contains(t, err.Error(), tt.wantErr)
				}
			})
		}
	}
}

func TestDesignNotch_AttenuatesCenterFrequency(t *testing.T) {
	const fs = 250.0
	c, err := DesignNotch(50, 2, fs)
	require.NoError(t, err)

	// Zeros sit on the unit circle at the center frequency, so the
	// response there is essentially zero; pass band stays near unity.
	assert.Less(t, c.MagnitudeAt(50, fs), 1e-10)
	assert.Greater(t, c.MagnitudeAt(10, fs), 0.9)
	assert.Greater(t, c.MagnitudeAt(100, fs), 0.9)
}

func TestDesignNotch_SinusoidAttenuation(t *testing.T) {
	const fs = 250.0
	c, err := DesignNotch(50, 2, fs)
	require.NoError(t, err)

	amplitudeAfter := func(freq float64) float64 {
		s := NewSection(c)
		var peak float64
		for i := 0; i < 2500; i++ {
			y := s.ProcessSample(math.Sin(2 * math.Pi * freq * float64(i) / fs))
			// Measure after the transient settles.
			if i > 1250 {
				peak = math.Max(peak, math.Abs(y))
			}
		}
		return peak
	}

	atNotch := amplitudeAfter(50)
	atPass := amplitudeAfter(10)

	// Better than -40 dB at the notch relative to the pass band.
	require.Greater(t, atPass, 0.5)
	assert.Less(t, atNotch/atPass, 0.01)
}

func TestDesignHighpass_Response(t *testing.T) {
	const fs = 250.0
	c, err := DesignHighpass(0.5, 0.707, fs)
	require.NoError(t, err)

	assert.Less(t, c.MagnitudeAt(0.05, fs), 0.1, "deep below cutoff")
	assert.InDelta(t, 1.0, c.MagnitudeAt(30, fs), 0.05, "pass band")
	// DC is rejected completely: the numerator has a zero at z = 1.
	sum := c.B0 + c.B1 + c.B2
	assert.InDelta(t, 0, sum, 1e-12)
}

func TestDesignLowpass_Response(t *testing.T) {
	const fs = 250.0
	c, err := DesignLowpass(35, 0.707, fs)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, c.MagnitudeAt(1, fs), 0.05, "pass band")
	assert.InDelta(t, math.Sqrt(0.5), c.MagnitudeAt(35, fs), 0.05, "-3 dB at cutoff for Butterworth Q")
	assert.Less(t, c.MagnitudeAt(110, fs), 0.15, "stop band")
}

func TestDesign_StablePoles(t *testing.T) {
	const fs = 250.0

	coeffs := []Coefficients{}
	for _, f := range []struct {
		design func(freq, q, fs float64) (Coefficients, error)
		freq   float64
		q      float64
	}{
		{DesignNotch, 50, 2},
		{DesignNotch, 60, 30},
		{DesignHighpass, 0.5, 0.707},
		{DesignLowpass, 35, 0.707},
		{DesignLowpass, 120, 5},
	} {
		c, err := f.design(f.freq, f.q, fs)
		require.NoError(t, err)
		coeffs = append(coeffs, c)
	}

	for i, c := range coeffs {
		// Poles of z^2 + a1 z + a2: both roots must be inside the unit
		// circle, equivalently |a2| < 1 and |a1| < 1 + a2.
		assert.Less(t, math.Abs(c.A2), 1.0, "set %d", i)
		assert.Less(t, math.Abs(c.A1), 1+c.A2+1e-12, "set %d", i)
	}
}
