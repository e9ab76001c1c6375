package dsp

import (
	"fmt"
	"math"
	"math/cmplx"
)

// Coefficient design for the supported section kinds, using the RBJ
// audio-EQ-cookbook bilinear designs. These run once at pipeline setup;
// the per-sample recursion never recomputes or divides.
//
// All designs return an error for parameters the resulting filter would
// be undefined for: non-positive sample rate, frequency or Q, and
// frequencies at or above Nyquist. Coefficients produced from accepted
// parameters are stable (poles inside the unit circle); the runtime in
// biquad.go does not verify this independently.

// DesignNotch returns a band-stop section centered on freq with the
// given quality factor. Used to suppress mains interference.
func DesignNotch(freq, q, sampleRate float64) (Coefficients, error) {
	w0, alpha, err := prewarp("notch", freq, q, sampleRate)
	if err != nil {
		return Coefficients{}, err
	}

	cosw0 := math.Cos(w0)
	a0 := 1 + alpha
	return Coefficients{
		B0: 1 / a0,
		B1: -2 * cosw0 / a0,
		B2: 1 / a0,
		A1: -2 * cosw0 / a0,
		A2: (1 - alpha) / a0,
	}, nil
}

// DesignHighpass returns a high-pass section with the given cutoff.
// Used to remove residual baseline wander.
func DesignHighpass(cutoff, q, sampleRate float64) (Coefficients, error) {
	w0, alpha, err := prewarp("highpass", cutoff, q, sampleRate)
	if err != nil {
		return Coefficients{}, err
	}

	cosw0 := math.Cos(w0)
	a0 := 1 + alpha
	return Coefficients{
		B0: (1 + cosw0) / 2 / a0,
		B1: -(1 + cosw0) / a0,
		B2: (1 + cosw0) / 2 / a0,
		A1: -2 * cosw0 / a0,
		A2: (1 - alpha) / a0,
	}, nil
}

// DesignLowpass returns a low-pass section with the given cutoff.
// Used to remove out-of-band high-frequency noise.
func DesignLowpass(cutoff, q, sampleRate float64) (Coefficients, error) {
	w0, alpha, err := prewarp("lowpass", cutoff, q, sampleRate)
	if err != nil {
		return Coefficients{}, err
	}

	cosw0 := math.Cos(w0)
	a0 := 1 + alpha
	return Coefficients{
		B0: (1 - cosw0) / 2 / a0,
		B1: (1 - cosw0) / a0,
		B2: (1 - cosw0) / 2 / a0,
		A1: -2 * cosw0 / a0,
		A2: (1 - alpha) / a0,
	}, nil
}

// prewarp validates the design parameters and returns the normalized
// angular frequency and the cookbook alpha term.
func prewarp(kind string, freq, q, sampleRate float64) (w0, alpha float64, err error) {
	if sampleRate <= 0 {
		return 0, 0, fmt.Errorf("%s design: sample rate must be positive, got %g Hz", kind, sampleRate)
	}
	if freq <= 0 {
		return 0, 0, fmt.Errorf("%s design: frequency must be positive, got %g Hz", kind, freq)
	}
	if freq >= sampleRate/2 {
		return 0, 0, fmt.Errorf("%s design: frequency %g Hz must be below Nyquist (%g Hz)", kind, freq, sampleRate/2)
	}
	if q <= 0 {
		return 0, 0, fmt.Errorf("%s design: Q must be positive, got %g", kind, q)
	}

	w0 = 2 * math.Pi * freq / sampleRate
	alpha = math.Sin(w0) / (2 * q)
	return w0, alpha, nil
}

// MagnitudeAt returns the magnitude response |H(f)| of one section at
// the given frequency. Setup and test helper, not part of the hot path.
func (c Coefficients) MagnitudeAt(freq, sampleRate float64) float64 {
	w := 2 * math.Pi * freq / sampleRate
	z1 := complex(math.Cos(-w), math.Sin(-w))
	z2 := z1 * z1

	num := complex(c.B0, 0) + complex(c.B1, 0)*z1 + complex(c.B2, 0)*z2
	den := complex(1, 0) + complex(c.A1, 0)*z1 + complex(c.A2, 0)*z2
	return cmplx.Abs(num / den)
}
