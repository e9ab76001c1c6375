package ecg

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/itohio/goecg/pkg/config"
)

// Mock simulates an ECG front end for testing and development. It
// produces a PQRST-shaped waveform (not clinical) at the configured
// sampling rate, with optional baseline wander, noise and mains
// interference mixed in.
type Mock struct {
	cfg      *config.MockConfig
	rateHz   float64
	vref     float64
	interval time.Duration

	samples   chan RawSample
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
	running   bool

	// Simulation state
	phase      float64 // Position within the current heart cycle [0..1)
	mainsPhase float64
	tick       uint64
}

// NewMock creates a new mocked ECG device.
func NewMock(cfg *config.Config) *Mock {
	mock := cfg.Mock
	rate := cfg.Sampling.RateHz
	if rate <= 0 {
		rate = 250
	}
	vref := cfg.Sampling.VRef
	if vref <= 0 {
		vref = 3.3
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Mock{
		cfg:      &mock,
		rateHz:   rate,
		vref:     vref,
		interval: time.Duration(float64(time.Second) / rate),
		samples:  make(chan RawSample, DefaultBufferSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Connect simulates connecting to the device and starts the generator.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return fmt.Errorf("already connected")
	}

	m.connected = true
	m.running = true
	m.phase = 0
	m.mainsPhase = 0
	m.tick = 0

	go m.generateSamples()

	return nil
}

// Close stops the mocked device.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil
	}

	// The generator goroutine owns the samples channel and closes it
	// once it has observed the cancellation, so a send can never race
	// with the close.
	m.cancel()
	m.connected = false

	return nil
}

// Samples returns the channel for reading samples.
func (m *Mock) Samples() <-chan RawSample {
	return m.samples
}

// SetRunning pauses or resumes waveform generation (simulated SDN pin).
func (m *Mock) SetRunning(on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return fmt.Errorf("not connected")
	}

	m.running = on
	return nil
}

// IsConnected returns whether the device is currently connected.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// generateSamples emits one sample per sampling period. It owns the
// samples channel: the channel is closed here, after cancellation has
// been observed, never concurrently with a send.
func (m *Mock) generateSamples() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	defer close(m.samples)

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.mu.RLock()
			running := m.running
			m.mu.RUnlock()
			if !running {
				continue
			}

			sample := m.generateSample(time.Now())
			select {
			case m.samples <- sample:
			case <-m.ctx.Done():
				return
			default:
				// Channel full, skip
			}
		}
	}
}

// generateSample produces the next waveform sample as an ADC count.
func (m *Mock) generateSample(now time.Time) RawSample {
	v := m.Voltage()

	counts := v / m.vref * 4095
	if counts < 0 {
		counts = 0
	} else if counts > 4095 {
		counts = 4095
	}

	return RawSample{
		Timestamp: now,
		Reading:   uint16(counts),
	}
}

// Voltage advances the simulation by one tick and returns the raw input
// voltage the ADC would see. Exported so tests and the end-to-end
// scenario can drive the generator without a ticker.
func (m *Mock) Voltage() float64 {
	cycleHz := m.cfg.HeartRate / 60.0
	m.phase += cycleHz / m.rateHz
	if m.phase >= 1.0 {
		m.phase -= 1.0
	}

	m.mainsPhase += m.cfg.MainsFrequency / m.rateHz
	if m.mainsPhase >= 1.0 {
		m.mainsPhase -= 1.0
	}
	m.tick++

	return m.cfg.Baseline + m.waveform(m.phase) +
		m.cfg.MainsAmplitude*math.Sin(2*math.Pi*m.mainsPhase) +
		m.noise()
}

// waveform shapes one heart cycle as a sum of Gaussian bumps: P wave,
// QRS complex and T wave, scaled so the R peak equals the configured
// amplitude.
func (m *Mock) waveform(t float64) float64 {
	p := 0.08 * gauss(t, 0.18, 0.03)
	q := -0.12 * gauss(t, 0.30, 0.01)
	r := 1.00 * gauss(t, 0.32, 0.008)
	s := -0.25 * gauss(t, 0.35, 0.012)
	tw := 0.25 * gauss(t, 0.60, 0.06)

	return m.cfg.Amplitude * (p + q + r + s + tw)
}

// noise returns cheap deterministic noise, amplitude NoiseLevel.
func (m *Mock) noise() float64 {
	if m.cfg.NoiseLevel == 0 {
		return 0
	}
	x := math.Sin(12345.678*float64(m.tick)) * 9876.543
	return m.cfg.NoiseLevel * (2*(x-math.Floor(x)) - 1)
}

func gauss(x, mu, sigma float64) float64 {
	z := (x - mu) / sigma
	return math.Exp(-0.5 * z * z)
}
