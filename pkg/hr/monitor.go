package hr

import (
	"sync"
	"time"

	"github.com/itohio/goecg/pkg/config"
	"github.com/itohio/goecg/pkg/pipeline"
)

var _ RateMonitor = (*Monitor)(nil)

// Peak represents a detected R-peak in the filtered signal.
type Peak struct {
	Index     int       // Sample index in buffer (adjusted as the window slides)
	Timestamp time.Time // Peak timestamp
	Amplitude float64   // Filtered signal value at the peak
}

// RateMonitor processes conditioned samples, maintains a sliding window
// buffer, detects R-peaks and derives the heart rate.
type RateMonitor interface {
	ProcessSamples(input <-chan pipeline.Sample)
	Samples() []pipeline.Sample // Current window buffer (FIFO, ordered first to last)
	Peaks() []Peak              // Detected R-peaks within window
	Rate() (bpm float64, ok bool)
	OnUpdate(func(samples []pipeline.Sample, peaks []Peak, bpm float64, ok bool))
}

// Monitor implements the RateMonitor interface.
// Internally uses FIFO buffers ordered oldest first, latest last.
// Removal is based on timestamp (time window), not number of samples.
type Monitor struct {
	cfg *config.Config

	// Buffers
	// samples holds the current analysis window oldest first. peaks
	// index into samples and are adjusted whenever the window slides.
	samples []pipeline.Sample
	peaks   []Peak

	// Thread safety
	mu sync.RWMutex

	// Update callbacks
	// Callbacks receive current samples, peaks and rate directly.
	callbacks []func(samples []pipeline.Sample, peaks []Peak, bpm float64, ok bool)
	cbMu      sync.RWMutex

	// Configuration
	windowDuration time.Duration
	refractory     time.Duration
	thresholdRatio float64
	minAmplitude   float64
	slopeThreshold float64
	minRR          time.Duration
	maxRR          time.Duration

	// Detection state
	lastPeakTime time.Time
	hasPeak      bool

	// Shutdown control
	shutdown bool // Set when the input channel closes, prevents further callbacks
}

// New creates a new heart rate monitor.
func New(cfg *config.Config) *Monitor {
	return &Monitor{
		cfg:            cfg,
		samples:        make([]pipeline.Sample, 0),
		peaks:          make([]Peak, 0),
		callbacks:      make([]func(samples []pipeline.Sample, peaks []Peak, bpm float64, ok bool), 0),
		windowDuration: time.Duration(cfg.HeartRate.WindowSeconds * float64(time.Second)),
		refractory:     cfg.HeartRate.Refractory,
		thresholdRatio: cfg.HeartRate.ThresholdRatio,
		minAmplitude:   cfg.HeartRate.MinAmplitude,
		slopeThreshold: cfg.HeartRate.SlopeThreshold,
		minRR:          cfg.HeartRate.MinRR,
		maxRR:          cfg.HeartRate.MaxRR,
	}
}

// ProcessSamples processes samples from the input channel.
// When the input channel closes, it sets the shutdown flag to prevent
// further callbacks.
func (m *Monitor) ProcessSamples(input <-chan pipeline.Sample) {
	for s := range input {
		m.processSample(s)
	}
	m.mu.Lock()
	m.shutdown = true
	m.mu.Unlock()
}

// processSample adds a sample to the window, slides the window and runs
// peak detection on the newly completed candidate.
func (m *Monitor) processSample(s pipeline.Sample) {
	m.mu.Lock()

	m.samples = append(m.samples, s)

	// Remove samples outside the time window (based on timestamp, not count)
	cutoffTime := s.Timestamp.Add(-m.windowDuration)
	cutoffIndex := 0
	for i, smp := range m.samples {
		if smp.Timestamp.After(cutoffTime) {
			cutoffIndex = i
			break
		}
	}
	if cutoffIndex > 0 {
		m.samples = m.samples[cutoffIndex:]

		// Adjust peak indices and drop peaks that slid out of the window
		validPeaks := m.peaks[:0]
		for _, p := range m.peaks {
			p.Index -= cutoffIndex
			if p.Index >= 0 {
				validPeaks = append(validPeaks, p)
			}
		}
		m.peaks = validPeaks
	}

	m.detectPeak()

	shouldNotify := !m.shutdown
	m.mu.Unlock()

	if shouldNotify {
		m.notifyCallbacks()
	}
}

// detectPeak examines the second to last sample as a peak candidate.
// A candidate qualifies when it is a local maximum on a rising edge,
// exceeds both the absolute amplitude floor and the dynamic threshold,
// and falls outside the refractory period of the previous peak.
// Caller must hold the write lock.
func (m *Monitor) detectPeak() {
	n := len(m.samples)
	if n < 3 {
		return
	}

	prev := m.samples[n-3]
	cand := m.samples[n-2]
	next := m.samples[n-1]

	if !cand.Valid || cand.LeadOff {
		return
	}

	// Local maximum
	if !(cand.Filtered > prev.Filtered && cand.Filtered >= next.Filtered) {
		return
	}

	// Absolute amplitude floor rejects baseline noise
	if cand.Filtered < m.minAmplitude {
		return
	}

	// Rising edge steep enough to be a QRS complex
	if cand.Filtered-prev.Filtered <= m.slopeThreshold {
		return
	}

	// Dynamic threshold tracks the strongest peak in the window
	if cand.Filtered < m.thresholdRatio*m.windowMax() {
		return
	}

	if m.hasPeak {
		rr := cand.Timestamp.Sub(m.lastPeakTime)
		if rr < m.refractory {
			return
		}
		// Too short an interval is a double count of the same beat.
		// Too long means the run was interrupted; accept the peak as
		// the start of a new run.
		if rr < m.minRR {
			return
		}
	}

	m.peaks = append(m.peaks, Peak{
		Index:     n - 2,
		Timestamp: cand.Timestamp,
		Amplitude: cand.Filtered,
	})
	m.lastPeakTime = cand.Timestamp
	m.hasPeak = true
}

// windowMax returns the maximum filtered value in the current window.
// Caller must hold the lock.
func (m *Monitor) windowMax() float64 {
	peak := 0.0
	for _, s := range m.samples {
		if s.Valid && s.Filtered > peak {
			peak = s.Filtered
		}
	}
	return peak
}

// Rate derives the heart rate from the peaks currently in the window.
// With fewer than two peaks, or when consecutive peaks are spaced
// outside the physiological RR bounds, the rate is unavailable and ok
// is false. The rate is never reported as zero.
func (m *Monitor) Rate() (float64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rateLocked()
}

func (m *Monitor) rateLocked() (float64, bool) {
	if len(m.peaks) < 2 {
		return 0, false
	}

	first := m.peaks[0].Timestamp
	last := m.peaks[len(m.peaks)-1].Timestamp
	elapsed := last.Sub(first)
	if elapsed <= 0 {
		return 0, false
	}

	// All consecutive intervals must be physiologically plausible.
	for i := 1; i < len(m.peaks); i++ {
		rr := m.peaks[i].Timestamp.Sub(m.peaks[i-1].Timestamp)
		if rr < m.minRR || rr > m.maxRR {
			return 0, false
		}
	}

	intervals := float64(len(m.peaks) - 1)
	return intervals / elapsed.Seconds() * 60.0, true
}

// Samples returns a copy of the current window buffer.
func (m *Monitor) Samples() []pipeline.Sample {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]pipeline.Sample, len(m.samples))
	copy(result, m.samples)
	return result
}

// Peaks returns a copy of the currently detected peaks.
func (m *Monitor) Peaks() []Peak {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Peak, len(m.peaks))
	copy(result, m.peaks)
	return result
}

// OnUpdate registers a callback invoked after each processed sample.
// The callback receives current samples, peaks and rate directly and
// should copy data quickly and return as fast as possible.
func (m *Monitor) OnUpdate(callback func(samples []pipeline.Sample, peaks []Peak, bpm float64, ok bool)) {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	m.callbacks = append(m.callbacks, callback)
}

// ResetShutdown resets the shutdown flag, allowing callbacks to be sent
// again. This should be called before starting a new measurement chain.
func (m *Monitor) ResetShutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdown = false
}

// notifyCallbacks invokes all registered callbacks with current data.
// Makes copies while holding the read lock, then calls callbacks
// without any lock held.
func (m *Monitor) notifyCallbacks() {
	m.mu.RLock()
	samplesCopy := make([]pipeline.Sample, len(m.samples))
	copy(samplesCopy, m.samples)
	peaksCopy := make([]Peak, len(m.peaks))
	copy(peaksCopy, m.peaks)
	bpm, ok := m.rateLocked()
	m.mu.RUnlock()

	m.cbMu.RLock()
	callbacks := make([]func(samples []pipeline.Sample, peaks []Peak, bpm float64, ok bool), len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.cbMu.RUnlock()

	for _, cb := range callbacks {
		if cb != nil {
			cb(samplesCopy, peaksCopy, bpm, ok)
		}
	}
}
