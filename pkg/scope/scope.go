package scope

import (
	"image/color"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/goecg/pkg/config"
	"github.com/itohio/goecg/pkg/hr"
	"github.com/itohio/goecg/pkg/pipeline"
)

// ScopeWidget is a custom Fyne widget that displays the ECG traces
// oscilloscope-style: the DC-removed raw signal, the filtered signal,
// detected R-peaks and the current heart rate.
type ScopeWidget struct {
	widget.BaseWidget

	cfg *config.Config

	// Data (protected by mu)
	mu      sync.RWMutex
	samples []pipeline.Sample
	peaks   []hr.Peak
	bpm     float64
	rateOK  bool

	// Display buffer (reused for downsampling)
	displaySamples []pipeline.Sample

	// Auto-scaling
	yMin, yMax float64
	xMin, xMax time.Time

	// Display settings
	maxDisplayPoints int
}

// New creates a new ScopeWidget instance.
func New(cfg *config.Config) *ScopeWidget {
	s := &ScopeWidget{
		cfg:              cfg,
		samples:          make([]pipeline.Sample, 0),
		peaks:            make([]hr.Peak, 0),
		displaySamples:   make([]pipeline.Sample, 0, 1000),
		maxDisplayPoints: 1000, // Limit points for efficient rendering
	}
	s.ExtendBaseWidget(s)
	// Trigger initial refresh to display empty scope
	s.Refresh()
	return s
}

// UpdateData updates the widget with new measurement data.
// This should be called from the monitor callback using fyne.Do().
func (s *ScopeWidget) UpdateData(samples []pipeline.Sample, peaks []hr.Peak, bpm float64, rateOK bool) {
	s.mu.Lock()

	// Downsample for display (reuse buffer)
	s.displaySamples = pipeline.Downsample(s.displaySamples, samples, s.maxDisplayPoints)

	// Store full data; peak indices refer to the full sample buffer
	s.samples = samples
	s.peaks = peaks
	s.bpm = bpm
	s.rateOK = rateOK

	s.updateAutoScale()

	s.mu.Unlock()

	// Refresh the widget (must be outside lock to avoid potential deadlock)
	s.Refresh()
}

// updateAutoScale calculates Y-axis range from current data.
func (s *ScopeWidget) updateAutoScale() {
	if len(s.displaySamples) == 0 {
		s.yMin = -1.0
		s.yMax = 1.0
		s.xMin = time.Now()
		s.xMax = time.Now().Add(time.Duration(s.cfg.HeartRate.WindowSeconds * float64(time.Second)))
		return
	}

	// Find min/max over both traces
	s.yMin = s.displaySamples[0].RawDC
	s.yMax = s.displaySamples[0].RawDC
	for _, smp := range s.displaySamples {
		for _, v := range [2]float64{smp.RawDC, smp.Filtered} {
			if v < s.yMin {
				s.yMin = v
			}
			if v > s.yMax {
				s.yMax = v
			}
		}
	}

	// Add 10% margin
	range_ := s.yMax - s.yMin
	if range_ == 0 {
		range_ = 1.0
	}
	margin := range_ * 0.1
	s.yMin -= margin
	s.yMax += margin

	// Time range
	s.xMin = s.displaySamples[0].Timestamp
	s.xMax = s.displaySamples[len(s.displaySamples)-1].Timestamp
	window := time.Duration(s.cfg.HeartRate.WindowSeconds * float64(time.Second))
	if s.xMax.Sub(s.xMin) < window {
		s.xMax = s.xMin.Add(window)
	}
}

// CreateRenderer creates the widget renderer.
func (s *ScopeWidget) CreateRenderer() fyne.WidgetRenderer {
	grid := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255}) // Dark background
	return &scopeRenderer{
		scope:    s,
		grid:     grid,
		objects:  []fyne.CanvasObject{grid},
		lastSize: fyne.Size{Width: 0, Height: 0},
	}
}
