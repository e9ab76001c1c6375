package pipeline

import (
	"fmt"
	"math"
	"time"

	"github.com/itohio/goecg/pkg/config"
	"github.com/itohio/goecg/pkg/dsp"
	"github.com/itohio/goecg/pkg/ecg"
)

// Sample represents one conditioned measurement tick.
type Sample struct {
	Timestamp time.Time
	RawDC     float64 // Raw voltage with the DC component removed (V)
	Filtered  float64 // Filter chain output after calibration gain (V)
	LeadOff   bool    // Electrode detached during this tick
	Valid     bool    // False once hold-last recovery is exhausted
}

// Stage is a function type that converts RawSample channel to Sample channel.
type Stage func(in <-chan ecg.RawSample) <-chan Sample

// Processor conditions one sample per tick: DC removal followed by the
// cascaded second-order sections, with hold-last recovery for faulty
// acquisition ticks. All buffers and filter state are sized at
// construction; Process never allocates.
type Processor struct {
	dc    *dsp.Remover
	chain *dsp.Chain

	vref    float64
	gain    float64
	maxHold int

	lastValid float64
	haveValid bool
	holdCount int
}

// NewProcessor builds the conditioning pipeline from configuration.
// Invalid filter design parameters are rejected here, before any sample
// is processed.
func NewProcessor(cfg *config.Config) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	coeffs := make([]dsp.Coefficients, 0, len(cfg.Filters))
	for i, f := range cfg.Filters {
		var (
			c   dsp.Coefficients
			err error
		)
		switch f.Type {
		case config.FilterNotch:
			c, err = dsp.DesignNotch(f.Frequency, f.Q, cfg.Sampling.RateHz)
		case config.FilterHighpass:
			c, err = dsp.DesignHighpass(f.Frequency, f.Q, cfg.Sampling.RateHz)
		case config.FilterLowpass:
			c, err = dsp.DesignLowpass(f.Frequency, f.Q, cfg.Sampling.RateHz)
		default:
			err = fmt.Errorf("unknown filter type %q", f.Type)
		}
		if err != nil {
			return nil, fmt.Errorf("filter %d: %w", i, err)
		}
		coeffs = append(coeffs, c)
	}

	return &Processor{
		dc:      dsp.NewRemover(cfg.Sampling.DCWindow),
		chain:   dsp.NewChain(coeffs),
		vref:    cfg.Sampling.VRef,
		gain:    cfg.Sampling.Gain,
		maxHold: cfg.Sampling.MaxHoldTicks,
	}, nil
}

// Process conditions one raw device sample.
func (p *Processor) Process(raw ecg.RawSample) Sample {
	v := adcToVoltage(raw.Reading, p.vref)
	s := p.ProcessVoltage(raw.Timestamp, v)
	s.LeadOff = raw.LeadOff()
	return s
}

// ProcessVoltage conditions one raw voltage reading. A non-finite input
// is an acquisition fault: the last valid voltage is substituted for at
// most maxHold consecutive ticks, after which the tick is marked
// invalid. Either way a sample is always produced, so the output stream
// never stalls.
func (p *Processor) ProcessVoltage(ts time.Time, v float64) Sample {
	valid := true

	if math.IsNaN(v) || math.IsInf(v, 0) {
		p.holdCount++
		if !p.haveValid || p.holdCount > p.maxHold {
			valid = false
		}
		v = p.lastValid // Zero before the first valid sample
	} else {
		p.holdCount = 0
		p.lastValid = v
		p.haveValid = true
	}

	rawDC := p.dc.Process(v)
	filtered := p.chain.ProcessSample(rawDC) * p.gain

	return Sample{
		Timestamp: ts,
		RawDC:     rawDC,
		Filtered:  filtered,
		Valid:     valid,
	}
}

// Reset clears the DC buffer, filter state and hold-last history, as on
// pipeline restart.
func (p *Processor) Reset() {
	p.dc.Reset()
	p.chain.Reset()
	p.lastValid = 0
	p.haveValid = false
	p.holdCount = 0
}

// NewStage creates a channel stage that conditions raw device samples.
// It owns a Processor; the returned stage closes its output when the
// input closes.
func NewStage(cfg *config.Config, bufSize int) (Stage, error) {
	p, err := NewProcessor(cfg)
	if err != nil {
		return nil, err
	}
	if bufSize <= 0 {
		bufSize = 100
	}

	return func(in <-chan ecg.RawSample) <-chan Sample {
		out := make(chan Sample, bufSize)

		go func() {
			defer close(out)

			for raw := range in {
				out <- p.Process(raw)
			}
		}()

		return out
	}, nil
}

// adcToVoltage converts a 12-bit ADC reading to voltage.
func adcToVoltage(adc uint16, vref float64) float64 {
	return (float64(adc) / 4095.0) * vref
}
