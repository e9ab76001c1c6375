package pipeline

import (
	"fmt"
	"io"
	"log"
)

// FormatRecord renders one conditioned sample as a record line.
func FormatRecord(s Sample) string {
	return fmt.Sprintf("%.6f,%.6f\n", s.RawDC, s.Filtered)
}

// FormatReport renders a heart rate report line. When ok is false the
// rate is reported as unavailable rather than as zero.
func FormatReport(bpm float64, ok bool) string {
	if !ok {
		return "heart_rate=unavailable\n"
	}
	return fmt.Sprintf("heart_rate=%.1f\n", bpm)
}

// Emitter writes sample records and heart rate reports to an output
// stream. Write failures are logged and skipped so a broken sink never
// stalls the acquisition chain.
type Emitter struct {
	w io.Writer
}

func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{w: w}
}

// EmitSample writes one sample record line.
func (e *Emitter) EmitSample(s Sample) {
	if _, err := io.WriteString(e.w, FormatRecord(s)); err != nil {
		log.Printf("Failed to write sample record: %v", err)
	}
}

// EmitRate writes one heart rate report line.
func (e *Emitter) EmitRate(bpm float64, ok bool) {
	if _, err := io.WriteString(e.w, FormatReport(bpm, ok)); err != nil {
		log.Printf("Failed to write heart rate report: %v", err)
	}
}

// Run drains the sample channel into the output stream, returning when
// the channel closes.
func (e *Emitter) Run(in <-chan Sample) {
	for s := range in {
		e.EmitSample(s)
	}
}
