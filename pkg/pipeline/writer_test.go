package pipeline

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatRecord(t *testing.T) {
	s := Sample{RawDC: 0.123456789, Filtered: -0.5}
	assert.Equal(t, "0.123457,-0.500000\n", FormatRecord(s))
}

func TestFormatReport(t *testing.T) {
	assert.Equal(t, "heart_rate=75.0\n", FormatReport(75.0, true))
	assert.Equal(t, "heart_rate=74.6\n", FormatReport(74.62, true))
	assert.Equal(t, "heart_rate=unavailable\n", FormatReport(0, false))
	// ok=false wins even if a stale rate is passed in.
	assert.Equal(t, "heart_rate=unavailable\n", FormatReport(75.0, false))
}

func TestEmitter_WritesRecords(t *testing.T) {
	var buf bytes.Buffer
	e := NewEmitter(&buf)

	e.EmitSample(Sample{RawDC: 1.0, Filtered: 2.0})
	e.EmitRate(60.0, true)
	e.EmitRate(0, false)

	assert.Equal(t, "1.000000,2.000000\nheart_rate=60.0\nheart_rate=unavailable\n", buf.String())
}

type failingWriter struct {
	calls int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	w.calls++
	return 0, errors.New("sink gone")
}

func TestEmitter_ContinuesAfterWriteError(t *testing.T) {
	w := &failingWriter{}
	e := NewEmitter(w)

	// Errors are logged and skipped, never panic or stall.
	e.EmitSample(Sample{})
	e.EmitRate(75.0, true)

	assert.Equal(t, 2, w.calls)
}

func TestEmitter_Run(t *testing.T) {
	var buf bytes.Buffer
	e := NewEmitter(&buf)

	in := make(chan Sample, 3)
	in <- Sample{RawDC: 1, Filtered: 1}
	in <- Sample{RawDC: 2, Filtered: 2}
	close(in)

	e.Run(in)

	assert.Equal(t, "1.000000,1.000000\n2.000000,2.000000\n", buf.String())
}
