// Package stream publishes the conditioned waveform and heart rate
// reports over NATS for external consumers.
package stream

import (
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/itohio/goecg/pkg/config"
	"github.com/itohio/goecg/pkg/pipeline"
)

// DefaultBatchSize is the number of samples packed into one waveform
// message.
const DefaultBatchSize = 10

// Connect establishes a NATS connection that reconnects indefinitely.
func Connect(url string) (*nats.Conn, error) {
	return nats.Connect(
		url,
		nats.Name("goecg"),
		nats.Timeout(3*time.Second),
		nats.ReconnectWait(500*time.Millisecond),
		nats.MaxReconnects(-1),
	)
}

// Publisher publishes waveform batches and heart rate reports.
// Waveform messages carry the filtered signal as little endian float32
// on <subject>.waveform; rate reports go to <subject>.heart_rate as
// text lines.
type Publisher struct {
	nc      *nats.Conn
	subject string
	batch   []float32
}

// NewPublisher connects to the configured NATS server.
func NewPublisher(cfg *config.Config) (*Publisher, error) {
	nc, err := Connect(cfg.Stream.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.Stream.URL, err)
	}

	return &Publisher{
		nc:      nc,
		subject: cfg.Stream.Subject,
		batch:   make([]float32, 0, DefaultBatchSize),
	}, nil
}

// PublishSample buffers one sample, flushing a waveform message when
// the batch fills.
func (p *Publisher) PublishSample(s pipeline.Sample) {
	p.batch = append(p.batch, float32(s.Filtered))
	if len(p.batch) >= DefaultBatchSize {
		p.Flush()
	}
}

// Flush publishes any buffered samples immediately.
func (p *Publisher) Flush() {
	if len(p.batch) == 0 {
		return
	}

	if err := p.nc.Publish(p.subject+".waveform", encodeBatch(p.batch)); err != nil {
		log.Printf("Failed to publish waveform batch: %v", err)
	}
	p.batch = p.batch[:0]
}

// encodeBatch packs samples as little endian float32.
func encodeBatch(batch []float32) []byte {
	out := make([]byte, 4*len(batch))
	for i, v := range batch {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

// PublishRate publishes one heart rate report line.
func (p *Publisher) PublishRate(bpm float64, ok bool) {
	if err := p.nc.Publish(p.subject+".heart_rate", []byte(pipeline.FormatReport(bpm, ok))); err != nil {
		log.Printf("Failed to publish heart rate: %v", err)
	}
}

// Run drains the sample channel into waveform messages, returning when
// the channel closes.
func (p *Publisher) Run(in <-chan pipeline.Sample) {
	for s := range in {
		p.PublishSample(s)
	}
	p.Flush()
}

// Close flushes remaining samples and drains the connection.
func (p *Publisher) Close() {
	p.Flush()
	if err := p.nc.Drain(); err != nil {
		log.Printf("Failed to drain NATS connection: %v", err)
	}
}
