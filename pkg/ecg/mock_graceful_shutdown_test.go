package ecg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestMock_GracefulShutdown tests that the Mock device closes its
// samples channel when Close() is called.
func TestMock_GracefulShutdown(t *testing.T) {
	cfg := mockConfig()
	cfg.Sampling.RateHz = 1000 // Fast ticks so the test finishes quickly

	mock := NewMock(cfg)
	err := mock.Connect()
	assert.NoError(t, err)

	samples := mock.Samples()

	// Read a few samples
	received := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range samples {
			received++
			if received >= 3 {
				// Got enough samples, now close device
				mock.Close()
			}
		}
	}()

	// Wait for samples and channel closure
	select {
	case <-done:
		// Channel closed successfully
	case <-time.After(5 * time.Second):
		t.Fatal("Samples channel did not close within timeout")
	}

	// Should have received at least a few samples
	assert.GreaterOrEqual(t, received, 3, "Should receive samples before channel closes")

	// Verify channel is closed
	_, ok := <-samples
	assert.False(t, ok, "Channel should be closed")
}

// TestMock_CloseWhileGenerating closes the device repeatedly while the
// generator is mid-send. The generator owns the samples channel, so a
// close must never coincide with a send; any ordering violation shows
// up as a send-on-closed-channel panic here.
func TestMock_CloseWhileGenerating(t *testing.T) {
	for i := 0; i < 50; i++ {
		cfg := mockConfig()
		cfg.Sampling.RateHz = 10000 // Tick as fast as possible

		mock := NewMock(cfg)
		assert.NoError(t, mock.Connect())

		samples := mock.Samples()

		// Wait until the generator is actively producing, then close
		// from this goroutine while sends are in flight.
		select {
		case <-samples:
		case <-time.After(time.Second):
			t.Fatal("No sample produced")
		}
		assert.NoError(t, mock.Close())

		// The channel must still drain and close cleanly.
		deadline := time.After(time.Second)
		for open := true; open; {
			select {
			case _, ok := <-samples:
				open = ok
			case <-deadline:
				t.Fatal("Samples channel did not close after Close")
			}
		}
	}
}
