package stream

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeBatch(t *testing.T) {
	batch := []float32{0.0, 1.5, -0.25}
	out := encodeBatch(batch)

	require.Len(t, out, 12)
	for i, want := range batch {
		got := math.Float32frombits(binary.LittleEndian.Uint32(out[i*4:]))
		assert.Equal(t, want, got)
	}
}

func TestEncodeBatch_Empty(t *testing.T) {
	assert.Empty(t, encodeBatch(nil))
}
