package ecg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    RawSample
		wantErr bool
	}{
		{
			name: "valid line - leads attached",
			line: "1234567890123,2048,00",
			want: RawSample{
				Timestamp: time.Unix(0, 1234567890123*1000),
				Reading:   2048,
				LeadOffP:  false,
				LeadOffN:  false,
			},
			wantErr: false,
		},
		{
			name: "valid line - positive electrode off",
			line: "1234567890123,2048,10",
			want: RawSample{
				Timestamp: time.Unix(0, 1234567890123*1000),
				Reading:   2048,
				LeadOffP:  true,
				LeadOffN:  false,
			},
			wantErr: false,
		},
		{
			name: "valid line - both electrodes off",
			line: "1234567890123,0,11",
			want: RawSample{
				Timestamp: time.Unix(0, 1234567890123*1000),
				Reading:   0,
				LeadOffP:  true,
				LeadOffN:  true,
			},
			wantErr: false,
		},
		{
			name: "valid line - max ADC value",
			line: "1234567890123,4095,01",
			want: RawSample{
				Timestamp: time.Unix(0, 1234567890123*1000),
				Reading:   4095,
				LeadOffP:  false,
				LeadOffN:  true,
			},
			wantErr: false,
		},
		{
			name:    "invalid - wrong number of fields",
			line:    "1234567890123,2048",
			wantErr: true,
		},
		{
			name:    "invalid - too many fields",
			line:    "1234567890123,2048,00,extra",
			wantErr: true,
		},
		{
			name:    "invalid - non-numeric timestamp",
			line:    "abc,2048,00",
			wantErr: true,
		},
		{
			name:    "invalid - non-numeric reading",
			line:    "1234567890123,abc,00",
			wantErr: true,
		},
		{
			name:    "invalid - reading out of range",
			line:    "1234567890123,5000,00",
			wantErr: true,
		},
		{
			name:    "invalid - lead-off field too short",
			line:    "1234567890123,2048,0",
			wantErr: true,
		},
		{
			name:    "invalid - lead-off field too long",
			line:    "1234567890123,2048,000",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLine(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRawSample_LeadOff(t *testing.T) {
	assert.False(t, RawSample{}.LeadOff())
	assert.True(t, RawSample{LeadOffP: true}.LeadOff())
	assert.True(t, RawSample{LeadOffN: true}.LeadOff())
	assert.True(t, RawSample{LeadOffP: true, LeadOffN: true}.LeadOff())
}

func TestSerial_NotConnected(t *testing.T) {
	d := New("/dev/null-port", 0, 0)

	assert.False(t, d.IsConnected())
	assert.Error(t, d.SetRunning(true), "commands require a connection")
	assert.NoError(t, d.Close(), "closing a disconnected device is a no-op")
}

func TestNew_Defaults(t *testing.T) {
	d := New("COM3", 0, 0)
	assert.Equal(t, DefaultBaudRate, d.baudRate)
	assert.Equal(t, DefaultBufferSize, d.bufSize)
	assert.Equal(t, DefaultBufferSize, cap(d.samples))
}
