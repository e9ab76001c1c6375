//go:build tinygo

package main

import "machine"

const (
	// Sampling configuration
	SAMPLE_INTERVAL_US = 4000 // ADC read interval in microseconds (250 Hz)

	// ADC configuration
	ADC_REFERENCE_MV = 3300 // Reference voltage in millivolts (3.3V)
	ADC_RESOLUTION   = 12   // ADC resolution in bits (12-bit = 0-4095)

	// AD8232 pins
	PIN_ECG_ADC  = machine.A1 // OUTPUT pin of the front end
	PIN_LO_PLUS  = machine.D7 // LO+ lead-off detect
	PIN_LO_MINUS = machine.D8 // LO- lead-off detect

	// Serial configuration
	// Baud rate calculation: Format "unix_micros,reading,ll\n"
	// Example: "1234567890123456,4095,11\n" = ~26 bytes max per line
	// 250 lines/sec * 26 bytes/line = 6,500 bytes/sec
	// UART 8N1: 10 bits/byte = 65,000 baud minimum with no headroom
	// 115200 provides ~1.7x headroom (11,520 bytes/sec max / 6,500 bytes/sec required)
	UART_BAUD_RATE = 115200
)
