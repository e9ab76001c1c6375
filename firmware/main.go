//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"machine"
	"time"
)

var (
	adcECG machine.ADC
	uart   = machine.UART0

	// Acquisition state
	running = true

	// Timing
	lastADCRead time.Time
)

func main() {
	// Configure lead-off detect pins as inputs
	PIN_LO_PLUS.Configure(machine.PinConfig{Mode: machine.PinInput})
	PIN_LO_MINUS.Configure(machine.PinConfig{Mode: machine.PinInput})

	// Configure ADC pin with highest resolution
	PIN_ECG_ADC.Configure(machine.PinConfig{Mode: machine.PinInput})

	adcECG = machine.ADC{Pin: PIN_ECG_ADC}
	adcECG.Configure(machine.ADCConfig{
		Reference:  ADC_REFERENCE_MV,
		Resolution: ADC_RESOLUTION,
	})

	// Configure UART for the sample stream and run/stop control
	uart.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	print("goecg firmware ")
	print(SAMPLE_INTERVAL_US)
	print("us/sample\n")

	// Initialize timing
	lastADCRead = time.Now()

	// Main loop
	for {
		now := time.Now()

		// Check for serial input (non-blocking)
		processSerial()

		// Sample at a strict period; a late tick does not shift the next one
		if running && now.Sub(lastADCRead) >= time.Duration(SAMPLE_INTERVAL_US)*time.Microsecond {
			outputSample(now)
			lastADCRead = lastADCRead.Add(time.Duration(SAMPLE_INTERVAL_US) * time.Microsecond)
			if now.Sub(lastADCRead) > time.Duration(SAMPLE_INTERVAL_US)*time.Microsecond {
				// Fell too far behind, resynchronize
				lastADCRead = now
			}
		}

		// Small delay to prevent tight loop (but still allow precise timing)
		time.Sleep(100 * time.Microsecond)
	}
}

// outputSample reads the ADC and lead-off pins and writes one line.
// Format: "unix_micros,reading,ll\n" where ll is LO+ and LO- as digits.
// Example: "1234567890123,2048,00\n"
func outputSample(now time.Time) {
	value := adcECG.Get()
	timestampMicros := now.UnixNano() / 1000 // Convert nanoseconds to microseconds

	print(timestampMicros)
	print(",")
	print(value)
	print(",")
	if PIN_LO_PLUS.Get() {
		print("1")
	} else {
		print("0")
	}
	if PIN_LO_MINUS.Get() {
		print("1")
	} else {
		print("0")
	}
	print("\n")
}

// processSerial handles run/stop commands: a line containing '1' starts
// acquisition, '0' stops it. Anything else is ignored.
func processSerial() {
	for uart.Buffered() > 0 {
		data, err := uart.ReadByte()
		if err != nil {
			break
		}

		switch data {
		case '1':
			running = true
		case '0':
			running = false
		case '\n', '\r', ' ', '\t':
			// Ignore line endings and whitespace
		default:
			// Invalid character - ignore
		}
	}
}
