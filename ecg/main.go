package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/goecg/pkg/config"
	"github.com/itohio/goecg/pkg/ecg"
	"github.com/itohio/goecg/pkg/hr"
	"github.com/itohio/goecg/pkg/pipeline"
	"github.com/itohio/goecg/pkg/scope"
	"github.com/itohio/goecg/pkg/stream"
)

func main() {
	var (
		portFlag   = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag   = flag.Bool("mock", false, "Use simulated device instead of serial port")
	)
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Override serial port if provided via command line
	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}

	// Refuse to start on unusable parameters
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Create Fyne application
	application := app.NewWithID("com.itohio.goecg")

	// Create main window
	window := application.NewWindow("ECG Monitor")
	window.Resize(fyne.NewSize(1200, 800))
	window.CenterOnScreen()

	// Create heart rate monitor
	monitor := hr.New(cfg)

	// Create application state
	appState := &appState{
		cfg:     cfg,
		device:  nil,
		monitor: monitor,
		window:  window,
		useMock: *mockFlag,
	}

	// Create toolbar
	toolbar := createToolbar(appState)

	// Create scope widget for trace display
	scopeWidget := scope.New(cfg)
	appState.scopeWidget = scopeWidget

	// Create border layout with toolbar at top and scope widget as content
	content := container.NewBorder(
		toolbar,
		nil,
		nil,
		nil,
		scopeWidget,
	)

	window.SetContent(content)
	window.ShowAndRun()
}

// measurementChain tracks the components of the measurement chain for graceful shutdown.
type measurementChain struct {
	device           ecg.Device
	rawSamples       <-chan ecg.RawSample
	rawSamplesForTee <-chan ecg.RawSample
	leadOffGoroutine chan struct{} // Closed when lead-off watcher exits
	samplesStream    <-chan pipeline.Sample
	monitorGoroutine chan struct{} // Closed when monitor goroutine exits
	reporterStop     chan struct{} // Closed to stop the reporter ticker
	reporterDone     chan struct{} // Closed when reporter goroutine exits
	publisher        *stream.Publisher
}

// appState holds the application state.
type appState struct {
	cfg         *config.Config
	device      ecg.Device
	monitor     *hr.Monitor
	scopeWidget *scope.ScopeWidget
	window      fyne.Window
	connectBtn  *widget.Button
	runBtn      *widget.Button
	leadOffIcon *widget.Label
	useMock     bool
	running     bool
	chain       *measurementChain // Current measurement chain (nil if not connected)

	// Throttling for scope updates
	lastUpdateTime time.Time
	updateMu       sync.Mutex
}

// createToolbar creates the application toolbar with Connect, Settings and
// Run buttons plus the lead-off indicator.
func createToolbar(state *appState) fyne.CanvasObject {
	connectBtn := widget.NewButtonWithIcon("", theme.LoginIcon(), func() {
		handleConnect(state)
	})
	state.connectBtn = connectBtn

	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(state)
	})

	runBtn := widget.NewButtonWithIcon("", theme.MediaPauseIcon(), func() {
		handleRunToggle(state)
	})
	runBtn.Disable()
	state.runBtn = runBtn

	leadOffIcon := widget.NewLabel("")
	state.leadOffIcon = leadOffIcon

	return container.NewBorder(
		nil, // top
		nil, // bottom
		container.NewHBox(connectBtn, settingsBtn, runBtn), // left
		leadOffIcon, // right
		nil,         // center (spacer)
	)
}

// handleRunToggle pauses or resumes acquisition on the connected device.
func handleRunToggle(state *appState) {
	if state.device == nil || !state.device.IsConnected() {
		return
	}

	state.running = !state.running
	if err := state.device.SetRunning(state.running); err != nil {
		dialog.ShowError(fmt.Errorf("failed to toggle acquisition: %w", err), state.window)
		state.running = !state.running
		return
	}

	if state.running {
		state.runBtn.SetIcon(theme.MediaPauseIcon())
	} else {
		state.runBtn.SetIcon(theme.MediaPlayIcon())
	}
}

// closeMeasurementChain gracefully closes the measurement chain.
// Waits for all goroutines to finish and channels to drain.
func closeMeasurementChain(chain *measurementChain) {
	if chain == nil {
		return
	}

	// Close device - this will close the rawSamples channel
	if chain.device != nil {
		chain.device.Close()
	}

	// Wait for lead-off watcher to finish
	if chain.leadOffGoroutine != nil {
		<-chain.leadOffGoroutine
	}

	// Wait for monitor goroutine to finish
	// The monitor goroutine will exit when samplesStream closes
	if chain.monitorGoroutine != nil {
		<-chain.monitorGoroutine
	}

	// Stop the reporter
	if chain.reporterStop != nil {
		close(chain.reporterStop)
		<-chain.reporterDone
	}

	if chain.publisher != nil {
		chain.publisher.Close()
	}
}

// handleConnect handles the connect/disconnect button click.
func handleConnect(state *appState) {
	if state.device != nil && state.device.IsConnected() {
		// Disconnect - gracefully close measurement chain
		closeMeasurementChain(state.chain)
		state.chain = nil
		state.device = nil
		state.running = false
		state.runBtn.Disable()
		state.leadOffIcon.SetText("")
		if state.useMock {
			fmt.Println("Disconnected from simulated device")
		} else {
			fmt.Println("Disconnected from serial port")
		}
		return
	}

	// Connect
	var device ecg.Device
	if state.useMock {
		device = ecg.NewMock(state.cfg)
		fmt.Println("Using simulated device")
	} else {
		device = ecg.New(state.cfg.Serial.Port, ecg.DefaultBaudRate, ecg.DefaultBufferSize)
	}

	if err := device.Connect(); err != nil {
		if state.useMock {
			dialog.ShowError(fmt.Errorf("failed to connect to simulated device: %w", err), state.window)
		} else {
			dialog.ShowError(fmt.Errorf("failed to connect to %s: %w", state.cfg.Serial.Port, err), state.window)
		}
		return
	}
	state.device = device
	state.running = true
	state.runBtn.Enable()
	state.runBtn.SetIcon(theme.MediaPauseIcon())
	if state.useMock {
		fmt.Printf("Connected to simulated device\n")
	} else {
		fmt.Printf("Connected to serial port: %s\n", state.cfg.Serial.Port)
	}

	// Reset monitor shutdown flag for new chain
	state.monitor.ResetShutdown()

	// Register callback with the monitor to update the scope widget
	// This must be done before starting the measurement chain
	// Throttle updates to ~60 FPS (16.67ms between updates) to ensure smooth UI
	const updateInterval = 16 * time.Millisecond // ~60 FPS
	state.monitor.OnUpdate(func(samples []pipeline.Sample, peaks []hr.Peak, bpm float64, ok bool) {
		// Throttle updates to prevent UI from being overwhelmed
		state.updateMu.Lock()
		now := time.Now()
		timeSinceLastUpdate := now.Sub(state.lastUpdateTime)
		state.updateMu.Unlock()

		if timeSinceLastUpdate < updateInterval {
			return
		}

		state.updateMu.Lock()
		state.lastUpdateTime = now
		state.updateMu.Unlock()

		// Update scope widget on main thread
		// Scope widget handles downsampling internally, so pass full data
		fyne.Do(func() {
			state.scopeWidget.UpdateData(samples, peaks, bpm, ok)
		})
	})

	// Optional NATS publishing
	var publisher *stream.Publisher
	if state.cfg.Stream.Enabled {
		var err error
		publisher, err = stream.NewPublisher(state.cfg)
		if err != nil {
			// Keep measuring locally even when the broker is unreachable
			log.Printf("NATS publishing disabled: %v", err)
			publisher = nil
		}
	}

	rawSamples := device.Samples()

	// Tee raw samples: one branch for the conditioning stage, one for the
	// lead-off indicator
	rawSamplesForStage, rawSamplesForLeadOff := teeChannel(rawSamples)

	// Track goroutines for graceful shutdown
	leadOffDone := make(chan struct{})
	monitorDone := make(chan struct{})
	reporterStop := make(chan struct{})
	reporterDone := make(chan struct{})

	// Update the lead-off indicator from raw samples (only when state changes)
	go func() {
		defer close(leadOffDone)
		last := false
		for raw := range rawSamplesForLeadOff {
			off := raw.LeadOff()
			if off == last {
				continue
			}
			last = off
			text := ""
			if off {
				text = "LEAD OFF"
			}
			fyne.Do(func() {
				state.leadOffIcon.SetText(text)
			})
		}
	}()

	// Conditioning stage: DC removal, filter chain, hold-last recovery
	// Increase buffer size to prevent channel full errors
	stage, err := pipeline.NewStage(state.cfg, 500)
	if err != nil {
		dialog.ShowError(fmt.Errorf("failed to build pipeline: %w", err), state.window)
		device.Close()
		state.device = nil
		return
	}
	samplesStream := stage(rawSamplesForStage)

	// Fan conditioned samples out to the record emitter, the optional
	// publisher and the heart rate monitor, preserving order
	emitter := pipeline.NewEmitter(os.Stdout)
	monitorStream := make(chan pipeline.Sample, 500)
	go func() {
		defer close(monitorStream)
		for s := range samplesStream {
			emitter.EmitSample(s)
			if publisher != nil {
				publisher.PublishSample(s)
			}
			monitorStream <- s
		}
	}()

	// Process samples through the heart rate monitor
	go func() {
		defer close(monitorDone)
		state.monitor.ProcessSamples(monitorStream)
	}()

	// Periodic heart rate reports
	go func() {
		defer close(reporterDone)
		ticker := time.NewTicker(state.cfg.HeartRate.ReportInterval)
		defer ticker.Stop()
		for {
			select {
			case <-reporterStop:
				return
			case <-ticker.C:
				bpm, ok := state.monitor.Rate()
				emitter.EmitRate(bpm, ok)
				if publisher != nil {
					publisher.PublishRate(bpm, ok)
				}
			}
		}
	}()

	// Store chain for graceful shutdown
	state.chain = &measurementChain{
		device:           device,
		rawSamples:       rawSamples,
		rawSamplesForTee: rawSamplesForStage,
		leadOffGoroutine: leadOffDone,
		samplesStream:    samplesStream,
		monitorGoroutine: monitorDone,
		reporterStop:     reporterStop,
		reporterDone:     reporterDone,
		publisher:        publisher,
	}
}

// teeChannel duplicates the input channel into two consumers. The first
// output carries every sample; the second is best effort and drops when
// its consumer falls behind, which is fine for the indicator.
func teeChannel(in <-chan ecg.RawSample) (<-chan ecg.RawSample, <-chan ecg.RawSample) {
	full := make(chan ecg.RawSample, 100)
	lossy := make(chan ecg.RawSample, 100)

	go func() {
		defer close(full)
		defer close(lossy)
		for s := range in {
			full <- s
			select {
			case lossy <- s:
			default:
			}
		}
	}()

	return full, lossy
}
