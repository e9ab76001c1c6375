package main

import (
	"fmt"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/goecg/pkg/config"
	"github.com/itohio/goecg/pkg/ecg"
	"github.com/itohio/goecg/pkg/hr"
)

// showSettingsDialog displays a settings dialog with tabs for all configuration options.
func showSettingsDialog(state *appState) {
	tabs := container.NewAppTabs(
		createSerialTab(state),
		createSamplingTab(state),
		createFiltersTab(state),
		createHeartRateTab(state),
		createMockTab(state),
		createStreamTab(state),
	)

	content := container.NewBorder(nil, nil, nil, nil, tabs)
	content.Resize(fyne.NewSize(600, 500))

	d := dialog.NewCustom("Settings", "Close", content, state.window)
	d.Resize(fyne.NewSize(600, 500))
	d.Show()
}

// saveConfig validates and persists the configuration, reporting errors
// through a dialog.
func saveConfig(state *appState) {
	if err := state.cfg.Validate(); err != nil {
		dialog.ShowError(fmt.Errorf("invalid configuration: %w", err), state.window)
		return
	}
	if err := state.cfg.Save("config.yaml"); err != nil {
		dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
	}
}

// createSerialTab creates the Serial configuration tab.
func createSerialTab(state *appState) *container.TabItem {
	// Get available serial ports
	ports, err := ecg.Ports()
	portOptions := []string{}
	portMap := make(map[string]string) // Map display name to actual port name

	if err == nil {
		for _, port := range ports {
			displayName := port.Name
			if port.Description != "" && port.Description != port.Name {
				displayName = fmt.Sprintf("%s (%s)", port.Name, port.Description)
			}
			portOptions = append(portOptions, displayName)
			portMap[displayName] = port.Name
		}
	}

	// Add current port if not in list
	currentPort := state.cfg.Serial.Port
	currentDisplay := currentPort
	found := false
	for _, opt := range portOptions {
		if portMap[opt] == currentPort {
			currentDisplay = opt
			found = true
			break
		}
	}
	if !found && currentPort != "" {
		portOptions = append(portOptions, currentPort)
		portMap[currentPort] = currentPort
		currentDisplay = currentPort
	}

	portSelect := widget.NewSelect(portOptions, func(selected string) {
		// Selection handler - will be called on submit
	})
	if currentDisplay != "" {
		portSelect.SetSelected(currentDisplay)
	}

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Serial Port", Widget: portSelect},
		},
		OnSubmit: func() {
			if portSelect.Selected == "" {
				return
			}
			selectedPort := portMap[portSelect.Selected]
			if selectedPort == "" {
				selectedPort = portSelect.Selected // Fallback to selected text
			}

			// Check if port changed and device is connected
			portChanged := state.cfg.Serial.Port != selectedPort
			wasConnected := state.device != nil && state.device.IsConnected()

			state.cfg.Serial.Port = selectedPort
			saveConfig(state)

			// If port changed and device was connected, restart the measurement chain
			if portChanged && wasConnected {
				closeMeasurementChain(state.chain)
				state.chain = nil
				state.device = nil

				// Reconnect with new port
				handleConnect(state)
			}
		},
	}

	return container.NewTabItem("Serial", form)
}

// createSamplingTab creates the Sampling configuration tab.
func createSamplingTab(state *appState) *container.TabItem {
	rateEntry := widget.NewEntry()
	rateEntry.SetText(fmt.Sprintf("%.0f", state.cfg.Sampling.RateHz))

	vrefEntry := widget.NewEntry()
	vrefEntry.SetText(fmt.Sprintf("%.2f", state.cfg.Sampling.VRef))

	dcWindowEntry := widget.NewEntry()
	dcWindowEntry.SetText(fmt.Sprintf("%d", state.cfg.Sampling.DCWindow))

	maxHoldEntry := widget.NewEntry()
	maxHoldEntry.SetText(fmt.Sprintf("%d", state.cfg.Sampling.MaxHoldTicks))

	gainEntry := widget.NewEntry()
	gainEntry.SetText(fmt.Sprintf("%.2f", state.cfg.Sampling.Gain))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Sample Rate (Hz)", Widget: rateEntry},
			{Text: "VRef (V)", Widget: vrefEntry},
			{Text: "DC Window (samples)", Widget: dcWindowEntry},
			{Text: "Max Hold Ticks", Widget: maxHoldEntry},
			{Text: "Gain", Widget: gainEntry},
		},
		OnSubmit: func() {
			if rate, err := strconv.ParseFloat(rateEntry.Text, 64); err == nil {
				state.cfg.Sampling.RateHz = rate
			}
			if vref, err := strconv.ParseFloat(vrefEntry.Text, 64); err == nil {
				state.cfg.Sampling.VRef = vref
			}
			if dw, err := strconv.Atoi(dcWindowEntry.Text); err == nil {
				state.cfg.Sampling.DCWindow = dw
			}
			if mh, err := strconv.Atoi(maxHoldEntry.Text); err == nil {
				state.cfg.Sampling.MaxHoldTicks = mh
			}
			if g, err := strconv.ParseFloat(gainEntry.Text, 64); err == nil {
				state.cfg.Sampling.Gain = g
			}
			saveConfig(state)
		},
	}

	return container.NewTabItem("Sampling", form)
}

// createFiltersTab creates the filter chain configuration tab.
// One row of controls per configured second-order section.
func createFiltersTab(state *appState) *container.TabItem {
	items := make([]*widget.FormItem, 0, len(state.cfg.Filters)*3)
	typeSelects := make([]*widget.Select, len(state.cfg.Filters))
	freqEntries := make([]*widget.Entry, len(state.cfg.Filters))
	qEntries := make([]*widget.Entry, len(state.cfg.Filters))

	filterTypes := []string{config.FilterNotch, config.FilterHighpass, config.FilterLowpass}

	for i, f := range state.cfg.Filters {
		typeSelect := widget.NewSelect(filterTypes, nil)
		typeSelect.SetSelected(f.Type)
		typeSelects[i] = typeSelect

		freqEntry := widget.NewEntry()
		freqEntry.SetText(fmt.Sprintf("%.1f", f.Frequency))
		freqEntries[i] = freqEntry

		qEntry := widget.NewEntry()
		qEntry.SetText(fmt.Sprintf("%.3f", f.Q))
		qEntries[i] = qEntry

		items = append(items,
			&widget.FormItem{Text: fmt.Sprintf("Filter %d Type", i+1), Widget: typeSelect},
			&widget.FormItem{Text: fmt.Sprintf("Filter %d Frequency (Hz)", i+1), Widget: freqEntry},
			&widget.FormItem{Text: fmt.Sprintf("Filter %d Q", i+1), Widget: qEntry},
		)
	}

	form := &widget.Form{
		Items: items,
		OnSubmit: func() {
			for i := range state.cfg.Filters {
				if typeSelects[i].Selected != "" {
					state.cfg.Filters[i].Type = typeSelects[i].Selected
				}
				if freq, err := strconv.ParseFloat(freqEntries[i].Text, 64); err == nil {
					state.cfg.Filters[i].Frequency = freq
				}
				if q, err := strconv.ParseFloat(qEntries[i].Text, 64); err == nil {
					state.cfg.Filters[i].Q = q
				}
			}
			saveConfig(state)
		},
	}

	return container.NewTabItem("Filters", form)
}

// createHeartRateTab creates the heart rate detection configuration tab.
func createHeartRateTab(state *appState) *container.TabItem {
	windowEntry := widget.NewEntry()
	windowEntry.SetText(fmt.Sprintf("%.1f", state.cfg.HeartRate.WindowSeconds))

	refractoryEntry := widget.NewEntry()
	refractoryEntry.SetText(state.cfg.HeartRate.Refractory.String())

	thresholdEntry := widget.NewEntry()
	thresholdEntry.SetText(fmt.Sprintf("%.2f", state.cfg.HeartRate.ThresholdRatio))

	minAmplitudeEntry := widget.NewEntry()
	minAmplitudeEntry.SetText(fmt.Sprintf("%.3f", state.cfg.HeartRate.MinAmplitude))

	slopeEntry := widget.NewEntry()
	slopeEntry.SetText(fmt.Sprintf("%.3f", state.cfg.HeartRate.SlopeThreshold))

	reportEntry := widget.NewEntry()
	reportEntry.SetText(state.cfg.HeartRate.ReportInterval.String())

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Window (seconds)", Widget: windowEntry},
			{Text: "Refractory Period", Widget: refractoryEntry},
			{Text: "Threshold Ratio", Widget: thresholdEntry},
			{Text: "Min Amplitude (V)", Widget: minAmplitudeEntry},
			{Text: "Slope Threshold (V)", Widget: slopeEntry},
			{Text: "Report Interval", Widget: reportEntry},
		},
		OnSubmit: func() {
			if ws, err := strconv.ParseFloat(windowEntry.Text, 64); err == nil {
				state.cfg.HeartRate.WindowSeconds = ws
			}
			if rf, err := time.ParseDuration(refractoryEntry.Text); err == nil {
				state.cfg.HeartRate.Refractory = rf
			}
			if tr, err := strconv.ParseFloat(thresholdEntry.Text, 64); err == nil {
				state.cfg.HeartRate.ThresholdRatio = tr
			}
			if ma, err := strconv.ParseFloat(minAmplitudeEntry.Text, 64); err == nil {
				state.cfg.HeartRate.MinAmplitude = ma
			}
			if st, err := strconv.ParseFloat(slopeEntry.Text, 64); err == nil {
				state.cfg.HeartRate.SlopeThreshold = st
			}
			if ri, err := time.ParseDuration(reportEntry.Text); err == nil {
				state.cfg.HeartRate.ReportInterval = ri
			}
			saveConfig(state)
			// Recreate monitor with new config
			state.monitor = hr.New(state.cfg)
		},
	}

	return container.NewTabItem("Heart Rate", form)
}

// createMockTab creates the simulated device configuration tab.
func createMockTab(state *appState) *container.TabItem {
	heartRateEntry := widget.NewEntry()
	heartRateEntry.SetText(fmt.Sprintf("%.0f", state.cfg.Mock.HeartRate))

	amplitudeEntry := widget.NewEntry()
	amplitudeEntry.SetText(fmt.Sprintf("%.2f", state.cfg.Mock.Amplitude))

	baselineEntry := widget.NewEntry()
	baselineEntry.SetText(fmt.Sprintf("%.3f", state.cfg.Mock.Baseline))

	noiseLevelEntry := widget.NewEntry()
	noiseLevelEntry.SetText(fmt.Sprintf("%.6f", state.cfg.Mock.NoiseLevel))

	mainsAmplitudeEntry := widget.NewEntry()
	mainsAmplitudeEntry.SetText(fmt.Sprintf("%.3f", state.cfg.Mock.MainsAmplitude))

	mainsFrequencyEntry := widget.NewEntry()
	mainsFrequencyEntry.SetText(fmt.Sprintf("%.0f", state.cfg.Mock.MainsFrequency))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Heart Rate (BPM)", Widget: heartRateEntry},
			{Text: "Amplitude (V)", Widget: amplitudeEntry},
			{Text: "Baseline (V)", Widget: baselineEntry},
			{Text: "Noise Level (V)", Widget: noiseLevelEntry},
			{Text: "Mains Amplitude (V)", Widget: mainsAmplitudeEntry},
			{Text: "Mains Frequency (Hz)", Widget: mainsFrequencyEntry},
		},
		OnSubmit: func() {
			if bpm, err := strconv.ParseFloat(heartRateEntry.Text, 64); err == nil {
				state.cfg.Mock.HeartRate = bpm
			}
			if a, err := strconv.ParseFloat(amplitudeEntry.Text, 64); err == nil {
				state.cfg.Mock.Amplitude = a
			}
			if b, err := strconv.ParseFloat(baselineEntry.Text, 64); err == nil {
				state.cfg.Mock.Baseline = b
			}
			if nl, err := strconv.ParseFloat(noiseLevelEntry.Text, 64); err == nil {
				state.cfg.Mock.NoiseLevel = nl
			}
			if ma, err := strconv.ParseFloat(mainsAmplitudeEntry.Text, 64); err == nil {
				state.cfg.Mock.MainsAmplitude = ma
			}
			if mf, err := strconv.ParseFloat(mainsFrequencyEntry.Text, 64); err == nil {
				state.cfg.Mock.MainsFrequency = mf
			}
			saveConfig(state)
		},
	}

	return container.NewTabItem("Mock", form)
}

// createStreamTab creates the NATS streaming configuration tab.
func createStreamTab(state *appState) *container.TabItem {
	enabledCheck := widget.NewCheck("Publish to NATS", nil)
	enabledCheck.SetChecked(state.cfg.Stream.Enabled)

	urlEntry := widget.NewEntry()
	urlEntry.SetText(state.cfg.Stream.URL)

	subjectEntry := widget.NewEntry()
	subjectEntry.SetText(state.cfg.Stream.Subject)

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Enabled", Widget: enabledCheck},
			{Text: "Server URL", Widget: urlEntry},
			{Text: "Subject Prefix", Widget: subjectEntry},
		},
		OnSubmit: func() {
			state.cfg.Stream.Enabled = enabledCheck.Checked
			if urlEntry.Text != "" {
				state.cfg.Stream.URL = urlEntry.Text
			}
			if subjectEntry.Text != "" {
				state.cfg.Stream.Subject = subjectEntry.Text
			}
			saveConfig(state)
		},
	}

	return container.NewTabItem("Stream", form)
}
