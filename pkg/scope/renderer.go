package scope

import (
	"image/color"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"github.com/chewxy/math32"

	"github.com/itohio/goecg/pkg/hr"
	"github.com/itohio/goecg/pkg/pipeline"
)

// scopeRenderer renders the scope widget.
type scopeRenderer struct {
	scope *ScopeWidget

	// Background
	grid *canvas.Rectangle

	// Peak markers (vertical lines) and labels
	peakLines  []*canvas.Line
	peakLabels []*canvas.Text

	// Heart rate label
	rateLabel *canvas.Text

	// Grid lines
	gridLines []*canvas.Line
	gridTexts []*canvas.Text

	// Objects list for Fyne
	objects []fyne.CanvasObject

	// Track last size to detect changes
	lastSize fyne.Size
}

// MinSize returns the minimum size of the widget.
func (r *scopeRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 300)
}

// Layout arranges the widget components.
func (r *scopeRenderer) Layout(size fyne.Size) {
	// Background fills entire widget
	r.grid.Resize(size)

	if r.lastSize.Width != size.Width || r.lastSize.Height != size.Height {
		r.lastSize = size
		// Size changed, trigger widget refresh to redraw with new dimensions
		r.scope.BaseWidget.Refresh()
	}
}

// Refresh updates the widget display.
func (r *scopeRenderer) Refresh() {
	r.scope.mu.RLock()
	samples := r.scope.displaySamples
	peaks := r.scope.peaks
	bpm := r.scope.bpm
	rateOK := r.scope.rateOK
	yMin := r.scope.yMin
	yMax := r.scope.yMax
	xMin := r.scope.xMin
	xMax := r.scope.xMax
	r.scope.mu.RUnlock()

	size := r.scope.Size()
	if size.Width == 0 || size.Height == 0 {
		return
	}

	// Clear old objects (but keep grid)
	r.objects = []fyne.CanvasObject{r.grid}
	r.gridLines = r.gridLines[:0]
	r.gridTexts = r.gridTexts[:0]
	r.peakLines = r.peakLines[:0]
	r.peakLabels = r.peakLabels[:0]
	r.rateLabel = nil

	// Calculate margins
	marginLeft := float32(60.0)
	marginRight := float32(20.0)
	marginTop := float32(20.0)
	marginBottom := float32(40.0)

	plotWidth := size.Width - marginLeft - marginRight
	plotHeight := size.Height - marginTop - marginBottom
	plotX := marginLeft
	plotY := marginTop

	r.drawGrid(plotX, plotY, plotWidth, plotHeight, yMin, yMax, xMin, xMax)

	// Draw raw DC-removed trace (orange)
	if len(samples) > 1 {
		r.drawTrace(plotX, plotY, plotWidth, plotHeight, samples, yMin, yMax, xMin, xMax,
			func(s pipeline.Sample) float64 { return s.RawDC },
			color.RGBA{R: 255, G: 165, B: 0, A: 255}, 1.5)
	}

	// Draw filtered trace (light blue, thicker)
	if len(samples) > 1 {
		r.drawTrace(plotX, plotY, plotWidth, plotHeight, samples, yMin, yMax, xMin, xMax,
			func(s pipeline.Sample) float64 { return s.Filtered },
			color.RGBA{R: 100, G: 200, B: 255, A: 255}, 2.5)
	}

	// Draw R-peak markers (dark blue vertical lines)
	r.drawPeaks(plotX, plotY, plotWidth, plotHeight, peaks, yMin, yMax, xMin, xMax)

	// Draw heart rate indicator
	r.drawRate(plotX, plotY, bpm, rateOK)
}

// drawGrid draws the oscilloscope-style grid.
func (r *scopeRenderer) drawGrid(plotX, plotY, plotWidth, plotHeight float32, yMin, yMax float64, xMin, xMax time.Time) {
	// Horizontal grid lines (voltage)
	numHLines := 8
	for i := 0; i < numHLines+1; i++ {
		y := plotY + float32(i)*plotHeight/float32(numHLines)
		line := canvas.NewLine(color.RGBA{R: 40, G: 40, B: 40, A: 255})
		line.Position1 = fyne.NewPos(plotX, y)
		line.Position2 = fyne.NewPos(plotX+plotWidth, y)
		line.StrokeWidth = 1
		r.gridLines = append(r.gridLines, line)
		r.objects = append(r.objects, line)

		// Y-axis label
		value := yMax - float64(i)*(yMax-yMin)/float64(numHLines)
		text := canvas.NewText(formatVoltage(float32(value)), color.RGBA{R: 150, G: 150, B: 150, A: 255})
		text.TextSize = 10
		text.Alignment = fyne.TextAlignTrailing
		text.Move(fyne.NewPos(plotX-5, y-6))
		r.gridTexts = append(r.gridTexts, text)
		r.objects = append(r.objects, text)
	}

	// Vertical grid lines (time)
	numVLines := 10
	for i := 0; i < numVLines+1; i++ {
		x := plotX + float32(i)*plotWidth/float32(numVLines)
		line := canvas.NewLine(color.RGBA{R: 40, G: 40, B: 40, A: 255})
		line.Position1 = fyne.NewPos(x, plotY)
		line.Position2 = fyne.NewPos(x, plotY+plotHeight)
		line.StrokeWidth = 1
		r.gridLines = append(r.gridLines, line)
		r.objects = append(r.objects, line)

		// X-axis label
		timeOffset := float64(i) * xMax.Sub(xMin).Seconds() / float64(numVLines)
		text := canvas.NewText(formatTime(time.Duration(timeOffset*float64(time.Second))), color.RGBA{R: 150, G: 150, B: 150, A: 255})
		text.TextSize = 10
		text.Alignment = fyne.TextAlignCenter
		text.Move(fyne.NewPos(x-20, plotY+plotHeight+5))
		r.gridTexts = append(r.gridTexts, text)
		r.objects = append(r.objects, text)
	}
}

// drawTrace draws one signal trace as connected line segments.
func (r *scopeRenderer) drawTrace(plotX, plotY, plotWidth, plotHeight float32, samples []pipeline.Sample, yMin, yMax float64, xMin, xMax time.Time, value func(pipeline.Sample) float64, clr color.RGBA, strokeWidth float32) {
	if len(samples) < 2 {
		return
	}

	points := make([]fyne.Position, 0, len(samples))
	for _, s := range samples {
		x := plotX + float32(s.Timestamp.Sub(xMin).Seconds()/xMax.Sub(xMin).Seconds())*plotWidth
		y := plotY + plotHeight - float32((value(s)-yMin)/(yMax-yMin))*plotHeight
		points = append(points, fyne.NewPos(x, y))
	}

	for i := 0; i < len(points)-1; i++ {
		line := canvas.NewLine(clr)
		line.Position1 = points[i]
		line.Position2 = points[i+1]
		line.StrokeWidth = strokeWidth
		r.objects = append(r.objects, line)
	}
}

// drawPeaks draws a vertical marker and amplitude label per R-peak.
func (r *scopeRenderer) drawPeaks(plotX, plotY, plotWidth, plotHeight float32, peaks []hr.Peak, yMin, yMax float64, xMin, xMax time.Time) {
	for _, p := range peaks {
		if p.Timestamp.Before(xMin) || p.Timestamp.After(xMax) {
			continue
		}

		x := plotX + float32(p.Timestamp.Sub(xMin).Seconds()/xMax.Sub(xMin).Seconds())*plotWidth

		line := canvas.NewLine(color.RGBA{R: 0, G: 100, B: 200, A: 255}) // Dark blue
		line.Position1 = fyne.NewPos(x, plotY)
		line.Position2 = fyne.NewPos(x, plotY+plotHeight)
		line.StrokeWidth = 1
		r.peakLines = append(r.peakLines, line)
		r.objects = append(r.objects, line)

		y := plotY + plotHeight - float32((p.Amplitude-yMin)/(yMax-yMin))*plotHeight - 15
		text := canvas.NewText(formatVoltage(float32(p.Amplitude)), color.RGBA{R: 255, G: 165, B: 0, A: 255})
		text.TextSize = 12
		text.Alignment = fyne.TextAlignCenter
		text.Move(fyne.NewPos(x-30, y))
		r.peakLabels = append(r.peakLabels, text)
		r.objects = append(r.objects, text)
	}
}

// drawRate draws the heart rate indicator in the top left corner.
func (r *scopeRenderer) drawRate(plotX, plotY float32, bpm float64, ok bool) {
	label := "HR: --"
	if ok {
		label = "HR: " + formatFloat(float32(bpm), 1) + " BPM"
	}
	text := canvas.NewText(label, color.RGBA{R: 200, G: 200, B: 200, A: 255}) // Light gray
	text.TextSize = 11
	text.Alignment = fyne.TextAlignLeading
	text.Move(fyne.NewPos(plotX+10, plotY+10))
	r.rateLabel = text
	r.objects = append(r.objects, text)
}

// Objects returns all canvas objects for rendering.
func (r *scopeRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

// Destroy cleans up resources.
func (r *scopeRenderer) Destroy() {
	// Cleanup handled by Fyne
}

// Helper functions for formatting

func formatVoltage(v float32) string {
	if math32.Abs(v) < 0.001 {
		return "0.000V"
	}
	return formatFloat(v, 3) + "V"
}

func formatTime(d time.Duration) string {
	if d < time.Second {
		return formatFloat(float32(d.Seconds()), 2) + "s"
	}
	return formatFloat(float32(d.Seconds()), 1) + "s"
}

func formatFloat(v float32, decimals int) string {
	str := ""
	if v < 0 {
		str = "-"
		v = -v
	}
	intPart := int64(v)
	str += formatInt(intPart)
	if decimals > 0 {
		frac := v - math32.Trunc(v)
		fracStr := formatInt(int64(math32.Round(frac * math32.Pow(10, float32(decimals)))))
		// Pad with zeros
		for len(fracStr) < decimals {
			fracStr = "0" + fracStr
		}
		str += "." + fracStr
	}
	return str
}

func formatInt(v int64) string {
	if v == 0 {
		return "0"
	}
	str := ""
	neg := v < 0
	if neg {
		v = -v
	}
	for v > 0 {
		str = string(rune('0'+v%10)) + str
		v /= 10
	}
	if neg {
		str = "-" + str
	}
	return str
}
