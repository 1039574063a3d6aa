package scope

import (
	"fmt"
	"image/color"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"

	"github.com/itohio/thermoctl/pkg/settings"
)

var (
	gridColor    = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	labelColor   = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	tempColor    = color.RGBA{R: 255, G: 165, B: 0, A: 255}
	averageColor = color.RGBA{R: 100, G: 200, B: 255, A: 255}

	thresholdColors = [3]color.RGBA{
		{R: 60, G: 180, B: 75, A: 255},  // min
		{R: 230, G: 200, B: 40, A: 255}, // mid
		{R: 220, G: 50, B: 50, A: 255},  // max
	}
)

// scopeRenderer renders the scope widget.
type scopeRenderer struct {
	scope *ScopeWidget

	// Background
	grid *canvas.Rectangle

	// Objects list for Fyne
	objects []fyne.CanvasObject

	// Track last size to detect changes
	lastSize fyne.Size
}

// plot is the drawing area and the value ranges mapped onto it.
type plot struct {
	x, y, w, h float32
	yMin, yMax float32
	xMin, xMax time.Time
}

func (p plot) pos(t time.Time, v float32) fyne.Position {
	span := p.xMax.Sub(p.xMin).Seconds()
	x := p.x + float32(t.Sub(p.xMin).Seconds()/span)*p.w
	y := p.y + p.h - (v-p.yMin)/(p.yMax-p.yMin)*p.h
	return fyne.NewPos(x, y)
}

// MinSize returns the minimum size of the widget.
func (r *scopeRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 220)
}

// Layout arranges the widget components.
func (r *scopeRenderer) Layout(size fyne.Size) {
	r.grid.Resize(size)
	if r.lastSize != size {
		r.lastSize = size
		r.scope.BaseWidget.Refresh()
	}
}

// Refresh updates the widget display.
func (r *scopeRenderer) Refresh() {
	r.scope.mu.RLock()
	points := r.scope.points
	th := r.scope.thresholds
	p := plot{
		yMin: r.scope.yMin, yMax: r.scope.yMax,
		xMin: r.scope.xMin, xMax: r.scope.xMax,
	}
	r.scope.mu.RUnlock()

	size := r.scope.Size()
	if size.Width == 0 || size.Height == 0 {
		return
	}

	r.objects = []fyne.CanvasObject{r.grid}

	const (
		marginLeft   = 50
		marginRight  = 20
		marginTop    = 20
		marginBottom = 30
	)
	p.x, p.y = marginLeft, marginTop
	p.w = size.Width - marginLeft - marginRight
	p.h = size.Height - marginTop - marginBottom

	r.drawGrid(p)
	r.drawThresholds(p, th)
	r.drawCurve(p, points, tempColor, 1.5, func(pt Point) float32 { return pt.Temperature })
	r.drawCurve(p, points, averageColor, 2.5, func(pt Point) float32 { return pt.Average })
	if len(points) > 0 {
		r.drawDuty(p, points[len(points)-1].Duty)
	}
}

// drawGrid draws the oscilloscope-style grid.
func (r *scopeRenderer) drawGrid(p plot) {
	const numHLines = 6
	for i := range numHLines + 1 {
		y := p.y + float32(i)*p.h/numHLines
		r.line(gridColor, 1, fyne.NewPos(p.x, y), fyne.NewPos(p.x+p.w, y))

		value := p.yMax - float32(i)*(p.yMax-p.yMin)/numHLines
		r.text(formatCelsius(value), labelColor, 10, fyne.TextAlignTrailing, fyne.NewPos(p.x-5, y-6))
	}

	const numVLines = 10
	span := p.xMax.Sub(p.xMin)
	for i := range numVLines + 1 {
		x := p.x + float32(i)*p.w/numVLines
		r.line(gridColor, 1, fyne.NewPos(x, p.y), fyne.NewPos(x, p.y+p.h))

		ago := span - span*time.Duration(i)/numVLines
		r.text(formatAgo(ago), labelColor, 10, fyne.TextAlignCenter, fyne.NewPos(x-20, p.y+p.h+5))
	}
}

// drawThresholds draws min, mid and max as horizontal lines.
func (r *scopeRenderer) drawThresholds(p plot, th settings.Thresholds) {
	for i, v := range [3]int{th.Min, th.Mid, th.Max} {
		y := p.pos(p.xMin, float32(v)).Y
		r.line(thresholdColors[i], 1, fyne.NewPos(p.x, y), fyne.NewPos(p.x+p.w, y))
	}
}

// drawCurve draws one series as connected segments.
func (r *scopeRenderer) drawCurve(p plot, points []Point, c color.Color, width float32, value func(Point) float32) {
	for i := 1; i < len(points); i++ {
		a := p.pos(points[i-1].Time, value(points[i-1]))
		b := p.pos(points[i].Time, value(points[i]))
		r.line(c, width, a, b)
	}
}

// drawDuty prints the current heater duty in the corner.
func (r *scopeRenderer) drawDuty(p plot, duty float32) {
	r.text(fmt.Sprintf("duty %3.0f%%", duty*100), color.RGBA{R: 200, G: 200, B: 200, A: 255}, 11,
		fyne.TextAlignLeading, fyne.NewPos(p.x+10, p.y+10))
}

func (r *scopeRenderer) line(c color.Color, width float32, a, b fyne.Position) {
	line := canvas.NewLine(c)
	line.Position1 = a
	line.Position2 = b
	line.StrokeWidth = width
	r.objects = append(r.objects, line)
}

func (r *scopeRenderer) text(s string, c color.Color, size float32, align fyne.TextAlign, at fyne.Position) {
	text := canvas.NewText(s, c)
	text.TextSize = size
	text.Alignment = align
	text.Move(at)
	r.objects = append(r.objects, text)
}

// Objects returns all canvas objects for rendering.
func (r *scopeRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

// Destroy cleans up resources.
func (r *scopeRenderer) Destroy() {}

func formatCelsius(v float32) string {
	return fmt.Sprintf("%.0fC", v)
}

func formatAgo(d time.Duration) string {
	if d <= 0 {
		return "now"
	}
	return fmt.Sprintf("-%.0fs", d.Seconds())
}
