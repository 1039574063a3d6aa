package scope

import (
	"image/color"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/thermoctl/pkg/settings"
)

// Point is one trend sample.
type Point struct {
	Time        time.Time
	Temperature float32
	Average     float32
	Duty        float32
}

// Trace is a mutex-guarded history of the points within the last window.
type Trace struct {
	mu     sync.RWMutex
	window time.Duration
	points []Point
}

// NewTrace creates a Trace keeping window worth of points.
func NewTrace(window time.Duration) *Trace {
	return &Trace{window: window, points: make([]Point, 0, 256)}
}

// Add appends p and drops points older than the window, measured from p.
func (t *Trace) Add(p Point) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.points = append(t.points, p)

	cutoff := p.Time.Add(-t.window)
	drop := 0
	for drop < len(t.points) && t.points[drop].Time.Before(cutoff) {
		drop++
	}
	if drop > 0 {
		t.points = append(t.points[:0], t.points[drop:]...)
	}
}

// Points returns a copy of the history, oldest first.
func (t *Trace) Points() []Point {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Point(nil), t.points...)
}

// Len returns the number of points held.
func (t *Trace) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.points)
}

// Window returns the history span.
func (t *Trace) Window() time.Duration {
	return t.window
}

// Downsample picks at most maxPoints evenly spaced points from src into dst,
// always keeping the last one.
func Downsample(dst, src []Point, maxPoints int) []Point {
	dst = dst[:0]
	if maxPoints <= 0 || len(src) <= maxPoints {
		return append(dst, src...)
	}
	step := float64(len(src)-1) / float64(maxPoints-1)
	for i := range maxPoints {
		dst = append(dst, src[int(float64(i)*step+0.5)])
	}
	return dst
}

// ScopeWidget is a Fyne widget plotting temperature, its moving average and
// the current thresholds.
type ScopeWidget struct {
	widget.BaseWidget

	// Data (protected by mu)
	mu         sync.RWMutex
	points     []Point
	thresholds settings.Thresholds

	// Auto-scaling
	yMin, yMax float32
	xMin, xMax time.Time

	window           time.Duration
	maxDisplayPoints int
}

// New creates a new ScopeWidget showing at least window of time.
func New(window time.Duration) *ScopeWidget {
	s := &ScopeWidget{
		points:           make([]Point, 0, 500),
		window:           window,
		maxDisplayPoints: 500,
	}
	s.updateAutoScale()
	s.ExtendBaseWidget(s)
	s.Refresh()
	return s
}

// UpdateData replaces the plotted history. Call it on the Fyne thread.
func (s *ScopeWidget) UpdateData(points []Point, th settings.Thresholds) {
	s.mu.Lock()
	s.points = Downsample(s.points, points, s.maxDisplayPoints)
	s.thresholds = th
	s.updateAutoScale()
	s.mu.Unlock()

	s.Refresh()
}

// updateAutoScale fits the Y range to the data and the thresholds.
func (s *ScopeWidget) updateAutoScale() {
	th := s.thresholds
	s.yMin = float32(min(th.Min, th.Mid, th.Max))
	s.yMax = float32(max(th.Min, th.Mid, th.Max))
	for _, p := range s.points {
		s.yMin = min(s.yMin, p.Temperature, p.Average)
		s.yMax = max(s.yMax, p.Temperature, p.Average)
	}

	span := s.yMax - s.yMin
	if span == 0 {
		span = 1
	}
	margin := span * 0.1
	s.yMin -= margin
	s.yMax += margin

	if len(s.points) == 0 {
		s.xMin = time.Now()
		s.xMax = s.xMin.Add(s.window)
		return
	}
	s.xMin = s.points[0].Time
	s.xMax = s.points[len(s.points)-1].Time
	if s.xMax.Sub(s.xMin) < s.window {
		s.xMin = s.xMax.Add(-s.window)
	}
}

// CreateRenderer creates the widget renderer.
func (s *ScopeWidget) CreateRenderer() fyne.WidgetRenderer {
	grid := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255})
	return &scopeRenderer{
		scope:   s,
		grid:    grid,
		objects: []fyne.CanvasObject{grid},
	}
}
