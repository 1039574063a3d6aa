package scope

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/thermoctl/pkg/settings"
)

func TestTrace_DropsOldPoints(t *testing.T) {
	tr := NewTrace(10 * time.Second)
	t0 := time.Unix(1000, 0)
	for i := range 30 {
		tr.Add(Point{Time: t0.Add(time.Duration(i) * time.Second), Temperature: float32(i)})
	}

	pts := tr.Points()
	require.Len(t, pts, 11)
	assert.Equal(t, float32(19), pts[0].Temperature)
	assert.Equal(t, float32(29), pts[len(pts)-1].Temperature)
	assert.Equal(t, 11, tr.Len())
	assert.Equal(t, 10*time.Second, tr.Window())

	// Points is a copy.
	pts[0].Temperature = -1
	assert.Equal(t, float32(19), tr.Points()[0].Temperature)
}

func TestDownsample(t *testing.T) {
	src := make([]Point, 100)
	for i := range src {
		src[i].Temperature = float32(i)
	}

	got := Downsample(nil, src, 10)
	require.Len(t, got, 10)
	assert.Equal(t, float32(0), got[0].Temperature)
	assert.Equal(t, float32(99), got[9].Temperature)
	for i := 1; i < len(got); i++ {
		assert.Greater(t, got[i].Temperature, got[i-1].Temperature)
	}

	short := Downsample(got, src[:5], 10)
	assert.Len(t, short, 5)
}

func TestScope_AutoScale(t *testing.T) {
	s := &ScopeWidget{window: time.Minute}
	t0 := time.Unix(0, 0)
	s.points = []Point{
		{Time: t0, Temperature: 20, Average: 21},
		{Time: t0.Add(10 * time.Second), Temperature: 120, Average: 60},
	}
	s.thresholds = settings.Thresholds{Min: 10, Mid: 50, Max: 100}
	s.updateAutoScale()

	// Range 10..120 with 10% margin.
	assert.InDelta(t, -1, s.yMin, 1e-4)
	assert.InDelta(t, 131, s.yMax, 1e-4)
	assert.Equal(t, t0.Add(10*time.Second), s.xMax)
	assert.Equal(t, s.xMax.Add(-time.Minute), s.xMin, "short history still spans the window")
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "42C", formatCelsius(42.2))
	assert.Equal(t, "now", formatAgo(0))
	assert.Equal(t, "-30s", formatAgo(30*time.Second))
}
