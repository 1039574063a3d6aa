package main

import (
	"fmt"
	"image/color"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/thermoctl/pkg/actuation"
	"github.com/itohio/thermoctl/pkg/display"
	"github.com/itohio/thermoctl/pkg/keypad"
	"github.com/itohio/thermoctl/pkg/scope"
)

const trendWindow = 2 * time.Minute

var (
	lcdBackground = color.RGBA{R: 90, G: 140, B: 40, A: 255}
	lcdInk        = color.RGBA{R: 20, G: 30, B: 10, A: 255}
	ledOff        = color.RGBA{R: 60, G: 60, B: 60, A: 255}
)

// newPanel builds the front panel and hooks it to the simulated board.
func newPanel(s *appState) fyne.CanvasObject {
	lcd := newLCDView()
	s.sim.Grid().OnChange(func(lines [display.Rows]string) {
		fyne.Do(func() { lcd.set(lines) })
	})

	s.leds = newLEDRow()
	s.sim.OnOutputs(s.outputsChanged)

	emergencyBtn := widget.NewButtonWithIcon("EMERGENCY", theme.WarningIcon(), s.sim.PressButton)
	emergencyBtn.Importance = widget.DangerImportance

	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(s)
	})

	trend := scope.New(trendWindow)
	trace := scope.NewTrace(trendWindow)
	s.unit.Live().OnUpdate(func(reading, average float32) {
		duty, _ := s.sim.Outputs()
		trace.Add(scope.Point{Time: time.Now(), Temperature: reading, Average: average, Duty: duty})
		points := trace.Points()
		th := s.unit.Store().Thresholds()
		fyne.Do(func() { trend.UpdateData(points, th) })
	})

	left := container.NewVBox(
		lcd.object(),
		newKeypad(s.sim.Keys(), s.cfg.Timing.KeyHold),
	)
	toolbar := container.NewBorder(nil, nil,
		container.NewHBox(settingsBtn, s.leds.object()),
		emergencyBtn,
		nil,
	)
	right := container.NewBorder(
		container.NewVBox(toolbar, newAmbientControl(s)),
		nil, nil, nil,
		trend,
	)
	return container.NewBorder(nil, nil, left, nil, right)
}

// lcdView draws the two text rows of the character display.
type lcdView struct {
	rows [display.Rows]*canvas.Text
	bg   *canvas.Rectangle
}

func newLCDView() *lcdView {
	v := &lcdView{bg: canvas.NewRectangle(lcdBackground)}
	for i := range v.rows {
		t := canvas.NewText(fmt.Sprintf("%-*s", display.Cols, ""), lcdInk)
		t.TextStyle = fyne.TextStyle{Monospace: true}
		t.TextSize = 22
		v.rows[i] = t
	}
	return v
}

func (v *lcdView) object() fyne.CanvasObject {
	text := container.NewVBox(v.rows[0], v.rows[1])
	return container.NewStack(v.bg, container.NewPadded(text))
}

func (v *lcdView) set(lines [display.Rows]string) {
	for i, l := range lines {
		v.rows[i].Text = l
		v.rows[i].Refresh()
	}
}

// newKeypad lays the 4x4 matrix out as buttons that tap the simulated keys.
func newKeypad(keys *keypad.Mock, hold time.Duration) fyne.CanvasObject {
	grid := container.NewGridWithColumns(keypad.Columns)
	for r := range keypad.Rows {
		for c := range keypad.Columns {
			k := keypad.At(r, c)
			btn := widget.NewButton(k.String(), func() { keys.Tap(k, hold) })
			if k.IsLetter() {
				btn.Importance = widget.HighImportance
			}
			grid.Add(btn)
		}
	}
	return grid
}

// ledRow shows the three indicators and the heater duty.
type ledRow struct {
	green, yellow, red *canvas.Circle
	duty               *widget.ProgressBar
}

func newLEDRow() *ledRow {
	led := func() *canvas.Circle { return canvas.NewCircle(ledOff) }
	return &ledRow{green: led(), yellow: led(), red: led(), duty: widget.NewProgressBar()}
}

func (l *ledRow) object() fyne.CanvasObject {
	size := fyne.NewSize(18, 18)
	wrap := func(c *canvas.Circle) fyne.CanvasObject {
		return container.NewGridWrap(size, c)
	}
	duty := container.NewGridWrap(fyne.NewSize(140, 18), l.duty)
	return container.NewHBox(wrap(l.green), wrap(l.yellow), wrap(l.red), layout.NewSpacer(), widget.NewLabel("Heater"), duty)
}

func (l *ledRow) set(duty float32, ind actuation.Indicators) {
	paint(l.green, ind.Green, color.RGBA{R: 40, G: 220, B: 60, A: 255})
	paint(l.yellow, ind.Yellow, color.RGBA{R: 250, G: 210, B: 30, A: 255})
	paint(l.red, ind.Red, color.RGBA{R: 240, G: 40, B: 40, A: 255})
	l.duty.SetValue(float64(duty))
}

func paint(c *canvas.Circle, on bool, lit color.Color) {
	if on {
		c.FillColor = lit
	} else {
		c.FillColor = ledOff
	}
	c.Refresh()
}

// newAmbientControl moves the ambient temperature of the simulated plant.
func newAmbientControl(s *appState) fyne.CanvasObject {
	label := widget.NewLabel("")
	show := func(v float64) {
		label.SetText(fmt.Sprintf("Ambient %3.0fC", v))
	}

	slider := widget.NewSlider(-20, 120)
	slider.Step = 1
	slider.SetValue(float64(s.sim.Thermal().Ambient))
	show(slider.Value)
	slider.OnChanged = func(v float64) {
		s.sim.SetAmbient(float32(v))
		show(v)
	}
	return container.NewBorder(nil, nil, label, nil, slider)
}
