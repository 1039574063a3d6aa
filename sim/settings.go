package main

import (
	"fmt"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/thermoctl/pkg/board"
	"github.com/itohio/thermoctl/pkg/serialport"
)

// showSettingsDialog displays the simulator settings.
func showSettingsDialog(state *appState) {
	tabs := container.NewAppTabs(
		createSerialTab(state),
		createPlantTab(state),
		createStatusTab(state),
	)

	content := container.NewBorder(nil, nil, nil, nil, tabs)
	d := dialog.NewCustom("Settings", "Close", content, state.window)
	d.Resize(fyne.NewSize(520, 360))
	d.Show()
}

// createSerialTab selects the console port used on the next start.
func createSerialTab(state *appState) *container.TabItem {
	const terminal = "- (this terminal)"

	portOptions := []string{terminal}
	portMap := map[string]string{terminal: "-"}
	if ports, err := serialport.Ports(); err == nil {
		for _, port := range ports {
			portOptions = append(portOptions, port.Description)
			portMap[port.Description] = port.Name
		}
	}

	current := ""
	for display, name := range portMap {
		if name == state.cfg.Serial.Port || (name == "-" && state.cfg.UseStdio()) {
			current = display
		}
	}
	if current == "" {
		current = state.cfg.Serial.Port
		portOptions = append(portOptions, current)
		portMap[current] = current
	}

	portSelect := widget.NewSelect(portOptions, nil)
	portSelect.SetSelected(current)

	baudEntry := widget.NewEntry()
	baudEntry.SetText(strconv.Itoa(state.cfg.Serial.Baud))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Console", Widget: portSelect, HintText: "Takes effect on the next start"},
			{Text: "Baud", Widget: baudEntry},
		},
		OnSubmit: func() {
			baud, err := strconv.Atoi(baudEntry.Text)
			if err != nil || baud <= 0 {
				dialog.ShowError(fmt.Errorf("invalid baud rate %q", baudEntry.Text), state.window)
				return
			}
			state.cfg.Serial.Port = portMap[portSelect.Selected]
			state.cfg.Serial.Baud = baud
			saveConfig(state)
		},
	}
	return container.NewTabItem("Serial", form)
}

// createPlantTab edits the simulated plant and applies it at once.
func createPlantTab(state *appState) *container.TabItem {
	th := state.sim.Thermal()

	ambient := widget.NewEntry()
	ambient.SetText(strconv.FormatFloat(float64(th.Ambient), 'f', 1, 32))
	gain := widget.NewEntry()
	gain.SetText(strconv.FormatFloat(float64(th.Gain), 'f', 1, 32))
	tau := widget.NewEntry()
	tau.SetText(th.Tau.String())

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Ambient (°C)", Widget: ambient},
			{Text: "Gain at full duty (°C)", Widget: gain},
			{Text: "Time constant", Widget: tau, HintText: "e.g. 20s"},
		},
		OnSubmit: func() {
			a, errA := strconv.ParseFloat(ambient.Text, 32)
			g, errG := strconv.ParseFloat(gain.Text, 32)
			d, errT := time.ParseDuration(tau.Text)
			if errA != nil || errG != nil || errT != nil || g <= 0 || d <= 0 {
				dialog.ShowError(fmt.Errorf("invalid plant parameters"), state.window)
				return
			}
			state.sim.SetThermal(board.Thermal{Ambient: float32(a), Gain: float32(g), Tau: d})
			state.cfg.Sim.Ambient = float32(a)
			state.cfg.Sim.Gain = float32(g)
			state.cfg.Sim.Tau = d
			saveConfig(state)
		},
	}
	return container.NewTabItem("Plant", form)
}

// createStatusTab shows the live controller settings, read-only.
func createStatusTab(state *appState) *container.TabItem {
	snap := state.unit.Store().Snapshot()
	temp := state.sim.Temperature()
	duty, _ := state.sim.Outputs()

	form := widget.NewForm(
		widget.NewFormItem("Thresholds", widget.NewLabel(fmt.Sprintf("%d / %d / %d °C",
			snap.Thresholds.Min, snap.Thresholds.Mid, snap.Thresholds.Max))),
		widget.NewFormItem("Emergency timeout", widget.NewLabel(fmt.Sprintf("%d s", snap.TimeoutSeconds))),
		widget.NewFormItem("Emergency", widget.NewLabel(state.unit.Emergency().State().String())),
		widget.NewFormItem("Plant", widget.NewLabel(fmt.Sprintf("%.1f °C, heater %.0f%%", temp, duty*100))),
	)
	return container.NewTabItem("Status", form)
}

func saveConfig(state *appState) {
	if err := state.cfg.Save(state.configPath); err != nil {
		dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
	}
}
