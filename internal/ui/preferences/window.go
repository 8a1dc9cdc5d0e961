package preferences

import (
	"strconv"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"clocktimer/internal/sound"
)

// Window handles the preferences UI.
type Window struct {
	window     fyne.Window
	settings   Settings
	onSave     func(Settings)
	onStart    func(Settings)
	minutes    *widget.Entry
	seconds    *widget.Entry
	showMillis *widget.Check
	soundCheck *widget.Check
	volume     *widget.Slider
}

// New creates a preferences window. onSave receives saved settings; onStart,
// when set, additionally starts a countdown with them.
func New(app fyne.App, settings Settings, onSave, onStart func(Settings)) *Window {
	window := app.NewWindow("ClockTimer Settings")

	minutes := widget.NewEntry()
	seconds := widget.NewEntry()

	showMillis := widget.NewCheck("Show hundredths", nil)
	soundCheck := widget.NewCheck("Play chime when finished", nil)

	volume := widget.NewSlider(sound.MinVolume, sound.MaxVolume)
	volume.Step = 0.5

	form := container.NewVBox(
		widget.NewLabelWithStyle("Countdown", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewHBox(widget.NewLabel("Duration"), minutes, widget.NewLabel("min"), seconds, widget.NewLabel("sec")),
		showMillis,
		soundCheck,
		widget.NewLabel("Chime volume"),
		volume,
	)

	saveButton := widget.NewButton("Save", nil)
	startButton := widget.NewButton("Save and start", nil)
	cancelButton := widget.NewButton("Cancel", nil)
	buttons := container.NewHBox(saveButton, startButton, layout.NewSpacer(), cancelButton)

	content := container.NewBorder(nil, buttons, nil, nil, form)
	window.SetContent(content)
	window.Resize(fyne.NewSize(420, 260))
	window.SetCloseIntercept(window.Hide)

	prefs := &Window{
		window:     window,
		onSave:     onSave,
		onStart:    onStart,
		minutes:    minutes,
		seconds:    seconds,
		showMillis: showMillis,
		soundCheck: soundCheck,
		volume:     volume,
	}
	prefs.UpdateSettings(settings)

	saveButton.OnTapped = func() { prefs.handleSave(false) }
	startButton.OnTapped = func() { prefs.handleSave(true) }
	cancelButton.OnTapped = window.Hide

	return prefs
}

// Show displays the preferences window.
func (prefs *Window) Show() {
	prefs.window.Show()
	prefs.window.RequestFocus()
}

// UpdateSettings replaces window values.
func (prefs *Window) UpdateSettings(settings Settings) {
	prefs.settings = settings
	minutes, seconds := splitDuration(settings.Duration)
	prefs.minutes.SetText(strconv.Itoa(minutes))
	prefs.seconds.SetText(strconv.Itoa(seconds))
	prefs.showMillis.SetChecked(settings.ShowMillis)
	prefs.soundCheck.SetChecked(settings.SoundEnabled)
	prefs.volume.Value = settings.Volume
	prefs.volume.Refresh()
}

func (prefs *Window) handleSave(start bool) {
	settings := prefs.settings

	if duration, ok := parseDuration(prefs.minutes.Text, prefs.seconds.Text); ok {
		settings.Duration = duration
	}
	settings.ShowMillis = prefs.showMillis.Checked
	settings.SoundEnabled = prefs.soundCheck.Checked
	settings.Volume = prefs.volume.Value

	prefs.settings = settings
	if prefs.onSave != nil {
		prefs.onSave(settings)
	}
	if start && prefs.onStart != nil {
		prefs.onStart(settings)
	}
	prefs.window.Hide()
}

// parseDuration combines minute and second fields. Empty fields count as
// zero; the total must be positive.
func parseDuration(minutesText, secondsText string) (time.Duration, bool) {
	minutes, ok := parseNonNegativeInt(minutesText)
	if !ok {
		return 0, false
	}
	seconds, ok := parseNonNegativeInt(secondsText)
	if !ok {
		return 0, false
	}
	total := time.Duration(minutes)*time.Minute + time.Duration(seconds)*time.Second
	if total <= 0 {
		return 0, false
	}
	return total, true
}

func splitDuration(duration time.Duration) (int, int) {
	if duration < 0 {
		duration = 0
	}
	total := int(duration / time.Second)
	return total / 60, total % 60
}

func parseNonNegativeInt(value string) (int, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, true
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return 0, false
	}
	return parsed, true
}
