// Package overlay shows a small alert window when a countdown finishes.
package overlay

import (
	"image/color"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"clocktimer/internal/core/model"
	"clocktimer/internal/core/timer"
)

// Config defines overlay visuals.
type Config struct {
	Opacity uint8
	Message string
	// AutoHide closes the alert after this long; zero keeps it open.
	AutoHide time.Duration
}

// Window manages the finished alert.
type Window struct {
	window     fyne.Window
	config     Config
	background *canvas.Rectangle
	title      *canvas.Text
	detail     *canvas.Text
	dismiss    *widget.Button
	run        func(func())

	mu       sync.Mutex
	hideTask *time.Timer
	onShow   func()
}

const (
	overlayWidthFraction  = float32(0.16)
	overlayHeightFraction = float32(0.14)
	defaultScreenWidth    = float32(1920)
	defaultScreenHeight   = float32(1080)
)

type splashWindowDriver interface {
	CreateSplashWindow() fyne.Window
}

// New creates the alert window, hidden.
func New(app fyne.App, config Config) *Window {
	window := app.NewWindow("ClockTimer")
	if driver, ok := app.Driver().(splashWindowDriver); ok {
		// Splash window is undecorated (no native frame/buttons).
		window = driver.CreateSplashWindow()
	}
	if app.Icon() != nil {
		window.SetIcon(app.Icon())
	}
	window.SetPadded(false)

	if config.Message == "" {
		config.Message = "Time's up"
	}

	background := canvas.NewRectangle(color.NRGBA{A: config.Opacity})

	title := canvas.NewText(config.Message, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	title.TextStyle = fyne.TextStyle{Bold: true}
	title.TextSize = 21

	detail := canvas.NewText("", color.NRGBA{R: 232, G: 190, B: 66, A: 255})
	detail.TextStyle = fyne.TextStyle{Bold: true}
	detail.TextSize = 16

	dismiss := widget.NewButton("Dismiss", nil)

	content := container.New(&alertLayout{}, title, detail, dismiss)
	window.SetContent(container.NewStack(background, content))

	overlay := &Window{
		window:     window,
		config:     config,
		background: background,
		title:      title,
		detail:     detail,
		dismiss:    dismiss,
		run:        fyne.Do,
	}
	dismiss.OnTapped = overlay.Hide
	return overlay
}

// OnTick implements lifecycle.TickListener. The alert opens when a
// countdown finishes.
func (overlay *Window) OnTick(event timer.Event) {
	if event.Type != timer.EventFinished {
		return
	}
	overlay.run(func() {
		overlay.Show(event.At)
	})
}

// Show opens the alert. Must be called on the UI goroutine.
func (overlay *Window) Show(finishedAt time.Time) {
	overlay.detail.Text = detailText(finishedAt)
	overlay.detail.Refresh()
	overlay.resizeToScreenFraction()
	overlay.window.Show()
	overlay.window.RequestFocus()

	overlay.mu.Lock()
	if overlay.hideTask != nil {
		overlay.hideTask.Stop()
		overlay.hideTask = nil
	}
	if overlay.config.AutoHide > 0 {
		overlay.hideTask = time.AfterFunc(overlay.config.AutoHide, func() {
			overlay.run(overlay.Hide)
		})
	}
	onShow := overlay.onShow
	overlay.mu.Unlock()

	if onShow != nil {
		onShow()
	}
}

// Hide closes the alert. Must be called on the UI goroutine.
func (overlay *Window) Hide() {
	overlay.mu.Lock()
	if overlay.hideTask != nil {
		overlay.hideTask.Stop()
		overlay.hideTask = nil
	}
	overlay.mu.Unlock()
	overlay.window.Hide()
}

// UpdateConfig updates overlay visuals.
func (overlay *Window) UpdateConfig(config Config) {
	if config.Message == "" {
		config.Message = overlay.config.Message
	}
	overlay.config = config
	overlay.background.FillColor = color.NRGBA{A: config.Opacity}
	overlay.title.Text = config.Message
	canvas.Refresh(overlay.background)
	overlay.title.Refresh()
}

func (overlay *Window) resizeToScreenFraction() {
	screenSize := fyne.NewSize(defaultScreenWidth, defaultScreenHeight)
	canvasSize := overlay.window.Canvas().Size()
	// Canvas size can be reused as a proxy for monitor size when it is clearly screen-like.
	if canvasSize.Width >= 1024 && canvasSize.Height >= 720 {
		screenSize = canvasSize
	}

	width := screenSize.Width * overlayWidthFraction
	height := screenSize.Height * overlayHeightFraction
	minSize := overlay.window.Content().MinSize()
	if width < minSize.Width {
		width = minSize.Width
	}
	if height < minSize.Height {
		height = minSize.Height
	}

	overlay.window.Resize(fyne.NewSize(width, height))
	overlay.window.CenterOnScreen()
}

func detailText(finishedAt time.Time) string {
	if finishedAt.IsZero() {
		return model.TimeFromMillis(0).Format(false)
	}
	return "finished at " + finishedAt.Format("15:04:05")
}

// alertLayout stacks title and detail on the left and pins the dismiss
// button to the bottom right corner.
type alertLayout struct{}

func (layout *alertLayout) Layout(objects []fyne.CanvasObject, size fyne.Size) {
	if len(objects) < 3 {
		return
	}
	title, detail, dismiss := objects[0], objects[1], objects[2]

	pad := size.Height * 0.08
	availableWidth := size.Width - pad*2
	if availableWidth < 0 {
		availableWidth = 0
	}

	titleSize := title.MinSize()
	title.Move(fyne.NewPos(pad, pad))
	title.Resize(fyne.NewSize(availableWidth, titleSize.Height))

	detailSize := detail.MinSize()
	detail.Move(fyne.NewPos(pad, pad+titleSize.Height+pad/2))
	detail.Resize(fyne.NewSize(availableWidth, detailSize.Height))

	buttonSize := dismiss.MinSize()
	x := size.Width - pad - buttonSize.Width
	y := size.Height - pad - buttonSize.Height
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	dismiss.Move(fyne.NewPos(x, y))
	dismiss.Resize(buttonSize)
}

func (layout *alertLayout) MinSize(objects []fyne.CanvasObject) fyne.Size {
	if len(objects) < 3 {
		return fyne.NewSize(0, 0)
	}
	title := objects[0].MinSize()
	detail := objects[1].MinSize()
	button := objects[2].MinSize()

	width := title.Width
	if detail.Width > width {
		width = detail.Width
	}
	if button.Width > width {
		width = button.Width
	}
	return fyne.NewSize(width, title.Height+detail.Height+button.Height)
}
