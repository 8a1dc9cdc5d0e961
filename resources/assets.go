// Package resources provides the tray icons, drawn as SVG per timer state.
package resources

import (
	"fmt"
	"sync"

	"fyne.io/fyne/v2"

	"clocktimer/internal/core/model"
)

const iconTemplate = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 64 64">
<circle cx="32" cy="34" r="26" fill="%[1]s"/>
<circle cx="32" cy="34" r="21" fill="#ffffff"/>
<rect x="27" y="2" width="10" height="6" rx="2" fill="%[1]s"/>
<path d="M32 34 L32 17" stroke="%[1]s" stroke-width="4" stroke-linecap="round"/>
<path d="M32 34 L%[2]d %[3]d" stroke="%[1]s" stroke-width="4" stroke-linecap="round"/>
</svg>`

type iconStyle struct {
	color string
	handX int
	handY int
}

var iconStyles = map[model.State]iconStyle{
	model.StateIdle:       {color: "#8a8f98", handX: 44, handY: 34},
	model.StateConfigured: {color: "#3d7bd9", handX: 44, handY: 34},
	model.StateRunning:    {color: "#2fa84f", handX: 42, handY: 44},
	model.StatePaused:     {color: "#e8be42", handX: 22, handY: 44},
	model.StateFinished:   {color: "#d9453d", handX: 32, handY: 50},
}

var iconCache sync.Map

// Icon returns the tray icon for state; unknown states use the idle icon.
func Icon(state model.State) fyne.Resource {
	if cached, ok := iconCache.Load(state); ok {
		return cached.(fyne.Resource)
	}

	style, ok := iconStyles[state]
	if !ok {
		return Icon(model.StateIdle)
	}
	data := fmt.Sprintf(iconTemplate, style.color, style.handX, style.handY)
	resource := fyne.NewStaticResource(fmt.Sprintf("clocktimer-%s.svg", state), []byte(data))
	iconCache.Store(state, resource)
	return resource
}

// AppIcon returns the application icon.
func AppIcon() fyne.Resource {
	return Icon(model.StateRunning)
}
