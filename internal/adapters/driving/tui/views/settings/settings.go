// Package settings shows the effective configuration in the TUI.
package settings

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/medreport/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/medreport/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/medreport/internal/core/ports/driving"
)

// View lists every known setting with its effective value.
type View struct {
	styles          *styles.Styles
	settingsService driving.SettingsService

	keys   []string
	values map[string]string
	path   string
	offset int
	height int
	err    error
}

// NewView creates a new settings view.
func NewView(s *styles.Styles, settingsService driving.SettingsService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:          s,
		settingsService: settingsService,
		height:          24,
	}
}

// Init loads the settings.
func (v *View) Init() tea.Cmd {
	svc := v.settingsService
	return func() tea.Msg {
		if svc == nil {
			return messages.SettingsLoaded{Err: fmt.Errorf("settings service not available")}
		}
		keys := svc.Keys()
		values := make(map[string]string, len(keys))
		for _, k := range keys {
			val, err := svc.Lookup(k)
			if err != nil {
				return messages.SettingsLoaded{Err: err}
			}
			values[k] = val
		}
		return messages.SettingsLoaded{Keys: keys, Values: values, Path: svc.Path()}
	}
}

// Update handles messages for the settings view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.height = msg.Height
		return v, nil

	case messages.SettingsLoaded:
		v.err = msg.Err
		if msg.Err == nil {
			v.keys = msg.Keys
			v.values = msg.Values
			v.path = msg.Path
			v.offset = 0
		}
		return v, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if v.offset > 0 {
				v.offset--
			}
		case "down", "j":
			if v.offset < v.maxOffset() {
				v.offset++
			}
		case "esc":
			return v, func() tea.Msg {
				return messages.ViewChanged{View: messages.ViewMenu}
			}
		}
	}
	return v, nil
}

func (v *View) visible() int {
	return max(v.height-8, 1)
}

func (v *View) maxOffset() int {
	return max(len(v.keys)-v.visible(), 0)
}

// View renders the settings view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Settings"))
	b.WriteString("\n")
	if v.path != "" {
		b.WriteString(v.styles.Muted.Render(v.path))
	}
	b.WriteString("\n\n")

	switch {
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case len(v.keys) == 0:
		b.WriteString(v.styles.Muted.Render("Loading settings..."))
	default:
		width := 0
		for _, k := range v.keys {
			width = max(width, len(k))
		}
		end := min(v.offset+v.visible(), len(v.keys))
		for _, k := range v.keys[v.offset:end] {
			b.WriteString(v.styles.Normal.Render(fmt.Sprintf("  %-*s  ", width, k)))
			b.WriteString(v.styles.Subtitle.Render(Display(k, v.values[k])))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render("Edit with `medreport settings set <key> <value>`  [j/k] scroll  [esc] back"))
	return b.String()
}

// Display returns value as it should be shown for key, masking secrets.
func Display(key, value string) string {
	if value == "" {
		return "(not set)"
	}
	if strings.HasSuffix(key, "api_key") {
		return MaskSecret(value)
	}
	return value
}

// MaskSecret hides all but the ends of a secret.
func MaskSecret(secret string) string {
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}

// Keys returns the loaded keys.
func (v *View) Keys() []string {
	return v.keys
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(_, height int) {
	v.height = height
}
