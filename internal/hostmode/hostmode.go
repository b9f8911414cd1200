// Package hostmode provides the reference hostapi.ModeDetector: sampling
// whether a display is available, once, at server start (spec.md §4.3
// "Mode detection" — the first of C3's two responsibilities, selecting
// Strategy A (GUI) vs Strategy B (headless) for the dispatcher's lifetime).
package hostmode

import (
	"os"

	"github.com/scenebridge/blenderforge/internal/hostapi"
)

var _ hostapi.ModeDetector = (*EnvDetector)(nil)

// EnvDetector detects GUI availability the same tolerant way the host
// application itself would: an explicit override env var takes precedence,
// otherwise presence of a display-identifying env var (DISPLAY on X11,
// mirrored by WAYLAND_DISPLAY) is taken as "a display exists."
type EnvDetector struct {
	// OverrideVar, when set to a non-empty value, forces the result:
	// "0" means headless, anything else means GUI. Empty disables the
	// override. Defaults to BLENDER_MCP_GUI.
	OverrideVar string
	// DisplayVars are checked in order; the first one present in the
	// environment means a display exists. Defaults to DISPLAY and
	// WAYLAND_DISPLAY.
	DisplayVars []string
}

// NewEnvDetector returns an EnvDetector using BLENDER_MCP_GUI as the
// override and DISPLAY/WAYLAND_DISPLAY as the display signals.
func NewEnvDetector() *EnvDetector {
	return &EnvDetector{
		OverrideVar: "BLENDER_MCP_GUI",
		DisplayVars: []string{"DISPLAY", "WAYLAND_DISPLAY"},
	}
}

// IsGUI implements hostapi.ModeDetector.
func (d *EnvDetector) IsGUI() bool {
	if d.OverrideVar != "" {
		if v, ok := os.LookupEnv(d.OverrideVar); ok && v != "" {
			return v != "0"
		}
	}
	for _, name := range d.DisplayVars {
		if os.Getenv(name) != "" {
			return true
		}
	}
	return false
}
