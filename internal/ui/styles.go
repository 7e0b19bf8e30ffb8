// Package ui renders rlconfig CLI output with optional colour.
package ui

import (
	"github.com/fatih/color"

	"github.com/runelite/api.runelite.net/internal/model"
)

var (
	accent  = color.New(color.FgCyan)
	muted   = color.New(color.FgHiBlack)
	success = color.New(color.FgGreen)
	warning = color.New(color.FgYellow)
	failure = color.New(color.FgRed, color.Bold)
)

// RenderAccent returns s in the accent colour.
func RenderAccent(s string) string { return accent.Sprint(s) }

// RenderMuted returns s in the muted colour.
func RenderMuted(s string) string { return muted.Sprint(s) }

// RenderSuccess returns s in the success colour.
func RenderSuccess(s string) string { return success.Sprint(s) }

// RenderWarning returns s in the warning colour.
func RenderWarning(s string) string { return warning.Sprint(s) }

// RenderFailure returns s in the failure colour.
func RenderFailure(s string) string { return failure.Sprint(s) }

// RenderProfileKind colours a profile kind label: reserved profiles are
// muted, user-created ones use the accent.
func RenderProfileKind(k model.ProfileKind) string {
	switch k {
	case model.KindNamed:
		return RenderAccent(k.String())
	case model.KindInvalid:
		return RenderFailure(k.String())
	default:
		return RenderMuted(k.String())
	}
}

// ForceNoColor disables colour output globally.
func ForceNoColor() {
	color.NoColor = true
}

// SetColor enables or disables colour output globally.
func SetColor(enabled bool) {
	color.NoColor = !enabled
}
