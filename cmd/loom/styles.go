package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/loomui/loom/pkg/ir"
)

var (
	errorColor   = lipgloss.Color("#ef4444")
	successColor = lipgloss.Color("#10b981")
	mutedColor   = lipgloss.Color("#94a3b8")

	errorStyle   = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(successColor)
	mutedStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	kindStyle    = lipgloss.NewStyle().Foreground(errorColor)
)

// printDiagnostics renders one file's batch, one line per diagnostic.
func printDiagnostics(diags []ir.Diagnostic) {
	for _, d := range diags {
		fmt.Printf("%s %s %s\n",
			mutedStyle.Render(d.Pos.String()),
			kindStyle.Render("["+d.Kind.String()+"]"),
			d.Msg)
	}
}
