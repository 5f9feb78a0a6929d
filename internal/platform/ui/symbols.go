// internal/platform/ui/symbols.go
package ui

import (
	"github.com/pterm/pterm"

	"reconbus/internal/core/domain"
)

// statusSymbol retorna el símbolo Unicode de cada estado de escaneo
func statusSymbol(s domain.ScanStatus) string {
	switch s {
	case domain.StatusCreated, domain.StatusStarting:
		return "⏸"
	case domain.StatusStarted, domain.StatusRunning:
		return "⣾"
	case domain.StatusFinished:
		return "✓"
	case domain.StatusAbortRequested, domain.StatusAborted:
		return "⊘"
	case domain.StatusErrorFailed:
		return "✗"
	default:
		return "?"
	}
}

// statusColor retorna el color pterm de cada estado
func statusColor(s domain.ScanStatus) pterm.Color {
	switch s {
	case domain.StatusCreated, domain.StatusStarting:
		return pterm.FgGray
	case domain.StatusStarted, domain.StatusRunning:
		return pterm.FgCyan
	case domain.StatusFinished:
		return pterm.FgGreen
	case domain.StatusAbortRequested, domain.StatusAborted:
		return pterm.FgYellow
	case domain.StatusErrorFailed:
		return pterm.FgRed
	default:
		return pterm.FgDefault
	}
}

func statusStyle(s domain.ScanStatus) *pterm.Style {
	return pterm.NewStyle(statusColor(s))
}

// Icons globales para diferentes elementos de la UI
var (
	IconTarget  = "🎯"
	IconTime    = "⏱"
	IconEvents  = "📦"
	IconPlugins = "🔌"
	IconStorage = "💾"
	IconError   = "✗"
	IconWarning = "⚠"
)

// SeparatorHeavy separa las secciones del presenter.
var SeparatorHeavy = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"
