// internal/platform/ui/colors.go
package ui

import "github.com/pterm/pterm"

// Paleta de la UI
var (
	// SignalAmber - cabeceras y elementos destacados
	SignalAmber = pterm.NewRGB(255, 182, 39)

	// AlertRed - errores de plugins y escaneos fallidos
	AlertRed = pterm.NewRGB(215, 38, 56)

	// TraceCyan - valores, contadores y estados en curso
	TraceCyan = pterm.NewRGB(0, 206, 209)

	// AshGray - texto secundario
	AshGray = pterm.NewRGB(128, 128, 128)
)

// Estilos preconfigurados para diferentes contextos
var (
	StylePrimary   = SignalAmber.ToRGBStyle()
	StyleError     = AlertRed.ToRGBStyle()
	StyleAccent    = TraceCyan.ToRGBStyle()
	StyleSecondary = AshGray.ToRGBStyle()
)
