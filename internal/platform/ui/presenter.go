// internal/platform/ui/presenter.go
package ui

import (
	"reconbus/internal/core/domain"
	"reconbus/internal/core/ports"
)

// Presenter muestra el progreso de un escaneo en la terminal. Recibe el
// ciclo de vida como un observador más del scanner.
type Presenter interface {
	ports.Notifier

	// Start muestra la cabecera del escaneo
	Start(info ScanInfo)

	// Finish muestra el resumen final
	Finish(result *domain.ScanResult)
}

// ScanInfo contiene información inicial del escaneo
type ScanInfo struct {
	ScanID         string
	Target         string
	TargetType     domain.EventType
	Mode           string
	Plugins        []string
	TimeoutSeconds int
	DBPath         string // vacío si la persistencia está desactivada
	ReportDir      string // vacío si no se escribe informe JSON
}
