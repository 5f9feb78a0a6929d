// internal/core/domain/enums.go
package domain

import "strings"

// ScanMode define qué técnicas puede usar un escaneo.
type ScanMode string

const (
	// ScanModePassive solo utiliza técnicas pasivas (OSINT, APIs públicas)
	ScanModePassive ScanMode = "passive"

	// ScanModeActive permite además interacción directa con el objetivo
	// (resolución por fuerza bruta, descarga de páginas)
	ScanModeActive ScanMode = "active"
)

// IsValid verifica si el modo de escaneo es válido.
func (m ScanMode) IsValid() bool {
	return m == ScanModePassive || m == ScanModeActive
}

func (m ScanMode) String() string {
	return string(m)
}

// PluginMode define el modo de operación de un plugin.
type PluginMode string

const (
	PluginModePassive PluginMode = "passive"
	PluginModeActive  PluginMode = "active"
)

// CompatibleWith indica si el plugin puede ejecutarse en el modo de escaneo.
// Un modo vacío se considera pasivo.
func (m PluginMode) CompatibleWith(scan ScanMode) bool {
	if m == PluginModeActive {
		return scan == ScanModeActive
	}
	return true
}

// Risk es el nivel de severidad de un evento.
type Risk int

const (
	RiskNone Risk = iota
	RiskInfo
	RiskLow
	RiskMedium
	RiskHigh
)

var riskNames = [...]string{"NONE", "INFO", "LOW", "MEDIUM", "HIGH"}

func (r Risk) String() string {
	if r < RiskNone || r > RiskHigh {
		return "NONE"
	}
	return riskNames[r]
}

// IsValid verifica que el riesgo esté en el rango conocido.
func (r Risk) IsValid() bool {
	return r >= RiskNone && r <= RiskHigh
}

// ParseRisk convierte un nombre en Risk; nombres desconocidos son RiskNone.
func ParseRisk(s string) Risk {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, name := range riskNames {
		if name == s {
			return Risk(i)
		}
	}
	return RiskNone
}
