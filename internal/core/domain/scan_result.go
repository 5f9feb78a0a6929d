// internal/core/domain/scan_result.go
package domain

import (
	"sort"
	"time"
)

// ScanResult resume la ejecución de un escaneo.
type ScanResult struct {
	// ID identificador único del escaneo
	ID string

	// Target semilla canónica
	TargetValue string
	TargetType  EventType

	// Status estado terminal alcanzado
	Status ScanStatus

	// Metadata información sobre la ejecución
	Metadata ScanMetadata

	// EventCounts eventos publicados por tipo (incluye la raíz)
	EventCounts map[EventType]int

	// Warnings advertencias no críticas durante el escaneo
	Warnings []Warning

	// Errors errores de plugins ocurridos durante el escaneo
	Errors []Error
}

// ScanMetadata contiene información sobre la ejecución del escaneo.
type ScanMetadata struct {
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	// PluginsLoaded plugins que completaron Setup, en orden de entrega
	PluginsLoaded []string

	// PluginsFailed plugins excluidos o puestos en estado de error
	PluginsFailed []string

	// Delivered número de llamadas a HandleEvent realizadas
	Delivered int

	// Filtered eventos descartados por el filtro de salida
	Filtered int

	// StoreOnly eventos entregados solo a sinks por repetir un ancestro
	StoreOnly int

	// Version versión de reconbus utilizada
	Version string
}

// Warning representa una advertencia no crítica durante el escaneo.
type Warning struct {
	Source    string
	Message   string
	Timestamp time.Time
}

// Error representa un error de plugin ocurrido durante el escaneo.
type Error struct {
	// Source plugin que generó el error
	Source string

	// Message descripción del error
	Message string

	// Phase fase en la que ocurrió: setup, start, handle, finish
	Phase string

	// Fatal indica si el plugin quedó en estado de error
	Fatal bool

	Timestamp time.Time
}

// NewScanResult crea un resultado vacío para la semilla dada.
func NewScanResult(id, value string, targetType EventType) *ScanResult {
	return &ScanResult{
		ID:          id,
		TargetValue: value,
		TargetType:  targetType,
		Status:      StatusCreated,
		Metadata:    ScanMetadata{StartTime: time.Now()},
		EventCounts: make(map[EventType]int),
		Warnings:    []Warning{},
		Errors:      []Error{},
	}
}

// AddWarning añade una advertencia.
func (r *ScanResult) AddWarning(source, message string) {
	r.Warnings = append(r.Warnings, Warning{Source: source, Message: message, Timestamp: time.Now()})
}

// AddError añade un error de plugin.
func (r *ScanResult) AddError(source, phase, message string, fatal bool) {
	r.Errors = append(r.Errors, Error{
		Source:    source,
		Phase:     phase,
		Message:   message,
		Fatal:     fatal,
		Timestamp: time.Now(),
	})
}

// Finalize fija el estado terminal y la duración.
func (r *ScanResult) Finalize(status ScanStatus) {
	r.Status = status
	r.Metadata.EndTime = time.Now()
	r.Metadata.Duration = r.Metadata.EndTime.Sub(r.Metadata.StartTime)
}

// TotalEvents retorna el total de eventos publicados.
func (r *ScanResult) TotalEvents() int {
	total := 0
	for _, n := range r.EventCounts {
		total += n
	}
	return total
}

// SortedTypes retorna los tipos con eventos ordenados por cantidad descendente.
func (r *ScanResult) SortedTypes() []EventType {
	types := make([]EventType, 0, len(r.EventCounts))
	for t := range r.EventCounts {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool {
		if r.EventCounts[types[i]] != r.EventCounts[types[j]] {
			return r.EventCounts[types[i]] > r.EventCounts[types[j]]
		}
		return types[i] < types[j]
	})
	return types
}

// HasFatalErrors indica si algún plugin quedó en estado de error.
func (r *ScanResult) HasFatalErrors() bool {
	for _, e := range r.Errors {
		if e.Fatal {
			return true
		}
	}
	return false
}
