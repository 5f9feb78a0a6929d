// internal/core/ports/notifier.go
package ports

import (
	"context"
	"time"

	"reconbus/internal/core/domain"
)

// Notifier es el port para observadores del ciclo de vida de un escaneo.
// Implementa el patrón Observer para desacoplar el controlador de la
// persistencia de estados, la UI u otros mecanismos.
type Notifier interface {
	// Notify recibe una notificación; se invoca en orden de registro
	Notify(ctx context.Context, n Notification) error

	// Close cierra el notifier y libera recursos
	Close() error
}

// Notification representa un hecho del ciclo de vida de un escaneo.
type Notification struct {
	// Type tipo de notificación
	Type NotificationType

	// Timestamp momento de la notificación
	Timestamp time.Time

	// ScanID escaneo relacionado
	ScanID string

	// Status estado del escaneo tras el hecho
	Status domain.ScanStatus

	// Plugin plugin relacionado (opcional)
	Plugin string

	// Message detalle legible (opcional)
	Message string

	// Severity severidad de la notificación
	Severity Severity

	// Target semilla del escaneo
	Target string
}

// NotificationType define los tipos de notificación.
type NotificationType string

const (
	NotificationStatusChanged NotificationType = "scan.status"
	NotificationPluginFailed  NotificationType = "plugin.failed"
	NotificationWarning       NotificationType = "scan.warning"
)

// Severity define la severidad de una notificación.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// NewStatusNotification crea una notificación de cambio de estado.
func NewStatusNotification(scanID, target string, status domain.ScanStatus) Notification {
	severity := SeverityInfo
	if status == domain.StatusErrorFailed {
		severity = SeverityError
	}
	return Notification{
		Type:      NotificationStatusChanged,
		Timestamp: time.Now(),
		ScanID:    scanID,
		Status:    status,
		Severity:  severity,
		Target:    target,
	}
}
