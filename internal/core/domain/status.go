// internal/core/domain/status.go
package domain

// ScanStatus es la etiqueta de estado de un escaneo.
type ScanStatus string

const (
	StatusCreated        ScanStatus = "CREATED"
	StatusStarting       ScanStatus = "STARTING"
	StatusStarted        ScanStatus = "STARTED"
	StatusRunning        ScanStatus = "RUNNING"
	StatusAbortRequested ScanStatus = "ABORT-REQUESTED"
	StatusAborted        ScanStatus = "ABORTED"
	StatusFinished       ScanStatus = "FINISHED"
	StatusErrorFailed    ScanStatus = "ERROR-FAILED"
)

// transitions define los sucesores permitidos de cada estado.
var transitions = map[ScanStatus][]ScanStatus{
	StatusCreated:        {StatusStarting, StatusErrorFailed, StatusAbortRequested},
	StatusStarting:       {StatusStarted, StatusErrorFailed, StatusAbortRequested},
	StatusStarted:        {StatusRunning, StatusAbortRequested, StatusErrorFailed},
	StatusRunning:        {StatusFinished, StatusAbortRequested, StatusErrorFailed},
	StatusAbortRequested: {StatusAborted},
}

// IsValid verifica si el estado es conocido.
func (s ScanStatus) IsValid() bool {
	switch s {
	case StatusCreated, StatusStarting, StatusStarted, StatusRunning,
		StatusAbortRequested, StatusAborted, StatusFinished, StatusErrorFailed:
		return true
	default:
		return false
	}
}

// IsTerminal indica si el escaneo ya no cambiará de estado.
func (s ScanStatus) IsTerminal() bool {
	return s == StatusFinished || s == StatusAborted || s == StatusErrorFailed
}

// CanTransitionTo indica si next es un sucesor permitido.
func (s ScanStatus) CanTransitionTo(next ScanStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s ScanStatus) String() string {
	return string(s)
}
