// internal/core/usecases/status_registry.go
package usecases

import (
	"sync"

	"reconbus/internal/core/domain"
)

// StatusRegistry es el registro de estados de escaneo compartido por el proceso.
// Puede leerse desde cualquier goroutine; la última escritura prevalece.
type StatusRegistry struct {
	mu       sync.RWMutex
	statuses map[string]domain.ScanStatus
}

// NewStatusRegistry crea un registro vacío.
func NewStatusRegistry() *StatusRegistry {
	return &StatusRegistry{statuses: make(map[string]domain.ScanStatus)}
}

// Register añade un escaneo en estado CREATED. Falla si el id ya existe
// y su escaneo no ha terminado.
func (r *StatusRegistry) Register(scanID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.statuses[scanID]; ok && !cur.IsTerminal() {
		return domain.ErrScanExists
	}
	r.statuses[scanID] = domain.StatusCreated
	return nil
}

// Set fija el estado de un escaneo.
func (r *StatusRegistry) Set(scanID string, status domain.ScanStatus) {
	r.mu.Lock()
	r.statuses[scanID] = status
	r.mu.Unlock()
}

// Get retorna el estado de un escaneo, si existe.
func (r *StatusRegistry) Get(scanID string) (domain.ScanStatus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.statuses[scanID]
	return s, ok
}

// GetAll retorna una copia de todos los estados.
func (r *StatusRegistry) GetAll() map[string]domain.ScanStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]domain.ScanStatus, len(r.statuses))
	for id, s := range r.statuses {
		out[id] = s
	}
	return out
}

// Remove elimina un escaneo del registro.
func (r *StatusRegistry) Remove(scanID string) {
	r.mu.Lock()
	delete(r.statuses, scanID)
	r.mu.Unlock()
}

// Len retorna el número de escaneos registrados.
func (r *StatusRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.statuses)
}
