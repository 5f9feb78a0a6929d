// internal/testutil/mocks.go
package testutil

import (
	"sync"
)

// Nota: los fakes de ports (resolver, fetcher, store) están en testutil/fakes.
// Este archivo contiene solo utilidades genéricas sin dependencias de dominio.

// Recorder acumula entradas en orden de llegada de forma segura entre goroutines.
type Recorder struct {
	mu      sync.Mutex
	entries []string
}

// NewRecorder crea un Recorder vacío.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record añade una entrada.
func (r *Recorder) Record(entry string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

// Entries retorna una copia de las entradas.
func (r *Recorder) Entries() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len retorna el número de entradas.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Count retorna cuántas veces aparece entry.
func (r *Recorder) Count(entry string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if e == entry {
			n++
		}
	}
	return n
}
