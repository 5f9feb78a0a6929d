// internal/core/usecases/temp_storage.go
package usecases

import (
	"sync"

	"reconbus/internal/core/ports"
)

// memoryStorage es el almacenamiento temporal de un plugin dentro de un escaneo.
// Sin expulsión: un plugin que registra una clave debe volver a verla.
type memoryStorage struct {
	mu    sync.RWMutex
	items map[string]interface{}
}

// NewTempStorage crea un almacenamiento temporal vacío.
func NewTempStorage() ports.TempStorage {
	return &memoryStorage{items: make(map[string]interface{})}
}

func (m *memoryStorage) Seen(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[key]; ok {
		return true
	}
	m.items[key] = struct{}{}
	return false
}

func (m *memoryStorage) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.items[key]
	return ok
}

func (m *memoryStorage) Get(key string) (interface{}, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	return v, ok
}

func (m *memoryStorage) Set(key string, value interface{}) {
	m.mu.Lock()
	m.items[key] = value
	m.mu.Unlock()
}

func (m *memoryStorage) Delete(key string) {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
}

func (m *memoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
