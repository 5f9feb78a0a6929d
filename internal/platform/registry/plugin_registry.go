// internal/platform/registry/plugin_registry.go
package registry

import (
	"fmt"
	"sort"
	"sync"

	"reconbus/internal/core/domain"
	"reconbus/internal/core/ports"
	"reconbus/internal/platform/logx"
)

// PluginRegistry gestiona el registro e instanciación de plugins.
// Implementa el patrón Registry + Factory: cada paquete de plugin se
// registra en init() y el controlador instancia por nombre en cada escaneo.
type PluginRegistry struct {
	mu        sync.RWMutex
	factories map[string]PluginFactory
	metadata  map[string]ports.PluginMetadata
	logger    logx.Logger
}

// PluginFactory crea una instancia nueva de un plugin. Cada escaneo recibe
// instancias propias; el estado nunca se comparte entre escaneos.
type PluginFactory func() ports.Plugin

// BuiltPlugin es una instancia lista para Setup junto con su metadata.
type BuiltPlugin struct {
	Plugin   ports.Plugin
	Metadata ports.PluginMetadata
}

var (
	globalRegistry *PluginRegistry
	once           sync.Once
)

// Global retorna la instancia global del registry.
func Global() *PluginRegistry {
	once.Do(func() {
		globalRegistry = NewPluginRegistry(logx.New())
	})
	return globalRegistry
}

// NewPluginRegistry crea un registry vacío.
func NewPluginRegistry(logger logx.Logger) *PluginRegistry {
	return &PluginRegistry{
		factories: make(map[string]PluginFactory),
		metadata:  make(map[string]ports.PluginMetadata),
		logger:    logger.With("component", "plugin-registry"),
	}
}

// Register registra una factory con su metadata.
// Típicamente llamado desde init() de cada paquete de plugin.
func (r *PluginRegistry) Register(name string, factory PluginFactory, meta ports.PluginMetadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" {
		return fmt.Errorf("plugin name cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("factory cannot be nil for plugin %s", name)
	}
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("plugin %s is already registered", name)
	}
	if meta.Name == "" {
		meta.Name = name
	}
	if meta.Mode == "" {
		meta.Mode = domain.PluginModePassive
	}

	r.factories[name] = factory
	r.metadata[name] = meta
	r.logger.Debug("plugin registered", "name", name, "mode", meta.Mode, "priority", meta.Priority)
	return nil
}

// MustRegister es Register que entra en pánico ante error; para init().
func (r *PluginRegistry) MustRegister(name string, factory PluginFactory, meta ports.PluginMetadata) {
	if err := r.Register(name, factory, meta); err != nil {
		panic(err)
	}
}

// Build instancia los plugins pedidos. Los nombres desconocidos o repetidos
// se reportan como errores sin abortar el resto. El resultado se ordena por
// prioridad ascendente conservando el orden pedido en los empates.
func (r *PluginRegistry) Build(names []string) ([]BuiltPlugin, []error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	built := make([]BuiltPlugin, 0, len(names))
	var errs []error
	seen := make(map[string]bool, len(names))

	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		factory, ok := r.factories[name]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s", domain.ErrPluginNotFound, name))
			continue
		}
		plugin := factory()
		if plugin == nil {
			errs = append(errs, fmt.Errorf("factory for plugin %s returned nil", name))
			continue
		}
		built = append(built, BuiltPlugin{Plugin: plugin, Metadata: r.metadata[name]})
	}

	sort.SliceStable(built, func(i, j int) bool {
		return built[i].Metadata.Priority < built[j].Metadata.Priority
	})

	for _, err := range errs {
		r.logger.Warn("plugin build error", "error", err.Error())
	}
	return built, errs
}

// List retorna los nombres registrados ordenados alfabéticamente.
func (r *PluginRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Producers retorna los plugins registrados que declaran producir t.
func (r *PluginRegistry) Producers(t domain.EventType) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	for name, meta := range r.metadata {
		for _, p := range meta.Produced {
			if p == t {
				names = append(names, name)
				break
			}
		}
	}
	sort.Strings(names)
	return names
}

// GetMetadata retorna la metadata de un plugin.
func (r *PluginRegistry) GetMetadata(name string) (ports.PluginMetadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	meta, exists := r.metadata[name]
	return meta, exists
}

// GetAllMetadata retorna una copia de la metadata de todos los plugins.
func (r *PluginRegistry) GetAllMetadata() map[string]ports.PluginMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]ports.PluginMetadata, len(r.metadata))
	for name, meta := range r.metadata {
		result[name] = meta
	}
	return result
}

// IsRegistered verifica si un plugin está registrado.
func (r *PluginRegistry) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.factories[name]
	return exists
}

// Clear elimina todos los plugins registrados (útil para testing).
func (r *PluginRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories = make(map[string]PluginFactory)
	r.metadata = make(map[string]ports.PluginMetadata)
}
