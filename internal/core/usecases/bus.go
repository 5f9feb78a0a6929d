// internal/core/usecases/bus.go
package usecases

import (
	"sync"
	"sync/atomic"

	"reconbus/internal/core/domain"
	"reconbus/internal/core/ports"
)

// subscriber es un plugin cargado en un escaneo.
type subscriber struct {
	plugin ports.Plugin
	meta   ports.PluginMetadata
	name   string
	sink   bool

	// failed marca el estado de error: no recibe más eventos
	failed atomic.Bool
}

func newSubscriber(p ports.Plugin, meta ports.PluginMetadata) *subscriber {
	return &subscriber{
		plugin: p,
		meta:   meta,
		name:   p.Name(),
		sink:   ports.IsSinkPlugin(p),
	}
}

// Bus es la tabla de suscripciones de un escaneo: listas por tipo más la
// lista del comodín, cada una en orden de registro.
type Bus struct {
	mu       sync.RWMutex
	specific map[domain.EventType][]*subscriber
	wildcard []*subscriber
	members  []*subscriber

	// allowed filtro de salida; nil entrega todos los tipos
	allowed map[domain.EventType]bool
}

// NewBus crea una tabla vacía. Un filtro vacío no filtra.
func NewBus(outputFilter []domain.EventType) *Bus {
	b := &Bus{specific: make(map[domain.EventType][]*subscriber)}
	if len(outputFilter) > 0 {
		b.allowed = make(map[domain.EventType]bool, len(outputFilter))
		for _, t := range outputFilter {
			b.allowed[t] = true
		}
	}
	return b
}

// Subscribe registra un subscriber según sus tipos vigilados. Registrar dos
// veces el mismo subscriber no tiene efecto.
func (b *Bus) Subscribe(s *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, m := range b.members {
		if m == s {
			return
		}
	}
	b.members = append(b.members, s)

	watched := s.plugin.WatchedEvents()
	if watched.All() {
		b.wildcard = append(b.wildcard, s)
		return
	}
	for _, t := range watched.Types() {
		b.specific[t] = append(b.specific[t], s)
	}
}

// Subscribers resuelve los destinatarios de ev: los suscritos a su tipo y
// después los del comodín. El evento raíz también llega a quienes vigilan ROOT,
// sin duplicar.
func (b *Bus) Subscribers(ev *domain.Event) []*subscriber {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]*subscriber, 0, len(b.specific[ev.Type()])+len(b.wildcard))
	out = append(out, b.specific[ev.Type()]...)
	if ev.IsRoot() && ev.Type() != domain.EventTypeRoot {
		for _, s := range b.specific[domain.EventTypeRoot] {
			if !containsSubscriber(out, s) {
				out = append(out, s)
			}
		}
	}
	for _, s := range b.wildcard {
		if !containsSubscriber(out, s) {
			out = append(out, s)
		}
	}
	return sinksLast(out)
}

// sinksLast mueve los sinks al final conservando el orden relativo.
func sinksLast(subs []*subscriber) []*subscriber {
	out := make([]*subscriber, 0, len(subs))
	for _, s := range subs {
		if !s.sink {
			out = append(out, s)
		}
	}
	return append(out, sinksOnly(subs)...)
}

// Allows indica si el filtro de salida deja pasar el tipo.
func (b *Bus) Allows(t domain.EventType) bool {
	if b.allowed == nil {
		return true
	}
	return b.allowed[t]
}

// Members retorna los subscribers en orden de registro.
func (b *Bus) Members() []*subscriber {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*subscriber, len(b.members))
	copy(out, b.members)
	return out
}

// WatchedTypes retorna los tipos explícitos vigilados por algún subscriber.
func (b *Bus) WatchedTypes() []domain.EventType {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]domain.EventType, 0, len(b.specific))
	for _, s := range b.members {
		for _, t := range s.plugin.WatchedEvents().Types() {
			if !containsType(out, t) {
				out = append(out, t)
			}
		}
	}
	return out
}

func sinksOnly(subs []*subscriber) []*subscriber {
	out := subs[:0:0]
	for _, s := range subs {
		if s.sink {
			out = append(out, s)
		}
	}
	return out
}

func containsSubscriber(list []*subscriber, s *subscriber) bool {
	for _, m := range list {
		if m == s {
			return true
		}
	}
	return false
}

func containsType(list []domain.EventType, t domain.EventType) bool {
	for _, m := range list {
		if m == t {
			return true
		}
	}
	return false
}
