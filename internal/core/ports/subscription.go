// internal/core/ports/subscription.go
package ports

import "reconbus/internal/core/domain"

// Subscription describe los tipos que consume un plugin: todos (comodín) o
// una lista explícita sin duplicados.
type Subscription struct {
	all   bool
	types []domain.EventType
}

// WatchAll suscribe a todos los tipos de evento.
func WatchAll() Subscription {
	return Subscription{all: true}
}

// Watch suscribe a los tipos indicados. Los duplicados se eliminan conservando
// el primer orden de aparición; un "*" en la lista equivale a WatchAll.
func Watch(types ...domain.EventType) Subscription {
	seen := make(map[domain.EventType]bool, len(types))
	out := make([]domain.EventType, 0, len(types))
	for _, t := range types {
		if t == domain.EventTypeWildcard {
			return WatchAll()
		}
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return Subscription{types: out}
}

// All indica si la suscripción es al comodín.
func (s Subscription) All() bool { return s.all }

// Types retorna los tipos explícitos (vacío si All).
func (s Subscription) Types() []domain.EventType {
	out := make([]domain.EventType, len(s.types))
	copy(out, s.types)
	return out
}

// Includes indica si la suscripción acepta el tipo dado.
func (s Subscription) Includes(t domain.EventType) bool {
	if s.all {
		return true
	}
	for _, w := range s.types {
		if w == t {
			return true
		}
	}
	return false
}

// IsEmpty indica si la suscripción no acepta ningún tipo.
func (s Subscription) IsEmpty() bool {
	return !s.all && len(s.types) == 0
}
