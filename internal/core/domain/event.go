// internal/core/domain/event.go
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Event es la unidad de descubrimiento que circula por el bus.
// Es inmutable después de construirse; el hash se calcula bajo demanda.
type Event struct {
	eventType  EventType
	data       string
	module     string
	source     *Event
	created    time.Time
	risk       Risk
	confidence int
	visibility int

	hashOnce sync.Once
	hash     string
}

// EventOption configura atributos opcionales de un evento.
type EventOption func(*Event)

// WithRisk fija la severidad del evento.
func WithRisk(r Risk) EventOption {
	return func(e *Event) { e.risk = r }
}

// WithConfidence fija la confianza (0-100).
func WithConfidence(c int) EventOption {
	return func(e *Event) { e.confidence = c }
}

// WithVisibility fija la visibilidad (0-100).
func WithVisibility(v int) EventOption {
	return func(e *Event) { e.visibility = v }
}

// WithCreated fija la marca de tiempo (usado al reconstruir eventos persistidos).
func WithCreated(t time.Time) EventOption {
	return func(e *Event) { e.created = t.UTC() }
}

// NewRootEvent crea el evento raíz de un escaneo. Su fuente es él mismo y su
// módulo es la cadena vacía.
func NewRootEvent(eventType EventType, data string) (*Event, error) {
	if err := validateEventFields(eventType, data); err != nil {
		return nil, err
	}
	e := &Event{
		eventType:  eventType,
		data:       data,
		created:    time.Now().UTC(),
		confidence: 100,
		visibility: 100,
	}
	e.source = e
	return e, nil
}

// NewEvent crea un evento derivado de source.
func NewEvent(eventType EventType, data, module string, source *Event, opts ...EventOption) (*Event, error) {
	if err := validateEventFields(eventType, data); err != nil {
		return nil, err
	}
	if eventType == EventTypeRoot {
		return nil, fmt.Errorf("%w: only the scan controller creates %s", ErrInvalidEvent, EventTypeRoot)
	}
	if source == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingSource, eventType)
	}

	e := &Event{
		eventType:  eventType,
		data:       data,
		module:     module,
		source:     source,
		created:    time.Now().UTC(),
		confidence: 100,
		visibility: 100,
	}
	for _, opt := range opts {
		opt(e)
	}

	if !e.risk.IsValid() {
		return nil, fmt.Errorf("%w: risk %d out of range", ErrInvalidEvent, e.risk)
	}
	if e.confidence < 0 || e.confidence > 100 {
		return nil, fmt.Errorf("%w: confidence %d out of range", ErrInvalidEvent, e.confidence)
	}
	if e.visibility < 0 || e.visibility > 100 {
		return nil, fmt.Errorf("%w: visibility %d out of range", ErrInvalidEvent, e.visibility)
	}
	return e, nil
}

func validateEventFields(eventType EventType, data string) error {
	if eventType == EventTypeWildcard {
		return ErrWildcardEvent
	}
	if !eventType.IsValid() {
		return fmt.Errorf("%w: type %q", ErrInvalidEvent, eventType)
	}
	if data == "" {
		return fmt.Errorf("%w: %s", ErrEmptyEventData, eventType)
	}
	return nil
}

func (e *Event) Type() EventType    { return e.eventType }
func (e *Event) Data() string       { return e.data }
func (e *Event) Module() string     { return e.module }
func (e *Event) Created() time.Time { return e.created }
func (e *Event) Risk() Risk         { return e.risk }
func (e *Event) Confidence() int    { return e.confidence }
func (e *Event) Visibility() int    { return e.visibility }

// Source retorna el evento padre. Para el evento raíz retorna el propio evento.
func (e *Event) Source() *Event { return e.source }

// IsRoot indica si el evento es la raíz del árbol de causalidad.
func (e *Event) IsRoot() bool { return e.source == e }

// Hash es sha256(type || 0x00 || data) en hexadecimal; depende solo de tipo y datos.
func (e *Event) Hash() string {
	e.hashOnce.Do(func() {
		e.hash = HashOf(e.eventType, e.data)
	})
	return e.hash
}

// SourceHash retorna el hash del evento padre.
func (e *Event) SourceHash() string {
	return e.source.Hash()
}

// Digest retorna un prefijo corto del hash, útil en logs.
func (e *Event) Digest() string {
	return e.Hash()[:12]
}

// HashOf calcula el hash de contenido para un par (tipo, datos).
func HashOf(eventType EventType, data string) string {
	h := sha256.New()
	h.Write([]byte(eventType))
	h.Write([]byte{0})
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// Ancestry retorna la cadena de padres desde el padre inmediato hasta la raíz.
// Para el evento raíz retorna una lista vacía.
func (e *Event) Ancestry() []*Event {
	var chain []*Event
	for cur := e; !cur.IsRoot(); {
		cur = cur.source
		chain = append(chain, cur)
	}
	return chain
}

// Depth es el número de saltos hasta la raíz.
func (e *Event) Depth() int {
	n := 0
	for cur := e; !cur.IsRoot(); cur = cur.source {
		n++
	}
	return n
}

// Root retorna la raíz del árbol de causalidad.
func (e *Event) Root() *Event {
	cur := e
	for !cur.IsRoot() {
		cur = cur.source
	}
	return cur
}

// RepeatsAncestor indica si algún ancestro a distancia dos o más (el padre del
// padre en adelante) tiene el mismo tipo y los mismos datos, sin distinguir
// mayúsculas. Esos eventos solo se entregan a los sinks: la notificación
// original del mismo dato ya disparó a los demás plugins.
func (e *Event) RepeatsAncestor() bool {
	if e.IsRoot() || e.source.IsRoot() {
		return false
	}
	for cur := e.source; !cur.IsRoot(); cur = cur.source {
		prev := cur.source
		if prev.eventType == e.eventType && strings.EqualFold(prev.data, e.data) {
			return true
		}
	}
	return false
}

// AsMap expone el evento como mapa para sinks y serialización.
func (e *Event) AsMap() map[string]interface{} {
	source := ""
	if !e.IsRoot() {
		source = e.source.data
	}
	return map[string]interface{}{
		"type":        string(e.eventType),
		"data":        e.data,
		"module":      e.module,
		"source":      source,
		"source_hash": e.SourceHash(),
		"hash":        e.Hash(),
		"created":     e.created.Format(time.RFC3339Nano),
		"risk":        e.risk.String(),
		"confidence":  e.confidence,
		"visibility":  e.visibility,
	}
}

func (e *Event) String() string {
	return fmt.Sprintf("%s(%s) from %q", e.eventType, e.data, e.module)
}
