// internal/core/ports/plugin.go
package ports

import (
	"context"
	"errors"
	"fmt"
	"io"

	"reconbus/internal/core/domain"
	"reconbus/internal/platform/logx"
)

// Plugin es el contrato que todo colector debe cumplir.
// Las llamadas a HandleEvent se realizan desde una única goroutine por
// escaneo; un plugin puede usar workers internos para su I/O, pero debe
// esperarlos antes de retornar y no debe publicar desde ellos.
type Plugin interface {
	// Name retorna el nombre único del plugin
	Name() string

	// Setup fusiona la configuración e inicializa el estado del escaneo.
	// Debe ser idempotente dentro de un escaneo.
	Setup(fw Framework, opts Options) error

	// WatchedEvents retorna los tipos que el plugin consume
	WatchedEvents() Subscription

	// ProducedEvents retorna los tipos que el plugin puede publicar
	ProducedEvents() []domain.EventType

	// HandleEvent procesa un evento suscrito. Puede publicar vía Framework.Notify.
	HandleEvent(ctx context.Context, event *domain.Event) error
}

// Starter es implementado por plugins que generan eventos solo a partir del
// objetivo. Start se invoca una vez, después de publicar el evento raíz.
type Starter interface {
	Start(ctx context.Context) error
}

// TargetEnricher es implementado por plugins que aportan alias al objetivo
// antes de que se publique el evento raíz.
type TargetEnricher interface {
	EnrichTarget(ctx context.Context, target *domain.Target) error
}

// Finisher es implementado por plugins que necesitan cerrar recursos al
// terminar el escaneo (quiescencia o aborto).
type Finisher interface {
	Finish(ctx context.Context) error
}

// Sink marca los plugins de almacenamiento. Se suscriben al comodín, se
// registran al final y son los únicos que reciben eventos que repiten un
// ancestro.
type Sink interface {
	Plugin
	IsSink() bool
}

// IsSinkPlugin indica si p es un sink.
func IsSinkPlugin(p Plugin) bool {
	s, ok := p.(Sink)
	return ok && s.IsSink()
}

// Framework es el acceso acotado de un plugin al escaneo en curso.
type Framework interface {
	// Notify publica un evento en el bus
	Notify(event *domain.Event) error

	// NewEvent construye un evento con este plugin como módulo
	NewEvent(eventType domain.EventType, data string, source *domain.Event, opts ...domain.EventOption) (*domain.Event, error)

	// CheckForStop es una lectura no bloqueante del indicador de cancelación
	CheckForStop() bool

	// TempStorage retorna el almacenamiento temporal propio del plugin
	TempStorage() TempStorage

	// Target retorna el objetivo del escaneo
	Target() *domain.Target

	// RootEvent retorna el evento raíz; nil antes de publicarlo
	RootEvent() *domain.Event

	// ScanID retorna el identificador del escaneo
	ScanID() string

	// Logger retorna un logger con el contexto del plugin
	Logger() logx.Logger

	// Services retorna los colaboradores externos disponibles
	Services() Services
}

// Services agrupa los colaboradores externos que el núcleo no implementa.
// Cualquiera puede ser nil; los plugins que los necesitan fallan en Setup.
type Services struct {
	Resolver Resolver
	Fetcher  Fetcher
	Whois    WhoisClient
	Store    EventStore
	Console  io.Writer
}

// TempStorage es el almacenamiento temporal por plugin y por escaneo.
type TempStorage interface {
	// Seen registra key y reporta si ya estaba registrada
	Seen(key string) bool
	Has(key string) bool
	Get(key string) (interface{}, bool)
	Set(key string, value interface{})
	Delete(key string)
	Len() int
}

// FatalError indica que el plugin no puede seguir operando en este escaneo.
// El dispatcher lo registra y deja de entregarle eventos; el escaneo continúa.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal: %v", e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Fatal envuelve err como FatalError. Retorna nil si err es nil.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// IsFatal indica si la cadena de err contiene un FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// PluginMetadata describe un plugin registrado.
type PluginMetadata struct {
	// Name identificador único (ej: "dnsresolve")
	Name string

	// Description descripción legible
	Description string

	// Mode passive o active
	Mode domain.PluginMode

	// Priority orden de entrega ascendente; empates conservan el orden de carga
	Priority int

	// Essential indica que un fallo en Setup hace fallar el escaneo
	Essential bool

	// DefaultOptions opciones por defecto del plugin
	DefaultOptions Options

	// OptionDescriptions documentación de cada opción
	OptionDescriptions map[string]string

	// Watched y Produced documentan los tipos consumidos y producidos
	Watched  []domain.EventType
	Produced []domain.EventType
}
