// internal/platform/resilience/circuit_breaker.go
package resilience

import (
	"sync"
	"time"

	"reconbus/internal/platform/errors"
)

// State representa el estado del circuit breaker.
type State int

const (
	StateClosed   State = iota // operación normal
	StateOpen                  // rechaza llamadas
	StateHalfOpen              // prueba si el servicio se recuperó
)

// String retorna una representación legible del estado.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig parámetros de un circuit breaker.
type BreakerConfig struct {
	// FailureThreshold fallos consecutivos que abren el circuito
	FailureThreshold int

	// Cooldown tiempo abierto antes de pasar a half-open
	Cooldown time.Duration

	// HalfOpenMax llamadas de prueba permitidas en half-open
	HalfOpenMax int
}

// DefaultBreakerConfig retorna la configuración por defecto.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{FailureThreshold: 5, Cooldown: 60 * time.Second, HalfOpenMax: 1}
}

// CircuitBreaker evita insistir sobre un colaborador que está fallando.
type CircuitBreaker struct {
	mu       sync.Mutex
	cfg      BreakerConfig
	state    State
	failures int
	inFlight int // llamadas de prueba en half-open
	openedAt time.Time
	now      func() time.Time
}

// NewCircuitBreaker crea un circuit breaker; valores no positivos toman el
// valor por defecto.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	def := DefaultBreakerConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = def.HalfOpenMax
	}
	return &CircuitBreaker{cfg: cfg, now: time.Now}
}

// Allow indica si una llamada puede pasar. Tras el cooldown el circuito
// pasa a half-open y admite hasta HalfOpenMax llamadas de prueba.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.cfg.Cooldown {
			return false
		}
		cb.state = StateHalfOpen
		cb.inFlight = 0
		fallthrough
	case StateHalfOpen:
		if cb.inFlight >= cb.cfg.HalfOpenMax {
			return false
		}
		cb.inFlight++
		return true
	default:
		return true
	}
}

// RecordSuccess cierra el circuito y reinicia el contador de fallos.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.inFlight = 0
}

// RecordFailure cuenta un fallo. En half-open reabre de inmediato.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	if cb.state == StateHalfOpen || cb.failures >= cb.cfg.FailureThreshold {
		cb.state = StateOpen
		cb.openedAt = cb.now()
		cb.inFlight = 0
	}
}

// Execute ejecuta fn si el circuito lo permite y registra el resultado.
// Retorna errors.ErrCircuitOpen sin llamar a fn si está abierto.
// Los errores para los que isFailure retorna false no cuentan como fallo.
func (cb *CircuitBreaker) Execute(fn func() error, isFailure func(error) bool) error {
	if !cb.Allow() {
		return errors.ErrCircuitOpen
	}
	err := fn()
	if err != nil && (isFailure == nil || isFailure(err)) {
		cb.RecordFailure()
		return err
	}
	cb.RecordSuccess()
	return err
}

// State retorna el estado actual.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.cfg.Cooldown {
		return StateHalfOpen
	}
	return cb.state
}

// Failures retorna los fallos consecutivos registrados.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Reset vuelve al estado cerrado.
func (cb *CircuitBreaker) Reset() {
	cb.RecordSuccess()
}

// Group mantiene un circuit breaker por clave (ej: host remoto).
type Group struct {
	mu       sync.Mutex
	cfg      BreakerConfig
	breakers map[string]*CircuitBreaker
}

// NewGroup crea un grupo cuyos breakers comparten cfg.
func NewGroup(cfg BreakerConfig) *Group {
	return &Group{cfg: cfg, breakers: make(map[string]*CircuitBreaker)}
}

// Get retorna el breaker de key, creándolo si no existe.
func (g *Group) Get(key string) *CircuitBreaker {
	g.mu.Lock()
	defer g.mu.Unlock()
	cb, ok := g.breakers[key]
	if !ok {
		cb = NewCircuitBreaker(g.cfg)
		g.breakers[key] = cb
	}
	return cb
}

// States retorna el estado de cada clave conocida.
func (g *Group) States() map[string]State {
	g.mu.Lock()
	keys := make(map[string]*CircuitBreaker, len(g.breakers))
	for k, cb := range g.breakers {
		keys[k] = cb
	}
	g.mu.Unlock()

	out := make(map[string]State, len(keys))
	for k, cb := range keys {
		out[k] = cb.State()
	}
	return out
}
