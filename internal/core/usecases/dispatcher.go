// internal/core/usecases/dispatcher.go
package usecases

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"reconbus/internal/core/domain"
	"reconbus/internal/core/ports"
	"reconbus/internal/platform/logx"
)

// DispatchHooks son los callbacks del dispatcher hacia el controlador.
// Se invocan fuera del lock de entrega.
type DispatchHooks struct {
	// OnDelivered tras cada HandleEvent
	OnDelivered func(s *subscriber, ev *domain.Event)

	// OnFailure cuando un plugin retorna error o entra en pánico
	OnFailure func(s *subscriber, phase string, err error, fatal bool)
}

// DispatchStats contadores de un escaneo.
type DispatchStats struct {
	Published map[domain.EventType]int
	Delivered int
	Filtered  int
	StoreOnly int
	Dropped   int // publicados o encolados tras la cancelación
}

// frame es una entrada de la pila de trabajo: un evento, sus destinatarios
// resueltos al publicar y el índice del siguiente a entregar.
type frame struct {
	event *domain.Event
	subs  []*subscriber
	next  int
}

// Dispatcher entrega eventos en profundidad con una pila explícita.
// Los eventos publicados durante un HandleEvent se acumulan y se apilan al
// retornar el handler, de modo que sus descendientes se procesan antes que
// el siguiente destinatario del padre.
type Dispatcher struct {
	bus    *Bus
	ctx    context.Context
	logger logx.Logger
	hooks  DispatchHooks

	stopped atomic.Bool

	mu       sync.Mutex // protege pending, draining y stats
	pending  []*frame
	draining bool
	stats    DispatchStats

	// deliverMu se mantiene durante cada entrega; Stop lo usa para esperar
	// a que termine el handler en curso
	deliverMu sync.Mutex
}

// NewDispatcher crea un dispatcher sobre bus. ctx es el contexto que reciben
// los handlers.
func NewDispatcher(ctx context.Context, bus *Bus, logger logx.Logger, hooks DispatchHooks) *Dispatcher {
	if logger == nil {
		logger = logx.NewDiscard()
	}
	return &Dispatcher{
		bus:    bus,
		ctx:    ctx,
		logger: logger,
		hooks:  hooks,
		stats:  DispatchStats{Published: make(map[domain.EventType]int)},
	}
}

// Publish pone ev en el bus. Fuera de una entrega procesa la cola completa
// antes de retornar; dentro de una entrega solo la encola.
func (d *Dispatcher) Publish(ev *domain.Event) error {
	if ev == nil {
		return domain.ErrInvalidEvent
	}
	if d.stopped.Load() {
		d.mu.Lock()
		d.stats.Dropped++
		d.mu.Unlock()
		return nil
	}
	if !ev.IsRoot() && !d.bus.Allows(ev.Type()) {
		d.mu.Lock()
		d.stats.Filtered++
		d.mu.Unlock()
		d.logger.Debug("event filtered", "event_type", ev.Type(), "data_digest", ev.Digest())
		return nil
	}

	subs := d.bus.Subscribers(ev)
	storeOnly := !ev.IsRoot() && ev.RepeatsAncestor()
	if storeOnly {
		subs = sinksOnly(subs)
	}
	f := &frame{event: ev, subs: subs}

	d.mu.Lock()
	d.stats.Published[ev.Type()]++
	if storeOnly {
		d.stats.StoreOnly++
	}
	if d.draining {
		d.pending = append(d.pending, f)
		d.mu.Unlock()
		return nil
	}
	d.draining = true
	d.mu.Unlock()

	d.drain(f)
	return nil
}

func (d *Dispatcher) drain(first *frame) {
	stack := []*frame{first}
	for {
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			if top.next >= len(top.subs) {
				stack = stack[:len(stack)-1]
				continue
			}
			s := top.subs[top.next]
			top.next++
			if s.failed.Load() {
				continue
			}
			if !d.deliver(s, top.event) {
				stack = nil
				break
			}
			stack = d.pushPending(stack)
		}

		d.mu.Lock()
		if len(d.pending) == 0 || d.stopped.Load() {
			d.stats.Dropped += len(d.pending)
			d.pending = nil
			d.draining = false
			d.mu.Unlock()
			return
		}
		d.mu.Unlock()
		stack = d.pushPending(stack)
	}
}

// pushPending apila los eventos acumulados en orden inverso para que el
// primero publicado quede en la cima.
func (d *Dispatcher) pushPending(stack []*frame) []*frame {
	d.mu.Lock()
	children := d.pending
	d.pending = nil
	if d.stopped.Load() {
		d.stats.Dropped += len(children)
		children = nil
	}
	d.mu.Unlock()
	for i := len(children) - 1; i >= 0; i-- {
		stack = append(stack, children[i])
	}
	return stack
}

// deliver invoca HandleEvent. Retorna false si la cancelación estaba activa.
func (d *Dispatcher) deliver(s *subscriber, ev *domain.Event) bool {
	d.deliverMu.Lock()
	if d.stopped.Load() {
		d.deliverMu.Unlock()
		return false
	}
	panicked, err := safeCall(func() error {
		return s.plugin.HandleEvent(d.ctx, ev)
	})
	d.mu.Lock()
	d.stats.Delivered++
	d.mu.Unlock()
	d.deliverMu.Unlock()

	if err != nil {
		fatal := panicked || ports.IsFatal(err)
		if fatal {
			s.failed.Store(true)
			d.logger.Err(err,
				"plugin", s.name,
				"event_type", ev.Type(),
				"data_digest", ev.Digest(),
				"state", "error",
			)
		} else {
			d.logger.Warn("plugin failed to handle event",
				"plugin", s.name,
				"event_type", ev.Type(),
				"data_digest", ev.Digest(),
				"error", err.Error(),
			)
		}
		if d.hooks.OnFailure != nil {
			d.hooks.OnFailure(s, PhaseHandle, err, fatal)
		}
	}
	if d.hooks.OnDelivered != nil {
		d.hooks.OnDelivered(s, ev)
	}
	return true
}

// Stop activa la cancelación. Retorna false si ya estaba activa.
func (d *Dispatcher) Stop() bool {
	return d.stopped.CompareAndSwap(false, true)
}

// Stopped es una lectura no bloqueante de la cancelación.
func (d *Dispatcher) Stopped() bool {
	return d.stopped.Load()
}

// AwaitIdle espera a que termine la entrega en curso, como máximo grace.
// Tras Stop y un AwaitIdle exitoso no se inicia ningún HandleEvent.
func (d *Dispatcher) AwaitIdle(grace time.Duration) bool {
	done := make(chan struct{})
	go func() {
		d.deliverMu.Lock()
		close(done)
		d.deliverMu.Unlock()
	}()
	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

// Stats retorna una copia de los contadores.
func (d *Dispatcher) Stats() DispatchStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.stats
	out.Published = make(map[domain.EventType]int, len(d.stats.Published))
	for t, n := range d.stats.Published {
		out.Published[t] = n
	}
	return out
}

// safeCall ejecuta fn convirtiendo un pánico en error.
func safeCall(fn func() error) (panicked bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return false, fn()
}
