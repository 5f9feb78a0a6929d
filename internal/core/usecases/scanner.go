// internal/core/usecases/scanner.go
package usecases

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"

	"reconbus/internal/core/domain"
	"reconbus/internal/core/ports"
	"reconbus/internal/platform/logx"
	"reconbus/internal/platform/registry"
)

// Phases reportadas en los errores de plugin.
const (
	PhaseTarget = "target"
	PhaseSetup  = "setup"
	PhaseEnrich = "enrich"
	PhaseStart  = "start"
	PhaseHandle = "handle"
	PhaseFinish = "finish"
)

// Scanner es el controlador de escaneos: instancia plugins, cablea el bus,
// publica el evento raíz y conduce la máquina de estados hasta un estado
// terminal.
type Scanner struct {
	registry  *registry.PluginRegistry
	statuses  *StatusRegistry
	services  ports.Services
	logger    logx.Logger
	observers []ports.Notifier

	notifyTimeout time.Duration
	stopGrace     time.Duration
	finishTimeout time.Duration
	defaultSinks  []string
	version       string

	mu     sync.Mutex
	active map[string]*scan
}

// ScannerOptions configura el scanner.
type ScannerOptions struct {
	Registry  *registry.PluginRegistry
	Statuses  *StatusRegistry
	Services  ports.Services
	Logger    logx.Logger
	Observers []ports.Notifier

	// NotifyTimeout límite por observador y notificación
	NotifyTimeout time.Duration

	// StopGrace espera máxima de Stop por la entrega en curso
	StopGrace time.Duration

	// FinishTimeout límite de los hooks Finish
	FinishTimeout time.Duration

	// DefaultSinks plugins añadidos a todo escaneo (ej: stor_db, stor_stdout)
	DefaultSinks []string

	Version string
}

// ScanRequest describe un escaneo.
type ScanRequest struct {
	// ID identificador; vacío genera un UUID
	ID string

	Target     string
	TargetType domain.EventType

	// Plugins nombres de los plugins a cargar
	Plugins []string

	// Options mapa plano: "_global" y "plugin:clave"
	Options map[string]interface{}

	// OutputFilter tipos permitidos; vacío permite todos
	OutputFilter []domain.EventType

	// Mode excluye plugins activos en escaneos pasivos; vacío no excluye
	Mode domain.ScanMode
}

// NewScanner crea un scanner.
func NewScanner(opts ScannerOptions) *Scanner {
	if opts.Logger == nil {
		opts.Logger = logx.New()
	}
	if opts.Registry == nil {
		opts.Registry = registry.Global()
	}
	if opts.Statuses == nil {
		opts.Statuses = NewStatusRegistry()
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = 5 * time.Second
	}
	if opts.StopGrace <= 0 {
		opts.StopGrace = 30 * time.Second
	}
	if opts.FinishTimeout <= 0 {
		opts.FinishTimeout = 10 * time.Second
	}

	return &Scanner{
		registry:      opts.Registry,
		statuses:      opts.Statuses,
		services:      opts.Services,
		logger:        opts.Logger.With("component", "scanner"),
		observers:     opts.Observers,
		notifyTimeout: opts.NotifyTimeout,
		stopGrace:     opts.StopGrace,
		finishTimeout: opts.FinishTimeout,
		defaultSinks:  opts.DefaultSinks,
		version:       opts.Version,
		active:        make(map[string]*scan),
	}
}

// Statuses retorna el registro de estados del scanner.
func (s *Scanner) Statuses() *StatusRegistry {
	return s.statuses
}

// Status retorna el estado actual de un escaneo.
func (s *Scanner) Status(scanID string) (domain.ScanStatus, bool) {
	return s.statuses.Get(scanID)
}

// Run ejecuta un escaneo hasta un estado terminal. El resultado siempre
// refleja el estado alcanzado; el error solo se retorna en ERROR-FAILED.
// Cancelar ctx equivale a Stop.
func (s *Scanner) Run(ctx context.Context, req ScanRequest) (*domain.ScanResult, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if err := s.statuses.Register(req.ID); err != nil {
		return nil, fmt.Errorf("%w: %s", err, req.ID)
	}

	scanCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sc := s.newScan(scanCtx, cancel, req)
	s.track(sc)
	defer s.untrack(sc)
	defer sc.closeNotifications()

	sc.publishNote(ports.NewStatusNotification(sc.id, req.Target, domain.StatusCreated))

	stopWatch := context.AfterFunc(ctx, func() {
		sc.requestStop("context done")
	})
	defer stopWatch()

	s.logger.Info("starting scan",
		"scan", sc.id,
		"target", req.Target,
		"target_type", req.TargetType,
		"plugins", len(req.Plugins),
	)

	target, err := domain.NewTarget(req.Target, req.TargetType)
	if err != nil {
		sc.addError("controller", PhaseTarget, err, true)
		return s.fail(sc, nil, err)
	}
	sc.target = target
	sc.result.TargetValue = target.Value()

	sc.setStatus(domain.StatusStarting)

	subs, err := s.loadPlugins(sc)
	if err != nil {
		return s.fail(sc, subs, err)
	}
	if sc.dispatcher.Stopped() {
		return s.complete(sc, subs)
	}

	s.wire(sc, subs)
	s.enrich(sc, subs)
	if sc.dispatcher.Stopped() {
		return s.complete(sc, subs)
	}

	sc.setStatus(domain.StatusStarted)
	if err := s.publishSeeds(sc); err != nil {
		sc.addError("controller", PhaseTarget, err, true)
		return s.fail(sc, subs, err)
	}
	s.startPlugins(sc, subs)

	return s.complete(sc, subs)
}

// Stop solicita la cancelación de un escaneo en curso y espera a que
// termine la entrega en curso (como máximo el periodo de gracia).
func (s *Scanner) Stop(scanID string) error {
	s.mu.Lock()
	sc, ok := s.active[scanID]
	s.mu.Unlock()
	if !ok {
		if status, known := s.statuses.Get(scanID); known && status.IsTerminal() {
			return nil
		}
		return fmt.Errorf("%w: %s", domain.ErrScanNotFound, scanID)
	}
	sc.requestStop("stop requested")
	return nil
}

// loadPlugins instancia y configura los plugins pedidos más los sinks por
// defecto. Solo un fallo de un plugin esencial es fatal.
func (s *Scanner) loadPlugins(sc *scan) ([]*subscriber, error) {
	names := make([]string, 0, len(sc.req.Plugins)+len(s.defaultSinks))
	for _, name := range append(append([]string{}, sc.req.Plugins...), s.defaultSinks...) {
		if !s.registry.IsRegistered(name) {
			sc.addError(name, PhaseSetup, fmt.Errorf("%w: %s", domain.ErrPluginNotFound, name), true)
			continue
		}
		names = append(names, name)
	}

	built, errs := s.registry.Build(names)
	for _, err := range errs {
		sc.addError("registry", PhaseSetup, err, true)
	}

	loaded := make([]*subscriber, 0, len(built))
	for _, b := range built {
		sub := newSubscriber(b.Plugin, b.Metadata)

		if sc.req.Mode != "" && !b.Metadata.Mode.CompatibleWith(sc.req.Mode) {
			sc.addWarning(sub.name, fmt.Sprintf("skipped: %s plugin in %s scan", b.Metadata.Mode, sc.req.Mode))
			continue
		}

		fw := newPluginContext(sc, sub)
		opts := ports.ResolveOptions(sub.name, b.Metadata.DefaultOptions, sc.req.Options)
		panicked, err := safeCall(func() error {
			return b.Plugin.Setup(fw, opts)
		})
		if err != nil {
			if panicked {
				err = fmt.Errorf("%w: %v", domain.ErrPluginSetup, err)
			}
			sc.addError(sub.name, PhaseSetup, err, true)
			if b.Metadata.Essential {
				return loaded, fmt.Errorf("%w: %s: %w", domain.ErrEssentialPlugin, sub.name, err)
			}
			continue
		}
		loaded = append(loaded, sub)
	}

	if len(loaded) == 0 {
		sc.addWarning("controller", domain.ErrNoPluginsLoaded.Error())
	}
	return sinksLast(loaded), nil
}

// wire registra las suscripciones y advierte sobre tipos vigilados que
// ningún plugin cargado produce.
func (s *Scanner) wire(sc *scan, subs []*subscriber) {
	produced := map[domain.EventType]bool{
		domain.EventTypeRoot: true,
		sc.target.Type():     true,
	}
	if sc.target.Type() == domain.EventTypeInternetName {
		produced[domain.EventTypeDomainName] = true
	}
	for _, sub := range subs {
		sc.bus.Subscribe(sub)
		for _, t := range sub.plugin.ProducedEvents() {
			produced[t] = true
		}
	}
	for _, t := range sc.bus.WatchedTypes() {
		if !produced[t] {
			sc.addWarning("controller", fmt.Sprintf("no loaded plugin produces %s", t))
		}
	}

	names := make([]string, 0, len(subs))
	for _, sub := range subs {
		names = append(names, sub.name)
	}
	sc.mu.Lock()
	sc.result.Metadata.PluginsLoaded = names
	sc.mu.Unlock()
}

// enrich deja que los plugins añadan alias al objetivo antes de la raíz.
func (s *Scanner) enrich(sc *scan, subs []*subscriber) {
	for _, sub := range subs {
		enricher, ok := sub.plugin.(ports.TargetEnricher)
		if !ok || sc.dispatcher.Stopped() {
			continue
		}
		panicked, err := safeCall(func() error {
			return enricher.EnrichTarget(sc.ctx, sc.target)
		})
		if err != nil {
			sc.pluginFailed(sub, PhaseEnrich, err, panicked || ports.IsFatal(err))
		}
	}
}

// publishSeeds publica la raíz y, si la semilla es un dominio registrable,
// un DOMAIN_NAME hijo de la raíz.
func (s *Scanner) publishSeeds(sc *scan) error {
	root, err := domain.NewRootEvent(sc.target.Type(), sc.target.Value())
	if err != nil {
		return err
	}
	sc.root.Store(root)
	if err := sc.dispatcher.Publish(root); err != nil {
		return err
	}

	if sc.target.Type() != domain.EventTypeInternetName {
		return nil
	}
	registrable, err := publicsuffix.EffectiveTLDPlusOne(sc.target.Value())
	if err != nil || registrable != sc.target.Value() {
		return nil
	}
	seed, err := domain.NewEvent(domain.EventTypeDomainName, registrable, "", root)
	if err != nil {
		return err
	}
	return sc.dispatcher.Publish(seed)
}

// startPlugins invoca Start en orden; cada llamada termina antes de la siguiente.
func (s *Scanner) startPlugins(sc *scan, subs []*subscriber) {
	for _, sub := range subs {
		starter, ok := sub.plugin.(ports.Starter)
		if !ok || sub.failed.Load() {
			continue
		}
		if sc.dispatcher.Stopped() {
			return
		}
		panicked, err := safeCall(func() error {
			return starter.Start(sc.ctx)
		})
		sc.markActivity()
		if err != nil {
			sc.pluginFailed(sub, PhaseStart, err, panicked || ports.IsFatal(err))
		}
	}
}

// finishPlugins invoca los hooks Finish con un contexto propio, de modo que
// los sinks puedan cerrar incluso tras un aborto.
func (s *Scanner) finishPlugins(sc *scan, subs []*subscriber) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(sc.ctx), s.finishTimeout)
	defer cancel()
	for _, sub := range subs {
		finisher, ok := sub.plugin.(ports.Finisher)
		if !ok {
			continue
		}
		panicked, err := safeCall(func() error {
			return finisher.Finish(ctx)
		})
		if err != nil {
			sc.pluginFailed(sub, PhaseFinish, err, panicked)
		}
	}
}

// complete cierra el escaneo en FINISHED o, si hubo cancelación, en ABORTED.
func (s *Scanner) complete(sc *scan, subs []*subscriber) (*domain.ScanResult, error) {
	s.finishPlugins(sc, subs)

	sc.settle()
	s.finalize(sc)

	s.logger.Info("scan completed",
		"scan", sc.id,
		"status", sc.result.Status,
		"events", sc.result.TotalEvents(),
		"delivered", sc.result.Metadata.Delivered,
		"errors", len(sc.result.Errors),
		"duration_ms", sc.result.Metadata.Duration.Milliseconds(),
	)
	return sc.result, nil
}

// fail cierra el escaneo en ERROR-FAILED.
func (s *Scanner) fail(sc *scan, subs []*subscriber, cause error) (*domain.ScanResult, error) {
	s.finishPlugins(sc, subs)
	sc.dispatcher.Stop()
	sc.setStatus(domain.StatusErrorFailed)
	s.finalize(sc)

	s.logger.Err(cause, "scan", sc.id, "status", domain.StatusErrorFailed)
	return sc.result, fmt.Errorf("%w: %w", domain.ErrScanFailed, cause)
}

func (s *Scanner) finalize(sc *scan) {
	stats := sc.dispatcher.Stats()
	sc.mu.Lock()
	defer sc.mu.Unlock()
	for t, n := range stats.Published {
		sc.result.EventCounts[t] = n
	}
	sc.result.Metadata.Delivered = stats.Delivered
	sc.result.Metadata.Filtered = stats.Filtered
	sc.result.Metadata.StoreOnly = stats.StoreOnly
	sc.result.Metadata.Version = s.version
	sc.result.Finalize(sc.status)
}

func (s *Scanner) newScan(ctx context.Context, cancel context.CancelFunc, req ScanRequest) *scan {
	sc := &scan{
		id:        req.ID,
		req:       req,
		ctx:       ctx,
		cancel:    cancel,
		scanner:   s,
		services:  s.services,
		logger:    s.logger.With("scan", req.ID),
		result:    domain.NewScanResult(req.ID, req.Target, req.TargetType),
		status:    domain.StatusCreated,
		notes:     make(chan ports.Notification, 256),
		notesDone: make(chan struct{}),
		bus:       NewBus(req.OutputFilter),
	}
	sc.dispatcher = NewDispatcher(ctx, sc.bus, sc.logger, DispatchHooks{
		OnDelivered: func(*subscriber, *domain.Event) { sc.markActivity() },
		OnFailure:   sc.pluginFailed,
	})
	go sc.deliverNotifications(s.observers, s.notifyTimeout)
	return sc
}

func (s *Scanner) track(sc *scan) {
	s.mu.Lock()
	s.active[sc.id] = sc
	s.mu.Unlock()
}

func (s *Scanner) untrack(sc *scan) {
	s.mu.Lock()
	delete(s.active, sc.id)
	s.mu.Unlock()
}

// scan es el estado de un escaneo en curso.
type scan struct {
	id       string
	req      ScanRequest
	ctx      context.Context
	cancel   context.CancelFunc
	scanner  *Scanner
	services ports.Services
	logger   logx.Logger

	target     *domain.Target
	bus        *Bus
	dispatcher *Dispatcher

	root        atomic.Pointer[domain.Event]
	runningOnce sync.Once

	mu        sync.Mutex // protege status, result y closed
	status    domain.ScanStatus
	result    *domain.ScanResult
	closed    bool
	notes     chan ports.Notification
	notesDone chan struct{}
}

// setStatus aplica una transición válida y la publica. Las transiciones
// inválidas se ignoran.
func (sc *scan) setStatus(next domain.ScanStatus) bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if !sc.status.CanTransitionTo(next) {
		sc.logger.Debug("status transition ignored", "from", sc.status, "to", next)
		return false
	}
	sc.status = next
	sc.result.Status = next
	sc.scanner.statuses.Set(sc.id, next)
	sc.logger.Debug("status changed", "status", next)
	sc.enqueueLocked(ports.NewStatusNotification(sc.id, sc.req.Target, next))
	return true
}

// settle registra el estado terminal. Un Stop que llega después de
// comprobar la cancelación deja ABORT-REQUESTED, y entonces FINISHED ya no
// es válido.
func (sc *scan) settle() {
	final := domain.StatusFinished
	if sc.dispatcher.Stopped() {
		sc.setStatus(domain.StatusAbortRequested)
		final = domain.StatusAborted
	} else {
		sc.markActivity()
	}
	if !sc.setStatus(final) {
		sc.setStatus(domain.StatusAborted)
	}
}

func (sc *scan) rootEvent() *domain.Event {
	return sc.root.Load()
}

// markActivity registra RUNNING con la primera actividad de un plugin.
func (sc *scan) markActivity() {
	sc.runningOnce.Do(func() {
		sc.setStatus(domain.StatusRunning)
	})
}

// requestStop activa la cancelación, registra ABORT-REQUESTED y espera la
// entrega en curso.
func (sc *scan) requestStop(reason string) {
	if !sc.dispatcher.Stop() {
		return
	}
	sc.cancel()
	sc.setStatus(domain.StatusAbortRequested)
	sc.logger.Info("abort requested", "reason", reason)
	if !sc.dispatcher.AwaitIdle(sc.scanner.stopGrace) {
		sc.logger.Warn("in-flight delivery did not return within grace period",
			"grace", sc.scanner.stopGrace.String(),
		)
	}
}

func (sc *scan) pluginFailed(sub *subscriber, phase string, err error, fatal bool) {
	if fatal {
		sub.failed.Store(true)
	}
	if phase != PhaseHandle {
		sc.logger.Warn("plugin failed", "plugin", sub.name, "phase", phase, "fatal", fatal, "error", err.Error())
	}
	sc.addError(sub.name, phase, err, fatal)
	if fatal {
		sc.mu.Lock()
		sc.enqueueLocked(ports.Notification{
			Type:      ports.NotificationPluginFailed,
			Timestamp: time.Now(),
			ScanID:    sc.id,
			Status:    sc.status,
			Plugin:    sub.name,
			Message:   err.Error(),
			Severity:  ports.SeverityError,
			Target:    sc.req.Target,
		})
		sc.mu.Unlock()
	}
}

func (sc *scan) addError(source, phase string, err error, fatal bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.result.AddError(source, phase, err.Error(), fatal)
	if phase == PhaseSetup && !containsString(sc.result.Metadata.PluginsFailed, source) {
		sc.result.Metadata.PluginsFailed = append(sc.result.Metadata.PluginsFailed, source)
	}
	if fatal && phase != PhaseSetup && !containsString(sc.result.Metadata.PluginsFailed, source) {
		sc.result.Metadata.PluginsFailed = append(sc.result.Metadata.PluginsFailed, source)
	}
}

func (sc *scan) addWarning(source, message string) {
	sc.logger.Warn(message, "source", source)
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.result.AddWarning(source, message)
	sc.enqueueLocked(ports.Notification{
		Type:      ports.NotificationWarning,
		Timestamp: time.Now(),
		ScanID:    sc.id,
		Status:    sc.status,
		Plugin:    source,
		Message:   message,
		Severity:  ports.SeverityWarning,
		Target:    sc.req.Target,
	})
}

func (sc *scan) publishNote(n ports.Notification) {
	sc.mu.Lock()
	sc.enqueueLocked(n)
	sc.mu.Unlock()
}

// enqueueLocked encola una notificación; requiere sc.mu. El orden de la cola
// es el orden de las transiciones.
func (sc *scan) enqueueLocked(n ports.Notification) {
	if sc.closed {
		return
	}
	sc.notes <- n
}

// deliverNotifications entrega las notificaciones a los observadores en
// orden de registro, con un límite de tiempo por observador.
func (sc *scan) deliverNotifications(observers []ports.Notifier, timeout time.Duration) {
	defer close(sc.notesDone)
	for n := range sc.notes {
		for _, obs := range observers {
			sc.notifyOne(obs, n, timeout)
		}
	}
}

func (sc *scan) notifyOne(obs ports.Notifier, n ports.Notification, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(sc.ctx), timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- obs.Notify(ctx, n)
	}()

	select {
	case err := <-done:
		if err != nil {
			sc.logger.Warn("observer notification failed", "type", n.Type, "error", err.Error())
		}
	case <-ctx.Done():
		sc.logger.Warn("observer notification timeout", "type", n.Type)
	}
}

// closeNotifications cierra la cola y espera a que se entreguen las pendientes.
func (sc *scan) closeNotifications() {
	sc.mu.Lock()
	if !sc.closed {
		sc.closed = true
		close(sc.notes)
	}
	sc.mu.Unlock()
	<-sc.notesDone
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
