package fakes

import (
	"sync"
	"sync/atomic"

	"reconbus/internal/core/domain"
	"reconbus/internal/core/ports"
	"reconbus/internal/platform/logx"
)

// Framework is a ports.Framework that records published events instead of
// dispatching them. Published events are not delivered back to the plugin.
type Framework struct {
	mu       sync.Mutex
	module   string
	scanID   string
	target   *domain.Target
	root     *domain.Event
	services ports.Services
	storage  *TempStorage
	logger   logx.Logger
	events   []*domain.Event
	stopped  atomic.Bool

	// NotifyErr, if set, is returned by Notify after recording the event
	NotifyErr error

	// StopAfter sets the stop flag once this many events were published (0 = never)
	StopAfter int
}

// NewFramework builds a framework for module with the root event already
// published. It panics on an invalid target.
func NewFramework(module string, target *domain.Target, services ports.Services) *Framework {
	root, err := domain.NewRootEvent(target.Type(), target.Value())
	if err != nil {
		panic(err)
	}
	return &Framework{
		module:   module,
		scanID:   "test-scan",
		target:   target,
		root:     root,
		services: services,
		storage:  NewTempStorage(),
		logger:   logx.NewDiscard(),
	}
}

// MustTarget is domain.NewTarget for test tables.
func MustTarget(value string, t domain.EventType) *domain.Target {
	target, err := domain.NewTarget(value, t)
	if err != nil {
		panic(err)
	}
	return target
}

func (f *Framework) Notify(ev *domain.Event) error {
	f.mu.Lock()
	f.events = append(f.events, ev)
	n := len(f.events)
	f.mu.Unlock()
	if f.StopAfter > 0 && n >= f.StopAfter {
		f.stopped.Store(true)
	}
	return f.NotifyErr
}

func (f *Framework) NewEvent(eventType domain.EventType, data string, source *domain.Event, opts ...domain.EventOption) (*domain.Event, error) {
	return domain.NewEvent(eventType, data, f.module, source, opts...)
}

func (f *Framework) CheckForStop() bool             { return f.stopped.Load() }
func (f *Framework) TempStorage() ports.TempStorage { return f.storage }
func (f *Framework) Target() *domain.Target         { return f.target }
func (f *Framework) RootEvent() *domain.Event       { return f.root }
func (f *Framework) ScanID() string                 { return f.scanID }
func (f *Framework) Logger() logx.Logger            { return f.logger }
func (f *Framework) Services() ports.Services       { return f.services }

// Stop raises the stop flag.
func (f *Framework) Stop() { f.stopped.Store(true) }

// Events returns the published events in order.
func (f *Framework) Events() []*domain.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*domain.Event(nil), f.events...)
}

// Data returns the payloads published with type t, in order.
func (f *Framework) Data(t domain.EventType) []string {
	var out []string
	for _, ev := range f.Events() {
		if ev.Type() == t {
			out = append(out, ev.Data())
		}
	}
	return out
}

// Count returns how many events of type t were published.
func (f *Framework) Count(t domain.EventType) int {
	return len(f.Data(t))
}

// NewChild builds an event from another module, for feeding HandleEvent.
func (f *Framework) NewChild(t domain.EventType, data, module string, source *domain.Event) *domain.Event {
	if source == nil {
		source = f.root
	}
	ev, err := domain.NewEvent(t, data, module, source)
	if err != nil {
		panic(err)
	}
	return ev
}

// TempStorage is a map-backed ports.TempStorage.
type TempStorage struct {
	mu   sync.Mutex
	data map[string]interface{}
}

func NewTempStorage() *TempStorage {
	return &TempStorage{data: make(map[string]interface{})}
}

func (s *TempStorage) Seen(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; ok {
		return true
	}
	s.data[key] = true
	return false
}

func (s *TempStorage) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	return ok
}

func (s *TempStorage) Get(key string) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *TempStorage) Set(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

func (s *TempStorage) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

func (s *TempStorage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}
