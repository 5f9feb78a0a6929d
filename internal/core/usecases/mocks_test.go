// internal/core/usecases/mocks_test.go
package usecases

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"reconbus/internal/core/domain"
	"reconbus/internal/core/ports"
	"reconbus/internal/platform/logx"
	"reconbus/internal/platform/registry"
	"reconbus/internal/testutil"
	"reconbus/internal/testutil/fakes"
)

// mockPlugin es un plugin configurable para tests del scanner
type mockPlugin struct {
	name     string
	watched  ports.Subscription
	produced []domain.EventType

	setupFunc  func(fw ports.Framework) error
	handleFunc func(fw ports.Framework, ev *domain.Event) error

	fw  ports.Framework
	rec *testutil.Recorder

	mu       sync.Mutex
	received []*domain.Event
}

func newMockPlugin(name string, rec *testutil.Recorder, watched ...domain.EventType) *mockPlugin {
	return &mockPlugin{name: name, watched: ports.Watch(watched...), rec: rec}
}

func (m *mockPlugin) Name() string                       { return m.name }
func (m *mockPlugin) WatchedEvents() ports.Subscription  { return m.watched }
func (m *mockPlugin) ProducedEvents() []domain.EventType { return m.produced }

func (m *mockPlugin) withProduced(t ...domain.EventType) *mockPlugin {
	m.produced = t
	return m
}

func (m *mockPlugin) Setup(fw ports.Framework, _ ports.Options) error {
	m.fw = fw
	if m.setupFunc != nil {
		return m.setupFunc(fw)
	}
	return nil
}

func (m *mockPlugin) HandleEvent(_ context.Context, ev *domain.Event) error {
	m.mu.Lock()
	m.received = append(m.received, ev)
	m.mu.Unlock()
	if m.rec != nil {
		m.rec.Record(m.name + ":" + ev.Data())
	}
	if m.handleFunc != nil {
		return m.handleFunc(m.fw, ev)
	}
	return nil
}

func (m *mockPlugin) Received() []*domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.Event(nil), m.received...)
}

func (m *mockPlugin) countType(t domain.EventType) int {
	n := 0
	for _, ev := range m.Received() {
		if ev.Type() == t {
			n++
		}
	}
	return n
}

// mockSink es un mockPlugin marcado como sink
type mockSink struct {
	*mockPlugin
}

func newMockSink(name string, rec *testutil.Recorder) *mockSink {
	return &mockSink{mockPlugin: &mockPlugin{name: name, watched: ports.WatchAll(), rec: rec}}
}

func (s *mockSink) IsSink() bool { return true }

// mockStarter añade Start y Finish a un mockPlugin
type mockStarter struct {
	*mockPlugin
	startFunc func(ctx context.Context, fw ports.Framework) error
	finished  int
	started   int
}

func (s *mockStarter) Start(ctx context.Context) error {
	s.started++
	if s.startFunc != nil {
		return s.startFunc(ctx, s.fw)
	}
	return nil
}

func (s *mockStarter) Finish(context.Context) error {
	s.finished++
	return nil
}

// publish crea y publica un evento hijo de source desde fw.
func publish(fw ports.Framework, t domain.EventType, data string, source *domain.Event) error {
	ev, err := fw.NewEvent(t, data, source)
	if err != nil {
		return err
	}
	return fw.Notify(ev)
}

type testEnv struct {
	registry *registry.PluginRegistry
	notifier *fakes.Notifier
	scanner  *Scanner
}

// newTestEnv registra los plugins en orden con prioridad 0 salvo metas explícitas.
func newTestEnv(t *testing.T, plugins ...ports.Plugin) *testEnv {
	t.Helper()
	reg := registry.NewPluginRegistry(logx.NewSilent())
	for _, p := range plugins {
		registerPlugin(t, reg, p, ports.PluginMetadata{})
	}
	return newTestEnvWithRegistry(reg)
}

func newTestEnvWithRegistry(reg *registry.PluginRegistry) *testEnv {
	notifier := fakes.NewNotifier()
	scanner := NewScanner(ScannerOptions{
		Registry:      reg,
		Logger:        logx.NewSilent(),
		Observers:     []ports.Notifier{notifier},
		NotifyTimeout: time.Second,
		StopGrace:     2 * time.Second,
	})
	return &testEnv{registry: reg, notifier: notifier, scanner: scanner}
}

func registerPlugin(t *testing.T, reg *registry.PluginRegistry, p ports.Plugin, meta ports.PluginMetadata) {
	t.Helper()
	err := reg.Register(p.Name(), func() ports.Plugin { return p }, meta)
	testutil.AssertNoError(t, err, "register "+p.Name())
}

func statusLine(statuses []domain.ScanStatus) string {
	parts := make([]string, len(statuses))
	for i, s := range statuses {
		parts[i] = string(s)
	}
	return strings.Join(parts, " ")
}
