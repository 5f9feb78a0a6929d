// internal/platform/registry/plugin_registry_test.go
package registry

import (
	"context"
	"errors"
	"testing"

	"reconbus/internal/core/domain"
	"reconbus/internal/core/ports"
	"reconbus/internal/platform/logx"
	"reconbus/internal/testutil"
)

type stubPlugin struct{ name string }

func (p *stubPlugin) Name() string                                     { return p.name }
func (p *stubPlugin) Setup(ports.Framework, ports.Options) error       { return nil }
func (p *stubPlugin) WatchedEvents() ports.Subscription                { return ports.WatchAll() }
func (p *stubPlugin) ProducedEvents() []domain.EventType               { return nil }
func (p *stubPlugin) HandleEvent(context.Context, *domain.Event) error { return nil }

func stubFactory(name string) PluginFactory {
	return func() ports.Plugin { return &stubPlugin{name: name} }
}

func TestPluginRegistry_Register(t *testing.T) {
	reg := NewPluginRegistry(logx.NewDiscard())

	err := reg.Register("dnsresolve", stubFactory("dnsresolve"), ports.PluginMetadata{Priority: 1})
	testutil.AssertNoError(t, err, "register should succeed")
	testutil.AssertTrue(t, reg.IsRegistered("dnsresolve"), "plugin should be registered")

	meta, ok := reg.GetMetadata("dnsresolve")
	testutil.AssertTrue(t, ok, "metadata present")
	testutil.AssertEqual(t, meta.Name, "dnsresolve", "name defaulted from key")
	testutil.AssertEqual(t, meta.Mode, domain.PluginModePassive, "mode defaults to passive")
}

func TestPluginRegistry_RegisterErrors(t *testing.T) {
	reg := NewPluginRegistry(logx.NewDiscard())
	_ = reg.Register("email", stubFactory("email"), ports.PluginMetadata{})

	testutil.AssertError(t, reg.Register("email", stubFactory("email"), ports.PluginMetadata{}), "duplicate")
	testutil.AssertError(t, reg.Register("", stubFactory("x"), ports.PluginMetadata{}), "empty name")
	testutil.AssertError(t, reg.Register("nil", nil, ports.PluginMetadata{}), "nil factory")
}

func TestPluginRegistry_MustRegisterPanics(t *testing.T) {
	reg := NewPluginRegistry(logx.NewDiscard())
	reg.MustRegister("whois", stubFactory("whois"), ports.PluginMetadata{})

	defer func() {
		testutil.AssertNotNil(t, recover(), "duplicate MustRegister should panic")
	}()
	reg.MustRegister("whois", stubFactory("whois"), ports.PluginMetadata{})
}

func TestPluginRegistry_BuildOrdersByPriority(t *testing.T) {
	reg := NewPluginRegistry(logx.NewDiscard())
	_ = reg.Register("stor_db", stubFactory("stor_db"), ports.PluginMetadata{Priority: 9})
	_ = reg.Register("email", stubFactory("email"), ports.PluginMetadata{Priority: 2})
	_ = reg.Register("dnsresolve", stubFactory("dnsresolve"), ports.PluginMetadata{Priority: 1})
	_ = reg.Register("whois", stubFactory("whois"), ports.PluginMetadata{Priority: 2})

	built, errs := reg.Build([]string{"stor_db", "whois", "missing", "email", "dnsresolve", "whois"})

	testutil.AssertEqual(t, len(errs), 1, "one unknown plugin")
	testutil.AssertTrue(t, errors.Is(errs[0], domain.ErrPluginNotFound), "not found error")
	testutil.AssertEqual(t, len(built), 4, "duplicates built once")

	order := make([]string, 0, len(built))
	for _, b := range built {
		order = append(order, b.Plugin.Name())
	}
	want := []string{"dnsresolve", "whois", "email", "stor_db"}
	for i := range want {
		testutil.AssertEqual(t, order[i], want[i], "position")
	}
}

func TestPluginRegistry_BuildReturnsFreshInstances(t *testing.T) {
	reg := NewPluginRegistry(logx.NewDiscard())
	_ = reg.Register("email", stubFactory("email"), ports.PluginMetadata{})

	a, _ := reg.Build([]string{"email"})
	b, _ := reg.Build([]string{"email"})

	testutil.AssertTrue(t, a[0].Plugin != b[0].Plugin, "each build creates new instances")
}

func TestPluginRegistry_ListAndProducers(t *testing.T) {
	reg := NewPluginRegistry(logx.NewDiscard())
	_ = reg.Register("reversedns", stubFactory("reversedns"), ports.PluginMetadata{
		Produced: []domain.EventType{domain.EventTypeCoHostedSite, domain.EventTypeInternetName},
	})
	_ = reg.Register("dnsbrute", stubFactory("dnsbrute"), ports.PluginMetadata{
		Produced: []domain.EventType{domain.EventTypeInternetName},
	})

	testutil.AssertLen(t, reg.List(), 2, "list")
	testutil.AssertEqual(t, reg.List()[0], "dnsbrute", "sorted list")
	testutil.AssertLen(t, reg.Producers(domain.EventTypeInternetName), 2, "two producers")
	testutil.AssertLen(t, reg.Producers(domain.EventTypeEmailAddr), 0, "no producers")

	reg.Clear()
	testutil.AssertFalse(t, reg.IsRegistered("dnsbrute"), "cleared")
}
