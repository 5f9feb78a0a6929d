// Package reversedns obtiene los nombres PTR de las direcciones del objetivo.
package reversedns

import (
	"context"

	"reconbus/internal/core/domain"
	"reconbus/internal/core/ports"
	"reconbus/internal/platform/errors"
	"reconbus/internal/platform/validator"
	"reconbus/internal/plugins/common"
)

const pluginName = "reversedns"

// Auto-registro del plugin al importar el package
func init() {
	common.Register(pluginName, func() ports.Plugin { return New() }, Metadata())
}

var (
	watched  = []domain.EventType{domain.EventTypeIPAddress, domain.EventTypeIPv6Address}
	produced = []domain.EventType{
		domain.EventTypeInternetName,
		domain.EventTypeCoHostedSite,
		domain.EventTypeAffiliateInternetName,
	}
)

// Metadata describe el plugin.
func Metadata() ports.PluginMetadata {
	return ports.PluginMetadata{
		Name:        pluginName,
		Description: "Reverse resolves IP addresses to find hosts and co-hosted sites",
		Mode:        domain.PluginModePassive,
		Priority:    20,
		DefaultOptions: ports.Options{
			"maxcohost": 100,
			"verify":    true,
		},
		OptionDescriptions: map[string]string{
			"maxcohost": "Stop reporting co-hosted sites after this many, 0 = unlimited",
			"verify":    "Only report co-hosted sites that resolve back to the address",
		},
		Watched:  watched,
		Produced: produced,
	}
}

// Plugin publica los nombres PTR clasificados según el alcance.
type Plugin struct {
	common.Base
	resolver  ports.Resolver
	maxCohost int
	verify    bool
	cohosts   int
}

func New() *Plugin {
	return &Plugin{Base: common.NewBase(pluginName)}
}

func (p *Plugin) Setup(fw ports.Framework, opts ports.Options) error {
	p.Init(fw, opts)
	p.resolver = fw.Services().Resolver
	if p.resolver == nil {
		return errors.Wrap(errors.ErrServiceUnavailable, "dns resolver not configured")
	}
	p.maxCohost = p.Int("maxcohost", 100)
	p.verify = p.Bool("verify", true)
	p.cohosts = 0
	return nil
}

func (p *Plugin) WatchedEvents() ports.Subscription  { return ports.Watch(watched...) }
func (p *Plugin) ProducedEvents() []domain.EventType { return produced }

func (p *Plugin) HandleEvent(ctx context.Context, ev *domain.Event) error {
	ip := validator.NormalizeIP(ev.Data())
	if ip == "" || !p.First("ip:"+ip) {
		return nil
	}

	names, err := p.resolver.LookupAddr(ctx, ip)
	if err != nil {
		p.Logger().Debug("no reverse name", "ip", ip, "error", err.Error())
		return ctx.Err()
	}

	target := p.Target()
	ownAddress := target.Matches(ip, true, false)

	for _, name := range names {
		if p.Stopped() {
			return nil
		}
		name = validator.NormalizeHostname(name)
		if !validator.IsHostname(name) || !p.First("name:"+name) {
			continue
		}

		switch {
		case target.InScope(name):
			if _, err := p.Emit(domain.EventTypeInternetName, name, ev); err != nil {
				return err
			}

		case ownAddress:
			if err := p.reportCohost(ctx, name, ip, ev); err != nil {
				return err
			}

		default:
			if _, err := p.Emit(domain.EventTypeAffiliateInternetName, name, ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// reportCohost publica un sitio co-alojado mientras no se alcance maxcohost.
func (p *Plugin) reportCohost(ctx context.Context, name, ip string, ev *domain.Event) error {
	if p.maxCohost > 0 && p.cohosts >= p.maxCohost {
		if p.First("cohost-limit") {
			p.Logger().Info("co-hosted site limit reached", "max", p.maxCohost)
		}
		return nil
	}
	if p.verify && !p.resolvesTo(ctx, name, ip) {
		p.Logger().Debug("co-hosted site does not resolve back", "name", name, "ip", ip)
		return nil
	}
	p.cohosts++
	_, err := p.Emit(domain.EventTypeCoHostedSite, name, ev)
	return err
}

func (p *Plugin) resolvesTo(ctx context.Context, name, ip string) bool {
	addrs, err := p.resolver.LookupHost(ctx, name)
	if err != nil {
		return false
	}
	for _, a := range addrs {
		if validator.NormalizeIP(a) == ip {
			return true
		}
	}
	return false
}
