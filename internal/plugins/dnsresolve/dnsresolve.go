// Package dnsresolve resuelve nombres a direcciones y deriva dominios.
package dnsresolve

import (
	"context"
	"strings"

	"reconbus/internal/core/domain"
	"reconbus/internal/core/ports"
	"reconbus/internal/platform/errors"
	"reconbus/internal/platform/validator"
	"reconbus/internal/plugins/common"
)

const pluginName = "dnsresolve"

// Auto-registro del plugin al importar el package
func init() {
	common.Register(pluginName, func() ports.Plugin { return New() }, Metadata())
}

var (
	watched = []domain.EventType{
		domain.EventTypeInternetName,
		domain.EventTypeAffiliateInternetName,
		domain.EventTypeCoHostedSite,
	}
	produced = []domain.EventType{
		domain.EventTypeIPAddress,
		domain.EventTypeIPv6Address,
		domain.EventTypeInternetNameUnresolved,
		domain.EventTypeAffiliateIPAddr,
		domain.EventTypeDomainName,
		domain.EventTypeDomainNameParent,
		domain.EventTypeAffiliateDomainName,
		domain.EventTypeCoHostedSiteDomain,
	}
)

// Metadata describe el plugin.
func Metadata() ports.PluginMetadata {
	return ports.PluginMetadata{
		Name:        pluginName,
		Description: "Resolves hosts and IP addresses and identifies target aliases",
		Mode:        domain.PluginModePassive,
		Priority:    10,
		DefaultOptions: ports.Options{
			"validatereverse": true,
		},
		OptionDescriptions: map[string]string{
			"validatereverse": "Only keep reverse names of the seed that resolve back to it",
		},
		Watched:  watched,
		Produced: produced,
	}
}

// Plugin resuelve nombres vía ports.Resolver.
type Plugin struct {
	common.Base
	resolver        ports.Resolver
	validateReverse bool
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
	p.validateReverse = p.Bool("validatereverse", true)

	// el dominio de una semilla registrable ya está publicado
	switch target := fw.Target(); target.Type() {
	case domain.EventTypeInternetName, domain.EventTypeDomainName:
		if common.IsRegistrableDomain(target.Value()) {
			p.First("domain:" + target.Value())
		}
	}
	return nil
}

func (p *Plugin) WatchedEvents() ports.Subscription  { return ports.Watch(watched...) }
func (p *Plugin) ProducedEvents() []domain.EventType { return produced }

// EnrichTarget añade como alias las direcciones de una semilla de nombre o
// los nombres PTR de una semilla IP.
func (p *Plugin) EnrichTarget(ctx context.Context, target *domain.Target) error {
	switch target.Type() {
	case domain.EventTypeInternetName, domain.EventTypeDomainName:
		addrs, err := p.resolver.LookupHost(ctx, target.Value())
		if err != nil {
			p.Logger().Debug("seed does not resolve", "target", target.Value(), "error", err.Error())
			return ctx.Err()
		}
		for _, addr := range addrs {
			target.AddAlias(addressType(addr), addr)
		}

	case domain.EventTypeIPAddress, domain.EventTypeIPv6Address:
		names, err := p.resolver.LookupAddr(ctx, target.Value())
		if err != nil {
			p.Logger().Debug("seed has no reverse name", "target", target.Value(), "error", err.Error())
			return ctx.Err()
		}
		for _, name := range names {
			name = validator.NormalizeHostname(name)
			if p.validateReverse && !p.resolvesTo(ctx, name, target.Value()) {
				continue
			}
			target.AddAlias(domain.EventTypeInternetName, name)
		}
	}

	if aliases := target.Aliases(); len(aliases) > 0 {
		p.Logger().Info("target aliases identified", "count", len(aliases))
	}
	return nil
}

func (p *Plugin) HandleEvent(ctx context.Context, ev *domain.Event) error {
	// los nombres propios ya fueron procesados al publicarlos
	if ev.Module() == pluginName {
		return nil
	}
	if !p.First("event:" + string(ev.Type()) + ":" + strings.ToLower(ev.Data())) {
		return nil
	}

	switch ev.Type() {
	case domain.EventTypeCoHostedSite:
		return p.reportDomains(ev, domain.EventTypeCoHostedSiteDomain)

	case domain.EventTypeAffiliateInternetName:
		if err := p.resolveAffiliate(ctx, ev); err != nil {
			return err
		}
		return p.reportDomains(ev, domain.EventTypeAffiliateDomainName)

	case domain.EventTypeInternetName:
		return p.resolveHost(ctx, ev)
	}
	return nil
}

// resolveHost publica las direcciones de un nombre y su dominio registrable:
// DOMAIN_NAME si está en alcance, DOMAIN_NAME_PARENT si solo lo está el nombre.
func (p *Plugin) resolveHost(ctx context.Context, ev *domain.Event) error {
	host := validator.NormalizeHostname(ev.Data())
	target := p.Target()

	addrs, err := p.resolver.LookupHost(ctx, host)
	if err != nil || len(addrs) == 0 {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if target.InScope(host) {
			_, emitErr := p.EmitOnce(domain.EventTypeInternetNameUnresolved, host, ev)
			return emitErr
		}
		return nil
	}

	for _, addr := range addrs {
		if p.Stopped() {
			return nil
		}
		// una dirección se reporta una vez por cada nombre que la origina
		if !p.First("addr:" + addr + ":" + ev.Hash()) {
			continue
		}
		if _, err := p.Emit(addressType(addr), addr, ev); err != nil {
			return err
		}
	}

	dom, ok := common.RegistrableDomain(host)
	if !ok {
		return nil
	}
	kind := domain.EventTypeDomainName
	if !target.InScope(dom) {
		if !target.InScope(host) || !strings.HasSuffix(host, "."+dom) {
			return nil
		}
		kind = domain.EventTypeDomainNameParent
	}
	if !p.First("domain:" + dom) {
		return nil
	}
	_, err = p.Emit(kind, dom, ev)
	return err
}

// resolveAffiliate publica las direcciones de un nombre afiliado.
func (p *Plugin) resolveAffiliate(ctx context.Context, ev *domain.Event) error {
	addrs, err := p.resolver.LookupHost(ctx, validator.NormalizeHostname(ev.Data()))
	if err != nil {
		return ctx.Err()
	}
	for _, addr := range addrs {
		if p.Stopped() {
			return nil
		}
		if !validator.IsIPv4(addr) {
			continue
		}
		if _, err := p.EmitOnce(domain.EventTypeAffiliateIPAddr, addr, ev); err != nil {
			return err
		}
	}
	return nil
}

// reportDomains publica el propio nombre si es un dominio registrable y su
// dominio registrable cuando difiere.
func (p *Plugin) reportDomains(ev *domain.Event, t domain.EventType) error {
	host := validator.NormalizeHostname(ev.Data())
	dom, ok := common.RegistrableDomain(host)
	if !ok {
		return nil
	}
	if !p.First("domain:" + dom) {
		return nil
	}
	_, err := p.Emit(t, dom, ev)
	return err
}

func (p *Plugin) resolvesTo(ctx context.Context, name, ip string) bool {
	addrs, err := p.resolver.LookupHost(ctx, name)
	if err != nil {
		return false
	}
	for _, a := range addrs {
		if validator.NormalizeIP(a) == validator.NormalizeIP(ip) {
			return true
		}
	}
	return false
}

func addressType(addr string) domain.EventType {
	if validator.IsIPv6(addr) {
		return domain.EventTypeIPv6Address
	}
	return domain.EventTypeIPAddress
}
