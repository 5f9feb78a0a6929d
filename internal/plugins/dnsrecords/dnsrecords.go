// Package dnsrecords consulta los registros MX, NS, TXT y CNAME de los
// nombres del objetivo.
package dnsrecords

import (
	"context"
	"regexp"
	"strings"

	"reconbus/internal/core/domain"
	"reconbus/internal/core/ports"
	"reconbus/internal/platform/errors"
	"reconbus/internal/platform/validator"
	"reconbus/internal/plugins/common"
)

const pluginName = "dnsrecords"

// Auto-registro del plugin al importar el package
func init() {
	common.Register(pluginName, func() ports.Plugin { return New() }, Metadata())
}

var (
	watched = []domain.EventType{
		domain.EventTypeInternetName,
		domain.EventTypeDomainName,
	}
	produced = []domain.EventType{
		domain.EventTypeRawDNSRecords,
		domain.EventTypeProviderMail,
		domain.EventTypeProviderDNS,
		domain.EventTypeDNSText,
		domain.EventTypeDNSSPF,
		domain.EventTypeInternetName,
		domain.EventTypeInternetNameUnresolved,
		domain.EventTypeAffiliateInternetName,
	}

	// orden de consulta
	recordTypes = []string{"CNAME", "MX", "NS", "TXT"}

	spfInclude = regexp.MustCompile(`(?i)include:([^\s]+)`)
)

// Metadata describe el plugin.
func Metadata() ports.PluginMetadata {
	return ports.PluginMetadata{
		Name:        pluginName,
		Description: "Retrieves raw DNS records such as MX, NS and TXT",
		Mode:        domain.PluginModePassive,
		Priority:    15,
		DefaultOptions: ports.Options{
			"verify": true,
		},
		OptionDescriptions: map[string]string{
			"verify": "Resolve hosts found in records before reporting them",
		},
		Watched:  watched,
		Produced: produced,
	}
}

// Plugin clasifica los registros de cada nombre.
type Plugin struct {
	common.Base
	resolver ports.Resolver
	verify   bool
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
	p.verify = p.Bool("verify", true)
	return nil
}

func (p *Plugin) WatchedEvents() ports.Subscription  { return ports.Watch(watched...) }
func (p *Plugin) ProducedEvents() []domain.EventType { return produced }

func (p *Plugin) HandleEvent(ctx context.Context, ev *domain.Event) error {
	name := validator.NormalizeHostname(ev.Data())
	if !p.First("records:" + name) {
		return nil
	}

	var hosts []string
	for _, rtype := range recordTypes {
		if p.Stopped() {
			return nil
		}
		records, err := p.resolver.LookupRecords(ctx, name, rtype)
		if err != nil {
			if !errors.IsNotFound(err) {
				p.Logger().Debug("record lookup failed", "name", name, "type", rtype, "error", err.Error())
			}
			continue
		}
		for _, rec := range records {
			found, err := p.report(name, rtype, rec, ev)
			if err != nil {
				return err
			}
			hosts = append(hosts, found...)
		}
	}

	for _, host := range hosts {
		if p.Stopped() {
			return nil
		}
		if err := p.reportHost(ctx, host, ev); err != nil {
			return err
		}
	}
	return nil
}

// report publica el registro crudo y su clasificación. Retorna los nombres
// de host que aparecen en él.
func (p *Plugin) report(name, rtype, rec string, ev *domain.Event) ([]string, error) {
	if _, err := p.EmitOnce(domain.EventTypeRawDNSRecords, name+" "+rtype+" "+rec, ev); err != nil {
		return nil, err
	}

	switch rtype {
	case "CNAME":
		return []string{strings.ToLower(rec)}, nil
	case "MX":
		_, err := p.EmitOnce(domain.EventTypeProviderMail, strings.ToLower(rec), ev)
		return []string{strings.ToLower(rec)}, err
	case "NS":
		_, err := p.EmitOnce(domain.EventTypeProviderDNS, strings.ToLower(rec), ev)
		return []string{strings.ToLower(rec)}, err
	case "TXT":
		if _, err := p.EmitOnce(domain.EventTypeDNSText, rec, ev); err != nil {
			return nil, err
		}
		if !isSPF(rec) {
			return nil, nil
		}
		if _, err := p.EmitOnce(domain.EventTypeDNSSPF, rec, ev); err != nil {
			return nil, err
		}
		var hosts []string
		for _, m := range spfInclude.FindAllStringSubmatch(rec, -1) {
			// macros y nombres de servicio (_spf) no son hosts reportables
			if host := strings.ToLower(m[1]); !strings.Contains(host, "_") && !strings.Contains(host, "%") {
				hosts = append(hosts, host)
			}
		}
		return hosts, nil
	}
	return nil, nil
}

// reportHost publica host como nombre propio o afiliado.
func (p *Plugin) reportHost(ctx context.Context, host string, ev *domain.Event) error {
	host = validator.NormalizeHostname(host)
	if !validator.IsHostname(host) {
		return nil
	}

	t := domain.EventTypeAffiliateInternetName
	if p.Target().Matches(host, true, true) {
		t = domain.EventTypeInternetName
	}
	if p.verify {
		if addrs, err := p.resolver.LookupHost(ctx, host); err != nil || len(addrs) == 0 {
			p.Logger().Debug("host in records does not resolve", "host", host)
			if t != domain.EventTypeInternetName {
				return nil
			}
			t = domain.EventTypeInternetNameUnresolved
		}
	}
	_, err := p.EmitOnce(t, host, ev)
	return err
}

func isSPF(txt string) bool {
	lower := strings.ToLower(txt)
	return strings.Contains(lower, "v=spf") || strings.Contains(lower, "spf2.0/")
}
