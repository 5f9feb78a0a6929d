// Package whois publica los registros WHOIS de los dominios hallados.
package whois

import (
	"context"
	"strings"

	"reconbus/internal/core/domain"
	"reconbus/internal/core/ports"
	"reconbus/internal/platform/errors"
	"reconbus/internal/plugins/common"
)

const pluginName = "whois"

// Auto-registro del plugin al importar el package
func init() {
	common.Register(pluginName, func() ports.Plugin { return New() }, Metadata())
}

// recordTypes asocia cada tipo observado con el tipo de su registro WHOIS.
var recordTypes = map[domain.EventType]domain.EventType{
	domain.EventTypeDomainName:          domain.EventTypeDomainWhois,
	domain.EventTypeDomainNameParent:    domain.EventTypeDomainWhois,
	domain.EventTypeAffiliateDomainName: domain.EventTypeAffiliateDomainWhois,
	domain.EventTypeCoHostedSiteDomain:  domain.EventTypeCoHostedSiteWhois,
}

var (
	watched = []domain.EventType{
		domain.EventTypeDomainName,
		domain.EventTypeDomainNameParent,
		domain.EventTypeAffiliateDomainName,
		domain.EventTypeCoHostedSiteDomain,
	}
	produced = []domain.EventType{
		domain.EventTypeDomainWhois,
		domain.EventTypeDomainRegistrar,
		domain.EventTypeAffiliateDomainWhois,
		domain.EventTypeCoHostedSiteWhois,
	}
)

// Metadata describe el plugin.
func Metadata() ports.PluginMetadata {
	return ports.PluginMetadata{
		Name:        pluginName,
		Description: "Performs a WHOIS look-up on domain names",
		Mode:        domain.PluginModePassive,
		Priority:    25,
		DefaultOptions: ports.Options{
			"minsize": 250,
		},
		OptionDescriptions: map[string]string{
			"minsize": "Responses shorter than this are treated as throttling and ignored",
		},
		Watched:  watched,
		Produced: produced,
	}
}

// Plugin consulta ports.WhoisClient una vez por dominio.
type Plugin struct {
	common.Base
	client  ports.WhoisClient
	minSize int
}

func New() *Plugin {
	return &Plugin{Base: common.NewBase(pluginName)}
}

func (p *Plugin) Setup(fw ports.Framework, opts ports.Options) error {
	p.Init(fw, opts)
	p.client = fw.Services().Whois
	if p.client == nil {
		return errors.Wrap(errors.ErrServiceUnavailable, "whois client not configured")
	}
	p.minSize = p.Int("minsize", 250)
	return nil
}

func (p *Plugin) WatchedEvents() ports.Subscription  { return ports.Watch(watched...) }
func (p *Plugin) ProducedEvents() []domain.EventType { return produced }

func (p *Plugin) HandleEvent(ctx context.Context, ev *domain.Event) error {
	outType, ok := recordTypes[ev.Type()]
	if !ok {
		return nil
	}
	name := strings.ToLower(ev.Data())
	if !p.First("whois:" + name) {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 2*p.FetchTimeout())
	defer cancel()

	rec, err := p.client.Lookup(ctx, name)
	if err != nil {
		if errors.IsNotFound(err) {
			p.Logger().Debug("no whois record", "domain", name)
			return nil
		}
		return errors.Wrapf(err, "whois %s", name)
	}
	if len(rec.Raw) < p.minSize {
		p.Logger().Warn("whois response too small, server is probably throttling",
			"domain", name, "bytes", len(rec.Raw))
		return nil
	}

	if _, err := p.Emit(outType, rec.Raw, ev); err != nil {
		return err
	}
	if outType == domain.EventTypeDomainWhois && rec.Registrar != "" {
		if _, err := p.EmitOnce(domain.EventTypeDomainRegistrar, rec.Registrar, ev); err != nil {
			return err
		}
	}
	return nil
}
