// Package netblock expande los bloques de red del objetivo en direcciones.
package netblock

import (
	"context"
	"net/netip"
	"strings"

	"reconbus/internal/core/domain"
	"reconbus/internal/core/ports"
	"reconbus/internal/plugins/common"
)

const pluginName = "netblock"

// Auto-registro del plugin al importar el package
func init() {
	common.Register(pluginName, func() ports.Plugin { return New() }, Metadata())
}

// Metadata describe el plugin.
func Metadata() ports.PluginMetadata {
	return ports.PluginMetadata{
		Name:        pluginName,
		Description: "Expands owned netblocks into member IP addresses",
		Mode:        domain.PluginModePassive,
		Priority:    5,
		DefaultOptions: ports.Options{
			"maxnetblock":   24,
			"maxnetblockv6": 120,
			"maxips":        256,
			"skipedges":     true,
		},
		OptionDescriptions: map[string]string{
			"maxnetblock":   "Skip IPv4 netblocks with a prefix shorter than this (/24 = 256 addresses)",
			"maxnetblockv6": "Skip IPv6 netblocks with a prefix shorter than this",
			"maxips":        "Max addresses published per scan, 0 = unlimited",
			"skipedges":     "Skip network and broadcast addresses of IPv4 blocks larger than /31",
		},
		Watched:  []domain.EventType{domain.EventTypeNetblockOwner},
		Produced: []domain.EventType{domain.EventTypeIPAddress, domain.EventTypeIPv6Address},
	}
}

// Plugin publica las direcciones miembro de cada NETBLOCK_OWNER.
type Plugin struct {
	common.Base
	maxPrefix4 int
	maxPrefix6 int
	maxIPs     int
	skipEdges  bool
	published  int
}

func New() *Plugin {
	return &Plugin{Base: common.NewBase(pluginName)}
}

func (p *Plugin) Setup(fw ports.Framework, opts ports.Options) error {
	p.Init(fw, opts)
	p.maxPrefix4 = p.Int("maxnetblock", 24)
	p.maxPrefix6 = p.Int("maxnetblockv6", 120)
	p.maxIPs = p.Int("maxips", 256)
	p.skipEdges = p.Bool("skipedges", true)
	p.published = 0
	return nil
}

func (p *Plugin) WatchedEvents() ports.Subscription {
	return ports.Watch(domain.EventTypeNetblockOwner)
}

func (p *Plugin) ProducedEvents() []domain.EventType {
	return []domain.EventType{domain.EventTypeIPAddress, domain.EventTypeIPv6Address}
}

func (p *Plugin) HandleEvent(_ context.Context, ev *domain.Event) error {
	prefix, err := netip.ParsePrefix(strings.TrimSpace(ev.Data()))
	if err != nil {
		p.Logger().Debug("not a netblock", "data_digest", ev.Digest())
		return nil
	}
	prefix = prefix.Masked()
	if !p.First("block:" + prefix.String()) {
		return nil
	}

	limit, kind := p.maxPrefix4, domain.EventTypeIPAddress
	if prefix.Addr().Is6() {
		limit, kind = p.maxPrefix6, domain.EventTypeIPv6Address
	}
	if prefix.Bits() < limit {
		p.Logger().Info("netblock larger than permitted", "netblock", prefix.String(), "min_prefix", limit)
		return nil
	}

	edges := p.skipEdges && prefix.Addr().Is4() && prefix.Bits() < 31
	for addr := prefix.Addr(); prefix.Contains(addr); addr = addr.Next() {
		if p.Stopped() || p.full() {
			return nil
		}
		if edges && (addr == prefix.Addr() || !prefix.Contains(addr.Next())) {
			continue
		}
		ip := addr.String()
		if !p.First("ip:" + ip) {
			continue
		}
		if _, err := p.Emit(kind, ip, ev); err != nil {
			return err
		}
		p.published++
	}
	return nil
}

func (p *Plugin) full() bool {
	if p.maxIPs > 0 && p.published >= p.maxIPs {
		if p.First("limit") {
			p.Logger().Info("address limit reached", "max", p.maxIPs)
		}
		return true
	}
	return false
}
