// Package stordb persiste cada evento del escaneo en el EventStore.
package stordb

import (
	"context"

	"reconbus/internal/core/domain"
	"reconbus/internal/core/ports"
	"reconbus/internal/platform/errors"
	"reconbus/internal/platform/validator"
	"reconbus/internal/plugins/common"
)

const pluginName = "stor_db"

// Auto-registro del plugin al importar el package
func init() {
	common.Register(pluginName, func() ports.Plugin { return New() }, Metadata())
}

// Metadata describe el plugin.
func Metadata() ports.PluginMetadata {
	return ports.PluginMetadata{
		Name:        pluginName,
		Description: "Stores scan results in the event store",
		Mode:        domain.PluginModePassive,
		Priority:    100,
		Essential:   true,
		DefaultOptions: ports.Options{
			"maxstorage": 1024,
		},
		OptionDescriptions: map[string]string{
			"maxstorage": "Max bytes of data to store per event, 0 = unlimited",
			"_store":     "Global switch, false disables persistence",
		},
	}
}

// Plugin es el sink de persistencia.
type Plugin struct {
	common.Base
	store      ports.EventStore
	maxStorage int
	enabled    bool
}

func New() *Plugin {
	return &Plugin{Base: common.NewBase(pluginName)}
}

func (p *Plugin) Setup(fw ports.Framework, opts ports.Options) error {
	p.Init(fw, opts)
	p.store = fw.Services().Store
	if p.store == nil {
		return errors.Wrap(errors.ErrServiceUnavailable, "event store not configured")
	}
	p.maxStorage = p.Int("maxstorage", 1024)
	p.enabled = p.Bool("_store", true)
	return nil
}

func (p *Plugin) WatchedEvents() ports.Subscription  { return ports.WatchAll() }
func (p *Plugin) ProducedEvents() []domain.EventType { return nil }
func (p *Plugin) IsSink() bool                       { return true }

// HandleEvent persiste ev. Un fallo del store se reporta sin afectar al
// resto de suscriptores.
func (p *Plugin) HandleEvent(ctx context.Context, ev *domain.Event) error {
	if !p.enabled {
		return nil
	}

	row := ports.NewStoredEvent(p.Framework().ScanID(), ev)
	if p.maxStorage > 0 && len(row.Data) > p.maxStorage {
		p.Logger().Debug("event data truncated for storage",
			"event_type", ev.Type(),
			"data_digest", ev.Digest(),
			"bytes", len(row.Data),
			"max", p.maxStorage,
		)
		row.Data = validator.Truncate(row.Data, p.maxStorage)
	}

	if err := p.store.StoreEvent(ctx, row); err != nil {
		return errors.Wrapf(err, "store %s event", ev.Type())
	}
	return nil
}
