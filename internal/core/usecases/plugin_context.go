// internal/core/usecases/plugin_context.go
package usecases

import (
	"fmt"

	"reconbus/internal/core/domain"
	"reconbus/internal/core/ports"
	"reconbus/internal/platform/logx"
)

// pluginContext implementa ports.Framework para un plugin dentro de un escaneo.
type pluginContext struct {
	scan    *scan
	sub     *subscriber
	storage ports.TempStorage
	logger  logx.Logger
}

func newPluginContext(sc *scan, sub *subscriber) *pluginContext {
	return &pluginContext{
		scan:    sc,
		sub:     sub,
		storage: NewTempStorage(),
		logger:  sc.logger.With("plugin", sub.name),
	}
}

// Notify publica un evento. Antes del evento raíz no hay bus abierto.
func (c *pluginContext) Notify(event *domain.Event) error {
	if event == nil {
		return domain.ErrInvalidEvent
	}
	if c.scan.rootEvent() == nil {
		return fmt.Errorf("%w: %s published before the root event", domain.ErrInvalidEvent, c.sub.name)
	}
	c.scan.markActivity()
	return c.scan.dispatcher.Publish(event)
}

func (c *pluginContext) NewEvent(eventType domain.EventType, data string, source *domain.Event, opts ...domain.EventOption) (*domain.Event, error) {
	return domain.NewEvent(eventType, data, c.sub.name, source, opts...)
}

func (c *pluginContext) CheckForStop() bool             { return c.scan.dispatcher.Stopped() }
func (c *pluginContext) TempStorage() ports.TempStorage { return c.storage }
func (c *pluginContext) Target() *domain.Target         { return c.scan.target }
func (c *pluginContext) RootEvent() *domain.Event       { return c.scan.rootEvent() }
func (c *pluginContext) ScanID() string                 { return c.scan.id }
func (c *pluginContext) Logger() logx.Logger            { return c.logger }
func (c *pluginContext) Services() ports.Services       { return c.scan.services }
