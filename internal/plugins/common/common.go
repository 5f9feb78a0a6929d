// Package common reúne la base compartida por los plugins incluidos.
package common

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"reconbus/internal/core/domain"
	"reconbus/internal/core/ports"
	"reconbus/internal/platform/logx"
	"reconbus/internal/platform/registry"
)

// Base guarda el estado de un plugin durante un escaneo. Se embebe en cada
// plugin; Setup debe llamar a Init antes de usar el resto de métodos.
type Base struct {
	name   string
	fw     ports.Framework
	opts   ports.Options
	logger logx.Logger
}

// NewBase crea la base para el plugin name.
func NewBase(name string) Base {
	return Base{name: name, logger: logx.NewDiscard()}
}

// Name retorna el nombre del plugin.
func (b *Base) Name() string { return b.name }

// Init guarda el framework y las opciones ya fusionadas.
func (b *Base) Init(fw ports.Framework, opts ports.Options) {
	b.fw = fw
	b.opts = opts
	if opts == nil {
		b.opts = ports.Options{}
	}
	b.logger = fw.Logger()
}

func (b *Base) Framework() ports.Framework { return b.fw }
func (b *Base) Logger() logx.Logger        { return b.logger }
func (b *Base) Target() *domain.Target     { return b.fw.Target() }
func (b *Base) Stopped() bool              { return b.fw.CheckForStop() }

// String, Int, Bool, Slice y Duration leen opciones con su valor por defecto.
func (b *Base) String(key, def string) string {
	return registry.GetStringConfig(b.opts, key, def)
}

func (b *Base) Int(key string, def int) int {
	return registry.GetIntConfig(b.opts, key, def)
}

func (b *Base) Bool(key string, def bool) bool {
	return registry.GetBoolConfig(b.opts, key, def)
}

func (b *Base) Slice(key string, def []string) []string {
	return registry.GetSliceConfig(b.opts, key, def)
}

func (b *Base) Duration(key string, def time.Duration) time.Duration {
	return registry.GetDurationConfig(b.opts, key, def)
}

// FetchTimeout retorna el límite por descarga (_fetchtimeout, en segundos).
func (b *Base) FetchTimeout() time.Duration {
	return b.Duration("_fetchtimeout", 5*time.Second)
}

// UserAgent retorna el User-Agent global (_useragent).
func (b *Base) UserAgent() string {
	return b.String("_useragent", "")
}

// First reporta si key se ve por primera vez en este escaneo.
func (b *Base) First(key string) bool {
	return !b.fw.TempStorage().Seen(key)
}

// Emit construye un evento propio y lo publica.
func (b *Base) Emit(t domain.EventType, data string, source *domain.Event, opts ...domain.EventOption) (*domain.Event, error) {
	ev, err := b.fw.NewEvent(t, data, source, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: build %s: %w", b.name, t, err)
	}
	if err := b.fw.Notify(ev); err != nil {
		return nil, fmt.Errorf("%s: publish %s: %w", b.name, t, err)
	}
	return ev, nil
}

// EmitOnce publica solo si (t, data) no se publicó antes desde este plugin.
func (b *Base) EmitOnce(t domain.EventType, data string, source *domain.Event, opts ...domain.EventOption) (*domain.Event, error) {
	if !b.First("emit:" + string(t) + ":" + strings.ToLower(data)) {
		return nil, nil
	}
	return b.Emit(t, data, source, opts...)
}

// RegistrableDomain retorna el dominio registrable (eTLD+1) de host.
func RegistrableDomain(host string) (string, bool) {
	host = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
	dom, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil || dom == "" {
		return "", false
	}
	return dom, true
}

// IsRegistrableDomain indica si host es exactamente un dominio registrable.
func IsRegistrableDomain(host string) bool {
	dom, ok := RegistrableDomain(host)
	return ok && dom == strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
}

// Register registra un plugin en el registry global. Los errores se
// registran en el log y el plugin queda fuera del catálogo.
func Register(name string, factory registry.PluginFactory, meta ports.PluginMetadata) {
	if err := registry.Global().Register(name, factory, meta); err != nil {
		logx.New().Warn("failed to register plugin", "plugin", name, "error", err.Error())
	}
}
