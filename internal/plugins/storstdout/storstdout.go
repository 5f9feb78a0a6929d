// Package storstdout imprime los eventos del escaneo a medida que llegan.
package storstdout

import (
	"context"
	"os"
	"strings"

	"reconbus/internal/adapters/output"
	"reconbus/internal/core/domain"
	"reconbus/internal/core/ports"
	"reconbus/internal/plugins/common"
)

const pluginName = "stor_stdout"

// Auto-registro del plugin al importar el package
func init() {
	common.Register(pluginName, func() ports.Plugin { return New() }, Metadata())
}

// Metadata describe el plugin.
func Metadata() ports.PluginMetadata {
	return ports.PluginMetadata{
		Name:        pluginName,
		Description: "Prints scan results to the console",
		Mode:        domain.PluginModePassive,
		Priority:    100,
		DefaultOptions: ports.Options{
			"format":       output.FormatTab,
			"datasize":     100,
			"showsource":   false,
			"stripnewline": false,
			"requested":    "",
		},
		OptionDescriptions: map[string]string{
			"format":       "Output format: tab, csv or json",
			"datasize":     "Truncate printed data to this many bytes, 0 = unlimited",
			"showsource":   "Also print the data of the source event",
			"stripnewline": "Remove newlines from printed data",
			"requested":    "Only print these event types, comma separated",
		},
	}
}

// Plugin es el sink de consola.
type Plugin struct {
	common.Base
	writer    *output.ConsoleWriter
	requested map[domain.EventType]bool
}

func New() *Plugin {
	return &Plugin{Base: common.NewBase(pluginName)}
}

func (p *Plugin) Setup(fw ports.Framework, opts ports.Options) error {
	p.Init(fw, opts)

	w := fw.Services().Console
	if w == nil {
		w = os.Stdout
	}
	p.writer = output.NewConsoleWriter(w, output.ConsoleOptions{
		Format:        p.String("format", output.FormatTab),
		DataSize:      p.Int("datasize", 100),
		ShowSource:    p.Bool("showsource", false),
		StripNewlines: p.Bool("stripnewline", false),
	})

	p.requested = nil
	if types := p.Slice("requested", nil); len(types) > 0 {
		p.requested = make(map[domain.EventType]bool, len(types))
		for _, t := range types {
			p.requested[domain.EventType(strings.ToUpper(t))] = true
		}
	}
	return nil
}

func (p *Plugin) WatchedEvents() ports.Subscription  { return ports.WatchAll() }
func (p *Plugin) ProducedEvents() []domain.EventType { return nil }
func (p *Plugin) IsSink() bool                       { return true }

// HandleEvent imprime ev. La semilla no se imprime.
func (p *Plugin) HandleEvent(_ context.Context, ev *domain.Event) error {
	if ev.IsRoot() {
		return nil
	}
	if p.requested != nil && !p.requested[ev.Type()] {
		return nil
	}
	return p.writer.Write(ev)
}

// Finish cierra el arreglo json si corresponde.
func (p *Plugin) Finish(_ context.Context) error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
