// internal/platform/ui/pterm_presenter.go
package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pterm/pterm"

	"reconbus/internal/core/domain"
	"reconbus/internal/core/ports"
)

// PTermPresenter implementa Presenter usando pterm para renderizar
// cabeceras, colores y tablas. Todo se escribe en un único io.Writer.
type PTermPresenter struct {
	mu sync.Mutex
	w  io.Writer

	info          ScanInfo
	scanStartTime time.Time
	lastStatus    domain.ScanStatus
	failures      int
	warnings      int
}

// NewPTermPresenter crea un presenter que escribe en w (stdout si es nil)
func NewPTermPresenter(w io.Writer) *PTermPresenter {
	if w == nil {
		w = os.Stdout
	}
	return &PTermPresenter{w: w}
}

// Start muestra el header del escaneo
func (p *PTermPresenter) Start(info ScanInfo) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.info = info
	p.scanStartTime = time.Now()

	header := pterm.DefaultHeader.
		WithBackgroundStyle(pterm.NewStyle(pterm.BgCyan)).
		WithTextStyle(pterm.NewStyle(pterm.FgBlack)).
		Sprint("reconbus - OSINT scan")
	fmt.Fprintln(p.w, header)

	content := fmt.Sprintf("%s Target: %s (%s)\n", IconTarget, pterm.Cyan(info.Target), info.TargetType)
	content += fmt.Sprintf("   Scan: %s\n", info.ScanID)
	content += fmt.Sprintf("   Mode: %s\n", pterm.Yellow(orDash(info.Mode)))
	content += fmt.Sprintf("%s Plugins: %s\n", IconPlugins, strings.Join(info.Plugins, ", "))
	content += fmt.Sprintf("%s Timeout: %s\n", IconTime, p.timeoutString(info.TimeoutSeconds))
	content += fmt.Sprintf("%s Storage: %s", IconStorage, p.storageString(info.DBPath))

	box := pterm.DefaultBox.
		WithTitle("Scan Configuration").
		WithTitleTopCenter().
		WithRightPadding(4).
		WithLeftPadding(4).
		WithBoxStyle(pterm.NewStyle(pterm.FgCyan)).
		Sprint(content)
	fmt.Fprintln(p.w, box)
	fmt.Fprintln(p.w, pterm.LightBlue(SeparatorHeavy))
}

// Notify renderiza cada transición de estado y cada fallo de plugin.
func (p *PTermPresenter) Notify(_ context.Context, n ports.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch n.Type {
	case ports.NotificationStatusChanged:
		p.lastStatus = n.Status
		line := fmt.Sprintf("  %s %s", statusSymbol(n.Status), n.Status)
		if !p.scanStartTime.IsZero() && !n.Timestamp.IsZero() {
			line += fmt.Sprintf(" (+%s)", formatDuration(n.Timestamp.Sub(p.scanStartTime)))
		}
		fmt.Fprintln(p.w, statusStyle(n.Status).Sprint(line))

	case ports.NotificationPluginFailed:
		p.failures++
		fmt.Fprint(p.w, pterm.Error.Sprintfln("%s: %s", n.Plugin, n.Message))

	case ports.NotificationWarning:
		p.warnings++
		fmt.Fprint(p.w, pterm.Warning.Sprintfln("%s: %s", orDash(n.Plugin), n.Message))
	}
	return nil
}

// Finish muestra las estadísticas finales del escaneo
func (p *PTermPresenter) Finish(result *domain.ScanResult) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if result == nil {
		return
	}

	fmt.Fprintln(p.w, pterm.LightBlue(SeparatorHeavy))

	bg := pterm.BgGreen
	switch result.Status {
	case domain.StatusAborted:
		bg = pterm.BgYellow
	case domain.StatusErrorFailed:
		bg = pterm.BgRed
	}
	header := pterm.DefaultHeader.
		WithBackgroundStyle(pterm.NewStyle(bg)).
		WithTextStyle(pterm.NewStyle(pterm.FgBlack)).
		Sprintf("Scan %s", result.Status)
	fmt.Fprintln(p.w, header)

	meta := result.Metadata
	content := fmt.Sprintf("%s Duration: %s\n", IconTime, pterm.Green(formatDuration(meta.Duration)))
	content += fmt.Sprintf("%s Events: %s\n", IconEvents, pterm.Cyan(fmt.Sprintf("%d", result.TotalEvents())))
	content += fmt.Sprintf("   Deliveries: %d\n", meta.Delivered)
	content += fmt.Sprintf("   Store only: %d\n", meta.StoreOnly)
	content += fmt.Sprintf("   Filtered: %d\n", meta.Filtered)
	content += fmt.Sprintf("%s Plugins loaded: %s", IconPlugins, pterm.Green(fmt.Sprintf("%d", len(meta.PluginsLoaded))))
	if len(meta.PluginsFailed) > 0 {
		content += fmt.Sprintf("\n%s Plugins failed: %s (%s)", IconError,
			pterm.Red(fmt.Sprintf("%d", len(meta.PluginsFailed))),
			strings.Join(meta.PluginsFailed, ", "))
	}
	if len(result.Warnings) > 0 {
		content += fmt.Sprintf("\n%s Warnings: %s", IconWarning, pterm.Yellow(fmt.Sprintf("%d", len(result.Warnings))))
	}

	box := pterm.DefaultBox.
		WithTitle("Scan Statistics").
		WithTitleTopCenter().
		WithRightPadding(4).
		WithLeftPadding(4).
		WithBoxStyle(pterm.NewStyle(pterm.FgGreen)).
		Sprint(content)
	fmt.Fprintln(p.w, box)

	if len(result.EventCounts) > 0 {
		fmt.Fprint(p.w, pterm.DefaultSection.WithLevel(2).Sprint("Events by Type"))
		if table, err := pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(EventTable(result)).Srender(); err == nil {
			fmt.Fprintln(p.w, table)
		}
	}

	if len(result.Errors) > 0 {
		fmt.Fprint(p.w, pterm.DefaultSection.WithLevel(2).Sprint("Plugin Errors"))
		if table, err := pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(ErrorTable(result)).Srender(); err == nil {
			fmt.Fprintln(p.w, table)
		}
	}
}

// Close no libera nada; el writer pertenece al llamador.
func (p *PTermPresenter) Close() error {
	return nil
}

// EventTable arma la tabla de eventos por tipo, ordenada por cantidad.
func EventTable(result *domain.ScanResult) pterm.TableData {
	data := pterm.TableData{{"Type", "Count", "Description"}}
	for _, t := range result.SortedTypes() {
		data = append(data, []string{
			string(t),
			fmt.Sprintf("%d", result.EventCounts[t]),
			t.Description(),
		})
	}
	return data
}

// ErrorTable arma la tabla de errores de plugins.
func ErrorTable(result *domain.ScanResult) pterm.TableData {
	data := pterm.TableData{{"Plugin", "Phase", "Fatal", "Message"}}
	for _, e := range result.Errors {
		data = append(data, []string{e.Source, e.Phase, fmt.Sprintf("%t", e.Fatal), e.Message})
	}
	return data
}

func (p *PTermPresenter) timeoutString(seconds int) string {
	if seconds <= 0 {
		return "none"
	}
	return fmt.Sprintf("%ds", seconds)
}

func (p *PTermPresenter) storageString(path string) string {
	if path == "" {
		return boolToString(false)
	}
	return boolToString(true) + " " + path
}
