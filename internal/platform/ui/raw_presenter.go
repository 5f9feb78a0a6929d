// internal/platform/ui/raw_presenter.go
package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"reconbus/internal/core/domain"
	"reconbus/internal/core/ports"
)

// LogFormat define el formato de salida para el modo raw
type LogFormat string

const (
	LogFormatText LogFormat = "text" // Formato logfmt (default)
	LogFormatJSON LogFormat = "json" // Formato JSON estructurado
)

// RawPresenter implementa Presenter para terminales sin TTY: una línea por
// hecho, sin colores.
type RawPresenter struct {
	format    LogFormat
	w         io.Writer
	mu        sync.Mutex
	startTime time.Time
	now       func() time.Time
}

// NewRawPresenter crea un RawPresenter que escribe en w (stdout si es nil)
func NewRawPresenter(format LogFormat, w io.Writer) *RawPresenter {
	if w == nil {
		w = os.Stdout
	}
	if format != LogFormatJSON {
		format = LogFormatText
	}
	return &RawPresenter{
		format:    format,
		w:         w,
		startTime: time.Now(),
		now:       time.Now,
	}
}

// log escribe un log en el formato configurado
func (r *RawPresenter) log(level, message string, fields map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	timestamp := r.now().UTC().Format(time.RFC3339)

	if r.format == LogFormatJSON {
		r.logJSON(timestamp, level, message, fields)
	} else {
		r.logText(timestamp, level, message, fields)
	}
}

// logText escribe en formato logfmt con las claves ordenadas
func (r *RawPresenter) logText(timestamp, level, message string, fields map[string]interface{}) {
	parts := []string{timestamp, fmt.Sprintf("%-5s", level), message}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, r.formatValue(fields[k])))
	}

	fmt.Fprintln(r.w, strings.Join(parts, " "))
}

// logJSON escribe en formato JSON estructurado
func (r *RawPresenter) logJSON(timestamp, level, message string, fields map[string]interface{}) {
	logEntry := map[string]interface{}{
		"timestamp": timestamp,
		"level":     level,
		"message":   message,
	}

	if len(fields) > 0 {
		logEntry["data"] = fields
	}

	jsonBytes, _ := json.Marshal(logEntry)
	fmt.Fprintln(r.w, string(jsonBytes))
}

// formatValue formatea valores para logfmt (entrecomilla strings con espacios)
func (r *RawPresenter) formatValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		if strings.ContainsAny(val, " =\"") {
			return fmt.Sprintf("%q", val)
		}
		return val
	case time.Duration:
		return val.String()
	case float64:
		return fmt.Sprintf("%.1f", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// Start registra el inicio del escaneo
func (r *RawPresenter) Start(info ScanInfo) {
	r.mu.Lock()
	r.startTime = r.now()
	r.mu.Unlock()

	r.log("INFO", "scan_started", map[string]interface{}{
		"scan":        info.ScanID,
		"target":      info.Target,
		"target_type": string(info.TargetType),
		"mode":        info.Mode,
		"plugins":     strings.Join(info.Plugins, ","),
		"timeout":     fmt.Sprintf("%ds", info.TimeoutSeconds),
		"db":          info.DBPath,
	})
}

// Notify registra transiciones de estado, fallos de plugin y advertencias
func (r *RawPresenter) Notify(_ context.Context, n ports.Notification) error {
	switch n.Type {
	case ports.NotificationStatusChanged:
		r.log("INFO", "scan_status", map[string]interface{}{
			"scan":   n.ScanID,
			"status": string(n.Status),
		})
	case ports.NotificationPluginFailed:
		r.log("ERROR", "plugin_failed", map[string]interface{}{
			"scan":   n.ScanID,
			"plugin": n.Plugin,
			"error":  n.Message,
		})
	case ports.NotificationWarning:
		r.log("WARN", "scan_warning", map[string]interface{}{
			"scan":    n.ScanID,
			"plugin":  n.Plugin,
			"message": n.Message,
		})
	}
	return nil
}

// Finish registra el resumen final y el desglose por tipo
func (r *RawPresenter) Finish(result *domain.ScanResult) {
	if result == nil {
		return
	}
	r.log("INFO", "scan_completed", map[string]interface{}{
		"scan":           result.ID,
		"status":         string(result.Status),
		"duration":       result.Metadata.Duration,
		"events":         result.TotalEvents(),
		"delivered":      result.Metadata.Delivered,
		"plugins_loaded": len(result.Metadata.PluginsLoaded),
		"plugins_failed": len(result.Metadata.PluginsFailed),
	})

	if len(result.EventCounts) > 0 {
		breakdown := make(map[string]interface{}, len(result.EventCounts))
		for t, n := range result.EventCounts {
			breakdown[string(t)] = n
		}
		r.log("INFO", "events_by_type", breakdown)
	}
}

// Close no libera nada; el writer pertenece al llamador.
func (r *RawPresenter) Close() error {
	return nil
}
