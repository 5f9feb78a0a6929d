// internal/adapters/output/json.go
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"reconbus/internal/core/domain"
	"reconbus/internal/core/ports"
)

// Report is the JSON document written at the end of a scan.
type Report struct {
	ScanID        string           `json:"scan_id"`
	Target        string           `json:"target"`
	TargetType    string           `json:"target_type"`
	Status        string           `json:"status"`
	Version       string           `json:"version,omitempty"`
	StartTime     time.Time        `json:"start_time"`
	EndTime       time.Time        `json:"end_time"`
	DurationMS    int64            `json:"duration_ms"`
	EventCounts   map[string]int   `json:"event_counts"`
	PluginsLoaded []string         `json:"plugins_loaded"`
	PluginsFailed []string         `json:"plugins_failed"`
	Delivered     int              `json:"delivered"`
	Filtered      int              `json:"filtered"`
	StoreOnly     int              `json:"store_only"`
	Warnings      []domain.Warning `json:"warnings"`
	Errors        []domain.Error   `json:"errors"`
	Events        []ReportEvent    `json:"events"`
}

// ReportEvent is one persisted event in a report.
type ReportEvent struct {
	Hash       string    `json:"hash"`
	Type       string    `json:"type"`
	Data       string    `json:"data"`
	Module     string    `json:"module"`
	SourceHash string    `json:"source_hash"`
	Created    time.Time `json:"created"`
	Risk       string    `json:"risk"`
	Confidence int       `json:"confidence"`
	Visibility int       `json:"visibility"`
}

// sanitizeName convierte un valor de semilla en un nombre de carpeta válido.
// Ejemplo: "example.com" -> "example_com"
func sanitizeName(value string) string {
	sanitized := strings.ReplaceAll(value, ".", "_")
	sanitized = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			return r
		}
		return '_'
	}, sanitized)
	if sanitized == "" {
		return "scan"
	}
	return sanitized
}

// BuildReport assembles a report from the scan summary and its stored events.
// events may be nil when persistence is disabled.
func BuildReport(result *domain.ScanResult, events []ports.StoredEvent) Report {
	counts := make(map[string]int, len(result.EventCounts))
	for t, n := range result.EventCounts {
		counts[string(t)] = n
	}

	rows := make([]ReportEvent, 0, len(events))
	for _, ev := range events {
		rows = append(rows, ReportEvent{
			Hash:       ev.Hash,
			Type:       string(ev.Type),
			Data:       ev.Data,
			Module:     ev.Module,
			SourceHash: ev.SourceHash,
			Created:    ev.Created,
			Risk:       ev.Risk.String(),
			Confidence: ev.Confidence,
			Visibility: ev.Visibility,
		})
	}

	meta := result.Metadata
	return Report{
		ScanID:        result.ID,
		Target:        result.TargetValue,
		TargetType:    string(result.TargetType),
		Status:        string(result.Status),
		Version:       meta.Version,
		StartTime:     meta.StartTime,
		EndTime:       meta.EndTime,
		DurationMS:    meta.Duration.Milliseconds(),
		EventCounts:   counts,
		PluginsLoaded: nonNil(meta.PluginsLoaded),
		PluginsFailed: nonNil(meta.PluginsFailed),
		Delivered:     meta.Delivered,
		Filtered:      meta.Filtered,
		StoreOnly:     meta.StoreOnly,
		Warnings:      result.Warnings,
		Errors:        result.Errors,
		Events:        rows,
	}
}

// WriteReport writes the report under dir/<target>/ and returns its path.
func WriteReport(dir string, report Report) (string, error) {
	if dir == "" {
		dir = "."
	}

	fullDir := filepath.Join(dir, sanitizeName(report.Target))
	if err := os.MkdirAll(fullDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	stamp := report.EndTime
	if stamp.IsZero() {
		stamp = time.Now()
	}
	filename := fmt.Sprintf("reconbus_%s_%s.json", sanitizeName(report.Target), stamp.Format("20060102_150405"))
	path := filepath.Join(fullDir, filename)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return "", fmt.Errorf("failed to encode JSON: %w", err)
	}
	return path, nil
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
