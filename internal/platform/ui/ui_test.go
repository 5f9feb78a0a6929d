package ui

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pterm/pterm"

	"reconbus/internal/core/domain"
	"reconbus/internal/core/ports"
	"reconbus/internal/testutil"
)

func sampleResult() *domain.ScanResult {
	result := domain.NewScanResult("scan-1", "example.com", domain.EventTypeInternetName)
	result.EventCounts[domain.EventTypeInternetName] = 1
	result.EventCounts[domain.EventTypeIPAddress] = 3
	result.Metadata.PluginsLoaded = []string{"dnsresolve", "stor_db"}
	result.Metadata.PluginsFailed = []string{"breach"}
	result.Metadata.Delivered = 7
	result.AddError("breach", "setup", "api_key is required", false)
	result.Finalize(domain.StatusFinished)
	return result
}

func TestPTermPresenter(t *testing.T) {
	pterm.DisableColor()
	defer pterm.EnableColor()

	var buf bytes.Buffer
	p := NewPTermPresenter(&buf)
	var _ Presenter = p

	p.Start(ScanInfo{
		ScanID:     "scan-1",
		Target:     "example.com",
		TargetType: domain.EventTypeInternetName,
		Mode:       "passive",
		Plugins:    []string{"dnsresolve", "email"},
		DBPath:     "out/reconbus.db",
	})
	ctx := context.Background()
	testutil.AssertNoError(t, p.Notify(ctx, ports.NewStatusNotification("scan-1", "example.com", domain.StatusRunning)), "status")
	testutil.AssertNoError(t, p.Notify(ctx, ports.Notification{
		Type:    ports.NotificationPluginFailed,
		Plugin:  "breach",
		Message: "api key rejected",
	}), "failure")
	p.Finish(sampleResult())
	testutil.AssertNoError(t, p.Close(), "close")

	out := buf.String()
	testutil.AssertContains(t, out, "example.com", "target in header")
	testutil.AssertContains(t, out, "dnsresolve, email", "plugin list")
	testutil.AssertContains(t, out, "out/reconbus.db", "storage path")
	testutil.AssertContains(t, out, "RUNNING", "status line")
	testutil.AssertContains(t, out, "breach: api key rejected", "plugin failure")
	testutil.AssertContains(t, out, "Scan FINISHED", "final header")
	testutil.AssertContains(t, out, "IP_ADDRESS", "event table")
	testutil.AssertContains(t, out, "api_key is required", "error table")
	testutil.AssertEqual(t, p.failures, 1, "failures counted")
}

func TestEventTable(t *testing.T) {
	data := EventTable(sampleResult())

	testutil.AssertLen(t, data, 3, "header + two types")
	testutil.AssertEqual(t, data[1][0], "IP_ADDRESS", "most frequent first")
	testutil.AssertEqual(t, data[1][1], "3", "count")
}

func TestRawPresenter_Text(t *testing.T) {
	var buf bytes.Buffer
	r := NewRawPresenter(LogFormatText, &buf)
	r.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }

	r.Start(ScanInfo{ScanID: "scan-1", Target: "Jane Doe", TargetType: domain.EventTypeHumanName})
	_ = r.Notify(context.Background(), ports.NewStatusNotification("scan-1", "Jane Doe", domain.StatusAborted))
	r.Finish(sampleResult())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	testutil.AssertLen(t, lines, 4, "start, status, summary, breakdown")
	testutil.AssertContains(t, lines[0], `target="Jane Doe"`, "quoted value")
	testutil.AssertContains(t, lines[0], "2024-01-01T00:00:00Z INFO  scan_started", "prefix")
	testutil.AssertContains(t, lines[1], "status=ABORTED", "status")
	testutil.AssertContains(t, lines[2], "events=4", "total events")
	testutil.AssertContains(t, lines[3], "IP_ADDRESS=3", "breakdown")
}

func TestRawPresenter_JSON(t *testing.T) {
	var buf bytes.Buffer
	r := NewRawPresenter(LogFormatJSON, &buf)

	_ = r.Notify(context.Background(), ports.Notification{
		Type:    ports.NotificationWarning,
		ScanID:  "scan-1",
		Message: "no plugin produces EMAILADDR",
	})

	var entry map[string]interface{}
	testutil.AssertNoError(t, testutil.UnmarshalJSON(buf.Bytes(), &entry), "valid json")
	testutil.AssertEqual(t, entry["level"], "WARN", "level")
	testutil.AssertEqual(t, entry["message"], "scan_warning", "message")
}

func TestNoopPresenter(t *testing.T) {
	var p Presenter = NewNoopPresenter()
	p.Start(ScanInfo{})
	p.Finish(nil)
	testutil.AssertNoError(t, p.Notify(context.Background(), ports.Notification{}), "notify")
	testutil.AssertNoError(t, p.Close(), "close")
}

func TestFormatDuration(t *testing.T) {
	testutil.AssertEqual(t, formatDuration(250*time.Millisecond), "250ms", "millis")
	testutil.AssertEqual(t, formatDuration(1500*time.Millisecond), "1.5s", "seconds")
	testutil.AssertEqual(t, formatDuration(125*time.Second), "2m5s", "minutes")
}
