package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"reconbus/internal/core/domain"
	"reconbus/internal/core/ports"
	"reconbus/internal/platform/errors"
	"reconbus/internal/platform/logx"
	"reconbus/internal/testutil"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "db", "reconbus.db"), logx.NewSilent())
	testutil.AssertNoError(t, err, "open store")
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOpen_RejectsEmptyPath(t *testing.T) {
	_, err := Open("", nil)
	testutil.AssertTrue(t, errors.IsInvalidInput(err), "empty path")
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reconbus.db")
	ctx := context.Background()

	store, err := Open(path, nil)
	testutil.AssertNoError(t, err, "open")
	testutil.AssertNoError(t, store.SaveScan(ctx, ports.ScanRecord{ID: "s1", Name: "example.com", TargetValue: "example.com"}), "save")
	testutil.AssertNoError(t, store.Close(), "close")
	testutil.AssertNoError(t, store.Close(), "second close")

	store, err = Open(path, nil)
	testutil.AssertNoError(t, err, "reopen")
	defer store.Close()
	rec, err := store.GetScan(ctx, "s1")
	testutil.AssertNoError(t, err, "get after reopen")
	testutil.AssertEqual(t, rec.TargetValue, "example.com", "persisted")
}

func TestStore_ScanLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	created := time.UnixMilli(1700000000000)

	err := store.SaveScan(ctx, ports.ScanRecord{
		ID:          "s1",
		Name:        "example scan",
		TargetValue: "example.com",
		TargetType:  domain.EventTypeInternetName,
		Created:     created,
	})
	testutil.AssertNoError(t, err, "save")

	started := created.Add(time.Second)
	ended := created.Add(time.Minute)
	testutil.AssertNoError(t, store.UpdateScanStatus(ctx, "s1", domain.StatusStarted, started), "started")
	testutil.AssertNoError(t, store.UpdateScanStatus(ctx, "s1", domain.StatusRunning, started.Add(time.Second)), "running")
	testutil.AssertNoError(t, store.UpdateScanStatus(ctx, "s1", domain.StatusFinished, ended), "finished")

	rec, err := store.GetScan(ctx, "s1")
	testutil.AssertNoError(t, err, "get")
	testutil.AssertEqual(t, rec.Status, domain.StatusFinished, "status")
	testutil.AssertEqual(t, rec.TargetType, domain.EventTypeInternetName, "seed type")
	testutil.AssertTrue(t, rec.Created.Equal(created), "created")
	testutil.AssertTrue(t, rec.Started.Equal(started), "started kept after later updates")
	testutil.AssertTrue(t, rec.Ended.Equal(ended), "ended")

	// refreshing descriptive columns keeps status
	testutil.AssertNoError(t, store.SaveScan(ctx, ports.ScanRecord{ID: "s1", Name: "renamed", TargetValue: "example.com"}), "resave")
	rec, _ = store.GetScan(ctx, "s1")
	testutil.AssertEqual(t, rec.Name, "renamed", "name updated")
	testutil.AssertEqual(t, rec.Status, domain.StatusFinished, "status kept")
}

func TestStore_UpdateUnknownScanCreatesRow(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	testutil.AssertNoError(t, store.UpdateScanStatus(ctx, "late", domain.StatusStarting, time.Now()), "update")
	rec, err := store.GetScan(ctx, "late")
	testutil.AssertNoError(t, err, "placeholder row")
	testutil.AssertEqual(t, rec.Status, domain.StatusStarting, "status")

	_, err = store.GetScan(ctx, "missing")
	testutil.AssertTrue(t, errors.Is(err, domain.ErrScanNotFound), "unknown scan")
}

func TestStore_Events(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	root, _ := domain.NewRootEvent(domain.EventTypeInternetName, "example.com")
	ip, _ := domain.NewEvent(domain.EventTypeIPAddress, "192.0.2.1", "dnsresolve", root, domain.WithRisk(domain.RiskLow), domain.WithConfidence(80))
	other, _ := domain.NewEvent(domain.EventTypeIPAddress, "192.0.2.9", "dnsresolve", root)

	testutil.AssertNoError(t, store.StoreEvent(ctx, ports.NewStoredEvent("s1", root)), "root")
	testutil.AssertNoError(t, store.StoreEvent(ctx, ports.NewStoredEvent("s1", ip)), "ip")
	testutil.AssertNoError(t, store.StoreEvent(ctx, ports.NewStoredEvent("s2", other)), "other scan")

	events, err := store.ScanEvents(ctx, "s1")
	testutil.AssertNoError(t, err, "query")
	testutil.AssertLen(t, events, 2, "only this scan")
	testutil.AssertEqual(t, events[0].Type, domain.EventTypeInternetName, "insertion order")
	testutil.AssertEqual(t, events[0].SourceHash, "ROOT", "root source hash")
	testutil.AssertEqual(t, events[1].Hash, ip.Hash(), "hash")
	testutil.AssertEqual(t, events[1].SourceHash, root.Hash(), "source hash")
	testutil.AssertEqual(t, events[1].Module, "dnsresolve", "module")
	testutil.AssertEqual(t, events[1].Risk, domain.RiskLow, "risk")
	testutil.AssertEqual(t, events[1].Confidence, 80, "confidence")
	testutil.AssertEqual(t, events[1].Created.UnixMilli(), ip.Created().UnixMilli(), "created")

	counts, err := store.CountEvents(ctx, "s1")
	testutil.AssertNoError(t, err, "count")
	testutil.AssertEqual(t, counts[domain.EventTypeIPAddress], 1, "ip count")
	testutil.AssertEqual(t, counts[domain.EventTypeInternetName], 1, "root count")
}

func TestStatusRecorder(t *testing.T) {
	store := openTestStore(t)
	rec := NewStatusRecorder(store)
	ctx := context.Background()

	for _, st := range []domain.ScanStatus{domain.StatusCreated, domain.StatusStarting, domain.StatusStarted, domain.StatusAborted} {
		testutil.AssertNoError(t, rec.Notify(ctx, ports.NewStatusNotification("s1", "example.com", st)), "notify "+string(st))
	}
	testutil.AssertNoError(t, rec.Notify(ctx, ports.Notification{
		Type:     ports.NotificationPluginFailed,
		ScanID:   "s1",
		Plugin:   "breach",
		Message:  "fatal: api key rejected",
		Severity: ports.SeverityError,
	}), "plugin failure")
	testutil.AssertError(t, rec.Notify(ctx, ports.Notification{Type: "bogus", ScanID: "s1"}), "unknown type")
	testutil.AssertNoError(t, rec.Close(), "close recorder")

	scan, err := store.GetScan(ctx, "s1")
	testutil.AssertNoError(t, err, "scan row")
	testutil.AssertEqual(t, scan.Status, domain.StatusAborted, "terminal status")
	testutil.AssertEqual(t, scan.TargetValue, "example.com", "seed")
	testutil.AssertFalse(t, scan.Ended.IsZero(), "ended set")

	log, err := store.ScanLog(ctx, "s1")
	testutil.AssertNoError(t, err, "log")
	testutil.AssertLen(t, log, 1, "one log row")
	testutil.AssertEqual(t, log[0].Component, "breach", "component")
	testutil.AssertEqual(t, log[0].Type, "ERROR", "severity")
}
