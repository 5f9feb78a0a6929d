// Package fakes provides in-memory implementations of the collaborator ports
// for scanner and plugin tests. Nothing here touches the network.
package fakes

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"reconbus/internal/core/domain"
	"reconbus/internal/core/ports"
	"reconbus/internal/platform/errors"
)

// Resolver answers from fixed tables. Unknown names return errors.ErrNotFound.
type Resolver struct {
	mu      sync.Mutex
	Hosts   map[string][]string
	PTR     map[string][]string
	Records map[string][]string // key: "MX example.com"
	calls   []string
}

func NewResolver() *Resolver {
	return &Resolver{
		Hosts:   make(map[string][]string),
		PTR:     make(map[string][]string),
		Records: make(map[string][]string),
	}
}

func (r *Resolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	return r.lookup(ctx, "A", host, r.Hosts)
}

func (r *Resolver) LookupAddr(ctx context.Context, ip string) ([]string, error) {
	return r.lookup(ctx, "PTR", ip, r.PTR)
}

func (r *Resolver) LookupRecords(ctx context.Context, name, recordType string) ([]string, error) {
	key := strings.ToUpper(recordType) + " " + name
	r.mu.Lock()
	r.calls = append(r.calls, key)
	answers, ok := r.Records[key]
	r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "%s", key)
	}
	return append([]string(nil), answers...), nil
}

func (r *Resolver) lookup(ctx context.Context, kind, name string, table map[string][]string) ([]string, error) {
	r.mu.Lock()
	r.calls = append(r.calls, kind+" "+name)
	answers, ok := table[name]
	r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "%s %s", kind, name)
	}
	return append([]string(nil), answers...), nil
}

// Calls returns the queries made, as "TYPE name".
func (r *Resolver) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// Fetcher serves canned responses by URL.
type Fetcher struct {
	mu        sync.Mutex
	Responses map[string]*ports.FetchResponse
	Errors    map[string]error
	requests  []string
	headers   []map[string]string
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		Responses: make(map[string]*ports.FetchResponse),
		Errors:    make(map[string]error),
	}
}

// Serve registers a 200 response with the given body.
func (f *Fetcher) Serve(url, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Responses[url] = &ports.FetchResponse{URL: url, StatusCode: 200, Body: []byte(body)}
}

func (f *Fetcher) Fetch(ctx context.Context, url string, headers map[string]string) (*ports.FetchResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, url)
	f.headers = append(f.headers, headers)
	resp, ok := f.Responses[url]
	err := f.Errors[url]
	f.mu.Unlock()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return &ports.FetchResponse{URL: url, StatusCode: 404}, nil
	}
	return resp, nil
}

// Requests returns the fetched URLs in order.
func (f *Fetcher) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

// LastHeaders returns the headers of the last request.
func (f *Fetcher) LastHeaders() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.headers) == 0 {
		return nil
	}
	return f.headers[len(f.headers)-1]
}

// Whois serves canned WHOIS records by domain.
type Whois struct {
	mu      sync.Mutex
	Records map[string]*ports.WhoisRecord
	lookups int
}

func NewWhois() *Whois {
	return &Whois{Records: make(map[string]*ports.WhoisRecord)}
}

func (w *Whois) Lookup(ctx context.Context, domainName string) (*ports.WhoisRecord, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lookups++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rec, ok := w.Records[domainName]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "whois %s", domainName)
	}
	return rec, nil
}

func (w *Whois) Lookups() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lookups
}

// Store is an in-memory ports.EventStore.
type Store struct {
	mu       sync.Mutex
	scans    map[string]ports.ScanRecord
	events   []ports.StoredEvent
	statuses []domain.ScanStatus

	// FailEvents makes StoreEvent return an error
	FailEvents bool
	closed     bool
}

func NewStore() *Store {
	return &Store{scans: make(map[string]ports.ScanRecord)}
}

func (s *Store) SaveScan(_ context.Context, scan ports.ScanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scans[scan.ID] = scan
	return nil
}

func (s *Store) UpdateScanStatus(_ context.Context, scanID string, status domain.ScanStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.scans[scanID]
	if !ok {
		rec = ports.ScanRecord{ID: scanID, Created: at}
	}
	rec.Status = status
	switch status {
	case domain.StatusStarted:
		rec.Started = at
	case domain.StatusFinished, domain.StatusAborted, domain.StatusErrorFailed:
		rec.Ended = at
	}
	s.scans[scanID] = rec
	s.statuses = append(s.statuses, status)
	return nil
}

func (s *Store) StoreEvent(_ context.Context, ev ports.StoredEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailEvents {
		return fmt.Errorf("store unavailable: %w", errors.ErrServiceUnavailable)
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *Store) ScanEvents(_ context.Context, scanID string) ([]ports.StoredEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ports.StoredEvent
	for _, ev := range s.events {
		if ev.ScanID == scanID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *Store) GetScan(_ context.Context, scanID string) (*ports.ScanRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.scans[scanID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrScanNotFound, scanID)
	}
	return &rec, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Statuses returns every status recorded through UpdateScanStatus.
func (s *Store) Statuses() []domain.ScanStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ScanStatus(nil), s.statuses...)
}

// Notifier records notifications. OnNotify, if set, runs after recording.
type Notifier struct {
	mu       sync.Mutex
	received []ports.Notification
	OnNotify func(n ports.Notification)
}

func NewNotifier() *Notifier {
	return &Notifier{}
}

func (n *Notifier) Notify(_ context.Context, note ports.Notification) error {
	n.mu.Lock()
	n.received = append(n.received, note)
	hook := n.OnNotify
	n.mu.Unlock()
	if hook != nil {
		hook(note)
	}
	return nil
}

func (n *Notifier) Close() error { return nil }

// Notifications returns the received notifications in order.
func (n *Notifier) Notifications() []ports.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]ports.Notification(nil), n.received...)
}

// Statuses returns the statuses of the received status notifications.
func (n *Notifier) Statuses() []domain.ScanStatus {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []domain.ScanStatus
	for _, note := range n.received {
		if note.Type == ports.NotificationStatusChanged {
			out = append(out, note.Status)
		}
	}
	return out
}
