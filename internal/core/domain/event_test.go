// internal/core/domain/event_test.go
package domain

import (
	"errors"
	"testing"

	"reconbus/internal/testutil"
)

func mustRoot(t *testing.T) *Event {
	t.Helper()
	root, err := NewRootEvent(EventTypeInternetName, "example.com")
	if err != nil {
		t.Fatalf("root event: %v", err)
	}
	return root
}

func TestNewRootEvent(t *testing.T) {
	root := mustRoot(t)

	testutil.AssertTrue(t, root.IsRoot(), "root flag")
	testutil.AssertTrue(t, root.Source() == root, "root source is itself")
	testutil.AssertEqual(t, root.Module(), "", "root module")
	testutil.AssertEqual(t, root.Type(), EventTypeInternetName, "root type")
	testutil.AssertEqual(t, root.Depth(), 0, "root depth")
	testutil.AssertEqual(t, len(root.Ancestry()), 0, "root ancestry")
	testutil.AssertEqual(t, root.SourceHash(), root.Hash(), "root source hash")
}

func TestNewEventValidation(t *testing.T) {
	root := mustRoot(t)

	tests := []struct {
		name      string
		eventType EventType
		data      string
		source    *Event
		opts      []EventOption
		wantErr   error
	}{
		{"wildcard type", EventTypeWildcard, "x", root, nil, ErrWildcardEvent},
		{"empty data", EventTypeIPAddress, "", root, nil, ErrEmptyEventData},
		{"missing source", EventTypeIPAddress, "1.2.3.4", nil, nil, ErrMissingSource},
		{"root type reserved", EventTypeRoot, "x", root, nil, ErrInvalidEvent},
		{"lowercase type", EventType("ip_address"), "1.2.3.4", root, nil, ErrInvalidEvent},
		{"confidence out of range", EventTypeIPAddress, "1.2.3.4", root, []EventOption{WithConfidence(101)}, ErrInvalidEvent},
		{"risk out of range", EventTypeIPAddress, "1.2.3.4", root, []EventOption{WithRisk(Risk(9))}, ErrInvalidEvent},
		{"valid", EventTypeIPAddress, "1.2.3.4", root, []EventOption{WithRisk(RiskLow)}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := NewEvent(tt.eventType, tt.data, "dnsresolve", tt.source, tt.opts...)
			if tt.wantErr == nil {
				testutil.AssertNoError(t, err, "construction")
				testutil.AssertTrue(t, ev.Source() == root, "source link")
				return
			}
			testutil.AssertTrue(t, errors.Is(err, tt.wantErr), "expected "+tt.wantErr.Error())
			testutil.AssertTrue(t, ev == nil, "no event on error")
		})
	}
}

func TestEventHashStability(t *testing.T) {
	root := mustRoot(t)
	a, _ := NewEvent(EventTypeIPAddress, "93.184.216.34", "dnsresolve", root)
	b, _ := NewEvent(EventTypeIPAddress, "93.184.216.34", "reversedns", a, WithRisk(RiskHigh))
	c, _ := NewEvent(EventTypeAffiliateIPAddr, "93.184.216.34", "dnsresolve", root)

	testutil.AssertEqual(t, a.Hash(), b.Hash(), "hash depends only on type and data")
	testutil.AssertNotEqual(t, a.Hash(), c.Hash(), "type is part of the hash")
	testutil.AssertEqual(t, a.Hash(), HashOf(EventTypeIPAddress, "93.184.216.34"), "HashOf")
	testutil.AssertEqual(t, len(a.Hash()), 64, "sha256 hex length")
	testutil.AssertEqual(t, len(a.Digest()), 12, "digest length")

	// separador: ("AB","C") y ("A","BC") no colisionan
	testutil.AssertNotEqual(t, HashOf("AB", "C"), HashOf("A", "BC"), "type/data separator")
}

func TestEventAncestry(t *testing.T) {
	root := mustRoot(t)
	ip, _ := NewEvent(EventTypeIPAddress, "93.184.216.34", "dnsresolve", root)
	host, _ := NewEvent(EventTypeCoHostedSite, "other.org", "reversedns", ip)

	chain := host.Ancestry()
	testutil.AssertEqual(t, len(chain), 2, "ancestry length")
	testutil.AssertTrue(t, chain[0] == ip, "first ancestor is parent")
	testutil.AssertTrue(t, chain[1] == root, "chain ends at root")
	testutil.AssertTrue(t, host.Root() == root, "root lookup")
	testutil.AssertEqual(t, host.Depth(), 2, "depth")
	testutil.AssertEqual(t, host.SourceHash(), ip.Hash(), "source hash")
}

func TestEventRepeatsAncestor(t *testing.T) {
	root := mustRoot(t)
	ip, _ := NewEvent(EventTypeIPAddress, "93.184.216.34", "dnsresolve", root)
	sameAsRoot, _ := NewEvent(EventTypeInternetName, "EXAMPLE.com", "reversedns", ip)
	child, _ := NewEvent(EventTypeInternetName, "www.example.com", "reversedns", ip)
	direct, _ := NewEvent(EventTypeInternetName, "example.com", "dnsbrute", root)
	ipAgain, _ := NewEvent(EventTypeIPAddress, "93.184.216.34", "dnsresolve", child)

	testutil.AssertTrue(t, sameAsRoot.RepeatsAncestor(), "grandparent with same type and data")
	testutil.AssertFalse(t, child.RepeatsAncestor(), "different data")
	testutil.AssertFalse(t, direct.RepeatsAncestor(), "parent is not compared")
	testutil.AssertTrue(t, ipAgain.RepeatsAncestor(), "ip repeated two levels up")
	testutil.AssertFalse(t, root.RepeatsAncestor(), "root")
}

func TestEventAsMap(t *testing.T) {
	root := mustRoot(t)
	ev, _ := NewEvent(EventTypeEmailAddr, "info@example.com", "email", root, WithRisk(RiskInfo), WithVisibility(50))

	m := ev.AsMap()
	testutil.AssertEqual(t, m["type"], "EMAILADDR", "type")
	testutil.AssertEqual(t, m["module"], "email", "module")
	testutil.AssertEqual(t, m["source"], "example.com", "source data")
	testutil.AssertEqual(t, m["source_hash"], root.Hash(), "source hash")
	testutil.AssertEqual(t, m["risk"], "INFO", "risk")
	testutil.AssertEqual(t, m["visibility"], 50, "visibility")
	testutil.AssertEqual(t, m["confidence"], 100, "default confidence")
	testutil.AssertEqual(t, root.AsMap()["source"], "", "root has no source data")
}

func TestEventTypeIsValid(t *testing.T) {
	tests := []struct {
		in   EventType
		want bool
	}{
		{"IP_ADDRESS", true},
		{"TCP_PORT_OPEN", true},
		{"ROOT", true},
		{"X509", true},
		{"*", false},
		{"", false},
		{"_LEADING", false},
		{"lower", false},
		{"WITH-DASH", false},
	}
	for _, tt := range tests {
		testutil.AssertEqual(t, tt.in.IsValid(), tt.want, string(tt.in))
	}
	testutil.AssertTrue(t, EventTypeCoHostedSite.IsAffiliate(), "co-host is affiliate")
	testutil.AssertTrue(t, EventTypeAffiliateEmailAddr.IsAffiliate(), "affiliate prefix")
	testutil.AssertFalse(t, EventTypeEmailAddr.IsAffiliate(), "email is not affiliate")
	testutil.AssertEqual(t, EventType("CUSTOM_TYPE").Description(), "CUSTOM_TYPE", "unknown description")
	testutil.AssertEqual(t, len(TargetTypes()), 10, "seed types")
}

func TestEventTypeIsKnown(t *testing.T) {
	testutil.AssertTrue(t, EventTypeIPAddress.IsKnown(), "taxonomy type")
	testutil.AssertTrue(t, EventTypeRoot.IsKnown(), "root")
	testutil.AssertFalse(t, EventType("IP_ADDRES").IsKnown(), "well formed but unknown")
	testutil.AssertFalse(t, EventTypeWildcard.IsKnown(), "wildcard")
}

func TestRisk(t *testing.T) {
	testutil.AssertEqual(t, ParseRisk("high"), RiskHigh, "parse high")
	testutil.AssertEqual(t, ParseRisk("bogus"), RiskNone, "unknown is none")
	testutil.AssertEqual(t, RiskMedium.String(), "MEDIUM", "string")
	testutil.AssertFalse(t, Risk(-1).IsValid(), "negative risk")
}
