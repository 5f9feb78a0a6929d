package common

import (
	"testing"

	"reconbus/internal/core/domain"
	"reconbus/internal/core/ports"
	"reconbus/internal/testutil"
	"reconbus/internal/testutil/fakes"
)

func TestRegistrableDomain(t *testing.T) {
	tests := []struct {
		host string
		want string
		ok   bool
	}{
		{"www.example.com", "example.com", true},
		{"Example.COM.", "example.com", true},
		{"a.b.example.co.uk", "example.co.uk", true},
		{"com", "", false},
	}
	for _, tt := range tests {
		got, ok := RegistrableDomain(tt.host)
		testutil.AssertEqual(t, ok, tt.ok, tt.host+" ok")
		testutil.AssertEqual(t, got, tt.want, tt.host)
	}

	testutil.AssertTrue(t, IsRegistrableDomain("example.com"), "domain")
	testutil.AssertFalse(t, IsRegistrableDomain("www.example.com"), "subdomain")
}

func TestBase_EmitOnce(t *testing.T) {
	fw := fakes.NewFramework("sample", fakes.MustTarget("example.com", domain.EventTypeInternetName), ports.Services{})
	b := NewBase("sample")
	b.Init(fw, ports.Options{"limit": "3"})

	first, err := b.EmitOnce(domain.EventTypeIPAddress, "192.0.2.1", fw.RootEvent())
	testutil.AssertNoError(t, err, "first emit")
	testutil.AssertNotNil(t, first, "first event returned")

	again, err := b.EmitOnce(domain.EventTypeIPAddress, "192.0.2.1", fw.RootEvent())
	testutil.AssertNoError(t, err, "repeat emit")
	testutil.AssertTrue(t, again == nil, "repeat suppressed")

	testutil.AssertEqual(t, fw.Count(domain.EventTypeIPAddress), 1, "one published")
	testutil.AssertEqual(t, first.Module(), "sample", "module")
	testutil.AssertEqual(t, b.Int("limit", 0), 3, "string option parsed")
	testutil.AssertEqual(t, b.String("missing", "x"), "x", "default")
}

func TestBase_EmitRejectsEmptyData(t *testing.T) {
	fw := fakes.NewFramework("sample", fakes.MustTarget("example.com", domain.EventTypeInternetName), ports.Services{})
	b := NewBase("sample")
	b.Init(fw, nil)

	_, err := b.Emit(domain.EventTypeIPAddress, "", fw.RootEvent())
	testutil.AssertError(t, err, "empty data")
	testutil.AssertLen(t, fw.Events(), 0, "nothing published")
}
