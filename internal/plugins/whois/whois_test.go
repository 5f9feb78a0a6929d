package whois

import (
	"context"
	"strings"
	"testing"

	"reconbus/internal/core/domain"
	"reconbus/internal/core/ports"
	"reconbus/internal/testutil"
	"reconbus/internal/testutil/fakes"
)

func setup(t *testing.T, w *fakes.Whois) (*Plugin, *fakes.Framework) {
	t.Helper()
	fw := fakes.NewFramework(pluginName, fakes.MustTarget("example.com", domain.EventTypeDomainName), ports.Services{Whois: w})
	p := New()
	testutil.AssertNoError(t, p.Setup(fw, ports.ResolveOptions(pluginName, Metadata().DefaultOptions, nil)), "setup")
	return p, fw
}

func TestSetup_RequiresClient(t *testing.T) {
	fw := fakes.NewFramework(pluginName, fakes.MustTarget("example.com", domain.EventTypeDomainName), ports.Services{})
	testutil.AssertError(t, New().Setup(fw, nil), "missing whois client")
}

func TestHandleEvent_DomainRecord(t *testing.T) {
	w := fakes.NewWhois()
	w.Records["example.com"] = &ports.WhoisRecord{
		Domain:    "example.com",
		Raw:       testutil.FixtureWhois,
		Registrar: "RESERVED-Internet Assigned Numbers Authority",
	}
	p, fw := setup(t, w)

	testutil.AssertNoError(t, p.HandleEvent(context.Background(), fw.RootEvent()), "handle")
	testutil.AssertNoError(t, p.HandleEvent(context.Background(), fw.RootEvent()), "repeat")

	testutil.AssertEqual(t, strings.Join(fw.Data(domain.EventTypeDomainWhois), ""), testutil.FixtureWhois, "raw record")
	testutil.AssertEqual(t, strings.Join(fw.Data(domain.EventTypeDomainRegistrar), ","), "RESERVED-Internet Assigned Numbers Authority", "registrar")
	testutil.AssertEqual(t, w.Lookups(), 1, "single lookup")
}

func TestHandleEvent_AffiliateRecord(t *testing.T) {
	w := fakes.NewWhois()
	w.Records["partner.org"] = &ports.WhoisRecord{Raw: strings.Repeat("x", 300), Registrar: "Some Registrar"}
	p, fw := setup(t, w)
	affiliate := fw.NewChild(domain.EventTypeAffiliateDomainName, "partner.org", "dnsresolve", nil)

	testutil.AssertNoError(t, p.HandleEvent(context.Background(), affiliate), "handle")

	testutil.AssertEqual(t, fw.Count(domain.EventTypeAffiliateDomainWhois), 1, "affiliate whois")
	testutil.AssertEqual(t, fw.Count(domain.EventTypeDomainRegistrar), 0, "registrar only for target domains")
}

func TestHandleEvent_Throttled(t *testing.T) {
	w := fakes.NewWhois()
	w.Records["example.com"] = &ports.WhoisRecord{Raw: "Query rate limit exceeded"}
	p, fw := setup(t, w)

	testutil.AssertNoError(t, p.HandleEvent(context.Background(), fw.RootEvent()), "handle")
	testutil.AssertLen(t, fw.Events(), 0, "short responses ignored")
}

func TestHandleEvent_NotFound(t *testing.T) {
	p, fw := setup(t, fakes.NewWhois())

	testutil.AssertNoError(t, p.HandleEvent(context.Background(), fw.RootEvent()), "not found is clean")
	testutil.AssertLen(t, fw.Events(), 0, "nothing published")
}
