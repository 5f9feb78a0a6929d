package dnsresolve

import (
	"context"
	"strings"
	"testing"

	"reconbus/internal/core/domain"
	"reconbus/internal/core/ports"
	"reconbus/internal/testutil"
	"reconbus/internal/testutil/fakes"
)

func newResolver() *fakes.Resolver {
	r := fakes.NewResolver()
	r.Hosts["example.com"] = []string{"192.0.2.10", "2001:db8::10"}
	r.Hosts["www.example.com"] = []string{"192.0.2.10"}
	r.Hosts["cdn.partner.net"] = []string{"198.51.100.7"}
	r.PTR["192.0.2.10"] = []string{"web.example.com.", "spoof.evil.test."}
	r.Hosts["web.example.com"] = []string{"192.0.2.10"}
	return r
}

func setup(t *testing.T, r *fakes.Resolver, target *domain.Target, opts map[string]interface{}) (*Plugin, *fakes.Framework) {
	t.Helper()
	fw := fakes.NewFramework(pluginName, target, ports.Services{Resolver: r})
	p := New()
	testutil.AssertNoError(t, p.Setup(fw, ports.ResolveOptions(pluginName, Metadata().DefaultOptions, opts)), "setup")
	return p, fw
}

func TestSetup_RequiresResolver(t *testing.T) {
	fw := fakes.NewFramework(pluginName, fakes.MustTarget("example.com", domain.EventTypeInternetName), ports.Services{})
	testutil.AssertError(t, New().Setup(fw, nil), "missing resolver")
}

func TestEnrichTarget_NameSeed(t *testing.T) {
	target := fakes.MustTarget("example.com", domain.EventTypeInternetName)
	p, _ := setup(t, newResolver(), target, nil)

	testutil.AssertNoError(t, p.EnrichTarget(context.Background(), target), "enrich")
	testutil.AssertEqual(t, strings.Join(target.Addresses(), ","), "192.0.2.10,2001:db8::10", "address aliases")
	testutil.AssertTrue(t, target.Matches("192.0.2.10", false, false), "alias in scope")
}

func TestEnrichTarget_IPSeedValidatesReverse(t *testing.T) {
	target := fakes.MustTarget("192.0.2.10", domain.EventTypeIPAddress)
	p, _ := setup(t, newResolver(), target, nil)

	testutil.AssertNoError(t, p.EnrichTarget(context.Background(), target), "enrich")
	testutil.AssertEqual(t, strings.Join(target.Names(), ","), "web.example.com", "only forward-confirmed name")

	loose := fakes.MustTarget("192.0.2.10", domain.EventTypeIPAddress)
	p, _ = setup(t, newResolver(), loose, map[string]interface{}{"dnsresolve:validatereverse": false})
	testutil.AssertNoError(t, p.EnrichTarget(context.Background(), loose), "enrich")
	testutil.AssertLen(t, loose.Names(), 2, "both names without validation")
}

func TestHandleEvent_RootResolves(t *testing.T) {
	target := fakes.MustTarget("example.com", domain.EventTypeInternetName)
	p, fw := setup(t, newResolver(), target, nil)
	ctx := context.Background()

	testutil.AssertNoError(t, p.HandleEvent(ctx, fw.RootEvent()), "root")
	testutil.AssertNoError(t, p.HandleEvent(ctx, fw.RootEvent()), "root again")

	testutil.AssertEqual(t, strings.Join(fw.Data(domain.EventTypeIPAddress), ","), "192.0.2.10", "ipv4")
	testutil.AssertEqual(t, strings.Join(fw.Data(domain.EventTypeIPv6Address), ","), "2001:db8::10", "ipv6")
	testutil.AssertEqual(t, fw.Count(domain.EventTypeDomainName), 0, "seed domain left to the controller")
	for _, ev := range fw.Events() {
		testutil.AssertTrue(t, ev.Source() == fw.RootEvent(), "source is root")
		testutil.AssertEqual(t, ev.Module(), pluginName, "module")
	}
}

func TestHandleEvent_SubdomainSeedReportsParent(t *testing.T) {
	target := fakes.MustTarget("www.example.com", domain.EventTypeInternetName)
	p, fw := setup(t, newResolver(), target, nil)
	ctx := context.Background()

	testutil.AssertNoError(t, p.HandleEvent(ctx, fw.RootEvent()), "root")
	web := fw.NewChild(domain.EventTypeInternetName, "web.example.com", "reversedns", nil)
	testutil.AssertNoError(t, p.HandleEvent(ctx, web), "sibling")

	testutil.AssertEqual(t, strings.Join(fw.Data(domain.EventTypeDomainNameParent), ","), "example.com", "parent once")
	testutil.AssertEqual(t, fw.Count(domain.EventTypeDomainName), 0, "parent is not in scope")
	testutil.AssertEqual(t, fw.Count(domain.EventTypeIPAddress), 2, "same ip under each name")
}

func TestHandleEvent_AliasDomain(t *testing.T) {
	target := fakes.MustTarget("example.com", domain.EventTypeInternetName)
	target.AddAlias(domain.EventTypeInternetName, "example.org")
	r := newResolver()
	r.Hosts["www.example.org"] = []string{"203.0.113.5"}
	p, fw := setup(t, r, target, nil)

	www := fw.NewChild(domain.EventTypeInternetName, "www.example.org", "webspider", nil)
	testutil.AssertNoError(t, p.HandleEvent(context.Background(), www), "handle")

	testutil.AssertEqual(t, strings.Join(fw.Data(domain.EventTypeDomainName), ","), "example.org", "alias domain")
	testutil.AssertTrue(t, fw.Events()[1].Source() == www, "domain hangs from the host")
}

func TestHandleEvent_Unresolved(t *testing.T) {
	target := fakes.MustTarget("example.com", domain.EventTypeInternetName)
	p, fw := setup(t, newResolver(), target, nil)
	ctx := context.Background()

	gone := fw.NewChild(domain.EventTypeInternetName, "old.example.com", "webspider", nil)
	outside := fw.NewChild(domain.EventTypeInternetName, "unknown.other.org", "webspider", nil)
	testutil.AssertNoError(t, p.HandleEvent(ctx, gone), "in scope")
	testutil.AssertNoError(t, p.HandleEvent(ctx, outside), "out of scope")

	testutil.AssertEqual(t, strings.Join(fw.Data(domain.EventTypeInternetNameUnresolved), ","), "old.example.com", "only in-scope names")
}

func TestHandleEvent_Affiliates(t *testing.T) {
	target := fakes.MustTarget("example.com", domain.EventTypeInternetName)
	p, fw := setup(t, newResolver(), target, nil)
	ctx := context.Background()

	aff := fw.NewChild(domain.EventTypeAffiliateInternetName, "cdn.partner.net", "webspider", nil)
	cohost := fw.NewChild(domain.EventTypeCoHostedSite, "shop.hosted.org", "reversedns", nil)
	testutil.AssertNoError(t, p.HandleEvent(ctx, aff), "affiliate")
	testutil.AssertNoError(t, p.HandleEvent(ctx, cohost), "co-host")

	testutil.AssertEqual(t, strings.Join(fw.Data(domain.EventTypeAffiliateIPAddr), ","), "198.51.100.7", "affiliate ip")
	testutil.AssertEqual(t, strings.Join(fw.Data(domain.EventTypeAffiliateDomainName), ","), "partner.net", "affiliate domain")
	testutil.AssertEqual(t, strings.Join(fw.Data(domain.EventTypeCoHostedSiteDomain), ","), "hosted.org", "co-host domain")
}
