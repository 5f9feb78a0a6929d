package breach

import (
	"context"
	"strings"
	"testing"

	"reconbus/internal/core/domain"
	"reconbus/internal/core/ports"
	"reconbus/internal/testutil"
	"reconbus/internal/testutil/fakes"
)

const (
	testURL   = "https://breach.test/api/"
	testEmail = "foo@example.com"
)

func setup(t *testing.T, f *fakes.Fetcher, opts map[string]interface{}) (*Plugin, *fakes.Framework) {
	t.Helper()
	fw := fakes.NewFramework(pluginName, fakes.MustTarget(testEmail, domain.EventTypeEmailAddr), ports.Services{Fetcher: f})
	flat := map[string]interface{}{
		"breach:api_key": "secret",
		"breach:url":     testURL,
	}
	for k, v := range opts {
		flat[k] = v
	}
	p := New()
	testutil.AssertNoError(t, p.Setup(fw, ports.ResolveOptions(pluginName, Metadata().DefaultOptions, flat)), "setup")
	return p, fw
}

func endpoint(addr string) string {
	return testURL + addr + "?truncateResponse=true"
}

func TestSetup_RequiresAPIKey(t *testing.T) {
	fw := fakes.NewFramework(pluginName, fakes.MustTarget(testEmail, domain.EventTypeEmailAddr), ports.Services{Fetcher: fakes.NewFetcher()})
	err := New().Setup(fw, ports.ResolveOptions(pluginName, Metadata().DefaultOptions, nil))
	testutil.AssertError(t, err, "missing api key")
	testutil.AssertContains(t, err.Error(), "api_key", "message names the option")
}

func TestHandleEvent_OneEventPerBreach(t *testing.T) {
	f := fakes.NewFetcher()
	f.Serve(endpoint(testEmail), `[{"Name":"Adobe"},{"Name":"LinkedIn"}]`)
	p, fw := setup(t, f, nil)

	testutil.AssertNoError(t, p.HandleEvent(context.Background(), fw.RootEvent()), "handle")
	testutil.AssertNoError(t, p.HandleEvent(context.Background(), fw.RootEvent()), "repeat")

	testutil.AssertEqual(t, strings.Join(fw.Data(domain.EventTypeEmailAddrCompromised), ","),
		"foo@example.com [Adobe],foo@example.com [LinkedIn]", "breaches")
	for _, ev := range fw.Events() {
		testutil.AssertTrue(t, ev.Source() == fw.RootEvent(), "source is root")
	}
	testutil.AssertLen(t, f.Requests(), 1, "queried once")
	testutil.AssertEqual(t, f.LastHeaders()["hibp-api-key"], "secret", "api key header")
}

func TestHandleEvent_NotFound(t *testing.T) {
	p, fw := setup(t, fakes.NewFetcher(), nil)

	testutil.AssertNoError(t, p.HandleEvent(context.Background(), fw.RootEvent()), "404 is clean")
	testutil.AssertLen(t, fw.Events(), 0, "nothing published")
}

func TestHandleEvent_Unauthorized(t *testing.T) {
	f := fakes.NewFetcher()
	f.Responses[endpoint(testEmail)] = &ports.FetchResponse{StatusCode: 401}
	p, fw := setup(t, f, nil)

	err := p.HandleEvent(context.Background(), fw.RootEvent())
	testutil.AssertTrue(t, ports.IsFatal(err), "401 is fatal")
}

func TestHandleEvent_BadJSON(t *testing.T) {
	f := fakes.NewFetcher()
	f.Serve(endpoint(testEmail), "<html>")
	p, fw := setup(t, f, nil)

	err := p.HandleEvent(context.Background(), fw.RootEvent())
	testutil.AssertError(t, err, "decode error")
	testutil.AssertFalse(t, ports.IsFatal(err), "not fatal")
}

func TestHandleEvent_Affiliates(t *testing.T) {
	f := fakes.NewFetcher()
	f.Serve(endpoint("bob@partner.org"), `[{"Name":"Canva"}]`)
	p, fw := setup(t, f, nil)
	affiliate := fw.NewChild(domain.EventTypeAffiliateEmailAddr, "bob@partner.org", "email", nil)

	testutil.AssertNoError(t, p.HandleEvent(context.Background(), affiliate), "skipped")
	testutil.AssertLen(t, f.Requests(), 0, "affiliates off by default")

	p, fw = setup(t, f, map[string]interface{}{"breach:affiliates": true})
	affiliate = fw.NewChild(domain.EventTypeAffiliateEmailAddr, "bob@partner.org", "email", nil)
	testutil.AssertNoError(t, p.HandleEvent(context.Background(), affiliate), "checked")
	testutil.AssertEqual(t, strings.Join(fw.Data(domain.EventTypeEmailAddrCompromised), ","), "bob@partner.org [Canva]", "affiliate breach")
}
