package crtsh

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
	testURL      = "https://crt.test/"
	testEndpoint = "https://crt.test/?q=%25.example.com&output=json"
	testBody     = `[
		{"issuer_name":"C=US, O=Let's Encrypt","name_value":"example.com\nwww.example.com","serial_number":"01"},
		{"issuer_name":"C=US, O=Let's Encrypt","name_value":"*.api.example.com","serial_number":"02"},
		{"issuer_name":"C=US, O=Let's Encrypt","name_value":"WWW.example.com\nexample-cdn.net","serial_number":"03"}
	]`
)

func setup(t *testing.T, f *fakes.Fetcher, opts map[string]interface{}) (*Plugin, *fakes.Framework) {
	t.Helper()
	fw := fakes.NewFramework(pluginName, fakes.MustTarget("example.com", domain.EventTypeDomainName), ports.Services{Fetcher: f})
	flat := map[string]interface{}{"crtsh:url": testURL}
	for k, v := range opts {
		flat[k] = v
	}
	p := New()
	testutil.AssertNoError(t, p.Setup(fw, ports.ResolveOptions(pluginName, Metadata().DefaultOptions, flat)), "setup")
	return p, fw
}

func TestSetup_RequiresFetcher(t *testing.T) {
	fw := fakes.NewFramework(pluginName, fakes.MustTarget("example.com", domain.EventTypeDomainName), ports.Services{})
	testutil.AssertError(t, New().Setup(fw, ports.ResolveOptions(pluginName, Metadata().DefaultOptions, nil)), "no fetcher")
}

func TestExtractHosts(t *testing.T) {
	hosts := extractHosts([]certRecord{
		{NameValue: "a.example.com\n*.b.example.com\n\n"},
		{NameValue: "A.example.com\nadmin@example.com"},
	})
	testutil.AssertEqual(t, strings.Join(hosts, ","), "a.example.com,b.example.com", "hosts")
}

func TestHandleEvent_ClassifiesNames(t *testing.T) {
	f := fakes.NewFetcher()
	f.Serve(testEndpoint, testBody)
	p, fw := setup(t, f, nil)

	testutil.AssertNoError(t, p.HandleEvent(context.Background(), fw.RootEvent()), "handle")
	testutil.AssertNoError(t, p.HandleEvent(context.Background(), fw.RootEvent()), "repeat")

	testutil.AssertEqual(t, strings.Join(fw.Data(domain.EventTypeInternetName), ","),
		"example.com,www.example.com,api.example.com", "in scope")
	testutil.AssertEqual(t, strings.Join(fw.Data(domain.EventTypeAffiliateInternetName), ","),
		"example-cdn.net", "affiliates")
	testutil.AssertLen(t, f.Requests(), 1, "queried once")
}

func TestHandleEvent_NoAffiliates(t *testing.T) {
	f := fakes.NewFetcher()
	f.Serve(testEndpoint, testBody)
	p, fw := setup(t, f, map[string]interface{}{"crtsh:affiliates": false})

	testutil.AssertNoError(t, p.HandleEvent(context.Background(), fw.RootEvent()), "handle")
	testutil.AssertEqual(t, fw.Count(domain.EventTypeAffiliateInternetName), 0, "no affiliates")
	testutil.AssertEqual(t, fw.Count(domain.EventTypeInternetName), 3, "in scope kept")
}

func TestHandleEvent_HTTPError(t *testing.T) {
	p, fw := setup(t, fakes.NewFetcher(), nil)

	err := p.HandleEvent(context.Background(), fw.RootEvent())
	testutil.AssertError(t, err, "404")
	testutil.AssertFalse(t, ports.IsFatal(err), "not fatal")
}

func TestHandleEvent_HTMLBody(t *testing.T) {
	f := fakes.NewFetcher()
	f.Serve(testEndpoint, "<html>busy</html>")
	p, fw := setup(t, f, nil)

	testutil.AssertNoError(t, p.HandleEvent(context.Background(), fw.RootEvent()), "html is skipped")
	testutil.AssertLen(t, fw.Events(), 0, "nothing emitted")
}
