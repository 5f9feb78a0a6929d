package netblock

import (
	"context"
	"strings"
	"testing"

	"reconbus/internal/core/domain"
	"reconbus/internal/core/ports"
	"reconbus/internal/testutil"
	"reconbus/internal/testutil/fakes"
)

func setup(t *testing.T, seed string, opts map[string]interface{}) (*Plugin, *fakes.Framework) {
	t.Helper()
	fw := fakes.NewFramework(pluginName, fakes.MustTarget(seed, domain.EventTypeNetblockOwner), ports.Services{})
	p := New()
	testutil.AssertNoError(t, p.Setup(fw, ports.ResolveOptions(pluginName, Metadata().DefaultOptions, opts)), "setup")
	return p, fw
}

func TestHandleEvent_ExpandsWithoutEdges(t *testing.T) {
	p, fw := setup(t, "192.0.2.0/24", nil)
	testutil.AssertNoError(t, p.HandleEvent(context.Background(), fw.RootEvent()), "root")

	ips := fw.Data(domain.EventTypeIPAddress)
	testutil.AssertLen(t, ips, 254, "all but network and broadcast")
	testutil.AssertEqual(t, ips[0], "192.0.2.1", "first host")
	testutil.AssertEqual(t, ips[len(ips)-1], "192.0.2.254", "last host")
}

func TestHandleEvent_Cap(t *testing.T) {
	p, fw := setup(t, "192.0.2.0/24", map[string]interface{}{"netblock:maxips": 10, "netblock:skipedges": false})
	ctx := context.Background()
	testutil.AssertNoError(t, p.HandleEvent(ctx, fw.RootEvent()), "root")

	second := fw.NewChild(domain.EventTypeNetblockOwner, "198.51.100.0/28", "whois", nil)
	testutil.AssertNoError(t, p.HandleEvent(ctx, second), "second block")

	ips := fw.Data(domain.EventTypeIPAddress)
	testutil.AssertLen(t, ips, 10, "per-scan cap")
	testutil.AssertEqual(t, ips[0], "192.0.2.0", "edges kept")
}

func TestHandleEvent_SmallBlocks(t *testing.T) {
	p, fw := setup(t, "192.0.2.0/31", nil)
	testutil.AssertNoError(t, p.HandleEvent(context.Background(), fw.RootEvent()), "root")
	testutil.AssertEqual(t, strings.Join(fw.Data(domain.EventTypeIPAddress), ","), "192.0.2.0,192.0.2.1", "/31 keeps both")
}

func TestHandleEvent_TooLarge(t *testing.T) {
	p, fw := setup(t, "10.0.0.0/16", nil)
	testutil.AssertNoError(t, p.HandleEvent(context.Background(), fw.RootEvent()), "root")
	testutil.AssertLen(t, fw.Events(), 0, "skipped")
}

func TestHandleEvent_IPv6(t *testing.T) {
	p, fw := setup(t, "2001:db8::/126", nil)
	testutil.AssertNoError(t, p.HandleEvent(context.Background(), fw.RootEvent()), "root")
	testutil.AssertEqual(t, strings.Join(fw.Data(domain.EventTypeIPv6Address), ","),
		"2001:db8::,2001:db8::1,2001:db8::2,2001:db8::3", "v6 members")
}

func TestHandleEvent_NoDuplicates(t *testing.T) {
	p, fw := setup(t, "192.0.2.0/24", nil)
	ctx := context.Background()
	testutil.AssertNoError(t, p.HandleEvent(ctx, fw.RootEvent()), "root")

	overlap := fw.NewChild(domain.EventTypeNetblockOwner, "192.0.2.0/25", "whois", nil)
	testutil.AssertNoError(t, p.HandleEvent(ctx, overlap), "overlap")
	testutil.AssertLen(t, fw.Events(), 254, "overlap adds nothing")
}
