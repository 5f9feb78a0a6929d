// Package dns implements ports.Resolver over github.com/miekg/dns with an
// answer cache in front of the upstream servers.
package dns

import (
	"context"
	"net"
	"strings"
	"time"

	mdns "github.com/miekg/dns"

	"reconbus/internal/platform/cache"
	"reconbus/internal/platform/errors"
	"reconbus/internal/platform/logx"
)

// ResolvConf is read for upstream servers when Config.Servers is empty.
const ResolvConf = "/etc/resolv.conf"

var fallbackServers = []string{"8.8.8.8:53", "1.1.1.1:53"}

// Config configures the resolver.
type Config struct {
	// Servers are "host" or "host:port" upstreams, tried in order.
	Servers []string

	// Timeout per query and server. Default: 5s
	Timeout time.Duration

	// CacheTTL for positive and negative answers. 0 disables caching.
	CacheTTL time.Duration

	// CacheSize in entries. Default: cache.DefaultCapacity
	CacheSize int
}

// DefaultConfig returns a config that reads upstreams from resolv.conf.
func DefaultConfig() Config {
	return Config{
		Timeout:   5 * time.Second,
		CacheTTL:  10 * time.Minute,
		CacheSize: 4096,
	}
}

type exchangeFunc func(ctx context.Context, m *mdns.Msg, server string, tcp bool) (*mdns.Msg, error)

// Resolver is a caching stub resolver.
type Resolver struct {
	servers  []string
	cacheTTL time.Duration
	answers  *cache.LRU[[]string]
	logger   logx.Logger
	exchange exchangeFunc
}

// New creates a resolver. Servers without a port get :53.
func New(cfg Config, logger logx.Logger) *Resolver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if logger == nil {
		logger = logx.NewDiscard()
	}

	servers := normalizeServers(cfg.Servers)
	if len(servers) == 0 {
		servers = systemServers()
	}

	udp := &mdns.Client{Net: "udp", Timeout: cfg.Timeout}
	tcp := &mdns.Client{Net: "tcp", Timeout: cfg.Timeout}

	return &Resolver{
		servers:  servers,
		cacheTTL: cfg.CacheTTL,
		answers:  cache.New[[]string](cfg.CacheSize),
		logger:   logger.With("component", "dns"),
		exchange: func(ctx context.Context, m *mdns.Msg, server string, useTCP bool) (*mdns.Msg, error) {
			c := udp
			if useTCP {
				c = tcp
			}
			resp, _, err := c.ExchangeContext(ctx, m, server)
			return resp, err
		},
	}
}

// Servers returns the upstreams in query order.
func (r *Resolver) Servers() []string {
	return append([]string(nil), r.servers...)
}

// CacheStats exposes the answer cache counters.
func (r *Resolver) CacheStats() cache.Stats {
	return r.answers.Stats()
}

// LookupHost returns the A and AAAA addresses of host.
func (r *Resolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	v4, errA := r.query(ctx, host, mdns.TypeA)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v6, errAAAA := r.query(ctx, host, mdns.TypeAAAA)

	addrs := append(v4, v6...)
	if len(addrs) > 0 {
		return addrs, nil
	}
	if errA != nil && !errors.IsNotFound(errA) {
		return nil, errA
	}
	if errAAAA != nil && !errors.IsNotFound(errAAAA) {
		return nil, errAAAA
	}
	return nil, errors.Wrapf(errors.ErrNotFound, "no addresses for %s", host)
}

// LookupAddr returns the PTR names of ip.
func (r *Resolver) LookupAddr(ctx context.Context, ip string) ([]string, error) {
	arpa, err := mdns.ReverseAddr(ip)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "reverse address %q", ip)
	}
	return r.query(ctx, arpa, mdns.TypePTR)
}

// LookupRecords returns the records of recordType ("MX", "NS", "TXT", ...)
// in presentation form.
func (r *Resolver) LookupRecords(ctx context.Context, name, recordType string) ([]string, error) {
	qtype, ok := mdns.StringToType[strings.ToUpper(recordType)]
	if !ok {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "unknown record type %q", recordType)
	}
	return r.query(ctx, name, qtype)
}

func (r *Resolver) query(ctx context.Context, name string, qtype uint16) ([]string, error) {
	fqdn := mdns.Fqdn(strings.ToLower(strings.TrimSpace(name)))
	key := mdns.TypeToString[qtype] + " " + fqdn

	if answers, ok := r.answers.Get(key); ok {
		if len(answers) == 0 {
			return nil, errors.Wrapf(errors.ErrNotFound, "%s", key)
		}
		return append([]string(nil), answers...), nil
	}

	m := new(mdns.Msg)
	m.SetQuestion(fqdn, qtype)
	m.RecursionDesired = true

	var lastErr error
	for _, server := range r.servers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := r.exchange(ctx, m, server, false)
		if err == nil && resp != nil && resp.Truncated {
			resp, err = r.exchange(ctx, m, server, true)
		}
		if err != nil {
			r.logger.Debug("dns exchange failed", "server", server, "query", key, "error", err.Error())
			lastErr = errors.Wrapf(errors.ErrConnectionFailed, "%s via %s: %v", key, server, err)
			continue
		}

		switch resp.Rcode {
		case mdns.RcodeSuccess, mdns.RcodeNameError:
			answers := presentAnswers(resp.Answer, qtype)
			r.store(key, answers)
			if len(answers) == 0 {
				return nil, errors.Wrapf(errors.ErrNotFound, "%s", key)
			}
			return answers, nil
		default:
			lastErr = errors.Wrapf(errors.ErrServiceUnavailable, "%s via %s: %s", key, server, mdns.RcodeToString[resp.Rcode])
		}
	}

	if lastErr == nil {
		lastErr = errors.Wrapf(errors.ErrServiceUnavailable, "%s: no servers", key)
	}
	return nil, lastErr
}

func (r *Resolver) store(key string, answers []string) {
	if r.cacheTTL <= 0 {
		return
	}
	if answers == nil {
		answers = []string{}
	}
	r.answers.Set(key, answers, r.cacheTTL)
}

// presentAnswers keeps only records of qtype. Names are lower-cased without
// the trailing dot; MX and NS yield the host, TXT the joined strings.
func presentAnswers(rrs []mdns.RR, qtype uint16) []string {
	var out []string
	seen := make(map[string]bool)
	for _, rr := range rrs {
		if rr.Header().Rrtype != qtype {
			continue
		}
		var v string
		switch rec := rr.(type) {
		case *mdns.A:
			v = rec.A.String()
		case *mdns.AAAA:
			v = rec.AAAA.String()
		case *mdns.PTR:
			v = hostName(rec.Ptr)
		case *mdns.MX:
			v = hostName(rec.Mx)
		case *mdns.NS:
			v = hostName(rec.Ns)
		case *mdns.CNAME:
			v = hostName(rec.Target)
		case *mdns.TXT:
			v = strings.Join(rec.Txt, "")
		default:
			v = strings.TrimSpace(strings.TrimPrefix(rr.String(), rr.Header().String()))
		}
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func hostName(s string) string {
	return strings.ToLower(strings.TrimSuffix(s, "."))
}

func normalizeServers(in []string) []string {
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, _, err := net.SplitHostPort(s); err != nil {
			s = net.JoinHostPort(strings.Trim(s, "[]"), "53")
		}
		out = append(out, s)
	}
	return out
}

func systemServers() []string {
	conf, err := mdns.ClientConfigFromFile(ResolvConf)
	if err != nil || len(conf.Servers) == 0 {
		return append([]string(nil), fallbackServers...)
	}
	out := make([]string, 0, len(conf.Servers))
	for _, s := range conf.Servers {
		out = append(out, net.JoinHostPort(s, conf.Port))
	}
	return out
}
