// Package whois implements ports.WhoisClient over github.com/likexian/whois,
// with field extraction by github.com/likexian/whois-parser.
package whois

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"

	"reconbus/internal/core/ports"
	"reconbus/internal/platform/errors"
	"reconbus/internal/platform/logx"
)

// queryFunc returns the raw WHOIS text for a domain.
type queryFunc func(domain string) (string, error)

// Client performs WHOIS lookups. The underlying library has no context
// support; Lookup returns when ctx is done and lets the query finish in the
// background.
type Client struct {
	query  queryFunc
	logger logx.Logger
}

// New creates a client with the given per-query timeout (default 15s).
func New(timeout time.Duration, logger logx.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = logx.NewDiscard()
	}
	lib := whois.NewClient().SetTimeout(timeout)
	return &Client{
		query:  func(domain string) (string, error) { return lib.Whois(domain) },
		logger: logger.With("component", "whois"),
	}
}

type answer struct {
	raw string
	err error
}

// Lookup queries WHOIS for domainName. Parse failures still return the raw
// text; a registry "no match" answer returns errors.ErrNotFound.
func (c *Client) Lookup(ctx context.Context, domainName string) (*ports.WhoisRecord, error) {
	domainName = strings.ToLower(strings.TrimSpace(domainName))
	if domainName == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "empty domain")
	}

	done := make(chan answer, 1)
	go func() {
		raw, err := c.query(domainName)
		done <- answer{raw: raw, err: err}
	}()

	var a answer
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case a = <-done:
	}
	if a.err != nil {
		return nil, errors.Wrapf(errors.ErrConnectionFailed, "whois %s: %v", domainName, a.err)
	}

	if isNoMatch(a.raw) {
		return nil, errors.Wrapf(errors.ErrNotFound, "whois %s", domainName)
	}

	rec := &ports.WhoisRecord{Domain: domainName, Raw: a.raw}
	info, err := whoisparser.Parse(a.raw)
	switch {
	case err == nil:
		fill(rec, info)
	case errors.Is(err, whoisparser.ErrNotFoundDomain):
		return nil, errors.Wrapf(errors.ErrNotFound, "whois %s", domainName)
	default:
		c.logger.Debug("whois parse failed", "domain", domainName, "error", err.Error())
	}
	return rec, nil
}

// noMatchPrefixes are the first-line markers registries use for
// unregistered names. The parser does not flag all of them.
var noMatchPrefixes = []string{
	"no match for",
	"not found",
	"no data found",
	"no entries found",
	"no object found",
	"domain not found",
	"the queried object does not exist",
	"status: free",
	"status: available",
}

// isNoMatch reports whether the first meaningful line of raw is a
// registry "no match" answer. Comment lines (%, #) and banners are skipped.
func isNoMatch(raw string) bool {
	for _, line := range strings.Split(raw, "\n") {
		line = strings.ToLower(strings.TrimSpace(line))
		if line == "" || strings.HasPrefix(line, "%") || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, ">>> ")
		for _, prefix := range noMatchPrefixes {
			if strings.HasPrefix(line, prefix) {
				return true
			}
		}
		return false
	}
	return false
}

func fill(rec *ports.WhoisRecord, info whoisparser.WhoisInfo) {
	if d := info.Domain; d != nil {
		rec.Created = d.CreatedDate
		rec.Expires = d.ExpirationDate
		for _, ns := range d.NameServers {
			if ns = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(ns), ".")); ns != "" {
				rec.NameServers = append(rec.NameServers, ns)
			}
		}
	}
	if r := info.Registrar; r != nil {
		rec.Registrar = firstNonEmpty(r.Name, r.Organization)
	}
	if r := info.Registrant; r != nil {
		rec.Registrant = firstNonEmpty(r.Name, r.Organization)
	}

	emails := make(map[string]bool)
	for _, contact := range []*whoisparser.Contact{info.Registrar, info.Registrant, info.Administrative, info.Technical, info.Billing} {
		if contact == nil || contact.Email == "" {
			continue
		}
		emails[strings.ToLower(strings.TrimSpace(contact.Email))] = true
	}
	for e := range emails {
		rec.Emails = append(rec.Emails, e)
	}
	sort.Strings(rec.Emails)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
