// Package crtsh busca nombres de host en los logs de Certificate
// Transparency vía crt.sh.
package crtsh

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"reconbus/internal/core/domain"
	"reconbus/internal/core/ports"
	"reconbus/internal/platform/errors"
	"reconbus/internal/plugins/common"
)

const (
	pluginName = "crtsh"
	defaultURL = "https://crt.sh/"
)

// Auto-registro del plugin al importar el package
func init() {
	common.Register(pluginName, func() ports.Plugin { return New() }, Metadata())
}

var (
	watched = []domain.EventType{
		domain.EventTypeDomainName,
	}
	produced = []domain.EventType{
		domain.EventTypeInternetName,
		domain.EventTypeAffiliateInternetName,
	}
)

// Metadata describe el plugin.
func Metadata() ports.PluginMetadata {
	return ports.PluginMetadata{
		Name:        pluginName,
		Description: "Certificate Transparency log search via crt.sh",
		Mode:        domain.PluginModePassive,
		Priority:    20,
		DefaultOptions: ports.Options{
			"url":        defaultURL,
			"affiliates": true,
		},
		OptionDescriptions: map[string]string{
			"url":        "Base URL of the crt.sh service",
			"affiliates": "Report out-of-scope names found on the same certificates",
		},
		Watched:  watched,
		Produced: produced,
	}
}

// certRecord es un registro de certificado de crt.sh.
type certRecord struct {
	IssuerName   string `json:"issuer_name"`
	NameValue    string `json:"name_value"`
	NotAfter     string `json:"not_after"`
	SerialNumber string `json:"serial_number"`
}

// Plugin emite los nombres presentes en certificados emitidos para el dominio.
type Plugin struct {
	common.Base
	fetcher    ports.Fetcher
	baseURL    string
	affiliates bool
}

func New() *Plugin {
	return &Plugin{Base: common.NewBase(pluginName)}
}

func (p *Plugin) Setup(fw ports.Framework, opts ports.Options) error {
	p.Init(fw, opts)
	p.fetcher = fw.Services().Fetcher
	if p.fetcher == nil {
		return errors.Wrap(errors.ErrServiceUnavailable, "http fetcher not configured")
	}
	p.baseURL = p.String("url", defaultURL)
	p.affiliates = p.Bool("affiliates", true)
	return nil
}

func (p *Plugin) WatchedEvents() ports.Subscription  { return ports.Watch(watched...) }
func (p *Plugin) ProducedEvents() []domain.EventType { return produced }

func (p *Plugin) HandleEvent(ctx context.Context, ev *domain.Event) error {
	name := strings.ToLower(ev.Data())
	if !p.First("queried:" + name) {
		return nil
	}

	records, err := p.query(ctx, name)
	if err != nil {
		return err
	}

	p.Logger().Debug("parsed crtsh records", "domain", name, "count", len(records))

	for _, host := range extractHosts(records) {
		if p.Stopped() {
			return nil
		}
		t := domain.EventTypeInternetName
		if !p.Target().InScope(host) {
			if !p.affiliates {
				continue
			}
			t = domain.EventTypeAffiliateInternetName
		}
		if _, err := p.EmitOnce(t, host, ev); err != nil {
			return err
		}
	}
	return nil
}

func (p *Plugin) query(ctx context.Context, name string) ([]certRecord, error) {
	endpoint := fmt.Sprintf("%s?q=%s&output=json", p.baseURL, url.QueryEscape("%."+name))
	headers := map[string]string{"Accept": "application/json"}
	if ua := p.UserAgent(); ua != "" {
		headers["User-Agent"] = ua
	}

	ctx, cancel := context.WithTimeout(ctx, p.FetchTimeout())
	defer cancel()

	resp, err := p.fetcher.Fetch(ctx, endpoint, headers)
	if err != nil {
		return nil, errors.Wrapf(err, "query crt.sh for %s", name)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected HTTP %d for %s", pluginName, resp.StatusCode, name)
	}

	var records []certRecord
	if err := json.Unmarshal(resp.Body, &records); err != nil {
		// crt.sh devuelve HTML cuando está saturado
		p.Logger().Warn("failed to parse crtsh response", "domain", name, "error", err.Error())
		return nil, nil
	}
	return records, nil
}

// extractHosts extrae los nombres únicos de los registros. name_value puede traer
// varios nombres separados por \n; los comodines pierden el "*.".
func extractHosts(records []certRecord) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range records {
		for _, host := range strings.Split(r.NameValue, "\n") {
			host = strings.ToLower(strings.TrimSpace(host))
			host = strings.TrimPrefix(host, "*.")
			if host == "" || strings.ContainsAny(host, " @*") || seen[host] {
				continue
			}
			seen[host] = true
			out = append(out, host)
		}
	}
	return out
}
