// Package breach consulta un servicio de brechas para las direcciones
// de correo halladas.
package breach

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
	pluginName = "breach"
	defaultURL = "https://haveibeenpwned.com/api/v3/breachedaccount/"
)

// Auto-registro del plugin al importar el package
func init() {
	common.Register(pluginName, func() ports.Plugin { return New() }, Metadata())
}

var (
	watched = []domain.EventType{
		domain.EventTypeEmailAddr,
		domain.EventTypeAffiliateEmailAddr,
	}
	produced = []domain.EventType{
		domain.EventTypeEmailAddrCompromised,
	}
)

// Metadata describe el plugin.
func Metadata() ports.PluginMetadata {
	return ports.PluginMetadata{
		Name:        pluginName,
		Description: "Checks a breach database for compromised e-mail addresses",
		Mode:        domain.PluginModePassive,
		Priority:    50,
		DefaultOptions: ports.Options{
			"api_key":          "",
			"url":              defaultURL,
			"affiliates":       false,
			"truncateresponse": true,
		},
		OptionDescriptions: map[string]string{
			"api_key":          "API key for the breach service",
			"url":              "Base URL, the address is appended URL-escaped",
			"affiliates":       "Also check AFFILIATE_EMAILADDR events",
			"truncateresponse": "Ask the service for breach names only",
		},
		Watched:  watched,
		Produced: produced,
	}
}

// record es un elemento de la respuesta; basta con el nombre.
type record struct {
	Name  string `json:"Name"`
	Title string `json:"Title"`
}

// Plugin emite un EMAILADDR_COMPROMISED por brecha conocida.
type Plugin struct {
	common.Base
	fetcher    ports.Fetcher
	apiKey     string
	baseURL    string
	affiliates bool
	truncate   bool
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
	p.apiKey = strings.TrimSpace(p.String("api_key", ""))
	if p.apiKey == "" {
		return fmt.Errorf("%s: api_key is required", pluginName)
	}
	p.baseURL = p.String("url", defaultURL)
	p.affiliates = p.Bool("affiliates", false)
	p.truncate = p.Bool("truncateresponse", true)
	return nil
}

func (p *Plugin) WatchedEvents() ports.Subscription  { return ports.Watch(watched...) }
func (p *Plugin) ProducedEvents() []domain.EventType { return produced }

func (p *Plugin) HandleEvent(ctx context.Context, ev *domain.Event) error {
	if ev.Type() == domain.EventTypeAffiliateEmailAddr && !p.affiliates {
		return nil
	}
	addr := strings.ToLower(ev.Data())
	if !p.First("checked:" + addr) {
		return nil
	}

	breaches, err := p.query(ctx, addr)
	if err != nil {
		return err
	}
	for _, name := range breaches {
		if p.Stopped() {
			return nil
		}
		if _, err := p.Emit(domain.EventTypeEmailAddrCompromised, fmt.Sprintf("%s [%s]", ev.Data(), name), ev); err != nil {
			return err
		}
	}
	return nil
}

// query retorna los nombres de las brechas de addr. 404 significa que no
// hay ninguna; 401 deja al plugin fuera del escaneo.
func (p *Plugin) query(ctx context.Context, addr string) ([]string, error) {
	endpoint := p.baseURL + url.PathEscape(addr)
	if p.truncate {
		endpoint += "?truncateResponse=true"
	}
	headers := map[string]string{
		"Accept":       "application/json",
		"hibp-api-key": p.apiKey,
	}
	if ua := p.UserAgent(); ua != "" {
		headers["User-Agent"] = ua
	}

	ctx, cancel := context.WithTimeout(ctx, p.FetchTimeout())
	defer cancel()

	resp, err := p.fetcher.Fetch(ctx, endpoint, headers)
	if err != nil {
		return nil, errors.Wrapf(err, "query %s", addr)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ports.Fatal(errors.Wrapf(errors.ErrUnauthorized, "api key rejected (HTTP %d)", resp.StatusCode))
	default:
		return nil, fmt.Errorf("%s: unexpected HTTP %d for %s", pluginName, resp.StatusCode, addr)
	}

	var records []record
	if err := json.Unmarshal(resp.Body, &records); err != nil {
		return nil, errors.Wrap(err, "decode breach response")
	}

	names := make([]string, 0, len(records))
	for _, r := range records {
		name := r.Name
		if name == "" {
			name = r.Title
		}
		if name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}
