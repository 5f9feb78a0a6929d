// Package webspider recorre los sitios web del objetivo y publica su
// contenido y sus enlaces.
package webspider

import (
	"bytes"
	"context"
	"net/url"
	"path"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"reconbus/internal/core/domain"
	"reconbus/internal/core/ports"
	"reconbus/internal/platform/errors"
	"reconbus/internal/plugins/common"
)

const pluginName = "webspider"

// Auto-registro del plugin al importar el package
func init() {
	common.Register(pluginName, func() ports.Plugin { return New() }, Metadata())
}

var (
	watched = []domain.EventType{
		domain.EventTypeInternetName,
	}
	produced = []domain.EventType{
		domain.EventTypeTargetWebContent,
		domain.EventTypeLinkedURLInternal,
		domain.EventTypeLinkedURLExternal,
		domain.EventTypeHTTPCode,
	}

	defaultFilterFiles = []string{
		".png", ".gif", ".jpg", ".jpeg", ".tiff", ".tif", ".ico", ".svg",
		".mp3", ".mp4", ".flv", ".pdf", ".zip", ".gz", ".tar", ".woff", ".ttf",
	}
)

// Metadata describe el plugin.
func Metadata() ports.PluginMetadata {
	return ports.PluginMetadata{
		Name:        pluginName,
		Description: "Spiders web pages of the target to extract content and links",
		Mode:        domain.PluginModeActive,
		Priority:    40,
		DefaultOptions: ports.Options{
			"start":       "https://,http://",
			"maxpages":    20,
			"maxlevels":   3,
			"filterfiles": strings.Join(defaultFilterFiles, ","),
		},
		OptionDescriptions: map[string]string{
			"start":       "URL prefixes tried, in order, to reach a host",
			"maxpages":    "Maximum pages fetched per host",
			"maxlevels":   "Maximum link depth followed from the start page",
			"filterfiles": "File extensions that are reported but never fetched",
		},
		Watched:  watched,
		Produced: produced,
	}
}

// Plugin descarga páginas vía ports.Fetcher.
type Plugin struct {
	common.Base
	fetcher   ports.Fetcher
	prefixes  []string
	maxPages  int
	maxLevels int
	filter    []string

	// urlEvents asocia cada URL publicada con su evento
	urlEvents map[string]*domain.Event
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
	p.prefixes = p.Slice("start", []string{"https://", "http://"})
	p.maxPages = p.Int("maxpages", 20)
	p.maxLevels = p.Int("maxlevels", 3)
	p.filter = p.Slice("filterfiles", defaultFilterFiles)
	p.urlEvents = make(map[string]*domain.Event)
	return nil
}

func (p *Plugin) WatchedEvents() ports.Subscription  { return ports.Watch(watched...) }
func (p *Plugin) ProducedEvents() []domain.EventType { return produced }

func (p *Plugin) HandleEvent(ctx context.Context, ev *domain.Event) error {
	host := strings.ToLower(ev.Data())
	if !p.Target().InScope(host) || !p.First("host:"+host) {
		return nil
	}

	start, resp := p.reach(ctx, host)
	if resp == nil {
		p.Logger().Debug("host not reachable over http", "host", host)
		return nil
	}
	if _, err := p.linkEvent(domain.EventTypeLinkedURLInternal, start, ev); err != nil {
		return err
	}
	return p.spider(ctx, start, resp)
}

// reach prueba los prefijos configurados y retorna la primera URL que
// responde sin error.
func (p *Plugin) reach(ctx context.Context, host string) (string, *ports.FetchResponse) {
	for _, prefix := range p.prefixes {
		if p.Stopped() {
			return "", nil
		}
		start := prefix + host + "/"
		resp, err := p.fetch(ctx, start)
		if err != nil {
			p.Logger().Debug("fetch failed", "url", start, "error", err.Error())
			continue
		}
		if resp.StatusCode > 0 && resp.StatusCode < 400 {
			return start, resp
		}
	}
	return "", nil
}

// spider recorre el sitio en anchura desde start, cuya respuesta ya se
// obtuvo, respetando maxpages y maxlevels.
func (p *Plugin) spider(ctx context.Context, start string, first *ports.FetchResponse) error {
	fetched := map[string]bool{start: true}
	level := []string{start}
	pages := 0

	for depth := 0; depth < p.maxLevels && len(level) > 0; depth++ {
		var next []string
		for _, pageURL := range level {
			if p.Stopped() || pages >= p.maxPages {
				return nil
			}

			resp := first
			if pageURL != start {
				var err error
				if resp, err = p.fetch(ctx, pageURL); err != nil {
					p.Logger().Debug("fetch failed", "url", pageURL, "error", err.Error())
					continue
				}
			}
			pages++

			links, err := p.processPage(pageURL, resp)
			if err != nil {
				return err
			}
			for _, link := range links {
				if !fetched[link] && !p.filtered(link) {
					fetched[link] = true
					next = append(next, link)
				}
			}
		}
		level = next
	}
	return nil
}

// processPage publica el código y el contenido de la página y sus enlaces.
// Retorna los enlaces internos a seguir.
func (p *Plugin) processPage(pageURL string, resp *ports.FetchResponse) ([]string, error) {
	source := p.urlEvents[pageURL]

	if _, err := p.Emit(domain.EventTypeHTTPCode, strconv.Itoa(resp.StatusCode), source); err != nil {
		return nil, err
	}
	if len(resp.Body) == 0 {
		return nil, nil
	}
	if _, err := p.Emit(domain.EventTypeTargetWebContent, string(resp.Body), source); err != nil {
		return nil, err
	}

	var internal []string
	for _, link := range ExtractLinks(pageURL, resp.Body) {
		u, err := url.Parse(link)
		if err != nil {
			continue
		}
		t := domain.EventTypeLinkedURLExternal
		if p.Target().InScope(u.Hostname()) {
			t = domain.EventTypeLinkedURLInternal
			internal = append(internal, link)
		}
		if _, err := p.linkEvent(t, link, source); err != nil {
			return nil, err
		}
	}
	return internal, nil
}

// linkEvent publica la URL una sola vez y recuerda su evento.
func (p *Plugin) linkEvent(t domain.EventType, link string, source *domain.Event) (*domain.Event, error) {
	if ev, ok := p.urlEvents[link]; ok {
		return ev, nil
	}
	ev, err := p.Emit(t, link, source)
	if err != nil {
		return nil, err
	}
	p.urlEvents[link] = ev
	return ev, nil
}

func (p *Plugin) fetch(ctx context.Context, target string) (*ports.FetchResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, p.FetchTimeout())
	defer cancel()

	var headers map[string]string
	if ua := p.UserAgent(); ua != "" {
		headers = map[string]string{"User-Agent": ua}
	}
	return p.fetcher.Fetch(ctx, target, headers)
}

func (p *Plugin) filtered(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return true
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if ext == "" {
		return false
	}
	for _, f := range p.filter {
		if strings.EqualFold(ext, f) {
			return true
		}
	}
	return false
}

// ExtractLinks retorna los enlaces http(s) absolutos de body (atributos
// href y src) resueltos contra base, sin fragmento y sin repetir.
func ExtractLinks(base string, body []byte) []string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil
	}

	var out []string
	seen := map[string]bool{base: true}
	z := html.NewTokenizer(bytes.NewReader(body))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return out
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		_, hasAttr := z.TagName()
		for hasAttr {
			var key, val []byte
			key, val, hasAttr = z.TagAttr()
			if k := string(key); k == "href" || k == "src" {
				if link, ok := resolve(baseURL, string(val)); ok && !seen[link] {
					seen[link] = true
					out = append(out, link)
				}
			}
		}
	}
}

func resolve(base *url.URL, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") {
		return "", false
	}
	u, err := base.Parse(ref)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", false
	}
	u.Fragment = ""
	return u.String(), true
}
