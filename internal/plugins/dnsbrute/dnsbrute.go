// Package dnsbrute descubre subdominios del objetivo probando nombres
// comunes contra el resolver.
package dnsbrute

import (
	"bufio"
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"reconbus/internal/core/domain"
	"reconbus/internal/core/ports"
	"reconbus/internal/platform/errors"
	"reconbus/internal/platform/validator"
	"reconbus/internal/platform/workerpool"
	"reconbus/internal/plugins/common"
)

const pluginName = "dnsbrute"

// Auto-registro del plugin al importar el package
func init() {
	common.Register(pluginName, func() ports.Plugin { return New() }, Metadata())
}

var (
	watched = []domain.EventType{
		domain.EventTypeInternetName,
	}
	produced = []domain.EventType{
		domain.EventTypeInternetName,
	}

	defaultWords = []string{
		"www", "mail", "webmail", "smtp", "pop", "imap", "mx", "ns1", "ns2",
		"dns", "ftp", "vpn", "remote", "portal", "admin", "api", "dev",
		"test", "staging", "beta", "app", "apps", "blog", "shop", "store",
		"m", "mobile", "cdn", "static", "assets", "img", "media", "docs",
		"support", "help", "status", "git", "gitlab", "jenkins", "ci",
		"intranet", "extranet", "owa", "exchange", "autodiscover", "sso",
		"auth", "login", "id", "cloud", "backup", "db", "sql", "monitor",
	}

	// sufijos numéricos probados sobre cada etiqueta hallada
	numberPrefixes = []string{"", "0", "00", "-", "-0", "-00"}
)

// Metadata describe el plugin.
func Metadata() ports.PluginMetadata {
	return ports.PluginMetadata{
		Name:        pluginName,
		Description: "Attempts to identify hostnames through brute-forcing common names",
		Mode:        domain.PluginModeActive,
		Priority:    60,
		DefaultOptions: ports.Options{
			"words":        strings.Join(defaultWords, ","),
			"wordlist":     "",
			"maxthreads":   20,
			"numbersuffix": true,
			"maxsuffix":    3,
		},
		OptionDescriptions: map[string]string{
			"words":        "Labels tried under the target domain, comma separated",
			"wordlist":     "File with one additional label per line",
			"maxthreads":   "Concurrent lookups",
			"numbersuffix": "For hosts found by other plugins, try numeric suffixes such as www1 and www-01",
			"maxsuffix":    "Highest number appended by numbersuffix",
		},
		Watched:  watched,
		Produced: produced,
	}
}

// Plugin resuelve candidatos en paralelo y publica los que existen.
type Plugin struct {
	common.Base
	resolver     ports.Resolver
	words        []string
	workers      int
	numberSuffix bool
	maxSuffix    int

	// probe genera la etiqueta aleatoria usada para detectar comodines DNS
	probe func() string
}

func New() *Plugin {
	return &Plugin{
		Base:  common.NewBase(pluginName),
		probe: uuid.NewString,
	}
}

func (p *Plugin) Setup(fw ports.Framework, opts ports.Options) error {
	p.Init(fw, opts)
	p.resolver = fw.Services().Resolver
	if p.resolver == nil {
		return errors.Wrap(errors.ErrServiceUnavailable, "dns resolver not configured")
	}
	p.workers = p.Int("maxthreads", 20)
	p.numberSuffix = p.Bool("numbersuffix", true)
	p.maxSuffix = p.Int("maxsuffix", 3)

	words := p.Slice("words", defaultWords)
	if path := p.String("wordlist", ""); path != "" {
		extra, err := readWordlist(path)
		if err != nil {
			return errors.Wrapf(err, "read wordlist %s", path)
		}
		words = append(words, extra...)
	}
	p.words = uniqueLabels(words)
	return nil
}

func (p *Plugin) WatchedEvents() ports.Subscription  { return ports.Watch(watched...) }
func (p *Plugin) ProducedEvents() []domain.EventType { return produced }

// Start prueba la lista de palabras bajo el dominio semilla. Las consultas
// terminan antes de retornar.
func (p *Plugin) Start(ctx context.Context) error {
	target := p.Target()
	switch target.Type() {
	case domain.EventTypeInternetName, domain.EventTypeDomainName:
	default:
		return nil
	}
	base := validator.NormalizeHostname(target.Value())
	root := p.Framework().RootEvent()

	candidates := make([]string, 0, len(p.words))
	for _, w := range p.words {
		candidates = append(candidates, w+"."+base)
	}
	return p.brute(ctx, base, candidates, root)
}

// HandleEvent prueba sufijos numéricos sobre hosts hallados por otros plugins.
func (p *Plugin) HandleEvent(ctx context.Context, ev *domain.Event) error {
	if !p.numberSuffix || ev.IsRoot() || ev.Module() == pluginName {
		return nil
	}
	host := validator.NormalizeHostname(ev.Data())
	if !p.Target().InScope(host) || p.Target().Matches(host, false, false) {
		return nil
	}
	if !p.First("suffix:" + host) {
		return nil
	}

	label, parent, ok := strings.Cut(host, ".")
	if !ok || parent == "" {
		return nil
	}
	var candidates []string
	for n := 1; n <= p.maxSuffix; n++ {
		for _, prefix := range numberPrefixes {
			candidates = append(candidates, label+prefix+strconv.Itoa(n)+"."+parent)
		}
	}
	return p.brute(ctx, parent, candidates, ev)
}

// brute resuelve los candidatos en el pool y publica, desde la goroutine
// llamadora y en el orden de entrada, los que resuelven fuera del comodín.
func (p *Plugin) brute(ctx context.Context, parent string, candidates []string, source *domain.Event) error {
	wildcard := p.wildcardAddrs(ctx, parent)

	results, stats := workerpool.Map(ctx, workerpool.Config{
		Workers: p.workers,
		Stop:    p.Stopped,
		Logger:  p.Logger(),
	}, candidates, p.resolver.LookupHost)

	found := 0
	for _, r := range results {
		if r.Skipped || r.Err != nil || len(r.Value) == 0 {
			continue
		}
		if wildcard != nil && allIn(r.Value, wildcard) {
			continue
		}
		ev, err := p.EmitOnce(domain.EventTypeInternetName, r.Item, source)
		if err != nil {
			return err
		}
		if ev != nil {
			found++
		}
	}

	p.Logger().Debug("brute force finished",
		"parent", parent,
		"candidates", len(candidates),
		"found", found,
		"skipped", stats.Skipped,
	)
	return nil
}

// wildcardAddrs retorna las direcciones a las que resuelve un nombre
// aleatorio bajo parent, o nil si parent no tiene comodín.
func (p *Plugin) wildcardAddrs(ctx context.Context, parent string) map[string]bool {
	if cached, ok := p.Framework().TempStorage().Get("wildcard:" + parent); ok {
		addrs, _ := cached.(map[string]bool)
		return addrs
	}

	var addrs map[string]bool
	if values, err := p.resolver.LookupHost(ctx, p.probe()+"."+parent); err == nil && len(values) > 0 {
		p.Logger().Info("wildcard DNS detected", "domain", parent, "addresses", strings.Join(values, ","))
		addrs = make(map[string]bool, len(values))
		for _, v := range values {
			addrs[v] = true
		}
	}
	p.Framework().TempStorage().Set("wildcard:"+parent, addrs)
	return addrs
}

func allIn(values []string, set map[string]bool) bool {
	for _, v := range values {
		if !set[v] {
			return false
		}
	}
	return true
}

func uniqueLabels(words []string) []string {
	seen := make(map[string]bool, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.Trim(strings.ToLower(strings.TrimSpace(w)), ".")
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

func readWordlist(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var words []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			words = append(words, line)
		}
	}
	return words, scanner.Err()
}
