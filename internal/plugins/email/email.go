// Package email extrae direcciones de correo del contenido obtenido.
package email

import (
	"context"
	"regexp"
	"strings"

	"reconbus/internal/core/domain"
	"reconbus/internal/core/ports"
	"reconbus/internal/platform/validator"
	"reconbus/internal/plugins/common"
)

const pluginName = "email"

// Auto-registro del plugin al importar el package
func init() {
	common.Register(pluginName, func() ports.Plugin { return New() }, Metadata())
}

var (
	watched = []domain.EventType{
		domain.EventTypeTargetWebContent,
		domain.EventTypeDomainWhois,
		domain.EventTypeRawRIRData,
		domain.EventTypeRawDNSRecords,
	}
	produced = []domain.EventType{
		domain.EventTypeEmailAddr,
		domain.EventTypeEmailAddrGeneric,
		domain.EventTypeAffiliateEmailAddr,
	}

	emailPattern = regexp.MustCompile(`[%a-zA-Z0-9._+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z0-9.\-]+`)
)

// defaultGeneric son partes locales de buzones de rol, no de personas.
var defaultGeneric = []string{
	"abuse", "admin", "administrator", "billing", "compliance", "contact",
	"devnull", "dns", "ftp", "help", "hostmaster", "info", "inoc",
	"ispfeedback", "ispsupport", "list", "list-request", "mailer-daemon",
	"maildaemon", "marketing", "media", "noc", "no-reply", "noreply",
	"null", "office", "peering", "phish", "phishing", "postmaster",
	"press", "privacy", "registrar", "registry", "root", "sales",
	"security", "spam", "support", "sysadmin", "tech", "unsubscribe",
	"usenet", "uucp", "webmaster", "www",
}

// Metadata describe el plugin.
func Metadata() ports.PluginMetadata {
	return ports.PluginMetadata{
		Name:        pluginName,
		Description: "Identifies e-mail addresses in any obtained data",
		Mode:        domain.PluginModePassive,
		Priority:    30,
		DefaultOptions: ports.Options{
			"affiliates": true,
			"generic":    strings.Join(defaultGeneric, ","),
		},
		OptionDescriptions: map[string]string{
			"affiliates": "Report addresses on external domains as AFFILIATE_EMAILADDR",
			"generic":    "Local parts reported as EMAILADDR_GENERIC, comma separated",
		},
		Watched:  watched,
		Produced: produced,
	}
}

// Plugin clasifica las direcciones halladas según su dominio y parte local.
type Plugin struct {
	common.Base
	affiliates bool
	generic    map[string]bool
}

func New() *Plugin {
	return &Plugin{Base: common.NewBase(pluginName)}
}

func (p *Plugin) Setup(fw ports.Framework, opts ports.Options) error {
	p.Init(fw, opts)
	p.affiliates = p.Bool("affiliates", true)
	p.generic = make(map[string]bool)
	for _, local := range p.Slice("generic", defaultGeneric) {
		p.generic[strings.ToLower(local)] = true
	}
	return nil
}

func (p *Plugin) WatchedEvents() ports.Subscription  { return ports.Watch(watched...) }
func (p *Plugin) ProducedEvents() []domain.EventType { return produced }

func (p *Plugin) HandleEvent(_ context.Context, ev *domain.Event) error {
	for _, addr := range Extract(ev.Data()) {
		if p.Stopped() {
			return nil
		}
		t, ok := p.classify(addr)
		if !ok {
			continue
		}
		if _, err := p.EmitOnce(t, addr, ev); err != nil {
			return err
		}
	}
	return nil
}

func (p *Plugin) classify(addr string) (domain.EventType, bool) {
	at := strings.LastIndex(addr, "@")
	local, mailDomain := strings.ToLower(addr[:at]), addr[at+1:]

	if !p.Target().InScope(mailDomain) {
		if !p.affiliates {
			p.Logger().Debug("ignoring address on an external domain", "email", addr)
			return "", false
		}
		return domain.EventTypeAffiliateEmailAddr, true
	}
	if p.generic[local] {
		return domain.EventTypeEmailAddrGeneric, true
	}
	return domain.EventTypeEmailAddr, true
}

// Extract retorna las direcciones válidas de text, normalizadas y sin
// repetir, en orden de aparición.
func Extract(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, match := range emailPattern.FindAllString(text, -1) {
		if len(match) < 4 || strings.Contains(match, "%") {
			continue
		}
		addr := validator.NormalizeEmail(strings.Trim(match, "."))
		if !validator.IsEmail(addr) || seen[strings.ToLower(addr)] {
			continue
		}
		seen[strings.ToLower(addr)] = true
		out = append(out, addr)
	}
	return out
}
