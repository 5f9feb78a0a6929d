// internal/platform/validator/validator.go
package validator

import (
	"net/netip"
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

var (
	hostnameRegex = regexp.MustCompile(`^([a-z0-9_]([a-z0-9_\-]{0,61}[a-z0-9_])?\.)*[a-z0-9]([a-z0-9\-]{0,61}[a-z0-9])?$`)
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	phoneRegex    = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
	asnRegex      = regexp.MustCompile(`^[0-9]{1,10}$`)
	bitcoinRegex  = regexp.MustCompile(`^([13][a-km-zA-HJ-NP-Z1-9]{25,34}|bc1[ac-hj-np-z02-9]{11,71})$`)
)

// reservedLabels son nombres de una sola etiqueta aceptados como hostname.
var reservedLabels = map[string]bool{
	"localhost":   true,
	"localdomain": true,
	"local":       true,
	"internal":    true,
	"intranet":    true,
	"lan":         true,
	"home":        true,
	"corp":        true,
}

// Hostname validators

// IsHostname verifica si un string es un hostname válido.
// Exige al menos un punto salvo para etiquetas reservadas como "localhost".
func IsHostname(host string) bool {
	host = NormalizeHostname(host)
	if len(host) == 0 || len(host) > 253 {
		return false
	}
	if !hostnameRegex.MatchString(host) {
		return false
	}
	if IsIP(host) {
		return false
	}
	if !strings.Contains(host, ".") {
		return reservedLabels[host]
	}
	return true
}

// IsSubdomain verifica si subdomain es un subdominio estricto de baseDomain.
func IsSubdomain(subdomain, baseDomain string) bool {
	subdomain = NormalizeHostname(subdomain)
	baseDomain = NormalizeHostname(baseDomain)
	if subdomain == baseDomain || baseDomain == "" {
		return false
	}
	return strings.HasSuffix(subdomain, "."+baseDomain)
}

// NormalizeHostname pasa a minúsculas y elimina el punto final.
func NormalizeHostname(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	return strings.TrimSuffix(host, ".")
}

// Email validators

// IsEmail valida formato de email (RFC 5322 simplificado).
func IsEmail(email string) bool {
	if len(email) == 0 || len(email) > 254 {
		return false
	}
	return emailRegex.MatchString(strings.TrimSpace(email))
}

// NormalizeEmail conserva la parte local y pasa el dominio a minúsculas.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at+1] + NormalizeHostname(email[at+1:])
}

// EmailDomain retorna el dominio de un email normalizado, o "" si no tiene.
func EmailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return NormalizeHostname(email[at+1:])
}

// Network validators

// IsIP verifica si un string es una dirección IP válida (v4 o v6).
func IsIP(ip string) bool {
	_, err := netip.ParseAddr(strings.TrimSpace(ip))
	return err == nil
}

// IsIPv4 verifica si un string es una dirección IPv4 válida.
func IsIPv4(ip string) bool {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	return err == nil && addr.Is4()
}

// IsIPv6 verifica si un string es una dirección IPv6 válida.
func IsIPv6(ip string) bool {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	return err == nil && !addr.Is4() && !addr.Is4In6()
}

// NormalizeIP normaliza una IP a su forma canónica (IPv6 comprimida).
// Si la IP es inválida, retorna string vacío.
func NormalizeIP(ip string) string {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return ""
	}
	return addr.Unmap().String()
}

// IsCIDR verifica si un string es un bloque CIDR válido.
func IsCIDR(cidr string) bool {
	_, err := netip.ParsePrefix(strings.TrimSpace(cidr))
	return err == nil
}

// NormalizeCIDR retorna el bloque enmascarado ("192.0.2.7/24" -> "192.0.2.0/24").
func NormalizeCIDR(cidr string) string {
	p, err := netip.ParsePrefix(strings.TrimSpace(cidr))
	if err != nil {
		return ""
	}
	return p.Masked().String()
}

// Identity validators

// NormalizePhone elimina separadores habituales conservando el '+' inicial.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(phone) {
		switch {
		case r == '+' && i == 0:
			b.WriteRune(r)
		case unicode.IsDigit(r):
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
		default:
			// caracter no permitido: se conserva para que la validación falle
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsPhone valida un número tras normalizarlo.
func IsPhone(phone string) bool {
	return phoneRegex.MatchString(NormalizePhone(phone))
}

// NormalizeASN elimina el prefijo "AS".
func NormalizeASN(asn string) string {
	asn = strings.ToUpper(strings.TrimSpace(asn))
	return strings.TrimPrefix(asn, "AS")
}

// IsASN valida un número de sistema autónomo, con o sin prefijo.
func IsASN(asn string) bool {
	return asnRegex.MatchString(NormalizeASN(asn))
}

// IsBitcoinAddress valida direcciones base58 (1..., 3...) y bech32 (bc1...).
func IsBitcoinAddress(addr string) bool {
	return bitcoinRegex.MatchString(strings.TrimSpace(addr))
}

// IsHumanName exige al menos una letra.
func IsHumanName(name string) bool {
	for _, r := range name {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// NormalizeHumanName colapsa espacios repetidos.
func NormalizeHumanName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// URL validators

// IsURL verifica si un string es una URL válida.
func IsURL(urlStr string) bool {
	if len(urlStr) == 0 {
		return false
	}
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return false
	}
	return parsed.Scheme != "" && parsed.Host != ""
}

// URLHost retorna el hostname normalizado de una URL, o "" si no es válida.
func URLHost(urlStr string) string {
	parsed, err := url.Parse(strings.TrimSpace(urlStr))
	if err != nil {
		return ""
	}
	return NormalizeHostname(parsed.Hostname())
}

// Generic validators

// IsEmpty verifica si un string está vacío o solo contiene espacios.
func IsEmpty(s string) bool {
	return len(strings.TrimSpace(s)) == 0
}

// Truncate corta s a max bytes sin partir runas. max <= 0 no trunca.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func utf8RuneStart(b byte) bool { return b&0xC0 != 0x80 }
