// internal/core/domain/target.go
package domain

import (
	"fmt"
	"net/netip"
	"strings"
	"sync"

	"reconbus/internal/platform/validator"
)

// Alias es un valor equivalente al objetivo aprendido durante el escaneo.
type Alias struct {
	Type  EventType
	Value string
}

// Target representa la semilla de un escaneo y sus alias. Los alias crecen de
// forma monótona; Target es seguro para uso concurrente.
type Target struct {
	value      string
	targetType EventType
	prefix     netip.Prefix // solo para NETBLOCK_OWNER

	mu      sync.RWMutex
	aliases []Alias
}

// NewTarget valida y canonicaliza la semilla según su tipo.
func NewTarget(value string, targetType EventType) (*Target, error) {
	if !targetType.IsTargetType() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedTarget, targetType)
	}
	if validator.IsEmpty(value) {
		return nil, fmt.Errorf("%w: empty %s", ErrInvalidTarget, targetType)
	}

	canonical, ok := Canonicalize(targetType, value)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a valid %s", ErrInvalidTarget, value, targetType)
	}

	t := &Target{value: canonical, targetType: targetType}
	if targetType == EventTypeNetblockOwner {
		t.prefix = netip.MustParsePrefix(canonical)
	}
	return t, nil
}

// Canonicalize retorna la forma canónica de value para el tipo dado y si es válido.
// Tipos sin regla de validación se recortan y se aceptan si no están vacíos.
func Canonicalize(t EventType, value string) (string, bool) {
	value = strings.TrimSpace(value)
	switch t {
	case EventTypeIPAddress:
		if !validator.IsIPv4(value) {
			return "", false
		}
		return validator.NormalizeIP(value), true
	case EventTypeIPv6Address:
		if !validator.IsIPv6(value) {
			return "", false
		}
		return validator.NormalizeIP(value), true
	case EventTypeNetblockOwner, EventTypeNetblockMember:
		c := validator.NormalizeCIDR(value)
		return c, c != ""
	case EventTypeInternetName, EventTypeDomainName, EventTypeInternetNameUnresolved,
		EventTypeAffiliateInternetName, EventTypeAffiliateDomainName, EventTypeCoHostedSite:
		if !validator.IsHostname(value) {
			return "", false
		}
		return validator.NormalizeHostname(value), true
	case EventTypeEmailAddr, EventTypeEmailAddrGeneric, EventTypeAffiliateEmailAddr:
		if !validator.IsEmail(value) {
			return "", false
		}
		return validator.NormalizeEmail(value), true
	case EventTypePhoneNumber:
		if !validator.IsPhone(value) {
			return "", false
		}
		return validator.NormalizePhone(value), true
	case EventTypeBGPASOwner:
		if !validator.IsASN(value) {
			return "", false
		}
		return validator.NormalizeASN(value), true
	case EventTypeBitcoinAddress:
		return value, validator.IsBitcoinAddress(value)
	case EventTypeHumanName:
		return validator.NormalizeHumanName(value), validator.IsHumanName(value)
	default:
		return value, value != ""
	}
}

// DetectTargetType deduce el tipo de semilla a partir de su forma. Los
// nombres de persona se escriben entre comillas dobles y los teléfonos con
// prefijo '+'. Retorna false si el valor no encaja en ningún tipo.
func DetectTargetType(value string) (EventType, bool) {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		return "", false
	case validator.IsIPv4(value):
		return EventTypeIPAddress, true
	case validator.IsIPv6(value):
		return EventTypeIPv6Address, true
	case strings.Contains(value, "/") && validator.IsCIDR(value):
		return EventTypeNetblockOwner, true
	case validator.IsEmail(value):
		return EventTypeEmailAddr, true
	case strings.HasPrefix(value, "+") && validator.IsPhone(value):
		return EventTypePhoneNumber, true
	case len(value) > 2 && strings.HasPrefix(value, "\"") && strings.HasSuffix(value, "\""):
		return EventTypeHumanName, true
	case validator.IsASN(value):
		return EventTypeBGPASOwner, true
	case validator.IsBitcoinAddress(value):
		return EventTypeBitcoinAddress, true
	case validator.IsHostname(value):
		return EventTypeInternetName, true
	default:
		return "", false
	}
}

func (t *Target) Value() string   { return t.value }
func (t *Target) Type() EventType { return t.targetType }

func (t *Target) String() string {
	return fmt.Sprintf("%s:%s", t.targetType, t.value)
}

// AddAlias registra un valor equivalente. Los valores se guardan en minúsculas
// y sin duplicados por (tipo, valor). Retorna true si el alias es nuevo.
func (t *Target) AddAlias(aliasType EventType, value string) bool {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" || !aliasType.IsValid() {
		return false
	}
	switch aliasType {
	case EventTypeIPAddress, EventTypeIPv6Address:
		if value = validator.NormalizeIP(value); value == "" {
			return false
		}
	case EventTypeNetblockOwner:
		if value = validator.NormalizeCIDR(value); value == "" {
			return false
		}
	case EventTypeInternetName, EventTypeDomainName:
		value = validator.NormalizeHostname(value)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, a := range t.aliases {
		if a.Type == aliasType && a.Value == value {
			return false
		}
	}
	t.aliases = append(t.aliases, Alias{Type: aliasType, Value: value})
	return true
}

// Aliases retorna una copia de los alias registrados en orden de llegada.
func (t *Target) Aliases() []Alias {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Alias, len(t.aliases))
	copy(out, t.aliases)
	return out
}

func (t *Target) equivalents(types ...EventType) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []string
	for _, a := range t.aliases {
		for _, typ := range types {
			if a.Type == typ {
				out = append(out, a.Value)
				break
			}
		}
	}
	return out
}

// Names retorna los nombres de host asociados: la semilla si es un nombre y
// los alias INTERNET_NAME / DOMAIN_NAME.
func (t *Target) Names() []string {
	names := t.equivalents(EventTypeInternetName, EventTypeDomainName)
	if t.targetType == EventTypeInternetName || t.targetType == EventTypeDomainName {
		names = appendUnique(names, t.value)
	}
	return names
}

// Addresses retorna las direcciones IP asociadas: la semilla si es una IP y
// los alias IP_ADDRESS / IPV6_ADDRESS.
func (t *Target) Addresses() []string {
	addrs := t.equivalents(EventTypeIPAddress, EventTypeIPv6Address)
	if t.targetType == EventTypeIPAddress || t.targetType == EventTypeIPv6Address {
		addrs = appendUnique(addrs, t.value)
	}
	return addrs
}

// InScope equivale a Matches(value, true, false).
func (t *Target) InScope(value string) bool {
	return t.Matches(value, true, false)
}

// Matches indica si value pertenece al alcance del objetivo.
//
// IPs: coincidencia exacta con la semilla o un alias IP, o contención en el
// bloque semilla o en un alias NETBLOCK_OWNER. Nombres: igualdad con algún
// nombre del objetivo; includeChildren acepta subdominios y includeParents
// acepta ancestros. Otros tipos: coincidencia canónica exacta o alias.
// Nunca falla: entradas no reconocidas retornan false.
func (t *Target) Matches(value string, includeChildren, includeParents bool) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}

	if addr, err := netip.ParseAddr(value); err == nil {
		return t.matchesAddr(addr.Unmap())
	}

	lower := strings.ToLower(value)
	if t.hasAliasValue(lower) {
		return true
	}

	switch t.targetType {
	case EventTypeEmailAddr, EventTypeHumanName, EventTypePhoneNumber,
		EventTypeBGPASOwner, EventTypeBitcoinAddress:
		if canonical, ok := Canonicalize(t.targetType, value); ok && strings.EqualFold(canonical, t.value) {
			return true
		}
	}

	name := validator.NormalizeHostname(lower)
	for _, n := range t.Names() {
		if name == n {
			return true
		}
		if includeParents && strings.HasSuffix(n, "."+name) {
			return true
		}
		if includeChildren && strings.HasSuffix(name, "."+n) {
			return true
		}
	}
	return false
}

func (t *Target) matchesAddr(addr netip.Addr) bool {
	canonical := addr.String()
	for _, a := range t.Addresses() {
		if a == canonical {
			return true
		}
	}
	if t.targetType == EventTypeNetblockOwner && t.prefix.Contains(addr) {
		return true
	}
	for _, block := range t.equivalents(EventTypeNetblockOwner) {
		if p, err := netip.ParsePrefix(block); err == nil && p.Contains(addr) {
			return true
		}
	}
	return false
}

func (t *Target) hasAliasValue(lower string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, a := range t.aliases {
		if a.Value == lower {
			return true
		}
	}
	return false
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}
