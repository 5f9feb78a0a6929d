// internal/core/domain/event_types.go
package domain

import "strings"

// EventType es la etiqueta de tipo de descubrimiento (UPPER_SNAKE_CASE).
// El conjunto es abierto: los plugins pueden publicar tipos no listados aquí
// siempre que respeten el formato.
type EventType string

const (
	// EventTypeRoot identifica al evento raíz en suscripciones. El evento raíz
	// se publica con el tipo del objetivo; los plugins que observan ROOT lo
	// reciben igualmente.
	EventTypeRoot EventType = "ROOT"

	// EventTypeWildcard solo es válido en suscripciones, nunca en un evento.
	EventTypeWildcard EventType = "*"
)

// Tipos de objetivo
const (
	EventTypeIPAddress      EventType = "IP_ADDRESS"
	EventTypeIPv6Address    EventType = "IPV6_ADDRESS"
	EventTypeNetblockOwner  EventType = "NETBLOCK_OWNER"
	EventTypeInternetName   EventType = "INTERNET_NAME"
	EventTypeDomainName     EventType = "DOMAIN_NAME"
	EventTypeEmailAddr      EventType = "EMAILADDR"
	EventTypeHumanName      EventType = "HUMAN_NAME"
	EventTypeBGPASOwner     EventType = "BGP_AS_OWNER"
	EventTypePhoneNumber    EventType = "PHONE_NUMBER"
	EventTypeBitcoinAddress EventType = "BITCOIN_ADDRESS"
)

// Tipos derivados
const (
	EventTypeInternetNameUnresolved EventType = "INTERNET_NAME_UNRESOLVED"
	EventTypeNetblockMember         EventType = "NETBLOCK_MEMBER"
	EventTypeEmailAddrGeneric       EventType = "EMAILADDR_GENERIC"
	EventTypeEmailAddrCompromised   EventType = "EMAILADDR_COMPROMISED"
	EventTypeCoHostedSite           EventType = "CO_HOSTED_SITE"
	EventTypeCoHostedSiteDomain     EventType = "CO_HOSTED_SITE_DOMAIN"
	EventTypeAffiliateInternetName  EventType = "AFFILIATE_INTERNET_NAME"
	EventTypeAffiliateDomainName    EventType = "AFFILIATE_DOMAIN_NAME"
	EventTypeDomainNameParent       EventType = "DOMAIN_NAME_PARENT"
	EventTypeAffiliateIPAddr        EventType = "AFFILIATE_IPADDR"
	EventTypeAffiliateEmailAddr     EventType = "AFFILIATE_EMAILADDR"
	EventTypeMaliciousIPAddr        EventType = "MALICIOUS_IPADDR"
	EventTypeRawRIRData             EventType = "RAW_RIR_DATA"
	EventTypeRawDNSRecords          EventType = "RAW_DNS_RECORDS"
	EventTypeDNSText                EventType = "DNS_TEXT"
	EventTypeDNSSPF                 EventType = "DNS_SPF"
	EventTypeProviderMail           EventType = "PROVIDER_MAIL"
	EventTypeProviderDNS            EventType = "PROVIDER_DNS"
	EventTypeDomainWhois            EventType = "DOMAIN_WHOIS"
	EventTypeDomainRegistrar        EventType = "DOMAIN_REGISTRAR"
	EventTypeAffiliateDomainWhois   EventType = "AFFILIATE_DOMAIN_WHOIS"
	EventTypeCoHostedSiteWhois      EventType = "CO_HOSTED_SITE_DOMAIN_WHOIS"
	EventTypeTCPPortOpen            EventType = "TCP_PORT_OPEN"
	EventTypeSSLCertificateRaw      EventType = "SSL_CERTIFICATE_RAW"
	EventTypeTargetWebContent       EventType = "TARGET_WEB_CONTENT"
	EventTypeLinkedURLInternal      EventType = "LINKED_URL_INTERNAL"
	EventTypeLinkedURLExternal      EventType = "LINKED_URL_EXTERNAL"
	EventTypeHTTPCode               EventType = "HTTP_CODE"
	EventTypeWebAnalyticsID         EventType = "WEB_ANALYTICS_ID"
	EventTypeVulnerability          EventType = "VULNERABILITY"
	EventTypeBitcoinBalance         EventType = "BITCOIN_BALANCE"
)

// eventDescriptions es la descripción legible de los tipos conocidos.
var eventDescriptions = map[EventType]string{
	EventTypeRoot:                   "Internal Root event",
	EventTypeIPAddress:              "IP Address",
	EventTypeIPv6Address:            "IPv6 Address",
	EventTypeNetblockOwner:          "Netblock Ownership",
	EventTypeNetblockMember:         "Netblock Membership",
	EventTypeInternetName:           "Internet Name",
	EventTypeInternetNameUnresolved: "Internet Name - Unresolved",
	EventTypeDomainName:             "Domain Name",
	EventTypeDomainNameParent:       "Domain Name (Parent)",
	EventTypeEmailAddr:              "Email Address",
	EventTypeEmailAddrGeneric:       "Email Address - Generic",
	EventTypeEmailAddrCompromised:   "Hacked Email Address",
	EventTypeHumanName:              "Human Name",
	EventTypeBGPASOwner:             "BGP AS Ownership",
	EventTypePhoneNumber:            "Phone Number",
	EventTypeBitcoinAddress:         "Bitcoin Address",
	EventTypeBitcoinBalance:         "Bitcoin Balance",
	EventTypeCoHostedSite:           "Co-Hosted Site",
	EventTypeCoHostedSiteDomain:     "Co-Hosted Site - Domain Name",
	EventTypeAffiliateInternetName:  "Affiliate - Internet Name",
	EventTypeAffiliateDomainName:    "Affiliate - Domain Name",
	EventTypeAffiliateIPAddr:        "Affiliate - IP Address",
	EventTypeAffiliateEmailAddr:     "Affiliate - Email Address",
	EventTypeMaliciousIPAddr:        "Malicious IP Address",
	EventTypeRawRIRData:             "Raw Data from RIRs/APIs",
	EventTypeRawDNSRecords:          "Raw DNS Records",
	EventTypeDNSText:                "DNS TXT Record",
	EventTypeDNSSPF:                 "DNS SPF Record",
	EventTypeProviderMail:           "Email Gateway (DNS 'MX' Records)",
	EventTypeProviderDNS:            "Name Server (DNS 'NS' Records)",
	EventTypeDomainWhois:            "Domain Whois",
	EventTypeDomainRegistrar:        "Domain Registrar",
	EventTypeAffiliateDomainWhois:   "Affiliate - Domain Whois",
	EventTypeCoHostedSiteWhois:      "Co-Hosted Site - Domain Whois",
	EventTypeTCPPortOpen:            "Open TCP Port",
	EventTypeSSLCertificateRaw:      "SSL Certificate - Raw Data",
	EventTypeTargetWebContent:       "Web Content",
	EventTypeLinkedURLInternal:      "Linked URL - Internal",
	EventTypeLinkedURLExternal:      "Linked URL - External",
	EventTypeHTTPCode:               "HTTP Status Code",
	EventTypeWebAnalyticsID:         "Web Analytics",
	EventTypeVulnerability:          "Vulnerability in Public Domain",
}

// targetTypes son los tipos aceptados como semilla de un escaneo.
var targetTypes = map[EventType]bool{
	EventTypeIPAddress:      true,
	EventTypeIPv6Address:    true,
	EventTypeNetblockOwner:  true,
	EventTypeInternetName:   true,
	EventTypeDomainName:     true,
	EventTypeEmailAddr:      true,
	EventTypeHumanName:      true,
	EventTypeBGPASOwner:     true,
	EventTypePhoneNumber:    true,
	EventTypeBitcoinAddress: true,
}

// IsValid verifica el formato UPPER_SNAKE_CASE ASCII. El comodín no es válido.
func (t EventType) IsValid() bool {
	if len(t) == 0 {
		return false
	}
	for i := 0; i < len(t); i++ {
		c := t[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '_' && i > 0:
		default:
			return false
		}
	}
	return true
}

// IsKnown indica si el tipo figura en la taxonomía registrada.
func (t EventType) IsKnown() bool {
	_, ok := eventDescriptions[t]
	return ok
}

// IsTargetType indica si el tipo puede usarse como semilla.
func (t EventType) IsTargetType() bool {
	return targetTypes[t]
}

// IsAffiliate indica si el tipo describe una entidad fuera del alcance.
func (t EventType) IsAffiliate() bool {
	return strings.HasPrefix(string(t), "AFFILIATE_") || t == EventTypeCoHostedSite
}

// Description retorna la descripción del tipo o el propio tipo si es desconocido.
func (t EventType) Description() string {
	if d, ok := eventDescriptions[t]; ok {
		return d
	}
	return string(t)
}

func (t EventType) String() string {
	return string(t)
}

// KnownEventTypes retorna los tipos con descripción registrada.
func KnownEventTypes() []EventType {
	out := make([]EventType, 0, len(eventDescriptions))
	for t := range eventDescriptions {
		out = append(out, t)
	}
	return out
}

// TargetTypes retorna los tipos aceptados como semilla.
func TargetTypes() []EventType {
	return []EventType{
		EventTypeIPAddress, EventTypeIPv6Address, EventTypeNetblockOwner,
		EventTypeInternetName, EventTypeDomainName, EventTypeEmailAddr,
		EventTypeHumanName, EventTypeBGPASOwner, EventTypePhoneNumber,
		EventTypeBitcoinAddress,
	}
}
