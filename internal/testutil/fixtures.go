// internal/testutil/fixtures.go
package testutil

// Fixture data para tests (valores primitivos solamente, sin dependencias de domain)

// FixtureHostnames contiene nombres de host válidos.
var FixtureHostnames = []string{
	"example.com",
	"www.example.com",
	"mail.example.com",
	"api.test.example.com",
}

// FixtureInvalidHostnames contiene nombres inválidos.
var FixtureInvalidHostnames = []string{
	"",
	"not a host",
	"192.168.1.1",
	"-invalid.com",
	"invalid-.com",
	"example..com",
}

// FixtureIPs contiene IPs de prueba (rangos de documentación RFC 5737).
var FixtureIPs = []string{
	"192.0.2.10",
	"198.51.100.7",
	"203.0.113.42",
}

// FixtureHTML es una página con enlaces y correos para los plugins web.
const FixtureHTML = `<!doctype html>
<html>
<head><title>Example Domain</title></head>
<body>
  <p>Contact <a href="mailto:sales@example.com">sales@example.com</a> or info@example.com.</p>
  <p>Partner: jane.doe@partner.org</p>
  <a href="/about">About</a>
  <a href="https://www.example.com/careers">Careers</a>
  <a href="https://cdn.other.net/lib.js">CDN</a>
  <a href="#top">Top</a>
</body>
</html>`

// FixtureWhois es una respuesta WHOIS abreviada.
const FixtureWhois = `Domain Name: EXAMPLE.COM
Registry Domain ID: 2336799_DOMAIN_COM-VRSN
Registrar: RESERVED-Internet Assigned Numbers Authority
Creation Date: 1995-08-14T04:00:00Z
Registry Expiry Date: 2025-08-13T04:00:00Z
Name Server: A.IANA-SERVERS.NET
Name Server: B.IANA-SERVERS.NET
Registrant Email: hostmaster@example.com
`
