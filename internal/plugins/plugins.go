// Package plugins importa los plugins integrados para que se registren en
// el registry global.
package plugins

import (
	// Auto-registro vía init()
	_ "reconbus/internal/plugins/breach"
	_ "reconbus/internal/plugins/crtsh"
	_ "reconbus/internal/plugins/dnsbrute"
	_ "reconbus/internal/plugins/dnsrecords"
	_ "reconbus/internal/plugins/dnsresolve"
	_ "reconbus/internal/plugins/email"
	_ "reconbus/internal/plugins/netblock"
	_ "reconbus/internal/plugins/reversedns"
	_ "reconbus/internal/plugins/stordb"
	_ "reconbus/internal/plugins/storstdout"
	_ "reconbus/internal/plugins/webspider"
	_ "reconbus/internal/plugins/whois"
)
