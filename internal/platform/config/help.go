// internal/platform/config/help.go
package config

import (
	"fmt"
	"io"
	"runtime"
	"sort"
	"strings"

	"reconbus/internal/core/ports"
)

const helpText = `
reconbus - OSINT plugin orchestration engine

USAGE:
  reconbus -t <seed> [options]
  reconbus <seed> [options]

SCAN OPTIONS:
  -t, --target string      Scan seed (domain, IP, netblock, email, ASN, phone, "Full Name", ...)
  -y, --type string        Seed type, e.g. INTERNET_NAME, IP_ADDRESS (detected when empty)
  -m, --modules list       Plugins to load, comma separated (default: all passive collectors)
  -f, --filter list        Only publish these event types, e.g. IP_ADDRESS,EMAILADDR
  -T, --timeout int        Scan timeout in seconds, 0=no timeout (default: 0)
      --mode string        passive or active (default: passive)
      --id string          Scan ID (default: random UUID)
      --log-level string   debug, info, warn or error (default: info)
  -c, --config string      YAML config file

PLUGIN OPTIONS:
  --opt plugin:key=value   Plugin scoped option (repeatable)
  --opt _key=value         Global option seen by every plugin (repeatable)

  Globals: _fetchtimeout (seconds), _useragent, _maxthreads

STORAGE:
      --db string          SQLite database path (default: reconbus_out/reconbus.db)
      --no-db              Do not persist events

CONSOLE:
  -s, --stdout             Print events as they are found
      --format string      tab, csv or json (default: tab)
      --datasize int       Truncate printed data to N characters (default: 100)
      --show-source        Print the source event data

NETWORK:
      --dns list           DNS servers, host[:port] (default: /etc/resolv.conf)
      --dns-timeout int    DNS timeout in seconds (default: 5)
      --http-timeout int   HTTP timeout in seconds (default: 15)
      --http-retries int   Retries on 429/502/503/504 (default: 2)
      --rate-limit float   HTTP requests per second, 0=unlimited
      --user-agent string  HTTP User-Agent

OUTPUT:
  -o, --out string         Directory for the JSON report (default: reconbus_out)
      --no-json            Do not write the JSON report
  -q, --quiet              Disable the terminal UI

INFO:
  -l, --list               List available plugins and exit
  -v, --version            Print version information and exit
  -h, --help               Show this help message

EXAMPLES:
  Resolve and crawl a domain:
    reconbus -t example.com -m dnsresolve,webspider,email

  Reverse DNS over a netblock, capped:
    reconbus -t 192.0.2.0/24 -m netblock,reversedns --opt reversedns:maxcohost=10

  Breach lookup for an address:
    reconbus -t foo@example.com -m breach --opt breach:api_key=KEY

  Print only IPs while scanning:
    reconbus -t example.com -s -f IP_ADDRESS,IPV6_ADDRESS

ENVIRONMENT VARIABLES:
  RECONBUS_CONFIG             YAML config file
  RECONBUS_TARGET             Scan seed
  RECONBUS_TARGET_TYPE        Seed type
  RECONBUS_PLUGINS            Plugins, comma separated
  RECONBUS_FILTER             Output filter, comma separated
  RECONBUS_TIMEOUT            Scan timeout in seconds
  RECONBUS_LOG_LEVEL          Log level
  RECONBUS_MODE               passive or active
  RECONBUS_DB_PATH            SQLite database path
  RECONBUS_DB_DISABLED=true   Do not persist events
  RECONBUS_CONSOLE_ENABLED    Print events
  RECONBUS_CONSOLE_FORMAT     tab, csv or json
  RECONBUS_DNS_SERVERS        DNS servers, comma separated
  RECONBUS_HTTP_TIMEOUT       HTTP timeout in seconds
  RECONBUS_HTTP_RATE_LIMIT    HTTP requests per second
  RECONBUS_USER_AGENT         HTTP User-Agent
  RECONBUS_OUTPUT_DIR         Report directory
  RECONBUS_UI_DISABLED=true   Disable the terminal UI

  Precedence: flags > environment > config file > defaults.
`

// PrintHelp writes the help message to w.
func PrintHelp(w io.Writer) {
	fmt.Fprint(w, helpText)
}

// PrintVersion writes version information to w.
func PrintVersion(w io.Writer, version, commit, date string) {
	fmt.Fprintf(w, "reconbus %s\n", version)
	fmt.Fprintf(w, "  Commit:  %s\n", commit)
	fmt.Fprintf(w, "  Built:   %s\n", date)
	fmt.Fprintf(w, "  Go:      %s\n", getGoVersion())
}

// PrintPlugins writes the registered plugins with their options to w.
func PrintPlugins(w io.Writer, plugins map[string]ports.PluginMetadata) {
	names := make([]string, 0, len(plugins))
	for name := range plugins {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		meta := plugins[name]
		fmt.Fprintf(w, "%-14s %-8s %s\n", name, meta.Mode, meta.Description)
		if len(meta.Watched) > 0 {
			fmt.Fprintf(w, "%14s watches:  %s\n", "", joinTypes(meta.Watched))
		}
		if len(meta.Produced) > 0 {
			fmt.Fprintf(w, "%14s produces: %s\n", "", joinTypes(meta.Produced))
		}

		opts := make([]string, 0, len(meta.DefaultOptions))
		for key := range meta.DefaultOptions {
			opts = append(opts, key)
		}
		sort.Strings(opts)
		for _, key := range opts {
			fmt.Fprintf(w, "%14s --opt %s:%s=%v  %s\n", "", name, key, meta.DefaultOptions[key], meta.OptionDescriptions[key])
		}
	}
}

func joinTypes[T ~string](types []T) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}

func getGoVersion() string {
	return runtime.Version()
}
