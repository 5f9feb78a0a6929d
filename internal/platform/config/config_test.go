// internal/platform/config/config_test.go
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"reconbus/internal/core/domain"
	"reconbus/internal/core/ports"
	"reconbus/internal/platform/errors"
	"reconbus/internal/testutil"
)

var envKeys = []string{
	"RECONBUS_CONFIG", "RECONBUS_TARGET", "RECONBUS_TARGET_TYPE", "RECONBUS_PLUGINS",
	"RECONBUS_FILTER", "RECONBUS_TIMEOUT", "RECONBUS_LOG_LEVEL", "RECONBUS_MODE",
	"RECONBUS_DB_PATH", "RECONBUS_DB_DISABLED", "RECONBUS_CONSOLE_ENABLED",
	"RECONBUS_CONSOLE_FORMAT", "RECONBUS_CONSOLE_DATASIZE", "RECONBUS_DNS_SERVERS",
	"RECONBUS_DNS_TIMEOUT", "RECONBUS_HTTP_TIMEOUT", "RECONBUS_HTTP_RETRIES",
	"RECONBUS_HTTP_RATE_LIMIT", "RECONBUS_USER_AGENT", "RECONBUS_OUTPUT_DIR",
	"RECONBUS_JSON_DISABLED", "RECONBUS_UI_DISABLED",
}

// clearEnv neutraliza las variables del entorno del proceso de test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestGetenv(t *testing.T) {
	t.Setenv("RECONBUS_TEST_KEY", "custom")

	testutil.AssertEqual(t, getenv("RECONBUS_TEST_KEY", "default"), "custom", "set")
	testutil.AssertEqual(t, getenv("RECONBUS_TEST_MISSING", "default"), "default", "missing")
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"1", true},
		{"TRUE", true},
		{"yes", true},
		{" on ", true},
		{"0", false},
		{"false", false},
		{"off", false},
		{"", false},
		{"garbage", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseBool(tt.input); got != tt.expected {
				t.Errorf("parseBool(%q) = %v, expected %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		input    string
		def      int
		expected int
	}{
		{"42", 10, 42},
		{"  100  ", 10, 100},
		{"-5", 10, -5},
		{"abc", 10, 10},
		{"3.14", 10, 10},
		{"", 10, 10},
	}

	for _, tt := range tests {
		if got := parseInt(tt.input, tt.def); got != tt.expected {
			t.Errorf("parseInt(%q, %d) = %d, expected %d", tt.input, tt.def, got, tt.expected)
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load([]string{"example.com"})
	testutil.AssertNoError(t, err, "load")

	testutil.AssertEqual(t, cfg.Core.Target, "example.com", "positional target")
	testutil.AssertEqual(t, cfg.TargetEventType(), domain.EventTypeInternetName, "detected type")
	testutil.AssertEqual(t, cfg.Core.Mode, "passive", "mode")
	testutil.AssertEqual(t, cfg.Core.LogLevel, "info", "log level")
	testutil.AssertEqual(t, cfg.Console.Format, "tab", "console format")
	testutil.AssertEqual(t, cfg.Storage.Path, "reconbus_out/reconbus.db", "db path")
	testutil.AssertEqual(t, cfg.Timeout(), time.Duration(0), "no scan timeout")
	testutil.AssertLen(t, cfg.Core.Plugins, 0, "no explicit plugins")
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("RECONBUS_TARGET", "192.0.2.0/24")
	t.Setenv("RECONBUS_PLUGINS", "Netblock, reversedns")
	t.Setenv("RECONBUS_TIMEOUT", "60")
	t.Setenv("RECONBUS_DB_DISABLED", "true")
	t.Setenv("RECONBUS_DNS_SERVERS", "9.9.9.9,1.1.1.1:53")
	t.Setenv("RECONBUS_HTTP_RATE_LIMIT", "2.5")
	t.Setenv("RECONBUS_UI_DISABLED", "yes")

	cfg, err := Load(nil)
	testutil.AssertNoError(t, err, "load")

	testutil.AssertEqual(t, cfg.TargetEventType(), domain.EventTypeNetblockOwner, "netblock detected")
	testutil.AssertEqual(t, strings.Join(cfg.Core.Plugins, ","), "netblock,reversedns", "plugins normalized")
	testutil.AssertEqual(t, cfg.Core.TimeoutS, 60, "timeout")
	testutil.AssertTrue(t, cfg.Storage.Disabled, "db disabled")
	testutil.AssertEqual(t, strings.Join(cfg.DNS.Servers, ","), "9.9.9.9,1.1.1.1:53", "dns servers")
	testutil.AssertEqual(t, cfg.HTTP.RateLimit, 2.5, "rate limit")
	testutil.AssertTrue(t, cfg.Output.UIDisabled, "ui disabled")
}

func TestLoad_Precedence(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "reconbus.yaml")
	content := `
core:
  target: file.example.com
  plugins: [dnsresolve]
  timeout: 30
console:
  enabled: true
  format: csv
http:
  retries: 5
options:
  dnsbrute:words: www,mail
  _maxthreads: 3
`
	testutil.AssertNoError(t, os.WriteFile(path, []byte(content), 0o644), "write config")
	t.Setenv("RECONBUS_TIMEOUT", "45")
	t.Setenv("RECONBUS_HTTP_RETRIES", "1")

	cfg, err := Load([]string{"--config", path, "--http-retries", "4", "-t", "flag.example.com"})
	testutil.AssertNoError(t, err, "load")

	testutil.AssertEqual(t, cfg.ConfigPath, path, "config path")
	testutil.AssertEqual(t, cfg.Core.Target, "flag.example.com", "flag beats file")
	testutil.AssertEqual(t, cfg.Core.TimeoutS, 45, "env beats file")
	testutil.AssertEqual(t, cfg.HTTP.Retries, 4, "flag beats env")
	testutil.AssertEqual(t, strings.Join(cfg.Core.Plugins, ","), "dnsresolve", "file value kept")
	testutil.AssertTrue(t, cfg.Console.Enabled, "console from file")
	testutil.AssertEqual(t, cfg.Console.Format, "csv", "format from file")
	testutil.AssertEqual(t, cfg.Options["dnsbrute:words"], "www,mail", "plugin option from file")
	testutil.AssertEqual(t, cfg.Options["_maxthreads"], 3, "typed global option")
}

func TestLoad_ConfigFromEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "c.yaml")
	testutil.AssertNoError(t, os.WriteFile(path, []byte("core:\n  target: foo@example.com\n"), 0o644), "write")
	t.Setenv("RECONBUS_CONFIG", path)

	cfg, err := Load(nil)
	testutil.AssertNoError(t, err, "load")
	testutil.AssertEqual(t, cfg.TargetEventType(), domain.EventTypeEmailAddr, "email detected")
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)
	badYAML := filepath.Join(t.TempDir(), "bad.yaml")
	testutil.AssertNoError(t, os.WriteFile(badYAML, []byte("core: [unclosed"), 0o644), "write")

	tests := []struct {
		name string
		args []string
	}{
		{"missing target", nil},
		{"unknown flag", []string{"-t", "example.com", "--bogus"}},
		{"bad console format", []string{"-t", "example.com", "--format", "xml"}},
		{"bad mode", []string{"-t", "example.com", "--mode", "loud"}},
		{"bad filter type", []string{"-t", "example.com", "-f", "NOT_A_TYPE"}},
		{"misspelled filter type", []string{"-t", "example.com", "-f", "IP_ADDRES"}},
		{"non seed type", []string{"-t", "example.com", "-y", "TCP_PORT_OPEN"}},
		{"undetectable target", []string{"-t", "not a target"}},
		{"option without value", []string{"-t", "example.com", "--opt", "dnsbrute:words"}},
		{"option without scope", []string{"-t", "example.com", "--opt", "words=www"}},
		{"unparseable config", []string{"-t", "example.com", "-c", badYAML}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.args)
			testutil.AssertError(t, err, tt.name)
		})
	}

	_, err := Load([]string{"-c", filepath.Join(t.TempDir(), "missing.yaml")})
	testutil.AssertError(t, err, "missing file")

	_, err = Load([]string{"--bogus"})
	testutil.AssertTrue(t, errors.IsInvalidInput(err), "flag errors are invalid input")
}

func TestLoad_ActionsSkipValidation(t *testing.T) {
	clearEnv(t)

	cfg, err := Load([]string{"--help"})
	testutil.AssertNoError(t, err, "help without target")
	testutil.AssertTrue(t, cfg.ShowHelp, "help flag")

	cfg, err = Load([]string{"-l"})
	testutil.AssertNoError(t, err, "list without target")
	testutil.AssertTrue(t, cfg.ListPlugins, "list flag")
}

func TestLoad_OptionFlags(t *testing.T) {
	clearEnv(t)

	cfg, err := Load([]string{
		"-t", `"Jane Doe"`,
		"--opt", "reversedns:maxcohost=3",
		"--opt", "_fetchtimeout = 9",
		"--opt", "breach:url=https://api.example.test/v1?q=a=b",
	})
	testutil.AssertNoError(t, err, "load")

	testutil.AssertEqual(t, cfg.TargetEventType(), domain.EventTypeHumanName, "quoted name")
	testutil.AssertEqual(t, cfg.Core.Target, "Jane Doe", "quotes stripped")
	testutil.AssertEqual(t, cfg.Options["reversedns:maxcohost"], "3", "plugin option")
	testutil.AssertEqual(t, cfg.Options["_fetchtimeout"], "9", "global option trimmed")
	testutil.AssertEqual(t, cfg.Options["breach:url"], "https://api.example.test/v1?q=a=b", "value keeps '='")
}

func TestNormalize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Core.Target = "  Example.com "
	cfg.Core.TargetType = " internet_name "
	cfg.Core.Plugins = []string{"DNSResolve", "", "dnsresolve", "email"}
	cfg.Core.OutputFilter = []string{"ip_address", "IP_ADDRESS"}
	cfg.Core.TimeoutS = -1
	cfg.Console.Format = " JSON "
	cfg.Console.DataSize = -10
	cfg.DNS.TimeoutS = 0
	cfg.HTTP.Retries = -2
	cfg.Output.Dir = ""

	normalize(&cfg)

	testutil.AssertEqual(t, cfg.Core.Target, "Example.com", "target trimmed only")
	testutil.AssertEqual(t, cfg.Core.TargetType, "INTERNET_NAME", "type upper")
	testutil.AssertEqual(t, strings.Join(cfg.Core.Plugins, ","), "dnsresolve,email", "plugins deduped")
	testutil.AssertEqual(t, strings.Join(cfg.Core.OutputFilter, ","), "IP_ADDRESS", "filter deduped")
	testutil.AssertEqual(t, cfg.Core.TimeoutS, 0, "timeout clamped")
	testutil.AssertEqual(t, cfg.Console.Format, "json", "format lower")
	testutil.AssertEqual(t, cfg.Console.DataSize, 0, "datasize clamped")
	testutil.AssertEqual(t, cfg.DNS.TimeoutS, 5, "dns timeout default")
	testutil.AssertEqual(t, cfg.HTTP.Retries, 0, "retries clamped")
	testutil.AssertEqual(t, cfg.Output.Dir, "reconbus_out", "output dir default")
	testutil.AssertNoError(t, cfg.Validate(), "valid after normalize")
}

func TestConfig_PluginOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Options["_useragent"] = "custom/1"
	cfg.Console.Format = "csv"

	opts := cfg.PluginOptions()
	testutil.AssertEqual(t, opts["_useragent"], "custom/1", "explicit global kept")
	testutil.AssertEqual(t, opts["_fetchtimeout"], 15, "fetch timeout from http section")
	testutil.AssertEqual(t, opts["stor_stdout:format"], "csv", "console format mapped")

	resolved := ports.ResolveOptions("stor_stdout", ports.Options{"format": "tab"}, opts)
	testutil.AssertEqual(t, resolved["format"], "csv", "scoped key wins over default")
	testutil.AssertEqual(t, resolved["_useragent"], "custom/1", "global visible to plugin")
}

func TestConfig_Filter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Core.OutputFilter = []string{"IP_ADDRESS", "EMAILADDR"}

	filter := cfg.Filter()
	testutil.AssertLen(t, filter, 2, "filter types")
	testutil.AssertEqual(t, filter[1], domain.EventTypeEmailAddr, "order kept")
}

func TestPrintHelpers(t *testing.T) {
	var buf bytes.Buffer
	PrintHelp(&buf)
	testutil.AssertContains(t, buf.String(), "--opt plugin:key=value", "help documents options")

	buf.Reset()
	PrintVersion(&buf, "1.2.3", "abc", "2024-01-01")
	testutil.AssertContains(t, buf.String(), "reconbus 1.2.3", "version line")

	buf.Reset()
	PrintPlugins(&buf, map[string]ports.PluginMetadata{
		"dnsbrute": {
			Name:               "dnsbrute",
			Mode:               domain.PluginModeActive,
			Description:        "Brute force subdomains",
			Produced:           []domain.EventType{domain.EventTypeInternetName},
			DefaultOptions:     ports.Options{"maxthreads": 10},
			OptionDescriptions: map[string]string{"maxthreads": "parallel lookups"},
		},
	})
	out := buf.String()
	testutil.AssertContains(t, out, "dnsbrute", "name")
	testutil.AssertContains(t, out, "produces: INTERNET_NAME", "produced types")
	testutil.AssertContains(t, out, "--opt dnsbrute:maxthreads=10", "option line")
}
