// internal/platform/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"reconbus/internal/core/domain"
	"reconbus/internal/platform/errors"
	"reconbus/internal/platform/logx"
)

// Formatos admitidos por el sink de consola.
var consoleFormats = []string{"tab", "csv", "json"}

type Config struct {
	// ConfigPath fichero YAML cargado (vacío si no hay)
	ConfigPath string `yaml:"-" json:"config_path,omitempty"`

	Core    Core    `yaml:"core" json:"core"`
	Storage Storage `yaml:"storage" json:"storage"`
	Console Console `yaml:"console" json:"console"`
	DNS     DNS     `yaml:"dns" json:"dns"`
	HTTP    HTTP    `yaml:"http" json:"http"`
	Output  Output  `yaml:"output" json:"output"`

	// Options mapa plano de opciones de plugins: "_global" y "plugin:clave"
	Options map[string]interface{} `yaml:"options" json:"options"`

	// Acciones de la CLI
	ShowHelp    bool `yaml:"-" json:"-"`
	ShowVersion bool `yaml:"-" json:"-"`
	ListPlugins bool `yaml:"-" json:"-"`

	rawOpts []string
}

type Core struct {
	ScanID       string   `yaml:"scan_id" json:"scan_id,omitempty"`
	Target       string   `yaml:"target" json:"target"`
	TargetType   string   `yaml:"target_type" json:"target_type"`
	Plugins      []string `yaml:"plugins" json:"plugins"`
	OutputFilter []string `yaml:"output_filter" json:"output_filter"`
	TimeoutS     int      `yaml:"timeout" json:"timeout_s"` // segundos (0 = sin timeout)
	LogLevel     string   `yaml:"log_level" json:"log_level"`
	Mode         string   `yaml:"mode" json:"mode"`
}

type Storage struct {
	Path     string `yaml:"path" json:"path"`
	Disabled bool   `yaml:"disabled" json:"disabled"`
}

type Console struct {
	Enabled    bool   `yaml:"enabled" json:"enabled"`
	Format     string `yaml:"format" json:"format"`
	DataSize   int    `yaml:"datasize" json:"datasize"`
	ShowSource bool   `yaml:"show_source" json:"show_source"`
}

type DNS struct {
	Servers   []string `yaml:"servers" json:"servers"`
	TimeoutS  int      `yaml:"timeout" json:"timeout_s"`
	CacheTTLS int      `yaml:"cache_ttl" json:"cache_ttl_s"`
}

type HTTP struct {
	TimeoutS  int     `yaml:"timeout" json:"timeout_s"`
	Retries   int     `yaml:"retries" json:"retries"`
	RateLimit float64 `yaml:"rate_limit" json:"rate_limit"`
	UserAgent string  `yaml:"user_agent" json:"user_agent"`
}

type Output struct {
	Dir          string `yaml:"dir" json:"dir"`
	JSONDisabled bool   `yaml:"json_disabled" json:"json_disabled"`
	UIDisabled   bool   `yaml:"ui_disabled" json:"ui_disabled"`
}

// DefaultConfig retorna una configuración por defecto.
func DefaultConfig() Config {
	return Config{
		Core: Core{
			TimeoutS: 0,
			LogLevel: "info",
			Mode:     string(domain.ScanModePassive),
		},
		Storage: Storage{
			Path: "reconbus_out/reconbus.db",
		},
		Console: Console{
			Enabled:  false,
			Format:   "tab",
			DataSize: 100,
		},
		DNS: DNS{
			TimeoutS:  5,
			CacheTTLS: 600,
		},
		HTTP: HTTP{
			TimeoutS:  15,
			Retries:   2,
			UserAgent: "reconbus/1.0",
		},
		Output: Output{
			Dir: "reconbus_out",
		},
		Options: make(map[string]interface{}),
	}
}

// Load construye la configuración: defaults -> YAML -> ENV -> FLAGS (los
// flags tienen prioridad). El fichero se toma de --config o RECONBUS_CONFIG.
func Load(args []string) (Config, error) {
	probe := DefaultConfig()
	if err := newFlagSet(&probe, io.Discard).Parse(args); err != nil {
		return Config{}, errors.Wrapf(errors.ErrInvalidInput, "flags: %v", err)
	}

	cfg := DefaultConfig()
	path := probe.ConfigPath
	if path == "" {
		path = getenv("RECONBUS_CONFIG", "")
	}
	if path != "" {
		if err := loadFromFile(&cfg, path); err != nil {
			return Config{}, err
		}
		cfg.ConfigPath = path
	}

	loadFromEnv(&cfg)

	fs := newFlagSet(&cfg, io.Discard)
	if err := fs.Parse(args); err != nil {
		return Config{}, errors.Wrapf(errors.ErrInvalidInput, "flags: %v", err)
	}
	if cfg.Core.Target == "" && fs.NArg() > 0 {
		cfg.Core.Target = fs.Arg(0)
	}
	if err := applyOptionFlags(&cfg); err != nil {
		return Config{}, err
	}

	normalize(&cfg)
	if cfg.ShowHelp || cfg.ShowVersion || cfg.ListPlugins {
		return cfg, nil
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadFromFile fusiona el YAML de path sobre cfg.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.Wrapf(errors.ErrInvalidInput, "parse config %s: %v", path, err)
	}
	if cfg.Options == nil {
		cfg.Options = make(map[string]interface{})
	}
	return nil
}

// loadFromEnv carga configuración desde variables de entorno.
func loadFromEnv(cfg *Config) {
	if v := getenv("RECONBUS_TARGET", ""); v != "" {
		cfg.Core.Target = v
	}
	if v := getenv("RECONBUS_TARGET_TYPE", ""); v != "" {
		cfg.Core.TargetType = v
	}
	if v := getenv("RECONBUS_PLUGINS", ""); v != "" {
		cfg.Core.Plugins = splitList(v)
	}
	if v := getenv("RECONBUS_FILTER", ""); v != "" {
		cfg.Core.OutputFilter = splitList(v)
	}
	if v := getenv("RECONBUS_TIMEOUT", ""); v != "" {
		cfg.Core.TimeoutS = parseInt(v, cfg.Core.TimeoutS)
	}
	if v := getenv("RECONBUS_LOG_LEVEL", ""); v != "" {
		cfg.Core.LogLevel = v
	}
	if v := getenv("RECONBUS_MODE", ""); v != "" {
		cfg.Core.Mode = v
	}

	// Storage
	if v := getenv("RECONBUS_DB_PATH", ""); v != "" {
		cfg.Storage.Path = v
	}
	if v := getenv("RECONBUS_DB_DISABLED", ""); v != "" {
		cfg.Storage.Disabled = parseBool(v)
	}

	// Console
	if v := getenv("RECONBUS_CONSOLE_ENABLED", ""); v != "" {
		cfg.Console.Enabled = parseBool(v)
	}
	if v := getenv("RECONBUS_CONSOLE_FORMAT", ""); v != "" {
		cfg.Console.Format = v
	}
	if v := getenv("RECONBUS_CONSOLE_DATASIZE", ""); v != "" {
		cfg.Console.DataSize = parseInt(v, cfg.Console.DataSize)
	}

	// DNS
	if v := getenv("RECONBUS_DNS_SERVERS", ""); v != "" {
		cfg.DNS.Servers = splitList(v)
	}
	if v := getenv("RECONBUS_DNS_TIMEOUT", ""); v != "" {
		cfg.DNS.TimeoutS = parseInt(v, cfg.DNS.TimeoutS)
	}

	// HTTP
	if v := getenv("RECONBUS_HTTP_TIMEOUT", ""); v != "" {
		cfg.HTTP.TimeoutS = parseInt(v, cfg.HTTP.TimeoutS)
	}
	if v := getenv("RECONBUS_HTTP_RETRIES", ""); v != "" {
		cfg.HTTP.Retries = parseInt(v, cfg.HTTP.Retries)
	}
	if v := getenv("RECONBUS_HTTP_RATE_LIMIT", ""); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			cfg.HTTP.RateLimit = f
		}
	}
	if v := getenv("RECONBUS_USER_AGENT", ""); v != "" {
		cfg.HTTP.UserAgent = v
	}

	// Output
	if v := getenv("RECONBUS_OUTPUT_DIR", ""); v != "" {
		cfg.Output.Dir = v
	}
	if v := getenv("RECONBUS_JSON_DISABLED", ""); v != "" {
		cfg.Output.JSONDisabled = parseBool(v)
	}
	if v := getenv("RECONBUS_UI_DISABLED", ""); v != "" {
		cfg.Output.UIDisabled = parseBool(v)
	}
}

// newFlagSet declara los flags sobre cfg; los valores actuales de cfg son
// los valores por defecto de cada flag.
func newFlagSet(cfg *Config, out io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet("reconbus", pflag.ContinueOnError)
	fs.SetOutput(out)
	fs.SortFlags = false

	fs.StringVarP(&cfg.ConfigPath, "config", "c", cfg.ConfigPath, "YAML config file")

	fs.StringVarP(&cfg.Core.Target, "target", "t", cfg.Core.Target, "Scan seed")
	fs.StringVarP(&cfg.Core.TargetType, "type", "y", cfg.Core.TargetType, "Seed type (detected when empty)")
	fs.StringSliceVarP(&cfg.Core.Plugins, "modules", "m", cfg.Core.Plugins, "Plugins to load (comma separated)")
	fs.StringSliceVarP(&cfg.Core.OutputFilter, "filter", "f", cfg.Core.OutputFilter, "Only publish these event types")
	fs.IntVarP(&cfg.Core.TimeoutS, "timeout", "T", cfg.Core.TimeoutS, "Scan timeout in seconds (0 = none)")
	fs.StringVar(&cfg.Core.LogLevel, "log-level", cfg.Core.LogLevel, "debug, info, warn or error")
	fs.StringVar(&cfg.Core.Mode, "mode", cfg.Core.Mode, "passive or active")
	fs.StringVar(&cfg.Core.ScanID, "id", cfg.Core.ScanID, "Scan ID (UUID when empty)")

	fs.StringVar(&cfg.Storage.Path, "db", cfg.Storage.Path, "SQLite database path")
	fs.BoolVar(&cfg.Storage.Disabled, "no-db", cfg.Storage.Disabled, "Do not persist events")

	fs.BoolVarP(&cfg.Console.Enabled, "stdout", "s", cfg.Console.Enabled, "Print events as they are found")
	fs.StringVar(&cfg.Console.Format, "format", cfg.Console.Format, "Event print format: tab, csv or json")
	fs.IntVar(&cfg.Console.DataSize, "datasize", cfg.Console.DataSize, "Truncate printed data to N characters (0 = no limit)")
	fs.BoolVar(&cfg.Console.ShowSource, "show-source", cfg.Console.ShowSource, "Print the source event data")

	fs.StringSliceVar(&cfg.DNS.Servers, "dns", cfg.DNS.Servers, "DNS servers (host[:port])")
	fs.IntVar(&cfg.DNS.TimeoutS, "dns-timeout", cfg.DNS.TimeoutS, "DNS query timeout in seconds")

	fs.IntVar(&cfg.HTTP.TimeoutS, "http-timeout", cfg.HTTP.TimeoutS, "HTTP request timeout in seconds")
	fs.IntVar(&cfg.HTTP.Retries, "http-retries", cfg.HTTP.Retries, "HTTP retries on 429/5xx")
	fs.Float64Var(&cfg.HTTP.RateLimit, "rate-limit", cfg.HTTP.RateLimit, "HTTP requests per second (0 = unlimited)")
	fs.StringVar(&cfg.HTTP.UserAgent, "user-agent", cfg.HTTP.UserAgent, "HTTP User-Agent")

	fs.StringVarP(&cfg.Output.Dir, "out", "o", cfg.Output.Dir, "Output directory for the JSON report")
	fs.BoolVar(&cfg.Output.JSONDisabled, "no-json", cfg.Output.JSONDisabled, "Do not write the JSON report")
	fs.BoolVarP(&cfg.Output.UIDisabled, "quiet", "q", cfg.Output.UIDisabled, "Disable the terminal UI")

	fs.StringArrayVar(&cfg.rawOpts, "opt", nil, "Plugin option plugin:key=value or _global=value (repeatable)")

	fs.BoolVarP(&cfg.ListPlugins, "list", "l", false, "List available plugins and exit")
	fs.BoolVarP(&cfg.ShowVersion, "version", "v", false, "Print version and exit")
	fs.BoolVarP(&cfg.ShowHelp, "help", "h", false, "Show help")
	return fs
}

// applyOptionFlags vuelca los --opt sobre el mapa plano.
func applyOptionFlags(cfg *Config) error {
	if cfg.Options == nil {
		cfg.Options = make(map[string]interface{})
	}
	for _, raw := range cfg.rawOpts {
		key, value, ok := strings.Cut(raw, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return errors.Wrapf(errors.ErrInvalidInput, "--opt %q: expected key=value", raw)
		}
		if !strings.HasPrefix(key, "_") && !strings.Contains(key, ":") {
			return errors.Wrapf(errors.ErrInvalidInput, "--opt %q: key must be plugin:name or _name", raw)
		}
		cfg.Options[key] = strings.TrimSpace(value)
	}
	cfg.rawOpts = nil
	return nil
}

func normalize(c *Config) {
	c.Core.Target = strings.TrimSpace(c.Core.Target)
	c.Core.TargetType = strings.ToUpper(strings.TrimSpace(c.Core.TargetType))
	if c.Core.TargetType == "" {
		if t, ok := domain.DetectTargetType(c.Core.Target); ok {
			c.Core.TargetType = string(t)
		}
	}
	if c.Core.TargetType == string(domain.EventTypeHumanName) {
		c.Core.Target = strings.Trim(c.Core.Target, `"`)
	}
	c.Core.Plugins = cleanList(c.Core.Plugins, strings.ToLower)
	c.Core.OutputFilter = cleanList(c.Core.OutputFilter, strings.ToUpper)
	c.Core.LogLevel = strings.ToLower(strings.TrimSpace(c.Core.LogLevel))
	c.Core.Mode = strings.ToLower(strings.TrimSpace(c.Core.Mode))
	if c.Core.TimeoutS < 0 {
		c.Core.TimeoutS = 0
	}

	c.Console.Format = strings.ToLower(strings.TrimSpace(c.Console.Format))
	if c.Console.DataSize < 0 {
		c.Console.DataSize = 0
	}
	if c.DNS.TimeoutS < 1 {
		c.DNS.TimeoutS = 5
	}
	if c.DNS.CacheTTLS < 0 {
		c.DNS.CacheTTLS = 0
	}
	if c.HTTP.TimeoutS < 1 {
		c.HTTP.TimeoutS = 15
	}
	if c.HTTP.Retries < 0 {
		c.HTTP.Retries = 0
	}
	if c.HTTP.RateLimit < 0 {
		c.HTTP.RateLimit = 0
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "reconbus_out"
	}
}

// Validate comprueba los valores que no se pueden corregir en normalize.
func (c Config) Validate() error {
	if c.Core.Target == "" {
		return errors.Wrap(errors.ErrInvalidInput, "target is required")
	}
	if !domain.EventType(c.Core.TargetType).IsTargetType() {
		return errors.Wrapf(errors.ErrInvalidInput, "cannot use %q as a seed type", c.Core.TargetType)
	}
	for _, t := range c.Core.OutputFilter {
		if !domain.EventType(t).IsKnown() {
			return errors.Wrapf(errors.ErrInvalidInput, "unknown event type %q in filter", t)
		}
	}
	if c.Core.Mode != "" && !domain.ScanMode(c.Core.Mode).IsValid() {
		return errors.Wrapf(errors.ErrInvalidInput, "unknown mode %q", c.Core.Mode)
	}
	switch c.Core.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return errors.Wrapf(errors.ErrInvalidInput, "unknown log level %q", c.Core.LogLevel)
	}
	if !containsString(consoleFormats, c.Console.Format) {
		return errors.Wrapf(errors.ErrInvalidInput, "unknown console format %q", c.Console.Format)
	}
	return nil
}

// PluginOptions retorna el mapa plano para el scanner. Las opciones de
// consola y HTTP se traducen a claves de plugin solo si no están ya fijadas.
func (c Config) PluginOptions() map[string]interface{} {
	out := make(map[string]interface{}, len(c.Options)+6)
	for k, v := range c.Options {
		out[k] = v
	}
	setDefault := func(key string, v interface{}) {
		if _, ok := out[key]; !ok {
			out[key] = v
		}
	}
	setDefault("_fetchtimeout", c.HTTP.TimeoutS)
	setDefault("_useragent", c.HTTP.UserAgent)
	setDefault("stor_stdout:format", c.Console.Format)
	setDefault("stor_stdout:datasize", c.Console.DataSize)
	setDefault("stor_stdout:showsource", c.Console.ShowSource)
	return out
}

// TargetEventType retorna el tipo de semilla.
func (c Config) TargetEventType() domain.EventType {
	return domain.EventType(c.Core.TargetType)
}

// Filter retorna el filtro de salida como tipos de evento.
func (c Config) Filter() []domain.EventType {
	out := make([]domain.EventType, 0, len(c.Core.OutputFilter))
	for _, t := range c.Core.OutputFilter {
		out = append(out, domain.EventType(t))
	}
	return out
}

// LogLevel retorna el nivel de log configurado.
func (c Config) LogLevel() logx.Level {
	return logx.ParseLevel(c.Core.LogLevel)
}

// ToJSON serializa la configuración a JSON (útil para debugging).
func (c Config) ToJSON() (string, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Timeout devuelve el timeout del escaneo como time.Duration.
func (c Config) Timeout() time.Duration {
	if c.Core.TimeoutS <= 0 {
		return 0
	}
	return time.Duration(c.Core.TimeoutS) * time.Second
}

func (c Config) String() string {
	return fmt.Sprintf("Config{target=%s:%s, plugins=%d, db=%t}",
		c.Core.TargetType, c.Core.Target, len(c.Core.Plugins), !c.Storage.Disabled)
}

// Helpers

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok {
		return v
	}
	return def
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "t", "true", "y", "yes", "on":
		return true
	default:
		return false
	}
}

func parseInt(v string, def int) int {
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return i
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// cleanList recorta, transforma y elimina vacíos y duplicados.
func cleanList(list []string, transform func(string) string) []string {
	seen := make(map[string]bool, len(list))
	out := make([]string, 0, len(list))
	for _, item := range list {
		item = transform(strings.TrimSpace(item))
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
