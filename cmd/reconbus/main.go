// cmd/reconbus/main.go
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"reconbus/internal/adapters/dns"
	"reconbus/internal/adapters/output"
	"reconbus/internal/adapters/storage/sqlite"
	"reconbus/internal/adapters/whois"
	"reconbus/internal/core/domain"
	"reconbus/internal/core/ports"
	"reconbus/internal/core/usecases"
	"reconbus/internal/platform/config"
	"reconbus/internal/platform/httpclient"
	"reconbus/internal/platform/logx"
	"reconbus/internal/platform/registry"
	"reconbus/internal/platform/ui"

	// Registro de los plugins integrados vía init()
	_ "reconbus/internal/plugins"
)

var (
	// Rellenables con -ldflags en build
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	sinkDB     = "stor_db"
	sinkStdout = "stor_stdout"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// 1. Configuración centralizada
	cfg, err := config.Load(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "Try: reconbus -h for help")
		return 2
	}
	switch {
	case cfg.ShowHelp:
		config.PrintHelp(os.Stdout)
		return 0
	case cfg.ShowVersion:
		config.PrintVersion(os.Stdout, version, commit, date)
		return 0
	case cfg.ListPlugins:
		config.PrintPlugins(os.Stdout, registry.Global().GetAllMetadata())
		return 0
	}

	// 2. Logger compartido
	logger := logx.NewWithLevel(cfg.LogLevel())
	logger.Info("reconbus starting",
		"version", version,
		"commit", commit,
		"target", cfg.Core.Target,
		"target_type", cfg.Core.TargetType,
		"mode", cfg.Core.Mode,
	)

	// 3. Contexto con señales y timeout
	ctx, cancel := rootContextWithSignals(cfg.Timeout())
	defer cancel()

	// 4. Servicios compartidos por los plugins
	services := ports.Services{
		Resolver: dns.New(dns.Config{
			Servers:  cfg.DNS.Servers,
			Timeout:  time.Duration(cfg.DNS.TimeoutS) * time.Second,
			CacheTTL: time.Duration(cfg.DNS.CacheTTLS) * time.Second,
		}, logger),
		Fetcher: httpclient.New(httpConfig(cfg), logger),
		Whois:   whois.New(time.Duration(cfg.HTTP.TimeoutS)*time.Second, logger),
		Console: os.Stdout,
	}

	var observers []ports.Notifier
	var store *sqlite.Store
	sinks := []string{}
	if !cfg.Storage.Disabled {
		store, err = sqlite.Open(cfg.Storage.Path, logger)
		if err != nil {
			logger.Err(err, "phase", "storage")
			return 1
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Warn("failed to close storage", "error", err.Error())
			}
		}()
		services.Store = store
		observers = append(observers, sqlite.NewStatusRecorder(store))
		sinks = append(sinks, sinkDB)
	}
	if cfg.Console.Enabled {
		sinks = append(sinks, sinkStdout)
	}

	// 5. Presenter como observador del ciclo de vida
	presenter := newPresenter(cfg)
	defer presenter.Close()
	observers = append(observers, presenter)

	plugins := cfg.Core.Plugins
	if len(plugins) == 0 {
		plugins = defaultPlugins(registry.Global().GetAllMetadata(), domain.ScanMode(cfg.Core.Mode))
	}

	scanner := usecases.NewScanner(usecases.ScannerOptions{
		Registry:     registry.Global(),
		Services:     services,
		Logger:       logger,
		Observers:    observers,
		DefaultSinks: sinks,
		Version:      version,
	})

	info := ui.ScanInfo{
		ScanID:         cfg.Core.ScanID,
		Target:         cfg.Core.Target,
		TargetType:     cfg.TargetEventType(),
		Mode:           cfg.Core.Mode,
		Plugins:        plugins,
		TimeoutSeconds: cfg.Core.TimeoutS,
	}
	if store != nil {
		info.DBPath = cfg.Storage.Path
	}
	if !cfg.Output.JSONDisabled {
		info.ReportDir = cfg.Output.Dir
	}
	presenter.Start(info)

	// 6. Escaneo
	result, runErr := scanner.Run(ctx, usecases.ScanRequest{
		ID:           cfg.Core.ScanID,
		Target:       cfg.Core.Target,
		TargetType:   cfg.TargetEventType(),
		Plugins:      plugins,
		Options:      cfg.PluginOptions(),
		OutputFilter: cfg.Filter(),
		Mode:         domain.ScanMode(cfg.Core.Mode),
	})
	if runErr != nil {
		logger.Err(runErr, "phase", "run")
	}
	if result == nil {
		return 1
	}
	presenter.Finish(result)

	// 7. Informe JSON a partir de las filas persistidas
	if !cfg.Output.JSONDisabled {
		var events []ports.StoredEvent
		if store != nil {
			events, err = store.ScanEvents(context.Background(), result.ID)
			if err != nil {
				logger.Warn("failed to read stored events", "scan", result.ID, "error", err.Error())
			}
		}
		path, err := output.WriteReport(cfg.Output.Dir, output.BuildReport(result, events))
		if err != nil {
			logger.Err(err, "phase", "output")
			return 1
		}
		logger.Info("report written", "path", path)
	}

	logger.Info("reconbus finished",
		"scan", result.ID,
		"status", string(result.Status),
		"duration_ms", result.Metadata.Duration.Milliseconds(),
		"events", result.TotalEvents(),
		"errors", len(result.Errors),
	)

	if runErr != nil || result.Status == domain.StatusErrorFailed {
		return 1
	}
	return 0
}

func httpConfig(cfg config.Config) httpclient.Config {
	hc := httpclient.DefaultConfig()
	hc.Timeout = time.Duration(cfg.HTTP.TimeoutS) * time.Second
	hc.MaxRetries = cfg.HTTP.Retries
	hc.RateLimit = cfg.HTTP.RateLimit
	if cfg.HTTP.UserAgent != "" {
		hc.UserAgent = cfg.HTTP.UserAgent
	}
	return hc
}

// newPresenter elige la salida: pterm en una terminal, líneas raw si no.
// Con --stdout los eventos ocupan stdout y el progreso va a stderr.
func newPresenter(cfg config.Config) ui.Presenter {
	if cfg.Output.UIDisabled {
		return ui.NewNoopPresenter()
	}
	var w io.Writer = os.Stdout
	out := os.Stdout
	if cfg.Console.Enabled {
		w, out = os.Stderr, os.Stderr
	}
	if term.IsTerminal(int(out.Fd())) {
		return ui.NewPTermPresenter(w)
	}
	return ui.NewRawPresenter(ui.LogFormatText, w)
}

// defaultPlugins retorna los plugins compatibles con mode, sin los sinks.
func defaultPlugins(all map[string]ports.PluginMetadata, mode domain.ScanMode) []string {
	names := make([]string, 0, len(all))
	for name, meta := range all {
		if strings.HasPrefix(name, "stor_") {
			continue
		}
		if mode != "" && !meta.Mode.CompatibleWith(mode) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// rootContextWithSignals crea el contexto raíz con timeout opcional y
// cancelación por SIGINT/SIGTERM.
func rootContextWithSignals(timeout time.Duration) (context.Context, context.CancelFunc) {
	var base context.Context
	var baseCancel context.CancelFunc
	if timeout > 0 {
		base, baseCancel = context.WithTimeout(context.Background(), timeout)
	} else {
		base, baseCancel = context.WithCancel(context.Background())
	}

	ctx, stop := signal.NotifyContext(base, syscall.SIGINT, syscall.SIGTERM)
	return ctx, func() {
		stop()
		baseCancel()
	}
}
