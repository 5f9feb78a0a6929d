// internal/platform/workerpool/pool.go
package workerpool

import (
	"context"
	"sync"
	"time"

	"reconbus/internal/platform/logx"
)

// Config configura el pool.
type Config struct {
	// Workers máximo de goroutines simultáneas (default 4)
	Workers int

	// Stop se consulta antes de despachar cada elemento; si retorna true
	// los elementos pendientes se omiten
	Stop func() bool

	Logger logx.Logger
}

// Result es el resultado de procesar un elemento.
type Result[T, R any] struct {
	Item     T
	Value    R
	Err      error
	Skipped  bool // no se ejecutó por cancelación
	Duration time.Duration
}

// Stats resume una ejecución de Map.
type Stats struct {
	Executed int
	Failed   int
	Skipped  int
}

// Map aplica fn a cada elemento con como máximo cfg.Workers goroutines y
// retorna los resultados en el orden de items. Siempre espera a todos los
// workers antes de retornar.
func Map[T, R any](ctx context.Context, cfg Config, items []T, fn func(ctx context.Context, item T) (R, error)) ([]Result[T, R], Stats) {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Logger == nil {
		cfg.Logger = logx.NewDiscard()
	}
	logger := cfg.Logger.With("component", "worker-pool")

	results := make([]Result[T, R], len(items))
	if len(items) == 0 {
		return results, Stats{}
	}

	workers := cfg.Workers
	if workers > len(items) {
		workers = len(items)
	}
	logger.Debug("starting worker pool", "workers", workers, "items", len(items))

	indexes := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				start := time.Now()
				v, err := fn(ctx, items[i])
				results[i] = Result[T, R]{Item: items[i], Value: v, Err: err, Duration: time.Since(start)}
			}
		}()
	}

	dispatched := 0
dispatch:
	for i := range items {
		if ctx.Err() != nil || (cfg.Stop != nil && cfg.Stop()) {
			break
		}
		select {
		case indexes <- i:
			dispatched++
		case <-ctx.Done():
			break dispatch
		}
	}
	close(indexes)
	wg.Wait()

	var stats Stats
	for i := range results {
		if i >= dispatched {
			results[i] = Result[T, R]{Item: items[i], Skipped: true}
			stats.Skipped++
			continue
		}
		stats.Executed++
		if results[i].Err != nil {
			stats.Failed++
		}
	}

	logger.Debug("worker pool finished",
		"executed", stats.Executed,
		"failed", stats.Failed,
		"skipped", stats.Skipped,
	)
	return results, stats
}
