// internal/platform/ui/noop_presenter.go
package ui

import (
	"context"

	"reconbus/internal/core/domain"
	"reconbus/internal/core/ports"
)

// NoopPresenter no produce ninguna salida. Útil para modo quiet o headless.
type NoopPresenter struct{}

// NewNoopPresenter crea una instancia del presenter sin salida
func NewNoopPresenter() *NoopPresenter {
	return &NoopPresenter{}
}

func (n *NoopPresenter) Start(ScanInfo)                                   {}
func (n *NoopPresenter) Notify(context.Context, ports.Notification) error { return nil }
func (n *NoopPresenter) Finish(*domain.ScanResult)                        {}
func (n *NoopPresenter) Close() error                                     { return nil }
