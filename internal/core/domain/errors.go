// internal/core/domain/errors.go
package domain

import "errors"

// Errores de dominio comunes.
var (
	// Target errors
	ErrInvalidTarget     = errors.New("invalid target")
	ErrUnsupportedTarget = errors.New("unsupported target type")

	// Event errors
	ErrInvalidEvent   = errors.New("invalid event")
	ErrMissingSource  = errors.New("event source is required")
	ErrWildcardEvent  = errors.New("wildcard is a subscription tag, not an event type")
	ErrEmptyEventData = errors.New("event data cannot be empty")

	// Scan errors
	ErrScanNotFound      = errors.New("scan not found")
	ErrScanExists        = errors.New("scan already registered")
	ErrInvalidTransition = errors.New("invalid scan status transition")
	ErrScanFailed        = errors.New("scan failed")

	// Plugin errors
	ErrPluginNotFound     = errors.New("plugin not found")
	ErrPluginSetup        = errors.New("plugin setup failed")
	ErrNoPluginsLoaded    = errors.New("no plugins loaded")
	ErrEssentialPlugin    = errors.New("essential plugin unavailable")
	ErrPluginIncompatible = errors.New("plugin not compatible with scan mode")
)
