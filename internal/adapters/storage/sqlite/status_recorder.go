package sqlite

import (
	"context"

	"reconbus/internal/core/domain"
	"reconbus/internal/core/ports"
	"reconbus/internal/platform/errors"
)

// StatusRecorder is a ports.Notifier that mirrors status transitions into
// tbl_scan_instance and plugin failures and warnings into tbl_scan_log.
type StatusRecorder struct {
	store *Store
}

// NewStatusRecorder creates a recorder writing to store. Closing the
// recorder does not close the store.
func NewStatusRecorder(store *Store) *StatusRecorder {
	return &StatusRecorder{store: store}
}

// Notify records n.
func (r *StatusRecorder) Notify(ctx context.Context, n ports.Notification) error {
	switch n.Type {
	case ports.NotificationStatusChanged:
		if n.Status == domain.StatusCreated {
			err := r.store.SaveScan(ctx, ports.ScanRecord{
				ID:          n.ScanID,
				Name:        n.Target,
				TargetValue: n.Target,
				Status:      n.Status,
				Created:     n.Timestamp,
			})
			if err != nil {
				return err
			}
		}
		return r.store.UpdateScanStatus(ctx, n.ScanID, n.Status, n.Timestamp)

	case ports.NotificationPluginFailed, ports.NotificationWarning:
		kind := "WARN"
		if n.Severity == ports.SeverityError {
			kind = "ERROR"
		}
		return r.store.AppendLog(ctx, LogEntry{
			ScanID:    n.ScanID,
			Generated: n.Timestamp,
			Component: n.Plugin,
			Type:      kind,
			Message:   n.Message,
		})

	default:
		return errors.Wrapf(errors.ErrInvalidInput, "unknown notification type %q", n.Type)
	}
}

func (r *StatusRecorder) Close() error { return nil }
