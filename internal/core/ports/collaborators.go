// internal/core/ports/collaborators.go
package ports

import (
	"context"
	"net/http"
	"time"

	"reconbus/internal/core/domain"
)

// Resolver es el port de resolución DNS.
type Resolver interface {
	// LookupHost retorna las direcciones A y AAAA de host
	LookupHost(ctx context.Context, host string) ([]string, error)

	// LookupAddr retorna los nombres PTR de ip
	LookupAddr(ctx context.Context, ip string) ([]string, error)

	// LookupRecords retorna los registros del tipo indicado ("MX", "NS", "TXT", ...)
	// en presentación textual
	LookupRecords(ctx context.Context, name, recordType string) ([]string, error)
}

// FetchResponse es el resultado de una descarga HTTP.
type FetchResponse struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Fetcher es el port de descarga HTTP. Los reintentos y el rate limiting
// son responsabilidad de la implementación.
type Fetcher interface {
	Fetch(ctx context.Context, url string, headers map[string]string) (*FetchResponse, error)
}

// WhoisRecord es la respuesta WHOIS ya interpretada.
type WhoisRecord struct {
	Domain      string
	Raw         string
	Registrar   string
	Registrant  string
	Emails      []string
	NameServers []string
	Created     string
	Expires     string
}

// WhoisClient es el port de consultas WHOIS.
type WhoisClient interface {
	Lookup(ctx context.Context, domain string) (*WhoisRecord, error)
}

// ScanRecord describe una instancia de escaneo persistida.
type ScanRecord struct {
	ID          string
	Name        string
	TargetValue string
	TargetType  domain.EventType
	Status      domain.ScanStatus
	Created     time.Time
	Started     time.Time
	Ended       time.Time
}

// StoredEvent es la fila persistida de un evento.
type StoredEvent struct {
	ScanID     string
	Hash       string
	Type       domain.EventType
	Data       string
	Module     string
	SourceHash string
	Created    time.Time
	Risk       domain.Risk
	Confidence int
	Visibility int
}

// RootSourceHash es el SourceHash persistido del evento raíz.
const RootSourceHash = "ROOT"

// NewStoredEvent construye la fila de un evento para el escaneo dado.
func NewStoredEvent(scanID string, ev *domain.Event) StoredEvent {
	source := ev.SourceHash()
	if ev.IsRoot() {
		source = RootSourceHash
	}
	return StoredEvent{
		ScanID:     scanID,
		Hash:       ev.Hash(),
		Type:       ev.Type(),
		Data:       ev.Data(),
		Module:     ev.Module(),
		SourceHash: source,
		Created:    ev.Created(),
		Risk:       ev.Risk(),
		Confidence: ev.Confidence(),
		Visibility: ev.Visibility(),
	}
}

// EventStore es el port de persistencia de resultados.
type EventStore interface {
	// SaveScan crea o reemplaza el registro de un escaneo
	SaveScan(ctx context.Context, scan ScanRecord) error

	// UpdateScanStatus actualiza el estado y las marcas de tiempo
	UpdateScanStatus(ctx context.Context, scanID string, status domain.ScanStatus, at time.Time) error

	// StoreEvent persiste un evento
	StoreEvent(ctx context.Context, ev StoredEvent) error

	// ScanEvents retorna los eventos de un escaneo en orden de inserción
	ScanEvents(ctx context.Context, scanID string) ([]StoredEvent, error)

	// GetScan retorna el registro de un escaneo
	GetScan(ctx context.Context, scanID string) (*ScanRecord, error)

	Close() error
}
