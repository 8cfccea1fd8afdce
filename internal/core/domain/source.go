package domain

import "time"

type SourceStatus string

const (
	SourceUploaded   SourceStatus = "uploaded"
	SourceProcessing SourceStatus = "processing"
	SourceReady      SourceStatus = "ready"
	SourceFailed     SourceStatus = "failed"
)

// Source is one ingested FAQ workbook. The registry tracks its lifecycle so
// operators can see what the two indexes were built from.
type Source struct {
	ID            string       `json:"id"`
	Filename      string       `json:"filename"`
	MimeType      string       `json:"mime_type"`
	StoragePath   string       `json:"storage_path"`
	Status        SourceStatus `json:"status"`
	RecordCount   int          `json:"record_count"`
	ProductCount  int          `json:"product_count"`
	CustomerCount int          `json:"customer_count"`
	Error         string       `json:"error,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}
