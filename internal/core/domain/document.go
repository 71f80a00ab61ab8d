package domain

import "time"

type DocumentStatus string

const (
	StatusUploaded DocumentStatus = "uploaded"
	StatusIndexing DocumentStatus = "indexing"
	StatusReady    DocumentStatus = "ready"
	StatusFailed   DocumentStatus = "failed"
)

// Document is the metadata record of one ingested source document. Its
// chunks live in the vector store and are deleted with it.
type Document struct {
	ID          string         `json:"id"`
	Filename    string         `json:"filename"`
	MimeType    string         `json:"mime_type"`
	StoragePath string         `json:"storage_path"`
	Category    string         `json:"category,omitempty"`
	ChunkCount  int            `json:"chunk_count,omitempty"`
	Status      DocumentStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
