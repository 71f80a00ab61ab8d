package ports

import (
	"context"
	"io"

	"github.com/velikanov/hybrid-query-engine/internal/core/domain"
)

// QueryResolver is the inbound contract for full pipeline resolution.
type QueryResolver interface {
	Resolve(ctx context.Context, query domain.Query, limit int) (*domain.ResolvedAnswer, error)
}

// QueryClassifier exposes the classification stage on its own.
type QueryClassifier interface {
	Classify(ctx context.Context, query domain.Query) (domain.Classification, error)
}

// StatementPlanner exposes generation+validation without execution.
type StatementPlanner interface {
	Plan(ctx context.Context, query domain.Query) (domain.QueryCandidate, error)
}

// DocumentSearcher is the inbound contract for direct document retrieval.
type DocumentSearcher interface {
	Search(ctx context.Context, query string, filter domain.SearchFilter, limit int) ([]domain.SearchCandidate, error)
}

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType, category string, body io.Reader) (*domain.Document, error)
}

// DocumentIndexer is the inbound contract for asynchronous chunk indexing.
type DocumentIndexer interface {
	IndexByID(ctx context.Context, documentID string) error
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

// DocumentRemover deletes a document and cascades to its chunks.
type DocumentRemover interface {
	Remove(ctx context.Context, documentID string) error
}
