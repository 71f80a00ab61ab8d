package ports

import (
	"context"
	"io"
	"time"

	"github.com/velikanov/hybrid-query-engine/internal/core/domain"
)

// QueryOracle is the language-model capability consulted for routing
// judgements and statement drafting. Callers never retry a failed call;
// each stage carries its own deterministic fallback.
type QueryOracle interface {
	JudgeQuery(ctx context.Context, question string, userContext map[string]string) (domain.Classification, error)
	DraftStatement(ctx context.Context, question string, schema domain.SchemaDescription, userContext map[string]string) (domain.QueryCandidate, error)
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore indexes chunks into named collections and answers
// similarity queries. Query returns distances; similarity is 1 - distance.
type VectorStore interface {
	IndexChunks(ctx context.Context, collection string, chunks []domain.EmbeddedChunk) error
	Query(ctx context.Context, collection string, vector []float32, limit int, metadata map[string]string) ([]domain.VectorHit, error)
	Get(ctx context.Context, collection string, metadata map[string]string) ([]domain.Chunk, error)
	DeleteByDocument(ctx context.Context, collection, documentID string) error
	Collections() []string
	CollectionStats(ctx context.Context) (map[string]int, error)
}

// StatementExecutor runs a vetted read-only statement against the
// relational store. The pipeline never talks to the database directly.
type StatementExecutor interface {
	Execute(ctx context.Context, statement string, rowLimit int) ([]map[string]any, error)
}

// SchemaProvider supplies the schema description fed to the generator.
type SchemaProvider interface {
	Describe(ctx context.Context) (domain.SchemaDescription, error)
}

// Cache is an idempotent key-value store with per-entry TTL. A read past
// expiry is a miss.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration)
}

// Chunker splits extracted text into retrieval units per category policy.
type Chunker interface {
	Split(text, category string) []domain.Chunk
}

// DocumentRepository persists and reads document metadata.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	MarkIndexed(ctx context.Context, id, category string, chunkCount int) error
	Delete(ctx context.Context, id string) error
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts plain text from a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (string, error)
}
