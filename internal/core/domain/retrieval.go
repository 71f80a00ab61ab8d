package domain

import "time"

// Chunk is one bounded span of a document's text, the unit of retrieval.
type Chunk struct {
	Text        string    `json:"text"`
	DocumentID  string    `json:"document_id"`
	ChunkIndex  int       `json:"chunk_index"`
	Category    string    `json:"category"`
	SectionType string    `json:"section_type,omitempty"`
	ChunkType   string    `json:"chunk_type,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// EmbeddedChunk is a chunk paired with its embedding vector. The vector
// store owns these long-term.
type EmbeddedChunk struct {
	Chunk
	Vector []float32 `json:"-"`
}

// VectorHit is one raw result from a vector-store similarity query.
// Distance follows the store contract: raw similarity is 1 - Distance.
type VectorHit struct {
	Chunk      Chunk
	Collection string
	Distance   float64
}

// SearchCandidate is a ranked retrieval result, transient within one call.
type SearchCandidate struct {
	Chunk          Chunk   `json:"chunk"`
	Collection     string  `json:"collection"`
	RawSimilarity  float64 `json:"raw_similarity"`
	ContentQuality float64 `json:"content_quality"`
	MetadataBonus  float64 `json:"metadata_bonus"`
	RankingScore   float64 `json:"ranking_score"`
}

// SearchFilter narrows a retrieval call.
type SearchFilter struct {
	Category string            `json:"category,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}
