package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/velikanov/hybrid-query-engine/internal/core/domain"
)

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]string
	sets    int
	gets    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]string)}
}

func (c *fakeCache) Get(_ context.Context, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	v, ok := c.entries[key]
	return v, ok
}

func (c *fakeCache) Set(_ context.Context, key, value string, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.entries[key] = value
}

type fakeOracle struct {
	classification domain.Classification
	classifyErr    error
	classifyCalls  int

	candidate domain.QueryCandidate
	draftErr  error
}

func (o *fakeOracle) JudgeQuery(_ context.Context, _ string, _ map[string]string) (domain.Classification, error) {
	o.classifyCalls++
	if o.classifyErr != nil {
		return domain.Classification{}, o.classifyErr
	}
	return o.classification, nil
}

func (o *fakeOracle) DraftStatement(_ context.Context, _ string, _ domain.SchemaDescription, _ map[string]string) (domain.QueryCandidate, error) {
	if o.draftErr != nil {
		return domain.QueryCandidate{}, o.draftErr
	}
	return o.candidate, nil
}

type fakeEmbedder struct {
	vector   []float32
	embedErr error
	calls    int
}

func (e *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.embedErr != nil {
		return nil, e.embedErr
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = e.vector
	}
	return out, nil
}

func (e *fakeEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	e.calls++
	if e.embedErr != nil {
		return nil, e.embedErr
	}
	return e.vector, nil
}

type fakeVectorStore struct {
	hits        map[string][]domain.VectorHit
	queryErrs   map[string]error
	indexErrs   map[string]error
	deleteErrs  map[string]error
	indexed     map[string][]domain.EmbeddedChunk
	deleted     map[string][]string
	collections []string
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{
		hits:        make(map[string][]domain.VectorHit),
		queryErrs:   make(map[string]error),
		indexErrs:   make(map[string]error),
		deleteErrs:  make(map[string]error),
		indexed:     make(map[string][]domain.EmbeddedChunk),
		deleted:     make(map[string][]string),
		collections: AllCollections(),
	}
}

func (s *fakeVectorStore) IndexChunks(_ context.Context, collection string, chunks []domain.EmbeddedChunk) error {
	if err := s.indexErrs[collection]; err != nil {
		return err
	}
	s.indexed[collection] = append(s.indexed[collection], chunks...)
	return nil
}

func (s *fakeVectorStore) Query(_ context.Context, collection string, _ []float32, _ int, _ map[string]string) ([]domain.VectorHit, error) {
	if err := s.queryErrs[collection]; err != nil {
		return nil, err
	}
	return s.hits[collection], nil
}

func (s *fakeVectorStore) Get(_ context.Context, collection string, _ map[string]string) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for _, h := range s.hits[collection] {
		chunks = append(chunks, h.Chunk)
	}
	return chunks, nil
}

func (s *fakeVectorStore) DeleteByDocument(_ context.Context, collection, documentID string) error {
	if err := s.deleteErrs[collection]; err != nil {
		return err
	}
	s.deleted[collection] = append(s.deleted[collection], documentID)
	return nil
}

func (s *fakeVectorStore) Collections() []string {
	return s.collections
}

func (s *fakeVectorStore) CollectionStats(_ context.Context) (map[string]int, error) {
	stats := make(map[string]int, len(s.collections))
	for _, collection := range s.collections {
		stats[collection] = len(s.indexed[collection])
	}
	return stats, nil
}

type fakeExecutor struct {
	rows       []map[string]any
	err        error
	statements []string
}

func (e *fakeExecutor) Execute(_ context.Context, statement string, _ int) ([]map[string]any, error) {
	e.statements = append(e.statements, statement)
	if e.err != nil {
		return nil, e.err
	}
	return e.rows, nil
}

type fakeSchema struct {
	schema domain.SchemaDescription
	err    error
}

func (s *fakeSchema) Describe(_ context.Context) (domain.SchemaDescription, error) {
	if s.err != nil {
		return domain.SchemaDescription{}, s.err
	}
	return s.schema, nil
}

type statusUpdate struct {
	id      string
	status  domain.DocumentStatus
	message string
}

type markIndexedCall struct {
	id         string
	category   string
	chunkCount int
}

type fakeRepo struct {
	docs      map[string]*domain.Document
	statuses  []statusUpdate
	marked    []markIndexedCall
	deleted   []string
	createErr error
	getErr    error
	updateErr error
	markErr   error
	deleteErr error
}

func newFakeRepo(docs ...*domain.Document) *fakeRepo {
	repo := &fakeRepo{docs: make(map[string]*domain.Document)}
	for _, doc := range docs {
		repo.docs[doc.ID] = doc
	}
	return repo
}

func (r *fakeRepo) Create(_ context.Context, doc *domain.Document) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.docs[doc.ID] = doc
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id string) (*domain.Document, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	doc, ok := r.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("no document %s", id))
	}
	return doc, nil
}

func (r *fakeRepo) UpdateStatus(_ context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.statuses = append(r.statuses, statusUpdate{id: id, status: status, message: errMessage})
	return nil
}

func (r *fakeRepo) MarkIndexed(_ context.Context, id, category string, chunkCount int) error {
	if r.markErr != nil {
		return r.markErr
	}
	r.marked = append(r.marked, markIndexedCall{id: id, category: category, chunkCount: chunkCount})
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, id string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	r.deleted = append(r.deleted, id)
	delete(r.docs, id)
	return nil
}

type fakeStorage struct {
	saved     map[string]string
	removed   []string
	removeErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{saved: make(map[string]string)}
}

func (s *fakeStorage) Save(_ context.Context, key string, data io.Reader) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	s.saved[key] = string(raw)
	return nil
}

func (s *fakeStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	raw, ok := s.saved[key]
	if !ok {
		return nil, fmt.Errorf("no blob at %s", key)
	}
	return io.NopCloser(strings.NewReader(raw)), nil
}

func (s *fakeStorage) Remove(_ context.Context, key string) error {
	if s.removeErr != nil {
		return s.removeErr
	}
	s.removed = append(s.removed, key)
	delete(s.saved, key)
	return nil
}

type fakeExtractor struct {
	text string
	err  error
}

func (e *fakeExtractor) Extract(_ context.Context, _ *domain.Document) (string, error) {
	return e.text, e.err
}

// fakeChunker emits one chunk per line of the extracted text, tagging
// each with the category it was asked to split for.
type fakeChunker struct {
	categories []string
	empty      bool
}

func (c *fakeChunker) Split(text, category string) []domain.Chunk {
	c.categories = append(c.categories, category)
	if c.empty {
		return nil
	}
	var chunks []domain.Chunk
	for i, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		chunks = append(chunks, domain.Chunk{
			Text:       line,
			ChunkIndex: i,
			Category:   category,
			ChunkType:  "size_based",
		})
	}
	return chunks
}

func employeeSchema() domain.SchemaDescription {
	return domain.SchemaDescription{
		Tables: []domain.TableSchema{
			{
				Name: "employees",
				Columns: []domain.ColumnSchema{
					{Name: "id", Type: "integer"},
					{Name: "name", Type: "text"},
					{Name: "department", Type: "text"},
					{Name: "salary", Type: "numeric"},
					{Name: "hired_at", Type: "date"},
				},
			},
			{
				Name: "departments",
				Columns: []domain.ColumnSchema{
					{Name: "id", Type: "integer"},
					{Name: "name", Type: "text"},
				},
			},
		},
	}
}

var errBoom = errors.New("boom")
