package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/velikanov/hybrid-query-engine/internal/core/domain"
	"github.com/velikanov/hybrid-query-engine/internal/core/ports"
)

const (
	defaultEmbedBatchSize   = 32
	defaultEmbedConcurrency = 4
)

// categoryPatterns detect a document's category from its text when the
// uploader did not set one. Ordered: earlier categories win ties.
var categoryPatterns = []struct {
	category string
	patterns []*regexp.Regexp
}{
	{"resume", compilePatterns(`\bresume\b`, `\bcurriculum vitae\b`, `\bwork experience\b`, `\bprofessional summary\b`, `\beducation\b.*\bskills\b`)},
	{"contract", compilePatterns(`\bcontract\b`, `\bagreement\b`, `\bparty of the first part\b`, `\bterms and conditions\b`, `\bhereby agree\b`)},
	{"review", compilePatterns(`\bperformance review\b`, `\bevaluation\b`, `\bgoals and objectives\b`, `\bareas for improvement\b`, `\brating\b`)},
	{"policy", compilePatterns(`\bpolicy\b`, `\bprocedure\b`, `\bcompliance\b`, `\bguideline\b`, `\bviolation\b`)},
}

func compilePatterns(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile(`(?is)`+e))
	}
	return out
}

// IndexDocumentUseCase turns one stored document into embedded chunks:
// extract, detect category if missing, split per policy, embed in
// batches, index into the category collection plus the generic one.
type IndexDocumentUseCase struct {
	repo             ports.DocumentRepository
	extractor        ports.TextExtractor
	chunker          ports.Chunker
	embedder         ports.Embedder
	vector           ports.VectorStore
	embedBatchSize   int
	embedConcurrency int
}

func NewIndexDocumentUseCase(
	repo ports.DocumentRepository,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	vector ports.VectorStore,
	embedBatchSize int,
	embedConcurrency int,
) *IndexDocumentUseCase {
	if embedBatchSize <= 0 {
		embedBatchSize = defaultEmbedBatchSize
	}
	if embedConcurrency <= 0 {
		embedConcurrency = defaultEmbedConcurrency
	}
	return &IndexDocumentUseCase{
		repo:             repo,
		extractor:        extractor,
		chunker:          chunker,
		embedder:         embedder,
		vector:           vector,
		embedBatchSize:   embedBatchSize,
		embedConcurrency: embedConcurrency,
	}
}

func (uc *IndexDocumentUseCase) IndexByID(ctx context.Context, documentID string) error {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("load document %s: %w", documentID, err)
	}

	if err := uc.repo.UpdateStatus(ctx, doc.ID, domain.StatusIndexing, ""); err != nil {
		return fmt.Errorf("mark document indexing: %w", err)
	}

	if err := uc.index(ctx, doc); err != nil {
		if markErr := uc.repo.UpdateStatus(ctx, doc.ID, domain.StatusFailed, err.Error()); markErr != nil {
			return errors.Join(err, fmt.Errorf("mark document failed: %w", markErr))
		}
		return err
	}

	if err := uc.repo.UpdateStatus(ctx, doc.ID, domain.StatusReady, ""); err != nil {
		return fmt.Errorf("mark document ready: %w", err)
	}
	return nil
}

func (uc *IndexDocumentUseCase) index(ctx context.Context, doc *domain.Document) error {
	text, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return fmt.Errorf("extract text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "index document", errors.New("document has no extractable text"))
	}

	category := doc.Category
	if category == "" {
		category = DetectCategory(text)
	}

	chunks := uc.chunker.Split(text, category)
	if len(chunks) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "index document", errors.New("no chunks produced"))
	}
	for i := range chunks {
		chunks[i].DocumentID = doc.ID
	}

	vectors, err := uc.embedAll(ctx, chunks)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}

	embedded := make([]domain.EmbeddedChunk, len(chunks))
	for i := range chunks {
		embedded[i] = domain.EmbeddedChunk{Chunk: chunks[i], Vector: vectors[i]}
	}

	collection := CollectionForCategory(category)
	if err := uc.vector.IndexChunks(ctx, collection, embedded); err != nil {
		return fmt.Errorf("index chunks into %s: %w", collection, err)
	}
	if collection != GenericCollection {
		if err := uc.vector.IndexChunks(ctx, GenericCollection, embedded); err != nil {
			return fmt.Errorf("index chunks into %s: %w", GenericCollection, err)
		}
	}

	if err := uc.repo.MarkIndexed(ctx, doc.ID, category, len(chunks)); err != nil {
		return fmt.Errorf("record chunk count: %w", err)
	}
	return nil
}

// embedAll fans the chunk texts out in fixed-size batches with bounded
// concurrency. Output order matches the chunk order.
func (uc *IndexDocumentUseCase) embedAll(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.embedConcurrency)

	for start := 0; start < len(chunks); start += uc.embedBatchSize {
		start := start
		end := start + uc.embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		g.Go(func() error {
			texts := make([]string, 0, end-start)
			for _, c := range chunks[start:end] {
				texts = append(texts, c.Text)
			}
			batch, err := uc.embedder.Embed(gctx, texts)
			if err != nil {
				return fmt.Errorf("embed batch [%d:%d]: %w", start, end, err)
			}
			if len(batch) != end-start {
				return fmt.Errorf("embed batch [%d:%d]: got %d vectors", start, end, len(batch))
			}
			mu.Lock()
			copy(vectors[start:end], batch)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// DetectCategory counts category pattern matches over the text and
// picks the strongest; "generic" when nothing matches.
func DetectCategory(text string) string {
	best := "generic"
	bestCount := 0
	for _, group := range categoryPatterns {
		count := 0
		for _, p := range group.patterns {
			if p.MatchString(text) {
				count++
			}
		}
		if count > bestCount {
			bestCount = count
			best = group.category
		}
	}
	return best
}
