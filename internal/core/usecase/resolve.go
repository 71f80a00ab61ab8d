package usecase

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/velikanov/hybrid-query-engine/internal/core/domain"
	"github.com/velikanov/hybrid-query-engine/internal/core/ports"
)

const (
	resolveCachePrefix = "query:resolve:"
	resolveCacheTTL    = time.Hour

	// unknownTypeConfidence caps answers whose routing stayed UNKNOWN.
	unknownTypeConfidence = 0.3

	// documentPathConfidence is the fixed prior for a retrieval path
	// that returned without error.
	documentPathConfidence = 0.8
)

// ResolveUseCase runs the full pipeline: classify, fan out to the
// structured and document paths as the routing demands, then merge.
// A path failure degrades the answer instead of failing the request;
// only invalid input or a total loss of both paths is an error state.
type ResolveUseCase struct {
	classifier  *ClassifyUseCase
	planner     *GenerateSQLUseCase
	executor    ports.StatementExecutor
	searcher    *SearchUseCase
	cache       ports.Cache
	pathTimeout time.Duration
	docLimit    int
}

func NewResolveUseCase(
	classifier *ClassifyUseCase,
	planner *GenerateSQLUseCase,
	executor ports.StatementExecutor,
	searcher *SearchUseCase,
	cache ports.Cache,
	pathTimeout time.Duration,
	docLimit int,
) *ResolveUseCase {
	if pathTimeout <= 0 {
		pathTimeout = 30 * time.Second
	}
	if docLimit <= 0 {
		docLimit = defaultSearchLimit
	}
	return &ResolveUseCase{
		classifier:  classifier,
		planner:     planner,
		executor:    executor,
		searcher:    searcher,
		cache:       cache,
		pathTimeout: pathTimeout,
		docLimit:    docLimit,
	}
}

func (uc *ResolveUseCase) Resolve(ctx context.Context, query domain.Query, limit int) (*domain.ResolvedAnswer, error) {
	classification, err := uc.classifier.Classify(ctx, query)
	if err != nil {
		return nil, err
	}
	if query.TypeHint != "" && domain.ValidQueryType(query.TypeHint) {
		classification.Type = query.TypeHint
	}

	cacheKey := resolveCachePrefix + hashKey(normalizeQueryText(classification.SanitizedQuery))
	if uc.cache != nil {
		if raw, ok := uc.cache.Get(ctx, cacheKey); ok {
			var cached domain.ResolvedAnswer
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return &cached, nil
			}
		}
	}

	runSQL := classification.Type == domain.QueryTypeSQL ||
		classification.Type == domain.QueryTypeHybrid ||
		classification.Type == domain.QueryTypeUnknown
	runDocs := classification.Type == domain.QueryTypeDocument ||
		classification.Type == domain.QueryTypeHybrid ||
		classification.Type == domain.QueryTypeUnknown

	var sqlResult domain.SQLPathResult
	var docResult domain.DocumentPathResult

	if runSQL && runDocs {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			sqlResult = uc.runStructuredPath(ctx, query)
		}()
		go func() {
			defer wg.Done()
			docResult = uc.runDocumentPath(ctx, query, classification, limit)
		}()
		wg.Wait()
	} else if runSQL {
		sqlResult = uc.runStructuredPath(ctx, query)
	} else if runDocs {
		docResult = uc.runDocumentPath(ctx, query, classification, limit)
	}

	answer := assembleAnswer(classification, sqlResult, docResult)

	if uc.cache != nil && answer.Success {
		if raw, err := json.Marshal(answer); err == nil {
			uc.cache.Set(ctx, cacheKey, string(raw), resolveCacheTTL)
		}
	}
	return answer, nil
}

func (uc *ResolveUseCase) runStructuredPath(ctx context.Context, query domain.Query) domain.SQLPathResult {
	pathCtx, cancel := context.WithTimeout(ctx, uc.pathTimeout)
	defer cancel()

	result := domain.SQLPathResult{Ran: true}

	candidate, err := uc.planner.Plan(pathCtx, query)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Candidate = candidate
	result.Confidence = candidate.Confidence

	if !candidate.SecurityValid {
		result.Error = "statement rejected by security validation"
		return result
	}

	rows, err := uc.executor.Execute(pathCtx, candidate.Statement, DefaultRowLimit)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Succeeded = true
	result.Rows = rows
	return result
}

func (uc *ResolveUseCase) runDocumentPath(ctx context.Context, query domain.Query, classification domain.Classification, limit int) domain.DocumentPathResult {
	pathCtx, cancel := context.WithTimeout(ctx, uc.pathTimeout)
	defer cancel()

	result := domain.DocumentPathResult{Ran: true}
	if limit <= 0 || limit > uc.docLimit {
		limit = uc.docLimit
	}

	filter := domain.SearchFilter{Category: categoryFromEntities(classification.Entities)}
	candidates, err := uc.searcher.Search(pathCtx, query.Text, filter, limit)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Succeeded = true
	result.Candidates = candidates
	result.Confidence = documentPathConfidence
	return result
}

// categoryFromEntities narrows the search to one collection when the
// classifier extracted a category-shaped entity.
func categoryFromEntities(entities []string) string {
	for _, e := range entities {
		switch e {
		case "resume", "contract", "review", "policy":
			return e
		}
	}
	return ""
}

// assembleAnswer merges both path envelopes into the final answer.
// Deterministic for fixed inputs: strategy, order and confidence depend
// only on the classification and the path results.
func assembleAnswer(classification domain.Classification, sqlResult domain.SQLPathResult, docResult domain.DocumentPathResult) *domain.ResolvedAnswer {
	answer := &domain.ResolvedAnswer{
		Classification: classification,
		SQLPath:        sqlResult,
		DocumentPath:   docResult,
	}

	sqlOK := sqlResult.Ran && sqlResult.Succeeded
	docOK := docResult.Ran && docResult.Succeeded

	if !sqlOK && !docOK {
		answer.Success = false
		answer.Error = failureSummary(sqlResult, docResult)
		answer.Items = []domain.MergedItem{}
		return answer
	}

	if sqlResult.Ran && !sqlOK {
		answer.Notes = append(answer.Notes, "structured path contributed no results: "+sqlResult.Error)
	}
	if docResult.Ran && !docOK {
		answer.Notes = append(answer.Notes, "document path contributed no results: "+docResult.Error)
	}

	var rows []map[string]any
	if sqlOK {
		rows = sqlResult.Rows
	}
	var docs []domain.SearchCandidate
	if docOK {
		docs = docResult.Candidates
	}

	answer.Strategy = selectMergeStrategy(classification.SanitizedQuery, len(rows), len(docs))
	answer.Items = mergeResults(answer.Strategy, rows, docs)
	answer.TotalResults = len(answer.Items)
	answer.Success = true
	answer.Confidence = answerConfidence(classification.Type, sqlResult, docResult, sqlOK, docOK)
	return answer
}

func answerConfidence(queryType domain.QueryType, sqlResult domain.SQLPathResult, docResult domain.DocumentPathResult, sqlOK, docOK bool) float64 {
	switch {
	case queryType == domain.QueryTypeUnknown:
		return unknownTypeConfidence
	case sqlOK && docOK:
		return domain.ClampConfidence((sqlResult.Confidence + docResult.Confidence) / 2)
	case sqlOK:
		return domain.ClampConfidence(sqlResult.Confidence)
	case docOK:
		return domain.ClampConfidence(docResult.Confidence)
	default:
		return 0
	}
}

func failureSummary(sqlResult domain.SQLPathResult, docResult domain.DocumentPathResult) string {
	var parts []string
	if sqlResult.Ran && sqlResult.Error != "" {
		parts = append(parts, "sql path: "+sqlResult.Error)
	}
	if docResult.Ran && docResult.Error != "" {
		parts = append(parts, "document path: "+docResult.Error)
	}
	if len(parts) == 0 {
		return "no resolution path produced results"
	}
	return strings.Join(parts, "; ")
}
