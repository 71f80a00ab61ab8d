package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/velikanov/hybrid-query-engine/internal/core/domain"
	"github.com/velikanov/hybrid-query-engine/internal/core/ports"
)

const (
	searchCachePrefix = "query:search:"
	searchCacheTTL    = time.Hour

	defaultSearchLimit = 10
	maxSearchLimit     = 100

	// similarityThreshold drops hits whose raw similarity is too weak
	// to contribute signal regardless of metadata.
	similarityThreshold = 0.3

	recencyWindow = 30 * 24 * time.Hour
)

// ranking weights: similarity dominates, the rest share the remainder.
const (
	weightSimilarity = 0.4
	weightPriority   = 0.2
	weightQuality    = 0.2
	weightBonus      = 0.2
)

// SearchUseCase embeds the query once and fans out over the target
// collections. A single failed collection is skipped; only when every
// collection fails is the search itself reported as unavailable.
type SearchUseCase struct {
	embedder ports.Embedder
	vector   ports.VectorStore
	cache    ports.Cache
	now      func() time.Time
}

func NewSearchUseCase(embedder ports.Embedder, vector ports.VectorStore, cache ports.Cache) *SearchUseCase {
	return &SearchUseCase{
		embedder: embedder,
		vector:   vector,
		cache:    cache,
		now:      time.Now,
	}
}

func (uc *SearchUseCase) Search(ctx context.Context, query string, filter domain.SearchFilter, limit int) ([]domain.SearchCandidate, error) {
	sanitized := sanitizeQueryText(query)
	if sanitized == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search documents", errors.New("empty query after sanitization"))
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	normalized := normalizeQueryText(sanitized)

	cacheKey := searchCachePrefix + hashKey(searchKeyPayload(normalized, filter, limit))
	if uc.cache != nil {
		if raw, ok := uc.cache.Get(ctx, cacheKey); ok {
			var cached []domain.SearchCandidate
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return cached, nil
			}
		}
	}

	vector, err := uc.embedder.EmbedQuery(ctx, sanitized)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRetrievalUnavailable, "embed query", err)
	}

	collections := targetCollections(filter.Category)
	var hits []domain.VectorHit
	var failures int
	var lastErr error
	for _, collection := range collections {
		collectionHits, err := uc.vector.Query(ctx, collection, vector, limit, filter.Metadata)
		if err != nil {
			failures++
			lastErr = err
			continue
		}
		hits = append(hits, collectionHits...)
	}
	if failures == len(collections) && lastErr != nil {
		return nil, domain.WrapError(domain.ErrRetrievalUnavailable, "vector search", lastErr)
	}

	candidates := rankCandidates(hits, normalized, uc.now().UTC())
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	if uc.cache != nil {
		if raw, err := json.Marshal(candidates); err == nil {
			uc.cache.Set(ctx, cacheKey, string(raw), searchCacheTTL)
		}
	}
	return candidates, nil
}

func targetCollections(category string) []string {
	if category == "" {
		return AllCollections()
	}
	return []string{CollectionForCategory(category)}
}

// searchKeyPayload canonicalizes every input that changes the result
// set, metadata filters included, so equal searches share a cache slot.
func searchKeyPayload(normalized string, filter domain.SearchFilter, limit int) string {
	keys := make([]string, 0, len(filter.Metadata))
	for k := range filter.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(normalized)
	fmt.Fprintf(&b, "|category=%s|limit=%d", filter.Category, limit)
	for _, k := range keys {
		fmt.Fprintf(&b, "|%s=%s", k, filter.Metadata[k])
	}
	return b.String()
}

// rankCandidates scores each hit, drops those below the similarity
// threshold and orders the rest by ranking score. Ties break on
// document id and chunk index so the order is reproducible.
func rankCandidates(hits []domain.VectorHit, normalized string, now time.Time) []domain.SearchCandidate {
	queryTerms := strings.Fields(normalized)

	candidates := make([]domain.SearchCandidate, 0, len(hits))
	for _, hit := range hits {
		similarity := domain.ClampConfidence(1 - hit.Distance)
		if similarity < similarityThreshold {
			continue
		}
		quality := contentQuality(hit.Chunk.Text, queryTerms)
		bonus := metadataBonus(hit.Chunk, now)
		priority := collectionPriority(hit.Collection)

		candidates = append(candidates, domain.SearchCandidate{
			Chunk:          hit.Chunk,
			Collection:     hit.Collection,
			RawSimilarity:  similarity,
			ContentQuality: quality,
			MetadataBonus:  bonus,
			RankingScore: weightSimilarity*similarity +
				weightPriority*priority +
				weightQuality*quality +
				weightBonus*bonus,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].RankingScore != candidates[j].RankingScore {
			return candidates[i].RankingScore > candidates[j].RankingScore
		}
		if candidates[i].Chunk.DocumentID != candidates[j].Chunk.DocumentID {
			return candidates[i].Chunk.DocumentID < candidates[j].Chunk.DocumentID
		}
		return candidates[i].Chunk.ChunkIndex < candidates[j].Chunk.ChunkIndex
	})
	return candidates
}

// contentQuality blends length, query-term overlap and structural
// shape into one [0,1] score.
func contentQuality(text string, queryTerms []string) float64 {
	lengthScore := float64(len(text)) / 1000
	if lengthScore > 1 {
		lengthScore = 1
	}

	overlap := 0.0
	if len(queryTerms) > 0 {
		lower := strings.ToLower(text)
		matched := 0
		for _, term := range queryTerms {
			if strings.Contains(lower, term) {
				matched++
			}
		}
		overlap = float64(matched) / float64(len(queryTerms))
	}

	structure := 0.5
	if strings.ContainsAny(text, ".!?") {
		structure += 0.2
	}
	if strings.ContainsAny(text, "\n\t") {
		structure += 0.2
	}
	if len(strings.Fields(text)) > 10 {
		structure += 0.1
	}
	if structure > 1 {
		structure = 1
	}

	return 0.3*lengthScore + 0.4*overlap + 0.3*structure
}

// knownSectionTypes are the section labels the per-category chunking
// policies can emit. Labels outside this set earn no ranking credit.
var knownSectionTypes = map[string]bool{
	"objective": true, "experience": true, "education": true,
	"skills": true, "projects": true,
	"parties": true, "terms": true, "payment": true,
	"termination": true, "signature": true,
	"goals": true, "achievements": true, "feedback": true,
	"rating": true, "development": true,
	"purpose": true, "policy": true, "compliance": true,
	"review": true, "contact": true,
}

var knownChunkTypes = map[string]bool{
	"section":    true,
	"size_based": true,
}

// metadataBonus rewards recognized labels and recent chunks, 0.1 per
// signal up to 0.4. Arbitrary tag values do not count: the category
// must map to a collection and the section/chunk types must come from
// the chunking policies.
func metadataBonus(chunk domain.Chunk, now time.Time) float64 {
	bonus := 0.0
	if _, ok := categoryCollections[chunk.Category]; ok {
		bonus += 0.1
	}
	if knownSectionTypes[chunk.SectionType] {
		bonus += 0.1
	}
	if knownChunkTypes[chunk.ChunkType] {
		bonus += 0.1
	}
	if !chunk.CreatedAt.IsZero() && now.Sub(chunk.CreatedAt) < recencyWindow {
		bonus += 0.1
	}
	return bonus
}
