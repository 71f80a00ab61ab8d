package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/velikanov/hybrid-query-engine/internal/core/domain"
	"github.com/velikanov/hybrid-query-engine/internal/core/ports"
)

const (
	classifyCachePrefix = "query:classify:"
	classifyCacheTTL    = time.Hour
)

// indicator vocabularies for the deterministic fallback classifier.
var (
	sqlIndicators = []string{
		"how many", "count", "average", "sum", "total", "list all",
		"show all", "salary", "department", "employee", "hired",
		"greater than", "less than", "between", "statistics",
	}
	documentIndicators = []string{
		"resume", "cv", "contract", "agreement", "review", "policy",
		"document", "experience", "skills", "worked at", "mentioned",
		"says about", "written", "describe",
	}
	hybridIndicators = []string{
		"and their", "along with", "combined with", "as well as",
		"together with", "both",
	}
)

var (
	complexPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\bjoin\b`),
		regexp.MustCompile(`\bgroup by\b`),
		regexp.MustCompile(`\bcompare\b`),
		regexp.MustCompile(`\bcorrelat`),
		regexp.MustCompile(`\btrend\b`),
		regexp.MustCompile(`\bacross\b`),
	}
	mediumPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\bfilter\b`),
		regexp.MustCompile(`\bwhere\b`),
		regexp.MustCompile(`\bbetween\b`),
		regexp.MustCompile(`\bgreater\b`),
		regexp.MustCompile(`\bless\b`),
		regexp.MustCompile(`\bsorted\b`),
	}
)

// entityVocabulary is ordered so extraction is deterministic.
var entityVocabulary = []struct {
	entity   string
	keywords []string
}{
	{"employee", []string{"employee", "worker", "staff", "person", "people"}},
	{"department", []string{"department", "team", "division", "unit"}},
	{"salary", []string{"salary", "pay", "compensation", "wage"}},
	{"resume", []string{"resume", "cv", "curriculum"}},
	{"contract", []string{"contract", "agreement"}},
	{"review", []string{"review", "evaluation", "performance"}},
	{"policy", []string{"policy", "procedure", "guideline"}},
	{"date", []string{"date", "when", "year", "month", "hired"}},
	{"skill", []string{"skill", "experience", "expertise", "qualification"}},
}

// intentVocabulary is ordered by precedence: the first matching intent wins.
var intentVocabulary = []struct {
	intent   string
	keywords []string
}{
	{"count", []string{"how many", "count", "number of"}},
	{"aggregate", []string{"average", "sum", "total", "max", "min", "mean"}},
	{"list", []string{"list", "show all", "show me all", "enumerate"}},
	{"search", []string{"find", "search", "look for", "locate"}},
	{"compare", []string{"compare", "versus", "difference between"}},
	{"filter", []string{"filter", "only", "where", "with"}},
}

// ClassifyUseCase routes a natural-language question to a query type.
// It consults the oracle once; on any oracle failure it falls back to
// deterministic vocabulary scoring, so classification never fails for
// reasons other than empty input.
type ClassifyUseCase struct {
	oracle        ports.QueryOracle
	cache         ports.Cache
	oracleTimeout time.Duration
}

func NewClassifyUseCase(oracle ports.QueryOracle, cache ports.Cache, oracleTimeout time.Duration) *ClassifyUseCase {
	if oracleTimeout <= 0 {
		oracleTimeout = 10 * time.Second
	}
	return &ClassifyUseCase{
		oracle:        oracle,
		cache:         cache,
		oracleTimeout: oracleTimeout,
	}
}

func (uc *ClassifyUseCase) Classify(ctx context.Context, query domain.Query) (domain.Classification, error) {
	sanitized := sanitizeQueryText(query.Text)
	if sanitized == "" {
		return domain.Classification{}, domain.WrapError(domain.ErrInvalidInput, "classify query", errors.New("empty query after sanitization"))
	}
	normalized := normalizeQueryText(sanitized)

	cacheKey := classifyCachePrefix + hashKey(normalized)
	if uc.cache != nil {
		if raw, ok := uc.cache.Get(ctx, cacheKey); ok {
			var cached domain.Classification
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return cached, nil
			}
		}
	}

	cls := uc.baseClassification(ctx, normalized, query.Context)
	cls = enhanceClassification(normalized, cls)
	cls.SanitizedQuery = sanitized

	if uc.cache != nil {
		if raw, err := json.Marshal(cls); err == nil {
			uc.cache.Set(ctx, cacheKey, string(raw), classifyCacheTTL)
		}
	}
	return cls, nil
}

func (uc *ClassifyUseCase) baseClassification(ctx context.Context, normalized string, userContext map[string]string) domain.Classification {
	if uc.oracle != nil {
		oracleCtx, cancel := context.WithTimeout(ctx, uc.oracleTimeout)
		defer cancel()

		cls, err := uc.oracle.JudgeQuery(oracleCtx, normalized, userContext)
		if err == nil {
			return cls
		}
	}
	return fallbackClassification(normalized)
}

// fallbackClassification scores the query against indicator
// vocabularies. Hybrid wins when a hybrid marker co-occurs with either
// single-path vocabulary; ties between SQL and document counts resolve
// to SQL at low confidence.
func fallbackClassification(normalized string) domain.Classification {
	sqlCount := countIndicators(normalized, sqlIndicators)
	docCount := countIndicators(normalized, documentIndicators)
	hybridCount := countIndicators(normalized, hybridIndicators)

	var queryType domain.QueryType
	var confidence float64

	switch {
	case hybridCount > 0 && (sqlCount > 0 || docCount > 0):
		queryType = domain.QueryTypeHybrid
		confidence = hybridConfidence(sqlCount + docCount + hybridCount)
	case sqlCount > docCount:
		queryType = domain.QueryTypeSQL
		confidence = hybridConfidence(sqlCount)
	case docCount > sqlCount:
		queryType = domain.QueryTypeDocument
		confidence = hybridConfidence(docCount)
	default:
		queryType = domain.QueryTypeSQL
		confidence = 0.3
	}

	return domain.Classification{
		Type:       queryType,
		Confidence: confidence,
		Reasoning:  fmt.Sprintf("indicator match: sql=%d document=%d hybrid=%d", sqlCount, docCount, hybridCount),
	}
}

func hybridConfidence(matches int) float64 {
	c := 0.5 + 0.1*float64(matches)
	if c > 0.8 {
		return 0.8
	}
	return c
}

func countIndicators(text string, indicators []string) int {
	n := 0
	for _, ind := range indicators {
		if strings.Contains(text, ind) {
			n++
		}
	}
	return n
}

// enhanceClassification re-derives the deterministic fields regardless
// of where the base classification came from, so oracle drift cannot
// change complexity, entities or intent between runs.
func enhanceClassification(normalized string, cls domain.Classification) domain.Classification {
	if !domain.ValidQueryType(cls.Type) {
		cls.Type = domain.QueryTypeUnknown
	}
	cls.Confidence = domain.ClampConfidence(cls.Confidence)
	cls.Complexity = detectComplexity(normalized)
	cls.Entities = detectEntities(normalized)
	cls.Intent = detectIntent(normalized)
	return cls
}

func detectComplexity(normalized string) domain.Complexity {
	for _, p := range complexPatterns {
		if p.MatchString(normalized) {
			return domain.ComplexityComplex
		}
	}
	for _, p := range mediumPatterns {
		if p.MatchString(normalized) {
			return domain.ComplexityMedium
		}
	}
	return domain.ComplexitySimple
}

func detectEntities(normalized string) []string {
	var entities []string
	for _, group := range entityVocabulary {
		for _, kw := range group.keywords {
			if strings.Contains(normalized, kw) {
				entities = append(entities, group.entity)
				break
			}
		}
	}
	return entities
}

func detectIntent(normalized string) string {
	for _, group := range intentVocabulary {
		for _, kw := range group.keywords {
			if strings.Contains(normalized, kw) {
				return group.intent
			}
		}
	}
	return "general"
}
