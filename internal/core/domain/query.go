package domain

// QueryType is the routing decision for a natural-language question.
type QueryType string

const (
	QueryTypeSQL      QueryType = "SQL_QUERY"
	QueryTypeDocument QueryType = "DOCUMENT_QUERY"
	QueryTypeHybrid   QueryType = "HYBRID_QUERY"
	QueryTypeUnknown  QueryType = "UNKNOWN"
)

type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityMedium  Complexity = "medium"
	ComplexityComplex Complexity = "complex"
)

// Query is an inbound resolution request.
type Query struct {
	Text     string            `json:"text"`
	Context  map[string]string `json:"context,omitempty"`
	TypeHint QueryType         `json:"type_hint,omitempty"`
}

// Classification is the immutable routing judgement for one request.
// SanitizedQuery is the text all downstream matching ran against.
type Classification struct {
	Type           QueryType  `json:"query_type"`
	Confidence     float64    `json:"confidence"`
	Entities       []string   `json:"entities"`
	Intent         string     `json:"intent"`
	Complexity     Complexity `json:"complexity"`
	Reasoning      string     `json:"reasoning"`
	SanitizedQuery string     `json:"sanitized_query"`
}

// ValidQueryType reports whether t is one of the recognized routing types.
func ValidQueryType(t QueryType) bool {
	switch t {
	case QueryTypeSQL, QueryTypeDocument, QueryTypeHybrid, QueryTypeUnknown:
		return true
	default:
		return false
	}
}

// ClampConfidence forces a score into [0,1].
func ClampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
