package domain

// MergeStrategy selects how structured and unstructured results combine.
type MergeStrategy string

const (
	MergeSQLPrimary      MergeStrategy = "sql_primary"
	MergeDocumentPrimary MergeStrategy = "document_primary"
	MergeCombined        MergeStrategy = "combined"
)

// MergedItem is one entry of the final ranked answer list.
type MergedItem struct {
	Origin      string `json:"origin"` // "sql" or "document"
	Payload     any    `json:"payload"`
	Rank        int    `json:"rank"`
	SourceLabel string `json:"source"`
}

const (
	OriginSQL      = "sql"
	OriginDocument = "document"

	SourceDatabase  = "database"
	SourceDocuments = "documents"
)

// SQLPathResult is the tagged envelope of the structured path. A failed
// path reports its error here instead of aborting the request.
type SQLPathResult struct {
	Ran        bool              `json:"ran"`
	Succeeded  bool              `json:"succeeded"`
	Error      string            `json:"error,omitempty"`
	Candidate  QueryCandidate    `json:"candidate"`
	Rows       []map[string]any  `json:"rows,omitempty"`
	Confidence float64           `json:"confidence"`
}

// DocumentPathResult is the tagged envelope of the retrieval path.
type DocumentPathResult struct {
	Ran        bool              `json:"ran"`
	Succeeded  bool              `json:"succeeded"`
	Error      string            `json:"error,omitempty"`
	Candidates []SearchCandidate `json:"candidates,omitempty"`
	Confidence float64           `json:"confidence"`
}

// ResolvedAnswer is the full outcome of one resolution request.
type ResolvedAnswer struct {
	Classification Classification     `json:"classification"`
	Strategy       MergeStrategy      `json:"merge_strategy,omitempty"`
	Items          []MergedItem       `json:"results"`
	TotalResults   int                `json:"total_results"`
	Confidence     float64            `json:"confidence"`
	Success        bool               `json:"success"`
	Error          string             `json:"error,omitempty"`
	Notes          []string           `json:"notes,omitempty"`
	SQLPath        SQLPathResult      `json:"sql_path"`
	DocumentPath   DocumentPathResult `json:"document_path"`
}
