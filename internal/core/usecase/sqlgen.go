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
	sqlGenCachePrefix = "query:sqlgen:"
	sqlGenCacheTTL    = 2 * time.Hour

	// DefaultRowLimit bounds every generated SELECT that carries no
	// explicit LIMIT, aggregates included.
	DefaultRowLimit = 1000

	schemaMissPenalty = 0.2
)

// forbiddenKeywords are matched as whole words after whitespace
// normalization, so casing and spacing tricks do not slip past.
var forbiddenKeywords = []string{
	"DROP", "DELETE", "UPDATE", "INSERT", "ALTER",
	"CREATE", "TRUNCATE", "EXEC", "EXECUTE",
}

var (
	forbiddenKeywordPattern = buildKeywordPattern(forbiddenKeywords)
	sqlCommentPattern       = regexp.MustCompile(`(?s)--|/\*.*?\*/|#`)
	unionSelectPattern      = regexp.MustCompile(`(?is)\bUNION\b.*\bSELECT\b`)
	tautologyPattern        = regexp.MustCompile(`(?is)\bOR\b.*\b1\b\s*=\s*1\b`)
	fromTablePattern        = regexp.MustCompile(`(?i)\b(?:FROM|JOIN)\s+([A-Za-z_]\w*)`)
	qualifiedColumnPattern  = regexp.MustCompile(`\b([A-Za-z_]\w*)\.([A-Za-z_]\w*)\b`)
	limitClausePattern      = regexp.MustCompile(`(?i)\bLIMIT\s+\d+`)
)

func buildKeywordPattern(keywords []string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b(` + strings.Join(keywords, "|") + `)\b`)
}

// GenerateSQLUseCase drafts a read-only SELECT for a question and
// validates it against the security deny-list and the known schema.
// Validation never errors out: a rejected statement is returned with
// SecurityValid=false and zero confidence so callers can report it.
type GenerateSQLUseCase struct {
	oracle        ports.QueryOracle
	schema        ports.SchemaProvider
	cache         ports.Cache
	oracleTimeout time.Duration
}

func NewGenerateSQLUseCase(oracle ports.QueryOracle, schema ports.SchemaProvider, cache ports.Cache, oracleTimeout time.Duration) *GenerateSQLUseCase {
	if oracleTimeout <= 0 {
		oracleTimeout = 15 * time.Second
	}
	return &GenerateSQLUseCase{
		oracle:        oracle,
		schema:        schema,
		cache:         cache,
		oracleTimeout: oracleTimeout,
	}
}

func (uc *GenerateSQLUseCase) Plan(ctx context.Context, query domain.Query) (domain.QueryCandidate, error) {
	sanitized := sanitizeQueryText(query.Text)
	if sanitized == "" {
		return domain.QueryCandidate{}, domain.WrapError(domain.ErrInvalidInput, "plan statement", errors.New("empty query after sanitization"))
	}
	normalized := normalizeQueryText(sanitized)

	cacheKey := sqlGenCachePrefix + hashKey(normalized)
	if uc.cache != nil {
		if raw, ok := uc.cache.Get(ctx, cacheKey); ok {
			var cached domain.QueryCandidate
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return cached, nil
			}
		}
	}

	schema := domain.SchemaDescription{}
	if uc.schema != nil {
		if described, err := uc.schema.Describe(ctx); err == nil {
			schema = described
		}
	}

	candidate := uc.draft(ctx, normalized, schema, query.Context)
	candidate = ValidateCandidate(candidate, schema)

	if uc.cache != nil {
		if raw, err := json.Marshal(candidate); err == nil {
			uc.cache.Set(ctx, cacheKey, string(raw), sqlGenCacheTTL)
		}
	}
	return candidate, nil
}

func (uc *GenerateSQLUseCase) draft(ctx context.Context, normalized string, schema domain.SchemaDescription, userContext map[string]string) domain.QueryCandidate {
	if uc.oracle != nil {
		oracleCtx, cancel := context.WithTimeout(ctx, uc.oracleTimeout)
		defer cancel()

		candidate, err := uc.oracle.DraftStatement(oracleCtx, normalized, schema, userContext)
		if err == nil && strings.TrimSpace(candidate.Statement) != "" {
			return candidate
		}
	}
	return templateStatement(normalized, schema)
}

// templateStatement is the deterministic fallback generator: intent
// keyed templates over the first known table.
func templateStatement(normalized string, schema domain.SchemaDescription) domain.QueryCandidate {
	if len(schema.Tables) == 0 {
		return domain.QueryCandidate{
			Statement:  "SELECT 1",
			Confidence: 0.1,
			Reasoning:  "template generation without schema",
		}
	}

	table := schema.Tables[0]
	intent := detectIntent(normalized)

	var statement string
	switch intent {
	case "count":
		statement = fmt.Sprintf("SELECT COUNT(*) FROM %s", table.Name)
	case "aggregate":
		if col, ok := firstNumericColumn(table); ok {
			statement = fmt.Sprintf("SELECT AVG(%s) FROM %s", col, table.Name)
		} else {
			statement = fmt.Sprintf("SELECT COUNT(*) FROM %s", table.Name)
		}
	default:
		statement = fmt.Sprintf("SELECT * FROM %s LIMIT 10", table.Name)
	}

	return domain.QueryCandidate{
		Statement:  statement,
		TablesUsed: []string{table.Name},
		Confidence: 0.6,
		Reasoning:  fmt.Sprintf("template generation for %q intent", intent),
	}
}

var numericTypes = map[string]bool{
	"int": true, "integer": true, "bigint": true, "smallint": true,
	"numeric": true, "decimal": true, "real": true,
	"double precision": true, "float": true,
}

func firstNumericColumn(table domain.TableSchema) (string, bool) {
	for _, col := range table.Columns {
		if numericTypes[strings.ToLower(col.Type)] {
			return col.Name, true
		}
	}
	return "", false
}

// ValidateCandidate applies the security deny-list, checks schema
// conformance and bounds the row count. Security failure zeroes the
// confidence; a schema miss only subtracts a fixed penalty.
func ValidateCandidate(candidate domain.QueryCandidate, schema domain.SchemaDescription) domain.QueryCandidate {
	candidate.Statement = strings.TrimSpace(candidate.Statement)
	candidate.Confidence = domain.ClampConfidence(candidate.Confidence)
	candidate.ValidationErrors = nil

	if violation := securityViolation(candidate.Statement); violation != "" {
		candidate.SecurityValid = false
		candidate.SchemaValid = false
		candidate.Confidence = 0
		candidate.ValidationErrors = append(candidate.ValidationErrors, violation)
		return candidate
	}
	candidate.SecurityValid = true

	tables := extractTables(candidate.Statement)
	if len(candidate.TablesUsed) == 0 {
		candidate.TablesUsed = tables
	}
	columns := extractQualifiedColumns(candidate.Statement, tables)
	if len(candidate.ColumnsUsed) == 0 {
		columns2 := make([]string, 0, len(columns))
		for _, c := range columns {
			columns2 = append(columns2, c.table+"."+c.column)
		}
		candidate.ColumnsUsed = columns2
	}

	var schemaErrors []string
	for _, table := range tables {
		if !schema.HasTable(table) {
			schemaErrors = append(schemaErrors, fmt.Sprintf("unknown table %q", table))
		}
	}
	for _, col := range columns {
		if schema.HasTable(col.table) && !schema.HasColumn(col.table, col.column) {
			schemaErrors = append(schemaErrors, fmt.Sprintf("unknown column %q on table %q", col.column, col.table))
		}
	}

	candidate.SchemaValid = len(schemaErrors) == 0
	if !candidate.SchemaValid {
		candidate.ValidationErrors = append(candidate.ValidationErrors, schemaErrors...)
		candidate.Confidence = domain.ClampConfidence(candidate.Confidence - schemaMissPenalty)
	}

	candidate.Statement = boundRowCount(candidate.Statement, DefaultRowLimit)
	return candidate
}

// securityViolation returns a human-readable reason when the statement
// trips the deny-list, or "" when it is clean.
func securityViolation(statement string) string {
	if statement == "" {
		return "empty statement"
	}
	normalized := whitespacePattern.ReplaceAllString(statement, " ")

	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(normalized)), "SELECT") {
		return "only SELECT statements are allowed"
	}
	if m := forbiddenKeywordPattern.FindString(normalized); m != "" {
		return fmt.Sprintf("forbidden keyword %q", strings.ToUpper(m))
	}
	if sqlCommentPattern.MatchString(normalized) {
		return "sql comments are not allowed"
	}
	if unionSelectPattern.MatchString(normalized) {
		return "union-based injection pattern"
	}
	if tautologyPattern.MatchString(normalized) {
		return "tautology injection pattern"
	}
	return ""
}

func extractTables(statement string) []string {
	seen := make(map[string]bool)
	var tables []string
	for _, m := range fromTablePattern.FindAllStringSubmatch(statement, -1) {
		name := strings.ToLower(m[1])
		if !seen[name] {
			seen[name] = true
			tables = append(tables, name)
		}
	}
	return tables
}

type qualifiedColumn struct {
	table  string
	column string
}

// extractQualifiedColumns keeps only table.column references whose
// table part actually appears in a FROM/JOIN clause, so function calls
// and numeric literals are not misread as columns.
func extractQualifiedColumns(statement string, tables []string) []qualifiedColumn {
	known := make(map[string]bool, len(tables))
	for _, t := range tables {
		known[t] = true
	}

	seen := make(map[string]bool)
	var columns []qualifiedColumn
	for _, m := range qualifiedColumnPattern.FindAllStringSubmatch(statement, -1) {
		table := strings.ToLower(m[1])
		column := strings.ToLower(m[2])
		if !known[table] {
			continue
		}
		key := table + "." + column
		if !seen[key] {
			seen[key] = true
			columns = append(columns, qualifiedColumn{table: table, column: column})
		}
	}
	return columns
}

// boundRowCount appends a LIMIT to any SELECT that lacks one.
func boundRowCount(statement string, limit int) string {
	if statement == "" {
		return statement
	}
	if limitClausePattern.MatchString(statement) {
		return statement
	}
	return strings.TrimRight(statement, "; \t\n") + fmt.Sprintf(" LIMIT %d", limit)
}
