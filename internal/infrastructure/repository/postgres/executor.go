package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/velikanov/hybrid-query-engine/internal/core/domain"
)

var limitPattern = regexp.MustCompile(`(?i)\bLIMIT\s+\d+`)

// StatementExecutor runs vetted read-only statements. It re-checks the
// SELECT-only invariant as defense in depth even though the planner
// validated the statement already.
type StatementExecutor struct {
	db      *sql.DB
	timeout time.Duration
}

func NewStatementExecutor(db *sql.DB, timeout time.Duration) *StatementExecutor {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &StatementExecutor{db: db, timeout: timeout}
}

func (e *StatementExecutor) Execute(ctx context.Context, statement string, rowLimit int) ([]map[string]any, error) {
	statement = strings.TrimSpace(statement)
	if !strings.HasPrefix(strings.ToUpper(statement), "SELECT") {
		return nil, domain.WrapError(domain.ErrSecurityViolation, "execute statement", errors.New("only SELECT statements are executable"))
	}
	if rowLimit <= 0 {
		rowLimit = 1000
	}
	if !limitPattern.MatchString(statement) {
		statement = fmt.Sprintf("%s LIMIT %d", statement, rowLimit)
	}

	queryCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	rows, err := e.db.QueryContext(queryCtx, statement)
	if err != nil {
		return nil, domain.WrapError(domain.ErrExecutionUnavailable, "execute statement", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read result columns: %w", err)
	}

	var out []map[string]any
	for rows.Next() {
		if len(out) >= rowLimit {
			break
		}
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrExecutionUnavailable, "iterate result rows", err)
	}
	return out, nil
}

// normalizeValue makes scanned values JSON-friendly: byte slices become
// strings, everything else passes through.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
