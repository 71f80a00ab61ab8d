package ollama

import (
	"fmt"
	"sort"
	"strings"

	"github.com/velikanov/hybrid-query-engine/internal/core/domain"
)

func buildClassificationPrompt(question string, userContext map[string]string) string {
	var b strings.Builder
	b.WriteString(`You are a query router for a hybrid database and document system.
Return a strict JSON object with keys:
query_type (one of "SQL_QUERY", "DOCUMENT_QUERY", "HYBRID_QUERY"),
confidence (number from 0 to 1), entities (array of strings),
intent (string), complexity (one of "simple", "medium", "complex"),
reasoning (string).
SQL_QUERY means the answer lives in relational tables (counts, sums, filters).
DOCUMENT_QUERY means the answer lives in document content (resumes, contracts, reviews, policies).
HYBRID_QUERY needs both.
No markdown, no extra keys.

Question:
`)
	b.WriteString(question)
	writeUserContext(&b, userContext)
	return b.String()
}

func buildStatementPrompt(question string, schema domain.SchemaDescription, userContext map[string]string) string {
	var b strings.Builder
	b.WriteString(`You translate a question into one PostgreSQL SELECT statement.
Rules: SELECT only, no comments, no semicolons, use only the tables and columns below.
Return a strict JSON object with keys:
sql (string), confidence (number from 0 to 1),
tables_used (array of strings), columns_used (array of "table.column" strings),
reasoning (string).
No markdown, no extra keys.

Schema:
`)
	writeSchema(&b, schema)
	b.WriteString("\nQuestion:\n")
	b.WriteString(question)
	writeUserContext(&b, userContext)
	return b.String()
}

func writeSchema(b *strings.Builder, schema domain.SchemaDescription) {
	for _, table := range schema.Tables {
		fmt.Fprintf(b, "table %s", table.Name)
		if table.Description != "" {
			fmt.Fprintf(b, " (%s)", table.Description)
		}
		b.WriteString(":\n")
		for _, col := range table.Columns {
			fmt.Fprintf(b, "  %s %s\n", col.Name, col.Type)
		}
	}
}

func writeUserContext(b *strings.Builder, userContext map[string]string) {
	if len(userContext) == 0 {
		return
	}
	keys := make([]string, 0, len(userContext))
	for k := range userContext {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b.WriteString("\n\nContext:\n")
	for _, k := range keys {
		fmt.Fprintf(b, "%s: %s\n", k, userContext[k])
	}
}
