package usecase

import (
	"strings"

	"github.com/velikanov/hybrid-query-engine/internal/core/domain"
)

// mergeSupplementLimit caps how many secondary-path items supplement a
// primary-strategy merge.
const mergeSupplementLimit = 5

var (
	sqlPrimaryMarkers      = []string{"how many", "count", "total", "number of", "average", "sum"}
	documentPrimaryMarkers = []string{"show me", "find", "search", "resume", "document"}
)

// selectMergeStrategy picks the combination strategy from the sanitized
// query text and the two result set sizes. It is a pure function: the
// same inputs always produce the same strategy.
func selectMergeStrategy(sanitized string, sqlCount, docCount int) domain.MergeStrategy {
	lower := strings.ToLower(sanitized)
	for _, marker := range sqlPrimaryMarkers {
		if strings.Contains(lower, marker) {
			return domain.MergeSQLPrimary
		}
	}
	for _, marker := range documentPrimaryMarkers {
		if strings.Contains(lower, marker) {
			return domain.MergeDocumentPrimary
		}
	}
	if sqlCount > 2*docCount {
		return domain.MergeSQLPrimary
	}
	if docCount > 2*sqlCount {
		return domain.MergeDocumentPrimary
	}
	return domain.MergeCombined
}

// mergeResults combines the two paths' results under the chosen
// strategy. Ranks are assigned after merging and are contiguous from 1.
func mergeResults(strategy domain.MergeStrategy, rows []map[string]any, docs []domain.SearchCandidate) []domain.MergedItem {
	var items []domain.MergedItem
	switch strategy {
	case domain.MergeSQLPrimary:
		items = appendRows(items, rows, len(rows))
		items = appendDocs(items, docs, mergeSupplementLimit)
	case domain.MergeDocumentPrimary:
		items = appendDocs(items, docs, len(docs))
		items = appendRows(items, rows, mergeSupplementLimit)
	default:
		items = interleave(rows, docs)
	}

	for i := range items {
		items[i].Rank = i + 1
	}
	return items
}

func appendRows(items []domain.MergedItem, rows []map[string]any, limit int) []domain.MergedItem {
	for i, row := range rows {
		if i >= limit {
			break
		}
		items = append(items, domain.MergedItem{
			Origin:      domain.OriginSQL,
			Payload:     row,
			SourceLabel: domain.SourceDatabase,
		})
	}
	return items
}

func appendDocs(items []domain.MergedItem, docs []domain.SearchCandidate, limit int) []domain.MergedItem {
	for i, doc := range docs {
		if i >= limit {
			break
		}
		items = append(items, domain.MergedItem{
			Origin:      domain.OriginDocument,
			Payload:     doc,
			SourceLabel: domain.SourceDocuments,
		})
	}
	return items
}

// interleave alternates sql and document items round-robin, sql first,
// then drains whichever side is longer.
func interleave(rows []map[string]any, docs []domain.SearchCandidate) []domain.MergedItem {
	items := make([]domain.MergedItem, 0, len(rows)+len(docs))
	n := len(rows)
	if len(docs) > n {
		n = len(docs)
	}
	for i := 0; i < n; i++ {
		if i < len(rows) {
			items = append(items, domain.MergedItem{
				Origin:      domain.OriginSQL,
				Payload:     rows[i],
				SourceLabel: domain.SourceDatabase,
			})
		}
		if i < len(docs) {
			items = append(items, domain.MergedItem{
				Origin:      domain.OriginDocument,
				Payload:     docs[i],
				SourceLabel: domain.SourceDocuments,
			})
		}
	}
	return items
}
