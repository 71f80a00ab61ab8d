package httpadapter

import (
	"net/http"

	"github.com/velikanov/hybrid-query-engine/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrSecurityViolation):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrDocumentNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrTemporary),
		domain.IsKind(err, domain.ErrOracleUnavailable),
		domain.IsKind(err, domain.ErrRetrievalUnavailable),
		domain.IsKind(err, domain.ErrExecutionUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
