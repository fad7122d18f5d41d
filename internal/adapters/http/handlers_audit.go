package web

import (
	"net/http"
	"strconv"

	"ledenbeheer/internal/application/projections"
	auditDomain "ledenbeheer/internal/domain/audit"
	"ledenbeheer/internal/domain/compliance"
)

type auditResponse struct {
	Events []auditDomain.Event `json:"events"`
}

// handleAuditLog lists recent audit events (GET /api/vog/audit).
// PRE: limit, when given, is a positive integer
// POST: 200 with events newest first; optional category and resource_id filters
func (s *server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, &compliance.ValidationError{Field: "limit", Reason: "must be a positive integer"})
			return
		}
		limit = n
	}

	res, err := projections.QueryGetAuditLog(r.Context(), projections.GetAuditLogQuery{
		Limit:      limit,
		Category:   auditDomain.Category(q.Get("category")),
		ResourceID: q.Get("resource_id"),
	}, projections.GetAuditLogDeps{AuditStore: s.stores.AuditStore})
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, auditResponse{Events: res.Events})
}
