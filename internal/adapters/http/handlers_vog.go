package web

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"ledenbeheer/internal/adapters/http/middleware"
	"ledenbeheer/internal/application/listutil"
	"ledenbeheer/internal/application/orchestrators"
	"ledenbeheer/internal/application/projections"
	"ledenbeheer/internal/domain/compliance"
)

const dateLayout = "2006-01-02"

var sortKeys = listutil.SortKeys{Column: "orderby", Direction: "order"}

// personJSON is one row of the compliance list.
type personJSON struct {
	ID              int64    `json:"id"`
	FirstName       string   `json:"first_name"`
	LastName        string   `json:"last_name"`
	Name            string   `json:"name"`
	Email           string   `json:"email"`
	Functions       []string `json:"functions"`
	VOGDate         *string  `json:"vog_date"`
	VOGEmailDate    *string  `json:"vog_email_date"`
	VOGJustisDate   *string  `json:"vog_justis_date"`
	VOGExpiresOn    *string  `json:"vog_expires_on"`
	DaysUntilExpiry *int     `json:"days_until_expiry"`
	VOGType         string   `json:"vog_type"`
	VOGStatus       string   `json:"vog_status"`
	VOGStage        string   `json:"vog_stage"`
}

type peopleResponse struct {
	People     []personJSON            `json:"people"`
	Total      int                     `json:"total"`
	Page       int                     `json:"page"`
	PerPage    int                     `json:"per_page"`
	TotalPages int                     `json:"total_pages"`
	Facets     projections.FacetCounts `json:"facets"`
}

type bulkRequest struct {
	IDs []int64 `json:"ids"`
}

type bulkItemJSON struct {
	ID      int64  `json:"id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type sendResponse struct {
	Sent    int            `json:"sent"`
	Failed  int            `json:"failed"`
	Results []bulkItemJSON `json:"results"`
}

type markResponse struct {
	Marked  int            `json:"marked"`
	Failed  int            `json:"failed"`
	Results []bulkItemJSON `json:"results"`
}

// handleComplianceList returns the filtered compliance view (GET /api/vog/people).
// PRE: Query parameters use the dashboard names (huidigVrijwilliger, vogMissing, ...)
// POST: 200 with one page of people and facet counts; 400 on malformed parameters
func (s *server) handleComplianceList(w http.ResponseWriter, r *http.Request) {
	query, err := parseComplianceQuery(r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := projections.QueryGetComplianceList(r.Context(), query, projections.GetComplianceListDeps{
		VolunteerStore: s.stores.VolunteerStore,
		RecordStore:    s.stores.RecordStore,
		Policy:         s.opts.Policy,
		Now:            s.now,
		Metrics:        s.opts.Metrics,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	people := make([]personJSON, 0, len(res.Rows))
	for _, row := range res.Rows {
		people = append(people, toPersonJSON(row))
	}
	writeJSON(w, http.StatusOK, peopleResponse{
		People:     people,
		Total:      res.PageInfo.Total,
		Page:       res.PageInfo.Page,
		PerPage:    res.PageInfo.PerPage,
		TotalPages: res.PageInfo.TotalPages,
		Facets:     res.Facets,
	})
}

// handleBulk runs one bulk action over the posted ids.
// PRE: Body is {"ids": [int, ...]}
// POST: 200 with counts and per-item results in request order; 400 before any mutation on bad input
func (s *server) handleBulk(action orchestrators.BulkAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req bulkRequest
		if err := strictDecode(w, r, &req); err != nil {
			writeError(w, err)
			return
		}

		res, err := orchestrators.ExecuteBulkVOGAction(r.Context(), orchestrators.BulkVOGActionInput{
			Action:    action,
			IDs:       req.IDs,
			RequestID: chimw.GetReqID(r.Context()),
			IPAddress: middleware.ClientIP(r),
		}, orchestrators.BulkVOGActionDeps{
			VolunteerStore:  s.stores.VolunteerStore,
			RecordStore:     s.stores.RecordStore,
			Policy:          s.opts.Policy,
			Sender:          s.opts.Sender,
			AuditStore:      s.stores.AuditStore,
			Health:          s.opts.Health,
			Now:             s.now,
			Concurrency:     s.opts.BulkConcurrency,
			DispatchTimeout: s.opts.DispatchTimeout,
			Metrics:         s.opts.Metrics,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		results := make([]bulkItemJSON, len(res.Items))
		for i, it := range res.Items {
			results[i] = bulkItemJSON{ID: it.ID, Success: it.Success, Error: it.Error}
		}
		if action == orchestrators.ActionSendReminder {
			writeJSON(w, http.StatusOK, sendResponse{Sent: res.Succeeded, Failed: res.Failed, Results: results})
			return
		}
		writeJSON(w, http.StatusOK, markResponse{Marked: res.Succeeded, Failed: res.Failed, Results: results})
	}
}

// parseComplianceQuery maps dashboard query parameters onto the list query.
// POST: Returns a *compliance.ValidationError for malformed values
func parseComplianceQuery(q url.Values) (projections.GetComplianceListQuery, error) {
	var (
		query projections.GetComplianceListQuery
		err   error
	)
	f := &query.Filters

	if f.CurrentOnly, err = parseFlag(q, "huidigVrijwilliger"); err != nil {
		return query, err
	}
	if f.MissingOnly, err = parseFlag(q, "vogMissing"); err != nil {
		return query, err
	}
	if f.OlderThanYears, err = parseOptionalInt(q, "vogOlderThanYears"); err != nil {
		return query, err
	}
	if f.ExpiringWithinDays, err = parseOptionalInt(q, "vogExpiringWithinDays"); err != nil {
		return query, err
	}
	f.ReminderStatus = projections.ReminderStatus(q.Get("vogEmailStatus"))
	f.RegistryStatus = projections.RegistryStatus(q.Get("vogJustisStatus"))
	if raw := q.Get("vogType"); raw != "" {
		c, ok := compliance.ParseCategory(raw)
		if !ok {
			return query, &compliance.ValidationError{Field: "vogType", Reason: fmt.Sprintf("unknown value %q", raw)}
		}
		f.Category = c
	}
	if err := f.Validate(); err != nil {
		return query, err
	}

	sp, err := listutil.ParseSortParams(q, sortKeys, projections.SortFields)
	if err != nil {
		return query, &compliance.ValidationError{Field: "orderby", Reason: err.Error()}
	}
	query.Sort = projections.ComplianceSort{Field: projections.SortField(sp.Sort), Desc: sp.Desc()}
	query.Page = listutil.ParsePageParams(q)
	return query, nil
}

func parseFlag(q url.Values, key string) (bool, error) {
	switch q.Get(key) {
	case "", "0", "false":
		return false, nil
	case "1", "true":
		return true, nil
	}
	return false, &compliance.ValidationError{Field: key, Reason: "must be 0 or 1"}
}

func parseOptionalInt(q url.Values, key string) (*int, error) {
	raw := q.Get(key)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, &compliance.ValidationError{Field: key, Reason: "must be an integer"}
	}
	return &n, nil
}

func toPersonJSON(row projections.ComplianceRow) personJSON {
	functions := row.Functions
	if functions == nil {
		functions = []string{}
	}
	return personJSON{
		ID:              row.VolunteerID,
		FirstName:       row.FirstName,
		LastName:        row.LastName,
		Name:            row.Name,
		Email:           row.Email,
		Functions:       functions,
		VOGDate:         formatDate(row.Record.CertificateDate),
		VOGEmailDate:    formatDate(row.Record.ReminderSentDate),
		VOGJustisDate:   formatDate(row.Record.RegistrySubmittedDate),
		VOGExpiresOn:    formatDate(row.ExpiresOn),
		DaysUntilExpiry: row.DaysUntilExpiry,
		VOGType:         row.Status.Category.DutchLabel(),
		VOGStatus:       row.Status.Badge(),
		VOGStage:        string(row.Stage),
	}
}

func formatDate(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}
