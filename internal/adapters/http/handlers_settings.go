package web

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"ledenbeheer/internal/adapters/http/middleware"
	"ledenbeheer/internal/application/orchestrators"
	policyDomain "ledenbeheer/internal/domain/policy"
)

// policyJSON is the settings document. ExemptCommittees keeps the
// dashboard field name.
type policyJSON struct {
	FromEmail        string  `json:"from_email"`
	FromName         string  `json:"from_name"`
	TemplateNew      string  `json:"template_new"`
	TemplateRenewal  string  `json:"template_renewal"`
	ExemptCommittees []int64 `json:"exempt_commissies"`
}

type savePolicyResponse struct {
	policyJSON
	PeopleRecalculated *int `json:"people_recalculated"`
}

func toPolicyJSON(p policyDomain.Policy) policyJSON {
	exempt := p.ExemptCommittees
	if exempt == nil {
		exempt = []int64{}
	}
	return policyJSON{
		FromEmail:        p.FromEmail,
		FromName:         p.FromName,
		TemplateNew:      p.TemplateNew,
		TemplateRenewal:  p.TemplateRenewal,
		ExemptCommittees: exempt,
	}
}

func (p policyJSON) toDomain() policyDomain.Policy {
	return policyDomain.Policy{
		FromEmail:        p.FromEmail,
		FromName:         p.FromName,
		TemplateNew:      p.TemplateNew,
		TemplateRenewal:  p.TemplateRenewal,
		ExemptCommittees: p.ExemptCommittees,
	}
}

// handleGetSettings returns the policy in effect (GET /api/vog/settings).
func (s *server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toPolicyJSON(s.opts.Policy.Snapshot()))
}

// handlePutSettings replaces the policy (PUT /api/vog/settings).
// PRE: Body is a complete settings document
// POST: 200 with the stored policy and people_recalculated; 422 when rejected; nothing persisted on failure
func (s *server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var req policyJSON
	if err := strictDecode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := orchestrators.ExecuteSaveVOGPolicy(r.Context(), orchestrators.SaveVOGPolicyInput{
		Policy:    req.toDomain(),
		RequestID: chimw.GetReqID(r.Context()),
		IPAddress: middleware.ClientIP(r),
	}, orchestrators.SaveVOGPolicyDeps{
		Holder:         s.opts.Policy,
		Store:          s.stores.PolicyStore,
		VolunteerStore: s.stores.VolunteerStore,
		AuditStore:     s.stores.AuditStore,
		Now:            s.now,
		Metrics:        s.opts.Metrics,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, savePolicyResponse{
		policyJSON:         toPolicyJSON(res.Policy),
		PeopleRecalculated: res.PeopleRecalculated,
	})
}
