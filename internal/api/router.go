// Package api wires the HTTP surface: route registration, role gates and
// request instrumentation.
package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ats-backend/internal/candidates"
	"ats-backend/internal/common/auth"
	"ats-backend/internal/common/logger"
	"ats-backend/internal/common/observability"
	"ats-backend/internal/common/respond"
	"ats-backend/internal/models"
	"ats-backend/internal/requirements"
	"ats-backend/internal/search"
	"ats-backend/internal/stats"
)

// Deps carries everything the router mounts. Search may be nil when the
// index is disabled by config.
type Deps struct {
	Auth          *auth.Middleware
	Requirements  *requirements.Handler
	Candidates    *candidates.Handler
	Stats         *stats.Handler
	Search        *search.Handler
	Logger        logger.Logger
	Observability *observability.Observability
}

// NewRouter builds the full route table.
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	handle := func(pattern string, h http.HandlerFunc, roles ...string) {
		wrapped := http.Handler(h)
		if len(roles) > 0 {
			wrapped = chain(wrapped, d.Auth.Authenticate, d.Auth.RequireRole(roles...))
		} else {
			wrapped = d.Auth.Authenticate(wrapped)
		}
		mux.Handle(pattern, instrument(pattern, d.Logger, d.Observability, wrapped))
	}

	// Requirements.
	handle("POST /requirements/sales/submit", d.Requirements.Create,
		models.RoleSales, models.RoleLead, models.RoleAdmin)
	handle("GET /requirements/sales/view", d.Requirements.ViewByCreator,
		models.RoleAdmin, models.RoleSales)
	handle("PUT /requirements/update-status", d.Requirements.UpdateStatus,
		models.RoleAdmin)
	handle("GET /requirements/leads/unassigned", d.Requirements.LeadsUnassigned,
		models.RoleLead)
	handle("PUT /requirements/leads/assign-multiple", d.Requirements.AssignMultiple,
		models.RoleLead)
	handle("PUT /requirements/leads/assign/{reqId}", d.Requirements.AssignSingle,
		models.RoleLead)
	handle("GET /requirements/leads/view-all", d.Requirements.ViewAll,
		models.RoleAdmin)
	handle("GET /requirements/leads/view", d.Requirements.ViewUnassigned,
		models.RoleLead)
	handle("GET /requirements/leads/all", d.Requirements.ViewByLead,
		models.RoleLead)
	handle("GET /requirements/recruiter/view", d.Requirements.ViewByRecruiter,
		models.RoleRecruiter)

	// Candidates.
	handle("POST /candidates/recruiter/submit", d.Candidates.Submit,
		models.RoleRecruiter)
	handle("POST /candidates/recruiter/upload", d.Candidates.Upload,
		models.RoleRecruiter)
	handle("GET /candidates/recruiter/my-candidates/{userEmail}", d.Candidates.MyCandidates,
		models.RoleRecruiter)
	handle("PUT /candidates/recruiter/update-fields", d.Candidates.UpdateFields,
		models.RoleRecruiter, models.RoleLead, models.RoleAdmin)
	handle("GET /candidates/leads", d.Candidates.LeadQueue,
		models.RoleLead, models.RoleAdmin, models.RoleSales)
	handle("POST /candidates/leads/forward/{id}", d.Candidates.Forward,
		models.RoleLead)
	handle("GET /candidates/sales", d.Candidates.SalesQueue,
		models.RoleAdmin, models.RoleSales, models.RoleAccountManager)

	if d.Search != nil {
		handle("GET /candidates/search", d.Search.Search,
			models.RoleAdmin, models.RoleSales, models.RoleLead)
	}

	// Stats: any authenticated caller.
	handle("GET /stats/sales-dashboard", d.Stats.Dashboard)

	// Unauthenticated surface.
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}
