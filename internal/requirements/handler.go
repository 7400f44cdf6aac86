package requirements

import (
	"encoding/json"
	"io"
	"net/http"

	"ats-backend/internal/common/auth"
	apperrors "ats-backend/internal/common/errors"
	"ats-backend/internal/common/respond"
	"ats-backend/internal/common/validation"
	"ats-backend/internal/models"
)

type Handler struct {
	service *Service
	errors  *apperrors.ErrorHandler
}

func NewHandler(service *Service, errHandler *apperrors.ErrorHandler) *Handler {
	return &Handler{service: service, errors: errHandler}
}

// Create handles POST /requirements/sales/submit.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.IdentityFromContext(r.Context())

	var req models.Requirement
	if err := decodeAndValidate(r, createSchema, &req); err != nil {
		h.errors.Write(w, r, err)
		return
	}

	created, err := h.service.Create(r.Context(), &req, caller.Email)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	respond.Success(w, http.StatusCreated, "Requirement created successfully", map[string]interface{}{
		"requirement": created,
	})
}

// ViewByCreator handles GET /requirements/sales/view.
func (h *Handler) ViewByCreator(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.IdentityFromContext(r.Context())

	reqs, err := h.service.ListByCreator(r.Context(), caller.Email)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}
	writeList(w, reqs)
}

// UpdateStatus handles PUT /requirements/update-status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RequirementID     string `json:"requirementId"`
		RequirementStatus string `json:"requirementStatus"`
	}
	if err := decodeAndValidate(r, updateStatusSchema, &body); err != nil {
		h.errors.Write(w, r, err)
		return
	}

	if err := h.service.UpdateStatus(r.Context(), body.RequirementID, body.RequirementStatus); err != nil {
		h.errors.Write(w, r, err)
		return
	}

	respond.Success(w, http.StatusOK, "Requirement status updated successfully", map[string]interface{}{
		"requirementId":     body.RequirementID,
		"requirementStatus": body.RequirementStatus,
	})
}

// LeadsUnassigned handles GET /requirements/leads/unassigned.
func (h *Handler) LeadsUnassigned(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.IdentityFromContext(r.Context())

	reqs, err := h.service.ListUnassignedForLead(r.Context(), caller.Email)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}
	writeList(w, reqs)
}

// AssignSingle handles PUT /requirements/leads/assign/{reqId}.
func (h *Handler) AssignSingle(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.IdentityFromContext(r.Context())
	requirementID := r.PathValue("reqId")

	var body struct {
		RecruiterAssignedTo []string `json:"recruiterAssignedTo"`
		LeadEmail           string   `json:"leadEmail"`
	}
	if err := decodeAndValidate(r, assignSingleSchema, &body); err != nil {
		h.errors.Write(w, r, err)
		return
	}
	if body.LeadEmail == "" {
		body.LeadEmail = caller.Email
	}

	updated, err := h.service.AssignSingle(r.Context(), requirementID, body.RecruiterAssignedTo, body.LeadEmail)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	respond.Success(w, http.StatusOK, "Recruiters assigned successfully", map[string]interface{}{
		"requirement": updated,
	})
}

// AssignMultiple handles PUT /requirements/leads/assign-multiple.
func (h *Handler) AssignMultiple(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.IdentityFromContext(r.Context())

	var body struct {
		RequirementIDs      []string `json:"requirementIds"`
		RecruiterAssignedTo []string `json:"recruiterAssignedTo"`
		LeadEmail           string   `json:"leadEmail"`
	}
	if err := decodeAndValidate(r, assignMultipleSchema, &body); err != nil {
		h.errors.Write(w, r, err)
		return
	}
	if body.LeadEmail == "" {
		body.LeadEmail = caller.Email
	}

	assigned, err := h.service.AssignMultiple(r.Context(), body.RequirementIDs, body.RecruiterAssignedTo, body.LeadEmail)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	respond.Success(w, http.StatusOK, "Recruiters assigned successfully", map[string]interface{}{
		"requirements":  assigned,
		"assignedCount": len(assigned),
	})
}

// ViewAll handles GET /requirements/leads/view-all.
func (h *Handler) ViewAll(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.service.ListAll(r.Context())
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}
	writeList(w, reqs)
}

// ViewUnassigned handles GET /requirements/leads/view.
func (h *Handler) ViewUnassigned(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.service.ListUnassigned(r.Context())
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}
	writeList(w, reqs)
}

// ViewByLead handles GET /requirements/leads/all.
func (h *Handler) ViewByLead(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.IdentityFromContext(r.Context())

	reqs, err := h.service.ListByLead(r.Context(), caller.Email)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}
	writeList(w, reqs)
}

// ViewByRecruiter handles GET /requirements/recruiter/view.
func (h *Handler) ViewByRecruiter(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.IdentityFromContext(r.Context())

	reqs, err := h.service.ListByRecruiter(r.Context(), caller.Email)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}
	writeList(w, reqs)
}

func writeList(w http.ResponseWriter, reqs []models.Requirement) {
	if reqs == nil {
		reqs = []models.Requirement{}
	}
	respond.Success(w, http.StatusOK, "Requirements fetched successfully", map[string]interface{}{
		"requirements": reqs,
		"count":        len(reqs),
	})
}

// decodeAndValidate reads the request body once, checks it against the
// schema, and unmarshals it into target.
func decodeAndValidate(r *http.Request, schema validation.JSONSchema, target interface{}) error {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return apperrors.NewValidationError("could not read request body")
	}
	if len(raw) == 0 {
		return apperrors.NewValidationError("request body is required")
	}

	var asMap map[string]interface{}
	if err := json.Unmarshal(raw, &asMap); err != nil {
		return apperrors.NewValidationError("request body must be a JSON object")
	}
	if result := validation.ValidateInput(asMap, schema); !result.Valid {
		return apperrors.NewValidationError(result.Summary())
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return apperrors.NewValidationError("request body has mistyped fields")
	}
	return nil
}
