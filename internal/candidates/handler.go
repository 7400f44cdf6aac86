package candidates

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"ats-backend/internal/common/auth"
	apperrors "ats-backend/internal/common/errors"
	"ats-backend/internal/common/respond"
	"ats-backend/internal/common/validation"
	"ats-backend/internal/models"
)

// maxUploadMemory caps the in-memory portion of multipart parsing; larger
// files spill to temp storage.
const maxUploadMemory = 32 << 20

type Handler struct {
	service *Service
	errors  *apperrors.ErrorHandler
}

func NewHandler(service *Service, errHandler *apperrors.ErrorHandler) *Handler {
	return &Handler{service: service, errors: errHandler}
}

// Submit handles POST /candidates/recruiter/submit.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.IdentityFromContext(r.Context())

	body, err := decodeBody(r)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}
	if result := validation.ValidateInput(body, submitSchema); !result.Valid {
		h.errors.Write(w, r, apperrors.NewValidationError(result.Summary()))
		return
	}

	cand, err := h.service.Submit(r.Context(), body, caller.Email)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	respond.Success(w, http.StatusCreated, "Candidate submitted successfully", map[string]interface{}{
		"candidate": cand,
	})
}

// Upload handles POST /candidates/recruiter/upload: a multipart form with
// 1 to 10 files under the field name "resume" plus the candidate fields as
// form values.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.IdentityFromContext(r.Context())

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		h.errors.Write(w, r, apperrors.NewValidationError("request must be multipart/form-data"))
		return
	}

	body := make(map[string]interface{}, len(r.MultipartForm.Value))
	for key, values := range r.MultipartForm.Value {
		if key == "forwardToLeads" {
			continue
		}
		// Repeated form fields (requirementId and friends) arrive as a
		// list; a single value is normalized by the service.
		if len(values) == 1 {
			body[key] = values[0]
		} else {
			body[key] = values
		}
	}

	fileHeaders := r.MultipartForm.File["resume"]
	files := make([]UploadFile, 0, len(fileHeaders))
	opened := make([]io.Closer, 0, len(fileHeaders))
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()
	for _, fh := range fileHeaders {
		f, err := fh.Open()
		if err != nil {
			h.errors.Write(w, r, apperrors.NewValidationError("could not read uploaded file "+fh.Filename))
			return
		}
		opened = append(opened, f)
		files = append(files, UploadFile{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Content:     f,
		})
	}

	cand, err := h.service.Upload(r.Context(), body, files, splitEmails(r.MultipartForm.Value["forwardToLeads"]), caller.Email)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	respond.Success(w, http.StatusCreated, "Candidate submitted successfully", map[string]interface{}{
		"candidate":  cand,
		"resumeUrls": cand.ResumeURLs,
	})
}

// MyCandidates handles GET /candidates/recruiter/my-candidates/{userEmail}.
func (h *Handler) MyCandidates(w http.ResponseWriter, r *http.Request) {
	cands, err := h.service.ListByRecruiter(r.Context(), r.PathValue("userEmail"))
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}
	writeList(w, cands)
}

// UpdateFields handles PUT /candidates/recruiter/update-fields.
func (h *Handler) UpdateFields(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(r)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}
	if result := validation.ValidateInput(body, updateFieldsSchema); !result.Valid {
		h.errors.Write(w, r, apperrors.NewValidationError(result.Summary()))
		return
	}

	candidateID, _ := body["candidateId"].(string)
	var isActive *bool
	if v, ok := body["isActive"].(bool); ok {
		isActive = &v
	}
	candidateUpdate, _ := body["candidate_update"].(string)

	if err := h.service.UpdateFields(r.Context(), candidateID, isActive, candidateUpdate); err != nil {
		h.errors.Write(w, r, err)
		return
	}

	respond.Success(w, http.StatusOK, "Candidate updated successfully", map[string]interface{}{
		"candidateId": candidateID,
	})
}

// LeadQueue handles GET /candidates/leads. Lead callers see only candidates
// attached to their own requirements; admin and sales see the full queue.
func (h *Handler) LeadQueue(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.IdentityFromContext(r.Context())

	scope := ""
	if caller.Role == strings.ToLower(models.RoleLead) {
		scope = caller.Email
	}

	cands, err := h.service.ListForLeads(r.Context(), scope)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}
	writeList(w, cands)
}

// Forward handles POST /candidates/leads/forward/{id}. The forwarding
// identity is accepted either structured ({"forwardedBy":{"email":...}}) or
// as a bare string, falling back to the caller and finally to "unknown".
func (h *Handler) Forward(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.IdentityFromContext(r.Context())
	candidateID := r.PathValue("id")

	forwardedBy := parseForwardedBy(r.Body)
	if forwardedBy == "" {
		forwardedBy = caller.Email
	}

	if err := h.service.Forward(r.Context(), candidateID, forwardedBy); err != nil {
		h.errors.Write(w, r, err)
		return
	}

	respond.Success(w, http.StatusOK, "Candidate forwarded to sales", map[string]interface{}{
		"candidateId": candidateID,
	})
}

// SalesQueue handles GET /candidates/sales. Sales callers are scoped to
// candidates under requirements they created.
func (h *Handler) SalesQueue(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.IdentityFromContext(r.Context())

	scope := ""
	if caller.Role == strings.ToLower(models.RoleSales) {
		scope = caller.Email
	}

	cands, err := h.service.ListForSales(r.Context(), scope)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}
	writeList(w, cands)
}

func writeList(w http.ResponseWriter, cands []models.EnrichedCandidate) {
	if cands == nil {
		cands = []models.EnrichedCandidate{}
	}
	respond.Success(w, http.StatusOK, "Candidates fetched successfully", map[string]interface{}{
		"candidates": cands,
		"count":      len(cands),
	})
}

func decodeBody(r *http.Request) (map[string]interface{}, error) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, apperrors.NewValidationError("could not read request body")
	}
	if len(raw) == 0 {
		return nil, apperrors.NewValidationError("request body is required")
	}
	var body map[string]interface{}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, apperrors.NewValidationError("request body must be a JSON object")
	}
	return body, nil
}

// parseForwardedBy extracts the forwarding email from the request body.
// Returns empty when the body is absent or carries no email.
func parseForwardedBy(body io.Reader) string {
	raw, err := io.ReadAll(body)
	if err != nil || len(raw) == 0 {
		return ""
	}

	var structured struct {
		ForwardedBy json.RawMessage `json:"forwardedBy"`
	}
	if err := json.Unmarshal(raw, &structured); err != nil || len(structured.ForwardedBy) == 0 {
		return ""
	}

	var asString string
	if err := json.Unmarshal(structured.ForwardedBy, &asString); err == nil {
		return strings.TrimSpace(asString)
	}

	var asObject struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(structured.ForwardedBy, &asObject); err == nil {
		return strings.TrimSpace(asObject.Email)
	}
	return ""
}

func splitEmails(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
