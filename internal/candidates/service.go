package candidates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"

	apperrors "ats-backend/internal/common/errors"
	"ats-backend/internal/common/logger"
	"ats-backend/internal/ids"
	"ats-backend/internal/models"
)

// ObjectStore is the resume folder storage, matching the S3 wrapper in
// internal/common/aws. Injected so tests can fake it and environments can
// swap it.
type ObjectStore interface {
	CreateFolder(ctx context.Context, prefix string) error
	Upload(ctx context.Context, prefix, filename, contentType string, body io.Reader) error
	DeleteFolder(ctx context.Context, prefix string) error
	FolderURL(prefix string) string
}

// RequirementLookup provides the batch fetch behind the title join and the
// lead notification on submit.
type RequirementLookup interface {
	GetByIDs(ctx context.Context, ids []string) ([]models.Requirement, error)
}

// Notifier delivers the submission mails. Best effort, never errors.
type Notifier interface {
	CandidateSubmitted(ctx context.Context, cand *models.Candidate, requirementTitle string, leads []string)
}

// Indexer pushes candidates into the search index. Best effort.
type Indexer interface {
	IndexCandidate(ctx context.Context, cand *models.Candidate)
}

// UploadFile is one resume file from the multipart form.
type UploadFile struct {
	Filename    string
	ContentType string
	Content     io.Reader
}

const (
	maxResumeFiles = 10
	folderPrefix   = "candidates/"
)

type Service struct {
	store        *Store
	requirements RequirementLookup
	objects      ObjectStore
	notifier     Notifier
	indexer      Indexer
	logger       logger.Logger
	now          func() time.Time
}

func NewService(store *Store, requirements RequirementLookup, objects ObjectStore, notifier Notifier, indexer Indexer, log logger.Logger) *Service {
	return &Service{
		store:        store,
		requirements: requirements,
		objects:      objects,
		notifier:     notifier,
		indexer:      indexer,
		logger:       log,
		now:          time.Now,
	}
}

// Submit creates a candidate without resume files. Unknown body fields are
// kept verbatim in the extra column. The leads of the first target
// requirement are mailed after the record lands.
func (s *Service) Submit(ctx context.Context, body map[string]interface{}, addedBy string) (*models.Candidate, error) {
	cand, err := candidateFromBody(body)
	if err != nil {
		return nil, err
	}

	now := s.now()
	cand.CandidateID = ids.CandidateID(cand.Name, now)
	cand.AddedBy = normalizeEmail(addedBy)
	cand.SourceRole = models.SourceRoleRecruiter
	cand.Status = models.CandidateSubmitted
	cand.IsDeleted = false
	cand.CreatedAt = now
	cand.UpdatedAt = now

	if err := s.insertWithRetry(ctx, cand); err != nil {
		return nil, err
	}

	s.index(ctx, cand)
	s.notifyLeads(ctx, cand)
	return cand, nil
}

// Upload creates a candidate from a multipart submission. Every file is
// uploaded into a fresh object-store folder before any database write; a
// storage failure aborts the request with no record, while a database
// failure after upload triggers an async folder cleanup so no orphaned
// files linger.
func (s *Service) Upload(ctx context.Context, body map[string]interface{}, files []UploadFile, forwardToLeads []string, addedBy string) (*models.Candidate, error) {
	if len(files) == 0 {
		return nil, apperrors.NewValidationError("at least one resume file is required")
	}
	if len(files) > maxResumeFiles {
		return nil, apperrors.NewValidationError(fmt.Sprintf("at most %d resume files are accepted", maxResumeFiles))
	}

	cand, err := candidateFromBody(body)
	if err != nil {
		return nil, err
	}

	now := s.now()
	cand.CandidateID = ids.CandidateID(cand.Name, now)
	cand.AddedBy = normalizeEmail(addedBy)
	cand.SourceRole = models.SourceRoleRecruiter
	cand.Status = models.CandidateSubmitted
	cand.CandidateUpdate = models.CandidateSubmitted
	cand.IsDeleted = false
	cand.CreatedAt = now
	cand.UpdatedAt = now

	// The folder carries its own random suffix: an id collision on insert
	// must never merge this upload into, or later delete, a folder that
	// belongs to an earlier candidate with the same id.
	prefix := folderPrefix + ids.WithSuffix(cand.CandidateID)
	if err := s.objects.CreateFolder(ctx, prefix); err != nil {
		return nil, apperrors.NewDependencyFailureError("object store", err)
	}
	for _, f := range files {
		if err := s.objects.Upload(ctx, prefix, f.Filename, f.ContentType, f.Content); err != nil {
			s.cleanupFolder(prefix)
			return nil, apperrors.NewDependencyFailureError("object store", err)
		}
	}

	cand.FolderID = prefix
	cand.ResumeURLs = []string{s.objects.FolderURL(prefix)}

	if err := s.insertWithRetry(ctx, cand); err != nil {
		// The files are already in the store; reconcile out of band so the
		// caller is not kept waiting on the delete.
		s.cleanupFolder(prefix)
		return nil, err
	}

	s.index(ctx, cand)
	if len(forwardToLeads) > 0 {
		s.notifier.CandidateSubmitted(ctx, cand, firstRequirement(cand), normalizeEmails(forwardToLeads))
	}
	s.notifyLeads(ctx, cand)
	return cand, nil
}

func (s *Service) insertWithRetry(ctx context.Context, cand *models.Candidate) error {
	base := cand.CandidateID
	for attempt := 0; attempt < ids.MaxAttempts; attempt++ {
		err := s.store.Insert(ctx, cand)
		if err == nil {
			return nil
		}
		if !IsDuplicateID(err) {
			return err
		}
		cand.CandidateID = ids.WithSuffix(base)
		s.logger.Warn("Candidate ID collision, retrying with suffix", map[string]interface{}{
			"candidate_id": cand.CandidateID,
		})
	}
	return apperrors.NewInternalError("could not allocate a unique candidate id", nil)
}

func (s *Service) cleanupFolder(prefix string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.objects.DeleteFolder(ctx, prefix); err != nil {
			s.logger.Error("Failed to clean up orphaned resume folder", map[string]interface{}{
				"prefix": prefix,
				"error":  err.Error(),
			})
			return
		}
		s.logger.Info("Cleaned up orphaned resume folder", map[string]interface{}{
			"prefix": prefix,
		})
	}()
}

// notifyLeads mails the leads of the candidate's first target requirement.
func (s *Service) notifyLeads(ctx context.Context, cand *models.Candidate) {
	reqs, err := s.requirements.GetByIDs(ctx, cand.RequirementIDs[:1])
	if err != nil || len(reqs) == 0 {
		if err != nil {
			s.logger.Warn("Could not resolve requirement for lead notification", map[string]interface{}{
				"candidate_id": cand.CandidateID,
				"error":        err.Error(),
			})
		}
		return
	}
	s.notifier.CandidateSubmitted(ctx, cand, reqs[0].Title, reqs[0].LeadAssignedTo)
}

func (s *Service) index(ctx context.Context, cand *models.Candidate) {
	if s.indexer != nil {
		s.indexer.IndexCandidate(ctx, cand)
	}
}

// Forward moves a candidate into the sales queue.
func (s *Service) Forward(ctx context.Context, candidateID, forwardedBy string) error {
	if strings.TrimSpace(candidateID) == "" {
		return apperrors.NewValidationError("candidate id is required")
	}
	if forwardedBy = normalizeEmail(forwardedBy); forwardedBy == "" {
		forwardedBy = "unknown"
	}
	return s.store.ForwardToSales(ctx, candidateID, forwardedBy, s.now())
}

// UpdateFields applies the unified update: isActive and/or candidate_update,
// nothing else.
func (s *Service) UpdateFields(ctx context.Context, candidateID string, isActive *bool, candidateUpdate string) error {
	if strings.TrimSpace(candidateID) == "" {
		return apperrors.NewValidationError("candidate id is required")
	}
	if isActive == nil && candidateUpdate == "" {
		return apperrors.NewValidationError("at least one of isActive or candidate_update is required")
	}
	return s.store.UpdateFields(ctx, candidateID, isActive, candidateUpdate, s.now())
}

// ListForLeads returns the enriched lead queue, scoped to leadEmail when
// non-empty.
func (s *Service) ListForLeads(ctx context.Context, leadEmail string) ([]models.EnrichedCandidate, error) {
	cands, err := s.store.ListForLeads(ctx, normalizeEmail(leadEmail))
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, cands)
}

// ListForSales returns the enriched sales queue, scoped to the creator when
// non-empty.
func (s *Service) ListForSales(ctx context.Context, creatorEmail string) ([]models.EnrichedCandidate, error) {
	cands, err := s.store.ListForSales(ctx, normalizeEmail(creatorEmail))
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, cands)
}

// ListByRecruiter returns the recruiter's own enriched submissions.
func (s *Service) ListByRecruiter(ctx context.Context, email string) ([]models.EnrichedCandidate, error) {
	if strings.TrimSpace(email) == "" {
		return nil, apperrors.NewValidationError("recruiter email is required")
	}
	cands, err := s.store.ListByRecruiter(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, cands)
}

// enrich attaches the requirement-title join: one batch fetch per request,
// falling back to the raw requirement id when no title is found. Titles are
// computed per response and never persisted.
func (s *Service) enrich(ctx context.Context, cands []models.Candidate) ([]models.EnrichedCandidate, error) {
	distinct := make(map[string]struct{})
	for _, c := range cands {
		for _, id := range c.RequirementIDs {
			distinct[id] = struct{}{}
		}
	}
	reqIDs := make([]string, 0, len(distinct))
	for id := range distinct {
		reqIDs = append(reqIDs, id)
	}

	titles := make(map[string]string, len(reqIDs))
	if len(reqIDs) > 0 {
		reqs, err := s.requirements.GetByIDs(ctx, reqIDs)
		if err != nil {
			return nil, err
		}
		for _, r := range reqs {
			if r.Title != "" {
				titles[r.RequirementID] = r.Title
			}
		}
	}

	enriched := make([]models.EnrichedCandidate, 0, len(cands))
	for _, c := range cands {
		names := make([]string, 0, len(c.RequirementIDs))
		for _, id := range c.RequirementIDs {
			if title, ok := titles[id]; ok {
				names = append(names, title)
			} else {
				names = append(names, id)
			}
		}
		enriched = append(enriched, models.EnrichedCandidate{Candidate: c, RequirementTitles: names})
	}
	return enriched, nil
}

func firstRequirement(cand *models.Candidate) string {
	if len(cand.RequirementIDs) > 0 {
		return cand.RequirementIDs[0]
	}
	return ""
}

// candidateFromBody maps a decoded request body onto the candidate model.
// Scalar requirementId/workAuthorization values are normalized to lists and
// isActive is coerced from bool or "true"/"false" strings; any field the
// model does not know is kept verbatim in Extra.
func candidateFromBody(body map[string]interface{}) (*models.Candidate, error) {
	normalized := make(map[string]interface{}, len(body))
	for k, v := range body {
		normalized[k] = v
	}
	if v, ok := normalized["requirementId"].(string); ok {
		normalized["requirementId"] = []string{v}
	}
	if v, ok := normalized["workAuthorization"].(string); ok {
		normalized["workAuthorization"] = []string{v}
	}
	if v, ok := normalized["isActive"].(string); ok {
		normalized["isActive"] = strings.EqualFold(v, "true")
	}

	raw, err := json.Marshal(normalized)
	if err != nil {
		return nil, apperrors.NewValidationError("request body could not be processed")
	}
	var cand models.Candidate
	if err := json.Unmarshal(raw, &cand); err != nil {
		return nil, apperrors.NewValidationError("request body has mistyped fields")
	}

	if strings.TrimSpace(cand.Name) == "" {
		return nil, apperrors.NewValidationError("candidate name is required")
	}
	cand.RequirementIDs = trimAll(cand.RequirementIDs)
	if len(cand.RequirementIDs) == 0 {
		return nil, apperrors.NewValidationError("at least one requirement id is required")
	}
	cand.Email = normalizeEmail(cand.Email)

	extra := make(map[string]interface{})
	for k, v := range normalized {
		if _, known := knownCandidateFields[k]; !known {
			extra[k] = v
		}
	}
	if len(extra) > 0 {
		cand.Extra = extra
	}
	return &cand, nil
}

// knownCandidateFields is derived from the model's json tags so the open
// schema passthrough stays in sync with the struct.
var knownCandidateFields = func() map[string]struct{} {
	fields := make(map[string]struct{})
	collect(reflect.TypeOf(models.Candidate{}), fields)
	return fields
}()

func collect(t reflect.Type, fields map[string]struct{}) {
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("json")
		if tag == "" || tag == "-" {
			continue
		}
		fields[strings.Split(tag, ",")[0]] = struct{}{}
	}
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeEmails(emails []string) []string {
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		if n := normalizeEmail(e); n != "" {
			out = append(out, n)
		}
	}
	return out
}
