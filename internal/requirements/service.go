package requirements

import (
	"context"
	"strings"
	"time"

	apperrors "ats-backend/internal/common/errors"
	"ats-backend/internal/common/logger"
	"ats-backend/internal/ids"
	"ats-backend/internal/models"
)

// Notifier delivers assignment mails. Implementations are best effort and
// never return an error.
type Notifier interface {
	RequirementCreated(ctx context.Context, req *models.Requirement, leads []string)
	RequirementAssigned(ctx context.Context, req *models.Requirement, recipients []string, assignedBy string)
}

type Service struct {
	store    *Store
	notifier Notifier
	logger   logger.Logger
	now      func() time.Time
}

func NewService(store *Store, notifier Notifier, log logger.Logger) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		logger:   log,
		now:      time.Now,
	}
}

// Create persists a new requirement on behalf of createdBy. The workflow
// status advances straight to recruiterAssigned when recruiters were
// supplied with the request, otherwise to leadAssigned. Leads are mailed
// after the record is stored.
func (s *Service) Create(ctx context.Context, req *models.Requirement, createdBy string) (*models.Requirement, error) {
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Description) == "" {
		return nil, apperrors.NewValidationError("title and description are required")
	}
	if req.Duration != models.DurationLongterm && req.Duration != models.DurationShortterm {
		return nil, apperrors.NewValidationError("duration must be longterm or shortterm")
	}

	now := s.now()
	req.CreatedBy = normalizeEmail(createdBy)
	req.LeadAssignedTo = normalizeEmails(req.LeadAssignedTo)
	req.RecruiterAssignedTo = normalizeEmails(req.RecruiterAssignedTo)
	req.CreatedAt = now
	req.UpdatedAt = now

	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}
	req.RequirementStatus = models.RequirementOpen
	if len(req.RecruiterAssignedTo) > 0 {
		req.Status = models.ReqStatusRecruiterAssigned
		req.RecruiterAssignedBy = []string{req.CreatedBy}
	} else {
		req.Status = models.ReqStatusLeadAssigned
		req.RecruiterAssignedBy = []string{}
	}

	req.RequirementID = ids.RequirementID(req.Title, now)
	if err := s.insertWithRetry(ctx, req); err != nil {
		return nil, err
	}

	s.notifier.RequirementCreated(ctx, req, req.LeadAssignedTo)
	return req, nil
}

// insertWithRetry retries id collisions with a fresh random suffix. The
// base identifier only carries second granularity, so two creations inside
// the same second collide legitimately.
func (s *Service) insertWithRetry(ctx context.Context, req *models.Requirement) error {
	base := req.RequirementID
	for attempt := 0; attempt < ids.MaxAttempts; attempt++ {
		err := s.store.Insert(ctx, req)
		if err == nil {
			return nil
		}
		if !IsDuplicateID(err) {
			return err
		}
		req.RequirementID = ids.WithSuffix(base)
		s.logger.Warn("Requirement ID collision, retrying with suffix", map[string]interface{}{
			"requirement_id": req.RequirementID,
		})
	}
	return apperrors.NewInternalError("could not allocate a unique requirement id", nil)
}

// AssignSingle assigns recruiters to one requirement and notifies them.
func (s *Service) AssignSingle(ctx context.Context, requirementID string, recruiters []string, leadEmail string) (*models.Requirement, error) {
	if strings.TrimSpace(requirementID) == "" {
		return nil, apperrors.NewValidationError("requirement id is required")
	}
	recruiters = normalizeEmails(recruiters)
	if len(recruiters) == 0 {
		return nil, apperrors.NewValidationError("at least one recruiter email is required")
	}
	lead := normalizeEmail(leadEmail)
	if lead == "" {
		return nil, apperrors.NewValidationError("assigning lead email is required")
	}

	updated, err := s.store.AssignRecruiters(ctx, requirementID, recruiters, lead, s.now())
	if err != nil {
		return nil, err
	}

	s.notifier.RequirementAssigned(ctx, updated, recruiters, lead)
	return updated, nil
}

// AssignMultiple applies the same recruiter list to a batch of
// requirements. A requirement id that matches nothing is skipped rather
// than aborting the batch; persistence failures abort.
func (s *Service) AssignMultiple(ctx context.Context, requirementIDs, recruiters []string, leadEmail string) ([]models.Requirement, error) {
	if len(requirementIDs) == 0 {
		return nil, apperrors.NewValidationError("at least one requirement id is required")
	}
	recruiters = normalizeEmails(recruiters)
	if len(recruiters) == 0 {
		return nil, apperrors.NewValidationError("at least one recruiter email is required")
	}
	lead := normalizeEmail(leadEmail)
	if lead == "" {
		return nil, apperrors.NewValidationError("assigning lead email is required")
	}

	now := s.now()
	assigned := make([]models.Requirement, 0, len(requirementIDs))
	for _, id := range requirementIDs {
		updated, err := s.store.AssignRecruiters(ctx, id, recruiters, lead, now)
		if err != nil {
			if apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
				s.logger.Warn("Skipping unknown requirement in bulk assign", map[string]interface{}{
					"requirement_id": id,
				})
				continue
			}
			return nil, err
		}
		assigned = append(assigned, *updated)
		s.notifier.RequirementAssigned(ctx, updated, recruiters, lead)
	}
	return assigned, nil
}

// UpdateStatus flips the operational open/closed flag.
func (s *Service) UpdateStatus(ctx context.Context, requirementID, status string) error {
	if strings.TrimSpace(requirementID) == "" {
		return apperrors.NewValidationError("requirement id is required")
	}
	if status != models.RequirementOpen && status != models.RequirementClosed {
		return apperrors.NewValidationError("requirementStatus must be open or closed")
	}
	return s.store.UpdateRequirementStatus(ctx, requirementID, status, s.now())
}

// List views. Thin passthroughs, kept on the service so handlers never
// touch the store directly.

func (s *Service) ListByCreator(ctx context.Context, email string) ([]models.Requirement, error) {
	return s.store.ListByCreator(ctx, normalizeEmail(email))
}

func (s *Service) ListByLead(ctx context.Context, email string) ([]models.Requirement, error) {
	return s.store.ListByLead(ctx, normalizeEmail(email))
}

func (s *Service) ListByRecruiter(ctx context.Context, email string) ([]models.Requirement, error) {
	return s.store.ListByRecruiter(ctx, email)
}

func (s *Service) ListUnassignedForLead(ctx context.Context, email string) ([]models.Requirement, error) {
	return s.store.ListUnassignedForLead(ctx, normalizeEmail(email))
}

func (s *Service) ListUnassigned(ctx context.Context) ([]models.Requirement, error) {
	return s.store.ListUnassigned(ctx)
}

func (s *Service) ListAll(ctx context.Context) ([]models.Requirement, error) {
	return s.store.ListAll(ctx)
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
