// Package candidates implements candidate intake (with or without resume
// upload), the role-scoped queue views, forwarding to sales and the unified
// field update.
package candidates

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"time"

	"github.com/lib/pq"

	apperrors "ats-backend/internal/common/errors"
	"ats-backend/internal/models"
)

const pqUniqueViolation = "23505"

// notDeleted filters soft-deleted records. A NULL is_deleted reads as not
// deleted, legacy records predate the column.
const notDeleted = "is_deleted IS DISTINCT FROM TRUE"

const candidateColumns = `
	candidate_id, name, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(role, ''),
	COALESCE(rate, ''), COALESCE(source, ''), COALESCE(current_location, ''),
	COALESCE(relocation, ''), COALESCE(passport_number, ''), COALESCE(last4_ssn, ''),
	COALESCE(linkedin_url, ''), COALESCE(visa_status, ''), COALESCE(client_details, ''),
	COALESCE(notes, ''), resume_urls, COALESCE(folder_id, ''), requirement_ids,
	work_authorization, added_by, COALESCE(forwarded_by, ''), source_role,
	status, COALESCE(candidate_update, ''), COALESCE(lead_update, ''),
	COALESCE(is_active, FALSE), COALESCE(is_deleted, FALSE), COALESCE(extra, '{}'::jsonb),
	created_at, updated_at`

// leadQueueStatuses are the workflow positions visible in the lead queue.
var leadQueueStatuses = pq.StringArray{models.CandidateSubmitted, models.CandidateForwardedToSales, "new"}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Insert persists a new candidate. A candidate_id collision surfaces raw so
// the service can retry with a fresh suffix.
func (s *Store) Insert(ctx context.Context, cand *models.Candidate) error {
	extra, err := json.Marshal(cand.Extra)
	if err != nil {
		return apperrors.NewInternalError("could not encode candidate extra fields", err)
	}

	query := `
		INSERT INTO candidates (
			candidate_id, name, email, phone, role, rate, source,
			current_location, relocation, passport_number, last4_ssn,
			linkedin_url, visa_status, client_details, notes, resume_urls,
			folder_id, requirement_ids, work_authorization, added_by,
			forwarded_by, source_role, status, candidate_update, lead_update,
			is_active, is_deleted, extra, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30)`

	_, err = s.db.ExecContext(ctx, query,
		cand.CandidateID, cand.Name, cand.Email, cand.Phone, cand.Role, cand.Rate, cand.Source,
		cand.CurrentLocation, cand.Relocation, cand.PassportNumber, cand.Last4SSN,
		cand.LinkedinURL, cand.VisaStatus, cand.ClientDetails, cand.Notes,
		pq.StringArray(cand.ResumeURLs), cand.FolderID, pq.StringArray(cand.RequirementIDs),
		pq.StringArray(cand.WorkAuthorization), cand.AddedBy,
		cand.ForwardedBy, cand.SourceRole, cand.Status, cand.CandidateUpdate, cand.LeadUpdate,
		cand.IsActive, cand.IsDeleted, extra, cand.CreatedAt, cand.UpdatedAt,
	)
	if err != nil {
		if IsDuplicateID(err) {
			return err
		}
		return apperrors.NewDependencyFailureError("postgres", err)
	}
	return nil
}

// IsDuplicateID reports whether err is a candidate_id uniqueness hit.
func IsDuplicateID(err error) bool {
	pqErr, ok := err.(*pq.Error)
	return ok && string(pqErr.Code) == pqUniqueViolation
}

// ListForLeads returns the lead queue. When leadEmail is non-empty the
// result is scoped to candidates attached to a requirement routed to that
// lead; when empty the queue is unscoped (admin and sales visibility).
func (s *Store) ListForLeads(ctx context.Context, leadEmail string) ([]models.Candidate, error) {
	if leadEmail == "" {
		query := `SELECT ` + candidateColumns + `
			FROM candidates
			WHERE status = ANY($1) AND ` + notDeleted + `
			ORDER BY created_at DESC`
		return s.list(ctx, query, leadQueueStatuses)
	}

	query := `SELECT ` + candidateColumns + `
		FROM candidates c
		WHERE status = ANY($1) AND ` + notDeleted + `
		  AND EXISTS (
			SELECT 1 FROM requirements req
			WHERE req.requirement_id = ANY(c.requirement_ids)
			  AND $2 = ANY(req.lead_assigned_to)
		  )
		ORDER BY created_at DESC`
	return s.list(ctx, query, leadQueueStatuses, leadEmail)
}

// ListForSales returns forwarded candidates. A non-empty creatorEmail scopes
// the queue to candidates attached to requirements that caller created.
func (s *Store) ListForSales(ctx context.Context, creatorEmail string) ([]models.Candidate, error) {
	if creatorEmail == "" {
		query := `SELECT ` + candidateColumns + `
			FROM candidates
			WHERE status = $1 AND ` + notDeleted + `
			ORDER BY created_at DESC`
		return s.list(ctx, query, models.CandidateForwardedToSales)
	}

	query := `SELECT ` + candidateColumns + `
		FROM candidates c
		WHERE status = $1 AND ` + notDeleted + `
		  AND EXISTS (
			SELECT 1 FROM requirements req
			WHERE req.requirement_id = ANY(c.requirement_ids)
			  AND req.created_by = $2
		  )
		ORDER BY created_at DESC`
	return s.list(ctx, query, models.CandidateForwardedToSales, creatorEmail)
}

// ListByRecruiter returns the candidates a recruiter submitted, including
// ones a lead has since forwarded.
func (s *Store) ListByRecruiter(ctx context.Context, email string) ([]models.Candidate, error) {
	query := `SELECT ` + candidateColumns + `
		FROM candidates
		WHERE LOWER(added_by) = LOWER($1)
		  AND source_role = ANY($2)
		  AND ` + notDeleted + `
		ORDER BY created_at DESC`
	return s.list(ctx, query, email, pq.StringArray{models.SourceRoleRecruiter, models.SourceRoleLeads})
}

// ForwardToSales moves the candidate into the sales queue.
func (s *Store) ForwardToSales(ctx context.Context, candidateID, forwardedBy string, now time.Time) error {
	query := `
		UPDATE candidates
		SET status = $2, source_role = $3, forwarded_by = $4, updated_at = $5
		WHERE candidate_id = $1 AND ` + notDeleted

	res, err := s.db.ExecContext(ctx, query,
		candidateID, models.CandidateForwardedToSales, models.SourceRoleLeads, forwardedBy, now)
	return affectedOrNotFound(res, err, candidateID)
}

// UpdateFields applies the unified update. Only supplied fields change.
func (s *Store) UpdateFields(ctx context.Context, candidateID string, isActive *bool, candidateUpdate string, now time.Time) error {
	set := "updated_at = $2"
	args := []interface{}{candidateID, now}

	if isActive != nil {
		args = append(args, *isActive)
		set += ", is_active = $" + strconv.Itoa(len(args))
	}
	if candidateUpdate != "" {
		args = append(args, candidateUpdate)
		set += ", candidate_update = $" + strconv.Itoa(len(args))
	}

	query := `UPDATE candidates SET ` + set + ` WHERE candidate_id = $1 AND ` + notDeleted
	res, err := s.db.ExecContext(ctx, query, args...)
	return affectedOrNotFound(res, err, candidateID)
}

func affectedOrNotFound(res sql.Result, err error, candidateID string) error {
	if err != nil {
		return apperrors.NewDependencyFailureError("postgres", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewDependencyFailureError("postgres", err)
	}
	if affected == 0 {
		return apperrors.NewNotFoundError("candidate", candidateID)
	}
	return nil
}

func (s *Store) list(ctx context.Context, query string, args ...interface{}) ([]models.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewDependencyFailureError("postgres", err)
	}
	defer rows.Close()

	var result []models.Candidate
	for rows.Next() {
		cand, err := scanCandidate(rows)
		if err != nil {
			return nil, apperrors.NewDependencyFailureError("postgres", err)
		}
		result = append(result, *cand)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDependencyFailureError("postgres", err)
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCandidate(row rowScanner) (*models.Candidate, error) {
	var cand models.Candidate
	var resumeURLs, requirementIDs, workAuth pq.StringArray
	var extra []byte

	err := row.Scan(
		&cand.CandidateID, &cand.Name, &cand.Email, &cand.Phone, &cand.Role,
		&cand.Rate, &cand.Source, &cand.CurrentLocation,
		&cand.Relocation, &cand.PassportNumber, &cand.Last4SSN,
		&cand.LinkedinURL, &cand.VisaStatus, &cand.ClientDetails,
		&cand.Notes, &resumeURLs, &cand.FolderID, &requirementIDs,
		&workAuth, &cand.AddedBy, &cand.ForwardedBy, &cand.SourceRole,
		&cand.Status, &cand.CandidateUpdate, &cand.LeadUpdate,
		&cand.IsActive, &cand.IsDeleted, &extra,
		&cand.CreatedAt, &cand.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	cand.ResumeURLs = resumeURLs
	cand.RequirementIDs = requirementIDs
	cand.WorkAuthorization = workAuth
	if len(extra) > 0 {
		if err := json.Unmarshal(extra, &cand.Extra); err != nil {
			return nil, err
		}
	}
	return &cand, nil
}
