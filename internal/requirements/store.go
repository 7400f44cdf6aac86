// Package requirements implements the requirement side of the workflow:
// creation by sales, recruiter assignment by leads, open/closed flips by
// admins, and the role-scoped list views.
package requirements

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	apperrors "ats-backend/internal/common/errors"
	"ats-backend/internal/models"
)

// pqUniqueViolation is the Postgres error code for a unique constraint hit.
const pqUniqueViolation = "23505"

const requirementColumns = `
	requirement_id, title, description, COALESCE(client, ''), created_by,
	lead_assigned_to, COALESCE(lead_assigned_by, ''), recruiter_assigned_to,
	recruiter_assigned_by, locations, COALESCE(employment_type, ''),
	COALESCE(work_setting, ''), COALESCE(rate, ''), COALESCE(primary_skills, ''),
	priority, status, requirement_status, work_authorization, duration,
	created_at, updated_at`

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Insert persists a new requirement. A requirement_id collision surfaces raw
// so the service can detect it with IsDuplicateID and retry with a fresh
// suffix.
func (s *Store) Insert(ctx context.Context, req *models.Requirement) error {
	query := `
		INSERT INTO requirements (
			requirement_id, title, description, client, created_by,
			lead_assigned_to, recruiter_assigned_to, recruiter_assigned_by,
			locations, employment_type, work_setting, rate, primary_skills,
			priority, status, requirement_status, work_authorization, duration,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	_, err := s.db.ExecContext(ctx, query,
		req.RequirementID, req.Title, req.Description, req.Client, req.CreatedBy,
		pq.StringArray(req.LeadAssignedTo), pq.StringArray(req.RecruiterAssignedTo),
		pq.StringArray(req.RecruiterAssignedBy), pq.StringArray(req.Locations),
		req.EmploymentType, req.WorkSetting, req.Rate, req.PrimarySkills,
		req.Priority, req.Status, req.RequirementStatus,
		pq.StringArray(req.WorkAuthorization), req.Duration,
		req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		if IsDuplicateID(err) {
			return err
		}
		return apperrors.NewDependencyFailureError("postgres", err)
	}
	return nil
}

// IsDuplicateID reports whether err is a requirement_id uniqueness hit.
func IsDuplicateID(err error) bool {
	pqErr, ok := err.(*pq.Error)
	return ok && string(pqErr.Code) == pqUniqueViolation
}

// GetByIDs fetches the requirements matching any of the given identifiers.
// Used by the candidate views for the title join; missing IDs are simply
// absent from the result.
func (s *Store) GetByIDs(ctx context.Context, ids []string) ([]models.Requirement, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + requirementColumns + `
		FROM requirements
		WHERE requirement_id = ANY($1)`
	return s.list(ctx, query, pq.StringArray(ids))
}

// ListByCreator returns the caller's own requirements, newest first.
func (s *Store) ListByCreator(ctx context.Context, email string) ([]models.Requirement, error) {
	query := `SELECT ` + requirementColumns + `
		FROM requirements
		WHERE created_by = $1
		ORDER BY created_at DESC`
	return s.list(ctx, query, email)
}

// ListByLead returns requirements routed to the given lead, newest first.
func (s *Store) ListByLead(ctx context.Context, email string) ([]models.Requirement, error) {
	query := `SELECT ` + requirementColumns + `
		FROM requirements
		WHERE $1 = ANY(lead_assigned_to)
		ORDER BY created_at DESC`
	return s.list(ctx, query, email)
}

// ListByRecruiter matches the recruiter email case-insensitively against
// the assignment list.
func (s *Store) ListByRecruiter(ctx context.Context, email string) ([]models.Requirement, error) {
	query := `SELECT ` + requirementColumns + `
		FROM requirements
		WHERE EXISTS (
			SELECT 1 FROM unnest(recruiter_assigned_to) AS r WHERE LOWER(r) = LOWER($1)
		)
		ORDER BY created_at DESC`
	return s.list(ctx, query, email)
}

// ListUnassignedForLead returns the lead's requirements that have no
// recruiter yet.
func (s *Store) ListUnassignedForLead(ctx context.Context, email string) ([]models.Requirement, error) {
	query := `SELECT ` + requirementColumns + `
		FROM requirements
		WHERE $1 = ANY(lead_assigned_to)
		  AND COALESCE(cardinality(recruiter_assigned_to), 0) = 0
		ORDER BY created_at DESC`
	return s.list(ctx, query, email)
}

// ListUnassigned returns every requirement with no recruiter, across all
// leads.
func (s *Store) ListUnassigned(ctx context.Context) ([]models.Requirement, error) {
	query := `SELECT ` + requirementColumns + `
		FROM requirements
		WHERE COALESCE(cardinality(recruiter_assigned_to), 0) = 0
		ORDER BY created_at DESC`
	return s.list(ctx, query)
}

// ListAll returns every requirement, newest first.
func (s *Store) ListAll(ctx context.Context) ([]models.Requirement, error) {
	query := `SELECT ` + requirementColumns + `
		FROM requirements
		ORDER BY created_at DESC`
	return s.list(ctx, query)
}

// AssignRecruiters replaces the recruiter list, unions the assigning lead
// into recruiter_assigned_by and advances the workflow status. Returns the
// updated record, or NotFound when the requirement does not exist.
func (s *Store) AssignRecruiters(ctx context.Context, requirementID string, recruiters []string, leadEmail string, now time.Time) (*models.Requirement, error) {
	query := `
		UPDATE requirements
		SET recruiter_assigned_to = $2,
		    recruiter_assigned_by = CASE
		        WHEN $3 = ANY(recruiter_assigned_by) THEN recruiter_assigned_by
		        ELSE array_append(recruiter_assigned_by, $3)
		    END,
		    status = $4,
		    updated_at = $5
		WHERE requirement_id = $1
		RETURNING ` + requirementColumns

	row := s.db.QueryRowContext(ctx, query,
		requirementID, pq.StringArray(recruiters), leadEmail,
		models.ReqStatusRecruiterAssigned, now,
	)
	req, err := scanRequirement(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("requirement", requirementID)
	}
	if err != nil {
		return nil, apperrors.NewDependencyFailureError("postgres", err)
	}
	return req, nil
}

// UpdateRequirementStatus flips the open/closed operational flag.
func (s *Store) UpdateRequirementStatus(ctx context.Context, requirementID, status string, now time.Time) error {
	query := `
		UPDATE requirements
		SET requirement_status = $2, updated_at = $3
		WHERE requirement_id = $1`

	res, err := s.db.ExecContext(ctx, query, requirementID, status, now)
	if err != nil {
		return apperrors.NewDependencyFailureError("postgres", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewDependencyFailureError("postgres", err)
	}
	if affected == 0 {
		return apperrors.NewNotFoundError("requirement", requirementID)
	}
	return nil
}

func (s *Store) list(ctx context.Context, query string, args ...interface{}) ([]models.Requirement, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewDependencyFailureError("postgres", err)
	}
	defer rows.Close()

	var result []models.Requirement
	for rows.Next() {
		req, err := scanRequirement(rows)
		if err != nil {
			return nil, apperrors.NewDependencyFailureError("postgres", err)
		}
		result = append(result, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDependencyFailureError("postgres", err)
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRequirement(row rowScanner) (*models.Requirement, error) {
	var req models.Requirement
	var leadTo, recruiterTo, recruiterBy, locations, workAuth pq.StringArray

	err := row.Scan(
		&req.RequirementID, &req.Title, &req.Description, &req.Client, &req.CreatedBy,
		&leadTo, &req.LeadAssignedBy, &recruiterTo,
		&recruiterBy, &locations, &req.EmploymentType,
		&req.WorkSetting, &req.Rate, &req.PrimarySkills,
		&req.Priority, &req.Status, &req.RequirementStatus, &workAuth, &req.Duration,
		&req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	req.LeadAssignedTo = leadTo
	req.RecruiterAssignedTo = recruiterTo
	req.RecruiterAssignedBy = recruiterBy
	req.Locations = locations
	req.WorkAuthorization = workAuth
	return &req, nil
}
