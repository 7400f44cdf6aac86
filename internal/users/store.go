// Package users reads recruiter, lead and sales accounts. Accounts are
// provisioned out of band; this service only ever reads them, for role
// resolution on tokens that carry no role claim and for notification
// contact lookup.
package users

import (
	"context"
	"database/sql"
	"strings"

	apperrors "ats-backend/internal/common/errors"
	"ats-backend/internal/models"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// GetByEmail looks an account up by email, case-insensitively.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT username, email, role, COALESCE(team, ''), COALESCE(phone, '')
		FROM users
		WHERE LOWER(email) = LOWER($1)`

	var u models.User
	err := s.db.QueryRowContext(ctx, query, strings.TrimSpace(email)).
		Scan(&u.Username, &u.Email, &u.Role, &u.Team, &u.Phone)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("user", email)
	}
	if err != nil {
		return nil, apperrors.NewDependencyFailureError("postgres", err)
	}
	return &u, nil
}

// FindRole returns the stored role for an email, or empty when the account
// is unknown. Database failures surface so callers can distinguish "no
// account" from "could not check".
func (s *Store) FindRole(ctx context.Context, email string) (string, error) {
	u, err := s.GetByEmail(ctx, email)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
			return "", nil
		}
		return "", err
	}
	return u.Role, nil
}
