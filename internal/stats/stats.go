// Package stats serves the sales dashboard aggregates: requirement
// open/closed counts, active/inactive candidate counts and the per-stage
// review breakdown. Results are cached in redis under a short TTL because
// the dashboard polls.
package stats

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	apperrors "ats-backend/internal/common/errors"
	"ats-backend/internal/common/logger"
	"ats-backend/internal/common/respond"
	"ats-backend/internal/models"
)

const cacheKey = "stats:sales-dashboard"

// Cache matches the redis wrapper in internal/common/database. A Get miss
// returns an error; any cache failure degrades to a direct database read.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// Dashboard is the aggregate payload.
type Dashboard struct {
	ActiveRequirements int            `json:"activeRequirements"`
	ClosedRequirements int            `json:"closedRequirements"`
	ActiveCandidates   int            `json:"activeCandidates"`
	InactiveCandidates int            `json:"inactiveCandidates"`
	CandidateStats     map[string]int `json:"candidateStats"`
}

type Service struct {
	db     *sql.DB
	cache  Cache
	ttl    time.Duration
	logger logger.Logger
}

func NewService(db *sql.DB, cache Cache, ttl time.Duration, log logger.Logger) *Service {
	return &Service{db: db, cache: cache, ttl: ttl, logger: log}
}

// Dashboard returns the aggregates, from cache when fresh.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey); err == nil {
			var d Dashboard
			if err := json.Unmarshal([]byte(cached), &d); err == nil {
				return &d, nil
			}
		}
	}

	d, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		encoded, _ := json.Marshal(d)
		if err := s.cache.Set(ctx, cacheKey, string(encoded), s.ttl); err != nil {
			s.logger.Warn("Could not cache dashboard stats", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
	return d, nil
}

func (s *Service) compute(ctx context.Context) (*Dashboard, error) {
	d := &Dashboard{CandidateStats: make(map[string]int)}
	for _, stage := range models.CandidateUpdateStages {
		d.CandidateStats[stage] = 0
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT requirement_status, COUNT(*)
		FROM requirements
		GROUP BY requirement_status`)
	if err != nil {
		return nil, apperrors.NewDependencyFailureError("postgres", err)
	}
	if err := scanCounts(rows, func(key string, count int) {
		switch key {
		case models.RequirementOpen:
			d.ActiveRequirements = count
		case models.RequirementClosed:
			d.ClosedRequirements = count
		}
	}); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT COALESCE(is_active, FALSE)::text, COUNT(*)
		FROM candidates
		WHERE is_deleted IS DISTINCT FROM TRUE
		GROUP BY COALESCE(is_active, FALSE)`)
	if err != nil {
		return nil, apperrors.NewDependencyFailureError("postgres", err)
	}
	if err := scanCounts(rows, func(key string, count int) {
		if key == "true" {
			d.ActiveCandidates = count
		} else {
			d.InactiveCandidates = count
		}
	}); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT COALESCE(candidate_update, ''), COUNT(*)
		FROM candidates
		WHERE is_deleted IS DISTINCT FROM TRUE
		GROUP BY COALESCE(candidate_update, '')`)
	if err != nil {
		return nil, apperrors.NewDependencyFailureError("postgres", err)
	}
	if err := scanCounts(rows, func(key string, count int) {
		if key != "" {
			d.CandidateStats[key] = count
		}
	}); err != nil {
		return nil, err
	}

	return d, nil
}

func scanCounts(rows *sql.Rows, apply func(key string, count int)) error {
	defer rows.Close()
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return apperrors.NewDependencyFailureError("postgres", err)
		}
		apply(key, count)
	}
	if err := rows.Err(); err != nil {
		return apperrors.NewDependencyFailureError("postgres", err)
	}
	return nil
}

type Handler struct {
	service *Service
	errors  *apperrors.ErrorHandler
}

func NewHandler(service *Service, errHandler *apperrors.ErrorHandler) *Handler {
	return &Handler{service: service, errors: errHandler}
}

// Dashboard handles GET /stats/sales-dashboard.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Dashboard(r.Context())
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	respond.Success(w, http.StatusOK, "Dashboard stats fetched successfully", map[string]interface{}{
		"stats": d,
	})
}
