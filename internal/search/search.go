// Package search maintains the candidate search index and serves the
// keyword search endpoint. Indexing is best effort: a failed index write is
// logged, never surfaced to the request that triggered it.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"ats-backend/internal/common/auth"
	apperrors "ats-backend/internal/common/errors"
	"ats-backend/internal/common/logger"
	"ats-backend/internal/common/respond"
	"ats-backend/internal/models"
)

const defaultSize = 20

// candidateDocument is the indexed projection of a candidate. PII that the
// search endpoint should never return (SSN, passport) stays out of the
// index entirely.
type candidateDocument struct {
	CandidateID     string   `json:"candidateId"`
	Name            string   `json:"name"`
	Email           string   `json:"email"`
	Role            string   `json:"role"`
	Skills          string   `json:"skills"`
	Notes           string   `json:"notes"`
	Status          string   `json:"status"`
	CurrentLocation string   `json:"currentLocation"`
	AddedBy         string   `json:"addedBy"`
	RequirementIDs  []string `json:"requirementIds"`
}

type Service struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

// extraString pulls a free-form intake field out of the candidate's extra
// map, if the recruiter supplied one.
func extraString(cand *models.Candidate, key string) string {
	if v, ok := cand.Extra[key].(string); ok {
		return v
	}
	return ""
}

func NewService(client *elasticsearch.Client, index string, log logger.Logger) *Service {
	return &Service{client: client, index: index, logger: log}
}

// IndexCandidate writes the candidate into the index, replacing any
// previous version of the document.
func (s *Service) IndexCandidate(ctx context.Context, cand *models.Candidate) {
	doc := candidateDocument{
		CandidateID:     cand.CandidateID,
		Name:            cand.Name,
		Email:           cand.Email,
		Role:            cand.Role,
		Skills:          extraString(cand, "skills"),
		Notes:           cand.Notes,
		Status:          cand.Status,
		CurrentLocation: cand.CurrentLocation,
		AddedBy:         cand.AddedBy,
		RequirementIDs:  cand.RequirementIDs,
	}

	body, err := json.Marshal(doc)
	if err != nil {
		s.logger.Error("Failed to encode candidate for indexing", map[string]interface{}{
			"candidate_id": cand.CandidateID,
			"error":        err.Error(),
		})
		return
	}

	req := esapi.IndexRequest{
		Index:      s.index,
		DocumentID: cand.CandidateID,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		s.logger.Warn("Candidate indexing failed", map[string]interface{}{
			"candidate_id": cand.CandidateID,
			"error":        err.Error(),
		})
		return
	}
	defer res.Body.Close()
	if res.IsError() {
		s.logger.Warn("Candidate indexing rejected", map[string]interface{}{
			"candidate_id": cand.CandidateID,
			"status":       res.Status(),
		})
	}
}

// Search runs a keyword query over name, email, role, skills and notes.
func (s *Service) Search(ctx context.Context, keywords string, from, size int) ([]map[string]interface{}, int, error) {
	if size <= 0 {
		size = defaultSize
	}

	query := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  keywords,
				"fields": []string{"name^3", "email^2", "role^2", "skills", "notes"},
				"type":   "best_fields",
			},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, 0, apperrors.NewInternalError("could not build search query", err)
	}

	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(body),
		From:  &from,
		Size:  &size,
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, 0, apperrors.NewDependencyFailureError("elasticsearch", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, 0, apperrors.NewDependencyFailureError("elasticsearch",
			fmt.Errorf("search returned %s", res.Status()))
	}

	var parsed struct {
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source map[string]interface{} `json:"_source"`
				Score  float64                `json:"_score"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, 0, apperrors.NewDependencyFailureError("elasticsearch", err)
	}

	results := make([]map[string]interface{}, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		doc := hit.Source
		doc["_score"] = hit.Score
		results = append(results, doc)
	}
	return results, parsed.Hits.Total.Value, nil
}

type Handler struct {
	service *Service
	errors  *apperrors.ErrorHandler
}

func NewHandler(service *Service, errHandler *apperrors.ErrorHandler) *Handler {
	return &Handler{service: service, errors: errHandler}
}

// Search handles GET /candidates/search?q=...&from=...&size=...
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.IdentityFromContext(r.Context()); !ok {
		h.errors.Write(w, r, apperrors.NewUnauthorizedError("missing bearer token"))
		return
	}

	keywords := r.URL.Query().Get("q")
	if keywords == "" {
		h.errors.Write(w, r, apperrors.NewValidationError("query parameter q is required"))
		return
	}
	from, _ := strconv.Atoi(r.URL.Query().Get("from"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))

	results, total, err := h.service.Search(r.Context(), keywords, from, size)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	respond.Success(w, http.StatusOK, "Search completed", map[string]interface{}{
		"results":   results,
		"totalHits": total,
	})
}
