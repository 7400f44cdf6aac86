package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"ats-backend/internal/common/logger"
	"ats-backend/internal/models"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func newFakeClient(t *testing.T, handler func(*http.Request) (int, string)) *elasticsearch.Client {
	t.Helper()

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{"http://fake-elasticsearch:9200"},
		Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
			status, body := handler(r)
			return &http.Response{
				StatusCode: status,
				Header: http.Header{
					"Content-Type":      []string{"application/json"},
					"X-Elastic-Product": []string{"Elasticsearch"},
				},
				Body: io.NopCloser(strings.NewReader(body)),
			}, nil
		}),
	})
	require.NoError(t, err)
	return client
}

func testSearchLogger(t *testing.T) logger.Logger {
	return logger.NewZapAdapter(zaptest.NewLogger(t))
}

func TestCandidateDocumentExcludesSensitiveFields(t *testing.T) {
	var captured map[string]interface{}

	client := newFakeClient(t, func(r *http.Request) (int, string) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &captured))
		return http.StatusCreated, `{"result":"created"}`
	})

	svc := NewService(client, "candidates", testSearchLogger(t))
	svc.IndexCandidate(context.Background(), &models.Candidate{
		CandidateID:    "JohnDoe_10000000",
		Name:           "John Doe",
		Email:          "john@example.com",
		Role:           "Java Developer",
		Last4SSN:       "6789",
		PassportNumber: "X1234567",
		RequirementIDs: []string{"JavaDev_142355"},
		Extra:          map[string]interface{}{"skills": "Java, Spring"},
	})

	require.NotNil(t, captured)
	assert.Equal(t, "JohnDoe_10000000", captured["candidateId"])
	assert.Equal(t, "Java, Spring", captured["skills"])
	assert.NotContains(t, captured, "last4SSN")
	assert.NotContains(t, captured, "passportNumber")
}

func TestSearchParsesHits(t *testing.T) {
	client := newFakeClient(t, func(r *http.Request) (int, string) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/candidates/_search")
		return http.StatusOK, `{
			"hits": {
				"total": {"value": 2},
				"hits": [
					{"_score": 4.2, "_source": {"candidateId": "JohnDoe_10000000", "name": "John Doe"}},
					{"_score": 1.1, "_source": {"candidateId": "JaneRoe_10000001", "name": "Jane Roe"}}
				]
			}
		}`
	})

	svc := NewService(client, "candidates", testSearchLogger(t))
	results, total, err := svc.Search(context.Background(), "java", 0, 10)

	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, results, 2)
	assert.Equal(t, "John Doe", results[0]["name"])
	assert.Equal(t, 4.2, results[0]["_score"])
}

func TestSearchDependencyFailure(t *testing.T) {
	client := newFakeClient(t, func(r *http.Request) (int, string) {
		return http.StatusServiceUnavailable, `{"error":"unavailable"}`
	})

	svc := NewService(client, "candidates", testSearchLogger(t))
	_, _, err := svc.Search(context.Background(), "java", 0, 10)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "elasticsearch")
}

func TestExtraString(t *testing.T) {
	cand := &models.Candidate{Extra: map[string]interface{}{
		"skills": "Go, Kubernetes",
		"years":  float64(5),
	}}

	assert.Equal(t, "Go, Kubernetes", extraString(cand, "skills"))
	assert.Equal(t, "", extraString(cand, "years"))
	assert.Equal(t, "", extraString(cand, "missing"))
	assert.Equal(t, "", extraString(&models.Candidate{}, "skills"))
}
