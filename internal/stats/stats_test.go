package stats

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ats-backend/internal/common/logger"
)

// ==========================
// Test Helper Functions
// ==========================

type redisCache struct {
	client *redis.Client
}

func (c *redisCache) Get(ctx context.Context, key string) (string, error) {
	return c.client.Get(ctx, key).Result()
}

func (c *redisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.client.Set(ctx, key, value, expiration).Err()
}

func expectComputeQueries(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(`FROM requirements`).
		WillReturnRows(sqlmock.NewRows([]string{"requirement_status", "count"}).
			AddRow("open", 7).
			AddRow("closed", 3))
	mock.ExpectQuery(`COALESCE\(is_active`).
		WillReturnRows(sqlmock.NewRows([]string{"is_active", "count"}).
			AddRow("true", 4).
			AddRow("false", 6))
	mock.ExpectQuery(`COALESCE\(candidate_update`).
		WillReturnRows(sqlmock.NewRows([]string{"candidate_update", "count"}).
			AddRow("submitted", 5).
			AddRow("L1-cleared", 2).
			AddRow("", 3))
}

// ==========================
// Aggregation
// ==========================

func TestDashboardCompute(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectComputeQueries(mock)
	svc := NewService(db, nil, 30*time.Second, logger.NewNoOpLogger())

	d, err := svc.Dashboard(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 7, d.ActiveRequirements)
	assert.Equal(t, 3, d.ClosedRequirements)
	assert.Equal(t, 4, d.ActiveCandidates)
	assert.Equal(t, 6, d.InactiveCandidates)
	assert.Equal(t, 5, d.CandidateStats["submitted"])
	assert.Equal(t, 2, d.CandidateStats["L1-cleared"])
	// Every stage is present even when no candidate sits in it.
	assert.Equal(t, 0, d.CandidateStats["Decision-pending"])
	assert.NotContains(t, d.CandidateStats, "")
}

// ==========================
// Cache behavior
// ==========================

func TestDashboardCacheAside(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mr := miniredis.RunT(t)
	cache := &redisCache{client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}

	expectComputeQueries(mock)
	svc := NewService(db, cache, 30*time.Second, logger.NewNoOpLogger())

	first, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, first.ActiveRequirements)

	// Second call must be served from the cache: no further queries were
	// registered on the mock, so a database hit would fail the test.
	second, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.NoError(t, mock.ExpectationsWereMet())

	// After the TTL lapses the database is consulted again.
	mr.FastForward(31 * time.Second)
	expectComputeQueries(mock)
	_, err = svc.Dashboard(context.Background())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDashboardCacheHitSkipsDatabase(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cached := Dashboard{ActiveRequirements: 1, CandidateStats: map[string]int{"submitted": 1}}
	encoded, err := json.Marshal(cached)
	require.NoError(t, err)

	client, mock := redismock.NewClientMock()
	mock.ExpectGet(cacheKey).SetVal(string(encoded))

	svc := NewService(db, &redisCache{client: client}, 30*time.Second, logger.NewNoOpLogger())

	d, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, d.ActiveRequirements)
	assert.NoError(t, mock.ExpectationsWereMet())
}
