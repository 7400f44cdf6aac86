package candidates

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "ats-backend/internal/common/errors"
	"ats-backend/internal/common/logger"
	"ats-backend/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeObjectStore struct {
	mu          sync.Mutex
	created     []string
	uploaded    []string
	deleted     []string
	createErr   error
	uploadErrAt int // fail the nth upload (1-based), 0 = never
	uploadCount int
}

func (f *fakeObjectStore) CreateFolder(_ context.Context, prefix string) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, prefix)
	return nil
}

func (f *fakeObjectStore) Upload(_ context.Context, prefix, filename, _ string, _ io.Reader) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploadCount++
	if f.uploadErrAt > 0 && f.uploadCount == f.uploadErrAt {
		return errors.New("upload refused")
	}
	f.uploaded = append(f.uploaded, prefix+"/"+filename)
	return nil
}

func (f *fakeObjectStore) DeleteFolder(_ context.Context, prefix string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, prefix)
	return nil
}

func (f *fakeObjectStore) FolderURL(prefix string) string {
	return "https://resumes.example.com/" + prefix + "/"
}

func (f *fakeObjectStore) deletedPrefixes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

type fakeRequirements struct {
	byID map[string]models.Requirement
	err  error
}

func (f *fakeRequirements) GetByIDs(_ context.Context, ids []string) ([]models.Requirement, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Requirement
	for _, id := range ids {
		if r, ok := f.byID[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeCandidateNotifier struct {
	submitted []string // requirement titles passed in
	leads     [][]string
}

func (f *fakeCandidateNotifier) CandidateSubmitted(_ context.Context, _ *models.Candidate, title string, leads []string) {
	f.submitted = append(f.submitted, title)
	f.leads = append(f.leads, leads)
}

type serviceFixture struct {
	svc      *Service
	mock     sqlmock.Sqlmock
	objects  *fakeObjectStore
	notifier *fakeCandidateNotifier
}

func newFixture(t *testing.T) *serviceFixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	objects := &fakeObjectStore{}
	notifier := &fakeCandidateNotifier{}
	reqs := &fakeRequirements{byID: map[string]models.Requirement{
		"JavaDev_142355": {
			RequirementID:  "JavaDev_142355",
			Title:          "Java Dev",
			LeadAssignedTo: []string{"lead@example.com"},
		},
	}}

	svc := NewService(NewStore(db), reqs, objects, notifier, nil, logger.NewNoOpLogger())
	svc.now = func() time.Time {
		return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	}
	return &serviceFixture{svc: svc, mock: mock, objects: objects, notifier: notifier}
}

func submitBody() map[string]interface{} {
	return map[string]interface{}{
		"name":          "John Doe",
		"email":         "John@Example.com",
		"requirementId": []interface{}{"JavaDev_142355"},
		"noticePeriod":  "2 weeks",
	}
}

// ==========================
// Submit (no file)
// ==========================

func TestServiceSubmit(t *testing.T) {
	f := newFixture(t)

	f.mock.ExpectExec(`INSERT INTO candidates`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	cand, err := f.svc.Submit(context.Background(), submitBody(), "Recruiter@Example.com")

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(cand.CandidateID, "JohnDoe_"))
	assert.Equal(t, models.CandidateSubmitted, cand.Status)
	assert.Equal(t, models.SourceRoleRecruiter, cand.SourceRole)
	assert.Equal(t, "recruiter@example.com", cand.AddedBy)
	assert.Equal(t, "john@example.com", cand.Email)
	assert.Equal(t, map[string]interface{}{"noticePeriod": "2 weeks"}, cand.Extra)

	// The leads of the first target requirement are notified with its title.
	require.Len(t, f.notifier.submitted, 1)
	assert.Equal(t, "Java Dev", f.notifier.submitted[0])
	assert.Equal(t, []string{"lead@example.com"}, f.notifier.leads[0])
}

func TestServiceSubmitScalarNormalization(t *testing.T) {
	f := newFixture(t)

	f.mock.ExpectExec(`INSERT INTO candidates`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	body := map[string]interface{}{
		"name":              "John Doe",
		"requirementId":     "JavaDev_142355",
		"workAuthorization": "H1B",
		"isActive":          "true",
	}
	cand, err := f.svc.Submit(context.Background(), body, "recruiter@example.com")

	require.NoError(t, err)
	assert.Equal(t, []string{"JavaDev_142355"}, cand.RequirementIDs)
	assert.Equal(t, []string{"H1B"}, cand.WorkAuthorization)
	assert.True(t, cand.IsActive)
}

func TestServiceSubmitValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing name", map[string]interface{}{"requirementId": "R1"}},
		{"missing requirement", map[string]interface{}{"name": "John"}},
		{"blank requirement ids", map[string]interface{}{"name": "John", "requirementId": []interface{}{" "}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Submit(context.Background(), tt.body, "recruiter@example.com")
			assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
		})
	}
}

// ==========================
// Upload
// ==========================

func uploadFiles(n int) []UploadFile {
	files := make([]UploadFile, 0, n)
	for i := 0; i < n; i++ {
		files = append(files, UploadFile{
			Filename:    "resume.pdf",
			ContentType: "application/pdf",
			Content:     strings.NewReader("%PDF-1.4"),
		})
	}
	return files
}

func TestServiceUpload(t *testing.T) {
	f := newFixture(t)

	f.mock.ExpectExec(`INSERT INTO candidates`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	cand, err := f.svc.Upload(context.Background(), submitBody(), uploadFiles(2), nil, "recruiter@example.com")

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(cand.FolderID, "candidates/"+cand.CandidateID+"_"))
	assert.Equal(t, []string{"https://resumes.example.com/" + cand.FolderID + "/"}, cand.ResumeURLs)
	assert.Equal(t, models.CandidateSubmitted, cand.CandidateUpdate)
	assert.Equal(t, []string{cand.FolderID}, f.objects.created)
	assert.Len(t, f.objects.uploaded, 2)
	assert.Empty(t, f.objects.deletedPrefixes())
}

func TestServiceUploadCollisionKeepsFolderIsolated(t *testing.T) {
	f := newFixture(t)

	f.mock.ExpectExec(`INSERT INTO candidates`).
		WillReturnError(&pq.Error{Code: pqUniqueViolation})
	f.mock.ExpectExec(`INSERT INTO candidates`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	cand, err := f.svc.Upload(context.Background(), submitBody(), uploadFiles(1), nil, "recruiter@example.com")

	require.NoError(t, err)
	// The record lands under a suffixed id, and the folder stays the one
	// created for this request, never the colliding candidate's.
	assert.True(t, strings.HasPrefix(cand.CandidateID, "JohnDoe_10000000_"))
	assert.NotEqual(t, "candidates/JohnDoe_10000000", cand.FolderID)
	require.Len(t, f.objects.uploaded, 1)
	assert.Equal(t, cand.FolderID+"/resume.pdf", f.objects.uploaded[0])
	assert.Empty(t, f.objects.deletedPrefixes())
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestServiceUploadFileCountLimits(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Upload(context.Background(), submitBody(), nil, nil, "recruiter@example.com")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))

	_, err = f.svc.Upload(context.Background(), submitBody(), uploadFiles(11), nil, "recruiter@example.com")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
}

func TestServiceUploadStoreFailureCreatesNoRecord(t *testing.T) {
	f := newFixture(t)
	f.objects.uploadErrAt = 2

	_, err := f.svc.Upload(context.Background(), submitBody(), uploadFiles(3), nil, "recruiter@example.com")

	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeDependencyFailure))
	// No INSERT was expected on the mock, so an attempted write would have
	// failed the test on its own.
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestServiceUploadDBFailureCleansUpFolder(t *testing.T) {
	f := newFixture(t)

	f.mock.ExpectExec(`INSERT INTO candidates`).
		WillReturnError(errors.New("connection reset"))

	_, err := f.svc.Upload(context.Background(), submitBody(), uploadFiles(1), nil, "recruiter@example.com")
	require.Error(t, err)

	// Cleanup runs async; poll briefly.
	deadline := time.After(2 * time.Second)
	for {
		if deleted := f.objects.deletedPrefixes(); len(deleted) == 1 {
			// Only the folder created for this request is reclaimed.
			assert.Equal(t, f.objects.created, deleted)
			assert.NotEqual(t, "candidates/JohnDoe_10000000", deleted[0])
			return
		}
		select {
		case <-deadline:
			t.Fatal("orphaned folder was never cleaned up")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// ==========================
// Forward and update
// ==========================

func TestServiceForwardFallsBackToUnknown(t *testing.T) {
	f := newFixture(t)

	f.mock.ExpectExec(`UPDATE candidates`).
		WithArgs("JohnDoe_10000000", "forwarded-to-sales", "leads", "unknown", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, f.svc.Forward(context.Background(), "JohnDoe_10000000", "  "))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestServiceUpdateFieldsValidation(t *testing.T) {
	f := newFixture(t)

	err := f.svc.UpdateFields(context.Background(), "", nil, "selected")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))

	err = f.svc.UpdateFields(context.Background(), "JohnDoe_10000000", nil, "")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
}

// ==========================
// Enrichment
// ==========================

func TestServiceEnrichTitleFallback(t *testing.T) {
	f := newFixture(t)

	row := candidateRow("JohnDoe_10000000", "John Doe")
	row[17] = "{JavaDev_142355,Ghost_000000}" // requirement_ids
	f.mock.ExpectQuery(`LOWER\(added_by\)`).
		WillReturnRows(sqlmock.NewRows(candidateTestColumns).AddRow(row...))

	cands, err := f.svc.ListByRecruiter(context.Background(), "recruiter@example.com")

	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, []string{"Java Dev", "Ghost_000000"}, cands[0].RequirementTitles)
}
