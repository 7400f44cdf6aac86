package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"

	"ats-backend/internal/common/config"
	apperrors "ats-backend/internal/common/errors"
	"ats-backend/internal/common/logger"
	"ats-backend/internal/models"
)

type fakeEmailSender struct {
	mu      sync.Mutex
	sent    []*ses.SendEmailInput
	sendErr error
}

func (f *fakeEmailSender) SendEmail(_ context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, input)
	return &ses.SendEmailOutput{}, nil
}

type fakeSMSSender struct {
	mu   sync.Mutex
	sent []*sns.PublishInput
}

func (f *fakeSMSSender) Publish(_ context.Context, input *sns.PublishInput) (*sns.PublishOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, input)
	return &sns.PublishOutput{}, nil
}

type fakeContacts struct {
	users map[string]*models.User
}

func (f *fakeContacts) GetByEmail(_ context.Context, email string) (*models.User, error) {
	if u, ok := f.users[email]; ok {
		return u, nil
	}
	return nil, apperrors.NewNotFoundError("user", email)
}

func notifierConfig(emailEnabled, smsEnabled bool) config.NotificationConfig {
	var cfg config.NotificationConfig
	cfg.Email.Enabled = emailEnabled
	cfg.Email.FromEmail = "noreply@example.com"
	cfg.SMS.Enabled = smsEnabled
	cfg.SMS.PriorityThreshold = "High"
	return cfg
}

func testRequirement(priority string) *models.Requirement {
	return &models.Requirement{
		RequirementID: "JavaDev_142355",
		Title:         "Java Dev",
		Client:        "Acme",
		Priority:      priority,
	}
}

// ==========================
// Email delivery
// ==========================

func TestRequirementAssignedSendsEmailPerRecipient(t *testing.T) {
	email := &fakeEmailSender{}
	n := NewNotifier(email, nil, &fakeContacts{}, notifierConfig(true, false), "", logger.NewNoOpLogger())

	n.RequirementAssigned(context.Background(), testRequirement(models.PriorityMedium),
		[]string{"r1@example.com", "r2@example.com", "  "}, "lead@example.com")

	assert.Len(t, email.sent, 2)
	for _, msg := range email.sent {
		assert.Equal(t, "noreply@example.com", *msg.Source)
		assert.Contains(t, *msg.Message.Subject.Data, "Java Dev")
		assert.Contains(t, *msg.Message.Body.Text.Data, "lead@example.com")
	}
}

func TestRequirementAssignedSwallowsEmailFailure(t *testing.T) {
	email := &fakeEmailSender{sendErr: errors.New("ses unavailable")}
	n := NewNotifier(email, nil, &fakeContacts{}, notifierConfig(true, false), "", logger.NewNoOpLogger())

	// Must not panic or propagate the failure.
	n.RequirementAssigned(context.Background(), testRequirement(models.PriorityHigh),
		[]string{"r1@example.com"}, "lead@example.com")

	assert.Empty(t, email.sent)
}

// ==========================
// SMS delivery
// ==========================

func TestRequirementAssignedSMS(t *testing.T) {
	contacts := &fakeContacts{users: map[string]*models.User{
		"r1@example.com": {Email: "r1@example.com", Phone: "+15550100"},
		"r2@example.com": {Email: "r2@example.com"},
	}}

	tests := []struct {
		name        string
		priority    string
		recipients  []string
		expectedSMS int
	}{
		{"high priority with phone", models.PriorityHigh, []string{"r1@example.com"}, 1},
		{"below threshold", models.PriorityMedium, []string{"r1@example.com"}, 0},
		{"no phone on record", models.PriorityHigh, []string{"r2@example.com"}, 0},
		{"unknown recipient", models.PriorityHigh, []string{"ghost@example.com"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sms := &fakeSMSSender{}
			n := NewNotifier(nil, sms, contacts, notifierConfig(false, true), "ATS", logger.NewNoOpLogger())

			n.RequirementAssigned(context.Background(), testRequirement(tt.priority), tt.recipients, "lead@example.com")

			assert.Len(t, sms.sent, tt.expectedSMS)
			if tt.expectedSMS > 0 {
				assert.Equal(t, "+15550100", *sms.sent[0].PhoneNumber)
				assert.Contains(t, *sms.sent[0].Message, "JavaDev_142355")
			}
		})
	}
}

// ==========================
// Priority threshold
// ==========================

func TestMeetsPriorityThreshold(t *testing.T) {
	tests := []struct {
		priority  string
		threshold string
		expected  bool
	}{
		{"High", "High", true},
		{"high", "HIGH", true},
		{"Medium", "High", false},
		{"High", "Medium", true},
		{"Low", "Medium", false},
		{"", "High", false},
		{"High", "", true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, meetsPriorityThreshold(tt.priority, tt.threshold),
			"priority=%q threshold=%q", tt.priority, tt.threshold)
	}
}
