// Package notify delivers assignment notifications over email and SMS.
// Delivery is best effort: a requirement assignment never fails because a
// mail could not be sent, failures are logged and counted instead.
package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	"ats-backend/internal/common/config"
	"ats-backend/internal/common/logger"
	"ats-backend/internal/common/metrics"
	"ats-backend/internal/models"
)

// EmailSender matches the SES wrapper in internal/common/aws.
type EmailSender interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

// SMSSender matches the SNS wrapper in internal/common/aws.
type SMSSender interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

// ContactLookup resolves notification targets to their stored contact info.
type ContactLookup interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

type Notifier struct {
	email    EmailSender
	sms      SMSSender
	contacts ContactLookup
	cfg      config.NotificationConfig
	senderID string
	logger   logger.Logger
}

func NewNotifier(email EmailSender, sms SMSSender, contacts ContactLookup, cfg config.NotificationConfig, senderID string, log logger.Logger) *Notifier {
	return &Notifier{
		email:    email,
		sms:      sms,
		contacts: contacts,
		cfg:      cfg,
		senderID: senderID,
		logger:   log,
	}
}

// RequirementAssigned notifies each newly assigned recruiter. Emails go out
// to every recipient; SMS only when the requirement priority meets the
// configured threshold and the recruiter has a stored phone number.
// Recipients are notified concurrently and the call returns once all
// attempts finish.
func (n *Notifier) RequirementAssigned(ctx context.Context, req *models.Requirement, recipients []string, assignedBy string) {
	if len(recipients) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, recipient := range recipients {
		recipient := strings.TrimSpace(recipient)
		if recipient == "" {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			n.notifyOne(ctx, req, recipient, assignedBy)
		}()
	}
	wg.Wait()
}

// RequirementCreated emails each lead the requirement was opened for.
func (n *Notifier) RequirementCreated(ctx context.Context, req *models.Requirement, leads []string) {
	if !n.cfg.Email.Enabled || n.email == nil {
		return
	}

	subject := fmt.Sprintf("New Requirement Created: %s", req.Title)
	body := fmt.Sprintf(
		"Hi,\n\nA new requirement has been created by %s and routed to you.\n\n"+
			"Requirement ID: %s\nTitle: %s\nClient: %s\nPriority: %s\n\n"+
			"Please assign recruiters to begin sourcing.\n",
		req.CreatedBy, req.RequirementID, req.Title, req.Client, req.Priority,
	)
	n.broadcastEmail(ctx, leads, subject, body, req.RequirementID)
}

// CandidateSubmitted emails the leads of the candidate's first target
// requirement.
func (n *Notifier) CandidateSubmitted(ctx context.Context, cand *models.Candidate, requirementTitle string, leads []string) {
	if !n.cfg.Email.Enabled || n.email == nil {
		return
	}

	subject := fmt.Sprintf("New Candidate Submitted: %s", cand.Name)
	body := fmt.Sprintf(
		"Hi,\n\n%s has submitted a new candidate.\n\n"+
			"Candidate: %s\nCandidate ID: %s\nRequirement: %s\n\n"+
			"Please review the submission.\n",
		cand.AddedBy, cand.Name, cand.CandidateID, requirementTitle,
	)
	n.broadcastEmail(ctx, leads, subject, body, cand.CandidateID)
}

func (n *Notifier) broadcastEmail(ctx context.Context, recipients []string, subject, body, entityID string) {
	var wg sync.WaitGroup
	for _, recipient := range recipients {
		recipient := strings.TrimSpace(recipient)
		if recipient == "" {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			n.sendEmail(ctx, recipient, subject, body, entityID)
		}()
	}
	wg.Wait()
}

func (n *Notifier) notifyOne(ctx context.Context, req *models.Requirement, recipient, assignedBy string) {
	if n.cfg.Email.Enabled && n.email != nil {
		n.sendAssignmentEmail(ctx, req, recipient, assignedBy)
	}
	if n.cfg.SMS.Enabled && n.sms != nil && meetsPriorityThreshold(req.Priority, n.cfg.SMS.PriorityThreshold) {
		n.sendAssignmentSMS(ctx, req, recipient)
	}
}

func (n *Notifier) sendAssignmentEmail(ctx context.Context, req *models.Requirement, recipient, assignedBy string) {
	subject := fmt.Sprintf("New Requirement Assigned: %s", req.Title)
	body := fmt.Sprintf(
		"Hi,\n\nYou have been assigned a new requirement by %s.\n\n"+
			"Requirement ID: %s\nTitle: %s\nLocations: %s\nEmployment Type: %s\nPriority: %s\n\n"+
			"Please log in to review the details and begin sourcing.\n",
		assignedBy, req.RequirementID, req.Title,
		strings.Join(req.Locations, ", "), req.EmploymentType, req.Priority,
	)

	n.sendEmail(ctx, recipient, subject, body, req.RequirementID)
}

func (n *Notifier) sendEmail(ctx context.Context, recipient, subject, body, entityID string) {
	_, err := n.email.SendEmail(ctx, &ses.SendEmailInput{
		Source:      sdkaws.String(n.cfg.Email.FromEmail),
		Destination: &sestypes.Destination{ToAddresses: []string{recipient}},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: sdkaws.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: sdkaws.String(body)},
			},
		},
	})
	if err != nil {
		metrics.NotificationsSent.WithLabelValues("email", "failure").Inc()
		n.logger.Error("Failed to send notification email", map[string]interface{}{
			"recipient": recipient,
			"entity_id": entityID,
			"error":     err.Error(),
		})
		return
	}

	metrics.NotificationsSent.WithLabelValues("email", "success").Inc()
	n.logger.Info("Notification email sent", map[string]interface{}{
		"recipient": recipient,
		"entity_id": entityID,
	})
}

func (n *Notifier) sendAssignmentSMS(ctx context.Context, req *models.Requirement, recipient string) {
	user, err := n.contacts.GetByEmail(ctx, recipient)
	if err != nil || user.Phone == "" {
		n.logger.Debug("Skipping SMS, no phone on record", map[string]interface{}{
			"recipient": recipient,
		})
		return
	}

	message := fmt.Sprintf("Urgent requirement %s (%s) has been assigned to you.", req.RequirementID, req.Title)
	input := &sns.PublishInput{
		PhoneNumber: sdkaws.String(user.Phone),
		Message:     sdkaws.String(message),
	}
	if n.senderID != "" {
		input.MessageAttributes = map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {
				DataType:    sdkaws.String("String"),
				StringValue: sdkaws.String(n.senderID),
			},
		}
	}

	if _, err := n.sms.Publish(ctx, input); err != nil {
		metrics.NotificationsSent.WithLabelValues("sms", "failure").Inc()
		n.logger.Error("Failed to send assignment SMS", map[string]interface{}{
			"recipient":      recipient,
			"requirement_id": req.RequirementID,
			"error":          err.Error(),
		})
		return
	}

	metrics.NotificationsSent.WithLabelValues("sms", "success").Inc()
}

var priorityRank = map[string]int{
	strings.ToLower(models.PriorityLow):    1,
	strings.ToLower(models.PriorityMedium): 2,
	strings.ToLower(models.PriorityHigh):   3,
}

func meetsPriorityThreshold(priority, threshold string) bool {
	p, ok := priorityRank[strings.ToLower(priority)]
	if !ok {
		return false
	}
	t, ok := priorityRank[strings.ToLower(threshold)]
	if !ok {
		return true
	}
	return p >= t
}
