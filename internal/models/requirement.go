// internal/models/requirement.go
package models

import "time"

// Workflow status values for a requirement's assignment stage.
const (
	ReqStatusNew               = "new"
	ReqStatusLeadAssigned      = "leadAssigned"
	ReqStatusRecruiterAssigned = "recruiterAssigned"
	ReqStatusInProgress        = "inProgress"
	ReqStatusClosed            = "closed"
)

// Operational open/closed flag, independent of the workflow status.
const (
	RequirementOpen   = "open"
	RequirementClosed = "closed"
)

// Priority values.
const (
	PriorityHigh   = "High"
	PriorityMedium = "Medium"
	PriorityLow    = "Low"
)

// Duration classes.
const (
	DurationLongterm  = "longterm"
	DurationShortterm = "shortterm"
)

// WorkAuthorizations lists the accepted work-authorization values.
var WorkAuthorizations = []string{"USC", "GC", "GC-EAD", "H1B", "H4-EAD", "TN", "L2-EAD", "OPT", "Other"}

type Requirement struct {
	RequirementID       string    `json:"requirementId"`
	Title               string    `json:"title"`
	Description         string    `json:"description"`
	Client              string    `json:"client,omitempty"`
	CreatedBy           string    `json:"createdBy"`
	LeadAssignedTo      []string  `json:"leadAssignedTo"`
	LeadAssignedBy      string    `json:"leadAssignedBy,omitempty"`
	RecruiterAssignedTo []string  `json:"recruiterAssignedTo"`
	RecruiterAssignedBy []string  `json:"recruiterAssignedBy"`
	Locations           []string  `json:"locations"`
	EmploymentType      string    `json:"employmentType,omitempty"`
	WorkSetting         string    `json:"workSetting,omitempty"`
	Rate                string    `json:"rate,omitempty"`
	PrimarySkills       string    `json:"primarySkills,omitempty"`
	Priority            string    `json:"priority"`
	Status              string    `json:"status"`
	RequirementStatus   string    `json:"requirementStatus"`
	WorkAuthorization   []string  `json:"workAuthorization"`
	Duration            string    `json:"duration"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}
