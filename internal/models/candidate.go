// internal/models/candidate.go
package models

import "time"

// Workflow position of a candidate in the review pipeline.
const (
	CandidateSubmitted        = "submitted"
	CandidateForwardedToLeads = "forwarded-to-leads"
	CandidateForwardedToSales = "forwarded-to-sales"
)

// Who originated the candidate record.
const (
	SourceRoleRecruiter = "recruiter"
	SourceRoleLeads     = "leads"
)

// CandidateUpdateStages lists the review-outcome annotations used by the
// candidate_update and lead_update fields. lead_update additionally allows
// the empty string.
var CandidateUpdateStages = []string{
	"submitted",
	"L1-cleared",
	"selected",
	"rejected",
	"Waiting-for-update",
	"To-be-interviewed",
	"Decision-pending",
	"internal-rejection",
	"submitted-to-client",
}

type Candidate struct {
	CandidateID     string   `json:"candidateId"`
	Name            string   `json:"name"`
	Email           string   `json:"email"`
	Phone           string   `json:"phone,omitempty"`
	Role            string   `json:"role,omitempty"`
	Rate            string   `json:"rate,omitempty"`
	Source          string   `json:"source,omitempty"`
	CurrentLocation string   `json:"currentLocation,omitempty"`
	Relocation      string   `json:"relocation,omitempty"`
	PassportNumber  string   `json:"passportNumber,omitempty"`
	Last4SSN        string   `json:"last4SSN,omitempty"`
	LinkedinURL     string   `json:"linkedinUrl,omitempty"`
	VisaStatus      string   `json:"visaStatus,omitempty"`
	ClientDetails   string   `json:"clientDetails,omitempty"`
	Notes           string   `json:"notes,omitempty"`
	ResumeURLs      []string `json:"resumeUrls"`
	FolderID        string   `json:"folderId,omitempty"`

	// Linked requirements; always at least one entry.
	RequirementIDs    []string `json:"requirementId"`
	WorkAuthorization []string `json:"workAuthorization"`

	AddedBy     string `json:"addedBy"`
	ForwardedBy string `json:"forwardedBy,omitempty"`
	SourceRole  string `json:"sourceRole"`

	Status          string `json:"status"`
	CandidateUpdate string `json:"candidate_update,omitempty"`
	LeadUpdate      string `json:"lead_update"`
	IsActive        bool   `json:"isActive"`
	IsDeleted       bool   `json:"isDeleted"`

	// Open-schema passthrough for intake fields the API does not model.
	Extra map[string]interface{} `json:"extra,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// EnrichedCandidate is a candidate with the read-time requirement-title join
// attached. Never persisted.
type EnrichedCandidate struct {
	Candidate
	RequirementTitles []string `json:"requirementTitles"`
}
