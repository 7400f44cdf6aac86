package requirements

import (
	"ats-backend/internal/common/validation"
	"ats-backend/internal/models"
)

// ==========================
// Request Schemas
// ==========================

var createSchema = validation.JSONSchema{
	Type: "object",
	Properties: map[string]validation.Property{
		"title":       {Type: "string", MinLength: validation.IntPtr(1)},
		"description": {Type: "string", MinLength: validation.IntPtr(1)},
		"client":      {Type: "string"},
		"leadAssignedTo": {
			Type:  "array",
			Items: &validation.Property{Type: "string"},
		},
		"recruiterAssignedTo": {
			Type:  "array",
			Items: &validation.Property{Type: "string"},
		},
		"locations": {
			Type:  "array",
			Items: &validation.Property{Type: "string"},
		},
		"employmentType": {Type: "string"},
		"workSetting":    {Type: "string"},
		"rate":           {Type: "string"},
		"primarySkills":  {Type: "string"},
		"priority":       {Type: "string", Enum: []string{"High", "Medium", "Low"}},
		"workAuthorization": {
			Type:  "array",
			Items: &validation.Property{Type: "string", Enum: models.WorkAuthorizations},
		},
		"duration": {Type: "string", Enum: []string{"longterm", "shortterm"}},
	},
	Required:             []string{"title", "description", "duration"},
	AdditionalProperties: true,
}

var assignSingleSchema = validation.JSONSchema{
	Type: "object",
	Properties: map[string]validation.Property{
		"recruiterAssignedTo": {
			Type:     "array",
			MinItems: validation.IntPtr(1),
			Items:    &validation.Property{Type: "string"},
		},
		"leadEmail": {Type: "string"},
	},
	Required:             []string{"recruiterAssignedTo"},
	AdditionalProperties: true,
}

var assignMultipleSchema = validation.JSONSchema{
	Type: "object",
	Properties: map[string]validation.Property{
		"requirementIds": {
			Type:     "array",
			MinItems: validation.IntPtr(1),
			Items:    &validation.Property{Type: "string"},
		},
		"recruiterAssignedTo": {
			Type:     "array",
			MinItems: validation.IntPtr(1),
			Items:    &validation.Property{Type: "string"},
		},
		"leadEmail": {Type: "string"},
	},
	Required:             []string{"requirementIds", "recruiterAssignedTo"},
	AdditionalProperties: true,
}

var updateStatusSchema = validation.JSONSchema{
	Type: "object",
	Properties: map[string]validation.Property{
		"requirementId":     {Type: "string", MinLength: validation.IntPtr(1)},
		"requirementStatus": {Type: "string", Enum: []string{"open", "closed"}},
	},
	Required:             []string{"requirementId", "requirementStatus"},
	AdditionalProperties: true,
}
