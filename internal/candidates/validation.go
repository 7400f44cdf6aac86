package candidates

import (
	"ats-backend/internal/common/validation"
	"ats-backend/internal/models"
)

// ==========================
// Request Schemas
// ==========================

// The intake body is an open schema on purpose: unknown fields flow into
// the extra column. Only the structural essentials are pinned here, the
// service enforces the semantic rules.
var submitSchema = validation.JSONSchema{
	Type: "object",
	Properties: map[string]validation.Property{
		"name":  {Type: "string", MinLength: validation.IntPtr(1)},
		"email": {Type: "string"},
		"phone": {Type: "string"},
	},
	Required:             []string{"name"},
	AdditionalProperties: true,
}

var updateFieldsSchema = validation.JSONSchema{
	Type: "object",
	Properties: map[string]validation.Property{
		"candidateId":      {Type: "string", MinLength: validation.IntPtr(1)},
		"isActive":         {Type: "boolean"},
		"candidate_update": {Type: "string", Enum: models.CandidateUpdateStages},
	},
	Required:             []string{"candidateId"},
	AdditionalProperties: true,
}
