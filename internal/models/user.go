// internal/models/user.go
package models

// Roles recognized by the access control gate. Role checks are
// case-insensitive.
const (
	RoleAdmin          = "admin"
	RoleSales          = "sales"
	RoleLead           = "lead"
	RoleRecruiter      = "recruiter"
	RoleAccountManager = "accountManager"
)

// User is the external identity record. Referenced for role lookups, never
// owned by this service.
type User struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Team     string `json:"team,omitempty"`
	Phone    string `json:"phone,omitempty"`
}
