package domain

// ID is used across domain entities.
type ID = int64

// RequestContext carries the authenticated caller. Every service operation takes it
// explicitly; nothing reads organization or actor ids from ambient state.
type RequestContext struct {
	OrganizationID ID     `json:"organizationId"`
	UserID         ID     `json:"userId"`
	Role           string `json:"role"`
	RequestID      string `json:"requestId,omitempty"`
}

// Roles recognised by the lifecycle services.
const (
	RoleAdmin      = "admin"
	RoleDispatcher = "dispatcher"
	RoleDriver     = "driver"
	RoleMember     = "member"
)
