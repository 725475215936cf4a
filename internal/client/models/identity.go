package models

// User roles known to the storefront.
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// UserIdentity describes the authenticated user as reported by the
// identity gateway (or decoded from the bearer token claims).
type UserIdentity struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Role        string `json:"role"`
}

// AuthResult is the structured outcome of an identity operation.
// Success=false with a Message is a normal, expected outcome (wrong
// password, unknown email, ...), not a transport error.
type AuthResult struct {
	Success    bool          `json:"success"`
	Message    string        `json:"message,omitempty"`
	Unverified bool          `json:"unverified,omitempty"`
	Token      string        `json:"token,omitempty"`
	User       *UserIdentity `json:"user,omitempty"`
}
