package models

import "github.com/golang-jwt/jwt/v5"

// Roles carried in the identity token. Authentication itself happens
// upstream; the engine only trusts the decoded claims.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// UserClaims is the identity context supplied by the session collaborator.
type UserClaims struct {
	jwt.RegisteredClaims
	OwnerID     uint   `json:"owner_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Phone       string `json:"phone"`
	Role        string `json:"role"`
}

// IsAdmin reports whether the acting user may use operator endpoints.
func (c *UserClaims) IsAdmin() bool {
	return c.Role == RoleAdmin
}
