package auth

import "time"

// Config drives token issuing. An empty Secret disables authentication.
type Config struct {
	Secret   string
	Issuer   string
	TokenTTL time.Duration
}

// Roles an operator token may carry.
const (
	RoleOperator = "operator"
	RoleAdmin    = "admin"
)

// Token is a signed bearer token.
type Token struct {
	Token     string    `json:"token"`
	Subject   string    `json:"subject"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Claims are extracted from a validated token.
type Claims struct {
	Subject   string
	Role      string
	ExpiresAt time.Time
}
