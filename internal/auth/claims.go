package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

// Only access tokens are accepted. Tokens of any other type, such as the
// admin site's refresh tokens, fail with ErrTokenType.
const TokenTypeAccess TokenType = "access"

// Claims are the only supported JWT claims shape for dashboard users.
// Role decides which panel routes a user may reach; see internal/rbac.
type Claims struct {
	jwt.RegisteredClaims

	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	TokenType TokenType `json:"token_type"`
}
