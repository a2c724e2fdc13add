package auth

import "github.com/golang-jwt/jwt/v5"

// Authenticator resolves the external identity provider contract: tokens in,
// {id, role, shop} claims out. Token issuance lives with the identity
// service; this module only needs GenerateToken for tooling and tests.
type Authenticator interface {
	GenerateToken(userID int64, role string, shopID int64) (string, error)
	ValidateToken(token string) (*jwt.Token, error)
}
