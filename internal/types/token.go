package types

// TokenClaims is the decoded identity carried by a bearer token.
type TokenClaims struct {
	UserID uint
}
