package session

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/msavina/craftmarket/internal/client/models"
	"github.com/msavina/craftmarket/internal/common"
)

// IdentityFromToken decodes identity claims out of a bearer token.
// The signature is NOT verified: validating tokens is the backend's job,
// the client only reads the public claims to label the session.
func IdentityFromToken(token string) (*models.UserIdentity, error) {
	if token == "" {
		return nil, common.ErrTokenMissing
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	user := &models.UserIdentity{
		ID:          stringClaim(claims, "sub"),
		DisplayName: stringClaim(claims, "name"),
		Email:       stringClaim(claims, "email"),
		Role:        stringClaim(claims, "role"),
	}
	if user.ID == "" {
		return nil, fmt.Errorf("%w: missing subject", common.ErrInvalidToken)
	}
	if user.Role == "" {
		user.Role = models.RoleMember
	}
	return user, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
