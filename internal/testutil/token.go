package testutil

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SignToken issues an HS256 token carrying Keycloak-shaped realm roles.
// Pass nil roles to omit the realm_access claim entirely.
func SignToken(t *testing.T, secret []byte, subject, username string, roles []string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":                subject,
		"preferred_username": username,
		"exp":                time.Now().Add(time.Hour).Unix(),
	}
	if roles != nil {
		realmRoles := make([]any, 0, len(roles))
		for _, role := range roles {
			realmRoles = append(realmRoles, role)
		}
		claims["realm_access"] = map[string]any{"roles": realmRoles}
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}
