// Package operator carries the operator identity for the running daemon.
//
// The identity is parsed once from the portal session token and injected
// explicitly into the components that need it, rather than read from ambient
// global state.
package operator

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the operator on whose behalf this daemon acts. Provisional
// messages carry its display name as sender info.
type Identity struct {
	AgentID string
	Name    string
	Role    string
}

// Claims are the portal session token claims.
type Claims struct {
	jwt.RegisteredClaims
	Name string `json:"name"`
	Role string `json:"role"`
}

// FromToken parses an Identity from a signed portal session token.
func FromToken(tokenString, secret string) (Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return Identity{}, err
	}
	if !token.Valid {
		return Identity{}, errors.New("invalid session token")
	}
	if claims.Subject == "" {
		return Identity{}, errors.New("session token missing subject")
	}

	return Identity{
		AgentID: claims.Subject,
		Name:    claims.Name,
		Role:    claims.Role,
	}, nil
}
