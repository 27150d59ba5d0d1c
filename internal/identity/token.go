package identity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when an identity token cannot be verified.
var ErrInvalidToken = errors.New("identity: invalid token")

// Claims is the token payload issued by the identity provider.
type Claims struct {
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Mobile string `json:"mobile,omitempty"`
	Image  string `json:"picture,omitempty"`
	Role   Role   `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// ParseToken verifies an HMAC-signed identity token. An empty token yields a
// Guest.
func ParseToken(tokenString, secret string) (User, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tokenString), "Bearer "))
	if tokenString == "" {
		return Guest{}, nil
	}
	if secret == "" {
		return nil, fmt.Errorf("%w: no signing secret configured", ErrInvalidToken)
	}
	claims := Claims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	role := claims.Role
	if role == "" {
		role = RolePatient
	}
	return Authenticated{
		ID:     claims.Subject,
		Name:   claims.Name,
		Email:  claims.Email,
		Mobile: claims.Mobile,
		Image:  claims.Image,
		Role:   role,
	}, nil
}

// IssueToken signs claims for u. The identity provider owns real issuance;
// this exists for local tooling and tests.
func IssueToken(u Authenticated, secret string) (string, error) {
	claims := Claims{
		Name:   u.Name,
		Email:  u.Email,
		Mobile: u.Mobile,
		Image:  u.Image,
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: u.ID,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
