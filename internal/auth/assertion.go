package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/casefront/engage/internal/intake"
)

// ErrInvalidAssertion is returned when an identity-provider assertion
// fails validation.
var ErrInvalidAssertion = errors.New("auth: invalid identity assertion")

// assertionClaims is the payload of the identity-provider assertion JWT
// presented when a client logs in mid-conversation.
type assertionClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Name  string `json:"name"`
}

// AssertionVerifier validates login assertions minted by the external
// identity provider. It is configured with the provider's shared secret
// and expected issuer, distinct from the staff JWT secret.
type AssertionVerifier struct {
	secret string
	issuer string
}

func NewAssertionVerifier(secret, issuer string) *AssertionVerifier {
	return &AssertionVerifier{secret: secret, issuer: issuer}
}

// Verify parses an assertion and returns the verified identity claims.
// The subject is the provider's stable account identifier.
func (v *AssertionVerifier) Verify(assertion string) (*intake.VerifiedIdentity, error) {
	claims := &assertionClaims{}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(assertion, claims, func(_ *jwt.Token) (any, error) {
		return []byte(v.secret), nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("auth.AssertionVerifier.Verify: %w", ErrInvalidAssertion)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("auth.AssertionVerifier.Verify: missing subject: %w", ErrInvalidAssertion)
	}

	return &intake.VerifiedIdentity{
		Subject: claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
	}, nil
}
