package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// GenerateClientToken mints a signed HS256 installation token. The client id
// travels in the subject claim; push and pull requests are attributed to it.
//
// All parameters are required. Returns an error if any of them are empty or
// zero.
func GenerateClientToken(issuer, clientID string, tokenDuration time.Duration, signKey string) (string, error) {
	if issuer == "" || clientID == "" || tokenDuration == 0 || signKey == "" {
		return "", errors.New("invalid params for generating client token")
	}

	now := time.Now()
	claims := &jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   clientID,
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenDuration)),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(signKey))
	if err != nil {
		return "", fmt.Errorf("error occurred during signing client token: %w", err)
	}

	return tokenString, nil
}

// ValidateClientToken verifies the signature, issuer and expiry of an
// installation token and returns the client id from its subject claim.
func ValidateClientToken(tokenString, signKey, issuer string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(signKey), nil
	}, jwt.WithIssuer(issuer), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("error occurred validating client token: %w", err)
	}

	clientID, err := token.Claims.GetSubject()
	if err != nil {
		return "", fmt.Errorf("error occurred reading token subject: %w", err)
	}
	if clientID == "" {
		return "", errors.New("empty subject in client token")
	}

	return clientID, nil
}

// ParseBearerToken extracts the token from an "Authorization: Bearer <token>"
// header value.
func ParseBearerToken(authorizationHeader string) (string, error) {
	parts := strings.Split(strings.TrimSpace(authorizationHeader), " ")
	if len(parts) != 2 || parts[1] == "" {
		return "", errors.New("invalid authorization header")
	}
	return parts[1], nil
}
