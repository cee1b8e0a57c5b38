package session

import (
	"errors"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
)

// Auth validates bearer tokens and extracts the caller's identity. In
// production tokens are RS256 signed and checked against a JWKS; test
// mode accepts HMAC tokens signed with a shared secret so the suite does
// not need a key server.
type Auth struct {
	jwks       *keyfunc.JWKS
	audience   string
	issuer     string
	testSecret []byte
}

// NewAuth builds a JWKS-backed verifier.
func NewAuth(jwks *keyfunc.JWKS, audience, issuer string) *Auth {
	return &Auth{jwks: jwks, audience: audience, issuer: issuer}
}

// NewTestAuth builds an HMAC verifier for tests and local runs.
func NewTestAuth(secret []byte) *Auth {
	return &Auth{testSecret: secret}
}

var errBadAuthHeader = errors.New("bad authorization header")

// IdentityFromAuthHeader returns the subject of a valid bearer token.
func (a *Auth) IdentityFromAuthHeader(header string) (string, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errBadAuthHeader
	}
	tokenStr := parts[1]
	if strings.Count(tokenStr, ".") != 2 {
		return "", errBadAuthHeader
	}
	if a.testSecret != nil {
		return a.verifyHMAC(tokenStr)
	}
	return a.verifyRS256(tokenStr)
}

func (a *Auth) verifyHMAC(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return a.testSecret, nil
	})
	if err != nil {
		return "", err
	}
	return subject(token)
}

func (a *Auth) verifyRS256(tokenStr string) (string, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"RS256"}))
	token, err := parser.Parse(tokenStr, a.jwks.Keyfunc)
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}
	now := time.Now().Add(time.Minute).Unix()
	if !claims.VerifyExpiresAt(now, true) {
		return "", errors.New("token expired")
	}
	if !claims.VerifyNotBefore(now, false) {
		return "", errors.New("token not valid yet")
	}
	if !claims.VerifyAudience(a.audience, false) {
		return "", errors.New("invalid audience")
	}
	if !claims.VerifyIssuer(a.issuer, false) {
		return "", errors.New("invalid issuer")
	}
	return subject(token)
}

func subject(token *jwt.Token) (string, error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("missing sub")
	}
	return sub, nil
}
