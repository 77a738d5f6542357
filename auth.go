package ghpress

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const (
	tokenIssuer   = "ghpress"
	tokenAudience = "ghpress-admin"
	authCookie    = "ghpress_token"

	defaultTokenTTL = 24 * time.Hour
)

// ErrInvalidToken is the single outcome for every token failure: malformed,
// expired, wrong signature, wrong issuer or audience. Callers cannot tell
// which, on purpose.
var ErrInvalidToken = errors.New("invalid token")

// TokenClaims binds a username to a signed expiry.
type TokenClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}

// Guard issues and verifies the stateless tokens gating mutating
// operations. Validity is entirely signature plus expiry; there is no
// server-side session state.
type Guard struct {
	secret   []byte
	username string
	password string
	ttl      time.Duration
	now      func() time.Time
}

// NewGuard creates a Guard with the given signing secret and the single
// configured admin credential pair.
func NewGuard(secret, username, password string, ttl time.Duration) *Guard {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &Guard{
		secret:   []byte(secret),
		username: username,
		password: password,
		ttl:      ttl,
		now:      time.Now,
	}
}

// IssueToken signs a token for username, expiring after the Guard's TTL.
func (g *Guard) IssueToken(username string) (string, time.Time, error) {
	now := g.now()
	exp := now.Add(g.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Username: username,
	})
	signed, err := token.SignedString(g.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// VerifyToken checks signature, expiry, issuer and audience. A token
// without an expiry is rejected, so verified claims always carry one.
// Every failure collapses to ErrInvalidToken.
func (g *Guard) VerifyToken(tokenString string) (TokenClaims, error) {
	claims := TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims,
		func(t *jwt.Token) (any, error) { return g.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil || !token.Valid {
		return TokenClaims{}, ErrInvalidToken
	}
	return claims, nil
}

// CheckCredentials compares both username and password against the
// configured values in constant time, combining the results without
// short-circuiting.
func (g *Guard) CheckCredentials(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(g.username))
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(g.password))
	return userOK&passOK == 1
}

// tokenFromRequest extracts the token from the auth cookie first, then from
// a bearer Authorization header.
func tokenFromRequest(c echo.Context) string {
	if cookie, err := c.Cookie(authCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	const prefix = "Bearer "
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}

func setAuthCookie(c echo.Context, token string, exp time.Time, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     authCookie,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   secure,
	})
}

func clearAuthCookie(c echo.Context, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     authCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   secure,
	})
}
