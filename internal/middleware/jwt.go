package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ContextUnlocked is set on the gin context when the request carried a
// valid session token.
const ContextUnlocked = "unlocked"

const tokenSubject = "strategist"

// Tokens issues and verifies session tokens that stand in for the shared
// password.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret []byte, ttl time.Duration) *Tokens {
	return &Tokens{secret: secret, ttl: ttl, now: time.Now}
}

func (t *Tokens) Issue() (string, time.Time, error) {
	exp := t.now().Add(t.ttl)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   tokenSubject,
		IssuedAt:  jwt.NewNumericDate(t.now()),
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// Verify returns the token's expiry when it is valid.
func (t *Tokens) Verify(raw string) (time.Time, error) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(tok *jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil {
		return time.Time{}, err
	}
	if !token.Valid || claims.Subject != tokenSubject || claims.ExpiresAt == nil {
		return time.Time{}, errors.New("invalid token")
	}
	return claims.ExpiresAt.Time, nil
}

// BearerAuth marks requests carrying a valid token as unlocked. It never
// rejects: the handler decides whether a password is still required.
func BearerAuth(t *Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.Next()
			return
		}
		exp, err := t.Verify(auth[7:])
		if err != nil {
			c.Next()
			return
		}
		c.Set(ContextUnlocked, true)

		// renew when less than a day is left
		if exp.Sub(t.now()) < 24*time.Hour {
			if renewed, _, err := t.Issue(); err == nil {
				c.Header("X-New-Token", renewed)
			}
		}

		c.Next()
	}
}
