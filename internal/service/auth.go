package service

import (
	"crypto/subtle"
	"fmt"

	"strategist/pkg/advice"

	"golang.org/x/crypto/bcrypt"
)

// AuthService checks the shared password. A bcrypt hash, when configured,
// takes precedence over the plaintext secret.
type AuthService struct {
	password string
	hash     []byte
}

func NewAuthService(password, hash string) *AuthService {
	s := &AuthService{password: password}
	if hash != "" {
		s.hash = []byte(hash)
	}
	return s
}

func (s *AuthService) Check(password string) error {
	if password == "" {
		return fmt.Errorf("%w: Unauthorized: Invalid password.", advice.ErrUnauthorized)
	}
	if s.hash != nil {
		if bcrypt.CompareHashAndPassword(s.hash, []byte(password)) != nil {
			return fmt.Errorf("%w: Unauthorized: Invalid password.", advice.ErrUnauthorized)
		}
		return nil
	}
	if s.password == "" || subtle.ConstantTimeCompare([]byte(s.password), []byte(password)) != 1 {
		return fmt.Errorf("%w: Unauthorized: Invalid password.", advice.ErrUnauthorized)
	}
	return nil
}
