package auth

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes plaintext password using bcrypt.
func HashPassword(password string) (string, error) {
	if len(password) == 0 {
		return "", errors.New("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares plaintext password with stored hash.
func VerifyPassword(hash, password string) error {
	if hash == "" {
		return errors.New("password hash is empty")
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// Credentials holds bcrypt hashes of the owner secrets allowed to request
// tokens. It stands in for a user directory in development deployments.
type Credentials struct {
	mu     sync.RWMutex
	hashes map[string]string
}

// NewCredentials returns an empty credential set.
func NewCredentials() *Credentials {
	return &Credentials{hashes: make(map[string]string)}
}

// ParseCredentials reads "owner:secret" pairs separated by commas. Secrets
// that already look like bcrypt hashes are stored as is.
func ParseCredentials(spec string) (*Credentials, error) {
	c := NewCredentials()
	for _, pair := range strings.Split(spec, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		owner, secret, ok := strings.Cut(pair, ":")
		if !ok || strings.TrimSpace(owner) == "" || secret == "" {
			return nil, fmt.Errorf("malformed credential %q: want owner:secret", pair)
		}
		if err := c.Set(owner, secret); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Set registers or replaces the secret of owner.
func (c *Credentials) Set(owner, secret string) error {
	owner = strings.TrimSpace(owner)
	hash := secret
	if _, err := bcrypt.Cost([]byte(secret)); err != nil {
		if hash, err = HashPassword(secret); err != nil {
			return fmt.Errorf("hash secret for %s: %w", owner, err)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hashes[owner] = hash
	return nil
}

// Len reports how many owners are registered.
func (c *Credentials) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.hashes)
}

// Verify checks secret against the stored hash for owner.
func (c *Credentials) Verify(owner, secret string) error {
	c.mu.RLock()
	hash, ok := c.hashes[strings.TrimSpace(owner)]
	c.mu.RUnlock()
	if !ok {
		return ErrInvalidCredentials
	}
	if err := VerifyPassword(hash, secret); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
