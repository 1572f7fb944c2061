package auth

import "errors"

var (
	// ErrInvalidToken indicates the token failed validation.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrMissingSecret is returned when no signing secret is configured.
	ErrMissingSecret = errors.New("auth: signing secret is not configured")
	// ErrInvalidCredentials covers unknown owners and wrong secrets alike.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
)
