package auth

import "errors"

var (
	// ErrValidation is returned for a malformed or incomplete login payload.
	ErrValidation = errors.New("invalid payload")
	// ErrInvalidCredentials covers both an unknown username and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidSession covers a bad signature, a malformed token and an expired token.
	ErrInvalidSession = errors.New("invalid session")
	// ErrMissingSecret is a configuration error: the service must not start without a signing secret.
	ErrMissingSecret = errors.New("session signing secret not configured")
	ErrInvalidClaim  = errors.New("claim subject and username must be set")

	ErrCredentialNotFound = errors.New("credential not found")
)
