package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/greenfield-academy/website/pkg"
)

type credentialsStore interface {
	GetByUsername(ctx context.Context, username string) (*Credential, error)
}

// Service checks admin credentials and issues session tokens. It keeps no
// per-session state: a session lives only in the signed token.
type Service struct {
	credentials credentialsStore
	codec       *TokenCodec
	// compared against when the username is unknown
	dummyHash string
}

func NewService(credentials credentialsStore, codec *TokenCodec) (*Service, error) {
	randomPassword, err := pkg.GenerateRandomString(32)
	if err != nil {
		return nil, fmt.Errorf("generate dummy password: %w", err)
	}
	dummyHash, err := pkg.HashPassword(randomPassword)
	if err != nil {
		return nil, fmt.Errorf("hash dummy password: %w", err)
	}

	return &Service{
		credentials: credentials,
		codec:       codec,
		dummyHash:   dummyHash,
	}, nil
}

func (s *Service) Codec() *TokenCodec {
	return s.codec
}

// Login returns a signed session token for valid credentials. Unknown
// username and wrong password both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, creds Credentials) (string, error) {
	if err := creds.Validate(); err != nil {
		return "", err
	}

	credential, err := s.credentials.GetByUsername(ctx, creds.Username)
	if err != nil {
		if errors.Is(err, ErrCredentialNotFound) {
			pkg.CheckPasswordHash(creds.Password, s.dummyHash)
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("get credential: %w", err)
	}

	if !pkg.CheckPasswordHash(creds.Password, credential.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	return s.codec.Issue(Claim{
		Subject:  credential.ID,
		Username: credential.Username,
	})
}
