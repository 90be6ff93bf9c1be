package auth

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type credentialsRepoMock struct {
	mutex       sync.Mutex
	credentials map[string]*Credential
	// Err, when set, is returned by every lookup.
	Err error
}

func NewMockCredentialsRepo() *credentialsRepoMock {
	return &credentialsRepoMock{
		credentials: make(map[string]*Credential),
	}
}

func (r *credentialsRepoMock) GetByUsername(_ context.Context, username string) (*Credential, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.Err != nil {
		return nil, r.Err
	}
	c, ok := r.credentials[username]
	if !ok {
		return nil, ErrCredentialNotFound
	}
	found := *c
	return &found, nil
}

func (r *credentialsRepoMock) Upsert(_ context.Context, username, passwordHash string) (*Credential, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	c, ok := r.credentials[username]
	if !ok {
		c = &Credential{
			ID:       uuid.NewString(),
			Username: username,
		}
		r.credentials[username] = c
	}
	c.PasswordHash = passwordHash
	stored := *c
	return &stored, nil
}
