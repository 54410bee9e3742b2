package auth

import (
	"os"
	"time"
)

// EnvironmentStore implements CredentialStore from environment variables.
// It is read-only: credentials set in the environment can be retrieved but
// never stored or deleted.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a store backed by environment variables.
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables.
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve builds an account from GRAPHLOAD_USERNAME and GRAPHLOAD_TOKEN.
// The token is required; the username defaults to "default" when unset, so
// CI jobs can export a bare token.
func (e *EnvironmentStore) Retrieve(username string) (*Account, error) {
	token := os.Getenv("GRAPHLOAD_TOKEN")
	if token == "" {
		return nil, ErrCredentialsNotFound
	}

	envUsername := os.Getenv("GRAPHLOAD_USERNAME")
	if envUsername == "" {
		envUsername = "default"
	}

	if username != "" && username != envUsername {
		return nil, ErrCredentialsNotFound
	}

	return &Account{
		Username:     envUsername,
		Token:        token,
		Host:         os.Getenv("GRAPHLOAD_HOST"),
		LastModified: time.Now(),
	}, nil
}

// List returns the environment account if one is configured.
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables.
func (e *EnvironmentStore) Delete(username string) error {
	return ErrStoreUnavailable
}

// Exists checks whether the environment provides credentials for the
// given username.
func (e *EnvironmentStore) Exists(username string) bool {
	account, err := e.Retrieve(username)
	return err == nil && account != nil
}
