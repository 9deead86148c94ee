package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/julianstephens/habitual/internal/constants"
)

var (
	// ErrNotFound is returned when no credentials are found in the keyring
	ErrNotFound = errors.New("credentials not found in keyring")
	// ErrKeyringUnavailable is returned when the OS keyring is not available
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

// Entry names one secret in the OS keyring.
type Entry struct {
	Service string
	User    string
	// Label is used in messages shown to the user.
	Label string
}

var (
	// ConnectionString holds the PostgreSQL connection string.
	ConnectionString = Entry{Service: constants.AppName, User: constants.DefaultKeyringUser, Label: "database connection string"}
	// CallbackSecret holds the shared secret for the local action listener.
	CallbackSecret = Entry{Service: constants.AppName, User: constants.SecretKeyringUser, Label: "callback secret"}
)

// Get retrieves the secret. Returns ErrNotFound if nothing is stored.
func (e Entry) Get() (string, error) {
	value, err := keyring.Get(e.Service, e.User)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return value, nil
}

// Set stores the secret, replacing any previous value.
func (e Entry) Set(value string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", e.Label)
	}
	if err := keyring.Set(e.Service, e.User, value); err != nil {
		return fmt.Errorf("failed to store %s in keyring: %w", e.Label, err)
	}
	return nil
}

// Delete removes the secret.
func (e Entry) Delete() error {
	if err := keyring.Delete(e.Service, e.User); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete %s from keyring: %w", e.Label, err)
	}
	return nil
}

// IsAvailable checks if the OS keyring is available on the current system.
// This is a best-effort check and may not catch all failure scenarios.
func IsAvailable() bool {
	_, err := keyring.Get(constants.AppName, "test-availability")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}
