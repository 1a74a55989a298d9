package keyring

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// Service is the keyring service name the relay credential is stored under
	Service = "report-generator"
	// User is the keyring account holding the Airtable API key
	User = "airtable-api-key"
)

var (
	// ErrNotFound is returned when no API key is stored in the keyring
	ErrNotFound = errors.New("API key not found in keyring")
	// ErrKeyringUnavailable is returned when the OS keyring is not available
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

// GetAPIKey retrieves the Airtable API key from the OS keyring.
func GetAPIKey() (string, error) {
	key, err := keyring.Get(Service, User)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return key, nil
}

// KeyStatus describes the stored API key without exposing it
type KeyStatus struct {
	Stored bool
	Hint   string // last four characters, e.g. "…a1b2"
}

// Status reports whether an API key is stored. ErrNotFound is not an error
// here; an unavailable keyring is.
func Status() (KeyStatus, error) {
	key, err := GetAPIKey()
	if errors.Is(err, ErrNotFound) {
		return KeyStatus{}, nil
	}
	if err != nil {
		return KeyStatus{}, err
	}
	return KeyStatus{Stored: true, Hint: mask(key)}, nil
}

func mask(key string) string {
	runes := []rune(key)
	if len(runes) <= 4 {
		return "…"
	}
	return "…" + string(runes[len(runes)-4:])
}

// SetAPIKey stores the Airtable API key in the OS keyring. Surrounding
// whitespace from pasted tokens is dropped.
func SetAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("API key cannot be empty")
	}
	if err := keyring.Set(Service, User, key); err != nil {
		return fmt.Errorf("failed to store API key in keyring: %w", err)
	}
	return nil
}

// DeleteAPIKey removes the Airtable API key from the OS keyring.
func DeleteAPIKey() error {
	err := keyring.Delete(Service, User)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete API key from keyring: %w", err)
	}
	return nil
}
