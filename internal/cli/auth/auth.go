package auth

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	service = "crypgo-admin"
)

// ErrNotAuthenticated is returned when no admin session is stored for a backend
var ErrNotAuthenticated = errors.New("not authenticated. Please run 'crypgo-admin login' first")

// getKeyringKey returns a unique key for storing the admin cookie per backend
func getKeyringKey(backendURL string) string {
	return fmt.Sprintf("admin-%s", backendURL)
}

// SaveToken persists the admin session cookie in the OS keychain/credential manager
func SaveToken(backendURL, token string) error {
	key := getKeyringKey(backendURL)
	if err := keyring.Set(service, key, token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// LoadToken retrieves the admin session cookie from the OS keychain/credential manager
func LoadToken(backendURL string) (string, error) {
	key := getKeyringKey(backendURL)
	token, err := keyring.Get(service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotAuthenticated
		}
		return "", fmt.Errorf("failed to load token: %w", err)
	}
	return token, nil
}

// DeleteToken removes the admin session cookie from the OS keychain/credential manager
func DeleteToken(backendURL string) error {
	key := getKeyringKey(backendURL)
	if err := keyring.Delete(service, key); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}
