// Package secret stores provider API keys and SSH passphrases in the OS
// keyring (macOS Keychain, Linux Secret Service, Windows Credential Manager).
package secret

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/zalando/go-keyring"
)

// KeyringService is the service name used for keyring entries.
const KeyringService = "eschatch"

// Store provides OS keyring access with graceful degradation: when no
// keyring backend is available, lookups report not-found instead of failing
// the session.
type Store struct {
	enabled bool
	mu      sync.RWMutex
}

// NewStore probes the system keyring and returns a store. A probe failure
// disables keyring usage for the process.
func NewStore() *Store {
	s := &Store{enabled: true}

	testKey := "__eschatch_probe__"
	if err := keyring.Set(KeyringService, testKey, "probe"); err != nil {
		slog.Debug("keyring not available",
			slog.String("error", err.Error()),
		)
		s.enabled = false
		return s
	}
	_ = keyring.Delete(KeyringService, testKey)

	slog.Debug("keyring storage enabled")
	return s
}

// IsEnabled reports whether a keyring backend is available.
func (s *Store) IsEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

// SetEnabled allows forcing keyring usage on or off.
func (s *Store) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
}

// SetAPIKey stores the API key for a provider.
func (s *Store) SetAPIKey(provider, key string) error {
	if !s.IsEnabled() {
		return fmt.Errorf("keyring not available")
	}
	entry := "api-key:" + provider
	if err := keyring.Set(KeyringService, entry, key); err != nil {
		return fmt.Errorf("store api key: %w", err)
	}
	slog.Debug("stored api key in keyring", slog.String("provider", provider))
	return nil
}

// APIKey retrieves the API key for a provider. A missing entry returns
// an empty key with a nil error.
func (s *Store) APIKey(provider string) (string, error) {
	if !s.IsEnabled() {
		return "", nil
	}
	key, err := keyring.Get(KeyringService, "api-key:"+provider)
	if err != nil {
		if err == keyring.ErrNotFound {
			return "", nil
		}
		return "", fmt.Errorf("get api key: %w", err)
	}
	return key, nil
}

// DeleteAPIKey removes the API key for a provider. Deleting a missing
// entry is not an error.
func (s *Store) DeleteAPIKey(provider string) error {
	if !s.IsEnabled() {
		return fmt.Errorf("keyring not available")
	}
	if err := keyring.Delete(KeyringService, "api-key:"+provider); err != nil {
		if err == keyring.ErrNotFound {
			return nil
		}
		return fmt.Errorf("delete api key: %w", err)
	}
	return nil
}

// ResolveAPIKey returns the API key for a provider, preferring the
// environment variable envVar over the keyring entry.
func (s *Store) ResolveAPIKey(provider, envVar string) (string, error) {
	if envVar != "" {
		if key := os.Getenv(envVar); key != "" {
			return key, nil
		}
	}
	key, err := s.APIKey(provider)
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", fmt.Errorf("no api key for provider %q: set %s or run eschatch init", provider, envVar)
	}
	return key, nil
}
