package secret

import (
	"errors"
	"testing"

	"github.com/zalando/go-keyring"
)

func mockStore(t *testing.T) *Store {
	t.Helper()
	keyring.MockInit()
	return &Store{enabled: true}
}

func TestNewStoreWithMockKeyring(t *testing.T) {
	keyring.MockInit()
	s := NewStore()
	if !s.IsEnabled() {
		t.Error("expected keyring to be enabled with mock provider")
	}
}

func TestNewStoreWithFailingKeyring(t *testing.T) {
	keyring.MockInitWithError(errors.New("mock keyring failure"))
	s := NewStore()
	if s.IsEnabled() {
		t.Error("expected keyring to be disabled when probe fails")
	}
}

func TestAPIKeyRoundTrip(t *testing.T) {
	s := mockStore(t)

	if err := s.SetAPIKey("anthropic", "sk-test-123"); err != nil {
		t.Fatalf("SetAPIKey: %v", err)
	}
	key, err := s.APIKey("anthropic")
	if err != nil {
		t.Fatalf("APIKey: %v", err)
	}
	if key != "sk-test-123" {
		t.Errorf("APIKey = %q, want %q", key, "sk-test-123")
	}

	if err := s.DeleteAPIKey("anthropic"); err != nil {
		t.Fatalf("DeleteAPIKey: %v", err)
	}
	key, err = s.APIKey("anthropic")
	if err != nil {
		t.Fatalf("APIKey after delete: %v", err)
	}
	if key != "" {
		t.Errorf("APIKey after delete = %q, want empty", key)
	}
}

func TestAPIKeyMissingIsNotError(t *testing.T) {
	s := mockStore(t)
	key, err := s.APIKey("openai")
	if err != nil {
		t.Fatalf("APIKey: %v", err)
	}
	if key != "" {
		t.Errorf("APIKey = %q, want empty", key)
	}
}

func TestDeleteAPIKeyMissingIsNotError(t *testing.T) {
	s := mockStore(t)
	if err := s.DeleteAPIKey("openai"); err != nil {
		t.Errorf("DeleteAPIKey: %v", err)
	}
}

func TestDisabledStore(t *testing.T) {
	s := &Store{enabled: false}
	if err := s.SetAPIKey("anthropic", "x"); err == nil {
		t.Error("SetAPIKey should fail when keyring is disabled")
	}
	key, err := s.APIKey("anthropic")
	if err != nil || key != "" {
		t.Errorf("APIKey on disabled store = (%q, %v), want empty and nil", key, err)
	}
}

func TestResolveAPIKeyPrefersEnv(t *testing.T) {
	s := mockStore(t)
	if err := s.SetAPIKey("anthropic", "from-keyring"); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TEST_API_KEY", "from-env")

	key, err := s.ResolveAPIKey("anthropic", "TEST_API_KEY")
	if err != nil {
		t.Fatalf("ResolveAPIKey: %v", err)
	}
	if key != "from-env" {
		t.Errorf("ResolveAPIKey = %q, want env value", key)
	}
}

func TestResolveAPIKeyFallsBackToKeyring(t *testing.T) {
	s := mockStore(t)
	if err := s.SetAPIKey("anthropic", "from-keyring"); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TEST_API_KEY", "")

	key, err := s.ResolveAPIKey("anthropic", "TEST_API_KEY")
	if err != nil {
		t.Fatalf("ResolveAPIKey: %v", err)
	}
	if key != "from-keyring" {
		t.Errorf("ResolveAPIKey = %q, want keyring value", key)
	}
}

func TestResolveAPIKeyMissingEverywhere(t *testing.T) {
	s := mockStore(t)
	t.Setenv("TEST_API_KEY", "")
	if _, err := s.ResolveAPIKey("anthropic", "TEST_API_KEY"); err == nil {
		t.Error("ResolveAPIKey should fail with no key anywhere")
	}
}
