// Package credentials stores the optional GitHub Personal Access Token used
// to fetch from private HTTPS remotes. The token lives in the OS credential
// store (macOS Keychain, Windows Credential Manager, Linux Secret Service).
package credentials

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v6/plumbing/transport"
	"github.com/go-git/go-git/v6/plumbing/transport/http"
	"github.com/zalando/go-keyring"
)

const (
	// Service name for OS credential store
	credentialService = "mcp-local-repo-analyzer"
	// Key for GitHub Personal Access Token
	githubTokenKey = "github_pat"
)

// ErrNoToken is returned by GetGitHubToken when nothing is stored.
var ErrNoToken = errors.New("no GitHub token found - run 'mcp-local-repo-analyzer token set' to configure one")

// CredentialManager handles secure storage and retrieval of authentication credentials
type CredentialManager struct {
	service string
}

// NewCredentialManager creates a new credential manager instance
func NewCredentialManager() *CredentialManager {
	return &CredentialManager{service: credentialService}
}

// NewCredentialManagerForService uses a custom keyring service name, which
// keeps tests away from real credentials.
func NewCredentialManagerForService(service string) *CredentialManager {
	return &CredentialManager{service: service}
}

// StoreGitHubToken validates the token format and stores it.
func (cm *CredentialManager) StoreGitHubToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("token cannot be empty")
	}

	if err := ValidateTokenFormat(token); err != nil {
		return fmt.Errorf("invalid token format: %w", err)
	}

	if err := keyring.Set(cm.service, githubTokenKey, token); err != nil {
		return fmt.Errorf("failed to store token in credential store: %w", err)
	}
	return nil
}

// GetGitHubToken returns the stored token, or ErrNoToken.
func (cm *CredentialManager) GetGitHubToken() (string, error) {
	token, err := keyring.Get(cm.service, githubTokenKey)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("failed to retrieve token from credential store: %w", err)
	}

	if strings.TrimSpace(token) == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// DeleteGitHubToken removes the stored token. Deleting a missing token is not an error.
func (cm *CredentialManager) DeleteGitHubToken() error {
	err := keyring.Delete(cm.service, githubTokenKey)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete token from credential store: %w", err)
	}
	return nil
}

func (cm *CredentialManager) HasGitHubToken() bool {
	_, err := cm.GetGitHubToken()
	return err == nil
}

// AuthForRemote returns basic auth carrying the stored token for HTTPS
// remote URLs. Other schemes, or no stored token, yield nil auth so the
// fetch proceeds anonymously.
func (cm *CredentialManager) AuthForRemote(remoteURL string) (transport.AuthMethod, error) {
	if !strings.HasPrefix(strings.ToLower(remoteURL), "https://") {
		return nil, nil
	}

	token, err := cm.GetGitHubToken()
	if err != nil {
		if errors.Is(err, ErrNoToken) {
			return nil, nil
		}
		return nil, err
	}

	// GitHub PAT authentication uses "token" as username
	return &http.BasicAuth{Username: "token", Password: token}, nil
}

// ValidateTokenFormat checks length and the known GitHub token prefixes:
// ghp_ (classic), github_pat_ (fine-grained), gho_, ghu_ and ghs_.
func ValidateTokenFormat(token string) error {
	token = strings.TrimSpace(token)

	if len(token) < 20 {
		return fmt.Errorf("token too short (minimum 20 characters)")
	}

	for _, prefix := range []string{"ghp_", "github_pat_", "gho_", "ghu_", "ghs_"} {
		if strings.HasPrefix(token, prefix) {
			return nil
		}
	}

	return fmt.Errorf("token does not match expected GitHub PAT format (should start with ghp_ or github_pat_)")
}

// StoreStatus reports whether the credential store can be used, by writing,
// reading back and deleting a probe value.
func (cm *CredentialManager) StoreStatus() map[string]any {
	status := map[string]any{"token_stored": false}

	const probeKey, probeValue = "availability_probe", "probe"

	if err := keyring.Set(cm.service, probeKey, probeValue); err != nil {
		status["available"] = false
		status["error"] = err.Error()
		return status
	}
	defer keyring.Delete(cm.service, probeKey)

	got, err := keyring.Get(cm.service, probeKey)
	if err != nil {
		status["available"] = false
		status["error"] = err.Error()
		return status
	}
	if got != probeValue {
		status["available"] = false
		status["error"] = "credential store corrupted - values don't match"
		return status
	}

	status["available"] = true
	status["token_stored"] = cm.HasGitHubToken()
	return status
}
