// Package auth handles the shared admin credential that guards privileged operations.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var authLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	authLogger = l
}

const (
	HAuthorization = "Authorization"
	HAdminToken    = "X-Admin-Token"

	bearerPrefix = "bearer "
)

var ErrEmptyToken = errors.New("admin token is empty")

// Secret is the admin token. It implements repository.Verifier.
type Secret struct {
	token []byte
}

func NewSecret(token string) (*Secret, error) {
	if token == "" {
		return nil, ErrEmptyToken
	}
	return &Secret{token: []byte(token)}, nil
}

// Verify compares credential to the secret in constant time.
func (s *Secret) Verify(credential string) bool {
	if s == nil || len(s.token) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(s.token, []byte(credential)) == 1
}

func (s *Secret) String() string {
	return "[redacted]"
}

// GenerateToken returns a fresh random token.
func GenerateToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ResolveAdminToken returns token when set. Otherwise it generates one and writes it
// to tokenFile with owner-only permissions so the operator can read it back.
func ResolveAdminToken(token, tokenFile string) (*Secret, error) {
	if token != "" {
		authLogger.Info().Msg("Using configured admin token")
		return NewSecret(token)
	}

	generated := GenerateToken()

	if tokenFile == "" {
		tokenFile = DefaultTokenFile()
	}
	if err := os.MkdirAll(filepath.Dir(tokenFile), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create admin token directory: %w", err)
	}
	if err := os.WriteFile(tokenFile, []byte(generated), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write admin token: %w", err)
	}

	authLogger.Warn().
		Str("token_file", tokenFile).
		Msg("No admin token configured, generated a new one")

	return NewSecret(generated)
}

func DefaultTokenFile() string {
	return filepath.Join(os.TempDir(), "admin_token")
}

// BearerToken extracts the credential from a request, from an Authorization bearer
// header or else from X-Admin-Token.
func BearerToken(r *http.Request) string {
	if h := strings.TrimSpace(r.Header.Get(HAuthorization)); len(h) > len(bearerPrefix) &&
		strings.EqualFold(h[:len(bearerPrefix)], bearerPrefix) {
		return strings.TrimSpace(h[len(bearerPrefix):])
	}
	return strings.TrimSpace(r.Header.Get(HAdminToken))
}
