// Package auth supplies credentials to the sync engine from a session file
// written at login. Tokens are JWTs issued by the remote service; this
// package never verifies signatures (the server does that), it only refuses
// to hand out tokens that are already expired.
package auth

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/openpaint/cloudsync/cloud"
	"github.com/openpaint/cloudsync/errors"
)

// storedSession is the on-disk session file shape.
type storedSession struct {
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id"`
}

// FileSessionProvider reads the session file on every request, so a login
// or logout in another process takes effect without restarting.
type FileSessionProvider struct {
	path string
	// now is swappable for expiry tests.
	now func() time.Time
}

// NewFileSessionProvider builds a provider over the session file at path.
func NewFileSessionProvider(path string) *FileSessionProvider {
	return &FileSessionProvider{path: path, now: time.Now}
}

// ActiveSession returns the stored credential, or an error when none exists
// or the token's exp claim has passed. Callers map any error here to an
// auth-expired failure before network I/O.
func (p *FileSessionProvider) ActiveSession() (cloud.Session, error) {
	raw, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return cloud.Session{}, errors.WithHint(
				errors.Wrap(errors.ErrSessionExpired, "no stored session"),
				"run 'opsync login' first")
		}
		return cloud.Session{}, errors.Wrap(err, "failed to read session file")
	}

	var stored storedSession
	if err := json.Unmarshal(raw, &stored); err != nil {
		return cloud.Session{}, errors.Wrap(err, "session file is corrupt")
	}
	if stored.AccessToken == "" {
		return cloud.Session{}, errors.Wrap(errors.ErrSessionExpired, "session file has no token")
	}

	claims := jwt.MapClaims{}
	// Unverified parse: we only need the claims; the server authenticates.
	if _, _, err := jwt.NewParser().ParseUnverified(stored.AccessToken, claims); err != nil {
		return cloud.Session{}, errors.Wrap(err, "stored token is malformed")
	}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		if p.now().After(exp.Time) {
			return cloud.Session{}, errors.Wrap(errors.ErrSessionExpired, "stored token is expired")
		}
	}

	userID := stored.UserID
	if userID == "" {
		if sub, err := claims.GetSubject(); err == nil {
			userID = sub
		}
	}

	return cloud.Session{Token: stored.AccessToken, UserID: userID}, nil
}

// WriteSession persists a credential to path with owner-only permissions.
func WriteSession(path, accessToken, userID string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create session directory")
	}

	raw, err := json.MarshalIndent(storedSession{
		AccessToken: accessToken,
		UserID:      userID,
	}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode session")
	}

	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return errors.Wrap(err, "failed to write session file")
	}
	return nil
}

// ClearSession removes the session file. Missing is not an error.
func ClearSession(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to remove session file")
	}
	return nil
}
