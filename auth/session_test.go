package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func writeTestSession(t *testing.T, token, userID string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, WriteSession(path, token, userID))
	return path
}

func TestActiveSessionValidToken(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	path := writeTestSession(t, token, "user-1")

	session, err := NewFileSessionProvider(path).ActiveSession()
	require.NoError(t, err)
	require.Equal(t, token, session.Token)
	require.Equal(t, "user-1", session.UserID)
}

func TestActiveSessionExpiredToken(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(-time.Minute).Unix(),
	})
	path := writeTestSession(t, token, "user-1")

	_, err := NewFileSessionProvider(path).ActiveSession()
	require.Error(t, err)
	require.Contains(t, err.Error(), "expired")
}

func TestActiveSessionExpiryBoundary(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	token := signToken(t, jwt.MapClaims{"exp": exp.Unix()})
	path := writeTestSession(t, token, "user-1")

	provider := NewFileSessionProvider(path)

	provider.now = func() time.Time { return exp.Add(-time.Second) }
	_, err := provider.ActiveSession()
	require.NoError(t, err)

	provider.now = func() time.Time { return exp.Add(time.Second) }
	_, err = provider.ActiveSession()
	require.Error(t, err)
}

func TestActiveSessionUserIDFromSubject(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub": "user-from-sub",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	path := writeTestSession(t, token, "")

	session, err := NewFileSessionProvider(path).ActiveSession()
	require.NoError(t, err)
	require.Equal(t, "user-from-sub", session.UserID)
}

func TestActiveSessionNoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")

	_, err := NewFileSessionProvider(path).ActiveSession()
	require.Error(t, err)
	require.Contains(t, err.Error(), "no stored session")
}

func TestActiveSessionCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileSessionProvider(path).ActiveSession()
	require.Error(t, err)
}

func TestActiveSessionMalformedToken(t *testing.T) {
	path := writeTestSession(t, "not.a.jwt-at-all", "user-1")

	_, err := NewFileSessionProvider(path).ActiveSession()
	require.Error(t, err)
}

func TestActiveSessionTokenWithoutExpiry(t *testing.T) {
	// Tokens without an exp claim are accepted; the server is the judge.
	token := signToken(t, jwt.MapClaims{"sub": "user-1"})
	path := writeTestSession(t, token, "user-1")

	_, err := NewFileSessionProvider(path).ActiveSession()
	require.NoError(t, err)
}

func TestClearSession(t *testing.T) {
	path := writeTestSession(t, "tok", "user-1")
	require.NoError(t, ClearSession(path))

	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))

	// Clearing twice is fine.
	require.NoError(t, ClearSession(path))
}

func TestWriteSessionPermissions(t *testing.T) {
	path := writeTestSession(t, "tok", "user-1")

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
