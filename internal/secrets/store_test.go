package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := NewStore(dir)

	_, err := s.LoadToken()
	require.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, s.SaveToken("ada@example.com", "eyJhbGciOi.payload.sig"))
	tok, err := s.LoadToken()
	require.NoError(t, err)
	require.Equal(t, "eyJhbGciOi.payload.sig", tok.Value)
	require.Equal(t, "ada@example.com", tok.Email)
	require.False(t, tok.SavedAt.IsZero())

	info, err := os.Stat(filepath.Join(dir, fileName))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	raw, err := os.ReadFile(filepath.Join(dir, fileName))
	require.NoError(t, err)
	require.False(t, strings.Contains(string(raw), "payload"), "token is not stored in plain text")
}

func TestDeleteToken(t *testing.T) {
	t.Parallel()

	s := NewStore(t.TempDir())
	require.NoError(t, s.DeleteToken())

	require.NoError(t, s.SaveToken("", "abc"))
	require.NoError(t, s.DeleteToken())
	_, err := s.LoadToken()
	require.ErrorIs(t, err, ErrNoToken)
}

func TestSaveRejectsEmptyToken(t *testing.T) {
	t.Parallel()

	require.Error(t, NewStore(t.TempDir()).SaveToken("a@b.c", "  "))
}

func TestTamperedTokenFails(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := NewStore(dir)
	require.NoError(t, save(filepath.Join(dir, fileName), tokenFile{Token: "AAAA"}))

	_, err := s.LoadToken()
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNoToken)
}

func TestTokenBoundToEmail(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := NewStore(dir)
	require.NoError(t, s.SaveToken("ada@example.com", "tok-1"))

	path := filepath.Join(dir, fileName)
	tf, err := load(path)
	require.NoError(t, err)
	tf.Email = "mallory@example.com"
	require.NoError(t, save(path, tf))

	_, err = s.LoadToken()
	require.Error(t, err)
}
