package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSessionRoundTrip(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("CONCERTDESK_TOKEN", "")

	require.NoError(t, saveSession(cachedSession{Email: "ivan@example.com", Token: "tok"}))

	info, err := os.Stat(filepath.Join(home, ".concertdesk", "session.json"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got := readSession()
	require.Equal(t, cachedSession{Email: "ivan@example.com", Token: "tok"}, got)
}

func TestReadSessionEnvTokenWins(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CONCERTDESK_TOKEN", "from-env")

	require.NoError(t, saveSession(cachedSession{Email: "ivan@example.com", Token: "cached"}))
	require.Equal(t, "from-env", readSession().Token)
}

func TestReadSessionMissingFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CONCERTDESK_TOKEN", "")

	require.Equal(t, cachedSession{}, readSession())
}

func TestLogoutKeepsEmail(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CONCERTDESK_TOKEN", "")

	require.NoError(t, saveSession(cachedSession{Email: "ivan@example.com", Token: "tok"}))
	require.NoError(t, runLogout())
	require.Equal(t, cachedSession{Email: "ivan@example.com"}, readSession())
}
