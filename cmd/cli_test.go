package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/bnema/lfg-coordinator/internal/config"
	"github.com/bnema/lfg-coordinator/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionPrintsBuildVersion(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "version")
	require.NoError(t, err)
	assert.Equal(t, version.Version+"\n", stdout)
}

func TestStateShowEmptyStore(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "state", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "store: toml")
	assert.Contains(t, stdout, "live sessions: 0")
}

func TestStateShowListsPersistedSessions(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeStateFixture(home))

	stdout, _, err := executeCLI(t, home, "state", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "total sessions: 7")
	assert.Contains(t, stdout, "total players: 30")
	assert.Contains(t, stdout, "live sessions: 1")
	assert.Contains(t, stdout, "1234")
	assert.Contains(t, stdout, "Valorant")
	assert.Contains(t, stdout, "2/5")
	assert.Contains(t, stdout, "community guild-b: target=feed-b games=Apex, Valorant")
}

func TestStateShowJSONOutput(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeStateFixture(home))

	stdout, _, err := executeCLI(t, home, "state", "show", "--json")
	require.NoError(t, err)
	require.True(t, json.Valid([]byte(stdout)))

	var view stateView
	require.NoError(t, json.Unmarshal([]byte(stdout), &view))
	require.Len(t, view.Sessions, 1)
	assert.Equal(t, []string{"org", "alice"}, view.Sessions[0].Members)
	assert.Equal(t, "voice-1", view.Sessions[0].VoiceRoomID)
	assert.Equal(t, int64(7), view.TotalSessions)
}

func TestStateShowWithSQLiteDriver(t *testing.T) {
	home := t.TempDir()
	t.Setenv("LFG_STORE_DRIVER", "sqlite")
	t.Setenv("LFG_STORE_SQLITE_DSN", filepath.Join(home, "state.db"))

	stdout, _, err := executeCLI(t, home, "state", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "store: sqlite")
	assert.Contains(t, stdout, "live sessions: 0")
}

func TestUnknownStoreDriverFailsWiring(t *testing.T) {
	home := t.TempDir()
	t.Setenv("LFG_STORE_DRIVER", "etcd")

	_, _, err := executeCLI(t, home, "state", "show")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store driver \"etcd\"")
}

func TestConfigFileSelectsLogFormat(t *testing.T) {
	home := t.TempDir()
	configDir := filepath.Join(home, ".config", "lfg")
	require.NoError(t, os.MkdirAll(configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "lfg.toml"), []byte("[log]\nformat = \"yaml\"\n"), 0o644))

	_, _, err := executeCLI(t, home, "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown log format")
}

func TestNewLoggerHonoursFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := newLogger(config.LogConfig{Level: "debug", Format: "json"}, buf)
	require.NoError(t, err)

	logger.Debug("session loaded", "session", "1234")
	assert.True(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
	assert.Contains(t, buf.String(), "\"session\":\"1234\"")
}

func executeCLI(t *testing.T, home string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", home)

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeStateFixture(home string) error {
	configDir := filepath.Join(home, ".config", "lfg")
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return err
	}

	state := `version = 1

[stats]
total_sessions = 7
total_players = 30

[[sessions]]
id = "1234"
organizer = "org"
game = "Valorant"
created_at = "2026-03-01T20:00:00Z"
capacity = 5
community_id = "guild-a"
members = ["org", "alice"]

[sessions.resources]
voice_room_id = "voice-1"

[[communities]]
id = "guild-b"
target_room = "feed-b"
games = ["Valorant", "Apex"]
`

	return os.WriteFile(filepath.Join(configDir, "state.toml"), []byte(state), 0o600)
}
