package toml

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bnema/lfg-coordinator/internal/domain"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T, statePath string) *Repository {
	t.Helper()

	config := viper.New()
	config.Set("store.path", statePath)
	repo, err := NewRepository(config)
	require.NoError(t, err)
	return repo
}

func sampleState() domain.State {
	createdAt := time.Date(2026, 3, 1, 20, 15, 30, 0, time.UTC)
	state := domain.NewState()
	state.Stats = domain.Stats{TotalSessions: 12, TotalPlayers: 48}
	state.Sessions = []domain.Session{
		{
			ID:            "1234",
			Organizer:     "org",
			OrganizerName: "Organizer",
			Game:          "Valorant",
			Platform:      "PC",
			Activity:      "Ranked",
			Gametag:       "org#EUW",
			Description:   "chill",
			StreamURL:     "https://twitch.tv/org",
			CreatedAt:     createdAt,
			Capacity:      5,
			CommunityID:   "guild-a",
			InvokeRoomID:  "lobby",
			Resources: domain.Resources{
				CategoryID:        "cat-1",
				VoiceRoomID:       "voice-1",
				TextRoomID:        "text-1",
				InfoRoomID:        "info-1",
				InfoMessageID:     "msg-1",
				AnnounceMessageID: "msg-2",
			},
		},
		{
			ID:          "5678",
			Organizer:   "solo",
			Game:        "Apex",
			CreatedAt:   createdAt.Add(time.Minute),
			Capacity:    3,
			CommunityID: "guild-b",
		},
	}
	state.Rosters["1234"] = domain.Roster{Members: []domain.MemberID{"org", "alice", "bob"}}
	state.Rosters["5678"] = domain.Roster{Members: []domain.MemberID{"solo"}}
	state.Targets["guild-a"] = "feed-a"
	state.Targets["guild-b"] = "feed-b"
	state.Filters["guild-b"] = domain.NewGameFilter("Valorant", "Apex")
	return state
}

func TestRepositoryRoundTrip(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, filepath.Join(t.TempDir(), "state.toml"))
	state := sampleState()

	require.NoError(t, repo.Save(context.Background(), state))

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, state.Stats, got.Stats)
	assert.Equal(t, state.Sessions, got.Sessions)
	assert.Equal(t, state.Rosters, got.Rosters)
	assert.Equal(t, state.Targets, got.Targets)
	require.Contains(t, got.Filters, domain.CommunityID("guild-b"))
	assert.Equal(t, []string{"Apex", "Valorant"}, got.Filters["guild-b"].Sorted())
}

func TestRepositorySaveReplacesWholeState(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, filepath.Join(t.TempDir(), "state.toml"))
	require.NoError(t, repo.Save(context.Background(), sampleState()))

	next := domain.NewState()
	next.Stats = domain.Stats{TotalSessions: 13, TotalPlayers: 50}
	require.NoError(t, repo.Save(context.Background(), next))

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got.Sessions)
	assert.Empty(t, got.Targets)
	assert.Equal(t, next.Stats, got.Stats)
}

func TestRepositorySaveCreatesDefaultPathAndEnforcesPermissions(t *testing.T) {
	homeDir := t.TempDir()
	t.Setenv("HOME", homeDir)

	repo, err := NewRepository(viper.New())
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), sampleState()))

	statePath := filepath.Join(homeDir, ".config", "lfg", "state.toml")
	assert.Equal(t, statePath, repo.Path())
	info, err := os.Stat(statePath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestRepositoryMissingFileLoadsEmptyState(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, filepath.Join(t.TempDir(), "missing", "state.toml"))

	state, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, state.Sessions)
	assert.NotNil(t, state.Rosters)
	assert.Zero(t, state.Stats.TotalSessions)
}

func TestRepositoryLoadToleratesMissingOptionalTables(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "state.toml")
	require.NoError(t, os.WriteFile(statePath, []byte(strings.Join([]string{
		"version = 1",
		"",
		"[[sessions]]",
		"id = \"4321\"",
		"organizer = \"org\"",
		"game = \"Apex\"",
		"created_at = \"2026-03-01T20:00:00Z\"",
		"capacity = 2",
		"community_id = \"guild-a\"",
		"",
	}, "\n")), 0o600))

	repo := newTestRepository(t, statePath)
	state, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, state.Sessions, 1)
	assert.Equal(t, domain.SessionID("4321"), state.Sessions[0].ID)
	assert.True(t, state.Sessions[0].Resources.Empty())
	assert.Empty(t, state.Rosters["4321"].Members)
	assert.Zero(t, state.Stats.TotalPlayers)
}

func TestRepositoryLoadMalformedTOMLReturnsError(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "state.toml")
	require.NoError(t, os.WriteFile(statePath, []byte("sessions = ["), 0o600))

	repo := newTestRepository(t, statePath)

	_, err := repo.Load(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "decode state file")
}

func TestRepositoryLoadMalformedCreatedAtReturnsError(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "state.toml")
	require.NoError(t, os.WriteFile(statePath, []byte(strings.Join([]string{
		"version = 1",
		"",
		"[[sessions]]",
		"id = \"4321\"",
		"organizer = \"org\"",
		"game = \"Apex\"",
		"created_at = \"yesterday evening\"",
		"capacity = 2",
		"community_id = \"guild-a\"",
		"",
	}, "\n")), 0o600))

	repo := newTestRepository(t, statePath)
	_, err := repo.Load(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "decode session 4321 created_at")
}

func TestRepositorySaveCanceledContextReturnsContextError(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, filepath.Join(t.TempDir(), "state.toml"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := repo.Save(ctx, sampleState())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRepositoryConcurrentSavesAcrossInstancesLeaveValidFile(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "state.toml")
	repoA := newTestRepository(t, statePath)
	repoB := newTestRepository(t, statePath)

	const perRepoWrites = 50
	start := make(chan struct{})
	errCh := make(chan error, perRepoWrites*2)
	var wg sync.WaitGroup
	wg.Add(2)

	write := func(repo *Repository, prefix string) {
		defer wg.Done()
		<-start
		for i := 0; i < perRepoWrites; i++ {
			state := domain.NewState()
			state.Stats.TotalSessions = int64(i)
			state.Targets[domain.CommunityID(prefix+strconv.Itoa(i))] = "feed"
			errCh <- repo.Save(context.Background(), state)
		}
	}
	go write(repoA, "a-")
	go write(repoB, "b-")

	close(start)
	wg.Wait()
	close(errCh)

	for err := range errCh {
		require.NoError(t, err)
	}

	state, err := repoA.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, state.Targets, 1)
	assert.Equal(t, int64(perRepoWrites-1), state.Stats.TotalSessions)
}

func TestRepositorySaveSerializedTOMLIncludesVersion(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "state.toml")
	repo := newTestRepository(t, statePath)

	require.NoError(t, repo.Save(context.Background(), sampleState()))

	data, err := os.ReadFile(statePath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "version = 1")
	assert.Contains(t, string(data), "[[sessions]]")
}

func TestRepositoryFutureSchemaVersionReturnsError(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "state.toml")
	require.NoError(t, os.WriteFile(statePath, []byte("version = 999\n"), 0o600))

	repo := newTestRepository(t, statePath)

	_, err := repo.Load(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "unsupported state schema version")
}
