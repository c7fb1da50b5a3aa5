package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionValidate(t *testing.T) {
	t.Parallel()

	valid := Session{ID: "1234", Organizer: "u1", CommunityID: "g1", Capacity: 3}

	tests := []struct {
		name    string
		mutate  func(*Session)
		wantErr error
	}{
		{name: "valid"},
		{name: "zero capacity", mutate: func(s *Session) { s.Capacity = 0 }, wantErr: ErrInvalidCapacity},
		{name: "capacity above max", mutate: func(s *Session) { s.Capacity = 11 }, wantErr: ErrInvalidCapacity},
		{name: "bad stream url", mutate: func(s *Session) { s.StreamURL = "ftp://example.com/live" }, wantErr: ErrInvalidStreamURL},
		{name: "twitch stream url", mutate: func(s *Session) { s.StreamURL = "https://www.twitch.tv/someone" }},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			session := valid
			if tc.mutate != nil {
				tc.mutate(&session)
			}
			err := session.Validate()
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Equal(t, KindValidation, KindOf(err))
		})
	}
}

func TestSessionOlderThan(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := Session{CreatedAt: created}

	assert.False(t, s.OlderThan(created.Add(23*time.Hour), 24*time.Hour))
	assert.True(t, s.OlderThan(created.Add(24*time.Hour), 24*time.Hour))
	assert.False(t, s.OlderThan(created.Add(1000*time.Hour), 0))
}

func TestRosterKeepsJoinOrderAndSetSemantics(t *testing.T) {
	roster := NewRoster("org")
	roster = roster.With("a").With("b").With("a")

	assert.Equal(t, []MemberID{"org", "a", "b"}, roster.Members)
	assert.Equal(t, 3, roster.Size())
	assert.Equal(t, []MemberID{"org", "a"}, roster.First(2))
	assert.Equal(t, []MemberID{"org", "a", "b"}, roster.First(10))

	removed := roster.Without("a")
	assert.Equal(t, []MemberID{"org", "b"}, removed.Members)
	assert.Equal(t, []MemberID{"org", "a", "b"}, roster.Members, "source roster must not change")
}

func TestRosterNormalize(t *testing.T) {
	roster := Roster{Members: []MemberID{"1", "", "2", "1"}}
	roster.Normalize()

	assert.Equal(t, []MemberID{"1", "2"}, roster.Members)
}

func TestGameFilter(t *testing.T) {
	empty := NewGameFilter()
	assert.True(t, empty.Allows("Anything"))

	filter := NewGameFilter(" Valorant ", "valorant", "", "Apex Legends")
	assert.Equal(t, []string{"Valorant", "Apex Legends"}, filter.Games)
	assert.True(t, filter.Allows("VALORANT"))
	assert.False(t, filter.Allows("Counter-Strike 2"))
	assert.Equal(t, []string{"Apex Legends", "Valorant"}, filter.Sorted())
}

func TestErrorFormattingAndKind(t *testing.T) {
	err := &Error{Kind: KindValidation, Err: ErrGameNotAllowed, Allowed: []string{"Valorant"}}

	assert.Equal(t, "game not allowed in this community: allowed: Valorant", err.Error())
	assert.True(t, errors.Is(err, ErrGameNotAllowed))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))

	wrapped := errors.Join(errors.New("context"), Reject(KindConflict, ErrSessionFull, ""))
	require.ErrorIs(t, wrapped, ErrSessionFull)
	assert.Equal(t, KindConflict, KindOf(wrapped))
}

func TestSnapshotOpenSlots(t *testing.T) {
	snap := SessionSnapshot{Session: Session{Capacity: 2}, Members: []MemberID{"a", "b", "c"}}
	assert.Equal(t, 0, snap.OpenSlots())

	snap.Session.Capacity = 5
	assert.Equal(t, 2, snap.OpenSlots())
}
