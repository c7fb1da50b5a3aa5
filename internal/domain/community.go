package domain

import (
	"sort"
	"strings"

	"github.com/samber/lo"
)

// GameFilter lists the games a community accepts. An empty filter accepts
// every game.
type GameFilter struct {
	Games []string
}

func NewGameFilter(games ...string) GameFilter {
	trimmed := lo.FilterMap(games, func(game string, _ int) (string, bool) {
		game = strings.TrimSpace(game)
		return game, game != ""
	})

	return GameFilter{Games: lo.UniqBy(trimmed, strings.ToLower)}
}

func (f GameFilter) IsEmpty() bool {
	return len(f.Games) == 0
}

func (f GameFilter) Allows(game string) bool {
	if f.IsEmpty() {
		return true
	}

	game = strings.TrimSpace(game)
	return lo.ContainsBy(f.Games, func(allowed string) bool {
		return strings.EqualFold(allowed, game)
	})
}

// Sorted returns the allowed games in stable display order.
func (f GameFilter) Sorted() []string {
	games := append([]string{}, f.Games...)
	sort.Strings(games)
	return games
}

type AnnouncementTarget struct {
	CommunityID CommunityID
	RoomID      string
}
