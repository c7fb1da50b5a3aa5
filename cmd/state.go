package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	sessionsrender "github.com/bnema/lfg-coordinator/internal/adapters/render/sessions"
	"github.com/bnema/lfg-coordinator/internal/domain"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

type stateView struct {
	Driver        string          `json:"driver"`
	TotalSessions int64           `json:"total_sessions"`
	TotalPlayers  int64           `json:"total_players"`
	Sessions      []sessionView   `json:"sessions"`
	Communities   []communityView `json:"communities"`
}

type sessionView struct {
	ID          string    `json:"id"`
	Game        string    `json:"game"`
	Organizer   string    `json:"organizer"`
	CommunityID string    `json:"community_id"`
	Capacity    int       `json:"capacity"`
	Members     []string  `json:"members"`
	CreatedAt   time.Time `json:"created_at"`
	VoiceRoomID string    `json:"voice_room_id,omitempty"`
}

type communityView struct {
	ID         string   `json:"id"`
	TargetRoom string   `json:"target_room,omitempty"`
	Games      []string `json:"games,omitempty"`
}

func newStateCmd(app *app) *cobra.Command {
	stateCmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect persisted coordinator state",
	}

	var asJSON bool
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print persisted stats, sessions and community settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := app.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer repo.Close()

			state, err := repo.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("load state: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(newStateView(app.cfg.Store.Driver, state))
			}

			rendered, err := app.stateRenderer(state, sessionsrender.RenderOptions{
				Store:    app.cfg.Store.Driver,
				Now:      app.now(),
				Lifetime: app.cfg.Limits.SessionLifetime,
			})
			if err != nil {
				return fmt.Errorf("render state: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}
	showCmd.Flags().BoolVar(&asJSON, "json", false, "print state as JSON")

	stateCmd.AddCommand(showCmd)
	return stateCmd
}

func newStateView(driver string, state domain.State) stateView {
	state.Normalize()

	sessions := lo.Map(state.Sessions, func(session domain.Session, _ int) sessionView {
		return sessionView{
			ID:          string(session.ID),
			Game:        session.Game,
			Organizer:   string(session.Organizer),
			CommunityID: string(session.CommunityID),
			Capacity:    session.Capacity,
			Members: lo.Map(state.Rosters[session.ID].Members, func(member domain.MemberID, _ int) string {
				return string(member)
			}),
			CreatedAt:   session.CreatedAt,
			VoiceRoomID: session.Resources.VoiceRoomID,
		}
	})
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].ID < sessions[j].ID })

	communityIDs := lo.Uniq(append(lo.Keys(state.Targets), lo.Keys(state.Filters)...))
	sort.Slice(communityIDs, func(i, j int) bool { return communityIDs[i] < communityIDs[j] })
	communities := lo.Map(communityIDs, func(id domain.CommunityID, _ int) communityView {
		return communityView{
			ID:         string(id),
			TargetRoom: state.Targets[id],
			Games:      state.Filters[id].Sorted(),
		}
	})

	return stateView{
		Driver:        driver,
		TotalSessions: state.Stats.TotalSessions,
		TotalPlayers:  state.Stats.TotalPlayers,
		Sessions:      sessions,
		Communities:   communities,
	}
}
