// Package sessions renders persisted coordinator state for the terminal.
package sessions

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/bnema/lfg-coordinator/internal/domain"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type RenderOptions struct {
	Store    string
	Now      time.Time
	Lifetime time.Duration
}

// Render draws state once through a headless bubbletea program.
func Render(state domain.State, opts RenderOptions) (string, error) {
	state.Normalize()

	final, err := tea.NewProgram(
		snapshotModel{state: state, opts: opts},
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
	).Run()
	if err != nil {
		return "", fmt.Errorf("render sessions: %w", err)
	}

	done, ok := final.(snapshotModel)
	if !ok {
		return "", fmt.Errorf("render sessions: unexpected model %T", final)
	}
	return done.output, nil
}

type viewReady string

type snapshotModel struct {
	state  domain.State
	opts   RenderOptions
	output string
}

func (m snapshotModel) Init() tea.Cmd {
	state, opts := m.state, m.opts
	return func() tea.Msg {
		return viewReady(renderView(state, opts, newStyles()))
	}
}

func (m snapshotModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if ready, ok := msg.(viewReady); ok {
		m.output = string(ready)
		return m, tea.Quit
	}
	return m, nil
}

func (m snapshotModel) View() string {
	return m.output
}

func renderView(state domain.State, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("LFG Sessions"),
		s.header.Render(fmt.Sprintf("store: %s  total sessions: %d  total players: %d  live sessions: %d",
			opts.Store, state.Stats.TotalSessions, state.Stats.TotalPlayers, len(state.Sessions))),
	}

	sessions := append([]domain.Session{}, state.Sessions...)
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].ID < sessions[j].ID })

	if len(sessions) == 0 {
		lines = append(lines, s.empty.Render("No live sessions."))
	}
	for _, session := range sessions {
		lines = append(lines, s.section.Render(renderSession(session, state.Rosters[session.ID], opts, s)))
	}

	if communities := communityLines(state, s); len(communities) > 0 {
		lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left, communities...)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderSession(session domain.Session, roster domain.Roster, opts RenderOptions, s styles) string {
	parts := []string{
		s.session.Render(sessionTitle(session)),
		s.detail.Render("organizer: " + organizerLabel(session)),
		rosterLine(session.Capacity, roster.Size(), s),
	}

	if len(roster.Members) > 0 {
		members := make([]string, 0, len(roster.Members))
		for _, member := range roster.Members {
			members = append(members, string(member))
		}
		parts = append(parts, s.detail.Render("members: "+strings.Join(members, ", ")))
	}
	if session.Resources.VoiceRoomID == "" {
		parts = append(parts, s.warning.Render("[no voice room]"))
	}
	if line := expiryLine(session.CreatedAt, opts, s); line != "" {
		parts = append(parts, line)
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func sessionTitle(session domain.Session) string {
	title := fmt.Sprintf("#%s %s", session.ID, strings.TrimSpace(session.Game))
	if platform := strings.TrimSpace(session.Platform); platform != "" {
		title += " on " + platform
	}
	return fmt.Sprintf("%s (%s)", title, session.CommunityID)
}

func organizerLabel(session domain.Session) string {
	if name := strings.TrimSpace(session.OrganizerName); name != "" {
		return fmt.Sprintf("%s (%s)", name, session.Organizer)
	}
	return string(session.Organizer)
}

func rosterLine(capacity, joined int, s styles) string {
	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.rosterKey.Render("roster:"),
		" ",
		renderFillBar(joined, capacity, domain.MaxCapacity, s),
		" ",
		s.detail.Render(fmt.Sprintf("%d/%d joined", joined, capacity)),
	)
}

// renderFillBar draws one cell per slot so sessions of different sizes stay
// visually comparable.
func renderFillBar(joined, capacity, width int, s styles) string {
	if capacity <= 0 || width <= 0 {
		return ""
	}
	if capacity < width {
		width = capacity
	}

	filled := int(math.Round(float64(width) * float64(joined) / float64(capacity)))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.barBracket.Render("]"),
	)
}

func expiryLine(createdAt time.Time, opts RenderOptions, s styles) string {
	if opts.Now.IsZero() || opts.Lifetime <= 0 || createdAt.IsZero() {
		return ""
	}

	expiresAt := createdAt.Add(opts.Lifetime)
	if !expiresAt.After(opts.Now) {
		return s.warning.Render("[expired]")
	}

	remaining := expiresAt.Sub(opts.Now)
	style := lipgloss.NewStyle().Foreground(interpolateColor(opts.Lifetime.Seconds()-remaining.Seconds(), 0, opts.Lifetime.Seconds()))
	return style.Render(formatRemaining(remaining))
}

func formatRemaining(remaining time.Duration) string {
	if remaining < time.Hour {
		minutes := int(math.Ceil(remaining.Minutes()))
		if minutes < 1 {
			minutes = 1
		}
		return fmt.Sprintf("expires in %d %s", minutes, plural(minutes, "minute"))
	}

	hours := int(math.Ceil(remaining.Hours()))
	return fmt.Sprintf("expires in %d %s", hours, plural(hours, "hour"))
}

func plural(n int, unit string) string {
	if n == 1 {
		return unit
	}
	return unit + "s"
}

func communityLines(state domain.State, s styles) []string {
	seen := map[domain.CommunityID]struct{}{}
	for id := range state.Targets {
		seen[id] = struct{}{}
	}
	for id := range state.Filters {
		seen[id] = struct{}{}
	}

	ids := make([]domain.CommunityID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	lines := make([]string, 0, len(ids))
	for _, id := range ids {
		target := state.Targets[id]
		if target == "" {
			target = "none"
		}
		games := "any"
		if filter := state.Filters[id]; !filter.IsEmpty() {
			games = strings.Join(filter.Sorted(), ", ")
		}
		lines = append(lines, s.community.Render(fmt.Sprintf("community %s: target=%s games=%s", id, target, games)))
	}
	return lines
}

func interpolateColor(value, min, max float64) lipgloss.Color {
	if max == min {
		return lipgloss.Color("255")
	}

	normalized := (value - min) / (max - min)
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 1 {
		normalized = 1
	}

	// ANSI 256 greyscale: 240 when fresh, 255 when about to expire.
	interpolated := 240.0 + (255.0-240.0)*normalized
	return lipgloss.Color(fmt.Sprintf("%d", int(interpolated)))
}
