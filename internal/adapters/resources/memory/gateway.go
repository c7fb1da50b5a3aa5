// Package memory is an in-process ResourceGateway and OccupancyProbe. It
// backs `lfg serve --gateway memory` and the end-to-end tests of the core.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/bnema/lfg-coordinator/internal/domain"
	"github.com/bnema/lfg-coordinator/internal/ports"
)

type Announcement struct {
	RoomID    string
	SessionID domain.SessionID
	Members   []domain.MemberID
}

type Removal struct {
	VoiceRoomID string
	Member      domain.MemberID
	Mode        domain.RemovalMode
}

type Gateway struct {
	mu            sync.Mutex
	next          int
	occupants     map[string][]domain.MemberID
	displays      map[domain.SessionID]domain.SessionSnapshot
	announcements []Announcement
	removals      []Removal
	teardowns     []domain.Resources
	failures      map[string]error
	createErr     error
	partial       bool
}

var (
	_ ports.ResourceGateway = (*Gateway)(nil)
	_ ports.OccupancyProbe  = (*Gateway)(nil)
)

func NewGateway() *Gateway {
	return &Gateway{
		occupants: map[string][]domain.MemberID{},
		displays:  map[domain.SessionID]domain.SessionSnapshot{},
		failures:  map[string]error{},
	}
}

func (g *Gateway) CreateSessionResources(ctx context.Context, session domain.Session) (domain.Resources, error) {
	if err := ctx.Err(); err != nil {
		return domain.Resources{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.createErr != nil && !g.partial {
		return domain.Resources{}, g.createErr
	}

	g.next++
	prefix := fmt.Sprintf("%s-%d", session.ID, g.next)
	resources := domain.Resources{
		CategoryID:  prefix + "-category",
		VoiceRoomID: prefix + "-voice",
	}
	if g.createErr != nil {
		return resources, g.createErr
	}

	resources.TextRoomID = prefix + "-text"
	resources.InfoRoomID = prefix + "-info"
	resources.InfoMessageID = prefix + "-info-message"
	resources.AnnounceMessageID = prefix + "-announce-message"
	return resources, nil
}

func (g *Gateway) TeardownResources(_ context.Context, resources domain.Resources) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.teardowns = append(g.teardowns, resources)
	delete(g.occupants, resources.VoiceRoomID)
	return nil
}

func (g *Gateway) UpdateDisplay(_ context.Context, snapshot domain.SessionSnapshot) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.displays[snapshot.Session.ID] = snapshot
	return nil
}

func (g *Gateway) SendAnnouncement(_ context.Context, roomID string, snapshot domain.SessionSnapshot) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err, ok := g.failures[roomID]; ok {
		return err
	}
	g.announcements = append(g.announcements, Announcement{
		RoomID:    roomID,
		SessionID: snapshot.Session.ID,
		Members:   append([]domain.MemberID{}, snapshot.Members...),
	})
	return nil
}

func (g *Gateway) RemoveMember(_ context.Context, resources domain.Resources, member domain.MemberID, mode domain.RemovalMode) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	room := resources.VoiceRoomID
	remaining := g.occupants[room][:0:0]
	found := false
	for _, occupant := range g.occupants[room] {
		if occupant == member {
			found = true
			continue
		}
		remaining = append(remaining, occupant)
	}
	g.occupants[room] = remaining
	if !found {
		return fmt.Errorf("member %s is not connected to %s", member, room)
	}

	g.removals = append(g.removals, Removal{VoiceRoomID: room, Member: member, Mode: mode})
	return nil
}

func (g *Gateway) Occupants(ctx context.Context, voiceRoomID string) ([]domain.MemberID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	return append([]domain.MemberID{}, g.occupants[voiceRoomID]...), nil
}

// SetOccupants replaces who is connected to a voice room.
func (g *Gateway) SetOccupants(voiceRoomID string, members ...domain.MemberID) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.occupants[voiceRoomID] = append([]domain.MemberID{}, members...)
}

// FailAnnouncements makes deliveries to roomID return err.
func (g *Gateway) FailAnnouncements(roomID string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.failures[roomID] = err
}

// FailCreation makes resource creation fail with err. When partial is true the
// category and voice room are still created.
func (g *Gateway) FailCreation(err error, partial bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.createErr = err
	g.partial = partial
}

func (g *Gateway) Announcements() []Announcement {
	g.mu.Lock()
	defer g.mu.Unlock()

	return append([]Announcement{}, g.announcements...)
}

func (g *Gateway) Removals() []Removal {
	g.mu.Lock()
	defer g.mu.Unlock()

	return append([]Removal{}, g.removals...)
}

func (g *Gateway) Teardowns() []domain.Resources {
	g.mu.Lock()
	defer g.mu.Unlock()

	return append([]domain.Resources{}, g.teardowns...)
}

func (g *Gateway) Display(id domain.SessionID) (domain.SessionSnapshot, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	snapshot, ok := g.displays[id]
	return snapshot, ok
}
