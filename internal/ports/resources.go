package ports

import (
	"context"

	"github.com/bnema/lfg-coordinator/internal/domain"
)

// ResourceGateway provisions and drives the chat-platform resources tied to a
// session. Every call is fallible and may be retried independently.
type ResourceGateway interface {
	// CreateSessionResources may return partially filled handles together
	// with an error when only some resources were created.
	CreateSessionResources(ctx context.Context, session domain.Session) (domain.Resources, error)
	TeardownResources(ctx context.Context, resources domain.Resources) error
	UpdateDisplay(ctx context.Context, snapshot domain.SessionSnapshot) error
	SendAnnouncement(ctx context.Context, roomID string, snapshot domain.SessionSnapshot) error
	RemoveMember(ctx context.Context, resources domain.Resources, member domain.MemberID, mode domain.RemovalMode) error
}

type OccupancyProbe interface {
	Occupants(ctx context.Context, voiceRoomID string) ([]domain.MemberID, error)
}
