package application

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/bnema/lfg-coordinator/internal/domain"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

const DefaultFanoutParallelism = 4

type TargetSource interface {
	AnnouncementTargets() map[domain.CommunityID]string
	GameFilter(community domain.CommunityID) domain.GameFilter
}

type AnnouncementSender interface {
	SendAnnouncement(ctx context.Context, roomID string, snapshot domain.SessionSnapshot) error
}

// FanoutReport lists per-community delivery outcomes, each slice sorted.
type FanoutReport struct {
	Delivered []domain.CommunityID
	Skipped   []domain.CommunityID
	Failed    map[domain.CommunityID]error
}

func (r FanoutReport) Attempted() int {
	return len(r.Delivered) + len(r.Failed)
}

// Announcer delivers a session to every other community whose game filter
// admits it. Deliveries are independent and a failure only affects its own
// target.
type Announcer struct {
	targets     TargetSource
	sender      AnnouncementSender
	parallelism int
	logger      *slog.Logger
}

func NewAnnouncer(targets TargetSource, sender AnnouncementSender, parallelism int, logger *slog.Logger) *Announcer {
	if parallelism <= 0 {
		parallelism = DefaultFanoutParallelism
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Announcer{
		targets:     targets,
		sender:      sender,
		parallelism: parallelism,
		logger:      logger.With("component", "fanout"),
	}
}

func (a *Announcer) Announce(ctx context.Context, snapshot domain.SessionSnapshot) FanoutReport {
	report := FanoutReport{Failed: map[domain.CommunityID]error{}}
	owner := snapshot.Session.CommunityID

	eligible := map[domain.CommunityID]string{}
	for community, room := range a.targets.AnnouncementTargets() {
		if community == owner || room == "" {
			continue
		}
		if !a.targets.GameFilter(community).Allows(snapshot.Session.Game) {
			report.Skipped = append(report.Skipped, community)
			continue
		}
		eligible[community] = room
	}

	var mu sync.Mutex
	group := errgroup.Group{}
	group.SetLimit(a.parallelism)
	for community, room := range eligible {
		group.Go(func() error {
			err := a.sender.SendAnnouncement(ctx, room, snapshot)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed[community] = err
				a.logger.Warn("announcement delivery failed", "session", snapshot.Session.ID, "community", community, "room", room, "error", err)
				return nil
			}
			report.Delivered = append(report.Delivered, community)
			return nil
		})
	}
	_ = group.Wait()

	sortCommunities(report.Delivered)
	sortCommunities(report.Skipped)
	if len(eligible) > 0 {
		a.logger.Debug("announcement fan-out finished", "session", snapshot.Session.ID,
			"delivered", len(report.Delivered), "failed", lo.Keys(report.Failed), "skipped", len(report.Skipped))
	}
	return report
}

func sortCommunities(ids []domain.CommunityID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
