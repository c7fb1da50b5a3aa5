package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bnema/lfg-coordinator/internal/domain"
	"github.com/bnema/lfg-coordinator/internal/ports"
	"github.com/bnema/lfg-coordinator/internal/ratelimit"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

const DefaultSweepInterval = 60 * time.Second

type Config struct {
	Registry          RegistryConfig
	IdleGrace         time.Duration
	SweepInterval     time.Duration
	RateWindow        time.Duration
	RateQuota         int
	FanoutParallelism int
}

type Service struct {
	registry  *Registry
	idle      *IdleScheduler
	announcer *Announcer
	limiter   *ratelimit.Limiter
	resources ports.ResourceGateway
	occupancy ports.OccupancyProbe
	clock     ports.Clock
	logger    *slog.Logger
	validate  *validator.Validate
	sweep     time.Duration
}

func NewService(cfg Config, repo ports.StateRepository, resources ports.ResourceGateway, occupancy ports.OccupancyProbe, clock ports.Clock, logger *slog.Logger) *Service {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}

	registry := NewRegistry(cfg.Registry, repo, resources, occupancy, clock, logger)
	idle := NewIdleScheduler(clock, cfg.IdleGrace, occupancy, func(ctx context.Context, id domain.SessionID) bool {
		return registry.Delete(ctx, id)
	}, logger)
	registry.OnRemove(func(session domain.Session) {
		idle.Forget(session.ID)
	})

	return &Service{
		registry:  registry,
		idle:      idle,
		announcer: NewAnnouncer(registry, resources, cfg.FanoutParallelism, logger),
		limiter:   ratelimit.New(cfg.RateWindow, cfg.RateQuota, clock.Now),
		resources: resources,
		occupancy: occupancy,
		clock:     clock,
		logger:    logger.With("component", "service"),
		validate:  newValidator(),
		sweep:     cfg.SweepInterval,
	}
}

func (s *Service) Registry() *Registry {
	return s.registry
}

func (s *Service) Idle() *IdleScheduler {
	return s.idle
}

func (s *Service) Start(ctx context.Context) error {
	if err := s.registry.Load(ctx); err != nil {
		return err
	}

	for _, snapshot := range s.registry.List("") {
		s.armIfEmpty(ctx, snapshot.Session)
	}
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
			s.Maintain(ctx)
		}
	}
}

func (s *Service) Maintain(ctx context.Context) {
	now := s.clock.Now()
	expired := s.registry.ExpireStale(ctx, now)
	swept := s.registry.Sweep(ctx, now)
	actors := s.limiter.Prune()

	if len(expired)+len(swept) > 0 {
		s.logger.Info("maintenance removed sessions", "expired", expired, "swept", swept, "tracked_actors", actors)
	}
}

func (s *Service) CreateSession(ctx context.Context, cmd CreateSessionCommand) (CreateResult, error) {
	if err := s.admit(cmd.Actor, cmd); err != nil {
		return CreateResult{}, err
	}

	result, err := s.registry.Create(ctx, cmd)
	if err != nil {
		return CreateResult{}, err
	}

	s.refreshDisplay(ctx, result.Session)
	s.armIfEmpty(ctx, result.Session.Session)
	result.Fanout = s.announcer.Announce(ctx, result.Session)
	return result, nil
}

func (s *Service) ModifySession(ctx context.Context, cmd ModifySessionCommand) (domain.SessionSnapshot, error) {
	if err := s.admit(cmd.Actor, cmd); err != nil {
		return domain.SessionSnapshot{}, err
	}

	snapshot, err := s.registry.Modify(ctx, cmd)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}

	s.refreshDisplay(ctx, snapshot)
	return snapshot, nil
}

func (s *Service) JoinSession(ctx context.Context, cmd JoinSessionCommand) (domain.SessionSnapshot, error) {
	if err := s.admit(cmd.Actor, cmd); err != nil {
		return domain.SessionSnapshot{}, err
	}

	snapshot, err := s.registry.Join(ctx, cmd.SessionID, cmd.Actor.ID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}

	s.rosterChanged(ctx, snapshot)
	return snapshot, nil
}

func (s *Service) LeaveSession(ctx context.Context, cmd LeaveSessionCommand) (domain.SessionSnapshot, error) {
	if err := s.admit(cmd.Actor, cmd); err != nil {
		return domain.SessionSnapshot{}, err
	}

	snapshot, err := s.registry.Leave(ctx, cmd.SessionID, cmd.Actor.ID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}

	s.rosterChanged(ctx, snapshot)
	return snapshot, nil
}

func (s *Service) RemoveMember(ctx context.Context, cmd RemoveMemberCommand) (domain.SessionSnapshot, error) {
	if err := s.admit(cmd.Actor, cmd); err != nil {
		return domain.SessionSnapshot{}, err
	}

	snapshot, err := s.registry.Remove(ctx, cmd)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}

	s.rosterChanged(ctx, snapshot)
	return snapshot, nil
}

func (s *Service) DeleteSession(ctx context.Context, cmd DeleteSessionCommand) error {
	if err := s.admit(cmd.Actor, cmd); err != nil {
		return err
	}

	return s.registry.DeleteAs(ctx, cmd)
}

func (s *Service) GetSession(ctx context.Context, actor Actor, id domain.SessionID) (domain.SessionSnapshot, error) {
	if err := s.admit(actor, actor); err != nil {
		return domain.SessionSnapshot{}, err
	}

	return s.registry.Get(id)
}

func (s *Service) ListSessions(ctx context.Context, actor Actor) ([]domain.SessionSnapshot, error) {
	if err := s.admit(actor, actor); err != nil {
		return nil, err
	}

	return s.registry.List(actor.CommunityID), nil
}

func (s *Service) Stats(ctx context.Context, actor Actor) (domain.StatsSnapshot, error) {
	if err := s.admit(actor, actor); err != nil {
		return domain.StatsSnapshot{}, err
	}

	return s.registry.Stats(), nil
}

func (s *Service) SetAnnouncementTarget(ctx context.Context, cmd SetAnnouncementTargetCommand) error {
	if err := s.admit(cmd.Actor, cmd); err != nil {
		return err
	}

	return s.registry.SetAnnouncementTarget(ctx, cmd)
}

func (s *Service) ClearAnnouncementTarget(ctx context.Context, actor Actor) error {
	if err := s.admit(actor, actor); err != nil {
		return err
	}

	return s.registry.ClearAnnouncementTarget(ctx, actor)
}

func (s *Service) SetGameFilter(ctx context.Context, cmd SetGameFilterCommand) (domain.GameFilter, error) {
	if err := s.admit(cmd.Actor, cmd); err != nil {
		return domain.GameFilter{}, err
	}

	return s.registry.SetGameFilter(ctx, cmd)
}

func (s *Service) ClearGameFilter(ctx context.Context, actor Actor) error {
	if err := s.admit(actor, actor); err != nil {
		return err
	}

	return s.registry.ClearGameFilter(ctx, actor)
}

func (s *Service) CommunitySettings(ctx context.Context, actor Actor) (CommunitySettings, error) {
	if err := s.admit(actor, actor); err != nil {
		return CommunitySettings{}, err
	}

	return s.registry.CommunitySettings(actor.CommunityID), nil
}

// HandleOccupancy bypasses the rate limiter.
func (s *Service) HandleOccupancy(ctx context.Context, event OccupancyEvent) error {
	return s.registry.withLive(event.SessionID, func(session domain.Session) {
		if event.Empty {
			s.idle.Arm(session.ID, session.Resources.VoiceRoomID)
			return
		}
		s.idle.Disarm(session.ID)
	})
}

func (s *Service) admit(actor Actor, cmd any) error {
	if err := validateCommand(s.validate, cmd); err != nil {
		return err
	}
	if !s.limiter.Admit(actor.rateKey()) {
		return domain.Reject(domain.KindRateLimited, domain.ErrRateLimited, fmt.Sprintf("actor %s", actor.ID))
	}
	return nil
}

func (s *Service) rosterChanged(ctx context.Context, snapshot domain.SessionSnapshot) {
	s.refreshDisplay(ctx, snapshot)
	s.announcer.Announce(ctx, snapshot)
}

func (s *Service) refreshDisplay(ctx context.Context, snapshot domain.SessionSnapshot) {
	if err := s.resources.UpdateDisplay(ctx, snapshot); err != nil {
		s.logger.Warn("update session display failed", "session", snapshot.Session.ID, "error", err)
	}
}

func (s *Service) armIfEmpty(ctx context.Context, session domain.Session) {
	voiceRoom := session.Resources.VoiceRoomID
	if voiceRoom == "" {
		return
	}

	occupants, err := s.occupancy.Occupants(ctx, voiceRoom)
	if err != nil {
		s.logger.Warn("read voice occupancy failed, idle timer not armed", "session", session.ID, "error", err)
		return
	}
	if len(lo.Compact(occupants)) > 0 {
		return
	}

	err = s.registry.withLive(session.ID, func(current domain.Session) {
		if current.CreatedAt.Equal(session.CreatedAt) && current.Resources.VoiceRoomID == voiceRoom {
			s.idle.Arm(session.ID, voiceRoom)
		}
	})
	if err != nil {
		s.logger.Debug("session removed before idle timer armed", "session", session.ID)
	}
}
