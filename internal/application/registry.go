package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/bnema/lfg-coordinator/internal/domain"
	"github.com/bnema/lfg-coordinator/internal/ports"
	"github.com/bnema/lfg-coordinator/internal/ttlcache"
	"github.com/samber/lo"
)

const (
	DefaultSessionLifetime = 24 * time.Hour
	DefaultSessionTTL      = 25 * time.Hour
	DefaultCommunityTTL    = 30 * 24 * time.Hour

	minSessionID  = 1000
	sessionIDSpan = 9000
	maxIDAttempts = 64
)

type RegistryConfig struct {
	SessionLifetime time.Duration
	SessionTTL      time.Duration
	CommunityTTL    time.Duration
}

func (c RegistryConfig) withDefaults() RegistryConfig {
	if c.SessionLifetime <= 0 {
		c.SessionLifetime = DefaultSessionLifetime
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = DefaultSessionTTL
	}
	if c.CommunityTTL <= 0 {
		c.CommunityTTL = DefaultCommunityTTL
	}
	return c
}

// Registry owns sessions and rosters. Each session is mutated under its own lock.
type Registry struct {
	cfg       RegistryConfig
	repo      ports.StateRepository
	resources ports.ResourceGateway
	occupancy ports.OccupancyProbe
	clock     ports.Clock
	logger    *slog.Logger

	locks    *keyedMutex
	sessions *ttlcache.Cache[domain.SessionID, domain.Session]
	rosters  *ttlcache.Cache[domain.SessionID, domain.Roster]
	targets  *ttlcache.Cache[domain.CommunityID, string]
	filters  *ttlcache.Cache[domain.CommunityID, domain.GameFilter]

	statsMu sync.Mutex
	stats   domain.Stats

	idMu     sync.Mutex
	reserved map[domain.SessionID]struct{}
	intn     func(n int) int

	saveMu sync.Mutex

	hooksMu     sync.RWMutex
	removeHooks []func(domain.Session)
}

func NewRegistry(cfg RegistryConfig, repo ports.StateRepository, resources ports.ResourceGateway, occupancy ports.OccupancyProbe, clock ports.Clock, logger *slog.Logger) *Registry {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{
		cfg:       cfg.withDefaults(),
		repo:      repo,
		resources: resources,
		occupancy: occupancy,
		clock:     clock,
		logger:    logger.With("component", "registry"),
		locks:     newKeyedMutex(),
		sessions:  ttlcache.New[domain.SessionID, domain.Session](clock.Now),
		rosters:   ttlcache.New[domain.SessionID, domain.Roster](clock.Now),
		targets:   ttlcache.New[domain.CommunityID, string](clock.Now),
		filters:   ttlcache.New[domain.CommunityID, domain.GameFilter](clock.Now),
		reserved:  map[domain.SessionID]struct{}{},
		intn:      rand.IntN,
	}
}

func (r *Registry) OnRemove(fn func(domain.Session)) {
	r.hooksMu.Lock()
	defer r.hooksMu.Unlock()
	r.removeHooks = append(r.removeHooks, fn)
}

func (r *Registry) Load(ctx context.Context) error {
	state, err := r.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	state.Normalize()

	for _, session := range state.Sessions {
		if err := session.Validate(); err != nil {
			r.logger.Warn("skipping invalid persisted session", "session", session.ID, "error", err)
			continue
		}
		roster, ok := state.Rosters[session.ID]
		if !ok {
			roster = domain.NewRoster(session.Organizer)
		}
		roster.Normalize()
		r.rosters.Put(session.ID, roster, r.cfg.SessionTTL)
		r.sessions.Put(session.ID, session, r.cfg.SessionTTL)
	}
	for community, room := range state.Targets {
		r.targets.Put(community, room, r.cfg.CommunityTTL)
	}
	for community, filter := range state.Filters {
		if filter.IsEmpty() {
			continue
		}
		r.filters.Put(community, filter, r.cfg.CommunityTTL)
	}

	r.statsMu.Lock()
	r.stats = state.Stats
	r.statsMu.Unlock()

	r.logger.Info("state loaded", "sessions", r.sessions.Len(), "targets", r.targets.Len(), "filters", r.filters.Len())
	return nil
}

func (r *Registry) Create(ctx context.Context, cmd CreateSessionCommand) (CreateResult, error) {
	filter, _ := r.filters.Get(cmd.Actor.CommunityID)
	if !filter.Allows(cmd.Game) {
		return CreateResult{}, &domain.Error{
			Kind:    domain.KindValidation,
			Err:     domain.ErrGameNotAllowed,
			Detail:  fmt.Sprintf("game %q", cmd.Game),
			Allowed: filter.Sorted(),
		}
	}

	id, release, err := r.reserveID()
	if err != nil {
		return CreateResult{}, err
	}
	defer release()

	session := domain.Session{
		ID:            id,
		Organizer:     cmd.Actor.ID,
		OrganizerName: cmd.Actor.Name,
		Game:          cmd.Game,
		Platform:      cmd.Platform,
		Activity:      cmd.Activity,
		Gametag:       cmd.Gametag,
		Description:   cmd.Description,
		StreamURL:     cmd.StreamURL,
		CreatedAt:     r.clock.Now(),
		Capacity:      cmd.Capacity,
		CommunityID:   cmd.Actor.CommunityID,
		InvokeRoomID:  cmd.InvokeRoomID,
	}
	if err := session.Validate(); err != nil {
		return CreateResult{}, err
	}

	var result CreateResult
	resources, err := r.resources.CreateSessionResources(ctx, session)
	if err != nil {
		if resources.Empty() {
			return CreateResult{}, fmt.Errorf("create session %s: %w", id, errors.Join(domain.ErrResourceCreation, err))
		}
		r.logger.Warn("session resources partly created", "session", id, "resources", resources, "error", err)
		result.ResourceErr = &domain.Error{Kind: domain.KindPartialFailure, Err: domain.ErrPartialResources, Detail: err.Error()}
	}
	session.Resources = resources

	unlock := r.locks.Lock(id)
	roster := domain.NewRoster(session.Organizer)
	r.rosters.Put(id, roster, r.cfg.SessionTTL)
	r.sessions.Put(id, session, r.cfg.SessionTTL)
	r.statsMu.Lock()
	r.stats.TotalSessions++
	r.stats.TotalPlayers += int64(session.Capacity)
	r.statsMu.Unlock()
	result.Session = snapshotOf(session, roster)
	unlock()

	r.persist(ctx)
	r.logger.Info("session created", "session", id, "community", session.CommunityID, "game", session.Game, "capacity", session.Capacity)
	return result, nil
}

func (r *Registry) Modify(ctx context.Context, cmd ModifySessionCommand) (domain.SessionSnapshot, error) {
	if !cmd.Actor.CanManage {
		return domain.SessionSnapshot{}, domain.Reject(domain.KindForbidden, domain.ErrManageRequired, "modify session")
	}
	if cmd.Capacity == nil && cmd.Description == nil {
		return domain.SessionSnapshot{}, domain.Reject(domain.KindValidation, domain.ErrInvalidField, "nothing to modify")
	}
	if cmd.Capacity != nil {
		if err := domain.ValidateCapacity(*cmd.Capacity); err != nil {
			return domain.SessionSnapshot{}, err
		}
	}

	unlock := r.locks.Lock(cmd.SessionID)
	session, roster, err := r.liveLocked(cmd.SessionID)
	if err == nil && session.CommunityID != cmd.Actor.CommunityID {
		err = notFound(cmd.SessionID)
	}
	if err != nil {
		unlock()
		return domain.SessionSnapshot{}, err
	}

	if cmd.Capacity != nil {
		delta := *cmd.Capacity - session.Capacity
		session.Capacity = *cmd.Capacity
		r.statsMu.Lock()
		r.stats.TotalPlayers += int64(delta)
		r.statsMu.Unlock()
	}
	if cmd.Description != nil {
		session.Description = *cmd.Description
	}
	r.sessions.Put(session.ID, session, r.cfg.SessionTTL)
	r.rosters.Put(session.ID, roster, r.cfg.SessionTTL)
	snapshot := snapshotOf(session, roster)
	unlock()

	r.persist(ctx)
	return snapshot, nil
}

func (r *Registry) Join(ctx context.Context, id domain.SessionID, member domain.MemberID) (domain.SessionSnapshot, error) {
	unlock := r.locks.Lock(id)
	session, roster, err := r.liveLocked(id)
	if err != nil {
		unlock()
		return domain.SessionSnapshot{}, err
	}
	if roster.Contains(member) {
		unlock()
		return domain.SessionSnapshot{}, domain.Reject(domain.KindConflict, domain.ErrAlreadyJoined, string(id))
	}
	if roster.Size() >= session.Capacity {
		unlock()
		return domain.SessionSnapshot{}, domain.Reject(domain.KindConflict, domain.ErrSessionFull, fmt.Sprintf("%d/%d", roster.Size(), session.Capacity))
	}

	roster = roster.With(member)
	r.rosters.Put(id, roster, r.cfg.SessionTTL)
	r.sessions.Put(id, session, r.cfg.SessionTTL)
	snapshot := snapshotOf(session, roster)
	unlock()

	r.persist(ctx)
	return snapshot, nil
}

func (r *Registry) Leave(ctx context.Context, id domain.SessionID, member domain.MemberID) (domain.SessionSnapshot, error) {
	unlock := r.locks.Lock(id)
	session, roster, err := r.liveLocked(id)
	if err != nil {
		unlock()
		return domain.SessionSnapshot{}, err
	}
	if session.Organizer == member {
		unlock()
		return domain.SessionSnapshot{}, domain.Reject(domain.KindConflict, domain.ErrOrganizerCannotLeave, string(id))
	}
	if !roster.Contains(member) {
		unlock()
		return domain.SessionSnapshot{}, domain.Reject(domain.KindConflict, domain.ErrNotMember, string(id))
	}

	roster = roster.Without(member)
	r.rosters.Put(id, roster, r.cfg.SessionTTL)
	snapshot := snapshotOf(session, roster)
	unlock()

	r.persist(ctx)
	return snapshot, nil
}

func (r *Registry) Remove(ctx context.Context, cmd RemoveMemberCommand) (domain.SessionSnapshot, error) {
	if !cmd.Mode.Valid() {
		return domain.SessionSnapshot{}, domain.Reject(domain.KindValidation, domain.ErrInvalidField, fmt.Sprintf("unknown removal mode %q", cmd.Mode))
	}

	unlock := r.locks.Lock(cmd.SessionID)
	session, _, err := r.liveLocked(cmd.SessionID)
	unlock()
	if err != nil {
		return domain.SessionSnapshot{}, err
	}
	if session.Organizer != cmd.Actor.ID {
		return domain.SessionSnapshot{}, domain.Reject(domain.KindConflict, domain.ErrNotOrganizer, string(cmd.Mode))
	}
	if cmd.Target == cmd.Actor.ID {
		return domain.SessionSnapshot{}, domain.Reject(domain.KindValidation, domain.ErrSelfRemoval, "")
	}

	occupants, err := r.occupancy.Occupants(ctx, session.Resources.VoiceRoomID)
	if err != nil {
		return domain.SessionSnapshot{}, fmt.Errorf("read voice occupancy for session %s: %w", session.ID, err)
	}
	if !lo.Contains(occupants, cmd.Target) {
		return domain.SessionSnapshot{}, domain.Reject(domain.KindConflict, domain.ErrNotPresent, string(cmd.Target))
	}

	if err := r.resources.RemoveMember(ctx, session.Resources, cmd.Target, cmd.Mode); err != nil {
		r.logger.Warn("platform removal failed, removing from roster anyway", "session", session.ID, "member", cmd.Target, "mode", cmd.Mode, "error", err)
	}

	unlock = r.locks.Lock(cmd.SessionID)
	session, roster, err := r.liveLocked(cmd.SessionID)
	if err != nil {
		unlock()
		return domain.SessionSnapshot{}, err
	}
	if roster.Contains(cmd.Target) {
		roster = roster.Without(cmd.Target)
		r.rosters.Put(session.ID, roster, r.cfg.SessionTTL)
	}
	snapshot := snapshotOf(session, roster)
	unlock()

	r.persist(ctx)
	r.logger.Info("member removed", "session", session.ID, "member", cmd.Target, "mode", cmd.Mode)
	return snapshot, nil
}

func (r *Registry) DeleteAs(ctx context.Context, cmd DeleteSessionCommand) error {
	unlock := r.locks.Lock(cmd.SessionID)
	session, _, err := r.liveLocked(cmd.SessionID)
	unlock()
	if err != nil {
		return err
	}

	manager := cmd.Actor.CanManage && cmd.Actor.CommunityID == session.CommunityID
	if session.Organizer != cmd.Actor.ID && !manager {
		return domain.Reject(domain.KindConflict, domain.ErrNotOrganizer, "delete session")
	}

	r.Delete(ctx, cmd.SessionID)
	return nil
}

// Delete reports false when the id was unknown.
func (r *Registry) Delete(ctx context.Context, id domain.SessionID) bool {
	return r.deleteWhen(ctx, id, func(domain.Session, bool) bool { return true })
}

func (r *Registry) ExpireStale(ctx context.Context, now time.Time) []domain.SessionID {
	stale := func(session domain.Session, expired bool) bool {
		return expired || session.OlderThan(now, r.cfg.SessionLifetime)
	}

	removed := make([]domain.SessionID, 0)
	for _, id := range r.sessions.Keys() {
		if r.deleteWhen(ctx, id, stale) {
			removed = append(removed, id)
		}
	}
	sortIDs(removed)
	return removed
}

func (r *Registry) deleteWhen(ctx context.Context, id domain.SessionID, match func(session domain.Session, expired bool) bool) bool {
	unlock := r.locks.Lock(id)
	session, expired, ok := r.sessions.Peek(id)
	ok = ok && match(session, expired)
	if ok {
		r.sessions.Delete(id)
		r.rosters.Delete(id)
	}
	unlock()
	if !ok {
		return false
	}

	r.afterRemoval(ctx, session)
	r.persist(ctx)
	r.logger.Info("session deleted", "session", id)
	return true
}

func (r *Registry) Sweep(ctx context.Context, now time.Time) []domain.SessionID {
	removed := make([]domain.SessionID, 0)
	for _, id := range r.sessions.Keys() {
		unlock := r.locks.Lock(id)
		session, evicted := r.sessions.DeleteIfExpired(id, now)
		if evicted {
			r.rosters.Delete(id)
		}
		unlock()

		if evicted {
			removed = append(removed, id)
			r.afterRemoval(ctx, session)
		}
	}

	orphans := 0
	for _, id := range r.rosters.Keys() {
		unlock := r.locks.Lock(id)
		_, evicted := r.rosters.DeleteIfExpired(id, now)
		_, _, hasSession := r.sessions.Peek(id)
		unlock()

		if !evicted {
			continue
		}
		if hasSession {
			r.logger.Warn("roster entry lapsed before its session", "session", id)
		}
		orphans++
	}
	targets := len(r.targets.Sweep(now))
	filters := len(r.filters.Sweep(now))

	if len(removed)+orphans+targets+filters > 0 {
		r.logger.Info("swept lapsed entries", "sessions", len(removed), "rosters", orphans, "targets", targets, "filters", filters)
		r.persist(ctx)
	}

	sortIDs(removed)
	return removed
}

func (r *Registry) Get(id domain.SessionID) (domain.SessionSnapshot, error) {
	unlock := r.locks.Lock(id)
	defer unlock()

	session, roster, err := r.liveLocked(id)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}
	return snapshotOf(session, roster), nil
}

func (r *Registry) withLive(id domain.SessionID, fn func(domain.Session)) error {
	unlock := r.locks.Lock(id)
	defer unlock()

	session, _, err := r.liveLocked(id)
	if err != nil {
		return err
	}
	fn(session)
	return nil
}

func (r *Registry) List(community domain.CommunityID) []domain.SessionSnapshot {
	snapshots := make([]domain.SessionSnapshot, 0)
	for _, id := range r.sessions.Keys() {
		snapshot, err := r.Get(id)
		if err != nil {
			continue
		}
		if community != "" && snapshot.Session.CommunityID != community {
			continue
		}
		snapshots = append(snapshots, snapshot)
	}

	sort.Slice(snapshots, func(i, j int) bool {
		left, right := snapshots[i].Session, snapshots[j].Session
		if left.CreatedAt.Equal(right.CreatedAt) {
			return left.ID < right.ID
		}
		return left.CreatedAt.Before(right.CreatedAt)
	})
	return snapshots
}

func (r *Registry) Stats() domain.StatsSnapshot {
	r.statsMu.Lock()
	stats := r.stats
	r.statsMu.Unlock()

	snapshot := domain.StatsSnapshot{
		TotalSessions: stats.TotalSessions,
		TotalPlayers:  stats.TotalPlayers,
	}
	for _, id := range r.sessions.Keys() {
		if _, live := r.sessions.Get(id); !live {
			continue
		}
		snapshot.ActiveSessions++
		if roster, ok := r.rosters.Get(id); ok {
			snapshot.JoinedPlayers += roster.Size()
		}
	}
	return snapshot
}

func (r *Registry) SetAnnouncementTarget(ctx context.Context, cmd SetAnnouncementTargetCommand) error {
	if !cmd.Actor.CanManage {
		return domain.Reject(domain.KindForbidden, domain.ErrManageRequired, "set announcement target")
	}

	r.targets.Put(cmd.Actor.CommunityID, cmd.RoomID, r.cfg.CommunityTTL)
	r.persist(ctx)
	return nil
}

func (r *Registry) ClearAnnouncementTarget(ctx context.Context, actor Actor) error {
	if !actor.CanManage {
		return domain.Reject(domain.KindForbidden, domain.ErrManageRequired, "clear announcement target")
	}

	if r.targets.Delete(actor.CommunityID) {
		r.persist(ctx)
	}
	return nil
}

func (r *Registry) SetGameFilter(ctx context.Context, cmd SetGameFilterCommand) (domain.GameFilter, error) {
	if !cmd.Actor.CanManage {
		return domain.GameFilter{}, domain.Reject(domain.KindForbidden, domain.ErrManageRequired, "set game filter")
	}

	filter := domain.NewGameFilter(cmd.Games...)
	if filter.IsEmpty() {
		r.filters.Delete(cmd.Actor.CommunityID)
	} else {
		r.filters.Put(cmd.Actor.CommunityID, filter, r.cfg.CommunityTTL)
	}
	r.persist(ctx)
	return filter, nil
}

func (r *Registry) ClearGameFilter(ctx context.Context, actor Actor) error {
	_, err := r.SetGameFilter(ctx, SetGameFilterCommand{Actor: actor})
	return err
}

func (r *Registry) CommunitySettings(community domain.CommunityID) CommunitySettings {
	room, _ := r.targets.Get(community)
	filter, _ := r.filters.Get(community)
	return CommunitySettings{CommunityID: community, TargetRoom: room, Filter: filter}
}

func (r *Registry) AnnouncementTargets() map[domain.CommunityID]string {
	targets := map[domain.CommunityID]string{}
	for community := range r.targets.Entries() {
		if room, ok := r.targets.Get(community); ok {
			targets[community] = room
		}
	}
	return targets
}

func (r *Registry) GameFilter(community domain.CommunityID) domain.GameFilter {
	filter, _ := r.filters.Get(community)
	return filter
}

func (r *Registry) State() domain.State {
	state := domain.NewState()

	sessions := r.sessions.Entries()
	rosters := r.rosters.Entries()
	for id, session := range sessions {
		state.Sessions = append(state.Sessions, session)
		if roster, ok := rosters[id]; ok {
			state.Rosters[id] = roster.Clone()
		}
	}
	sort.Slice(state.Sessions, func(i, j int) bool {
		return state.Sessions[i].ID < state.Sessions[j].ID
	})

	for community, room := range r.targets.Entries() {
		state.Targets[community] = room
	}
	for community, filter := range r.filters.Entries() {
		state.Filters[community] = filter
	}

	r.statsMu.Lock()
	state.Stats = r.stats
	r.statsMu.Unlock()

	return state
}

func (r *Registry) liveLocked(id domain.SessionID) (domain.Session, domain.Roster, error) {
	session, ok := r.sessions.Get(id)
	if !ok {
		return domain.Session{}, domain.Roster{}, notFound(id)
	}
	roster, ok := r.rosters.Get(id)
	if !ok {
		roster = domain.NewRoster(session.Organizer)
	}
	return session, roster, nil
}

func (r *Registry) reserveID() (domain.SessionID, func(), error) {
	r.idMu.Lock()
	defer r.idMu.Unlock()

	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := domain.SessionID(strconv.Itoa(minSessionID + r.intn(sessionIDSpan)))
		if _, taken := r.reserved[id]; taken {
			continue
		}
		if _, _, taken := r.sessions.Peek(id); taken {
			continue
		}

		r.reserved[id] = struct{}{}
		release := func() {
			r.idMu.Lock()
			delete(r.reserved, id)
			r.idMu.Unlock()
		}
		return id, release, nil
	}

	return "", nil, domain.Reject(domain.KindConflict, domain.ErrIDSpaceExhausted, fmt.Sprintf("after %d attempts", maxIDAttempts))
}

func (r *Registry) persist(ctx context.Context) {
	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	if err := r.repo.Save(ctx, r.State()); err != nil {
		r.logger.Warn("save state failed", "error", err)
	}
}

func (r *Registry) afterRemoval(ctx context.Context, session domain.Session) {
	r.hooksMu.RLock()
	hooks := append([]func(domain.Session){}, r.removeHooks...)
	r.hooksMu.RUnlock()

	for _, hook := range hooks {
		hook(session)
	}

	if session.Resources.Empty() {
		return
	}
	if err := r.resources.TeardownResources(ctx, session.Resources); err != nil {
		r.logger.Warn("teardown session resources failed", "session", session.ID, "error", err)
	}
}

func snapshotOf(session domain.Session, roster domain.Roster) domain.SessionSnapshot {
	return domain.SessionSnapshot{Session: session, Members: roster.Clone().Members}
}

func notFound(id domain.SessionID) error {
	return domain.Reject(domain.KindNotFound, domain.ErrSessionNotFound, string(id))
}

func sortIDs(ids []domain.SessionID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
