package application

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/bnema/lfg-coordinator/internal/adapters/resources/memory"
	"github.com/bnema/lfg-coordinator/internal/domain"
	"github.com/bnema/lfg-coordinator/internal/ports/clocktest"
)

var testEpoch = time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

type inMemoryStateRepo struct {
	mu      sync.Mutex
	state   domain.State
	saves   int
	saveErr error
	loadErr error
}

func (r *inMemoryStateRepo) Load(context.Context) (domain.State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.loadErr != nil {
		return domain.State{}, r.loadErr
	}
	return r.state, nil
}

func (r *inMemoryStateRepo) Save(_ context.Context, state domain.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.saves++
	if r.saveErr != nil {
		return r.saveErr
	}
	r.state = state
	return nil
}

func (r *inMemoryStateRepo) last() domain.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *inMemoryStateRepo) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

// syncBuffer lets concurrent loggers share one buffer.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type registryFixture struct {
	registry *Registry
	repo     *inMemoryStateRepo
	gateway  *memory.Gateway
	clock    *clocktest.FakeClock
	logs     *syncBuffer
}

func newRegistryFixture(t *testing.T) registryFixture {
	t.Helper()

	repo := &inMemoryStateRepo{state: domain.NewState()}
	gateway := memory.NewGateway()
	clock := clocktest.New(testEpoch)
	logs := &syncBuffer{}
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	registry := NewRegistry(RegistryConfig{}, repo, gateway, gateway, clock, logger)
	return registryFixture{registry: registry, repo: repo, gateway: gateway, clock: clock, logs: logs}
}

func actor(id string) Actor {
	return Actor{ID: domain.MemberID(id), Name: id, CommunityID: "guild-a"}
}

func manager(id string, community domain.CommunityID) Actor {
	return Actor{ID: domain.MemberID(id), Name: id, CommunityID: community, CanManage: true}
}

func createCmd(organizer Actor, game string, capacity int) CreateSessionCommand {
	return CreateSessionCommand{Actor: organizer, Game: game, Platform: "PC", Capacity: capacity}
}

func mustCreate(t *testing.T, registry *Registry, cmd CreateSessionCommand) domain.SessionSnapshot {
	t.Helper()

	result, err := registry.Create(context.Background(), cmd)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return result.Session
}

var errBoom = errors.New("boom")
