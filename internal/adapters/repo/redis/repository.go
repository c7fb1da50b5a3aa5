// Package redis keeps the coordinator state as one JSON document under a
// single Redis key.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/bnema/lfg-coordinator/internal/domain"
	"github.com/bnema/lfg-coordinator/internal/ports"
	goredis "github.com/go-redis/redis/v8"
)

const (
	DefaultKey     = "lfg:state"
	snapshotFormat = 1
	pingTimeout    = 5 * time.Second
)

type Repository struct {
	client *goredis.Client
	key    string
}

var _ ports.StateRepository = (*Repository)(nil)

// NewRepository parses url, connects and pings the server.
func NewRepository(ctx context.Context, url, key string) (*Repository, error) {
	opt, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := goredis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opt.Addr, err)
	}

	return NewRepositoryWithClient(client, key), nil
}

func NewRepositoryWithClient(client *goredis.Client, key string) *Repository {
	if key == "" {
		key = DefaultKey
	}
	return &Repository{client: client, key: key}
}

func (r *Repository) Close() error {
	return r.client.Close()
}

func (r *Repository) Load(ctx context.Context) (domain.State, error) {
	raw, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domain.NewState(), nil
	}
	if err != nil {
		return domain.State{}, fmt.Errorf("get %s: %w", r.key, err)
	}

	return decodeSnapshot(raw)
}

func (r *Repository) Save(ctx context.Context, state domain.State) error {
	raw, err := encodeSnapshot(state)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", r.key, err)
	}
	return nil
}

type snapshot struct {
	Format      int                 `json:"format"`
	Stats       domain.Stats        `json:"stats"`
	Sessions    []snapshotSession   `json:"sessions"`
	Communities []snapshotCommunity `json:"communities"`
}

type snapshotSession struct {
	Session domain.Session    `json:"session"`
	Members []domain.MemberID `json:"members"`
}

type snapshotCommunity struct {
	ID         domain.CommunityID `json:"id"`
	TargetRoom string             `json:"target_room,omitempty"`
	Games      []string           `json:"games,omitempty"`
}

func encodeSnapshot(state domain.State) ([]byte, error) {
	out := snapshot{
		Format:   snapshotFormat,
		Stats:    state.Stats,
		Sessions: make([]snapshotSession, 0, len(state.Sessions)),
	}
	for _, session := range state.Sessions {
		members := append([]domain.MemberID{}, state.Rosters[session.ID].Members...)
		out.Sessions = append(out.Sessions, snapshotSession{Session: session, Members: members})
	}

	communities := map[domain.CommunityID]*snapshotCommunity{}
	entry := func(id domain.CommunityID) *snapshotCommunity {
		if existing, ok := communities[id]; ok {
			return existing
		}
		created := &snapshotCommunity{ID: id}
		communities[id] = created
		return created
	}
	for id, room := range state.Targets {
		entry(id).TargetRoom = room
	}
	for id, filter := range state.Filters {
		if !filter.IsEmpty() {
			entry(id).Games = filter.Sorted()
		}
	}
	out.Communities = make([]snapshotCommunity, 0, len(communities))
	for _, community := range communities {
		out.Communities = append(out.Communities, *community)
	}
	sort.Slice(out.Communities, func(i, j int) bool {
		return out.Communities[i].ID < out.Communities[j].ID
	})

	raw, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode state snapshot: %w", err)
	}
	return raw, nil
}

func decodeSnapshot(raw []byte) (domain.State, error) {
	var in snapshot
	if err := json.Unmarshal(raw, &in); err != nil {
		return domain.State{}, fmt.Errorf("decode state snapshot: %w", err)
	}
	if in.Format > snapshotFormat {
		return domain.State{}, fmt.Errorf("unsupported state snapshot format %d (current %d)", in.Format, snapshotFormat)
	}

	state := domain.NewState()
	state.Stats = in.Stats
	for _, entry := range in.Sessions {
		state.Sessions = append(state.Sessions, entry.Session)
		state.Rosters[entry.Session.ID] = domain.Roster{Members: append([]domain.MemberID{}, entry.Members...)}
	}
	for _, community := range in.Communities {
		if community.TargetRoom != "" {
			state.Targets[community.ID] = community.TargetRoom
		}
		if len(community.Games) > 0 {
			state.Filters[community.ID] = domain.NewGameFilter(community.Games...)
		}
	}
	return state, nil
}
