package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bnema/lfg-coordinator/internal/domain"
	"github.com/bnema/lfg-coordinator/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	statePathKey    = "store.path"
	stateFileMode   = 0o600
	stateDirMode    = 0o700
	stateConfigDir  = ".config/lfg"
	stateConfigFile = "state.toml"
	tempFilePattern = ".state-*.toml.tmp"
)

// Repository keeps the whole coordinator state in one TOML file. Every save
// rewrites the file through a temp file and rename.
type Repository struct {
	statePath string
	mu        *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.StateRepository = (*Repository)(nil)

func NewRepository(cfg *viper.Viper) (*Repository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	cfg.SetDefault(statePathKey, filepath.Join(homeDir, stateConfigDir, stateConfigFile))

	statePath := cfg.GetString(statePathKey)
	if statePath == "" {
		return nil, errors.New("state path is empty")
	}
	statePath, err = normalizeStatePath(statePath)
	if err != nil {
		return nil, err
	}

	return &Repository{statePath: statePath, mu: lockForPath(statePath)}, nil
}

func (r *Repository) Path() string {
	return r.statePath
}

func (r *Repository) Load(ctx context.Context) (domain.State, error) {
	if err := ctx.Err(); err != nil {
		return domain.State{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return domain.State{}, err
	}

	return fromSchema(file)
}

func (r *Repository) Save(ctx context.Context, state domain.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	file := toSchema(state)

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	return r.writeSchema(file)
}

func (r *Repository) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(r.statePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileSchema{Version: currentSchemaVersion}, nil
		}
		return fileSchema{}, fmt.Errorf("read state file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode state file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func normalizeStatePath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve state path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func (r *Repository) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(r.statePath), stateDirMode); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode state file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(r.statePath), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp state file: %w", err)
	}

	if err := tempFile.Chmod(stateFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp state file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}

	if err := os.Rename(tempName, r.statePath); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}

	cleanup = false
	return nil
}

func toSchema(state domain.State) fileSchema {
	file := fileSchema{
		Version: currentSchemaVersion,
		Stats: statsSchema{
			TotalSessions: state.Stats.TotalSessions,
			TotalPlayers:  state.Stats.TotalPlayers,
		},
		Sessions: make([]sessionSchema, 0, len(state.Sessions)),
	}

	for _, session := range state.Sessions {
		members := []string{}
		if roster, ok := state.Rosters[session.ID]; ok {
			for _, member := range roster.Members {
				members = append(members, string(member))
			}
		}

		file.Sessions = append(file.Sessions, sessionSchema{
			ID:            string(session.ID),
			Organizer:     string(session.Organizer),
			OrganizerName: session.OrganizerName,
			Game:          session.Game,
			Platform:      session.Platform,
			Activity:      session.Activity,
			Gametag:       session.Gametag,
			Description:   session.Description,
			StreamURL:     session.StreamURL,
			CreatedAt:     formatTime(session.CreatedAt),
			Capacity:      session.Capacity,
			CommunityID:   string(session.CommunityID),
			InvokeRoomID:  session.InvokeRoomID,
			Members:       members,
			Resources: resourcesSchema{
				CategoryID:        session.Resources.CategoryID,
				VoiceRoomID:       session.Resources.VoiceRoomID,
				TextRoomID:        session.Resources.TextRoomID,
				InfoRoomID:        session.Resources.InfoRoomID,
				InfoMessageID:     session.Resources.InfoMessageID,
				AnnounceMessageID: session.Resources.AnnounceMessageID,
			},
		})
	}

	communities := map[domain.CommunityID]*communitySchema{}
	entry := func(id domain.CommunityID) *communitySchema {
		if existing, ok := communities[id]; ok {
			return existing
		}
		created := &communitySchema{ID: string(id)}
		communities[id] = created
		return created
	}
	for id, room := range state.Targets {
		entry(id).TargetRoom = room
	}
	for id, filter := range state.Filters {
		if filter.IsEmpty() {
			continue
		}
		entry(id).Games = filter.Sorted()
	}
	for _, community := range communities {
		file.Communities = append(file.Communities, *community)
	}
	sort.Slice(file.Communities, func(i, j int) bool {
		return file.Communities[i].ID < file.Communities[j].ID
	})

	return file
}

func fromSchema(file fileSchema) (domain.State, error) {
	state := domain.NewState()
	state.Stats = domain.Stats{
		TotalSessions: file.Stats.TotalSessions,
		TotalPlayers:  file.Stats.TotalPlayers,
	}

	for _, entry := range file.Sessions {
		id := domain.SessionID(entry.ID)
		createdAt, err := parseTime(entry.CreatedAt)
		if err != nil {
			return domain.State{}, fmt.Errorf("decode session %s created_at: %w", id, err)
		}
		state.Sessions = append(state.Sessions, domain.Session{
			ID:            id,
			Organizer:     domain.MemberID(entry.Organizer),
			OrganizerName: entry.OrganizerName,
			Game:          entry.Game,
			Platform:      entry.Platform,
			Activity:      entry.Activity,
			Gametag:       entry.Gametag,
			Description:   entry.Description,
			StreamURL:     entry.StreamURL,
			CreatedAt:     createdAt,
			Capacity:      entry.Capacity,
			CommunityID:   domain.CommunityID(entry.CommunityID),
			InvokeRoomID:  entry.InvokeRoomID,
			Resources: domain.Resources{
				CategoryID:        entry.Resources.CategoryID,
				VoiceRoomID:       entry.Resources.VoiceRoomID,
				TextRoomID:        entry.Resources.TextRoomID,
				InfoRoomID:        entry.Resources.InfoRoomID,
				InfoMessageID:     entry.Resources.InfoMessageID,
				AnnounceMessageID: entry.Resources.AnnounceMessageID,
			},
		})

		members := make([]domain.MemberID, 0, len(entry.Members))
		for _, member := range entry.Members {
			members = append(members, domain.MemberID(member))
		}
		state.Rosters[id] = domain.Roster{Members: members}
	}

	for _, community := range file.Communities {
		id := domain.CommunityID(community.ID)
		if community.TargetRoom != "" {
			state.Targets[id] = community.TargetRoom
		}
		if len(community.Games) > 0 {
			state.Filters[id] = domain.NewGameFilter(community.Games...)
		}
	}

	return state, nil
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}

	return time.Parse(time.RFC3339Nano, raw)
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.UTC().Format(time.RFC3339Nano)
}
