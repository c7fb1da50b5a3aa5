// Package sqlite stores coordinator state in a SQLite database through gorm.
// Each save replaces every table inside a single transaction.
package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/lfg-coordinator/internal/domain"
	"github.com/bnema/lfg-coordinator/internal/ports"
	sqlitedriver "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const statsRowID = 1

type sessionRow struct {
	ID                string `gorm:"primaryKey;type:varchar(16)"`
	Organizer         string `gorm:"type:varchar(64);not null"`
	OrganizerName     string `gorm:"type:varchar(128)"`
	Game              string `gorm:"type:varchar(100);not null"`
	Platform          string `gorm:"type:varchar(50)"`
	Activity          string `gorm:"type:varchar(50)"`
	Gametag           string `gorm:"type:varchar(100)"`
	Description       string `gorm:"type:text"`
	StreamURL         string `gorm:"type:text"`
	CreatedAtNano     int64  `gorm:"type:bigint;index"`
	Capacity          int    `gorm:"not null"`
	CommunityID       string `gorm:"type:varchar(64);index"`
	InvokeRoomID      string `gorm:"type:varchar(64)"`
	CategoryID        string `gorm:"type:varchar(64)"`
	VoiceRoomID       string `gorm:"type:varchar(64)"`
	TextRoomID        string `gorm:"type:varchar(64)"`
	InfoRoomID        string `gorm:"type:varchar(64)"`
	InfoMessageID     string `gorm:"type:varchar(64)"`
	AnnounceMessageID string `gorm:"type:varchar(64)"`
}

func (sessionRow) TableName() string { return "lfg_sessions" }

type memberRow struct {
	SessionID string `gorm:"primaryKey;type:varchar(16)"`
	Position  int    `gorm:"primaryKey"`
	MemberID  string `gorm:"type:varchar(64);not null"`
}

func (memberRow) TableName() string { return "lfg_members" }

type communityRow struct {
	ID         string `gorm:"primaryKey;type:varchar(64)"`
	TargetRoom string `gorm:"type:varchar(64)"`
	Games      string `gorm:"type:text"` // JSON array
}

func (communityRow) TableName() string { return "lfg_communities" }

type statsRow struct {
	ID            int `gorm:"primaryKey"`
	TotalSessions int64
	TotalPlayers  int64
}

func (statsRow) TableName() string { return "lfg_stats" }

type Repository struct {
	db *gorm.DB
}

var _ ports.StateRepository = (*Repository)(nil)

// NewRepository opens dsn and migrates the schema. A plain file path has its
// parent directory created first.
func NewRepository(dsn string) (*Repository, error) {
	if dsn == "" {
		return nil, errors.New("sqlite dsn is empty")
	}
	if !strings.HasPrefix(dsn, "file:") && !strings.Contains(dsn, ":memory:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o700); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlitedriver.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open sqlite state: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open sqlite state: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&sessionRow{}, &memberRow{}, &communityRow{}, &statsRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate sqlite state: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *Repository) Load(ctx context.Context) (domain.State, error) {
	db := r.db.WithContext(ctx)
	state := domain.NewState()

	var sessions []sessionRow
	if err := db.Order("created_at_nano, id").Find(&sessions).Error; err != nil {
		return domain.State{}, fmt.Errorf("load sessions: %w", err)
	}
	var members []memberRow
	if err := db.Order("session_id, position").Find(&members).Error; err != nil {
		return domain.State{}, fmt.Errorf("load members: %w", err)
	}
	var communities []communityRow
	if err := db.Find(&communities).Error; err != nil {
		return domain.State{}, fmt.Errorf("load communities: %w", err)
	}
	var stats statsRow
	if err := db.Limit(1).Find(&stats, statsRowID).Error; err != nil {
		return domain.State{}, fmt.Errorf("load stats: %w", err)
	}

	for _, row := range sessions {
		state.Sessions = append(state.Sessions, fromSessionRow(row))
		state.Rosters[domain.SessionID(row.ID)] = domain.Roster{Members: []domain.MemberID{}}
	}
	for _, row := range members {
		id := domain.SessionID(row.SessionID)
		roster, ok := state.Rosters[id]
		if !ok {
			continue
		}
		roster.Members = append(roster.Members, domain.MemberID(row.MemberID))
		state.Rosters[id] = roster
	}
	for _, row := range communities {
		id := domain.CommunityID(row.ID)
		if row.TargetRoom != "" {
			state.Targets[id] = row.TargetRoom
		}
		games, err := decodeGames(row.Games)
		if err != nil {
			return domain.State{}, fmt.Errorf("decode games for community %s: %w", row.ID, err)
		}
		if len(games) > 0 {
			state.Filters[id] = domain.NewGameFilter(games...)
		}
	}
	state.Stats = domain.Stats{TotalSessions: stats.TotalSessions, TotalPlayers: stats.TotalPlayers}

	return state, nil
}

func (r *Repository) Save(ctx context.Context, state domain.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sessions, members := toRows(state)
	communities, err := toCommunityRows(state)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&memberRow{}, &sessionRow{}, &communityRow{}} {
			if err := tx.Where("1 = 1").Delete(model).Error; err != nil {
				return fmt.Errorf("clear state tables: %w", err)
			}
		}
		if len(sessions) > 0 {
			if err := tx.Create(&sessions).Error; err != nil {
				return fmt.Errorf("insert sessions: %w", err)
			}
		}
		if len(members) > 0 {
			if err := tx.Create(&members).Error; err != nil {
				return fmt.Errorf("insert members: %w", err)
			}
		}
		if len(communities) > 0 {
			if err := tx.Create(&communities).Error; err != nil {
				return fmt.Errorf("insert communities: %w", err)
			}
		}
		stats := statsRow{ID: statsRowID, TotalSessions: state.Stats.TotalSessions, TotalPlayers: state.Stats.TotalPlayers}
		if err := tx.Save(&stats).Error; err != nil {
			return fmt.Errorf("save stats: %w", err)
		}
		return nil
	})
}

func toRows(state domain.State) ([]sessionRow, []memberRow) {
	sessions := make([]sessionRow, 0, len(state.Sessions))
	var members []memberRow
	for _, session := range state.Sessions {
		sessions = append(sessions, sessionRow{
			ID:                string(session.ID),
			Organizer:         string(session.Organizer),
			OrganizerName:     session.OrganizerName,
			Game:              session.Game,
			Platform:          session.Platform,
			Activity:          session.Activity,
			Gametag:           session.Gametag,
			Description:       session.Description,
			StreamURL:         session.StreamURL,
			CreatedAtNano:     unixNano(session.CreatedAt),
			Capacity:          session.Capacity,
			CommunityID:       string(session.CommunityID),
			InvokeRoomID:      session.InvokeRoomID,
			CategoryID:        session.Resources.CategoryID,
			VoiceRoomID:       session.Resources.VoiceRoomID,
			TextRoomID:        session.Resources.TextRoomID,
			InfoRoomID:        session.Resources.InfoRoomID,
			InfoMessageID:     session.Resources.InfoMessageID,
			AnnounceMessageID: session.Resources.AnnounceMessageID,
		})
		for position, member := range state.Rosters[session.ID].Members {
			members = append(members, memberRow{SessionID: string(session.ID), Position: position, MemberID: string(member)})
		}
	}
	return sessions, members
}

func toCommunityRows(state domain.State) ([]communityRow, error) {
	rows := map[domain.CommunityID]*communityRow{}
	row := func(id domain.CommunityID) *communityRow {
		if existing, ok := rows[id]; ok {
			return existing
		}
		created := &communityRow{ID: string(id), Games: "[]"}
		rows[id] = created
		return created
	}

	for id, room := range state.Targets {
		row(id).TargetRoom = room
	}
	for id, filter := range state.Filters {
		if filter.IsEmpty() {
			continue
		}
		encoded, err := json.Marshal(filter.Sorted())
		if err != nil {
			return nil, fmt.Errorf("encode games for community %s: %w", id, err)
		}
		row(id).Games = string(encoded)
	}

	out := make([]communityRow, 0, len(rows))
	for _, entry := range rows {
		out = append(out, *entry)
	}
	return out, nil
}

func fromSessionRow(row sessionRow) domain.Session {
	session := domain.Session{
		ID:            domain.SessionID(row.ID),
		Organizer:     domain.MemberID(row.Organizer),
		OrganizerName: row.OrganizerName,
		Game:          row.Game,
		Platform:      row.Platform,
		Activity:      row.Activity,
		Gametag:       row.Gametag,
		Description:   row.Description,
		StreamURL:     row.StreamURL,
		Capacity:      row.Capacity,
		CommunityID:   domain.CommunityID(row.CommunityID),
		InvokeRoomID:  row.InvokeRoomID,
		Resources: domain.Resources{
			CategoryID:        row.CategoryID,
			VoiceRoomID:       row.VoiceRoomID,
			TextRoomID:        row.TextRoomID,
			InfoRoomID:        row.InfoRoomID,
			InfoMessageID:     row.InfoMessageID,
			AnnounceMessageID: row.AnnounceMessageID,
		},
	}
	if row.CreatedAtNano != 0 {
		session.CreatedAt = time.Unix(0, row.CreatedAtNano).UTC()
	}
	return session
}

func unixNano(value time.Time) int64 {
	if value.IsZero() {
		return 0
	}
	return value.UnixNano()
}

func decodeGames(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var games []string
	if err := json.Unmarshal([]byte(raw), &games); err != nil {
		return nil, err
	}
	return games, nil
}
