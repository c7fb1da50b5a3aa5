package toml

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version     int               `toml:"version"`
	Stats       statsSchema       `toml:"stats"`
	Sessions    []sessionSchema   `toml:"sessions"`
	Communities []communitySchema `toml:"communities,omitempty"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported state schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type statsSchema struct {
	TotalSessions int64 `toml:"total_sessions"`
	TotalPlayers  int64 `toml:"total_players"`
}

type sessionSchema struct {
	ID            string          `toml:"id"`
	Organizer     string          `toml:"organizer"`
	OrganizerName string          `toml:"organizer_name,omitempty"`
	Game          string          `toml:"game"`
	Platform      string          `toml:"platform,omitempty"`
	Activity      string          `toml:"activity,omitempty"`
	Gametag       string          `toml:"gametag,omitempty"`
	Description   string          `toml:"description,omitempty"`
	StreamURL     string          `toml:"stream_url,omitempty"`
	CreatedAt     string          `toml:"created_at"`
	Capacity      int             `toml:"capacity"`
	CommunityID   string          `toml:"community_id"`
	InvokeRoomID  string          `toml:"invoke_room_id,omitempty"`
	Members       []string        `toml:"members"`
	Resources     resourcesSchema `toml:"resources,omitempty"`
}

type resourcesSchema struct {
	CategoryID        string `toml:"category_id,omitempty"`
	VoiceRoomID       string `toml:"voice_room_id,omitempty"`
	TextRoomID        string `toml:"text_room_id,omitempty"`
	InfoRoomID        string `toml:"info_room_id,omitempty"`
	InfoMessageID     string `toml:"info_message_id,omitempty"`
	AnnounceMessageID string `toml:"announce_message_id,omitempty"`
}

type communitySchema struct {
	ID         string   `toml:"id"`
	TargetRoom string   `toml:"target_room,omitempty"`
	Games      []string `toml:"games,omitempty"`
}
