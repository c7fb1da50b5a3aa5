package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

type SessionID string
type MemberID string
type CommunityID string

const (
	MinCapacity = 1
	MaxCapacity = 10
)

var streamURLPattern = regexp.MustCompile(`^https?://(www\.)?(twitch\.tv|youtube\.com|youtu\.be|kick\.com)/\S+$`)

// Resources identifies the external rooms and messages provisioned for a
// session. Any field may be empty when provisioning only partly succeeded.
type Resources struct {
	CategoryID        string
	VoiceRoomID       string
	TextRoomID        string
	InfoRoomID        string
	InfoMessageID     string
	AnnounceMessageID string
}

func (r Resources) Empty() bool {
	return r == Resources{}
}

type Session struct {
	ID            SessionID
	Organizer     MemberID
	OrganizerName string
	Game          string
	Platform      string
	Activity      string
	Gametag       string
	Description   string
	StreamURL     string
	CreatedAt     time.Time
	Capacity      int
	Resources     Resources
	CommunityID   CommunityID
	InvokeRoomID  string
}

func (s Session) Validate() error {
	if strings.TrimSpace(string(s.ID)) == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(string(s.Organizer)) == "" {
		return fmt.Errorf("organizer is required")
	}
	if strings.TrimSpace(string(s.CommunityID)) == "" {
		return fmt.Errorf("community is required")
	}
	if err := ValidateCapacity(s.Capacity); err != nil {
		return err
	}

	return ValidateStreamURL(s.StreamURL)
}

// OlderThan reports whether the session has outlived lifetime at now.
// A non-positive lifetime never expires.
func (s Session) OlderThan(now time.Time, lifetime time.Duration) bool {
	if lifetime <= 0 {
		return false
	}

	return now.Sub(s.CreatedAt) >= lifetime
}

func ValidateCapacity(capacity int) error {
	if capacity < MinCapacity || capacity > MaxCapacity {
		return Reject(KindValidation, ErrInvalidCapacity, fmt.Sprintf("capacity must be between %d and %d, got %d", MinCapacity, MaxCapacity, capacity))
	}

	return nil
}

// ValidateStreamURL accepts an empty value since the stream link is optional.
func ValidateStreamURL(raw string) error {
	if raw == "" {
		return nil
	}
	if !streamURLPattern.MatchString(raw) {
		return Reject(KindValidation, ErrInvalidStreamURL, fmt.Sprintf("unsupported stream url %q", raw))
	}

	return nil
}
