package httpapi

import (
	"time"

	"github.com/bnema/lfg-coordinator/internal/application"
	"github.com/bnema/lfg-coordinator/internal/domain"
	"github.com/samber/lo"
)

type createSessionRequest struct {
	Game         string `json:"game"`
	Platform     string `json:"platform"`
	Activity     string `json:"activity"`
	Gametag      string `json:"gametag"`
	Description  string `json:"description"`
	StreamURL    string `json:"stream_url"`
	Capacity     int    `json:"capacity"`
	InvokeRoomID string `json:"invoke_room_id"`
}

type modifySessionRequest struct {
	Capacity    *int    `json:"capacity"`
	Description *string `json:"description"`
}

type removeMemberRequest struct {
	Member string `json:"member"`
	Mode   string `json:"mode"`
}

type targetRequest struct {
	RoomID string `json:"room_id"`
}

type filterRequest struct {
	Games []string `json:"games"`
}

type occupancyRequest struct {
	SessionID string `json:"session_id"`
	Empty     bool   `json:"empty"`
}

type resourcesResponse struct {
	CategoryID        string `json:"category_id,omitempty"`
	VoiceRoomID       string `json:"voice_room_id,omitempty"`
	TextRoomID        string `json:"text_room_id,omitempty"`
	InfoRoomID        string `json:"info_room_id,omitempty"`
	InfoMessageID     string `json:"info_message_id,omitempty"`
	AnnounceMessageID string `json:"announce_message_id,omitempty"`
}

type sessionResponse struct {
	ID            string            `json:"id"`
	Organizer     string            `json:"organizer"`
	OrganizerName string            `json:"organizer_name,omitempty"`
	Game          string            `json:"game"`
	Platform      string            `json:"platform,omitempty"`
	Activity      string            `json:"activity,omitempty"`
	Gametag       string            `json:"gametag,omitempty"`
	Description   string            `json:"description,omitempty"`
	StreamURL     string            `json:"stream_url,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	Capacity      int               `json:"capacity"`
	CommunityID   string            `json:"community_id"`
	Members       []string          `json:"members"`
	OpenSlots     int               `json:"open_slots"`
	Resources     resourcesResponse `json:"resources"`
}

type fanoutResponse struct {
	Delivered []string          `json:"delivered"`
	Skipped   []string          `json:"skipped"`
	Failed    map[string]string `json:"failed,omitempty"`
}

type createSessionResponse struct {
	Session sessionResponse `json:"session"`
	Warning string          `json:"warning,omitempty"`
	Fanout  fanoutResponse  `json:"fanout"`
}

type statsResponse struct {
	TotalSessions  int64 `json:"total_sessions"`
	TotalPlayers   int64 `json:"total_players"`
	ActiveSessions int   `json:"active_sessions"`
	JoinedPlayers  int   `json:"joined_players"`
}

type communityResponse struct {
	CommunityID string   `json:"community_id"`
	TargetRoom  string   `json:"target_room,omitempty"`
	Games       []string `json:"games"`
}

func toSessionResponse(snapshot domain.SessionSnapshot) sessionResponse {
	session := snapshot.Session
	return sessionResponse{
		ID:            string(session.ID),
		Organizer:     string(session.Organizer),
		OrganizerName: session.OrganizerName,
		Game:          session.Game,
		Platform:      session.Platform,
		Activity:      session.Activity,
		Gametag:       session.Gametag,
		Description:   session.Description,
		StreamURL:     session.StreamURL,
		CreatedAt:     session.CreatedAt,
		Capacity:      session.Capacity,
		CommunityID:   string(session.CommunityID),
		Members:       lo.Map(snapshot.Members, func(member domain.MemberID, _ int) string { return string(member) }),
		OpenSlots:     snapshot.OpenSlots(),
		Resources: resourcesResponse{
			CategoryID:        session.Resources.CategoryID,
			VoiceRoomID:       session.Resources.VoiceRoomID,
			TextRoomID:        session.Resources.TextRoomID,
			InfoRoomID:        session.Resources.InfoRoomID,
			InfoMessageID:     session.Resources.InfoMessageID,
			AnnounceMessageID: session.Resources.AnnounceMessageID,
		},
	}
}

func toFanoutResponse(report application.FanoutReport) fanoutResponse {
	communityIDs := func(ids []domain.CommunityID) []string {
		return lo.Map(ids, func(id domain.CommunityID, _ int) string { return string(id) })
	}

	response := fanoutResponse{
		Delivered: communityIDs(report.Delivered),
		Skipped:   communityIDs(report.Skipped),
	}
	if len(report.Failed) > 0 {
		response.Failed = make(map[string]string, len(report.Failed))
		for community, err := range report.Failed {
			response.Failed[string(community)] = err.Error()
		}
	}
	return response
}

func toStatsResponse(stats domain.StatsSnapshot) statsResponse {
	return statsResponse{
		TotalSessions:  stats.TotalSessions,
		TotalPlayers:   stats.TotalPlayers,
		ActiveSessions: stats.ActiveSessions,
		JoinedPlayers:  stats.JoinedPlayers,
	}
}

func toCommunityResponse(settings application.CommunitySettings) communityResponse {
	return communityResponse{
		CommunityID: string(settings.CommunityID),
		TargetRoom:  settings.TargetRoom,
		Games:       settings.Filter.Sorted(),
	}
}
