// Package bridge implements ResourceGateway and OccupancyProbe over HTTP
// against the chat-platform bridge process.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bnema/lfg-coordinator/internal/domain"
	"github.com/bnema/lfg-coordinator/internal/ports"
	"github.com/tidwall/gjson"
)

const (
	userAgent       = "lfg-coordinator/bridge"
	maxResponseSize = 1 << 20
	DefaultTimeout  = 10 * time.Second
)

// ErrBridgeStatus wraps any non-2xx answer from the bridge.
var ErrBridgeStatus = errors.New("bridge returned an error status")

type Client struct {
	baseURL    string
	httpClient *http.Client
}

var (
	_ ports.ResourceGateway = (*Client)(nil)
	_ ports.OccupancyProbe  = (*Client)(nil)
)

func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid bridge url %q", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}, nil
}

type sessionPayload struct {
	ID           string `json:"id"`
	Organizer    string `json:"organizer"`
	Game         string `json:"game"`
	Platform     string `json:"platform,omitempty"`
	Activity     string `json:"activity,omitempty"`
	Gametag      string `json:"gametag,omitempty"`
	Description  string `json:"description,omitempty"`
	StreamURL    string `json:"stream_url,omitempty"`
	Capacity     int    `json:"capacity"`
	CommunityID  string `json:"community_id"`
	InvokeRoomID string `json:"invoke_room_id,omitempty"`
}

type resourcesPayload struct {
	CategoryID        string `json:"category_id,omitempty"`
	VoiceRoomID       string `json:"voice_room_id,omitempty"`
	TextRoomID        string `json:"text_room_id,omitempty"`
	InfoRoomID        string `json:"info_room_id,omitempty"`
	InfoMessageID     string `json:"info_message_id,omitempty"`
	AnnounceMessageID string `json:"announce_message_id,omitempty"`
}

type snapshotPayload struct {
	Session   sessionPayload   `json:"session"`
	Resources resourcesPayload `json:"resources"`
	Members   []string         `json:"members"`
	OpenSlots int              `json:"open_slots"`
}

// CreateSessionResources posts the session and reads back whatever handles
// the bridge created. A response carrying both handles and an "error" field is
// a partial success.
func (c *Client) CreateSessionResources(ctx context.Context, session domain.Session) (domain.Resources, error) {
	body, err := c.do(ctx, http.MethodPost, "/v1/sessions/resources", toSessionPayload(session))
	if err != nil {
		return domain.Resources{}, err
	}

	parsed := gjson.ParseBytes(body)
	resources := domain.Resources{
		CategoryID:        parsed.Get("resources.category_id").String(),
		VoiceRoomID:       parsed.Get("resources.voice_room_id").String(),
		TextRoomID:        parsed.Get("resources.text_room_id").String(),
		InfoRoomID:        parsed.Get("resources.info_room_id").String(),
		InfoMessageID:     parsed.Get("resources.info_message_id").String(),
		AnnounceMessageID: parsed.Get("resources.announce_message_id").String(),
	}
	if message := parsed.Get("error").String(); message != "" {
		return resources, fmt.Errorf("bridge create resources: %s", message)
	}
	return resources, nil
}

func (c *Client) TeardownResources(ctx context.Context, resources domain.Resources) error {
	_, err := c.do(ctx, http.MethodPost, "/v1/sessions/teardown", toResourcesPayload(resources))
	return err
}

func (c *Client) UpdateDisplay(ctx context.Context, snapshot domain.SessionSnapshot) error {
	_, err := c.do(ctx, http.MethodPost, "/v1/sessions/display", toSnapshotPayload(snapshot))
	return err
}

func (c *Client) SendAnnouncement(ctx context.Context, roomID string, snapshot domain.SessionSnapshot) error {
	payload := struct {
		RoomID   string          `json:"room_id"`
		Snapshot snapshotPayload `json:"snapshot"`
	}{RoomID: roomID, Snapshot: toSnapshotPayload(snapshot)}

	_, err := c.do(ctx, http.MethodPost, "/v1/announcements", payload)
	return err
}

func (c *Client) RemoveMember(ctx context.Context, resources domain.Resources, member domain.MemberID, mode domain.RemovalMode) error {
	payload := struct {
		Resources resourcesPayload `json:"resources"`
		Member    string           `json:"member"`
		Mode      string           `json:"mode"`
	}{Resources: toResourcesPayload(resources), Member: string(member), Mode: string(mode)}

	_, err := c.do(ctx, http.MethodPost, "/v1/members/remove", payload)
	return err
}

func (c *Client) Occupants(ctx context.Context, voiceRoomID string) ([]domain.MemberID, error) {
	body, err := c.do(ctx, http.MethodGet, "/v1/rooms/"+url.PathEscape(voiceRoomID)+"/occupants", nil)
	if err != nil {
		return nil, err
	}

	result := gjson.GetBytes(body, "occupants")
	if !result.Exists() {
		return nil, errors.New("bridge occupants response has no occupants field")
	}

	occupants := []domain.MemberID{}
	result.ForEach(func(_, value gjson.Result) bool {
		if id := value.String(); id != "" {
			occupants = append(occupants, domain.MemberID(id))
		}
		return true
	})
	return occupants, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", path, err)
		}
		reader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	request.Header.Set("User-Agent", userAgent)
	request.Header.Set("Accept", "application/json")
	if payload != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("perform %s %s: %w", method, path, err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		message := gjson.GetBytes(body, "error").String()
		if message == "" {
			message = strings.TrimSpace(string(body))
		}
		return nil, fmt.Errorf("%w: %s %s: status %d: %s", ErrBridgeStatus, method, path, response.StatusCode, message)
	}

	return body, nil
}

func toSessionPayload(session domain.Session) sessionPayload {
	return sessionPayload{
		ID:           string(session.ID),
		Organizer:    string(session.Organizer),
		Game:         session.Game,
		Platform:     session.Platform,
		Activity:     session.Activity,
		Gametag:      session.Gametag,
		Description:  session.Description,
		StreamURL:    session.StreamURL,
		Capacity:     session.Capacity,
		CommunityID:  string(session.CommunityID),
		InvokeRoomID: session.InvokeRoomID,
	}
}

func toResourcesPayload(resources domain.Resources) resourcesPayload {
	return resourcesPayload{
		CategoryID:        resources.CategoryID,
		VoiceRoomID:       resources.VoiceRoomID,
		TextRoomID:        resources.TextRoomID,
		InfoRoomID:        resources.InfoRoomID,
		InfoMessageID:     resources.InfoMessageID,
		AnnounceMessageID: resources.AnnounceMessageID,
	}
}

func toSnapshotPayload(snapshot domain.SessionSnapshot) snapshotPayload {
	members := make([]string, 0, len(snapshot.Members))
	for _, member := range snapshot.Members {
		members = append(members, string(member))
	}

	return snapshotPayload{
		Session:   toSessionPayload(snapshot.Session),
		Resources: toResourcesPayload(snapshot.Session.Resources),
		Members:   members,
		OpenSlots: snapshot.OpenSlots(),
	}
}
