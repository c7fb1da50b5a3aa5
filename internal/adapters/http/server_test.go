package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/bnema/lfg-coordinator/internal/adapters/resources/memory"
	"github.com/bnema/lfg-coordinator/internal/application"
	"github.com/bnema/lfg-coordinator/internal/domain"
	"github.com/bnema/lfg-coordinator/internal/ports/clocktest"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type stateStore struct {
	mu    sync.Mutex
	state domain.State
}

func (s *stateStore) Load(context.Context) (domain.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, nil
}

func (s *stateStore) Save(_ context.Context, state domain.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	return nil
}

type apiFixture struct {
	handler http.Handler
	gateway *memory.Gateway
	clock   *clocktest.FakeClock
}

func newAPIFixture(t *testing.T) apiFixture {
	t.Helper()

	gateway := memory.NewGateway()
	clock := clocktest.New(time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := application.NewService(application.Config{RateQuota: 100, IdleGrace: 5 * time.Minute},
		&stateStore{state: domain.NewState()}, gateway, gateway, clock, logger)
	require.NoError(t, svc.Start(context.Background()))

	return apiFixture{handler: NewServer(svc, logger).Handler(), gateway: gateway, clock: clock}
}

type caller struct {
	id        string
	community string
	manage    bool
}

func (f apiFixture) do(t *testing.T, who caller, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if who.id != "" {
		req.Header.Set(HeaderActorID, who.id)
		req.Header.Set(HeaderActorName, who.id)
	}
	if who.community != "" {
		req.Header.Set(HeaderCommunityID, who.community)
	}
	if who.manage {
		req.Header.Set(HeaderActorManage, "true")
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Kind    string          `json:"kind"`
	Message string          `json:"message"`
	Allowed []string        `json:"allowed"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()

	var body envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func (f apiFixture) create(t *testing.T, who caller, game string, capacity int) createSessionResponse {
	t.Helper()

	rec := f.do(t, who, http.MethodPost, "/v1/sessions", createSessionRequest{Game: game, Capacity: capacity})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created createSessionResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &created))
	return created
}

var (
	organizer = caller{id: "org", community: "guild-a"}
	alice     = caller{id: "alice", community: "guild-a"}
	modB      = caller{id: "mod-b", community: "guild-b", manage: true}
)

func TestCreateJoinLeaveFlow(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	created := f.create(t, organizer, "Valorant", 2)
	assert.Len(t, created.Session.ID, 4)
	assert.Equal(t, []string{"org"}, created.Session.Members)
	assert.Equal(t, 1, created.Session.OpenSlots)
	assert.Empty(t, created.Warning)

	path := "/v1/sessions/" + created.Session.ID
	rec := f.do(t, alice, http.MethodPost, path+"/join", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var joined sessionResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &joined))
	assert.Equal(t, []string{"org", "alice"}, joined.Members)
	assert.Zero(t, joined.OpenSlots)

	rec = f.do(t, caller{id: "bob", community: "guild-a"}, http.MethodPost, path+"/join", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(domain.KindConflict), decode(t, rec).Kind)

	rec = f.do(t, alice, http.MethodPost, path+"/leave", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, organizer, http.MethodPost, path+"/leave", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateRejections(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)

	rec := f.do(t, organizer, http.MethodPost, "/v1/sessions", createSessionRequest{Game: "Valorant", Capacity: 11})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec).Message, domain.ErrInvalidCapacity.Error())

	rec = f.do(t, caller{}, http.MethodPost, "/v1/sessions", createSessionRequest{Game: "Valorant", Capacity: 4})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", bytes.NewBufferString("{"))
	req.Header.Set(HeaderActorID, "org")
	req.Header.Set(HeaderCommunityID, "guild-a")
	raw := httptest.NewRecorder()
	f.handler.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)
}

func TestGameFilterRejectionListsAllowedGames(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	mod := caller{id: "mod", community: "guild-a", manage: true}

	rec := f.do(t, mod, http.MethodPut, "/v1/communities/guild-a/filter", filterRequest{Games: []string{"Valorant", "Apex"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, organizer, http.MethodPost, "/v1/sessions", createSessionRequest{Game: "Chess", Capacity: 2})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{"Apex", "Valorant"}, decode(t, rec).Allowed)

	rec = f.do(t, mod, http.MethodDelete, "/v1/communities/guild-a/filter", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	f.create(t, organizer, "Chess", 2)
}

func TestCommunityRoutesRequireManageAndMatchingCommunity(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)

	rec := f.do(t, alice, http.MethodPut, "/v1/communities/guild-a/target", targetRequest{RoomID: "feed-a"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, modB, http.MethodPut, "/v1/communities/guild-a/target", targetRequest{RoomID: "feed-a"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, modB, http.MethodPut, "/v1/communities/guild-b/target", targetRequest{RoomID: "feed-b"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, modB, http.MethodGet, "/v1/communities/guild-b", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var settings communityResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &settings))
	assert.Equal(t, "feed-b", settings.TargetRoom)
}

func TestCreateReportsFanoutAndPartialResources(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	rec := f.do(t, modB, http.MethodPut, "/v1/communities/guild-b/target", targetRequest{RoomID: "feed-b"})
	require.Equal(t, http.StatusOK, rec.Code)

	created := f.create(t, organizer, "Valorant", 4)
	assert.Equal(t, []string{"guild-b"}, created.Fanout.Delivered)
	assert.Len(t, f.gateway.Announcements(), 1)

	f.gateway.FailCreation(assert.AnError, true)
	partial := f.create(t, alice, "Valorant", 4)
	assert.NotEmpty(t, partial.Warning)
	assert.NotEmpty(t, partial.Session.Resources.VoiceRoomID)
	assert.Empty(t, partial.Session.Resources.TextRoomID)
}

func TestModifyAndDelete(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	created := f.create(t, organizer, "Valorant", 4)
	path := "/v1/sessions/" + created.Session.ID

	capacity := 6
	rec := f.do(t, organizer, http.MethodPatch, path, modifySessionRequest{Capacity: &capacity})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	mod := caller{id: "mod", community: "guild-a", manage: true}
	rec = f.do(t, mod, http.MethodPatch, path, modifySessionRequest{Capacity: &capacity})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var modified sessionResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &modified))
	assert.Equal(t, 6, modified.Capacity)

	rec = f.do(t, alice, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, organizer, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, organizer, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRemoveMember(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	created := f.create(t, organizer, "Valorant", 4)
	path := "/v1/sessions/" + created.Session.ID
	require.Equal(t, http.StatusOK, f.do(t, alice, http.MethodPost, path+"/join", nil).Code)

	rec := f.do(t, organizer, http.MethodPost, path+"/remove", removeMemberRequest{Member: "alice", Mode: "kick"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, decode(t, rec).Message, domain.ErrNotPresent.Error())

	f.gateway.SetOccupants(created.Session.Resources.VoiceRoomID, "org", "alice")
	rec = f.do(t, organizer, http.MethodPost, path+"/remove", removeMemberRequest{Member: "alice", Mode: "ban"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated sessionResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &updated))
	assert.Equal(t, []string{"org"}, updated.Members)

	rec = f.do(t, organizer, http.MethodPost, path+"/remove", removeMemberRequest{Member: "alice", Mode: "shove"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOccupancyEventsDriveIdleDeletion(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	created := f.create(t, organizer, "Valorant", 4)
	path := "/v1/sessions/" + created.Session.ID
	f.gateway.SetOccupants(created.Session.Resources.VoiceRoomID, "org")

	rec := f.do(t, caller{}, http.MethodPost, "/v1/occupancy", occupancyRequest{SessionID: created.Session.ID, Empty: false})
	require.Equal(t, http.StatusAccepted, rec.Code)

	f.gateway.SetOccupants(created.Session.Resources.VoiceRoomID)
	rec = f.do(t, caller{}, http.MethodPost, "/v1/occupancy", occupancyRequest{SessionID: created.Session.ID, Empty: true})
	require.Equal(t, http.StatusAccepted, rec.Code)

	f.clock.Advance(5 * time.Minute)
	require.Eventually(t, func() bool {
		return f.do(t, organizer, http.MethodGet, path, nil).Code == http.StatusNotFound
	}, time.Second, 10*time.Millisecond)

	rec = f.do(t, caller{}, http.MethodPost, "/v1/occupancy", occupancyRequest{SessionID: created.Session.ID, Empty: true})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, caller{}, http.MethodPost, "/v1/occupancy", occupancyRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatsAndList(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	f.create(t, organizer, "Valorant", 4)
	f.create(t, caller{id: "other", community: "guild-b"}, "Apex", 3)

	rec := f.do(t, alice, http.MethodGet, "/v1/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats statsResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &stats))
	assert.Equal(t, int64(2), stats.TotalSessions)
	assert.Equal(t, int64(7), stats.TotalPlayers)
	assert.Equal(t, 2, stats.ActiveSessions)
	assert.Equal(t, 2, stats.JoinedPlayers)

	rec = f.do(t, alice, http.MethodGet, "/v1/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []sessionResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "Valorant", listed[0].Game)
}

func TestRequestIDIsEchoed(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	rec := f.do(t, caller{}, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(HeaderRequestID, "fixed-id")
	echoed := httptest.NewRecorder()
	f.handler.ServeHTTP(echoed, req)
	assert.Equal(t, "fixed-id", echoed.Header().Get(HeaderRequestID))
}

func TestStatusForKinds(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusBadRequest, statusFor(domain.KindValidation))
	assert.Equal(t, http.StatusNotFound, statusFor(domain.KindNotFound))
	assert.Equal(t, http.StatusConflict, statusFor(domain.KindConflict))
	assert.Equal(t, http.StatusForbidden, statusFor(domain.KindForbidden))
	assert.Equal(t, http.StatusTooManyRequests, statusFor(domain.KindRateLimited))
	assert.Equal(t, http.StatusInternalServerError, statusFor(domain.KindInternal))
}
