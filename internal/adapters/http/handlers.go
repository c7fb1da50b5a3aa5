package httpapi

import (
	"net/http"

	"github.com/bnema/lfg-coordinator/internal/application"
	"github.com/bnema/lfg-coordinator/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

func bindJSON(c *gin.Context, target any) bool {
	if err := c.ShouldBindJSON(target); err != nil {
		abortWithError(c, domain.Reject(domain.KindValidation, domain.ErrInvalidField, "malformed request body: "+err.Error()))
		return false
	}
	return true
}

func sessionID(c *gin.Context) domain.SessionID {
	return domain.SessionID(c.Param("id"))
}

func (s *Server) createSession(c *gin.Context) {
	var req createSessionRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := s.svc.CreateSession(c.Request.Context(), application.CreateSessionCommand{
		Actor:        actorFrom(c),
		Game:         req.Game,
		Platform:     req.Platform,
		Activity:     req.Activity,
		Gametag:      req.Gametag,
		Description:  req.Description,
		StreamURL:    req.StreamURL,
		Capacity:     req.Capacity,
		InvokeRoomID: req.InvokeRoomID,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	response := createSessionResponse{
		Session: toSessionResponse(result.Session),
		Fanout:  toFanoutResponse(result.Fanout),
	}
	if result.ResourceErr != nil {
		response.Warning = result.ResourceErr.Error()
	}
	respond(c, http.StatusCreated, response)
}

func (s *Server) listSessions(c *gin.Context) {
	snapshots, err := s.svc.ListSessions(c.Request.Context(), actorFrom(c))
	if err != nil {
		abortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, lo.Map(snapshots, func(snapshot domain.SessionSnapshot, _ int) sessionResponse {
		return toSessionResponse(snapshot)
	}))
}

func (s *Server) getSession(c *gin.Context) {
	snapshot, err := s.svc.GetSession(c.Request.Context(), actorFrom(c), sessionID(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, toSessionResponse(snapshot))
}

func (s *Server) modifySession(c *gin.Context) {
	var req modifySessionRequest
	if !bindJSON(c, &req) {
		return
	}

	snapshot, err := s.svc.ModifySession(c.Request.Context(), application.ModifySessionCommand{
		Actor:       actorFrom(c),
		SessionID:   sessionID(c),
		Capacity:    req.Capacity,
		Description: req.Description,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, toSessionResponse(snapshot))
}

func (s *Server) deleteSession(c *gin.Context) {
	err := s.svc.DeleteSession(c.Request.Context(), application.DeleteSessionCommand{
		Actor:     actorFrom(c),
		SessionID: sessionID(c),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) joinSession(c *gin.Context) {
	snapshot, err := s.svc.JoinSession(c.Request.Context(), application.JoinSessionCommand{
		Actor:     actorFrom(c),
		SessionID: sessionID(c),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, toSessionResponse(snapshot))
}

func (s *Server) leaveSession(c *gin.Context) {
	snapshot, err := s.svc.LeaveSession(c.Request.Context(), application.LeaveSessionCommand{
		Actor:     actorFrom(c),
		SessionID: sessionID(c),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, toSessionResponse(snapshot))
}

func (s *Server) removeMember(c *gin.Context) {
	var req removeMemberRequest
	if !bindJSON(c, &req) {
		return
	}

	snapshot, err := s.svc.RemoveMember(c.Request.Context(), application.RemoveMemberCommand{
		Actor:     actorFrom(c),
		SessionID: sessionID(c),
		Target:    domain.MemberID(req.Member),
		Mode:      domain.RemovalMode(req.Mode),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, toSessionResponse(snapshot))
}

func (s *Server) stats(c *gin.Context) {
	stats, err := s.svc.Stats(c.Request.Context(), actorFrom(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, toStatsResponse(stats))
}

func (s *Server) communitySettings(c *gin.Context) {
	settings, err := s.svc.CommunitySettings(c.Request.Context(), actorFrom(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, toCommunityResponse(settings))
}

func (s *Server) setTarget(c *gin.Context) {
	var req targetRequest
	if !bindJSON(c, &req) {
		return
	}

	actor := actorFrom(c)
	if err := s.svc.SetAnnouncementTarget(c.Request.Context(), application.SetAnnouncementTargetCommand{Actor: actor, RoomID: req.RoomID}); err != nil {
		abortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, communityResponse{CommunityID: string(actor.CommunityID), TargetRoom: req.RoomID})
}

func (s *Server) clearTarget(c *gin.Context) {
	if err := s.svc.ClearAnnouncementTarget(c.Request.Context(), actorFrom(c)); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) setFilter(c *gin.Context) {
	var req filterRequest
	if !bindJSON(c, &req) {
		return
	}

	actor := actorFrom(c)
	filter, err := s.svc.SetGameFilter(c.Request.Context(), application.SetGameFilterCommand{Actor: actor, Games: req.Games})
	if err != nil {
		abortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, communityResponse{CommunityID: string(actor.CommunityID), Games: filter.Sorted()})
}

func (s *Server) clearFilter(c *gin.Context) {
	if err := s.svc.ClearGameFilter(c.Request.Context(), actorFrom(c)); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) occupancy(c *gin.Context) {
	var req occupancyRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.SessionID == "" {
		abortWithError(c, domain.Reject(domain.KindValidation, domain.ErrInvalidField, "session_id is required"))
		return
	}

	err := s.svc.HandleOccupancy(c.Request.Context(), application.OccupancyEvent{
		SessionID: domain.SessionID(req.SessionID),
		Empty:     req.Empty,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}
