package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bnema/lfg-coordinator/internal/application"
	"github.com/bnema/lfg-coordinator/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDKey = "request_id"

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		attrs := []any{
			"request_id", c.GetString(requestIDKey),
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "error", c.Errors.String())
		}
		logger.Log(c.Request.Context(), level, "http request", attrs...)
	}
}

func actorFrom(c *gin.Context) application.Actor {
	manage, _ := strconv.ParseBool(strings.TrimSpace(c.GetHeader(HeaderActorManage)))
	return application.Actor{
		ID:          domain.MemberID(strings.TrimSpace(c.GetHeader(HeaderActorID))),
		Name:        strings.TrimSpace(c.GetHeader(HeaderActorName)),
		CommunityID: domain.CommunityID(strings.TrimSpace(c.GetHeader(HeaderCommunityID))),
		CanManage:   manage,
	}
}

var errCommunityMismatch = errors.New("community path does not match actor community")

// requireOwnCommunity stops actors from editing another community's settings.
func (s *Server) requireOwnCommunity(c *gin.Context) {
	actor := actorFrom(c)
	if actor.CommunityID != "" && string(actor.CommunityID) != c.Param("id") {
		abortWithError(c, domain.Reject(domain.KindForbidden, domain.ErrManageRequired, errCommunityMismatch.Error()))
		return
	}
	c.Next()
}

func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	body := gin.H{
		"success": false,
		"kind":    string(kind),
		"message": err.Error(),
	}

	var rejected *domain.Error
	if errors.As(err, &rejected) && len(rejected.Allowed) > 0 {
		body["allowed"] = rejected.Allowed
	}
	if kind == domain.KindInternal {
		body["message"] = "internal error"
		_ = c.Error(err)
	}

	c.AbortWithStatusJSON(statusFor(kind), body)
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}
