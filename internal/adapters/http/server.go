// Package httpapi exposes the coordinator over a JSON HTTP API so a chat
// platform bridge can forward member commands and voice occupancy events.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/bnema/lfg-coordinator/internal/application"
	"github.com/gin-gonic/gin"
)

const (
	HeaderActorID     = "X-Actor-ID"
	HeaderActorName   = "X-Actor-Name"
	HeaderCommunityID = "X-Community-ID"
	HeaderActorManage = "X-Actor-Manage"
	HeaderRequestID   = "X-Request-ID"

	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

type Server struct {
	svc    *application.Service
	logger *slog.Logger
	engine *gin.Engine
}

func NewServer(svc *application.Service, logger *slog.Logger) *Server {
	s := &Server{svc: svc, logger: logger, engine: gin.New()}
	s.engine.Use(requestID(), requestLogger(logger), gin.Recovery())
	s.routes()
	return s
}

// Handler returns the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	v1 := s.engine.Group("/v1")

	sessions := v1.Group("/sessions")
	sessions.POST("", s.createSession)
	sessions.GET("", s.listSessions)
	sessions.GET("/:id", s.getSession)
	sessions.PATCH("/:id", s.modifySession)
	sessions.DELETE("/:id", s.deleteSession)
	sessions.POST("/:id/join", s.joinSession)
	sessions.POST("/:id/leave", s.leaveSession)
	sessions.POST("/:id/remove", s.removeMember)

	v1.GET("/stats", s.stats)

	communities := v1.Group("/communities/:id", s.requireOwnCommunity)
	communities.GET("", s.communitySettings)
	communities.PUT("/target", s.setTarget)
	communities.DELETE("/target", s.clearTarget)
	communities.PUT("/filter", s.setFilter)
	communities.DELETE("/filter", s.clearFilter)

	v1.POST("/occupancy", s.occupancy)

	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// ListenAndServe serves on addr until ctx is cancelled, then drains in-flight
// requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("http server stopped")
	return nil
}
