// Package web serves the prompt window as a page on a loopback address.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"monitoroff/internal/flow"
	"monitoroff/internal/settings"

	"github.com/gin-gonic/gin"
)

// DefaultAddr keeps the UI reachable from this machine only
const DefaultAddr = "127.0.0.1:8765"

const shutdownTimeout = 5 * time.Second

// Session is the part of the flow controller the web UI drives
type Session interface {
	View() flow.View
	Dispatch(ctx context.Context, cmd flow.Command) (flow.View, error)
	Done() <-chan struct{}
}

// CommandRequest is the body of POST /api/commands
type CommandRequest struct {
	Command string `json:"command" binding:"required"`
	Value   string `json:"value"`
}

// Server hosts the prompt page and its JSON API
type Server struct {
	session Session
	addr    string
	logger  *slog.Logger
	router  *gin.Engine
}

// NewServer creates the web front-end for session
func NewServer(session Session, addr string, logger *slog.Logger) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	s := &Server{
		session: session,
		addr:    addr,
		logger:  logger.With("component", "web"),
	}
	s.router = s.newRouter()
	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) newRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.SetHTMLTemplate(pageTemplate)
	router.Use(RequestID())
	router.Use(Recovery(s.logger))
	router.Use(Logging(s.logger))
	router.Use(ContentType())

	router.GET("/", s.getPage)
	router.GET("/health", s.getHealth)

	api := router.Group("/api")
	{
		api.GET("/view", s.getView)
		api.POST("/commands", s.postCommand)
	}
	return router
}

// Serve listens on the configured address until ctx is cancelled or the session is done.
// Once the session is done the server lingers for linger so the page can show the final state.
func (s *Server) Serve(ctx context.Context, linger time.Duration) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	return s.serve(ctx, ln, linger)
}

func (s *Server) serve(ctx context.Context, ln net.Listener, linger time.Duration) error {
	server := &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("web UI listening", "url", "http://"+ln.Addr().String())
		serverErrors <- server.Serve(ln)
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	case <-s.session.Done():
		select {
		case <-time.After(linger):
		case <-ctx.Done():
		}
	}

	s.logger.Info("shutting down web UI")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}

// GET /health
func (s *Server) getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "UP",
		"service": "monitoroff",
	})
}

// GET /api/view
func (s *Server) getView(c *gin.Context) {
	c.JSON(http.StatusOK, s.session.View())
}

// POST /api/commands
func (s *Server) postCommand(c *gin.Context) {
	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
			"code":  "INVALID_REQUEST",
		})
		return
	}

	cmd, err := flow.ParseCommand(req.Command, req.Value)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
			"code":  "INVALID_COMMAND",
		})
		return
	}

	view, err := s.session.Dispatch(c.Request.Context(), cmd)
	if err != nil {
		status, code := errorStatus(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("Failed to dispatch command",
				"request_id", c.GetString(RequestIDKey),
				"command", req.Command,
				"error", err,
			)
		}
		c.JSON(status, gin.H{
			"error": err.Error(),
			"code":  code,
			"view":  view,
		})
		return
	}
	c.JSON(http.StatusOK, view)
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, flow.ErrSessionEnded):
		return http.StatusGone, "SESSION_ENDED"
	case errors.Is(err, flow.ErrInvalidTransition):
		return http.StatusConflict, "INVALID_TRANSITION"
	case errors.Is(err, flow.ErrWakeOnKeyboardUnavailable):
		return http.StatusConflict, "WAKE_ON_KEYBOARD_UNAVAILABLE"
	case errors.Is(err, settings.ErrInvalidValue), errors.Is(err, flow.ErrUnknownCommand):
		return http.StatusBadRequest, "INVALID_COMMAND"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}
