// Package webhook exposes the inbound HTTP surface: the per-account message
// webhook and the health endpoint.
package webhook

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openchat-labs/autoreply/pkg/autoreply/engine"
	"github.com/openchat-labs/autoreply/pkg/autoreply/llm"
)

// Handler is the message entrypoint the server dispatches into.
// Implemented by engine.Engine.
type Handler interface {
	HandleUserMessage(ctx context.Context, accountID, channelUserID, text, replyHandle string, eventTime time.Time) engine.Result
}

// CredentialChecker verifies the provider credential for the health
// endpoint. Implemented by llm.Client.
type CredentialChecker interface {
	VerifyCredential(ctx context.Context) error
}

// inboundMessage is the webhook request body.
type inboundMessage struct {
	ChannelUserID string `json:"channel_user_id" binding:"required"`
	Text          string `json:"text" binding:"required"`

	// ReplyHandle is the transport address replies go to. Defaults to the
	// channel user id.
	ReplyHandle string `json:"reply_handle"`

	// Timestamp is the RFC3339 event time. Defaults to the server clock.
	Timestamp string `json:"timestamp"`
}

// Server serves the webhook and health endpoints.
type Server struct {
	addr    string
	handler Handler
	checker CredentialChecker
	logger  *slog.Logger

	router *gin.Engine
	http   *http.Server
}

// NewServer builds the HTTP server. checker may be nil; the health endpoint
// then reports only liveness.
func NewServer(addr string, handler Handler, checker CredentialChecker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		addr:    addr,
		handler: handler,
		checker: checker,
		logger:  logger.With("component", "webhook"),
		router:  router,
	}

	router.POST("/webhook/:account", s.handleInbound)
	router.GET("/healthz", s.handleHealth)

	return s
}

// Router exposes the gin engine for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.http = &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("webhook listening", "addr", s.addr)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleInbound(c *gin.Context) {
	accountID := c.Param("account")

	var msg inboundMessage
	if err := c.ShouldBindJSON(&msg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload: " + err.Error()})
		return
	}

	replyHandle := msg.ReplyHandle
	if replyHandle == "" {
		replyHandle = msg.ChannelUserID
	}

	eventTime := time.Now()
	if msg.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, msg.Timestamp)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid timestamp: " + err.Error()})
			return
		}
		eventTime = parsed
	}

	result := s.handler.HandleUserMessage(c.Request.Context(), accountID, msg.ChannelUserID, msg.Text, replyHandle, eventTime)

	body := gin.H{
		"triggered": result.Triggered,
	}
	if result.RuleID != "" {
		body["rule_id"] = result.RuleID
	}
	if result.Response != "" {
		body["response"] = result.Response
	}

	// An internal failure that still produced a user-visible apology is a
	// handled message, not a gateway error.
	if result.Err != nil && result.Response == "" {
		body["error"] = "message handling failed"
		c.JSON(http.StatusInternalServerError, body)
		return
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.checker == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if err := s.checker.VerifyCredential(ctx); err != nil {
		status := http.StatusServiceUnavailable
		reason := "provider unavailable"
		if errors.Is(err, llm.ErrNoCredential) {
			reason = "credential missing or rejected"
		}
		s.logger.Warn("health check failed", "error", err)
		c.JSON(status, gin.H{"status": "degraded", "reason": reason})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
