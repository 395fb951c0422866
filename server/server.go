// Package server provides the HTTP transport layer over the chat core.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/booksage/booksage/ai/metrics"
	"github.com/booksage/booksage/ai/orchestrator"
	"github.com/booksage/booksage/ai/speech"
	"github.com/booksage/booksage/internal/profile"
)

// Server hosts the chat API, transcription endpoint, metrics and static files.
type Server struct {
	e            *echo.Echo
	profile      *profile.Profile
	orchestrator *orchestrator.Orchestrator
	transcriber  speech.Transcriber
	synthesizer  speech.Synthesizer
}

// NewServer assembles the echo instance and routes.
func NewServer(
	p *profile.Profile,
	orch *orchestrator.Orchestrator,
	transcriber speech.Transcriber,
	synthesizer speech.Synthesizer,
	exporter *metrics.Exporter,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{p.FrontendOrigin},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowCredentials: true,
	}))

	s := &Server{
		e:            e,
		profile:      p,
		orchestrator: orch,
		transcriber:  transcriber,
		synthesizer:  synthesizer,
	}

	e.GET("/healthz", s.health)
	e.POST("/api/chat", s.chat)
	e.POST("/api/transcribe", s.transcribe)
	e.Static("/static", p.StaticDir)
	if exporter != nil {
		e.GET("/metrics", echo.WrapHandler(exporter.Handler()))
	}

	return s
}

// Start runs the HTTP server until the listener fails or is shut down.
func (s *Server) Start(_ context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.profile.Addr, s.profile.Port)
	slog.Info("server: listening", "addr", addr)
	return s.e.Start(addr)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.e.Shutdown(ctx); err != nil {
		slog.Error("server: shutdown failed", "error", err)
	}
	slog.Info("server: stopped")
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}
