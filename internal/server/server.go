// Package server exposes the read-only HTTP surface: health, metrics,
// and the JSON dashboard API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nickfine05/TikTok-Post-Tracker/internal/query"
)

type Server struct {
	echo      *echo.Echo
	port      string
	queries   *query.Queries
	startTime time.Time
}

func NewServer(port string, queries *query.Queries) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())

	srv := &Server{
		echo:      e,
		port:      port,
		queries:   queries,
		startTime: time.Now(),
	}
	srv.registerRoutes()
	return srv
}

func (s *Server) registerRoutes() {
	s.echo.GET("/healthz", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	s.echo.GET("/api/workspaces/:workspace/dashboard", s.handleDashboard)
	s.echo.GET("/api/workspaces/:workspace/weekly", s.handleWeekly)
	s.echo.GET("/api/workspaces/:workspace/channels", s.handleChannels)
	s.echo.GET("/api/workspaces/:workspace/creators/:creator", s.handleCreatorStats)
}

func (s *Server) Start() error {
	slog.Info("Starting HTTP server", "port", s.port)
	return s.echo.Start(fmt.Sprintf(":%s", s.port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
