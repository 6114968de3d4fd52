package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nickfine05/TikTok-Post-Tracker/internal/domain"
)

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startTime).Seconds(),
	})
}

func (s *Server) handleDashboard(c echo.Context) error {
	workspaceID := c.Param("workspace")

	rows, err := s.queries.Dashboard(c.Request().Context(), workspaceID)
	if err != nil {
		slog.Error("Failed to build dashboard", "guild_id", workspaceID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load dashboard")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"guild_id": workspaceID,
		"creators": rows,
	})
}

func (s *Server) handleWeekly(c echo.Context) error {
	workspaceID := c.Param("workspace")

	report, err := s.queries.WeeklyReport(c.Request().Context(), workspaceID)
	if err != nil {
		slog.Error("Failed to build weekly report", "guild_id", workspaceID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load weekly report")
	}

	return c.JSON(http.StatusOK, report)
}

func (s *Server) handleChannels(c echo.Context) error {
	workspaceID := c.Param("workspace")

	channels, err := s.queries.ListChannels(c.Request().Context(), workspaceID)
	if err != nil {
		slog.Error("Failed to list channels", "guild_id", workspaceID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list channels")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"guild_id": workspaceID,
		"channels": channels,
	})
}

func (s *Server) handleCreatorStats(c echo.Context) error {
	workspaceID := c.Param("workspace")
	creatorID := c.Param("creator")

	stats, err := s.queries.CreatorStats(c.Request().Context(), workspaceID, creatorID)
	if err != nil {
		if errors.Is(err, domain.ErrCreatorNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "creator not tracked in this workspace")
		}
		slog.Error("Failed to load creator stats", "guild_id", workspaceID, "creator_id", creatorID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load creator stats")
	}

	return c.JSON(http.StatusOK, stats)
}
