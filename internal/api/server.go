// Package api exposes the deploy-internal operations surface: queue health,
// pipeline stats, and manual requeue. It is not the product dashboard.
package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/minho/rnd-harvester/internal/db"
)

type Server struct {
	Store *db.Store
	Echo  *echo.Echo
}

func NewServer(pool *pgxpool.Pool) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	s := &Server{
		Store: db.NewStore(pool),
		Echo:  e,
	}

	e.GET("/health", s.handleHealth)
	e.GET("/api/stats", s.handleStats)
	e.POST("/api/jobs/:id/requeue", s.handleRequeue)
	e.POST("/api/jobs/requeue-failed", s.handleRequeueFailed)
	e.GET("/api/programs/:id", s.handleGetProgram)

	return s
}

func (s *Server) Start(port string) error {
	return s.Echo.Start(":" + port)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(c echo.Context) error {
	stats, err := s.Store.GetStats(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) handleRequeue(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid job id")
	}

	if err := s.Store.RequeueJob(c.Request().Context(), id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "job not found or not terminal")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "requeued", "id": id.String()})
}

func (s *Server) handleRequeueFailed(c echo.Context) error {
	count, err := s.Store.RequeueFailed(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]int64{"requeued": count})
}

func (s *Server) handleGetProgram(c echo.Context) error {
	program, err := s.Store.GetProgram(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "program not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, program)
}
