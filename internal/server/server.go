// Package server exposes the board over an HTTP/JSON API, one route per task
// store operation plus the integration endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/amirbrooks/weekboard/internal/board"
	"github.com/amirbrooks/weekboard/internal/confluence"
)

// Server wires the task store, the settings record and the integrations into
// an echo instance.
type Server struct {
	echo     *echo.Echo
	store    *board.Store
	settings *board.SettingsStore
	logger   *zap.Logger
	config   *Config

	// calendar events are opaque to the core and held in memory only; they
	// are never written into the document.
	eventsMu sync.RWMutex
	events   []json.RawMessage
}

func NewServer(store *board.Store, settings *board.SettingsStore, logger *zap.Logger, cfg *Config) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if settings == nil {
		return nil, fmt.Errorf("settings store cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{echo: e, store: store, settings: settings, logger: logger, config: cfg}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)

	api := s.echo.Group("/api")
	api.GET("/tasks", s.handleListTasks)
	api.POST("/tasks", s.handleAddTask)
	api.PUT("/tasks/:id", s.handleUpdateTask)
	api.DELETE("/tasks/:id", s.handleDeleteTask)
	api.POST("/tasks/:id/complete", s.handleToggleComplete)
	api.POST("/tasks/reorder", s.handleReorder)
	api.POST("/tasks/:id/assign", s.handleAssign)
	api.DELETE("/tasks/:id/assign", s.handleUnassign)
	api.POST("/tasks/:id/color", s.handleSetColor)
	api.POST("/tasks/:id/toggle-project", s.handleToggleProject)

	api.GET("/sections", s.handleSections)
	api.GET("/current-quarter", s.handleCurrentQuarter)
	api.GET("/week-dates", s.handleWeekDates)

	api.POST("/new-week", s.handleNewWeek)
	api.POST("/undo-new-week", s.handleUndoNewWeek)
	api.GET("/can-undo", s.handleCanUndo)

	api.GET("/settings", s.handleGetSettings)
	api.POST("/settings", s.handleUpdateSettings)
	api.GET("/notes", s.handleGetNotes)
	api.POST("/notes", s.handleSaveNotes)

	api.GET("/export/text", s.handleExportText)
	api.POST("/sync-confluence", s.handleSyncConfluence)

	api.GET("/calendar/events", s.handleGetEvents)
	api.POST("/calendar/events", s.handleSetEvents)
}

// httpError maps the store's error taxonomy onto status codes.
func httpError(err error) error {
	switch {
	case errors.Is(err, board.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, board.ErrInvalidSection),
		errors.Is(err, board.ErrLockedSection),
		errors.Is(err, board.ErrInvalidProject),
		errors.Is(err, board.ErrNothingToUndo),
		errors.Is(err, board.ErrInvalid):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

type successResponse struct {
	Success bool `json:"success"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListTasks(c echo.Context) error {
	sections := s.store.Sections()
	out := make(map[string][]board.Task, len(sections))
	for _, sec := range sections {
		tasks := sec.Tasks
		if tasks == nil {
			tasks = []board.Task{}
		}
		out[sec.Name] = tasks
	}
	return c.JSON(http.StatusOK, out)
}

type addTaskRequest struct {
	Section string `json:"section"`
	Text    string `json:"text"`
}

func (s *Server) handleAddTask(c echo.Context) error {
	var req addTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	task, err := s.store.Add(req.Section, req.Text)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, task)
}

type updateTaskRequest struct {
	Text    *string `json:"text"`
	Section *string `json:"section"`
}

func (s *Server) handleUpdateTask(c echo.Context) error {
	var req updateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	task, err := s.store.Edit(c.Param("id"), board.EditRequest{Text: req.Text, Section: req.Section})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, task)
}

func (s *Server) handleDeleteTask(c echo.Context) error {
	if err := s.store.Delete(c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleToggleComplete(c echo.Context) error {
	task, err := s.store.ToggleComplete(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, task)
}

type reorderRequest struct {
	TaskID  string `json:"taskId"`
	Section string `json:"section"`
	Index   int    `json:"index"`
}

func (s *Server) handleReorder(c echo.Context) error {
	var req reorderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.TaskID == "" || req.Section == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "taskId and section required")
	}
	if err := s.store.Reorder(req.TaskID, req.Section, req.Index); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, successResponse{Success: true})
}

type assignRequest struct {
	ProjectID string `json:"projectId"`
}

func (s *Server) handleAssign(c echo.Context) error {
	var req assignRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := s.store.Assign(c.Param("id"), req.ProjectID); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleUnassign(c echo.Context) error {
	if err := s.store.Unassign(c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, successResponse{Success: true})
}

type colorRequest struct {
	ColorIndex int `json:"colorIndex"`
}

func (s *Server) handleSetColor(c echo.Context) error {
	var req colorRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := s.store.SetColor(c.Param("id"), req.ColorIndex); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleToggleProject(c echo.Context) error {
	if err := s.store.ToggleProjectCompletion(c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleSections(c echo.Context) error {
	return c.JSON(http.StatusOK, s.store.Metas())
}

func (s *Server) handleCurrentQuarter(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"quarter": s.store.CurrentQuarter()})
}

func (s *Server) handleWeekDates(c echo.Context) error {
	return c.JSON(http.StatusOK, s.store.WeekBanners())
}

func (s *Server) handleNewWeek(c echo.Context) error {
	if err := s.store.Advance(); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true, "canUndo": s.store.CanUndo()})
}

func (s *Server) handleUndoNewWeek(c echo.Context) error {
	if err := s.store.Undo(); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleCanUndo(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]bool{"canUndo": s.store.CanUndo()})
}

type settingsResponse struct {
	board.Settings
	TokenSet bool `json:"confluence_token_set"`
}

func (s *Server) handleGetSettings(c echo.Context) error {
	settings, err := s.settings.Load()
	if err != nil {
		return httpError(err)
	}
	redacted, set := settings.Redacted()
	return c.JSON(http.StatusOK, settingsResponse{Settings: redacted, TokenSet: set})
}

type settingsRequest struct {
	ConfluenceURL   *string `json:"confluence_url"`
	ConfluenceEmail *string `json:"confluence_email"`
	ConfluenceToken *string `json:"confluence_token"`
	Theme           *int    `json:"theme"`
}

func (s *Server) handleUpdateSettings(c echo.Context) error {
	var req settingsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	settings, err := s.settings.Load()
	if err != nil {
		return httpError(err)
	}
	if req.ConfluenceURL != nil {
		settings.ConfluenceURL = *req.ConfluenceURL
	}
	if req.ConfluenceEmail != nil {
		settings.ConfluenceEmail = *req.ConfluenceEmail
	}
	// An empty token in the request keeps the stored one; the settings form
	// round-trips a blank field instead of the redacted secret.
	if req.ConfluenceToken != nil && *req.ConfluenceToken != "" {
		settings.ConfluenceToken = *req.ConfluenceToken
	}
	if req.Theme != nil {
		settings.Theme = *req.Theme
	}
	if err := s.settings.Save(settings); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleGetNotes(c echo.Context) error {
	settings, err := s.settings.Load()
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"notes": settings.Notes})
}

type notesRequest struct {
	Notes string `json:"notes"`
}

func (s *Server) handleSaveNotes(c echo.Context) error {
	var req notesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	settings, err := s.settings.Load()
	if err != nil {
		return httpError(err)
	}
	settings.Notes = req.Notes
	if err := s.settings.Save(settings); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, successResponse{Success: true})
}

// handleExportText serves the wiki push-sync read contract: the weekly
// pipeline and notes as plain text.
func (s *Server) handleExportText(c echo.Context) error {
	settings, err := s.settings.Load()
	if err != nil {
		return httpError(err)
	}
	text := s.store.PipelineText() + "NOTES\n" + settings.Notes + "\n"
	return c.String(http.StatusOK, text)
}

func (s *Server) handleSyncConfluence(c echo.Context) error {
	settings, err := s.settings.Load()
	if err != nil {
		return httpError(err)
	}
	client, pageID, err := confluence.NewClient(settings)
	if err != nil {
		if errors.Is(err, confluence.ErrNotConfigured) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return httpError(err)
	}
	content := confluence.BuildContent(s.store.Sections(), settings.Notes)
	if err := client.UpdatePage(c.Request().Context(), pageID, content); err != nil {
		s.logger.Warn("confluence sync failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "message": "Confluence page updated"})
}

func (s *Server) handleGetEvents(c echo.Context) error {
	s.eventsMu.RLock()
	defer s.eventsMu.RUnlock()
	events := s.events
	if events == nil {
		events = []json.RawMessage{}
	}
	return c.JSON(http.StatusOK, events)
}

func (s *Server) handleSetEvents(c echo.Context) error {
	var events []json.RawMessage
	if err := c.Bind(&events); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "expected a JSON array of events")
	}
	s.eventsMu.Lock()
	s.events = events
	s.eventsMu.Unlock()
	return c.JSON(http.StatusOK, successResponse{Success: true})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
