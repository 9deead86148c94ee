// Package server is the loopback listener the tray app calls back into when
// the user acts on a notification. It also drives the dispatcher once a
// minute while running.
package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/logger"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/notifier"
	"github.com/julianstephens/habitual/internal/reminders"
)

const tickInterval = time.Minute

type Server struct {
	echo       *echo.Echo
	scheduler  *reminders.Scheduler
	backend    notifier.Backend
	dispatcher *notifier.Dispatcher
	secret     string
	now        func() time.Time
}

type stateResponse struct {
	State string `json:"state"`
}

type syncResponse struct {
	Scheduled   []string `json:"scheduled"`
	Failed      []string `json:"failed,omitempty"`
	Kept        []string `json:"kept,omitempty"`
	ComputedFor string   `json:"computed_for"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// New builds the listener. An empty secret disables the header check.
func New(scheduler *reminders.Scheduler, backend notifier.Backend, dispatcher *notifier.Dispatcher, secret string) *Server {
	s := &Server{
		echo:       echo.New(),
		scheduler:  scheduler,
		backend:    backend,
		dispatcher: dispatcher,
		secret:     secret,
		now:        time.Now,
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true

	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod: true,
		LogURI:    true,
		LogStatus: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Debug("Request", "method", v.Method, "uri", v.URI, "status", v.Status, "error", v.Error)
			return nil
		},
	}))

	s.echo.GET("/health", s.handleHealth)

	api := s.echo.Group("", s.requireSecret)
	api.POST("/actions", s.handleAction)
	api.GET("/reminders", s.handlePending)
	api.POST("/reminders/sync", s.handleSync)

	return s
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) requireSecret(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.secret == "" {
			return next(c)
		}
		got := c.Request().Header.Get(constants.SecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.secret)) != 1 {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		}
		return next(c)
	}
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAction(c echo.Context) error {
	var resp models.ActionResponse
	if err := c.Bind(&resp); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid action payload"})
	}
	if resp.ActionID == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "action_id is required"})
	}

	state, err := s.scheduler.HandleAction(c.Request().Context(), resp)
	if err != nil {
		logger.Error("Failed to handle notification action", "identifier", resp.Identifier, "action", resp.ActionID, "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, stateResponse{State: state.String()})
}

func (s *Server) handlePending(c echo.Context) error {
	pending, err := s.backend.PendingRequests(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
	if pending == nil {
		pending = []models.NotificationRequest{}
	}
	return c.JSON(http.StatusOK, pending)
}

func (s *Server) handleSync(c echo.Context) error {
	result, err := s.scheduler.Reconcile(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, syncResponse{
		Scheduled:   result.Scheduled,
		Failed:      result.Failed,
		Kept:        result.Kept,
		ComputedFor: result.ComputedFor,
	})
}

// Tick refreshes a stale evening summary and fires due notifications.
func (s *Server) Tick(ctx context.Context) (notifier.Report, error) {
	if _, err := s.scheduler.RefreshIfStale(ctx); err != nil {
		logger.Warn("Failed to refresh reminders", "error", err)
	}
	return s.dispatcher.Run(ctx, s.now())
}

// Run serves on addr until ctx ends. The reconciliation worker runs for the
// lifetime of the server.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.scheduler.Start(ctx)
	defer s.scheduler.Stop()
	s.scheduler.ScheduleHabitReminders()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Listening for notification actions", "addr", addr)
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return s.echo.Shutdown(shutdownCtx)
		case err, ok := <-errCh:
			if ok {
				return err
			}
			return nil
		case <-ticker.C:
			report, err := s.Tick(ctx)
			if err != nil {
				logger.Warn("Dispatch failed", "error", err)
				continue
			}
			if len(report.Delivered) > 0 || len(report.Failed) > 0 {
				logger.Info("Dispatched notifications", "delivered", len(report.Delivered), "failed", len(report.Failed))
			}
		}
	}
}
