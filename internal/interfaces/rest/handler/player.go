package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pot-code/learning-gateway/internal/domain"
	infra "github.com/pot-code/learning-gateway/internal/infrastructure"
	"github.com/pot-code/learning-gateway/internal/infrastructure/auth"
	"github.com/pot-code/learning-gateway/internal/infrastructure/logging"
	"github.com/pot-code/learning-gateway/internal/infrastructure/validate"
	"github.com/pot-code/learning-gateway/internal/player"
	"go.uber.org/zap"
)

const streamWriteWait = 10 * time.Second

type openSessionRequest struct {
	CourseID string `json:"courseId" validate:"required,recordid"`
}

type selectLessonRequest struct {
	LessonID string `json:"lessonId" validate:"required,recordid"`
}

type completionRequest struct {
	Completed *bool `json:"completed" validate:"required"`
}

type PlayerHandler struct {
	manager   *player.Manager
	websocket *infra.Websocket
	validator validate.Validator
	jwtUtil   *auth.JWTUtil
}

func NewPlayerHandler(
	Manager *player.Manager,
	Websocket *infra.Websocket,
	JWTUtil *auth.JWTUtil,
	Validator validate.Validator,
) *PlayerHandler {
	handler := &PlayerHandler{Manager, Websocket, Validator, JWTUtil}
	return handler
}

func (ph *PlayerHandler) session(c echo.Context) (*player.Session, error) {
	claims := ph.jwtUtil.GetContextToken(c)
	return ph.manager.Get(c.Param("sid"), claims.UID)
}

// respond snapshot outcome, a denied course is answered with 403 and the safe view
func respondSnapshot(c echo.Context, code int, snap *player.Snapshot) error {
	if snap.Status == player.StatusDenied {
		return stateError(c, domain.ErrAccessDenied, snap)
	}
	return c.JSON(code, snap)
}

// HandleOpenSession create a player session and load its course
func (ph *PlayerHandler) HandleOpenSession(c echo.Context) (err error) {
	post := new(openSessionRequest)
	if ok, err := bindBody(c, ph.validator, post); !ok {
		return err
	}

	claims := ph.jwtUtil.GetContextToken(c)
	_, snap, err := ph.manager.Open(c.Request().Context(), claims.UID, post.CourseID)
	if err != nil {
		return err
	}
	return respondSnapshot(c, http.StatusCreated, snap)
}

// HandleGetSession ...
func (ph *PlayerHandler) HandleGetSession(c echo.Context) (err error) {
	s, err := ph.session(c)
	if err != nil {
		return err
	}
	return respondSnapshot(c, http.StatusOK, s.Snapshot())
}

// HandleCloseSession ...
func (ph *PlayerHandler) HandleCloseSession(c echo.Context) (err error) {
	claims := ph.jwtUtil.GetContextToken(c)
	if err := ph.manager.Close(c.Request().Context(), c.Param("sid"), claims.UID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleRetry run the load sequence again
func (ph *PlayerHandler) HandleRetry(c echo.Context) (err error) {
	s, err := ph.session(c)
	if err != nil {
		return err
	}
	snap, err := s.Retry(c.Request().Context())
	if snap == nil {
		return err
	}
	return respondSnapshot(c, http.StatusOK, snap)
}

// HandleSelectLesson ...
func (ph *PlayerHandler) HandleSelectLesson(c echo.Context) (err error) {
	post := new(selectLessonRequest)
	if ok, err := bindBody(c, ph.validator, post); !ok {
		return err
	}
	return ph.apply(c, func(s *player.Session) (*player.Snapshot, error) {
		return s.Select(c.Request().Context(), post.LessonID)
	})
}

// HandleNextLesson ...
func (ph *PlayerHandler) HandleNextLesson(c echo.Context) (err error) {
	return ph.apply(c, func(s *player.Session) (*player.Snapshot, error) {
		return s.Next(c.Request().Context())
	})
}

// HandlePreviousLesson ...
func (ph *PlayerHandler) HandlePreviousLesson(c echo.Context) (err error) {
	return ph.apply(c, func(s *player.Session) (*player.Snapshot, error) {
		return s.Previous(c.Request().Context())
	})
}

// HandleToggleSection ...
func (ph *PlayerHandler) HandleToggleSection(c echo.Context) (err error) {
	return ph.apply(c, func(s *player.Session) (*player.Snapshot, error) {
		return s.ToggleSection(c.Param("sectionId"))
	})
}

// HandleExpandAll ...
func (ph *PlayerHandler) HandleExpandAll(c echo.Context) (err error) {
	return ph.apply(c, (*player.Session).ExpandAll)
}

// HandleCollapseAll ...
func (ph *PlayerHandler) HandleCollapseAll(c echo.Context) (err error) {
	return ph.apply(c, (*player.Session).CollapseAll)
}

// HandleToggleSidebar ...
func (ph *PlayerHandler) HandleToggleSidebar(c echo.Context) (err error) {
	return ph.apply(c, (*player.Session).ToggleSidebar)
}

// HandleSetCompletion mark a lesson complete or not, a rejected update answers
// with the error and the re-synced state
func (ph *PlayerHandler) HandleSetCompletion(c echo.Context) (err error) {
	post := new(completionRequest)
	if ok, err := bindBody(c, ph.validator, post); !ok {
		return err
	}
	s, err := ph.session(c)
	if err != nil {
		return err
	}

	snap, err := s.SetCompleted(c.Request().Context(), c.Param("lessonId"), *post.Completed)
	if err != nil {
		if snap == nil {
			return err
		}
		return stateError(c, err, snap)
	}
	return c.JSON(http.StatusOK, snap)
}

// HandleGetContent lesson body, fetched on demand
func (ph *PlayerHandler) HandleGetContent(c echo.Context) (err error) {
	s, err := ph.session(c)
	if err != nil {
		return err
	}
	content, err := s.Content(c.Request().Context(), c.Param("lessonId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, content)
}

// HandleStream push every snapshot of a session over a websocket until either side leaves
func (ph *PlayerHandler) HandleStream(c echo.Context) (err error) {
	s, err := ph.session(c)
	if err != nil {
		return err
	}
	logger := logging.ExtractLoggerFromContext(c.Request().Context())

	return ph.websocket.WithHeartbeat(func(ctx context.Context, conn *websocket.Conn) error {
		feed, unsubscribe := s.Subscribe()
		defer unsubscribe()

		for {
			select {
			case <-ctx.Done():
				return nil
			case snap, ok := <-feed:
				if !ok {
					// session closed
					return nil
				}
				conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
				if err := conn.WriteJSON(snap); err != nil {
					logger.Debug("player stream write failed", zap.String("session.id", s.ID), zap.Error(err))
					return nil
				}
			}
		}
	})(c)
}

func (ph *PlayerHandler) apply(c echo.Context, fn func(*player.Session) (*player.Snapshot, error)) error {
	s, err := ph.session(c)
	if err != nil {
		return err
	}
	snap, err := fn(s)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, snap)
}
