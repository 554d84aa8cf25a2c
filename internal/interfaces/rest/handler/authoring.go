package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/learning-gateway/internal/authoring"
	"github.com/pot-code/learning-gateway/internal/infrastructure/auth"
	"github.com/pot-code/learning-gateway/internal/infrastructure/validate"
)

type AuthoringHandler struct {
	authoringUseCase authoring.UseCase
	jwtUtil          *auth.JWTUtil
	validator        validate.Validator
}

func NewAuthoringHandler(AuthoringUseCase authoring.UseCase, JWTUtil *auth.JWTUtil, Validator validate.Validator) *AuthoringHandler {
	handler := &AuthoringHandler{AuthoringUseCase, JWTUtil, Validator}
	return handler
}

// HandleGetOutline current authoring outline, ?refresh=true drops local state
func (ah *AuthoringHandler) HandleGetOutline(c echo.Context) (err error) {
	refresh := false
	if v := c.QueryParam("refresh"); v != "" {
		if refresh, err = strconv.ParseBool(v); err != nil {
			return c.JSON(http.StatusBadRequest, NewRESTValidationError(http.StatusBadRequest, "Failed to validate params", []*validate.FieldError{
				validate.NewFieldError("refresh", "refresh must be a boolean"),
			}))
		}
	}

	claims := ah.jwtUtil.GetContextToken(c)
	view, err := ah.authoringUseCase.Outline(c.Request().Context(), claims.UID, c.Param("id"), refresh)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, view)
}

// HandleMoveSection ...
func (ah *AuthoringHandler) HandleMoveSection(c echo.Context) (err error) {
	post := new(authoring.MoveRequest)
	if ok, err := bindBody(c, ah.validator, post); !ok {
		return err
	}

	claims := ah.jwtUtil.GetContextToken(c)
	view, err := ah.authoringUseCase.MoveSection(c.Request().Context(), claims.UID, c.Param("id"), *post.From, *post.To)
	return ah.respond(c, view, err)
}

// HandleMoveLesson ...
func (ah *AuthoringHandler) HandleMoveLesson(c echo.Context) (err error) {
	post := new(authoring.MoveRequest)
	if ok, err := bindBody(c, ah.validator, post); !ok {
		return err
	}

	claims := ah.jwtUtil.GetContextToken(c)
	view, err := ah.authoringUseCase.MoveLesson(c.Request().Context(), claims.UID, c.Param("id"), c.Param("sectionId"), *post.From, *post.To)
	return ah.respond(c, view, err)
}

func (ah *AuthoringHandler) respond(c echo.Context, view *authoring.OutlineView, err error) error {
	if err != nil {
		if view == nil {
			return err
		}
		// rejected reorder, the client gets the restored outline back
		return stateError(c, err, view)
	}
	return c.JSON(http.StatusOK, view)
}
