package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/learning-gateway/internal/activity"
	"github.com/pot-code/learning-gateway/internal/infrastructure/auth"
	"github.com/pot-code/learning-gateway/internal/infrastructure/validate"
)

type TimeSpentHandler struct {
	activityUseCase activity.UseCase
	validator       validate.Validator
	jwtUtil         *auth.JWTUtil
}

func NewTimeSpentHandler(
	ActivityUseCase activity.UseCase,
	JWTUtil *auth.JWTUtil,
	Validator validate.Validator,
) *TimeSpentHandler {
	handler := &TimeSpentHandler{ActivityUseCase, Validator, JWTUtil}
	return handler
}

// HandleGetTimeSpent learning time per weekday of the week containing ts
func (tsh *TimeSpentHandler) HandleGetTimeSpent(c echo.Context) (err error) {
	uc := tsh.activityUseCase
	ts := c.QueryParam("ts")
	claims := tsh.jwtUtil.GetContextToken(c)

	// validation
	if err := tsh.validator.Var("ts", ts, "required,timestamp"); err != nil {
		return c.JSON(http.StatusBadRequest, NewRESTValidationError(http.StatusBadRequest, "Failed to validate params", err))
	}
	at, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return err
	}

	timeSpent, err := uc.TimeSpentInWeek(c.Request().Context(), claims.UID, at)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, timeSpent)
}
