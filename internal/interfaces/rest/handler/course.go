package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/learning-gateway/internal/apiclient"
	"github.com/pot-code/learning-gateway/internal/curriculum"
	"github.com/pot-code/learning-gateway/internal/infrastructure/validate"
)

// CertificateIssuer long running certificate generation
type CertificateIssuer interface {
	RequestCertificate(ctx context.Context, courseID string) (*apiclient.Certificate, error)
}

type CourseHandler struct {
	curriculumUseCase curriculum.UseCase
	certificates      CertificateIssuer
	validator         validate.Validator
}

func NewCourseHandler(
	CurriculumUseCase curriculum.UseCase,
	Certificates CertificateIssuer,
	Validator validate.Validator,
) *CourseHandler {
	handler := &CourseHandler{CurriculumUseCase, Certificates, Validator}
	return handler
}

// HandleGetCurriculum stitched curriculum of a course
func (ch *CourseHandler) HandleGetCurriculum(c echo.Context) (err error) {
	courseID := c.Param("id")
	if err := ch.validator.Var("id", courseID, "required,recordid"); err != nil {
		return c.JSON(http.StatusBadRequest, NewRESTValidationError(http.StatusBadRequest, "Failed to validate params", err))
	}

	outline, err := ch.curriculumUseCase.LoadCourse(c.Request().Context(), courseID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, outline)
}

// HandleRequestCertificate ask the platform to issue the course certificate
func (ch *CourseHandler) HandleRequestCertificate(c echo.Context) (err error) {
	courseID := c.Param("id")
	if err := ch.validator.Var("id", courseID, "required,recordid"); err != nil {
		return c.JSON(http.StatusBadRequest, NewRESTValidationError(http.StatusBadRequest, "Failed to validate params", err))
	}

	cert, err := ch.certificates.RequestCertificate(c.Request().Context(), courseID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, cert)
}
