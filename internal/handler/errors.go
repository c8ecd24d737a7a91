package handler

import (
	"errors"
	"net/http"

	"github.com/cursolab/campus-backend/internal/repository"
	"github.com/cursolab/campus-backend/internal/response"
	"github.com/cursolab/campus-backend/internal/service"
	"github.com/cursolab/campus-backend/internal/viewmodel"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// parseID reads the :id path parameter. It writes the error response itself
// and reports false when the parameter is not a UUID.
func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

// failFromError maps service and repository errors onto the API error codes.
// Unexpected errors are logged and reported as INTERNAL_ERROR.
func failFromError(c *gin.Context, log zerolog.Logger, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, repository.ErrDuplicateCourseCode),
		errors.Is(err, repository.ErrDuplicateEmail):
		response.Fail(c, http.StatusConflict, response.ErrConflict)
	case errors.Is(err, repository.ErrReferenceNotFound):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrReferenceNotFound)
	case errors.Is(err, service.ErrInvalidStudent),
		errors.Is(err, viewmodel.ErrInvalidForm):
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
			"student": err.Error(),
		})
	case errors.Is(err, service.ErrInvalidCourse):
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
			"course": err.Error(),
		})
	case errors.Is(err, service.ErrInvalidEnrollment):
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
			"enrollment": err.Error(),
		})
	case errors.Is(err, service.ErrInvalidTask):
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
			"title": err.Error(),
		})
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
	default:
		log.Error().Err(err).
			Str("request_id", response.RequestID(c)).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg("Request failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
