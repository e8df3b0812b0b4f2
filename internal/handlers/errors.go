package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/bitbridge/backend/internal/services"
	"github.com/bitbridge/backend/pkg/logger"
	"github.com/bitbridge/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

// domainError maps a service error to the API error it is reported as.
// Unknown errors become a plain 500.
func domainError(err error) *response.AppError {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return response.NewCodedError(http.StatusNotFound, response.CodeNotFound, err.Error())
	case errors.Is(err, services.ErrNotMember):
		return response.NewCodedError(http.StatusNotFound, response.CodeNotMember, err.Error())
	case errors.Is(err, services.ErrAlreadyMember):
		return response.NewCodedError(http.StatusConflict, response.CodeAlreadyMember, err.Error())
	case errors.Is(err, services.ErrAlreadyCompleted):
		return response.NewCodedError(http.StatusConflict, response.CodeAlreadyCompleted, err.Error())
	case errors.Is(err, services.ErrProjectNotOngoing):
		return response.NewCodedError(http.StatusConflict, response.CodeProjectNotOngoing, err.Error())
	case errors.Is(err, services.ErrInvalidRole),
		errors.Is(err, services.ErrInvalidDifficulty),
		errors.Is(err, services.ErrWrongPassword),
		errors.Is(err, services.ErrInvalidUserRole),
		errors.Is(err, services.ErrSelfModify),
		errors.Is(err, services.ErrNoFieldsToApply):
		return response.NewBadRequest(err.Error())
	case errors.Is(err, services.ErrForbidden):
		return response.NewForbidden(err.Error())
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrUserDisabled),
		errors.Is(err, services.ErrInvalidRefresh):
		return response.NewUnauthorized(err.Error())
	case errors.Is(err, services.ErrUsernameTaken):
		return response.NewConflict(err.Error())
	case services.IsPersistenceFailure(err):
		return response.NewCodedError(http.StatusInternalServerError, response.CodePersistence, "storage failure")
	default:
		return response.NewServerError(err.Error())
	}
}

// respondError writes err through the envelope and logs server-side failures.
func respondError(c *gin.Context, err error) {
	appErr := domainError(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		l := logger.FromGin(c)
		l.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}
	response.Error(c, appErr)
}

// parseID reads the positive numeric :id path parameter.
func parseID(c *gin.Context, what string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		response.BadRequest(c, "invalid "+what+" id")
		return 0, false
	}
	return uint(id), true
}
