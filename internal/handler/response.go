package handler

import (
	"errors"
	"net/http"

	"maintenance-task-service/internal/domain"

	"github.com/gin-gonic/gin"
)

type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
}

func NewSuccessResponse(data interface{}) SuccessResponse {
	return SuccessResponse{
		Success: true,
		Data:    data,
	}
}

func NewErrorResponse(err string) ErrorResponse {
	return ErrorResponse{
		Success: false,
		Error:   err,
	}
}

// errorStatus maps the domain error taxonomy onto HTTP status codes.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, domain.ErrOperation):
		return http.StatusUnprocessableEntity, "operation"
	case errors.Is(err, domain.ErrState):
		return http.StatusConflict, "state"
	default:
		return http.StatusInternalServerError, ""
	}
}

func (h *TaskHandler) writeError(c *gin.Context, err error, msg string) {
	status, kind := errorStatus(err)
	if status == http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg(msg)
		c.JSON(status, NewErrorResponse("internal server error"))
		return
	}

	c.JSON(status, ErrorResponse{
		Success: false,
		Error:   err.Error(),
		Kind:    kind,
	})
}
