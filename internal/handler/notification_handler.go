package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type InboxReader interface {
	Inbox(ctx context.Context, userID int64, limit int64) ([]string, error)
}

// NotificationHandler serves the per-user inboxes filled by the worker.
type NotificationHandler struct {
	inbox    InboxReader
	maxLimit int64
	logger   zerolog.Logger
}

func NewNotificationHandler(inbox InboxReader, maxLimit int64, logger zerolog.Logger) *NotificationHandler {
	if maxLimit <= 0 {
		maxLimit = 100
	}
	return &NotificationHandler{
		inbox:    inbox,
		maxLimit: maxLimit,
		logger:   logger,
	}
}

// ListForUser godoc
// @Summary List a user's notifications
// @Description Newest first. Entries that are not valid JSON are skipped.
// @Tags notifications
// @Produce json
// @Param userId path int true "User ID"
// @Param limit query int false "Maximum entries"
// @Success 200 {object} SuccessResponse{data=[]object}
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /users/{userId}/notifications [get]
func (h *NotificationHandler) ListForUser(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("invalid userId"))
		return
	}

	limit := h.maxLimit
	if raw, ok := c.GetQuery("limit"); ok {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, NewErrorResponse("invalid limit"))
			return
		}
		if parsed < limit {
			limit = parsed
		}
	}

	entries, err := h.inbox.Inbox(c.Request.Context(), userID, limit)
	if err != nil {
		h.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to read notifications")
		c.JSON(http.StatusInternalServerError, NewErrorResponse("failed to read notifications"))
		return
	}

	notifications := make([]json.RawMessage, 0, len(entries))
	for _, entry := range entries {
		if !json.Valid([]byte(entry)) {
			h.logger.Warn().Int64("user_id", userID).Msg("skipping malformed notification")
			continue
		}
		notifications = append(notifications, json.RawMessage(entry))
	}

	c.JSON(http.StatusOK, NewSuccessResponse(notifications))
}
