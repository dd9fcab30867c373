package handlers

import (
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/listmill/listmill/internal/api/response"
	apperrors "github.com/listmill/listmill/internal/errors"
	"github.com/listmill/listmill/internal/repository"
)

// DigestHandler handles digest scheduling HTTP requests. An external digest
// sender polls for due groups and confirms each send.
type DigestHandler struct {
	digests repository.DigestRepository
	lists   repository.ListRepository
}

// NewDigestHandler creates a new DigestHandler
func NewDigestHandler(digests repository.DigestRepository, lists repository.ListRepository) *DigestHandler {
	return &DigestHandler{digests: digests, lists: lists}
}

// Due handles GET /api/digests/due
func (h *DigestHandler) Due(c echo.Context) error {
	groupIDs, err := h.digests.GroupsNeedingDigest(c.Request().Context(), time.Now().UTC())
	if err != nil {
		return response.InternalError(c, "failed to find groups needing digest")
	}

	if groupIDs == nil {
		groupIDs = []string{}
	}
	return response.Success(c, map[string]interface{}{
		"group_ids": groupIDs,
	})
}

// MarkSent handles POST /api/digests/:group_id/sent
func (h *DigestHandler) MarkSent(c echo.Context) error {
	groupID := c.Param("group_id")

	list, err := h.lists.GetByGroupID(c.Request().Context(), groupID)
	if err != nil {
		if errors.Is(err, apperrors.ErrListNotFound) {
			return response.NotFound(c, "list not found")
		}
		return response.InternalError(c, "failed to get list")
	}

	if err := h.digests.MarkDigestSent(c.Request().Context(), list.GroupID, list.SiteID, time.Now().UTC()); err != nil {
		return response.InternalError(c, "failed to record digest")
	}

	return response.SuccessWithMessage(c, nil, "digest recorded")
}
