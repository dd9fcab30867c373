package handlers

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/listmill/listmill/internal/api/response"
	apperrors "github.com/listmill/listmill/internal/errors"
	"github.com/listmill/listmill/internal/ingest"
	"github.com/listmill/listmill/internal/validator"
)

// BounceHandler handles bounce report HTTP requests. Transports without an
// SMTP return path deliver their delivery-failure reports here.
type BounceHandler struct {
	bounces *ingest.BounceService
}

// NewBounceHandler creates a new BounceHandler
func NewBounceHandler(bounces *ingest.BounceService) *BounceHandler {
	return &BounceHandler{bounces: bounces}
}

// Report handles POST /api/bounces
func (h *BounceHandler) Report(c echo.Context) error {
	var req ingest.BounceReport
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	if err := validator.ValidateEmail(req.Email); err != nil {
		return response.BadRequest(c, "email must be an email address")
	}
	if req.GroupID == "" {
		return response.BadRequest(c, "group_id is required")
	}

	result, err := h.bounces.HandleBounce(c.Request().Context(), req.Email, req.GroupID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return response.NotFound(c, err.Error())
		}
		return response.InternalError(c, "failed to record bounce")
	}

	return response.Success(c, result)
}

// BatchRequest represents the request body for a batch of bounce reports
type BatchRequest struct {
	Reports []ingest.BounceReport `json:"reports"`
}

// ReportBatch handles POST /api/bounces/batch. Items fail independently;
// the response carries a per-item outcome.
func (h *BounceHandler) ReportBatch(c echo.Context) error {
	var req BatchRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if len(req.Reports) == 0 {
		return response.BadRequest(c, "reports is empty")
	}

	items := h.bounces.HandleBatch(c.Request().Context(), req.Reports)
	return response.Success(c, items)
}

// StatusResponse reports an address's escalation state within a group
type StatusResponse struct {
	Email        string `json:"email"`
	GroupID      string `json:"group_id"`
	State        string `json:"state"`
	DistinctDays int    `json:"distinct_days"`
}

// Status handles GET /api/bounces/status?email=...&group_id=...
func (h *BounceHandler) Status(c echo.Context) error {
	email := c.QueryParam("email")
	groupID := c.QueryParam("group_id")
	if email == "" || groupID == "" {
		return response.BadRequest(c, "email and group_id are required")
	}

	state, days, err := h.bounces.Status(c.Request().Context(), email, groupID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return response.NotFound(c, err.Error())
		}
		return response.InternalError(c, "failed to get bounce status")
	}

	return response.Success(c, StatusResponse{
		Email:        strings.ToLower(strings.TrimSpace(email)),
		GroupID:      groupID,
		State:        string(state),
		DistinctDays: days,
	})
}
