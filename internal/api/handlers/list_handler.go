package handlers

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/listmill/listmill/internal/api/response"
	apperrors "github.com/listmill/listmill/internal/errors"
	"github.com/listmill/listmill/internal/models"
	"github.com/listmill/listmill/internal/repository"
	"github.com/listmill/listmill/internal/validator"
)

// ListHandler handles mailing-list HTTP requests
type ListHandler struct {
	lists repository.ListRepository
	posts repository.PostRepository
}

// NewListHandler creates a new ListHandler
func NewListHandler(lists repository.ListRepository, posts repository.PostRepository) *ListHandler {
	return &ListHandler{lists: lists, posts: posts}
}

// CreateListRequest represents the request body for creating a mailing list
type CreateListRequest struct {
	GroupID       string `json:"group_id"`
	SiteID        string `json:"site_id"`
	Title         string `json:"title"`
	Mailto        string `json:"mailto"`
	PublicArchive bool   `json:"public_archive"`
}

// Create handles POST /api/lists
func (h *ListHandler) Create(c echo.Context) error {
	var req CreateListRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	if err := validator.ValidateGroupID(req.GroupID); err != nil {
		return response.BadRequest(c, "invalid group_id")
	}
	if req.SiteID == "" {
		return response.BadRequest(c, "site_id is required")
	}
	if err := validator.ValidateEmail(req.Mailto); err != nil {
		return response.BadRequest(c, "mailto must be an email address")
	}

	list := &models.List{
		GroupID:       req.GroupID,
		SiteID:        req.SiteID,
		Title:         req.Title,
		Mailto:        req.Mailto,
		PublicArchive: req.PublicArchive,
	}

	if err := h.lists.Create(c.Request().Context(), list); err != nil {
		if errors.Is(err, apperrors.ErrDuplicateEntry) {
			return response.Conflict(c, "list already exists")
		}
		return response.InternalError(c, "failed to create list")
	}

	return response.Created(c, list)
}

// List handles GET /api/lists
func (h *ListHandler) List(c echo.Context) error {
	lists, err := h.lists.ListAll(c.Request().Context())
	if err != nil {
		return response.InternalError(c, "failed to list mailing lists")
	}
	return response.Success(c, lists)
}

// ListStats pairs a list with its archive counters
type ListStats struct {
	List       *models.List `json:"list"`
	PostCount  int64        `json:"post_count"`
	TopicCount int64        `json:"topic_count"`
}

// Get handles GET /api/lists/:group_id
func (h *ListHandler) Get(c echo.Context) error {
	groupID := c.Param("group_id")

	list, err := h.lists.GetByGroupID(c.Request().Context(), groupID)
	if err != nil {
		if errors.Is(err, apperrors.ErrListNotFound) {
			return response.NotFound(c, "list not found")
		}
		return response.InternalError(c, "failed to get list")
	}

	postCount, err := h.posts.PostCount(c.Request().Context(), groupID)
	if err != nil {
		return response.InternalError(c, "failed to count posts")
	}
	topicCount, err := h.posts.TopicCount(c.Request().Context(), groupID)
	if err != nil {
		return response.InternalError(c, "failed to count topics")
	}

	return response.Success(c, ListStats{
		List:       list,
		PostCount:  postCount,
		TopicCount: topicCount,
	})
}

// Delete handles DELETE /api/lists/:group_id
func (h *ListHandler) Delete(c echo.Context) error {
	groupID := c.Param("group_id")

	if err := h.lists.Delete(c.Request().Context(), groupID); err != nil {
		if errors.Is(err, apperrors.ErrListNotFound) {
			return response.NotFound(c, "list not found")
		}
		return response.InternalError(c, "failed to delete list")
	}

	return response.NoContent(c)
}
