package handlers

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/listmill/listmill/internal/api/response"
	"github.com/listmill/listmill/internal/emailbody"
	apperrors "github.com/listmill/listmill/internal/errors"
	"github.com/listmill/listmill/internal/models"
	"github.com/listmill/listmill/internal/repository"
	"github.com/listmill/listmill/internal/validator"
)

// PostHandler handles archive read requests: topics, posts, and rendered
// post bodies.
type PostHandler struct {
	posts repository.PostRepository
	lists repository.ListRepository
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(posts repository.PostRepository, lists repository.ListRepository) *PostHandler {
	return &PostHandler{posts: posts, lists: lists}
}

// parsePagination reads limit/offset query parameters and clamps them
func parsePagination(c echo.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	offset, _ = strconv.Atoi(c.QueryParam("offset"))
	return validator.ValidatePagination(limit, offset)
}

// ListTopics handles GET /api/lists/:group_id/topics
func (h *PostHandler) ListTopics(c echo.Context) error {
	groupID := c.Param("group_id")
	if _, err := h.lists.GetByGroupID(c.Request().Context(), groupID); err != nil {
		if apperrors.IsNotFound(err) {
			return response.NotFound(c, "list not found")
		}
		return response.InternalError(c, "failed to get list")
	}

	limit, offset := parsePagination(c)
	topics, total, err := h.posts.LatestTopics(c.Request().Context(), groupID, limit, offset)
	if err != nil {
		return response.InternalError(c, "failed to list topics")
	}

	return response.Paginated(c, topics, total, limit, offset)
}

// ListPosts handles GET /api/lists/:group_id/posts
func (h *PostHandler) ListPosts(c echo.Context) error {
	groupID := c.Param("group_id")
	if _, err := h.lists.GetByGroupID(c.Request().Context(), groupID); err != nil {
		if apperrors.IsNotFound(err) {
			return response.NotFound(c, "list not found")
		}
		return response.InternalError(c, "failed to get list")
	}

	limit, offset := parsePagination(c)
	posts, total, err := h.posts.LatestPosts(c.Request().Context(), groupID, limit, offset)
	if err != nil {
		return response.InternalError(c, "failed to list posts")
	}

	return response.Paginated(c, posts, total, limit, offset)
}

// RenderedPost is a post with its body run through the archive text
// pipeline. Intro carries the fresh content, Footer the trailing quoted
// material and signature, both as HTML.
type RenderedPost struct {
	PostID          string    `json:"post_id"`
	TopicID         string    `json:"topic_id"`
	GroupID         string    `json:"group_id"`
	SenderID        string    `json:"sender_id,omitempty"`
	Sender          string    `json:"sender"`
	Subject         string    `json:"subject"`
	Date            time.Time `json:"date"`
	Intro           string    `json:"intro"`
	Footer          string    `json:"footer,omitempty"`
	AttachmentCount int       `json:"attachment_count"`

	Files []models.FileRecord `json:"files,omitempty"`
}

// Get handles GET /api/posts/:post_id. The body comes back rendered:
// escaped, marked up with the group's visibility applied to addresses,
// wrapped, and split into intro and footer.
func (h *PostHandler) Get(c echo.Context) error {
	postID := c.Param("post_id")

	post, err := h.posts.GetPost(c.Request().Context(), postID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return response.NotFound(c, "post not found")
		}
		return response.InternalError(c, "failed to get post")
	}

	// public=true redacts addresses, so a missing list falls back to
	// hiding them rather than exposing them.
	public := true
	if list, err := h.lists.GetByGroupID(c.Request().Context(), post.GroupID); err == nil {
		public = list.PublicArchive
	}

	intro, footer := emailbody.IntroAndFooter(post.Body, public)

	return response.Success(c, RenderedPost{
		PostID:          post.PostID,
		TopicID:         post.TopicID,
		GroupID:         post.GroupID,
		SenderID:        post.SenderID,
		Sender:          post.Sender,
		Subject:         post.Subject,
		Date:            post.Date,
		Intro:           intro,
		Footer:          footer,
		AttachmentCount: post.AttachmentCount,
		Files:           post.Files,
	})
}

// GetTopic handles GET /api/topics/:topic_id
func (h *PostHandler) GetTopic(c echo.Context) error {
	topicID := c.Param("topic_id")

	topic, err := h.posts.GetTopic(c.Request().Context(), topicID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return response.NotFound(c, "topic not found")
		}
		return response.InternalError(c, "failed to get topic")
	}

	return response.Success(c, topic)
}

// TopicPosts handles GET /api/topics/:topic_id/posts. Posts come back in
// chronological order.
func (h *PostHandler) TopicPosts(c echo.Context) error {
	topicID := c.Param("topic_id")

	if _, err := h.posts.GetTopic(c.Request().Context(), topicID); err != nil {
		if apperrors.IsNotFound(err) {
			return response.NotFound(c, "topic not found")
		}
		return response.InternalError(c, "failed to get topic")
	}

	posts, err := h.posts.PostsForTopic(c.Request().Context(), topicID)
	if err != nil {
		return response.InternalError(c, "failed to list topic posts")
	}

	return response.Success(c, posts)
}

// Delete handles DELETE /api/posts/:post_id
func (h *PostHandler) Delete(c echo.Context) error {
	postID := c.Param("post_id")

	if err := h.posts.DeletePost(c.Request().Context(), postID); err != nil {
		if apperrors.IsNotFound(err) {
			return response.NotFound(c, "post not found")
		}
		return response.InternalError(c, "failed to delete post")
	}

	return response.NoContent(c)
}
