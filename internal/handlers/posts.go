package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/emilythestrangee/newsforum/backend/internal/apierror"
	"github.com/emilythestrangee/newsforum/backend/internal/forum"
	"github.com/emilythestrangee/newsforum/backend/internal/identity"
	"github.com/emilythestrangee/newsforum/backend/internal/middleware"
	"github.com/emilythestrangee/newsforum/backend/internal/models"
)

type PostHandler struct {
	forum *forum.Service
}

func NewPostHandler(svc *forum.Service) *PostHandler {
	return &PostHandler{forum: svc}
}

// postIDParam parses the :id path segment. Ids that cannot exist are reported
// as a missing post.
func postIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierror.NotFound(c, "Post not found")
		return uuid.Nil, false
	}
	return id, true
}

// caller returns the identity set by the auth middleware.
func caller(c *gin.Context) (identity.Identity, bool) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		apierror.Abort(c, identity.ErrMissingToken)
	}
	return id, ok
}

// GetPosts returns all posts, newest first, with author profiles
func (h *PostHandler) GetPosts(c *gin.Context) {
	posts, err := h.forum.ListPosts(c.Request.Context())
	if err != nil {
		apierror.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, posts)
}

// GetPost returns a single post with its comments
func (h *PostHandler) GetPost(c *gin.Context) {
	postID, ok := postIDParam(c)
	if !ok {
		return
	}

	detail, err := h.forum.GetPost(c.Request.Context(), postID)
	if err != nil {
		apierror.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// CreatePost creates a new post (PROTECTED - requires authentication)
func (h *PostHandler) CreatePost(c *gin.Context) {
	author, ok := caller(c)
	if !ok {
		return
	}

	var input forum.CreatePostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		apierror.Validation(c, "Invalid request body")
		return
	}

	post, err := h.forum.CreatePost(c.Request.Context(), author.ID, input)
	if err != nil {
		apierror.Abort(c, err)
		return
	}

	c.JSON(http.StatusCreated, post)
}

// DeletePost deletes a post (PROTECTED - requires ownership)
func (h *PostHandler) DeletePost(c *gin.Context) {
	requester, ok := caller(c)
	if !ok {
		return
	}
	postID, ok := postIDParam(c)
	if !ok {
		return
	}

	if err := h.forum.DeletePost(c.Request.Context(), postID, requester.ID); err != nil {
		apierror.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully"})
}

// VotePost adds an upvote or downvote depending on the sign of delta (PROTECTED)
func (h *PostHandler) VotePost(c *gin.Context) {
	if _, ok := caller(c); !ok {
		return
	}
	postID, ok := postIDParam(c)
	if !ok {
		return
	}

	var input models.VoteRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		apierror.Validation(c, "delta must be an integer")
		return
	}

	post, err := h.forum.Vote(c.Request.Context(), postID, input.Delta)
	if err != nil {
		apierror.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, post)
}
