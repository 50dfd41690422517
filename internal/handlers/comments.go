package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/newsforum/backend/internal/apierror"
	"github.com/emilythestrangee/newsforum/backend/internal/forum"
)

type CommentHandler struct {
	forum *forum.Service
}

func NewCommentHandler(svc *forum.Service) *CommentHandler {
	return &CommentHandler{forum: svc}
}

// GetComments returns the comments of a post, oldest first
func (h *CommentHandler) GetComments(c *gin.Context) {
	postID, ok := postIDParam(c)
	if !ok {
		return
	}

	comments, err := h.forum.ListComments(c.Request.Context(), postID)
	if err != nil {
		apierror.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, comments)
}

// CreateComment adds a comment to the post named in the body (PROTECTED)
func (h *CommentHandler) CreateComment(c *gin.Context) {
	author, ok := caller(c)
	if !ok {
		return
	}

	// A missing post_id decodes to the nil id and is reported by the service
	// with the other missing fields.
	var input forum.CreateCommentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		apierror.Validation(c, "Invalid request body")
		return
	}

	comment, err := h.forum.CreateComment(c.Request.Context(), author.ID, input)
	if err != nil {
		apierror.Abort(c, err)
		return
	}

	c.JSON(http.StatusCreated, comment)
}
