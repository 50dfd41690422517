package handlers

import (
	"github.com/emilythestrangee/newsforum/backend/internal/forum"
	"github.com/emilythestrangee/newsforum/backend/internal/store"
)

// Handler combines all handler types
type Handler struct {
	Post    *PostHandler
	Comment *CommentHandler
	News    *NewsHandler
}

// NewHandler creates a unified handler with all sub-handlers
func NewHandler(svc *forum.Service, news store.NewsStore) *Handler {
	return &Handler{
		Post:    NewPostHandler(svc),
		Comment: NewCommentHandler(svc),
		News:    NewNewsHandler(news),
	}
}
