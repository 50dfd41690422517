package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/emilythestrangee/newsforum/backend/internal/models"
)

var (
	ErrNotFound = errors.New("not found")
	ErrTimeout  = errors.New("store call timed out")
)

// Counter names one of the two vote columns on a post.
type Counter string

const (
	Upvotes   Counter = "upvotes"
	Downvotes Counter = "downvotes"
)

func (c Counter) Valid() bool {
	return c == Upvotes || c == Downvotes
}

type Store interface {
	PostStore
	CommentStore
	VoteStore
	NewsStore
	Health(ctx context.Context) map[string]string
	Close() error
}

type PostStore interface {
	// ListPosts returns every post newest first, with author profiles attached.
	ListPosts(ctx context.Context) ([]models.Post, error)
	GetPost(ctx context.Context, id uuid.UUID) (models.Post, error)
	// CreatePost assigns the id and creation time and writes them back into post.
	CreatePost(ctx context.Context, post *models.Post) error
	// DeletePost removes the post only when it belongs to authorID.
	DeletePost(ctx context.Context, id, authorID uuid.UUID) (bool, error)
}

type CommentStore interface {
	// ListComments returns the comments of a post oldest first.
	ListComments(ctx context.Context, postID uuid.UUID) ([]models.Comment, error)
	// CreateComment fails with ErrNotFound when the post does not exist.
	CreateComment(ctx context.Context, comment *models.Comment) error
}

type VoteStore interface {
	GetPost(ctx context.Context, id uuid.UUID) (models.Post, error)
	// IncrementVote adds one to counter in a single statement.
	IncrementVote(ctx context.Context, id uuid.UUID, counter Counter) error
	// SwapVotes writes both counters only if the post is still at version.
	// It reports false when the row changed since it was read.
	SwapVotes(ctx context.Context, id uuid.UUID, version int64, upvotes, downvotes int) (bool, error)
}

type NewsStore interface {
	// ListNews returns news newest first, optionally limited to one category.
	ListNews(ctx context.Context, categoryID *int64) ([]models.News, error)
	GetNews(ctx context.Context, id int64) (models.News, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
}
