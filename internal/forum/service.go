// Package forum implements the post, comment and vote operations of the
// discussion board on top of the remote table store.
package forum

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/emilythestrangee/newsforum/backend/internal/models"
	"github.com/emilythestrangee/newsforum/backend/internal/store"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrForbidden  = errors.New("you can only delete your own posts")
)

type CreatePostInput struct {
	Title    string `json:"title" validate:"required"`
	Content  string `json:"content" validate:"required"`
	Category string `json:"category"`
}

type CreateCommentInput struct {
	PostID  uuid.UUID `json:"post_id" validate:"required"`
	Content string    `json:"content" validate:"required"`
}

type Service struct {
	posts    store.PostStore
	comments store.CommentStore
	tally    *Tally
	validate *validator.Validate
}

func NewService(posts store.PostStore, comments store.CommentStore, tally *Tally) *Service {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Service{posts: posts, comments: comments, tally: tally, validate: v}
}

func (s *Service) ListPosts(ctx context.Context) ([]models.Post, error) {
	return s.posts.ListPosts(ctx)
}

// GetPost loads a post and its comments in parallel.
func (s *Service) GetPost(ctx context.Context, id uuid.UUID) (models.PostDetail, error) {
	var (
		post     models.Post
		comments []models.Comment
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		post, err = s.posts.GetPost(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		comments, err = s.comments.ListComments(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return models.PostDetail{}, err
	}

	if comments == nil {
		comments = []models.Comment{}
	}
	return models.PostDetail{Post: post, Comments: comments}, nil
}

func (s *Service) ListComments(ctx context.Context, postID uuid.UUID) ([]models.Comment, error) {
	comments, err := s.comments.ListComments(ctx, postID)
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	return comments, nil
}

func (s *Service) CreatePost(ctx context.Context, authorID uuid.UUID, input CreatePostInput) (models.Post, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Content = strings.TrimSpace(input.Content)
	input.Category = strings.TrimSpace(input.Category)
	if err := s.check(input); err != nil {
		return models.Post{}, err
	}
	if input.Category == "" {
		input.Category = models.DefaultCategory
	}

	post := models.Post{
		Title:    input.Title,
		Content:  input.Content,
		Category: input.Category,
		AuthorID: authorID,
	}
	if err := s.posts.CreatePost(ctx, &post); err != nil {
		return models.Post{}, err
	}
	return post, nil
}

// DeletePost removes a post owned by requesterID. A missing post is
// ErrNotFound and someone else's post is ErrForbidden.
func (s *Service) DeletePost(ctx context.Context, id, requesterID uuid.UUID) error {
	post, err := s.posts.GetPost(ctx, id)
	if err != nil {
		return err
	}
	if post.AuthorID != requesterID {
		return ErrForbidden
	}

	deleted, err := s.posts.DeletePost(ctx, id, requesterID)
	if err != nil {
		return err
	}
	if !deleted {
		// Removed by a concurrent request between the read and the delete.
		return store.ErrNotFound
	}
	return nil
}

// CreateComment adds a comment to an existing post. Comments on posts that do
// not exist are rejected with ErrNotFound.
func (s *Service) CreateComment(ctx context.Context, authorID uuid.UUID, input CreateCommentInput) (models.Comment, error) {
	input.Content = strings.TrimSpace(input.Content)
	if err := s.check(input); err != nil {
		return models.Comment{}, err
	}

	comment := models.Comment{
		PostID:   input.PostID,
		AuthorID: authorID,
		Content:  input.Content,
	}
	if err := s.comments.CreateComment(ctx, &comment); err != nil {
		return models.Comment{}, err
	}
	return comment, nil
}

// Vote applies a vote to a post. Callers are not deduplicated: the same user
// may vote any number of times.
func (s *Service) Vote(ctx context.Context, postID uuid.UUID, delta int) (models.Post, error) {
	return s.tally.Apply(ctx, postID, delta)
}

func (s *Service) check(input any) error {
	err := s.validate.Struct(input)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Field())
		}
		return fmt.Errorf("%w: missing required fields: %s", ErrValidation, strings.Join(fields, ", "))
	}
	return fmt.Errorf("%w: %v", ErrValidation, err)
}
