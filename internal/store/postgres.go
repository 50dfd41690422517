package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/emilythestrangee/newsforum/backend/internal/database"
	"github.com/emilythestrangee/newsforum/backend/internal/models"
)

const (
	pgForeignKeyViolation = "23503"
	pgQueryCanceled       = "57014"

	defaultTimeout = 5 * time.Second
)

// commentPostConstraints name the comments.post_id foreign key as created by
// AutoMigrate and by the hosted schema. Only a violation of this key means the
// referenced row is missing from the caller's point of view.
var commentPostConstraints = map[string]bool{
	"fk_posts_comments":     true,
	"comments_post_id_fkey": true,
}

var _ Store = (*Postgres)(nil)

// Postgres is the Store backed by the hosted Postgres tables.
type Postgres struct {
	database *database.Database
	db       *gorm.DB
	timeout  time.Duration
}

func NewPostgres(d *database.Database, timeout time.Duration) *Postgres {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Postgres{database: d, db: d.DB, timeout: timeout}
}

// session bounds a single remote call by the configured timeout.
func (s *Postgres) session(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	return s.db.WithContext(ctx), cancel
}

func (s *Postgres) ListPosts(ctx context.Context) ([]models.Post, error) {
	db, cancel := s.session(ctx)
	defer cancel()

	posts := []models.Post{}
	if err := db.Preload("Author").Order("created_at desc").Find(&posts).Error; err != nil {
		return nil, translate(err)
	}
	return posts, nil
}

func (s *Postgres) GetPost(ctx context.Context, id uuid.UUID) (models.Post, error) {
	db, cancel := s.session(ctx)
	defer cancel()

	var post models.Post
	if err := db.Preload("Author").First(&post, "id = ?", id).Error; err != nil {
		return models.Post{}, translate(err)
	}
	return post, nil
}

func (s *Postgres) CreatePost(ctx context.Context, post *models.Post) error {
	db, cancel := s.session(ctx)
	defer cancel()

	if post.ID == uuid.Nil {
		post.ID = uuid.New()
	}
	if err := db.Omit("Author", "Comments").Create(post).Error; err != nil {
		return translate(err)
	}
	// Reload with author information
	return translate(db.Preload("Author").First(post, "id = ?", post.ID).Error)
}

func (s *Postgres) DeletePost(ctx context.Context, id, authorID uuid.UUID) (bool, error) {
	db, cancel := s.session(ctx)
	defer cancel()

	res := db.Where("id = ? AND author_id = ?", id, authorID).Delete(&models.Post{})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *Postgres) ListComments(ctx context.Context, postID uuid.UUID) ([]models.Comment, error) {
	db, cancel := s.session(ctx)
	defer cancel()

	comments := []models.Comment{}
	err := db.Preload("Author").Where("post_id = ?", postID).Order("created_at asc").Find(&comments).Error
	if err != nil {
		return nil, translate(err)
	}
	return comments, nil
}

func (s *Postgres) CreateComment(ctx context.Context, comment *models.Comment) error {
	db, cancel := s.session(ctx)
	defer cancel()

	if comment.ID == uuid.Nil {
		comment.ID = uuid.New()
	}
	if err := db.Omit("Author").Create(comment).Error; err != nil {
		return translate(err)
	}
	return translate(db.Preload("Author").First(comment, "id = ?", comment.ID).Error)
}

func (s *Postgres) IncrementVote(ctx context.Context, id uuid.UUID, counter Counter) error {
	if !counter.Valid() {
		return fmt.Errorf("unknown vote counter %q", counter)
	}
	db, cancel := s.session(ctx)
	defer cancel()

	column := string(counter)
	res := db.Model(&models.Post{}).Where("id = ?", id).UpdateColumns(map[string]any{
		column:    gorm.Expr(column + " + 1"),
		"version": gorm.Expr("version + 1"),
	})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) SwapVotes(ctx context.Context, id uuid.UUID, version int64, upvotes, downvotes int) (bool, error) {
	db, cancel := s.session(ctx)
	defer cancel()

	res := db.Model(&models.Post{}).Where("id = ? AND version = ?", id, version).UpdateColumns(map[string]any{
		"upvotes":   upvotes,
		"downvotes": downvotes,
		"version":   version + 1,
	})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *Postgres) ListNews(ctx context.Context, categoryID *int64) ([]models.News, error) {
	db, cancel := s.session(ctx)
	defer cancel()

	query := db.Order("published_at desc")
	if categoryID != nil {
		query = query.Where("category_id = ?", *categoryID)
	}
	news := []models.News{}
	if err := query.Find(&news).Error; err != nil {
		return nil, translate(err)
	}
	return news, nil
}

func (s *Postgres) GetNews(ctx context.Context, id int64) (models.News, error) {
	db, cancel := s.session(ctx)
	defer cancel()

	var news models.News
	if err := db.First(&news, "id = ?", id).Error; err != nil {
		return models.News{}, translate(err)
	}
	return news, nil
}

func (s *Postgres) ListCategories(ctx context.Context) ([]models.Category, error) {
	db, cancel := s.session(ctx)
	defer cancel()

	categories := []models.Category{}
	if err := db.Order("id asc").Find(&categories).Error; err != nil {
		return nil, translate(err)
	}
	return categories, nil
}

func (s *Postgres) Health(ctx context.Context) map[string]string {
	return s.database.Health(ctx)
}

func (s *Postgres) Close() error {
	return s.database.Close()
}

// translate maps driver and gorm errors onto the store's sentinel errors.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgForeignKeyViolation:
			if commentPostConstraints[pgErr.ConstraintName] {
				return fmt.Errorf("%w: %s", ErrNotFound, pgErr.ConstraintName)
			}
			return fmt.Errorf("broken reference %s: %w", pgErr.ConstraintName, err)
		case pgQueryCanceled:
			return fmt.Errorf("%w: %s", ErrTimeout, pgErr.Message)
		}
	}
	return err
}
