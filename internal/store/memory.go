package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/emilythestrangee/newsforum/backend/internal/models"
)

var _ Store = (*Memory)(nil)

// Memory implements Store with in-process tables. It mirrors the Postgres
// ordering, join and error behaviour and is safe for concurrent use.
type Memory struct {
	mu         sync.RWMutex
	posts      map[uuid.UUID]models.Post
	comments   map[uuid.UUID][]models.Comment
	profiles   map[uuid.UUID]models.Profile
	news       map[int64]models.News
	categories map[int64]models.Category
	lastTime   time.Time
	now        func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		posts:      make(map[uuid.UUID]models.Post),
		comments:   make(map[uuid.UUID][]models.Comment),
		profiles:   make(map[uuid.UUID]models.Profile),
		news:       make(map[int64]models.News),
		categories: make(map[int64]models.Category),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// PutProfile inserts or replaces a profile.
func (m *Memory) PutProfile(p models.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.ID] = p
}

func (m *Memory) PutCategory(c models.Category) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories[c.ID] = c
}

func (m *Memory) PutNews(n models.News) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.news[n.ID] = n
}

// PutPost inserts or replaces a post as given, counters and timestamps included.
func (m *Memory) PutPost(p models.Post) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.Author = nil
	p.Comments = nil
	m.posts[p.ID] = p
}

func (m *Memory) ListPosts(ctx context.Context) ([]models.Post, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	posts := make([]models.Post, 0, len(m.posts))
	for _, p := range m.posts {
		posts = append(posts, m.withAuthor(p))
	}
	sort.Slice(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
	return posts, nil
}

func (m *Memory) GetPost(ctx context.Context, id uuid.UUID) (models.Post, error) {
	if err := checkContext(ctx); err != nil {
		return models.Post{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.posts[id]
	if !ok {
		return models.Post{}, ErrNotFound
	}
	return m.withAuthor(p), nil
}

func (m *Memory) CreatePost(ctx context.Context, post *models.Post) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if post.ID == uuid.Nil {
		post.ID = uuid.New()
	}
	post.CreatedAt = m.stamp()
	stored := *post
	stored.Author = nil
	stored.Comments = nil
	m.posts[post.ID] = stored
	*post = m.withAuthor(stored)
	return nil
}

func (m *Memory) DeletePost(ctx context.Context, id, authorID uuid.UUID) (bool, error) {
	if err := checkContext(ctx); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.posts[id]
	if !ok || p.AuthorID != authorID {
		return false, nil
	}
	delete(m.posts, id)
	delete(m.comments, id)
	return true, nil
}

func (m *Memory) ListComments(ctx context.Context, postID uuid.UUID) ([]models.Comment, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.comments[postID]
	comments := make([]models.Comment, 0, len(stored))
	for _, c := range stored {
		comments = append(comments, m.commentWithAuthor(c))
	}
	return comments, nil
}

func (m *Memory) CreateComment(ctx context.Context, comment *models.Comment) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.posts[comment.PostID]; !ok {
		return fmt.Errorf("%w: comments_post_id_fkey", ErrNotFound)
	}
	if comment.ID == uuid.Nil {
		comment.ID = uuid.New()
	}
	comment.CreatedAt = m.stamp()
	stored := *comment
	stored.Author = nil
	// Stamps only grow, so appending keeps oldest first.
	m.comments[comment.PostID] = append(m.comments[comment.PostID], stored)
	*comment = m.commentWithAuthor(stored)
	return nil
}

func (m *Memory) IncrementVote(ctx context.Context, id uuid.UUID, counter Counter) error {
	if !counter.Valid() {
		return fmt.Errorf("unknown vote counter %q", counter)
	}
	if err := checkContext(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.posts[id]
	if !ok {
		return ErrNotFound
	}
	if counter == Upvotes {
		p.Upvotes++
	} else {
		p.Downvotes++
	}
	p.Version++
	m.posts[id] = p
	return nil
}

func (m *Memory) SwapVotes(ctx context.Context, id uuid.UUID, version int64, upvotes, downvotes int) (bool, error) {
	if err := checkContext(ctx); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.posts[id]
	if !ok || p.Version != version {
		return false, nil
	}
	p.Upvotes = upvotes
	p.Downvotes = downvotes
	p.Version = version + 1
	m.posts[id] = p
	return true, nil
}

func (m *Memory) ListNews(ctx context.Context, categoryID *int64) ([]models.News, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	news := make([]models.News, 0, len(m.news))
	for _, n := range m.news {
		if categoryID != nil && (n.CategoryID == nil || *n.CategoryID != *categoryID) {
			continue
		}
		news = append(news, n)
	}
	sort.Slice(news, func(i, j int) bool {
		return news[i].PublishedAt.After(news[j].PublishedAt)
	})
	return news, nil
}

func (m *Memory) GetNews(ctx context.Context, id int64) (models.News, error) {
	if err := checkContext(ctx); err != nil {
		return models.News{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	n, ok := m.news[id]
	if !ok {
		return models.News{}, ErrNotFound
	}
	return n, nil
}

func (m *Memory) ListCategories(ctx context.Context) ([]models.Category, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	categories := make([]models.Category, 0, len(m.categories))
	for _, c := range m.categories {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool {
		return categories[i].ID < categories[j].ID
	})
	return categories, nil
}

func (m *Memory) Health(context.Context) map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return map[string]string{
		"status": "up",
		"driver": "memory",
		"posts":  fmt.Sprintf("%d", len(m.posts)),
	}
}

func (m *Memory) Close() error {
	return nil
}

// stamp returns a strictly increasing creation time. Callers hold m.mu.
func (m *Memory) stamp() time.Time {
	t := m.now()
	if !t.After(m.lastTime) {
		t = m.lastTime.Add(time.Microsecond)
	}
	m.lastTime = t
	return t
}

func (m *Memory) withAuthor(p models.Post) models.Post {
	if profile, ok := m.profiles[p.AuthorID]; ok {
		p.Author = &profile
	}
	return p
}

func (m *Memory) commentWithAuthor(c models.Comment) models.Comment {
	if profile, ok := m.profiles[c.AuthorID]; ok {
		c.Author = &profile
	}
	return c
}

func checkContext(ctx context.Context) error {
	err := ctx.Err()
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
