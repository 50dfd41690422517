package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/newsforum/backend/internal/apierror"
	"github.com/emilythestrangee/newsforum/backend/internal/config"
	"github.com/emilythestrangee/newsforum/backend/internal/forum"
	"github.com/emilythestrangee/newsforum/backend/internal/identity"
	"github.com/emilythestrangee/newsforum/backend/internal/models"
	"github.com/emilythestrangee/newsforum/backend/internal/store"
)

type stubVerifier map[string]identity.Identity

func (s stubVerifier) Verify(_ context.Context, token string) (identity.Identity, error) {
	id, ok := s[token]
	if !ok {
		return identity.Identity{}, identity.ErrInvalidToken
	}
	return id, nil
}

type testApp struct {
	t      *testing.T
	router *gin.Engine
	store  *store.Memory
	alice  identity.Identity
	bob    identity.Identity
}

func testConfig(strategy string) config.Config {
	return config.Config{
		Port:        "8080",
		StoreDriver: config.StoreDriverMemory,
		CORSOrigins: []string{"*"},
		Auth:        config.AuthConfig{Mode: config.AuthModeJWT, JWTSecret: "secret"},
		Votes: config.VoteConfig{
			Strategy:       strategy,
			MaxAttempts:    50,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     5 * time.Millisecond,
		},
	}
}

func newTestApp(t *testing.T, strategy string) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	app := &testApp{
		t:     t,
		store: store.NewMemory(),
		alice: identity.Identity{ID: uuid.New(), Email: "alice@example.com"},
		bob:   identity.Identity{ID: uuid.New(), Email: "bob@example.com"},
	}
	app.store.PutProfile(models.Profile{ID: app.alice.ID, Username: "alice"})
	app.store.PutProfile(models.Profile{ID: app.bob.ID, Username: "bob"})

	verifier := stubVerifier{"alice-token": app.alice, "bob-token": app.bob}
	app.router = New(testConfig(strategy), app.store, verifier).RegisterRoutes()
	return app
}

func (a *testApp) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(a.t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func assertKind(t *testing.T, w *httptest.ResponseRecorder, status int, kind apierror.Kind) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	body := decode[apierror.Response](t, w)
	assert.Equal(t, kind, body.Kind)
	assert.NotEmpty(t, body.Error)
}

func TestHealth(t *testing.T) {
	app := newTestApp(t, config.VoteStrategyAtomic)

	w := app.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[map[string]string](t, w)
	assert.Equal(t, "up", stats["status"])
	assert.Equal(t, "memory", stats["driver"])
}

func TestPostLifecycle(t *testing.T) {
	app := newTestApp(t, config.VoteStrategyAtomic)

	w := app.do(http.MethodPost, "/posts", "alice-token", forum.CreatePostInput{
		Title:   "Hello",
		Content: "First post",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[models.Post](t, w)
	assert.Equal(t, "Hello", created.Title)
	assert.Equal(t, models.DefaultCategory, created.Category)
	assert.Equal(t, app.alice.ID, created.AuthorID)
	assert.Zero(t, created.Upvotes)
	assert.Zero(t, created.Downvotes)
	require.NotNil(t, created.Author)
	assert.Equal(t, "alice", created.Author.Username)

	postPath := "/posts/" + created.ID.String()

	w = app.do(http.MethodGet, "/posts", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	posts := decode[[]models.Post](t, w)
	require.Len(t, posts, 1)
	assert.Equal(t, created.ID, posts[0].ID)

	w = app.do(http.MethodPost, "/comments", "bob-token", map[string]string{
		"post_id": created.ID.String(),
		"content": "Nice",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	comment := decode[models.Comment](t, w)
	assert.Equal(t, app.bob.ID, comment.AuthorID)

	w = app.do(http.MethodGet, postPath, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[models.PostDetail](t, w)
	assert.Equal(t, created.ID, detail.Post.ID)
	require.Len(t, detail.Comments, 1)
	assert.Equal(t, "Nice", detail.Comments[0].Content)

	w = app.do(http.MethodGet, postPath+"/comments", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Comment](t, w), 1)

	w = app.do(http.MethodPost, postPath+"/vote", "bob-token", models.VoteRequest{Delta: 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	voted := decode[models.Post](t, w)
	assert.Equal(t, 1, voted.Upvotes)
	assert.Equal(t, 0, voted.Downvotes)

	w = app.do(http.MethodPost, postPath+"/vote", "bob-token", models.VoteRequest{Delta: -7})
	require.Equal(t, http.StatusOK, w.Code)
	voted = decode[models.Post](t, w)
	assert.Equal(t, 1, voted.Upvotes)
	assert.Equal(t, 1, voted.Downvotes)

	assertKind(t, app.do(http.MethodDelete, postPath, "bob-token", nil), http.StatusForbidden, apierror.KindForbidden)

	w = app.do(http.MethodDelete, postPath, "alice-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Post deleted successfully", decode[map[string]string](t, w)["message"])

	assertKind(t, app.do(http.MethodGet, postPath, "", nil), http.StatusNotFound, apierror.KindNotFound)
	assertKind(t, app.do(http.MethodDelete, postPath, "alice-token", nil), http.StatusNotFound, apierror.KindNotFound)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app := newTestApp(t, config.VoteStrategyAtomic)
	postPath := "/posts/" + uuid.NewString()

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/posts"},
		{http.MethodPost, "/comments"},
		{http.MethodDelete, postPath},
		{http.MethodPost, postPath + "/vote"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			assertKind(t, app.do(route.method, route.path, "", nil), http.StatusUnauthorized, apierror.KindMissingToken)
			assertKind(t, app.do(route.method, route.path, "stranger", nil), http.StatusUnauthorized, apierror.KindInvalidToken)
		})
	}

	t.Run("wrong scheme", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/posts", nil)
		req.Header.Set("Authorization", "Basic alice-token")
		w := httptest.NewRecorder()
		app.router.ServeHTTP(w, req)
		assertKind(t, w, http.StatusUnauthorized, apierror.KindMalformedScheme)
	})

	w := app.do(http.MethodGet, "/posts", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]models.Post](t, w))
}

func TestValidationErrors(t *testing.T) {
	app := newTestApp(t, config.VoteStrategyAtomic)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{name: "empty post", method: http.MethodPost, path: "/posts", body: forum.CreatePostInput{}},
		{name: "blank title", method: http.MethodPost, path: "/posts", body: forum.CreatePostInput{Title: "   ", Content: "x"}},
		{name: "malformed post body", method: http.MethodPost, path: "/posts", body: "{not json"},
		{name: "comment without post", method: http.MethodPost, path: "/comments", body: map[string]string{"content": "hi"}},
		{name: "comment with bad post id", method: http.MethodPost, path: "/comments", body: map[string]string{"post_id": "42", "content": "hi"}},
		{name: "vote without integer delta", method: http.MethodPost, path: "/posts/" + uuid.NewString() + "/vote", body: map[string]string{"delta": "up"}},
		{name: "news with bad category", method: http.MethodGet, path: "/news?category=sports", body: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertKind(t, app.do(tt.method, tt.path, "alice-token", tt.body), http.StatusBadRequest, apierror.KindValidation)
		})
	}

	w := app.do(http.MethodPost, "/comments", "alice-token", map[string]string{"content": "hi"})
	assert.Contains(t, decode[apierror.Response](t, w).Error, "post_id")

	w = app.do(http.MethodGet, "/posts", "", nil)
	assert.Empty(t, decode[[]models.Post](t, w))
}

func TestNotFound(t *testing.T) {
	app := newTestApp(t, config.VoteStrategyAtomic)
	missing := uuid.NewString()

	assertKind(t, app.do(http.MethodGet, "/posts/"+missing, "", nil), http.StatusNotFound, apierror.KindNotFound)
	assertKind(t, app.do(http.MethodGet, "/posts/not-a-uuid", "", nil), http.StatusNotFound, apierror.KindNotFound)
	assertKind(t, app.do(http.MethodPost, "/posts/"+missing+"/vote", "alice-token", models.VoteRequest{Delta: 1}), http.StatusNotFound, apierror.KindNotFound)
	assertKind(t, app.do(http.MethodPost, "/comments", "alice-token", map[string]string{
		"post_id": missing,
		"content": "orphan",
	}), http.StatusNotFound, apierror.KindNotFound)
	assertKind(t, app.do(http.MethodGet, "/news/999", "", nil), http.StatusNotFound, apierror.KindNotFound)
	assertKind(t, app.do(http.MethodGet, "/news/abc", "", nil), http.StatusNotFound, apierror.KindNotFound)
}

func TestNewsAndCategories(t *testing.T) {
	app := newTestApp(t, config.VoteStrategyAtomic)
	sports, politics := int64(1), int64(2)
	app.store.PutCategory(models.Category{ID: politics, Name: "Politics"})
	app.store.PutCategory(models.Category{ID: sports, Name: "Sports"})

	now := time.Now().UTC()
	app.store.PutNews(models.News{ID: 10, Title: "Old match", CategoryID: &sports, PublishedAt: now.Add(-2 * time.Hour)})
	app.store.PutNews(models.News{ID: 11, Title: "Election", CategoryID: &politics, PublishedAt: now.Add(-time.Hour)})
	app.store.PutNews(models.News{ID: 12, Title: "New match", CategoryID: &sports, PublishedAt: now})

	w := app.do(http.MethodGet, "/categories", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	categories := decode[[]models.Category](t, w)
	require.Len(t, categories, 2)
	assert.Equal(t, "Sports", categories[0].Name)

	w = app.do(http.MethodGet, "/news", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	all := decode[[]models.News](t, w)
	require.Len(t, all, 3)
	assert.Equal(t, int64(12), all[0].ID)
	assert.Equal(t, int64(10), all[2].ID)

	w = app.do(http.MethodGet, "/news?category=1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	filtered := decode[[]models.News](t, w)
	require.Len(t, filtered, 2)
	for _, n := range filtered {
		assert.Equal(t, sports, *n.CategoryID)
	}

	w = app.do(http.MethodGet, "/news/11", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Election", decode[models.News](t, w).Title)
}

func TestConcurrentVotesOverHTTP(t *testing.T) {
	for _, strategy := range []string{config.VoteStrategyAtomic, config.VoteStrategyOptimistic} {
		t.Run(strategy, func(t *testing.T) {
			app := newTestApp(t, strategy)
			id := uuid.New()
			app.store.PutPost(models.Post{ID: id, Title: "t", Content: "c", Category: models.DefaultCategory, AuthorID: app.alice.ID})

			const voters = 30
			var wg sync.WaitGroup
			codes := make([]int, voters)
			for i := 0; i < voters; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					req := httptest.NewRequest(http.MethodPost, "/posts/"+id.String()+"/vote", bytes.NewBufferString(`{"delta":1}`))
					req.Header.Set("Content-Type", "application/json")
					req.Header.Set("Authorization", "Bearer bob-token")
					w := httptest.NewRecorder()
					app.router.ServeHTTP(w, req)
					codes[i] = w.Code
				}(i)
			}
			wg.Wait()

			ok := 0
			for _, code := range codes {
				if code == http.StatusOK {
					ok++
				} else {
					assert.Equal(t, http.StatusConflict, code)
				}
			}

			post, err := app.store.GetPost(context.Background(), id)
			require.NoError(t, err)
			assert.Equal(t, ok, post.Upvotes)
			if strategy == config.VoteStrategyAtomic {
				assert.Equal(t, voters, post.Upvotes)
			}
		})
	}
}

func TestNewServer(t *testing.T) {
	t.Run("memory store with jwt auth", func(t *testing.T) {
		srv, st, err := NewServer(testConfig(config.VoteStrategyOptimistic))
		require.NoError(t, err)
		defer st.Close()
		assert.Equal(t, "0.0.0.0:8080", srv.Addr)
		assert.NotNil(t, srv.Handler)
	})

	t.Run("unknown vote strategy", func(t *testing.T) {
		_, _, err := NewServer(testConfig("pessimistic"))
		assert.ErrorContains(t, err, "vote strategy")
	})

	t.Run("jwt mode without secret", func(t *testing.T) {
		cfg := testConfig(config.VoteStrategyAtomic)
		cfg.Auth.JWTSecret = ""
		_, _, err := NewServer(cfg)
		assert.ErrorContains(t, err, "SUPABASE_JWT_SECRET")
	})

	t.Run("remote mode without provider", func(t *testing.T) {
		cfg := testConfig(config.VoteStrategyAtomic)
		cfg.Auth.Mode = config.AuthModeRemote
		_, _, err := NewServer(cfg)
		assert.ErrorContains(t, err, "SUPABASE_URL")
	})

	t.Run("unknown store driver", func(t *testing.T) {
		cfg := testConfig(config.VoteStrategyAtomic)
		cfg.StoreDriver = "mongo"
		_, _, err := NewServer(cfg)
		assert.ErrorContains(t, err, "store driver")
	})
}

func TestCORSConfig(t *testing.T) {
	all := corsConfig([]string{"*"})
	assert.True(t, all.AllowAllOrigins)
	assert.False(t, all.AllowCredentials)
	assert.Empty(t, all.AllowOrigins)

	listed := corsConfig([]string{"http://localhost:3000"})
	assert.False(t, listed.AllowAllOrigins)
	assert.True(t, listed.AllowCredentials)
	assert.Equal(t, []string{"http://localhost:3000"}, listed.AllowOrigins)
}
