package store

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/newsforum/backend/internal/models"
)

// runStoreContract exercises behaviour every Store implementation must share.
// addProfile seeds a profile row the way the backing store needs it.
func runStoreContract(t *testing.T, st Store, addProfile func(models.Profile)) {
	ctx := context.Background()

	author := models.Profile{ID: uuid.New(), Username: "ana", AvatarURL: "https://cdn.example/ana.png"}
	addProfile(author)

	newPost := func(t *testing.T, title string) models.Post {
		t.Helper()
		post := models.Post{Title: title, Content: "body of " + title, Category: "General", AuthorID: author.ID}
		require.NoError(t, st.CreatePost(ctx, &post))
		return post
	}

	t.Run("create and get post", func(t *testing.T) {
		post := newPost(t, "hello")
		assert.NotEqual(t, uuid.Nil, post.ID)
		assert.False(t, post.CreatedAt.IsZero())
		require.NotNil(t, post.Author)
		assert.Equal(t, "ana", post.Author.Username)

		got, err := st.GetPost(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, "hello", got.Title)
		assert.Equal(t, 0, got.Upvotes)
		assert.Equal(t, 0, got.Downvotes)
		require.NotNil(t, got.Author)
		assert.Equal(t, author.AvatarURL, got.Author.AvatarURL)
	})

	t.Run("get missing post", func(t *testing.T) {
		_, err := st.GetPost(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list posts newest first", func(t *testing.T) {
		first := newPost(t, "older")
		second := newPost(t, "newer")

		posts, err := st.ListPosts(ctx)
		require.NoError(t, err)

		index := map[uuid.UUID]int{}
		for i, p := range posts {
			index[p.ID] = i
		}
		require.Contains(t, index, first.ID)
		require.Contains(t, index, second.ID)
		assert.Less(t, index[second.ID], index[first.ID])
	})

	t.Run("comments oldest first", func(t *testing.T) {
		post := newPost(t, "discussed")
		for _, text := range []string{"one", "two", "three"} {
			c := models.Comment{PostID: post.ID, AuthorID: author.ID, Content: text}
			require.NoError(t, st.CreateComment(ctx, &c))
			assert.NotEqual(t, uuid.Nil, c.ID)
		}

		comments, err := st.ListComments(ctx, post.ID)
		require.NoError(t, err)
		require.Len(t, comments, 3)
		assert.Equal(t, "one", comments[0].Content)
		assert.Equal(t, "three", comments[2].Content)
		require.NotNil(t, comments[0].Author)
		assert.Equal(t, "ana", comments[0].Author.Username)
	})

	t.Run("comment on missing post", func(t *testing.T) {
		c := models.Comment{PostID: uuid.New(), AuthorID: author.ID, Content: "orphan"}
		assert.ErrorIs(t, st.CreateComment(ctx, &c), ErrNotFound)
	})

	t.Run("list comments of unknown post is empty", func(t *testing.T) {
		comments, err := st.ListComments(ctx, uuid.New())
		require.NoError(t, err)
		assert.NotNil(t, comments)
		assert.Empty(t, comments)
	})

	t.Run("delete only by author", func(t *testing.T) {
		post := newPost(t, "doomed")

		deleted, err := st.DeletePost(ctx, post.ID, uuid.New())
		require.NoError(t, err)
		assert.False(t, deleted)

		deleted, err = st.DeletePost(ctx, post.ID, author.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		_, err = st.GetPost(ctx, post.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("increment vote", func(t *testing.T) {
		post := newPost(t, "voted")

		require.NoError(t, st.IncrementVote(ctx, post.ID, Upvotes))
		require.NoError(t, st.IncrementVote(ctx, post.ID, Upvotes))
		require.NoError(t, st.IncrementVote(ctx, post.ID, Downvotes))

		got, err := st.GetPost(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.Upvotes)
		assert.Equal(t, 1, got.Downvotes)
		assert.Equal(t, int64(3), got.Version)

		assert.ErrorIs(t, st.IncrementVote(ctx, uuid.New(), Upvotes), ErrNotFound)
		assert.Error(t, st.IncrementVote(ctx, post.ID, Counter("likes")))
	})

	t.Run("concurrent increments are not lost", func(t *testing.T) {
		post := newPost(t, "popular")

		const voters = 20
		var wg sync.WaitGroup
		errs := make(chan error, voters)
		for i := 0; i < voters; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- st.IncrementVote(ctx, post.ID, Upvotes)
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		got, err := st.GetPost(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, voters, got.Upvotes)
	})

	t.Run("swap votes checks version", func(t *testing.T) {
		post := newPost(t, "contended")
		current, err := st.GetPost(ctx, post.ID)
		require.NoError(t, err)

		swapped, err := st.SwapVotes(ctx, post.ID, current.Version, 1, 0)
		require.NoError(t, err)
		assert.True(t, swapped)

		swapped, err = st.SwapVotes(ctx, post.ID, current.Version, 5, 5)
		require.NoError(t, err)
		assert.False(t, swapped, "stale version must not overwrite")

		got, err := st.GetPost(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.Upvotes)
		assert.Equal(t, 0, got.Downvotes)
		assert.Equal(t, current.Version+1, got.Version)

		swapped, err = st.SwapVotes(ctx, uuid.New(), 0, 1, 0)
		require.NoError(t, err)
		assert.False(t, swapped)
	})

	t.Run("health", func(t *testing.T) {
		assert.Equal(t, "up", st.Health(ctx)["status"])
	})
}
