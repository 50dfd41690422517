package forum

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/emilythestrangee/newsforum/backend/internal/models"
	"github.com/emilythestrangee/newsforum/backend/internal/store"
)

// ErrContention means an optimistic vote kept losing to concurrent writers
// until its attempt budget ran out. Callers may retry.
var ErrContention = errors.New("post is being voted on concurrently, try again")

var errVersionConflict = errors.New("post changed since it was read")

// Strategy selects how a vote is applied to the counters.
type Strategy string

const (
	// StrategyAtomic issues a single "counter = counter + 1" update.
	StrategyAtomic Strategy = "atomic"
	// StrategyOptimistic reads the counters and version, then writes them back
	// only if the version is unchanged, retrying on conflict.
	StrategyOptimistic Strategy = "optimistic"
)

type TallyOptions struct {
	Strategy       Strategy
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Tally applies votes to post counters without losing concurrent updates.
type Tally struct {
	store store.VoteStore
	opts  TallyOptions
}

func NewTally(st store.VoteStore, opts TallyOptions) *Tally {
	if opts.Strategy == "" {
		opts.Strategy = StrategyAtomic
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 5
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 10 * time.Millisecond
	}
	if opts.MaxBackoff < opts.InitialBackoff {
		opts.MaxBackoff = opts.InitialBackoff
	}
	return &Tally{store: st, opts: opts}
}

// CounterFor picks the counter a vote delta moves. Only the sign matters;
// zero selects nothing.
func CounterFor(delta int) (store.Counter, bool) {
	switch {
	case delta > 0:
		return store.Upvotes, true
	case delta < 0:
		return store.Downvotes, true
	default:
		return "", false
	}
}

// Apply adds exactly one vote in the direction of delta and returns the post
// as stored afterwards. A zero delta returns the post unchanged.
func (t *Tally) Apply(ctx context.Context, postID uuid.UUID, delta int) (models.Post, error) {
	counter, ok := CounterFor(delta)
	if !ok {
		return t.store.GetPost(ctx, postID)
	}

	var err error
	switch t.opts.Strategy {
	case StrategyAtomic:
		err = t.store.IncrementVote(ctx, postID, counter)
	case StrategyOptimistic:
		err = t.applyOptimistic(ctx, postID, counter)
	default:
		return models.Post{}, fmt.Errorf("unknown vote strategy %q", t.opts.Strategy)
	}
	if err != nil {
		return models.Post{}, err
	}

	return t.store.GetPost(ctx, postID)
}

func (t *Tally) applyOptimistic(ctx context.Context, postID uuid.UUID, counter store.Counter) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = t.opts.InitialBackoff
	b.MaxInterval = t.opts.MaxBackoff
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(t.opts.MaxAttempts-1)), ctx)

	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		post, err := t.store.GetPost(ctx, postID)
		if err != nil {
			return backoff.Permanent(err)
		}

		up, down := post.Upvotes, post.Downvotes
		if counter == store.Upvotes {
			up++
		} else {
			down++
		}

		swapped, err := t.store.SwapVotes(ctx, postID, post.Version, up, down)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !swapped {
			return errVersionConflict
		}
		return nil
	}, policy)

	if errors.Is(err, errVersionConflict) {
		return fmt.Errorf("%w (gave up after %d attempts)", ErrContention, attempts)
	}
	return err
}
