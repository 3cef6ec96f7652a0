package content

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/agora/internal/domain"
)

type registered map[domain.Identity]bool

func (r registered) IsRegistered(id domain.Identity) bool { return r[id] }

var now = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// newTestStore creates a store with registered users and one post by alice.
func newTestStore(t *testing.T) (*Store, uint64) {
	t.Helper()
	store := New(registered{"alice": true, "bob": true}, nil)
	id, err := store.CreatePost("alice", "ipfs://ref1", "ipfs://meta1", "news", now)
	require.NoError(t, err)
	return store, id
}

func TestStore_CreatePostIDsAreSequential(t *testing.T) {
	store, first := newTestStore(t)
	assert.Equal(t, uint64(0), first)

	second, err := store.CreatePost("alice", "ipfs://ref2", "", "news", now)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), second)

	assert.Equal(t, []uint64{0, 1}, store.PostsByAuthor("alice"))

	post, err := store.Post(first)
	require.NoError(t, err)
	assert.Equal(t, domain.ModerationNone, post.ModerationStatus)
	assert.Equal(t, domain.Identity("alice"), post.Author)
}

func TestStore_CreatePostRequiresRegistration(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.CreatePost("mallory", "ipfs://x", "", "news", now)
	assert.ErrorIs(t, err, domain.ErrNotRegistered)

	// a failed create must not consume an id
	id, err := store.CreatePost("bob", "ipfs://y", "", "news", now)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
}

func TestStore_GetPostNotFound(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.Post(42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_AddComment(t *testing.T) {
	store, post := newTestStore(t)

	id, err := store.AddComment(post, "bob", "First comment!", now)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), id)

	comments, err := store.Comments(post)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "First comment!", comments[0].Content)

	p, err := store.Post(post)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), p.CommentCount)
}

func TestStore_AddCommentFailures(t *testing.T) {
	store, post := newTestStore(t)

	_, err := store.AddComment(99, "bob", "hi", now)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.AddComment(post, "mallory", "hi", now)
	assert.ErrorIs(t, err, domain.ErrNotRegistered)

	_, err = store.AddComment(post, "bob", strings.Repeat("a", 2001), now)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = store.AddComment(post, "bob", "  ", now)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	p, err := store.Post(post)
	require.NoError(t, err)
	assert.Zero(t, p.CommentCount)
}

func TestStore_LikeUnlikeRoundTrip(t *testing.T) {
	store, post := newTestStore(t)

	require.NoError(t, store.Like(post, "bob", now))
	require.NoError(t, store.Like(post, "alice", now))
	assert.ErrorIs(t, store.Like(post, "bob", now), domain.ErrAlreadyLiked)

	p, _ := store.Post(post)
	assert.Equal(t, uint64(2), p.LikeCount)
	assert.True(t, store.HasLiked(post, "bob"))

	require.NoError(t, store.Unlike(post, "bob", now))
	assert.ErrorIs(t, store.Unlike(post, "bob", now), domain.ErrNotLiked)

	p, _ = store.Post(post)
	assert.Equal(t, uint64(1), p.LikeCount)
	assert.False(t, store.HasLiked(post, "bob"))

	assert.ErrorIs(t, store.Like(7, "bob", now), domain.ErrNotFound)
}

func TestStore_TransitionFollowsGraph(t *testing.T) {
	store, post := newTestStore(t)

	assert.ErrorIs(t, store.Transition(post, domain.ModerationUnderVote), domain.ErrInvalidState)
	require.NoError(t, store.Transition(post, domain.ModerationFlagged))
	require.NoError(t, store.Transition(post, domain.ModerationUnderVote))
	require.NoError(t, store.Transition(post, domain.ModerationRemoved))
	assert.ErrorIs(t, store.Transition(post, domain.ModerationNone), domain.ErrInvalidState)
}

type recorder struct {
	events []domain.Event
}

func (r *recorder) Record(e domain.Event) { r.events = append(r.events, e) }

func TestStore_CreatePostEventMatchesStoredPost(t *testing.T) {
	rec := &recorder{}
	store := New(registered{"alice": true}, rec)

	id, err := store.CreatePost("alice", "ipfs://ref", "", "  news \n", now)
	require.NoError(t, err)

	post, err := store.Post(id)
	require.NoError(t, err)
	assert.Equal(t, "news", post.Category)

	require.Len(t, rec.events, 1)
	assert.Equal(t, domain.EventPostCreated, rec.events[0].Kind)
	assert.Equal(t, post.Category, rec.events[0].Data["category"])
	assert.Equal(t, post.ContentRef, rec.events[0].Data["contentRef"])
}
