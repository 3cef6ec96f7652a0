// Package content holds posts, comments and likes.
package content

import (
	"strings"
	"time"

	"github.com/UkralStul/agora/internal/domain"
)

const maxCommentLength = 2000

// Registrations is the slice of the user registry the store needs.
type Registrations interface {
	IsRegistered(id domain.Identity) bool
}

type likeKey struct {
	postID uint64
	id     domain.Identity
}

// Store keeps posts in id order. Ids are slice indexes, so they start at 0
// and are never reused. Not safe for concurrent use.
type Store struct {
	users  Registrations
	events domain.EventSink

	posts          []*domain.Post
	comments       []*domain.Comment
	commentsByPost map[uint64][]uint64
	postsByAuthor  map[domain.Identity][]uint64
	likes          map[likeKey]bool
}

func New(users Registrations, events domain.EventSink) *Store {
	if events == nil {
		events = domain.NopSink{}
	}
	return &Store{
		users:          users,
		events:         events,
		commentsByPost: make(map[uint64][]uint64),
		postsByAuthor:  make(map[domain.Identity][]uint64),
		likes:          make(map[likeKey]bool),
	}
}

// === Post Methods ===

func (s *Store) CreatePost(author domain.Identity, contentRef, metadataRef, category string, now time.Time) (uint64, error) {
	if !s.users.IsRegistered(author) {
		return 0, domain.Errorf(domain.KindNotRegistered, "%s is not registered", author)
	}
	if strings.TrimSpace(contentRef) == "" {
		return 0, domain.Errorf(domain.KindInvalidArgument, "content reference cannot be empty")
	}

	category = strings.TrimSpace(category)
	id := uint64(len(s.posts))
	s.posts = append(s.posts, &domain.Post{
		ID:               id,
		Author:           author,
		ContentRef:       contentRef,
		MetadataRef:      metadataRef,
		Category:         category,
		CreatedAt:        now,
		ModerationStatus: domain.ModerationNone,
	})
	s.postsByAuthor[author] = append(s.postsByAuthor[author], id)

	s.events.Record(domain.NewEvent(domain.EventPostCreated, "post", id, author, now, map[string]any{
		"contentRef": contentRef,
		"category":   category,
	}))
	return id, nil
}

func (s *Store) Post(id uint64) (domain.Post, error) {
	p, err := s.post(id)
	if err != nil {
		return domain.Post{}, err
	}
	return *p, nil
}

// PostsByAuthor returns the author's post ids in creation order.
func (s *Store) PostsByAuthor(author domain.Identity) []uint64 {
	return append([]uint64(nil), s.postsByAuthor[author]...)
}

// Transition moves a post along the moderation graph. Only the moderation
// engine calls it.
func (s *Store) Transition(postID uint64, to domain.ModerationStatus) error {
	p, err := s.post(postID)
	if err != nil {
		return err
	}
	if !p.ModerationStatus.CanTransition(to) {
		return domain.Errorf(domain.KindInvalidState, "post %d cannot move from %s to %s", postID, p.ModerationStatus, to)
	}
	p.ModerationStatus = to
	return nil
}

// === Comment Methods ===

func (s *Store) AddComment(postID uint64, author domain.Identity, content string, now time.Time) (uint64, error) {
	post, err := s.post(postID)
	if err != nil {
		return 0, err
	}
	if !s.users.IsRegistered(author) {
		return 0, domain.Errorf(domain.KindNotRegistered, "%s is not registered", author)
	}
	if len(content) > maxCommentLength {
		return 0, domain.Errorf(domain.KindInvalidArgument, "comment content is too long")
	}
	if strings.TrimSpace(content) == "" {
		return 0, domain.Errorf(domain.KindInvalidArgument, "comment content cannot be empty")
	}

	id := uint64(len(s.comments))
	s.comments = append(s.comments, &domain.Comment{
		ID:        id,
		PostID:    postID,
		Author:    author,
		Content:   content,
		CreatedAt: now,
	})
	s.commentsByPost[postID] = append(s.commentsByPost[postID], id)
	post.CommentCount++

	s.events.Record(domain.NewEvent(domain.EventCommentAdded, "comment", id, author, now, map[string]any{
		"postId": postID,
	}))
	return id, nil
}

// Comments returns the post's comments in the order they were added.
func (s *Store) Comments(postID uint64) ([]domain.Comment, error) {
	if _, err := s.post(postID); err != nil {
		return nil, err
	}
	ids := s.commentsByPost[postID]
	out := make([]domain.Comment, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.comments[id])
	}
	return out, nil
}

// === Like Methods ===

func (s *Store) Like(postID uint64, id domain.Identity, now time.Time) error {
	post, err := s.post(postID)
	if err != nil {
		return err
	}
	key := likeKey{postID: postID, id: id}
	if s.likes[key] {
		return domain.Errorf(domain.KindAlreadyLiked, "%s already liked post %d", id, postID)
	}
	s.likes[key] = true
	post.LikeCount++
	s.events.Record(domain.NewEvent(domain.EventPostLiked, "post", postID, id, now, nil))
	return nil
}

func (s *Store) Unlike(postID uint64, id domain.Identity, now time.Time) error {
	post, err := s.post(postID)
	if err != nil {
		return err
	}
	key := likeKey{postID: postID, id: id}
	if !s.likes[key] {
		return domain.Errorf(domain.KindNotLiked, "%s has not liked post %d", id, postID)
	}
	if post.LikeCount == 0 {
		// likes and LikeCount move in lock-step; reaching this means the store is corrupt.
		return domain.Errorf(domain.KindInvalidState, "post %d like count underflow", postID)
	}
	delete(s.likes, key)
	post.LikeCount--
	s.events.Record(domain.NewEvent(domain.EventPostUnliked, "post", postID, id, now, nil))
	return nil
}

func (s *Store) HasLiked(postID uint64, id domain.Identity) bool {
	return s.likes[likeKey{postID: postID, id: id}]
}

func (s *Store) post(id uint64) (*domain.Post, error) {
	if id >= uint64(len(s.posts)) {
		return nil, domain.Errorf(domain.KindNotFound, "post %d not found", id)
	}
	return s.posts[id], nil
}
