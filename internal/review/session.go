package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/conorfennell/resurface/internal/domain"
)

// DefaultLimit is the number of reviews a session allows unless told otherwise.
const DefaultLimit = 20

// ErrItemNotFound is returned when an answer names an item the session does
// not hold.
var ErrItemNotFound = errors.New("item not found in session")

// Store persists the outcome of a review. It returns the item as stored.
type Store interface {
	RecordReview(ctx context.Context, item domain.ReviewItem, log domain.ReviewLog) (domain.ReviewItem, error)
}

// QualitySource presents an item to the learner and returns their rating.
type QualitySource interface {
	Rate(ctx context.Context, item domain.ReviewItem) (domain.Quality, error)
}

// Summary describes how a session ended.
type Summary struct {
	Reviewed   int
	Remaining  int // items still due when the session ended
	CapReached bool
}

// Session is one review sitting over a collection the caller loaded. It owns a
// copy of the items for its lifetime. A Session is not safe for concurrent use.
type Session struct {
	items     []domain.ReviewItem
	scheduler Scheduler
	algorithm string
	store     Store
	policy    Policy
	limit     int
	reviewed  int
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithLimit caps the number of reviews in the session. Zero means no cap.
func WithLimit(n int) Option {
	return func(s *Session) { s.limit = n }
}

// WithPolicy sets the due-item selection policy.
func WithPolicy(p Policy) Option {
	return func(s *Session) { s.policy = p }
}

// WithClock overrides the session's time source.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithLogger sets the logger used for per-review debug output.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithAlgorithm records the algorithm name in review logs.
func WithAlgorithm(name string) Option {
	return func(s *Session) { s.algorithm = name }
}

// NewSession starts a session over a copy of items.
func NewSession(items []domain.ReviewItem, scheduler Scheduler, store Store, opts ...Option) *Session {
	s := &Session{
		items:     append([]domain.ReviewItem(nil), items...),
		scheduler: scheduler,
		store:     store,
		policy:    PolicyFirst,
		limit:     DefaultLimit,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Next returns the item to review next. It reports false when nothing is due
// or the session cap has been reached.
func (s *Session) Next() (domain.ReviewItem, bool) {
	i := s.next()
	if i < 0 {
		return domain.ReviewItem{}, false
	}
	return s.items[i], true
}

func (s *Session) next() int {
	if s.CapReached() {
		return -1
	}
	return s.policy.Select(s.items, s.now())
}

// Answer schedules the item with the given id, persists it and replaces the
// session's copy with the stored result. Items without an id cannot be
// answered by id.
func (s *Session) Answer(ctx context.Context, id string, quality domain.Quality) (domain.ReviewItem, error) {
	i := s.indexOf(id)
	if id == "" || i < 0 {
		return domain.ReviewItem{}, fmt.Errorf("%w: %q", ErrItemNotFound, id)
	}
	return s.answerAt(ctx, i, quality)
}

// answerAt reviews the item at index i of the session's slice.
func (s *Session) answerAt(ctx context.Context, i int, quality domain.Quality) (domain.ReviewItem, error) {
	id := s.items[i].ID
	now := s.now()
	updated := s.scheduler.UpdateReview(s.items[i], quality, now)

	if s.store != nil {
		stored, err := s.store.RecordReview(ctx, updated, domain.ReviewLog{
			ItemID:    id,
			Timestamp: now,
			Quality:   quality,
			Algorithm: s.algorithm,
		})
		if err != nil {
			return domain.ReviewItem{}, fmt.Errorf("failed to record review of %s: %w", id, err)
		}
		updated = stored
	}

	s.items[i] = updated
	s.reviewed++
	s.logger.Debug("item reviewed",
		"id", id,
		"quality", int(quality),
		"next_review", updated.NextReviewDate,
		"reviewed", s.reviewed,
	)
	return updated, nil
}

// Run drives the session until nothing is due, the cap is reached, the
// quality source fails or ctx is cancelled.
func (s *Session) Run(ctx context.Context, source QualitySource) (Summary, error) {
	for {
		if err := ctx.Err(); err != nil {
			return s.Summary(), err
		}
		i := s.next()
		if i < 0 {
			return s.Summary(), nil
		}
		quality, err := source.Rate(ctx, s.items[i])
		if err != nil {
			return s.Summary(), fmt.Errorf("failed to rate item %s: %w", s.items[i].ID, err)
		}
		if _, err := s.answerAt(ctx, i, quality); err != nil {
			return s.Summary(), err
		}
	}
}

// Summary reports the session's progress so far.
func (s *Session) Summary() Summary {
	return Summary{
		Reviewed:   s.reviewed,
		Remaining:  CountDue(s.items, s.now()),
		CapReached: s.CapReached(),
	}
}

// CapReached reports whether the session has used up its review allowance.
func (s *Session) CapReached() bool {
	return s.limit > 0 && s.reviewed >= s.limit
}

// Items returns a copy of the session's current items.
func (s *Session) Items() []domain.ReviewItem {
	return append([]domain.ReviewItem(nil), s.items...)
}

func (s *Session) indexOf(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}
