package review

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/resurface/internal/domain"
	"github.com/conorfennell/resurface/internal/sm2"
)

type memoryStore struct {
	saved []domain.ReviewItem
	logs  []domain.ReviewLog
	err   error
}

func (m *memoryStore) RecordReview(_ context.Context, item domain.ReviewItem, log domain.ReviewLog) (domain.ReviewItem, error) {
	if m.err != nil {
		return domain.ReviewItem{}, m.err
	}
	m.saved = append(m.saved, item)
	m.logs = append(m.logs, log)
	return item, nil
}

type fixedQuality struct {
	quality domain.Quality
	seen    []string
	err     error
}

func (f *fixedQuality) Rate(_ context.Context, item domain.ReviewItem) (domain.Quality, error) {
	f.seen = append(f.seen, item.ID)
	return f.quality, f.err
}

func clock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func dueItems(ids ...string) []domain.ReviewItem {
	var items []domain.ReviewItem
	for _, id := range ids {
		items = append(items, domain.NewItem(domain.ItemFields{ID: id, Question: "q " + id}, today.Add(-time.Hour)))
	}
	return items
}

func TestSession_RunReviewsEveryDueItem(t *testing.T) {
	store := &memoryStore{}
	source := &fixedQuality{quality: domain.Perfect}
	items := dueItems("a", "b", "c")
	items = append(items, itemDue("later", today.Add(time.Hour)))

	s := NewSession(items, sm2.New(sm2.DefaultSettings()), store,
		WithClock(clock(today)), WithAlgorithm(AlgorithmSM2))
	summary, err := s.Run(context.Background(), source)

	require.NoError(t, err)
	assert.Equal(t, Summary{Reviewed: 3, Remaining: 0}, summary)
	assert.Equal(t, []string{"a", "b", "c"}, source.seen)
	require.Len(t, store.logs, 3)
	assert.Equal(t, domain.Perfect, store.logs[0].Quality)
	assert.Equal(t, today, store.logs[0].Timestamp)
	assert.Equal(t, AlgorithmSM2, store.logs[0].Algorithm)

	for _, it := range s.Items()[:3] {
		assert.Equal(t, 1, it.Repetitions)
		assert.Equal(t, today.Add(24*time.Hour), it.NextReviewDate)
	}
	assert.Equal(t, 4, len(items), "the caller's slice is not modified")
	assert.Equal(t, 0, items[0].Repetitions)
}

func TestSession_Limit(t *testing.T) {
	source := &fixedQuality{quality: domain.Perfect}
	s := NewSession(dueItems("a", "b", "c"), sm2.New(sm2.DefaultSettings()), &memoryStore{},
		WithClock(clock(today)), WithLimit(2))

	summary, err := s.Run(context.Background(), source)
	require.NoError(t, err)
	assert.Equal(t, Summary{Reviewed: 2, Remaining: 1, CapReached: true}, summary)

	_, ok := s.Next()
	assert.False(t, ok)
}

// With a zero interval modifier a passed item is immediately due again, so
// the first-due policy keeps presenting the first item and never reaches the
// others before the cap.
func TestSession_FirstPolicyCanStarveLaterItems(t *testing.T) {
	settings := sm2.Settings{MinimumEasinessFactor: 1.3, IntervalModifier: 0}
	source := &fixedQuality{quality: domain.Perfect}
	s := NewSession(dueItems("a", "b"), sm2.New(settings), &memoryStore{},
		WithClock(clock(today)), WithLimit(3))

	_, err := s.Run(context.Background(), source)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a", "a"}, source.seen)
}

func TestSession_SoonestPolicy(t *testing.T) {
	items := []domain.ReviewItem{
		itemDue("recent", today.Add(-time.Hour)),
		itemDue("old", today.Add(-72*time.Hour)),
	}
	s := NewSession(items, sm2.New(sm2.DefaultSettings()), nil,
		WithClock(clock(today)), WithPolicy(PolicySoonest))

	next, ok := s.Next()
	require.True(t, ok)
	assert.Equal(t, "old", next.ID)
}

// Items not yet persisted share the empty id; the rating must land on the
// item that was presented.
func TestSession_RunUpdatesPresentedItemWithoutID(t *testing.T) {
	items := []domain.ReviewItem{
		itemDue("", today.Add(time.Hour)),
		itemDue("", today.Add(-time.Hour)),
	}
	items[0].Question = "later"
	items[1].Question = "due"
	store := &memoryStore{}
	source := &fixedQuality{quality: domain.Perfect}

	s := NewSession(items, sm2.New(sm2.DefaultSettings()), store, WithClock(clock(today)), WithLimit(0))
	summary, err := s.Run(context.Background(), source)
	require.NoError(t, err)
	assert.Equal(t, Summary{Reviewed: 1, Remaining: 0}, summary)

	require.Len(t, store.saved, 1)
	assert.Equal(t, "due", store.saved[0].Question)

	got := s.Items()
	assert.Equal(t, 0, got[0].Repetitions, "the item that was not due is untouched")
	assert.Equal(t, today.Add(time.Hour), got[0].NextReviewDate)
	assert.Equal(t, 1, got[1].Repetitions)
	assert.Equal(t, today.Add(24*time.Hour), got[1].NextReviewDate)
}

func TestSession_AnswerEmptyID(t *testing.T) {
	s := NewSession([]domain.ReviewItem{itemDue("", today)}, sm2.New(sm2.DefaultSettings()), &memoryStore{},
		WithClock(clock(today)))
	_, err := s.Answer(context.Background(), "", domain.Perfect)
	assert.ErrorIs(t, err, ErrItemNotFound)
	assert.Zero(t, s.Summary().Reviewed)
}

func TestSession_AnswerUnknownItem(t *testing.T) {
	s := NewSession(dueItems("a"), sm2.New(sm2.DefaultSettings()), &memoryStore{}, WithClock(clock(today)))
	_, err := s.Answer(context.Background(), "missing", domain.Perfect)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestSession_StoreError(t *testing.T) {
	boom := errors.New("disk full")
	s := NewSession(dueItems("a"), sm2.New(sm2.DefaultSettings()), &memoryStore{err: boom}, WithClock(clock(today)))

	_, err := s.Answer(context.Background(), "a", domain.Perfect)
	require.ErrorIs(t, err, boom)

	next, ok := s.Next()
	require.True(t, ok, "a failed save leaves the item due")
	assert.Equal(t, 0, next.Repetitions)
	assert.Equal(t, 0, s.Summary().Reviewed)
}

func TestSession_QualitySourceError(t *testing.T) {
	quit := errors.New("quit")
	s := NewSession(dueItems("a", "b"), sm2.New(sm2.DefaultSettings()), &memoryStore{}, WithClock(clock(today)))

	summary, err := s.Run(context.Background(), &fixedQuality{err: quit})
	assert.ErrorIs(t, err, quit)
	assert.Equal(t, 0, summary.Reviewed)
	assert.Equal(t, 2, summary.Remaining)
}

func TestSession_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewSession(dueItems("a"), sm2.New(sm2.DefaultSettings()), &memoryStore{}, WithClock(clock(today)))

	_, err := s.Run(ctx, &fixedQuality{quality: domain.Perfect})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSession_NothingDue(t *testing.T) {
	s := NewSession([]domain.ReviewItem{itemDue("a", today.Add(time.Hour))},
		sm2.New(sm2.DefaultSettings()), &memoryStore{}, WithClock(clock(today)))

	summary, err := s.Run(context.Background(), &fixedQuality{quality: domain.Perfect})
	require.NoError(t, err)
	assert.Equal(t, Summary{}, summary)
}
