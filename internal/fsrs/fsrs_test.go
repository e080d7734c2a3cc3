package fsrs

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/resurface/internal/domain"
)

var created = time.Date(2025, 2, 10, 18, 30, 0, 0, time.UTC)

func newItem() domain.ReviewItem {
	return domain.NewItem(domain.ItemFields{Question: "Q", Answer: "A"}, created)
}

func reviewedItem(difficulty, stability float64, last time.Time) domain.ReviewItem {
	item := newItem()
	item.Difficulty = domain.Float(difficulty)
	item.Stability = domain.Float(stability)
	item.LastReviewDate = last
	return item
}

func TestUpdateReview_FirstReview(t *testing.T) {
	params := DefaultParams()
	tests := []struct {
		quality    domain.Quality
		difficulty float64
		stability  float64
		interval   int
	}{
		{domain.Perfect, 1.0, 1.0, 1},
		{domain.CorrectHard, 1.2, 0.8, 1},
		{domain.IncorrectEasy, 1.4, 0.6, 1},
		{domain.Incorrect, 1.6, 0.4, 1},
		{domain.Blackout, 1.8, 0.2, 1},
		{domain.Quality(0), 2.0, 0.1, 1},
	}
	for _, tt := range tests {
		now := created.Add(2 * time.Hour)
		got := params.UpdateReview(newItem(), tt.quality, now)

		require.NotNil(t, got.Difficulty)
		require.NotNil(t, got.Stability)
		assert.InDelta(t, tt.difficulty, *got.Difficulty, 1e-9, "quality %d", tt.quality)
		assert.InDelta(t, tt.stability, *got.Stability, 1e-9, "quality %d", tt.quality)
		assert.Equal(t, tt.interval, NextInterval(*got.Stability))
		assert.Equal(t, now, got.LastReviewDate)
		assert.Equal(t, now.Add(time.Duration(tt.interval)*24*time.Hour), got.NextReviewDate)
	}
}

func TestUpdateReview_FirstReviewWhenOnlyOneFieldSet(t *testing.T) {
	item := newItem()
	item.Difficulty = domain.Float(7)

	got := DefaultParams().UpdateReview(item, domain.Perfect, created)
	assert.Equal(t, 1.0, *got.Difficulty, "a missing stability means the item was never reviewed")
	assert.Equal(t, 1.0, *got.Stability)
}

func TestUpdateReview_SubsequentReview(t *testing.T) {
	params := DefaultParams()
	last := created
	now := last.Add(3 * 24 * time.Hour)
	item := reviewedItem(5, 2, last)

	got := params.UpdateReview(item, domain.CorrectHard, now)

	wantDifficulty := 5 + 1*0.2*(1-0.9)
	r := math.Exp(math.Log(0.9) * 3 / 2)
	wantStability := 2 * (1 + math.Exp(11-wantDifficulty)*(1/r-1)*0.9*(4.0/5))

	assert.InDelta(t, wantDifficulty, *got.Difficulty, 1e-9)
	assert.InDelta(t, wantStability, *got.Stability, 1e-6)
	assert.Equal(t, now, got.LastReviewDate)
	assert.Equal(t, now.Add(time.Duration(math.Ceil(wantStability))*24*time.Hour), got.NextReviewDate)
}

func TestUpdateReview_DifficultyClamped(t *testing.T) {
	params := DefaultParams()
	now := created.Add(24 * time.Hour)

	high := params.UpdateReview(reviewedItem(9.99, 5, created), domain.Blackout, now)
	assert.Equal(t, 10.0, *high.Difficulty)

	low := params.UpdateReview(reviewedItem(1, 5, created), domain.Quality(9), now)
	assert.Equal(t, 1.0, *low.Difficulty)
}

func TestUpdateReview_ReviewedAgainImmediately(t *testing.T) {
	// Zero elapsed time gives retrievability 1, so stability does not grow.
	got := DefaultParams().UpdateReview(reviewedItem(5, 4, created), domain.Perfect, created)
	assert.InDelta(t, 4.0, *got.Stability, 1e-9)
	assert.Equal(t, created.Add(4*24*time.Hour), got.NextReviewDate)
}

func TestUpdateReview_StabilityFloor(t *testing.T) {
	// A review dated before the last one yields retrievability above 1 and
	// a negative growth term.
	item := reviewedItem(1, 0.5, created)
	got := DefaultParams().UpdateReview(item, domain.Perfect, created.Add(-10*24*time.Hour))
	assert.Equal(t, 0.1, *got.Stability)
	assert.Equal(t, 1, NextInterval(*got.Stability))
}

func TestUpdateReview_NonPositiveStoredStability(t *testing.T) {
	params := DefaultParams()
	reviewed := created.Add(24 * time.Hour)
	want := params.UpdateReview(reviewedItem(5, minStability, created), domain.CorrectHard, reviewed)

	tests := []struct {
		name      string
		stability float64
	}{
		{"zero", 0},
		{"negative", -3},
		{"nan", math.NaN()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := params.UpdateReview(reviewedItem(5, tt.stability, created), domain.CorrectHard, reviewed)
			require.NotNil(t, got.Stability)
			assert.Equal(t, *want.Stability, *got.Stability)
			assert.Equal(t, want.NextReviewDate, got.NextReviewDate)
			assert.True(t, got.NextReviewDate.Before(reviewed.Add(MaximumInterval*24*time.Hour)))
		})
	}
}

func TestUpdateReview_OverflowIsBounded(t *testing.T) {
	item := reviewedItem(1, 0.1, created)
	now := created.Add(20000 * 24 * time.Hour)
	got := DefaultParams().UpdateReview(item, domain.Perfect, now)

	assert.False(t, math.IsInf(*got.Stability, 0))
	assert.False(t, math.IsNaN(*got.Stability))
	assert.Equal(t, now.Add(MaximumInterval*24*time.Hour), got.NextReviewDate)
}

func TestUpdateReview_StabilityAlwaysPositive(t *testing.T) {
	params := DefaultParams()
	rng := rand.New(rand.NewSource(7))
	item := newItem()
	now := created

	for i := 0; i < 1000; i++ {
		q := domain.Quality(rng.Intn(5) + 1)
		now = now.Add(time.Duration(rng.Intn(24*60)) * time.Hour)
		item = params.UpdateReview(item, q, now)

		require.Greater(t, *item.Stability, 0.0, "review %d", i)
		require.GreaterOrEqual(t, *item.Difficulty, 1.0)
		require.LessOrEqual(t, *item.Difficulty, 10.0)
		require.True(t, item.NextReviewDate.After(now), "review %d", i)
	}
}

func TestUpdateReview_Idempotent(t *testing.T) {
	params := DefaultParams()
	start := reviewedItem(4, 3, created)
	now := created.Add(5 * 24 * time.Hour)

	first := params.UpdateReview(start, domain.IncorrectEasy, now)
	second := params.UpdateReview(start, domain.IncorrectEasy, now)

	assert.Equal(t, *first.Difficulty, *second.Difficulty)
	assert.Equal(t, *first.Stability, *second.Stability)
	assert.Equal(t, first.NextReviewDate, second.NextReviewDate)
	assert.Equal(t, 3.0, *start.Stability, "input item must be left untouched")
}

func TestUpdateReview_ZeroDateMeansNow(t *testing.T) {
	before := time.Now()
	got := DefaultParams().UpdateReview(newItem(), domain.Perfect, time.Time{})
	assert.False(t, got.LastReviewDate.Before(before))
}

func TestUpdateReview_CustomParams(t *testing.T) {
	params := &Params{DecayFactor: 0.5, DifficultyAddition: 1, StabilityAddition: 2}
	got := params.UpdateReview(newItem(), domain.IncorrectEasy, created)
	assert.Equal(t, 3.0, *got.Difficulty)
	assert.Equal(t, 6.0, *got.Stability)

	got = params.UpdateReview(got, domain.IncorrectEasy, created)
	assert.Equal(t, 4.0, *got.Difficulty)
}

func TestRetrievability(t *testing.T) {
	assert.InDelta(t, 1.0, Retrievability(0, 3), 1e-12)
	assert.InDelta(t, 0.9, Retrievability(3, 3), 1e-12)
	assert.InDelta(t, 0.81, Retrievability(6, 3), 1e-12)
}

func TestNextInterval(t *testing.T) {
	assert.Equal(t, 1, NextInterval(0.1))
	assert.Equal(t, 1, NextInterval(1.0))
	assert.Equal(t, 16, NextInterval(15.5))
	assert.Equal(t, 16, NextInterval(15.01))
	assert.Equal(t, MaximumInterval, NextInterval(1e9))
}
