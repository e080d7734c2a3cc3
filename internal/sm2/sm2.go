package sm2

import (
	"math"
	"time"

	"github.com/conorfennell/resurface/internal/domain"
)

const day = 24 * time.Hour

// MaximumScheduleDays bounds how far ahead any review is scheduled, whatever
// the settings, so the next review date stays representable.
const MaximumScheduleDays = 36500

// Settings holds the tunable parameters of the SM-2 scheduler.
type Settings struct {
	MinimumEasinessFactor float64 // floor for the easiness factor
	IntervalModifier      float64 // length of a scheduled "day" in days; <1 compresses schedules
	MaximumInterval       int     // cap in days; 0 or anything above MaximumScheduleDays means MaximumScheduleDays
}

// DefaultSettings provides the classic SuperMemo-2 parameters.
func DefaultSettings() Settings {
	return Settings{
		MinimumEasinessFactor: 1.3,
		IntervalModifier:      1.0,
		MaximumInterval:       36500,
	}
}

// Scheduler implements the SuperMemo-2 update rule.
type Scheduler struct {
	settings Settings
}

// New creates an SM-2 scheduler.
func New(settings Settings) *Scheduler {
	return &Scheduler{settings: settings}
}

// Settings returns the parameters the scheduler was built with.
func (s *Scheduler) Settings() Settings {
	return s.settings
}

// UpdateReview applies one review of the given quality at now and returns the
// item's new state. The quality is not range checked.
func (s *Scheduler) UpdateReview(item domain.ReviewItem, quality domain.Quality, now time.Time) domain.ReviewItem {
	if quality.Passed() {
		item.Interval = nextInterval(item.Repetitions, item.Interval, item.EasinessFactor)
		item.Repetitions++
	} else {
		item.Repetitions = 0
		item.Interval = 1
	}
	if limit := s.settings.maximumInterval(); item.Interval > limit {
		item.Interval = limit
	}

	item.EasinessFactor = NextEasinessFactor(item.EasinessFactor, quality, s.settings.MinimumEasinessFactor)

	item.LastReviewDate = now
	item.NextReviewDate = now.Add(scheduleDelay(item.Interval, s.settings.IntervalModifier))
	return item
}

func (s Settings) maximumInterval() int {
	if s.MaximumInterval <= 0 || s.MaximumInterval > MaximumScheduleDays {
		return MaximumScheduleDays
	}
	return s.MaximumInterval
}

// scheduleDelay scales interval by modifier, clamped to
// [0, MaximumScheduleDays] days before converting to a Duration.
func scheduleDelay(interval int, modifier float64) time.Duration {
	days := float64(interval) * modifier
	switch {
	case math.IsNaN(days) || days < 0:
		days = 0
	case days > MaximumScheduleDays:
		days = MaximumScheduleDays
	}
	return time.Duration(days * float64(day))
}

// nextInterval uses the easiness factor from before the current review.
func nextInterval(repetitions, interval int, ef float64) int {
	switch repetitions {
	case 0:
		return 1
	case 1:
		return 6
	default:
		return int(math.Round(float64(interval) * ef))
	}
}

// NextEasinessFactor returns EF + 0.1 - (5-q)(0.08 + (5-q)0.02), floored at
// minimum. There is no upper bound.
func NextEasinessFactor(ef float64, quality domain.Quality, minimum float64) float64 {
	miss := float64(5 - quality)
	ef += 0.1 - miss*(0.08+miss*0.02)
	return math.Max(ef, minimum)
}
