package domain

import "time"

// DefaultEasinessFactor is the SM-2 easiness factor of an item that has never
// been reviewed.
const DefaultEasinessFactor = 2.5

// ReviewItem is one learnable fact together with its scheduling state.
//
// Both scheduler variants share the shape: the SM-2 fields and the FSRS
// fields live side by side and each scheduler only reads and writes its own.
// Difficulty and Stability are nil until the first FSRS review. Schedulers
// never write through those pointers, so copies of an item are independent.
type ReviewItem struct {
	ID       string // assigned by the store, "" until persisted
	Question string
	Answer   string
	Context  string
	Hash     string // content hash for items imported from a deck
	SourceID int64

	// SM-2 state.
	EasinessFactor float64
	Interval       int // days
	Repetitions    int

	// FSRS state.
	Difficulty *float64
	Stability  *float64

	LastReviewDate time.Time
	NextReviewDate time.Time
}

// ItemFields is the partially populated shape an item is built from, e.g. a
// row read back from storage or a freshly authored question. Nil fields take
// their defaults in NewItem.
type ItemFields struct {
	ID       string
	Question string
	Answer   string
	Context  string
	Hash     string
	SourceID int64

	EasinessFactor *float64
	Interval       *int
	Repetitions    *int

	Difficulty *float64
	Stability  *float64

	LastReviewDate *time.Time
	NextReviewDate *time.Time
}

// NewItem builds a ReviewItem, filling omitted state with defaults: an
// easiness factor of 2.5, zero interval and repetitions, no FSRS memory state
// and a last review date of now. Without a stored next review date the item
// is due at its last review date, so new items are due immediately.
func NewItem(f ItemFields, now time.Time) ReviewItem {
	item := ReviewItem{
		ID:             f.ID,
		Question:       f.Question,
		Answer:         f.Answer,
		Context:        f.Context,
		Hash:           f.Hash,
		SourceID:       f.SourceID,
		EasinessFactor: DefaultEasinessFactor,
		LastReviewDate: now,
	}
	if f.EasinessFactor != nil {
		item.EasinessFactor = *f.EasinessFactor
	}
	if f.Interval != nil {
		item.Interval = *f.Interval
	}
	if f.Repetitions != nil {
		item.Repetitions = *f.Repetitions
	}
	if f.Difficulty != nil {
		item.Difficulty = Float(*f.Difficulty)
	}
	if f.Stability != nil {
		item.Stability = Float(*f.Stability)
	}
	if f.LastReviewDate != nil && !f.LastReviewDate.IsZero() {
		item.LastReviewDate = *f.LastReviewDate
	}
	item.NextReviewDate = item.LastReviewDate
	if f.NextReviewDate != nil && !f.NextReviewDate.IsZero() {
		item.NextReviewDate = *f.NextReviewDate
	}
	return item
}

// NewCardItem builds a fresh item from a parsed deck card.
func NewCardItem(card Card, sourceID int64, now time.Time) ReviewItem {
	return NewItem(ItemFields{
		Question: card.Question,
		Answer:   card.Answer,
		Context:  card.Context,
		Hash:     card.Hash,
		SourceID: sourceID,
	}, now)
}

// IsDue reports whether the item's next review date is at or before now.
func (it ReviewItem) IsDue(now time.Time) bool {
	return !it.NextReviewDate.After(now)
}

// Reviewed reports whether the item carries FSRS memory state.
func (it ReviewItem) Reviewed() bool {
	return it.Difficulty != nil && it.Stability != nil
}

// Float returns a pointer to a fresh copy of v.
func Float(v float64) *float64 {
	return &v
}
