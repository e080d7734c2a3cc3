package review

import (
	"fmt"
	"time"

	"github.com/conorfennell/resurface/internal/domain"
)

// Policy selects which due item a session presents next.
type Policy string

const (
	// PolicyFirst picks the first due item in collection order. Because a
	// session rescans from the start after every answer, items near the front
	// that keep falling due again can starve later ones.
	PolicyFirst Policy = "first"
	// PolicySoonest picks the due item with the earliest next review date.
	PolicySoonest Policy = "soonest"
)

// ParsePolicy validates a policy name. The empty string maps to PolicyFirst.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyFirst:
		return PolicyFirst, nil
	case PolicySoonest:
		return PolicySoonest, nil
	default:
		return "", fmt.Errorf("unknown selection policy %q", s)
	}
}

// Select returns the index of the item the policy picks, or -1.
func (p Policy) Select(items []domain.ReviewItem, now time.Time) int {
	if p == PolicySoonest {
		return SoonestDue(items, now)
	}
	return NextDue(items, now)
}

// NextDue returns the index of the first item, in slice order, whose next
// review date is at or before now. It returns -1 if nothing is due.
// This is not the most overdue item: the result depends on the order of items.
func NextDue(items []domain.ReviewItem, now time.Time) int {
	for i := range items {
		if items[i].IsDue(now) {
			return i
		}
	}
	return -1
}

// SoonestDue returns the index of the due item with the earliest next review
// date, preferring the earlier index on ties. It returns -1 if nothing is due.
func SoonestDue(items []domain.ReviewItem, now time.Time) int {
	best := -1
	for i := range items {
		if !items[i].IsDue(now) {
			continue
		}
		if best == -1 || items[i].NextReviewDate.Before(items[best].NextReviewDate) {
			best = i
		}
	}
	return best
}

// CountDue returns how many items are due at now.
func CountDue(items []domain.ReviewItem, now time.Time) int {
	n := 0
	for i := range items {
		if items[i].IsDue(now) {
			n++
		}
	}
	return n
}
