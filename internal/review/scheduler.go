// Package review ties the schedulers to a collection of items: strategy
// selection, due-item selection and caller-owned review sessions.
package review

import (
	"errors"
	"fmt"
	"time"

	"github.com/conorfennell/resurface/internal/domain"
	"github.com/conorfennell/resurface/internal/fsrs"
	"github.com/conorfennell/resurface/internal/sm2"
)

// Algorithm names accepted by NewScheduler.
const (
	AlgorithmSM2  = "sm2"
	AlgorithmFSRS = "fsrs"
)

// ErrUnknownAlgorithm is returned by NewScheduler for an unrecognized name.
var ErrUnknownAlgorithm = errors.New("unknown scheduling algorithm")

// Scheduler computes an item's next state from a review.
// Implementations are pure given now and safe to share between goroutines.
type Scheduler interface {
	UpdateReview(item domain.ReviewItem, quality domain.Quality, now time.Time) domain.ReviewItem
}

// NewScheduler returns the scheduler registered under algorithm.
func NewScheduler(algorithm string, sm2Settings sm2.Settings, fsrsParams fsrs.Params) (Scheduler, error) {
	switch algorithm {
	case AlgorithmSM2:
		return sm2.New(sm2Settings), nil
	case AlgorithmFSRS:
		p := fsrsParams
		return &p, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algorithm)
	}
}
