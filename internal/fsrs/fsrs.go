package fsrs

import (
	"math"
	"time"

	"github.com/conorfennell/resurface/internal/domain"
)

const (
	day = 24 * time.Hour

	// referenceRetention is the recall probability stability is measured against.
	referenceRetention = 0.9

	minDifficulty = 1.0
	maxDifficulty = 10.0
	minStability  = 0.1

	// MaximumInterval caps scheduled intervals, in days, so review dates stay
	// representable. Stability replaces a non-finite growth result with it.
	MaximumInterval = 36500
)

// Params holds the parameters for the FSRS-style scheduler.
type Params struct {
	DecayFactor        float64 // damps difficulty drift and scales stability growth
	DifficultyAddition float64 // difficulty added per quality point below 5
	StabilityAddition  float64 // initial stability per quality point
}

// DefaultParams provides the parameters the scheduler ships with.
func DefaultParams() *Params {
	return &Params{
		DecayFactor:        0.9,
		DifficultyAddition: 0.2,
		StabilityAddition:  0.2,
	}
}

// UpdateReview applies one review of the given quality at currentDate and
// returns the item's new state. A zero currentDate means now. The quality is
// not range checked.
func (p *Params) UpdateReview(item domain.ReviewItem, quality domain.Quality, currentDate time.Time) domain.ReviewItem {
	if currentDate.IsZero() {
		currentDate = time.Now()
	}
	elapsedDays := float64(currentDate.Sub(item.LastReviewDate)) / float64(day)

	var difficulty, stability float64
	if !item.Reviewed() {
		difficulty = p.initialDifficulty(quality)
		stability = p.initialStability(quality)
	} else {
		difficulty = p.nextDifficulty(*item.Difficulty, quality)
		stability = p.nextStability(storedStability(*item.Stability), difficulty, quality, elapsedDays)
	}

	item.Difficulty = domain.Float(difficulty)
	item.Stability = domain.Float(stability)
	item.LastReviewDate = currentDate
	item.NextReviewDate = currentDate.Add(time.Duration(NextInterval(stability)) * day)
	return item
}

func (p *Params) initialDifficulty(quality domain.Quality) float64 {
	return clampDifficulty(1 + float64(5-quality)*p.DifficultyAddition)
}

func (p *Params) initialStability(quality domain.Quality) float64 {
	return math.Max(float64(quality)*p.StabilityAddition, minStability)
}

// nextDifficulty drifts slowly: only (1 - DecayFactor) of the addition applies.
func (p *Params) nextDifficulty(difficulty float64, quality domain.Quality) float64 {
	return clampDifficulty(difficulty + float64(5-quality)*p.DifficultyAddition*(1-p.DecayFactor))
}

// nextStability grows stability by how far retrievability has decayed since
// the last review, scaled by exp(11 - difficulty) and the quality.
func (p *Params) nextStability(stability, difficulty float64, quality domain.Quality, elapsedDays float64) float64 {
	r := Retrievability(elapsedDays, stability)
	next := stability * (1 + math.Exp(11-difficulty)*(1/r-1)*p.DecayFactor*(float64(quality)/5))
	if math.IsNaN(next) || math.IsInf(next, 1) {
		next = MaximumInterval
	}
	return math.Max(next, minStability)
}

// storedStability raises a persisted stability that is not positive to the
// floor, so a corrupt row is treated as a barely learned item.
func storedStability(s float64) float64 {
	if math.IsNaN(s) || s < minStability {
		return minStability
	}
	return s
}

// Retrievability estimates the probability of recall after elapsedDays for a
// memory of the given stability.
func Retrievability(elapsedDays, stability float64) float64 {
	return math.Exp(math.Log(referenceRetention) * elapsedDays / stability)
}

// NextInterval converts stability into whole days, always rounding up.
func NextInterval(stability float64) int {
	if stability >= MaximumInterval {
		return MaximumInterval
	}
	return int(math.Ceil(stability))
}

func clampDifficulty(d float64) float64 {
	return math.Min(math.Max(d, minDifficulty), maxDifficulty)
}
