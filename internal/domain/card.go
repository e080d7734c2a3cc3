package domain

import "time"

// Card represents a single question-answer-context entry parsed from a deck.
type Card struct {
	Question string
	Answer   string
	Context  string
	Hash     string
}

// ReviewLog records a single review event for an item.
// Quality is the learner's self-assessed recall on the 1-5 scale.
type ReviewLog struct {
	ItemID    string
	Timestamp time.Time
	Quality   Quality
	Algorithm string
}
