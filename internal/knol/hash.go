// Package knol derives stable content identities for deck cards, so an edited
// card becomes a new item and an unchanged card keeps its review history.
package knol

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/conorfennell/resurface/internal/domain"
)

// Normalize concatenates the card's content after cleaning each part.
// Each field is lowercased, trimmed and has its line endings normalized
// before the fields are joined with newlines.
func Normalize(card domain.Card) string {
	normalizePart := func(part string) string {
		p := strings.ToLower(part)
		p = strings.TrimSpace(p)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		return p
	}

	q := normalizePart(card.Question)
	a := normalizePart(card.Answer)
	c := normalizePart(card.Context)

	// Joined with a newline so "question" and "answer" never run together.
	return strings.Join([]string{q, a, c}, "\n")
}

// Hash takes a card, normalizes it, and returns its SHA-256 hash as a hex string.
func Hash(card domain.Card) string {
	normalized := Normalize(card)
	hashBytes := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", hashBytes)
}

// WithHash returns cards with their Hash field filled in.
func WithHash(cards []domain.Card) []domain.Card {
	out := make([]domain.Card, len(cards))
	for i, c := range cards {
		c.Hash = Hash(c)
		out[i] = c
	}
	return out
}
