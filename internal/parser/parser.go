// Package parser reads flashcard decks written in markdown.
//
// A card starts with a "Q:" line and may carry "A:" and "C:" blocks. Blocks
// continue over following lines until the next prefix, and a "---" line ends
// the current card.
package parser

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/conorfennell/resurface/internal/domain"
)

const (
	questionPrefix = "Q:"
	answerPrefix   = "A:"
	contextPrefix  = "C:"
	separator      = "---"
)

type state int

const (
	seeking state = iota
	readingQuestion
	readingAnswer
	readingContext
)

// ParseFile reads a file from the given path and extracts all cards.
func ParseFile(path string) ([]domain.Card, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads from an io.Reader and extracts all cards.
func Parse(r io.Reader) ([]domain.Card, error) {
	scanner := bufio.NewScanner(r)
	var cards []domain.Card
	var currentCard domain.Card
	var currentBlock []string
	currentState := seeking

	// flushBlock assigns the accumulated lines to the field being read.
	flushBlock := func() {
		if len(currentBlock) == 0 {
			return
		}
		content := strings.Join(currentBlock, "\n")
		switch currentState {
		case readingQuestion:
			currentCard.Question = content
		case readingAnswer:
			currentCard.Answer = content
		case readingContext:
			currentCard.Context = content
		}
		currentBlock = nil
	}

	finishCard := func() {
		flushBlock()
		// Blank lines between blocks are not part of the field.
		currentCard.Question = strings.TrimRight(currentCard.Question, "\n")
		currentCard.Answer = strings.TrimRight(currentCard.Answer, "\n")
		currentCard.Context = strings.TrimRight(currentCard.Context, "\n")
		if currentCard.Question != "" {
			cards = append(cards, currentCard)
		}
		currentCard = domain.Card{}
		currentState = seeking
	}

	for scanner.Scan() {
		line := scanner.Text()

		if line == separator {
			finishCard()
			continue
		}

		next, content, ok := splitPrefix(line)
		if !ok {
			if currentState != seeking {
				currentBlock = append(currentBlock, line)
			}
			continue
		}

		flushBlock()
		if next == readingQuestion && currentState != seeking { // A new question always starts a new card
			finishCard()
		}
		currentState = next
		currentBlock = append(currentBlock, content)
	}

	finishCard() // Finish the very last card in the file

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return cards, nil
}

// splitPrefix reports which block a line opens and its text after the prefix
// and one optional space.
func splitPrefix(line string) (state, string, bool) {
	var next state
	var prefix string
	switch {
	case strings.HasPrefix(line, questionPrefix):
		next, prefix = readingQuestion, questionPrefix
	case strings.HasPrefix(line, answerPrefix):
		next, prefix = readingAnswer, answerPrefix
	case strings.HasPrefix(line, contextPrefix):
		next, prefix = readingContext, contextPrefix
	default:
		return seeking, "", false
	}
	return next, strings.TrimPrefix(line[len(prefix):], " "), true
}
