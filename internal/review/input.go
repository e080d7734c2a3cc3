package review

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/conorfennell/resurface/internal/domain"
)

// ErrInvalidQuality is returned for ratings outside 1..5 or non-numeric input.
var ErrInvalidQuality = errors.New("quality must be a number from 1 to 5")

var validate = validator.New()

// ParseQuality reads a learner's rating from user input.
func ParseQuality(s string) (domain.Quality, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidQuality, s)
	}
	if err := validate.Var(n, "min=1,max=5"); err != nil {
		return 0, fmt.Errorf("%w: %d", ErrInvalidQuality, n)
	}
	return domain.Quality(n), nil
}
