package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/resurface/internal/domain"
)

func TestParseQuality(t *testing.T) {
	tests := []struct {
		in      string
		want    domain.Quality
		wantErr bool
	}{
		{"1", domain.Blackout, false},
		{"3", domain.IncorrectEasy, false},
		{" 5\n", domain.Perfect, false},
		{"0", 0, true},
		{"6", 0, true},
		{"-2", 0, true},
		{"", 0, true},
		{"good", 0, true},
		{"4.5", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseQuality(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidQuality)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
