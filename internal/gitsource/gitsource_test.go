package gitsource

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRemote(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"https://github.com/me/deck.git", true},
		{"https://github.com/me/deck", true},
		{"git@github.com:me/deck.git", true},
		{"/srv/decks/deck.git", true},
		{"/home/me/notes", false},
		{"notes", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsRemote(tt.path), tt.path)
	}
}

func TestLocalPath(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{"https", "https://github.com/me/deck.git", filepath.Join("repos", "github.com", "me", "deck"), false},
		{"https without suffix", "https://gitlab.com/team/cards", filepath.Join("repos", "gitlab.com", "team", "cards"), false},
		{"scp", "git@github.com:me/deck.git", filepath.Join("repos", "github.com", "me", "deck"), false},
		{"plain word", "deck", "", true},
		{"scp without user", "github.com:me/deck.git", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LocalPath("repos", tt.url)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSyncer_CloneThenPull(t *testing.T) {
	// go-git serves file:// remotes through the git binary.
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}

	upstream := t.TempDir()
	repo, err := git.PlainInit(upstream, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(upstream, "deck.md"), []byte("Q: one\nA: 1\n"), 0o644))
	_, err = wt.Add("deck.md")
	require.NoError(t, err)
	_, err = wt.Commit("add deck", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com"},
	})
	require.NoError(t, err)

	checkout := filepath.Join(t.TempDir(), "clones", "deck")
	s := NewSyncer(nil, nil)
	ctx := context.Background()

	require.NoError(t, s.Sync(ctx, upstream, checkout))
	data, err := os.ReadFile(filepath.Join(checkout, "deck.md"))
	require.NoError(t, err)
	assert.Equal(t, "Q: one\nA: 1\n", string(data))

	// A second sync with nothing new upstream is not an error.
	require.NoError(t, s.Sync(ctx, upstream, checkout))
}
