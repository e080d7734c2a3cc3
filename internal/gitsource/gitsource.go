// Package gitsource keeps local checkouts of remote deck repositories.
package gitsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
)

// ErrUnsupportedURL is returned when a repository URL cannot be mapped to a
// local directory.
var ErrUnsupportedURL = errors.New("unsupported git url")

// IsRemote reports whether path names a git repository rather than a local
// directory.
func IsRemote(path string) bool {
	return strings.HasSuffix(path, ".git") ||
		strings.HasPrefix(path, "git@") ||
		strings.HasPrefix(path, "https://") ||
		strings.HasPrefix(path, "http://")
}

// LocalPath maps a repository URL to its checkout directory under baseDir,
// e.g. https://github.com/me/deck.git -> baseDir/github.com/me/deck and
// git@github.com:me/deck.git -> baseDir/github.com/me/deck.
func LocalPath(baseDir, repoURL string) (string, error) {
	u, err := url.Parse(repoURL)
	if err == nil && (u.Scheme == "https" || u.Scheme == "http") && u.Host != "" {
		return filepath.Join(baseDir, u.Host, strings.TrimSuffix(u.Path, ".git")), nil
	}

	// scp-like syntax: user@host:path
	userHost, repoPath, ok := strings.Cut(repoURL, ":")
	if !ok || strings.Contains(repoPath, ":") {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedURL, repoURL)
	}
	_, host, ok := strings.Cut(userHost, "@")
	if !ok || host == "" || repoPath == "" {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedURL, repoURL)
	}
	return filepath.Join(baseDir, host, strings.TrimSuffix(repoPath, ".git")), nil
}

// Syncer clones or pulls repositories.
type Syncer struct {
	logger   *slog.Logger
	progress io.Writer
}

// NewSyncer returns a Syncer. progress receives go-git's transfer output and
// may be nil.
func NewSyncer(logger *slog.Logger, progress io.Writer) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{logger: logger, progress: progress}
}

// Sync clones url into localPath if it doesn't exist there yet,
// or pulls the latest changes if it does.
func (s *Syncer) Sync(ctx context.Context, url, localPath string) error {
	_, err := os.Stat(localPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.logger.Info("cloning repository", "url", url, "path", localPath)
		if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
			return fmt.Errorf("failed to create parent of %s: %w", localPath, err)
		}
		_, err := git.PlainCloneContext(ctx, localPath, false, &git.CloneOptions{
			URL:      url,
			Progress: s.progress,
		})
		if err != nil {
			return fmt.Errorf("failed to clone repo %s: %w", url, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("error checking path %s: %w", localPath, err)
	}

	s.logger.Info("pulling repository", "path", localPath)
	repo, err := git.PlainOpen(localPath)
	if err != nil {
		return fmt.Errorf("failed to open existing repo at %s: %w", localPath, err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree for repo at %s: %w", localPath, err)
	}
	err = worktree.PullContext(ctx, &git.PullOptions{
		RemoteName: "origin",
		Progress:   s.progress,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to pull changes for repo at %s: %w", localPath, err)
	}
	return nil
}
