// Package sync reconciles deck sources with the item store: new cards become
// review items and cards that vanished from a source are removed.
package sync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/conorfennell/resurface/internal/domain"
	"github.com/conorfennell/resurface/internal/gitsource"
	"github.com/conorfennell/resurface/internal/knol"
	"github.com/conorfennell/resurface/internal/parser"
	"github.com/conorfennell/resurface/internal/storage"
)

// Fetcher brings a remote source up to date in a local directory.
type Fetcher interface {
	Sync(ctx context.Context, url, localPath string) error
}

// Result describes the outcome of reconciling one source.
type Result struct {
	SourceID int64
	Path     string
	Parsed   int
	Added    int
	Removed  int
	Errors   []error
}

// Syncer runs source reconciliation.
type Syncer struct {
	db       *storage.DB
	fetcher  Fetcher
	reposDir string
	logger   *slog.Logger
	now      func() time.Time
}

// New returns a Syncer that checks git sources out under reposDir.
func New(db *storage.DB, fetcher Fetcher, reposDir string, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		db:       db,
		fetcher:  fetcher,
		reposDir: reposDir,
		logger:   logger,
		now:      time.Now,
	}
}

// SourceType classifies a source path as git or local.
func SourceType(path string) string {
	if gitsource.IsRemote(path) {
		return storage.SourceGit
	}
	return storage.SourceLocal
}

// AddSource registers path as a source unless it already exists and returns
// the stored source.
func (s *Syncer) AddSource(ctx context.Context, path string) (*storage.Source, error) {
	existing, err := s.db.FindSourceByPath(ctx, path)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	typ := SourceType(path)
	id, err := s.db.InsertSource(ctx, path, typ)
	if err != nil {
		return nil, err
	}
	s.logger.Info("source added", "id", id, "type", typ, "path", path)
	return &storage.Source{ID: id, Path: path, Type: typ}, nil
}

// RunSync reconciles every configured source. A failing source is logged and
// skipped; the returned error joins all per-source failures.
func (s *Syncer) RunSync(ctx context.Context) ([]Result, error) {
	s.logger.Info("starting sync for all sources")
	sources, err := s.db.GetAllSources(ctx)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		s.logger.Info("no sources configured")
		return nil, nil
	}

	var (
		results []Result
		errs    []error
	)
	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := s.SyncSource(ctx, source)
		if err != nil {
			s.logger.Error("source sync failed", "id", source.ID, "path", source.Path, "error", err)
			errs = append(errs, err)
			continue
		}
		results = append(results, res)
	}
	s.logger.Info("sync complete", "sources", len(sources), "failed", len(errs))
	return results, errors.Join(errs...)
}

// SyncSource fetches a git source if needed and reconciles its cards.
func (s *Syncer) SyncSource(ctx context.Context, source storage.Source) (Result, error) {
	s.logger.Info("syncing source", "id", source.ID, "type", source.Type, "path", source.Path)
	dir := source.Path
	if source.Type == storage.SourceGit {
		if s.fetcher == nil {
			return Result{}, fmt.Errorf("no fetcher configured for git source %s", source.Path)
		}
		local, err := gitsource.LocalPath(s.reposDir, source.Path)
		if err != nil {
			return Result{}, err
		}
		if err := os.MkdirAll(s.reposDir, 0o755); err != nil {
			return Result{}, fmt.Errorf("failed to create repos directory: %w", err)
		}
		if err := s.fetcher.Sync(ctx, source.Path, local); err != nil {
			return Result{}, err
		}
		dir = local
	}
	return s.Reconcile(ctx, source.ID, dir)
}

// Reconcile walks dir for markdown decks, inserts items for cards whose hash
// is not yet stored and deletes this source's items whose hash is no longer
// present. Card-level failures are collected in the result. When any deck
// file cannot be read nothing is removed.
func (s *Syncer) Reconcile(ctx context.Context, sourceID int64, dir string) (Result, error) {
	res := Result{SourceID: sourceID, Path: dir}
	found := make(map[string]bool)
	unreadable := 0

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}
		cards, err := parser.ParseFile(path)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("parsing %s: %w", path, err))
			unreadable++
			return nil
		}
		for _, card := range knol.WithHash(cards) {
			res.Parsed++
			if found[card.Hash] {
				continue
			}
			found[card.Hash] = true
			added, err := s.insertIfNew(ctx, card, sourceID)
			if err != nil {
				res.Errors = append(res.Errors, err)
				continue
			}
			if added {
				res.Added++
			}
		}
		return nil
	})
	if walkErr != nil {
		return res, fmt.Errorf("error walking directory %s: %w", dir, walkErr)
	}

	// Cards in a file that could not be read are unknown, not gone.
	if unreadable > 0 {
		s.logger.Warn("skipping orphan removal", "path", dir, "unreadable_files", unreadable)
		return s.finish(ctx, res), nil
	}

	stored, err := s.db.ItemsBySource(ctx, sourceID)
	if err != nil {
		return res, err
	}
	for _, item := range stored {
		if found[item.Hash] {
			continue
		}
		s.logger.Debug("removing orphaned item", "id", item.ID, "hash", item.Hash)
		if err := s.db.DeleteItem(ctx, item.ID); err != nil {
			res.Errors = append(res.Errors, err)
			continue
		}
		res.Removed++
	}

	return s.finish(ctx, res), nil
}

func (s *Syncer) finish(ctx context.Context, res Result) Result {
	if err := s.db.UpdateSourceLastScanned(ctx, res.SourceID); err != nil {
		res.Errors = append(res.Errors, err)
	}
	s.logger.Info("reconciliation complete",
		"path", res.Path,
		"parsed", res.Parsed,
		"added", res.Added,
		"removed", res.Removed,
		"errors", len(res.Errors),
	)
	return res
}

func (s *Syncer) insertIfNew(ctx context.Context, card domain.Card, sourceID int64) (bool, error) {
	existing, err := s.db.FindItemByHash(ctx, card.Hash)
	if err != nil || existing != nil {
		return false, err
	}
	if _, err := s.db.SaveItem(ctx, domain.NewCardItem(card, sourceID, s.now())); err != nil {
		return false, err
	}
	s.logger.Debug("new item", "hash", card.Hash, "source_id", sourceID)
	return true, nil
}
