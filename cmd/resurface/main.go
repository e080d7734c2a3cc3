package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/conorfennell/resurface/internal/config"
	"github.com/conorfennell/resurface/internal/domain"
	"github.com/conorfennell/resurface/internal/gitsource"
	"github.com/conorfennell/resurface/internal/logging"
	"github.com/conorfennell/resurface/internal/review"
	"github.com/conorfennell/resurface/internal/storage"
	"github.com/conorfennell/resurface/internal/sync"
	"github.com/conorfennell/resurface/internal/web"
)

const usage = `Usage: resurface [flags] <command> [args]

Commands:
  review                     review due items in the terminal
  serve                      start the web review server
  sync                       import cards from all sources
  add-source <path|url>      register a deck directory or git repository
  add <question> <answer> [context]
                             add a single item
  due                        list items due now

Flags:
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		slog.Error("resurface failed", "error", err)
		os.Exit(1)
	}
}

// app bundles what every command needs.
type app struct {
	cfg    *config.Config
	db     *storage.DB
	logger *slog.Logger
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("resurface", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("no command given")
	}

	cfg, err := config.Load(fs)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Log, stderr)
	slog.SetDefault(logger)

	db, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	a := &app{cfg: cfg, db: db, logger: logger, stdin: stdin, stdout: stdout, stderr: stderr}
	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "review":
		return a.review(ctx)
	case "serve":
		return a.serve(ctx)
	case "sync":
		return a.sync(ctx)
	case "add-source":
		if len(rest) != 1 {
			return errors.New("usage: resurface add-source <path|url>")
		}
		return a.addSource(ctx, rest[0])
	case "add":
		if len(rest) < 2 || len(rest) > 3 {
			return errors.New("usage: resurface add <question> <answer> [context]")
		}
		return a.add(ctx, rest)
	case "due":
		return a.due(ctx)
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) scheduler() (review.Scheduler, review.Policy, error) {
	sc := a.cfg.Scheduler
	scheduler, err := review.NewScheduler(sc.Algorithm, sc.SM2Settings(), sc.FSRSParams())
	if err != nil {
		return nil, "", err
	}
	policy, err := review.ParsePolicy(a.cfg.Session.Policy)
	if err != nil {
		return nil, "", err
	}
	return scheduler, policy, nil
}

func (a *app) syncer(progress io.Writer) *sync.Syncer {
	return sync.New(a.db, gitsource.NewSyncer(a.logger, progress), a.cfg.Sync.ReposDir, a.logger)
}

func (a *app) review(ctx context.Context) error {
	scheduler, policy, err := a.scheduler()
	if err != nil {
		return err
	}
	items, err := a.db.DueItems(ctx, time.Now())
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(a.stdout, "Nothing is due.")
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	session := review.NewSession(items, scheduler, a.db,
		review.WithLimit(a.cfg.Session.ReviewsPerSession),
		review.WithPolicy(policy),
		review.WithAlgorithm(a.cfg.Scheduler.Algorithm),
		review.WithLogger(a.logger),
	)
	summary, err := session.Run(ctx, newTerminal(a.stdin, a.stdout, cancel))
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	fmt.Fprintf(a.stdout, "\nReviewed %d item(s), %d still due.", summary.Reviewed, summary.Remaining)
	if summary.CapReached {
		fmt.Fprint(a.stdout, " Session limit reached.")
	}
	fmt.Fprintln(a.stdout)
	return nil
}

func (a *app) serve(ctx context.Context) error {
	scheduler, policy, err := a.scheduler()
	if err != nil {
		return err
	}
	srv, err := web.NewServer(a.db, web.Options{
		Scheduler: scheduler,
		Algorithm: a.cfg.Scheduler.Algorithm,
		Policy:    policy,
		Syncer:    a.syncer(nil),
		Logger:    a.logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting server", "addr", a.cfg.Server.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func (a *app) sync(ctx context.Context) error {
	results, err := a.syncer(a.stderr).RunSync(ctx)
	for _, res := range results {
		fmt.Fprintf(a.stdout, "%s: %d cards, %d added, %d removed", res.Path, res.Parsed, res.Added, res.Removed)
		if n := len(res.Errors); n > 0 {
			fmt.Fprintf(a.stdout, ", %d errors", n)
		}
		fmt.Fprintln(a.stdout)
		for _, e := range res.Errors {
			fmt.Fprintf(a.stdout, "  - %v\n", e)
		}
	}
	if results == nil && err == nil {
		fmt.Fprintln(a.stdout, "No sources configured. Add one with: resurface add-source <path|url>")
	}
	return err
}

func (a *app) addSource(ctx context.Context, path string) error {
	src, err := a.syncer(nil).AddSource(ctx, path)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Source %d (%s): %s\n", src.ID, src.Type, src.Path)
	return nil
}

func (a *app) add(ctx context.Context, args []string) error {
	fields := domain.ItemFields{
		Question: strings.TrimSpace(args[0]),
		Answer:   strings.TrimSpace(args[1]),
	}
	if len(args) == 3 {
		fields.Context = strings.TrimSpace(args[2])
	}
	if fields.Question == "" || fields.Answer == "" {
		return errors.New("question and answer must not be empty")
	}
	item, err := a.db.SaveItem(ctx, domain.NewItem(fields, time.Now()))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Added %s\n", item.ID)
	return nil
}

func (a *app) due(ctx context.Context) error {
	items, err := a.db.DueItems(ctx, time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%d item(s) due\n", len(items))
	for _, it := range items {
		fmt.Fprintf(a.stdout, "  %s  %s\n", it.ID, firstLine(it.Question))
	}
	return nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
