// Package web serves the HTMX review interface and source management pages.
package web

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/conorfennell/resurface/internal/domain"
	"github.com/conorfennell/resurface/internal/review"
	"github.com/conorfennell/resurface/internal/storage"
	decksync "github.com/conorfennell/resurface/internal/sync"
)

//go:embed templates/*.html
var templateFiles embed.FS

// Options configures a Server.
type Options struct {
	Scheduler review.Scheduler
	Algorithm string
	Policy    review.Policy
	Syncer    *decksync.Syncer
	Logger    *slog.Logger
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	db        *storage.DB
	router    *http.ServeMux
	scheduler review.Scheduler
	algorithm string
	policy    review.Policy
	syncer    *decksync.Syncer
	templates *template.Template
	validate  *validator.Validate
	logger    *slog.Logger
	now       func() time.Time

	// mu serializes reviews and syncs, which read then write items.
	mu sync.Mutex
}

type newItemForm struct {
	Question string `validate:"required"`
	Answer   string `validate:"required"`
	Context  string
}

// NewServer creates and configures a new server.
func NewServer(db *storage.DB, opts Options) (*Server, error) {
	if opts.Scheduler == nil {
		return nil, errors.New("web: a scheduler is required")
	}
	tpl, err := template.New("").Funcs(template.FuncMap{
		"date": func(t time.Time) string { return t.Local().Format("2006-01-02 15:04") },
	}).ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Policy == "" {
		opts.Policy = review.PolicyFirst
	}

	s := &Server{
		db:        db,
		router:    http.NewServeMux(),
		scheduler: opts.Scheduler,
		algorithm: opts.Algorithm,
		policy:    opts.Policy,
		syncer:    opts.Syncer,
		templates: tpl,
		validate:  validator.New(),
		logger:    opts.Logger,
		now:       time.Now,
	}
	s.routes()
	return s, nil
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.HandleFunc("GET /{$}", s.handleIndex)

	// HTMX fragments
	s.router.HandleFunc("GET /deck", s.handleGetDeck)
	s.router.HandleFunc("GET /review/next", s.handleGetNextReview)
	s.router.HandleFunc("GET /review/answer/{id}", s.handleShowAnswer)
	s.router.HandleFunc("POST /review/{id}", s.handlePostReview)
	s.router.HandleFunc("POST /items", s.handlePostItem)

	// Source management
	s.router.HandleFunc("GET /sources", s.handleGetSources)
	s.router.HandleFunc("POST /sources", s.handlePostSource)
	s.router.HandleFunc("DELETE /sources/{id}", s.handleDeleteSource)
	s.router.HandleFunc("POST /sync", s.handlePostSync)
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("failed to render template", "template", name, "error", err)
	}
}

func (s *Server) serverError(w http.ResponseWriter, msg string, err error) {
	s.logger.Error(msg, "error", err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, "index", nil)
}

type deckView struct {
	DueCount    int
	HasDueCards bool
}

// handleGetDeck renders the deck view, showing the number of due items.
func (s *Server) handleGetDeck(w http.ResponseWriter, r *http.Request) {
	due, err := s.db.DueItems(r.Context(), s.now())
	if err != nil {
		s.serverError(w, "failed to load due items", err)
		return
	}
	s.render(w, "deck", deckView{DueCount: len(due), HasDueCards: len(due) > 0})
}

// handleGetNextReview renders the question side of the next due item.
func (s *Server) handleGetNextReview(w http.ResponseWriter, r *http.Request) {
	s.renderNext(w, r)
}

func (s *Server) renderNext(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	due, err := s.db.DueItems(r.Context(), now)
	if err != nil {
		s.serverError(w, "failed to load due items", err)
		return
	}
	i := s.policy.Select(due, now)
	if i < 0 {
		s.render(w, "deck", deckView{})
		return
	}
	s.render(w, "card_front", due[i])
}

// handleShowAnswer renders the answer side of an item with grading buttons.
func (s *Server) handleShowAnswer(w http.ResponseWriter, r *http.Request) {
	item, err := s.db.FindItem(r.Context(), r.PathValue("id"))
	if err != nil {
		s.serverError(w, "failed to load item", err)
		return
	}
	if item == nil {
		http.NotFound(w, r)
		return
	}
	s.render(w, "card_back", item)
}

// handlePostReview applies a grade to an item and renders the next one.
func (s *Server) handlePostReview(w http.ResponseWriter, r *http.Request) {
	quality, err := review.ParseQuality(r.PostFormValue("grade"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := r.PathValue("id")
	item, err := s.db.FindItem(r.Context(), id)
	if err != nil {
		s.serverError(w, "failed to load item", err)
		return
	}
	if item == nil {
		http.NotFound(w, r)
		return
	}

	session := review.NewSession([]domain.ReviewItem{*item}, s.scheduler, s.db,
		review.WithAlgorithm(s.algorithm),
		review.WithClock(s.now),
		review.WithLogger(s.logger),
	)
	if _, err := session.Answer(r.Context(), id, quality); err != nil {
		s.serverError(w, "failed to record review", err)
		return
	}
	s.renderNext(w, r)
}

// handlePostItem adds a manually entered item.
func (s *Server) handlePostItem(w http.ResponseWriter, r *http.Request) {
	form := newItemForm{
		Question: strings.TrimSpace(r.PostFormValue("question")),
		Answer:   strings.TrimSpace(r.PostFormValue("answer")),
		Context:  strings.TrimSpace(r.PostFormValue("context")),
	}
	if err := s.validate.Struct(form); err != nil {
		http.Error(w, "Question and answer are required", http.StatusBadRequest)
		return
	}
	item := domain.NewItem(domain.ItemFields{
		Question: form.Question,
		Answer:   form.Answer,
		Context:  form.Context,
	}, s.now())
	saved, err := s.db.SaveItem(r.Context(), item)
	if err != nil {
		s.serverError(w, "failed to save item", err)
		return
	}
	s.logger.Info("item added", "id", saved.ID)
	w.WriteHeader(http.StatusCreated)
	s.render(w, "item_added", saved)
}

type sourcesView struct {
	Sources []storage.Source
}

func (s *Server) renderSources(w http.ResponseWriter, r *http.Request, name string) {
	sources, err := s.db.GetAllSources(r.Context())
	if err != nil {
		s.serverError(w, "failed to load sources", err)
		return
	}
	s.render(w, name, sourcesView{Sources: sources})
}

// handleGetSources renders the sources management page.
func (s *Server) handleGetSources(w http.ResponseWriter, r *http.Request) {
	s.renderSources(w, r, "sources")
}

// handlePostSource adds a new source and re-renders the source list.
func (s *Server) handlePostSource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSpace(r.PostFormValue("path"))
	if path == "" {
		http.Error(w, "Path cannot be empty", http.StatusBadRequest)
		return
	}
	if s.syncer == nil {
		http.Error(w, "Source management is disabled", http.StatusServiceUnavailable)
		return
	}
	if _, err := s.syncer.AddSource(r.Context(), path); err != nil {
		s.serverError(w, "failed to add source", err)
		return
	}
	s.renderSources(w, r, "source_list")
}

// handleDeleteSource deletes a source and its items.
func (s *Server) handleDeleteSource(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid source ID", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	err = s.db.DeleteSource(r.Context(), id)
	s.mu.Unlock()
	if err != nil {
		s.serverError(w, "failed to delete source", err)
		return
	}
	s.renderSources(w, r, "source_list")
}

// handlePostSync runs a sync in the foreground and re-renders the source list.
func (s *Server) handlePostSync(w http.ResponseWriter, r *http.Request) {
	if s.syncer == nil {
		http.Error(w, "Source management is disabled", http.StatusServiceUnavailable)
		return
	}

	s.mu.Lock()
	results, err := s.syncer.RunSync(r.Context())
	s.mu.Unlock()
	if err != nil {
		// Per-source failures are already logged; show what did sync.
		s.logger.Warn("sync finished with errors", "error", err)
	}

	added, removed := 0, 0
	for _, res := range results {
		added += res.Added
		removed += res.Removed
	}
	s.render(w, "sync_result", map[string]any{
		"Added":   added,
		"Removed": removed,
		"Failed":  err != nil,
	})
	s.renderSources(w, r, "source_list")
}
