package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Registers the sqlite driver

	"github.com/conorfennell/resurface/internal/domain"
)

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// Open creates a new database connection and ensures the schema is up to date.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Execute the schema to create tables if they don't exist.
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db, now: time.Now}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const itemColumns = `id, hash, question, answer, context, easiness_factor, interval_days, repetitions,
	difficulty, stability, last_review, next_review, source_id`

// SaveItem inserts or updates an item. Items without an ID are assigned a new
// one. The stored item is returned.
func (db *DB) SaveItem(ctx context.Context, item domain.ReviewItem) (domain.ReviewItem, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if err := db.upsertItem(ctx, db.conn, item); err != nil {
		return domain.ReviewItem{}, err
	}
	return item, nil
}

// RecordReview stores the reviewed item and its review log in one transaction.
func (db *DB) RecordReview(ctx context.Context, item domain.ReviewItem, log domain.ReviewLog) (domain.ReviewItem, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	log.ItemID = item.ID

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return domain.ReviewItem{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := db.upsertItem(ctx, tx, item); err != nil {
		return domain.ReviewItem{}, err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO review_logs (item_id, reviewed_at, quality, algorithm)
		VALUES (?, ?, ?, ?)
	`, log.ItemID, log.Timestamp.UTC(), int(log.Quality), log.Algorithm); err != nil {
		return domain.ReviewItem{}, fmt.Errorf("failed to insert review log for item %s: %w", item.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return domain.ReviewItem{}, fmt.Errorf("failed to commit review of item %s: %w", item.ID, err)
	}
	return item, nil
}

func (db *DB) upsertItem(ctx context.Context, ex execer, item domain.ReviewItem) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO items (`+itemColumns+`, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			hash = excluded.hash,
			question = excluded.question,
			answer = excluded.answer,
			context = excluded.context,
			easiness_factor = excluded.easiness_factor,
			interval_days = excluded.interval_days,
			repetitions = excluded.repetitions,
			difficulty = excluded.difficulty,
			stability = excluded.stability,
			last_review = excluded.last_review,
			next_review = excluded.next_review,
			source_id = excluded.source_id
	`,
		item.ID,
		item.Hash,
		item.Question,
		item.Answer,
		item.Context,
		item.EasinessFactor,
		item.Interval,
		item.Repetitions,
		nullFloat(item.Difficulty),
		nullFloat(item.Stability),
		item.LastReviewDate.UTC(),
		item.NextReviewDate.UTC(),
		sql.NullInt64{Int64: item.SourceID, Valid: item.SourceID != 0},
		db.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save item %s: %w", item.ID, err)
	}
	return nil
}

// FindItem retrieves an item by its ID.
func (db *DB) FindItem(ctx context.Context, id string) (*domain.ReviewItem, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Item not found
		}
		return nil, fmt.Errorf("failed to find item %s: %w", id, err)
	}
	return &item, nil
}

// FindItemByHash retrieves an imported item by its content hash.
func (db *DB) FindItemByHash(ctx context.Context, hash string) (*domain.ReviewItem, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE hash = ? AND hash <> ''`, hash)
	item, err := scanItem(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Item not found
		}
		return nil, fmt.Errorf("failed to find item by hash %s: %w", hash, err)
	}
	return &item, nil
}

// ListItems returns all items in insertion order.
func (db *DB) ListItems(ctx context.Context) ([]domain.ReviewItem, error) {
	return db.queryItems(ctx, `SELECT `+itemColumns+` FROM items ORDER BY rowid`)
}

// DueItems returns the items due at now, in insertion order.
func (db *DB) DueItems(ctx context.Context, now time.Time) ([]domain.ReviewItem, error) {
	items, err := db.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	due := items[:0]
	for _, item := range items {
		if item.IsDue(now) {
			due = append(due, item)
		}
	}
	return due, nil
}

// ItemsBySource retrieves all items imported from a specific source.
func (db *DB) ItemsBySource(ctx context.Context, sourceID int64) ([]domain.ReviewItem, error) {
	return db.queryItems(ctx, `SELECT `+itemColumns+` FROM items WHERE source_id = ? ORDER BY rowid`, sourceID)
}

// DeleteItem removes an item and its review history.
func (db *DB) DeleteItem(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM review_logs WHERE item_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete review logs of item %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete item %s: %w", id, err)
	}
	return tx.Commit()
}

// ReviewLogs returns the review history of an item, oldest first.
func (db *DB) ReviewLogs(ctx context.Context, itemID string) ([]domain.ReviewLog, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT item_id, reviewed_at, quality, algorithm
		FROM review_logs WHERE item_id = ?
		ORDER BY id
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get review logs for item %s: %w", itemID, err)
	}
	defer rows.Close()

	var logs []domain.ReviewLog
	for rows.Next() {
		var l domain.ReviewLog
		var quality int
		if err := rows.Scan(&l.ItemID, &l.Timestamp, &quality, &l.Algorithm); err != nil {
			return nil, fmt.Errorf("failed to scan review log row: %w", err)
		}
		l.Quality = domain.Quality(quality)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (db *DB) queryItems(ctx context.Context, query string, args ...any) ([]domain.ReviewItem, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []domain.ReviewItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (domain.ReviewItem, error) {
	var (
		f          domain.ItemFields
		ef         float64
		interval   int
		reps       int
		difficulty sql.NullFloat64
		stability  sql.NullFloat64
		last, next time.Time
		sourceID   sql.NullInt64
	)
	err := row.Scan(
		&f.ID,
		&f.Hash,
		&f.Question,
		&f.Answer,
		&f.Context,
		&ef,
		&interval,
		&reps,
		&difficulty,
		&stability,
		&last,
		&next,
		&sourceID,
	)
	if err != nil {
		return domain.ReviewItem{}, err
	}
	f.EasinessFactor = &ef
	f.Interval = &interval
	f.Repetitions = &reps
	if difficulty.Valid {
		f.Difficulty = &difficulty.Float64
	}
	if stability.Valid {
		f.Stability = &stability.Float64
	}
	f.LastReviewDate = &last
	f.NextReviewDate = &next
	f.SourceID = sourceID.Int64
	return domain.NewItem(f, last), nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
