// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/verte-zerg/hearback/internal/diagnosis"
	"github.com/verte-zerg/hearback/internal/feedback"
	"github.com/verte-zerg/hearback/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for attempt data.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer; one connection serializes access.
	db.SetMaxOpenConns(1)
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS attempts (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			deck TEXT NOT NULL,
			phrase_id TEXT NOT NULL,
			reference TEXT NOT NULL,
			typed TEXT NOT NULL,
			ref_words INTEGER NOT NULL,
			correct INTEGER NOT NULL,
			substitutions INTEGER NOT NULL,
			deletions INTEGER NOT NULL,
			insertions INTEGER NOT NULL,
			wer REAL NOT NULL,
			accuracy REAL NOT NULL,
			duration_ms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS attempt_events (
			attempt_id TEXT NOT NULL,
			event_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			ref_start INTEGER NOT NULL,
			ref_end INTEGER NOT NULL,
			expected TEXT NOT NULL,
			observed TEXT NOT NULL,
			phrase TEXT NOT NULL,
			category TEXT NOT NULL,
			rule TEXT NOT NULL,
			confidence REAL NOT NULL,
			PRIMARY KEY (attempt_id, event_id)
		);`,
		`CREATE TABLE IF NOT EXISTS attempt_categories (
			attempt_id TEXT NOT NULL,
			category TEXT NOT NULL,
			count INTEGER NOT NULL,
			PRIMARY KEY (attempt_id, category)
		);`,
		`CREATE TABLE IF NOT EXISTS summaries (
			id INTEGER PRIMARY KEY,
			created_at TEXT NOT NULL,
			deck TEXT NOT NULL,
			window_size INTEGER NOT NULL,
			payload BLOB NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_ended_at ON attempts(ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_attempt_categories_category ON attempt_categories(category);`,
		`CREATE INDEX IF NOT EXISTS idx_summaries_deck ON summaries(deck, created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertAttempt stores an attempt with its events and category counts.
func (s *Store) InsertAttempt(ctx context.Context, rec model.AttemptRecord, events []model.EventRecord, cats []model.CategoryCount) (err error) {
	if rec.ID == "" {
		return errors.New("attempt id is empty")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO attempts (id, started_at, ended_at, deck, phrase_id, reference, typed, ref_words, correct, substitutions, deletions, insertions, wer, accuracy, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.StartedAt.Format(time.RFC3339Nano),
		rec.EndedAt.Format(time.RFC3339Nano),
		rec.Deck,
		rec.PhraseID,
		rec.Reference,
		rec.Typed,
		rec.RefWords,
		rec.Correct,
		rec.Substitutions,
		rec.Deletions,
		rec.Insertions,
		rec.WER,
		rec.Accuracy,
		rec.DurationMs,
	)
	if err != nil {
		return err
	}

	if len(events) > 0 {
		stmt, perr := tx.PrepareContext(ctx,
			`INSERT INTO attempt_events (attempt_id, event_id, kind, ref_start, ref_end, expected, observed, phrase, category, rule, confidence)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if perr != nil {
			err = perr
			return err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for _, ev := range events {
			if _, err = stmt.ExecContext(ctx, rec.ID, ev.EventID, ev.Kind, ev.RefStart, ev.RefEnd,
				ev.Expected, ev.Observed, ev.Phrase, ev.Category, ev.Rule, ev.Confidence); err != nil {
				return err
			}
		}
	}

	for _, c := range cats {
		if c.Count <= 0 {
			continue
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO attempt_categories (attempt_id, category, count) VALUES (?, ?, ?)`,
			rec.ID, c.Category, c.Count); err != nil {
			return err
		}
	}

	err = tx.Commit()
	return err
}

// ListAttempts returns attempt aggregates filtered by stats config, oldest
// first.
func (s *Store) ListAttempts(ctx context.Context, cfg model.StatsConfig) ([]model.AttemptAggregate, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Deck != "" {
		clauses = append(clauses, "deck = ?")
		args = append(args, cfg.Deck)
	}
	if cfg.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, cfg.Since.Format(time.RFC3339Nano))
	}
	query := fmt.Sprintf(`SELECT id, ended_at, accuracy, ref_words, substitutions + deletions + insertions, duration_ms
		FROM attempts
		WHERE %s
		ORDER BY ended_at ASC, id ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var attempts []model.AttemptAggregate
	for rows.Next() {
		var agg model.AttemptAggregate
		var endedAt string
		if err := rows.Scan(&agg.AttemptID, &endedAt, &agg.Accuracy, &agg.RefWords, &agg.Errors, &agg.DurationMs); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, endedAt)
		if err != nil {
			return nil, err
		}
		agg.EndedAt = parsed
		attempts = append(attempts, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return attempts, nil
}

// RecentAttemptIDs returns the IDs of the most recent attempts, newest first.
func (s *Store) RecentAttemptIDs(ctx context.Context, window int, deck string) ([]string, error) {
	if window <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM attempts
		WHERE (? = '' OR deck = ?)
		ORDER BY ended_at DESC, id DESC
		LIMIT ?`, deck, deck, window)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// ListCategoryCounts returns raw category counts per attempt.
func (s *Store) ListCategoryCounts(ctx context.Context, attemptIDs []string) (map[string][]model.CategoryCount, error) {
	result := map[string][]model.CategoryCount{}
	if len(attemptIDs) == 0 {
		return result, nil
	}
	placeholders, args := inList(attemptIDs)
	query := fmt.Sprintf(`SELECT attempt_id, category, count
		FROM attempt_categories
		WHERE attempt_id IN (%s)
		ORDER BY attempt_id, category`, placeholders)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	for rows.Next() {
		var id string
		var c model.CategoryCount
		if err := rows.Scan(&id, &c.Category, &c.Count); err != nil {
			return nil, err
		}
		result[id] = append(result[id], c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// AttemptResults rebuilds diagnosis inputs for the given attempts, in the
// order given. Unknown IDs are skipped.
func (s *Store) AttemptResults(ctx context.Context, attemptIDs []string) ([]diagnosis.AttemptResult, error) {
	if len(attemptIDs) == 0 {
		return nil, nil
	}
	placeholders, args := inList(attemptIDs)
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT id, accuracy FROM attempts WHERE id IN (%s)`, placeholders), args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	accuracy := map[string]float64{}
	for rows.Next() {
		var id string
		var acc float64
		if err := rows.Scan(&id, &acc); err != nil {
			return nil, err
		}
		accuracy[id] = acc
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	counts, err := s.ListCategoryCounts(ctx, attemptIDs)
	if err != nil {
		return nil, err
	}

	out := make([]diagnosis.AttemptResult, 0, len(attemptIDs))
	for _, id := range attemptIDs {
		acc, ok := accuracy[id]
		if !ok {
			continue
		}
		res := diagnosis.AttemptResult{AttemptID: id, AccuracyPercent: acc}
		for _, c := range counts[id] {
			cat, ok := feedback.Parse(c.Category)
			if !ok {
				continue
			}
			for range c.Count {
				res.Categories = append(res.Categories, cat)
			}
		}
		out = append(out, res)
	}
	return out, nil
}

// TopMissedPhrases returns the phrases most often involved in events across
// the given attempts. The phrase hint is used when present.
func (s *Store) TopMissedPhrases(ctx context.Context, attemptIDs []string, limit int) ([]model.PhraseMiss, error) {
	if len(attemptIDs) == 0 || limit <= 0 {
		return nil, nil
	}
	placeholders, args := inList(attemptIDs)
	args = append(args, limit)
	query := fmt.Sprintf(`SELECT CASE WHEN phrase <> '' THEN phrase WHEN expected <> '' THEN expected ELSE observed END AS p,
			category, COUNT(*) AS n
		FROM attempt_events
		WHERE attempt_id IN (%s)
		GROUP BY p, category
		ORDER BY n DESC, p ASC
		LIMIT ?`, placeholders)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var out []model.PhraseMiss
	for rows.Next() {
		var m model.PhraseMiss
		var n int64
		if err := rows.Scan(&m.Phrase, &m.Category, &n); err != nil {
			return nil, err
		}
		if m.Count, err = safecast.Conv[int](n); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CategoryTotals sums raw category counts across the given attempts.
func (s *Store) CategoryTotals(ctx context.Context, attemptIDs []string) ([]model.CategoryCount, error) {
	if len(attemptIDs) == 0 {
		return nil, nil
	}
	placeholders, args := inList(attemptIDs)
	query := fmt.Sprintf(`SELECT category, SUM(count)
		FROM attempt_categories
		WHERE attempt_id IN (%s)
		GROUP BY category`, placeholders)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var out []model.CategoryCount
	for rows.Next() {
		var c model.CategoryCount
		var sum int64
		if err := rows.Scan(&c.Category, &sum); err != nil {
			return nil, err
		}
		if c.Count, err = safecast.Conv[int](sum); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveSummary stores a summary snapshot and returns its row ID.
func (s *Store) SaveSummary(ctx context.Context, snap model.SummarySnapshot) (int64, error) {
	payload, err := msgpack.Marshal(&snap.Summary)
	if err != nil {
		return 0, fmt.Errorf("encode summary: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO summaries (created_at, deck, window_size, payload) VALUES (?, ?, ?, ?)`,
		snap.CreatedAt.Format(time.RFC3339Nano), snap.Deck, snap.Window, payload)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// LatestSummary returns the newest snapshot for deck, or nil when none exists.
func (s *Store) LatestSummary(ctx context.Context, deck string) (*model.SummarySnapshot, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, created_at, deck, window_size, payload
		FROM summaries
		WHERE deck = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, deck)
	var snap model.SummarySnapshot
	var createdAt string
	var payload []byte
	if err := row.Scan(&snap.ID, &createdAt, &snap.Deck, &snap.Window, &payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	parsed, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, err
	}
	snap.CreatedAt = parsed
	if err := msgpack.Unmarshal(payload, &snap.Summary); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	return &snap, nil
}

func inList(ids []string) (string, []any) {
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	return strings.Join(placeholders, ","), args
}
