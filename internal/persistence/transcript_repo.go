package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/skobkin/serialwifi/internal/domain"
)

const maxTranscriptPage = 5000

// TranscriptRepo stores console lines in SQLite.
type TranscriptRepo struct {
	db *sql.DB
}

func NewTranscriptRepo(db *sql.DB) *TranscriptRepo {
	return &TranscriptRepo{db: db}
}

func (r *TranscriptRepo) Insert(ctx context.Context, sessionStarted time.Time, entry domain.LogEntry) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transcript(session_started_at, seq, at, kind, text)
		VALUES(?, ?, ?, ?, ?)
	`,
		toUnixMillis(sessionStarted),
		// #nosec G115 -- sequence numbers stay far below math.MaxInt64.
		int64(entry.Seq),
		toUnixMillis(entry.At),
		string(entry.Kind),
		entry.Text,
	)
	if err != nil {
		return 0, fmt.Errorf("insert transcript entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("transcript entry id: %w", err)
	}

	return id, nil
}

// Recent returns up to limit most recent lines, oldest first.
func (r *TranscriptRepo) Recent(ctx context.Context, limit int) ([]domain.TranscriptEntry, error) {
	if limit <= 0 || limit > maxTranscriptPage {
		limit = maxTranscriptPage
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_started_at, seq, at, kind, text
		FROM (
			SELECT id, session_started_at, seq, at, kind, text
			FROM transcript
			ORDER BY id DESC
			LIMIT ?
		)
		ORDER BY id ASC
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query transcript: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.TranscriptEntry
	for rows.Next() {
		var (
			e              domain.TranscriptEntry
			sessionStarted int64
			seq            int64
			at             int64
			kind           string
		)
		if err := rows.Scan(&e.ID, &sessionStarted, &seq, &at, &kind, &e.Text); err != nil {
			return nil, fmt.Errorf("scan transcript entry: %w", err)
		}
		e.SessionStarted = fromUnixMillis(sessionStarted)
		// #nosec G115 -- stored values come from uint64 sequence numbers.
		e.Seq = uint64(seq)
		e.At = fromUnixMillis(at)
		e.Kind = domain.LogKind(kind)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transcript: %w", err)
	}

	return out, nil
}
