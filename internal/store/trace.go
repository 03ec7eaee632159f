package store

import (
	"context"
	"fmt"

	"github.com/roach88/layersync/internal/ir"
)

// SessionInfo summarises one persisted trace.
type SessionInfo struct {
	Session string `json:"session"`
	Events  int    `json:"events"`
	LastSeq int64  `json:"last_seq"`
}

// WriteTrace appends events to session in one transaction.
// Uses ON CONFLICT(session, seq) DO NOTHING, so rewriting a journal is a no-op.
func (s *Store) WriteTrace(ctx context.Context, session string, events []ir.TraceEvent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write trace: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trace_events (session, seq, direction, kind, idx, subject, key)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session, seq) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("write trace: prepare: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		if _, err := stmt.ExecContext(ctx,
			session,
			ev.Seq,
			string(ev.Direction),
			ev.Kind,
			ev.Index,
			ev.Subject,
			ev.Key,
		); err != nil {
			return fmt.Errorf("write trace: seq %d: %w", ev.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write trace: commit: %w", err)
	}
	return nil
}

// ReadTrace returns the events of session ordered by seq.
// Returns an empty slice (not nil) for an unknown session.
func (s *Store) ReadTrace(ctx context.Context, session string) ([]ir.TraceEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, direction, kind, idx, subject, key
		FROM trace_events
		WHERE session = ?
		ORDER BY seq ASC
	`, session)
	if err != nil {
		return nil, fmt.Errorf("query trace: %w", err)
	}
	defer rows.Close()

	events := []ir.TraceEvent{}
	for rows.Next() {
		var ev ir.TraceEvent
		var dir string
		if err := rows.Scan(&ev.Seq, &dir, &ev.Kind, &ev.Index, &ev.Subject, &ev.Key); err != nil {
			return nil, fmt.Errorf("scan trace event: %w", err)
		}
		ev.Direction = ir.Direction(dir)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trace: %w", err)
	}
	return events, nil
}

// LastSeq returns the highest seq recorded for session, or 0.
func (s *Store) LastSeq(ctx context.Context, session string) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM trace_events WHERE session = ?
	`, session).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq, nil
}

// ListSessions returns every session with a persisted trace, by name.
func (s *Store) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session, COUNT(*), MAX(seq)
		FROM trace_events
		GROUP BY session
		ORDER BY session COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []SessionInfo{}
	for rows.Next() {
		var info SessionInfo
		if err := rows.Scan(&info.Session, &info.Events, &info.LastSeq); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}
