package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/fmdesk/internal/action"
)

// ErrNotFound is returned when a lookup by key matches no row.
var ErrNotFound = errors.New("store: not found")

// FlowSummary describes one flow in the log.
type FlowSummary struct {
	Flow     string      `json:"flow"`
	Root     action.Type `json:"root"` // type of the first action in the flow
	FirstSeq int64       `json:"first_seq"`
	LastSeq  int64       `json:"last_seq"`
	Count    int         `json:"count"`
}

// AppendAction writes env to the log.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored
// and inserted is false. A different envelope reusing an existing seq is an error.
func (s *Store) AppendAction(ctx context.Context, env action.Envelope) (inserted bool, err error) {
	if env.ID == "" {
		return false, errors.New("append action: envelope id is empty")
	}
	payload := string(env.Payload)
	if payload == "" {
		payload = "null"
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO actions
		(id, seq, flow, type, payload, cause, effect)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		env.ID,
		env.Seq,
		env.Flow,
		string(env.Type),
		payload,
		env.Cause,
		env.Effect,
	)
	if err != nil {
		return false, fmt.Errorf("append action: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("append action: %w", err)
	}
	return n > 0, nil
}

// ReadLog returns envelopes with seq > afterSeq in log order.
// limit <= 0 means no limit.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ReadLog(ctx context.Context, afterSeq int64, limit int) ([]action.Envelope, error) {
	if limit <= 0 {
		limit = -1 // SQLite: negative LIMIT is unbounded
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, flow, type, payload, cause, effect
		FROM actions
		WHERE seq > ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
		LIMIT ?
	`, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	return collectEnvelopes(rows)
}

// ReadFlow returns every envelope of one flow in log order.
func (s *Store) ReadFlow(ctx context.Context, flow string) ([]action.Envelope, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, flow, type, payload, cause, effect
		FROM actions
		WHERE flow = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, flow)
	if err != nil {
		return nil, fmt.Errorf("read flow: %w", err)
	}
	return collectEnvelopes(rows)
}

// ReadByType returns every envelope of type t in log order.
func (s *Store) ReadByType(ctx context.Context, t action.Type) ([]action.Envelope, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, flow, type, payload, cause, effect
		FROM actions
		WHERE type = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, string(t))
	if err != nil {
		return nil, fmt.Errorf("read by type: %w", err)
	}
	return collectEnvelopes(rows)
}

// ReadAction returns the envelope with id, or ErrNotFound.
func (s *Store) ReadAction(ctx context.Context, id string) (action.Envelope, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, flow, type, payload, cause, effect
		FROM actions
		WHERE id = ?
	`, id)
	env, err := scanEnvelope(row)
	if errors.Is(err, sql.ErrNoRows) {
		return action.Envelope{}, fmt.Errorf("read action %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return action.Envelope{}, fmt.Errorf("read action %s: %w", id, err)
	}
	return env, nil
}

// LastSeq returns the highest seq in the log, 0 when empty.
// Used to resume the logical clock after a restart.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM actions
	`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("get last seq: %w", err)
	}
	return seq, nil
}

// ListFlows summarizes every flow, ordered by the seq of its first action.
func (s *Store) ListFlows(ctx context.Context) ([]FlowSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.flow, a.type, f.first_seq, f.last_seq, f.n
		FROM (
			SELECT flow, MIN(seq) AS first_seq, MAX(seq) AS last_seq, COUNT(*) AS n
			FROM actions
			GROUP BY flow
		) f
		JOIN actions a ON a.seq = f.first_seq
		ORDER BY f.first_seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list flows: %w", err)
	}
	defer rows.Close()

	flows := []FlowSummary{}
	for rows.Next() {
		var (
			fs   FlowSummary
			root string
		)
		if err := rows.Scan(&fs.Flow, &root, &fs.FirstSeq, &fs.LastSeq, &fs.Count); err != nil {
			return nil, fmt.Errorf("scan flow: %w", err)
		}
		fs.Root = action.Type(root)
		flows = append(flows, fs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flows: %w", err)
	}
	return flows, nil
}

// ClearLog deletes every logged action. Preferences are kept.
func (s *Store) ClearLog(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM actions`); err != nil {
		return fmt.Errorf("clear log: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEnvelope(r rowScanner) (action.Envelope, error) {
	var (
		env     action.Envelope
		typ     string
		payload string
	)
	if err := r.Scan(&env.ID, &env.Seq, &env.Flow, &typ, &payload, &env.Cause, &env.Effect); err != nil {
		return action.Envelope{}, err
	}
	env.Type = action.Type(typ)
	env.Payload = json.RawMessage(payload)
	return env, nil
}

func collectEnvelopes(rows *sql.Rows) ([]action.Envelope, error) {
	defer rows.Close()

	envs := []action.Envelope{}
	for rows.Next() {
		env, err := scanEnvelope(rows)
		if err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		envs = append(envs, env)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate actions: %w", err)
	}
	return envs, nil
}
