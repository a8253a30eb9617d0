package audit

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Schema creates the audit table. It is applied at startup together with
// the indexes in SchemaStatements.
const Schema = `
CREATE TABLE IF NOT EXISTS panel_audit_events (
  id            TEXT PRIMARY KEY,
  type          TEXT NOT NULL,
  control_id    TEXT NOT NULL,
  action_kind   TEXT NOT NULL,
  target_id     TEXT NOT NULL DEFAULT '',
  actor_user_id TEXT NOT NULL DEFAULT '',
  actor_role    TEXT NOT NULL DEFAULT '',
  ip_address    TEXT NOT NULL DEFAULT '',
  outcome       TEXT NOT NULL,
  message       TEXT NOT NULL DEFAULT '',
  duration_ms   BIGINT NOT NULL DEFAULT 0,
  metadata      JSONB,
  created_at    TIMESTAMPTZ NOT NULL
)`

const schemaIndexes = `
CREATE INDEX IF NOT EXISTS panel_audit_events_created_at_idx
  ON panel_audit_events (created_at, action_kind)`

// SchemaStatements are applied in order at startup.
var SchemaStatements = []string{Schema, schemaIndexes}

// PostgresRepo appends audit events to panel_audit_events.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	if r.db == nil {
		return errors.New("audit: postgres repo has no db")
	}
	const q = `
INSERT INTO panel_audit_events (
  id, type, control_id, action_kind, target_id, actor_user_id, actor_role,
  ip_address, outcome, message, duration_ms, metadata, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		e.Type,
		e.ControlID,
		e.ActionKind,
		e.TargetID,
		e.ActorUserID,
		e.ActorRole,
		e.IPAddress,
		e.Outcome,
		e.Message,
		e.DurationMS,
		nullableJSON(e.Metadata),
		e.CreatedAt,
	)
	return err
}

// ListEvents returns events created in [from, to), oldest first. An empty
// kind matches every action kind.
func (r *PostgresRepo) ListEvents(ctx context.Context, from, to time.Time, kind string) ([]Event, error) {
	if r.db == nil {
		return nil, errors.New("audit: postgres repo has no db")
	}
	const q = `
SELECT id, type, control_id, action_kind, target_id, actor_user_id, actor_role,
       ip_address, outcome, message, duration_ms, COALESCE(metadata::text, ''), created_at
FROM panel_audit_events
WHERE created_at >= $1 AND created_at < $2 AND ($3 = '' OR action_kind = $3)
ORDER BY created_at
`
	rows, err := r.db.QueryContext(ctx, q, from, to, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(
			&e.ID,
			&e.Type,
			&e.ControlID,
			&e.ActionKind,
			&e.TargetID,
			&e.ActorUserID,
			&e.ActorRole,
			&e.IPAddress,
			&e.Outcome,
			&e.Message,
			&e.DurationMS,
			&e.Metadata,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullableJSON(s string) any {
	if s == "" {
		return nil
	}
	return s
}
