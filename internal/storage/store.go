package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mattjoyce/mortar/internal/engine"
)

var ErrLogNotFound = errors.New("execution log not found")

// Store is the SQLite-backed external collaborator: it mirrors registry
// definitions and records pass history. The engine only ever writes
// through it; the read methods exist for the ops surfaces (API, TUI,
// CLI history).
type Store struct {
	db *sql.DB
}

// New creates a store over an already-bootstrapped database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Pass is one recorded trigger of a construct.
type Pass struct {
	ID        string
	Construct string
	Kind      engine.PassKind
	Schedule  string
	CreatedAt time.Time
}

// ExecutionLog is one step's recorded run.
type ExecutionLog struct {
	ID        string
	Pebble    string
	Construct string
	PassID    string
	Status    engine.Status
	Result    json.RawMessage
	Error     string
	StartTime time.Time
	EndTime   *time.Time
}

// Definition is a registry entry as mirrored to the store: name,
// description, tags (empty for cements) and step count.
type Definition struct {
	Name        string
	Description string
	Tags        []string
	Steps       int
	UpdatedAt   time.Time
}

func nowS() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// UpsertPebble mirrors a pebble registration.
func (s *Store) UpsertPebble(ctx context.Context, name, description string, tags []string) error {
	if name == "" {
		return fmt.Errorf("pebble name is empty")
	}
	tagsJSON, err := json.Marshal(orEmpty(tags))
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	now := nowS()
	_, err = s.db.ExecContext(ctx, `
INSERT INTO pebbles(name, description, tags, created_at, updated_at)
VALUES(?, ?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
  description = excluded.description,
  tags = excluded.tags,
  updated_at = excluded.updated_at;
`, name, description, string(tagsJSON), now, now)
	if err != nil {
		return fmt.Errorf("upsert pebble: %w", err)
	}
	return nil
}

// UpsertCement mirrors a cement definition, replacing its steps
// wholesale.
func (s *Store) UpsertCement(ctx context.Context, name, description string, steps []engine.CementStep) error {
	if name == "" {
		return fmt.Errorf("cement name is empty")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := nowS()
	_, err = tx.ExecContext(ctx, `
INSERT INTO cements(name, description, created_at, updated_at)
VALUES(?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
  description = excluded.description,
  updated_at = excluded.updated_at;
`, name, description, now, now)
	if err != nil {
		return fmt.Errorf("upsert cement: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cement_steps WHERE cement_name = ?;`, name); err != nil {
		return fmt.Errorf("clear cement steps: %w", err)
	}

	for _, step := range steps {
		params := make(map[string]any, len(step.Params))
		for pname, p := range step.Params {
			params[pname] = p.WireValue()
		}
		paramsJSON, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("marshal step parameters: %w", err)
		}
		depsJSON, err := json.Marshal(orEmpty(step.DependsOn))
		if err != nil {
			return fmt.Errorf("marshal depends_on: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO cement_steps(cement_name, pebble_name, parameters, step_order, depends_on)
VALUES(?, ?, ?, ?, ?);
`, name, step.Pebble, string(paramsJSON), step.Order, string(depsJSON))
		if err != nil {
			return fmt.Errorf("insert cement step: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// UpsertConstruct mirrors a construct definition, replacing its cement
// references wholesale.
func (s *Store) UpsertConstruct(ctx context.Context, name, description string, steps []engine.ConstructStep, tags []string) error {
	if name == "" {
		return fmt.Errorf("construct name is empty")
	}
	tagsJSON, err := json.Marshal(orEmpty(tags))
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := nowS()
	_, err = tx.ExecContext(ctx, `
INSERT INTO constructs(name, description, tags, created_at, updated_at)
VALUES(?, ?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
  description = excluded.description,
  tags = excluded.tags,
  updated_at = excluded.updated_at;
`, name, description, string(tagsJSON), now, now)
	if err != nil {
		return fmt.Errorf("upsert construct: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM construct_cements WHERE construct_name = ?;`, name); err != nil {
		return fmt.Errorf("clear construct cements: %w", err)
	}

	for _, step := range steps {
		_, err = tx.ExecContext(ctx, `
INSERT INTO construct_cements(construct_name, cement_name, step_order)
VALUES(?, ?, ?);
`, name, step.Cement, step.Order)
		if err != nil {
			return fmt.Errorf("insert construct cement: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// RecordPass persists one trigger of a construct and returns the pass
// id. A scheduled pass must carry a schedule expression.
func (s *Store) RecordPass(ctx context.Context, construct string, kind engine.PassKind, schedule string) (string, error) {
	if construct == "" {
		return "", fmt.Errorf("construct name is empty")
	}
	if !kind.Valid() {
		return "", fmt.Errorf("invalid pass kind %q", kind)
	}
	if kind == engine.PassScheduled && schedule == "" {
		return "", fmt.Errorf("schedule is required for %s", engine.PassScheduled)
	}

	id := uuid.NewString()
	var sched any
	if schedule != "" {
		sched = schedule
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO passes(id, construct_name, pass_kind, schedule, created_at)
VALUES(?, ?, ?, ?, ?);
`, id, construct, string(kind), sched, nowS())
	if err != nil {
		return "", fmt.Errorf("record pass: %w", err)
	}
	return id, nil
}

// AppendExecutionLog creates one step run record and returns the log
// id. A missing status defaults to pending; a terminal status also sets
// the end time.
func (s *Store) AppendExecutionLog(ctx context.Context, entry engine.LogEntry) (string, error) {
	if entry.Pebble == "" {
		return "", fmt.Errorf("pebble name is empty")
	}

	status := entry.Status
	if status == "" {
		status = engine.StatusPending
	}

	resultJSON, err := marshalResult(entry.Result)
	if err != nil {
		return "", err
	}
	var errText any
	if entry.Error != "" {
		errText = entry.Error
	}

	id := uuid.NewString()
	now := nowS()
	var endTime any
	if status == engine.StatusCompleted || status == engine.StatusFailed {
		endTime = now
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO execution_logs(id, pebble_name, construct_name, pass_id, status, result, error, start_time, end_time, updated_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`, id, entry.Pebble, entry.Construct, entry.PassID, string(status), resultJSON, errText, now, endTime, now)
	if err != nil {
		return "", fmt.Errorf("append execution log: %w", err)
	}
	return id, nil
}

// UpdateExecutionLog moves a log record to a new status, attaching the
// result payload or error text. Terminal statuses set the end time.
func (s *Store) UpdateExecutionLog(ctx context.Context, logID string, status engine.Status, result any, errText string) error {
	resultJSON, err := marshalResult(result)
	if err != nil {
		return err
	}
	var errVal any
	if errText != "" {
		errVal = errText
	}

	now := nowS()
	var endTime any
	if status == engine.StatusCompleted || status == engine.StatusFailed {
		endTime = now
	}
	res, err := s.db.ExecContext(ctx, `
UPDATE execution_logs
SET status = ?,
    result = COALESCE(?, result),
    error = COALESCE(?, error),
    end_time = COALESCE(?, end_time),
    updated_at = ?
WHERE id = ?;
`, string(status), resultJSON, errVal, endTime, now, logID)
	if err != nil {
		return fmt.Errorf("update execution log: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update execution log: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update execution log %s: %w", logID, ErrLogNotFound)
	}
	return nil
}

// ListPebbles returns mirrored pebble definitions, sorted by name.
func (s *Store) ListPebbles(ctx context.Context) ([]Definition, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT name, COALESCE(description, ''), tags, updated_at FROM pebbles ORDER BY name ASC;`)
	if err != nil {
		return nil, fmt.Errorf("list pebbles: %w", err)
	}
	defer rows.Close()

	var out []Definition
	for rows.Next() {
		var d Definition
		var tagsRaw, updatedAtS string
		if err := rows.Scan(&d.Name, &d.Description, &tagsRaw, &updatedAtS); err != nil {
			return nil, fmt.Errorf("scan pebble: %w", err)
		}
		_ = json.Unmarshal([]byte(tagsRaw), &d.Tags)
		d.UpdatedAt = parseTime(updatedAtS)
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListCements returns mirrored cement definitions with step counts,
// sorted by name.
func (s *Store) ListCements(ctx context.Context) ([]Definition, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT c.name, COALESCE(c.description, ''), c.updated_at,
       (SELECT COUNT(*) FROM cement_steps cs WHERE cs.cement_name = c.name)
FROM cements c ORDER BY c.name ASC;`)
	if err != nil {
		return nil, fmt.Errorf("list cements: %w", err)
	}
	defer rows.Close()

	var out []Definition
	for rows.Next() {
		var d Definition
		var updatedAtS string
		if err := rows.Scan(&d.Name, &d.Description, &updatedAtS, &d.Steps); err != nil {
			return nil, fmt.Errorf("scan cement: %w", err)
		}
		d.UpdatedAt = parseTime(updatedAtS)
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListConstructs returns mirrored construct definitions with cement
// counts, sorted by name.
func (s *Store) ListConstructs(ctx context.Context) ([]Definition, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT c.name, COALESCE(c.description, ''), c.tags, c.updated_at,
       (SELECT COUNT(*) FROM construct_cements cc WHERE cc.construct_name = c.name)
FROM constructs c ORDER BY c.name ASC;`)
	if err != nil {
		return nil, fmt.Errorf("list constructs: %w", err)
	}
	defer rows.Close()

	var out []Definition
	for rows.Next() {
		var d Definition
		var tagsRaw, updatedAtS string
		if err := rows.Scan(&d.Name, &d.Description, &tagsRaw, &updatedAtS, &d.Steps); err != nil {
			return nil, fmt.Errorf("scan construct: %w", err)
		}
		_ = json.Unmarshal([]byte(tagsRaw), &d.Tags)
		d.UpdatedAt = parseTime(updatedAtS)
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListPasses returns the most recent passes, newest first.
func (s *Store) ListPasses(ctx context.Context, limit int) ([]Pass, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, construct_name, pass_kind, COALESCE(schedule, ''), created_at
FROM passes ORDER BY created_at DESC, rowid DESC LIMIT ?;`, limit)
	if err != nil {
		return nil, fmt.Errorf("list passes: %w", err)
	}
	defer rows.Close()

	var out []Pass
	for rows.Next() {
		var p Pass
		var kindS, createdAtS string
		if err := rows.Scan(&p.ID, &p.Construct, &kindS, &p.Schedule, &createdAtS); err != nil {
			return nil, fmt.Errorf("scan pass: %w", err)
		}
		p.Kind = engine.PassKind(kindS)
		p.CreatedAt = parseTime(createdAtS)
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListExecutionLogs returns recent step records, newest first. passID
// may be empty to list across all passes.
func (s *Store) ListExecutionLogs(ctx context.Context, passID string, limit int) ([]ExecutionLog, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
SELECT id, pebble_name, construct_name, pass_id, status, result, error, start_time, end_time
FROM execution_logs`
	args := []any{}
	if passID != "" {
		query += ` WHERE pass_id = ?`
		args = append(args, passID)
	}
	query += ` ORDER BY start_time DESC, rowid DESC LIMIT ?;`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list execution logs: %w", err)
	}
	defer rows.Close()

	var out []ExecutionLog
	for rows.Next() {
		var l ExecutionLog
		var statusS, startS string
		var result, errText, endS sql.NullString
		if err := rows.Scan(&l.ID, &l.Pebble, &l.Construct, &l.PassID, &statusS, &result, &errText, &startS, &endS); err != nil {
			return nil, fmt.Errorf("scan execution log: %w", err)
		}
		l.Status = engine.Status(statusS)
		if result.Valid {
			l.Result = json.RawMessage(result.String)
		}
		if errText.Valid {
			l.Error = errText.String
		}
		l.StartTime = parseTime(startS)
		if endS.Valid {
			t := parseTime(endS.String)
			l.EndTime = &t
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func marshalResult(result any) (any, error) {
	if result == nil {
		return nil, nil
	}
	b, err := json.Marshal(result)
	if err != nil {
		// Pebble results are arbitrary values; an unmarshalable one is
		// recorded by its Go rendering rather than failing the write.
		b, err = json.Marshal(fmt.Sprintf("%v", result))
		if err != nil {
			return nil, fmt.Errorf("marshal result: %w", err)
		}
	}
	return string(b), nil
}

func orEmpty(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
