package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/funnelboard/funnelboard/internal/models"
)

// AuditStore persists the per-user activity log.
type AuditStore struct {
	Base
}

// NewAuditStore creates an AuditStore.
func NewAuditStore(base Base) *AuditStore {
	return &AuditStore{Base: base}
}

// Record appends ev to its user's log.
func (s *AuditStore) Record(ctx context.Context, ev models.AuditEvent) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var detail []byte
	if len(ev.Detail) > 0 {
		var err error
		if detail, err = json.Marshal(ev.Detail); err != nil {
			return fmt.Errorf("encoding audit detail: %w", err)
		}
	}

	tx, err := s.beginTx(ctx, ev.UserID)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback on early return.

	if _, err := tx.Exec(ctx, `
		INSERT INTO audit_log (user_id, action, entity_type, entity_id, funnel_id, actor, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ev.UserID, string(ev.Action), ev.Action.Entity(), ev.EntityID,
		nullable(ev.FunnelID), nullable(ev.Actor), detail,
	); err != nil {
		return fmt.Errorf("recording %s: %w", ev.Action, err)
	}

	return tx.Commit(ctx)
}

// auditFilter accumulates positional WHERE conditions.
type auditFilter struct {
	conds []string
	args  []any
}

func (f *auditFilter) eq(col, val string) {
	if val == "" {
		return
	}

	f.args = append(f.args, val)
	f.conds = append(f.conds, col+" = $"+strconv.Itoa(len(f.args)))
}

func (f *auditFilter) next(v any) string {
	f.args = append(f.args, v)
	return "$" + strconv.Itoa(len(f.args))
}

func newAuditFilter(userID string, q models.AuditQuery) *auditFilter {
	f := &auditFilter{}
	f.eq("user_id", userID)
	f.eq("entity_type", q.EntityType)
	f.eq("entity_id", q.EntityID)
	f.eq("funnel_id", q.FunnelID)
	f.eq("action", q.Action)

	if q.Since != nil {
		f.conds = append(f.conds, "created_at >= "+f.next(*q.Since))
	}

	return f
}

// Query pages through a user's log, newest first, and reports whether more
// entries follow.
func (s *AuditStore) Query(
	ctx context.Context, userID string, q models.AuditQuery,
) ([]models.AuditEntry, bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginReadTx(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback on early return.

	limit := clampLimit(q.Limit, 50)
	f := newAuditFilter(userID, q)
	sql := `SELECT id, user_id, action, entity_type, entity_id, funnel_id, actor, detail, created_at
		FROM audit_log WHERE ` + strings.Join(f.conds, " AND ") +
		` ORDER BY created_at DESC, id DESC LIMIT ` + f.next(limit+1) + ` OFFSET ` + f.next(max(q.Offset, 0))

	rows, err := tx.Query(ctx, sql, f.args...)
	if err != nil {
		return nil, false, fmt.Errorf("querying audit log: %w", err)
	}
	defer rows.Close()

	entries := make([]models.AuditEntry, 0, limit)

	for rows.Next() {
		var (
			e             models.AuditEntry
			funnel, actor *string
			detail        []byte
		)

		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.EntityType, &e.EntityID, &funnel, &actor, &detail, &e.CreatedAt); err != nil {
			return nil, false, fmt.Errorf("scanning audit entry: %w", err)
		}

		e.FunnelID, e.Actor = deref(funnel), deref(actor)

		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &e.Detail); err != nil {
				s.Log.WithError(err).WithField("audit_id", e.ID).Warn("unreadable audit detail")
			}
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterating audit rows: %w", err)
	}

	if len(entries) > limit {
		return entries[:limit], true, nil
	}

	return entries, false, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}

// purgeBatchSize bounds each DELETE so audit_log is never locked for long.
const purgeBatchSize = 5000

// Purge deletes the user's entries created before the cutoff, one batch per
// transaction, and returns how many were removed.
func (s *AuditStore) Purge(ctx context.Context, userID string, before time.Time) (int, error) {
	var total int

	for {
		n, err := s.purgeBatch(ctx, userID, before)
		total += n

		if err != nil || n < purgeBatchSize {
			return total, err
		}
	}
}

func (s *AuditStore) purgeBatch(ctx context.Context, userID string, before time.Time) (int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx, userID)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback on early return.

	tag, err := tx.Exec(ctx, `
		DELETE FROM audit_log WHERE id IN (
			SELECT id FROM audit_log WHERE user_id = $1 AND created_at < $2 LIMIT $3
		)`, userID, before, purgeBatchSize)
	if err != nil {
		return 0, fmt.Errorf("purging audit entries: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing audit purge: %w", err)
	}

	return int(tag.RowsAffected()), nil
}
