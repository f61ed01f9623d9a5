package store

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"promptui/internal/models"
)

const auditColumns = `id, actor_id, action, entity_type, entity_id, details, created_at`

func scanAudit(row scanner) (models.AuditEntry, error) {
	var (
		e       models.AuditEntry
		details []byte
	)
	if err := row.Scan(&e.ID, &e.ActorID, &e.Action, &e.EntityType, &e.EntityID, &details, &e.CreatedAt); err != nil {
		return e, err
	}
	e.Details = map[string]any{}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &e.Details); err != nil {
			return e, fmt.Errorf("decode audit details: %w", err)
		}
	}
	return e, nil
}

// RecordAudit appends an entry to the audit log inside the transaction.
// A failure here fails the whole mutation.
func (t *Tx) RecordAudit(ctx context.Context, e *models.AuditEntry) error {
	details := e.Details
	if details == nil {
		details = map[string]any{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("encode audit details: %w", err)
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO audit_logs (actor_id, action, entity_type, entity_id, details)
		VALUES ($1, $2, $3, $4, $5)
	`, e.ActorID, e.Action, e.EntityType, e.EntityID, raw)
	if err != nil {
		return mapError("record audit", err)
	}
	return nil
}

// AuditFilter selects one page of the audit log.
type AuditFilter struct {
	Action     string
	EntityType string
	Page       int
	PageSize   int
}

// ListAudit returns audit entries newest first.
func (s *DB) ListAudit(ctx context.Context, f AuditFilter) (*models.AuditPage, error) {
	b := newBuilder(auditColumns, "audit_logs").
		whereEquals("action", f.Action).
		whereEquals("entity_type", f.EntityType).
		order(SortField{Column: "created_at", Descending: true})

	page := &models.AuditPage{Page: f.Page, PageSize: f.PageSize, Items: []models.AuditEntry{}}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		query, args := b.buildCount()
		if err := s.db.QueryRowContext(gctx, query, args...).Scan(&page.Total); err != nil {
			return mapError("count audit", err)
		}
		return nil
	})
	g.Go(func() error {
		query, args := b.buildPage(f.Page, f.PageSize)
		rows, err := s.db.QueryContext(gctx, query, args...)
		if err != nil {
			return mapError("list audit", err)
		}
		defer rows.Close()

		items := make([]models.AuditEntry, 0, f.PageSize)
		for rows.Next() {
			e, err := scanAudit(rows)
			if err != nil {
				return fmt.Errorf("scan audit: %w", err)
			}
			items = append(items, e)
		}
		if err := rows.Err(); err != nil {
			return mapError("list audit", err)
		}
		page.Items = items
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return page, nil
}
