// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"promptui/internal/models"
)

const categoryColumns = `id, key, name, description, is_active, created_at, updated_at`

// scanCategory scans a row into a Category struct.
func scanCategory(row scanner) (*models.Category, error) {
	var c models.Category
	err := row.Scan(&c.ID, &c.Key, &c.Name, &c.Description, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func findCategory(ctx context.Context, q querier, id uuid.UUID) (*models.Category, error) {
	c, err := scanCategory(q.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
	if err != nil {
		return nil, mapError("find category", err)
	}
	return c, nil
}

// FindCategory retrieves a category by ID.
func (s *DB) FindCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	return findCategory(ctx, s.db, id)
}

// FindCategory retrieves a category by ID inside the transaction.
func (t *Tx) FindCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	return findCategory(ctx, t.tx, id)
}

// ListCategories returns categories ordered by name. With activeOnly set,
// inactive categories are left out.
func (s *DB) ListCategories(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY name ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, mapError("list categories", err)
	}
	defer rows.Close()

	items := []models.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

// InsertCategory creates a category. A taken key or name yields ErrDuplicate.
func (t *Tx) InsertCategory(ctx context.Context, c *models.Category) (*models.Category, error) {
	created, err := scanCategory(t.tx.QueryRowContext(ctx, `
		INSERT INTO categories (key, name, description, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING `+categoryColumns,
		c.Key, c.Name, c.Description, c.IsActive,
	))
	if err != nil {
		return nil, mapError("insert category", err)
	}
	return created, nil
}

// UpdateCategory writes all editable columns of c.
func (t *Tx) UpdateCategory(ctx context.Context, c *models.Category) (*models.Category, error) {
	updated, err := scanCategory(t.tx.QueryRowContext(ctx, `
		UPDATE categories
		SET key = $2, name = $3, description = $4, is_active = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING `+categoryColumns,
		c.ID, c.Key, c.Name, c.Description, c.IsActive,
	))
	if err != nil {
		return nil, mapError("update category", err)
	}
	return updated, nil
}

// CountPromptsInCategory returns how many prompts reference a category.
func (t *Tx) CountPromptsInCategory(ctx context.Context, id uuid.UUID) (int, error) {
	var n int
	if err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM prompts WHERE category_id = $1`, id,
	).Scan(&n); err != nil {
		return 0, mapError("count category prompts", err)
	}
	return n, nil
}

// DeleteCategory removes a category. Categories still referenced by
// prompts yield ErrReferenced.
func (t *Tx) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return mapError("delete category", err)
	}
	return expectOne(res, "delete category")
}
