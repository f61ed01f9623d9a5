// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"promptui/internal/models"
)

// promptColumns lists all columns for prompts SELECTs.
const promptColumns = `id, slug, title, title_en, prompt_text, tags, tags_en,
	subcategory, preview_component, code_assets, status, current_version,
	category_id, author_id, reviewer_id, review_comment, reviewed_at,
	published_at, created_at, updated_at`

// scanPrompt scans a single prompts row into a Prompt.
func scanPrompt(row scanner) (*models.Prompt, error) {
	var (
		p   models.Prompt
		raw rawContent
	)
	err := row.Scan(
		&p.ID, &p.Slug, &p.Title, &p.TitleEN, &p.PromptText,
		&raw.tags, &raw.tagsEN,
		&p.Subcategory, &p.PreviewComponent, &raw.assets, &p.Status, &p.CurrentVersion,
		&p.CategoryID, &p.AuthorID, &p.ReviewerID, &p.ReviewComment, &p.ReviewedAt,
		&p.PublishedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := raw.decode(&p.PromptContent); err != nil {
		return nil, err
	}
	return &p, nil
}

// rawContent holds the JSONB columns of a content row before decoding.
type rawContent struct {
	tags, tagsEN, assets []byte
}

func (r rawContent) decode(c *models.PromptContent) error {
	for _, col := range []struct {
		raw []byte
		dst any
	}{
		{r.tags, &c.Tags},
		{r.tagsEN, &c.TagsEN},
		{r.assets, &c.CodeAssets},
	} {
		if len(col.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(col.raw, col.dst); err != nil {
			return fmt.Errorf("decode content: %w", err)
		}
	}
	normalizeContent(c)
	return nil
}

// encodeContent renders the JSONB columns of c. Nil collections are
// stored as empty ones.
func encodeContent(c *models.PromptContent) (rawContent, error) {
	normalizeContent(c)
	var (
		r   rawContent
		err error
	)
	if r.tags, err = json.Marshal(c.Tags); err != nil {
		return r, fmt.Errorf("encode tags: %w", err)
	}
	if r.tagsEN, err = json.Marshal(c.TagsEN); err != nil {
		return r, fmt.Errorf("encode tags_en: %w", err)
	}
	if r.assets, err = json.Marshal(c.CodeAssets); err != nil {
		return r, fmt.Errorf("encode code assets: %w", err)
	}
	return r, nil
}

// normalizeContent replaces nil collections with empty ones so a value read
// back from the database compares equal to the value that was written.
func normalizeContent(c *models.PromptContent) {
	if c.Tags == nil {
		c.Tags = []string{}
	}
	if c.TagsEN == nil {
		c.TagsEN = []string{}
	}
	if c.CodeAssets == nil {
		c.CodeAssets = map[string]any{}
	}
}

func findPrompt(ctx context.Context, q querier, id uuid.UUID, forUpdate bool) (*models.Prompt, error) {
	query := `SELECT ` + promptColumns + ` FROM prompts WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	p, err := scanPrompt(q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError("find prompt", err)
	}
	return p, nil
}

// FindPrompt retrieves a prompt head by ID.
func (s *DB) FindPrompt(ctx context.Context, id uuid.UUID) (*models.Prompt, error) {
	return findPrompt(ctx, s.db, id, false)
}

// LockPrompt reads a prompt head and holds its row lock until the
// transaction ends, serializing concurrent mutations of the same prompt.
func (t *Tx) LockPrompt(ctx context.Context, id uuid.UUID) (*models.Prompt, error) {
	return findPrompt(ctx, t.tx, id, true)
}

// SlugExists reports whether any prompt already uses slug.
func (t *Tx) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := t.tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM prompts WHERE slug = $1)`, slug,
	).Scan(&exists)
	if err != nil {
		return false, mapError("check slug", err)
	}
	return exists, nil
}

// InsertPrompt creates a prompt head and returns it with generated fields.
func (t *Tx) InsertPrompt(ctx context.Context, p *models.Prompt) (*models.Prompt, error) {
	raw, err := encodeContent(&p.PromptContent)
	if err != nil {
		return nil, err
	}
	row := t.tx.QueryRowContext(ctx, `
		INSERT INTO prompts (
			slug, title, title_en, prompt_text, tags, tags_en, subcategory,
			preview_component, code_assets, status, current_version,
			category_id, author_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING `+promptColumns,
		p.Slug, p.Title, p.TitleEN, p.PromptText, raw.tags, raw.tagsEN, p.Subcategory,
		p.PreviewComponent, raw.assets, p.Status, p.CurrentVersion,
		p.CategoryID, p.AuthorID,
	)
	created, err := scanPrompt(row)
	if err != nil {
		return nil, mapError("insert prompt", err)
	}
	return created, nil
}

// UpdatePrompt writes every mutable column of the head and returns the
// stored row. The slug and author never change.
func (t *Tx) UpdatePrompt(ctx context.Context, p *models.Prompt) (*models.Prompt, error) {
	raw, err := encodeContent(&p.PromptContent)
	if err != nil {
		return nil, err
	}
	row := t.tx.QueryRowContext(ctx, `
		UPDATE prompts SET
			title = $2, title_en = $3, prompt_text = $4, tags = $5, tags_en = $6,
			subcategory = $7, preview_component = $8, code_assets = $9,
			status = $10, current_version = $11, category_id = $12,
			reviewer_id = $13, review_comment = $14, reviewed_at = $15,
			published_at = $16, updated_at = NOW()
		WHERE id = $1
		RETURNING `+promptColumns,
		p.ID, p.Title, p.TitleEN, p.PromptText, raw.tags, raw.tagsEN,
		p.Subcategory, p.PreviewComponent, raw.assets,
		p.Status, p.CurrentVersion, p.CategoryID,
		p.ReviewerID, p.ReviewComment, p.ReviewedAt,
		p.PublishedAt,
	)
	updated, err := scanPrompt(row)
	if err != nil {
		return nil, mapError("update prompt", err)
	}
	return updated, nil
}

// PromptFilter selects one page of prompts.
type PromptFilter struct {
	Query                string
	CategoryID           *uuid.UUID
	Subcategory          string
	Status               models.PromptStatus
	ActiveCategoriesOnly bool
	SortBy               string
	Descending           bool
	Page                 int
	PageSize             int
}

// sortColumns maps sortable field names to columns. Unknown names sort by
// updated_at.
var sortColumns = map[string]string{
	"created_at":   "p.created_at",
	"updated_at":   "p.updated_at",
	"published_at": "p.published_at",
	"title":        "p.title",
}

// SortColumn resolves a sort field name, falling back to updated_at.
func SortColumn(name string) string {
	if col, ok := sortColumns[name]; ok {
		return col
	}
	return sortColumns["updated_at"]
}

const listColumns = `p.id, p.slug, p.title, p.title_en, p.prompt_text, p.tags, p.tags_en,
	p.subcategory, p.preview_component, p.code_assets, p.status, p.category_id,
	p.author_id, p.updated_at, u.username, c.name`

const listFrom = `prompts p
	LEFT JOIN users u ON u.id = p.author_id
	LEFT JOIN categories c ON c.id = p.category_id`

func scanListItem(row scanner) (models.PromptListItem, error) {
	var (
		it  models.PromptListItem
		raw rawContent
	)
	err := row.Scan(
		&it.ID, &it.Slug, &it.Title, &it.TitleEN, &it.PromptText,
		&raw.tags, &raw.tagsEN,
		&it.Subcategory, &it.PreviewComponent, &raw.assets, &it.Status, &it.CategoryID,
		&it.AuthorID, &it.UpdatedAt, &it.AuthorUsername, &it.CategoryName,
	)
	if err != nil {
		return it, err
	}
	if err := raw.decode(&it.PromptContent); err != nil {
		return it, err
	}
	it.HasCodeAssets = len(it.CodeAssets) > 0
	return it, nil
}

// ListPrompts returns one page of prompts matching f together with the
// total match count. The count and the page run concurrently.
func (s *DB) ListPrompts(ctx context.Context, f PromptFilter) (*models.PromptPage, error) {
	b := newBuilder(listColumns, listFrom).
		whereSearch(f.Query, "p.title", "p.prompt_text").
		whereEquals("p.category_id", f.CategoryID).
		whereEquals("p.subcategory", f.Subcategory).
		whereEquals("p.status", string(f.Status))
	if f.ActiveCategoriesOnly {
		b.whereTrue("c.is_active")
	}
	b.order(
		SortField{Column: SortColumn(f.SortBy), Descending: f.Descending},
		SortField{Column: "p.created_at", Descending: true},
	)

	page := &models.PromptPage{Page: f.Page, PageSize: f.PageSize, Items: []models.PromptListItem{}}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		query, args := b.buildCount()
		if err := s.db.QueryRowContext(gctx, query, args...).Scan(&page.Total); err != nil {
			return mapError("count prompts", err)
		}
		return nil
	})
	g.Go(func() error {
		query, args := b.buildPage(f.Page, f.PageSize)
		rows, err := s.db.QueryContext(gctx, query, args...)
		if err != nil {
			return mapError("list prompts", err)
		}
		defer rows.Close()

		items := make([]models.PromptListItem, 0, f.PageSize)
		for rows.Next() {
			it, err := scanListItem(rows)
			if err != nil {
				return fmt.Errorf("scan prompt: %w", err)
			}
			items = append(items, it)
		}
		if err := rows.Err(); err != nil {
			return mapError("list prompts", err)
		}
		page.Items = items
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return page, nil
}
