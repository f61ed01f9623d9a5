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

// versionColumns lists all columns for prompt_versions SELECTs.
const versionColumns = `id, prompt_id, version_number, title, title_en, prompt_text,
	tags, tags_en, subcategory, preview_component, code_assets,
	change_note, created_by, created_at`

// scanVersion scans a single prompt_versions row into a PromptVersion.
func scanVersion(row scanner) (*models.PromptVersion, error) {
	var (
		v   models.PromptVersion
		raw rawContent
	)
	err := row.Scan(
		&v.ID, &v.PromptID, &v.VersionNumber, &v.Title, &v.TitleEN, &v.PromptText,
		&raw.tags, &raw.tagsEN, &v.Subcategory, &v.PreviewComponent, &raw.assets,
		&v.ChangeNote, &v.CreatedBy, &v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := raw.decode(&v.PromptContent); err != nil {
		return nil, err
	}
	return &v, nil
}

// InsertVersion appends a snapshot to a prompt's ledger. Rows in
// prompt_versions are never updated afterwards.
func (t *Tx) InsertVersion(ctx context.Context, v *models.PromptVersion) (*models.PromptVersion, error) {
	raw, err := encodeContent(&v.PromptContent)
	if err != nil {
		return nil, err
	}
	row := t.tx.QueryRowContext(ctx, `
		INSERT INTO prompt_versions (
			prompt_id, version_number, title, title_en, prompt_text, tags, tags_en,
			subcategory, preview_component, code_assets, change_note, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+versionColumns,
		v.PromptID, v.VersionNumber, v.Title, v.TitleEN, v.PromptText, raw.tags, raw.tagsEN,
		v.Subcategory, v.PreviewComponent, raw.assets, v.ChangeNote, v.CreatedBy,
	)
	created, err := scanVersion(row)
	if err != nil {
		return nil, mapError("insert version", err)
	}
	return created, nil
}

// FindVersion retrieves one snapshot of a prompt by its version number.
func (t *Tx) FindVersion(ctx context.Context, promptID uuid.UUID, number int) (*models.PromptVersion, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT `+versionColumns+`
		FROM prompt_versions
		WHERE prompt_id = $1 AND version_number = $2
	`, promptID, number)
	v, err := scanVersion(row)
	if err != nil {
		return nil, mapError(fmt.Sprintf("find version %d", number), err)
	}
	return v, nil
}

// ListVersions returns every snapshot of a prompt, newest first.
func (s *DB) ListVersions(ctx context.Context, promptID uuid.UUID) ([]models.PromptVersion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+versionColumns+`
		FROM prompt_versions
		WHERE prompt_id = $1
		ORDER BY version_number DESC
	`, promptID)
	if err != nil {
		return nil, mapError("list versions", err)
	}
	defer rows.Close()

	versions := []models.PromptVersion{}
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, *v)
	}
	return versions, rows.Err()
}
