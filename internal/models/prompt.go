// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// PromptStatus represents the moderation state of a prompt.
type PromptStatus string

const (
	StatusDraft         PromptStatus = "draft"
	StatusPendingReview PromptStatus = "pending_review"
	StatusPublished     PromptStatus = "published"
	StatusOffline       PromptStatus = "offline"
)

// Valid reports whether s is one of the four known statuses.
func (s PromptStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPendingReview, StatusPublished, StatusOffline:
		return true
	}
	return false
}

// PromptContent holds the versioned fields of a prompt. Every version
// snapshot stores exactly this set, and rollback copies it back into the head.
type PromptContent struct {
	Title            string         `json:"title"`
	TitleEN          *string        `json:"title_en"`
	PromptText       string         `json:"prompt_text"`
	Tags             []string       `json:"tags"`
	TagsEN           []string       `json:"tags_en"`
	Subcategory      *string        `json:"subcategory"`
	PreviewComponent *string        `json:"preview_component"`
	CodeAssets       map[string]any `json:"code_assets"`
}

// Prompt is the mutable head record of a prompt. Its CurrentVersion always
// matches the highest version number in the ledger.
type Prompt struct {
	ID   uuid.UUID `json:"id"`
	Slug string    `json:"slug"`
	PromptContent

	Status         PromptStatus `json:"status"`
	CurrentVersion int          `json:"current_version"`
	CategoryID     uuid.UUID    `json:"category_id"`
	AuthorID       uuid.UUID    `json:"author_id"`
	ReviewerID     *uuid.UUID   `json:"reviewer_id"`
	ReviewComment  *string      `json:"review_comment"`
	ReviewedAt     *time.Time   `json:"reviewed_at"`
	PublishedAt    *time.Time   `json:"published_at"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// PromptVersion is an immutable snapshot of a prompt's content.
type PromptVersion struct {
	ID            uuid.UUID `json:"id"`
	PromptID      uuid.UUID `json:"prompt_id"`
	VersionNumber int       `json:"version_number"`
	PromptContent

	ChangeNote *string    `json:"change_note"`
	CreatedBy  *uuid.UUID `json:"created_by"`
	CreatedAt  time.Time  `json:"created_at"`
}

// PromptListItem is a prompt row as returned by listings, joined with the
// author's username and the category's name.
type PromptListItem struct {
	ID   uuid.UUID `json:"id"`
	Slug string    `json:"slug"`
	PromptContent

	HasCodeAssets  bool         `json:"has_code_assets"`
	Status         PromptStatus `json:"status"`
	CategoryID     uuid.UUID    `json:"category_id"`
	AuthorID       uuid.UUID    `json:"author_id"`
	UpdatedAt      time.Time    `json:"updated_at"`
	AuthorUsername *string      `json:"author_username"`
	CategoryName   *string      `json:"category_name"`
}

// PromptPage is one page of a prompt listing.
type PromptPage struct {
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
	Total    int              `json:"total"`
	Items    []PromptListItem `json:"items"`
}
