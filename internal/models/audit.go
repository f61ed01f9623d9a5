package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit action names, one per mutating operation.
const (
	ActionPromptCreate       = "prompt.create"
	ActionPromptUpdate       = "prompt.update"
	ActionPromptSubmitReview = "prompt.submit_review"
	ActionPromptPublish      = "prompt.publish"
	ActionPromptOffline      = "prompt.offline"
	ActionPromptRollback     = "prompt.rollback"
	ActionCategoryCreate     = "category.create"
	ActionCategoryUpdate     = "category.update"
	ActionCategoryDelete     = "category.delete"
)

// Audited entity types.
const (
	EntityPrompt   = "prompt"
	EntityCategory = "category"
)

// AuditEntry is one row of the append-only audit log.
type AuditEntry struct {
	ID         uuid.UUID      `json:"id"`
	ActorID    *uuid.UUID     `json:"actor_id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Details    map[string]any `json:"details"`
	CreatedAt  time.Time      `json:"created_at"`
}

// AuditPage is one page of the audit log.
type AuditPage struct {
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
	Total    int          `json:"total"`
	Items    []AuditEntry `json:"items"`
}
