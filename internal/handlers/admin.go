package handlers

import (
	"context"
	"net/http"
	"strings"

	"promptui/internal/middleware"
	"promptui/internal/models"
)

// AdminService is the part of the workflow the moderation handlers use.
type AdminService interface {
	ReviewQueue(ctx context.Context, actor *models.Actor, page, pageSize int) (*models.PromptPage, error)
	ListAuditLogs(ctx context.Context, actor *models.Actor, action, entityType string, page, pageSize int) (*models.AuditPage, error)
}

// Admin groups the moderation HTTP handlers.
type Admin struct {
	svc AdminService
}

// NewAdmin creates the moderation handler group.
func NewAdmin(svc AdminService) *Admin {
	return &Admin{svc: svc}
}

// ReviewQueue lists prompts awaiting review.
func (h *Admin) ReviewQueue(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := parsePaging(r.URL.Query())
	if err != nil {
		respondError(w, r, err)
		return
	}
	result, err := h.svc.ReviewQueue(r.Context(), middleware.ActorFromCtx(r.Context()), page, pageSize)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// AuditLogs lists audit entries, newest first.
func (h *Admin) AuditLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, pageSize, err := parsePaging(q)
	if err != nil {
		respondError(w, r, err)
		return
	}
	result, err := h.svc.ListAuditLogs(r.Context(), middleware.ActorFromCtx(r.Context()),
		strings.TrimSpace(q.Get("action")), strings.TrimSpace(q.Get("entity_type")), page, pageSize)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
