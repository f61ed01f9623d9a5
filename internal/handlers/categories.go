package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"promptui/internal/middleware"
	"promptui/internal/models"
	"promptui/internal/workflow"
)

// CategoryService is the part of the workflow the category handlers use.
type CategoryService interface {
	ListCategories(ctx context.Context, viewer *models.Actor) ([]models.Category, error)
	CreateCategory(ctx context.Context, actor *models.Actor, in workflow.CategoryInput) (*models.Category, error)
	UpdateCategory(ctx context.Context, actor *models.Actor, id uuid.UUID, in workflow.CategoryPatch) (*models.Category, error)
	DeleteCategory(ctx context.Context, actor *models.Actor, id uuid.UUID) error
}

// Categories groups the category HTTP handlers.
type Categories struct {
	svc CategoryService
}

// NewCategories creates the category handler group.
func NewCategories(svc CategoryService) *Categories {
	return &Categories{svc: svc}
}

// List returns the categories visible to the caller.
func (h *Categories) List(w http.ResponseWriter, r *http.Request) {
	cats, err := h.svc.ListCategories(r.Context(), middleware.ActorFromCtx(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if cats == nil {
		cats = []models.Category{}
	}
	respondJSON(w, http.StatusOK, cats)
}

// Create adds a category.
func (h *Categories) Create(w http.ResponseWriter, r *http.Request) {
	var in workflow.CategoryInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	c, err := h.svc.CreateCategory(r.Context(), middleware.ActorFromCtx(r.Context()), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

// Update applies a partial category update.
func (h *Categories) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	var in workflow.CategoryPatch
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	c, err := h.svc.UpdateCategory(r.Context(), middleware.ActorFromCtx(r.Context()), id, in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// Delete removes an unused category.
func (h *Categories) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.svc.DeleteCategory(r.Context(), middleware.ActorFromCtx(r.Context()), id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
