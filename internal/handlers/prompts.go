package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"promptui/internal/middleware"
	"promptui/internal/models"
	"promptui/internal/workflow"
)

// PromptService is the part of the workflow the prompt handlers use.
type PromptService interface {
	CreatePrompt(ctx context.Context, actor *models.Actor, in workflow.CreatePromptInput) (*models.Prompt, error)
	UpdatePrompt(ctx context.Context, actor *models.Actor, id uuid.UUID, in workflow.UpdatePromptInput) (*models.Prompt, error)
	SubmitForReview(ctx context.Context, actor *models.Actor, id uuid.UUID, comment *string) (*models.Prompt, error)
	Publish(ctx context.Context, actor *models.Actor, id uuid.UUID, comment *string) (*models.Prompt, error)
	TakeOffline(ctx context.Context, actor *models.Actor, id uuid.UUID, reason *string) (*models.Prompt, error)
	RollbackTo(ctx context.Context, actor *models.Actor, id uuid.UUID, version int) (*models.Prompt, error)
	GetPrompt(ctx context.Context, viewer *models.Actor, id uuid.UUID) (*models.Prompt, error)
	ListPrompts(ctx context.Context, viewer *models.Actor, q workflow.ListQuery) (*models.PromptPage, error)
	ListVersions(ctx context.Context, viewer *models.Actor, id uuid.UUID) ([]models.PromptVersion, error)
}

// Prompts groups the prompt HTTP handlers.
type Prompts struct {
	svc PromptService
	// anonymous acts for requests without a session on the endpoints the
	// anonymous publisher may use. Nil disables anonymous publishing.
	anonymous *models.Actor
}

// NewPrompts creates the prompt handler group.
func NewPrompts(svc PromptService, anonymous *models.Actor) *Prompts {
	return &Prompts{svc: svc, anonymous: anonymous}
}

// publisher returns the signed-in actor, falling back to the anonymous
// publisher.
func (h *Prompts) publisher(r *http.Request) *models.Actor {
	if actor := middleware.ActorFromCtx(r.Context()); actor != nil {
		return actor
	}
	return h.anonymous
}

type reviewRequest struct {
	Comment *string `json:"comment"`
}

type offlineRequest struct {
	Reason *string `json:"reason"`
}

// List returns one page of prompts visible to the caller.
func (h *Prompts) List(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r.URL.Query())
	if err != nil {
		respondError(w, r, err)
		return
	}
	page, err := h.svc.ListPrompts(r.Context(), middleware.ActorFromCtx(r.Context()), q)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// Create stores a new draft prompt.
func (h *Prompts) Create(w http.ResponseWriter, r *http.Request) {
	var in workflow.CreatePromptInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	p, err := h.svc.CreatePrompt(r.Context(), h.publisher(r), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

// Get returns a single prompt.
func (h *Prompts) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	p, err := h.svc.GetPrompt(r.Context(), middleware.ActorFromCtx(r.Context()), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// Update applies a partial content edit.
func (h *Prompts) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	var in workflow.UpdatePromptInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	p, err := h.svc.UpdatePrompt(r.Context(), middleware.ActorFromCtx(r.Context()), id, in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// Versions returns the prompt's version history, newest first.
func (h *Prompts) Versions(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	versions, err := h.svc.ListVersions(r.Context(), middleware.ActorFromCtx(r.Context()), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, versions)
}

// SubmitReview moves a prompt into the review queue.
func (h *Prompts) SubmitReview(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req reviewRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	p, err := h.svc.SubmitForReview(r.Context(), middleware.ActorFromCtx(r.Context()), id, req.Comment)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// Publish makes a prompt public.
func (h *Prompts) Publish(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req reviewRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	p, err := h.svc.Publish(r.Context(), h.publisher(r), id, req.Comment)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// Offline hides a prompt from the public.
func (h *Prompts) Offline(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req offlineRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	p, err := h.svc.TakeOffline(r.Context(), middleware.ActorFromCtx(r.Context()), id, req.Reason)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// Rollback restores an earlier version's content as a new version.
func (h *Prompts) Rollback(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	version, err := pathVersion(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	p, err := h.svc.RollbackTo(r.Context(), middleware.ActorFromCtx(r.Context()), id, version)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}
