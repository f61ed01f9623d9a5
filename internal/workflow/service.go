// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package workflow implements the prompt lifecycle: the version ledger, the
// moderation state machine, policy checks on every read and write, and
// keeping the listing cache consistent with committed changes.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"promptui/internal/models"
	"promptui/internal/policy"
	"promptui/internal/slug"
	"promptui/internal/store"
)

// Options tunes a Service. Zero values select the defaults.
type Options struct {
	// SlugMaxProbes caps slug candidates tried per create attempt.
	SlugMaxProbes int
	// CreateAttempts bounds how often a create is retried after losing a
	// slug race to a concurrent creator.
	CreateAttempts uint
	// CreateRetryDelay is the pause between create attempts.
	CreateRetryDelay time.Duration
	// Now returns the current time. Used for review timestamps.
	Now func() time.Time
}

const (
	defaultCreateAttempts   = 5
	defaultCreateRetryDelay = 10 * time.Millisecond
)

// Service exposes every prompt operation. It is safe for concurrent use.
type Service struct {
	store  Store
	cache  ListCache
	opts   Options
	flight singleflight.Group
}

// New returns a Service over st. cache may be nil, which disables listing
// caching.
func New(st Store, cache ListCache, opts Options) *Service {
	if opts.SlugMaxProbes <= 0 {
		opts.SlugMaxProbes = slug.DefaultMaxProbes
	}
	if opts.CreateAttempts == 0 {
		opts.CreateAttempts = defaultCreateAttempts
	}
	if opts.CreateRetryDelay <= 0 {
		opts.CreateRetryDelay = defaultCreateRetryDelay
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{store: st, cache: cache, opts: opts}
}

// requireSignedIn rejects requests without a real signed-in user. The
// anonymous publisher does not count.
func requireSignedIn(actor *models.Actor) error {
	if actor == nil || actor.Anonymous {
		return ErrUnauthenticated
	}
	return nil
}

// invalidate flushes the listing cache after a committed mutation. A
// failure is logged and never undoes or fails the mutation.
func (s *Service) invalidate(ctx context.Context, op string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateAll(context.WithoutCancel(ctx)); err != nil {
		slog.Error("list cache invalidation failed", "op", op, "error", err)
	}
}

func audit(actor *models.Actor, action, entityType, entityID string, details map[string]any) *models.AuditEntry {
	return &models.AuditEntry{
		ActorID:    actor.IDPtr(),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
	}
}

// checkCategory verifies a prompt may be filed under the category.
func checkCategory(ctx context.Context, tx Tx, id uuid.UUID) error {
	c, err := tx.FindCategory(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return invalid("category %s does not exist", id)
	}
	if err != nil {
		return err
	}
	if !c.IsActive {
		return invalid("category %s is inactive", id)
	}
	return nil
}

// CreatePrompt stores a new draft with version 1. actor may be the
// anonymous publisher. A title whose slug collides with a concurrent
// create is retried with a fresh probe.
func (s *Service) CreatePrompt(ctx context.Context, actor *models.Actor, in CreatePromptInput) (*models.Prompt, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	var created *models.Prompt
	attempt := func() error {
		return s.store.InTx(ctx, func(tx Tx) error {
			if err := checkCategory(ctx, tx, in.CategoryID); err != nil {
				return err
			}

			sl, err := slug.Allocate(ctx, tx.SlugExists, in.Title, s.opts.SlugMaxProbes)
			if errors.Is(err, slug.ErrExhausted) {
				return fmt.Errorf("%w: %v", ErrConflict, err)
			}
			if err != nil {
				return err
			}

			p, err := tx.InsertPrompt(ctx, &models.Prompt{
				Slug: sl,
				PromptContent: cloneContent(models.PromptContent{
					Title:            in.Title,
					TitleEN:          in.TitleEN,
					PromptText:       in.PromptText,
					Tags:             in.Tags,
					TagsEN:           in.TagsEN,
					Subcategory:      in.Subcategory,
					PreviewComponent: in.PreviewComponent,
					CodeAssets:       in.CodeAssets,
				}),
				Status:         models.StatusDraft,
				CurrentVersion: 1,
				CategoryID:     in.CategoryID,
				AuthorID:       actor.ID,
			})
			if err != nil {
				return err
			}
			if _, err := tx.InsertVersion(ctx, snapshot(p, noteInitial, actor.IDPtr())); err != nil {
				return err
			}
			err = tx.RecordAudit(ctx, audit(actor, models.ActionPromptCreate, models.EntityPrompt, p.ID.String(),
				map[string]any{"title": p.Title, "status": p.Status}))
			if err != nil {
				return err
			}
			created = p
			return nil
		})
	}

	err := retry.Do(attempt,
		retry.Context(ctx),
		retry.Attempts(s.opts.CreateAttempts),
		retry.Delay(s.opts.CreateRetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return errors.Is(err, store.ErrDuplicate) }),
		retry.OnRetry(func(n uint, err error) {
			slog.Debug("retrying prompt create after slug collision", "attempt", n+1, "title", in.Title)
		}),
	)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, fmt.Errorf("%w: could not allocate a unique slug for %q", ErrConflict, in.Title)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("prompt created", "id", created.ID, "slug", created.Slug, "author", actor.ID)
	s.invalidate(ctx, models.ActionPromptCreate)
	return created, nil
}

// UpdatePrompt applies a content edit. An edit that changes nothing writes
// nothing and returns the prompt as it is.
func (s *Service) UpdatePrompt(ctx context.Context, actor *models.Actor, id uuid.UUID, in UpdatePromptInput) (*models.Prompt, error) {
	if err := requireSignedIn(actor); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	var (
		result  *models.Prompt
		changed bool
	)
	err := s.store.InTx(ctx, func(tx Tx) error {
		p, err := tx.LockPrompt(ctx, id)
		if err != nil {
			return fromStore(err, "prompt")
		}
		if !policy.CanEdit(p.AuthorID, actor) {
			return forbidden("not allowed to edit this prompt")
		}
		if in.CategoryID.Set {
			if err := checkCategory(ctx, tx, in.CategoryID.Value); err != nil {
				return err
			}
		}

		fields := applyUpdate(p, &in)
		if len(fields) == 0 {
			result = p
			return nil
		}

		note := noteUpdated
		if in.ChangeNote != nil && *in.ChangeNote != "" {
			note = *in.ChangeNote
		}
		if err := advance(ctx, tx, p, actionEdit, actor, note); err != nil {
			return err
		}
		updated, err := tx.UpdatePrompt(ctx, p)
		if err != nil {
			return err
		}
		err = tx.RecordAudit(ctx, audit(actor, models.ActionPromptUpdate, models.EntityPrompt, p.ID.String(),
			map[string]any{"changed_fields": fields, "status": updated.Status}))
		if err != nil {
			return err
		}
		result, changed = updated, true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		slog.Info("prompt updated", "id", id, "version", result.CurrentVersion, "status", result.Status)
		s.invalidate(ctx, models.ActionPromptUpdate)
	}
	return result, nil
}

// advance moves p to the status a leads to and, for content actions,
// appends the next ledger entry with note.
func advance(ctx context.Context, tx Tx, p *models.Prompt, a action, actor *models.Actor, note string) error {
	var err error
	if p.Status, err = nextStatus(a, p.Status, actor); err != nil {
		return err
	}
	if !bumpsVersion(a) {
		return nil
	}
	p.CurrentVersion++
	_, err = tx.InsertVersion(ctx, snapshot(p, note, actor.IDPtr()))
	return err
}

// transition runs a status-only change. It never appends a version.
func (s *Service) transition(ctx context.Context, actor *models.Actor, id uuid.UUID, a action,
	authorize func(p *models.Prompt) error, apply func(p *models.Prompt), entry func(p *models.Prompt) *models.AuditEntry,
) (*models.Prompt, error) {
	var result *models.Prompt
	err := s.store.InTx(ctx, func(tx Tx) error {
		p, err := tx.LockPrompt(ctx, id)
		if err != nil {
			return fromStore(err, "prompt")
		}
		if err := authorize(p); err != nil {
			return err
		}
		if err := advance(ctx, tx, p, a, actor, ""); err != nil {
			return err
		}
		apply(p)

		updated, err := tx.UpdatePrompt(ctx, p)
		if err != nil {
			return err
		}
		if err := tx.RecordAudit(ctx, entry(updated)); err != nil {
			return err
		}
		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("prompt status changed", "id", id, "action", a, "status", result.Status)
	s.invalidate(ctx, string(a))
	return result, nil
}

// SubmitForReview moves a prompt to pending_review and stores the comment.
func (s *Service) SubmitForReview(ctx context.Context, actor *models.Actor, id uuid.UUID, comment *string) (*models.Prompt, error) {
	if err := requireSignedIn(actor); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, id, actionSubmit,
		func(p *models.Prompt) error {
			if !policy.CanEdit(p.AuthorID, actor) {
				return forbidden("not allowed to submit this prompt")
			}
			return nil
		},
		func(p *models.Prompt) {
			p.ReviewComment = comment
		},
		func(p *models.Prompt) *models.AuditEntry {
			return audit(actor, models.ActionPromptSubmitReview, models.EntityPrompt, p.ID.String(),
				map[string]any{"comment": comment})
		},
	)
}

// Publish makes a prompt public. Staff and the anonymous publisher may
// publish.
func (s *Service) Publish(ctx context.Context, actor *models.Actor, id uuid.UUID, comment *string) (*models.Prompt, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	return s.transition(ctx, actor, id, actionPublish,
		func(*models.Prompt) error {
			if !policy.CanPublish(actor) {
				return forbidden("only editors and admins may publish")
			}
			return nil
		},
		func(p *models.Prompt) {
			now := s.opts.Now().UTC()
			p.ReviewerID = actor.IDPtr()
			p.ReviewedAt = &now
			p.PublishedAt = &now
			p.ReviewComment = comment
		},
		func(p *models.Prompt) *models.AuditEntry {
			return audit(actor, models.ActionPromptPublish, models.EntityPrompt, p.ID.String(),
				map[string]any{"comment": comment})
		},
	)
}

// TakeOffline hides a prompt from the public. Staff only.
func (s *Service) TakeOffline(ctx context.Context, actor *models.Actor, id uuid.UUID, reason *string) (*models.Prompt, error) {
	if err := requireSignedIn(actor); err != nil {
		return nil, err
	}
	if !policy.CanTakeOffline(actor) {
		return nil, forbidden("only editors and admins may take prompts offline")
	}
	return s.transition(ctx, actor, id, actionOffline,
		func(*models.Prompt) error { return nil },
		func(p *models.Prompt) {
			now := s.opts.Now().UTC()
			p.ReviewerID = actor.IDPtr()
			p.ReviewedAt = &now
			p.ReviewComment = reason
		},
		func(p *models.Prompt) *models.AuditEntry {
			return audit(actor, models.ActionPromptOffline, models.EntityPrompt, p.ID.String(),
				map[string]any{"reason": reason})
		},
	)
}

// RollbackTo restores the content of an earlier version as a new version.
// Non-staff rollbacks send the prompt back to review; staff rollbacks keep
// the current status.
func (s *Service) RollbackTo(ctx context.Context, actor *models.Actor, id uuid.UUID, version int) (*models.Prompt, error) {
	if err := requireSignedIn(actor); err != nil {
		return nil, err
	}

	var result *models.Prompt
	err := s.store.InTx(ctx, func(tx Tx) error {
		p, err := tx.LockPrompt(ctx, id)
		if err != nil {
			return fromStore(err, "prompt")
		}
		if !policy.CanEdit(p.AuthorID, actor) {
			return forbidden("not allowed to roll back this prompt")
		}
		// Versions start at 1; anything lower names no version.
		if version < 1 {
			return fromStore(store.ErrNotFound, fmt.Sprintf("version %d", version))
		}
		v, err := tx.FindVersion(ctx, id, version)
		if err != nil {
			return fromStore(err, fmt.Sprintf("version %d", version))
		}

		restore(p, v)
		if err := advance(ctx, tx, p, actionRollback, actor, rollbackNote(version)); err != nil {
			return err
		}
		updated, err := tx.UpdatePrompt(ctx, p)
		if err != nil {
			return err
		}
		err = tx.RecordAudit(ctx, audit(actor, models.ActionPromptRollback, models.EntityPrompt, p.ID.String(),
			map[string]any{"rollback_to": version, "new_version": updated.CurrentVersion}))
		if err != nil {
			return err
		}
		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("prompt rolled back", "id", id, "to", version, "version", result.CurrentVersion)
	s.invalidate(ctx, models.ActionPromptRollback)
	return result, nil
}

// GetPrompt returns a prompt if viewer may see it. viewer may be nil.
func (s *Service) GetPrompt(ctx context.Context, viewer *models.Actor, id uuid.UUID) (*models.Prompt, error) {
	p, err := s.store.FindPrompt(ctx, id)
	if err != nil {
		return nil, fromStore(err, "prompt")
	}
	if !policy.CanView(p.Status, p.AuthorID, viewer) {
		return nil, forbidden("not allowed to view this prompt")
	}
	return p, nil
}

// ListVersions returns a prompt's ledger, newest first, if viewer may see
// the prompt.
func (s *Service) ListVersions(ctx context.Context, viewer *models.Actor, id uuid.UUID) ([]models.PromptVersion, error) {
	p, err := s.store.FindPrompt(ctx, id)
	if err != nil {
		return nil, fromStore(err, "prompt")
	}
	if !policy.CanView(p.Status, p.AuthorID, viewer) {
		return nil, forbidden("not allowed to view versions of this prompt")
	}
	return s.store.ListVersions(ctx, id)
}
