package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"promptui/internal/models"
	"promptui/internal/policy"
)

// ListCategories returns categories ordered by name. Only staff see
// inactive ones.
func (s *Service) ListCategories(ctx context.Context, viewer *models.Actor) ([]models.Category, error) {
	return s.store.ListCategories(ctx, !viewer.IsStaff())
}

// GetCategory returns one category if viewer may see it.
func (s *Service) GetCategory(ctx context.Context, viewer *models.Actor, id uuid.UUID) (*models.Category, error) {
	c, err := s.store.FindCategory(ctx, id)
	if err != nil {
		return nil, fromStore(err, "category")
	}
	if !policy.CanViewCategory(c, viewer) {
		// Inactive categories do not exist as far as the public is concerned.
		return nil, fmt.Errorf("%w: category", ErrNotFound)
	}
	return c, nil
}

// CreateCategory adds an active category. Staff only.
func (s *Service) CreateCategory(ctx context.Context, actor *models.Actor, in CategoryInput) (*models.Category, error) {
	if err := requireSignedIn(actor); err != nil {
		return nil, err
	}
	if !policy.CanManageCategories(actor) {
		return nil, forbidden("only editors and admins may manage categories")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	var created *models.Category
	err := s.store.InTx(ctx, func(tx Tx) error {
		c, err := tx.InsertCategory(ctx, &models.Category{
			Key:         strings.TrimSpace(in.Key),
			Name:        strings.TrimSpace(in.Name),
			Description: in.Description,
			IsActive:    true,
		})
		if err != nil {
			return fromStore(err, "category key or name")
		}
		err = tx.RecordAudit(ctx, audit(actor, models.ActionCategoryCreate, models.EntityCategory, c.ID.String(),
			map[string]any{"key": c.Key, "name": c.Name}))
		if err != nil {
			return err
		}
		created = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("category created", "id", created.ID, "key", created.Key)
	s.invalidate(ctx, models.ActionCategoryCreate)
	return created, nil
}

// UpdateCategory applies a partial update. Staff only. Deactivating a
// category hides its prompts from public listings.
func (s *Service) UpdateCategory(ctx context.Context, actor *models.Actor, id uuid.UUID, in CategoryPatch) (*models.Category, error) {
	if err := requireSignedIn(actor); err != nil {
		return nil, err
	}
	if !policy.CanManageCategories(actor) {
		return nil, forbidden("only editors and admins may manage categories")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	var updated *models.Category
	err := s.store.InTx(ctx, func(tx Tx) error {
		c, err := tx.FindCategory(ctx, id)
		if err != nil {
			return fromStore(err, "category")
		}
		if in.Key.Set {
			c.Key = strings.TrimSpace(in.Key.Value)
		}
		if in.Name.Set {
			c.Name = strings.TrimSpace(in.Name.Value)
		}
		if in.Description.Set {
			c.Description = in.Description.Value
		}
		if in.IsActive.Set {
			c.IsActive = in.IsActive.Value
		}

		if updated, err = tx.UpdateCategory(ctx, c); err != nil {
			return fromStore(err, "category key or name")
		}
		return tx.RecordAudit(ctx, audit(actor, models.ActionCategoryUpdate, models.EntityCategory, id.String(),
			in.details()))
	})
	if err != nil {
		return nil, err
	}

	slog.Info("category updated", "id", id, "active", updated.IsActive)
	s.invalidate(ctx, models.ActionCategoryUpdate)
	return updated, nil
}

// DeleteCategory removes a category no prompt refers to. Admin only.
func (s *Service) DeleteCategory(ctx context.Context, actor *models.Actor, id uuid.UUID) error {
	if err := requireSignedIn(actor); err != nil {
		return err
	}
	if !policy.CanDeleteCategory(actor) {
		return forbidden("only admins may delete categories")
	}

	err := s.store.InTx(ctx, func(tx Tx) error {
		c, err := tx.FindCategory(ctx, id)
		if err != nil {
			return fromStore(err, "category")
		}
		n, err := tx.CountPromptsInCategory(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: category %q still has %d prompts, deactivate it instead", ErrConflict, c.Key, n)
		}
		if err := tx.DeleteCategory(ctx, id); err != nil {
			return fromStore(err, "category")
		}
		return tx.RecordAudit(ctx, audit(actor, models.ActionCategoryDelete, models.EntityCategory, id.String(),
			map[string]any{"key": c.Key, "name": c.Name}))
	})
	if err != nil {
		return err
	}

	slog.Info("category deleted", "id", id)
	s.invalidate(ctx, models.ActionCategoryDelete)
	return nil
}
