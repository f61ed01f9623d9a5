// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package policy decides who may see and change prompts. Every read and
// write path asks these predicates instead of comparing statuses itself.
// A nil viewer is an unauthenticated request.
package policy

import (
	"github.com/google/uuid"

	"promptui/internal/models"
)

// CanView reports whether viewer may read the prompt and its versions.
// Published prompts are public; anything else is limited to the author
// and staff.
func CanView(status models.PromptStatus, authorID uuid.UUID, viewer *models.Actor) bool {
	if status == models.StatusPublished {
		return true
	}
	return isOwnerOrStaff(authorID, viewer)
}

// CanEdit reports whether viewer may change the prompt's content, submit it
// for review or roll it back. Status does not matter.
func CanEdit(authorID uuid.UUID, viewer *models.Actor) bool {
	return isOwnerOrStaff(authorID, viewer)
}

// CanPublish reports whether viewer may publish prompts. Besides staff, the
// anonymous publisher identity may publish.
func CanPublish(viewer *models.Actor) bool {
	if viewer == nil {
		return false
	}
	return viewer.IsStaff() || viewer.Anonymous
}

// CanTakeOffline reports whether viewer may take prompts offline.
func CanTakeOffline(viewer *models.Actor) bool {
	return viewer.IsStaff()
}

// CanReview reports whether viewer may see the review queue.
func CanReview(viewer *models.Actor) bool {
	return viewer.IsStaff()
}

// CanManageCategories reports whether viewer may create and edit categories.
func CanManageCategories(viewer *models.Actor) bool {
	return viewer.IsStaff()
}

// CanDeleteCategory reports whether viewer may delete categories.
func CanDeleteCategory(viewer *models.Actor) bool {
	return viewer.IsAdmin()
}

// CanReadAudit reports whether viewer may read the audit log.
func CanReadAudit(viewer *models.Actor) bool {
	return viewer.IsAdmin()
}

// DemoteOnEdit reports whether a content change by viewer sends the prompt
// back to review. Non-staff edits of published prompts require re-approval.
func DemoteOnEdit(status models.PromptStatus, viewer *models.Actor) bool {
	return status == models.StatusPublished && !viewer.IsStaff()
}

// DemoteOnRollback reports whether a rollback by viewer sends the prompt to
// review. Non-staff rollbacks always do; staff rollbacks keep the status.
func DemoteOnRollback(viewer *models.Actor) bool {
	return !viewer.IsStaff()
}

// Scope restricts a prompt listing to what a viewer may see.
type Scope struct {
	// Status limits results to a single status. Empty means any status.
	Status models.PromptStatus
	// ActiveCategoriesOnly hides prompts whose category is inactive.
	ActiveCategoriesOnly bool
	// Staff marks a staff listing. Staff listings are never cached.
	Staff bool
}

// ListScope returns the listing restriction for viewer. Staff may narrow
// by an explicit status; everyone else sees published prompts in active
// categories and any requested status is ignored.
func ListScope(viewer *models.Actor, requested models.PromptStatus) Scope {
	if viewer.IsStaff() {
		return Scope{Status: requested, Staff: true}
	}
	return Scope{Status: models.StatusPublished, ActiveCategoriesOnly: true}
}

// CanViewCategory reports whether viewer may see a category.
func CanViewCategory(c *models.Category, viewer *models.Actor) bool {
	return c.IsActive || viewer.IsStaff()
}

func isOwnerOrStaff(authorID uuid.UUID, viewer *models.Actor) bool {
	if viewer == nil {
		return false
	}
	if viewer.IsStaff() {
		return true
	}
	return viewer.ID == authorID
}
