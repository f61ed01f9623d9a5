// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package workflow

import (
	"fmt"
	"slices"

	"promptui/internal/models"
	"promptui/internal/policy"
)

// action is a prompt mutation that may move the status.
type action string

const (
	actionEdit     action = "edit"
	actionSubmit   action = "submit_review"
	actionPublish  action = "publish"
	actionOffline  action = "offline"
	actionRollback action = "rollback"
)

// transitions lists the statuses reachable from each status. Draft is
// only ever entered on creation.
var transitions = map[models.PromptStatus][]models.PromptStatus{
	models.StatusDraft: {
		models.StatusDraft, models.StatusPendingReview, models.StatusPublished, models.StatusOffline,
	},
	models.StatusPendingReview: {
		models.StatusPendingReview, models.StatusPublished, models.StatusOffline,
	},
	models.StatusPublished: {
		models.StatusPublished, models.StatusPendingReview, models.StatusOffline,
	},
	models.StatusOffline: {
		models.StatusOffline, models.StatusPendingReview, models.StatusPublished,
	},
}

// bumpsVersion reports whether an action appends to the ledger.
func bumpsVersion(a action) bool {
	return a == actionEdit || a == actionRollback
}

// nextStatus returns the status a prompt in from ends up in after a is
// performed by actor.
func nextStatus(a action, from models.PromptStatus, actor *models.Actor) (models.PromptStatus, error) {
	var to models.PromptStatus
	switch a {
	case actionEdit:
		to = from
		if policy.DemoteOnEdit(from, actor) {
			to = models.StatusPendingReview
		}
	case actionRollback:
		to = from
		if policy.DemoteOnRollback(actor) {
			to = models.StatusPendingReview
		}
	case actionSubmit:
		to = models.StatusPendingReview
	case actionPublish:
		to = models.StatusPublished
	case actionOffline:
		to = models.StatusOffline
	default:
		return "", fmt.Errorf("unknown action %q", a)
	}
	if !canTransition(from, to) {
		return "", fmt.Errorf("%w: cannot move from %s to %s", ErrConflict, from, to)
	}
	return to, nil
}

func canTransition(from, to models.PromptStatus) bool {
	return slices.Contains(transitions[from], to)
}
