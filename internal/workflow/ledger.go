// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package workflow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"

	"promptui/internal/models"
)

// Change notes written to the ledger.
const (
	noteInitial = "Initial draft"
	noteUpdated = "Content updated"
)

func rollbackNote(version int) string {
	return fmt.Sprintf("Rollback to version %d", version)
}

// snapshot captures the head's content as the next ledger entry. The
// head's CurrentVersion must already point at the new version.
func snapshot(p *models.Prompt, note string, by *uuid.UUID) *models.PromptVersion {
	return &models.PromptVersion{
		PromptID:      p.ID,
		VersionNumber: p.CurrentVersion,
		PromptContent: cloneContent(p.PromptContent),
		ChangeNote:    &note,
		CreatedBy:     by,
	}
}

// restore copies a snapshot's content back into the head.
func restore(p *models.Prompt, v *models.PromptVersion) {
	p.PromptContent = cloneContent(v.PromptContent)
}

// applyUpdate writes every set field of in that differs from the head's
// current value and returns the names of the fields that changed, in a
// fixed order. An empty result means the edit is a no-op.
func applyUpdate(p *models.Prompt, in *UpdatePromptInput) []string {
	var changed []string
	c := &p.PromptContent

	if in.Title.Set && in.Title.Value != c.Title {
		c.Title = in.Title.Value
		changed = append(changed, "title")
	}
	if in.TitleEN.Set && !equalStringPtr(in.TitleEN.Value, c.TitleEN) {
		c.TitleEN = in.TitleEN.Value
		changed = append(changed, "title_en")
	}
	if in.PromptText.Set && in.PromptText.Value != c.PromptText {
		c.PromptText = in.PromptText.Value
		changed = append(changed, "prompt_text")
	}
	if in.Tags.Set && !equalTags(in.Tags.Value, c.Tags) {
		c.Tags = slices.Clone(in.Tags.Value)
		changed = append(changed, "tags")
	}
	if in.TagsEN.Set && !equalTags(in.TagsEN.Value, c.TagsEN) {
		c.TagsEN = slices.Clone(in.TagsEN.Value)
		changed = append(changed, "tags_en")
	}
	if in.Subcategory.Set && !equalStringPtr(in.Subcategory.Value, c.Subcategory) {
		c.Subcategory = in.Subcategory.Value
		changed = append(changed, "subcategory")
	}
	if in.PreviewComponent.Set && !equalStringPtr(in.PreviewComponent.Value, c.PreviewComponent) {
		c.PreviewComponent = in.PreviewComponent.Value
		changed = append(changed, "preview_component")
	}
	if in.CodeAssets.Set && !equalAssets(in.CodeAssets.Value, c.CodeAssets) {
		c.CodeAssets = in.CodeAssets.Value
		changed = append(changed, "code_assets")
	}
	if in.CategoryID.Set && in.CategoryID.Value != p.CategoryID {
		p.CategoryID = in.CategoryID.Value
		changed = append(changed, "category_id")
	}
	return changed
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// equalTags treats nil and empty lists as the same value.
func equalTags(a, b []string) bool {
	return slices.Equal(a, b)
}

// equalAssets compares code assets by their canonical JSON encoding, so
// numbers decoded from different sources compare by value. Nil and empty
// maps are equal.
func equalAssets(a, b map[string]any) bool {
	if len(a) == 0 || len(b) == 0 {
		return len(a) == len(b)
	}
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ja, jb)
}

func cloneContent(c models.PromptContent) models.PromptContent {
	out := c
	out.Tags = slices.Clone(c.Tags)
	out.TagsEN = slices.Clone(c.TagsEN)
	out.CodeAssets = maps.Clone(c.CodeAssets)
	return out
}
