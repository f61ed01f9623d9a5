package workflow

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Field length limits, matching the column sizes.
const (
	MaxTitleLength            = 255
	MaxSubcategoryLength      = 64
	MaxPreviewComponentLength = 128
	MaxTagLength              = 64
	MaxQueryLength            = 200
	MaxCategoryKeyLength      = 64
	MaxCategoryNameLength     = 128
)

// Optional distinguishes a field that was left out of a patch from one that
// was set, possibly to null.
type Optional[T any] struct {
	Set   bool
	Value T
}

// Some returns a set Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// UnmarshalJSON marks the field as set. It is only called when the key is
// present in the document.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(data, []byte("null")) {
		var zero T
		o.Value = zero
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

// CreatePromptInput carries the content of a new prompt.
type CreatePromptInput struct {
	Title            string         `json:"title"`
	TitleEN          *string        `json:"title_en"`
	PromptText       string         `json:"prompt_text"`
	Tags             []string       `json:"tags"`
	TagsEN           []string       `json:"tags_en"`
	Subcategory      *string        `json:"subcategory"`
	PreviewComponent *string        `json:"preview_component"`
	CodeAssets       map[string]any `json:"code_assets"`
	CategoryID       uuid.UUID      `json:"category_id"`
}

func (in *CreatePromptInput) validate() error {
	if err := checkTitle(in.Title); err != nil {
		return err
	}
	if strings.TrimSpace(in.PromptText) == "" {
		return invalid("prompt_text is required")
	}
	if in.CategoryID == uuid.Nil {
		return invalid("category_id is required")
	}
	return checkOptionalFields(in.TitleEN, in.Subcategory, in.PreviewComponent, in.Tags, in.TagsEN)
}

// UpdatePromptInput is a partial content edit. Fields left unset keep their
// current value.
type UpdatePromptInput struct {
	Title            Optional[string]         `json:"title"`
	TitleEN          Optional[*string]        `json:"title_en"`
	PromptText       Optional[string]         `json:"prompt_text"`
	Tags             Optional[[]string]       `json:"tags"`
	TagsEN           Optional[[]string]       `json:"tags_en"`
	Subcategory      Optional[*string]        `json:"subcategory"`
	PreviewComponent Optional[*string]        `json:"preview_component"`
	CodeAssets       Optional[map[string]any] `json:"code_assets"`
	CategoryID       Optional[uuid.UUID]      `json:"category_id"`
	ChangeNote       *string                  `json:"change_note"`
}

func (in *UpdatePromptInput) validate() error {
	if in.Title.Set {
		if err := checkTitle(in.Title.Value); err != nil {
			return err
		}
	}
	if in.PromptText.Set && strings.TrimSpace(in.PromptText.Value) == "" {
		return invalid("prompt_text must not be empty")
	}
	if in.CategoryID.Set && in.CategoryID.Value == uuid.Nil {
		return invalid("category_id must not be empty")
	}
	return checkOptionalFields(in.TitleEN.Value, in.Subcategory.Value, in.PreviewComponent.Value, in.Tags.Value, in.TagsEN.Value)
}

// CategoryInput carries a new category.
type CategoryInput struct {
	Key         string  `json:"key"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

func (in *CategoryInput) validate() error {
	if err := checkRequired("key", in.Key, MaxCategoryKeyLength); err != nil {
		return err
	}
	return checkRequired("name", in.Name, MaxCategoryNameLength)
}

// CategoryPatch is a partial category update.
type CategoryPatch struct {
	Key         Optional[string]  `json:"key"`
	Name        Optional[string]  `json:"name"`
	Description Optional[*string] `json:"description"`
	IsActive    Optional[bool]    `json:"is_active"`
}

func (in *CategoryPatch) validate() error {
	if in.Key.Set {
		if err := checkRequired("key", in.Key.Value, MaxCategoryKeyLength); err != nil {
			return err
		}
	}
	if in.Name.Set {
		return checkRequired("name", in.Name.Value, MaxCategoryNameLength)
	}
	return nil
}

// details lists the supplied fields for the audit log.
func (in *CategoryPatch) details() map[string]any {
	d := map[string]any{}
	if in.Key.Set {
		d["key"] = in.Key.Value
	}
	if in.Name.Set {
		d["name"] = in.Name.Value
	}
	if in.Description.Set {
		d["description"] = in.Description.Value
	}
	if in.IsActive.Set {
		d["is_active"] = in.IsActive.Value
	}
	return d
}

func checkTitle(title string) error {
	return checkRequired("title", title, MaxTitleLength)
}

func checkRequired(field, value string, max int) error {
	if strings.TrimSpace(value) == "" {
		return invalid("%s is required", field)
	}
	if utf8.RuneCountInString(value) > max {
		return invalid("%s must be at most %d characters", field, max)
	}
	return nil
}

func checkOptionalFields(titleEN, subcategory, preview *string, tags, tagsEN []string) error {
	limits := []struct {
		field string
		value *string
		max   int
	}{
		{"title_en", titleEN, MaxTitleLength},
		{"subcategory", subcategory, MaxSubcategoryLength},
		{"preview_component", preview, MaxPreviewComponentLength},
	}
	for _, l := range limits {
		if l.value != nil && utf8.RuneCountInString(*l.value) > l.max {
			return invalid("%s must be at most %d characters", l.field, l.max)
		}
	}
	for _, list := range [][]string{tags, tagsEN} {
		for _, tag := range list {
			if utf8.RuneCountInString(tag) > MaxTagLength {
				return invalid("tag %q must be at most %d characters", tag, MaxTagLength)
			}
		}
	}
	return nil
}
