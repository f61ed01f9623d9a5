// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/google/uuid"

	"promptui/internal/models"
)

func TestPromptInsertAndFind(t *testing.T) {
	db := testDB(t)
	s := New(db)
	ctx := context.Background()
	user, cat := fixture(t, db, "prompt-insert")

	var created *models.Prompt
	err := s.WithTx(ctx, func(tx *Tx) error {
		var err error
		created, err = tx.InsertPrompt(ctx, newPrompt(user.ID, cat.ID, "store-test-insert"))
		return err
	})
	if err != nil {
		t.Fatalf("InsertPrompt: %v", err)
	}
	if created.ID == uuid.Nil {
		t.Error("expected generated ID")
	}

	found, err := s.FindPrompt(ctx, created.ID)
	if err != nil {
		t.Fatalf("FindPrompt: %v", err)
	}
	if found.Slug != "store-test-insert" {
		t.Errorf("slug: got %q, want %q", found.Slug, "store-test-insert")
	}
	if !reflect.DeepEqual(found.Tags, []string{"hero", "banner"}) {
		t.Errorf("tags: got %v", found.Tags)
	}
	if found.TagsEN == nil || len(found.TagsEN) != 0 {
		t.Errorf("tags_en: got %v, want empty slice", found.TagsEN)
	}
	if found.CodeAssets["html"] != "<section></section>" {
		t.Errorf("code assets: got %v", found.CodeAssets)
	}
}

func TestPromptFindMissing(t *testing.T) {
	db := testDB(t)
	_, err := New(db).FindPrompt(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPromptDuplicateSlug(t *testing.T) {
	db := testDB(t)
	s := New(db)
	ctx := context.Background()
	user, cat := fixture(t, db, "prompt-dup")

	insert := func() error {
		return s.WithTx(ctx, func(tx *Tx) error {
			_, err := tx.InsertPrompt(ctx, newPrompt(user.ID, cat.ID, "store-test-dup"))
			return err
		})
	}
	if err := insert(); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := insert(); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("second insert: expected ErrDuplicate, got %v", err)
	}
}

func TestVersionLedger(t *testing.T) {
	db := testDB(t)
	s := New(db)
	ctx := context.Background()
	user, cat := fixture(t, db, "prompt-ledger")

	var promptID uuid.UUID
	err := s.WithTx(ctx, func(tx *Tx) error {
		p, err := tx.InsertPrompt(ctx, newPrompt(user.ID, cat.ID, "store-test-ledger"))
		if err != nil {
			return err
		}
		promptID = p.ID
		for n := 1; n <= 2; n++ {
			_, err := tx.InsertVersion(ctx, &models.PromptVersion{
				PromptID:      p.ID,
				VersionNumber: n,
				PromptContent: p.PromptContent,
				CreatedBy:     &user.ID,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed ledger: %v", err)
	}

	versions, err := s.ListVersions(ctx, promptID)
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("versions: got %d, want 2", len(versions))
	}
	if versions[0].VersionNumber != 2 || versions[1].VersionNumber != 1 {
		t.Errorf("order: got %d,%d, want 2,1", versions[0].VersionNumber, versions[1].VersionNumber)
	}

	err = s.WithTx(ctx, func(tx *Tx) error {
		_, err := tx.InsertVersion(ctx, &models.PromptVersion{PromptID: promptID, VersionNumber: 2})
		return err
	})
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate version number: expected ErrDuplicate, got %v", err)
	}

	err = s.WithTx(ctx, func(tx *Tx) error {
		_, err := tx.FindVersion(ctx, promptID, 9)
		return err
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("missing version: expected ErrNotFound, got %v", err)
	}
}

func TestListPromptsHidesInactiveCategories(t *testing.T) {
	db := testDB(t)
	s := New(db)
	ctx := context.Background()
	user, cat := fixture(t, db, "prompt-list")

	err := s.WithTx(ctx, func(tx *Tx) error {
		p := newPrompt(user.ID, cat.ID, "store-test-list")
		p.Status = models.StatusPublished
		if _, err := tx.InsertPrompt(ctx, p); err != nil {
			return err
		}
		cat.IsActive = false
		_, err := tx.UpdateCategory(ctx, cat)
		return err
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	filter := PromptFilter{
		CategoryID: &cat.ID,
		Status:     models.StatusPublished,
		Page:       1,
		PageSize:   20,
		Descending: true,
	}
	page, err := s.ListPrompts(ctx, filter)
	if err != nil {
		t.Fatalf("ListPrompts: %v", err)
	}
	if page.Total != 1 || len(page.Items) != 1 {
		t.Fatalf("staff view: got total=%d items=%d, want 1/1", page.Total, len(page.Items))
	}
	if got := page.Items[0].AuthorUsername; got == nil || *got != user.Username {
		t.Errorf("author username: got %v, want %q", got, user.Username)
	}

	filter.ActiveCategoriesOnly = true
	page, err = s.ListPrompts(ctx, filter)
	if err != nil {
		t.Fatalf("ListPrompts (active only): %v", err)
	}
	if page.Total != 0 || len(page.Items) != 0 {
		t.Errorf("public view: got total=%d items=%d, want 0/0", page.Total, len(page.Items))
	}
}

func TestDeleteReferencedCategory(t *testing.T) {
	db := testDB(t)
	s := New(db)
	ctx := context.Background()
	user, cat := fixture(t, db, "category-ref")

	err := s.WithTx(ctx, func(tx *Tx) error {
		_, err := tx.InsertPrompt(ctx, newPrompt(user.ID, cat.ID, "store-test-ref"))
		return err
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	err = s.WithTx(ctx, func(tx *Tx) error {
		n, err := tx.CountPromptsInCategory(ctx, cat.ID)
		if err != nil {
			return err
		}
		if n != 1 {
			t.Errorf("count: got %d, want 1", n)
		}
		return tx.DeleteCategory(ctx, cat.ID)
	})
	if !errors.Is(err, ErrReferenced) {
		t.Fatalf("expected ErrReferenced, got %v", err)
	}
}

func TestSortColumn(t *testing.T) {
	tests := map[string]string{
		"title":        "p.title",
		"published_at": "p.published_at",
		"created_at":   "p.created_at",
		"updated_at":   "p.updated_at",
		"popularity":   "p.updated_at",
		"":             "p.updated_at",
	}
	for in, want := range tests {
		if got := SortColumn(in); got != want {
			t.Errorf("SortColumn(%q) = %q, want %q", in, got, want)
		}
	}
}
