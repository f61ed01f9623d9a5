package workflow

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"promptui/internal/cache"
	"promptui/internal/models"
	"promptui/internal/policy"
	"promptui/internal/store"
)

// Listing page size bounds.
const (
	DefaultPageSize      = 20
	MaxPageSize          = 100
	DefaultAuditPageSize = 50
	MaxAuditPageSize     = 200
)

// ListQuery is a prompt listing request as received from a client. Zero
// values select defaults.
type ListQuery struct {
	Q           string
	CategoryID  *uuid.UUID
	Subcategory string
	Status      string
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}

// listKey is the normalized listing query that identifies a cache entry.
// Field order is fixed, so equal queries serialize identically.
type listKey struct {
	Q           string `json:"q"`
	CategoryID  string `json:"category_id"`
	Status      string `json:"status"`
	Subcategory string `json:"subcategory"`
	Page        int    `json:"page"`
	PageSize    int    `json:"page_size"`
	SortBy      string `json:"sort_by"`
	SortOrder   string `json:"sort_order"`
	Role        string `json:"role"`
}

// normalize validates q and fills in defaults.
func (q ListQuery) normalize() (ListQuery, error) {
	q.Q = strings.TrimSpace(q.Q)
	if utf8.RuneCountInString(q.Q) > MaxQueryLength {
		return q, invalid("q must be at most %d characters", MaxQueryLength)
	}
	if utf8.RuneCountInString(q.Subcategory) > MaxSubcategoryLength {
		return q, invalid("subcategory must be at most %d characters", MaxSubcategoryLength)
	}
	if q.Status != "" && !models.PromptStatus(q.Status).Valid() {
		return q, invalid("unknown status %q", q.Status)
	}
	switch {
	case q.PageSize == 0:
		q.PageSize = DefaultPageSize
	case q.PageSize < 0 || q.PageSize > MaxPageSize:
		return q, invalid("page_size must be between 1 and %d", MaxPageSize)
	}
	switch {
	case q.Page == 0:
		q.Page = 1
	case q.Page < 0:
		return q, invalid("page must be at least 1")
	case q.Page > lastPage(q.PageSize):
		return q, invalid("page must be at most %d", lastPage(q.PageSize))
	}
	switch q.SortOrder {
	case "":
		q.SortOrder = "desc"
	case "asc", "desc":
	default:
		return q, invalid("sort_order must be asc or desc")
	}
	// Unknown sort fields fall back to updated_at; normalizing the name
	// keeps such queries on one cache entry.
	q.SortBy = strings.TrimPrefix(store.SortColumn(q.SortBy), "p.")
	return q, nil
}

// ListPrompts returns one page of prompts visible to viewer. Listings for
// non-staff viewers are served through the cache.
func (s *Service) ListPrompts(ctx context.Context, viewer *models.Actor, q ListQuery) (*models.PromptPage, error) {
	q, err := q.normalize()
	if err != nil {
		return nil, err
	}
	scope := policy.ListScope(viewer, models.PromptStatus(q.Status))

	filter := store.PromptFilter{
		Query:                q.Q,
		CategoryID:           q.CategoryID,
		Subcategory:          q.Subcategory,
		Status:               scope.Status,
		ActiveCategoriesOnly: scope.ActiveCategoriesOnly,
		SortBy:               q.SortBy,
		Descending:           q.SortOrder == "desc",
		Page:                 q.Page,
		PageSize:             q.PageSize,
	}

	if scope.Staff || s.cache == nil {
		return s.store.ListPrompts(ctx, filter)
	}

	key, ok := s.listCacheKey(ctx, q, scope)
	if !ok {
		return s.store.ListPrompts(ctx, filter)
	}
	if data, hit := s.cache.Get(ctx, key); hit {
		var page models.PromptPage
		if err := json.Unmarshal(data, &page); err == nil {
			return &page, nil
		}
		slog.Warn("discarding undecodable cached listing", "key", key)
	}

	// Concurrent misses on one key share a single store query. The shared
	// call must not fail because the first caller went away.
	v, err, _ := s.flight.Do(key, func() (any, error) {
		fctx := context.WithoutCancel(ctx)
		page, err := s.store.ListPrompts(fctx, filter)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(page)
		if err != nil {
			return nil, err
		}
		s.cache.Set(fctx, key, data)
		return data, nil
	})
	if err != nil {
		return nil, err
	}

	var page models.PromptPage
	if err := json.Unmarshal(v.([]byte), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// listCacheKey derives the cache key for a normalized query. ok is false
// when the cache cannot be consulted.
func (s *Service) listCacheKey(ctx context.Context, q ListQuery, scope policy.Scope) (string, bool) {
	k := listKey{
		Q:           q.Q,
		Status:      string(scope.Status),
		Subcategory: q.Subcategory,
		Page:        q.Page,
		PageSize:    q.PageSize,
		SortBy:      q.SortBy,
		SortOrder:   q.SortOrder,
		Role:        "public",
	}
	if scope.Staff {
		k.Role = "staff"
	}
	if q.CategoryID != nil {
		k.CategoryID = q.CategoryID.String()
	}

	fp, err := cache.Fingerprint(k)
	if err != nil {
		slog.Warn("list cache fingerprint failed", "error", err)
		return "", false
	}
	key, err := s.cache.Key(ctx, fp)
	if err != nil {
		slog.Warn("list cache unavailable, querying store", "error", err)
		return "", false
	}
	return key, true
}

// ReviewQueue lists prompts awaiting review, most recently updated first.
// Staff only.
func (s *Service) ReviewQueue(ctx context.Context, actor *models.Actor, page, pageSize int) (*models.PromptPage, error) {
	if err := requireSignedIn(actor); err != nil {
		return nil, err
	}
	if !policy.CanReview(actor) {
		return nil, forbidden("only editors and admins may see the review queue")
	}
	page, pageSize = clampPage(page, pageSize, DefaultPageSize, MaxPageSize)
	return s.store.ListPrompts(ctx, store.PromptFilter{
		Status:     models.StatusPendingReview,
		SortBy:     "updated_at",
		Descending: true,
		Page:       page,
		PageSize:   pageSize,
	})
}

// ListAuditLogs returns audit entries, newest first, optionally filtered by
// action and entity type. Admin only.
func (s *Service) ListAuditLogs(ctx context.Context, actor *models.Actor, action, entityType string, page, pageSize int) (*models.AuditPage, error) {
	if err := requireSignedIn(actor); err != nil {
		return nil, err
	}
	if !policy.CanReadAudit(actor) {
		return nil, forbidden("only admins may read the audit log")
	}
	page, pageSize = clampPage(page, pageSize, DefaultAuditPageSize, MaxAuditPageSize)
	return s.store.ListAudit(ctx, store.AuditFilter{
		Action:     action,
		EntityType: entityType,
		Page:       page,
		PageSize:   pageSize,
	})
}

// clampPage forces paging parameters into range instead of rejecting them.
func clampPage(page, pageSize, def, limit int) (int, int) {
	if pageSize == 0 {
		pageSize = def
	}
	pageSize = min(max(pageSize, 1), limit)
	return min(max(page, 1), lastPage(pageSize)), pageSize
}

// lastPage is the highest page whose offset stays within store.MaxOffset.
func lastPage(pageSize int) int {
	return store.MaxOffset/pageSize + 1
}
