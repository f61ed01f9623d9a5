package workflow

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"promptui/internal/models"
	"promptui/internal/store"
)

// memState is everything the in-memory store persists.
type memState struct {
	prompts    map[uuid.UUID]*models.Prompt
	versions   map[uuid.UUID][]models.PromptVersion
	categories map[uuid.UUID]*models.Category
	audit      []models.AuditEntry
}

func (st *memState) clone() *memState {
	out := &memState{
		prompts:    make(map[uuid.UUID]*models.Prompt, len(st.prompts)),
		versions:   make(map[uuid.UUID][]models.PromptVersion, len(st.versions)),
		categories: make(map[uuid.UUID]*models.Category, len(st.categories)),
		audit:      slices.Clone(st.audit),
	}
	for id, p := range st.prompts {
		cp := *p
		cp.PromptContent = cloneContent(p.PromptContent)
		out.prompts[id] = &cp
	}
	for id, vs := range st.versions {
		out.versions[id] = slices.Clone(vs)
	}
	for id, c := range st.categories {
		cc := *c
		out.categories[id] = &cc
	}
	return out
}

// memStore is a transactional in-memory Store. Transactions are serialized
// and work on a copy that replaces the committed state only on success.
type memStore struct {
	mu    sync.Mutex
	state *memState
	clock time.Time

	// failAudit makes every RecordAudit call fail.
	failAudit bool
	// stealSlugs makes the next n InsertPrompt calls lose a race: a
	// competing prompt with the same slug is committed first.
	stealSlugs int

	listCalls int
}

func newMemStore() *memStore {
	return &memStore{
		state: &memState{
			prompts:    map[uuid.UUID]*models.Prompt{},
			versions:   map[uuid.UUID][]models.PromptVersion{},
			categories: map[uuid.UUID]*models.Category{},
		},
		clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

// addCategory commits a category outside any transaction.
func (m *memStore) addCategory(key string, active bool) *models.Category {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.tick()
	c := &models.Category{ID: uuid.New(), Key: key, Name: strings.ToUpper(key), IsActive: active, CreatedAt: now, UpdatedAt: now}
	m.state.categories[c.ID] = c
	cc := *c
	return &cc
}

func (m *memStore) auditLog() []models.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.state.audit)
}

func (m *memStore) versionCount(id uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.versions[id])
}

func (m *memStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	staged := m.state.clone()
	if err := fn(&memTx{m: m, st: staged}); err != nil {
		return err
	}
	m.state = staged
	return nil
}

func (m *memStore) FindPrompt(ctx context.Context, id uuid.UUID) (*models.Prompt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return findPromptIn(m.state, id)
}

func (m *memStore) ListPrompts(ctx context.Context, f store.PromptFilter) (*models.PromptPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++

	var items []models.PromptListItem
	for _, p := range m.state.prompts {
		c := m.state.categories[p.CategoryID]
		switch {
		case f.Status != "" && p.Status != f.Status:
			continue
		case f.ActiveCategoriesOnly && (c == nil || !c.IsActive):
			continue
		case f.CategoryID != nil && p.CategoryID != *f.CategoryID:
			continue
		case f.Query != "" && !strings.Contains(strings.ToLower(p.Title+" "+p.PromptText), strings.ToLower(f.Query)):
			continue
		}
		item := models.PromptListItem{
			ID:            p.ID,
			Slug:          p.Slug,
			PromptContent: cloneContent(p.PromptContent),
			HasCodeAssets: len(p.CodeAssets) > 0,
			Status:        p.Status,
			CategoryID:    p.CategoryID,
			AuthorID:      p.AuthorID,
			UpdatedAt:     p.UpdatedAt,
		}
		if c != nil {
			name := c.Name
			item.CategoryName = &name
		}
		items = append(items, item)
	}
	slices.SortFunc(items, func(a, b models.PromptListItem) int {
		if f.Descending {
			return b.UpdatedAt.Compare(a.UpdatedAt)
		}
		return a.UpdatedAt.Compare(b.UpdatedAt)
	})

	page := &models.PromptPage{Page: f.Page, PageSize: f.PageSize, Total: len(items), Items: []models.PromptListItem{}}
	start := (f.Page - 1) * f.PageSize
	if start < len(items) {
		page.Items = items[start:min(start+f.PageSize, len(items))]
	}
	return page, nil
}

func (m *memStore) ListVersions(ctx context.Context, promptID uuid.UUID) ([]models.PromptVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := slices.Clone(m.state.versions[promptID])
	slices.Reverse(out)
	return out, nil
}

func (m *memStore) FindCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.state.categories[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cc := *c
	return &cc, nil
}

func (m *memStore) ListCategories(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Category
	for _, c := range m.state.categories {
		if activeOnly && !c.IsActive {
			continue
		}
		out = append(out, *c)
	}
	slices.SortFunc(out, func(a, b models.Category) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (m *memStore) ListAudit(ctx context.Context, f store.AuditFilter) (*models.AuditPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []models.AuditEntry
	for _, e := range slices.Backward(m.state.audit) {
		if (f.Action == "" || e.Action == f.Action) && (f.EntityType == "" || e.EntityType == f.EntityType) {
			items = append(items, e)
		}
	}
	page := &models.AuditPage{Page: f.Page, PageSize: f.PageSize, Total: len(items), Items: []models.AuditEntry{}}
	start := (f.Page - 1) * f.PageSize
	if start < len(items) {
		page.Items = items[start:min(start+f.PageSize, len(items))]
	}
	return page, nil
}

func findPromptIn(st *memState, id uuid.UUID) (*models.Prompt, error) {
	p, ok := st.prompts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	cp.PromptContent = cloneContent(p.PromptContent)
	return &cp, nil
}

// memTx operates on a staged copy of the state while holding the store lock.
type memTx struct {
	m  *memStore
	st *memState
}

func (t *memTx) LockPrompt(ctx context.Context, id uuid.UUID) (*models.Prompt, error) {
	return findPromptIn(t.st, id)
}

func (t *memTx) slugTaken(slug string) bool {
	for _, p := range t.st.prompts {
		if p.Slug == slug {
			return true
		}
	}
	return false
}

func (t *memTx) SlugExists(ctx context.Context, slug string) (bool, error) {
	return t.slugTaken(slug), nil
}

func (t *memTx) InsertPrompt(ctx context.Context, p *models.Prompt) (*models.Prompt, error) {
	if t.m.stealSlugs > 0 {
		t.m.stealSlugs--
		now := t.m.tick()
		rival := &models.Prompt{
			ID: uuid.New(), Slug: p.Slug, PromptContent: models.PromptContent{Title: "rival"},
			Status: models.StatusDraft, CurrentVersion: 1, CategoryID: p.CategoryID, AuthorID: uuid.New(),
			CreatedAt: now, UpdatedAt: now,
		}
		t.m.state.prompts[rival.ID] = rival
		return nil, fmt.Errorf("insert prompt: %w", store.ErrDuplicate)
	}
	if t.slugTaken(p.Slug) {
		return nil, fmt.Errorf("insert prompt: %w", store.ErrDuplicate)
	}
	now := t.m.tick()
	cp := *p
	cp.ID = uuid.New()
	cp.PromptContent = cloneContent(p.PromptContent)
	cp.CreatedAt, cp.UpdatedAt = now, now
	t.st.prompts[cp.ID] = &cp
	return findPromptIn(t.st, cp.ID)
}

func (t *memTx) UpdatePrompt(ctx context.Context, p *models.Prompt) (*models.Prompt, error) {
	if _, ok := t.st.prompts[p.ID]; !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	cp.PromptContent = cloneContent(p.PromptContent)
	cp.UpdatedAt = t.m.tick()
	t.st.prompts[p.ID] = &cp
	return findPromptIn(t.st, p.ID)
}

func (t *memTx) InsertVersion(ctx context.Context, v *models.PromptVersion) (*models.PromptVersion, error) {
	for _, existing := range t.st.versions[v.PromptID] {
		if existing.VersionNumber == v.VersionNumber {
			return nil, fmt.Errorf("insert version: %w", store.ErrDuplicate)
		}
	}
	cv := *v
	cv.ID = uuid.New()
	cv.PromptContent = cloneContent(v.PromptContent)
	cv.CreatedAt = t.m.tick()
	t.st.versions[v.PromptID] = append(t.st.versions[v.PromptID], cv)
	return &cv, nil
}

func (t *memTx) FindVersion(ctx context.Context, promptID uuid.UUID, number int) (*models.PromptVersion, error) {
	for _, v := range t.st.versions[promptID] {
		if v.VersionNumber == number {
			cv := v
			cv.PromptContent = cloneContent(v.PromptContent)
			return &cv, nil
		}
	}
	return nil, store.ErrNotFound
}

func (t *memTx) FindCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	c, ok := t.st.categories[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cc := *c
	return &cc, nil
}

func (t *memTx) categoryClash(c *models.Category) bool {
	for _, other := range t.st.categories {
		if other.ID != c.ID && (other.Key == c.Key || other.Name == c.Name) {
			return true
		}
	}
	return false
}

func (t *memTx) InsertCategory(ctx context.Context, c *models.Category) (*models.Category, error) {
	if t.categoryClash(c) {
		return nil, fmt.Errorf("insert category: %w", store.ErrDuplicate)
	}
	now := t.m.tick()
	cc := *c
	cc.ID = uuid.New()
	cc.CreatedAt, cc.UpdatedAt = now, now
	t.st.categories[cc.ID] = &cc
	out := cc
	return &out, nil
}

func (t *memTx) UpdateCategory(ctx context.Context, c *models.Category) (*models.Category, error) {
	if _, ok := t.st.categories[c.ID]; !ok {
		return nil, store.ErrNotFound
	}
	if t.categoryClash(c) {
		return nil, fmt.Errorf("update category: %w", store.ErrDuplicate)
	}
	cc := *c
	cc.UpdatedAt = t.m.tick()
	t.st.categories[c.ID] = &cc
	out := cc
	return &out, nil
}

func (t *memTx) CountPromptsInCategory(ctx context.Context, id uuid.UUID) (int, error) {
	n := 0
	for _, p := range t.st.prompts {
		if p.CategoryID == id {
			n++
		}
	}
	return n, nil
}

func (t *memTx) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if _, ok := t.st.categories[id]; !ok {
		return store.ErrNotFound
	}
	delete(t.st.categories, id)
	return nil
}

func (t *memTx) RecordAudit(ctx context.Context, e *models.AuditEntry) error {
	if t.m.failAudit {
		return errors.New("audit log unavailable")
	}
	ce := *e
	ce.ID = uuid.New()
	ce.Details = maps.Clone(e.Details)
	ce.CreatedAt = t.m.tick()
	t.st.audit = append(t.st.audit, ce)
	return nil
}

// memCache is a generation-keyed ListCache.
type memCache struct {
	mu            sync.Mutex
	gen           int
	entries       map[string][]byte
	invalidations int
	hits          int

	failKey        bool
	failInvalidate bool
}

func newMemCache() *memCache {
	return &memCache{entries: map[string][]byte{}}
}

func (c *memCache) Key(ctx context.Context, fingerprint string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failKey {
		return "", errors.New("cache unavailable")
	}
	return fmt.Sprintf("prompt:list:%d:%s", c.gen, fingerprint), nil
}

func (c *memCache) Get(ctx context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[key]
	if ok {
		c.hits++
	}
	return data, ok
}

func (c *memCache) Set(ctx context.Context, key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = slices.Clone(data)
}

func (c *memCache) InvalidateAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidations++
	if c.failInvalidate {
		return errors.New("cache unavailable")
	}
	c.gen++
	clear(c.entries)
	return nil
}

func (c *memCache) counts() (invalidations, hits int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invalidations, c.hits
}
