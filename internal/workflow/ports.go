package workflow

import (
	"context"

	"github.com/google/uuid"

	"promptui/internal/models"
	"promptui/internal/store"
)

// Tx is the set of writes and locked reads available inside one atomic
// mutation. Either everything done through a Tx commits or nothing does.
type Tx interface {
	LockPrompt(ctx context.Context, id uuid.UUID) (*models.Prompt, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	InsertPrompt(ctx context.Context, p *models.Prompt) (*models.Prompt, error)
	UpdatePrompt(ctx context.Context, p *models.Prompt) (*models.Prompt, error)

	InsertVersion(ctx context.Context, v *models.PromptVersion) (*models.PromptVersion, error)
	FindVersion(ctx context.Context, promptID uuid.UUID, number int) (*models.PromptVersion, error)

	FindCategory(ctx context.Context, id uuid.UUID) (*models.Category, error)
	InsertCategory(ctx context.Context, c *models.Category) (*models.Category, error)
	UpdateCategory(ctx context.Context, c *models.Category) (*models.Category, error)
	CountPromptsInCategory(ctx context.Context, id uuid.UUID) (int, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error

	RecordAudit(ctx context.Context, e *models.AuditEntry) error
}

// Store is the system of record.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error

	FindPrompt(ctx context.Context, id uuid.UUID) (*models.Prompt, error)
	ListPrompts(ctx context.Context, f store.PromptFilter) (*models.PromptPage, error)
	ListVersions(ctx context.Context, promptID uuid.UUID) ([]models.PromptVersion, error)
	FindCategory(ctx context.Context, id uuid.UUID) (*models.Category, error)
	ListCategories(ctx context.Context, activeOnly bool) ([]models.Category, error)
	ListAudit(ctx context.Context, f store.AuditFilter) (*models.AuditPage, error)
}

// ListCache holds serialized listing pages.
type ListCache interface {
	// Key maps a query fingerprint to a cache key.
	Key(ctx context.Context, fingerprint string) (string, error)
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, data []byte)
	// InvalidateAll drops every cached listing.
	InvalidateAll(ctx context.Context) error
}

// postgresStore adapts *store.DB to Store.
type postgresStore struct {
	*store.DB
}

// NewPostgresStore wraps the PostgreSQL store for use by a Service.
func NewPostgresStore(db *store.DB) Store {
	return postgresStore{DB: db}
}

func (s postgresStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return s.DB.WithTx(ctx, func(tx *store.Tx) error { return fn(tx) })
}

var _ Tx = (*store.Tx)(nil)
