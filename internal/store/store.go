// Package store persists projects, catalogs and masks. Uniqueness of mask
// names within a project is enforced here, not by callers, so concurrent
// generation requests for the same name cannot both succeed.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/papapumpkin/slitforge/internal/catalog"
	"github.com/papapumpkin/slitforge/internal/mask"
)

// Sentinel errors shared by every Store implementation.
var (
	// ErrNotFound indicates the addressed project, catalog, object or mask does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates a record with the same key already exists.
	ErrDuplicate = errors.New("already exists")
	// ErrConflict indicates a compare-and-set status update lost a race.
	ErrConflict = errors.New("status changed concurrently")
)

// Project groups catalogs and masks.
type Project struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store is the persistence contract. Deleting a project removes its
// catalogs and masks; deleting a catalog removes its objects.
type Store interface {
	CreateProject(ctx context.Context, p Project) error
	GetProject(ctx context.Context, name string) (Project, error)
	ListProjects(ctx context.Context) ([]Project, error)
	DeleteProject(ctx context.Context, name string) error

	CreateCatalog(ctx context.Context, project string, c catalog.Catalog) error
	GetCatalog(ctx context.Context, project, name string) (catalog.Catalog, error)
	ListCatalogs(ctx context.Context, project string) ([]string, error)
	DeleteCatalog(ctx context.Context, project, name string) error
	UpdateObject(ctx context.Context, project, catalogName string, o catalog.Object) error
	DeleteObject(ctx context.Context, project, catalogName, objectName string) error

	// CreateMask stores m with its features and inclusion sets in one step.
	CreateMask(ctx context.Context, m mask.Mask) error
	GetMask(ctx context.Context, project, name string) (mask.Mask, error)
	// ListMasks returns a project's masks, oldest first. An empty status
	// matches every mask.
	ListMasks(ctx context.Context, project string, status mask.Status) ([]mask.Mask, error)
	// UpdateMaskStatus moves a mask from one status to another, failing with
	// ErrConflict if the stored status is no longer from.
	UpdateMaskStatus(ctx context.Context, project, name string, from, to mask.Status) (mask.Mask, error)
	DeleteMask(ctx context.Context, project, name string) error

	Close() error
}

// Driver names accepted by Open.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open returns the Store for driver, connecting to dsn.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case DriverMemory:
		return NewMemory(), nil
	case DriverSQLite:
		return NewSQLite(ctx, dsn)
	case DriverPostgres:
		return NewPostgres(ctx, dsn)
	}
	return nil, fmt.Errorf("store: unknown driver %q", driver)
}

func notFound(kind, key string) error {
	return fmt.Errorf("%s %q: %w", kind, key, ErrNotFound)
}

func duplicate(kind, key string) error {
	return fmt.Errorf("%s %q: %w", kind, key, ErrDuplicate)
}
