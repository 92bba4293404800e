// Package gateway is the only point of contact with the external
// environments. Every call is independent and may fail; failures are
// classified into the Kind taxonomy so callers can react to them without
// parsing messages.
package gateway

import (
	"context"

	"github.com/sdejongh/metadiff/pkg/models"
)

// Gateway defines the read-only operations available against an
// environment identified by its alias
type Gateway interface {
	// ListEnvironments returns every environment the gateway can reach
	ListEnvironments(ctx context.Context) ([]models.Environment, error)

	// ValidateEnvironment checks that alias is reachable and authenticated
	ValidateEnvironment(ctx context.Context, alias string) (*models.Descriptor, error)

	// ListCategories returns the categories available in alias
	ListCategories(ctx context.Context, alias string) ([]models.Category, error)

	// ListEntries returns the raw entries of category in alias. A category
	// unavailable in that environment fails with KindUnsupported.
	ListEntries(ctx context.Context, category, alias string) ([]models.Entry, error)

	// FetchContent returns the content of one entry, or of one member file
	// of a composite entry when filePath is set
	FetchContent(ctx context.Context, category, entry, alias, filePath string) (string, error)

	// ListMemberFiles returns the relative paths of a composite entry's files
	ListMemberFiles(ctx context.Context, category, entry, alias string) ([]string, error)
}
