package repository

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"latch-backend/models"
)

var (
	ErrNotFound       = errors.New("driver not found")
	ErrDuplicatePhone = errors.New("phone number already registered")
)

// DriverRepository is the driver store. Implementations own phone uniqueness.
type DriverRepository interface {
	// List returns every driver, newest first.
	List(ctx context.Context) ([]models.Driver, error)
	// Search matches query as a literal, case-insensitive substring of name or phone.
	Search(ctx context.Context, query string) ([]models.Driver, error)
	FindByID(ctx context.Context, id string) (*models.Driver, error)
	Create(ctx context.Context, driver *models.Driver) error
	// Update applies the partial update and returns the stored record after the change.
	Update(ctx context.Context, id string, update models.DriverUpdate) (*models.Driver, error)
	// Delete removes the record and returns what was removed.
	Delete(ctx context.Context, id string) (*models.Driver, error)
	// SetNextSubscriptionDate is a single-record write used by the reminder pass.
	SetNextSubscriptionDate(ctx context.Context, id string, next time.Time) error
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern builds a LIKE pattern that matches query literally.
func likePattern(query string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"
}

// matchesQuery reports whether needle (already lowercased) occurs in the
// driver's name or phone number, using Unicode case folding.
func matchesQuery(d models.Driver, needle string) bool {
	return strings.Contains(strings.ToLower(d.Name), needle) ||
		strings.Contains(strings.ToLower(d.PhoneNumber), needle)
}
