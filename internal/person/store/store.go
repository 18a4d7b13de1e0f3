// Package store persists the person aggregate: persons, their append-only
// history and their derived profile versions. Implementations return
// sentinel errors for factual states (missing rows, write conflicts) and let
// the service layer translate them into domain errors.
package store

import (
	"context"

	"github.com/google/uuid"

	"personad/internal/person/models"
)

// Store is the aggregate store contract consumed by the person service.
type Store interface {
	// CreatePerson persists a new aggregate root.
	CreatePerson(ctx context.Context, person *models.Person) error
	// GetPerson returns a person or sentinel.ErrNotFound.
	GetPerson(ctx context.Context, personID uuid.UUID) (*models.Person, error)
	// GetPersonSummary returns a person with history count and latest profile
	// version, or sentinel.ErrNotFound.
	GetPersonSummary(ctx context.Context, personID uuid.UUID) (*models.PersonSummary, error)
	// ListPersons returns a page of summaries plus the total person count.
	ListPersons(ctx context.Context, limit, offset int) ([]models.PersonSummary, int, error)
	// DeletePerson removes the person and cascades to history and profiles.
	// Returns sentinel.ErrNotFound when the person does not exist.
	DeletePerson(ctx context.Context, personID uuid.UUID) error

	// AppendHistory persists one immutable submission.
	AppendHistory(ctx context.Context, entry *models.HistoryEntry) error
	// ListHistory returns a page of submissions ordered oldest first plus the
	// total count for the person.
	ListHistory(ctx context.Context, personID uuid.UUID, limit, offset int) ([]models.HistoryEntry, int, error)
	// FullHistory returns every submission for the person, oldest first, ties
	// broken by id so the order is insertion-stable.
	FullHistory(ctx context.Context, personID uuid.UUID) ([]models.HistoryEntry, error)

	// LatestProfile returns the highest-version derived profile or
	// sentinel.ErrNotFound when none has been computed yet.
	LatestProfile(ctx context.Context, personID uuid.UUID) (*models.DerivedProfile, error)
	// ListProfiles returns every derived profile version, newest first.
	ListProfiles(ctx context.Context, personID uuid.UUID) ([]models.DerivedProfile, error)

	// SaveProfile persists a derived profile on its own, for recomputations
	// that consume the existing history without a new submission. A duplicate
	// (person, version) pair returns sentinel.ErrConflict.
	SaveProfile(ctx context.Context, profile *models.DerivedProfile) error

	// SaveRecomputation persists the triggering history entry and the new
	// derived profile atomically: both become visible together or neither
	// does. A duplicate (person, version) pair returns sentinel.ErrConflict
	// and persists nothing.
	SaveRecomputation(ctx context.Context, entry *models.HistoryEntry, profile *models.DerivedProfile) error
}
