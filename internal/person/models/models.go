// Package models defines the person aggregate root and its derived state.
//
// Invariants:
//   - A HistoryEntry is immutable once persisted; it disappears only through
//     cascading person deletion.
//   - DerivedProfile.Version is strictly increasing per person, starting at 1,
//     never skipped or reused.
//   - ComputedFromIDs for version v is a superset of version v-1's: history
//     only grows and recomputation always covers the cumulative history.
package models

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"personad/pkg/derrors"
)

// MaxRawTextBytes bounds one raw submission. The limit is on UTF-8 bytes,
// not runes.
const MaxRawTextBytes = 100_000

// DefaultSource tags submissions that arrive without an explicit provenance.
const DefaultSource = "api"

// Person is the aggregate root: an identity with optional display attributes.
// It never holds the profile itself; history entries and derived profiles
// hang off its ID.
type Person struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	Gender    string    `json:"gender,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PersonSummary is a person with computed metadata for listings.
type PersonSummary struct {
	Person
	HistoryCount  int `json:"history_count"`
	LatestVersion int `json:"latest_version"` // 0 when no profile has been derived yet
}

// HistoryEntry is one immutable raw-text submission tied to a person.
// Ordering key is CreatedAt with ID as an insertion-stable tiebreak.
type HistoryEntry struct {
	ID        uuid.UUID `json:"id"`
	PersonID  uuid.UUID `json:"person_id"`
	RawText   string    `json:"raw_text"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// DerivedProfile is the structured persona computed from the full history at
// a point in time. ComputedFromIDs is the exact ordered set of history entry
// ids that existed when the recomputation was initiated — the lineage that
// lets any version be audited against its inputs.
type DerivedProfile struct {
	ID              uuid.UUID      `json:"id"`
	PersonID        uuid.UUID      `json:"person_id"`
	Profile         map[string]any `json:"profile"`
	Version         int            `json:"version"`
	ComputedFromIDs []uuid.UUID    `json:"computed_from_ids"`
	CreatedAt       time.Time      `json:"created_at"`
}

// NewPerson constructs a person aggregate root. Display attributes are
// optional and bounded.
func NewPerson(firstName, lastName, gender string, now time.Time) (*Person, error) {
	if len(firstName) > 255 || len(lastName) > 255 {
		return nil, derrors.New(derrors.CodeValidation, "name must be 255 characters or less")
	}
	if len(gender) > 50 {
		return nil, derrors.New(derrors.CodeValidation, "gender must be 50 characters or less")
	}
	return &Person{
		ID:        uuid.New(),
		FirstName: firstName,
		LastName:  lastName,
		Gender:    gender,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// NewHistoryEntry validates raw text and constructs an immutable submission.
// An empty source defaults to "api".
func NewHistoryEntry(personID uuid.UUID, rawText, source string, now time.Time) (*HistoryEntry, error) {
	if err := ValidateRawText(rawText); err != nil {
		return nil, err
	}
	if source == "" {
		source = DefaultSource
	}
	return &HistoryEntry{
		ID:        uuid.New(),
		PersonID:  personID,
		RawText:   rawText,
		Source:    source,
		CreatedAt: now,
	}, nil
}

// ValidateRawText enforces the documented submission bounds: well-formed
// UTF-8, non-empty after trimming, and at most MaxRawTextBytes bytes.
func ValidateRawText(rawText string) error {
	if !utf8.ValidString(rawText) {
		return derrors.New(derrors.CodeValidation, "raw_text must be valid UTF-8")
	}
	if isBlank(rawText) {
		return derrors.New(derrors.CodeValidation, "raw_text must not be empty")
	}
	if len(rawText) > MaxRawTextBytes {
		return derrors.Newf(derrors.CodeValidation, "raw_text exceeds the %d byte limit", MaxRawTextBytes)
	}
	return nil
}

func isBlank(s string) bool {
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r':
		default:
			return false
		}
	}
	return true
}
