package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"personad/internal/person/models"
	"personad/pkg/platform/sentinel"
)

// InMemoryStore mirrors the Postgres store for unit tests and local runs.
// History slices are kept in insertion order; reads sort by (created_at, id)
// to match the SQL ordering contract.
type InMemoryStore struct {
	mu       sync.RWMutex
	persons  map[uuid.UUID]*models.Person
	history  map[uuid.UUID][]models.HistoryEntry
	profiles map[uuid.UUID][]models.DerivedProfile
}

// NewInMemory creates an empty in-memory aggregate store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		persons:  make(map[uuid.UUID]*models.Person),
		history:  make(map[uuid.UUID][]models.HistoryEntry),
		profiles: make(map[uuid.UUID][]models.DerivedProfile),
	}
}

func (s *InMemoryStore) CreatePerson(_ context.Context, person *models.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := *person
	s.persons[person.ID] = &p
	return nil
}

func (s *InMemoryStore) GetPerson(_ context.Context, personID uuid.UUID) (*models.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.persons[personID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *p
	return &out, nil
}

func (s *InMemoryStore) GetPersonSummary(_ context.Context, personID uuid.UUID) (*models.PersonSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.persons[personID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &models.PersonSummary{
		Person:        *p,
		HistoryCount:  len(s.history[personID]),
		LatestVersion: s.latestVersionLocked(personID),
	}, nil
}

func (s *InMemoryStore) ListPersons(_ context.Context, limit, offset int) ([]models.PersonSummary, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]models.PersonSummary, 0, len(s.persons))
	for id, p := range s.persons {
		all = append(all, models.PersonSummary{
			Person:        *p,
			HistoryCount:  len(s.history[id]),
			LatestVersion: s.latestVersionLocked(id),
		})
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].ID.String() < all[j].ID.String()
	})

	total := len(all)
	page := paginate(all, limit, offset)
	return page, total, nil
}

func (s *InMemoryStore) DeletePerson(_ context.Context, personID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.persons[personID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.persons, personID)
	delete(s.history, personID)
	delete(s.profiles, personID)
	return nil
}

func (s *InMemoryStore) AppendHistory(_ context.Context, entry *models.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.persons[entry.PersonID]; !ok {
		return sentinel.ErrNotFound
	}
	s.history[entry.PersonID] = append(s.history[entry.PersonID], *entry)
	return nil
}

func (s *InMemoryStore) ListHistory(_ context.Context, personID uuid.UUID, limit, offset int) ([]models.HistoryEntry, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ordered := s.orderedHistoryLocked(personID)
	return paginate(ordered, limit, offset), len(ordered), nil
}

func (s *InMemoryStore) FullHistory(_ context.Context, personID uuid.UUID) ([]models.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.orderedHistoryLocked(personID), nil
}

func (s *InMemoryStore) LatestProfile(_ context.Context, personID uuid.UUID) (*models.DerivedProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profiles := s.profiles[personID]
	if len(profiles) == 0 {
		return nil, sentinel.ErrNotFound
	}
	latest := profiles[0]
	for _, p := range profiles[1:] {
		if p.Version > latest.Version {
			latest = p
		}
	}
	out := copyProfile(latest)
	return &out, nil
}

func (s *InMemoryStore) ListProfiles(_ context.Context, personID uuid.UUID) ([]models.DerivedProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profiles := s.profiles[personID]
	out := make([]models.DerivedProfile, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, copyProfile(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version > out[j].Version })
	return out, nil
}

func (s *InMemoryStore) SaveProfile(_ context.Context, profile *models.DerivedProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.persons[profile.PersonID]; !ok {
		return sentinel.ErrNotFound
	}
	for _, existing := range s.profiles[profile.PersonID] {
		if existing.Version == profile.Version {
			return sentinel.ErrConflict
		}
	}
	s.profiles[profile.PersonID] = append(s.profiles[profile.PersonID], copyProfile(*profile))
	return nil
}

func (s *InMemoryStore) SaveRecomputation(_ context.Context, entry *models.HistoryEntry, profile *models.DerivedProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.persons[entry.PersonID]; !ok {
		return sentinel.ErrNotFound
	}
	for _, existing := range s.profiles[profile.PersonID] {
		if existing.Version == profile.Version {
			return sentinel.ErrConflict
		}
	}
	// Single critical section stands in for the SQL transaction: both rows
	// appear together or not at all.
	s.history[entry.PersonID] = append(s.history[entry.PersonID], *entry)
	s.profiles[profile.PersonID] = append(s.profiles[profile.PersonID], copyProfile(*profile))
	return nil
}

func (s *InMemoryStore) latestVersionLocked(personID uuid.UUID) int {
	latest := 0
	for _, p := range s.profiles[personID] {
		if p.Version > latest {
			latest = p.Version
		}
	}
	return latest
}

func (s *InMemoryStore) orderedHistoryLocked(personID uuid.UUID) []models.HistoryEntry {
	entries := s.history[personID]
	out := append([]models.HistoryEntry{}, entries...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func copyProfile(p models.DerivedProfile) models.DerivedProfile {
	out := p
	out.ComputedFromIDs = append([]uuid.UUID{}, p.ComputedFromIDs...)
	if p.Profile != nil {
		profile := make(map[string]any, len(p.Profile))
		for k, v := range p.Profile {
			profile[k] = v
		}
		out.Profile = profile
	}
	return out
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return append([]T{}, items[offset:end]...)
}
