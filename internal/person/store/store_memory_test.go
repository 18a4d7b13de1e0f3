package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"personad/internal/person/models"
	"personad/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func (s *InMemoryStoreSuite) newPerson() *models.Person {
	p, err := models.NewPerson("Alex", "Rivera", "", time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreatePerson(s.ctx, p))
	return p
}

func (s *InMemoryStoreSuite) newEntry(personID uuid.UUID, text string, at time.Time) *models.HistoryEntry {
	entry, err := models.NewHistoryEntry(personID, text, "api", at)
	s.Require().NoError(err)
	return entry
}

func (s *InMemoryStoreSuite) TestGetPersonNotFound() {
	_, err := s.store.GetPerson(s.ctx, uuid.New())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestHistoryOrderedOldestFirst() {
	p := s.newPerson()
	base := time.Now()

	second := s.newEntry(p.ID, "second", base.Add(time.Minute))
	first := s.newEntry(p.ID, "first", base)
	s.Require().NoError(s.store.AppendHistory(s.ctx, second))
	s.Require().NoError(s.store.AppendHistory(s.ctx, first))

	history, err := s.store.FullHistory(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal("first", history[0].RawText)
	s.Equal("second", history[1].RawText)
}

func (s *InMemoryStoreSuite) TestHistoryTiesBrokenByID() {
	p := s.newPerson()
	at := time.Now()

	a := s.newEntry(p.ID, "a", at)
	b := s.newEntry(p.ID, "b", at)
	s.Require().NoError(s.store.AppendHistory(s.ctx, a))
	s.Require().NoError(s.store.AppendHistory(s.ctx, b))

	history1, err := s.store.FullHistory(s.ctx, p.ID)
	s.Require().NoError(err)
	history2, err := s.store.FullHistory(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(history1[0].ID, history2[0].ID, "tie order must be stable across reads")
}

func (s *InMemoryStoreSuite) TestListHistoryPagination() {
	p := s.newPerson()
	base := time.Now()
	for i := range 5 {
		entry := s.newEntry(p.ID, "entry", base.Add(time.Duration(i)*time.Second))
		s.Require().NoError(s.store.AppendHistory(s.ctx, entry))
	}

	page, total, err := s.store.ListHistory(s.ctx, p.ID, 2, 3)
	s.Require().NoError(err)
	s.Equal(5, total)
	s.Len(page, 2)

	empty, total, err := s.store.ListHistory(s.ctx, p.ID, 2, 10)
	s.Require().NoError(err)
	s.Equal(5, total)
	s.Empty(empty)
}

func (s *InMemoryStoreSuite) TestSaveRecomputationAtomicVisibility() {
	p := s.newPerson()
	now := time.Now()
	entry := s.newEntry(p.ID, "text", now)
	profile := &models.DerivedProfile{
		ID:              uuid.New(),
		PersonID:        p.ID,
		Profile:         map[string]any{"summary": "v1"},
		Version:         1,
		ComputedFromIDs: []uuid.UUID{entry.ID},
		CreatedAt:       now,
	}

	s.Require().NoError(s.store.SaveRecomputation(s.ctx, entry, profile))

	history, err := s.store.FullHistory(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Len(history, 1)

	latest, err := s.store.LatestProfile(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(1, latest.Version)
	s.Equal([]uuid.UUID{entry.ID}, latest.ComputedFromIDs)
}

func (s *InMemoryStoreSuite) TestSaveRecomputationDuplicateVersionConflict() {
	p := s.newPerson()
	now := time.Now()

	entry1 := s.newEntry(p.ID, "one", now)
	s.Require().NoError(s.store.SaveRecomputation(s.ctx, entry1, &models.DerivedProfile{
		ID: uuid.New(), PersonID: p.ID, Version: 1,
		Profile: map[string]any{}, ComputedFromIDs: []uuid.UUID{entry1.ID}, CreatedAt: now,
	}))

	entry2 := s.newEntry(p.ID, "two", now.Add(time.Second))
	err := s.store.SaveRecomputation(s.ctx, entry2, &models.DerivedProfile{
		ID: uuid.New(), PersonID: p.ID, Version: 1,
		Profile: map[string]any{}, ComputedFromIDs: []uuid.UUID{entry1.ID, entry2.ID}, CreatedAt: now,
	})
	s.ErrorIs(err, sentinel.ErrConflict)

	// The conflicting write must leave no partial state behind.
	history, err := s.store.FullHistory(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Len(history, 1, "conflicting recomputation must not append history")
}

func (s *InMemoryStoreSuite) TestLatestProfilePicksHighestVersion() {
	p := s.newPerson()
	now := time.Now()
	for v := 1; v <= 3; v++ {
		entry := s.newEntry(p.ID, "text", now.Add(time.Duration(v)*time.Second))
		s.Require().NoError(s.store.SaveRecomputation(s.ctx, entry, &models.DerivedProfile{
			ID: uuid.New(), PersonID: p.ID, Version: v,
			Profile: map[string]any{}, ComputedFromIDs: []uuid.UUID{entry.ID}, CreatedAt: now,
		}))
	}

	latest, err := s.store.LatestProfile(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(3, latest.Version)

	versions, err := s.store.ListProfiles(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Require().Len(versions, 3)
	s.Equal(3, versions[0].Version, "profiles listed newest first")
}

func (s *InMemoryStoreSuite) TestDeletePersonCascades() {
	p := s.newPerson()
	now := time.Now()
	entry := s.newEntry(p.ID, "text", now)
	s.Require().NoError(s.store.SaveRecomputation(s.ctx, entry, &models.DerivedProfile{
		ID: uuid.New(), PersonID: p.ID, Version: 1,
		Profile: map[string]any{}, ComputedFromIDs: []uuid.UUID{entry.ID}, CreatedAt: now,
	}))

	s.Require().NoError(s.store.DeletePerson(s.ctx, p.ID))

	_, err := s.store.GetPerson(s.ctx, p.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	history, err := s.store.FullHistory(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Empty(history)
	_, err = s.store.LatestProfile(s.ctx, p.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.ErrorIs(s.store.DeletePerson(s.ctx, p.ID), sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestSummaries() {
	p := s.newPerson()
	now := time.Now()
	entry := s.newEntry(p.ID, "text", now)
	s.Require().NoError(s.store.AppendHistory(s.ctx, entry))

	summary, err := s.store.GetPersonSummary(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(1, summary.HistoryCount)
	s.Equal(0, summary.LatestVersion)

	list, total, err := s.store.ListPersons(s.ctx, 10, 0)
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Require().Len(list, 1)
	s.Equal(p.ID, list[0].ID)
}
