package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"personad/internal/audit"
	"personad/internal/person/models"
	"personad/internal/person/service/mocks"
	"personad/internal/person/store"
	"personad/internal/persona/extract"
	"personad/internal/persona/pipeline"
	"personad/internal/platform/lock"
	"personad/pkg/derrors"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Deriver,Fetcher

func validProfile() map[string]any {
	return map[string]any{
		"identity":    map[string]any{"name": "Alex"},
		"traits":      []any{"curious"},
		"preferences": map[string]any{},
		"goals":       []any{},
		"summary":     "a person",
	}
}

func deriveResult(profile map[string]any) *pipeline.Result {
	return &pipeline.Result{
		Profile:        profile,
		Notes:          "organized notes",
		ExtractionTier: "direct",
		StageDurations: map[string]time.Duration{},
	}
}

type fixture struct {
	svc      *Service
	store    *store.InMemoryStore
	deriver  *mocks.MockDeriver
	fetcher  *mocks.MockFetcher
	auditLog *audit.InMemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	st := store.NewInMemory()
	deriver := mocks.NewMockDeriver(ctrl)
	fetcher := mocks.NewMockFetcher(ctrl)
	auditStore := audit.NewInMemoryStore()
	logger := slog.New(slog.DiscardHandler)
	svc := New(st, deriver, fetcher, lock.NewKeyed(), nil, audit.NewPublisher(auditStore), logger)
	return &fixture{svc: svc, store: st, deriver: deriver, fetcher: fetcher, auditLog: auditStore}
}

func (f *fixture) createPerson(t *testing.T) *models.Person {
	t.Helper()
	person, err := f.svc.CreatePerson(context.Background(), "Alex", "Rivera", "")
	require.NoError(t, err)
	return person
}

func TestAddEntryAndRecomputeVersionsAndLineage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	person := f.createPerson(t)
	f.deriver.EXPECT().Run(gomock.Any(), gomock.Any()).
		Return(deriveResult(validProfile()), nil).Times(2)

	profile1, entry1, err := f.svc.AddEntryAndRecompute(ctx, person.ID, "I enjoy hiking in the mountains.", "")
	require.NoError(t, err)
	assert.Equal(t, 1, profile1.Version)
	assert.Equal(t, []uuid.UUID{entry1.ID}, profile1.ComputedFromIDs)
	assert.Equal(t, "api", entry1.Source)

	profile2, entry2, err := f.svc.AddEntryAndRecompute(ctx, person.ID, "I recently took up photography.", "")
	require.NoError(t, err)
	assert.Equal(t, 2, profile2.Version)
	assert.Equal(t, []uuid.UUID{entry1.ID, entry2.ID}, profile2.ComputedFromIDs)

	// Lineage only ever grows: v2 must contain all of v1's inputs.
	for _, id := range profile1.ComputedFromIDs {
		assert.Contains(t, profile2.ComputedFromIDs, id)
	}
}

func TestAddEntryAndRecomputeDocumentFormat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	person := f.createPerson(t)

	var document string
	f.deriver.EXPECT().Run(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, doc string) (*pipeline.Result, error) {
			document = doc
			return deriveResult(validProfile()), nil
		}).Times(2)

	_, _, err := f.svc.AddEntryAndRecompute(ctx, person.ID, "First submission text.", "")
	require.NoError(t, err)
	_, _, err = f.svc.AddEntryAndRecompute(ctx, person.ID, "Second submission text.", "")
	require.NoError(t, err)

	assert.Contains(t, document, "--- Data Submission #1 (submitted ")
	assert.Contains(t, document, "--- Data Submission #2 (submitted ")
	assert.Contains(t, document, "First submission text.")
	assert.Contains(t, document, "Second submission text.")
	// Oldest first.
	assert.Less(t, strings.Index(document, "First submission"), strings.Index(document, "Second submission"))
}

func TestGenerationFailureLeavesNoVisibleState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	person := f.createPerson(t)
	f.deriver.EXPECT().Run(gomock.Any(), gomock.Any()).
		Return(nil, &pipeline.GenerationError{Stage: pipeline.StageNormalize, Err: errors.New("backend down")})

	_, _, err := f.svc.AddEntryAndRecompute(ctx, person.ID, "some text", "")
	require.Error(t, err)
	assert.True(t, derrors.HasCode(err, derrors.CodeGeneration))

	summary, err := f.svc.GetPerson(ctx, person.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.HistoryCount, "failed derivation must not append history")
	assert.Equal(t, 0, summary.LatestVersion)
}

func TestTimeoutMapsToTimeoutCode(t *testing.T) {
	f := newFixture(t)
	person := f.createPerson(t)
	f.deriver.EXPECT().Run(gomock.Any(), gomock.Any()).
		Return(nil, &pipeline.GenerationError{Stage: pipeline.StageGenerate, Err: context.DeadlineExceeded})

	_, _, err := f.svc.AddEntryAndRecompute(context.Background(), person.ID, "some text", "")
	assert.True(t, derrors.HasCode(err, derrors.CodeTimeout))
}

func TestParseFailureMapsToParseCode(t *testing.T) {
	f := newFixture(t)
	person := f.createPerson(t)
	f.deriver.EXPECT().Run(gomock.Any(), gomock.Any()).
		Return(nil, &extract.ParseError{Attempted: []string{"direct"}, Raw: "not json"})

	_, _, err := f.svc.AddEntryAndRecompute(context.Background(), person.ID, "some text", "")
	assert.True(t, derrors.HasCode(err, derrors.CodeParse))
}

func TestIncompleteProfileRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	person := f.createPerson(t)
	f.deriver.EXPECT().Run(gomock.Any(), gomock.Any()).
		Return(deriveResult(map[string]any{"summary": "only a summary"}), nil)

	_, _, err := f.svc.AddEntryAndRecompute(ctx, person.ID, "some text", "")
	require.Error(t, err)
	assert.True(t, derrors.HasCode(err, derrors.CodeValidation))

	summary, err := f.svc.GetPerson(ctx, person.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.HistoryCount)
}

func TestValidationRejectsBeforePipelineRuns(t *testing.T) {
	f := newFixture(t)
	person := f.createPerson(t)

	// No Run expectation: any pipeline call here fails the test.
	_, _, err := f.svc.AddEntryAndRecompute(context.Background(), person.ID, strings.Repeat("a", models.MaxRawTextBytes+1), "")
	assert.True(t, derrors.HasCode(err, derrors.CodeValidation))
}

func TestUnknownPersonRejected(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.svc.AddEntryAndRecompute(context.Background(), uuid.New(), "some text", "")
	assert.True(t, derrors.HasCode(err, derrors.CodeNotFound))
}

func TestConcurrentRecomputesNeverDuplicateVersions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	person := f.createPerson(t)

	const n = 8
	f.deriver.EXPECT().Run(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, string) (*pipeline.Result, error) {
			time.Sleep(5 * time.Millisecond)
			return deriveResult(validProfile()), nil
		}).Times(n)

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, errs[i] = f.svc.AddEntryAndRecompute(ctx, person.ID, fmt.Sprintf("submission %d", i), "")
		}()
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "recompute %d", i)
	}

	versions, err := f.svc.ProfileVersions(ctx, person.ID)
	require.NoError(t, err)
	require.Len(t, versions, n)
	seen := map[int]bool{}
	for _, v := range versions {
		assert.False(t, seen[v.Version], "duplicate version %d", v.Version)
		seen[v.Version] = true
	}
	for v := 1; v <= n; v++ {
		assert.True(t, seen[v], "missing version %d", v)
	}

	latest, err := f.svc.LatestProfile(ctx, person.ID)
	require.NoError(t, err)
	assert.Len(t, latest.ComputedFromIDs, n, "final version must cover the full history")
}

func TestAddEntryDoesNotRecompute(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	person := f.createPerson(t)

	entry, err := f.svc.AddEntry(ctx, person.ID, "background fact", "interview")
	require.NoError(t, err)
	assert.Equal(t, "interview", entry.Source)

	// The quiet entry still feeds the next recomputation.
	var document string
	f.deriver.EXPECT().Run(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, doc string) (*pipeline.Result, error) {
			document = doc
			return deriveResult(validProfile()), nil
		})

	profile, _, err := f.svc.AddEntryAndRecompute(ctx, person.ID, "new submission", "")
	require.NoError(t, err)
	assert.Len(t, profile.ComputedFromIDs, 2)
	assert.Contains(t, document, "background fact")
}

func TestRecomputeWithoutNewEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	person := f.createPerson(t)

	t.Run("empty history rejected", func(t *testing.T) {
		_, err := f.svc.Recompute(ctx, person.ID)
		assert.True(t, derrors.HasCode(err, derrors.CodeValidation))
	})

	t.Run("derives next version from existing history", func(t *testing.T) {
		f.deriver.EXPECT().Run(gomock.Any(), gomock.Any()).
			Return(deriveResult(validProfile()), nil).Times(2)

		first, entry, err := f.svc.AddEntryAndRecompute(ctx, person.ID, "some text", "")
		require.NoError(t, err)

		second, err := f.svc.Recompute(ctx, person.ID)
		require.NoError(t, err)
		assert.Equal(t, first.Version+1, second.Version)
		assert.Equal(t, []uuid.UUID{entry.ID}, second.ComputedFromIDs)

		summary, err := f.svc.GetPerson(ctx, person.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.HistoryCount, "recompute must not add a submission")
	})
}

func TestAddFromURLs(t *testing.T) {
	ctx := context.Background()

	t.Run("fetched text becomes a urls-sourced entry", func(t *testing.T) {
		f := newFixture(t)
		person := f.createPerson(t)
		f.fetcher.EXPECT().Fetch(gomock.Any(), []string{"https://example.com/about"}).
			Return("About me: I love climbing.", nil)
		f.deriver.EXPECT().Run(gomock.Any(), gomock.Any()).
			Return(deriveResult(validProfile()), nil)

		profile, entry, err := f.svc.AddFromURLs(ctx, person.ID, []string{"https://example.com/about"})
		require.NoError(t, err)
		assert.Equal(t, "urls", entry.Source)
		assert.Equal(t, "About me: I love climbing.", entry.RawText)
		assert.Equal(t, 1, profile.Version)
	})

	t.Run("duplicate and blank urls dropped", func(t *testing.T) {
		f := newFixture(t)
		person := f.createPerson(t)
		// The argument matcher is the assertion: the fetcher must see the
		// deduped, trimmed list.
		f.fetcher.EXPECT().Fetch(gomock.Any(), []string{"https://example.com"}).
			Return("fetched page text", nil)
		f.deriver.EXPECT().Run(gomock.Any(), gomock.Any()).
			Return(deriveResult(validProfile()), nil)

		_, _, err := f.svc.AddFromURLs(ctx, person.ID, []string{" https://example.com ", "https://example.com", ""})
		require.NoError(t, err)
	})

	t.Run("empty url list rejected", func(t *testing.T) {
		f := newFixture(t)
		person := f.createPerson(t)
		_, _, err := f.svc.AddFromURLs(ctx, person.ID, nil)
		assert.True(t, derrors.HasCode(err, derrors.CodeBadRequest))
	})

	t.Run("fetcher not configured", func(t *testing.T) {
		f := newFixture(t)
		f.svc.fetcher = nil
		person := f.createPerson(t)
		_, _, err := f.svc.AddFromURLs(ctx, person.ID, []string{"https://example.com"})
		assert.True(t, derrors.HasCode(err, derrors.CodeUnavailable))
	})
}

func TestLatestProfileBeforeAnyDerivation(t *testing.T) {
	f := newFixture(t)
	person := f.createPerson(t)

	_, err := f.svc.LatestProfile(context.Background(), person.ID)
	assert.True(t, derrors.HasCode(err, derrors.CodeNotFound))
}

func TestDeletePersonRemovesAggregate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	person := f.createPerson(t)
	f.deriver.EXPECT().Run(gomock.Any(), gomock.Any()).
		Return(deriveResult(validProfile()), nil)
	_, _, err := f.svc.AddEntryAndRecompute(ctx, person.ID, "some text", "")
	require.NoError(t, err)

	require.NoError(t, f.svc.DeletePerson(ctx, person.ID))

	_, err = f.svc.GetPerson(ctx, person.ID)
	assert.True(t, derrors.HasCode(err, derrors.CodeNotFound))
	err = f.svc.DeletePerson(ctx, person.ID)
	assert.True(t, derrors.HasCode(err, derrors.CodeNotFound))
}

func TestAuditTrail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	person := f.createPerson(t)
	f.deriver.EXPECT().Run(gomock.Any(), gomock.Any()).
		Return(deriveResult(validProfile()), nil)
	_, _, err := f.svc.AddEntryAndRecompute(ctx, person.ID, "some text", "")
	require.NoError(t, err)

	events, err := f.auditLog.ListByPerson(ctx, person.ID)
	require.NoError(t, err)

	actions := make([]string, len(events))
	for i, e := range events {
		actions[i] = e.Action
	}
	assert.Contains(t, actions, audit.ActionPersonCreated)
	assert.Contains(t, actions, audit.ActionProfileDerived)
}

func TestEvolvingPersonaScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	person := f.createPerson(t)

	gomock.InOrder(
		f.deriver.EXPECT().Run(gomock.Any(), gomock.Any()).Return(deriveResult(map[string]any{
			"identity":    map[string]any{"name": "Alex"},
			"traits":      []any{"outdoorsy"},
			"preferences": map[string]any{"environment": "mountains"},
			"goals":       []any{"hike the high passes"},
			"summary":     "an avid hiker",
		}), nil),
		f.deriver.EXPECT().Run(gomock.Any(), gomock.Any()).Return(deriveResult(map[string]any{
			"identity":    map[string]any{"name": "Alex"},
			"traits":      []any{"outdoorsy", "observant"},
			"preferences": map[string]any{"environment": "mountains"},
			"goals":       []any{"hike the high passes", "photograph wildlife"},
			"summary":     "an avid hiker who took up photography",
		}), nil),
	)

	v1, _, err := f.svc.AddEntryAndRecompute(ctx, person.ID, "I spend every weekend hiking.", "")
	require.NoError(t, err)
	assert.Equal(t, "an avid hiker", v1.Profile["summary"])

	v2, _, err := f.svc.AddEntryAndRecompute(ctx, person.ID, "I bought a camera to photograph wildlife on my hikes.", "")
	require.NoError(t, err)
	assert.Equal(t, 2, v2.Version)
	assert.Equal(t, "an avid hiker who took up photography", v2.Profile["summary"])

	// Earlier versions stay immutable and addressable.
	versions, err := f.svc.ProfileVersions(ctx, person.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "an avid hiker", versions[1].Profile["summary"])
}
