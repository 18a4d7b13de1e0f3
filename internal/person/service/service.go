// Package service orchestrates the person aggregate: submissions, persona
// recomputation over the full history, and lifecycle operations. Handlers
// stay thin; stores stay factual; this layer owns ordering, locking and
// error classification.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"personad/internal/audit"
	"personad/internal/person/metrics"
	"personad/internal/person/models"
	"personad/internal/person/store"
	"personad/internal/persona"
	"personad/internal/persona/extract"
	"personad/internal/persona/pipeline"
	"personad/internal/platform/lock"
	"personad/pkg/derrors"
	"personad/pkg/platform/sentinel"
	pkgstrings "personad/pkg/platform/strings"
	"personad/pkg/requestcontext"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Deriver runs the persona pipeline over a concatenated history document.
type Deriver interface {
	Run(ctx context.Context, document string) (*pipeline.Result, error)
}

// Fetcher pulls readable text from a set of URLs, joined into one document.
type Fetcher interface {
	Fetch(ctx context.Context, urls []string) (string, error)
}

// Service coordinates stores, the derivation pipeline and per-person locking.
type Service struct {
	store   store.Store
	deriver Deriver
	fetcher Fetcher
	locks   lock.Locker
	metrics *metrics.Metrics
	audit   audit.Emitter
	logger  *slog.Logger
	tracer  trace.Tracer
}

// New constructs the person service. fetcher may be nil, in which case
// URL-sourced submissions are rejected as unavailable.
func New(st store.Store, deriver Deriver, fetcher Fetcher, locks lock.Locker, m *metrics.Metrics, auditPub audit.Emitter, logger *slog.Logger) *Service {
	return &Service{
		store:   st,
		deriver: deriver,
		fetcher: fetcher,
		locks:   locks,
		metrics: m,
		audit:   auditPub,
		logger:  logger,
		tracer:  otel.Tracer("personad"),
	}
}

// CreatePerson registers a new aggregate root.
func (s *Service) CreatePerson(ctx context.Context, firstName, lastName, gender string) (*models.Person, error) {
	person, err := models.NewPerson(firstName, lastName, gender, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.CreatePerson(ctx, person); err != nil {
		return nil, mapError(err)
	}
	s.emit(ctx, audit.Event{PersonID: person.ID, Action: audit.ActionPersonCreated})
	return person, nil
}

// GetPerson returns the person with history and profile counts.
func (s *Service) GetPerson(ctx context.Context, personID uuid.UUID) (*models.PersonSummary, error) {
	summary, err := s.store.GetPersonSummary(ctx, personID)
	if err != nil {
		return nil, mapError(err)
	}
	return summary, nil
}

// ListPersons returns a page of person summaries and the total count.
func (s *Service) ListPersons(ctx context.Context, limit, offset int) ([]models.PersonSummary, int, error) {
	limit, offset = clampPage(limit, offset)
	summaries, total, err := s.store.ListPersons(ctx, limit, offset)
	if err != nil {
		return nil, 0, mapError(err)
	}
	return summaries, total, nil
}

// DeletePerson removes the person with all history and derived profiles.
func (s *Service) DeletePerson(ctx context.Context, personID uuid.UUID) error {
	if err := s.store.DeletePerson(ctx, personID); err != nil {
		return mapError(err)
	}
	s.emit(ctx, audit.Event{PersonID: personID, Action: audit.ActionPersonDeleted})
	return nil
}

// AddEntry appends a submission without triggering recomputation. The entry
// still becomes part of every later derivation's input.
func (s *Service) AddEntry(ctx context.Context, personID uuid.UUID, rawText, source string) (*models.HistoryEntry, error) {
	entry, err := models.NewHistoryEntry(personID, rawText, source, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetPerson(ctx, personID); err != nil {
		return nil, mapError(err)
	}
	if err := s.store.AppendHistory(ctx, entry); err != nil {
		return nil, mapError(err)
	}
	s.emit(ctx, audit.Event{PersonID: personID, Action: audit.ActionEntryAdded, Detail: map[string]any{
		"entry_id": entry.ID.String(),
		"source":   entry.Source,
	}})
	return entry, nil
}

// AddEntryAndRecompute appends a submission and derives a new profile version
// from the cumulative history including it. The entry and the profile become
// visible atomically.
func (s *Service) AddEntryAndRecompute(ctx context.Context, personID uuid.UUID, rawText, source string) (*models.DerivedProfile, *models.HistoryEntry, error) {
	ctx, span := s.tracer.Start(ctx, "person.AddEntryAndRecompute",
		trace.WithAttributes(attribute.String("person_id", personID.String())),
	)
	defer span.End()

	if err := models.ValidateRawText(rawText); err != nil {
		return nil, nil, err
	}
	if _, err := s.store.GetPerson(ctx, personID); err != nil {
		return nil, nil, mapError(err)
	}

	release, err := s.locks.Acquire(ctx, lockKey(personID))
	if err != nil {
		return nil, nil, derrors.Wrap(err, derrors.CodeUnavailable, "could not serialize recomputation")
	}
	defer release()

	history, err := s.store.FullHistory(ctx, personID)
	if err != nil {
		return nil, nil, mapError(err)
	}

	now := requestcontext.Now(ctx)
	entry, err := models.NewHistoryEntry(personID, rawText, source, now)
	if err != nil {
		return nil, nil, err
	}

	input := append(append([]models.HistoryEntry{}, history...), *entry)
	profile, err := s.derive(ctx, span, personID, input, now)
	if err != nil {
		return nil, nil, err
	}

	if err := s.store.SaveRecomputation(ctx, entry, profile); err != nil {
		mapped := mapError(err)
		s.metrics.IncrementRecomputation(resultLabel(mapped))
		return nil, nil, mapped
	}

	s.metrics.IncrementRecomputation("ok")
	s.emit(ctx, audit.Event{PersonID: personID, Action: audit.ActionProfileDerived, Detail: map[string]any{
		"version":  profile.Version,
		"entry_id": entry.ID.String(),
	}})
	span.SetAttributes(attribute.Int("profile_version", profile.Version))
	return profile, entry, nil
}

// Recompute derives a new profile version from the existing history without
// adding a submission.
func (s *Service) Recompute(ctx context.Context, personID uuid.UUID) (*models.DerivedProfile, error) {
	ctx, span := s.tracer.Start(ctx, "person.Recompute",
		trace.WithAttributes(attribute.String("person_id", personID.String())),
	)
	defer span.End()

	if _, err := s.store.GetPerson(ctx, personID); err != nil {
		return nil, mapError(err)
	}

	release, err := s.locks.Acquire(ctx, lockKey(personID))
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeUnavailable, "could not serialize recomputation")
	}
	defer release()

	history, err := s.store.FullHistory(ctx, personID)
	if err != nil {
		return nil, mapError(err)
	}
	if len(history) == 0 {
		return nil, derrors.New(derrors.CodeValidation, "person has no submissions to derive from")
	}

	profile, err := s.derive(ctx, span, personID, history, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	if err := s.store.SaveProfile(ctx, profile); err != nil {
		mapped := mapError(err)
		s.metrics.IncrementRecomputation(resultLabel(mapped))
		return nil, mapped
	}

	s.metrics.IncrementRecomputation("ok")
	s.emit(ctx, audit.Event{PersonID: personID, Action: audit.ActionProfileDerived, Detail: map[string]any{
		"version": profile.Version,
	}})
	span.SetAttributes(attribute.Int("profile_version", profile.Version))
	return profile, nil
}

// AddFromURLs fetches the given URLs, merges their readable text into one
// submission tagged with source "urls", and recomputes the profile.
func (s *Service) AddFromURLs(ctx context.Context, personID uuid.UUID, urls []string) (*models.DerivedProfile, *models.HistoryEntry, error) {
	if s.fetcher == nil {
		return nil, nil, derrors.New(derrors.CodeUnavailable, "url fetching is not configured")
	}
	urls = pkgstrings.DedupeAndTrim(urls)
	if len(urls) == 0 {
		return nil, nil, derrors.New(derrors.CodeBadRequest, "urls array must not be empty")
	}
	text, err := s.fetcher.Fetch(ctx, urls)
	if err != nil {
		return nil, nil, mapError(err)
	}
	return s.AddEntryAndRecompute(ctx, personID, text, "urls")
}

// History returns a page of submissions oldest first plus the total count.
func (s *Service) History(ctx context.Context, personID uuid.UUID, limit, offset int) ([]models.HistoryEntry, int, error) {
	if _, err := s.store.GetPerson(ctx, personID); err != nil {
		return nil, 0, mapError(err)
	}
	limit, offset = clampPage(limit, offset)
	entries, total, err := s.store.ListHistory(ctx, personID, limit, offset)
	if err != nil {
		return nil, 0, mapError(err)
	}
	return entries, total, nil
}

// LatestProfile returns the current derived profile.
func (s *Service) LatestProfile(ctx context.Context, personID uuid.UUID) (*models.DerivedProfile, error) {
	if _, err := s.store.GetPerson(ctx, personID); err != nil {
		return nil, mapError(err)
	}
	profile, err := s.store.LatestProfile(ctx, personID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, derrors.New(derrors.CodeNotFound, "no profile has been derived yet")
		}
		return nil, mapError(err)
	}
	return profile, nil
}

// ProfileVersions returns every derived profile, newest first.
func (s *Service) ProfileVersions(ctx context.Context, personID uuid.UUID) ([]models.DerivedProfile, error) {
	if _, err := s.store.GetPerson(ctx, personID); err != nil {
		return nil, mapError(err)
	}
	profiles, err := s.store.ListProfiles(ctx, personID)
	if err != nil {
		return nil, mapError(err)
	}
	return profiles, nil
}

// derive runs the pipeline over the given entries and assembles the next
// profile version. Callers must hold the person lock: the version number and
// the lineage are both read-then-write.
func (s *Service) derive(ctx context.Context, span trace.Span, personID uuid.UUID, entries []models.HistoryEntry, now time.Time) (*models.DerivedProfile, error) {
	document := buildDocument(entries)
	s.metrics.ObserveHistoryDepth(len(entries))

	result, err := s.deriver.Run(ctx, document)
	if err != nil {
		mapped := mapError(err)
		s.metrics.IncrementRecomputation(resultLabel(mapped))
		s.emit(ctx, audit.Event{PersonID: personID, Action: audit.ActionDerivationError, Detail: map[string]any{
			"error_code": string(derrors.CodeOf(mapped)),
		}})
		span.RecordError(err)
		span.SetStatus(codes.Error, "derivation failed")
		return nil, mapped
	}
	for stage, d := range result.StageDurations {
		s.metrics.ObserveStageLatency(stage, d)
	}
	s.metrics.IncrementExtractionTier(result.ExtractionTier)

	if err := persona.ValidateProfile(result.Profile); err != nil {
		s.metrics.IncrementRecomputation("validation_error")
		return nil, derrors.Wrap(err, derrors.CodeValidation, "generated profile is incomplete")
	}

	version := 1
	if latest, err := s.store.LatestProfile(ctx, personID); err == nil {
		version = latest.Version + 1
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, mapError(err)
	}

	lineage := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		lineage[i] = e.ID
	}

	return &models.DerivedProfile{
		ID:              uuid.New(),
		PersonID:        personID,
		Profile:         result.Profile,
		Version:         version,
		ComputedFromIDs: lineage,
		CreatedAt:       now,
	}, nil
}

// buildDocument concatenates submissions oldest first, each under a numbered
// header carrying its submission timestamp.
func buildDocument(entries []models.HistoryEntry) string {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "--- Data Submission #%d (submitted %s) ---\n", i+1, e.CreatedAt.UTC().Format(time.RFC3339))
		b.WriteString(e.RawText)
	}
	return b.String()
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}

func lockKey(personID uuid.UUID) string {
	return "person:" + personID.String()
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// mapError classifies infrastructure and pipeline failures into coded domain
// errors. Already-coded errors pass through unchanged.
func mapError(err error) error {
	var de *derrors.Error
	if errors.As(err, &de) {
		return err
	}

	var pe *extract.ParseError
	if errors.As(err, &pe) {
		return derrors.Wrap(err, derrors.CodeParse, "generated output was not a JSON object")
	}

	var ge *pipeline.GenerationError
	if errors.As(err, &ge) {
		if errors.Is(err, context.DeadlineExceeded) {
			return derrors.Wrap(err, derrors.CodeTimeout, "generation stage timed out")
		}
		return derrors.Wrap(err, derrors.CodeGeneration, "generation backend failed")
	}

	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return derrors.Wrap(err, derrors.CodeNotFound, "person not found")
	case errors.Is(err, sentinel.ErrConflict):
		return derrors.Wrap(err, derrors.CodeConflict, "a concurrent recomputation produced this version first")
	case errors.Is(err, sentinel.ErrUnavailable):
		return derrors.Wrap(err, derrors.CodeUnavailable, "dependency unavailable")
	}
	return derrors.Wrap(err, derrors.CodeInternal, "internal error")
}

// resultLabel reduces an error to a low-cardinality metric label.
func resultLabel(err error) string {
	switch derrors.CodeOf(err) {
	case derrors.CodeGeneration:
		return "generation_error"
	case derrors.CodeParse:
		return "parse_error"
	case derrors.CodeTimeout:
		return "timeout"
	case derrors.CodeConflict:
		return "conflict"
	default:
		return "error"
	}
}
