// Package handler exposes the person aggregate over HTTP. Handlers decode,
// delegate and encode; domain rules live in the service.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"personad/internal/person/models"
	"personad/pkg/derrors"
	"personad/pkg/platform/httputil"
)

// Service defines the person operations the handler depends on.
type Service interface {
	CreatePerson(ctx context.Context, firstName, lastName, gender string) (*models.Person, error)
	GetPerson(ctx context.Context, personID uuid.UUID) (*models.PersonSummary, error)
	ListPersons(ctx context.Context, limit, offset int) ([]models.PersonSummary, int, error)
	DeletePerson(ctx context.Context, personID uuid.UUID) error
	AddEntry(ctx context.Context, personID uuid.UUID, rawText, source string) (*models.HistoryEntry, error)
	AddEntryAndRecompute(ctx context.Context, personID uuid.UUID, rawText, source string) (*models.DerivedProfile, *models.HistoryEntry, error)
	Recompute(ctx context.Context, personID uuid.UUID) (*models.DerivedProfile, error)
	AddFromURLs(ctx context.Context, personID uuid.UUID, urls []string) (*models.DerivedProfile, *models.HistoryEntry, error)
	History(ctx context.Context, personID uuid.UUID, limit, offset int) ([]models.HistoryEntry, int, error)
	LatestProfile(ctx context.Context, personID uuid.UUID) (*models.DerivedProfile, error)
	ProfileVersions(ctx context.Context, personID uuid.UUID) ([]models.DerivedProfile, error)
}

// Handler handles person endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New creates a person Handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the person routes on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/persons", func(r chi.Router) {
		r.Post("/", h.handleCreatePerson)
		r.Get("/", h.handleListPersons)
		r.Route("/{personID}", func(r chi.Router) {
			r.Get("/", h.handleGetPerson)
			r.Delete("/", h.handleDeletePerson)
			r.Post("/data", h.handleAddData)
			r.Get("/data", h.handleListData)
			r.Post("/data/regenerate", h.handleRegenerate)
			r.Post("/data/from-urls", h.handleAddFromURLs)
			r.Get("/persona", h.handleGetPersona)
			r.Get("/persona/versions", h.handleListPersonaVersions)
		})
	})
}

func (h *Handler) handleCreatePerson(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createPersonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, derrors.New(derrors.CodeBadRequest, "invalid request body"))
		return
	}

	person, err := h.service.CreatePerson(ctx, req.FirstName, req.LastName, req.Gender)
	if err != nil {
		h.writeServiceError(ctx, w, "create person", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, person)
}

func (h *Handler) handleListPersons(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, offset := pageParams(r)

	persons, total, err := h.service.ListPersons(ctx, limit, offset)
	if err != nil {
		h.writeServiceError(ctx, w, "list persons", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse[models.PersonSummary]{
		Items: persons, Total: total, Limit: limit, Offset: offset,
	})
}

func (h *Handler) handleGetPerson(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	personID, ok := h.personID(w, r)
	if !ok {
		return
	}

	summary, err := h.service.GetPerson(ctx, personID)
	if err != nil {
		h.writeServiceError(ctx, w, "get person", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleDeletePerson(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	personID, ok := h.personID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeletePerson(ctx, personID); err != nil {
		h.writeServiceError(ctx, w, "delete person", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAddData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	personID, ok := h.personID(w, r)
	if !ok {
		return
	}

	var req addDataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, derrors.New(derrors.CodeBadRequest, "invalid request body"))
		return
	}

	if req.SkipDerivation {
		entry, err := h.service.AddEntry(ctx, personID, req.RawText, req.Source)
		if err != nil {
			h.writeServiceError(ctx, w, "add entry", err)
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, derivationResponse{Entry: entry})
		return
	}

	profile, entry, err := h.service.AddEntryAndRecompute(ctx, personID, req.RawText, req.Source)
	if err != nil {
		h.writeServiceError(ctx, w, "add entry and recompute", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, derivationResponse{Entry: entry, Persona: profile})
}

func (h *Handler) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	personID, ok := h.personID(w, r)
	if !ok {
		return
	}

	profile, err := h.service.Recompute(ctx, personID)
	if err != nil {
		h.writeServiceError(ctx, w, "regenerate persona", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, derivationResponse{Persona: profile})
}

func (h *Handler) handleAddFromURLs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	personID, ok := h.personID(w, r)
	if !ok {
		return
	}

	var req fromURLsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, derrors.New(derrors.CodeBadRequest, "invalid request body"))
		return
	}

	profile, entry, err := h.service.AddFromURLs(ctx, personID, req.URLs)
	if err != nil {
		h.writeServiceError(ctx, w, "add from urls", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, derivationResponse{Entry: entry, Persona: profile})
}

func (h *Handler) handleListData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	personID, ok := h.personID(w, r)
	if !ok {
		return
	}
	limit, offset := pageParams(r)

	entries, total, err := h.service.History(ctx, personID, limit, offset)
	if err != nil {
		h.writeServiceError(ctx, w, "list history", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse[models.HistoryEntry]{
		Items: entries, Total: total, Limit: limit, Offset: offset,
	})
}

func (h *Handler) handleGetPersona(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	personID, ok := h.personID(w, r)
	if !ok {
		return
	}

	profile, err := h.service.LatestProfile(ctx, personID)
	if err != nil {
		h.writeServiceError(ctx, w, "get persona", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) handleListPersonaVersions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	personID, ok := h.personID(w, r)
	if !ok {
		return
	}

	profiles, err := h.service.ProfileVersions(ctx, personID)
	if err != nil {
		h.writeServiceError(ctx, w, "list persona versions", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profiles)
}

func (h *Handler) personID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "personID"))
	if err != nil {
		httputil.WriteError(w, derrors.New(derrors.CodeBadRequest, "person id must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	code := derrors.CodeOf(err)
	switch code {
	case derrors.CodeInternal, derrors.CodeGeneration, derrors.CodeParse, derrors.CodeTimeout, derrors.CodeUnavailable:
		h.logger.ErrorContext(ctx, "request failed", "op", op, "error", err)
	default:
		h.logger.WarnContext(ctx, "request rejected", "op", op, "code", string(code), "error", err)
	}
	httputil.WriteError(w, err)
}

// pageParams applies the same bounds the service enforces so the response
// envelope echoes the effective page, not the raw query.
func pageParams(r *http.Request) (limit, offset int) {
	limit = 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 100 {
		limit = 100
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			offset = n
		}
	}
	return limit, offset
}
