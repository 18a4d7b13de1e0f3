package handler

import "personad/internal/person/models"

type createPersonRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Gender    string `json:"gender"`
}

type addDataRequest struct {
	RawText string `json:"raw_text"`
	Source  string `json:"source"`
	// SkipDerivation stores the submission without recomputing the persona.
	// It still feeds every later derivation.
	SkipDerivation bool `json:"skip_derivation"`
}

type fromURLsRequest struct {
	URLs []string `json:"urls"`
}

type derivationResponse struct {
	Entry   *models.HistoryEntry   `json:"entry,omitempty"`
	Persona *models.DerivedProfile `json:"persona,omitempty"`
}

type listResponse[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}
