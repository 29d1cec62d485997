package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Dosada05/league-registration/registration"
	"github.com/Dosada05/league-registration/services"
	"github.com/go-chi/chi/v5"
)

type RegistrationHandler struct {
	registrationService services.RegistrationService
}

func NewRegistrationHandler(rs services.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registrationService: rs}
}

type selectEntityInput struct {
	Prior    map[string]any `json:"prior"`
	Defaults map[string]any `json:"defaults"`
}

type setValueInput struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

type setEligibilityInput struct {
	Value string `json:"value"`
}

// acceptWaiverInput accepts one waiver by field name, or every waiver with all=true.
type acceptWaiverInput struct {
	Field    string `json:"field"`
	All      bool   `json:"all"`
	Accepted bool   `json:"accepted"`
}

func sessionAndEntity(r *http.Request) (string, string) {
	return chi.URLParam(r, "sessionID"), chi.URLParam(r, "entityID")
}

func (h *RegistrationHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	jobID, err := getIDFromURL(r, "jobID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	view, err := h.registrationService.CreateSession(r.Context(), jobID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"session": view}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RegistrationHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.registrationService.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"session": view}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RegistrationHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.registrationService.CloseSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RegistrationHandler) SelectEntity(w http.ResponseWriter, r *http.Request) {
	sessionID, entityID := sessionAndEntity(r)
	var input selectEntityInput
	if r.ContentLength != 0 {
		if err := readJSON(w, r, &input); err != nil {
			badRequestResponse(w, r, err)
			return
		}
	}

	fields, err := h.registrationService.SelectEntity(r.Context(), sessionID, entityID, registration.Seed{Prior: input.Prior, Defaults: input.Defaults})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"fields": fields}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RegistrationHandler) DeselectEntity(w http.ResponseWriter, r *http.Request) {
	sessionID, entityID := sessionAndEntity(r)
	if err := h.registrationService.DeselectEntity(r.Context(), sessionID, entityID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetFieldValue replies with the fields visible after the change, since a
// value can switch conditional fields on or off.
func (h *RegistrationHandler) SetFieldValue(w http.ResponseWriter, r *http.Request) {
	sessionID, entityID := sessionAndEntity(r)
	var input setValueInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if strings.TrimSpace(input.Field) == "" {
		badRequestResponse(w, r, errors.New("field is required"))
		return
	}

	if err := h.registrationService.SetFieldValue(r.Context(), sessionID, entityID, input.Field, input.Value); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	fields, err := h.registrationService.VisibleFields(r.Context(), sessionID, entityID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"fields": fields}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RegistrationHandler) SetEligibility(w http.ResponseWriter, r *http.Request) {
	sessionID, entityID := sessionAndEntity(r)
	var input setEligibilityInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := h.registrationService.SetEligibility(r.Context(), sessionID, entityID, input.Value); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	teams, err := h.registrationService.EligibleTeams(r.Context(), sessionID, entityID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"teams": teams}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RegistrationHandler) AcceptWaivers(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	var input acceptWaiverInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var err error
	switch {
	case input.All:
		err = h.registrationService.AcceptAllWaivers(r.Context(), sessionID, input.Accepted)
	case strings.TrimSpace(input.Field) != "":
		err = h.registrationService.AcceptWaiver(r.Context(), sessionID, input.Field, input.Accepted)
	default:
		badRequestResponse(w, r, errors.New("either field or all must be set"))
		return
	}
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RegistrationHandler) VisibleFields(w http.ResponseWriter, r *http.Request) {
	sessionID, entityID := sessionAndEntity(r)
	fields, err := h.registrationService.VisibleFields(r.Context(), sessionID, entityID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"fields": fields}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RegistrationHandler) Validate(w http.ResponseWriter, r *http.Request) {
	sessionID, entityID := sessionAndEntity(r)
	result, err := h.registrationService.Validate(r.Context(), sessionID, entityID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"validation": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RegistrationHandler) Payload(w http.ResponseWriter, r *http.Request) {
	sessionID, entityID := sessionAndEntity(r)
	payload, err := h.registrationService.Payload(r.Context(), sessionID, entityID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"payload": payload}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RegistrationHandler) EligibleTeams(w http.ResponseWriter, r *http.Request) {
	sessionID, entityID := sessionAndEntity(r)
	teams, err := h.registrationService.EligibleTeams(r.Context(), sessionID, entityID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"teams": teams}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RegistrationHandler) MembershipStatus(w http.ResponseWriter, r *http.Request) {
	sessionID, entityID := sessionAndEntity(r)
	status, err := h.registrationService.MembershipStatus(r.Context(), sessionID, entityID, chi.URLParam(r, "field"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"membership": status}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
