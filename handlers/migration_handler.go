package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/Dosada05/league-registration/metadata"
	"github.com/Dosada05/league-registration/middleware"
	"github.com/Dosada05/league-registration/models"
	"github.com/Dosada05/league-registration/services"
	"github.com/go-chi/chi/v5"
)

type MigrationHandler struct {
	migrationService services.MigrationService
}

func NewMigrationHandler(ms services.MigrationService) *MigrationHandler {
	return &MigrationHandler{migrationService: ms}
}

type migrateAllProfilesInput struct {
	DryRun       bool     `json:"dry_run"`
	ProfileTypes []string `json:"profile_types"`
	Family       string   `json:"family"`
}

type migrateAllJobsInput struct {
	DryRun       bool     `json:"dry_run"`
	ProfileTypes []string `json:"profile_types"`
	NameContains string   `json:"name_contains"`
	JobIDs       []int    `json:"job_ids"`
}

func (h *MigrationHandler) ListProfileTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.migrationService.KnownProfileTypes(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"profile_types": types}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MigrationHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.migrationService.GetProfileSummary(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"summary": summary}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MigrationHandler) PreviewProfile(w http.ResponseWriter, r *http.Request) {
	h.migrateProfile(w, r, true)
}

// MigrateProfile runs live unless ?dry_run=true.
func (h *MigrationHandler) MigrateProfile(w http.ResponseWriter, r *http.Request) {
	h.migrateProfile(w, r, queryBool(r, "dry_run"))
}

func (h *MigrationHandler) migrateProfile(w http.ResponseWriter, r *http.Request, dryRun bool) {
	pt := models.ProfileType(chi.URLParam(r, "profileType"))
	opts := services.MigrateOptions{DryRun: dryRun, Actor: middleware.GetActorFromContext(r.Context())}

	result, err := h.migrationService.MigrateProfile(r.Context(), pt, opts)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"result": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MigrationHandler) MigrateAllProfiles(w http.ResponseWriter, r *http.Request) {
	var input migrateAllProfilesInput
	if r.ContentLength != 0 {
		if err := readJSON(w, r, &input); err != nil {
			badRequestResponse(w, r, err)
			return
		}
	}

	filter := services.ProfileFilter{Family: models.ProfileFamily(strings.ToUpper(strings.TrimSpace(input.Family)))}
	for _, raw := range input.ProfileTypes {
		filter.ProfileTypes = append(filter.ProfileTypes, models.ProfileType(raw))
	}
	opts := services.MigrateOptions{DryRun: input.DryRun, Actor: middleware.GetActorFromContext(r.Context())}

	report, err := h.migrationService.MigrateAllProfiles(r.Context(), opts, filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"report": report}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateSchema accepts either {"fields": [...]} or a bare field array. Field
// properties may use any of the alias spellings older editors produce.
func (h *MigrationHandler) UpdateSchema(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := readJSON(w, r, &raw); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	doc, skipped, err := metadata.DecodeLenient(raw)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if len(skipped) > 0 {
		badRequestResponse(w, r, fmt.Errorf("unreadable field entries: %s", strings.Join(skipped, ", ")))
		return
	}

	pt := models.ProfileType(chi.URLParam(r, "profileType"))
	result, err := h.migrationService.UpdateSchema(r.Context(), pt, doc.Fields, middleware.GetActorFromContext(r.Context()))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"result": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MigrationHandler) NextProfileType(w http.ResponseWriter, r *http.Request) {
	next, err := h.migrationService.NextProfileType(r.Context(), chi.URLParam(r, "profileType"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"profile_type": next}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MigrationHandler) PreviewJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := getIDFromURL(r, "jobID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	result, err := h.migrationService.PreviewJob(r.Context(), jobID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"result": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MigrationHandler) MigrateJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := getIDFromURL(r, "jobID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	result, err := h.migrationService.MigrateJob(r.Context(), jobID, middleware.GetActorFromContext(r.Context()))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"result": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MigrationHandler) MigrateAllJobs(w http.ResponseWriter, r *http.Request) {
	var input migrateAllJobsInput
	if r.ContentLength != 0 {
		if err := readJSON(w, r, &input); err != nil {
			badRequestResponse(w, r, err)
			return
		}
	}

	filter := services.JobFilter{NameContains: input.NameContains, JobIDs: input.JobIDs}
	for _, raw := range input.ProfileTypes {
		pt, ok := models.ParseProfileType(raw)
		if !ok {
			mapServiceErrorToHTTP(w, r, fmt.Errorf("%w: %q", services.ErrProfileTypeInvalid, raw))
			return
		}
		filter.ProfileTypes = append(filter.ProfileTypes, pt)
	}
	opts := services.MigrateOptions{DryRun: input.DryRun, Actor: middleware.GetActorFromContext(r.Context())}

	report, err := h.migrationService.MigrateAllJobs(r.Context(), opts, filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"report": report}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ExportSQL streams the script as a file download, or uploads it and returns
// its location when ?upload=true. Filters: profile_type (repeatable), name, job_id.
func (h *MigrationHandler) ExportSQL(w http.ResponseWriter, r *http.Request) {
	filter := services.JobFilter{NameContains: r.URL.Query().Get("name")}
	for _, raw := range queryList(r, "profile_type") {
		pt, ok := models.ParseProfileType(raw)
		if !ok {
			mapServiceErrorToHTTP(w, r, fmt.Errorf("%w: %q", services.ErrProfileTypeInvalid, raw))
			return
		}
		filter.ProfileTypes = append(filter.ProfileTypes, pt)
	}
	for _, raw := range queryList(r, "job_id") {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			badRequestResponse(w, r, fmt.Errorf("invalid job_id value: %q", raw))
			return
		}
		filter.JobIDs = append(filter.JobIDs, id)
	}

	upload := queryBool(r, "upload")
	export, err := h.migrationService.ExportSQL(r.Context(), filter, upload)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if upload {
		if err := writeJSON(w, http.StatusOK, jsonResponse{"export": export}, nil); err != nil {
			serverErrorResponse(w, r, err)
		}
		return
	}

	w.Header().Set("Content-Type", "application/sql; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="profile-metadata.sql"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(export.Script))
}
