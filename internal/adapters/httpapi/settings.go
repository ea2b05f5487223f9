package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/w2w-movies/w2w/internal/app"
	"github.com/w2w-movies/w2w/internal/domain"
	"github.com/w2w-movies/w2w/internal/httpjson"
)

type SettingsHandler struct {
	settings *app.SettingsService
}

func NewSettingsHandler(settings *app.SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// PUT remplace le document (champs absents = valeurs par défaut),
// PATCH ne modifie que les champs envoyés.
func (h *SettingsHandler) Routes(r chi.Router) {
	r.Get("/settings", h.get)
	r.Put("/settings", h.put)
	r.Patch("/settings", h.patch)
}

func (h *SettingsHandler) get(w http.ResponseWriter, r *http.Request) {
	s, err := h.settings.Get(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, s)
}

func (h *SettingsHandler) put(w http.ResponseWriter, r *http.Request) {
	var s domain.Settings
	if !decodeSettings(w, r, &s) {
		return
	}
	h.save(w, r, s)
}

func (h *SettingsHandler) patch(w http.ResponseWriter, r *http.Request) {
	s, err := h.settings.Get(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if !decodeSettings(w, r, &s) {
		return
	}
	h.save(w, r, s)
}

func (h *SettingsHandler) save(w http.ResponseWriter, r *http.Request, s domain.Settings) {
	updated, err := h.settings.Put(r.Context(), s)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, updated)
}

// decodeSettings refuse les champs inconnus (faute de frappe dans un réglage).
func decodeSettings(w http.ResponseWriter, r *http.Request, s *domain.Settings) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(s); err != nil {
		httpjson.WriteCodedError(w, http.StatusBadRequest, app.CodeInvalidParams, "invalid settings: "+err.Error())
		return false
	}
	return true
}
