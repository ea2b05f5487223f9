package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/w2w-movies/w2w/internal/app"
	"github.com/w2w-movies/w2w/internal/httpjson"
)

type HistoryHandler struct {
	history *app.HistoryService
}

func NewHistoryHandler(history *app.HistoryService) *HistoryHandler {
	return &HistoryHandler{history: history}
}

func (h *HistoryHandler) Routes(r chi.Router) {
	r.Get("/history", h.list)
	r.Get("/history/{slug}", h.get)
	r.Delete("/history/{slug}", h.delete)
}

func (h *HistoryHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	out, err := h.history.List(r.Context(), limit, r.URL.Query().Get("q"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, out)
}

func (h *HistoryHandler) get(w http.ResponseWriter, r *http.Request) {
	e, err := h.history.Get(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, e)
}

func (h *HistoryHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.history.Delete(r.Context(), chi.URLParam(r, "slug")); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
