package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/w2w-movies/w2w/internal/app"
	"github.com/w2w-movies/w2w/internal/httpjson"
)

type ScreensHandler struct {
	screens *app.ScreenService
}

func NewScreensHandler(screens *app.ScreenService) *ScreensHandler {
	return &ScreensHandler{screens: screens}
}

func (h *ScreensHandler) Routes(r chi.Router) {
	r.Route("/screens", func(r chi.Router) {
		r.Post("/", h.open)
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Delete("/{id}", h.close)
		r.Post("/{id}/refresh", h.refresh)
		r.Get("/{id}/feeds/{feed}", h.feed)
		r.Post("/{id}/feeds/{feed}/more", h.more)
		r.Post("/{id}/feeds/{feed}/retry", h.retry)
		r.Post("/{id}/feeds/{feed}/refresh", h.refreshFeed)
	})
}

// feedAction est la réponse de more/retry: accepted=false si rien n'a été lancé.
type feedAction struct {
	Accepted bool         `json:"accepted"`
	Feed     app.FeedView `json:"feed"`
}

func (h *ScreensHandler) open(w http.ResponseWriter, r *http.Request) {
	var spec app.ScreenSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil && !errors.Is(err, io.EOF) {
		httpjson.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	scr, err := h.screens.Open(r.Context(), spec, queryWait(r))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, scr.View())
}

func (h *ScreensHandler) list(w http.ResponseWriter, r *http.Request) {
	screens := h.screens.List()
	out := make([]app.ScreenView, 0, len(screens))
	for _, scr := range screens {
		out = append(out, scr.View())
	}
	httpjson.Write(w, http.StatusOK, out)
}

func (h *ScreensHandler) get(w http.ResponseWriter, r *http.Request) {
	scr, err := h.screens.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, scr.View())
}

func (h *ScreensHandler) close(w http.ResponseWriter, r *http.Request) {
	if err := h.screens.Close(chi.URLParam(r, "id")); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ScreensHandler) refresh(w http.ResponseWriter, r *http.Request) {
	view, err := h.screens.Refresh(r.Context(), chi.URLParam(r, "id"), queryWait(r))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, view)
}

func (h *ScreensHandler) feed(w http.ResponseWriter, r *http.Request) {
	view, err := h.screens.Feed(chi.URLParam(r, "id"), chi.URLParam(r, "feed"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, view)
}

func (h *ScreensHandler) more(w http.ResponseWriter, r *http.Request) {
	view, accepted, err := h.screens.More(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "feed"), queryWait(r))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, feedAction{Accepted: accepted, Feed: view})
}

func (h *ScreensHandler) retry(w http.ResponseWriter, r *http.Request) {
	view, accepted, err := h.screens.Retry(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "feed"), queryWait(r))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, feedAction{Accepted: accepted, Feed: view})
}

func (h *ScreensHandler) refreshFeed(w http.ResponseWriter, r *http.Request) {
	view, err := h.screens.RefreshFeed(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "feed"), queryWait(r))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, view)
}
