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

type SearchHandler struct {
	search *app.SearchService
}

func NewSearchHandler(search *app.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

func (h *SearchHandler) Routes(r chi.Router) {
	r.Get("/search", h.direct)
	r.Route("/search-sessions", func(r chi.Router) {
		r.Post("/", h.open)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.input)
		r.Delete("/{id}", h.close)
	})
}

type searchInput struct {
	Text string `json:"text"`
	// Submit déclenche la recherche sans attendre la période calme.
	Submit bool `json:"submit,omitempty"`
}

func (h *SearchHandler) direct(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	res, err := h.search.Search(r.Context(), r.URL.Query().Get("keyword"), page, limit)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, res)
}

func (h *SearchHandler) open(w http.ResponseWriter, r *http.Request) {
	var in searchInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil && !errors.Is(err, io.EOF) {
		httpjson.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	sess := h.search.Open(r.Context())
	if in.Text != "" {
		_ = sess.Input(in.Text)
		if in.Submit {
			sess.Flush()
		}
	}
	httpjson.Write(w, http.StatusCreated, sess.Snapshot())
}

// get renvoie l'état de la session; ?wait=true attend la fin de la recherche.
func (h *SearchHandler) get(w http.ResponseWriter, r *http.Request) {
	sess, err := h.search.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if r.URL.Query().Get("wait") != "" && queryWait(r) {
		if err := sess.WaitSettled(r.Context()); err != nil {
			writeAppError(w, r, err)
			return
		}
	}
	httpjson.Write(w, http.StatusOK, sess.Snapshot())
}

func (h *SearchHandler) input(w http.ResponseWriter, r *http.Request) {
	var in searchInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpjson.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	sess, err := h.search.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if err := sess.Input(in.Text); err != nil {
		writeAppError(w, r, err)
		return
	}
	if in.Submit {
		sess.Flush()
	}
	httpjson.Write(w, http.StatusAccepted, sess.Snapshot())
}

func (h *SearchHandler) close(w http.ResponseWriter, r *http.Request) {
	if err := h.search.CloseSession(chi.URLParam(r, "id")); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
