package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/w2w-movies/w2w/internal/app"
	"github.com/w2w-movies/w2w/internal/httpjson"
)

type MoviesHandler struct {
	details *app.DetailService
	watch   *app.WatchService
}

func NewMoviesHandler(details *app.DetailService, watch *app.WatchService) *MoviesHandler {
	return &MoviesHandler{details: details, watch: watch}
}

func (h *MoviesHandler) Routes(r chi.Router) {
	r.Get("/movies/{slug}", h.detail)
	if h.watch != nil {
		r.Get("/movies/{slug}/watch", h.watchSelection)
	}
	r.Get("/categories", h.categories)
	r.Get("/countries", h.countries)
}

func (h *MoviesHandler) detail(w http.ResponseWriter, r *http.Request) {
	d, err := h.details.Get(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, d)
}

// watchSelection calcule le lien à lire pour (server, episode) et l'inscrit dans l'historique.
func (h *MoviesHandler) watchSelection(w http.ResponseWriter, r *http.Request) {
	server, err := queryInt(r, "server", 0)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	episode, err := queryInt(r, "episode", 0)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	direct, _ := strconv.ParseBool(r.URL.Query().Get("direct"))

	view, err := h.watch.Resolve(r.Context(), chi.URLParam(r, "slug"), server, episode, direct)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, view)
}

func (h *MoviesHandler) categories(w http.ResponseWriter, r *http.Request) {
	out, err := h.details.Categories(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, out)
}

func (h *MoviesHandler) countries(w http.ResponseWriter, r *http.Request) {
	out, err := h.details.Countries(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, out)
}
