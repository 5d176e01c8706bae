package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goliatone/cinebase/cache"
	"github.com/goliatone/cinebase/internal/catalog"
)

type movieRequest struct {
	TMDBID           *int     `json:"tmdb_id"`
	Title            string   `json:"title"`
	Year             *int     `json:"year"`
	Genres           []string `json:"genres"`
	Overview         string   `json:"overview"`
	CustomPosterPath string   `json:"custom_poster_path"`
	CustomTrailerURL string   `json:"custom_trailer_url"`
	IsCustom         bool     `json:"is_custom"`
}

func (m movieRequest) movie() catalog.Movie {
	genres := m.Genres
	if genres == nil {
		genres = []string{}
	}
	return catalog.Movie{
		TMDBID:           m.TMDBID,
		Title:            m.Title,
		Year:             m.Year,
		Genres:           genres,
		Overview:         m.Overview,
		CustomPosterPath: m.CustomPosterPath,
		CustomTrailerURL: m.CustomTrailerURL,
		IsCustom:         m.IsCustom,
	}
}

type pageResponse[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

func (h *handler) listMovies(w http.ResponseWriter, r *http.Request) {
	q, err := parseMovieQuery(r.URL.Query())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	page, origin, err := h.movies.List(readContext(r), q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeCached(w, r, origin, cache.BuildListKey(catalog.KindMovies, q.CacheParams()), pageResponse[catalog.Movie]{
		Items:    page.Items,
		Total:    page.Total,
		Page:     q.Page,
		PageSize: q.PageSize,
	})
}

func (h *handler) getMovie(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	movie, origin, err := h.movies.Get(readContext(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeCached(w, r, origin, cache.BuildEntityKey(catalog.KindMovies, id), movie)
}

func (h *handler) createMovie(w http.ResponseWriter, r *http.Request) {
	var req movieRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	movie, err := h.movies.Create(r.Context(), req.movie())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/movies/"+movie.ID)
	writeJSON(w, http.StatusCreated, movie)
}

func (h *handler) updateMovie(w http.ResponseWriter, r *http.Request) {
	var patch catalog.MoviePatch
	if err := decodeJSON(r, &patch); err != nil {
		h.writeError(w, r, err)
		return
	}

	movie, err := h.movies.Update(r.Context(), chi.URLParam(r, "id"), patch.Apply)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, movie)
}

func (h *handler) deleteMovie(w http.ResponseWriter, r *http.Request) {
	if err := h.movies.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
