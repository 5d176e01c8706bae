package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goliatone/cinebase/cache"
	"github.com/goliatone/cinebase/internal/auth"
	"github.com/goliatone/cinebase/internal/catalog"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.auth.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	session, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFrom(r.Context())

	user, origin, err := h.users.Get(readContext(r), id.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeCached(w, r, origin, cache.BuildEntityKey(catalog.KindUsers, id.UserID), user)
}

func (h *handler) listUsers(w http.ResponseWriter, r *http.Request) {
	q, err := parseUserQuery(r.URL.Query())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	page, origin, err := h.users.List(readContext(r), q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeCached(w, r, origin, cache.BuildListKey(catalog.KindUsers, q.CacheParams()), pageResponse[catalog.User]{
		Items:    page.Items,
		Total:    page.Total,
		Page:     q.Page,
		PageSize: q.PageSize,
	})
}

type roleRequest struct {
	Role catalog.Role `json:"role"`
}

func (h *handler) setUserRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.users.Update(r.Context(), chi.URLParam(r, "id"), catalog.SetRole(req.Role))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
