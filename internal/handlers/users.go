package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/inkpress/apiserver/internal/services"
	"github.com/inkpress/apiserver/types"
)

// UserHandler provides HTTP handlers for user accounts.
type UserHandler struct {
	users *services.UserService
}

// UserRouter registers user routes. Every route requires authentication.
func UserRouter(r chi.Router, users *services.UserService, auth *Authenticator) {
	h := &UserHandler{users: users}
	admin := RequireRole(types.RoleAdmin)

	r.Use(auth.RequireAuth)
	r.With(admin).Get("/", h.ListUsers)
	r.Route("/{userID}", func(r chi.Router) {
		r.Get("/", h.GetUser)
		r.Put("/", h.UpdateUser)
		r.With(admin).Delete("/", h.DeleteUser)
		r.With(admin).Patch("/status", h.SetStatus)
		r.With(admin).Patch("/role", h.SetRole)
	})
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	users, err := h.users.List(r.Context(), strings.TrimSpace(r.URL.Query().Get("q")), page)
	if err != nil {
		writeServiceError(w, r, err, "user", "list users")
		return
	}
	writeJSON(w, http.StatusOK, types.MapPage(users, types.User.Public))
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "user", "fetch user")
		return
	}
	writeJSON(w, http.StatusOK, user.Public())
}

func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req services.UpdateUserInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.Update(r.Context(), actorFromContext(r.Context()), id, req)
	if err != nil {
		writeServiceError(w, r, err, "user", "update user")
		return
	}
	writeJSON(w, http.StatusOK, user.Public())
}

func (h *UserHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		writeServiceError(w, r, err, "user", "update user status")
		return
	}
	writeJSON(w, http.StatusOK, user.Public())
}

func (h *UserHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		Role string `json:"role"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.SetRole(r.Context(), id, req.Role)
	if err != nil {
		writeServiceError(w, r, err, "user", "update user role")
		return
	}
	writeJSON(w, http.StatusOK, user.Public())
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.users.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err, "user", "delete user")
		return
	}
	writeMessage(w, http.StatusOK, "user deleted")
}
