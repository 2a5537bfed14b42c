package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/inkpress/apiserver/internal/services"
	"github.com/inkpress/apiserver/types"
)

// AuthorHandler provides HTTP handlers for authors.
type AuthorHandler struct {
	authors *services.AuthorService
	media   *services.MediaService
}

// AuthorRouter registers author routes on the given router.
func AuthorRouter(r chi.Router, authors *services.AuthorService, media *services.MediaService, auth *Authenticator) {
	h := &AuthorHandler{authors: authors, media: media}

	r.Get("/", h.ListAuthors)
	r.With(auth.RequireAuth).Post("/", h.CreateAuthor)
	r.Route("/{authorID}", func(r chi.Router) {
		r.Get("/", h.GetAuthor)
		r.Get("/novels", h.ListNovels)
		r.With(auth.RequireAuth).Put("/", h.UpdateAuthor)
		r.With(auth.RequireAuth, RequireRole(types.RoleAdmin)).Delete("/", h.DeleteAuthor)
		r.With(auth.RequireAuth).Post("/avatar", h.UploadAvatar)
	})
}

func (h *AuthorHandler) ListAuthors(w http.ResponseWriter, r *http.Request) {
	page, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	authors, err := h.authors.List(r.Context(), strings.TrimSpace(r.URL.Query().Get("q")), page)
	if err != nil {
		writeServiceError(w, r, err, "author", "list authors")
		return
	}
	writeJSON(w, http.StatusOK, authors)
}

func (h *AuthorHandler) GetAuthor(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "authorID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	author, err := h.authors.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "author", "fetch author")
		return
	}
	writeJSON(w, http.StatusOK, author)
}

func (h *AuthorHandler) ListNovels(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "authorID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	novels, err := h.authors.Novels(r.Context(), id, page)
	if err != nil {
		writeServiceError(w, r, err, "author", "list author novels")
		return
	}
	writeJSON(w, http.StatusOK, novels)
}

// CreateAuthor accepts either a JSON body or a multipart form with name, bio
// and an optional avatar file.
func (h *AuthorHandler) CreateAuthor(w http.ResponseWriter, r *http.Request) {
	var req services.AuthorInput
	if isMultipart(r) {
		data, err := parseUpload(w, r, formFieldAvatar)
		if err != nil && !errors.Is(err, errMissingFile) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		req.Name = formValue(r, "name")
		req.Bio = formValue(r, "bio")
		if data != nil {
			ref, err := h.media.Upload(r.Context(), services.MediaAvatar, data)
			if err != nil {
				writeServiceError(w, r, err, "author", "store avatar")
				return
			}
			req.Avatar = &ref
		}
	} else if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	author, err := h.authors.Create(r.Context(), req)
	if err != nil {
		if req.Avatar != nil && isMultipart(r) {
			discardUpload(r, h.media, *req.Avatar)
		}
		writeServiceError(w, r, err, "author", "create author")
		return
	}
	writeJSON(w, http.StatusCreated, author)
}

func (h *AuthorHandler) UpdateAuthor(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "authorID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req services.AuthorInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	author, err := h.authors.Update(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, r, err, "author", "update author")
		return
	}
	writeJSON(w, http.StatusOK, author)
}

func (h *AuthorHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "authorID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	current, err := h.authors.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "author", "fetch author")
		return
	}

	data, err := parseUpload(w, r, formFieldAvatar)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ref, err := h.media.Upload(r.Context(), services.MediaAvatar, data)
	if err != nil {
		writeServiceError(w, r, err, "author", "store avatar")
		return
	}

	author, err := h.authors.SetAvatar(r.Context(), id, ref)
	replaceUpload(r, h.media, current.Avatar, ref, err)
	if err != nil {
		writeServiceError(w, r, err, "author", "update author")
		return
	}
	writeJSON(w, http.StatusOK, author)
}

func (h *AuthorHandler) DeleteAuthor(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "authorID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.authors.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err, "author", "delete author")
		return
	}
	writeMessage(w, http.StatusOK, "author deleted")
}
