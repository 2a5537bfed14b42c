package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/inkpress/apiserver/internal/services"
)

// NovelHandler provides HTTP handlers for novels.
type NovelHandler struct {
	novels *services.NovelService
	media  *services.MediaService
}

// NovelRouter registers novel routes, including the nested chapter and
// comment routes.
func NovelRouter(
	r chi.Router,
	novels *services.NovelService,
	chapters *services.ChapterService,
	comments *services.CommentService,
	media *services.MediaService,
	auth *Authenticator,
) {
	h := &NovelHandler{novels: novels, media: media}
	ch := &ChapterHandler{chapters: chapters}
	cm := &CommentHandler{comments: comments}

	r.Get("/", h.ListNovels)
	r.Get("/genres", h.ListGenres)
	r.With(auth.RequireAuth).Post("/", h.CreateNovel)
	r.Route("/{novelID}", func(r chi.Router) {
		r.Get("/", h.GetNovel)
		r.Post("/views", h.IncrementViews)
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth)
			r.Put("/", h.UpdateNovel)
			r.Delete("/", h.DeleteNovel)
			r.Patch("/status", h.SetStatus)
			r.Post("/cover", h.UploadCover)
			r.Post("/like", h.Like)
		})

		r.Route("/chapters", func(r chi.Router) {
			r.Get("/", ch.ListChapters)
			r.With(auth.RequireAuth).Post("/", ch.CreateChapter)
			r.Route("/{chapterID}", func(r chi.Router) {
				r.Get("/", ch.GetChapter)
				r.Post("/views", ch.IncrementViews)
				r.With(auth.RequireAuth).Put("/", ch.UpdateChapter)
				r.With(auth.RequireAuth).Delete("/", ch.DeleteChapter)
			})
		})

		r.Route("/comments", func(r chi.Router) {
			r.Get("/", cm.ListComments)
			r.With(auth.RequireAuth).Post("/", cm.CreateComment)
		})
	})
}

func (h *NovelHandler) ListNovels(w http.ResponseWriter, r *http.Request) {
	page, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	query := r.URL.Query()
	authorID, err := parseOptionalInt(query.Get("authorId"))
	if err != nil || authorID < 0 {
		writeError(w, http.StatusBadRequest, "invalid authorId")
		return
	}

	filter := services.NovelFilter{
		Query:    strings.TrimSpace(query.Get("q")),
		Genre:    strings.TrimSpace(query.Get("genre")),
		Status:   strings.TrimSpace(query.Get("status")),
		Tag:      strings.TrimSpace(query.Get("tag")),
		AuthorID: authorID,
		Sort:     strings.ToLower(strings.TrimSpace(query.Get("sort"))),
	}

	novels, err := h.novels.List(r.Context(), filter, page)
	if err != nil {
		writeServiceError(w, r, err, "novel", "list novels")
		return
	}
	writeJSON(w, http.StatusOK, novels)
}

func (h *NovelHandler) ListGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := h.novels.Genres(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "genre", "list genres")
		return
	}
	writeJSON(w, http.StatusOK, genres)
}

func (h *NovelHandler) GetNovel(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "novelID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	novel, err := h.novels.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "novel", "fetch novel")
		return
	}
	writeJSON(w, http.StatusOK, novel)
}

func (h *NovelHandler) CreateNovel(w http.ResponseWriter, r *http.Request) {
	var req services.NovelInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	novel, err := h.novels.Create(r.Context(), actorFromContext(r.Context()), req)
	if err != nil {
		writeServiceError(w, r, err, "novel", "create novel")
		return
	}
	writeJSON(w, http.StatusCreated, novel)
}

func (h *NovelHandler) UpdateNovel(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "novelID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req services.NovelInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	novel, err := h.novels.Update(r.Context(), actorFromContext(r.Context()), id, req)
	if err != nil {
		writeServiceError(w, r, err, "novel", "update novel")
		return
	}
	writeJSON(w, http.StatusOK, novel)
}

func (h *NovelHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "novelID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	novel, err := h.novels.SetStatus(r.Context(), actorFromContext(r.Context()), id, req.Status)
	if err != nil {
		writeServiceError(w, r, err, "novel", "update novel status")
		return
	}
	writeJSON(w, http.StatusOK, novel)
}

func (h *NovelHandler) UploadCover(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "novelID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	actor := actorFromContext(r.Context())
	current, err := h.novels.CanEdit(r.Context(), actor, id)
	if err != nil {
		writeServiceError(w, r, err, "novel", "fetch novel")
		return
	}

	data, err := parseUpload(w, r, formFieldCover)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ref, err := h.media.Upload(r.Context(), services.MediaCover, data)
	if err != nil {
		writeServiceError(w, r, err, "novel", "store cover")
		return
	}

	novel, err := h.novels.SetCover(r.Context(), actor, id, ref)
	replaceUpload(r, h.media, current.CoverImage, ref, err)
	if err != nil {
		writeServiceError(w, r, err, "novel", "update novel")
		return
	}
	writeJSON(w, http.StatusOK, novel)
}

func (h *NovelHandler) DeleteNovel(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "novelID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.novels.Delete(r.Context(), actorFromContext(r.Context()), id); err != nil {
		writeServiceError(w, r, err, "novel", "delete novel")
		return
	}
	writeMessage(w, http.StatusOK, "novel deleted")
}

func (h *NovelHandler) IncrementViews(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "novelID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	novel, err := h.novels.IncrementViews(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "novel", "record view")
		return
	}
	writeJSON(w, http.StatusOK, novel)
}

func (h *NovelHandler) Like(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "novelID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	novel, err := h.novels.Like(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "novel", "like novel")
		return
	}
	writeJSON(w, http.StatusOK, novel)
}
