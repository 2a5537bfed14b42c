package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/inkpress/apiserver/internal/services"
)

// PostHandler provides HTTP handlers for blog posts.
type PostHandler struct {
	posts *services.PostService
	media *services.MediaService
}

// PostRouter registers post routes, including the nested comment routes.
// Read routes accept an optional token so authors and staff see drafts.
func PostRouter(
	r chi.Router,
	posts *services.PostService,
	comments *services.CommentService,
	media *services.MediaService,
	auth *Authenticator,
) {
	h := &PostHandler{posts: posts, media: media}
	cm := &CommentHandler{comments: comments}

	r.With(auth.OptionalAuth).Get("/", h.ListPosts)
	r.With(auth.OptionalAuth).Get("/slug/{slug}", h.GetPostBySlug)
	r.With(auth.RequireAuth).Post("/", h.CreatePost)
	r.Route("/{postID}", func(r chi.Router) {
		r.With(auth.OptionalAuth).Get("/", h.GetPost)
		r.With(auth.OptionalAuth).Post("/views", h.IncrementViews)
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth)
			r.Put("/", h.UpdatePost)
			r.Delete("/", h.DeletePost)
			r.Patch("/status", h.SetStatus)
			r.Post("/cover", h.UploadCover)
			r.Post("/like", h.Like)
		})

		r.Route("/comments", func(r chi.Router) {
			r.With(auth.OptionalAuth).Get("/", cm.ListComments)
			r.With(auth.RequireAuth).Post("/", cm.CreateComment)
		})
	})
}

func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	page, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	query := r.URL.Query()
	filter := services.PostFilter{
		Query:    strings.TrimSpace(query.Get("q")),
		Status:   strings.TrimSpace(query.Get("status")),
		Tag:      strings.TrimSpace(query.Get("tag")),
		Category: strings.TrimSpace(query.Get("category")),
	}

	posts, err := h.posts.List(r.Context(), actorFromContext(r.Context()), filter, page)
	if err != nil {
		writeServiceError(w, r, err, "post", "list posts")
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "postID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	post, err := h.posts.Get(r.Context(), actorFromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err, "post", "fetch post")
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *PostHandler) GetPostBySlug(w http.ResponseWriter, r *http.Request) {
	value := strings.TrimSpace(chi.URLParam(r, "slug"))
	if value == "" {
		writeError(w, http.StatusBadRequest, "invalid slug")
		return
	}

	post, err := h.posts.GetBySlug(r.Context(), actorFromContext(r.Context()), value)
	if err != nil {
		writeServiceError(w, r, err, "post", "fetch post")
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req services.PostInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	post, err := h.posts.Create(r.Context(), actorFromContext(r.Context()), req)
	if err != nil {
		writeServiceError(w, r, err, "post", "create post")
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "postID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req services.PostInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	post, err := h.posts.Update(r.Context(), actorFromContext(r.Context()), id, req)
	if err != nil {
		writeServiceError(w, r, err, "post", "update post")
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *PostHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "postID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	post, err := h.posts.SetStatus(r.Context(), actorFromContext(r.Context()), id, req.Status)
	if err != nil {
		writeServiceError(w, r, err, "post", "update post status")
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *PostHandler) UploadCover(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "postID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	actor := actorFromContext(r.Context())
	current, err := h.posts.CanEdit(r.Context(), actor, id)
	if err != nil {
		writeServiceError(w, r, err, "post", "fetch post")
		return
	}

	data, err := parseUpload(w, r, formFieldCover)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ref, err := h.media.Upload(r.Context(), services.MediaCover, data)
	if err != nil {
		writeServiceError(w, r, err, "post", "store cover")
		return
	}

	post, err := h.posts.SetCover(r.Context(), actor, id, ref)
	replaceUpload(r, h.media, current.CoverImage, ref, err)
	if err != nil {
		writeServiceError(w, r, err, "post", "update post")
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "postID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.posts.Delete(r.Context(), actorFromContext(r.Context()), id); err != nil {
		writeServiceError(w, r, err, "post", "delete post")
		return
	}
	writeMessage(w, http.StatusOK, "post deleted")
}

func (h *PostHandler) IncrementViews(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "postID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	post, err := h.posts.IncrementViews(r.Context(), actorFromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err, "post", "record view")
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *PostHandler) Like(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "postID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	post, err := h.posts.Like(r.Context(), actorFromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err, "post", "like post")
		return
	}
	writeJSON(w, http.StatusOK, post)
}
