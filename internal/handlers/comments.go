package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/inkpress/apiserver/internal/services"
)

// CommentHandler serves comments. List and create are mounted under a novel
// or a post; the rest address a comment by its own id.
type CommentHandler struct {
	comments *services.CommentService
}

// CommentRouter registers the /comments/{commentID} routes.
func CommentRouter(r chi.Router, comments *services.CommentService, auth *Authenticator) {
	h := &CommentHandler{comments: comments}

	r.Route("/{commentID}", func(r chi.Router) {
		r.With(auth.OptionalAuth).Get("/", h.GetComment)
		r.With(auth.RequireAuth).Put("/", h.UpdateComment)
		r.With(auth.RequireAuth).Delete("/", h.DeleteComment)
		r.With(auth.RequireAuth).Post("/like", h.Like)
	})
}

type commentRequest struct {
	Content string `json:"content"`
}

// commentTarget resolves the novel or post a nested comment route belongs to.
func commentTarget(r *http.Request) (services.CommentTarget, string, error) {
	if chi.URLParam(r, "novelID") != "" {
		id, err := parseID(r, "novelID")
		return services.CommentTarget{NovelID: id}, "novel", err
	}
	id, err := parseID(r, "postID")
	return services.CommentTarget{PostID: id}, "post", err
}

func (h *CommentHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	target, what, err := commentTarget(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	comments, err := h.comments.List(r.Context(), actorFromContext(r.Context()), target, page)
	if err != nil {
		writeServiceError(w, r, err, what, "list comments")
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (h *CommentHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	target, what, err := commentTarget(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	comment, err := h.comments.Create(r.Context(), actorFromContext(r.Context()), target, req.Content)
	if err != nil {
		writeServiceError(w, r, err, what, "create comment")
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (h *CommentHandler) GetComment(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "commentID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	comment, err := h.comments.Get(r.Context(), actorFromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err, "comment", "fetch comment")
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

func (h *CommentHandler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "commentID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	comment, err := h.comments.Update(r.Context(), actorFromContext(r.Context()), id, req.Content)
	if err != nil {
		writeServiceError(w, r, err, "comment", "update comment")
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

func (h *CommentHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "commentID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.comments.Delete(r.Context(), actorFromContext(r.Context()), id); err != nil {
		writeServiceError(w, r, err, "comment", "delete comment")
		return
	}
	writeMessage(w, http.StatusOK, "comment deleted")
}

func (h *CommentHandler) Like(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "commentID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	comment, err := h.comments.Like(r.Context(), actorFromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err, "comment", "like comment")
		return
	}
	writeJSON(w, http.StatusOK, comment)
}
