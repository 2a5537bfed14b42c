package handlers

import (
	"net/http"

	"github.com/inkpress/apiserver/internal/services"
)

// ChapterHandler serves the chapters nested under a novel.
type ChapterHandler struct {
	chapters *services.ChapterService
}

func (h *ChapterHandler) ListChapters(w http.ResponseWriter, r *http.Request) {
	novelID, err := parseID(r, "novelID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	chapters, err := h.chapters.List(r.Context(), novelID, page)
	if err != nil {
		writeServiceError(w, r, err, "novel", "list chapters")
		return
	}
	writeJSON(w, http.StatusOK, chapters)
}

func (h *ChapterHandler) GetChapter(w http.ResponseWriter, r *http.Request) {
	novelID, chapterID, ok := chapterIDs(w, r)
	if !ok {
		return
	}

	chapter, err := h.chapters.Get(r.Context(), novelID, chapterID)
	if err != nil {
		writeServiceError(w, r, err, "chapter", "fetch chapter")
		return
	}
	writeJSON(w, http.StatusOK, chapter)
}

func (h *ChapterHandler) CreateChapter(w http.ResponseWriter, r *http.Request) {
	novelID, err := parseID(r, "novelID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req services.ChapterInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	chapter, err := h.chapters.Create(r.Context(), actorFromContext(r.Context()), novelID, req)
	if err != nil {
		writeServiceError(w, r, err, "novel", "create chapter")
		return
	}
	writeJSON(w, http.StatusCreated, chapter)
}

func (h *ChapterHandler) UpdateChapter(w http.ResponseWriter, r *http.Request) {
	novelID, chapterID, ok := chapterIDs(w, r)
	if !ok {
		return
	}

	var req services.ChapterInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	chapter, err := h.chapters.Update(r.Context(), actorFromContext(r.Context()), novelID, chapterID, req)
	if err != nil {
		writeServiceError(w, r, err, "chapter", "update chapter")
		return
	}
	writeJSON(w, http.StatusOK, chapter)
}

func (h *ChapterHandler) DeleteChapter(w http.ResponseWriter, r *http.Request) {
	novelID, chapterID, ok := chapterIDs(w, r)
	if !ok {
		return
	}

	if err := h.chapters.Delete(r.Context(), actorFromContext(r.Context()), novelID, chapterID); err != nil {
		writeServiceError(w, r, err, "chapter", "delete chapter")
		return
	}
	writeMessage(w, http.StatusOK, "chapter deleted")
}

func (h *ChapterHandler) IncrementViews(w http.ResponseWriter, r *http.Request) {
	novelID, chapterID, ok := chapterIDs(w, r)
	if !ok {
		return
	}

	chapter, err := h.chapters.IncrementViews(r.Context(), novelID, chapterID)
	if err != nil {
		writeServiceError(w, r, err, "chapter", "record view")
		return
	}
	writeJSON(w, http.StatusOK, chapter)
}

func chapterIDs(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	novelID, err := parseID(r, "novelID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, 0, false
	}
	chapterID, err := parseID(r, "chapterID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, 0, false
	}
	return novelID, chapterID, true
}
