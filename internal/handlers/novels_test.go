package handlers

import (
	"context"
	"net/http"
	"strconv"
	"testing"

	"github.com/inkpress/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createNovel(t *testing.T, env *testEnv, token string, body map[string]any) types.Novel {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/api/novels", token, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var novel types.Novel
	decodeData(t, rec, &novel)
	return novel
}

func TestNovelLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.register(t, "novelist")

	rec := env.do(t, http.MethodPost, "/api/novels", "", map[string]any{"title": "Anonymous"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/novels", token, map[string]any{
		"title":  "Test Novel",
		"author": "Jane Writer",
		"status": "COMPLETED",
		"genre":  "Fantasy",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeEnvelope(t, rec)
	assert.Equal(t, http.StatusCreated, created.Code)

	var novel types.Novel
	decodeData(t, rec, &novel)
	assert.Equal(t, 1, novel.ID)
	assert.Equal(t, types.NovelCompleted, novel.Status)
	assert.NotZero(t, novel.AuthorID)
	assert.Equal(t, "Jane Writer", novel.Author)

	path := "/api/novels/" + strconv.Itoa(novel.ID)
	rec = env.do(t, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, string(created.Data), string(decodeEnvelope(t, rec).Data))

	second := createNovel(t, env, token, map[string]any{"title": "Second"})
	assert.Equal(t, novel.ID+1, second.ID)
	assert.Equal(t, types.NovelOngoing, second.Status)

	rec = env.do(t, http.MethodDelete, path, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "novel deleted", decodeEnvelope(t, rec).Message)

	rec = env.do(t, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "novel not found", decodeEnvelope(t, rec).Message)

	rec = env.do(t, http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNovelStatusRejectsUnknownValue(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.register(t, "novelist")
	novel := createNovel(t, env, token, map[string]any{"title": "Status Test"})
	path := "/api/novels/" + strconv.Itoa(novel.ID) + "/status"

	rec := env.do(t, http.MethodPatch, path, token, statusRequest{Status: "FINISHED"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	stored, err := env.novels.Get(context.Background(), novel.ID)
	require.NoError(t, err)
	assert.Equal(t, types.NovelOngoing, stored.Status)
	assert.True(t, novel.UpdatedAt.Equal(stored.UpdatedAt))

	rec = env.do(t, http.MethodPatch, path, token, statusRequest{Status: "hiatus"})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated types.Novel
	decodeData(t, rec, &updated)
	assert.Equal(t, types.NovelHiatus, updated.Status)
}

func TestNovelOwnership(t *testing.T) {
	env := newTestEnv(t, nil)
	owner := env.register(t, "owner")
	stranger := env.register(t, "stranger")
	moderator := env.registerWithRole(t, "moderator", types.RoleModerator)
	novel := createNovel(t, env, owner, map[string]any{"title": "Mine"})
	path := "/api/novels/" + strconv.Itoa(novel.ID)

	rec := env.do(t, http.MethodPut, path, stranger, map[string]any{"title": "Stolen"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPut, path, moderator, map[string]any{"description": "Edited by staff"})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated types.Novel
	decodeData(t, rec, &updated)
	assert.Equal(t, "Mine", updated.Title)
	assert.Equal(t, "Edited by staff", updated.Description)
}

func TestNovelListing(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.register(t, "novelist")
	createNovel(t, env, token, map[string]any{"title": "Dragon Road", "genre": "Fantasy", "tags": []string{"dragons"}})
	createNovel(t, env, token, map[string]any{"title": "Star Lanes", "genre": "Sci-Fi"})
	createNovel(t, env, token, map[string]any{"title": "Dragon Sea", "genre": "fantasy", "status": "COMPLETED"})

	rec := env.do(t, http.MethodGet, "/api/novels?page=0&size=2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page types.Page[types.Novel]
	decodeData(t, rec, &page)
	assert.Len(t, page.Content, 2)
	assert.Equal(t, 3, page.TotalElements)
	assert.Equal(t, 2, page.TotalPages)
	assert.True(t, page.First)
	assert.False(t, page.Last)
	assert.Equal(t, "Dragon Sea", page.Content[0].Title)

	rec = env.do(t, http.MethodGet, "/api/novels?page=1&size=2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &page)
	assert.Len(t, page.Content, 1)
	assert.True(t, page.Last)

	rec = env.do(t, http.MethodGet, "/api/novels?page=922337203685477581&size=10", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &page)
	assert.Empty(t, page.Content)
	assert.Equal(t, 3, page.TotalElements)

	tests :=[]struct {
		name  string
		query string
		want  int
	}{
		{"search", "q=dragon", 2},
		{"genre", "genre=FANTASY", 2},
		{"status", "status=completed", 1},
		{"tag", "tag=Dragons", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/api/novels?"+tt.query, "", nil)
			require.Equal(t, http.StatusOK, rec.Code)
			var page types.Page[types.Novel]
			decodeData(t, rec, &page)
			assert.Equal(t, tt.want, page.TotalElements)
		})
	}

	for _, query := range []string{"page=-1", "size=0", "page=x", "status=LOST", "sort=random", "authorId=abc"} {
		rec := env.do(t, http.MethodGet, "/api/novels?"+query, "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
	}

	rec = env.do(t, http.MethodGet, "/api/novels/genres", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var genres []string
	decodeData(t, rec, &genres)
	assert.Equal(t, []string{"Fantasy", "Sci-Fi"}, genres)

	rec = env.do(t, http.MethodGet, "/api/novels/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid novel id", decodeEnvelope(t, rec).Message)
}

func TestNovelCounters(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.register(t, "novelist")
	novel := createNovel(t, env, token, map[string]any{"title": "Counted"})
	path := "/api/novels/" + strconv.Itoa(novel.ID)

	rec := env.do(t, http.MethodPost, path+"/views", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, path+"/like", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, path+"/like", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var liked types.Novel
	decodeData(t, rec, &liked)
	assert.Equal(t, 1, liked.ViewCount)
	assert.Equal(t, 1, liked.LikeCount)
}

func TestChapters(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.register(t, "novelist")
	stranger := env.register(t, "stranger")
	novel := createNovel(t, env, token, map[string]any{"title": "Chaptered"})
	base := "/api/novels/" + strconv.Itoa(novel.ID) + "/chapters"

	rec := env.do(t, http.MethodPost, base, token, map[string]any{"title": "Opening", "content": "<p>one two three</p>"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var first types.Chapter
	decodeData(t, rec, &first)
	assert.Equal(t, 1, first.ChapterNumber)
	assert.Equal(t, 3, first.WordCount)

	rec = env.do(t, http.MethodPost, base, token, map[string]any{"title": "Middle", "content": "more"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var second types.Chapter
	decodeData(t, rec, &second)
	assert.Equal(t, 2, second.ChapterNumber)

	rec = env.do(t, http.MethodPost, base, stranger, map[string]any{"title": "Intruder", "content": "x"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/novels/"+strconv.Itoa(novel.ID), "", nil)
	var withCount types.Novel
	decodeData(t, rec, &withCount)
	assert.Equal(t, 2, withCount.ChapterCount)

	rec = env.do(t, http.MethodGet, base, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page types.Page[types.Chapter]
	decodeData(t, rec, &page)
	require.Len(t, page.Content, 2)
	assert.Equal(t, "Opening", page.Content[0].Title)

	rec = env.do(t, http.MethodDelete, base+"/"+strconv.Itoa(first.ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/novels/"+strconv.Itoa(novel.ID), "", nil)
	decodeData(t, rec, &withCount)
	assert.Equal(t, 1, withCount.ChapterCount)

	rec = env.do(t, http.MethodGet, "/api/novels/999/chapters", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(t, http.MethodPost, "/api/novels/999/chapters", token, map[string]any{"title": "Lost", "content": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNovelComments(t *testing.T) {
	env := newTestEnv(t, nil)
	author := env.register(t, "author")
	reader := env.register(t, "reader")
	moderator := env.registerWithRole(t, "moderator", types.RoleModerator)
	novel := createNovel(t, env, author, map[string]any{"title": "Discussed"})
	base := "/api/novels/" + strconv.Itoa(novel.ID) + "/comments"

	rec := env.do(t, http.MethodPost, base, "", commentRequest{Content: "anon"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, base, reader, commentRequest{Content: "Loved it"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var comment types.Comment
	decodeData(t, rec, &comment)
	assert.Equal(t, novel.ID, comment.NovelID)
	assert.Equal(t, "reader", comment.Author.Username)

	rec = env.do(t, http.MethodPost, base, reader, commentRequest{Content: "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, base, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page types.Page[types.Comment]
	decodeData(t, rec, &page)
	assert.Equal(t, 1, page.TotalElements)

	commentPath := "/api/comments/" + strconv.Itoa(comment.ID)
	rec = env.do(t, http.MethodPut, commentPath, author, commentRequest{Content: "edited"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPut, commentPath, reader, commentRequest{Content: "Loved it, really"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, commentPath+"/like", author, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &comment)
	assert.Equal(t, 1, comment.LikeCount)

	rec = env.do(t, http.MethodDelete, commentPath, author, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = env.do(t, http.MethodDelete, commentPath, moderator, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodGet, commentPath, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/novels/999/comments", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
