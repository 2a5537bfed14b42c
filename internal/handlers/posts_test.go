package handlers

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/inkpress/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createPost(t *testing.T, env *testEnv, token string, body map[string]any) types.Post {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/api/posts", token, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var post types.Post
	decodeData(t, rec, &post)
	return post
}

func TestPostVisibility(t *testing.T) {
	env := newTestEnv(t, nil)
	writer := env.register(t, "writer")
	reader := env.register(t, "reader")
	editor := env.registerWithRole(t, "editor", types.RoleModerator)

	draft := createPost(t, env, writer, map[string]any{"title": "Hello World", "content": "<p>Draft body</p>"})
	assert.Equal(t, types.PostDraft, draft.Status)
	assert.Equal(t, "hello-world", draft.Slug)
	assert.Equal(t, "Draft body", draft.Excerpt)

	again := createPost(t, env, writer, map[string]any{"title": "Hello, World!", "content": "again"})
	assert.Equal(t, "hello-world-2", again.Slug)

	path := "/api/posts/" + strconv.Itoa(draft.ID)
	rec := env.do(t, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(t, http.MethodGet, path, reader, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(t, http.MethodGet, path, writer, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/posts", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page types.Page[types.Post]
	decodeData(t, rec, &page)
	assert.Equal(t, 0, page.TotalElements)

	rec = env.do(t, http.MethodPatch, path+"/status", writer, statusRequest{Status: "PUBLISHED"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = env.do(t, http.MethodPatch, path+"/status", writer, statusRequest{Status: "SHIPPED"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.do(t, http.MethodPatch, path+"/status", writer, statusRequest{Status: "PENDING_REVIEW"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPatch, path+"/status", editor, statusRequest{Status: "PUBLISHED"})
	require.Equal(t, http.StatusOK, rec.Code)
	var published types.Post
	decodeData(t, rec, &published)
	require.NotNil(t, published.PublishedAt)

	rec = env.do(t, http.MethodGet, "/api/posts/slug/hello-world", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var bySlug types.Post
	decodeData(t, rec, &bySlug)
	assert.Equal(t, draft.ID, bySlug.ID)

	rec = env.do(t, http.MethodGet, "/api/posts", "", nil)
	decodeData(t, rec, &page)
	assert.Equal(t, 1, page.TotalElements)

	rec = env.do(t, http.MethodGet, "/api/posts", writer, nil)
	decodeData(t, rec, &page)
	assert.Equal(t, 2, page.TotalElements)
}

func TestPostEditing(t *testing.T) {
	env := newTestEnv(t, nil)
	writer := env.register(t, "writer")
	moderator := env.registerWithRole(t, "moderator", types.RoleModerator)
	admin := env.registerWithRole(t, "admin", types.RoleAdmin)
	post := createPost(t, env, writer, map[string]any{"title": "Editable", "content": "body"})
	path := "/api/posts/" + strconv.Itoa(post.ID)

	rec := env.do(t, http.MethodPut, path, moderator, map[string]any{"title": "Nope"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPut, path, writer, map[string]any{"title": "Edited Title", "tags": []string{"go", "Go", " "}})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated types.Post
	decodeData(t, rec, &updated)
	assert.Equal(t, "Edited Title", updated.Title)
	assert.Equal(t, "editable", updated.Slug)
	assert.Equal(t, []string{"go"}, updated.Tags)

	rec = env.do(t, http.MethodPost, path+"/like", writer, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodDelete, path, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodGet, path, admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPostComments(t *testing.T) {
	env := newTestEnv(t, nil)
	writer := env.register(t, "writer")
	stranger := env.register(t, "stranger")
	editor := env.registerWithRole(t, "editor", types.RoleModerator)
	post := createPost(t, env, writer, map[string]any{"title": "Talk", "content": "body"})
	base := "/api/posts/" + strconv.Itoa(post.ID) + "/comments"

	rec := env.do(t, http.MethodPost, base, writer, commentRequest{Content: "First!"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var comment types.Comment
	decodeData(t, rec, &comment)
	assert.Equal(t, post.ID, comment.PostID)
	assert.Zero(t, comment.NovelID)
	commentPath := "/api/comments/" + strconv.Itoa(comment.ID)

	// Comments on a draft are as hidden as the draft itself.
	rec = env.do(t, http.MethodGet, base, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(t, http.MethodPost, base, stranger, commentRequest{Content: "sneaky"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(t, http.MethodGet, commentPath, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(t, http.MethodPost, commentPath+"/like", stranger, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(t, http.MethodGet, base, writer, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodGet, commentPath, editor, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPatch, "/api/posts/"+strconv.Itoa(post.ID)+"/status", editor, statusRequest{Status: "PUBLISHED"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, commentPath, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodGet, base, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page types.Page[types.Comment]
	decodeData(t, rec, &page)
	assert.Equal(t, 1, page.TotalElements)

	rec = env.do(t, http.MethodGet, "/api/posts/999/comments", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "post not found", decodeEnvelope(t, rec).Message)
}
