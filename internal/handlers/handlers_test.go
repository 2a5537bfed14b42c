package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/inkpress/apiserver/internal/services"
	"github.com/inkpress/apiserver/internal/store"
	"github.com/inkpress/apiserver/types"
	"github.com/stretchr/testify/require"
)

const testPassword = "password123"

type testEnv struct {
	router http.Handler
	tokens *TokenManager
	users  *services.UserService
	novels store.Collection[types.Novel]
}

func openCollection[T any, P store.RecordPtr[T]](t *testing.T, b *store.Backend, name string) store.Collection[T] {
	t.Helper()
	c, err := store.Open[T, P](b, name)
	require.NoError(t, err)
	return c
}

func newTestEnv(t *testing.T, objects services.ObjectStore) *testEnv {
	t.Helper()
	b := store.NewFileBackend(t.TempDir())

	users := openCollection[types.User](t, b, "users")
	authors := openCollection[types.Author](t, b, "authors")
	novels := openCollection[types.Novel](t, b, "novels")
	chapters := openCollection[types.Chapter](t, b, "chapters")
	comments := openCollection[types.Comment](t, b, "comments")
	posts := openCollection[types.Post](t, b, "posts")

	userService := services.NewUserService(users, nil)
	authorService := services.NewAuthorService(authors, novels, nil)
	novelService := services.NewNovelService(novels, authorService, nil)
	chapterService := services.NewChapterService(chapters, novels, nil)
	commentService := services.NewCommentService(comments, novels, posts, nil)
	postService := services.NewPostService(posts, nil)
	media := services.NewMediaService(objects)

	tokens := NewTokenManager("test-secret", time.Hour, 24*time.Hour)
	auth := NewAuthenticator(userService, tokens)

	r := chi.NewRouter()
	r.Get("/healthz", Healthz)
	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) { AuthRouter(r, auth) })
		r.Route("/users", func(r chi.Router) { UserRouter(r, userService, auth) })
		r.Route("/authors", func(r chi.Router) { AuthorRouter(r, authorService, media, auth) })
		r.Route("/novels", func(r chi.Router) {
			NovelRouter(r, novelService, chapterService, commentService, media, auth)
		})
		r.Route("/posts", func(r chi.Router) { PostRouter(r, postService, commentService, media, auth) })
		r.Route("/comments", func(r chi.Router) { CommentRouter(r, commentService, auth) })
		r.Route("/files", func(r chi.Router) { FileRouter(r, media) })
	})

	return &testEnv{router: r, tokens: tokens, users: userService, novels: novels}
}

// register signs up username and returns its access token.
func (e *testEnv) register(t *testing.T, username string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": testPassword,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp AuthResponse
	decodeData(t, rec, &resp)
	return resp.AccessToken
}

// registerWithRole signs up username, grants role and returns a token.
func (e *testEnv) registerWithRole(t *testing.T, username string, role types.Role) string {
	t.Helper()
	token := e.register(t, username)
	user, err := e.users.GetByUsername(context.Background(), username)
	require.NoError(t, err)
	_, err = e.users.SetRole(context.Background(), user.ID, string(role))
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type rawEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) rawEnvelope {
	t.Helper()
	var env rawEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	env := decodeEnvelope(t, rec)
	require.NoError(t, json.Unmarshal(env.Data, dst))
}
