//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/inkpress/apiserver/config"
	"github.com/inkpress/apiserver/internal/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	adminUsername = "admin"
	adminPassword = "testpass123!"
)

var baseURL string

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("inkpress_db"),
		postgres.WithUsername("inkpress"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start postgres: %v\n", err)
		os.Exit(1)
	}

	cfg, err := testConfig(ctx, pgContainer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build config: %v\n", err)
		_ = pgContainer.Terminate(context.Background())
		os.Exit(1)
	}

	srv, err := server.New(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		_ = pgContainer.Terminate(context.Background())
		os.Exit(1)
	}
	ts := httptest.NewServer(srv.Router())
	baseURL = ts.URL

	code := m.Run()

	ts.Close()
	_ = srv.Shutdown()
	_ = pgContainer.Terminate(context.Background())
	os.Exit(code)
}

func testConfig(ctx context.Context, c *postgres.PostgresContainer) (config.Config, error) {
	host, err := c.Host(ctx)
	if err != nil {
		return config.Config{}, err
	}
	port, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return config.Config{}, err
	}

	return config.Config{
		Store: config.StoreConfig{Backend: "postgres"},
		Database: config.DatabaseConfig{
			Host:     host,
			Port:     port.Int(),
			User:     "inkpress",
			Password: "password",
			DBName:   "inkpress_db",
		},
		Auth: config.AuthConfig{
			JWTSecret:       "e2e-secret",
			AccessTokenTTL:  time.Hour,
			RefreshTokenTTL: 24 * time.Hour,
			AdminUsername:   adminUsername,
			AdminPassword:   adminPassword,
			AdminEmail:      "admin@example.com",
		},
		Storage: config.StorageConfig{Backend: "none"},
		MQ:      config.MQConfig{Backend: "none"},
	}, nil
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type novelResponse struct {
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

func TestNovelLifecycle(t *testing.T) {
	token := login(t, adminUsername, adminPassword)

	first := createNovel(t, token, "Warmup Novel", "ONGOING")

	resp, env := do(t, http.MethodPost, "/api/novels", token, map[string]any{
		"title":  "Test Novel",
		"author": "Jane Writer",
		"status": "COMPLETED",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, env.Message)
	var created novelResponse
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, first.ID+1, created.ID)
	assert.Equal(t, "COMPLETED", created.Status)

	resp, fetched := do(t, http.MethodGet, "/api/novels/"+strconv.Itoa(created.ID), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, string(env.Data), string(fetched.Data))

	resp, env = do(t, http.MethodPatch, fmt.Sprintf("/api/novels/%d/status", created.ID), token, map[string]string{"status": "FINISHED"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, env = do(t, http.MethodPost, fmt.Sprintf("/api/novels/%d/chapters", created.ID), token, map[string]any{
		"title":   "Chapter One",
		"content": "<p>It was a quiet night.</p>",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, env.Message)

	resp, env = do(t, http.MethodGet, "/api/novels/"+strconv.Itoa(created.ID), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var withChapters struct {
		ChapterCount int `json:"chapterCount"`
		AuthorID     int `json:"authorId"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &withChapters))
	assert.Equal(t, 1, withChapters.ChapterCount)
	assert.NotZero(t, withChapters.AuthorID)

	resp, _ = do(t, http.MethodDelete, "/api/novels/"+strconv.Itoa(created.ID), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env = do(t, http.MethodGet, "/api/novels/"+strconv.Itoa(created.ID), "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, http.StatusNotFound, env.Code)
}

func TestIDsAreNotReused(t *testing.T) {
	token := login(t, adminUsername, adminPassword)

	a := createNovel(t, token, "Short Lived", "DRAFT")
	resp, _ := do(t, http.MethodDelete, "/api/novels/"+strconv.Itoa(a.ID), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	b := createNovel(t, token, "Successor", "DRAFT")
	assert.Greater(t, b.ID, a.ID)
}

func createNovel(t *testing.T, token, title, status string) novelResponse {
	t.Helper()
	resp, env := do(t, http.MethodPost, "/api/novels", token, map[string]any{"title": title, "status": status})
	require.Equal(t, http.StatusCreated, resp.StatusCode, env.Message)
	var novel novelResponse
	require.NoError(t, json.Unmarshal(env.Data, &novel))
	return novel
}

func login(t *testing.T, username, password string) string {
	t.Helper()
	resp, env := do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)
	var session struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &session))
	require.NotEmpty(t, session.AccessToken)
	return session.AccessToken
}

func do(t *testing.T, method, path, token string, body any) (*http.Response, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, baseURL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, env
}
