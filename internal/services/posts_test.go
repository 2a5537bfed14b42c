package services

import (
	"context"
	"strings"
	"testing"

	"github.com/inkpress/apiserver/internal/store"
	"github.com/inkpress/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostCreateDerivesFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")

	body := "<p>" + strings.Repeat("word ", 60) + "</p>"
	p, err := f.posts.Create(ctx, alice, PostInput{Title: ptr("Hello, World!"), Content: &body})
	require.NoError(t, err)

	assert.Equal(t, "hello-world", p.Slug)
	assert.Equal(t, types.PostDraft, p.Status)
	assert.Equal(t, alice.Ref(), p.Author)
	assert.Nil(t, p.PublishedAt)
	assert.True(t, strings.HasSuffix(p.Excerpt, "…"))
	assert.LessOrEqual(t, len([]rune(p.Excerpt)), excerptLength+1)

	again, err := f.posts.Create(ctx, alice, PostInput{Title: ptr("Hello World"), Content: ptr("x")})
	require.NoError(t, err)
	assert.Equal(t, "hello-world-2", again.Slug)
	assert.Equal(t, "x", again.Excerpt)

	_, err = f.posts.Create(ctx, alice, PostInput{Title: ptr("no body")})
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = f.posts.Create(ctx, types.User{}, PostInput{Title: ptr("t"), Content: ptr("c")})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.posts.Create(ctx, alice, PostInput{Title: ptr("t"), Content: ptr("c"), Status: ptr("PUBLISHED")})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestPostVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")
	admin := types.User{Meta: types.Meta{ID: 90}, Role: types.RoleAdmin}

	draft, err := f.posts.Create(ctx, alice, PostInput{Title: ptr("Draft"), Content: ptr("d")})
	require.NoError(t, err)
	live, err := f.posts.Create(ctx, admin, PostInput{Title: ptr("Live"), Content: ptr("l"), Status: ptr("PUBLISHED")})
	require.NoError(t, err)
	require.NotNil(t, live.PublishedAt)

	anon, err := f.posts.List(ctx, types.User{}, PostFilter{}, PageRequest{})
	require.NoError(t, err)
	require.Len(t, anon.Content, 1)
	assert.Equal(t, live.ID, anon.Content[0].ID)

	own, err := f.posts.List(ctx, alice, PostFilter{}, PageRequest{})
	require.NoError(t, err)
	assert.Len(t, own.Content, 2)

	_, err = f.posts.Get(ctx, bob, draft.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = f.posts.GetBySlug(ctx, types.User{}, draft.Slug)
	assert.ErrorIs(t, err, store.ErrNotFound)
	got, err := f.posts.GetBySlug(ctx, types.User{}, "live")
	require.NoError(t, err)
	assert.Equal(t, live.ID, got.ID)

	_, err = f.posts.List(ctx, admin, PostFilter{Status: "ARCHIVED"}, PageRequest{})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestPostStatusWorkflow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")
	mod := types.User{Meta: types.Meta{ID: 91}, Role: types.RoleModerator}

	p, err := f.posts.Create(ctx, alice, PostInput{Title: ptr("Essay"), Content: ptr("text")})
	require.NoError(t, err)

	_, err = f.posts.SetStatus(ctx, alice, p.ID, "LIVE")
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = f.posts.SetStatus(ctx, alice, p.ID, "PUBLISHED")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.posts.SetStatus(ctx, bob, p.ID, "PENDING_REVIEW")
	assert.ErrorIs(t, err, ErrForbidden)

	unchanged, err := f.posts.Get(ctx, alice, p.ID)
	require.NoError(t, err)
	assert.Equal(t, types.PostDraft, unchanged.Status)

	pending, err := f.posts.SetStatus(ctx, alice, p.ID, "pending_review")
	require.NoError(t, err)
	assert.Equal(t, types.PostPendingReview, pending.Status)

	published, err := f.posts.SetStatus(ctx, mod, p.ID, "PUBLISHED")
	require.NoError(t, err)
	require.NotNil(t, published.PublishedAt)
	first := *published.PublishedAt

	_, err = f.posts.SetStatus(ctx, mod, p.ID, "REJECTED")
	require.NoError(t, err)
	again, err := f.posts.SetStatus(ctx, mod, p.ID, "PUBLISHED")
	require.NoError(t, err)
	assert.True(t, first.Equal(*again.PublishedAt))

	assert.Contains(t, f.events.eventTypes(), "post.published")
}

func TestPostEditAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")
	mod := types.User{Meta: types.Meta{ID: 91}, Role: types.RoleModerator}

	p, err := f.posts.Create(ctx, alice, PostInput{Title: ptr("Original"), Content: ptr("text")})
	require.NoError(t, err)

	_, err = f.posts.Update(ctx, bob, p.ID, PostInput{Title: ptr("Hijack")})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.posts.Update(ctx, mod, p.ID, PostInput{Title: ptr("Mod edit")})
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := f.posts.Update(ctx, alice, p.ID, PostInput{Title: ptr("Renamed"), Tags: &[]string{"go"}})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, "original", updated.Slug)
	assert.Equal(t, []string{"go"}, updated.Tags)

	tagged, err := f.posts.List(ctx, alice, PostFilter{Tag: "GO"}, PageRequest{})
	require.NoError(t, err)
	assert.Len(t, tagged.Content, 1)

	assert.ErrorIs(t, f.posts.Delete(ctx, bob, p.ID), ErrForbidden)
	require.NoError(t, f.posts.Delete(ctx, alice, p.ID))
	_, err = f.posts.Get(ctx, alice, p.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
