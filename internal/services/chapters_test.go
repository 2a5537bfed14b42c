package services

import (
	"context"
	"testing"

	"github.com/inkpress/apiserver/internal/store"
	"github.com/inkpress/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChapterLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.register(t, "owner")
	other := f.register(t, "other")

	n, err := f.novels.Create(ctx, owner, NovelInput{Title: ptr("Saga")})
	require.NoError(t, err)

	first, err := f.chapters.Create(ctx, owner, n.ID, ChapterInput{
		Title:   ptr("Beginnings"),
		Content: ptr("<p>Once upon a <b>time</b>.</p><p>The end</p>"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, first.ChapterNumber)
	assert.Equal(t, 6, first.WordCount)

	jump, err := f.chapters.Create(ctx, owner, n.ID, ChapterInput{Title: ptr("Later"), ChapterNumber: ptr(5)})
	require.NoError(t, err)
	assert.Equal(t, 5, jump.ChapterNumber)

	next, err := f.chapters.Create(ctx, owner, n.ID, ChapterInput{Title: ptr("After")})
	require.NoError(t, err)
	assert.Equal(t, 6, next.ChapterNumber)

	novel, err := f.novels.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, novel.ChapterCount)

	_, err = f.chapters.Create(ctx, other, n.ID, ChapterInput{Title: ptr("Intruder")})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.chapters.Create(ctx, owner, 404, ChapterInput{Title: ptr("Orphan")})
	assert.ErrorIs(t, err, store.ErrNotFound)

	page, err := f.chapters.List(ctx, n.ID, PageRequest{})
	require.NoError(t, err)
	require.Len(t, page.Content, 3)
	assert.Equal(t, []int{1, 5, 6}, []int{
		page.Content[0].ChapterNumber,
		page.Content[1].ChapterNumber,
		page.Content[2].ChapterNumber,
	})

	updated, err := f.chapters.Update(ctx, owner, n.ID, jump.ID, ChapterInput{Content: ptr("two words")})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.WordCount)
	assert.Equal(t, "Later", updated.Title)

	require.NoError(t, f.chapters.Delete(ctx, owner, n.ID, jump.ID))
	novel, err = f.novels.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, novel.ChapterCount)
}

func TestChapterScopedToNovel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.register(t, "owner")

	a, err := f.novels.Create(ctx, owner, NovelInput{Title: ptr("A")})
	require.NoError(t, err)
	b, err := f.novels.Create(ctx, owner, NovelInput{Title: ptr("B")})
	require.NoError(t, err)
	ch, err := f.chapters.Create(ctx, owner, a.ID, ChapterInput{Title: ptr("One")})
	require.NoError(t, err)

	_, err = f.chapters.Get(ctx, b.ID, ch.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = f.chapters.Update(ctx, owner, b.ID, ch.ID, ChapterInput{Title: ptr("x")})
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = f.chapters.IncrementViews(ctx, b.ID, ch.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	viewed, err := f.chapters.IncrementViews(ctx, a.ID, ch.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, viewed.ViewCount)

	_, err = f.chapters.Create(ctx, owner, a.ID, ChapterInput{Title: ptr("Zero"), ChapterNumber: ptr(0)})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestCommentsOnNovelsAndPosts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")
	mod := types.User{Meta: types.Meta{ID: 77}, Username: "mod", Role: types.RoleModerator}

	n, err := f.novels.Create(ctx, alice, NovelInput{Title: ptr("N")})
	require.NoError(t, err)
	p, err := f.posts.Create(ctx, alice, PostInput{Title: ptr("P"), Content: ptr("body"), Status: ptr("PENDING_REVIEW")})
	require.NoError(t, err)

	_, err = f.comments.Create(ctx, bob, CommentTarget{PostID: p.ID}, "too early")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = f.comments.List(ctx, types.User{}, CommentTarget{PostID: p.ID}, PageRequest{})
	assert.ErrorIs(t, err, store.ErrNotFound)
	early, err := f.comments.Create(ctx, alice, CommentTarget{PostID: p.ID}, "note to self")
	require.NoError(t, err)
	_, err = f.comments.Get(ctx, bob, early.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = f.comments.Like(ctx, bob, early.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = f.comments.Get(ctx, mod, early.ID)
	require.NoError(t, err)
	require.NoError(t, f.comments.Delete(ctx, alice, early.ID))

	_, err = f.posts.SetStatus(ctx, mod, p.ID, "PUBLISHED")
	require.NoError(t, err)

	c1, err := f.comments.Create(ctx, bob, CommentTarget{NovelID: n.ID}, "  great read ")
	require.NoError(t, err)
	assert.Equal(t, "great read", c1.Content)
	assert.Equal(t, bob.ID, c1.Author.ID)
	assert.Equal(t, "bob", c1.Author.Username)

	_, err = f.comments.Create(ctx, bob, CommentTarget{PostID: p.ID}, "nice post")
	require.NoError(t, err)

	_, err = f.comments.Create(ctx, bob, CommentTarget{NovelID: 404}, "lost")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = f.comments.Create(ctx, bob, CommentTarget{NovelID: n.ID}, "   ")
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = f.comments.Create(ctx, types.User{}, CommentTarget{NovelID: n.ID}, "anon")
	assert.ErrorIs(t, err, ErrForbidden)

	page, err := f.comments.List(ctx, types.User{}, CommentTarget{NovelID: n.ID}, PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.TotalElements)
	page, err = f.comments.List(ctx, types.User{}, CommentTarget{PostID: p.ID}, PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.TotalElements)

	_, err = f.comments.Update(ctx, alice, c1.ID, "edited by alice")
	assert.ErrorIs(t, err, ErrForbidden)
	edited, err := f.comments.Update(ctx, bob, c1.ID, "edited")
	require.NoError(t, err)
	assert.Equal(t, "edited", edited.Content)

	liked, err := f.comments.Like(ctx, bob, c1.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, liked.LikeCount)

	assert.ErrorIs(t, f.comments.Delete(ctx, alice, c1.ID), ErrForbidden)
	require.NoError(t, f.comments.Delete(ctx, mod, c1.ID))
	_, err = f.comments.Get(ctx, bob, c1.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
