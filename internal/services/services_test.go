package services

import (
	"context"
	"sync"
	"testing"

	"github.com/inkpress/apiserver/internal/store"
	"github.com/inkpress/apiserver/types"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []types.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event types.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) eventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type fixture struct {
	users    *UserService
	authors  *AuthorService
	novels   *NovelService
	chapters *ChapterService
	comments *CommentService
	posts    *PostService
	events   *recordingPublisher

	novelStore store.Collection[types.Novel]
}

func open[T any, P store.RecordPtr[T]](t *testing.T, b *store.Backend, name string) store.Collection[T] {
	t.Helper()
	c, err := store.Open[T, P](b, name)
	require.NoError(t, err)
	return c
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b := store.NewFileBackend(t.TempDir())
	events := &recordingPublisher{}

	users := open[types.User](t, b, "users")
	authors := open[types.Author](t, b, "authors")
	novels := open[types.Novel](t, b, "novels")
	chapters := open[types.Chapter](t, b, "chapters")
	comments := open[types.Comment](t, b, "comments")
	posts := open[types.Post](t, b, "posts")

	authorService := NewAuthorService(authors, novels, events)
	return &fixture{
		users:      NewUserService(users, events),
		authors:    authorService,
		novels:     NewNovelService(novels, authorService, events),
		chapters:   NewChapterService(chapters, novels, events),
		comments:   NewCommentService(comments, novels, posts, events),
		posts:      NewPostService(posts, events),
		events:     events,
		novelStore: novels,
	}
}

func (f *fixture) register(t *testing.T, username string) types.User {
	t.Helper()
	u, err := f.users.Register(context.Background(), RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	return u
}

func ptr[T any](v T) *T {
	return &v
}
