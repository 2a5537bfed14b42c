package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/inkpress/apiserver/internal/store"
	"github.com/inkpress/apiserver/types"
)

const maxAuthorNameLength = 100

// AuthorService manages pen names and links legacy novels to them.
type AuthorService struct {
	authors store.Collection[types.Author]
	novels  store.Collection[types.Novel]
	events  EventPublisher

	// mu guards find-or-create so concurrent callers agree on one record.
	mu sync.Mutex
}

func NewAuthorService(authors store.Collection[types.Author], novels store.Collection[types.Novel], events EventPublisher) *AuthorService {
	return &AuthorService{authors: authors, novels: novels, events: orNoop(events)}
}

// AuthorInput carries author fields. Nil pointers are left unchanged on update.
type AuthorInput struct {
	Name   *string `json:"name"`
	Bio    *string `json:"bio"`
	Avatar *string `json:"avatar"`
}

func (s *AuthorService) List(ctx context.Context, query string, page PageRequest) (types.Page[types.Author], error) {
	authors, err := s.authors.List(ctx)
	if err != nil {
		return types.Page[types.Author]{}, err
	}
	return paginate(store.Search(authors, query), page), nil
}

func (s *AuthorService) Get(ctx context.Context, id int) (types.Author, error) {
	return s.authors.Get(ctx, id)
}

func (s *AuthorService) Create(ctx context.Context, in AuthorInput) (types.Author, error) {
	var author types.Author
	if in.Name != nil {
		author.Name = strings.TrimSpace(*in.Name)
	}
	if err := validateAuthorName(author.Name); err != nil {
		return types.Author{}, err
	}
	if in.Bio != nil {
		author.Bio = strings.TrimSpace(*in.Bio)
	}
	if in.Avatar != nil {
		author.Avatar = strings.TrimSpace(*in.Avatar)
	}

	created, err := s.authors.Create(ctx, author)
	if err != nil {
		return types.Author{}, fmt.Errorf("create author: %w", err)
	}
	emit(ctx, s.events, "author", "created", created.ID, created)
	return created, nil
}

func (s *AuthorService) Update(ctx context.Context, id int, in AuthorInput) (types.Author, error) {
	patch := store.Patch{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := validateAuthorName(name); err != nil {
			return types.Author{}, err
		}
		patch["name"] = name
	}
	if in.Bio != nil {
		patch["bio"] = strings.TrimSpace(*in.Bio)
	}
	if in.Avatar != nil {
		patch["avatar"] = strings.TrimSpace(*in.Avatar)
	}

	updated, err := s.authors.Update(ctx, id, patch)
	if err != nil {
		return types.Author{}, err
	}
	emit(ctx, s.events, "author", "updated", updated.ID, updated)
	return updated, nil
}

func (s *AuthorService) SetAvatar(ctx context.Context, id int, ref string) (types.Author, error) {
	return s.Update(ctx, id, AuthorInput{Avatar: &ref})
}

// Delete removes the author. Novels keep their authorId; there is no cascade.
func (s *AuthorService) Delete(ctx context.Context, id int) error {
	ok, err := s.authors.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return store.ErrNotFound
	}
	emit(ctx, s.events, "author", "deleted", id, nil)
	return nil
}

// Novels lists the novels attributed to author id, newest first.
func (s *AuthorService) Novels(ctx context.Context, id int, page PageRequest) (types.Page[types.Novel], error) {
	if _, err := s.authors.Get(ctx, id); err != nil {
		return types.Page[types.Novel]{}, err
	}
	novels, err := s.novels.List(ctx)
	if err != nil {
		return types.Page[types.Novel]{}, err
	}
	matched := make([]types.Novel, 0)
	for _, n := range novels {
		if n.AuthorID == id {
			matched = append(matched, n)
		}
	}
	sortNovels(matched, NovelSortLatest)
	return paginate(matched, page), nil
}

// FindOrCreateByName returns the author whose name matches case-insensitively,
// creating one when none does.
func (s *AuthorService) FindOrCreateByName(ctx context.Context, name string) (types.Author, bool, error) {
	name = strings.TrimSpace(name)
	if err := validateAuthorName(name); err != nil {
		return types.Author{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	authors, err := s.authors.List(ctx)
	if err != nil {
		return types.Author{}, false, err
	}
	for _, a := range authors {
		if strings.EqualFold(a.Name, name) {
			return a, false, nil
		}
	}

	created, err := s.authors.Create(ctx, types.Author{Name: name})
	if err != nil {
		return types.Author{}, false, fmt.Errorf("create author %q: %w", name, err)
	}
	emit(ctx, s.events, "author", "created", created.ID, created)
	return created, true, nil
}

// LinkLegacyNovels attaches every novel that only carries a free-text author
// name to an Author record. It is safe to run repeatedly and returns the
// number of novels linked.
func (s *AuthorService) LinkLegacyNovels(ctx context.Context) (int, error) {
	novels, err := s.novels.List(ctx)
	if err != nil {
		return 0, err
	}

	linked := 0
	for _, n := range novels {
		if n.AuthorID != 0 || strings.TrimSpace(n.Author) == "" {
			continue
		}
		author, _, err := s.FindOrCreateByName(ctx, n.Author)
		if err != nil {
			return linked, fmt.Errorf("novel %d: %w", n.ID, err)
		}
		if _, err := s.novels.Update(ctx, n.ID, store.Patch{"authorId": author.ID}); err != nil {
			return linked, fmt.Errorf("novel %d: %w", n.ID, err)
		}
		linked++
	}
	return linked, nil
}

func validateAuthorName(name string) error {
	if err := required("name", name); err != nil {
		return err
	}
	return maxLength("name", name, maxAuthorNameLength)
}
