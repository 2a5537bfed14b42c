package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/inkpress/apiserver/internal/store"
	"github.com/inkpress/apiserver/types"
)

const (
	NovelSortLatest  = "latest"
	NovelSortPopular = "popular"
	NovelSortRating  = "rating"

	maxTitleLength = 200
	maxRating      = 5
)

// NovelService encapsulates novel use-cases.
type NovelService struct {
	novels  store.Collection[types.Novel]
	authors *AuthorService
	events  EventPublisher
}

func NewNovelService(novels store.Collection[types.Novel], authors *AuthorService, events EventPublisher) *NovelService {
	return &NovelService{novels: novels, authors: authors, events: orNoop(events)}
}

// NovelInput carries writable novel fields. Nil pointers are left unchanged on update.
type NovelInput struct {
	Title       *string    `json:"title"`
	AuthorID    *int       `json:"authorId"`
	Author      *string    `json:"author"`
	Description *string    `json:"description"`
	Genre       *string    `json:"genre"`
	Status      *string    `json:"status"`
	Rating      *float64   `json:"rating"`
	CoverImage  *string    `json:"coverImage"`
	Tags        *[]string  `json:"tags"`
	PublishDate *time.Time `json:"publishDate"`
}

// NovelFilter narrows a novel listing. Zero values match everything.
type NovelFilter struct {
	Query    string
	Genre    string
	Status   string
	Tag      string
	AuthorID int
	Sort     string
}

func (s *NovelService) List(ctx context.Context, filter NovelFilter, page PageRequest) (types.Page[types.Novel], error) {
	var status types.NovelStatus
	if filter.Status != "" {
		parsed, ok := types.ParseNovelStatus(filter.Status)
		if !ok {
			return types.Page[types.Novel]{}, invalidNovelStatus()
		}
		status = parsed
	}
	switch filter.Sort {
	case "", NovelSortLatest, NovelSortPopular, NovelSortRating:
	default:
		return types.Page[types.Novel]{}, invalid("sort", "sort must be one of latest, popular, rating")
	}

	novels, err := s.novels.List(ctx)
	if err != nil {
		return types.Page[types.Novel]{}, err
	}

	matched := make([]types.Novel, 0, len(novels))
	for _, n := range store.Search(novels, filter.Query) {
		if filter.Genre != "" && !strings.EqualFold(n.Genre, filter.Genre) {
			continue
		}
		if status != "" && n.Status != status {
			continue
		}
		if filter.Tag != "" && !containsFold(n.Tags, filter.Tag) {
			continue
		}
		if filter.AuthorID != 0 && n.AuthorID != filter.AuthorID {
			continue
		}
		matched = append(matched, n)
	}

	sortNovels(matched, filter.Sort)
	return paginate(matched, page), nil
}

func (s *NovelService) Get(ctx context.Context, id int) (types.Novel, error) {
	return s.novels.Get(ctx, id)
}

func (s *NovelService) Create(ctx context.Context, actor types.User, in NovelInput) (types.Novel, error) {
	novel := types.Novel{
		Status:    types.NovelOngoing,
		Tags:      []string{},
		CreatedBy: actor.ID,
	}
	if err := applyNovel(&novel, in, nil); err != nil {
		return types.Novel{}, err
	}
	if err := required("title", novel.Title); err != nil {
		return types.Novel{}, err
	}
	link, err := s.resolveAuthor(ctx, in)
	if err != nil {
		return types.Novel{}, err
	}
	linkAuthor(&novel, link)

	created, err := s.novels.Create(ctx, novel)
	if err != nil {
		return types.Novel{}, fmt.Errorf("create novel: %w", err)
	}
	emit(ctx, s.events, "novel", "created", created.ID, created)
	return created, nil
}

// Update applies in to the novel. Only its creator or staff may edit it.
// The input is checked against the current record before a named author is
// looked up or created.
func (s *NovelService) Update(ctx context.Context, actor types.User, id int, in NovelInput) (types.Novel, error) {
	current, err := s.CanEdit(ctx, actor, id)
	if err != nil {
		return types.Novel{}, err
	}
	if err := applyNovel(&current, in, nil); err != nil {
		return types.Novel{}, err
	}
	if err := required("title", current.Title); err != nil {
		return types.Novel{}, err
	}
	link, err := s.resolveAuthor(ctx, in)
	if err != nil {
		return types.Novel{}, err
	}
	updated, err := s.novels.Modify(ctx, id, func(n types.Novel) (types.Novel, error) {
		if !canManageNovel(actor, n) {
			return n, ErrForbidden
		}
		if err := applyNovel(&n, in, link); err != nil {
			return n, err
		}
		if err := required("title", n.Title); err != nil {
			return n, err
		}
		return n, nil
	})
	if err != nil {
		return types.Novel{}, err
	}
	emit(ctx, s.events, "novel", "updated", updated.ID, updated)
	return updated, nil
}

// SetStatus rejects values outside the enumerated set before touching the record.
func (s *NovelService) SetStatus(ctx context.Context, actor types.User, id int, value string) (types.Novel, error) {
	status, ok := types.ParseNovelStatus(value)
	if !ok {
		return types.Novel{}, invalidNovelStatus()
	}
	updated, err := s.novels.Modify(ctx, id, func(n types.Novel) (types.Novel, error) {
		if !canManageNovel(actor, n) {
			return n, ErrForbidden
		}
		n.Status = status
		return n, nil
	})
	if err != nil {
		return types.Novel{}, err
	}
	emit(ctx, s.events, "novel", "status_changed", updated.ID, map[string]any{"status": status})
	return updated, nil
}

// CanEdit returns the novel when actor may change it, ErrForbidden otherwise.
func (s *NovelService) CanEdit(ctx context.Context, actor types.User, id int) (types.Novel, error) {
	novel, err := s.novels.Get(ctx, id)
	if err != nil {
		return types.Novel{}, err
	}
	if !canManageNovel(actor, novel) {
		return types.Novel{}, ErrForbidden
	}
	return novel, nil
}

func (s *NovelService) SetCover(ctx context.Context, actor types.User, id int, ref string) (types.Novel, error) {
	return s.Update(ctx, actor, id, NovelInput{CoverImage: &ref})
}

func (s *NovelService) Delete(ctx context.Context, actor types.User, id int) error {
	novel, err := s.novels.Get(ctx, id)
	if err != nil {
		return err
	}
	if !canManageNovel(actor, novel) {
		return ErrForbidden
	}
	ok, err := s.novels.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return store.ErrNotFound
	}
	emit(ctx, s.events, "novel", "deleted", id, nil)
	return nil
}

func (s *NovelService) IncrementViews(ctx context.Context, id int) (types.Novel, error) {
	return s.novels.Modify(ctx, id, func(n types.Novel) (types.Novel, error) {
		n.ViewCount++
		return n, nil
	})
}

func (s *NovelService) Like(ctx context.Context, id int) (types.Novel, error) {
	updated, err := s.novels.Modify(ctx, id, func(n types.Novel) (types.Novel, error) {
		n.LikeCount++
		return n, nil
	})
	if err != nil {
		return types.Novel{}, err
	}
	emit(ctx, s.events, "novel", "liked", updated.ID, map[string]any{"likeCount": updated.LikeCount})
	return updated, nil
}

// Genres returns the distinct genre labels in use, sorted.
func (s *NovelService) Genres(ctx context.Context) ([]string, error) {
	novels, err := s.novels.List(ctx)
	if err != nil {
		return nil, err
	}
	labels := make([]string, 0, len(novels))
	for _, n := range novels {
		labels = append(labels, n.Genre)
	}
	genres := cleanLabels(labels)
	sort.Slice(genres, func(i, j int) bool {
		return strings.ToLower(genres[i]) < strings.ToLower(genres[j])
	})
	return genres, nil
}

func applyNovel(n *types.Novel, in NovelInput, link *types.Author) error {
	if in.Title != nil {
		n.Title = strings.TrimSpace(*in.Title)
		if err := maxLength("title", n.Title, maxTitleLength); err != nil {
			return err
		}
	}
	if in.Description != nil {
		n.Description = strings.TrimSpace(*in.Description)
	}
	if in.Genre != nil {
		n.Genre = strings.TrimSpace(*in.Genre)
	}
	if in.Status != nil {
		status, ok := types.ParseNovelStatus(*in.Status)
		if !ok {
			return invalidNovelStatus()
		}
		n.Status = status
	}
	if in.Rating != nil {
		if *in.Rating < 0 || *in.Rating > maxRating {
			return invalid("rating", fmt.Sprintf("rating must be between 0 and %d", maxRating))
		}
		n.Rating = *in.Rating
	}
	if in.CoverImage != nil {
		n.CoverImage = strings.TrimSpace(*in.CoverImage)
	}
	if in.Tags != nil {
		n.Tags = cleanLabels(*in.Tags)
	}
	if in.PublishDate != nil {
		published := in.PublishDate.UTC()
		n.PublishDate = &published
	}

	linkAuthor(n, link)
	return nil
}

func linkAuthor(n *types.Novel, link *types.Author) {
	if link != nil {
		n.AuthorID = link.ID
		n.Author = link.Name
	}
}

// resolveAuthor looks up or creates the author named by in. It returns nil
// when in leaves the author unchanged. It runs outside store transactions.
func (s *NovelService) resolveAuthor(ctx context.Context, in NovelInput) (*types.Author, error) {
	switch {
	case in.AuthorID != nil && *in.AuthorID != 0:
		author, err := s.authors.Get(ctx, *in.AuthorID)
		if err != nil {
			return nil, invalid("authorId", fmt.Sprintf("author %d does not exist", *in.AuthorID))
		}
		return &author, nil
	case in.AuthorID != nil:
		return &types.Author{}, nil
	case in.Author != nil && strings.TrimSpace(*in.Author) != "":
		author, _, err := s.authors.FindOrCreateByName(ctx, *in.Author)
		if err != nil {
			return nil, err
		}
		return &author, nil
	}
	return nil, nil
}

func canManageNovel(actor types.User, n types.Novel) bool {
	if actor.ID == 0 {
		return false
	}
	return actor.ID == n.CreatedBy || isStaff(actor)
}

func isStaff(u types.User) bool {
	return u.HasRole(types.RoleAdmin, types.RoleModerator)
}

func invalidNovelStatus() error {
	return invalid("status", fmt.Sprintf("status must be one of %v", types.NovelStatuses))
}

func sortNovels(novels []types.Novel, order string) {
	sort.SliceStable(novels, func(i, j int) bool {
		a, b := novels[i], novels[j]
		switch order {
		case NovelSortPopular:
			if a.ViewCount != b.ViewCount {
				return a.ViewCount > b.ViewCount
			}
			if a.LikeCount != b.LikeCount {
				return a.LikeCount > b.LikeCount
			}
		case NovelSortRating:
			if a.Rating != b.Rating {
				return a.Rating > b.Rating
			}
			if a.ReviewCount != b.ReviewCount {
				return a.ReviewCount > b.ReviewCount
			}
		}
		return a.ID > b.ID
	})
}
