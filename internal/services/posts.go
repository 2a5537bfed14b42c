package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gosimple/slug"
	"github.com/inkpress/apiserver/internal/store"
	"github.com/inkpress/apiserver/types"
)

const excerptLength = 160

// PostService manages blog posts and their editorial workflow.
type PostService struct {
	posts  store.Collection[types.Post]
	events EventPublisher

	// mu serialises slug allocation.
	mu sync.Mutex
}

func NewPostService(posts store.Collection[types.Post], events EventPublisher) *PostService {
	return &PostService{posts: posts, events: orNoop(events)}
}

// PostInput carries writable post fields. Nil pointers are left unchanged on update.
type PostInput struct {
	Title      *string   `json:"title"`
	Content    *string   `json:"content"`
	Excerpt    *string   `json:"excerpt"`
	CoverImage *string   `json:"coverImage"`
	Categories *[]string `json:"categories"`
	Tags       *[]string `json:"tags"`
	Status     *string   `json:"status"`
}

// PostFilter narrows a post listing. Zero values match everything.
type PostFilter struct {
	Query    string
	Status   string
	Tag      string
	Category string
}

// List returns posts visible to viewer, newest first. Anonymous callers only
// see published posts; signed-in writers also see their own.
func (s *PostService) List(ctx context.Context, viewer types.User, filter PostFilter, page PageRequest) (types.Page[types.Post], error) {
	var status types.PostStatus
	if filter.Status != "" {
		parsed, ok := types.ParsePostStatus(filter.Status)
		if !ok {
			return types.Page[types.Post]{}, invalidPostStatus()
		}
		status = parsed
	}

	posts, err := s.posts.List(ctx)
	if err != nil {
		return types.Page[types.Post]{}, err
	}

	matched := make([]types.Post, 0, len(posts))
	for _, p := range store.Search(posts, filter.Query) {
		if !canView(viewer, p) {
			continue
		}
		if status != "" && p.Status != status {
			continue
		}
		if filter.Tag != "" && !containsFold(p.Tags, filter.Tag) {
			continue
		}
		if filter.Category != "" && !containsFold(p.Categories, filter.Category) {
			continue
		}
		matched = append(matched, p)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].ID > matched[j].ID
	})
	return paginate(matched, page), nil
}

// Get hides unpublished posts from everyone but their author and staff.
func (s *PostService) Get(ctx context.Context, viewer types.User, id int) (types.Post, error) {
	post, err := s.posts.Get(ctx, id)
	if err != nil {
		return types.Post{}, err
	}
	if !canView(viewer, post) {
		return types.Post{}, store.ErrNotFound
	}
	return post, nil
}

func (s *PostService) GetBySlug(ctx context.Context, viewer types.User, value string) (types.Post, error) {
	posts, err := s.posts.List(ctx)
	if err != nil {
		return types.Post{}, err
	}
	for _, p := range posts {
		if p.Slug == value && canView(viewer, p) {
			return p, nil
		}
	}
	return types.Post{}, store.ErrNotFound
}

func (s *PostService) Create(ctx context.Context, actor types.User, in PostInput) (types.Post, error) {
	if actor.ID == 0 {
		return types.Post{}, ErrForbidden
	}

	post := types.Post{
		Status:     types.PostDraft,
		Author:     actor.Ref(),
		Categories: []string{},
		Tags:       []string{},
	}
	if err := applyPost(&post, in); err != nil {
		return types.Post{}, err
	}
	if err := required("title", post.Title); err != nil {
		return types.Post{}, err
	}
	if err := required("content", post.Content); err != nil {
		return types.Post{}, err
	}
	if in.Status != nil {
		if err := s.transition(actor, &post, *in.Status); err != nil {
			return types.Post{}, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	unique, err := s.uniqueSlug(ctx, post.Title, 0)
	if err != nil {
		return types.Post{}, err
	}
	post.Slug = unique

	created, err := s.posts.Create(ctx, post)
	if err != nil {
		return types.Post{}, fmt.Errorf("create post: %w", err)
	}
	emit(ctx, s.events, "post", "created", created.ID, created)
	if created.Status == types.PostPublished {
		emit(ctx, s.events, "post", "published", created.ID, created)
	}
	return created, nil
}

// Update edits a post. Only its author or an ADMIN may do so. The slug is
// stable across title changes.
func (s *PostService) Update(ctx context.Context, actor types.User, id int, in PostInput) (types.Post, error) {
	var wasPublished bool
	updated, err := s.posts.Modify(ctx, id, func(p types.Post) (types.Post, error) {
		if !canEditPost(actor, p) {
			return p, ErrForbidden
		}
		wasPublished = p.Status == types.PostPublished
		if err := applyPost(&p, in); err != nil {
			return p, err
		}
		if err := required("title", p.Title); err != nil {
			return p, err
		}
		if err := required("content", p.Content); err != nil {
			return p, err
		}
		if in.Status != nil {
			if err := s.transition(actor, &p, *in.Status); err != nil {
				return p, err
			}
		}
		return p, nil
	})
	if err != nil {
		return types.Post{}, err
	}
	emit(ctx, s.events, "post", "updated", updated.ID, updated)
	if !wasPublished && updated.Status == types.PostPublished {
		emit(ctx, s.events, "post", "published", updated.ID, updated)
	}
	return updated, nil
}

// SetStatus rejects values outside the enumerated set before touching the
// record. Authors may move their own posts between DRAFT and PENDING_REVIEW;
// staff may set any status.
func (s *PostService) SetStatus(ctx context.Context, actor types.User, id int, value string) (types.Post, error) {
	if _, ok := types.ParsePostStatus(value); !ok {
		return types.Post{}, invalidPostStatus()
	}
	var wasPublished bool
	updated, err := s.posts.Modify(ctx, id, func(p types.Post) (types.Post, error) {
		if actor.ID == 0 || (p.Author.ID != actor.ID && !isStaff(actor)) {
			return p, ErrForbidden
		}
		wasPublished = p.Status == types.PostPublished
		if err := s.transition(actor, &p, value); err != nil {
			return p, err
		}
		return p, nil
	})
	if err != nil {
		return types.Post{}, err
	}
	emit(ctx, s.events, "post", "status_changed", updated.ID, map[string]any{"status": updated.Status})
	if !wasPublished && updated.Status == types.PostPublished {
		emit(ctx, s.events, "post", "published", updated.ID, updated)
	}
	return updated, nil
}

// CanEdit returns the post when actor may change it. Posts actor may not see
// are reported as missing.
func (s *PostService) CanEdit(ctx context.Context, actor types.User, id int) (types.Post, error) {
	post, err := s.posts.Get(ctx, id)
	if err != nil {
		return types.Post{}, err
	}
	if !canEditPost(actor, post) {
		if !canView(actor, post) {
			return types.Post{}, store.ErrNotFound
		}
		return types.Post{}, ErrForbidden
	}
	return post, nil
}

func (s *PostService) SetCover(ctx context.Context, actor types.User, id int, ref string) (types.Post, error) {
	return s.Update(ctx, actor, id, PostInput{CoverImage: &ref})
}

func (s *PostService) Delete(ctx context.Context, actor types.User, id int) error {
	post, err := s.posts.Get(ctx, id)
	if err != nil {
		return err
	}
	if !canEditPost(actor, post) {
		return ErrForbidden
	}
	ok, err := s.posts.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return store.ErrNotFound
	}
	emit(ctx, s.events, "post", "deleted", id, nil)
	return nil
}

func (s *PostService) IncrementViews(ctx context.Context, viewer types.User, id int) (types.Post, error) {
	return s.posts.Modify(ctx, id, func(p types.Post) (types.Post, error) {
		if !canView(viewer, p) {
			return p, store.ErrNotFound
		}
		p.ViewCount++
		return p, nil
	})
}

func (s *PostService) Like(ctx context.Context, viewer types.User, id int) (types.Post, error) {
	return s.posts.Modify(ctx, id, func(p types.Post) (types.Post, error) {
		if !canView(viewer, p) {
			return p, store.ErrNotFound
		}
		p.LikeCount++
		return p, nil
	})
}

func (s *PostService) transition(actor types.User, p *types.Post, value string) error {
	status, ok := types.ParsePostStatus(value)
	if !ok {
		return invalidPostStatus()
	}
	if !isStaff(actor) && status != types.PostDraft && status != types.PostPendingReview {
		return fmt.Errorf("%w: only staff may set status %s", ErrForbidden, status)
	}
	p.Status = status
	if status == types.PostPublished && p.PublishedAt == nil {
		now := time.Now().UTC()
		p.PublishedAt = &now
	}
	return nil
}

// uniqueSlug must be called with s.mu held.
func (s *PostService) uniqueSlug(ctx context.Context, title string, selfID int) (string, error) {
	base := slug.Make(title)
	if base == "" {
		base = "post"
	}

	posts, err := s.posts.List(ctx)
	if err != nil {
		return "", err
	}
	taken := make(map[string]bool, len(posts))
	for _, p := range posts {
		if p.ID != selfID {
			taken[p.Slug] = true
		}
	}

	candidate := base
	for n := 2; taken[candidate]; n++ {
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
	return candidate, nil
}

func applyPost(p *types.Post, in PostInput) error {
	if in.Title != nil {
		p.Title = strings.TrimSpace(*in.Title)
		if err := maxLength("title", p.Title, maxTitleLength); err != nil {
			return err
		}
	}
	if in.Content != nil {
		p.Content = *in.Content
		if in.Excerpt == nil {
			p.Excerpt = Excerpt(p.Content, excerptLength)
		}
	}
	if in.Excerpt != nil {
		p.Excerpt = strings.TrimSpace(*in.Excerpt)
		if p.Excerpt == "" {
			p.Excerpt = Excerpt(p.Content, excerptLength)
		}
	}
	if in.CoverImage != nil {
		p.CoverImage = strings.TrimSpace(*in.CoverImage)
	}
	if in.Categories != nil {
		p.Categories = cleanLabels(*in.Categories)
	}
	if in.Tags != nil {
		p.Tags = cleanLabels(*in.Tags)
	}
	return nil
}

func canView(viewer types.User, p types.Post) bool {
	if p.Status == types.PostPublished {
		return true
	}
	if viewer.ID == 0 {
		return false
	}
	return p.Author.ID == viewer.ID || isStaff(viewer)
}

func canEditPost(actor types.User, p types.Post) bool {
	if actor.ID == 0 {
		return false
	}
	return p.Author.ID == actor.ID || actor.HasRole(types.RoleAdmin)
}

func invalidPostStatus() error {
	return invalid("status", fmt.Sprintf("status must be one of %v", types.PostStatuses))
}
