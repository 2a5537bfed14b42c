package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/inkpress/apiserver/internal/store"
	"github.com/inkpress/apiserver/types"
)

const maxCommentLength = 5000

// CommentTarget names the novel or post a comment is attached to.
type CommentTarget struct {
	NovelID int
	PostID  int
}

func (t CommentTarget) matches(c types.Comment) bool {
	if t.NovelID != 0 {
		return c.NovelID == t.NovelID
	}
	return c.PostID == t.PostID
}

// CommentService manages reader comments on novels and posts.
type CommentService struct {
	comments store.Collection[types.Comment]
	novels   store.Collection[types.Novel]
	posts    store.Collection[types.Post]
	events   EventPublisher
}

func NewCommentService(comments store.Collection[types.Comment], novels store.Collection[types.Novel], posts store.Collection[types.Post], events EventPublisher) *CommentService {
	return &CommentService{comments: comments, novels: novels, posts: posts, events: orNoop(events)}
}

// List returns the comments of a target, oldest first. Comments on a post
// viewer may not see are reported as missing along with the post.
func (s *CommentService) List(ctx context.Context, viewer types.User, target CommentTarget, page PageRequest) (types.Page[types.Comment], error) {
	if err := s.checkTarget(ctx, viewer, target); err != nil {
		return types.Page[types.Comment]{}, err
	}
	all, err := s.comments.List(ctx)
	if err != nil {
		return types.Page[types.Comment]{}, err
	}
	matched := make([]types.Comment, 0)
	for _, c := range all {
		if target.matches(c) {
			matched = append(matched, c)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].ID < matched[j].ID
	})
	return paginate(matched, page), nil
}

func (s *CommentService) Get(ctx context.Context, viewer types.User, id int) (types.Comment, error) {
	comment, err := s.comments.Get(ctx, id)
	if err != nil {
		return types.Comment{}, err
	}
	if err := s.checkVisible(ctx, viewer, comment); err != nil {
		return types.Comment{}, err
	}
	return comment, nil
}

func (s *CommentService) Create(ctx context.Context, actor types.User, target CommentTarget, content string) (types.Comment, error) {
	if actor.ID == 0 {
		return types.Comment{}, ErrForbidden
	}
	content, err := validateComment(content)
	if err != nil {
		return types.Comment{}, err
	}
	if err := s.checkTarget(ctx, actor, target); err != nil {
		return types.Comment{}, err
	}

	created, err := s.comments.Create(ctx, types.Comment{
		NovelID:  target.NovelID,
		PostID:   target.PostID,
		AuthorID: actor.ID,
		Author:   actor.Ref(),
		Content:  content,
	})
	if err != nil {
		return types.Comment{}, fmt.Errorf("create comment: %w", err)
	}
	emit(ctx, s.events, "comment", "created", created.ID, created)
	return created, nil
}

// Update edits the content. Only the comment's author may do so.
func (s *CommentService) Update(ctx context.Context, actor types.User, id int, content string) (types.Comment, error) {
	content, err := validateComment(content)
	if err != nil {
		return types.Comment{}, err
	}
	updated, err := s.comments.Modify(ctx, id, func(c types.Comment) (types.Comment, error) {
		if actor.ID == 0 || c.AuthorID != actor.ID {
			return c, ErrForbidden
		}
		c.Content = content
		return c, nil
	})
	if err != nil {
		return types.Comment{}, err
	}
	emit(ctx, s.events, "comment", "updated", updated.ID, updated)
	return updated, nil
}

// Delete removes a comment. Its author and staff may do so.
func (s *CommentService) Delete(ctx context.Context, actor types.User, id int) error {
	comment, err := s.comments.Get(ctx, id)
	if err != nil {
		return err
	}
	if actor.ID == 0 || (comment.AuthorID != actor.ID && !isStaff(actor)) {
		return ErrForbidden
	}
	ok, err := s.comments.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return store.ErrNotFound
	}
	emit(ctx, s.events, "comment", "deleted", id, nil)
	return nil
}

func (s *CommentService) Like(ctx context.Context, viewer types.User, id int) (types.Comment, error) {
	if _, err := s.Get(ctx, viewer, id); err != nil {
		return types.Comment{}, err
	}
	return s.comments.Modify(ctx, id, func(c types.Comment) (types.Comment, error) {
		c.LikeCount++
		return c, nil
	})
}

func (s *CommentService) checkTarget(ctx context.Context, viewer types.User, target CommentTarget) error {
	switch {
	case target.NovelID != 0 && target.PostID != 0:
		return invalid("target", "a comment belongs to either a novel or a post")
	case target.NovelID != 0:
		_, err := s.novels.Get(ctx, target.NovelID)
		return err
	case target.PostID != 0:
		post, err := s.posts.Get(ctx, target.PostID)
		if err != nil {
			return err
		}
		if !canView(viewer, post) {
			return store.ErrNotFound
		}
		return nil
	}
	return invalid("target", "novel or post is required")
}

// checkVisible hides comments whose post viewer may not see.
func (s *CommentService) checkVisible(ctx context.Context, viewer types.User, c types.Comment) error {
	if c.PostID == 0 {
		return nil
	}
	post, err := s.posts.Get(ctx, c.PostID)
	if err != nil {
		return err
	}
	if !canView(viewer, post) {
		return store.ErrNotFound
	}
	return nil
}

func validateComment(content string) (string, error) {
	content = strings.TrimSpace(content)
	if err := required("content", content); err != nil {
		return "", err
	}
	if err := maxLength("content", content, maxCommentLength); err != nil {
		return "", err
	}
	return content, nil
}
