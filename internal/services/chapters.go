package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/inkpress/apiserver/internal/store"
	"github.com/inkpress/apiserver/types"
)

// ChapterService manages chapters and keeps each novel's chapterCount current.
type ChapterService struct {
	chapters store.Collection[types.Chapter]
	novels   store.Collection[types.Novel]
	events   EventPublisher

	// mu serialises create and delete so numbering and counts stay consistent.
	mu sync.Mutex
}

func NewChapterService(chapters store.Collection[types.Chapter], novels store.Collection[types.Novel], events EventPublisher) *ChapterService {
	return &ChapterService{chapters: chapters, novels: novels, events: orNoop(events)}
}

// ChapterInput carries writable chapter fields. Nil pointers are left unchanged on update.
type ChapterInput struct {
	Title         *string `json:"title"`
	Content       *string `json:"content"`
	ChapterNumber *int    `json:"chapterNumber"`
}

// List returns the chapters of a novel ordered by chapter number.
func (s *ChapterService) List(ctx context.Context, novelID int, page PageRequest) (types.Page[types.Chapter], error) {
	if _, err := s.novels.Get(ctx, novelID); err != nil {
		return types.Page[types.Chapter]{}, err
	}
	chapters, err := s.byNovel(ctx, novelID)
	if err != nil {
		return types.Page[types.Chapter]{}, err
	}
	return paginate(chapters, page), nil
}

// Get returns chapter chapterID only if it belongs to novelID.
func (s *ChapterService) Get(ctx context.Context, novelID, chapterID int) (types.Chapter, error) {
	chapter, err := s.chapters.Get(ctx, chapterID)
	if err != nil {
		return types.Chapter{}, err
	}
	if chapter.NovelID != novelID {
		return types.Chapter{}, store.ErrNotFound
	}
	return chapter, nil
}

func (s *ChapterService) Create(ctx context.Context, actor types.User, novelID int, in ChapterInput) (types.Chapter, error) {
	if err := s.authorize(ctx, actor, novelID); err != nil {
		return types.Chapter{}, err
	}

	chapter := types.Chapter{NovelID: novelID}
	if err := applyChapter(&chapter, in); err != nil {
		return types.Chapter{}, err
	}
	if err := required("title", chapter.Title); err != nil {
		return types.Chapter{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.byNovel(ctx, novelID)
	if err != nil {
		return types.Chapter{}, err
	}
	if in.ChapterNumber == nil {
		chapter.ChapterNumber = 1
		if n := len(existing); n > 0 {
			chapter.ChapterNumber = existing[n-1].ChapterNumber + 1
		}
	}

	created, err := s.chapters.Create(ctx, chapter)
	if err != nil {
		return types.Chapter{}, fmt.Errorf("create chapter: %w", err)
	}
	if err := s.setChapterCount(ctx, novelID, len(existing)+1); err != nil {
		return types.Chapter{}, err
	}
	emit(ctx, s.events, "chapter", "created", created.ID, map[string]any{
		"novelId":       novelID,
		"chapterNumber": created.ChapterNumber,
		"title":         created.Title,
	})
	return created, nil
}

func (s *ChapterService) Update(ctx context.Context, actor types.User, novelID, chapterID int, in ChapterInput) (types.Chapter, error) {
	if err := s.authorize(ctx, actor, novelID); err != nil {
		return types.Chapter{}, err
	}
	updated, err := s.chapters.Modify(ctx, chapterID, func(c types.Chapter) (types.Chapter, error) {
		if c.NovelID != novelID {
			return c, store.ErrNotFound
		}
		if err := applyChapter(&c, in); err != nil {
			return c, err
		}
		if err := required("title", c.Title); err != nil {
			return c, err
		}
		return c, nil
	})
	if err != nil {
		return types.Chapter{}, err
	}
	emit(ctx, s.events, "chapter", "updated", updated.ID, map[string]any{"novelId": novelID})
	return updated, nil
}

func (s *ChapterService) Delete(ctx context.Context, actor types.User, novelID, chapterID int) error {
	if err := s.authorize(ctx, actor, novelID); err != nil {
		return err
	}
	if _, err := s.Get(ctx, novelID, chapterID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.chapters.Delete(ctx, chapterID)
	if err != nil {
		return err
	}
	if !ok {
		return store.ErrNotFound
	}
	if err := s.RefreshChapterCount(ctx, novelID); err != nil {
		return err
	}
	emit(ctx, s.events, "chapter", "deleted", chapterID, map[string]any{"novelId": novelID})
	return nil
}

func (s *ChapterService) IncrementViews(ctx context.Context, novelID, chapterID int) (types.Chapter, error) {
	return s.chapters.Modify(ctx, chapterID, func(c types.Chapter) (types.Chapter, error) {
		if c.NovelID != novelID {
			return c, store.ErrNotFound
		}
		c.ViewCount++
		return c, nil
	})
}

// RefreshChapterCount recomputes a novel's chapterCount from the chapter store.
func (s *ChapterService) RefreshChapterCount(ctx context.Context, novelID int) error {
	chapters, err := s.byNovel(ctx, novelID)
	if err != nil {
		return err
	}
	return s.setChapterCount(ctx, novelID, len(chapters))
}

func (s *ChapterService) setChapterCount(ctx context.Context, novelID, count int) error {
	_, err := s.novels.Modify(ctx, novelID, func(n types.Novel) (types.Novel, error) {
		n.ChapterCount = count
		return n, nil
	})
	if err != nil {
		return fmt.Errorf("update chapter count of novel %d: %w", novelID, err)
	}
	return nil
}

func (s *ChapterService) authorize(ctx context.Context, actor types.User, novelID int) error {
	novel, err := s.novels.Get(ctx, novelID)
	if err != nil {
		return err
	}
	if !canManageNovel(actor, novel) {
		return ErrForbidden
	}
	return nil
}

func (s *ChapterService) byNovel(ctx context.Context, novelID int) ([]types.Chapter, error) {
	all, err := s.chapters.List(ctx)
	if err != nil {
		return nil, err
	}
	chapters := make([]types.Chapter, 0)
	for _, c := range all {
		if c.NovelID == novelID {
			chapters = append(chapters, c)
		}
	}
	sort.SliceStable(chapters, func(i, j int) bool {
		if chapters[i].ChapterNumber != chapters[j].ChapterNumber {
			return chapters[i].ChapterNumber < chapters[j].ChapterNumber
		}
		return chapters[i].ID < chapters[j].ID
	})
	return chapters, nil
}

func applyChapter(c *types.Chapter, in ChapterInput) error {
	if in.Title != nil {
		c.Title = strings.TrimSpace(*in.Title)
		if err := maxLength("title", c.Title, maxTitleLength); err != nil {
			return err
		}
	}
	if in.Content != nil {
		c.Content = *in.Content
		c.WordCount = WordCount(PlainText(c.Content))
	}
	if in.ChapterNumber != nil {
		if *in.ChapterNumber < 1 {
			return invalid("chapterNumber", "chapterNumber must be positive")
		}
		c.ChapterNumber = *in.ChapterNumber
	}
	return nil
}
