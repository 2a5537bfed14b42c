package types

import (
	"strings"
	"time"
)

// NovelStatus is the publication state of a novel.
type NovelStatus string

const (
	NovelDraft     NovelStatus = "DRAFT"
	NovelOngoing   NovelStatus = "ONGOING"
	NovelCompleted NovelStatus = "COMPLETED"
	NovelHiatus    NovelStatus = "HIATUS"
)

var NovelStatuses = []NovelStatus{NovelDraft, NovelOngoing, NovelCompleted, NovelHiatus}

func ParseNovelStatus(value string) (NovelStatus, bool) {
	for _, s := range NovelStatuses {
		if strings.EqualFold(string(s), strings.TrimSpace(value)) {
			return s, true
		}
	}
	return "", false
}

// Novel is a serialized work made of chapters.
type Novel struct {
	Meta

	// Title is the display title.
	Title string `json:"title"`

	// AuthorID references an Author record. Zero when the novel only has a
	// legacy free-text author name.
	AuthorID int `json:"authorId,omitempty"`

	// Author is the legacy free-text author name. The start-up migration
	// links it to an Author record and fills AuthorID.
	Author string `json:"author,omitempty"`

	Description string `json:"description"`

	// Genre is a single free-text label, not a relation.
	Genre string `json:"genre,omitempty"`

	// ChapterCount is recomputed whenever chapters are added or removed.
	ChapterCount int `json:"chapterCount"`

	Status      NovelStatus `json:"status"`
	Rating      float64     `json:"rating"`
	ReviewCount int         `json:"reviewCount"`
	ViewCount   int         `json:"viewCount"`
	LikeCount   int         `json:"likeCount"`
	CoverImage  string      `json:"coverImage,omitempty"`
	Tags        []string    `json:"tags"`

	// PublishDate is the editorial publication date, distinct from CreatedAt.
	PublishDate *time.Time `json:"publishDate,omitempty"`

	// CreatedBy is the account that created the novel.
	CreatedBy int `json:"createdBy,omitempty"`
}

func (n Novel) SearchText() []string {
	return []string{n.Title, n.Description, n.Author, n.Genre}
}
