package types

import (
	"strings"
	"time"
)

// PostStatus is the editorial state of a blog post.
type PostStatus string

const (
	PostDraft         PostStatus = "DRAFT"
	PostPendingReview PostStatus = "PENDING_REVIEW"
	PostPublished     PostStatus = "PUBLISHED"
	PostRejected      PostStatus = "REJECTED"
)

var PostStatuses = []PostStatus{PostDraft, PostPendingReview, PostPublished, PostRejected}

func ParsePostStatus(value string) (PostStatus, bool) {
	for _, s := range PostStatuses {
		if strings.EqualFold(string(s), strings.TrimSpace(value)) {
			return s, true
		}
	}
	return "", false
}

// Post represents a blog article.
type Post struct {
	Meta

	// Title is the headline of the post.
	Title string `json:"title"`

	// Content is the full rich-text body.
	Content string `json:"content"`

	// Excerpt is a short plain-text summary. Derived from Content when the
	// writer does not supply one.
	Excerpt string `json:"excerpt"`

	// Slug is the URL-safe identifier, unique across posts.
	Slug string `json:"slug"`

	// CoverImage references an uploaded image, if any.
	CoverImage string `json:"coverImage,omitempty"`

	// Status is the editorial state.
	Status PostStatus `json:"status"`

	// Author is a snapshot of the writing account taken at creation.
	Author AuthorRef `json:"author"`

	// Categories and Tags are free-form labels.
	Categories []string `json:"categories"`
	Tags       []string `json:"tags"`

	ViewCount int `json:"viewCount"`
	LikeCount int `json:"likeCount"`

	// PublishedAt is set the first time the post reaches PUBLISHED.
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
}

func (p Post) SearchText() []string {
	return []string{p.Title, p.Excerpt, p.Content}
}
