package types

// Chapter is one installment of a novel.
type Chapter struct {
	Meta
	NovelID int    `json:"novelId"`
	Title   string `json:"title"`

	// Content is rich text (HTML).
	Content string `json:"content"`

	// ChapterNumber orders chapters within a novel. Uniqueness is not enforced.
	ChapterNumber int `json:"chapterNumber"`

	ViewCount int `json:"viewCount"`
	LikeCount int `json:"likeCount"`

	// WordCount is derived from Content on every write.
	WordCount int `json:"wordCount"`
}

func (c Chapter) SearchText() []string {
	return []string{c.Title}
}
