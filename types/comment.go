package types

// Comment is a reader comment attached to either a novel or a post.
type Comment struct {
	Meta
	NovelID   int       `json:"novelId,omitempty"`
	PostID    int       `json:"postId,omitempty"`
	AuthorID  int       `json:"authorId"`
	Author    AuthorRef `json:"author"`
	Content   string    `json:"content"`
	LikeCount int       `json:"likeCount"`
}

func (c Comment) SearchText() []string {
	return []string{c.Content, c.Author.Username}
}
