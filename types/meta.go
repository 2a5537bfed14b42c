package types

import "time"

// Meta holds the identity and audit fields shared by every stored record.
// It is embedded in each entity so the JSON fields appear at the top level.
type Meta struct {
	// ID is assigned by the store and never reused.
	ID int `json:"id"`

	// CreatedAt is stamped once when the record is created.
	CreatedAt time.Time `json:"createdAt"`

	// UpdatedAt is re-stamped on every mutation.
	UpdatedAt time.Time `json:"updatedAt"`
}

func (m *Meta) GetID() int { return m.ID }

func (m *Meta) SetID(id int) { m.ID = id }

func (m *Meta) GetCreatedAt() time.Time { return m.CreatedAt }

func (m *Meta) SetCreatedAt(t time.Time) { m.CreatedAt = t }

func (m *Meta) SetUpdatedAt(t time.Time) { m.UpdatedAt = t }

// AuthorRef is a denormalized snapshot of the account that wrote a post or comment.
type AuthorRef struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}
