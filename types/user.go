package types

import "strings"

// Role is the authorization level of an account.
type Role string

const (
	RoleUser      Role = "USER"
	RoleAdmin     Role = "ADMIN"
	RoleModerator Role = "MODERATOR"
)

// Roles lists every accepted role value.
var Roles = []Role{RoleUser, RoleAdmin, RoleModerator}

// ParseRole returns the role matching value case-insensitively.
func ParseRole(value string) (Role, bool) {
	for _, r := range Roles {
		if strings.EqualFold(string(r), strings.TrimSpace(value)) {
			return r, true
		}
	}
	return "", false
}

// UserStatus tracks whether an account may sign in.
type UserStatus string

const (
	UserActive   UserStatus = "ACTIVE"
	UserInactive UserStatus = "INACTIVE"
	UserBanned   UserStatus = "BANNED"
)

var UserStatuses = []UserStatus{UserActive, UserInactive, UserBanned}

func ParseUserStatus(value string) (UserStatus, bool) {
	for _, s := range UserStatuses {
		if strings.EqualFold(string(s), strings.TrimSpace(value)) {
			return s, true
		}
	}
	return "", false
}

// User represents an account in the system.
// It contains identity, role, and audit metadata.
type User struct {
	Meta

	// Username is the unique login name chosen by the user.
	Username string `json:"username"`

	// Email is the user's email address. Unique, compared case-insensitively.
	Email string `json:"email"`

	// FullName is the optional display name.
	FullName string `json:"fullName,omitempty"`

	// Avatar references an uploaded image, if any.
	Avatar string `json:"avatar,omitempty"`

	// Role indicates the user's authorization level.
	Role Role `json:"role"`

	// Status controls whether the account may authenticate.
	Status UserStatus `json:"status"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// It is persisted but never returned to clients; see Public.
	PasswordHash string `json:"passwordHash,omitempty"`
}

// PublicUser is the client-facing view of a User.
type PublicUser struct {
	Meta
	Username string     `json:"username"`
	Email    string     `json:"email"`
	FullName string     `json:"fullName,omitempty"`
	Avatar   string     `json:"avatar,omitempty"`
	Role     Role       `json:"role"`
	Status   UserStatus `json:"status"`
}

// Public strips credentials from the user.
func (u User) Public() PublicUser {
	return PublicUser{
		Meta:     u.Meta,
		Username: u.Username,
		Email:    u.Email,
		FullName: u.FullName,
		Avatar:   u.Avatar,
		Role:     u.Role,
		Status:   u.Status,
	}
}

// Ref returns the denormalized snapshot stored on posts and comments.
func (u User) Ref() AuthorRef {
	return AuthorRef{ID: u.ID, Username: u.Username, Avatar: u.Avatar}
}

// HasRole reports whether the user holds any of the given roles.
func (u User) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

func (u User) SearchText() []string {
	return []string{u.Username, u.Email, u.FullName}
}
