package types

// Author is a pen name novels are attributed to. Authors are independent of
// user accounts.
type Author struct {
	Meta
	Name   string `json:"name"`
	Bio    string `json:"bio,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

func (a Author) SearchText() []string {
	return []string{a.Name, a.Bio}
}
