package types

import "time"

// Event describes a mutation that other services may react to.
type Event struct {
	// Type is "<entity>.<action>", e.g. "post.published".
	Type   string    `json:"type"`
	Entity string    `json:"entity"`
	ID     int       `json:"id"`
	At     time.Time `json:"at"`
	Data   any       `json:"data,omitempty"`
}
