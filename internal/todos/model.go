package todos

import "time"

// Todo is the single entity this service manages. UpdatedAt stays nil
// until the first edit, so it is omitted from JSON for freshly created
// items.
type Todo struct {
	ID        int64      `json:"id"`
	Text      string     `json:"text"`
	Completed bool       `json:"completed"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}
