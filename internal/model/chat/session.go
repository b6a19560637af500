package chat

// Session is one user's ongoing conversation. Exactly one session is
// current at a time; its message list is only appended to or
// element-mutated by id, never reordered.
type Session struct {
	ID        string    `json:"id"`
	Messages  []Message `json:"messages"`
	CreatedAt int64     `json:"createdAt"`
	UpdatedAt int64     `json:"updatedAt"`
}
