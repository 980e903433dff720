package domain

// Role identifies who authored a chat message.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Message is a single entry in the widget's chat history. Messages are
// immutable once appended, except that a pending placeholder is replaced
// wholesale when its answer arrives.
type Message struct {
	ID           string     `json:"id"`
	Role         Role       `json:"role"`
	Text         string     `json:"text"`
	Links        []string   `json:"links,omitempty"`
	RelatedMedia []MediaRef `json:"relatedMedia,omitempty"`
	Pending      bool       `json:"pending,omitempty"`
}

// MediaRef points at a static learning video surfaced next to an answer.
type MediaRef struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Source      string `json:"source"`
	Keywords    string `json:"keywords"`
	Description string `json:"description,omitempty"`
	Speaker     string `json:"speaker,omitempty"`
}
