package session

import "chat-widget/internal/domain"

// Fixed bot texts shown by the widget.
const (
	PendingText = "Thinking..."
	ErrorText   = "An error occurred while processing your request."
	ClosingText = "Is there anything else I can help you with?"
	NudgeText   = "Hey there! Still with me? Let me know if you have any more questions."
)

// Greeting is the history a fresh session starts with.
var Greeting = []string{
	"Hello! How can I assist you today?",
	"Feel free to ask me anything!",
}

// QuickAsk is a canned question offered as a button before the first
// submission. Label is what the chat shows; Question is what gets asked.
type QuickAsk struct {
	Label    string `json:"label"`
	Question string `json:"question"`
}

var quickAsks = []QuickAsk{
	{Label: "Taxation/ Compensation", Question: "How compensation and taxation works?"},
	{Label: "Assignment Prep", Question: "How to prepare for a locums assignment?"},
	{Label: "Medical School Debt", Question: "Paying off medical school debt or how to pay off medical school debt"},
}

// QuickAsks returns the canned questions in display order.
func QuickAsks() []QuickAsk {
	out := make([]QuickAsk, len(quickAsks))
	copy(out, quickAsks)
	return out
}

func botMessage(id, text string) domain.Message {
	return domain.Message{ID: id, Role: domain.RoleBot, Text: text}
}

func greetingHistory() []domain.Message {
	out := make([]domain.Message, 0, len(Greeting))
	for _, text := range Greeting {
		out = append(out, botMessage(newID(), text))
	}
	return out
}
