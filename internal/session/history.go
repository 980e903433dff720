package session

import (
	"encoding/json"
	"fmt"

	"chat-widget/internal/domain"
)

// EncodeHistory serializes the full ordered message sequence.
func EncodeHistory(msgs []domain.Message) ([]byte, error) {
	if msgs == nil {
		msgs = []domain.Message{}
	}
	data, err := json.Marshal(msgs)
	if err != nil {
		return nil, fmt.Errorf("session: encode history: %w", err)
	}
	return data, nil
}

// DecodeHistory parses a stored history. Placeholders left pending by a
// previous process can never be answered, so they come back as errors.
func DecodeHistory(data []byte) ([]domain.Message, error) {
	var msgs []domain.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("session: decode history: %w", err)
	}
	if msgs == nil {
		return nil, fmt.Errorf("session: decode history: not a message list")
	}
	for i, m := range msgs {
		switch m.Role {
		case domain.RoleUser, domain.RoleBot:
		default:
			return nil, fmt.Errorf("session: decode history: message %d has role %q", i, m.Role)
		}
		if m.ID == "" {
			msgs[i].ID = newID()
		}
		if m.Pending {
			msgs[i] = botMessage(msgs[i].ID, ErrorText)
		}
	}
	return msgs, nil
}
