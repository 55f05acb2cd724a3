package model

import "fmt"

// Message is one timeline-visible chat event. Messages are supplied
// wholesale at job creation and are immutable afterwards.
type Message struct {
	Kind        MessageKind `json:"kind" validate:"required,oneof=text media system alert"`
	Sender      Sender      `json:"sender,omitempty" validate:"omitempty,oneof=self other none"`
	Body        string      `json:"body,omitempty"`
	MediaRef    string      `json:"mediaRef,omitempty"`
	Caption     string      `json:"caption,omitempty"`
	Icon        string      `json:"icon,omitempty"`
	DisplayName string      `json:"displayName,omitempty"`
}

// Validate enforces per-kind invariants that struct tags cannot express:
// a text message needs a body; a media message without a mediaRef is
// still legal and renders as a placeholder.
func (m Message) Validate() error {
	if m.Kind == KindText && m.Body == "" {
		return fmt.Errorf("text message requires a non-empty body")
	}
	return nil
}

// ValidateMessages checks every message in input order.
func ValidateMessages(msgs []Message) error {
	for i, m := range msgs {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("message %d: %w", i, err)
		}
	}
	return nil
}
