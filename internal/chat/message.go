// Package chat holds the request/response data model for the OpenAI-compatible
// surface: lenient message parsing, the processed chat request the pipeline
// mutates, and the wire envelopes sent back to clients.
package chat

import (
	"encoding/json"
	"strings"
)

// Role is one of the three canonical message roles. Arbitrary roles from the
// wire are normalized to RoleUser for processing; the original string is kept
// on the message for display.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation entry after normalization.
type Message struct {
	Role         Role
	OriginalRole string
	Content      string
	Name         string
}

// IsCustomRole reports whether the wire role was something other than
// system/user/assistant.
func (m Message) IsCustomRole() bool {
	switch strings.ToLower(m.OriginalRole) {
	case "", "system", "user", "assistant":
		return false
	}
	return true
}

// DisplayRole returns the role label used when rendering the message:
// the original string for custom roles, the canonical value otherwise.
func (m Message) DisplayRole() string {
	if m.IsCustomRole() {
		return m.OriginalRole
	}
	return string(m.Role)
}

// HasName reports whether the message carries a non-blank user name.
func (m Message) HasName() bool {
	return strings.TrimSpace(m.Name) != ""
}

type wireContentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type wireMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
	Name    string          `json:"name"`
}

func (w wireMessage) toMessage() Message {
	roleStr := w.Role
	if roleStr == "" {
		roleStr = "user"
	}

	role := RoleUser
	switch strings.ToLower(roleStr) {
	case "system":
		role = RoleSystem
	case "assistant":
		role = RoleAssistant
	case "user":
		role = RoleUser
	}

	return Message{
		Role:         role,
		OriginalRole: roleStr,
		Content:      coerceContent(w.Content),
		Name:         w.Name,
	}
}

// coerceContent flattens the three accepted content shapes to plain text:
// a string, an array of {type,text} parts (text parts joined, images
// dropped), or anything else rendered as its raw JSON text.
func coerceContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err == nil {
		texts := make([]string, 0, len(parts))
		for _, p := range parts {
			var part wireContentPart
			if err := json.Unmarshal(p, &part); err == nil && part.Type == "text" {
				texts = append(texts, part.Text)
			}
		}
		return strings.Join(texts, " ")
	}

	return string(raw)
}
