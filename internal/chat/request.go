package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// DefaultModel is echoed back when the client does not name one.
const DefaultModel = "intense-rp-next-1"

// ErrInvalidRequest marks payloads with no extractable message list. It is
// the only parse-level failure; malformed content fields coerce instead.
var ErrInvalidRequest = errors.New("invalid chat request")

// Request is the processed form of an inbound chat-completion payload. The
// processor chain mutates it in place; one instance is owned by exactly one
// HTTP request.
type Request struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
	Stream      bool
	Model       string

	// DeepSeek feature flags, resolved by the settings processor.
	UseDeepthink bool
	UseSearch    bool
	UseTextFile  bool

	// API-level overrides (nil when absent from the payload).
	APICharName  *string
	APIUserName  *string
	APIUseSearch *bool
	APIUseR1     *bool

	// Assistant prefill: content of a trailing assistant message, removed
	// from Messages during parsing.
	PrefixContent string

	// Populated by the character processor for the formatter.
	Character *CharacterInfo
}

type wireRequest struct {
	Messages    json.RawMessage `json:"messages"`
	Temperature *float64        `json:"temperature"`
	MaxTokens   *int            `json:"max_tokens"`
	Stream      bool            `json:"stream"`
	Model       string          `json:"model"`
	CharName    *string         `json:"char_name"`
	Data1       *string         `json:"DATA1"`
	UserName    *string         `json:"user_name"`
	Data2       *string         `json:"DATA2"`
	UseSearch   *bool           `json:"use_search"`
	UseR1       *bool           `json:"use_r1"`
}

// ParseRequest decodes an OpenAI-style chat completion body. The last
// message is extracted into PrefixContent when it is an assistant message
// with non-empty content.
func ParseRequest(body []byte) (*Request, error) {
	var wire wireRequest
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if len(wire.Messages) == 0 {
		return nil, fmt.Errorf("%w: missing messages", ErrInvalidRequest)
	}

	var wireMessages []wireMessage
	if err := json.Unmarshal(wire.Messages, &wireMessages); err != nil {
		return nil, fmt.Errorf("%w: messages is not a list", ErrInvalidRequest)
	}

	messages := make([]Message, 0, len(wireMessages))
	for _, wm := range wireMessages {
		messages = append(messages, wm.toMessage())
	}

	prefix := ""
	if n := len(messages); n > 0 {
		last := messages[n-1]
		if last.Role == RoleAssistant && strings.TrimSpace(last.Content) != "" {
			prefix = last.Content
			messages = messages[:n-1]
		}
	}

	req := &Request{
		Messages:      messages,
		Temperature:   1.0,
		MaxTokens:     300,
		Stream:        wire.Stream,
		Model:         DefaultModel,
		PrefixContent: prefix,
		APIUseSearch:  wire.UseSearch,
		APIUseR1:      wire.UseR1,
	}
	if wire.Temperature != nil {
		req.Temperature = *wire.Temperature
	}
	if wire.MaxTokens != nil {
		req.MaxTokens = *wire.MaxTokens
	}
	if wire.Model != "" {
		req.Model = wire.Model
	}

	// char_name/user_name win over the DATA1/DATA2 aliases. A blank value
	// falls through to the alias rather than suppressing it.
	req.APICharName = firstNonBlank(wire.CharName, wire.Data1)
	req.APIUserName = firstNonBlank(wire.UserName, wire.Data2)

	return req, nil
}

func firstNonBlank(values ...*string) *string {
	for _, v := range values {
		if v != nil && strings.TrimSpace(*v) != "" {
			return v
		}
	}
	return nil
}

// HasPrefix reports whether assistant prefill content was extracted.
func (r *Request) HasPrefix() bool {
	return strings.TrimSpace(r.PrefixContent) != ""
}

// UserMessages returns the user-role messages in conversation order.
func (r *Request) UserMessages() []Message {
	var out []Message
	for _, m := range r.Messages {
		if m.Role == RoleUser {
			out = append(out, m)
		}
	}
	return out
}

// LastUserMessage returns the final user message, or ok=false.
func (r *Request) LastUserMessage() (Message, bool) {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == RoleUser {
			return r.Messages[i], true
		}
	}
	return Message{}, false
}

// UniqueUserNames returns the distinct user display names in order of first
// appearance.
func (r *Request) UniqueUserNames() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, m := range r.Messages {
		if m.Role != RoleUser || !m.HasName() {
			continue
		}
		if _, ok := seen[m.Name]; ok {
			continue
		}
		seen[m.Name] = struct{}{}
		names = append(names, m.Name)
	}
	return names
}

// MessagesByUser returns the user-role messages authored by name.
func (r *Request) MessagesByUser(name string) []Message {
	var out []Message
	for _, m := range r.Messages {
		if m.Role == RoleUser && m.Name == name {
			out = append(out, m)
		}
	}
	return out
}

// HasMultipleUsers reports whether more than one named user appears.
func (r *Request) HasMultipleUsers() bool {
	return len(r.UniqueUserNames()) > 1
}

func (r *Request) hasModelSuffix(suffix string) bool {
	return strings.HasSuffix(r.Model, "-"+suffix)
}

// IsChatModel reports a "-chat" model suffix, which forces reasoning off.
func (r *Request) IsChatModel() bool { return r.hasModelSuffix("chat") }

// IsReasonerModel reports a "-reasoner" model suffix, which forces
// reasoning on.
func (r *Request) IsReasonerModel() bool { return r.hasModelSuffix("reasoner") }

// BaseModelName strips a recognized suffix from the model name.
func (r *Request) BaseModelName() string {
	switch {
	case r.IsChatModel():
		return strings.TrimSuffix(r.Model, "-chat")
	case r.IsReasonerModel():
		return strings.TrimSuffix(r.Model, "-reasoner")
	}
	return r.Model
}
