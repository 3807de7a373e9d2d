package pipeline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"intenserp-api/internal/chat"
)

var (
	data1Definition = regexp.MustCompile(`DATA1:\s*"[^"]*"`)
	data2Definition = regexp.MustCompile(`DATA2:\s*"[^"]*"`)
	newlineRun      = regexp.MustCompile(`\n{3,}`)
)

// CharacterProcessor extracts character/user display names from the
// conversation, substitutes them for the generic role labels, and expands
// the template placeholders. It runs after the settings processor so
// directive markers have already been identified.
type CharacterProcessor struct{}

func NewCharacterProcessor() *CharacterProcessor { return &CharacterProcessor{} }

func (p *CharacterProcessor) Name() string { return "character" }

func (p *CharacterProcessor) CanProcess(*chat.Request) bool { return true }

func (p *CharacterProcessor) Process(req *chat.Request) error {
	dropDuplicateTailSystem(req)

	info := chat.NewCharacterInfo()

	// Name declarations can sit anywhere in the conversation, so the scan
	// runs over the combined text.
	info.ExtractFromContent(combineMessages(req))
	for _, m := range req.Messages {
		if m.Role == chat.RoleUser && m.HasName() {
			info.AddUserName(m.Name)
		}
	}

	// API parameters beat in-message declarations.
	if req.APICharName != nil {
		info.CharacterName = *req.APICharName
	}
	if req.APIUserName != nil {
		info.UserName = *req.APIUserName
		info.AddUserName(*req.APIUserName)
	}

	temperature := formatFloat(req.Temperature)
	maxTokens := strconv.Itoa(req.MaxTokens)

	for i := range req.Messages {
		content := req.Messages[i].Content

		content = strings.TrimPrefix(content, "system: ")
		content = strings.ReplaceAll(content, "assistant:", info.CharacterName+":")
		content = strings.ReplaceAll(content, "user:", info.UserName+":")

		content = reasoningMarkerStrip.ReplaceAllString(content, "")
		content = searchMarkerStrip.ReplaceAllString(content, "")
		content = data1Definition.ReplaceAllString(content, "")
		content = data2Definition.ReplaceAllString(content, "")

		content = strings.ReplaceAll(content, "{{temperature}}", temperature)
		content = strings.ReplaceAll(content, "{{max_tokens}}", maxTokens)

		content = newlineRun.ReplaceAllString(content, "\n\n")
		req.Messages[i].Content = trimSpace(content)
	}

	req.Character = info
	return nil
}

// dropDuplicateTailSystem removes the second-to-last message when the last
// two are both system messages. At most one message is ever removed, and
// only at the tail.
func dropDuplicateTailSystem(req *chat.Request) {
	n := len(req.Messages)
	if n < 2 {
		return
	}
	if req.Messages[n-1].Role == chat.RoleSystem && req.Messages[n-2].Role == chat.RoleSystem {
		req.Messages = append(req.Messages[:n-2], req.Messages[n-1])
	}
}

func combineMessages(req *chat.Request) string {
	parts := make([]string, 0, len(req.Messages))
	for _, m := range req.Messages {
		label := m.DisplayRole()
		if m.Role == chat.RoleUser && m.HasName() {
			label = m.Name
		}
		parts = append(parts, fmt.Sprintf("%s: %s", label, m.Content))
	}
	return strings.Join(parts, "\n\n")
}

// formatFloat renders whole-number values with a trailing ".0" so template
// expansion matches what clients of the deployed service receive.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func trimSpace(s string) string {
	return strings.TrimSpace(s)
}
