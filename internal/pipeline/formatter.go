package pipeline

import (
	"strings"

	"intenserp-api/internal/chat"
	"intenserp-api/internal/config"
)

// preset is one message layout: a per-message pattern with {role}/{name}/
// {content} placeholders and the separator joining rendered messages.
type preset struct {
	pattern   string
	separator string
}

var presets = map[string]preset{
	"Classic (Role)": {pattern: "{role}: {content}", separator: "\n\n"},
	"Classic (Name)": {pattern: "{name}: {content}", separator: "\n\n"},
	"Wrapped (Role)": {pattern: "<{role}>\n{content}\n</{role}>", separator: "\n\n"},
	"Wrapped (Name)": {pattern: "<{name}>\n{content}\n</{name}>", separator: "\n\n"},
	"Divided (Role)": {
		pattern:   "----------- {role} -----------\n{content}",
		separator: "\n----------- ----------- -----------\n",
	},
	"Divided (Name)": {
		pattern:   "----------- {name} -----------\n{content}",
		separator: "\n----------- ----------- -----------\n",
	},
}

// Formatter renders the processed request into the single prompt string
// pasted into the target chat. The layout preset and the injection wrapper
// are configuration-driven; the defaults produce
// "[Important Information]\n{role}: {content}\n\n...".
type Formatter struct {
	cfg *config.Store
}

func NewFormatter(cfg *config.Store) *Formatter {
	return &Formatter{cfg: cfg}
}

// Format joins the non-blank messages per the configured preset, appends the
// prefill content as an assistant entry, and applies the injection wrapper.
func (f *Formatter) Format(req *chat.Request) string {
	name := f.cfg.GetString("formatting.preset", "Classic (Role)")
	p, ok := presets[name]
	if !ok {
		p = presets["Classic (Role)"]
	}

	info := req.Character
	if info == nil {
		info = chat.NewCharacterInfo()
	}

	var rendered []string
	for _, m := range req.Messages {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		rendered = append(rendered, renderMessage(p.pattern, m, info))
	}

	if req.HasPrefix() {
		prefix := chat.Message{
			Role:         chat.RoleAssistant,
			OriginalRole: "assistant",
			Content:      strings.TrimSpace(req.PrefixContent),
		}
		rendered = append(rendered, renderMessage(p.pattern, prefix, info))
	}

	content := strings.TrimSpace(strings.Join(rendered, p.separator))

	if !f.cfg.GetBool("injection.enabled", true) {
		return content
	}

	wrapper := f.cfg.GetString("injection.system_prompt", "[Important Information]")
	wrapper = strings.ReplaceAll(wrapper, "{username}", info.UserName)
	wrapper = strings.ReplaceAll(wrapper, "{asstname}", info.CharacterName)
	if strings.TrimSpace(wrapper) == "" {
		return content
	}
	return wrapper + "\n" + content
}

func renderMessage(pattern string, m chat.Message, info *chat.CharacterInfo) string {
	out := pattern
	out = strings.ReplaceAll(out, "{role}", literalRole(m))
	out = strings.ReplaceAll(out, "{name}", characterName(m, info))
	out = strings.ReplaceAll(out, "{content}", strings.TrimSpace(m.Content))
	return out
}

// literalRole is the canonical enum value; custom roles keep their original
// label. The wrapper envelope intentionally uses these rather than the
// substituted display names.
func literalRole(m chat.Message) string {
	if m.IsCustomRole() {
		return m.OriginalRole
	}
	return string(m.Role)
}

func characterName(m chat.Message, info *chat.CharacterInfo) string {
	switch {
	case m.IsCustomRole():
		return m.OriginalRole
	case m.Role == chat.RoleUser:
		if m.HasName() {
			return m.Name
		}
		return info.UserName
	case m.Role == chat.RoleAssistant:
		return info.CharacterName
	case m.Role == chat.RoleSystem:
		return "System"
	}
	return string(m.Role)
}
