package pipeline

import (
	"strings"
	"testing"

	"intenserp-api/internal/chat"
)

func TestFormatClassicRole(t *testing.T) {
	req := &chat.Request{
		Messages: []chat.Message{
			msg(chat.RoleSystem, "rules"),
			msg(chat.RoleUser, "hello"),
			msg(chat.RoleAssistant, "hi"),
		},
		Character: chat.NewCharacterInfo(),
	}

	f := NewFormatter(testConfig(nil))
	got := f.Format(req)
	want := "[Important Information]\nsystem: rules\n\nuser: hello\n\nassistant: hi"
	if got != want {
		t.Errorf("Format() = %q, want %q", got, want)
	}
}

func TestFormatNamePreset(t *testing.T) {
	req := &chat.Request{
		Messages: []chat.Message{
			msg(chat.RoleUser, "hello"),
			msg(chat.RoleAssistant, "hi"),
		},
		Character: &chat.CharacterInfo{CharacterName: "Aria", UserName: "Sam"},
	}

	f := NewFormatter(testConfig(map[string]interface{}{
		"formatting.preset": "Classic (Name)",
		"injection.enabled": false,
	}))
	got := f.Format(req)
	want := "Sam: hello\n\nAria: hi"
	if got != want {
		t.Errorf("Format() = %q, want %q", got, want)
	}
}

func TestFormatWrappedRole(t *testing.T) {
	req := &chat.Request{
		Messages:  []chat.Message{msg(chat.RoleUser, "hello")},
		Character: chat.NewCharacterInfo(),
	}

	f := NewFormatter(testConfig(map[string]interface{}{
		"formatting.preset": "Wrapped (Role)",
		"injection.enabled": false,
	}))
	got := f.Format(req)
	want := "<user>\nhello\n</user>"
	if got != want {
		t.Errorf("Format() = %q, want %q", got, want)
	}
}

func TestFormatInjectionPlaceholders(t *testing.T) {
	req := &chat.Request{
		Messages:  []chat.Message{msg(chat.RoleUser, "hello")},
		Character: &chat.CharacterInfo{CharacterName: "Aria", UserName: "Sam"},
	}

	f := NewFormatter(testConfig(map[string]interface{}{
		"injection.system_prompt": "[Info for {asstname} and {username}]",
	}))
	got := f.Format(req)
	if !strings.HasPrefix(got, "[Info for Aria and Sam]\n") {
		t.Errorf("Format() = %q", got)
	}
}

func TestFormatPrefixAppendsAssistantEntry(t *testing.T) {
	req := &chat.Request{
		Messages:      []chat.Message{msg(chat.RoleUser, "hello")},
		PrefixContent: "And so it begins",
		Character:     chat.NewCharacterInfo(),
	}

	f := NewFormatter(testConfig(map[string]interface{}{"injection.enabled": false}))
	got := f.Format(req)
	want := "user: hello\n\nassistant: And so it begins"
	if got != want {
		t.Errorf("Format() = %q, want %q", got, want)
	}
}

func TestFormatSkipsBlankMessages(t *testing.T) {
	req := &chat.Request{
		Messages: []chat.Message{
			msg(chat.RoleUser, "hello"),
			msg(chat.RoleAssistant, "   "),
		},
		Character: chat.NewCharacterInfo(),
	}

	f := NewFormatter(testConfig(map[string]interface{}{"injection.enabled": false}))
	if got := f.Format(req); got != "user: hello" {
		t.Errorf("Format() = %q", got)
	}
}

func TestFormatCustomRoleKeepsLabel(t *testing.T) {
	req := &chat.Request{
		Messages: []chat.Message{
			{Role: chat.RoleUser, OriginalRole: "narrator", Content: "scene opens"},
		},
		Character: chat.NewCharacterInfo(),
	}

	f := NewFormatter(testConfig(map[string]interface{}{"injection.enabled": false}))
	if got := f.Format(req); got != "narrator: scene opens" {
		t.Errorf("Format() = %q", got)
	}
}

// End-to-end: parse, process, format.
func TestPipelineScenario(t *testing.T) {
	body := `{"messages":[{"role":"user","content":"{{r1}} DATA1:\"Aria\" DATA2:\"Sam\" Hello"}],"model":"intense-rp-next-1"}`

	p := New(testConfig(nil))
	req, err := p.ProcessRequest([]byte(body))
	if err != nil {
		t.Fatal(err)
	}

	if !req.UseDeepthink {
		t.Error("expected deepthink from {{r1}} directive")
	}
	if req.Character.CharacterName != "Aria" {
		t.Errorf("character name = %q", req.Character.CharacterName)
	}
	if req.Character.UserName != "Sam" {
		t.Errorf("user name = %q", req.Character.UserName)
	}

	prompt := p.FormatForAPI(req)
	if !strings.Contains(prompt, "[Important Information]") {
		t.Errorf("prompt missing injection wrapper: %q", prompt)
	}
	for _, banned := range []string{"DATA1", "DATA2", "{{r1}}"} {
		if strings.Contains(prompt, banned) {
			t.Errorf("prompt still contains %q: %q", banned, prompt)
		}
	}
	if !strings.Contains(prompt, "Hello") {
		t.Errorf("prompt lost the user text: %q", prompt)
	}
}

func TestPipelineRejectsMissingMessages(t *testing.T) {
	p := New(testConfig(nil))
	if _, err := p.ProcessRequest([]byte(`{"model":"x"}`)); err == nil {
		t.Fatal("expected error for missing messages")
	}
}
