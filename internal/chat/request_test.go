package chat

import (
	"errors"
	"testing"
)

func TestParseRequestDefaults(t *testing.T) {
	req, err := ParseRequest([]byte(`{"messages":[{"role":"user","content":"hi"}]}`))
	if err != nil {
		t.Fatal(err)
	}

	if req.Model != DefaultModel {
		t.Errorf("model = %q", req.Model)
	}
	if req.Temperature != 1.0 {
		t.Errorf("temperature = %v", req.Temperature)
	}
	if req.MaxTokens != 300 {
		t.Errorf("max_tokens = %d", req.MaxTokens)
	}
	if req.Stream {
		t.Error("stream should default to false")
	}
	if req.HasPrefix() {
		t.Error("no prefix expected")
	}
}

func TestParseRequestErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "nope"},
		{"missing messages", `{"model":"x"}`},
		{"messages not a list", `{"messages":"hi"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRequest([]byte(tt.body))
			if !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("err = %v, want ErrInvalidRequest", err)
			}
		})
	}
}

func TestPrefixExtraction(t *testing.T) {
	body := `{"messages":[
		{"role":"user","content":"hi"},
		{"role":"assistant","content":"And then"}
	]}`
	req, err := ParseRequest([]byte(body))
	if err != nil {
		t.Fatal(err)
	}

	if req.PrefixContent != "And then" {
		t.Errorf("prefix = %q", req.PrefixContent)
	}
	if len(req.Messages) != 1 {
		t.Errorf("message count = %d, trailing assistant message must move to prefix", len(req.Messages))
	}
}

func TestPrefixNotExtractedWhenBlank(t *testing.T) {
	body := `{"messages":[
		{"role":"user","content":"hi"},
		{"role":"assistant","content":"   "}
	]}`
	req, err := ParseRequest([]byte(body))
	if err != nil {
		t.Fatal(err)
	}

	if req.HasPrefix() {
		t.Error("blank assistant tail must not become a prefix")
	}
	if len(req.Messages) != 2 {
		t.Errorf("message count = %d", len(req.Messages))
	}
}

func TestModelSuffixes(t *testing.T) {
	tests := []struct {
		model    string
		chat     bool
		reasoner bool
		base     string
	}{
		{"intense-rp-next-1", false, false, "intense-rp-next-1"},
		{"intense-rp-next-1-chat", true, false, "intense-rp-next-1"},
		{"intense-rp-next-1-reasoner", false, true, "intense-rp-next-1"},
	}
	for _, tt := range tests {
		req := &Request{Model: tt.model}
		if req.IsChatModel() != tt.chat {
			t.Errorf("%s: IsChatModel = %v", tt.model, req.IsChatModel())
		}
		if req.IsReasonerModel() != tt.reasoner {
			t.Errorf("%s: IsReasonerModel = %v", tt.model, req.IsReasonerModel())
		}
		if req.BaseModelName() != tt.base {
			t.Errorf("%s: BaseModelName = %q", tt.model, req.BaseModelName())
		}
	}
}

func TestNameAliases(t *testing.T) {
	req, err := ParseRequest([]byte(`{
		"messages":[{"role":"user","content":"hi"}],
		"char_name":"Primary","DATA1":"Alias",
		"DATA2":"FromData2"
	}`))
	if err != nil {
		t.Fatal(err)
	}

	if req.APICharName == nil || *req.APICharName != "Primary" {
		t.Errorf("char_name should beat DATA1, got %v", req.APICharName)
	}
	if req.APIUserName == nil || *req.APIUserName != "FromData2" {
		t.Errorf("DATA2 should fill user name, got %v", req.APIUserName)
	}
}

func TestBlankNameFallsThroughToAlias(t *testing.T) {
	req, err := ParseRequest([]byte(`{
		"messages":[{"role":"user","content":"hi"}],
		"char_name":"","DATA1":"Alias",
		"user_name":"  ","DATA2":"Reader"
	}`))
	if err != nil {
		t.Fatal(err)
	}

	if req.APICharName == nil || *req.APICharName != "Alias" {
		t.Errorf("blank char_name should not suppress DATA1, got %v", req.APICharName)
	}
	if req.APIUserName == nil || *req.APIUserName != "Reader" {
		t.Errorf("blank user_name should not suppress DATA2, got %v", req.APIUserName)
	}
}

func TestContentCoercion(t *testing.T) {
	body := `{"messages":[
		{"role":"user","content":[
			{"type":"text","text":"part one"},
			{"type":"image_url","image_url":{"url":"x"}},
			{"type":"text","text":"part two"}
		]}
	]}`
	req, err := ParseRequest([]byte(body))
	if err != nil {
		t.Fatal(err)
	}
	if got := req.Messages[0].Content; got != "part one part two" {
		t.Errorf("content = %q", got)
	}
}

func TestCustomRoleNormalization(t *testing.T) {
	req, err := ParseRequest([]byte(`{"messages":[{"role":"narrator","content":"scene"}]}`))
	if err != nil {
		t.Fatal(err)
	}

	m := req.Messages[0]
	if m.Role != RoleUser {
		t.Errorf("role = %q, custom roles normalize to user", m.Role)
	}
	if !m.IsCustomRole() || m.DisplayRole() != "narrator" {
		t.Errorf("display role = %q", m.DisplayRole())
	}
}

func TestUniqueUserNames(t *testing.T) {
	req := &Request{Messages: []Message{
		{Role: RoleUser, Name: "Alice"},
		{Role: RoleUser, Name: "Bob"},
		{Role: RoleUser, Name: "Alice"},
		{Role: RoleAssistant, Name: "Ignored"},
	}}

	names := req.UniqueUserNames()
	if len(names) != 2 || names[0] != "Alice" || names[1] != "Bob" {
		t.Errorf("names = %v", names)
	}
	if !req.HasMultipleUsers() {
		t.Error("expected multiple users")
	}
}
