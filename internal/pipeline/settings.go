package pipeline

import (
	"regexp"

	"intenserp-api/internal/chat"
	"intenserp-api/internal/config"
)

var (
	reasoningMarker = regexp.MustCompile(`(?i)(\{\{r1\}\}|\[r1\]|\(r1\))`)
	searchMarker    = regexp.MustCompile(`(?i)(\{\{search\}\}|\[search\])`)

	reasoningMarkerStrip = regexp.MustCompile(`(?i)(\{\{r1\}\}|\[r1\]|\(r1\))\s*`)
	searchMarkerStrip    = regexp.MustCompile(`(?i)(\{\{search\}\}|\[search\])\s*`)
	blankRun             = regexp.MustCompile(`\n[ \t]*\n(\s*\n)*`)
)

// SettingsProcessor resolves the deepthink/search/text-file feature flags
// from model suffix, API parameters, in-message directives, and config
// defaults, then strips the directive markers from user messages.
type SettingsProcessor struct {
	cfg *config.Store
}

func NewSettingsProcessor(cfg *config.Store) *SettingsProcessor {
	return &SettingsProcessor{cfg: cfg}
}

func (p *SettingsProcessor) Name() string { return "settings" }

func (p *SettingsProcessor) CanProcess(*chat.Request) bool { return true }

func (p *SettingsProcessor) Process(req *chat.Request) error {
	detected := detectDirectives(req.Messages)

	// Reasoning. Model suffix is absolute: -chat forces off, -reasoner
	// forces on, and neither consults any other source.
	switch {
	case req.IsChatModel():
		req.UseDeepthink = false
	case req.IsReasonerModel():
		req.UseDeepthink = true
	default:
		switch {
		case req.APIUseR1 != nil:
			req.UseDeepthink = *req.APIUseR1
		case req.APIUseSearch != nil:
			// A search flag without a reasoning flag resolves reasoning
			// from directive detection, not from the config default.
			// Deployed clients depend on this exact precedence.
			req.UseDeepthink = detected.deepthink
		default:
			req.UseDeepthink = detected.deepthink
		}
		if req.APIUseR1 == nil && !req.UseDeepthink {
			req.UseDeepthink = p.cfg.GetBool("models.deepseek.deepthink", false)
		}
	}

	// Search is independent of the model suffix.
	if req.APIUseSearch != nil {
		req.UseSearch = *req.APIUseSearch
	} else {
		req.UseSearch = detected.search
		if !req.UseSearch {
			req.UseSearch = p.cfg.GetBool("models.deepseek.search", false)
		}
	}

	// Text-file mode comes from configuration only.
	req.UseTextFile = p.cfg.GetBool("models.deepseek.text_file", false)

	for i := range req.Messages {
		if req.Messages[i].Role == chat.RoleUser {
			req.Messages[i].Content = StripDirectives(req.Messages[i].Content)
		}
	}

	return nil
}

type detectedDirectives struct {
	deepthink bool
	search    bool
}

// detectDirectives scans user messages for the feature markers. Any variant
// of a marker sets its flag.
func detectDirectives(messages []chat.Message) detectedDirectives {
	var d detectedDirectives
	for _, m := range messages {
		if m.Role != chat.RoleUser {
			continue
		}
		if reasoningMarker.MatchString(m.Content) {
			d.deepthink = true
		}
		if searchMarker.MatchString(m.Content) {
			d.search = true
		}
	}
	return d
}

// StripDirectives removes every directive marker from content and collapses
// runs of blank lines to a single one. Running it twice is a no-op.
func StripDirectives(content string) string {
	content = reasoningMarkerStrip.ReplaceAllString(content, "")
	content = searchMarkerStrip.ReplaceAllString(content, "")
	content = blankRun.ReplaceAllString(content, "\n\n")
	return trimSpace(content)
}
