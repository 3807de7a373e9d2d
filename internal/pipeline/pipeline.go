// Package pipeline applies the ordered message-processing stages that turn a
// parsed chat request into the prompt pasted into the target site. The stage
// order is fixed at construction: settings resolution runs before character
// substitution because directive markers live inside the same content the
// name extraction scans.
package pipeline

import (
	"fmt"

	"intenserp-api/internal/chat"
	"intenserp-api/internal/config"
)

// Processor is one transformation stage over a chat request.
type Processor interface {
	Name() string
	CanProcess(req *chat.Request) bool
	Process(req *chat.Request) error
}

// ProcessingError wraps a stage failure with the name of the stage that
// raised it. A failure aborts the rest of the chain.
type ProcessingError struct {
	Stage string
	Err   error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("processor %s: %v", e.Stage, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// Chain runs processors in registration order, skipping stages whose
// CanProcess declines the request.
type Chain struct {
	processors []Processor
}

func NewChain(processors ...Processor) *Chain {
	return &Chain{processors: processors}
}

func (c *Chain) Process(req *chat.Request) error {
	for _, p := range c.processors {
		if !p.CanProcess(req) {
			continue
		}
		if err := p.Process(req); err != nil {
			return &ProcessingError{Stage: p.Name(), Err: err}
		}
	}
	return nil
}

// Pipeline bundles parsing, the processor chain, and prompt formatting.
type Pipeline struct {
	chain     *Chain
	formatter *Formatter
}

// New builds the default pipeline: settings processor, then character
// processor, then the configured formatter.
func New(cfg *config.Store) *Pipeline {
	return &Pipeline{
		chain: NewChain(
			NewSettingsProcessor(cfg),
			NewCharacterProcessor(),
		),
		formatter: NewFormatter(cfg),
	}
}

// ProcessRequest parses the raw body and runs it through the chain. Parse
// failures surface as chat.ErrInvalidRequest; stage failures as
// *ProcessingError.
func (p *Pipeline) ProcessRequest(body []byte) (*chat.Request, error) {
	req, err := chat.ParseRequest(body)
	if err != nil {
		return nil, err
	}
	if err := p.chain.Process(req); err != nil {
		return nil, err
	}
	return req, nil
}

// FormatForAPI renders the processed request into the prompt string.
func (p *Pipeline) FormatForAPI(req *chat.Request) string {
	return p.formatter.Format(req)
}
