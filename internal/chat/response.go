package chat

import "time"

// CompletionID is the fixed id echoed on every completion envelope.
const CompletionID = "chatcmpl-intenserp"

// Response pairs generated text with the echo metadata serialized into the
// completion envelopes.
type Response struct {
	Content      string
	Model        string
	FinishReason string
}

// NewResponse builds a response with the only finish reason this relay
// produces.
func NewResponse(content, model string) Response {
	return Response{Content: content, Model: model, FinishReason: "stop"}
}

// Completion is the non-streaming chat.completion wire shape.
type Completion struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []CompletionChoice `json:"choices"`
}

type CompletionChoice struct {
	Index        int               `json:"index"`
	Message      CompletionMessage `json:"message"`
	FinishReason string            `json:"finish_reason"`
}

type CompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chunk is the streaming chat.completion.chunk wire shape.
type Chunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []ChunkChoice `json:"choices"`
}

type ChunkChoice struct {
	Index int        `json:"index"`
	Delta ChunkDelta `json:"delta"`
}

type ChunkDelta struct {
	Content string `json:"content"`
}

// Completion renders the full one-shot envelope.
func (r Response) Completion() Completion {
	return Completion{
		ID:      CompletionID,
		Object:  "chat.completion",
		Created: time.Now().UnixMilli(),
		Model:   r.Model,
		Choices: []CompletionChoice{{
			Message:      CompletionMessage{Role: "assistant", Content: r.Content},
			FinishReason: r.FinishReason,
		}},
	}
}

// Chunk renders one streaming delta envelope.
func (r Response) Chunk() Chunk {
	return Chunk{
		ID:      CompletionID,
		Object:  "chat.completion.chunk",
		Created: time.Now().UnixMilli(),
		Model:   r.Model,
		Choices: []ChunkChoice{{Delta: ChunkDelta{Content: r.Content}}},
	}
}

// ModelList is the GET /models wire shape.
type ModelList struct {
	Object string      `json:"object"`
	Data   []ModelInfo `json:"data"`
}

type ModelInfo struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
}

// Models lists the model ids this relay answers for: the base id plus the
// suffixed variants that force reasoning off/on.
func Models() ModelList {
	created := time.Now().UnixMilli()
	ids := []string{DefaultModel, DefaultModel + "-chat", DefaultModel + "-reasoner"}
	list := ModelList{Object: "list"}
	for _, id := range ids {
		list.Data = append(list.Data, ModelInfo{ID: id, Object: "model", Created: created})
	}
	return list
}
