// Package llm adapts a local Ollama runtime to the eino chat-model interface
// and normalizes its answers.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ChatModel is the subset of eino's model.BaseChatModel used by the relay.
type ChatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Config points at an Ollama server.
type Config struct {
	BaseURL string
	Model   string
	// Timeout bounds one Generate call. Zero means none.
	Timeout time.Duration
}

// NewOllama builds an eino ChatModel backed by Ollama's chat endpoint.
func NewOllama(ctx context.Context, cfg Config) (ChatModel, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("llm: model name is required")
	}
	cm, err := ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("init ollama chat model: %w", err)
	}
	return cm, nil
}

// Reply is a model answer. It is either a StructuredReply, when the runtime
// returned a message with content, or an OpaqueReply carrying whatever string
// form the response had.
type Reply interface {
	Text() string
	reply()
}

// StructuredReply holds the content field of a chat response.
type StructuredReply struct {
	Content string
}

// Text returns the message content.
func (r StructuredReply) Text() string { return r.Content }

func (StructuredReply) reply() {}

// OpaqueReply holds the string rendering of a response without content.
type OpaqueReply struct {
	Raw string
}

// Text returns the rendered response.
func (r OpaqueReply) Text() string { return r.Raw }

func (OpaqueReply) reply() {}

// Resolve classifies msg into a Reply.
func Resolve(msg *schema.Message) Reply {
	if msg == nil {
		return OpaqueReply{Raw: "<nil>"}
	}
	if msg.Content != "" {
		return StructuredReply{Content: msg.Content}
	}
	return OpaqueReply{Raw: msg.String()}
}
