// Package relay answers questions about the last rendered scrape by passing
// its text to a chat model.
package relay

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/JakeFAU/pagequery/internal/llm"
	"github.com/JakeFAU/pagequery/internal/logging"
	"github.com/JakeFAU/pagequery/internal/metrics"
	"github.com/JakeFAU/pagequery/internal/storage"
)

var (
	// ErrNoScrapedData reports that there is no usable record to ask about.
	ErrNoScrapedData = errors.New("no scraped data")
	// ErrQueryFailed reports that the model call failed. Details are logged.
	ErrQueryFailed = errors.New("query processing failed")
)

// PromptTemplate is the single user message sent to the model.
const PromptTemplate = "Based on this content: {content}, answer: {query}"

// Relay joins the stored record with a question and forwards it to a model.
type Relay struct {
	store    storage.RecordStore
	model    llm.ChatModel
	template prompt.ChatTemplate
	logger   *zap.Logger
}

// New wires a Relay.
func New(store storage.RecordStore, model llm.ChatModel, logger *zap.Logger) *Relay {
	logger = logging.OrNop(logger)
	return &Relay{
		store:    store,
		model:    model,
		template: prompt.FromMessages(schema.FString, schema.UserMessage(PromptTemplate)),
		logger:   logger,
	}
}

// Ask answers question using the stored scrape. The model is only called when
// a record loads cleanly.
func (r *Relay) Ask(ctx context.Context, question string) (string, error) {
	record, err := r.store.Load(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		metrics.ObserveQuery("no_data")
		return "", ErrNoScrapedData
	case errors.Is(err, storage.ErrCorrupt):
		metrics.ObserveQuery("no_data")
		r.logger.Warn("stored scrape unreadable", zap.Error(err))
		return "", fmt.Errorf("%w: %w", ErrNoScrapedData, err)
	case err != nil:
		metrics.ObserveQuery("error")
		r.logger.Error("load scrape record", zap.Error(err))
		return "", fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}

	messages, err := r.template.Format(ctx, map[string]any{
		"content": record.Content,
		"query":   question,
	})
	if err != nil {
		metrics.ObserveQuery("error")
		r.logger.Error("format prompt", zap.Error(err))
		return "", ErrQueryFailed
	}

	msg, err := r.model.Generate(ctx, messages)
	if err != nil {
		metrics.ObserveQuery("error")
		r.logger.Error("model call failed", zap.String("url", record.URL), zap.Error(err))
		return "", ErrQueryFailed
	}

	reply := llm.Resolve(msg)
	if _, ok := reply.(llm.OpaqueReply); ok {
		r.logger.Warn("model reply had no content", zap.String("url", record.URL))
	}
	metrics.ObserveQuery("success")
	return reply.Text(), nil
}
