// Package openai provides an extractor backed by the OpenAI Chat
// Completions API. It adapts the shared extraction prompt into the SDK's
// message format and parses the JSON reply back into an extract.Result.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/fixado/dialog/extract"
)

// Options configure the OpenAI extractor adapter.
// Fields mirror a subset of Chat Completion parameters intentionally kept
// minimal; extend via functional options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Extractor wraps the OpenAI Chat Completions API behind the generic
// extract.Extractor interface.
type Extractor struct {
	client *openai.Client
	opts   Options
}

var _ extract.Extractor = (*Extractor)(nil)

// NewExtractor creates a new OpenAI extractor using the official client.
func NewExtractor(optFns ...func(o *Options)) *Extractor {
	client := openai.NewClient()
	return NewExtractorFromClient(&client, optFns...)
}

// NewExtractorFromClient creates a new OpenAI extractor from an existing client.
func NewExtractorFromClient(client *openai.Client, optFns ...func(o *Options)) *Extractor {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.1,
		MaxCompletionTokens: 1024,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Extractor{client: client, opts: opts}
}

// Extract implements extract.Extractor.
func (e *Extractor) Extract(ctx context.Context, req extract.Request) (*extract.Result, error) {
	text, err := e.Complete(ctx, extract.SystemPrompt(), extract.UserPrompt(req))
	if err != nil {
		return nil, err
	}

	return extract.ParseResult(text)
}

// Complete sends a single system+user exchange to the Chat Completions API
// and returns the raw text reply. Used for auxiliary classification prompts.
func (e *Extractor) Complete(ctx context.Context, system, user string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:               e.opts.Model,
		Temperature:         openai.Float(e.opts.Temperature),
		MaxCompletionTokens: openai.Int(e.opts.MaxCompletionTokens),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	}

	resp, err := e.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("openai api error: empty response")
	}

	return resp.Choices[0].Message.Content, nil
}

// Info implements extract.Extractor.
func (e *Extractor) Info() extract.Info {
	return extract.Info{Name: e.opts.Model, Provider: "openai"}
}
