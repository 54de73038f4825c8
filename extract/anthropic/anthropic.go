// Package anthropic provides an extractor backed by the Anthropic Claude
// Messages API.
package anthropic

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/fixado/dialog/extract"
)

// Options configures the Anthropic extractor adapter (model id, temperature,
// max tokens, API key). Extend via functional options to preserve stability.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Extractor wraps the Anthropic Messages API behind the generic
// extract.Extractor interface.
type Extractor struct {
	client *anthropic.Client
	opts   Options
}

var _ extract.Extractor = (*Extractor)(nil)

// NewExtractor creates a new Anthropic extractor using the official client.
func NewExtractor(optFns ...func(o *Options)) *Extractor {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.1,
		MaxTokens:   1024,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Extractor{
		client: &client,
		opts:   opts,
	}
}

// NewExtractorFromClient creates a new Anthropic extractor from an existing client.
func NewExtractorFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Extractor {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.1,
		MaxTokens:   1024,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Extractor{
		client: client,
		opts:   opts,
	}
}

// Extract implements extract.Extractor. It sends the extraction prompt to
// the Messages API and parses the JSON body of the reply.
func (e *Extractor) Extract(ctx context.Context, req extract.Request) (*extract.Result, error) {
	text, err := e.Complete(ctx, extract.SystemPrompt(), extract.UserPrompt(req))
	if err != nil {
		return nil, err
	}

	return extract.ParseResult(text)
}

// Complete sends a single system+user exchange to the Messages API and
// returns the raw text reply. Used for auxiliary classification prompts.
func (e *Extractor) Complete(ctx context.Context, system, user string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       e.opts.Model,
		MaxTokens:   e.opts.MaxTokens,
		Temperature: anthropic.Float(e.opts.Temperature),
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	}

	resp, err := e.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.AsText().Text
		}
	}
	if text == "" {
		return "", fmt.Errorf("anthropic api error: empty response")
	}

	return text, nil
}

// Info implements extract.Extractor.
func (e *Extractor) Info() extract.Info {
	return extract.Info{Name: string(e.opts.Model), Provider: "anthropic"}
}
