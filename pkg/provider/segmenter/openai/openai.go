// Package openai provides a segmenter.Provider backed by the OpenAI API.
// The model receives the transcript with segment timings and returns a JSON
// array of sections.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/sonicmuse/sonicmuse/pkg/provider/segmenter"
	"github.com/sonicmuse/sonicmuse/pkg/types"
)

const systemPrompt = `You split spoken-audio transcripts into musically distinct sections.
Given a transcript with timestamped segments, return ONLY a JSON array of
sections, each {"t0": <start seconds>, "t1": <end seconds>, "text": <span text>}.
Sections must be ordered, non-overlapping, and cover the full transcript.
Prefer few sections; split only where the tone of the script clearly shifts.`

// Compile-time assertion that Provider implements segmenter.Provider.
var _ segmenter.Provider = (*Provider)(nil)

// Provider implements segmenter.Provider using the OpenAI chat API.
type Provider struct {
	client oai.Client
	model  string
}

// config holds optional configuration for the provider.
type config struct {
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// New constructs a new OpenAI-backed segmenter.
func New(apiKey, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("openai: model must not be empty")
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}))
	}

	return &Provider{client: oai.NewClient(reqOpts...), model: model}, nil
}

// Split implements segmenter.Provider.
func (p *Provider) Split(ctx context.Context, transcript string, segments []types.Segment) ([]types.Section, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString("Transcript:\n")
	sb.WriteString(transcript)
	sb.WriteString("\n\nSegments:\n")
	for _, s := range segments {
		fmt.Fprintf(&sb, "[%.2f-%.2f] %s\n", s.Start, s.End, s.Text)
	}

	completion, err := p.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model: oai.ChatModel(p.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(systemPrompt),
			oai.UserMessage(sb.String()),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai: segment request: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("openai: empty completion")
	}

	sections, err := parseSections(completion.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	return sections, nil
}

// parseSections extracts the JSON section array from the model output,
// tolerating surrounding prose or code fences, and normalises ordering.
func parseSections(content string) ([]types.Section, error) {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in completion")
	}

	var sections []types.Section
	if err := json.Unmarshal([]byte(content[start:end+1]), &sections); err != nil {
		return nil, fmt.Errorf("decode sections: %w", err)
	}

	sort.Slice(sections, func(i, j int) bool { return sections[i].Start < sections[j].Start })
	return sections, nil
}
