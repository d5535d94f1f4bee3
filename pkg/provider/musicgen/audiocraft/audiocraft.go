// Package audiocraft provides a musicgen.Provider backed by an Audiocraft
// MusicGen inference server exposing POST /generate. The server accepts URL-
// encoded form fields (prompt, duration, seed, tempo_bpm, key) and streams
// back a WAV body.
package audiocraft

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sonicmuse/sonicmuse/pkg/provider/musicgen"
)

// Generation can take minutes for long requests on CPU-only hosts.
const defaultTimeout = 10 * time.Minute

// Compile-time assertion that Client implements musicgen.Provider.
var _ musicgen.Provider = (*Client)(nil)

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// Client implements musicgen.Provider against a MusicGen inference server.
// It is stateless between calls and safe for concurrent use; whether the
// server serialises inferences is the server's concern.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client targeting the inference server at baseURL
// (e.g., "http://localhost:8001").
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("audiocraft: baseURL must not be empty")
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Generate submits the generation request and returns the WAV body.
func (c *Client) Generate(ctx context.Context, req musicgen.Request) ([]byte, error) {
	if req.Prompt == "" {
		return nil, errors.New("audiocraft: prompt must not be empty")
	}

	form := url.Values{
		"prompt":    {req.Prompt},
		"duration":  {strconv.Itoa(req.DurationSeconds)},
		"seed":      {strconv.FormatInt(req.Seed, 10)},
		"tempo_bpm": {strconv.Itoa(req.TempoBPM)},
		"key":       {req.Key},
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/generate", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("audiocraft: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("audiocraft: generate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("audiocraft: server returned %d: %s", resp.StatusCode, msg)
	}

	wav, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("audiocraft: read waveform: %w", err)
	}
	if len(wav) == 0 {
		return nil, errors.New("audiocraft: server returned empty waveform")
	}
	return wav, nil
}
