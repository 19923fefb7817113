// Package guidance talks to the external text generation service that
// drafts first-aid guidance for an incident.
package guidance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/nearhelp/sos-engine/internal/core/domain"
	"github.com/nearhelp/sos-engine/internal/core/ports"
)

const (
	defaultTimeout  = 10 * time.Second
	maxResponseBody = 256 << 10
)

// ErrNotConfigured is returned when no service URL is set; callers serve the
// static fallback instead.
var ErrNotConfigured = errors.New("guidance service not configured")

// Config holds the endpoint settings.
type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// Client is a ports.GuidanceGenerator over HTTP.
type Client struct {
	http *fasthttp.Client
	cfg  Config
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg: cfg,
		http: &fasthttp.Client{
			Name:                "sos-engine",
			ReadTimeout:         cfg.Timeout,
			WriteTimeout:        cfg.Timeout,
			MaxIdleConnDuration: 90 * time.Second,
			MaxResponseBodySize: maxResponseBody,
			// Generation is not idempotent from a cost point of view.
			MaxIdemponentCallAttempts: 1,
		},
	}
}

type generateRequest struct {
	CrisisType string `json:"crisis_type"`
	Prompt     string `json:"prompt"`
}

// Generate asks the service for guidance and returns its JSON body as text.
func (c *Client) Generate(ctx context.Context, crisisType domain.CrisisType) (string, error) {
	if c.cfg.URL == "" {
		return "", ErrNotConfigured
	}

	timeout := c.cfg.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return "", context.DeadlineExceeded
	}

	body, err := json.Marshal(generateRequest{CrisisType: string(crisisType), Prompt: prompt(crisisType)})
	if err != nil {
		return "", fmt.Errorf("encode guidance request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.cfg.URL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	req.SetBody(body)

	if err := c.http.DoTimeout(req, resp, timeout); err != nil {
		return "", fmt.Errorf("guidance request: %w", err)
	}
	if code := resp.StatusCode(); code < 200 || code >= 300 {
		return "", fmt.Errorf("guidance request: unexpected status %d", code)
	}

	return clean(resp.Body())
}

// clean strips markdown fences some models wrap around JSON and checks the
// remainder is a JSON document.
func clean(raw []byte) (string, error) {
	text := strings.TrimSpace(string(raw))
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)
	if text == "" || !json.Valid([]byte(text)) {
		return "", fmt.Errorf("guidance response is not JSON")
	}
	return text, nil
}

func prompt(ct domain.CrisisType) string {
	return fmt.Sprintf(`You are an emergency first responder assistant.
A %s emergency has been reported.

Reply with JSON only, in this shape:
{"immediate_steps": ["..."], "do_not": ["..."], "emergency_summary": "two sentences for emergency services", "call_numbers": ["112"]}

Be concise, clear and practical. This is a real emergency.`, ct)
}

var _ ports.GuidanceGenerator = (*Client)(nil)
