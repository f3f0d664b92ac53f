// Package summarize is a thin client to the Gemini generateContent API.
// It is deliberately not part of the document engine: its obligations
// are payload bounding, typed failure, and deadline obedience.
package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dgallion1/pdfsift/internal/fault"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Result is the summarize operation's payload.
type Result struct {
	Summary string `json:"summary"`
}

// Client calls the Gemini generateContent endpoint.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	maxChars   int
	httpClient *http.Client

	// Stats aggregates call latencies for the stats endpoint.
	Stats *Stats
}

func NewClient(apiKey, model string, maxChars int) *Client {
	return &Client{
		apiKey:   apiKey,
		model:    model,
		baseURL:  defaultBaseURL,
		maxChars: maxChars,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		Stats: NewStats(time.Hour),
	}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// SetBaseURL overrides the API endpoint. Used by tests.
func (c *Client) SetBaseURL(u string) { c.baseURL = strings.TrimRight(u, "/") }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// Summarize sends the document text and returns the model's summary.
// The outbound payload is truncated to the configured character ceiling.
// Transient failures (transport errors, 429, 5xx) surface as
// *RetryableError; everything else is a well-formed service refusal.
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	prompt := "Summarize the following document content:\n\n" + Truncate(text, c.maxChars)

	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: prompt}}},
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &RetryableError{Message: err.Error()}
	}
	defer resp.Body.Close()
	c.Stats.Record(time.Since(start).Milliseconds())

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", &RetryableError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return "", fault.Errorf(fault.SummarizeUnavailable, "gemini status %d: %s", resp.StatusCode, truncateASCII(string(respBody), 500))
	}

	var apiResp geminiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fault.Errorf(fault.SummarizeUnavailable, "decode response: %w", err)
	}
	if apiResp.Error != nil {
		return "", fault.Errorf(fault.SummarizeUnavailable, "gemini error %s: %s", apiResp.Error.Status, apiResp.Error.Message)
	}

	var out strings.Builder
	for _, cand := range apiResp.Candidates {
		for _, part := range cand.Content.Parts {
			out.WriteString(part.Text)
		}
		break // first candidate only
	}
	summary := strings.TrimSpace(out.String())
	if summary == "" {
		return "", fault.Errorf(fault.SummarizeUnavailable, "empty response from gemini")
	}
	return summary, nil
}

// Truncate cuts s to at most n bytes without splitting a rune.
func Truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func truncateASCII(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// RetryableError indicates a transient failure worth one more attempt.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("retryable error: %s", truncateASCII(e.Message, 200))
	}
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncateASCII(e.Message, 200))
}

// Close releases resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
