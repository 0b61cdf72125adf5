// Package ai generates an optional plain-language summary of a detected
// change using the Anthropic Messages API.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mkessler/sitepulse/internal/diff"
)

const anthropicAPI = "https://api.anthropic.com/v1/messages"

// Summarizer handles communication with the Claude API.
type Summarizer struct {
	apiKey string
	model  string
}

// NewSummarizer creates a new Claude API client.
func NewSummarizer(apiKey, model string) *Summarizer {
	return &Summarizer{
		apiKey: apiKey,
		model:  model,
	}
}

// anthropicRequest is the request body for the Anthropic Messages API.
type anthropicRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// anthropicResponse is the response body from the Anthropic Messages API.
type anthropicResponse struct {
	Content []contentBlock `json:"content"`
	Error   *apiError      `json:"error,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Summarize describes the added and removed parts of a diff in one short
// paragraph. On failure the caller sends the report without a summary; this
// never blocks a notification.
func (s *Summarizer) Summarize(ctx context.Context, url string, segs []diff.Segment) (string, error) {
	var sb strings.Builder
	sb.WriteString("A monitored web page changed. Summarize what changed in one short paragraph ")
	sb.WriteString("of plain text for an email alert. Focus on the meaning of the change, not its formatting. ")
	sb.WriteString("Respond with ONLY the summary, nothing else.\n\n")
	sb.WriteString("Page: " + url + "\n\n")

	for _, seg := range segs {
		switch seg.Kind {
		case diff.Added:
			sb.WriteString("ADDED:\n" + seg.Text + "\n\n")
		case diff.Removed:
			sb.WriteString("REMOVED:\n" + seg.Text + "\n\n")
		}
	}

	text, err := s.call(ctx, sb.String(), 512)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// call sends a prompt to the Claude API and returns the text response.
func (s *Summarizer) call(ctx context.Context, prompt string, maxTokens int) (string, error) {
	reqBody := anthropicRequest{
		Model:     s.model,
		MaxTokens: maxTokens,
		Messages: []message{
			{Role: "user", Content: prompt},
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicAPI, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if apiResp.Error != nil {
		return "", fmt.Errorf("API error: %s", apiResp.Error.Message)
	}

	for _, block := range apiResp.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}

	return "", fmt.Errorf("no text content in response")
}
