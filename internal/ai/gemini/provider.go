// Package gemini implements the summarization provider against the Google
// Gemini REST API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fiscaliza-obras/fiscaliza/internal/ai"
)

const (
	// APIBaseURL is the generateContent endpoint, parameterized by model.
	APIBaseURL = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent"

	// DefaultModel is the Gemini model used for summarization.
	DefaultModel = "gemini-2.5-flash"
)

// promptTemplate asks for a single concise paragraph in Portuguese.
const promptTemplate = `Resuma o seguinte relatório de fiscalização em um parágrafo conciso, destacando a constatação principal e a ação tomada. Relatório: %q`

// Config contains configuration for the Gemini provider.
type Config struct {
	APIKey         string
	Model          string
	RequestTimeout time.Duration
}

// Provider implements ai.Provider using Gemini's generateContent endpoint.
type Provider struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// New creates a Gemini provider. An empty API key is allowed: every call
// then fails with ai.ErrNotConfigured, which the service layer turns into
// placeholder text.
func New(config Config, logger *slog.Logger) *Provider {
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.RequestTimeout == 0 {
		config.RequestTimeout = 30 * time.Second
	}
	return &Provider{
		config: config,
		client: &http.Client{Timeout: config.RequestTimeout},
		logger: logger,
	}
}

// =============================================================================
// Wire Types
// =============================================================================

type apiRequest struct {
	Contents []apiContent `json:"contents"`
}

type apiContent struct {
	Parts []apiPart `json:"parts"`
}

type apiPart struct {
	Text string `json:"text"`
}

type apiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []apiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// =============================================================================
// Summarize
// =============================================================================

// Summarize sends the report text to Gemini and returns the trimmed summary.
func (p *Provider) Summarize(ctx context.Context, text string) (string, error) {
	if p.config.APIKey == "" {
		return "", ai.ErrNotConfigured
	}

	reqBody := apiRequest{
		Contents: []apiContent{
			{Parts: []apiPart{{Text: fmt.Sprintf(promptTemplate, text)}}},
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", ai.WrapError("marshal request", err)
	}

	url := fmt.Sprintf(APIBaseURL, p.config.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", ai.WrapError("build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", p.config.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ai.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ai.ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		p.logger.Error("gemini api error",
			"status", resp.StatusCode,
			"model", p.config.Model,
		)
		return "", fmt.Errorf("%w: status %d", ai.ErrUnavailable, resp.StatusCode)
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", ai.WrapError("parse response", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("%w: %s", ai.ErrUnavailable, parsed.Error.Message)
	}

	summary := extractText(parsed)
	if summary == "" {
		return "", ai.ErrEmptyResponse
	}
	return summary, nil
}

// extractText concatenates the text parts of the first candidate.
func extractText(resp apiResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return strings.TrimSpace(sb.String())
}
