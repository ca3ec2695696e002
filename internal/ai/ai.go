// Package ai defines the text-summarization provider boundary.
package ai

import (
	"context"
	"errors"
	"fmt"
)

// Provider produces a one-paragraph summary of an inspector's field report.
type Provider interface {
	// Summarize condenses the report text, highlighting the main finding
	// and the action taken.
	Summarize(ctx context.Context, text string) (string, error)
}

// Provider errors. The service layer converts these to user-facing
// placeholder text; they never surface as request failures.
var (
	// ErrNotConfigured indicates no API key was configured.
	ErrNotConfigured = errors.New("ai provider not configured")

	// ErrEmptyResponse indicates the model returned no usable text.
	ErrEmptyResponse = errors.New("ai provider returned empty response")

	// ErrUnavailable indicates a transport or upstream failure.
	ErrUnavailable = errors.New("ai service unavailable")
)

// WrapError adds the failing operation to a provider error.
func WrapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("ai %s: %w", operation, err)
}
