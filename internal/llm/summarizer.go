package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/rulelens/internal/log"
	"github.com/ppiankov/rulelens/internal/model"
)

// Throttle delays a request until the limiter for key admits it
type Throttle interface {
	Wait(ctx context.Context, key string) error
}

// Summarizer produces optional prose summaries of rule views.
// A summary is generated after the view is computed and never changes it.
type Summarizer struct {
	provider Provider
	config   Config
	throttle Throttle
}

// NewSummarizer creates a summarizer. A config without a provider yields a disabled summarizer.
func NewSummarizer(config Config) (*Summarizer, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}
	return &Summarizer{provider: provider, config: config}, nil
}

// SetThrottle installs a rate limiter applied before each provider call
func (s *Summarizer) SetThrottle(t Throttle) {
	s.throttle = t
}

// IsEnabled reports whether a provider is configured
func (s *Summarizer) IsEnabled() bool {
	return s != nil && s.provider != nil
}

// ProviderName returns the configured provider name, or "" when disabled
func (s *Summarizer) ProviderName() string {
	if !s.IsEnabled() {
		return ""
	}
	return s.provider.Name()
}

// GenerateSummary describes view with the configured provider.
// Provider failures are reported as warnings on the returned summary, not as errors.
func (s *Summarizer) GenerateSummary(ctx context.Context, view model.RuleView) (*model.LLMSummary, error) {
	if !s.IsEnabled() {
		return nil, nil
	}

	logger := log.WithContext(ctx).With("provider", s.provider.Name())

	if !s.provider.IsAvailable(ctx) {
		return &model.LLMSummary{
			Enabled:      false,
			Provider:     s.provider.Name(),
			StrictValues: s.config.StrictValues,
			Warnings:     []string{fmt.Sprintf("LLM provider %s is not available", s.provider.Name())},
		}, nil
	}

	summary := &model.LLMSummary{
		Enabled:      true,
		Provider:     s.provider.Name(),
		Model:        s.config.Model,
		StrictValues: s.config.StrictValues,
	}

	if view.IsEmpty() {
		summary.Warnings = append(summary.Warnings, "No rules to summarize")
		return summary, nil
	}

	if s.throttle != nil {
		if err := s.throttle.Wait(ctx, s.endpoint()); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	allowed := AllowedValues(view)
	resp, err := s.provider.Summarize(ctx, SummarizeRequest{
		View:          view,
		AllowedValues: allowed,
		Model:         s.config.Model,
		MaxTokens:     s.config.MaxTokens,
	})
	if err != nil {
		logger.Warn("summary generation failed", "error", err)
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("LLM summary generation failed: %v", err))
		return summary, nil
	}

	if resp.Model != "" {
		summary.Model = resp.Model
	}
	summary.SummaryMD = resp.Summary
	summary.Warnings = append(summary.Warnings, fmt.Sprintf("Tokens used: %d", resp.TokensUsed))
	if s.config.StrictValues {
		summary.Warnings = append(summary.Warnings,
			fmt.Sprintf("Verified %d quoted values against the view", len(resp.QuotedValues)))
	}

	logger.Debug("summary generated", "model", summary.Model, "tokens", resp.TokensUsed)
	return summary, nil
}

// endpoint is the rate limiting key for the provider
func (s *Summarizer) endpoint() string {
	if s.config.BaseURL != "" {
		return s.config.BaseURL
	}
	return "llm://" + s.provider.Name()
}

// RenderSeparateMarkdown renders a summary as a standalone markdown document,
// kept apart from the deterministic rule output.
func RenderSeparateMarkdown(summary *model.LLMSummary) string {
	if summary == nil || !summary.Enabled {
		return ""
	}

	var b strings.Builder
	b.WriteString("# LLM Summary\n\n")
	b.WriteString("> **GENERATED CONTENT.** This text was written by a language model. ")
	b.WriteString("The rules it describes were determined independently by rulelens and are not affected by it.\n\n")

	fmt.Fprintf(&b, "- **Provider:** %s\n", summary.Provider)
	if summary.Model != "" {
		fmt.Fprintf(&b, "- **Model:** %s\n", summary.Model)
	}
	fmt.Fprintf(&b, "- **Strict Value Mode:** %t\n\n", summary.StrictValues)

	if summary.SummaryMD == "" {
		b.WriteString("_No summary generated._\n")
	} else {
		b.WriteString(summary.SummaryMD)
		b.WriteString("\n")
	}

	if len(summary.Warnings) > 0 {
		b.WriteString("\n## Notes\n\n")
		for _, w := range summary.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}

	return b.String()
}
