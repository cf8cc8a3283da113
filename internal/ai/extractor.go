package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"text/template"

	"github.com/amishk599/hireflow/internal/model"
)

// MaxPageChars bounds the page text sent to the model. The cut is hard and
// ignores word boundaries.
const MaxPageChars = 8000

var bracketSpan = regexp.MustCompile(`(?s)\[.*\]`)

// JobExtractor asks the LLM for the job postings contained in careers page text.
type JobExtractor struct {
	provider LLMProvider
	tmpl     *template.Template
	logger   *slog.Logger
}

// NewJobExtractor creates an extractor rendering prompts with tmpl.
func NewJobExtractor(provider LLMProvider, tmpl *template.Template, logger *slog.Logger) *JobExtractor {
	return &JobExtractor{
		provider: provider,
		tmpl:     tmpl,
		logger:   logger,
	}
}

// Extract returns the postings found in cleaned. Unreadable model output is
// reported as *model.ParseError.
func (e *JobExtractor) Extract(ctx context.Context, cleaned string) ([]model.Posting, error) {
	pageData := truncate(cleaned, MaxPageChars)

	var promptBuf bytes.Buffer
	if err := e.tmpl.Execute(&promptBuf, struct{ PageData string }{PageData: pageData}); err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}

	raw, err := e.provider.Complete(ctx, promptBuf.String())
	if err != nil {
		return nil, fmt.Errorf("llm complete: %w", err)
	}

	values, err := parsePostings(raw)
	if err != nil {
		e.logger.Debug("unparseable extraction output", "output", raw)
		return nil, err
	}

	postings := make([]model.Posting, len(values))
	for i, v := range values {
		postings[i] = model.NewPosting(v)
	}
	e.logger.Debug("extracted postings", "postings", len(postings), "input_chars", len(pageData))
	return postings, nil
}

// parsePostings reads model output as a JSON object or array. When the output
// is not JSON as a whole, the widest bracketed span is tried instead.
func parsePostings(raw string) ([]any, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		span := bracketSpan.FindString(raw)
		if span == "" {
			return nil, &model.ParseError{Output: raw, Err: err}
		}
		if err := json.Unmarshal([]byte(span), &v); err != nil {
			return nil, &model.ParseError{Output: raw, Err: err}
		}
	}

	switch t := v.(type) {
	case []any:
		return t, nil
	case map[string]any:
		return []any{t}, nil
	default:
		return nil, &model.ParseError{Output: raw, Err: fmt.Errorf("expected object or array, got %T", v)}
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
