package ai

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"text/template"

	"github.com/amishk599/hireflow/internal/model"
)

// NoLinksPlaceholder replaces the link list when no portfolio entry matched.
const NoLinksPlaceholder = "No portfolio links available"

// Persona is who the outreach emails are written as.
type Persona struct {
	Name    string
	Title   string
	Company string
	Pitch   string
}

// DefaultPersona is used for any persona field the config leaves empty.
var DefaultPersona = Persona{
	Name:    "Sanket Borse",
	Title:   "Business Development Executive",
	Company: "Accenture",
	Pitch: "Accenture is an AI & Software Consulting company dedicated to facilitating\n" +
		"the seamless integration of business processes through automated tools.\n" +
		"Over your experience, you have empowered numerous enterprises with tailored solutions,\n" +
		"fostering scalability, process optimization, cost reduction, and heightened efficiency.",
}

// EmailComposer drafts one cold email per posting.
type EmailComposer struct {
	provider LLMProvider
	tmpl     *template.Template
	persona  Persona
	logger   *slog.Logger
}

// NewEmailComposer creates a composer writing as persona.
func NewEmailComposer(provider LLMProvider, tmpl *template.Template, persona Persona, logger *slog.Logger) *EmailComposer {
	return &EmailComposer{
		provider: provider,
		tmpl:     tmpl,
		persona:  persona,
		logger:   logger,
	}
}

// Compose returns the model's email for posting verbatim. links is the
// newline-joined portfolio link list and may be empty.
func (c *EmailComposer) Compose(ctx context.Context, posting model.Posting, links string) (string, error) {
	if links == "" {
		links = NoLinksPlaceholder
	}

	var promptBuf bytes.Buffer
	data := struct {
		Job     string
		Links   string
		Persona Persona
	}{
		Job:     posting.JSON(),
		Links:   links,
		Persona: c.persona,
	}
	if err := c.tmpl.Execute(&promptBuf, data); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}

	email, err := c.provider.Complete(ctx, promptBuf.String())
	if err != nil {
		return "", fmt.Errorf("llm complete: %w", err)
	}
	c.logger.Debug("composed email", "role", posting.Role.String(), "chars", len(email))
	return email, nil
}
