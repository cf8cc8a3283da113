// Package pipeline sequences one outreach run: fetch, clean, load portfolio,
// extract postings, then match links and compose an email per posting.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/amishk599/hireflow/internal/clean"
	"github.com/amishk599/hireflow/internal/metrics"
	"github.com/amishk599/hireflow/internal/model"
	"github.com/amishk599/hireflow/internal/portfolio"
)

var (
	// ErrInvalidURL is returned before any request when the URL lacks an http(s) scheme.
	ErrInvalidURL = errors.New("enter a valid URL starting with http:// or https://")
	// ErrEmptyPage is returned when the fetched page has no text.
	ErrEmptyPage = errors.New("could not load content from this URL")
)

// Extractor pulls postings out of cleaned page text.
type Extractor interface {
	Extract(ctx context.Context, cleaned string) ([]model.Posting, error)
}

// Composer drafts an email for one posting given newline-joined links.
type Composer interface {
	Compose(ctx context.Context, posting model.Posting, links string) (string, error)
}

// Portfolio is loaded once and queried per posting.
type Portfolio interface {
	Load(ctx context.Context) error
	Query(ctx context.Context, skills []string) ([][]model.Metadata, error)
}

// Runner is anything that can run the pipeline for a URL.
type Runner interface {
	Run(ctx context.Context, url string) (*model.Report, error)
}

// Pipeline owns one outreach run: fetch → clean → load → extract → match → compose.
type Pipeline struct {
	fetcher   model.PageFetcher
	portfolio Portfolio
	extractor Extractor
	composer  Composer
	notifier  model.Notifier
	metrics   *metrics.Recorder
	logger    *slog.Logger
}

// New creates a pipeline wired with all its dependencies. rec may be nil.
func New(
	fetcher model.PageFetcher,
	portfolio Portfolio,
	extractor Extractor,
	composer Composer,
	notifier model.Notifier,
	rec *metrics.Recorder,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		fetcher:   fetcher,
		portfolio: portfolio,
		extractor: extractor,
		composer:  composer,
		notifier:  notifier,
		metrics:   rec,
		logger:    logger,
	}
}

// ValidURL reports whether url has an http:// or https:// scheme.
func ValidURL(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

// Run executes one run for url. Nothing is retried; on error the partial
// results are dropped.
func (p *Pipeline) Run(ctx context.Context, url string) (report *model.Report, err error) {
	defer func() {
		if v := recover(); v != nil {
			p.metrics.ObserveRun(metrics.OutcomeError)
			panic(v)
		}
		p.metrics.ObserveRun(outcome(report, err))
	}()

	if !ValidURL(url) {
		return nil, ErrInvalidURL
	}

	start := time.Now()
	page, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	p.metrics.ObserveStage("fetch", time.Since(start))
	if strings.TrimSpace(page.Text) == "" {
		return nil, ErrEmptyPage
	}

	cleaned := clean.Text(page.Text)
	p.logger.Debug("page cleaned", "url", url, "title", page.Title, "raw_chars", len(page.Text), "clean_chars", len(cleaned))

	if err := p.portfolio.Load(ctx); err != nil {
		return nil, err
	}

	start = time.Now()
	postings, err := p.extractor.Extract(ctx, cleaned)
	if err != nil {
		return nil, fmt.Errorf("extracting postings: %w", err)
	}
	p.metrics.ObserveStage("extract", time.Since(start))
	p.metrics.AddPostings(len(postings))

	report = &model.Report{URL: url, Title: page.Title}
	if len(postings) == 0 {
		p.logger.Warn("no jobs detected", "url", url)
		report.NoJobs = true
		return report, nil
	}

	for i, posting := range postings {
		skills := posting.Skills()

		groups, err := p.portfolio.Query(ctx, skills)
		if err != nil {
			return nil, fmt.Errorf("posting %d: %w", i+1, err)
		}
		links := portfolio.FlattenLinks(groups)

		start = time.Now()
		email, err := p.composer.Compose(ctx, posting, strings.Join(links, "\n"))
		if err != nil {
			return nil, fmt.Errorf("posting %d: composing email: %w", i+1, err)
		}
		p.metrics.ObserveStage("compose", time.Since(start))
		p.metrics.IncDrafts()

		p.logger.Debug("draft composed", "role", posting.Role.String(), "skills", skills, "links", len(links))
		report.Drafts = append(report.Drafts, model.Draft{Posting: posting, Links: links, Email: email})
	}

	if err := p.notifier.Notify(report.Drafts); err != nil {
		p.logger.Error("delivering drafts", "error", err)
	}

	p.logger.Info("run complete",
		"url", url,
		"postings", len(postings),
		"drafts", len(report.Drafts),
	)
	return report, nil
}

func outcome(report *model.Report, err error) string {
	var parseErr *model.ParseError
	switch {
	case errors.Is(err, ErrInvalidURL):
		return metrics.OutcomeInvalidURL
	case errors.Is(err, ErrEmptyPage):
		return metrics.OutcomeEmptyPage
	case errors.As(err, &parseErr):
		return metrics.OutcomeParseError
	case err != nil:
		return metrics.OutcomeError
	case report != nil && report.NoJobs:
		return metrics.OutcomeNoJobs
	default:
		return metrics.OutcomeOK
	}
}
