package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/amishk599/hireflow/internal/ai"
	"github.com/amishk599/hireflow/internal/fetch"
	"github.com/amishk599/hireflow/internal/metrics"
	"github.com/amishk599/hireflow/internal/model"
	"github.com/amishk599/hireflow/internal/notifier"
	"github.com/amishk599/hireflow/internal/portfolio"
	"github.com/amishk599/hireflow/internal/vectorstore"
)

// --- Fakes ---

type fakeFetcher struct {
	page  model.Page
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (model.Page, error) {
	f.calls++
	if f.err != nil {
		return model.Page{}, f.err
	}
	p := f.page
	p.URL = url
	return p, nil
}

type fakePortfolio struct {
	loads   int
	queries [][]string
	links   map[string][]string
	loadErr error
}

func (p *fakePortfolio) Load(_ context.Context) error {
	p.loads++
	return p.loadErr
}

func (p *fakePortfolio) Query(_ context.Context, skills []string) ([][]model.Metadata, error) {
	p.queries = append(p.queries, skills)
	groups := make([][]model.Metadata, 0, len(skills))
	for _, s := range skills {
		var g []model.Metadata
		for _, l := range p.links[s] {
			g = append(g, model.Metadata{"links": l})
		}
		groups = append(groups, g)
	}
	return groups, nil
}

type fakeExtractor struct {
	postings []model.Posting
	err      error
	panic    any
	input    string
}

func (e *fakeExtractor) Extract(_ context.Context, cleaned string) ([]model.Posting, error) {
	if e.panic != nil {
		panic(e.panic)
	}
	e.input = cleaned
	return e.postings, e.err
}

type fakeComposer struct {
	links []string
	err   error
}

func (c *fakeComposer) Compose(_ context.Context, posting model.Posting, links string) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	c.links = append(c.links, links)
	return "Dear team, about " + posting.Role.String(), nil
}

type recordingNotifier struct {
	drafts []model.Draft
	err    error
}

func (n *recordingNotifier) Notify(drafts []model.Draft) error {
	n.drafts = append(n.drafts, drafts...)
	return n.err
}

type panicRunner struct{}

func (panicRunner) Run(context.Context, string) (*model.Report, error) {
	panic("boom")
}

// --- Helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func posting(role string, skills ...any) model.Posting {
	return model.NewPosting(map[string]any{
		"role":        role,
		"experience":  "2 years",
		"skills":      skills,
		"description": "build things",
	})
}

type fixture struct {
	fetcher   *fakeFetcher
	portfolio *fakePortfolio
	extractor *fakeExtractor
	composer  *fakeComposer
	notifier  *recordingNotifier
	metrics   *metrics.Recorder
	registry  *prometheus.Registry
}

func newFixture() *fixture {
	reg := prometheus.NewRegistry()
	return &fixture{
		fetcher:   &fakeFetcher{page: model.Page{Text: "We are hiring! <b>Go</b> engineers."}},
		portfolio: &fakePortfolio{links: map[string][]string{}},
		extractor: &fakeExtractor{},
		composer:  &fakeComposer{},
		notifier:  &recordingNotifier{},
		metrics:   metrics.New(reg),
		registry:  reg,
	}
}

func (f *fixture) pipeline() *Pipeline {
	return New(f.fetcher, f.portfolio, f.extractor, f.composer, f.notifier, f.metrics, discardLogger())
}

// --- Tests ---

func TestRun_InvalidURL(t *testing.T) {
	for _, url := range []string{"", "example.com/careers", "ftp://example.com", "HTTP//x"} {
		f := newFixture()
		_, err := f.pipeline().Run(context.Background(), url)
		if !errors.Is(err, ErrInvalidURL) {
			t.Errorf("Run(%q) error = %v, want ErrInvalidURL", url, err)
		}
		if f.fetcher.calls != 0 {
			t.Errorf("Run(%q) issued %d fetches, want 0", url, f.fetcher.calls)
		}
	}
}

func TestRun_EmptyPage(t *testing.T) {
	f := newFixture()
	f.fetcher.page.Text = "  \n\t "

	_, err := f.pipeline().Run(context.Background(), "https://example.com")
	if !errors.Is(err, ErrEmptyPage) {
		t.Fatalf("error = %v, want ErrEmptyPage", err)
	}
	if f.portfolio.loads != 0 {
		t.Error("portfolio should not be loaded for an empty page")
	}
	if got := f.runs(metrics.OutcomeEmptyPage); got != 1 {
		t.Errorf("runs{empty_page} = %v, want 1", got)
	}
}

// runs returns the hireflow_runs_total value for outcome.
func (f *fixture) runs(outcome string) float64 {
	mfs, err := f.registry.Gather()
	if err != nil {
		return 0
	}
	for _, mf := range mfs {
		if mf.GetName() != "hireflow_runs_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "outcome" && l.GetValue() == outcome {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestRun_NoJobs(t *testing.T) {
	f := newFixture()

	report, err := f.pipeline().Run(context.Background(), "https://example.com/careers")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.NoJobs {
		t.Error("NoJobs = false, want true")
	}
	if len(report.Drafts) != 0 {
		t.Errorf("drafts = %d, want 0", len(report.Drafts))
	}
	if len(f.notifier.drafts) != 0 {
		t.Error("notifier should not receive drafts when no jobs were found")
	}
	if f.portfolio.loads != 1 {
		t.Errorf("loads = %d, want 1", f.portfolio.loads)
	}
}

func TestRun_CleansBeforeExtract(t *testing.T) {
	f := newFixture()
	f.fetcher.page.Text = "Apply at https://jobs.example.com <b>Go</b> & Rust!"

	if _, err := f.pipeline().Run(context.Background(), "https://example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.extractor.input != "Apply at Go Rust" {
		t.Errorf("extractor input = %q, want %q", f.extractor.input, "Apply at Go Rust")
	}
}

func TestRun_ComposesPerPostingWithDedupedLinks(t *testing.T) {
	f := newFixture()
	f.extractor.postings = []model.Posting{
		posting("Backend Engineer", "Go", "Postgres"),
		posting("Frontend Engineer"),
	}
	f.portfolio.links = map[string][]string{
		"Go":       {"https://a.example/go", "https://a.example/shared"},
		"Postgres": {"https://a.example/shared", "https://a.example/pg"},
	}

	report, err := f.pipeline().Run(context.Background(), "https://example.com/careers")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Drafts) != 2 {
		t.Fatalf("drafts = %d, want 2", len(report.Drafts))
	}

	wantLinks := []string{"https://a.example/go", "https://a.example/shared", "https://a.example/pg"}
	if got := report.Drafts[0].Links; strings.Join(got, ",") != strings.Join(wantLinks, ",") {
		t.Errorf("links = %v, want %v", got, wantLinks)
	}
	if f.composer.links[0] != strings.Join(wantLinks, "\n") {
		t.Errorf("composer links = %q", f.composer.links[0])
	}
	if f.composer.links[1] != "" {
		t.Errorf("second posting links = %q, want empty", f.composer.links[1])
	}
	if len(f.portfolio.queries[1]) != 0 {
		t.Errorf("second posting skills = %v, want empty", f.portfolio.queries[1])
	}
	if report.Drafts[1].Email != "Dear team, about Frontend Engineer" {
		t.Errorf("email = %q", report.Drafts[1].Email)
	}
	if len(f.notifier.drafts) != 2 {
		t.Errorf("notified = %d, want 2", len(f.notifier.drafts))
	}
}

func TestRun_ParseErrorPropagates(t *testing.T) {
	f := newFixture()
	f.extractor.err = &model.ParseError{Output: "nope"}

	_, err := f.pipeline().Run(context.Background(), "https://example.com")
	var parseErr *model.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("error = %v, want *model.ParseError", err)
	}
	if got := f.runs(metrics.OutcomeParseError); got != 1 {
		t.Errorf("runs{parse_error} = %v, want 1", got)
	}
}

func TestRun_ComposeErrorDiscardsDrafts(t *testing.T) {
	f := newFixture()
	f.extractor.postings = []model.Posting{posting("Backend", "Go")}
	f.composer.err = errors.New("model unavailable")

	report, err := f.pipeline().Run(context.Background(), "https://example.com")
	if err == nil {
		t.Fatal("expected error")
	}
	if report != nil {
		t.Error("report should be nil on failure")
	}
	if len(f.notifier.drafts) != 0 {
		t.Error("notifier should not be called after a failed compose")
	}
}

func TestRun_NotifierErrorIsNotFatal(t *testing.T) {
	f := newFixture()
	f.extractor.postings = []model.Posting{posting("Backend", "Go")}
	f.notifier.err = errors.New("slack down")

	report, err := f.pipeline().Run(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Drafts) != 1 {
		t.Errorf("drafts = %d, want 1", len(report.Drafts))
	}
}

func TestSafe_ConvertsErrors(t *testing.T) {
	f := newFixture()
	f.fetcher.err = &model.HTTPError{URL: "https://example.com", StatusCode: 503}

	report, failure := Safe(context.Background(), f.pipeline(), "https://example.com")
	if report != nil {
		t.Error("report should be nil")
	}
	if failure == nil {
		t.Fatal("expected failure")
	}
	if !strings.HasPrefix(failure.Message, "An Error Occurred: ") {
		t.Errorf("message = %q", failure.Message)
	}
	if !strings.Contains(failure.Trace, "*model.HTTPError") {
		t.Errorf("trace = %q, want error type", failure.Trace)
	}
	if failure.UserError() {
		t.Error("HTTP failure should not be a user error")
	}
}

func TestSafe_UserErrors(t *testing.T) {
	f := newFixture()
	_, failure := Safe(context.Background(), f.pipeline(), "example.com")
	if failure == nil || !failure.UserError() {
		t.Fatalf("failure = %+v, want user error", failure)
	}
	if failure.Message != "Enter a valid URL starting with http:// or https://" {
		t.Errorf("message = %q", failure.Message)
	}
}

func TestSafe_RecoversPanic(t *testing.T) {
	report, failure := Safe(context.Background(), panicRunner{}, "https://example.com")
	if report != nil {
		t.Error("report should be nil")
	}
	if failure == nil {
		t.Fatal("expected failure")
	}
	if failure.Message != "An Error Occurred: boom" {
		t.Errorf("message = %q", failure.Message)
	}
	if !strings.Contains(failure.Trace, "goroutine") {
		t.Errorf("trace should carry a stack, got %q", failure.Trace)
	}
}

func TestRun_PanicIsCountedAsError(t *testing.T) {
	f := newFixture()
	f.extractor.panic = "index out of range"

	report, failure := Safe(context.Background(), f.pipeline(), "https://example.com")
	if report != nil {
		t.Errorf("report = %+v, want nil", report)
	}
	if failure == nil || !strings.Contains(failure.Message, "index out of range") {
		t.Fatalf("failure = %v, want recovered panic", failure)
	}
	if got := f.runs(metrics.OutcomeError); got != 1 {
		t.Errorf("error runs = %v, want 1", got)
	}
	if got := f.runs(metrics.OutcomeOK); got != 0 {
		t.Errorf("ok runs = %v, want 0", got)
	}
}

func TestRun_ReportCarriesPageTitle(t *testing.T) {
	f := newFixture()
	f.fetcher.page.Title = "Careers at Acme"
	f.extractor.postings = []model.Posting{posting("Go Engineer", "Go")}

	report, err := f.pipeline().Run(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Title != "Careers at Acme" {
		t.Errorf("Title = %q, want %q", report.Title, "Careers at Acme")
	}
}

func TestRun_EndToEnd(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><head><title>Careers</title></head><body>
<h1>Open roles</h1>
<div class="job">Senior Go Engineer. 5+ years. Go, Kubernetes. Build our platform.</div>
<script>var tracking = true;</script>
</body></html>`)
	}))
	defer page.Close()

	var (
		mu      sync.Mutex
		prompts []string
	)
	llm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		mu.Lock()
		prompts = append(prompts, req.Messages[0].Content)
		n := len(prompts)
		mu.Unlock()

		content := "Dear hiring manager, we build Go platforms."
		if n == 1 {
			content = "```json\n" + `[{"role":"Senior Go Engineer","experience":"5+ years","skills":["Go","Kubernetes"],"description":"Build our platform"}]` + "\n```"
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-e2e",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   "test-model",
			"choices": []any{map[string]any{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}))
	defer llm.Close()

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "portfolio.csv")
	dataset := "Techstack,Links\n" +
		"\"Go, Kubernetes, gRPC\",https://portfolio.example/go-platform\n" +
		"\"React, TypeScript\",https://portfolio.example/react-app\n"
	if err := os.WriteFile(csvPath, []byte(dataset), 0o644); err != nil {
		t.Fatal(err)
	}

	coll, err := vectorstore.Open(dir, "portfolio", vectorstore.NewHashingEmbedder(0))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer coll.Close()

	pf, err := portfolio.New(csvPath, coll, portfolio.DefaultResultsPerSkill, discardLogger())
	if err != nil {
		t.Fatalf("portfolio: %v", err)
	}

	provider := ai.NewOpenAIProvider(llm.URL, "test-key", "test-model", 0, llm.Client())
	p := New(
		fetch.NewHTTPFetcher(page.Client(), "hireflow-test"),
		pf,
		ai.NewJobExtractor(provider, ai.ExtractJobsTemplate, discardLogger()),
		ai.NewEmailComposer(provider, ai.ColdEmailTemplate, ai.DefaultPersona, discardLogger()),
		notifier.NewNopNotifier(),
		nil,
		discardLogger(),
	)

	report, failure := Safe(context.Background(), p, page.URL+"/careers")
	if failure != nil {
		t.Fatalf("unexpected failure: %s\n%s", failure.Message, failure.Trace)
	}
	if len(report.Drafts) != 1 {
		t.Fatalf("drafts = %d, want 1", len(report.Drafts))
	}

	d := report.Drafts[0]
	if d.Posting.Role.String() != "Senior Go Engineer" {
		t.Errorf("role = %q", d.Posting.Role.String())
	}
	if d.Email == "" {
		t.Error("email should not be empty")
	}
	if len(d.Links) == 0 {
		t.Error("expected at least one portfolio link")
	}
	if n, _ := coll.Count(context.Background()); n != 2 {
		t.Errorf("collection count = %d, want 2", n)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(prompts) != 2 {
		t.Fatalf("model calls = %d, want 2", len(prompts))
	}
	if strings.Contains(prompts[0], "tracking") {
		t.Error("script content leaked into the extraction prompt")
	}
	if !strings.Contains(prompts[1], "https://portfolio.example/") {
		t.Error("email prompt should embed matched links")
	}
}
