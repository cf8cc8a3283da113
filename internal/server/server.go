// Package server is the web surface: a single form that runs the pipeline for
// a careers page URL, plus a JSON API, health check and Prometheus metrics.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/amishk599/hireflow/internal/model"
	"github.com/amishk599/hireflow/internal/pipeline"
)

//go:embed templates/*.html
var templateFS embed.FS

// Handler serves the form and the API on top of a pipeline runner.
type Handler struct {
	runner pipeline.Runner
	logger *slog.Logger
}

// NewHandler returns a Handler that runs every analysis through runner.
func NewHandler(runner pipeline.Runner, logger *slog.Logger) *Handler {
	return &Handler{runner: runner, logger: logger}
}

// RegisterRoutes mounts the form, the JSON API and the health check on server.
func (h *Handler) RegisterRoutes(server *gin.Engine) {
	server.GET("/", h.Index)
	server.POST("/analyze", h.Analyze)
	server.POST("/api/analyze", h.AnalyzeAPI)
	server.GET("/healthz", h.Health)
}

// New builds the gin engine with middleware, templates and all routes.
// reg and gatherer may be nil to skip request metrics and /metrics.
func New(h *Handler, reg prometheus.Registerer, gatherer prometheus.Gatherer, logger *slog.Logger) *gin.Engine {
	server := gin.New()
	server.Use(gin.Recovery(), RequestLogger(logger))
	if reg != nil {
		server.Use(NewMetricsBuilder(reg).Build())
	}
	server.SetHTMLTemplate(template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")))
	h.RegisterRoutes(server)
	if gatherer != nil {
		server.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	return server
}

// Serve runs handler on addr until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

var funcs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
	"pretty": func(p model.Posting) string {
		b, err := json.MarshalIndent(p.Raw, "", "  ")
		if err != nil || p.Raw == nil {
			return p.JSON()
		}
		return string(b)
	},
}

type pageData struct {
	URL     string
	Report  *model.Report
	Failure *pipeline.Failure
}

// Index renders the empty form.
func (h *Handler) Index(ctx *gin.Context) {
	ctx.HTML(http.StatusOK, "index.html", pageData{})
}

// Analyze handles the form post and renders the drafts, or the failure, as HTML.
func (h *Handler) Analyze(ctx *gin.Context) {
	url := strings.TrimSpace(ctx.PostForm("url"))

	report, failure := pipeline.Safe(ctx.Request.Context(), h.runner, url)
	if failure != nil {
		h.logFailure(url, failure)
		ctx.HTML(statusFor(failure), "index.html", pageData{URL: url, Failure: failure})
		return
	}
	ctx.HTML(http.StatusOK, "index.html", pageData{URL: url, Report: report})
}

type analyzeReq struct {
	URL string `json:"url"`
}

type draftResp struct {
	Role        string         `json:"role"`
	Experience  string         `json:"experience"`
	Skills      []string       `json:"skills"`
	Description string         `json:"description"`
	Posting     map[string]any `json:"posting"`
	Links       []string       `json:"links"`
	Email       string         `json:"email"`
}

type reportResp struct {
	URL    string      `json:"url"`
	Title  string      `json:"title,omitempty"`
	NoJobs bool        `json:"no_jobs"`
	Drafts []draftResp `json:"drafts"`
}

type errorResp struct {
	Error string `json:"error"`
	Trace string `json:"trace,omitempty"`
}

// AnalyzeAPI is the JSON variant of Analyze. Failures are returned as
// {"error", "trace"} with a status derived from the error kind.
func (h *Handler) AnalyzeAPI(ctx *gin.Context) {
	var req analyzeReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResp{Error: "invalid json"})
		return
	}
	url := strings.TrimSpace(req.URL)

	report, failure := pipeline.Safe(ctx.Request.Context(), h.runner, url)
	if failure != nil {
		h.logFailure(url, failure)
		resp := errorResp{Error: failure.Message}
		if !failure.UserError() {
			resp.Trace = failure.Trace
		}
		ctx.JSON(statusFor(failure), resp)
		return
	}

	resp := reportResp{URL: report.URL, Title: report.Title, NoJobs: report.NoJobs, Drafts: []draftResp{}}
	for _, d := range report.Drafts {
		resp.Drafts = append(resp.Drafts, draftResp{
			Role:        d.Posting.Role.String(),
			Experience:  d.Posting.Experience.String(),
			Skills:      d.Posting.Skills(),
			Description: d.Posting.Description.String(),
			Posting:     d.Posting.Raw,
			Links:       d.Links,
			Email:       d.Email,
		})
	}
	ctx.JSON(http.StatusOK, resp)
}

// Health reports liveness.
func (h *Handler) Health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) logFailure(url string, f *pipeline.Failure) {
	if f.UserError() {
		h.logger.Warn("run rejected", "url", url, "error", f.Err)
		return
	}
	h.logger.Error("run failed", "url", url, "error", f.Err)
	h.logger.Debug("failure trace", "trace", f.Trace)
}

func statusFor(f *pipeline.Failure) int {
	var httpErr *model.HTTPError
	var parseErr *model.ParseError
	switch {
	case f.UserError():
		return http.StatusBadRequest
	case errors.As(f, &httpErr), errors.As(f, &parseErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
