// Package build runs the scan → graph → execute pipeline that turns a
// Markdown tree into its mirrored HTML tree. Jobs are independent: a failure
// renders its path into the report while every sibling completes, and only
// cancellation stops a cycle early.
package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/memoize/internal/config"
	"git.home.luguber.info/inful/memoize/internal/gitmeta"
	"git.home.luguber.info/inful/memoize/internal/logfields"
	"git.home.luguber.info/inful/memoize/internal/markdown"
	"git.home.luguber.info/inful/memoize/internal/metrics"
	"git.home.luguber.info/inful/memoize/internal/site"
	"git.home.luguber.info/inful/memoize/internal/source"
	"git.home.luguber.info/inful/memoize/internal/theme"
)

// Stage names used in reports and metrics.
const (
	StageScan    = "scan"
	StageGraph   = "graph"
	StageExecute = "execute"
)

// PageRenderer turns Markdown bodies into HTML fragments and extracts link
// destinations for graph building.
type PageRenderer interface {
	Render(ctx context.Context, body []byte, resolved map[string]string) (*markdown.Fragment, error)
	ExtractLinks(body []byte) []markdown.Link
}

// TemplateApplier wraps a rendered body into a complete page.
type TemplateApplier interface {
	Apply(data theme.PageData) ([]byte, error)
}

// Options selects what one build cycle does.
type Options struct {
	// Clean removes the output tree before building. One-shot builds clean;
	// watch rebuilds never do, so a broken cycle keeps last-good pages.
	Clean bool
	// Scope limits rendering to the given source-relative paths. Nil means
	// everything. Applies to pages and assets; directories are always created.
	Scope map[string]bool
	// Trigger labels the cycle in logs, reports and metrics.
	Trigger metrics.Trigger
}

func (o Options) includes(rel string) bool {
	return o.Scope == nil || o.Scope[rel]
}

// Result is what a build cycle leaves behind. The graph is kept so a watch
// session can compute affected sets and content fingerprints from it.
type Result struct {
	Report *Report
	Graph  *site.Graph
}

// Pipeline wires the adapters together and runs build cycles. Construct once
// and reuse; cycles may run back to back but never concurrently.
type Pipeline struct {
	cfg      *config.Config
	renderer PageRenderer
	applier  TemplateApplier
	meta     gitmeta.Source
	recorder metrics.Recorder
}

// New builds a Pipeline with production defaults: the goldmark renderer, the
// embedded theme, no git metadata and no metrics.
func New(cfg *config.Config) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		renderer: markdown.NewRenderer(),
		applier:  theme.New(),
		meta:     gitmeta.Disabled{},
		recorder: metrics.NoopRecorder{},
	}
}

// WithMetadata swaps the commit metadata source.
func (p *Pipeline) WithMetadata(src gitmeta.Source) *Pipeline {
	if src != nil {
		p.meta = src
	}
	return p
}

// WithRecorder swaps the metrics recorder.
func (p *Pipeline) WithRecorder(r metrics.Recorder) *Pipeline {
	if r != nil {
		p.recorder = r
	}
	return p
}

// WithRenderer swaps the Markdown renderer. Used by tests.
func (p *Pipeline) WithRenderer(r PageRenderer) *Pipeline {
	if r != nil {
		p.renderer = r
	}
	return p
}

// WithApplier swaps the template applier. Used by tests.
func (p *Pipeline) WithApplier(a TemplateApplier) *Pipeline {
	if a != nil {
		p.applier = a
	}
	return p
}

// Build runs one cycle. The returned error is non-nil only for fatal
// conditions (unreadable source root, cancellation); per-path failures are
// reported through Result.Report with outcome partial or failed.
func (p *Pipeline) Build(ctx context.Context, opts Options) (*Result, error) {
	if opts.Trigger == "" {
		opts.Trigger = metrics.TriggerInitial
	}
	report := NewReport(string(opts.Trigger))
	p.recorder.IncRebuild(opts.Trigger)
	slog.Info("Build starting",
		logfields.BuildID(report.ID),
		logfields.Source(p.cfg.Source),
		logfields.Output(p.cfg.Output),
		logfields.Jobs(p.cfg.Jobs),
		logfields.Trigger(string(opts.Trigger)))

	scan, err := p.runScan(report)
	if err != nil {
		p.finish(report)
		return &Result{Report: report}, err
	}

	graph, err := p.runGraph(ctx, report, scan)
	if err != nil {
		report.MarkCanceled()
		p.finish(report)
		return &Result{Report: report, Graph: graph}, err
	}

	p.prepareOutput(report, graph, opts.Clean)

	jobs := p.collectJobs(graph, opts, report)
	exec := &executor{pipeline: p, outputDir: p.cfg.Output}
	execStart := time.Now()
	failed := runJobs(ctx, p.cfg.Jobs, jobs, exec, report)
	report.StageDurations[StageExecute] = time.Since(execStart)
	report.LinkedAssets = int(exec.linked.Load())
	p.recorder.AddJobFailures(failed)

	if ctx.Err() != nil {
		report.MarkCanceled()
	}
	p.finish(report)
	if err := ctx.Err(); err != nil {
		return &Result{Report: report, Graph: graph}, err
	}
	return &Result{Report: report, Graph: graph}, nil
}

func (p *Pipeline) runScan(report *Report) (*source.Result, error) {
	start := time.Now()
	scan, err := source.Scan(p.cfg.Source)
	report.StageDurations[StageScan] = time.Since(start)
	if err != nil {
		report.AddIssue(IssueScanError, SeverityError, p.cfg.Source, err.Error())
		return nil, fmt.Errorf("failed to scan source tree: %w", err)
	}
	// Unreadable subtrees fail their paths, not the build.
	for _, scanErr := range scan.Errors {
		report.AddIssue(IssueScanError, SeverityError, scanErr.Path, scanErr.Error())
	}
	return scan, nil
}

func (p *Pipeline) runGraph(ctx context.Context, report *Report, scan *source.Result) (*site.Graph, error) {
	start := time.Now()
	graph, err := site.Build(ctx, scan, p.renderer)
	report.StageDurations[StageGraph] = time.Since(start)
	if err != nil {
		return nil, err
	}
	for _, warning := range graph.Warnings() {
		report.AddIssue(IssueLinkUnresolved, SeverityWarning, warning.Page, warning.String())
		slog.Warn("Unresolved link", logfields.Path(warning.Page), logfields.Target(warning.Target))
	}
	p.recorder.AddLinkWarnings(len(graph.Warnings()))
	return graph, nil
}

func (p *Pipeline) prepareOutput(report *Report, graph *site.Graph, clean bool) {
	if clean {
		if err := removeDirForce(p.cfg.Output); err != nil {
			report.AddIssue(IssueOutputWrite, SeverityError, p.cfg.Output, err.Error())
		}
	}
	if err := os.MkdirAll(p.cfg.Output, 0o755); err != nil {
		report.AddIssue(IssueOutputWrite, SeverityError, p.cfg.Output, err.Error())
		return
	}
	// Mirror every source directory before workers start; jobs then never
	// race on parent creation.
	for _, dir := range graph.DirList() {
		target := filepath.Join(p.cfg.Output, filepath.FromSlash(dir.RelPath))
		if err := os.MkdirAll(target, 0o755); err != nil {
			report.AddIssue(IssueOutputWrite, SeverityError, dir.RelPath, err.Error())
		}
	}
}

func (p *Pipeline) collectJobs(graph *site.Graph, opts Options, report *Report) []Job {
	var jobs []Job
	for _, page := range graph.PageList() {
		if opts.includes(page.Entry.RelPath) {
			jobs = append(jobs, renderJob(page))
		}
	}
	report.Pages = len(jobs)
	for _, asset := range graph.AssetList() {
		if opts.includes(asset.RelPath) {
			jobs = append(jobs, assetJob(asset))
		}
	}
	report.Assets = len(jobs) - report.Pages
	return jobs
}

func (p *Pipeline) finish(report *Report) {
	report.Finish()
	p.recorder.ObserveBuildDuration(outcomeLabel(report.Outcome), report.Duration())
	for stage, d := range report.StageDurations {
		p.recorder.ObserveStageDuration(stage, d)
	}
	p.recorder.AddPagesRendered(report.RenderedPages)
	p.recorder.AddAssetsCopied(report.CopiedAssets)

	slog.Info("Build finished",
		logfields.BuildID(report.ID),
		logfields.Pages(report.RenderedPages),
		logfields.Assets(report.CopiedAssets),
		logfields.Warnings(report.Warnings()),
		logfields.Failed(report.Errors()),
		logfields.DurationMS(report.Duration()),
		slog.String("outcome", string(report.Outcome)))
}

func outcomeLabel(o Outcome) metrics.Outcome {
	switch o {
	case OutcomePartial:
		return metrics.OutcomePartial
	case OutcomeFailed:
		return metrics.OutcomeFailed
	case OutcomeCanceled:
		return metrics.OutcomeCanceled
	default:
		return metrics.OutcomeSuccess
	}
}

// pageTitle picks the page title: frontmatter wins, then a leading H1, then
// the file name stem.
func pageTitle(page *site.Page, frag *markdown.Fragment) string {
	if page.Meta.Title != "" {
		return page.Meta.Title
	}
	if frag.Title != "" {
		return frag.Title
	}
	return strings.TrimSuffix(filepath.Base(page.Entry.RelPath), ".md")
}
