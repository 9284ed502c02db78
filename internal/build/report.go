package build

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Outcome is the typed enumeration of final build result states.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomePartial  Outcome = "partial" // some jobs failed, siblings completed
	OutcomeFailed   Outcome = "failed"  // nothing usable was produced
	OutcomeCanceled Outcome = "canceled"
)

// IssueCode enumerates machine-parseable issue identifiers. Stable contract;
// append only.
type IssueCode string

const (
	IssueScanError       IssueCode = "SCAN_ERROR"
	IssueLinkUnresolved  IssueCode = "LINK_UNRESOLVED"
	IssueRenderFailure   IssueCode = "RENDER_FAILURE"
	IssueTemplateFailure IssueCode = "TEMPLATE_FAILURE"
	IssueAssetCopy       IssueCode = "ASSET_COPY_FAILURE"
	IssueOutputWrite     IssueCode = "OUTPUT_WRITE_FAILURE"
	IssueCanceled        IssueCode = "BUILD_CANCELED"
)

// Severity represents normalized severity levels. Warnings never change the
// outcome; errors mark the build partial or failed.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a structured entry describing one discrete problem.
type Issue struct {
	Code     IssueCode `json:"code"`
	Severity Severity  `json:"severity"`
	Path     string    `json:"path,omitempty"` // Source-relative path, when the issue is per-file
	Message  string    `json:"message"`
}

// Report captures what one build cycle did. Populated single-threaded by the
// pipeline; workers hand results back through the scheduler's lock.
type Report struct {
	ID             string                   `json:"id"`
	Trigger        string                   `json:"trigger"`
	Start          time.Time                `json:"start"`
	End            time.Time                `json:"end"`
	Pages          int                      `json:"pages"`  // pages scheduled
	Assets         int                      `json:"assets"` // assets scheduled
	RenderedPages  int                      `json:"rendered_pages"`
	CopiedAssets   int                      `json:"copied_assets"`
	LinkedAssets   int                      `json:"linked_assets"` // subset of copied that hardlinked
	Issues         []Issue                  `json:"issues"`
	StageDurations map[string]time.Duration `json:"stage_durations"`
	Outcome        Outcome                  `json:"outcome"`
	canceled       bool
}

// NewReport constructs a report for one build cycle.
func NewReport(trigger string) *Report {
	return &Report{
		ID:             uuid.NewString(),
		Trigger:        trigger,
		Start:          time.Now(),
		Issues:         []Issue{},
		StageDurations: make(map[string]time.Duration),
	}
}

// AddIssue appends a structured issue.
func (r *Report) AddIssue(code IssueCode, severity Severity, path, msg string) {
	r.Issues = append(r.Issues, Issue{Code: code, Severity: severity, Path: path, Message: msg})
}

// MarkCanceled records that the cycle was interrupted.
func (r *Report) MarkCanceled() { r.canceled = true }

// FailedPaths returns the source paths of all error-severity issues, sorted
// and deduplicated. The CLI prints these when exiting non-zero.
func (r *Report) FailedPaths() []string {
	seen := make(map[string]bool)
	var paths []string
	for _, issue := range r.Issues {
		if issue.Severity != SeverityError || issue.Path == "" || seen[issue.Path] {
			continue
		}
		seen[issue.Path] = true
		paths = append(paths, issue.Path)
	}
	sort.Strings(paths)
	return paths
}

// Warnings counts warning-severity issues.
func (r *Report) Warnings() int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == SeverityWarning {
			n++
		}
	}
	return n
}

// Errors counts error-severity issues.
func (r *Report) Errors() int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			n++
		}
	}
	return n
}

// Finish stamps the end time and derives the outcome. Warnings alone leave a
// build successful; dangling links are normal in a note tree.
func (r *Report) Finish() {
	r.End = time.Now()
	switch {
	case r.canceled:
		r.Outcome = OutcomeCanceled
	case r.Errors() == 0:
		r.Outcome = OutcomeSuccess
	case r.RenderedPages > 0 || r.CopiedAssets > 0:
		r.Outcome = OutcomePartial
	default:
		r.Outcome = OutcomeFailed
	}
}

// Duration reports wall time for the whole cycle.
func (r *Report) Duration() time.Duration { return r.End.Sub(r.Start) }

// Summary returns a human-readable single-line summary.
func (r *Report) Summary() string {
	return fmt.Sprintf("pages=%d/%d assets=%d/%d warnings=%d errors=%d duration=%s outcome=%s",
		r.RenderedPages, r.Pages, r.CopiedAssets, r.Assets,
		r.Warnings(), r.Errors(), r.Duration().Truncate(time.Millisecond), r.Outcome)
}
