package build

import (
	"git.home.luguber.info/inful/memoize/internal/site"
	"git.home.luguber.info/inful/memoize/internal/source"
)

// JobKind discriminates the two unit-of-work types the scheduler runs.
type JobKind string

const (
	JobRenderPage JobKind = "render_page"
	JobCopyAsset  JobKind = "copy_asset"
)

// Job is one independent unit of work. Jobs never depend on each other;
// directories are created before any worker starts.
type Job struct {
	Kind      JobKind
	SourceRel string
	OutputRel string
	Page      *site.Page   // set for render jobs
	Asset     source.Entry // set for copy jobs
}

func renderJob(p *site.Page) Job {
	return Job{Kind: JobRenderPage, SourceRel: p.Entry.RelPath, OutputRel: p.OutputRel, Page: p}
}

func assetJob(e source.Entry) Job {
	return Job{Kind: JobCopyAsset, SourceRel: e.RelPath, OutputRel: e.RelPath, Asset: e}
}

// issueCode maps a failed job to its report taxonomy entry.
func (j Job) issueCode() IssueCode {
	if j.Kind == JobCopyAsset {
		return IssueAssetCopy
	}
	return IssueRenderFailure
}
