package build

import (
	"context"
	"log/slog"
	"sync"

	"git.home.luguber.info/inful/memoize/internal/logfields"
)

// Executor runs a single job. Implementations must be safe for concurrent
// calls; the scheduler invokes Execute from every worker.
type Executor interface {
	Execute(ctx context.Context, job Job) error
}

// runJobs executes jobs on a bounded worker pool and records every result in
// the report. A failed job marks its path and moves on; only cancellation
// stops the pool early. Returns the number of failed jobs.
func runJobs(ctx context.Context, workers int, jobs []Job, exec Executor, report *Report) int {
	if len(jobs) == 0 {
		return 0
	}
	if workers < 1 {
		workers = 1
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	// Channel sized at twice the worker count keeps the feed loop ahead of
	// the pool without buffering the whole job list.
	tasks := make(chan Job, 2*workers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	failed := 0

	worker := func() {
		defer wg.Done()
		for job := range tasks {
			select {
			case <-ctx.Done():
				return
			default:
			}
			err := exec.Execute(ctx, job)
			mu.Lock()
			if err != nil {
				failed++
				report.AddIssue(job.issueCode(), SeverityError, job.SourceRel, err.Error())
				slog.Error("Job failed", logfields.Path(job.SourceRel), slog.String("kind", string(job.Kind)), logfields.Error(err))
			} else {
				switch job.Kind {
				case JobRenderPage:
					report.RenderedPages++
				case JobCopyAsset:
					report.CopiedAssets++
				}
			}
			mu.Unlock()
		}
	}

	wg.Add(workers)
	for range workers {
		go worker()
	}

feed:
	for _, job := range jobs {
		select {
		case <-ctx.Done():
			break feed
		case tasks <- job:
		}
	}
	close(tasks)
	wg.Wait()

	if ctx.Err() != nil {
		report.MarkCanceled()
	}
	return failed
}
