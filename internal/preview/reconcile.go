package preview

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// reconciler periodically forces a full rebuild so the output recovers from
// filesystem events the watcher missed (overflowed kernel queues, moves from
// outside the tree, edits over network mounts).
type reconciler struct {
	scheduler gocron.Scheduler
}

func newReconciler(interval time.Duration, run func()) (*reconciler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	if _, err := s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(run),
		gocron.WithName("reconcile"),
	); err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("failed to create reconcile job: %w", err)
	}
	return &reconciler{scheduler: s}, nil
}

func (r *reconciler) Start() { r.scheduler.Start() }

func (r *reconciler) Stop() error { return r.scheduler.Shutdown() }
