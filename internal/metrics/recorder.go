package metrics

import "time"

// Outcome labels a finished build cycle.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomePartial  Outcome = "partial"
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
)

// Trigger labels what started a rebuild cycle.
type Trigger string

const (
	TriggerInitial   Trigger = "initial"
	TriggerWatch     Trigger = "watch"
	TriggerReconcile Trigger = "reconcile"
)

// Recorder defines observability hooks for build and serve metrics.
// Implementations must tolerate use as a field default; NoopRecorder is the
// zero-cost stand-in when metrics are not configured.
type Recorder interface {
	ObserveBuildDuration(outcome Outcome, d time.Duration)
	ObserveStageDuration(stage string, d time.Duration)
	AddPagesRendered(n int)
	AddAssetsCopied(n int)
	AddJobFailures(n int)
	AddLinkWarnings(n int)
	IncRebuild(trigger Trigger)
	SetLiveReloadClients(n int)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) ObserveBuildDuration(Outcome, time.Duration) {}
func (NoopRecorder) ObserveStageDuration(string, time.Duration)  {}
func (NoopRecorder) AddPagesRendered(int)                        {}
func (NoopRecorder) AddAssetsCopied(int)                         {}
func (NoopRecorder) AddJobFailures(int)                          {}
func (NoopRecorder) AddLinkWarnings(int)                         {}
func (NoopRecorder) IncRebuild(Trigger)                          {}
func (NoopRecorder) SetLiveReloadClients(int)                    {}
