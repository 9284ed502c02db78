// Package metrics provides observability hooks for build and serve cycles.
//
// The package follows the Null Object pattern: components take a Recorder by
// dependency injection and default to NoopRecorder, so no caller nil-checks
// metrics and disabled metrics cost nothing. When the serve command runs with
// metrics enabled, NewPrometheusRecorder swaps in the real implementation and
// the registry is exposed at /metrics via HTTPHandler.
package metrics
