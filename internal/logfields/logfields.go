package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeySource     = "source"
	KeyOutput     = "output"
	KeyPath       = "path"
	KeyTarget     = "target"
	KeyStage      = "stage"
	KeyJobs       = "jobs"
	KeyPages      = "pages"
	KeyAssets     = "assets"
	KeyWarnings   = "warnings"
	KeyFailed     = "failed"
	KeyDurationMS = "duration_ms"
	KeyTrigger    = "trigger"
	KeyPort       = "port"
	KeyAddr       = "addr"
	KeyClients    = "clients"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr   { return slog.String(KeyBuildID, id) }
func Source(dir string) slog.Attr   { return slog.String(KeySource, dir) }
func Output(dir string) slog.Attr   { return slog.String(KeyOutput, dir) }
func Path(p string) slog.Attr       { return slog.String(KeyPath, p) }
func Target(t string) slog.Attr     { return slog.String(KeyTarget, t) }
func Stage(name string) slog.Attr   { return slog.String(KeyStage, name) }
func Jobs(n int) slog.Attr          { return slog.Int(KeyJobs, n) }
func Pages(n int) slog.Attr         { return slog.Int(KeyPages, n) }
func Assets(n int) slog.Attr        { return slog.Int(KeyAssets, n) }
func Warnings(n int) slog.Attr      { return slog.Int(KeyWarnings, n) }
func Failed(n int) slog.Attr        { return slog.Int(KeyFailed, n) }
func Trigger(t string) slog.Attr    { return slog.String(KeyTrigger, t) }
func Port(p int) slog.Attr          { return slog.Int(KeyPort, p) }
func Addr(a string) slog.Attr       { return slog.String(KeyAddr, a) }
func Clients(n int) slog.Attr       { return slog.Int(KeyClients, n) }

func DurationMS(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d.Nanoseconds())/1e6)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
