package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyPath       = "path"
	KeyRoute      = "route"
	KeyTemplate   = "template"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyPages      = "pages"
	KeyFailures   = "failures"
	KeySeq        = "seq"
	KeyClients    = "clients"
	KeyAddr       = "addr"
	KeyMethod     = "method"
	KeyStatus     = "status"
	KeyURL        = "url"
	KeyName       = "name"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Route(r string) slog.Attr        { return slog.String(KeyRoute, r) }
func Template(name string) slog.Attr  { return slog.String(KeyTemplate, name) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Pages(n int) slog.Attr           { return slog.Int(KeyPages, n) }
func Failures(n int) slog.Attr        { return slog.Int(KeyFailures, n) }
func Seq(n uint64) slog.Attr          { return slog.Uint64(KeySeq, n) }
func Clients(n int) slog.Attr         { return slog.Int(KeyClients, n) }
func Addr(a string) slog.Attr         { return slog.String(KeyAddr, a) }
func Method(m string) slog.Attr       { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr       { return slog.Int(KeyStatus, code) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Name(n string) slog.Attr         { return slog.String(KeyName, n) }

// Since reports the elapsed time from start in milliseconds.
func Since(start time.Time) slog.Attr {
	return DurationMS(float64(time.Since(start).Microseconds()) / 1000)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
