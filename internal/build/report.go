package build

import (
	"cmp"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"

	werrors "git.home.luguber.info/inful/weaving/internal/foundation/errors"
	"git.home.luguber.info/inful/weaving/internal/page"
)

// Outcome is the typed enumeration of final build result states.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomePartial Outcome = "partial"
	OutcomeFailed  Outcome = "failed"
)

// FileError is one failure tied to a source or output file.
type FileError struct {
	Path    string                `json:"path"`
	Kind    werrors.ErrorCategory `json:"kind"`
	Message string                `json:"message"`
	Err     error                 `json:"-"`
}

func (e FileError) String() string {
	return fmt.Sprintf("%s: %s: %s", e.Path, e.Kind, e.Message)
}

// Report captures what a build pass did.
type Report struct {
	ID             string                   `json:"id"`
	Start          time.Time                `json:"start"`
	End            time.Time                `json:"end"`
	Scanned        int                      `json:"scanned"`
	PagesBuilt     int                      `json:"pages_built"`
	PagesSkipped   int                      `json:"pages_skipped"` // emit: false
	Errors         []FileError              `json:"errors"`
	Fatal          string                   `json:"fatal,omitempty"`
	StageDurations map[string]time.Duration `json:"stage_durations"`
	Outcome        Outcome                  `json:"outcome"`

	// Registry is the sealed registry of this pass, nil when the build
	// failed before sealing.
	Registry *page.Registry `json:"-"`
}

func newReport() *Report {
	return &Report{
		ID:             uuid.NewString(),
		Start:          time.Now(),
		Errors:         []FileError{},
		StageDurations: make(map[string]time.Duration),
	}
}

// addError records err against path. The category of a classified error
// becomes the kind.
func (r *Report) addError(path string, err error) {
	r.Errors = append(r.Errors, FileError{
		Path:    path,
		Kind:    werrors.GetCategory(err),
		Message: message(err),
		Err:     err,
	})
}

func message(err error) string {
	if ce, ok := werrors.AsClassified(err); ok {
		if ce.Cause() != nil {
			return ce.Message() + ": " + ce.Cause().Error()
		}
		return ce.Message()
	}
	return err.Error()
}

func (r *Report) finish(fatal error) {
	r.End = time.Now()
	if fatal != nil {
		r.Fatal = fatal.Error()
	}
	r.deriveOutcome()
}

// deriveOutcome sets Outcome from the recorded errors.
func (r *Report) deriveOutcome() {
	switch {
	case r.Fatal != "":
		r.Outcome = OutcomeFailed
	case len(r.Errors) > 0:
		r.Outcome = OutcomePartial
	default:
		r.Outcome = OutcomeSuccess
	}
}

// HasErrors reports whether any page failed or the build aborted.
func (r *Report) HasErrors() bool {
	return r.Fatal != "" || len(r.Errors) > 0
}

// Duration is the wall time of the pass.
func (r *Report) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Summary returns a human-readable single-line summary.
func (r *Report) Summary() string {
	return fmt.Sprintf("scanned=%d built=%d skipped=%d errors=%d duration=%s outcome=%s",
		r.Scanned, r.PagesBuilt, r.PagesSkipped, len(r.Errors),
		r.Duration().Truncate(time.Millisecond), r.Outcome)
}

// Diagnostics returns one line per file error, ordered by path.
func (r *Report) Diagnostics() []string {
	errs := slices.Clone(r.Errors)
	slices.SortStableFunc(errs, func(a, b FileError) int { return cmp.Compare(a.Path, b.Path) })
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.String())
	}
	return out
}

// Persist writes the report as build-report.json into dir. The file is
// written to a temporary name and renamed into place.
func (r *Report) Persist(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure report dir: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return writeFileAtomic(filepath.Join(dir, "build-report.json"), append(data, '\n'))
}
