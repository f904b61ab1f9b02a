package errors

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// CLIErrorAdapter prints a command's error and exits with the code of its
// category.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
	out     io.Writer
	exit    func(int)
}

// NewCLIErrorAdapter creates a new CLI error adapter.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{verbose: verbose, logger: logger, out: os.Stderr, exit: os.Exit}
}

// ExitCodeFor returns 0 for nil, the category's code for classified errors
// and 1 otherwise.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	if ce, ok := AsClassified(err); ok {
		return ce.Category().ExitCode()
	}
	return 1
}

// FormatError renders err for the terminal. Verbose mode prints the full
// chain.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	ce, ok := AsClassified(err)
	switch {
	case !ok:
		return fmt.Sprintf("Error: %v", err)
	case a.verbose:
		return ce.Error()
	}
	msg := fmt.Sprintf("Error (%s): %s", ce.Category(), ce.Message())
	if path, ok := ce.Context().GetString("path"); ok {
		msg += " [" + path + "]"
	}
	return msg
}

// HandleError logs and prints err, then exits. Nil is ignored.
func (a *CLIErrorAdapter) HandleError(err error) {
	if err == nil {
		return
	}
	if ce, ok := AsClassified(err); !ok || a.verbose || ce.IsFatal() {
		a.log(err)
	}
	_, _ = fmt.Fprintln(a.out, a.FormatError(err))
	a.exit(a.ExitCodeFor(err))
}

func (a *CLIErrorAdapter) log(err error) {
	ce, ok := AsClassified(err)
	if !ok {
		a.logger.Error("Unclassified error", slog.String("error", err.Error()))
		return
	}
	attrs := []any{slog.String("category", string(ce.Category()))}
	if ce.Cause() != nil {
		attrs = append(attrs, slog.String("cause", ce.Cause().Error()))
	}
	a.logger.Error(ce.Message(), attrs...)
}
