package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/weaving/internal/config"
	ferrors "git.home.luguber.info/inful/weaving/internal/foundation/errors"
	"git.home.luguber.info/inful/weaving/internal/logfields"
)

// Global carries state shared by every command.
type Global struct {
	Logger *slog.Logger
	// Out receives user-facing output; os.Stdout when nil.
	Out io.Writer
}

func (g *Global) out() io.Writer {
	if g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

func (g *Global) logger() *slog.Logger {
	if g.Logger == nil {
		return slog.Default()
	}
	return g.Logger
}

// CLI definition & global flags.
type CLI struct {
	Verbose   bool             `short:"v" help:"Enable verbose logging (same as --log-level=debug)."`
	LogLevel  string           `name:"log-level" env:"WEAVING_LOG_LEVEL" help:"Log level: debug, info, warn or error."`
	LogFormat string           `name:"log-format" env:"WEAVING_LOG_FORMAT" default:"text" help:"Log format: text or json."`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build  BuildCmd  `cmd:"" help:"Build the site into its build directory"`
	Serve  ServeCmd  `cmd:"" help:"Serve the site with live reload, rebuilding on every change"`
	New    NewCmd    `cmd:"" help:"Create a new site from a starter template"`
	Config ConfigCmd `cmd:"" help:"Write a default weaving.toml"`
}

// AfterApply runs after flag parsing; set up logging once.
func (c *CLI) AfterApply() error {
	logger, err := c.NewLogger(os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}

// NewLogger builds the logger selected by the global flags.
func (c *CLI) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := config.ParseLogLevel(c.LogLevel)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryValidation, "invalid log level").Build()
	}
	if c.Verbose {
		level = slog.LevelDebug
	}
	return config.NewLogger(w, level, config.NormalizeLogFormat(c.LogFormat)), nil
}

// loadSite reads the project's .env files and weaving.toml.
func loadSite(path string, logger *slog.Logger) (*config.SiteConfig, error) {
	loaded, err := config.LoadEnvFiles(path)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to load .env").WithPath(path).Build()
	}
	for _, f := range loaded {
		logger.Debug("Loaded environment file", logfields.Path(f))
	}
	return config.Load(path)
}
