package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/weaving/cmd/weaving/commands"
	"git.home.luguber.info/inful/weaving/internal/config"
	ferrors "git.home.luguber.info/inful/weaving/internal/foundation/errors"
	"git.home.luguber.info/inful/weaving/internal/version"
)

func main() {
	// .env in the working directory may set WEAVING_* flags.
	if _, err := config.LoadEnvFiles("."); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	var cli commands.CLI
	kctx := kong.Parse(&cli,
		kong.Name("weaving"),
		kong.Description("Static site generator for Markdown and Liquid templates."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	global := &commands.Global{Logger: slog.Default(), Out: os.Stdout}
	if err := kctx.Run(global, &cli); err != nil {
		ferrors.NewCLIErrorAdapter(cli.Verbose, global.Logger).HandleError(err)
	}
}
