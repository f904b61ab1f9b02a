package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/weaving/internal/scaffold"
)

// NewCmd implements the 'new' command.
type NewCmd struct {
	Name     string `short:"n" name:"name" default:"my-site" help:"Directory name of the new site."`
	Path     string `short:"p" name:"path" default:"." type:"path" help:"Directory the site is created in."`
	Template string `short:"t" name:"template" default:"default" help:"Starter template: a known name, a git URL or a local repository path."`
}

func (n *NewCmd) Run(g *Global, _ *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	_, _ = fmt.Fprintf(g.out(), "Creating %s from template %q\n", n.Name, n.Template)
	target, err := scaffold.New(ctx, scaffold.Options{
		Name:     n.Name,
		Path:     n.Path,
		Template: n.Template,
		Logger:   g.logger(),
	})
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.out(), "Site created at %s\nRun: weaving serve -p %s\n", target, target)
	return nil
}
