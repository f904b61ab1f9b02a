package commands

import (
	"fmt"

	"git.home.luguber.info/inful/weaving/internal/config"
)

// ConfigCmd implements the 'config' command.
type ConfigCmd struct {
	Path  string `short:"p" name:"path" env:"WEAVING_BASE_PATH" default:"." type:"path" help:"Project root the configuration is written to."`
	Force bool   `short:"f" name:"force" help:"Overwrite an existing weaving.toml."`
}

func (c *ConfigCmd) Run(g *Global, _ *CLI) error {
	path, err := config.Init(c.Path, c.Force)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.out(), "Wrote %s\n", path)
	return nil
}
