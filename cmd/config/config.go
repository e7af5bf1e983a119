package config

import (
	"fmt"
	"io"
	"os"

	"github.com/ghodss/yaml"
	"github.com/spf13/cobra"

	"github.com/majerti/runbackup/cmd/util"
	"github.com/majerti/runbackup/pkg/config"
	"github.com/majerti/runbackup/pkg/errors"
)

// Mocked for unit testing.
var (
	stdout      io.Writer = os.Stdout
	parseConfig           = config.Parse
)

// New creates a new `config` command.
func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the runbackup configuration",
	}

	var section string
	show := &cobra.Command{
		Use:   "show",
		Short: "Resolve the configuration and print the resulting run context",
		Run: func(_ *cobra.Command, _ []string) {
			if err := showConfig(section); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	show.Flags().StringVar(&section, "section", config.DefaultSection,
		"The config file section to resolve.")
	cmd.AddCommand(show)

	return cmd
}

func showConfig(section string) error {
	ctx, err := parseConfig(section)
	if err != nil {
		return errors.WithContext(err, "read config")
	}

	yamlBytes, err := yaml.Marshal(ctx)
	if err != nil {
		return errors.WithContext(err, "marshal")
	}

	fmt.Fprint(stdout, string(yamlBytes))
	return nil
}
