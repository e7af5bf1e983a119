package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/majerti/runbackup/pkg/version"
)

// New creates a new `version` command.
func New() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of runbackup.",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("runbackup version %s\n", version.Version)
		},
	}
}
