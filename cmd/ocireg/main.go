// Command ocireg is a command-line client for the OCI Distribution
// registry protocol: inspect, copy, transform, and mutate container
// images stored in any compliant registry.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var log = logrus.New()

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:     "ocireg",
		Short:   "A client for the OCI Distribution registry protocol",
		Long:    `ocireg inspects, copies, transforms, and mutates container images stored in any OCI Distribution compliant registry, including Docker-flavored variants and public/private AWS ECR.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}
			loadConfigDefaults()
		},
	}
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newCatalogCommand())
	cmd.AddCommand(newListCommand())
	cmd.AddCommand(newManifestCommand())
	cmd.AddCommand(newConfigCommand())
	cmd.AddCommand(newBlobCommand())
	cmd.AddCommand(newIndexCommand())
	cmd.AddCommand(newPullCommand())
	cmd.AddCommand(newExportCommand())
	cmd.AddCommand(newPushCommand())
	cmd.AddCommand(newCopyCommand())
	cmd.AddCommand(newDeleteCommand())

	return cmd
}
