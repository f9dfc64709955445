package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootOptions holds flags shared by every subcommand.
type rootOptions struct {
	configPath string
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "mvnmirror",
		Short: "Mirrors a Maven repository tree from its HTTP directory listings.",
		Long: `mvnmirror walks the HTML index pages of a Maven repository, downloads
every file it finds into a local folder and caches each listing so a later run
can skip directories that were seen recently.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (yaml, json or toml)")

	cmd.AddCommand(newMirrorCmd(opts))

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "mvnmirror: %v\n", err)
		os.Exit(1)
	}
}
