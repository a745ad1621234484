// Package cli wires configuration, logging, and lifecycle for the demoserver
// binary.
package cli

import (
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "demoserver",
	Short: "Invite-gated hosting server for pre-baked demo datasets",
	Long: `Demoserver serves a static single-page application and a tree of
pre-generated JSON fixtures behind an invite-code + password gate.
Each client tenant gets its own data subtree with one or more selectable
dataset versions; the server only ever reads.`,
	RunE: runServe,
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("demoserver version {{.Version}}\n")

	rootCmd.Flags().Int("port", 0, "listen port (overrides PORT)")
	rootCmd.Flags().String("data-dir", "", "client data root (overrides DATA_DIR)")
	rootCmd.Flags().String("public-dir", "", "serve SPA assets from this directory instead of the embedded build (overrides PUBLIC_DIR)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
