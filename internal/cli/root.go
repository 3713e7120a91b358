package cli

import (
	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/smartmarks/internal/version"
)

// NewRootCommand creates the smartmarks command. Without a subcommand it
// serves, like "smartmarks serve".
func NewRootCommand() *cobra.Command {
	serve := NewServeCommand()

	cmd := &cobra.Command{
		Use:   "smartmarks",
		Short: "smartmarks - personal bookmarks with live dashboards",
		Long: `smartmarks keeps a personal list of bookmarks per signed-in user.
Every open dashboard follows changes live.

Configuration is read from the environment; SMARTMARKS_STORE_URL and
SMARTMARKS_STORE_KEY are required.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          serve.RunE,
	}
	cmd.SetVersionTemplate("smartmarks {{.Version}} (commit=" + version.Commit +
		", built=" + version.BuildDate + ", go=" + version.GoVersion + ")\n")

	cmd.AddCommand(serve)
	cmd.AddCommand(NewImportCommand())

	return cmd
}
