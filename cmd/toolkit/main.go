// Command toolkit runs agency maintenance tasks from the shell.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alanwallace9/agencytoolkit/infrastructure/config"
)

type rootOptions struct {
	configDir string
	env       string
}

func (o *rootOptions) loader() *config.Loader {
	env := config.EnvironmentFromEnv()
	if o.env != "" {
		env = config.Environment(o.env)
	}
	dir := o.configDir
	if dir == "" {
		dir = os.Getenv("CONFIG_DIR")
	}
	return config.NewLoader(dir, env)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "toolkit",
		Short:         "Agency toolkit maintenance commands",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configDir, "config-dir", "", "Configuration directory (default $CONFIG_DIR or ./config)")
	root.PersistentFlags().StringVar(&opts.env, "env", "", "Environment (default $ENVIRONMENT or development)")

	root.AddCommand(newExportCmd(opts), newRenderCmd(), newConfigCmd(opts))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
