// Command junction inspects and serves junction route tables.
//
//	junction routes --routes routes.hcl
//	junction resolve /user/view/42 /blog/
//	junction serve --addr :8080
//
// Settings come from the JUNCTION_* environment variables (see package config)
// and an optional .env file; flags override them.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags rootFlags

	rootCmd := &cobra.Command{
		Use:   "junction",
		Short: "Inspect and serve junction route tables",
		Long: `junction compiles route templates, resolves request paths to
controller/method/args and serves applications built on them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&flags.envFile, "env-file", "", "load settings from this .env file (default .env)")
	rootCmd.PersistentFlags().StringVarP(&flags.routesFile, "routes", "r", "", "HCL routes file (default $JUNCTION_ROUTES_FILE)")
	rootCmd.PersistentFlags().StringVar(&flags.appDir, "app-dir", "", "directory holding the unit sources (default $JUNCTION_APP_DIR)")
	rootCmd.PersistentFlags().StringVar(&flags.box, "box", "", "go.rice box holding the unit sources, instead of --app-dir")
	rootCmd.PersistentFlags().StringToStringVar(&flags.vars, "var", nil, "variables available to the routes file as var.<name>")

	rootCmd.AddCommand(
		routesCmd(&flags),
		resolveCmd(&flags),
		serveCmd(&flags),
	)
	return rootCmd
}
