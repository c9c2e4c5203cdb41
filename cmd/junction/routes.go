package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/augustoroman/junction"
)

func routesCmd(flags *rootFlags) *cobra.Command {
	var showPatterns bool

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List the route table in scan order",
		Long: `List every route of the routes file in the order the dispatcher scans
them: ascending priority, then registration order. When several routes match a
path the last one listed wins.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, _, err := newApp(flags)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			header := "PRIORITY\tSOURCE\tDESTINATION\tCAPTURES"
			if showPatterns {
				header += "\tPATTERN"
			}
			fmt.Fprintln(w, header)
			app.Table().Each(func(r *junction.CompiledRoute) {
				line := fmt.Sprintf("%d\t%s\t%v\t%s", r.Priority, r.Source, r.Destination, strings.Join(r.Captures, ","))
				if showPatterns {
					line += "\t" + r.Pattern.String()
				}
				fmt.Fprintln(w, line)
			})
			return w.Flush()
		},
	}
	cmd.Flags().BoolVarP(&showPatterns, "patterns", "p", false, "also print the compiled regular expressions")
	return cmd
}
