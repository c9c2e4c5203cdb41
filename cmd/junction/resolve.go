package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/augustoroman/junction"
	"github.com/augustoroman/junction/unit"
)

// unchecked treats every unit as present; used when there is no source to
// check against.
type unchecked struct{ *unit.Resolver }

func (u unchecked) Locate(kind unit.Kind, name string) unit.Location {
	loc := u.Resolver.Locate(kind, name)
	loc.Exists = true
	return loc
}

func resolveCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve PATH...",
		Short: "Show where request paths are dispatched to",
		Long: `Resolve each path against the route table and print the controller,
method and arguments it is dispatched to. Controllers are checked against the
unit sources given by --app-dir or --box; without either every controller is
assumed to exist.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, paths []string) error {
			app, cfg, err := newApp(flags)
			if err != nil {
				return err
			}
			src, err := source(flags, cfg)
			if err != nil {
				return err
			}
			opts := []unit.ResolverOption{unit.WithExtension(cfg.SourceExt)}
			for kind, layout := range cfg.Layouts() {
				opts = append(opts, unit.WithLayout(kind, layout))
			}
			if src != nil {
				opts = append(opts, unit.WithSource(src))
			}
			resolver, err := unit.NewResolver(opts...)
			if err != nil {
				return err
			}
			var loc unit.Locator = resolver
			if src == nil {
				loc = unchecked{resolver}
			}
			d := junction.NewDispatcher(app.Table(), loc, cfg.DefaultController)

			out := cmd.OutOrStdout()
			for _, p := range paths {
				o, err := d.Resolve(p)
				var nf *junction.NotFoundError
				switch {
				case errors.As(err, &nf):
					fmt.Fprintf(out, "%s\t404 %s not found (%s)\n", o.Path, nf.Controller, nf.File)
				case err != nil:
					return err
				case o.Handler != nil:
					fmt.Fprintf(out, "%s\thandler args=[%s] via %s\n", o.Path, strings.Join(o.Args, " "), o.Route.Source)
				default:
					where := o.Source.String()
					if o.Route != nil {
						where = "route " + o.Route.Source
					}
					fmt.Fprintf(out, "%s\t%s.%s args=[%s] file=%s via %s\n",
						o.Path, o.Controller, o.Method, strings.Join(o.Args, " "),
						loc.Locate(unit.Controller, o.Controller).File, where)
				}
			}
			return nil
		},
	}
	return cmd
}
