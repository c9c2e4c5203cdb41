package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/augustoroman/junction"
	"github.com/augustoroman/junction/config"
	"github.com/augustoroman/junction/unit"
)

// welcome is the default controller of an application that registers none.
type welcome struct{}

func (welcome) Index(w http.ResponseWriter, l *unit.Loader) {
	fmt.Fprintf(w, "junction is running.\n\nThis page is served by the built-in %q controller.\n", l.Call().Controller)
}

func serveCmd(flags *rootFlags) *cobra.Command {
	var addr string
	var structured bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the routes file over HTTP",
		Long: `Serve the routes file over HTTP. Prometheus metrics are exposed on
/metrics and a liveness probe on /healthz; every other path is dispatched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cfg, h, err := newServeHandler(flags)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Addr
			}
			if structured {
				junction.WriteLog = junction.SlogWriter(newLogger(cfg))
			}

			srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errc := make(chan error, 1)
			go func() { errc <- srv.ListenAndServe() }()
			fmt.Fprintf(cmd.OutOrStdout(), "serving %d routes on %s\n", app.Table().Len(), addr)

			select {
			case err := <-errc:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "address to listen on (default $JUNCTION_ADDR)")
	cmd.Flags().BoolVar(&structured, "structured-log", false, "write the access log through the application logger instead of colored lines")
	return cmd
}

// newServeHandler starts the App and mounts it below the ops endpoints.
func newServeHandler(flags *rootFlags) (*junction.App, config.Config, http.Handler, error) {
	reg := prometheus.NewRegistry()
	app, cfg, err := newApp(flags, junction.WithMetrics(junction.NewMetrics(junction.WithRegistry(reg))))
	if err != nil {
		return nil, cfg, nil, err
	}
	if _, ok := app.Units().Lookup(unit.Controller, cfg.DefaultController); !ok {
		app.Units().Controller(cfg.DefaultController, unit.Of[welcome]())
	}
	if err := app.Start(); err != nil {
		return nil, cfg, nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("ok")) })
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Handle("/*", app)
	return app, cfg, r, nil
}
