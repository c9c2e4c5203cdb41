package main

import (
	"fmt"
	"log/slog"
	"os"

	rice "github.com/GeertJohan/go.rice"

	"github.com/augustoroman/junction"
	"github.com/augustoroman/junction/config"
	"github.com/augustoroman/junction/unit"
)

type rootFlags struct {
	envFile    string
	routesFile string
	appDir     string
	box        string
	vars       map[string]string
}

// loadConfig reads the environment and applies the flag overrides.
func loadConfig(flags *rootFlags) (config.Config, error) {
	var dotenv []string
	if flags.envFile != "" {
		dotenv = append(dotenv, flags.envFile)
	}
	cfg, err := config.Load(dotenv...)
	if err != nil {
		return config.Config{}, err
	}
	if flags.routesFile != "" {
		cfg.RoutesFile = flags.routesFile
	}
	if flags.appDir != "" {
		cfg.AppDir = flags.appDir
	}
	return cfg, nil
}

// source returns where unit sources are listed from, nil when neither a box
// nor an app directory is configured.
func source(flags *rootFlags, cfg config.Config) (unit.Source, error) {
	switch {
	case flags.box != "":
		box, err := rice.FindBox(flags.box)
		if err != nil {
			return nil, fmt.Errorf("opening box %q: %w", flags.box, err)
		}
		return unit.RiceBox(box), nil
	case cfg.AppDir != "":
		return unit.Dir(cfg.AppDir), nil
	}
	return nil, nil
}

func newLogger(cfg config.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
}

// newApp builds an App from the configuration and the routes file, without
// starting it.
func newApp(flags *rootFlags, opts ...junction.Option) (*junction.App, config.Config, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, cfg, err
	}
	src, err := source(flags, cfg)
	if err != nil {
		return nil, cfg, err
	}
	opts = append([]junction.Option{junction.WithLogger(newLogger(cfg))}, opts...)
	if src != nil {
		opts = append(opts, junction.WithSource(src))
	}
	app := junction.New(cfg, opts...)
	if cfg.RoutesFile != "" {
		file, err := config.LoadFile(cfg.RoutesFile, flags.vars)
		if err != nil {
			return nil, cfg, err
		}
		if err := app.LoadFile(file); err != nil {
			return nil, cfg, err
		}
	}
	return app, cfg, nil
}
