// Package config loads the settings of a junction application from the
// environment (optionally seeded from a .env file) and its routes and hooks
// from an HCL file.
//
//	cfg, err := config.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//	file, err := config.LoadFile(cfg.RoutesFile, nil)
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/augustoroman/junction/unit"
)

// Config holds the application settings.
type Config struct {
	// DefaultController handles the root path and destinations that name no
	// controller.
	DefaultController string `env:"JUNCTION_DEFAULT_CONTROLLER" envDefault:"index"`

	// AppDir is the directory unit sources are looked up in. Source files are
	// not checked when empty.
	AppDir        string `env:"JUNCTION_APP_DIR"`
	ControllerDir string `env:"JUNCTION_CONTROLLER_DIR" envDefault:"controller/"`
	ModelDir      string `env:"JUNCTION_MODEL_DIR" envDefault:"model/"`
	WorkerDir     string `env:"JUNCTION_WORKER_DIR" envDefault:"worker/"`
	AssemblyDir   string `env:"JUNCTION_ASSEMBLY_DIR" envDefault:"assembly/"`
	SourceExt     string `env:"JUNCTION_SOURCE_EXT" envDefault:".go"`

	// Workers are loaded at the start of every request.
	Workers []string `env:"JUNCTION_WORKERS" envSeparator:","`

	// RoutesFile is an HCL file of routes and hooks, see LoadFile.
	RoutesFile   string     `env:"JUNCTION_ROUTES_FILE"`
	StrictRoutes bool       `env:"JUNCTION_STRICT_ROUTES" envDefault:"false"`
	LogLevel     slog.Level `env:"JUNCTION_LOG_LEVEL" envDefault:"info"`
	Addr         string     `env:"JUNCTION_ADDR" envDefault:":8080"`
}

// Default returns the configuration with every setting at its default.
func Default() Config {
	cfg, err := LoadFrom(map[string]string{})
	if err != nil {
		// The defaults are constants; failing to parse them is a programming
		// error.
		panic(err)
	}
	return cfg
}

// Load reads the configuration from the process environment. The given .env
// files, or ".env" when none are given, are loaded into the environment first
// without overriding variables that are already set. Missing .env files are
// ignored.
func Load(dotenv ...string) (Config, error) {
	if err := godotenv.Load(dotenv...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}

// LoadFrom reads the configuration from environ instead of the process
// environment.
func LoadFrom(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}

// Layouts returns the unit layouts with the configured directories.
func (c Config) Layouts() map[unit.Kind]unit.Layout {
	layouts := unit.DefaultLayouts()
	dirs := map[unit.Kind]string{
		unit.Controller: c.ControllerDir,
		unit.Model:      c.ModelDir,
		unit.Worker:     c.WorkerDir,
		unit.Assembly:   c.AssemblyDir,
	}
	for kind, dir := range dirs {
		if dir = strings.Trim(path.Clean("/"+dir), "/"); dir != "" {
			l := layouts[kind]
			l.Root = dir
			layouts[kind] = l
		}
	}
	return layouts
}
