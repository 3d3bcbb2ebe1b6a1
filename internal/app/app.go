package app

import (
	"context"
	"io"
	"log/slog"

	"github.com/vk/contentgrid/internal/ctxlog"
	"github.com/vk/contentgrid/internal/registry"
	"github.com/vk/contentgrid/internal/xmlcodec"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	registry *registry.Registry
	types    *xmlcodec.TypeTable
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App with its own isolated logger, registry and type table.
// Without explicit libraries the core modules are used.
func NewApp(outW io.Writer, cfg *Config, libs ...registry.Library) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	if len(libs) == 0 {
		libs = coreModules
	}

	reg := registry.New()
	reg.Update(ctx, libs)

	types := xmlcodec.NewTypeTable()
	for _, lib := range libs {
		if r, ok := lib.(xmlcodec.Registrar); ok {
			r.RegisterContentTypes(types)
		}
	}
	logger.Debug("Component libraries registered.", "count", len(libs),
		"importers", len(reg.Importers()), "processors", len(reg.Processors()))

	return &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		registry: reg,
		types:    types,
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Types returns the application's content type table.
func (a *App) Types() *xmlcodec.TypeTable {
	return a.types
}
