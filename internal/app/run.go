package app

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"text/tabwriter"

	"github.com/vk/contentgrid/internal/ctxlog"
	"github.com/vk/contentgrid/internal/output"
	"github.com/vk/contentgrid/internal/pipeline"
	"github.com/vk/contentgrid/internal/project"
)

// Run executes the build described by the app's configuration.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.ListComponents {
		return a.listComponents()
	}

	proj, err := a.loadProject(ctx)
	if err != nil {
		return err
	}
	compression, err := output.ParseCompression(proj.Compression)
	if err != nil {
		return fmt.Errorf("invalid project compression: %w", err)
	}

	items, err := proj.Assets(ctx, func(ext string) bool {
		_, ok := a.registry.ImporterForExtension(ext)
		return ok
	})
	if err != nil {
		return err
	}

	mgr, err := pipeline.NewManager(pipeline.Options{
		SourceRoot:      proj.SourceRoot,
		IntermediateDir: proj.IntermediateDir,
		OutputDir:       proj.OutputDir,
		Compression:     compression,
		WorkerCount:     a.config.WorkerCount,
		Rebuild:         a.config.Rebuild,
	}, a.registry, a.types)
	if err != nil {
		return err
	}

	if a.config.Clean {
		if err := mgr.Clean(ctx, items); err != nil {
			return fmt.Errorf("clean failed: %w", err)
		}
		a.logger.Info("Clean finished.", "assets", len(items))
		return nil
	}

	if len(items) == 0 {
		a.logger.Warn("No content found, build not required.", "source_root", proj.SourceRoot)
		return nil
	}

	summary, err := mgr.BuildAll(ctx, items)
	if err != nil {
		return fmt.Errorf("build failed: %d of %d assets failed: %w", summary.Failed, len(items), err)
	}

	a.logger.Debug("App.Run method finished.", "built", summary.Built, "skipped", summary.Skipped)
	return nil
}

// loadProject reads the project file, or synthesizes one around the
// configured source root, and applies the directory overrides.
func (a *App) loadProject(ctx context.Context) (*project.Project, error) {
	var proj *project.Project
	if a.config.ProjectPath != "" {
		p, err := project.Load(ctx, a.config.ProjectPath)
		if err != nil {
			return nil, err
		}
		proj = p
	} else {
		proj = &project.Project{
			SourceRoot:      a.config.SourceRoot,
			IntermediateDir: project.DefaultIntermediateDir,
			OutputDir:       project.DefaultOutputDir,
			Compression:     project.DefaultCompression,
		}
	}

	if a.config.ProjectPath != "" && a.config.SourceRoot != "" {
		proj.SourceRoot = a.config.SourceRoot
	}
	if a.config.IntermediateDir != "" {
		proj.IntermediateDir = a.config.IntermediateDir
	}
	if a.config.OutputDir != "" {
		proj.OutputDir = a.config.OutputDir
	}
	if a.config.Compression != "" {
		proj.Compression = a.config.Compression
	}
	a.logger.Debug("Project resolved.",
		"source_root", proj.SourceRoot, "intermediate_dir", proj.IntermediateDir,
		"output_dir", proj.OutputDir, "compression", proj.Compression)
	return proj, nil
}

// listComponents prints the registered importers and processors.
func (a *App) listComponents() error {
	w := tabwriter.NewWriter(a.outW, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "IMPORTER\tEXTENSIONS\tDEFAULT PROCESSOR\tLIBRARY")
	for _, imp := range a.registry.Importers() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", imp.Name, strings.Join(imp.Extensions, " "), imp.DefaultProcessor, imp.Library)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "PROCESSOR\tINPUT\tOUTPUT\tPARAMETERS")
	for _, proc := range a.registry.Processors() {
		params := make([]string, 0, len(proc.Parameters))
		for _, p := range proc.Parameters {
			params = append(params, fmt.Sprintf("%s=%s", p.Name, p.DefaultText))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", proc.Name, a.typeName(proc.InputType), a.typeName(proc.OutputType), strings.Join(params, " "))
	}
	for _, err := range a.registry.Errors() {
		fmt.Fprintf(w, "warning: %v\n", err)
	}
	return w.Flush()
}

func (a *App) typeName(rt reflect.Type) string {
	if rt == nil {
		return "-"
	}
	named := rt
	if named.Kind() == reflect.Pointer {
		named = named.Elem()
	}
	if name, ok := a.types.NameOf(named); ok {
		return name
	}
	return rt.String()
}
