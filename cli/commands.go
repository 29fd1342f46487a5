// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"go.opentelemetry.io/usdt"
	"go.opentelemetry.io/usdt/internal/pkg/bindings"
	"go.opentelemetry.io/usdt/internal/pkg/build"
	"go.opentelemetry.io/usdt/internal/pkg/config"
	"go.opentelemetry.io/usdt/internal/pkg/generate"
)

// app is the state shared by the usdtgen commands.
type app struct {
	fs     afero.Fs
	getenv func(string) string
	// buildOpts are appended to the options of every build pipeline.
	buildOpts []build.Option
	// runner and resolve default to build.ExecRunner and
	// build.Toolchain.Resolve.
	runner  build.Runner
	resolve func(build.Toolchain) (build.Toolchain, error)

	log *slog.Logger
	cfg *config.Config

	configPath string
	logLevel   string
}

func newApp() *app {
	return &app{fs: afero.NewOsFs(), getenv: os.Getenv}
}

const long = `usdtgen generates native statically defined tracepoints from a DTrace
provider definition.

It renders C wrapper functions around every probe, builds them into a shared
library with the system compiler and dtrace, and generates Go bindings calling
the library.

Configuration is read from usdtgen.yaml (or --config) and overridden by the
environment variables CC, DTRACE and USDT_OUT_DIR, then by flags.

Environment variable configuration:

	- USDT_LOG_LEVEL: log level (flag takes precedence)
	- CC: C compiler
	- DTRACE: dtrace tool
	- USDT_OUT_DIR: output directory`

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "usdtgen",
		Short:         "Generate USDT probe libraries and Go bindings",
		Long:          long,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.log = newLogger(cmd.ErrOrStderr(), a.logLevel, a.getenv)
			if cmd.Name() == "version" {
				return nil
			}
			return a.loadConfig(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "configuration file (default "+config.DefaultFile+" when present)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", `logging level ("debug", "info", "warn", "error")`)
	root.PersistentFlags().String("schema", "", "provider definition file")
	root.PersistentFlags().String("out-dir", "", "output directory")
	root.PersistentFlags().String("library", "", "library base name (default: first provider name)")
	root.PersistentFlags().String("providers", "", `providers to process ("first" or "all")`)
	root.PersistentFlags().String("platform", "", "target platform ("+strings.Join(build.Platforms(), ", ")+")")

	root.AddCommand(
		newGenerateCmd(a),
		newBuildCmd(a),
		newBindingsCmd(a),
		newSymbolsCmd(a),
		newVersionCmd(a),
	)
	return root
}

// loadConfig loads the configuration and applies the flags set on cmd.
func (a *app) loadConfig(cmd *cobra.Command) error {
	cfg, err := config.NewLoader().WithFs(a.fs).WithEnv(a.getenv).Load(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	set := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	set("schema", &cfg.Schema)
	set("out-dir", &cfg.OutDir)
	set("library", &cfg.Library)
	set("platform", &cfg.Platform)
	if flags.Changed("providers") {
		v, _ := flags.GetString("providers")
		if err := cfg.Providers.UnmarshalText([]byte(v)); err != nil {
			return err
		}
	}
	if cmd.Name() == "bindings" {
		set("package", &cfg.Bindings.Package)
		set("output", &cfg.Bindings.Output)
		if flags.Changed("style") {
			v, _ := flags.GetString("style")
			if err := cfg.Bindings.Style.UnmarshalText([]byte(v)); err != nil {
				return err
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.log.Debug("loaded configuration", "schema", cfg.Schema, "out_dir", cfg.OutDir, "platform", cfg.Platform)
	return nil
}

func (a *app) request(force bool) (build.Request, error) {
	src, err := afero.ReadFile(a.fs, a.cfg.Schema)
	if err != nil {
		return build.Request{}, fmt.Errorf("failed to read schema: %w", err)
	}
	return build.Request{
		SchemaName: a.cfg.Schema,
		Source:     src,
		Selection:  a.cfg.Providers,
		OutDir:     a.cfg.OutDir,
		Library:    a.cfg.Library,
		Force:      force,
	}, nil
}

func (a *app) resolveToolchain(tc build.Toolchain) (build.Toolchain, error) {
	if a.resolve != nil {
		return a.resolve(tc)
	}
	return tc.Resolve()
}

func (a *app) toolRunner() build.Runner {
	if a.runner != nil {
		return a.runner
	}
	return build.ExecRunner{}
}

func (a *app) pipeline(tc build.Toolchain) (*build.Pipeline, build.Platform, error) {
	platform, err := build.LookupPlatform(a.cfg.Platform)
	if err != nil {
		return nil, build.Platform{}, err
	}
	opts := []build.Option{
		build.WithLogger(a.log),
		build.WithFs(a.fs),
		build.WithRunner(a.toolRunner()),
		build.WithGeneratorVersion(usdt.Version()),
	}
	opts = append(opts, a.buildOpts...)
	return build.New(tc, platform, opts...), platform, nil
}

func newGenerateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Render the wrapper sources without building them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := a.request(false)
			if err != nil {
				return err
			}
			p, _, err := a.pipeline(a.cfg.Toolchain.Build())
			if err != nil {
				return err
			}
			_, out, err := p.Generate(req)
			if err != nil {
				return err
			}
			if err := out.WriteTo(a.fs, a.cfg.OutDir); err != nil {
				return err
			}
			for _, name := range []string{generate.ProviderFile, generate.HeaderFile, generate.SourceFile} {
				fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(a.cfg.OutDir, name))
			}
			return nil
		},
	}
}

func newBuildCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the probe library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := a.request(force)
			if err != nil {
				return err
			}
			tc, err := a.resolveToolchain(a.cfg.Toolchain.Build())
			if err != nil {
				return err
			}
			p, platform, err := a.pipeline(tc)
			if err != nil {
				return err
			}
			res, err := p.Build(cmd.Context(), req)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, res.Artifact)
			for _, h := range res.SearchPathHints(platform) {
				fmt.Fprintln(w, "  "+h)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "rebuild even if the library is up to date")
	return cmd
}

func newBindingsCmd(a *app) *cobra.Command {
	var header string
	cmd := &cobra.Command{
		Use:   "bindings",
		Short: "Generate the Go bindings of the probe library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := a.request(false)
			if err != nil {
				return err
			}
			p, _, err := a.pipeline(a.cfg.Toolchain.Build())
			if err != nil {
				return err
			}
			providers, out, err := p.Generate(req)
			if err != nil {
				return err
			}

			// The header rendered in memory is used unless one is named.
			h := out.Files[generate.HeaderFile]
			if header != "" {
				if h, err = afero.ReadFile(a.fs, header); err != nil {
					return fmt.Errorf("failed to read header: %w", err)
				}
			}

			lib := a.cfg.Library
			if lib == "" {
				lib = providers[0].Name
			}
			libDir := a.cfg.Bindings.LibDir
			if libDir == "" {
				libDir = a.cfg.OutDir
			}
			src, err := bindings.Generate(h, out.Manifest, bindings.Options{
				Style:   a.cfg.Bindings.Style,
				Package: a.cfg.Bindings.Package,
				Library: lib,
				LibDir:  libDir,
				Allow:   a.cfg.Bindings.Allow,
				Logger:  a.log,
			})
			if err != nil {
				return err
			}
			if err := bindings.WriteFile(a.fs, a.cfg.Bindings.Output, src); err != nil {
				return err
			}
			a.log.Info("generated bindings", "output", a.cfg.Bindings.Output, "style", a.cfg.Bindings.Style)
			fmt.Fprintln(cmd.OutOrStdout(), a.cfg.Bindings.Output)
			return nil
		},
	}
	cmd.Flags().StringVar(&header, "header", "", "wrapper header to read (default: rendered from the schema)")
	cmd.Flags().String("style", "", `binding style ("purego" or "cgo")`)
	cmd.Flags().String("package", "", "Go package name of the bindings")
	cmd.Flags().String("output", "", "path of the generated Go file")
	return cmd
}

func newSymbolsCmd(a *app) *cobra.Command {
	var check string
	cmd := &cobra.Command{
		Use:   "symbols",
		Short: "List the generated native symbols",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := a.request(false)
			if err != nil {
				return err
			}
			p, platform, err := a.pipeline(a.cfg.Toolchain.Build())
			if err != nil {
				return err
			}
			_, out, err := p.Generate(req)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, s := range out.Manifest.Symbols() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", s.Name(), s.Kind, signature(s))
			}
			if check == "" {
				return nil
			}
			if err := build.Verify(a.fs, check, platform, out.Manifest); err != nil {
				return err
			}
			a.log.Info("library exports every symbol", "library", check)
			return nil
		},
	}
	cmd.Flags().StringVar(&check, "check", "", "verify the library at this path exports every symbol")
	return cmd
}

// signature returns the C signature of s.
func signature(s generate.Symbol) string {
	if s.Kind == generate.EnabledQuery {
		return "int(void)"
	}
	if len(s.Params) == 0 {
		return "void(void)"
	}
	params := make([]string, len(s.Params))
	for i, p := range s.Params {
		params[i] = p.C
	}
	return "void(" + strings.Join(params, ", ") + ")"
}
