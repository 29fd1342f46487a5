// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"go.opentelemetry.io/usdt"
	"go.opentelemetry.io/usdt/internal/pkg/build"
)

// buildInfo describes usdtgen and the toolchain it would build with.
type buildInfo struct {
	Release  string `json:"release"`
	Revision string `json:"revision"`
	Go       string `json:"go"`
	// Host is the GOOS/GOARCH usdtgen runs on. Supported reports whether
	// probe libraries can be built there.
	Host      string   `json:"host"`
	Supported bool     `json:"supported"`
	Platforms []string `json:"platforms"`

	Toolchain []build.ToolVersion `json:"toolchain"`
}

func newBuildInfo(ctx context.Context, tc build.Toolchain, r build.Runner) buildInfo {
	info := buildInfo{
		Release:   usdt.Version(),
		Revision:  build.UnknownVersion,
		Go:        runtime.Version(),
		Host:      runtime.GOOS + "/" + runtime.GOARCH,
		Platforms: build.Platforms(),
		Toolchain: tc.Versions(ctx, r),
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info.Revision = revision(bi.Settings)
	}
	_, err := build.LookupPlatform(runtime.GOOS)
	info.Supported = err == nil
	return info
}

// revision returns the VCS revision recorded in settings, suffixed with
// "-dirty" for builds of a modified tree.
func revision(settings []debug.BuildSetting) string {
	rev, dirty := build.UnknownVersion, false
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if dirty {
		return rev + "-dirty"
	}
	return rev
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the usdtgen version, the supported platforms and the toolchain versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tc, err := a.resolveToolchain(build.Toolchain{
				CC:     a.getenv("CC"),
				DTrace: a.getenv("DTRACE"),
			})
			if err != nil {
				a.log.Debug("toolchain not resolved", "error", err)
			}

			b, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(newBuildInfo(cmd.Context(), tc, a.toolRunner()), "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return err
		},
	}
}
