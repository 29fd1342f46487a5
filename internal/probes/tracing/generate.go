// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package tracing

//go:generate go run go.opentelemetry.io/usdt/cli bindings --config usdtgen.yaml
