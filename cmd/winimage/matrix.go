// Copyright (c) the Jenkins project contributors.
// Licensed under the MIT License.

package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"

	"github.com/jenkins-infra/winimage/buildmatrix/composefile"
	"github.com/jenkins-infra/winimage/orchestrate"
	"github.com/jenkins-infra/winimage/stringutil"
	"github.com/jenkins-infra/winimage/subcmd"
)

func init() {
	subcommands = append(subcommands, subcmd.Option{
		Name:    "matrix",
		Summary: "Resolve the build matrix and print it as JSON.",
		Description: `

Resolves the matrix of image variants and tags from the build configuration
and the run flags, checks the configuration against it, and prints it. The
output is deterministic for identical inputs, so it can be diffed across CI
runs.

Example:

  winimage matrix -version 2.431 -image-type windowsservercore-ltsc2019
`,
		Handle: handleMatrix,
	})
}

func handleMatrix(p subcmd.ParseFunc) error {
	f := bindConfigFlags()
	output := flag.String("o", "", "Write the matrix JSON to this file instead of stdout.")

	if err := p(); err != nil {
		return err
	}

	cfg, err := f.config(context.Background(), false)
	if err != nil {
		return err
	}
	file, err := composefile.Read(cfg.ConfigPath)
	if err != nil {
		return err
	}
	m, err := orchestrate.ResolveMatrix(cfg, file)
	if err != nil {
		return err
	}

	if *output != "" {
		return stringutil.WriteJSONFile(*output, m)
	}
	e := json.NewEncoder(os.Stdout)
	e.SetIndent("", "  ")
	return e.Encode(m)
}
