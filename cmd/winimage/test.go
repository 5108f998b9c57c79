// Copyright (c) the Jenkins project contributors.
// Licensed under the MIT License.

package main

import (
	"context"

	"github.com/jenkins-infra/winimage/buildmatrix/composefile"
	"github.com/jenkins-infra/winimage/dockercmd"
	"github.com/jenkins-infra/winimage/orchestrate"
	"github.com/jenkins-infra/winimage/subcmd"
)

func init() {
	subcommands = append(subcommands, subcmd.Option{
		Name:    "test",
		Summary: "Run the test suite against every built image in the matrix.",
		Description: `

Runs every test file in the tests directory against every image in the
resolved matrix. The pairings run concurrently and independently of each
other; the phase fails if any task fails, reported after all tasks finish.

Example:

  winimage test -version 2.431 -tests-dir tests
`,
		Handle: handleTest,
	})
}

func handleTest(p subcmd.ParseFunc) error {
	f := bindConfigFlags()

	if err := p(); err != nil {
		return err
	}

	ctx := context.Background()
	cfg, err := f.config(ctx, false)
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

	var runner dockercmd.Runner = dockercmd.ExecRunner{}
	if cfg.DryRun {
		runner = dockercmd.DryRunner{}
	}
	return orchestrate.Test(ctx, runner, cfg, m)
}
