// Copyright (c) the Jenkins project contributors.
// Licensed under the MIT License.

package main

import (
	"context"
	"fmt"
	"log"

	"github.com/jenkins-infra/winimage/buildmatrix/composefile"
	"github.com/jenkins-infra/winimage/dockercmd"
	"github.com/jenkins-infra/winimage/orchestrate"
	"github.com/jenkins-infra/winimage/subcmd"
)

func init() {
	subcommands = append(subcommands, subcmd.Option{
		Name:    "build",
		Summary: "Build every image variant in the matrix.",
		Description: `

Resolves the WAR checksum, the build matrix, and the build configuration,
then builds every declared variant with the docker CLI. A variant that fails
to build does not stop the remaining variants; all failures are reported
together at the end.

Example:

  winimage build -version 2.431 -image-type windowsservercore-ltsc2019
`,
		Handle: handleBuild,
	})
}

func handleBuild(p subcmd.ParseFunc) error {
	f := bindConfigFlags()

	if err := p(); err != nil {
		return err
	}

	ctx := context.Background()
	cfg, err := f.config(ctx, true)
	if err != nil {
		return err
	}
	file, err := composefile.Read(cfg.ConfigPath)
	if err != nil {
		return err
	}
	if _, err := orchestrate.ResolveMatrix(cfg, file); err != nil {
		return err
	}

	docker := dockercmd.New(cfg.DryRun)
	if !cfg.DryRun {
		v, err := docker.ClientVersion(ctx)
		if err != nil {
			return fmt.Errorf("docker is not available: %w", err)
		}
		log.Printf("Using docker client %v\n", v)
	}

	return orchestrate.Build(ctx, docker, cfg, file)
}
