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
		Name:    "publish",
		Summary: "Tag and push every reference in the matrix to the registry.",
		Description: `

Applies every resolved tag to its variant's built image and pushes each
reference as "<organisation>/<repository>:<tag>". A failed tag or push does
not stop the remaining references; all failures are reported together at the
end.

Example:

  winimage publish -version 2.431 -organisation jenkins4eval -repository jenkins
`,
		Handle: handlePublish,
	})
}

func handlePublish(p subcmd.ParseFunc) error {
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

	return orchestrate.Publish(ctx, dockercmd.New(cfg.DryRun), cfg, m)
}
