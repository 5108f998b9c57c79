// Copyright (c) the Jenkins project contributors.
// Licensed under the MIT License.

// Package dockercmd wraps the docker CLI invocations used to build, tag, and
// push the Windows Jenkins images. All configuration reaches the external
// tool through explicit command arguments, never through mutated process
// environment.
package dockercmd

import (
	"context"
	"fmt"
	"os/exec"
	"sort"

	"github.com/jenkins-infra/winimage/executil"
)

// Runner executes prepared commands. The dry-run implementation prints what
// would run and succeeds without side effects.
type Runner interface {
	Run(c *exec.Cmd) error
	Output(c *exec.Cmd) (string, error)
}

// ExecRunner runs commands for real, streaming their output.
type ExecRunner struct{}

func (ExecRunner) Run(c *exec.Cmd) error {
	return executil.Run(c)
}

func (ExecRunner) Output(c *exec.Cmd) (string, error) {
	return executil.SpaceTrimmedCombinedOutput(c)
}

// DryRunner prints each command instead of running it.
type DryRunner struct{}

func (DryRunner) Run(c *exec.Cmd) error {
	fmt.Printf("---- Dry run, would run: %v\n", c.Args)
	return nil
}

func (DryRunner) Output(c *exec.Cmd) (string, error) {
	fmt.Printf("---- Dry run, would run: %v\n", c.Args)
	return "", nil
}

// CLI invokes one docker binary through a Runner.
type CLI struct {
	// Docker is the docker binary to invoke.
	Docker string
	Runner Runner
}

// New returns a CLI using the 'docker' binary from PATH. With dryRun set,
// the CLI prints intended invocations and performs none of them.
func New(dryRun bool) CLI {
	c := CLI{Docker: "docker", Runner: ExecRunner{}}
	if dryRun {
		c.Runner = DryRunner{}
	}
	return c
}

func (c CLI) command(ctx context.Context, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, c.Docker, args...)
}

// ComposeBuild builds one service declared in the given compose-style build
// configuration. Build args are passed on the command line, sorted by name
// so repeated runs log identically.
func (c CLI) ComposeBuild(ctx context.Context, configPath, service string, buildArgs map[string]string) error {
	args := []string{"compose", "--file", configPath, "build"}

	names := make([]string, 0, len(buildArgs))
	for name := range buildArgs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		args = append(args, "--build-arg", name+"="+buildArgs[name])
	}

	args = append(args, service)
	return c.Runner.Run(c.command(ctx, args...))
}

// Tag applies an additional reference to an already-built image.
func (c CLI) Tag(ctx context.Context, src, dst string) error {
	return c.Runner.Run(c.command(ctx, "tag", src, dst))
}

// Push pushes one image reference to its registry.
func (c CLI) Push(ctx context.Context, ref string) error {
	return c.Runner.Run(c.command(ctx, "push", ref))
}

// ClientVersion reports the docker client version, as a cheap probe that the
// build tool is present before a run starts.
func (c CLI) ClientVersion(ctx context.Context) (string, error) {
	return c.Runner.Output(c.command(ctx, "version", "--format", "{{.Client.Version}}"))
}

// Ref formats the full image reference pushed to the registry for one tag.
func Ref(organisation, repository, tag string) string {
	return organisation + "/" + repository + ":" + tag
}
