// Copyright (c) the Jenkins project contributors.
// Licensed under the MIT License.

// Package orchestrate runs the build, test, and publish phases over a
// resolved build matrix. Configuration travels through the call chain as an
// explicit value, and per-invocation settings are scoped to the external
// command they apply to.
//
// The build and publish phases process every item before reporting an
// aggregate error: one broken variant must not hide the state of the others.
// The test phase runs its tasks concurrently and joins them all before
// reporting.
package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/jenkins-infra/winimage/buildmatrix"
	"github.com/jenkins-infra/winimage/buildmatrix/composefile"
	"github.com/jenkins-infra/winimage/dockercmd"
	"golang.org/x/sync/errgroup"
)

// Config is the full configuration of one orchestration run.
type Config struct {
	// Organisation and Repository form the registry path every tag is
	// published under, "<organisation>/<repository>:<tag>".
	Organisation string
	Repository   string

	// WarVersion is the Jenkins WAR release to bundle.
	WarVersion string
	// Checksum is the uppercase SHA-256 hex digest of the WAR, resolved
	// before any phase runs.
	Checksum string

	ImageType  buildmatrix.ImageType
	DefaultJDK string

	// ConfigPath is the compose-style build configuration the build tool
	// consumes.
	ConfigPath string
	// TestsDir is the directory scanned for "*.Tests.ps1" test files.
	TestsDir string
	// TestRunner is the binary that runs one test file.
	TestRunner string

	DryRun bool
}

// Validate reports missing required configuration.
func (c Config) Validate() error {
	var errs []error
	if c.Organisation == "" {
		errs = append(errs, errors.New("no organisation specified"))
	}
	if c.Repository == "" {
		errs = append(errs, errors.New("no repository specified"))
	}
	if c.WarVersion == "" {
		errs = append(errs, errors.New("no Jenkins WAR version specified"))
	}
	return errors.Join(errs...)
}

// ResolveMatrix computes the build matrix for the run. The resolver is the
// canonical source of truth; the build configuration file, when present, is
// only checked against it, and any divergence fails the run rather than
// being silently resolved in either direction.
func ResolveMatrix(cfg Config, file *composefile.File) (buildmatrix.Matrix, error) {
	m, err := buildmatrix.Resolve(cfg.ImageType, cfg.WarVersion, file.VariantIDs(), cfg.DefaultJDK)
	if err != nil {
		return nil, err
	}
	if err := file.Reconcile(m); err != nil {
		return nil, fmt.Errorf("build configuration %v diverges from the resolved matrix: %w", cfg.ConfigPath, err)
	}
	return m, nil
}

// buildArgs is the per-run configuration handed to the build tool for every
// variant, as explicit command arguments.
func buildArgs(cfg Config) map[string]string {
	return map[string]string{
		"JENKINS_VERSION":       cfg.WarVersion,
		"JENKINS_SHA":           cfg.Checksum,
		"WINDOWS_FLAVOR":        cfg.ImageType.Flavor,
		"WINDOWS_VERSION_TAG":   cfg.ImageType.Version,
		"TOOLS_WINDOWS_VERSION": cfg.ImageType.ToolsVersion(),
	}
}

// Build builds every variant declared in the build configuration,
// sequentially. Failures are collected per variant and reported together
// after all variants have been attempted.
func Build(ctx context.Context, docker dockercmd.CLI, cfg Config, file *composefile.File) error {
	args := buildArgs(cfg)

	var errs []error
	for _, id := range file.VariantIDs() {
		log.Printf("Building %v...\n", id)
		if err := docker.ComposeBuild(ctx, cfg.ConfigPath, id, args); err != nil {
			errs = append(errs, fmt.Errorf("building %v: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// testTask is one test file paired with one built image.
type testTask struct {
	File    string
	ImageID string
}

// Test runs every test file against every image in the matrix. The tasks run
// concurrently and independently; each one's settings are scoped to its own
// command. All tasks are joined before the phase reports, and any failed
// task fails the phase.
func Test(ctx context.Context, runner dockercmd.Runner, cfg Config, m buildmatrix.Matrix) error {
	files, err := filepath.Glob(filepath.Join(cfg.TestsDir, "*.Tests.ps1"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no test files found in %v", cfg.TestsDir)
	}

	var tasks []testTask
	for _, e := range m {
		for _, f := range files {
			tasks = append(tasks, testTask{File: f, ImageID: e.ImageID})
		}
	}

	results := make([]error, len(tasks))
	var eg errgroup.Group
	for i, task := range tasks {
		eg.Go(func() error {
			log.Printf("Testing %v against %v...\n", task.File, task.ImageID)
			cmd := exec.CommandContext(ctx, cfg.TestRunner, "-NoLogo", "-NonInteractive", "-File", task.File)
			// The task's settings ride on this command alone; nothing is
			// visible to sibling tasks.
			cmd.Env = append(os.Environ(),
				"ORGANISATION="+cfg.Organisation,
				"REPOSITORY="+cfg.Repository,
				"IMAGE="+task.ImageID,
				"JENKINS_VERSION="+cfg.WarVersion,
			)
			results[i] = runner.Run(cmd)
			// Collect instead of returning: a failed task must not cancel
			// its siblings, and every terminal state is reported.
			return nil
		})
	}
	// Never returns an error: tasks only record results.
	_ = eg.Wait()

	var errs []error
	for i, res := range results {
		if res != nil {
			errs = append(errs, fmt.Errorf("test %v against %v: %w", tasks[i].File, tasks[i].ImageID, res))
		}
	}
	return errors.Join(errs...)
}

// Publish applies every tag in the matrix to its variant's image and pushes
// each resulting reference. Failures are collected per reference and
// reported together after everything has been attempted.
func Publish(ctx context.Context, docker dockercmd.CLI, cfg Config, m buildmatrix.Matrix) error {
	var errs []error
	for _, e := range m {
		primary := dockercmd.Ref(cfg.Organisation, cfg.Repository, e.ImageID)
		for _, tag := range e.Tags {
			ref := dockercmd.Ref(cfg.Organisation, cfg.Repository, tag)
			if ref != primary {
				if err := docker.Tag(ctx, primary, ref); err != nil {
					errs = append(errs, fmt.Errorf("tagging %v: %w", ref, err))
					continue
				}
			}
			log.Printf("Pushing %v...\n", ref)
			if err := docker.Push(ctx, ref); err != nil {
				errs = append(errs, fmt.Errorf("pushing %v: %w", ref, err))
			}
		}
	}
	return errors.Join(errs...)
}
