// Copyright (c) the Jenkins project contributors.
// Licensed under the MIT License.

package orchestrate

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/go-test/deep"
	"github.com/jenkins-infra/winimage/buildmatrix"
	"github.com/jenkins-infra/winimage/buildmatrix/composefile"
	"github.com/jenkins-infra/winimage/dockercmd"
)

// fakeRunner records every command it's asked to run and can be told to fail
// commands matching a substring of the argument list.
type fakeRunner struct {
	mu   sync.Mutex
	cmds []*exec.Cmd

	failMatching string
}

func (r *fakeRunner) Run(c *exec.Cmd) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds = append(r.cmds, c)
	if r.failMatching != "" && strings.Contains(strings.Join(c.Args, " "), r.failMatching) {
		return errors.New("injected failure")
	}
	return nil
}

func (r *fakeRunner) Output(c *exec.Cmd) (string, error) {
	return "", r.Run(c)
}

func (r *fakeRunner) argLines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	lines := make([]string, 0, len(r.cmds))
	for _, c := range r.cmds {
		lines = append(lines, strings.Join(c.Args, " "))
	}
	return lines
}

var testConfig = Config{
	Organisation: "jenkins4eval",
	Repository:   "jenkins",
	WarVersion:   "2.431",
	Checksum:     "9E47D60E8AD76E18FE663DEC74B7EB5E6FF60E1CCEB20176E25D7EBE25B29C05",
	ImageType:    buildmatrix.ImageType{Flavor: "windowsservercore", Version: "ltsc2019"},
	DefaultJDK:   "17",
	ConfigPath:   "build-windows.yaml",
	TestRunner:   "pwsh",
}

func testFile(t *testing.T) *composefile.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "build-windows.yaml")
	err := composefile.WriteFile(path, composefile.GenerateParams{
		Organisation: testConfig.Organisation,
		Repository:   testConfig.Repository,
		WarVersion:   testConfig.WarVersion,
		Checksum:     testConfig.Checksum,
		ImageType:    testConfig.ImageType,
		DefaultJDK:   testConfig.DefaultJDK,
		VariantIDs:   []string{"jdk11", "jdk17"},
	})
	if err != nil {
		t.Fatal(err)
	}
	f, err := composefile.Read(path)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func testMatrix(t *testing.T) buildmatrix.Matrix {
	t.Helper()
	m, err := buildmatrix.Resolve(testConfig.ImageType, testConfig.WarVersion, []string{"jdk11", "jdk17"}, testConfig.DefaultJDK)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestConfigValidate(t *testing.T) {
	if err := testConfig.Validate(); err != nil {
		t.Errorf("Validate() rejected a complete config: %v", err)
	}
	incomplete := testConfig
	incomplete.Organisation = ""
	incomplete.WarVersion = ""
	err := incomplete.Validate()
	if err == nil {
		t.Fatal("Validate() accepted an incomplete config")
	}
	for _, miss := range []string{"organisation", "WAR version"} {
		if !strings.Contains(err.Error(), miss) {
			t.Errorf("Validate() error does not mention the missing %v:\n%v", miss, err)
		}
	}
}

func TestResolveMatrix(t *testing.T) {
	m, err := ResolveMatrix(testConfig, testFile(t))
	if err != nil {
		t.Fatal(err)
	}
	if diff := deep.Equal(m, testMatrix(t)); diff != nil {
		t.Error(diff)
	}
}

func TestResolveMatrixDivergentConfig(t *testing.T) {
	// The file pins a different WAR version than the run's config: the
	// divergence must fail the run, not resolve silently.
	f := testFile(t)
	cfg := testConfig
	cfg.WarVersion = "2.430"
	if _, err := ResolveMatrix(cfg, f); err == nil {
		t.Error("ResolveMatrix() silently accepted a divergent build configuration")
	}
}

func TestBuild(t *testing.T) {
	runner := &fakeRunner{}
	docker := dockercmd.CLI{Docker: "docker", Runner: runner}

	if err := Build(context.Background(), docker, testConfig, testFile(t)); err != nil {
		t.Fatal(err)
	}

	lines := runner.argLines()
	if len(lines) != 2 {
		t.Fatalf("Build() ran %v commands, want 2:\n%v", len(lines), strings.Join(lines, "\n"))
	}
	for i, service := range []string{"jdk11", "jdk17"} {
		if !strings.HasPrefix(lines[i], "docker compose --file build-windows.yaml build ") {
			t.Errorf("command %v is not a compose build: %v", i, lines[i])
		}
		if !strings.HasSuffix(lines[i], " "+service) {
			t.Errorf("command %v does not build %v: %v", i, service, lines[i])
		}
		for _, arg := range []string{
			"JENKINS_VERSION=2.431",
			"JENKINS_SHA=" + testConfig.Checksum,
			"TOOLS_WINDOWS_VERSION=1809",
		} {
			if !strings.Contains(lines[i], arg) {
				t.Errorf("command %v missing build arg %v: %v", i, arg, lines[i])
			}
		}
	}
}

func TestBuildFailsAtEnd(t *testing.T) {
	runner := &fakeRunner{failMatching: "jdk11"}
	docker := dockercmd.CLI{Docker: "docker", Runner: runner}

	err := Build(context.Background(), docker, testConfig, testFile(t))
	if err == nil || !strings.Contains(err.Error(), "jdk11") {
		t.Fatalf("Build() did not report the failed variant: %v", err)
	}
	// The jdk17 build must still have been attempted.
	if len(runner.argLines()) != 2 {
		t.Errorf("Build() stopped early after a failure:\n%v", strings.Join(runner.argLines(), "\n"))
	}
}

func TestTest(t *testing.T) {
	cfg := testConfig
	cfg.TestsDir = t.TempDir()
	for _, name := range []string{"install.Tests.ps1", "runtime.Tests.ps1"} {
		if err := os.WriteFile(filepath.Join(cfg.TestsDir, name), []byte("# test"), 0o666); err != nil {
			t.Fatal(err)
		}
	}

	runner := &fakeRunner{}
	if err := Test(context.Background(), runner, cfg, testMatrix(t)); err != nil {
		t.Fatal(err)
	}

	// Two test files times two images.
	if len(runner.cmds) != 4 {
		t.Fatalf("Test() ran %v tasks, want 4", len(runner.cmds))
	}
	var images []string
	for _, c := range runner.cmds {
		if c.Args[0] != "pwsh" {
			t.Errorf("task does not invoke the test runner: %v", c.Args)
		}
		for _, env := range c.Env {
			if after, ok := strings.CutPrefix(env, "IMAGE="); ok {
				images = append(images, after)
			}
		}
	}
	slices.Sort(images)
	want := []string{
		"11-hotspot-windowsservercore-ltsc2019",
		"11-hotspot-windowsservercore-ltsc2019",
		"17-hotspot-windowsservercore-ltsc2019",
		"17-hotspot-windowsservercore-ltsc2019",
	}
	if diff := deep.Equal(images, want); diff != nil {
		t.Error(diff)
	}
}

func TestTestAggregatesFailures(t *testing.T) {
	cfg := testConfig
	cfg.TestsDir = t.TempDir()
	for _, name := range []string{"install.Tests.ps1", "runtime.Tests.ps1"} {
		if err := os.WriteFile(filepath.Join(cfg.TestsDir, name), []byte("# test"), 0o666); err != nil {
			t.Fatal(err)
		}
	}

	runner := &fakeRunner{failMatching: "install.Tests.ps1"}
	err := Test(context.Background(), runner, cfg, testMatrix(t))
	if err == nil {
		t.Fatal("Test() reported success despite failing tasks")
	}
	// All tasks ran to a terminal state despite failures.
	if len(runner.cmds) != 4 {
		t.Errorf("Test() did not join all tasks: ran %v of 4", len(runner.cmds))
	}
	// One failure per image.
	if got := strings.Count(err.Error(), "install.Tests.ps1"); got != 2 {
		t.Errorf("Test() reported %v failures, want 2:\n%v", got, err)
	}
}

func TestTestNoFiles(t *testing.T) {
	cfg := testConfig
	cfg.TestsDir = t.TempDir()
	if err := Test(context.Background(), &fakeRunner{}, cfg, testMatrix(t)); err == nil {
		t.Error("Test() accepted an empty tests directory")
	}
}

func TestPublish(t *testing.T) {
	runner := &fakeRunner{}
	docker := dockercmd.CLI{Docker: "docker", Runner: runner}

	if err := Publish(context.Background(), docker, testConfig, testMatrix(t)); err != nil {
		t.Fatal(err)
	}

	want := []string{
		"docker push jenkins4eval/jenkins:11-hotspot-windowsservercore-ltsc2019",
		"docker tag jenkins4eval/jenkins:11-hotspot-windowsservercore-ltsc2019 jenkins4eval/jenkins:2.431-11-hotspot-windowsservercore-ltsc2019",
		"docker push jenkins4eval/jenkins:2.431-11-hotspot-windowsservercore-ltsc2019",
		"docker push jenkins4eval/jenkins:17-hotspot-windowsservercore-ltsc2019",
		"docker tag jenkins4eval/jenkins:17-hotspot-windowsservercore-ltsc2019 jenkins4eval/jenkins:2.431-17-hotspot-windowsservercore-ltsc2019",
		"docker push jenkins4eval/jenkins:2.431-17-hotspot-windowsservercore-ltsc2019",
		"docker tag jenkins4eval/jenkins:17-hotspot-windowsservercore-ltsc2019 jenkins4eval/jenkins:windowsservercore-ltsc2019",
		"docker push jenkins4eval/jenkins:windowsservercore-ltsc2019",
		"docker tag jenkins4eval/jenkins:17-hotspot-windowsservercore-ltsc2019 jenkins4eval/jenkins:2.431-windowsservercore-ltsc2019",
		"docker push jenkins4eval/jenkins:2.431-windowsservercore-ltsc2019",
	}
	if diff := deep.Equal(runner.argLines(), want); diff != nil {
		t.Error(diff)
	}
}

func TestPublishFailsAtEnd(t *testing.T) {
	runner := &fakeRunner{failMatching: "2.431-11-hotspot"}
	docker := dockercmd.CLI{Docker: "docker", Runner: runner}

	err := Publish(context.Background(), docker, testConfig, testMatrix(t))
	if err == nil {
		t.Fatal("Publish() reported success despite a failed tag")
	}
	var joined interface{ Unwrap() []error }
	if !errors.As(err, &joined) {
		t.Fatalf("Publish() error is not an aggregate: %v", err)
	}
	// The failed tag is never pushed, and everything after it still runs.
	lines := runner.argLines()
	if slices.Contains(lines, "docker push jenkins4eval/jenkins:2.431-11-hotspot-windowsservercore-ltsc2019") {
		t.Error("Publish() pushed a reference whose tagging failed")
	}
	if !slices.Contains(lines, "docker push jenkins4eval/jenkins:2.431-windowsservercore-ltsc2019") {
		t.Error("Publish() stopped early after a failure")
	}
}
