// Copyright (c) the Jenkins project contributors.
// Licensed under the MIT License.

package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/jenkins-infra/winimage/buildmatrix"
	"github.com/jenkins-infra/winimage/orchestrate"
	"github.com/jenkins-infra/winimage/subcmd"
	"github.com/jenkins-infra/winimage/warsum"
)

const description = `
winimage orchestrates the Windows Jenkins Docker images: it resolves the
matrix of image variants and tags, builds the variants with the docker CLI,
runs the test suite against each built image, and publishes the tags.
`

// subcommands is the list of subcommand options, populated by each file's init function.
var subcommands []subcmd.Option

func main() {
	if err := subcmd.Run("winimage", description, subcommands); err != nil {
		log.Fatal(err)
	}
}

var httpClient = &http.Client{
	Timeout: time.Minute,
}

// configFlags is the set of flags shared by every subcommand that operates
// on a resolved run configuration.
type configFlags struct {
	organisation *string
	repository   *string
	version      *string
	imageType    *string
	defaultJDK   *string
	configPath   *string
	testsDir     *string
	testRunner   *string
	warRepo      *string
	dryRun       *bool
}

// bindConfigFlags creates configFlags with the 'flag' package, globally
// registering them so the subcommand's ParseFunc will find them.
func bindConfigFlags() *configFlags {
	return &configFlags{
		organisation: flag.String("organisation", "jenkins4eval", "The registry organisation to tag and push under."),
		repository:   flag.String("repository", "jenkins", "The registry repository to tag and push under."),
		version:      flag.String("version", "2.431", "The Jenkins WAR version to bundle."),
		imageType:    flag.String("image-type", "windowsservercore-ltsc2019", "The Windows base image to build on, as \"<flavor>-<version>\"."),
		defaultJDK:   flag.String("default-jdk", "17", "The JDK major version whose variant receives the unqualified tags."),
		configPath:   flag.String("config", "build-windows.yaml", "The compose-style build configuration file."),
		testsDir:     flag.String("tests-dir", "tests", "The directory scanned for *.Tests.ps1 test files."),
		testRunner:   flag.String("test-runner", "pwsh", "The binary that runs one test file."),
		warRepo:      flag.String("war-repo", warsum.DefaultBaseURL, "The base URL of the Jenkins release repository."),
		dryRun:       flag.Bool("n", false, "Enable dry run: resolve the matrix and print intended commands, but run none of them."),
	}
}

// config assembles the run configuration from the parsed flags. With
// fetchChecksum set, it also resolves the WAR checksum; no build-like phase
// may proceed if that fails.
func (f *configFlags) config(ctx context.Context, fetchChecksum bool) (orchestrate.Config, error) {
	imageType, err := buildmatrix.ParseImageType(*f.imageType)
	if err != nil {
		return orchestrate.Config{}, err
	}

	cfg := orchestrate.Config{
		Organisation: *f.organisation,
		Repository:   *f.repository,
		WarVersion:   *f.version,
		ImageType:    imageType,
		DefaultJDK:   *f.defaultJDK,
		ConfigPath:   *f.configPath,
		TestsDir:     *f.testsDir,
		TestRunner:   *f.testRunner,
		DryRun:       *f.dryRun,
	}
	if err := cfg.Validate(); err != nil {
		return orchestrate.Config{}, err
	}

	if fetchChecksum {
		sum, err := warsum.Fetch(ctx, httpClient, *f.warRepo, cfg.WarVersion)
		if err != nil {
			return orchestrate.Config{}, err
		}
		log.Printf("Jenkins WAR %v checksum: %v\n", cfg.WarVersion, sum)
		cfg.Checksum = sum
	}
	return cfg, nil
}
