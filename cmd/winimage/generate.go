// Copyright (c) the Jenkins project contributors.
// Licensed under the MIT License.

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/jenkins-infra/winimage/buildmatrix/composefile"
	"github.com/jenkins-infra/winimage/subcmd"
)

func init() {
	subcommands = append(subcommands, subcmd.Option{
		Name:    "generate",
		Summary: "Generate the build configuration file from the resolved matrix.",
		Description: `

Renders the compose-style build configuration from the matrix resolver, so
the file can never diverge from the tags the resolver computes. The WAR
checksum is resolved and embedded in the build args.

Example:

  winimage generate -version 2.431 -variants jdk8,jdk11,jdk17,jdk21
`,
		Handle: handleGenerate,
	})
}

func handleGenerate(p subcmd.ParseFunc) error {
	f := bindConfigFlags()
	variants := flag.String("variants", "jdk8,jdk11,jdk17,jdk21", "Comma-separated build variant identifiers to declare.")

	if err := p(); err != nil {
		return err
	}

	cfg, err := f.config(context.Background(), true)
	if err != nil {
		return err
	}

	params := composefile.GenerateParams{
		Organisation: cfg.Organisation,
		Repository:   cfg.Repository,
		WarVersion:   cfg.WarVersion,
		Checksum:     cfg.Checksum,
		ImageType:    cfg.ImageType,
		DefaultJDK:   cfg.DefaultJDK,
		VariantIDs:   strings.Split(*variants, ","),
	}

	if cfg.DryRun {
		log.Printf("Dry run, would write %v:\n", cfg.ConfigPath)
		return composefile.Generate(os.Stdout, params)
	}
	if err := composefile.WriteFile(cfg.ConfigPath, params); err != nil {
		return err
	}
	log.Printf("Wrote %v\n", cfg.ConfigPath)
	return nil
}
