// Copyright (c) the Jenkins project contributors.
// Licensed under the MIT License.

package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/jenkins-infra/winimage/subcmd"
	"github.com/jenkins-infra/winimage/warsum"
)

func init() {
	subcommands = append(subcommands, subcmd.Option{
		Name:    "checksum",
		Summary: "Fetch and print the SHA-256 checksum of a Jenkins WAR release.",
		Description: `

Example:

  winimage checksum -version 2.431
`,
		Handle: handleChecksum,
	})
}

func handleChecksum(p subcmd.ParseFunc) error {
	version := flag.String("version", "2.431", "The Jenkins WAR version.")
	warRepo := flag.String("war-repo", warsum.DefaultBaseURL, "The base URL of the Jenkins release repository.")

	if err := p(); err != nil {
		return err
	}

	sum, err := warsum.Fetch(context.Background(), httpClient, *warRepo, *version)
	if err != nil {
		return err
	}
	fmt.Println(sum)
	return nil
}
